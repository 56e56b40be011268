package media

import (
	"fmt"
	"strings"

	"github.com/pion/webrtc/v4"

	"huddle/internal/domain"
)

var videoFeedback = []string{"nack", "nack pli", "ccm fir", "goog-remb", "transport-cc"}

// DefaultCodecs lists what every router negotiates: Opus for audio, VP8,
// VP9 and H.265 for video, all with the RTCP feedback needed for a
// forwarding server (NACK, PLI, FIR, REMB, transport-cc).
func DefaultCodecs() []domain.CodecCapability {
	return []domain.CodecCapability{
		{
			MimeType:     webrtc.MimeTypeOpus,
			ClockRate:    48000,
			Channels:     2,
			SDPFmtpLine:  "useinbandfec=1",
			RTCPFeedback: []string{"transport-cc"},
		},
		{
			MimeType:     webrtc.MimeTypeVP8,
			ClockRate:    90000,
			RTCPFeedback: videoFeedback,
		},
		{
			MimeType:     webrtc.MimeTypeVP9,
			ClockRate:    90000,
			RTCPFeedback: videoFeedback,
		},
		{
			MimeType:     webrtc.MimeTypeH265,
			ClockRate:    90000,
			RTCPFeedback: videoFeedback,
		},
	}
}

// payloadTypes assigns stable dynamic payload types per codec for SDP.
var payloadTypes = map[string]webrtc.PayloadType{
	webrtc.MimeTypeOpus: 111,
	webrtc.MimeTypeVP8:  96,
	webrtc.MimeTypeVP9:  98,
	webrtc.MimeTypeH265: 100,
}

// toRTPCodec converts a capability to pion's registration form.
func toRTPCodec(c domain.CodecCapability) (webrtc.RTPCodecParameters, webrtc.RTPCodecType, error) {
	pt, ok := payloadTypes[c.MimeType]
	if !ok {
		return webrtc.RTPCodecParameters{}, 0, fmt.Errorf("no payload type for codec %s", c.MimeType)
	}

	var typ webrtc.RTPCodecType
	switch {
	case strings.HasPrefix(c.MimeType, "audio/"):
		typ = webrtc.RTPCodecTypeAudio
	case strings.HasPrefix(c.MimeType, "video/"):
		typ = webrtc.RTPCodecTypeVideo
	default:
		return webrtc.RTPCodecParameters{}, 0, fmt.Errorf("unsupported mime type %s", c.MimeType)
	}

	feedback := make([]webrtc.RTCPFeedback, 0, len(c.RTCPFeedback))
	for _, f := range c.RTCPFeedback {
		typeParam := strings.SplitN(f, " ", 2)
		fb := webrtc.RTCPFeedback{Type: typeParam[0]}
		if len(typeParam) == 2 {
			fb.Parameter = typeParam[1]
		}
		feedback = append(feedback, fb)
	}

	return webrtc.RTPCodecParameters{
		RTPCodecCapability: webrtc.RTPCodecCapability{
			MimeType:     c.MimeType,
			ClockRate:    c.ClockRate,
			Channels:     c.Channels,
			SDPFmtpLine:  c.SDPFmtpLine,
			RTCPFeedback: feedback,
		},
		PayloadType: pt,
	}, typ, nil
}
