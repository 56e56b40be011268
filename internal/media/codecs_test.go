package media

import (
	"testing"

	"github.com/pion/webrtc/v4"

	"huddle/internal/domain"
)

func TestDefaultCodecs(t *testing.T) {
	codecs := DefaultCodecs()
	byMime := make(map[string]domain.CodecCapability, len(codecs))
	for _, c := range codecs {
		byMime[c.MimeType] = c
	}

	opus, ok := byMime[webrtc.MimeTypeOpus]
	if !ok {
		t.Fatal("opus missing")
	}
	if opus.ClockRate != 48000 || opus.Channels != 2 {
		t.Fatalf("opus clock/channels wrong: %v", opus)
	}
	if opus.SDPFmtpLine != "useinbandfec=1" {
		t.Fatalf("opus fmtp wrong: %q", opus.SDPFmtpLine)
	}

	for _, mime := range []string{webrtc.MimeTypeVP8, webrtc.MimeTypeVP9, webrtc.MimeTypeH265} {
		v, ok := byMime[mime]
		if !ok {
			t.Fatalf("%s missing", mime)
		}
		if v.ClockRate != 90000 {
			t.Fatalf("%s clock rate %d, want 90000", mime, v.ClockRate)
		}
		found := false
		for _, fb := range v.RTCPFeedback {
			if fb == "nack pli" {
				found = true
			}
		}
		if !found {
			t.Fatalf("%s lacks nack pli feedback", mime)
		}
	}
}

func TestToRTPCodec(t *testing.T) {
	params, typ, err := toRTPCodec(domain.CodecCapability{
		MimeType:     webrtc.MimeTypeVP8,
		ClockRate:    90000,
		RTCPFeedback: []string{"nack", "nack pli"},
	})
	if err != nil {
		t.Fatalf("toRTPCodec: %v", err)
	}
	if typ != webrtc.RTPCodecTypeVideo {
		t.Fatalf("want video type, got %v", typ)
	}
	if params.PayloadType != 96 {
		t.Fatalf("want payload type 96, got %d", params.PayloadType)
	}
	if len(params.RTCPFeedback) != 2 {
		t.Fatalf("want 2 feedback entries, got %v", params.RTCPFeedback)
	}
	if params.RTCPFeedback[1].Type != "nack" || params.RTCPFeedback[1].Parameter != "pli" {
		t.Fatalf("nack pli not split: %v", params.RTCPFeedback[1])
	}

	if _, _, err := toRTPCodec(domain.CodecCapability{MimeType: "video/AV1"}); err == nil {
		t.Fatal("want error for codec without payload type")
	}
}
