package domain

import "fmt"

// MediaKind distinguishes audio from video tracks.
type MediaKind string

const (
	MediaAudio MediaKind = "audio"
	MediaVideo MediaKind = "video"
)

// ParseMediaKind validates a wire-level kind string.
func ParseMediaKind(s string) (MediaKind, error) {
	switch MediaKind(s) {
	case MediaAudio, MediaVideo:
		return MediaKind(s), nil
	}
	return "", fmt.Errorf("unknown media kind %q", s)
}

// CodecCapability describes one codec the server routes, in the shape
// clients need to configure their side of the connection.
type CodecCapability struct {
	MimeType     string   `json:"mimeType"`
	ClockRate    uint32   `json:"clockRate"`
	Channels     uint16   `json:"channels,omitempty"`
	SDPFmtpLine  string   `json:"sdpFmtpLine,omitempty"`
	RTCPFeedback []string `json:"rtcpFeedback,omitempty"`
}
