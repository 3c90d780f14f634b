// ABOUTME: Timecode broadcast protocol message type definitions
// ABOUTME: Defines structs for the handshake, decoded frames and signal state
package protocol

import "github.com/Sendspin/ltc-go/pkg/ltc"

// ProtocolVersion is sent in both hello messages
const ProtocolVersion = 1

// DefaultPath is the websocket endpoint served by timecode servers
const DefaultPath = "/ltc"

// Message type names
const (
	TypeClientHello   = "client/hello"
	TypeServerHello   = "server/hello"
	TypeClientGoodbye = "client/goodbye"
	TypeTimecodeFrame = "timecode/frame"
	TypeSignalState   = "signal/state"
)

// Message is the top-level wrapper for all protocol messages
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// ClientHello is sent by clients to initiate the handshake
type ClientHello struct {
	ClientID   string      `json:"client_id"`
	Name       string      `json:"name"`
	Version    int         `json:"version"`
	DeviceInfo *DeviceInfo `json:"device_info,omitempty"`
}

// DeviceInfo contains device identification
type DeviceInfo struct {
	ProductName     string `json:"product_name"`
	Manufacturer    string `json:"manufacturer"`
	SoftwareVersion string `json:"software_version"`
}

// ServerHello is the server's response to client/hello and describes the
// timecode being decoded
type ServerHello struct {
	ServerID   string  `json:"server_id"`
	Name       string  `json:"name"`
	Version    int     `json:"version"`
	SampleRate int     `json:"sample_rate"`
	FPS        float64 `json:"fps"`
	Standard   string  `json:"standard"`
}

// TimecodeFrame is one decoded LTC frame
type TimecodeFrame struct {
	Timecode   string  `json:"timecode"`           // HH:MM:SS:FF, ';' before frames when drop-frame
	Date       string  `json:"date,omitempty"`     // YYYY-MM-DD when the stream carries a date
	Timezone   string  `json:"timezone,omitempty"` // +HHMM
	Hours      int     `json:"hours"`
	Minutes    int     `json:"minutes"`
	Seconds    int     `json:"seconds"`
	Frames     int     `json:"frames"`
	DropFrame  bool    `json:"drop_frame"`
	Reverse    bool    `json:"reverse"`
	OffStart   int64   `json:"off_start"` // sample positions in the source stream
	OffEnd     int64   `json:"off_end"`
	VolumeDBFS float64 `json:"volume_dbfs"`
	UserBits   uint32  `json:"user_bits"`
	Speed      float64 `json:"speed,omitempty"` // 1.0 = nominal playback speed
}

// SignalState reports whether the server is locked to an LTC signal
type SignalState struct {
	Locked    bool    `json:"locked"`
	Speed     float64 `json:"speed"`
	Frames    uint64  `json:"frames"`
	Discarded uint64  `json:"discarded"`
}

// ClientGoodbye is sent before graceful disconnect
type ClientGoodbye struct {
	Reason string `json:"reason"` // "shutdown", "restart", "user_request"
}

// NewTimecodeFrame builds the wire form of a decoded frame. Date and
// timezone are filled in only when flags include ltc.UseDate.
func NewTimecodeFrame(fe ltc.FrameExt, flags ltc.BGFlags, speed float64) TimecodeFrame {
	tc := ltc.FrameToTimecode(fe.Frame, flags)

	msg := TimecodeFrame{
		Timecode:   fe.Frame.String(),
		Hours:      tc.Hours,
		Minutes:    tc.Minutes,
		Seconds:    tc.Seconds,
		Frames:     tc.Frame,
		DropFrame:  fe.Frame.DropFrame(),
		Reverse:    fe.Reverse,
		OffStart:   fe.OffStart,
		OffEnd:     fe.OffEnd,
		VolumeDBFS: fe.Volume,
		UserBits:   fe.Frame.UserBits(),
		Speed:      speed,
	}
	if flags.Has(ltc.UseDate) {
		msg.Date = tc.Date()
		msg.Timezone = tc.Timezone
	}
	return msg
}
