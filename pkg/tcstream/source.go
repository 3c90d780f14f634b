// ABOUTME: Audio source interface for the timecode server
// ABOUTME: Any PCM reader that reports its rate and channel count can feed the decoder
package tcstream

// Source provides interleaved PCM samples carrying LTC
type Source interface {
	// Read reads interleaved samples in 24-bit range. Returns number of samples read or error.
	Read(samples []int32) (int, error)
	SampleRate() int
	Channels() int
	// Name describes the source for logs
	Name() string
	Close() error
}
