// ABOUTME: Audio output package for playing audio
// ABOUTME: Provides Output interface and the oto implementation
// Package output provides audio playback interfaces.
//
// The oto backend plays unsigned 8-bit LTC levels through the default device,
// which is enough to feed generated LTC into a sound card line output.
//
// Example:
//
//	out := output.NewOto()
//	err := out.Open(48000, 1)
//	err = out.Write(samples)
package output
