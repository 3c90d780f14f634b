// ABOUTME: Audio resampling package using linear interpolation
// ABOUTME: Converts audio between different sample rates
// Package resample provides audio sample rate conversion.
//
// Uses linear interpolation for converting between sample rates. Varying
// the output rate against a fixed input rate plays LTC faster or slower,
// which is how tape drift and varispeed are simulated.
//
// Example:
//
//	r := resample.New(48000, 44100, 1)
//	out := make([]int32, r.OutputSamplesNeeded(len(in)))
//	n := r.Resample(in, out)
package resample
