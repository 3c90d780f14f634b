// ABOUTME: ffmpeg-backed sample source
// ABOUTME: Decodes any format or streaming protocol ffmpeg understands to mono 16-bit PCM
package source

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os/exec"

	"github.com/Sendspin/ltc-go/pkg/audio"
	"github.com/Sendspin/ltc-go/pkg/audio/decode"
)

// FFmpegSource streams audio from any URL/format using ffmpeg
// Supports HLS (.m3u8), DASH, and other streaming protocols
type FFmpegSource struct {
	url    string
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stream decode.Stream
}

// NewFFmpegSource starts ffmpeg decoding url to mono PCM at sampleRate
func NewFFmpegSource(url string, sampleRate int) (*FFmpegSource, error) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, fmt.Errorf("ffmpeg not found in PATH: %w", err)
	}

	// LTC lives on one channel, so take the first one rather than a downmix
	cmd := exec.Command("ffmpeg",
		"-loglevel", "error",
		"-i", url,
		"-af", "pan=mono|c0=c0",
		"-f", "s16le",
		"-ar", fmt.Sprintf("%d", sampleRate),
		"-ac", "1",
		"-")

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to get ffmpeg stdout: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	stream, err := decode.NewPCMStream(bufio.NewReader(stdout), audio.Format{
		Codec:      "pcm",
		SampleRate: sampleRate,
		Channels:   1,
		BitDepth:   16,
	})
	if err != nil {
		cmd.Process.Kill()
		cmd.Wait()
		return nil, err
	}

	log.Printf("Streaming via ffmpeg: %s (sample rate: %d Hz)", url, sampleRate)

	return &FFmpegSource{
		url:    url,
		cmd:    cmd,
		stdout: stdout,
		stream: stream,
	}, nil
}

func (s *FFmpegSource) Read(samples []int32) (int, error) { return s.stream.Read(samples) }
func (s *FFmpegSource) SampleRate() int                   { return s.stream.Format().SampleRate }
func (s *FFmpegSource) Channels() int                     { return 1 }
func (s *FFmpegSource) Name() string                      { return s.url }
func (s *FFmpegSource) Close() error {
	if s.stdout != nil {
		s.stdout.Close()
	}
	if s.cmd != nil && s.cmd.Process != nil {
		s.cmd.Process.Kill()
		s.cmd.Wait()
	}
	return nil
}
