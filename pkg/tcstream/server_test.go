// ABOUTME: Integration tests for the timecode server
// ABOUTME: Tests configuration, the handshake, frame broadcast and source end
package tcstream

import (
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Sendspin/ltc-go/internal/source"
	"github.com/Sendspin/ltc-go/pkg/ltc"
	"github.com/Sendspin/ltc-go/pkg/protocol"
	"github.com/gorilla/websocket"
)

func newGenerator(t *testing.T, start ltc.Timecode) *source.GeneratorSource {
	t.Helper()
	gen, err := source.NewGenerator(source.GeneratorConfig{FPS: 25, Start: start})
	if err != nil {
		t.Fatalf("NewGenerator() error = %v", err)
	}
	return gen
}

// limitedSource ends after a fixed number of samples
type limitedSource struct {
	Source
	remaining int
}

func (l *limitedSource) Read(samples []int32) (int, error) {
	if l.remaining <= 0 {
		return 0, io.EOF
	}
	if len(samples) > l.remaining {
		samples = samples[:l.remaining]
	}
	n, err := l.Source.Read(samples)
	l.remaining -= n
	return n, err
}

// startTestServer serves s over httptest and starts decoding
func startTestServer(t *testing.T, s *Server) string {
	t.Helper()
	ts := httptest.NewServer(s.Handler())
	s.startDecoding()
	t.Cleanup(func() {
		s.Stop()
		s.shutdown()
		ts.Close()
	})
	return strings.TrimPrefix(ts.URL, "http://")
}

func TestNewServer(t *testing.T) {
	tests := []struct {
		name      string
		config    ServerConfig
		noSource  bool
		expectErr bool
	}{
		{
			name:   "valid config",
			config: ServerConfig{Port: 9000, Name: "Stage A", FPS: 25},
		},
		{
			name:      "missing source",
			config:    ServerConfig{Port: 9000, Name: "Stage A"},
			noSource:  true,
			expectErr: true,
		},
		{
			name:   "defaults",
			config: ServerConfig{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.noSource {
				tt.config.Source = newGenerator(t, ltc.Timecode{})
			}

			server, err := NewServer(tt.config)
			if tt.expectErr {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if server.config.Port == 0 {
				t.Error("port should have been set to default")
			}
			if server.config.Name == "" {
				t.Error("name should have been set to default")
			}
			if server.config.FPS != 25 {
				t.Errorf("expected 25 fps default, got %v", server.config.FPS)
			}
			if server.ServerID() == "" {
				t.Error("expected a server ID")
			}
		})
	}
}

func TestServerBroadcastsFrames(t *testing.T) {
	s, err := NewServer(ServerConfig{
		Name:     "Stage A",
		Source:   newGenerator(t, ltc.Timecode{Hours: 10, Minutes: 20}),
		Realtime: true,
	})
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	addr := startTestServer(t, s)

	c := protocol.NewClient(protocol.Config{ServerAddr: addr, ClientID: "monitor-1", Name: "Monitor"})
	if err := c.Connect(); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer c.Close()

	hello := c.ServerHello()
	if hello.Name != "Stage A" || hello.SampleRate != 48000 || hello.FPS != 25 {
		t.Errorf("unexpected server hello: %+v", hello)
	}
	if hello.Standard != ltc.TV625_50.String() {
		t.Errorf("expected standard %s, got %s", ltc.TV625_50, hello.Standard)
	}

	var frames []protocol.TimecodeFrame
	timeout := time.After(3 * time.Second)
	for len(frames) < 5 {
		select {
		case f := <-c.Frames:
			frames = append(frames, f)
		case <-timeout:
			t.Fatalf("received %d frames before timeout", len(frames))
		}
	}

	for i, f := range frames {
		if f.Hours != 10 || f.Minutes != 20 {
			t.Errorf("frame %d: unexpected timecode %s", i, f.Timecode)
		}
		if i > 0 && f.OffStart <= frames[i-1].OffStart {
			t.Errorf("frame %d: position %d not after %d", i, f.OffStart, frames[i-1].OffStart)
		}
		if i > 0 && f.Frames != (frames[i-1].Frames+1)%25 {
			t.Errorf("frame %d: expected frame %d, got %d", i, (frames[i-1].Frames+1)%25, f.Frames)
		}
	}

	if len(s.Clients()) != 1 {
		t.Errorf("expected 1 client, got %d", len(s.Clients()))
	}
	if latest, ok := s.Latest(); !ok || latest.Hours != 10 {
		t.Errorf("expected latest frame at hour 10, got %+v", latest)
	}
}

func TestServerSignalState(t *testing.T) {
	s, err := NewServer(ServerConfig{
		Source:   newGenerator(t, ltc.Timecode{Hours: 1}),
		Realtime: true,
	})
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	addr := startTestServer(t, s)

	c := protocol.NewClient(protocol.Config{ServerAddr: addr, ClientID: "monitor-2", Name: "Monitor"})
	if err := c.Connect(); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer c.Close()

	timeout := time.After(3 * time.Second)
	for {
		select {
		case st := <-c.Signal:
			if st.Locked {
				if st.Speed < 0.95 || st.Speed > 1.05 {
					t.Errorf("expected nominal speed, got %.3f", st.Speed)
				}
				return
			}
		case <-c.Frames:
		case <-timeout:
			t.Fatal("never received a locked signal state")
		}
	}
}

func TestServerRejectsBadHello(t *testing.T) {
	tests := []struct {
		name  string
		hello interface{}
	}{
		{"wrong type", protocol.Message{Type: protocol.TypeClientGoodbye, Payload: protocol.ClientGoodbye{Reason: "user_request"}}},
		{"missing id", protocol.Message{Type: protocol.TypeClientHello, Payload: protocol.ClientHello{Name: "Monitor"}}},
		{"not json", "hello"},
	}

	s, err := NewServer(ServerConfig{Source: newGenerator(t, ltc.Timecode{}), Realtime: true})
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	addr := startTestServer(t, s)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, _, err := websocket.DefaultDialer.Dial("ws://"+addr+protocol.DefaultPath, nil)
			if err != nil {
				t.Fatalf("Dial() error = %v", err)
			}
			defer conn.Close()

			if str, ok := tt.hello.(string); ok {
				conn.WriteMessage(websocket.TextMessage, []byte(str))
			} else {
				conn.WriteJSON(tt.hello)
			}

			conn.SetReadDeadline(time.Now().Add(2 * time.Second))
			if _, _, err := conn.ReadMessage(); err == nil {
				t.Error("expected connection to be closed")
			}
		})
	}
}

func TestServerRejectsDuplicateClient(t *testing.T) {
	s, err := NewServer(ServerConfig{Source: newGenerator(t, ltc.Timecode{}), Realtime: true})
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	addr := startTestServer(t, s)

	first := protocol.NewClient(protocol.Config{ServerAddr: addr, ClientID: "dup", Name: "First"})
	if err := first.Connect(); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer first.Close()

	second := protocol.NewClient(protocol.Config{ServerAddr: addr, ClientID: "dup", Name: "Second"})
	if err := second.Connect(); err == nil {
		second.Close()
		t.Error("expected duplicate client to be rejected")
	}
}

func TestRegisterClientAfterShutdown(t *testing.T) {
	s, err := NewServer(ServerConfig{Source: newGenerator(t, ltc.Timecode{})})
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}

	done := make(chan struct{})
	go func() {
		s.shutdown()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown did not return")
	}

	late := &client{ID: "late", Name: "Late", sendChan: make(chan interface{}, 1)}
	if err := s.registerClient(late); !errors.Is(err, errShuttingDown) {
		t.Fatalf("expected errShuttingDown, got %v", err)
	}
	if n := len(s.Clients()); n != 0 {
		t.Errorf("expected no clients after shutdown, got %d", n)
	}

	// nothing was reserved in the wait group
	waited := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-time.After(time.Second):
		t.Fatal("wait group still held after rejected registration")
	}
}

func TestRegisterClientDuplicate(t *testing.T) {
	s, err := NewServer(ServerConfig{Source: newGenerator(t, ltc.Timecode{})})
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}

	first := &client{ID: "dup", Name: "First", sendChan: make(chan interface{}, 1)}
	if err := s.registerClient(first); err != nil {
		t.Fatalf("registerClient() error = %v", err)
	}
	second := &client{ID: "dup", Name: "Second", sendChan: make(chan interface{}, 1)}
	if err := s.registerClient(second); !errors.Is(err, errDuplicateClient) {
		t.Errorf("expected errDuplicateClient, got %v", err)
	}

	s.removeClient(first)
	s.wg.Done()
	s.wg.Wait()
}

func TestServerGoodbye(t *testing.T) {
	s, err := NewServer(ServerConfig{Source: newGenerator(t, ltc.Timecode{}), Realtime: true})
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	addr := startTestServer(t, s)

	c := protocol.NewClient(protocol.Config{ServerAddr: addr, ClientID: "leaving", Name: "Monitor"})
	if err := c.Connect(); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if err := c.SendGoodbye("user_request"); err != nil {
		t.Fatalf("SendGoodbye() error = %v", err)
	}

	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("server did not close the connection after goodbye")
	}

	deadline := time.Now().Add(time.Second)
	for len(s.Clients()) != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if len(s.Clients()) != 0 {
		t.Errorf("expected no clients, got %d", len(s.Clients()))
	}
}

func TestServerSourceEnd(t *testing.T) {
	var seen []protocol.TimecodeFrame
	src := &limitedSource{Source: newGenerator(t, ltc.Timecode{Minutes: 5}), remaining: 50 * 1920}

	s, err := NewServer(ServerConfig{
		Source:  src,
		OnFrame: func(f protocol.TimecodeFrame) { seen = append(seen, f) },
	})
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}

	// without realtime pacing the loop runs to the end of the source
	s.decodeLoop()

	if len(seen) < 45 {
		t.Fatalf("expected at least 45 frames, got %d", len(seen))
	}
	state := s.Signal()
	if state.Locked {
		t.Error("expected signal to be unlocked after the source ended")
	}
	if state.Frames != uint64(len(seen)) {
		t.Errorf("expected %d frames in signal state, got %d", len(seen), state.Frames)
	}

	data, err := json.Marshal(seen[0])
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if !strings.Contains(string(data), `"timecode":"00:05:00:`) {
		t.Errorf("unexpected first frame: %s", data)
	}
}

func TestServerSelectsChannel(t *testing.T) {
	// LTC on the right channel of a stereo source, silence on the left
	gen := newGenerator(t, ltc.Timecode{Hours: 3})
	stereo := &stereoSource{Source: gen}
	src := &limitedSource{Source: stereo, remaining: 2 * 30 * 1920}

	count := 0
	s, err := NewServer(ServerConfig{Source: src, Channel: 1, OnFrame: func(protocol.TimecodeFrame) { count++ }})
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	s.decodeLoop()

	if count < 25 {
		t.Errorf("expected at least 25 frames from the right channel, got %d", count)
	}
}

// stereoSource puts a mono source on the right channel
type stereoSource struct {
	Source
	mono []int32
}

func (s *stereoSource) Channels() int { return 2 }

func (s *stereoSource) Read(samples []int32) (int, error) {
	frames := len(samples) / 2
	if cap(s.mono) < frames {
		s.mono = make([]int32, frames)
	}
	n, err := s.Source.Read(s.mono[:frames])
	for i := 0; i < n; i++ {
		samples[2*i] = 0
		samples[2*i+1] = s.mono[i]
	}
	return 2 * n, err
}
