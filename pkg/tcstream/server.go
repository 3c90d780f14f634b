// ABOUTME: Timecode broadcast server
// ABOUTME: Decodes LTC from a sample source and pushes every frame to websocket clients
package tcstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/Sendspin/ltc-go/internal/chase"
	"github.com/Sendspin/ltc-go/internal/discovery"
	"github.com/Sendspin/ltc-go/internal/source"
	"github.com/Sendspin/ltc-go/pkg/ltc"
	"github.com/Sendspin/ltc-go/pkg/protocol"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// DefaultPort is the listening port when none is configured
	DefaultPort = 8928

	// ChunkDurationMs is the amount of audio handed to the decoder per read
	ChunkDurationMs = 20
)

var (
	errShuttingDown    = errors.New("server shutting down")
	errDuplicateClient = errors.New("client ID already connected")
)

// ServerConfig configures a timecode server
type ServerConfig struct {
	// Port to listen on (default: 8928)
	Port int

	// Name of the server for identification
	Name string

	// Source supplies the LTC audio (required)
	Source Source

	// Channel selects the LTC track of a multichannel source
	Channel int

	// FPS is the expected frame rate (default: 25)
	FPS float64

	// Flags tell how to interpret the user bits, e.g. ltc.UseDate
	Flags ltc.BGFlags

	// QueueSize and Tolerance are passed to the decoder
	QueueSize int
	Tolerance float64

	// Realtime paces reads to the wall clock. Use it for files and
	// generators, not for live capture.
	Realtime bool

	// OnFrame is called from the decode loop for every decoded frame
	OnFrame func(protocol.TimecodeFrame)

	// EnableMDNS enables mDNS service advertisement
	EnableMDNS bool

	// Debug enables debug logging
	Debug bool
}

// Server decodes LTC and serves it to websocket clients
type Server struct {
	config   ServerConfig
	serverID string

	upgrader   websocket.Upgrader
	httpServer *http.Server
	mux        *http.ServeMux

	clients   map[string]*client
	clientsMu sync.RWMutex

	decoder  *ltc.Decoder
	tracker  *chase.Tracker
	position int64

	// last decoded frame and signal state, guarded by stateMu
	stateMu   sync.RWMutex
	latest    protocol.TimecodeFrame
	hasLatest bool
	state     protocol.SignalState
	quality   chase.Quality

	mdnsManager *discovery.Manager

	stopChan   chan struct{}
	stopOnce   sync.Once
	shutdownMu sync.RWMutex
	isShutdown bool
	wg         sync.WaitGroup
}

type client struct {
	ID        string
	Name      string
	Conn      *websocket.Conn
	Connected time.Time

	sendChan chan interface{}

	mu   sync.Mutex
	sent uint64
}

// ClientInfo represents information about a connected client
type ClientInfo struct {
	ID        string
	Name      string
	Connected time.Time
	Sent      uint64
}

// NewServer creates a new timecode server
func NewServer(config ServerConfig) (*Server, error) {
	if config.Port == 0 {
		config.Port = DefaultPort
	}
	if config.Name == "" {
		config.Name = "LTC Server"
	}
	if config.FPS == 0 {
		config.FPS = 25
	}
	if config.Source == nil {
		return nil, fmt.Errorf("audio source is required")
	}
	if config.Source.SampleRate() <= 0 {
		return nil, fmt.Errorf("invalid source sample rate: %d", config.Source.SampleRate())
	}

	sampleRate := float64(config.Source.SampleRate())
	decoder, err := ltc.NewDecoder(ltc.DecoderConfig{
		SamplesPerFrame: int(sampleRate / config.FPS),
		QueueSize:       config.QueueSize,
		Tolerance:       config.Tolerance,
		Debug:           config.Debug,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	tracker := chase.NewTracker(sampleRate, config.FPS)
	tracker.Debug = config.Debug

	s := &Server{
		config:   config,
		serverID: uuid.New().String(),
		mux:      http.NewServeMux(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// For local network deployments, accept all origins
				return true
			},
		},
		clients:  make(map[string]*client),
		decoder:  decoder,
		tracker:  tracker,
		quality:  chase.QualityLost,
		stopChan: make(chan struct{}),
	}
	s.mux.HandleFunc(protocol.DefaultPath, s.handleWebSocket)

	return s, nil
}

// Handler returns the HTTP handler serving the websocket endpoint
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ServerID returns the identifier sent in server/hello
func (s *Server) ServerID() string {
	return s.serverID
}

// Start starts decoding and serving. It blocks until Stop is called.
func (s *Server) Start() error {
	log.Printf("Server starting: %s (ID: %s)", s.config.Name, s.serverID)
	log.Printf("LTC source: %s, %dHz/%dch, channel %d, %.2f fps",
		s.config.Source.Name(),
		s.config.Source.SampleRate(),
		s.config.Source.Channels(),
		s.config.Channel,
		s.config.FPS)

	if s.config.EnableMDNS {
		s.mdnsManager = discovery.NewManager(discovery.Config{
			ServiceName: s.config.Name,
			Port:        s.config.Port,
			Path:        protocol.DefaultPath,
		})

		if err := s.mdnsManager.Advertise(); err != nil {
			log.Printf("Failed to start mDNS advertisement: %v", err)
		} else {
			log.Printf("mDNS advertisement started")
		}
	}

	s.startDecoding()

	addr := fmt.Sprintf(":%d", s.config.Port)
	log.Printf("WebSocket server listening on %s%s", addr, protocol.DefaultPath)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.mux,
	}

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-s.stopChan:
		log.Printf("Server shutting down...")
	case err := <-errChan:
		log.Printf("HTTP server error: %v", err)
		s.Stop()
		s.shutdown()
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	s.shutdown()
	log.Printf("Server stopped cleanly")

	return nil
}

// shutdown rejects new clients, releases the source and waits for the
// decode loop and client writers
func (s *Server) shutdown() {
	s.shutdownMu.Lock()
	s.isShutdown = true
	s.shutdownMu.Unlock()

	if s.mdnsManager != nil {
		s.mdnsManager.Stop()
	}

	if err := s.config.Source.Close(); err != nil {
		log.Printf("Error closing audio source: %v", err)
	}

	// hijacked connections outlive the HTTP server
	s.clientsMu.RLock()
	for _, c := range s.clients {
		c.Conn.Close()
	}
	s.clientsMu.RUnlock()

	s.wg.Wait()
}

// Stop stops the server
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
}

// Clients returns information about all connected clients
func (s *Server) Clients() []ClientInfo {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	clients := make([]ClientInfo, 0, len(s.clients))
	for _, c := range s.clients {
		c.mu.Lock()
		clients = append(clients, ClientInfo{
			ID:        c.ID,
			Name:      c.Name,
			Connected: c.Connected,
			Sent:      c.sent,
		})
		c.mu.Unlock()
	}

	return clients
}

// Latest returns the most recently decoded frame
func (s *Server) Latest() (protocol.TimecodeFrame, bool) {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.latest, s.hasLatest
}

// Signal returns the current signal state
func (s *Server) Signal() protocol.SignalState {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

func (s *Server) startDecoding() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.decodeLoop()
	}()
}

// decodeLoop reads the source until it ends or the server stops
func (s *Server) decodeLoop() {
	log.Printf("Decoding started")

	channels := s.config.Source.Channels()
	if channels < 1 {
		channels = 1
	}
	chunkFrames := (s.config.Source.SampleRate() * ChunkDurationMs) / 1000
	buf := make([]int32, chunkFrames*channels)
	mono := make([]int32, chunkFrames)

	var ticks <-chan time.Time
	if s.config.Realtime {
		ticker := time.NewTicker(time.Duration(ChunkDurationMs) * time.Millisecond)
		defer ticker.Stop()
		ticks = ticker.C
	}

	for {
		if ticks != nil {
			select {
			case <-ticks:
			case <-s.stopChan:
				log.Printf("Decoding stopping")
				return
			}
		} else {
			select {
			case <-s.stopChan:
				log.Printf("Decoding stopping")
				return
			default:
			}
		}

		n, err := s.config.Source.Read(buf)
		if n > 0 {
			m := source.SelectChannel(mono, buf[:n], channels, s.config.Channel)
			s.process(mono[:m])
		}

		if err == io.EOF {
			log.Printf("LTC source ended")
			s.setQuality(chase.QualityLost)
			return
		}
		if err != nil {
			log.Printf("Error reading LTC source: %v", err)
			s.setQuality(chase.QualityLost)
			return
		}
	}
}

// process decodes one block of mono samples and broadcasts the frames found
func (s *Server) process(samples []int32) {
	s.decoder.WriteInt32(samples, s.position)
	s.position += int64(len(samples))

	for {
		fe, ok := s.decoder.Read()
		if !ok {
			break
		}

		s.tracker.Observe(fe)
		msg := protocol.NewTimecodeFrame(fe, s.config.Flags, s.tracker.Speed())

		s.stateMu.Lock()
		s.latest = msg
		s.hasLatest = true
		s.stateMu.Unlock()

		if s.config.Debug {
			log.Printf("Frame %s at %d (speed %.3f)", msg.Timecode, msg.OffStart, msg.Speed)
		}

		s.broadcast(protocol.TypeTimecodeFrame, msg)
		if s.config.OnFrame != nil {
			s.config.OnFrame(msg)
		}
	}

	s.setQuality(s.tracker.CheckQuality(s.position))
}

// setQuality refreshes the signal state and announces lock changes
func (s *Server) setQuality(q chase.Quality) {
	stats := s.decoder.Stats()

	s.stateMu.Lock()
	changed := q != s.quality
	s.quality = q
	s.state = protocol.SignalState{
		Locked:    q == chase.QualityGood,
		Speed:     s.tracker.Speed(),
		Frames:    stats.Frames,
		Discarded: stats.Discarded,
	}
	state := s.state
	s.stateMu.Unlock()

	if changed {
		log.Printf("Signal %s", q)
		s.broadcast(protocol.TypeSignalState, state)
	}
}

// broadcast queues a message for every client
func (s *Server) broadcast(msgType string, payload interface{}) {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	for _, c := range s.clients {
		if err := s.sendMessage(c, msgType, payload); err != nil && s.config.Debug {
			log.Printf("Error sending %s to %s: %v", msgType, c.Name, err)
		}
	}
}

// handleWebSocket handles WebSocket connections
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	log.Printf("New WebSocket connection from %s", r.RemoteAddr)
	s.handleConnection(conn)
}

// handleConnection manages a client connection
func (s *Server) handleConnection(conn *websocket.Conn) {
	defer conn.Close()

	s.shutdownMu.RLock()
	if s.isShutdown {
		s.shutdownMu.RUnlock()
		log.Printf("Rejecting connection during shutdown")
		return
	}
	s.shutdownMu.RUnlock()

	conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		log.Printf("Error reading hello: %v", err)
		return
	}
	conn.SetReadDeadline(time.Time{})

	var msg struct {
		Type    string                `json:"type"`
		Payload *protocol.ClientHello `json:"payload"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Printf("Error unmarshaling message: %v", err)
		return
	}

	if msg.Type != protocol.TypeClientHello || msg.Payload == nil {
		log.Printf("Expected %s, got %s", protocol.TypeClientHello, msg.Type)
		return
	}

	hello := msg.Payload
	if hello.ClientID == "" || hello.Name == "" {
		log.Printf("Client hello missing required fields")
		return
	}

	log.Printf("Client hello: %s (ID: %s, version %d)", hello.Name, hello.ClientID, hello.Version)

	c := &client{
		ID:        hello.ClientID,
		Name:      hello.Name,
		Conn:      conn,
		Connected: time.Now(),
		sendChan:  make(chan interface{}, 100),
	}

	if err := s.registerClient(c); err != nil {
		log.Printf("Rejecting client %s: %v", hello.ClientID, err)
		return
	}

	defer func() {
		s.removeClient(c)
		log.Printf("Client disconnected: %s", c.Name)
	}()

	go func() {
		defer s.wg.Done()
		s.clientWriter(c)
	}()

	serverHello := protocol.ServerHello{
		ServerID:   s.serverID,
		Name:       s.config.Name,
		Version:    protocol.ProtocolVersion,
		SampleRate: s.config.Source.SampleRate(),
		FPS:        s.config.FPS,
		Standard:   ltc.StandardForFPS(s.config.FPS).String(),
	}

	if err := s.sendMessage(c, protocol.TypeServerHello, serverHello); err != nil {
		log.Printf("Error sending server hello: %v", err)
		return
	}
	s.sendMessage(c, protocol.TypeSignalState, s.Signal())

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		if done := s.handleClientMessage(c, data); done {
			break
		}
	}
}

// clientWriter sends messages to the client
func (s *Server) clientWriter(c *client) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	const writeDeadline = 10 * time.Second

	for {
		select {
		case msg, ok := <-c.sendChan:
			if !ok {
				return
			}

			data, err := json.Marshal(msg)
			if err != nil {
				continue
			}
			c.Conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
			c.mu.Lock()
			c.sent++
			c.mu.Unlock()

		case <-ticker.C:
			if err := c.Conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeDeadline)); err != nil {
				return
			}
		}
	}
}

// handleClientMessage processes messages from clients. It reports true
// when the client said goodbye.
func (s *Server) handleClientMessage(c *client, data []byte) bool {
	var msg struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Printf("Error unmarshaling message: %v", err)
		return false
	}

	switch msg.Type {
	case protocol.TypeClientGoodbye:
		var goodbye protocol.ClientGoodbye
		if err := json.Unmarshal(msg.Payload, &goodbye); err != nil {
			return true
		}
		log.Printf("Client %s goodbye: %s", c.Name, goodbye.Reason)
		return true
	default:
		if s.config.Debug {
			log.Printf("Unknown message type: %s", msg.Type)
		}
	}
	return false
}

// registerClient adds c to the client set and reserves its writer in the
// wait group. shutdown marks isShutdown before taking clientsMu, so every
// client inserted here is closed by it.
func (s *Server) registerClient(c *client) error {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()

	s.shutdownMu.RLock()
	down := s.isShutdown
	s.shutdownMu.RUnlock()
	if down {
		return errShuttingDown
	}
	if _, exists := s.clients[c.ID]; exists {
		return errDuplicateClient
	}

	s.clients[c.ID] = c
	s.wg.Add(1)
	return nil
}

// removeClient removes a client
func (s *Server) removeClient(c *client) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()

	delete(s.clients, c.ID)
	close(c.sendChan)
}

// sendMessage queues a JSON message for a client
func (s *Server) sendMessage(c *client, msgType string, payload interface{}) error {
	msg := protocol.Message{
		Type:    msgType,
		Payload: payload,
	}

	select {
	case c.sendChan <- msg:
		return nil
	default:
		return fmt.Errorf("client send buffer full")
	}
}
