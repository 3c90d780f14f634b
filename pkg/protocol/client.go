// ABOUTME: WebSocket client for the timecode broadcast protocol
// ABOUTME: Handles connection, handshake, and routing of frames and signal state
package protocol

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Config holds client configuration
type Config struct {
	ServerAddr string
	Path       string // defaults to DefaultPath
	ClientID   string
	Name       string
	Version    int
	DeviceInfo DeviceInfo
}

// Client represents a WebSocket client
type Client struct {
	config Config
	conn   *websocket.Conn
	mu     sync.RWMutex
	hello  ServerHello

	// Message channels
	Frames chan TimecodeFrame
	Signal chan SignalState

	// State
	connected bool
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewClient creates a new WebSocket client
func NewClient(config Config) *Client {
	if config.Path == "" {
		config.Path = DefaultPath
	}
	if config.Version == 0 {
		config.Version = ProtocolVersion
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		config: config,
		Frames: make(chan TimecodeFrame, 100),
		Signal: make(chan SignalState, 10),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Connect establishes WebSocket connection and performs handshake
func (c *Client) Connect() error {
	u := url.URL{Scheme: "ws", Host: c.config.ServerAddr, Path: c.config.Path}
	log.Printf("Connecting to %s", u.String())

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	if err := c.handshake(); err != nil {
		c.Close()
		return fmt.Errorf("handshake failed: %w", err)
	}

	go c.readMessages()

	return nil
}

// handshake performs the protocol handshake
func (c *Client) handshake() error {
	hello := ClientHello{
		ClientID:   c.config.ClientID,
		Name:       c.config.Name,
		Version:    c.config.Version,
		DeviceInfo: &c.config.DeviceInfo,
	}

	if err := c.sendJSON(Message{Type: TypeClientHello, Payload: hello}); err != nil {
		return fmt.Errorf("failed to send client/hello: %w", err)
	}

	// Wait for server/hello (with timeout)
	c.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("failed to read server/hello: %w", err)
	}
	c.conn.SetReadDeadline(time.Time{})

	var serverMsg struct {
		Type    string      `json:"type"`
		Payload ServerHello `json:"payload"`
	}
	if err := json.Unmarshal(data, &serverMsg); err != nil {
		return fmt.Errorf("failed to parse server/hello: %w", err)
	}

	if serverMsg.Type != TypeServerHello {
		return fmt.Errorf("expected %s, got %s", TypeServerHello, serverMsg.Type)
	}

	c.mu.Lock()
	c.hello = serverMsg.Payload
	c.mu.Unlock()

	log.Printf("Handshake complete with %s (%s, %.2f fps)",
		serverMsg.Payload.Name, serverMsg.Payload.Standard, serverMsg.Payload.FPS)
	return nil
}

// ServerHello returns the server description received during the handshake
func (c *Client) ServerHello() ServerHello {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hello
}

// sendJSON sends a JSON message
func (c *Client) sendJSON(msg Message) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.connected {
		return fmt.Errorf("not connected")
	}

	return c.conn.WriteJSON(msg)
}

// readMessages reads and routes incoming messages
func (c *Client) readMessages() {
	defer c.Close()

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if c.IsConnected() {
				log.Printf("Read error: %v", err)
			}
			return
		}

		if messageType == websocket.TextMessage {
			c.handleJSONMessage(data)
		} else {
			log.Printf("Unexpected WebSocket message type: %d", messageType)
		}
	}
}

// handleJSONMessage routes JSON messages. A slow consumer loses frames
// rather than stalling the connection.
func (c *Client) handleJSONMessage(data []byte) {
	var msg struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Printf("Failed to parse JSON message: %v", err)
		return
	}

	switch msg.Type {
	case TypeTimecodeFrame:
		var frame TimecodeFrame
		if err := json.Unmarshal(msg.Payload, &frame); err != nil {
			log.Printf("Failed to parse timecode/frame: %v", err)
			return
		}
		select {
		case c.Frames <- frame:
		default:
		}

	case TypeSignalState:
		var state SignalState
		if err := json.Unmarshal(msg.Payload, &state); err != nil {
			log.Printf("Failed to parse signal/state: %v", err)
			return
		}
		select {
		case c.Signal <- state:
		case <-time.After(100 * time.Millisecond):
			log.Printf("Signal state channel full, dropping message")
		}

	default:
		log.Printf("Unknown message type: %s", msg.Type)
	}
}

// SendGoodbye sends a client/goodbye message before disconnecting
func (c *Client) SendGoodbye(reason string) error {
	msg := Message{
		Type: TypeClientGoodbye,
		Payload: ClientGoodbye{
			Reason: reason,
		},
	}
	return c.sendJSON(msg)
}

// Done is closed when the connection ends
func (c *Client) Done() <-chan struct{} {
	return c.ctx.Done()
}

// Close closes the connection
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		c.connected = false
		c.cancel()
		c.conn.Close()
		log.Printf("Connection closed")
	}
}

// IsConnected returns connection status
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}
