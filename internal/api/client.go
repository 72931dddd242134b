// Package api holds the client side of the chat server connection.
package api

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bz888/blab-feedback/internal/logger"
	"github.com/bz888/blab-feedback/pkg/protocol"
	"github.com/gorilla/websocket"
)

const (
	writeWait       = 2 * time.Second
	incomingBacklog = 16
)

var (
	ErrNotConnected  = errors.New("not connected to server")
	ErrAlreadyDialed = errors.New("connection already dialled")
)

// Conn is the single WebSocket connection to the chat server. It is dialled
// once and never reconnects.
type Conn struct {
	endpoint string
	dialer   *websocket.Dialer

	mu        sync.RWMutex
	conn      *websocket.Conn
	err       error
	dialed    bool
	writeWait time.Duration

	writeMu  sync.Mutex
	incoming chan []byte
	done     chan struct{}
	doneOnce sync.Once
	wg       sync.WaitGroup

	log *logger.Logger
}

func New(endpoint string) *Conn {
	return &Conn{
		endpoint:  endpoint,
		dialer:    websocket.DefaultDialer,
		writeWait: writeWait,
		incoming:  make(chan []byte, incomingBacklog),
		done:      make(chan struct{}),
		log:       logger.NewLogger("api client"),
	}
}

func (c *Conn) Endpoint() string {
	return c.endpoint
}

// Connect dials the endpoint and starts the read loop. It may only succeed
// once per Conn.
func (c *Conn) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.dialed {
		c.mu.Unlock()
		return ErrAlreadyDialed
	}
	c.dialed = true
	c.mu.Unlock()

	ws, _, err := c.dialer.DialContext(ctx, c.endpoint, nil)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err == nil {
		select {
		case <-c.done:
			ws.Close()
			err = ErrNotConnected
		default:
		}
	}
	if err != nil {
		c.err = err
		close(c.incoming)
		return fmt.Errorf("failed to connect to server: %w", err)
	}

	c.conn = ws
	c.log.Info("WebSocket connected to ", c.endpoint)

	c.wg.Add(1)
	go c.readLoop(ws)
	return nil
}

func (c *Conn) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil
}

// Send encodes msg and writes it as one text frame.
func (c *Conn) Send(msg protocol.Message) error {
	c.mu.RLock()
	ws := c.conn
	c.mu.RUnlock()

	if ws == nil {
		return ErrNotConnected
	}

	data, err := protocol.Encode(msg)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := ws.SetWriteDeadline(time.Now().Add(c.writeWait)); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	c.log.Debug("sent ", msg.MessageType(), " frame")
	return nil
}

// Incoming delivers every inbound frame. It is closed once the connection
// is gone; Err then reports why.
func (c *Conn) Incoming() <-chan []byte {
	return c.incoming
}

// Err returns the reason the connection ended. It is nil while the
// connection is open, after a local Close, and after the server closed it
// normally (1000 or 1001).
func (c *Conn) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}

// Close sends a close frame, tears down the socket and waits for the read
// loop to finish. It is safe to call more than once.
func (c *Conn) Close() {
	c.doneOnce.Do(func() {
		close(c.done)
	})

	c.mu.Lock()
	ws := c.conn
	c.conn = nil
	c.mu.Unlock()

	if ws != nil {
		c.writeMu.Lock()
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
		ws.Close()
	}
	c.wg.Wait()
}

func (c *Conn) readLoop(ws *websocket.Conn) {
	defer c.wg.Done()
	defer close(c.incoming)

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			c.finish(ws, err)
			return
		}

		select {
		case c.incoming <- data:
		case <-c.done:
			return
		}
	}
}

func (c *Conn) finish(ws *websocket.Conn, err error) {
	select {
	case <-c.done:
		return
	default:
	}

	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		c.log.Info("WebSocket closed: ", err)
		err = nil
	} else {
		c.log.Error("WebSocket error: ", err)
	}

	c.mu.Lock()
	if c.conn == ws {
		c.conn = nil
	}
	c.err = err
	c.mu.Unlock()
	ws.Close()
}
