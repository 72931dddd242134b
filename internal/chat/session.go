// Package chat holds the client session: what is sent when the user asks or
// rates, and how inbound frames change what is shown.
package chat

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bz888/blab-feedback/internal/logger"
	"github.com/bz888/blab-feedback/pkg/protocol"
	"github.com/google/uuid"
)

var (
	ErrEmptyQuery        = errors.New("query is empty")
	ErrNoPendingFeedback = errors.New("no response is awaiting feedback")
)

// ConnectionError reports a failure of the underlying connection while
// performing Op. It ends the action, never the session.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection error during %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

type State int

const (
	Idle State = iota
	AwaitingFeedback
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingFeedback:
		return "awaiting feedback"
	default:
		return "unknown"
	}
}

// Pending is the exchange the next feedback will refer to.
type Pending struct {
	Query    string
	Response string
}

// Sender transmits one message to the server.
type Sender interface {
	Send(msg protocol.Message) error
}

// View is the surface the session drives. Calls always come from the UI
// event loop.
type View interface {
	ClearInput()
	AppendQuery(text string)
	// AppendResponse adds text as one new block. text is untrusted and must
	// be shown literally.
	AppendResponse(text string)
	ShowFeedback()
	HideFeedback()
	Notice(text string)
}

// Session is the state of one chat session. It is not safe for concurrent
// use; run every method on the UI event loop.
type Session struct {
	id    string
	conn  Sender
	view  View
	log   *logger.Logger
	state State

	// sent is the most recently transmitted query.
	sent    string
	pending Pending
}

func NewSession(conn Sender, view View) *Session {
	id := uuid.NewString()
	return &Session{
		id:   id,
		conn: conn,
		view: view,
		log:  logger.NewLogger("session " + id[:8]),
	}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) State() State {
	return s.state
}

// Pending returns the exchange awaiting feedback, if any.
func (s *Session) Pending() (Pending, bool) {
	return s.pending, s.state == AwaitingFeedback
}

// Connected records that the connection to endpoint is open.
func (s *Session) Connected(endpoint string) {
	s.log.Info("WebSocket connected")
	s.view.Notice("Connected to " + endpoint)
}

// ConnectFailed reports a connection that could not be opened.
func (s *Session) ConnectFailed(err error) {
	err = &ConnectionError{Op: "connect", Err: err}
	s.log.Error(err)
	s.view.Notice("Could not connect: " + err.Error())
}

// Disconnected reports that the connection has gone away. Later sends will
// fail with a ConnectionError.
func (s *Session) Disconnected(err error) {
	if err == nil {
		s.log.Info("connection closed")
		s.view.Notice("Connection closed")
		return
	}
	s.log.Warn("connection lost: ", err)
	s.view.Notice("Connection lost: " + err.Error())
}

// SendQuery transmits text as one query frame and clears the input field.
func (s *Session) SendQuery(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyQuery
	}

	if err := s.conn.Send(protocol.NewQuery(text)); err != nil {
		return s.sendFailed("query", err)
	}

	s.sent = text
	s.log.Info("query sent: ", text)
	s.view.AppendQuery(text)
	s.view.ClearInput()
	return nil
}

// HandleMessage applies one inbound frame. Malformed or unrecognised frames
// are logged and returned as errors without touching the view.
func (s *Session) HandleMessage(raw []byte) error {
	msg, err := protocol.Decode(raw)
	if err != nil {
		s.log.Warn("ignoring inbound frame: ", err)
		return err
	}

	resp, ok := msg.(protocol.Response)
	if !ok {
		s.log.Warn("ignoring unexpected ", msg.MessageType(), " frame from server")
		return fmt.Errorf("%w: %s from server", protocol.ErrUnknownType, msg.MessageType())
	}

	if s.state == AwaitingFeedback {
		s.log.Debug("response replaces exchange awaiting feedback")
	}

	s.view.AppendResponse(resp.Response)
	s.pending = Pending{Query: s.sent, Response: resp.Response}
	s.state = AwaitingFeedback
	s.view.ShowFeedback()
	return nil
}

// SubmitFeedback rates the pending exchange. Outside AwaitingFeedback it
// sends nothing and returns ErrNoPendingFeedback.
func (s *Session) SubmitFeedback(rating int) error {
	if s.state != AwaitingFeedback {
		return ErrNoPendingFeedback
	}

	fb, err := protocol.NewFeedback(s.pending.Query, s.pending.Response, rating)
	if err != nil {
		return err
	}

	if err := s.conn.Send(fb); err != nil {
		return s.sendFailed("feedback", err)
	}

	s.log.Info("feedback sent: ", rating, " stars")
	s.pending = Pending{}
	s.state = Idle
	s.view.HideFeedback()
	s.view.ClearInput()
	return nil
}

func (s *Session) sendFailed(op string, err error) error {
	err = &ConnectionError{Op: op, Err: err}
	s.log.Error(err)
	s.view.Notice("Not sent: " + err.Error())
	return err
}
