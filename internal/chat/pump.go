package chat

import (
	"context"
)

// Connection is the transport a session runs over.
type Connection interface {
	Sender
	Endpoint() string
	Connect(ctx context.Context) error
	Incoming() <-chan []byte
	Err() error
}

// Run dials conn and feeds the session until the connection ends or ctx is
// done. Every session call goes through dispatch, which must run the
// function on the UI event loop.
func Run(ctx context.Context, conn Connection, s *Session, dispatch func(func())) {
	if err := conn.Connect(ctx); err != nil {
		dispatch(func() { s.ConnectFailed(err) })
		return
	}
	dispatch(func() { s.Connected(conn.Endpoint()) })

	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-conn.Incoming():
			if !ok {
				err := conn.Err()
				dispatch(func() { s.Disconnected(err) })
				return
			}
			dispatch(func() { _ = s.HandleMessage(raw) })
		}
	}
}
