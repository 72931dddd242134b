// Package protocol defines the JSON messages exchanged with the chat server.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

// MessageType is the value of the "type" field carried by every frame.
type MessageType string

const (
	TypeQuery    MessageType = "query"
	TypeFeedback MessageType = "feedback"
	TypeResponse MessageType = "response"
)

// Star rating bounds accepted for feedback.
const (
	MinRating = 1
	MaxRating = 5
)

var (
	ErrMalformedMessage = errors.New("malformed message")
	ErrUnknownType      = errors.New("unknown message type")
	ErrRatingOutOfRange = fmt.Errorf("rating must be between %d and %d", MinRating, MaxRating)
)

// Message is implemented by every frame type.
type Message interface {
	MessageType() MessageType
}

// Query asks the server a question.
type Query struct {
	Type  MessageType `json:"type"`
	Query string      `json:"query"`
}

// Feedback rates a previous query/response exchange.
type Feedback struct {
	Type     MessageType `json:"type"`
	Query    string      `json:"query"`
	Response string      `json:"response"`
	Rating   int         `json:"rating"`
}

// Response carries the server's answer to a query.
type Response struct {
	Type     MessageType `json:"type"`
	Response string      `json:"response"`
}

func (Query) MessageType() MessageType    { return TypeQuery }
func (Feedback) MessageType() MessageType { return TypeFeedback }
func (Response) MessageType() MessageType { return TypeResponse }

// NewQuery builds a query frame for text.
func NewQuery(text string) Query {
	return Query{Type: TypeQuery, Query: text}
}

// NewFeedback builds a feedback frame, rejecting ratings outside
// MinRating..MaxRating.
func NewFeedback(query, response string, rating int) (Feedback, error) {
	if rating < MinRating || rating > MaxRating {
		return Feedback{}, fmt.Errorf("%w: got %d", ErrRatingOutOfRange, rating)
	}
	return Feedback{
		Type:     TypeFeedback,
		Query:    query,
		Response: response,
		Rating:   rating,
	}, nil
}

// NewResponse builds a response frame.
func NewResponse(text string) Response {
	return Response{Type: TypeResponse, Response: text}
}

// Encode serializes msg as a JSON frame. The type field always matches the
// concrete Go type, whatever the caller left in it.
func Encode(msg Message) ([]byte, error) {
	switch m := msg.(type) {
	case Query:
		m.Type = TypeQuery
		msg = m
	case Feedback:
		m.Type = TypeFeedback
		msg = m
	case Response:
		m.Type = TypeResponse
		msg = m
	case nil:
		return nil, fmt.Errorf("failed to encode message: nil message")
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode message: %w", err)
	}
	return data, nil
}

// Decode parses a JSON frame into its concrete message type.
//
// Frames that are not a JSON object, or whose payload fields have the wrong
// JSON type, fail with ErrMalformedMessage. Objects with a missing or
// unrecognised type fail with ErrUnknownType.
func Decode(data []byte) (Message, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrMalformedMessage)
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, fmt.Errorf("%w: not an object", ErrMalformedMessage)
	}

	typ := root.Get("type")
	if typ.Type != gjson.String {
		return nil, fmt.Errorf("%w: missing type", ErrUnknownType)
	}

	switch MessageType(typ.Str) {
	case TypeResponse:
		if err := requireString(root, "response"); err != nil {
			return nil, err
		}
		var m Response
		return decodeInto(data, &m)
	case TypeQuery:
		if err := requireString(root, "query"); err != nil {
			return nil, err
		}
		var m Query
		return decodeInto(data, &m)
	case TypeFeedback:
		for _, field := range []string{"query", "response"} {
			if err := requireString(root, field); err != nil {
				return nil, err
			}
		}
		if root.Get("rating").Type != gjson.Number {
			return nil, fmt.Errorf("%w: rating is not a number", ErrMalformedMessage)
		}
		var m Feedback
		return decodeInto(data, &m)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, typ.Str)
	}
}

func requireString(root gjson.Result, field string) error {
	if root.Get(field).Type != gjson.String {
		return fmt.Errorf("%w: %s is not a string", ErrMalformedMessage, field)
	}
	return nil
}

func decodeInto[T Message](data []byte, m *T) (Message, error) {
	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	return *m, nil
}
