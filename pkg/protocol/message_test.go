package protocol_test

import (
	"testing"

	"github.com/bz888/blab-feedback/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode_CanonicalShapes(t *testing.T) {
	fb, err := protocol.NewFeedback("What is 2+2?", "4", 5)
	require.NoError(t, err)

	tests := []struct {
		name string
		msg  protocol.Message
		want string
	}{
		{
			name: "query",
			msg:  protocol.NewQuery("What is 2+2?"),
			want: `{"type":"query","query":"What is 2+2?"}`,
		},
		{
			name: "empty query is still encoded",
			msg:  protocol.NewQuery(""),
			want: `{"type":"query","query":""}`,
		},
		{
			name: "feedback",
			msg:  fb,
			want: `{"type":"feedback","query":"What is 2+2?","response":"4","rating":5}`,
		},
		{
			name: "response",
			msg:  protocol.NewResponse("4"),
			want: `{"type":"response","response":"4"}`,
		},
		{
			name: "type field is forced from the go type",
			msg:  protocol.Query{Type: "bogus", Query: "hi"},
			want: `{"type":"query","query":"hi"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := protocol.Encode(tt.msg)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(data))
		})
	}
}

func TestEncode_Nil(t *testing.T) {
	_, err := protocol.Encode(nil)
	assert.Error(t, err)
}

func TestNewFeedback_RatingRange(t *testing.T) {
	for rating := protocol.MinRating; rating <= protocol.MaxRating; rating++ {
		fb, err := protocol.NewFeedback("q", "r", rating)
		require.NoError(t, err)
		assert.Equal(t, rating, fb.Rating)
		assert.Equal(t, protocol.TypeFeedback, fb.Type)
	}

	for _, rating := range []int{-1, 0, 6, 100} {
		_, err := protocol.NewFeedback("q", "r", rating)
		assert.ErrorIs(t, err, protocol.ErrRatingOutOfRange, "rating %d", rating)
	}
}

func TestDecode_Response(t *testing.T) {
	msg, err := protocol.Decode([]byte(`{"type":"response","response":"4"}`))
	require.NoError(t, err)

	resp, ok := msg.(protocol.Response)
	require.True(t, ok, "expected protocol.Response, got %T", msg)
	assert.Equal(t, "4", resp.Response)
	assert.Equal(t, protocol.TypeResponse, resp.MessageType())
}

func TestDecode_ResponseKeepsMarkup(t *testing.T) {
	msg, err := protocol.Decode([]byte(`{"type":"response","response":"<b>bold</b> [red]x[-]"}`))
	require.NoError(t, err)
	assert.Equal(t, "<b>bold</b> [red]x[-]", msg.(protocol.Response).Response)
}

func TestDecode_ClientFrames(t *testing.T) {
	msg, err := protocol.Decode([]byte(`{"type":"query","query":"hello"}`))
	require.NoError(t, err)
	assert.Equal(t, protocol.NewQuery("hello"), msg)

	msg, err = protocol.Decode([]byte(`{"type":"feedback","query":"q","response":"r","rating":3}`))
	require.NoError(t, err)
	assert.Equal(t, protocol.Feedback{Type: protocol.TypeFeedback, Query: "q", Response: "r", Rating: 3}, msg)
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr error
	}{
		{"not json", `hello`, protocol.ErrMalformedMessage},
		{"truncated json", `{"type":"response"`, protocol.ErrMalformedMessage},
		{"array", `[1,2,3]`, protocol.ErrMalformedMessage},
		{"string", `"response"`, protocol.ErrMalformedMessage},
		{"response not a string", `{"type":"response","response":42}`, protocol.ErrMalformedMessage},
		{"response missing", `{"type":"response"}`, protocol.ErrMalformedMessage},
		{"rating not a number", `{"type":"feedback","query":"q","response":"r","rating":"5"}`, protocol.ErrMalformedMessage},
		{"fractional rating", `{"type":"feedback","query":"q","response":"r","rating":2.5}`, protocol.ErrMalformedMessage},
		{"missing type", `{"response":"4"}`, protocol.ErrUnknownType},
		{"numeric type", `{"type":1,"response":"4"}`, protocol.ErrUnknownType},
		{"unknown type", `{"type":"welcome"}`, protocol.ErrUnknownType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := protocol.Decode([]byte(tt.data))
			assert.Nil(t, msg)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
