package push

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(slog.New(slog.NewTextHandler(io.Discard, nil)))
	c.url = srv.URL
	return c
}

func TestClient_Send(t *testing.T) {
	t.Run("delivers the message and returns the ticket", func(t *testing.T) {
		var received []Message
		c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
			_ = json.NewEncoder(w).Encode(Response{Data: []TicketResponse{{Status: "ok", ID: "t1"}}})
		})

		ticket, err := c.Send(context.Background(), Message{To: "ExponentPushToken[abc]", Body: "hola"})
		require.NoError(t, err)
		assert.Equal(t, "t1", ticket.ID)
		require.Len(t, received, 1)
		assert.Equal(t, "hola", received[0].Body)
	})

	t.Run("rejected ticket is an error", func(t *testing.T) {
		c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(Response{Data: []TicketResponse{{Status: "error", Message: "DeviceNotRegistered"}}})
		})

		_, err := c.Send(context.Background(), Message{To: "x", Body: "y"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "DeviceNotRegistered")
	})

	t.Run("non-200 response is an error", func(t *testing.T) {
		c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "upstream down", http.StatusBadGateway)
		})

		_, err := c.Send(context.Background(), Message{To: "x", Body: "y"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "502")
	})
}
