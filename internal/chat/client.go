package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/coder/websocket"
)

// Client wraps one websocket connection. Writes are serialized by a mutex
// since pushes can come from other users' goroutines concurrently with the
// owning connection's own acknowledgments.
type Client struct {
	UserID   string
	Username string

	writeMu sync.Mutex
	ws      *websocket.Conn
}

// NewClient wraps an accepted websocket connection for an authenticated user.
func NewClient(userID, username string, ws *websocket.Conn) *Client {
	return &Client{UserID: userID, Username: username, ws: ws}
}

// Push marshals an event and writes it as one text frame.
func (c *Client) Push(ctx context.Context, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.Write(ctx, websocket.MessageText, data)
}

// Close terminates the underlying connection with a reason.
func (c *Client) Close(reason string) {
	_ = c.ws.Close(websocket.StatusNormalClosure, reason)
}

// Read blocks for the next frame from the client.
func (c *Client) Read(ctx context.Context) ([]byte, error) {
	_, data, err := c.ws.Read(ctx)
	return data, err
}
