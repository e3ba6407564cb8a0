package notify

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/dmitrijs2005/snapkeeper/internal/logging"
)

// BridgeHandler accepts websocket connections from other processes and
// republishes their sync messages on bus. Other channels are ignored.
func BridgeHandler(bus *Bus, log logging.Logger) http.Handler {
	log = log.With("component", "bridge")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			log.Warn(r.Context(), "websocket upgrade failed", "err", err)
			return
		}
		defer conn.CloseNow()

		ctx := r.Context()
		for {
			var msg Message
			if err := wsjson.Read(ctx, conn, &msg); err != nil {
				if websocket.CloseStatus(err) != websocket.StatusNormalClosure && !errors.Is(err, context.Canceled) {
					log.Debug(ctx, "bridge connection closed", "err", err)
				}
				return
			}
			if msg.Channel != ChannelSync {
				log.Warn(ctx, "dropping bridged message", "channel", msg.Channel)
				continue
			}
			bus.Publish(ctx, msg)
		}
	})
}

// BridgeClient forwards messages to a BridgeHandler. It dials lazily and
// drops messages while the other side is unreachable: delivery is best
// effort, the record store stays the source of truth.
type BridgeClient struct {
	url string
	log logging.Logger

	mu   sync.Mutex
	conn *websocket.Conn
}

func NewBridgeClient(url string, log logging.Logger) *BridgeClient {
	return &BridgeClient{url: url, log: log.With("component", "bridge")}
}

func (c *BridgeClient) Publish(ctx context.Context, msg Message) {
	if err := c.Send(ctx, msg); err != nil {
		c.log.Debug(ctx, "bridge send dropped", "err", err, "type", msg.Type, "id", msg.ID)
	}
}

// Send writes one message, dialing first if needed. A failed write drops
// the connection so the next call redials.
func (c *BridgeClient) Send(ctx context.Context, msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		conn, _, err := websocket.Dial(ctx, c.url, nil)
		if err != nil {
			return err
		}
		c.conn = conn
	}

	if err := wsjson.Write(ctx, c.conn, msg); err != nil {
		c.conn.CloseNow()
		c.conn = nil
		return err
	}
	return nil
}

func (c *BridgeClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close(websocket.StatusNormalClosure, "")
	c.conn = nil
	return err
}
