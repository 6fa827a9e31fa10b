package realtime

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Whole-canvas snapshots ride the socket, so the limit is generous
	maxMessageSize = 1 << 20

	sendBufferSize = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client is one websocket participant attached to a canvas room.
// The out channel is owned by writePump and is never closed; teardown is
// signaled through done so concurrent senders holding a stale snapshot
// of the room cannot hit a closed channel.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	storyID  string
	canvasID string
	userID   string
	room     *room
	out      chan Envelope
	done     chan struct{}
	dropOne  sync.Once
	logger   *zap.Logger
}

// ServeWS upgrades an HTTP request to a websocket and attaches the
// client to its canvas room
func ServeWS(hub *Hub, w http.ResponseWriter, r *http.Request, storyID, canvasID, userID string, logger *zap.Logger) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Client{
		hub:      hub,
		conn:     conn,
		storyID:  storyID,
		canvasID: canvasID,
		userID:   userID,
		out:      make(chan Envelope, sendBufferSize),
		done:     make(chan struct{}),
		logger:   logger,
	}
	hub.register(c)

	go c.writePump()
	go c.readPump()
	return nil
}

// send queues a frame for delivery. A client whose buffer stays full is
// dropped rather than allowed to stall the room; frames to a dropped
// client are discarded.
func (c *Client) send(env Envelope) {
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.out <- env:
	case <-c.done:
	default:
		c.logger.Warn("dropping slow websocket client",
			zap.String("user_id", c.userID),
			zap.String("canvas_id", c.canvasID),
		)
		c.drop()
	}
}

func (c *Client) drop() {
	c.dropOne.Do(func() {
		c.hub.unregister(c)
		close(c.done)
	})
}

func (c *Client) readPump() {
	defer func() {
		c.drop()
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var env Envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("websocket read error",
					zap.String("user_id", c.userID),
					zap.Error(err),
				)
			}
			return
		}
		c.hub.dispatch(c.room, env, false)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case env := <-c.out:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(env); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
