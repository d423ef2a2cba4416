package plot

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/raykavin/chartdesk/pkg/chart"
	"github.com/raykavin/chartdesk/pkg/logger"
)

const (
	writeWait   = 10 * time.Second
	clientQueue = 32
)

// Message is the websocket envelope in both directions.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Inbound payloads.
type (
	toolMessage struct {
		Tool string `json:"tool"`
	}
	pointerMessage struct {
		Kind string  `json:"kind"`
		X    float64 `json:"x"`
		Y    float64 `json:"y"`
	}
	resizeMessage struct {
		Width  float64 `json:"width"`
		Height float64 `json:"height"`
	}
	flagMessage struct {
		Text   string `json:"text"`
		Cancel bool   `json:"cancel"`
	}
)

type client struct {
	conn    *websocket.Conn
	session string
	send    chan Message
}

// Hub fans session events out to the websocket clients watching them and
// applies the events they send back.
type Hub struct {
	sync.RWMutex
	clients  map[*client]struct{}
	upgrader websocket.Upgrader
	events   chan Event
	sessions *Sessions
	log      logger.Logger
	done     chan struct{}
	once     sync.Once
}

// NewHub creates a hub over sessions and starts its broadcast loop.
func NewHub(sessions *Sessions, log logger.Logger) *Hub {
	h := &Hub{
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		events:   make(chan Event, 100),
		sessions: sessions,
		log:      log,
		done:     make(chan struct{}),
	}

	go h.broadcast()

	return h
}

// Publish queues a frame event. It never blocks; when the queue is full the
// event is dropped and clients catch up on the next one.
func (h *Hub) Publish(e Event) {
	select {
	case <-h.done:
	case h.events <- e:
	default:
		h.log.Debugf("event queue full, dropped version %d of %s", e.Version, e.Session)
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.RLock()
	defer h.RUnlock()
	return len(h.clients)
}

// Close disconnects every client and stops the broadcast loop.
func (h *Hub) Close() {
	h.once.Do(func() {
		close(h.done)

		h.Lock()
		for c := range h.clients {
			c.conn.Close()
		}
		h.Unlock()
	})
}

func (h *Hub) broadcast() {
	for {
		select {
		case <-h.done:
			return
		case e := <-h.events:
			msg, err := envelope("frame", e)
			if err != nil {
				h.log.WithError(err).Error("encode frame event")
				continue
			}
			h.deliver(e.Session, msg)
		}
	}
}

func (h *Hub) deliver(session string, msg Message) {
	h.RLock()
	defer h.RUnlock()

	for c := range h.clients {
		if c.session != session {
			continue
		}
		select {
		case c.send <- msg:
		default:
			h.log.Warnf("client of %s is too slow, frame skipped", session)
		}
	}
}

// HandleWebSocket attaches a client to the session named by the session query parameter.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("session")
	if id == "" {
		http.Error(w, "Missing session parameter", http.StatusBadRequest)
		return
	}

	s, err := h.sessions.Get(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Error("websocket upgrade failed")
		return
	}

	c := &client{conn: conn, session: id, send: make(chan Message, clientQueue)}

	hello, err := envelope("session", s.Snapshot())
	if err != nil {
		h.log.WithError(err).Error("encode session snapshot")
		conn.Close()
		return
	}
	h.register(c, hello)

	go h.write(c)
	go h.read(c)
}

// register queues hello on the still private send channel, then exposes the
// client to broadcasts. hello is always the first message a client gets.
func (h *Hub) register(c *client, hello Message) {
	c.send <- hello

	h.Lock()
	h.clients[c] = struct{}{}
	count := len(h.clients)
	h.Unlock()
	h.log.WithField("session", c.session).Infof("websocket client connected, %d total", count)
}

func (h *Hub) write(c *client) {
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(msg); err != nil {
			h.log.WithError(err).Debug("websocket write failed")
			c.conn.Close()
			return
		}
	}
}

func (h *Hub) read(c *client) {
	defer func() {
		h.Lock()
		delete(h.clients, c)
		remaining := len(h.clients)
		h.Unlock()

		close(c.send)
		c.conn.Close()
		h.log.WithField("session", c.session).Infof("websocket client disconnected, %d remaining", remaining)
	}()

	c.conn.SetPingHandler(func(string) error {
		return c.conn.WriteControl(websocket.PongMessage, []byte{}, time.Now().Add(writeWait))
	})

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.WithError(err).Warn("websocket read failed")
			}
			return
		}

		if err := h.apply(c.session, msg); err != nil {
			reply, _ := envelope("error", map[string]string{"error": err.Error()})
			select {
			case c.send <- reply:
			default:
			}
			if errors.Is(err, ErrSessionNotFound) {
				return
			}
		}
	}
}

// apply routes one client message to the session.
func (h *Hub) apply(id string, msg Message) error {
	s, err := h.sessions.Get(id)
	if err != nil {
		return err
	}

	var fn func(v *chart.View) error
	switch msg.Type {
	case "tool":
		var m toolMessage
		if err := json.Unmarshal(msg.Payload, &m); err != nil {
			return err
		}
		tool, err := chart.ParseTool(m.Tool)
		if err != nil {
			return err
		}
		fn = func(v *chart.View) error {
			v.ArmTool(tool)
			return nil
		}
	case "pointer":
		var m pointerMessage
		if err := json.Unmarshal(msg.Payload, &m); err != nil {
			return err
		}
		fn = func(v *chart.View) error {
			return dispatchPointer(v, m.Kind, chart.Point{X: m.X, Y: m.Y})
		}
	case "resize":
		var m resizeMessage
		if err := json.Unmarshal(msg.Payload, &m); err != nil {
			return err
		}
		fn = func(v *chart.View) error {
			v.Resize(canvasSize(m.Width, m.Height))
			return nil
		}
	case "flag":
		var m flagMessage
		if err := json.Unmarshal(msg.Payload, &m); err != nil {
			return err
		}
		fn = func(v *chart.View) error {
			if m.Cancel {
				v.CancelFlagText()
			} else {
				v.SubmitFlagText(m.Text)
			}
			return nil
		}
	case "clear":
		fn = func(v *chart.View) error {
			v.ClearAll()
			return nil
		}
	default:
		return fmt.Errorf("unknown message type %q", msg.Type)
	}

	event, changed, err := s.Do(fn)
	if err != nil {
		return err
	}
	if changed {
		h.Publish(event)
	}
	return nil
}

func envelope(kind string, payload any) (Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: kind, Payload: raw}, nil
}
