package ws

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"quizroom-service/internal/app"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBufferSize = 256
)

// Client is one websocket connection. Its id is the connection id the
// engine sees: the participant identity for the duration of the
// connection.
type Client struct {
	id     string
	conn   *websocket.Conn
	engine *app.RoomEngine
	reg    *Registry
	logger *slog.Logger

	send chan []byte
	done chan struct{}

	mu     sync.Mutex
	closed bool
}

func newClient(id string, conn *websocket.Conn, engine *app.RoomEngine, reg *Registry, logger *slog.Logger) *Client {
	return &Client{
		id:     id,
		conn:   conn,
		engine: engine,
		reg:    reg,
		logger: logger,
		send:   make(chan []byte, sendBufferSize),
		done:   make(chan struct{}),
	}
}

// Send queues an event for the write pump. It never blocks the engine: a
// full buffer drops the message for this slow client instead.
func (c *Client) Send(event string, payload any) {
	data, err := json.Marshal(outboundMessage{Type: event, Payload: payload})
	if err != nil {
		c.logger.Error("marshal outbound event", "event", event, "error", err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
		c.logger.Warn("send buffer full, dropping event", "connId", c.id, "event", event)
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
	_ = c.conn.Close()
}

// run drives the pumps and tears the connection down when the read side
// ends. The transport-level disconnect is what removes a participant from
// their room.
func (c *Client) run() {
	go c.writePump()
	c.readPump()

	c.reg.remove(c.id)
	c.close()
	c.engine.Disconnect(c.id)
}

func (c *Client) readPump() {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Debug("websocket read error", "connId", c.id, "error", err)
			}
			return
		}
		c.dispatch(message)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// dispatch routes one inbound message to the engine. A malformed or
// panicking event is contained here: it answers this client with
// room-error and never takes down the process or another room.
func (c *Client) dispatch(data []byte) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("panic handling event", "connId", c.id, "panic", r)
			c.Send(app.EvtRoomError, app.ErrorPayload{Message: "internal error"})
		}
	}()

	var msg inboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.Send(app.EvtRoomError, app.ErrorPayload{Message: "invalid message format"})
		return
	}

	switch msg.Type {
	case MsgCreateRoom:
		var p createRoomPayload
		if !c.decode(msg.Payload, &p) {
			return
		}
		c.engine.CreateRoom(c.id, p.RoomID, p.PresenterName)
	case MsgJoinRoom:
		var p joinRoomPayload
		if !c.decode(msg.Payload, &p) {
			return
		}
		prior := p.PriorParticipantID
		if !p.Reconnect {
			prior = ""
		}
		if err := c.engine.JoinRoom(c.id, p.RoomID, p.DisplayName, prior); err != nil {
			c.Send(app.EvtRoomError, app.ErrorPayload{Message: err.Error()})
		}
	case MsgSaveQuestions:
		var p saveQuestionsPayload
		if !c.decode(msg.Payload, &p) {
			return
		}
		c.engine.SaveQuestions(c.id, p.RoomID, p.Questions)
	case MsgStartQuiz:
		var p startQuizPayload
		if !c.decode(msg.Payload, &p) {
			return
		}
		c.engine.StartQuiz(c.id, p.RoomID, p.Questions)
	case MsgSubmitAnswer:
		var p submitAnswerPayload
		if !c.decode(msg.Payload, &p) {
			return
		}
		c.engine.SubmitAnswer(c.id, p.RoomID, p.ChosenOptionIndex)
	case MsgRequestRoomState:
		var p requestRoomStatePayload
		if !c.decode(msg.Payload, &p) {
			return
		}
		if err := c.engine.RoomState(c.id, p.RoomID, p.IsPresenter); err != nil {
			c.Send(app.EvtRoomNotFound, nil)
		}
	default:
		c.Send(app.EvtRoomError, app.ErrorPayload{Message: "unsupported message type"})
	}
}

func (c *Client) decode(raw json.RawMessage, into any) bool {
	if err := json.Unmarshal(raw, into); err != nil {
		c.Send(app.EvtRoomError, app.ErrorPayload{Message: "invalid payload"})
		return false
	}
	return true
}
