package server

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"backoffice-chat/internal/domain/actor"
	"backoffice-chat/internal/events"
	"backoffice-chat/internal/services"
	chaterrors "backoffice-chat/pkg/errors"
	"backoffice-chat/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// Client is a single authenticated WebSocket connection. Its lifecycle
// is Connecting -> Authenticated -> (joined rooms)* -> Disconnected;
// by the time a Client exists the actor is already resolved.
type Client struct {
	hub   *Hub
	conn  *websocket.Conn
	send  chan []byte
	actor actor.Actor
	rooms map[uuid.UUID]bool
	chat  *services.ChatService
	log   *logger.Logger
}

// ClientEvent is a frame from the client. AckID, when set on
// send_message, asks for an ack frame reporting success or the error.
type ClientEvent struct {
	Event          string    `json:"event"`
	ConversationID uuid.UUID `json:"conversation_id,omitempty"`
	MessageID      uuid.UUID `json:"message_id,omitempty"`
	MessageType    string    `json:"message_type,omitempty"`
	Body           string    `json:"body,omitempty"`
	Metadata       string    `json:"metadata,omitempty"`
	AckID          string    `json:"ack_id,omitempty"`
}

func NewClient(hub *Hub, conn *websocket.Conn, a actor.Actor, chat *services.ChatService, log *logger.Logger) *Client {
	return &Client{
		hub:   hub,
		conn:  conn,
		send:  make(chan []byte, 256),
		actor: a,
		rooms: make(map[uuid.UUID]bool),
		chat:  chat,
		log:   log,
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Errorf("websocket unexpected close: %v", err)
			}
			break
		}
		c.handleEvent(message)
	}
}

func (c *Client) handleEvent(message []byte) {
	var ev ClientEvent
	if err := json.Unmarshal(message, &ev); err != nil {
		c.sendError("malformed event")
		return
	}

	switch ev.Event {
	case events.ClientJoinConversation:
		c.handleJoin(ev)
	case events.ClientLeaveConversation:
		c.hub.LeaveRoom(ev.ConversationID, c)
	case events.ClientSendMessage:
		c.handleSend(ev)
	case events.ClientMarkRead:
		c.handleMarkRead(ev)
	case events.ClientTypingStart:
		c.handleTyping(ev, true)
	case events.ClientTypingStop:
		c.handleTyping(ev, false)
	case events.ClientPing:
		c.sendEnvelope(events.Envelope{Event: events.EventPong, OccurredAt: time.Now()})
	default:
		c.sendError("unknown event")
	}
}

// handleJoin re-verifies membership against the store on every join; a
// rejected join emits an error event and leaves the connection open.
func (c *Client) handleJoin(ev ClientEvent) {
	if err := c.chat.CanAccessConversation(context.Background(), ev.ConversationID, c.actor); err != nil {
		c.sendError("cannot join conversation: " + errorText(err))
		return
	}
	c.hub.JoinRoom(ev.ConversationID, c)
}

func (c *Client) handleSend(ev ClientEvent) {
	msgType := ev.MessageType
	if msgType == "" {
		msgType = "TEXT"
	}
	_, err := c.chat.SendMessage(context.Background(), c.actor, ev.ConversationID, services.SendMessageInput{
		Type:     msgType,
		Body:     ev.Body,
		Metadata: ev.Metadata,
	})
	if ev.AckID != "" {
		c.sendAck(ev.AckID, err)
		return
	}
	if err != nil {
		c.sendError(errorText(err))
	}
}

func (c *Client) handleMarkRead(ev ClientEvent) {
	if err := c.chat.MarkRead(context.Background(), c.actor, ev.ConversationID, ev.MessageID); err != nil {
		c.sendError(errorText(err))
	}
}

// handleTyping fans the indicator out to the other room members. It is
// ephemeral: nothing is persisted and no ack is expected.
func (c *Client) handleTyping(ev ClientEvent, isTyping bool) {
	if !c.hub.InRoom(ev.ConversationID, c) {
		return
	}
	c.hub.BroadcastToOthers(ev.ConversationID, events.New(events.EventTyping, ev.ConversationID, map[string]interface{}{
		"actor_kind": string(c.actor.Kind),
		"actor_id":   c.actor.ID().String(),
		"is_typing":  isTyping,
	}), c)
}

func (c *Client) sendEnvelope(env events.Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (c *Client) sendError(message string) {
	c.sendEnvelope(events.Envelope{
		Event:      events.EventError,
		OccurredAt: time.Now(),
		Payload:    map[string]string{"message": message},
	})
}

func (c *Client) sendAck(ackID string, err error) {
	payload := map[string]string{"ack_id": ackID}
	if err != nil {
		payload["error"] = errorText(err)
	}
	c.sendEnvelope(events.Envelope{
		Event:      "ack",
		OccurredAt: time.Now(),
		Payload:    payload,
	})
}

// errorText keeps wire messages to the typed taxonomy without leaking
// internals.
func errorText(err error) string {
	switch {
	case err == nil:
		return ""
	case isTaxonomy(err):
		return err.Error()
	default:
		return "internal error"
	}
}

func isTaxonomy(err error) bool {
	for _, sentinel := range []error{
		chaterrors.ErrValidation,
		chaterrors.ErrInvalidOperation,
		chaterrors.ErrNotAParticipant,
		chaterrors.ErrForbidden,
		chaterrors.ErrNotFound,
		chaterrors.ErrOwnershipMismatch,
		chaterrors.ErrRateLimited,
		chaterrors.ErrConflict,
		chaterrors.ErrUnauthenticated,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
