package services

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"fitTrackAPI/internal/apperr"
	"fitTrackAPI/internal/metrics"
	"fitTrackAPI/internal/types/chat"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
	sendBufferSize = 64
)

// ChatStore is the persistence the hub needs to act on client events.
type ChatStore interface {
	JoinRoom(ctx context.Context, roomID, userID uuid.UUID) (*chat.Room, error)
	SaveMessage(ctx context.Context, roomID, senderID uuid.UUID, text string) (*chat.Message, error)
}

type subscription struct {
	client *ChatClient
	roomID uuid.UUID
}

type roomMessage struct {
	roomID uuid.UUID
	data   []byte
}

type directMessage struct {
	client *ChatClient
	data   []byte
}

// ChatHub fans room messages out to subscribed clients. All membership state
// is owned by the Run loop.
type ChatHub struct {
	store      ChatStore
	clients    map[*ChatClient]bool
	rooms      map[uuid.UUID]map[*ChatClient]bool
	register   chan *ChatClient
	unregister chan *ChatClient
	subscribe  chan subscription
	broadcast  chan roomMessage
	direct     chan directMessage
	done       chan struct{}
}

func NewChatHub(store ChatStore) *ChatHub {
	return &ChatHub{
		store:      store,
		clients:    make(map[*ChatClient]bool),
		rooms:      make(map[uuid.UUID]map[*ChatClient]bool),
		register:   make(chan *ChatClient),
		unregister: make(chan *ChatClient),
		subscribe:  make(chan subscription),
		broadcast:  make(chan roomMessage),
		direct:     make(chan directMessage),
		done:       make(chan struct{}),
	}
}

func (h *ChatHub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				h.drop(client)
			}
			return

		case client := <-h.register:
			h.clients[client] = true
			metrics.ChatConnections.Inc()
			log.Printf("Chat: user %s connected. Count: %d", client.UserID, len(h.clients))

		case client := <-h.unregister:
			if h.clients[client] {
				h.drop(client)
				log.Printf("Chat: user %s disconnected. Count: %d", client.UserID, len(h.clients))
			}

		case sub := <-h.subscribe:
			if !h.clients[sub.client] {
				continue
			}
			members, ok := h.rooms[sub.roomID]
			if !ok {
				members = make(map[*ChatClient]bool)
				h.rooms[sub.roomID] = members
			}
			members[sub.client] = true
			sub.client.rooms[sub.roomID] = true

		case msg := <-h.broadcast:
			for client := range h.rooms[msg.roomID] {
				h.deliver(client, msg.data)
			}

		case msg := <-h.direct:
			if h.clients[msg.client] {
				h.deliver(msg.client, msg.data)
			}
		}
	}
}

// deliver drops clients whose send buffer is full.
func (h *ChatHub) deliver(client *ChatClient, data []byte) {
	select {
	case client.Send <- data:
	default:
		h.drop(client)
	}
}

func (h *ChatHub) drop(client *ChatClient) {
	for roomID := range client.rooms {
		if members, ok := h.rooms[roomID]; ok {
			delete(members, client)
			if len(members) == 0 {
				delete(h.rooms, roomID)
			}
		}
	}
	delete(h.clients, client)
	close(client.Send)
	metrics.ChatConnections.Dec()
}

// HandleEvent applies one inbound client event.
func (h *ChatHub) HandleEvent(ctx context.Context, client *ChatClient, evt *chat.Event) {
	switch evt.Type {
	case chat.EventJoinRoom:
		if _, err := h.store.JoinRoom(ctx, evt.RoomID, client.UserID); err != nil {
			h.sendError(client, err)
			return
		}
		client.joined[evt.RoomID] = true
		send(h, h.subscribe, subscription{client: client, roomID: evt.RoomID})

	case chat.EventSendMessage:
		if !client.joined[evt.RoomID] {
			h.sendError(client, apperr.Forbidden("Join the room before sending messages"))
			return
		}
		msg, err := h.store.SaveMessage(ctx, evt.RoomID, client.UserID, evt.Text)
		if err != nil {
			h.sendError(client, err)
			return
		}
		data, err := json.Marshal(chat.Event{Type: chat.EventNewMessage, RoomID: evt.RoomID, Data: msg})
		if err != nil {
			log.Printf("Chat: failed to encode message %s: %v", msg.ID, err)
			return
		}
		send(h, h.broadcast, roomMessage{roomID: evt.RoomID, data: data})

	default:
		h.sendError(client, apperr.Validation("Unknown event type: "+evt.Type))
	}
}

// send hands v to the Run loop unless the hub has stopped.
func send[T any](h *ChatHub, ch chan T, v T) {
	select {
	case ch <- v:
	case <-h.done:
	}
}

func (h *ChatHub) sendError(client *ChatClient, err error) {
	message := "Something went wrong"
	var appErr *apperr.Error
	if errors.As(err, &appErr) && appErr.Kind != apperr.KindInternal {
		message = appErr.Message
	} else {
		log.Printf("Chat: event for user %s failed: %v", client.UserID, err)
	}
	data, _ := json.Marshal(chat.Event{Type: chat.EventError, Text: message})
	send(h, h.direct, directMessage{client: client, data: data})
}

// ChatClient sits between one websocket connection and the hub.
type ChatClient struct {
	hub    *ChatHub
	conn   *websocket.Conn
	Send   chan []byte
	UserID uuid.UUID
	// rooms is owned by the hub loop, joined by the read pump.
	rooms  map[uuid.UUID]bool
	joined map[uuid.UUID]bool
}

func NewChatClient(hub *ChatHub, conn *websocket.Conn, userID uuid.UUID) *ChatClient {
	return &ChatClient{
		hub:    hub,
		conn:   conn,
		Send:   make(chan []byte, sendBufferSize),
		UserID: userID,
		rooms:  make(map[uuid.UUID]bool),
		joined: make(map[uuid.UUID]bool),
	}
}

func (h *ChatHub) Register(client *ChatClient) { send(h, h.register, client) }

func (h *ChatHub) Unregister(client *ChatClient) { send(h, h.unregister, client) }

// ReadPump decodes events from the connection until it closes.
func (c *ChatClient) ReadPump(ctx context.Context) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
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
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("Chat: read error for user %s: %v", c.UserID, err)
			}
			return
		}

		var evt chat.Event
		if err := json.Unmarshal(message, &evt); err != nil {
			c.hub.sendError(c, apperr.Validation("Invalid event payload"))
			continue
		}

		eventCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		c.hub.HandleEvent(eventCtx, c, &evt)
		cancel()
	}
}

// WritePump writes queued messages and keeps the connection alive.
func (c *ChatClient) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
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
