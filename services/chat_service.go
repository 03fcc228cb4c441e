package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fitTrackAPI/internal/apperr"
	"fitTrackAPI/internal/types/chat"
)

type ChatService struct {
	db *pgxpool.Pool
}

func NewChatService(db *pgxpool.Pool) *ChatService {
	return &ChatService{db: db}
}

const roomColumns = `id, name, description, is_public, participants, created_at, updated_at`

func scanRoom(row pgx.Row) (*chat.Room, error) {
	room := &chat.Room{}
	err := row.Scan(&room.ID, &room.Name, &room.Description, &room.IsPublic,
		&room.Participants, &room.CreatedAt, &room.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if room.Participants == nil {
		room.Participants = []uuid.UUID{}
	}
	return room, nil
}

// SeedDefaultRooms creates the default public rooms when no room exists.
func (s *ChatService) SeedDefaultRooms(ctx context.Context) error {
	var count int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM chat_rooms`).Scan(&count); err != nil {
		return fmt.Errorf("failed to count chat rooms: %w", err)
	}
	if count > 0 {
		return nil
	}

	batch := &pgx.Batch{}
	now := time.Now().UTC()
	for _, room := range chat.DefaultRooms {
		batch.Queue(`
		INSERT INTO chat_rooms (id, name, description, is_public, participants, created_at, updated_at)
		VALUES ($1, $2, $3, $4, '{}', $5, $5)
		`, uuid.New(), room.Name, room.Description, room.IsPublic, now)
	}
	if err := s.db.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to seed chat rooms: %w", err)
	}
	log.Printf("Chat: seeded %d default rooms", len(chat.DefaultRooms))
	return nil
}

// ListRooms returns public rooms and the rooms userID has joined.
func (s *ChatService) ListRooms(ctx context.Context, userID uuid.UUID) ([]*chat.Room, error) {
	rows, err := s.db.Query(ctx, `
	SELECT `+roomColumns+`
	FROM chat_rooms
	WHERE is_public = TRUE OR $1 = ANY(participants)
	ORDER BY name
	`, userID)
	if err != nil {
		return nil, apperr.Internal("failed to list chat rooms", err)
	}
	defer rows.Close()

	rooms := []*chat.Room{}
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, apperr.Internal("failed to scan chat room", err)
		}
		rooms = append(rooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal("failed to list chat rooms", err)
	}
	return rooms, nil
}

func (s *ChatService) getRoom(ctx context.Context, roomID uuid.UUID) (*chat.Room, error) {
	room, err := scanRoom(s.db.QueryRow(ctx, `SELECT `+roomColumns+` FROM chat_rooms WHERE id = $1`, roomID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("Chat room not found")
	}
	if err != nil {
		return nil, apperr.Internal("failed to get chat room", err)
	}
	return room, nil
}

// JoinRoom adds userID to the room participants. Joining twice is a no-op.
func (s *ChatService) JoinRoom(ctx context.Context, roomID, userID uuid.UUID) (*chat.Room, error) {
	room, err := scanRoom(s.db.QueryRow(ctx, `
	UPDATE chat_rooms
	SET participants = CASE
			WHEN $2 = ANY(participants) THEN participants
			ELSE array_append(participants, $2)
		END,
		updated_at = NOW()
	WHERE id = $1 AND (is_public = TRUE OR $2 = ANY(participants))
	RETURNING `+roomColumns, roomID, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		if _, getErr := s.getRoom(ctx, roomID); getErr != nil {
			return nil, getErr
		}
		return nil, apperr.Forbidden("This chat room is private")
	}
	if err != nil {
		return nil, apperr.Internal("failed to join chat room", err)
	}
	return room, nil
}

// Messages returns the latest messages of a room in chronological order.
func (s *ChatService) Messages(ctx context.Context, roomID, userID uuid.UUID) ([]*chat.Message, error) {
	room, err := s.getRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.IsPublic && !slices.Contains(room.Participants, userID) {
		return nil, apperr.Forbidden("This chat room is private")
	}

	rows, err := s.db.Query(ctx, `
	SELECT m.id, m.room_id, m.sender_id, u.username, u.avatar_url, m.text, m.attachments, m.created_at
	FROM (
		SELECT * FROM chat_messages
		WHERE room_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	) m
	JOIN users u ON u.id = m.sender_id
	ORDER BY m.created_at ASC
	`, roomID, chat.MessageHistoryLimit)
	if err != nil {
		return nil, apperr.Internal("failed to get chat messages", err)
	}
	defer rows.Close()

	messages := []*chat.Message{}
	for rows.Next() {
		m := &chat.Message{}
		err := rows.Scan(&m.ID, &m.RoomID, &m.Sender.ID, &m.Sender.Username, &m.Sender.AvatarURL,
			&m.Text, &m.Attachments, &m.CreatedAt)
		if err != nil {
			return nil, apperr.Internal("failed to scan chat message", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal("failed to get chat messages", err)
	}
	return messages, nil
}

func (s *ChatService) SaveMessage(ctx context.Context, roomID, senderID uuid.UUID, text string) (*chat.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperr.Validation("Message text is required", apperr.FieldError{Field: "text", Message: "required"})
	}

	m := &chat.Message{
		ID:          uuid.New(),
		RoomID:      roomID,
		Sender:      chat.Sender{ID: senderID},
		Text:        text,
		Attachments: []string{},
		CreatedAt:   time.Now().UTC(),
	}

	err := s.db.QueryRow(ctx, `
	WITH inserted AS (
		INSERT INTO chat_messages (id, room_id, sender_id, text, attachments, created_at)
		VALUES ($1, $2, $3, $4, '{}', $5)
		RETURNING sender_id
	)
	SELECT u.username, u.avatar_url FROM inserted JOIN users u ON u.id = inserted.sender_id
	`, m.ID, m.RoomID, senderID, m.Text, m.CreatedAt).Scan(&m.Sender.Username, &m.Sender.AvatarURL)
	if err != nil {
		return nil, apperr.Internal("failed to save chat message", err)
	}
	return m, nil
}

// BotHistory returns the latest chatbot messages of userID in chronological
// order.
func (s *ChatService) BotHistory(ctx context.Context, userID uuid.UUID, limit int) ([]*chat.BotMessage, error) {
	rows, err := s.db.Query(ctx, `
	SELECT id, user_id, role, text, created_at
	FROM (
		SELECT * FROM chatbot_messages
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	) recent
	ORDER BY created_at ASC
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get chatbot history: %w", err)
	}
	defer rows.Close()

	messages := []*chat.BotMessage{}
	for rows.Next() {
		m := &chat.BotMessage{}
		if err := rows.Scan(&m.ID, &m.UserID, &m.Role, &m.Text, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chatbot message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (s *ChatService) SaveBotMessage(ctx context.Context, m *chat.BotMessage) error {
	_, err := s.db.Exec(ctx, `
	INSERT INTO chatbot_messages (id, user_id, role, text, created_at)
	VALUES ($1, $2, $3, $4, $5)
	`, m.ID, m.UserID, m.Role, m.Text, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save chatbot message: %w", err)
	}
	return nil
}
