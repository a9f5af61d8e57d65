package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"harmony-backend/internal/blob"
	"harmony-backend/internal/hub"
	"harmony-backend/internal/models"
	"harmony-backend/internal/moderation"
	"harmony-backend/internal/snowflake"
	"harmony-backend/internal/tasks"
	"harmony-backend/internal/validator"
)

// EventPublisher pushes an event frame to sessions watching a target.
type EventPublisher interface {
	Publish(messageType byte, payload any, targetID int64) error
}

type MessageService struct {
	sugar  *zap.SugaredLogger
	db     *sql.DB
	blobs  *blob.Store
	queue  *tasks.Queue
	events EventPublisher
}

func NewMessageService(sugar *zap.SugaredLogger, db *sql.DB, blobs *blob.Store, queue *tasks.Queue, events EventPublisher) *MessageService {
	return &MessageService{sugar: sugar, db: db, blobs: blobs, queue: queue, events: events}
}

// List returns every message of a conversation in insertion order, with the
// sender profile resolved (nil if the user is gone) and attachment URLs
// resolved (nil per attachment that no longer resolves).
func (s *MessageService) List(ctx context.Context, conversationID int64, actor models.User) ([]models.Message, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	_, err = AssertConversationMember(tx, conversationID, actor)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(`
		SELECT id, conversation_id, sender_id, content, attachments, edited, deleted, deleted_reason, creation_time
		FROM messages
		WHERE conversation_id = ?
		ORDER BY id
	`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	senders, err := s.resolveSenders(tx, messages)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	for i := range messages {
		messages[i].Sender = senders[messages[i].SenderID]

		urls := make([]*string, len(messages[i].Attachments))
		for j, handle := range messages[i].Attachments {
			if url, ok := s.blobs.ResolveURL(handle); ok {
				urls[j] = &url
			}
		}
		messages[i].AttachmentURLs = urls
	}

	return messages, nil
}

// Create commits a new message and only then schedules the deferred work:
// clearing the sender's typing state and running moderation. The message is
// visible to readers before either task runs.
func (s *MessageService) Create(ctx context.Context, conversationID int64, content string, attachments []string, actor models.User) (models.Message, error) {
	if len(attachments) == 0 {
		if err := validator.MessageContent(content); err != nil {
			return models.Message{}, fmt.Errorf("%v: %w", err, ErrValidation)
		}
	}

	messageID, err := snowflake.Generate()
	if err != nil {
		return models.Message{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Message{}, err
	}
	defer tx.Rollback()

	conversation, err := AssertConversationMember(tx, conversationID, actor)
	if err != nil {
		return models.Message{}, err
	}

	if attachments == nil {
		attachments = []string{}
	}
	attachmentsJson, err := json.Marshal(attachments)
	if err != nil {
		return models.Message{}, err
	}

	msg := models.Message{
		ID:             messageID,
		ConversationID: conversationID,
		SenderID:       actor.ID,
		Content:        content,
		Attachments:    attachments,
		CreationTime:   time.Now().UTC(),
	}

	_, err = tx.Exec(`
		INSERT INTO messages (id, conversation_id, conversation_kind, sender_id, content, attachments, edited, deleted, deleted_reason, creation_time)
		VALUES (?, ?, ?, ?, ?, ?, FALSE, FALSE, '', ?)
	`, msg.ID, msg.ConversationID, conversation.Kind, msg.SenderID, msg.Content, string(attachmentsJson), msg.CreationTime)
	if err != nil {
		return models.Message{}, err
	}

	if err := tx.Commit(); err != nil {
		return models.Message{}, err
	}

	// deferred work runs strictly after the commit above
	s.queue.Enqueue(0, tasks.TypingClear{ConversationID: conversationID, UserID: actor.ID})
	s.queue.Enqueue(0, tasks.ModerationRun{MessageID: messageID})

	if s.events != nil {
		msg.Sender = &models.User{ID: actor.ID, Username: actor.Username, Picture: actor.Picture}
		if err := s.events.Publish(hub.MessageCreated, msg, conversationID); err != nil {
			s.sugar.Error(err)
		}
	}

	return msg, nil
}

// Edit patches the content of the actor's own message. Edits are not
// re-moderated.
func (s *MessageService) Edit(ctx context.Context, messageID int64, content string, actor models.User) error {
	if err := validator.MessageContent(content); err != nil {
		return fmt.Errorf("%v: %w", err, ErrValidation)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var senderID, conversationID int64
	err = tx.QueryRow("SELECT sender_id, conversation_id FROM messages WHERE id = ?", messageID).Scan(&senderID, &conversationID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("message [%d]: %w", messageID, ErrNotFound)
	} else if err != nil {
		return err
	}
	if senderID != actor.ID {
		return fmt.Errorf("user [%d] is not the sender of message [%d]: %w", actor.ID, messageID, ErrForbidden)
	}

	_, err = tx.Exec("UPDATE messages SET content = ?, edited = TRUE WHERE id = ?", content, messageID)
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	if s.events != nil {
		payload := struct {
			ID      int64  `json:"id,string"`
			Content string `json:"content"`
			Edited  bool   `json:"edited"`
		}{messageID, content, true}
		if err := s.events.Publish(hub.MessageModified, payload, conversationID); err != nil {
			s.sugar.Error(err)
		}
	}

	return nil
}

// Remove soft-deletes the actor's own message with the reserved
// sender-initiated reason code and then reclaims its attachment blobs. Blob
// deletion happens after the soft-delete commits; the two are not atomic.
func (s *MessageService) Remove(ctx context.Context, messageID int64, actor models.User) error {
	reason := moderation.DeletedBySender

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var senderID, conversationID int64
	var attachmentsJson string
	err = tx.QueryRow("SELECT sender_id, conversation_id, attachments FROM messages WHERE id = ?", messageID).Scan(&senderID, &conversationID, &attachmentsJson)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("message [%d]: %w", messageID, ErrNotFound)
	} else if err != nil {
		return err
	}
	if senderID != actor.ID {
		return fmt.Errorf("user [%d] is not the sender of message [%d]: %w", actor.ID, messageID, ErrForbidden)
	}

	_, err = tx.Exec("UPDATE messages SET deleted = TRUE, deleted_reason = ? WHERE id = ?", reason, messageID)
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	var attachments []string
	if err := json.Unmarshal([]byte(attachmentsJson), &attachments); err != nil {
		s.sugar.Error(err)
	}
	for _, handle := range attachments {
		if err := s.blobs.Delete(handle); err != nil {
			// the message stays deleted either way
			s.sugar.Errorf("Couldn't delete blob [%s] of removed message [%d]: %v", handle, messageID, err)
		}
	}

	if s.events != nil {
		payload := struct {
			ID            int64  `json:"id,string"`
			DeletedReason string `json:"deletedReason"`
		}{messageID, reason}
		if err := s.events.Publish(hub.MessageDeleted, payload, conversationID); err != nil {
			s.sugar.Error(err)
		}
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (models.Message, error) {
	var msg models.Message
	var attachmentsJson string

	err := row.Scan(&msg.ID, &msg.ConversationID, &msg.SenderID, &msg.Content, &attachmentsJson, &msg.Edited, &msg.Deleted, &msg.DeletedReason, &msg.CreationTime)
	if err != nil {
		return msg, err
	}

	if err := json.Unmarshal([]byte(attachmentsJson), &msg.Attachments); err != nil {
		return msg, err
	}
	return msg, nil
}

func (s *MessageService) resolveSenders(tx *sql.Tx, messages []models.Message) (map[int64]*models.User, error) {
	senders := make(map[int64]*models.User)

	for _, msg := range messages {
		if _, seen := senders[msg.SenderID]; seen {
			continue
		}

		var user models.User
		err := tx.QueryRow("SELECT id, username, picture FROM users WHERE id = ?", msg.SenderID).Scan(&user.ID, &user.Username, &user.Picture)
		if errors.Is(err, sql.ErrNoRows) {
			senders[msg.SenderID] = nil // sender account is gone
			continue
		} else if err != nil {
			return nil, err
		}
		senders[msg.SenderID] = &user
	}

	return senders, nil
}
