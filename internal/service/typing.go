package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"harmony-backend/internal/hub"
	"harmony-backend/internal/keyValue"
	"harmony-backend/internal/models"
)

// typingTTL bounds how long a typing indicator survives without another
// keystroke. The upsert refreshes it, so an abandoned tab can't stay
// "typing" forever.
const typingTTL = 10 * time.Second

type TypingService struct {
	sugar  *zap.SugaredLogger
	db     *sql.DB
	events EventPublisher
}

func NewTypingService(sugar *zap.SugaredLogger, db *sql.DB, events EventPublisher) *TypingService {
	return &TypingService{sugar: sugar, db: db, events: events}
}

func typingKey(conversationID int64, userID int64) string {
	return fmt.Sprintf("%s%d", typingPrefix(conversationID), userID)
}

func typingPrefix(conversationID int64) string {
	return fmt.Sprintf("typing:%d:", conversationID)
}

// Upsert records that the actor is typing in a conversation. Called on
// every content-changing keystroke; callers rate-limit, this layer doesn't.
func (s *TypingService) Upsert(ctx context.Context, conversationID int64, actor models.User) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = AssertConversationMember(tx, conversationID, actor)
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	err = keyValue.Set(typingKey(conversationID, actor.ID), actor.Username, typingTTL)
	if err != nil {
		return err
	}

	if s.events != nil {
		payload := struct {
			Username string `json:"username"`
		}{actor.Username}
		if err := s.events.Publish(hub.TypingStarted, payload, conversationID); err != nil {
			s.sugar.Error(err)
		}
	}

	return nil
}

// Clear drops the actor's typing state. Runs directly when the user stops
// composing, and as a deferred task after a message commits.
func (s *TypingService) Clear(conversationID int64, userID int64) error {
	err := keyValue.Delete(typingKey(conversationID, userID))
	if err != nil {
		return err
	}

	if s.events != nil {
		payload := struct {
			UserID int64 `json:"userID,string"`
		}{userID}
		if err := s.events.Publish(hub.TypingStopped, payload, conversationID); err != nil {
			s.sugar.Error(err)
		}
	}

	return nil
}

// List returns the usernames currently typing in a conversation, sorted for
// a stable caller-visible order.
func (s *TypingService) List(conversationID int64) ([]string, error) {
	values, err := keyValue.Scan(typingPrefix(conversationID))
	if err != nil {
		return nil, err
	}

	usernames := make([]string, 0, len(values))
	for _, username := range values {
		usernames = append(usernames, username)
	}
	sort.Strings(usernames)

	return usernames, nil
}
