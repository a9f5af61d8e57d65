package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"harmony-backend/internal/models"
	"harmony-backend/internal/snowflake"
)

// DirectConversationSummary is a conversation joined with the other
// participant's profile for listing.
type DirectConversationSummary struct {
	ID    int64       `json:"id,string"`
	Other models.User `json:"other"`
}

type DirectService struct {
	sugar *zap.SugaredLogger
	db    *sql.DB
}

func NewDirectService(sugar *zap.SugaredLogger, db *sql.DB) *DirectService {
	return &DirectService{sugar: sugar, db: db}
}

// CreateOrGet returns the conversation between the actor and another user,
// creating it on first contact. A pair of users has at most one
// conversation, and each conversation has exactly two membership rows.
func (s *DirectService) CreateOrGet(ctx context.Context, otherUserID int64, actor models.User) (models.DirectConversation, error) {
	if otherUserID == actor.ID {
		return models.DirectConversation{}, fmt.Errorf("can't open a conversation with yourself: %w", ErrValidation)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.DirectConversation{}, err
	}
	defer tx.Rollback()

	var otherExists bool
	err = tx.QueryRow("SELECT EXISTS(SELECT 1 FROM users WHERE id = ?)", otherUserID).Scan(&otherExists)
	if err != nil {
		return models.DirectConversation{}, err
	}
	if !otherExists {
		return models.DirectConversation{}, fmt.Errorf("user [%d]: %w", otherUserID, ErrNotFound)
	}

	var conversationID int64
	err = tx.QueryRow(`
		SELECT a.conversation_id
		FROM direct_conversation_members a
		JOIN direct_conversation_members b ON a.conversation_id = b.conversation_id
		WHERE a.user_id = ? AND b.user_id = ?
	`, actor.ID, otherUserID).Scan(&conversationID)
	if err == nil {
		return models.DirectConversation{ID: conversationID}, tx.Commit()
	} else if !errors.Is(err, sql.ErrNoRows) {
		return models.DirectConversation{}, err
	}

	conversationID, err = snowflake.Generate()
	if err != nil {
		return models.DirectConversation{}, err
	}

	_, err = tx.Exec("INSERT INTO direct_conversations (id) VALUES (?)", conversationID)
	if err != nil {
		return models.DirectConversation{}, err
	}
	for _, userID := range []int64{actor.ID, otherUserID} {
		_, err = tx.Exec("INSERT INTO direct_conversation_members (conversation_id, user_id) VALUES (?, ?)", conversationID, userID)
		if err != nil {
			return models.DirectConversation{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return models.DirectConversation{}, err
	}

	return models.DirectConversation{ID: conversationID}, nil
}

// List returns the actor's direct conversations with the other
// participant's profile attached.
func (s *DirectService) List(ctx context.Context, actor models.User) ([]DirectConversationSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT mine.conversation_id, u.id, u.username, u.picture
		FROM direct_conversation_members mine
		JOIN direct_conversation_members theirs
			ON mine.conversation_id = theirs.conversation_id AND theirs.user_id != mine.user_id
		JOIN users u ON theirs.user_id = u.id
		WHERE mine.user_id = ?
	`, actor.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	conversations := []DirectConversationSummary{}
	for rows.Next() {
		var summary DirectConversationSummary
		err := rows.Scan(&summary.ID, &summary.Other.ID, &summary.Other.Username, &summary.Other.Picture)
		if err != nil {
			return nil, err
		}
		conversations = append(conversations, summary)
	}

	return conversations, rows.Err()
}
