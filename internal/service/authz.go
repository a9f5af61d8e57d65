package service

import (
	"database/sql"
	"errors"
	"fmt"

	"harmony-backend/internal/models"
)

// Authorization guard. Every check runs on the transaction of the operation
// it gates, so a membership revoked concurrently can't slip between the
// check and the write.

func AssertServerOwner(tx *sql.Tx, serverID int64, actor models.User) error {
	var ownerID int64
	err := tx.QueryRow("SELECT owner_id FROM servers WHERE id = ?", serverID).Scan(&ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("server [%d]: %w", serverID, ErrNotFound)
	} else if err != nil {
		return err
	}

	if ownerID != actor.ID {
		return fmt.Errorf("user [%d] is not the owner of server [%d]: %w", actor.ID, serverID, ErrForbidden)
	}
	return nil
}

func AssertServerMember(tx *sql.Tx, serverID int64, actor models.User) error {
	var isMember bool
	err := tx.QueryRow("SELECT EXISTS(SELECT 1 FROM server_members WHERE server_id = ? AND user_id = ?)", serverID, actor.ID).Scan(&isMember)
	if err != nil {
		return err
	}

	if !isMember {
		return fmt.Errorf("user [%d] is not a member of server [%d]: %w", actor.ID, serverID, ErrForbidden)
	}
	return nil
}

// ResolveConversation loads a message target by ID and tags it as a channel
// or a direct conversation. Snowflake IDs are unique across both tables, so
// the lookup is never ambiguous.
func ResolveConversation(tx *sql.Tx, conversationID int64) (models.Conversation, error) {
	var serverID int64
	err := tx.QueryRow("SELECT server_id FROM channels WHERE id = ?", conversationID).Scan(&serverID)
	if err == nil {
		return models.Conversation{ID: conversationID, Kind: models.KindChannel, ServerID: serverID}, nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, err
	}

	var exists bool
	err = tx.QueryRow("SELECT EXISTS(SELECT 1 FROM direct_conversations WHERE id = ?)", conversationID).Scan(&exists)
	if err != nil {
		return models.Conversation{}, err
	}
	if !exists {
		return models.Conversation{}, fmt.Errorf("conversation [%d]: %w", conversationID, ErrNotFound)
	}

	return models.Conversation{ID: conversationID, Kind: models.KindDirect}, nil
}

// AssertConversationMember resolves the target and checks the actor may read
// and write in it: server membership for channels, a membership row for
// direct conversations.
func AssertConversationMember(tx *sql.Tx, conversationID int64, actor models.User) (models.Conversation, error) {
	conversation, err := ResolveConversation(tx, conversationID)
	if err != nil {
		return models.Conversation{}, err
	}

	switch conversation.Kind {
	case models.KindChannel:
		if err := AssertServerMember(tx, conversation.ServerID, actor); err != nil {
			return models.Conversation{}, err
		}
	case models.KindDirect:
		var isMember bool
		err := tx.QueryRow("SELECT EXISTS(SELECT 1 FROM direct_conversation_members WHERE conversation_id = ? AND user_id = ?)", conversationID, actor.ID).Scan(&isMember)
		if err != nil {
			return models.Conversation{}, err
		}
		if !isMember {
			return models.Conversation{}, fmt.Errorf("user [%d] is not a member of conversation [%d]: %w", actor.ID, conversationID, ErrForbidden)
		}
	}

	return conversation, nil
}
