package moderation

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"harmony-backend/internal/hub"
)

// EventPublisher pushes a message event to connected viewers.
type EventPublisher interface {
	Publish(messageType byte, payload any, targetID int64) error
}

// Pipeline classifies a message after it has been committed and delivered,
// and soft-deletes it when the verdict names a violation. It runs as a
// deferred task, never inside the request that created the message.
type Pipeline struct {
	sugar      *zap.SugaredLogger
	db         *sql.DB
	classifier Classifier
	events     EventPublisher
}

func NewPipeline(sugar *zap.SugaredLogger, db *sql.DB, classifier Classifier, events EventPublisher) *Pipeline {
	return &Pipeline{sugar: sugar, db: db, classifier: classifier, events: events}
}

// Run is the whole pipeline for one message: fetch, classify, act. A message
// that vanished or was already deleted aborts the run with no effect. A
// failed classification leaves the message pending; the task policy is
// no-retry, so that is terminal.
func (p *Pipeline) Run(ctx context.Context, messageID int64) error {
	var content string
	var conversationID int64
	var deleted bool
	err := p.db.QueryRowContext(ctx, "SELECT content, conversation_id, deleted FROM messages WHERE id = ?", messageID).Scan(&content, &conversationID, &deleted)
	if errors.Is(err, sql.ErrNoRows) {
		p.sugar.Debugf("Message [%d] is gone, skipping moderation", messageID)
		return nil
	} else if err != nil {
		return err
	}
	if deleted {
		return nil
	}

	verdict, err := p.classifier.Classify(ctx, content)
	if err != nil {
		return err
	}

	code, flagged := ParseVerdict(verdict)
	if !flagged {
		return nil
	}

	p.sugar.Infof("Message [%d] flagged with category [%s]", messageID, code)

	return p.SoftDelete(ctx, messageID, code)
}

// SoftDelete marks a message deleted with a reason code. The row stays so
// viewers see a replacement instead of a hole. The sender-initiated removal
// path uses this too, with the reserved DeletedBySender code.
func (p *Pipeline) SoftDelete(ctx context.Context, messageID int64, reason string) error {
	var conversationID int64
	err := p.db.QueryRowContext(ctx, "SELECT conversation_id FROM messages WHERE id = ?", messageID).Scan(&conversationID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	} else if err != nil {
		return err
	}

	_, err = p.db.ExecContext(ctx, "UPDATE messages SET deleted = TRUE, deleted_reason = ? WHERE id = ?", reason, messageID)
	if err != nil {
		return err
	}

	if p.events != nil {
		payload := struct {
			ID            int64  `json:"id,string"`
			Deleted       bool   `json:"deleted"`
			DeletedReason string `json:"deletedReason"`
		}{messageID, true, reason}
		if err := p.events.Publish(hub.MessageModified, payload, conversationID); err != nil {
			p.sugar.Error(err)
		}
	}

	return nil
}
