package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"harmony-backend/internal/models"
)

func beginTx(t *testing.T, db *sql.DB) *sql.Tx {
	t.Helper()

	tx, err := db.Begin()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { tx.Rollback() })
	return tx
}

func TestResolveConversationTagsKind(t *testing.T) {
	env := newTestEnv(t, safeClassifier)
	owner := env.createUser(t, "alice")
	other := env.createUser(t, "bob")
	server, channel := env.createServer(t, owner)

	dm, err := env.directs.CreateOrGet(context.Background(), other.ID, owner)
	if err != nil {
		t.Fatal(err)
	}

	tx := beginTx(t, env.db)

	resolved, err := ResolveConversation(tx, channel.ID)
	if err != nil {
		t.Fatal(err)
	}
	if resolved.Kind != models.KindChannel {
		t.Errorf("Expected channel kind, got %d", resolved.Kind)
	}
	if resolved.ServerID != server.ID {
		t.Errorf("Expected server ID [%d], got [%d]", server.ID, resolved.ServerID)
	}

	resolved, err = ResolveConversation(tx, dm.ID)
	if err != nil {
		t.Fatal(err)
	}
	if resolved.Kind != models.KindDirect {
		t.Errorf("Expected direct kind, got %d", resolved.Kind)
	}
}

func TestResolveUnknownConversation(t *testing.T) {
	env := newTestEnv(t, safeClassifier)

	tx := beginTx(t, env.db)

	_, err := ResolveConversation(tx, 424242)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestServerOwnerGuard(t *testing.T) {
	env := newTestEnv(t, safeClassifier)
	owner := env.createUser(t, "alice")
	member := env.createUser(t, "bob")
	server, _ := env.createServer(t, owner)
	env.addMember(t, server.ID, member.ID)

	tx := beginTx(t, env.db)

	if err := AssertServerOwner(tx, server.ID, owner); err != nil {
		t.Errorf("Expected the owner to pass, got %v", err)
	}
	if err := AssertServerOwner(tx, server.ID, member); !errors.Is(err, ErrForbidden) {
		t.Errorf("Expected ErrForbidden for a plain member, got %v", err)
	}
	if err := AssertServerOwner(tx, 424242, owner); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for an unknown server, got %v", err)
	}
}

func TestConversationMemberGuard(t *testing.T) {
	env := newTestEnv(t, safeClassifier)
	owner := env.createUser(t, "alice")
	peer := env.createUser(t, "bob")
	stranger := env.createUser(t, "mallory")
	_, channel := env.createServer(t, owner)

	dm, err := env.directs.CreateOrGet(context.Background(), peer.ID, owner)
	if err != nil {
		t.Fatal(err)
	}

	tx := beginTx(t, env.db)

	if _, err := AssertConversationMember(tx, channel.ID, owner); err != nil {
		t.Errorf("Expected the server owner to pass on a channel, got %v", err)
	}
	if _, err := AssertConversationMember(tx, channel.ID, stranger); !errors.Is(err, ErrForbidden) {
		t.Errorf("Expected ErrForbidden for a non-member on a channel, got %v", err)
	}

	for _, participant := range []models.User{owner, peer} {
		if _, err := AssertConversationMember(tx, dm.ID, participant); err != nil {
			t.Errorf("Expected participant [%s] to pass on the conversation, got %v", participant.Username, err)
		}
	}
	if _, err := AssertConversationMember(tx, dm.ID, stranger); !errors.Is(err, ErrForbidden) {
		t.Errorf("Expected ErrForbidden for a third party on a conversation, got %v", err)
	}
}
