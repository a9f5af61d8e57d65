package service

import (
	"context"
	"errors"
	"testing"
)

func TestCreateServerBootstrapsChannelAndMembership(t *testing.T) {
	env := newTestEnv(t, safeClassifier)
	owner := env.createUser(t, "alice")

	server, channel := env.createServer(t, owner)

	if server.OwnerID != owner.ID {
		t.Errorf("Expected owner [%d], got [%d]", owner.ID, server.OwnerID)
	}
	if channel.Name != "general" {
		t.Errorf("Expected default channel [general], got [%s]", channel.Name)
	}
	if server.DefaultChannelID != channel.ID {
		t.Error("Expected the default channel ID to point at the created channel")
	}

	members, err := env.servers.Members(context.Background(), server.ID, owner)
	if err != nil {
		t.Fatal(err)
	}
	if len(members) != 1 || members[0].ID != owner.ID {
		t.Errorf("Expected the owner as the only member, got %v", members)
	}

	list, err := env.servers.List(context.Background(), owner)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].ID != server.ID {
		t.Errorf("Expected the new server in the owner's list, got %v", list)
	}
}

func TestCreateServerRejectsBlankName(t *testing.T) {
	env := newTestEnv(t, safeClassifier)
	owner := env.createUser(t, "alice")

	_, err := env.servers.Create(context.Background(), "  ", "", owner)
	if !errors.Is(err, ErrValidation) {
		t.Errorf("Expected ErrValidation, got %v", err)
	}
}

func TestServerAdministrationIsOwnerOnly(t *testing.T) {
	env := newTestEnv(t, safeClassifier)
	owner := env.createUser(t, "alice")
	member := env.createUser(t, "bob")
	server, _ := env.createServer(t, owner)
	env.addMember(t, server.ID, member.ID)

	name := "renamed"
	if err := env.servers.Edit(context.Background(), server.ID, EditServerParams{Name: &name}, member); !errors.Is(err, ErrForbidden) {
		t.Errorf("Expected ErrForbidden on member edit, got %v", err)
	}
	if _, err := env.servers.CreateChannel(context.Background(), server.ID, "plans", member); !errors.Is(err, ErrForbidden) {
		t.Errorf("Expected ErrForbidden on member channel create, got %v", err)
	}
	if err := env.servers.Remove(context.Background(), server.ID, member); !errors.Is(err, ErrForbidden) {
		t.Errorf("Expected ErrForbidden on member remove, got %v", err)
	}

	got, err := env.servers.Get(context.Background(), server.ID, member)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != server.Name {
		t.Errorf("Server changed by a forbidden operation: %+v", got)
	}
}

func TestEditServerPatchesOnlyGivenFields(t *testing.T) {
	env := newTestEnv(t, safeClassifier)
	owner := env.createUser(t, "alice")
	server, channel := env.createServer(t, owner)

	name := "new name"
	err := env.servers.Edit(context.Background(), server.ID, EditServerParams{Name: &name}, owner)
	if err != nil {
		t.Fatal(err)
	}

	got, err := env.servers.Get(context.Background(), server.ID, owner)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "new name" {
		t.Errorf("Expected name [new name], got [%s]", got.Name)
	}
	if got.OwnerID != owner.ID || got.DefaultChannelID != channel.ID {
		t.Errorf("Untouched fields changed: %+v", got)
	}
}

func TestCreateChannelVisibleToMembers(t *testing.T) {
	env := newTestEnv(t, safeClassifier)
	owner := env.createUser(t, "alice")
	member := env.createUser(t, "bob")
	server, _ := env.createServer(t, owner)
	env.addMember(t, server.ID, member.ID)

	created, err := env.servers.CreateChannel(context.Background(), server.ID, "plans", owner)
	if err != nil {
		t.Fatal(err)
	}

	channels, err := env.servers.Channels(context.Background(), server.ID, member)
	if err != nil {
		t.Fatal(err)
	}
	if len(channels) != 2 {
		t.Fatalf("Expected 2 channels, got %d", len(channels))
	}

	found := false
	for _, channel := range channels {
		if channel.ID == created.ID && channel.Name == "plans" {
			found = true
		}
	}
	if !found {
		t.Error("Expected the new channel in the member's channel list")
	}
}

func TestRemoveServerCascades(t *testing.T) {
	env := newTestEnv(t, safeClassifier)
	owner := env.createUser(t, "alice")
	member := env.createUser(t, "bob")
	server, channel := env.createServer(t, owner)
	env.addMember(t, server.ID, member.ID)

	handle := env.uploadBlob(t, "attachment")
	_, err := env.messages.Create(context.Background(), channel.ID, "doomed", []string{handle}, owner)
	if err != nil {
		t.Fatal(err)
	}
	env.queue.Drain()

	err = env.servers.Remove(context.Background(), server.ID, owner)
	if err != nil {
		t.Fatal(err)
	}

	for table, query := range map[string]string{
		"servers":        "SELECT COUNT(*) FROM servers WHERE id = ?",
		"channels":       "SELECT COUNT(*) FROM channels WHERE server_id = ?",
		"server_members": "SELECT COUNT(*) FROM server_members WHERE server_id = ?",
	} {
		var count int
		if err := env.db.QueryRow(query, server.ID).Scan(&count); err != nil {
			t.Fatal(err)
		}
		if count != 0 {
			t.Errorf("Expected no %s rows left, got %d", table, count)
		}
	}

	var count int
	if err := env.db.QueryRow("SELECT COUNT(*) FROM messages WHERE conversation_id = ?", channel.ID).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("Expected no messages left, got %d", count)
	}

	if _, ok := env.blobs.ResolveURL(handle); ok {
		t.Error("Expected the attachment blob to be reclaimed with the server")
	}
}

func TestGetUnknownServer(t *testing.T) {
	env := newTestEnv(t, safeClassifier)
	owner := env.createUser(t, "alice")

	_, err := env.servers.Get(context.Background(), 424242, owner)
	if !errors.Is(err, ErrForbidden) && !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected an authorization failure, got %v", err)
	}
}
