package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"go.uber.org/zap"

	"harmony-backend/internal/blob"
	"harmony-backend/internal/database"
	"harmony-backend/internal/keyValue"
	"harmony-backend/internal/models"
	"harmony-backend/internal/moderation"
	"harmony-backend/internal/snowflake"
	"harmony-backend/internal/tasks"
)

func TestMain(m *testing.M) {
	keyValue.Setup(zap.NewNop().Sugar(), nil, true)
	m.Run()
}

// classifierFunc lets each test decide the verdict for a content string.
type classifierFunc func(ctx context.Context, content string) (string, error)

func (f classifierFunc) Classify(ctx context.Context, content string) (string, error) {
	return f(ctx, content)
}

type testEnv struct {
	db       *sql.DB
	blobs    *blob.Store
	queue    *tasks.Queue
	pipeline *moderation.Pipeline
	messages *MessageService
	servers  *ServerService
	typing   *TypingService
	directs  *DirectService
}

// newTestEnv wires the services against an in-memory database, a temp-dir
// blob store and a real task queue whose moderation handler uses the given
// classifier.
func newTestEnv(t *testing.T, classify classifierFunc) *testEnv {
	t.Helper()

	db, err := database.OpenMemory()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	sugar := zap.NewNop().Sugar()

	blobs, err := blob.Setup(sugar, t.TempDir(), "/cdn/attachments")
	if err != nil {
		t.Fatal(err)
	}

	queue := tasks.NewQueue(sugar, 64)

	env := &testEnv{
		db:       db,
		blobs:    blobs,
		queue:    queue,
		pipeline: moderation.NewPipeline(sugar, db, classify, nil),
		messages: NewMessageService(sugar, db, blobs, queue, nil),
		servers:  NewServerService(sugar, db, blobs, nil),
		typing:   NewTypingService(sugar, db, nil),
		directs:  NewDirectService(sugar, db),
	}

	typing := env.typing
	queue.Handle(tasks.TypingClear{}.Kind(), func(ctx context.Context, task tasks.Task) error {
		payload := task.(tasks.TypingClear)
		return typing.Clear(payload.ConversationID, payload.UserID)
	})
	queue.Handle(tasks.ModerationRun{}.Kind(), func(ctx context.Context, task tasks.Task) error {
		payload := task.(tasks.ModerationRun)
		return env.pipeline.Run(ctx, payload.MessageID)
	})
	queue.Start(4)
	t.Cleanup(queue.Close)

	return env
}

func safeClassifier(ctx context.Context, content string) (string, error) {
	return "safe", nil
}

func (e *testEnv) createUser(t *testing.T, username string) models.User {
	t.Helper()

	id, err := snowflake.Generate()
	if err != nil {
		t.Fatal(err)
	}

	user := models.User{ID: id, Email: username + "@example.com", Username: username}
	_, err = e.db.Exec("INSERT INTO users (id, email, username, picture, password) VALUES (?, ?, ?, '', ?)",
		user.ID, user.Email, user.Username, []byte("x"))
	if err != nil {
		t.Fatal(err)
	}
	return user
}

// createServer makes a server owned by the given user and returns it with
// its default channel.
func (e *testEnv) createServer(t *testing.T, owner models.User) (models.Server, models.Channel) {
	t.Helper()

	server, err := e.servers.Create(context.Background(), "test server", "", owner)
	if err != nil {
		t.Fatal(err)
	}

	channels, err := e.servers.Channels(context.Background(), server.ID, owner)
	if err != nil {
		t.Fatal(err)
	}
	if len(channels) != 1 {
		t.Fatalf("Expected 1 default channel, got %d", len(channels))
	}
	return server, channels[0]
}

func (e *testEnv) addMember(t *testing.T, serverID int64, userID int64) {
	t.Helper()

	_, err := e.db.Exec("INSERT INTO server_members (server_id, user_id) VALUES (?, ?)", serverID, userID)
	if err != nil {
		t.Fatal(err)
	}
}

func (e *testEnv) uploadBlob(t *testing.T, content string) string {
	t.Helper()

	handle, err := e.blobs.BeginUpload()
	if err != nil {
		t.Fatal(err)
	}
	if err := e.blobs.Put(handle, strings.NewReader(content)); err != nil {
		t.Fatal(err)
	}
	return handle
}
