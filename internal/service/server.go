package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"harmony-backend/internal/blob"
	"harmony-backend/internal/hub"
	"harmony-backend/internal/models"
	"harmony-backend/internal/snowflake"
	"harmony-backend/internal/validator"
)

type ServerService struct {
	sugar  *zap.SugaredLogger
	db     *sql.DB
	blobs  *blob.Store
	events EventPublisher
}

func NewServerService(sugar *zap.SugaredLogger, db *sql.DB, blobs *blob.Store, events EventPublisher) *ServerService {
	return &ServerService{sugar: sugar, db: db, blobs: blobs, events: events}
}

// List returns every server the actor is a member of, icon URLs resolved.
func (s *ServerService) List(ctx context.Context, actor models.User) ([]models.Server, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.owner_id, s.name, s.icon_id, s.default_channel_id
		FROM servers s JOIN server_members m ON s.id = m.server_id
		WHERE m.user_id = ?
	`, actor.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	servers := []models.Server{}
	for rows.Next() {
		var server models.Server
		var iconID sql.NullString
		err := rows.Scan(&server.ID, &server.OwnerID, &server.Name, &iconID, &server.DefaultChannelID)
		if err != nil {
			return nil, err
		}
		server.IconID = iconID.String
		servers = append(servers, server)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range servers {
		s.resolveIcon(&servers[i])
	}

	return servers, nil
}

func (s *ServerService) Get(ctx context.Context, serverID int64, actor models.User) (models.Server, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Server{}, err
	}
	defer tx.Rollback()

	if err := AssertServerMember(tx, serverID, actor); err != nil {
		return models.Server{}, err
	}

	server, err := getServer(tx, serverID)
	if err != nil {
		return models.Server{}, err
	}

	if err := tx.Commit(); err != nil {
		return models.Server{}, err
	}

	s.resolveIcon(&server)
	return server, nil
}

// Members returns the user profiles of every member of a server.
func (s *ServerService) Members(ctx context.Context, serverID int64, actor models.User) ([]models.User, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := AssertServerMember(tx, serverID, actor); err != nil {
		return nil, err
	}

	rows, err := tx.Query(`
		SELECT u.id, u.username, u.picture
		FROM server_members m JOIN users u ON m.user_id = u.id
		WHERE m.server_id = ?
	`, serverID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var user models.User
		if err := rows.Scan(&user.ID, &user.Username, &user.Picture); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return users, nil
}

// Create makes a server with its default "general" channel and the owner as
// first member.
func (s *ServerService) Create(ctx context.Context, name string, iconID string, actor models.User) (models.Server, error) {
	if err := validator.EntityName(name); err != nil {
		return models.Server{}, fmt.Errorf("%v: %w", err, ErrValidation)
	}

	serverID, err := snowflake.Generate()
	if err != nil {
		return models.Server{}, err
	}
	channelID, err := snowflake.Generate()
	if err != nil {
		return models.Server{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Server{}, err
	}
	defer tx.Rollback()

	server := models.Server{
		ID:               serverID,
		OwnerID:          actor.ID,
		Name:             name,
		IconID:           iconID,
		DefaultChannelID: channelID,
	}

	_, err = tx.Exec("INSERT INTO servers (id, owner_id, name, icon_id, default_channel_id) VALUES (?, ?, ?, ?, ?)",
		server.ID, server.OwnerID, server.Name, server.IconID, server.DefaultChannelID)
	if err != nil {
		return models.Server{}, err
	}

	_, err = tx.Exec("INSERT INTO channels (id, server_id, name) VALUES (?, ?, ?)", channelID, serverID, "general")
	if err != nil {
		return models.Server{}, err
	}

	_, err = tx.Exec("INSERT INTO server_members (server_id, user_id) VALUES (?, ?)", serverID, actor.ID)
	if err != nil {
		return models.Server{}, err
	}

	if err := tx.Commit(); err != nil {
		return models.Server{}, err
	}

	s.resolveIcon(&server)
	return server, nil
}

// EditServerParams carries the optional patch fields of a server edit; nil
// means unchanged.
type EditServerParams struct {
	Name             *string
	OwnerID          *int64
	IconID           *string
	DefaultChannelID *int64
}

// Edit patches server fields. Owner only.
func (s *ServerService) Edit(ctx context.Context, serverID int64, params EditServerParams, actor models.User) error {
	if params.Name != nil {
		if err := validator.EntityName(*params.Name); err != nil {
			return fmt.Errorf("%v: %w", err, ErrValidation)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := AssertServerOwner(tx, serverID, actor); err != nil {
		return err
	}

	if params.Name != nil {
		if _, err := tx.Exec("UPDATE servers SET name = ? WHERE id = ?", *params.Name, serverID); err != nil {
			return err
		}
	}
	if params.OwnerID != nil {
		if _, err := tx.Exec("UPDATE servers SET owner_id = ? WHERE id = ?", *params.OwnerID, serverID); err != nil {
			return err
		}
	}
	if params.IconID != nil {
		if _, err := tx.Exec("UPDATE servers SET icon_id = ? WHERE id = ?", *params.IconID, serverID); err != nil {
			return err
		}
	}
	if params.DefaultChannelID != nil {
		if _, err := tx.Exec("UPDATE servers SET default_channel_id = ? WHERE id = ?", *params.DefaultChannelID, serverID); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	if s.events != nil {
		if err := s.events.Publish(hub.ServerModified, struct {
			ID int64 `json:"id,string"`
		}{serverID}, serverID); err != nil {
			s.sugar.Error(err)
		}
	}

	return nil
}

// Remove deletes a server and everything under it: channels and membership
// rows cascade, messages of its channels are deleted explicitly and their
// attachment blobs plus the server icon are reclaimed after the commit.
func (s *ServerService) Remove(ctx context.Context, serverID int64, actor models.User) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := AssertServerOwner(tx, serverID, actor); err != nil {
		return err
	}

	server, err := getServer(tx, serverID)
	if err != nil {
		return err
	}

	orphanedBlobs, err := collectChannelMessageBlobs(tx, serverID)
	if err != nil {
		return err
	}

	_, err = tx.Exec("DELETE FROM messages WHERE conversation_id IN (SELECT id FROM channels WHERE server_id = ?)", serverID)
	if err != nil {
		return err
	}

	_, err = tx.Exec("DELETE FROM servers WHERE id = ?", serverID)
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	if server.IconID != "" {
		orphanedBlobs = append(orphanedBlobs, server.IconID)
	}
	for _, handle := range orphanedBlobs {
		if err := s.blobs.Delete(handle); err != nil {
			s.sugar.Errorf("Couldn't delete blob [%s] of removed server [%d]: %v", handle, serverID, err)
		}
	}

	if s.events != nil {
		if err := s.events.Publish(hub.ServerDeleted, struct {
			ID int64 `json:"id,string"`
		}{serverID}, serverID); err != nil {
			s.sugar.Error(err)
		}
	}

	return nil
}

// CreateChannel adds a channel to a server. Owner only, like the rest of
// server administration.
func (s *ServerService) CreateChannel(ctx context.Context, serverID int64, name string, actor models.User) (models.Channel, error) {
	if err := validator.EntityName(name); err != nil {
		return models.Channel{}, fmt.Errorf("%v: %w", err, ErrValidation)
	}

	channelID, err := snowflake.Generate()
	if err != nil {
		return models.Channel{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Channel{}, err
	}
	defer tx.Rollback()

	if err := AssertServerOwner(tx, serverID, actor); err != nil {
		return models.Channel{}, err
	}

	channel := models.Channel{ID: channelID, ServerID: serverID, Name: name}

	_, err = tx.Exec("INSERT INTO channels (id, server_id, name) VALUES (?, ?, ?)", channel.ID, channel.ServerID, channel.Name)
	if err != nil {
		return models.Channel{}, err
	}

	if err := tx.Commit(); err != nil {
		return models.Channel{}, err
	}

	if s.events != nil {
		if err := s.events.Publish(hub.ChannelCreated, channel, serverID); err != nil {
			s.sugar.Error(err)
		}
	}

	return channel, nil
}

// Channels lists a server's channels. Members only.
func (s *ServerService) Channels(ctx context.Context, serverID int64, actor models.User) ([]models.Channel, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := AssertServerMember(tx, serverID, actor); err != nil {
		return nil, err
	}

	rows, err := tx.Query("SELECT id, server_id, name FROM channels WHERE server_id = ?", serverID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	channels := []models.Channel{}
	for rows.Next() {
		var channel models.Channel
		if err := rows.Scan(&channel.ID, &channel.ServerID, &channel.Name); err != nil {
			return nil, err
		}
		channels = append(channels, channel)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return channels, nil
}

func getServer(tx *sql.Tx, serverID int64) (models.Server, error) {
	var server models.Server
	var iconID sql.NullString
	err := tx.QueryRow("SELECT id, owner_id, name, icon_id, default_channel_id FROM servers WHERE id = ?", serverID).
		Scan(&server.ID, &server.OwnerID, &server.Name, &iconID, &server.DefaultChannelID)
	if errors.Is(err, sql.ErrNoRows) {
		return server, fmt.Errorf("server [%d]: %w", serverID, ErrNotFound)
	} else if err != nil {
		return server, err
	}
	server.IconID = iconID.String
	return server, nil
}

func collectChannelMessageBlobs(tx *sql.Tx, serverID int64) ([]string, error) {
	rows, err := tx.Query("SELECT attachments FROM messages WHERE conversation_id IN (SELECT id FROM channels WHERE server_id = ?)", serverID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var handles []string
	for rows.Next() {
		var attachmentsJson string
		if err := rows.Scan(&attachmentsJson); err != nil {
			return nil, err
		}
		var attachments []string
		if err := json.Unmarshal([]byte(attachmentsJson), &attachments); err != nil {
			return nil, err
		}
		handles = append(handles, attachments...)
	}
	return handles, rows.Err()
}

func (s *ServerService) resolveIcon(server *models.Server) {
	if server.IconID == "" {
		return
	}
	if url, ok := s.blobs.ResolveURL(server.IconID); ok {
		server.IconURL = url
	}
}
