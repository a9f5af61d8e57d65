package hub

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Hub tracks connected websocket sessions and fans events out to them,
// either through a local pub/sub map (self-contained mode) or redis.

type Client struct {
	UserID           int64
	Conn             *websocket.Conn
	SessionID        int64
	CurrentServerID  int64
	CurrentChannelID int64
	LocalChannel     chan []byte
	PubSub           *redis.PubSub
	MsgCh            <-chan *redis.Message
	Ctx              context.Context
	mutex            sync.Mutex
}

type Hub struct {
	sugar         *zap.SugaredLogger
	redisClient   *redis.Client
	selfContained bool
	local         *LocalPubSub

	clients      map[int64]*Client
	clientsMutex sync.Mutex

	redisCtx context.Context
}

func Setup(sugar *zap.SugaredLogger, redisClient *redis.Client, selfContained bool) *Hub {
	h := &Hub{
		sugar:         sugar,
		redisClient:   redisClient,
		selfContained: selfContained,
		clients:       make(map[int64]*Client),
		redisCtx:      context.Background(),
	}
	h.local = newLocalPubSub(h)
	return h
}

func (h *Hub) HandleClient(userID int64, w http.ResponseWriter, r *http.Request) {
	h.sugar.Debugf("Connecting user ID [%d] to WebSocket", userID)

	sessionCookie, err := r.Cookie("session")
	if err != nil {
		h.sugar.Debug(err)
		switch {
		case errors.Is(err, http.ErrNoCookie):
			http.Error(w, "No session cookie was provided", http.StatusUnauthorized)
		default:
			http.Error(w, "Couldn't read session cookie", http.StatusInternalServerError)
		}
		return
	}

	sessionID, err := strconv.ParseInt(sessionCookie.Value, 10, 64)
	if err != nil {
		h.sugar.Error(err)
		http.Error(w, "Session cookie is in improper format", http.StatusBadRequest)
		return
	}

	var upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.sugar.Error(err)
		return
	}
	defer conn.Close()

	clientCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := &Client{
		UserID:       userID,
		Conn:         conn,
		SessionID:    sessionID,
		LocalChannel: make(chan []byte, 64),
		Ctx:          clientCtx,
	}

	if !h.selfContained {
		pubsub := h.redisClient.Subscribe(clientCtx)
		defer pubsub.Close()
		client.PubSub = pubsub
		client.MsgCh = pubsub.Channel()
	}

	h.setClient(sessionID, client)
	defer h.deleteClient(sessionID)

	// forward published frames to the client
	go func() {
		for {
			var frame []byte

			if h.selfContained {
				select {
				case <-client.Ctx.Done():
					return
				case frame = <-client.LocalChannel:
				}
			} else {
				select {
				case <-client.Ctx.Done():
					return
				case msg, ok := <-client.MsgCh:
					if !ok {
						return
					}
					var err error
					frame, err = base64.StdEncoding.DecodeString(msg.Payload)
					if err != nil {
						h.sugar.Error(err)
						return
					}
				}
			}

			err := client.Conn.WriteMessage(websocket.BinaryMessage, frame)
			if err != nil {
				h.sugar.Error(err)
				return
			}
		}
	}()

	// the read loop only exists to notice the client going away
	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			h.sugar.Debug(err)
			break
		}
	}
}

func (h *Hub) setClient(sessionID int64, client *Client) {
	h.sugar.Debugf("Adding user ID [%d] to clients as session ID [%d]", client.UserID, sessionID)
	h.clientsMutex.Lock()
	defer h.clientsMutex.Unlock()

	h.clients[sessionID] = client
}

func (h *Hub) deleteClient(sessionID int64) {
	h.sugar.Debugf("Removing session ID [%d] from clients", sessionID)
	h.clientsMutex.Lock()
	delete(h.clients, sessionID)
	h.clientsMutex.Unlock()

	if h.selfContained {
		h.local.UnsubscribeFromAll(sessionID)
	}
}

func (h *Hub) GetClient(sessionID int64) (*Client, bool) {
	h.clientsMutex.Lock()
	defer h.clientsMutex.Unlock()

	client, exists := h.clients[sessionID]
	return client, exists
}

// PrepareFrame prefixes the JSON payload with its event type byte.
func PrepareFrame(messageType byte, payload any) ([]byte, error) {
	jsonBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	frame := make([]byte, 1+len(jsonBytes))
	frame[0] = messageType
	copy(frame[1:], jsonBytes)
	return frame, nil
}

// Publish fans an event out to every session subscribed to targetID, which
// is a conversation ID, a server ID or a user ID depending on the event.
func (h *Hub) Publish(messageType byte, payload any, targetID int64) error {
	frame, err := PrepareFrame(messageType, payload)
	if err != nil {
		return err
	}

	if h.selfContained {
		h.local.Publish(fmt.Sprint(targetID), frame)
		return nil
	}

	b64 := base64.StdEncoding.EncodeToString(frame)
	return h.redisClient.Publish(h.redisCtx, fmt.Sprint(targetID), b64).Err()
}

// Subscribe points one of the session's slots at a new target: a session
// watches one channel, one server and its server list at a time.
func (h *Hub) Subscribe(targetID int64, slot string, sessionID int64) error {
	client, exists := h.GetClient(sessionID)
	if !exists {
		return fmt.Errorf("session ID [%d] tried to subscribe to [%d] but the session isn't connected to hub", sessionID, targetID)
	}

	client.mutex.Lock()
	defer client.mutex.Unlock()

	switch slot {
	case "channel":
		if err := h.unsubscribe(client, client.CurrentChannelID); err != nil {
			return err
		}
		client.CurrentChannelID = targetID
	case "server":
		if err := h.unsubscribe(client, client.CurrentServerID); err != nil {
			return err
		}
		client.CurrentServerID = targetID
	case "server_list":
		// no need to unsubscribe anything as it's a list of multiple servers constantly in view
	default:
		return fmt.Errorf("wrong slot [%s] was provided to Subscribe", slot)
	}

	if h.selfContained {
		h.local.Subscribe(fmt.Sprint(targetID), sessionID)
		return nil
	}

	return client.PubSub.Subscribe(client.Ctx, fmt.Sprint(targetID))
}

func (h *Hub) unsubscribe(client *Client, targetID int64) error {
	if targetID == 0 {
		return nil
	}

	if h.selfContained {
		h.local.Unsubscribe(fmt.Sprint(targetID), client.SessionID)
		return nil
	}

	return client.PubSub.Unsubscribe(client.Ctx, fmt.Sprint(targetID))
}
