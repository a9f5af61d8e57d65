package hub

import (
	"sync"
)

// LocalPubSub replaces redis pub/sub in self-contained mode. Channels are
// conversation/server IDs, subscribers are session IDs.
type LocalPubSub struct {
	mutex   sync.RWMutex
	hashMap map[string][]int64
	hub     *Hub
}

func newLocalPubSub(hub *Hub) *LocalPubSub {
	return &LocalPubSub{
		hashMap: make(map[string][]int64),
		hub:     hub,
	}
}

func (ps *LocalPubSub) Subscribe(channel string, sessionID int64) {
	ps.mutex.Lock()
	defer ps.mutex.Unlock()

	for _, existing := range ps.hashMap[channel] {
		if existing == sessionID {
			return
		}
	}

	ps.hashMap[channel] = append(ps.hashMap[channel], sessionID)
}

func (ps *LocalPubSub) Unsubscribe(channel string, sessionID int64) {
	ps.mutex.Lock()
	defer ps.mutex.Unlock()

	sessionIDs := ps.hashMap[channel]

	// this won't run in case channel doesn't exist since length will be 0
	for i := range sessionIDs {
		if sessionIDs[i] == sessionID {
			sessionIDs[i] = sessionIDs[len(sessionIDs)-1]
			ps.hashMap[channel] = sessionIDs[:len(sessionIDs)-1]
			break
		}
	}

	// delete channel from map if no user is subscribed to it
	if len(ps.hashMap[channel]) == 0 {
		delete(ps.hashMap, channel)
	}
}

func (ps *LocalPubSub) UnsubscribeFromAll(sessionID int64) {
	ps.mutex.Lock()
	channels := make([]string, 0, len(ps.hashMap))
	for key := range ps.hashMap {
		channels = append(channels, key)
	}
	ps.mutex.Unlock()

	for _, channel := range channels {
		ps.Unsubscribe(channel, sessionID)
	}
}

func (ps *LocalPubSub) Publish(channel string, frame []byte) {
	ps.mutex.RLock()
	defer ps.mutex.RUnlock()

	sessionIDs := ps.hashMap[channel]
	for i := range sessionIDs {
		client, exists := ps.hub.GetClient(sessionIDs[i])
		if exists {
			select {
			case client.LocalChannel <- frame:
			default:
				ps.hub.sugar.Warnf("Dropping frame for slow session ID %d", sessionIDs[i])
			}
		} else {
			ps.hub.sugar.Warnf("Session ID %d is supposed to be available", sessionIDs[i])
		}
	}
}
