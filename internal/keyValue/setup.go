package keyValue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Ephemeral key/value state: typing indicators and the identity cache live
// here. Self-contained mode keeps everything in a local map with its own
// expiry sweep, otherwise redis handles TTLs natively.

type Value struct {
	value   string
	expires time.Time
}

var mutex sync.RWMutex
var hashmap = make(map[string]Value)

var sugar *zap.SugaredLogger
var redisClient *redis.Client
var redisCtx = context.Background()
var selfContained = true

func Setup(_sugar *zap.SugaredLogger, _redisClient *redis.Client, _selfContained bool) {
	sugar = _sugar
	redisClient = _redisClient
	selfContained = _selfContained

	if selfContained {
		go checkForLocalExpiredKeys()
	}
}

func checkForLocalExpiredKeys() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		mutex.Lock()
		for key, v := range hashmap {
			if v.expires.Before(time.Now()) {
				delete(hashmap, key)
			}
		}
		mutex.Unlock()
	}
}

func Get(key string) (string, error) {
	if selfContained {
		mutex.RLock()
		defer mutex.RUnlock()

		v, ok := hashmap[key]
		if !ok || v.expires.Before(time.Now()) {
			return "", nil
		}

		return v.value, nil
	}

	value, err := redisClient.Get(redisCtx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	} else if err != nil {
		return "", err
	}

	return value, err
}

func Set(key string, value string, expires time.Duration) error {
	sugar.Debugf("Setting value of key [%s]", key)
	if selfContained {
		mutex.Lock()
		defer mutex.Unlock()

		hashmap[key] = Value{value, time.Now().Add(expires)}

		return nil
	}

	_, err := redisClient.Set(redisCtx, key, value, expires).Result()
	return err
}

func Delete(key string) error {
	sugar.Debugf("Deleting key [%s]", key)
	if selfContained {
		mutex.Lock()
		defer mutex.Unlock()

		delete(hashmap, key)

		return nil
	}

	return redisClient.Del(redisCtx, key).Err()
}

// Scan returns the live values of every key starting with prefix. Typing
// indicator listings are built on this.
func Scan(prefix string) (map[string]string, error) {
	result := make(map[string]string)

	if selfContained {
		mutex.RLock()
		defer mutex.RUnlock()

		now := time.Now()
		for key, v := range hashmap {
			if strings.HasPrefix(key, prefix) && v.expires.After(now) {
				result[key] = v.value
			}
		}

		return result, nil
	}

	iter := redisClient.Scan(redisCtx, 0, fmt.Sprintf("%s*", prefix), 0).Iterator()
	for iter.Next(redisCtx) {
		key := iter.Val()
		value, err := redisClient.Get(redisCtx, key).Result()
		if errors.Is(err, redis.Nil) {
			continue // expired between scan and get
		} else if err != nil {
			return nil, err
		}
		result[key] = value
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
