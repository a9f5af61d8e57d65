package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"harmony-backend/internal/jwt"
	"harmony-backend/internal/keyValue"
	"harmony-backend/internal/models"
	"harmony-backend/internal/service"
)

type SessionIDKeyType struct{}
type ActorKeyType struct{}

const actorCacheTTL = 15 * time.Minute

// UserVerifier is the identity resolver: it turns the JWT cookie into a
// concrete user record and stores it in the request context as the actor.
// Every authenticated route sits behind it; nothing else runs when it
// fails.
func UserVerifier(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		jwtCookie, err := r.Cookie("JWT")
		if err != nil {
			sugar.Debug(err)
			switch {
			case errors.Is(err, http.ErrNoCookie):
				http.Error(w, "No jwt cookie was provided", http.StatusUnauthorized)
			default:
				http.Error(w, "Couldn't read jwt cookie", http.StatusInternalServerError)
			}
			return
		}

		userToken, err := jwt.VerifyToken(jwtCookie.Value)
		if err != nil {
			sugar.Debug(err)
			http.Error(w, "Couldn't verify JWT", http.StatusUnauthorized)
			return
		}

		expired := time.Now().UTC().After(userToken.ExpiresAt.UTC())
		if expired {
			http.Error(w, "Login expired", http.StatusUnauthorized)
			return
		}

		actor, found, err := resolveActor(userToken.UserID)
		if err != nil {
			sugar.Error(err)
			http.Error(w, "", http.StatusInternalServerError)
			return
		}

		// delete the JWT cookie from the client, this should run when a user
		// deleted their account but kept the token for any reason
		if !found {
			deleteJwtCookie := &http.Cookie{
				Name:     "JWT",
				Value:    "",
				Path:     "/",
				Expires:  time.Unix(0, 0),
				HttpOnly: true,
			}

			http.SetCookie(w, deleteJwtCookie)
			http.Error(w, "", http.StatusUnauthorized)
			return
		}

		// renew JWT and cookie
		timeSinceLast := time.Now().UTC().Sub(userToken.IssuedAt.Time)

		if timeSinceLast >= 15*time.Minute {
			updatedCookie, err := jwt.CreateToken(userToken.Remember, userToken.UserID)
			if err != nil {
				sugar.Error(err)
				http.Error(w, "Couldn't renew cookie", http.StatusInternalServerError)
				return
			}

			http.SetCookie(w, &updatedCookie)
		}

		ctx := context.WithValue(r.Context(), ActorKeyType{}, actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// resolveActor loads the user record for an ID, going through the keyValue
// cache first.
func resolveActor(userID int64) (models.User, bool, error) {
	key := fmt.Sprintf("user_profile:%d", userID)

	cached, err := keyValue.Get(key)
	if err != nil {
		return models.User{}, false, err
	}
	if cached != "" {
		var actor models.User
		if err := json.Unmarshal([]byte(cached), &actor); err == nil {
			return actor, true, nil
		}
		// fall through to the database on a bad cache entry
	}

	var actor models.User
	err = db.QueryRow("SELECT id, username, picture FROM users WHERE id = ?", userID).Scan(&actor.ID, &actor.Username, &actor.Picture)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, false, nil
	} else if err != nil {
		return models.User{}, false, err
	}

	bytes, err := json.Marshal(actor)
	if err != nil {
		return models.User{}, false, err
	}
	if err := keyValue.Set(key, string(bytes), actorCacheTTL); err != nil {
		return models.User{}, false, err
	}

	return actor, true, nil
}

func invalidateActorCache(userID int64) {
	err := keyValue.Delete(fmt.Sprintf("user_profile:%d", userID))
	if err != nil {
		sugar.Error(err)
	}
}

func actorFrom(r *http.Request) models.User {
	return r.Context().Value(ActorKeyType{}).(models.User)
}

// SessionVerifier requires a live websocket session on top of an identity,
// so fetch endpoints can subscribe the session to updates.
func SessionVerifier(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionCookie, err := r.Cookie("session")
		if err != nil {
			sugar.Debug(err)
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
			sugar.Error(err)
			http.Error(w, "Session cookie is in improper format", http.StatusBadRequest)
			return
		}

		_, exists := wsHub.GetClient(sessionID)
		if exists {
			ctx := context.WithValue(r.Context(), SessionIDKeyType{}, sessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		} else {
			http.Error(w, "You are not connected to websocket", http.StatusUnauthorized)
		}
	})
}

func sessionFrom(r *http.Request) int64 {
	return r.Context().Value(SessionIDKeyType{}).(int64)
}

// httpError maps a service error kind to its status code. Unknown errors
// are internal and intentionally carry no body.
func httpError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrUnauthorized):
		http.Error(w, err.Error(), http.StatusUnauthorized)
	case errors.Is(err, service.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, service.ErrForbidden):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, service.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		sugar.Error(err)
		http.Error(w, "", http.StatusInternalServerError)
	}
}
