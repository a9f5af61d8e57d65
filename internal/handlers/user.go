package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"harmony-backend/internal/models"
)

func GetUserInfo(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)

	paramUserID := r.URL.Query().Get("userID")
	if paramUserID == "" {
		http.Error(w, "", http.StatusBadRequest)
		return
	}

	var requestedUserID int64

	if paramUserID == "self" {
		requestedUserID = actor.ID
	} else {
		var err error
		requestedUserID, err = strconv.ParseInt(paramUserID, 10, 64)
		if err != nil {
			http.Error(w, "", http.StatusBadRequest)
			return
		}
	}

	var user models.User
	err := db.QueryRow("SELECT id, username, picture FROM users WHERE id = ?", requestedUserID).Scan(&user.ID, &user.Username, &user.Picture)
	if errors.Is(err, sql.ErrNoRows) {
		http.Error(w, "", http.StatusNotFound)
		return
	} else if err != nil {
		sugar.Error(err)
		http.Error(w, "", http.StatusInternalServerError)
		return
	}

	err = json.NewEncoder(w).Encode(user)
	if err != nil {
		sugar.Error(err)
	}
}

func UpdateUserInfo(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)

	type UpdateUserRequest struct {
		Username string `json:"username"`
		Picture  string `json:"picture"`
	}

	var request UpdateUserRequest
	err := json.NewDecoder(r.Body).Decode(&request)
	if err != nil {
		sugar.Debug(err)
		http.Error(w, "", http.StatusBadRequest)
		return
	}

	if request.Username != "" {
		_, err := db.Exec("UPDATE users SET username = ? WHERE id = ?", request.Username, actor.ID)
		if err != nil {
			sugar.Error(err)
			http.Error(w, "", http.StatusInternalServerError)
			return
		}
	}

	if request.Picture != "" {
		if _, ok := blobs.ResolveURL(request.Picture); !ok {
			http.Error(w, "Unknown picture blob", http.StatusBadRequest)
			return
		}
		_, err := db.Exec("UPDATE users SET picture = ? WHERE id = ?", request.Picture, actor.ID)
		if err != nil {
			sugar.Error(err)
			http.Error(w, "", http.StatusInternalServerError)
			return
		}
	}

	// the cached actor profile is stale now
	invalidateActorCache(actor.ID)
}
