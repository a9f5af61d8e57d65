package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
)

func StartTyping(w http.ResponseWriter, r *http.Request) {
	conversationID, err := strconv.ParseInt(r.URL.Query().Get("conversationID"), 10, 64)
	if err != nil || conversationID == 0 {
		http.Error(w, "Invalid conversation ID", http.StatusBadRequest)
		return
	}

	err = typing.Upsert(r.Context(), conversationID, actorFrom(r))
	if err != nil {
		httpError(w, err)
	}
}

func StopTyping(w http.ResponseWriter, r *http.Request) {
	conversationID, err := strconv.ParseInt(r.URL.Query().Get("conversationID"), 10, 64)
	if err != nil || conversationID == 0 {
		http.Error(w, "Invalid conversation ID", http.StatusBadRequest)
		return
	}

	actor := actorFrom(r)
	err = typing.Clear(conversationID, actor.ID)
	if err != nil {
		httpError(w, err)
	}
}

func GetTypingList(w http.ResponseWriter, r *http.Request) {
	conversationID, err := strconv.ParseInt(r.URL.Query().Get("conversationID"), 10, 64)
	if err != nil || conversationID == 0 {
		http.Error(w, "Invalid conversation ID", http.StatusBadRequest)
		return
	}

	usernames, err := typing.List(conversationID)
	if err != nil {
		httpError(w, err)
		return
	}

	err = json.NewEncoder(w).Encode(usernames)
	if err != nil {
		sugar.Error(err)
	}
}
