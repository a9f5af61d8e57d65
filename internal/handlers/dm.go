package handlers

import (
	"encoding/json"
	"net/http"
)

func CreateDirectConversation(w http.ResponseWriter, r *http.Request) {
	type CreateDirectRequest struct {
		UserID int64 `json:"userID,string"`
	}

	var request CreateDirectRequest
	err := json.NewDecoder(r.Body).Decode(&request)
	if err != nil {
		sugar.Debug(err)
		http.Error(w, "", http.StatusBadRequest)
		return
	}

	conversation, err := directs.CreateOrGet(r.Context(), request.UserID, actorFrom(r))
	if err != nil {
		httpError(w, err)
		return
	}

	err = json.NewEncoder(w).Encode(conversation)
	if err != nil {
		sugar.Error(err)
	}
}

func GetDirectConversationList(w http.ResponseWriter, r *http.Request) {
	list, err := directs.List(r.Context(), actorFrom(r))
	if err != nil {
		httpError(w, err)
		return
	}

	err = json.NewEncoder(w).Encode(list)
	if err != nil {
		sugar.Error(err)
	}
}
