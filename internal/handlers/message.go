package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
)

func CreateMessage(w http.ResponseWriter, r *http.Request) {
	type CreateMessageRequest struct {
		ConversationID int64    `json:"conversationID,string"`
		Content        string   `json:"content"`
		Attachments    []string `json:"attachments"`
	}

	var request CreateMessageRequest
	err := json.NewDecoder(r.Body).Decode(&request)
	if err != nil {
		sugar.Debug(err)
		http.Error(w, "", http.StatusBadRequest)
		return
	}

	msg, err := messages.Create(r.Context(), request.ConversationID, request.Content, request.Attachments, actorFrom(r))
	if err != nil {
		httpError(w, err)
		return
	}

	err = json.NewEncoder(w).Encode(msg)
	if err != nil {
		sugar.Error(err)
	}
}

func GetMessageList(w http.ResponseWriter, r *http.Request) {
	conversationID, err := strconv.ParseInt(r.URL.Query().Get("conversationID"), 10, 64)
	if err != nil || conversationID == 0 {
		http.Error(w, "Invalid conversation ID", http.StatusBadRequest)
		return
	}

	list, err := messages.List(r.Context(), conversationID, actorFrom(r))
	if err != nil {
		httpError(w, err)
		return
	}

	err = wsHub.Subscribe(conversationID, "channel", sessionFrom(r))
	if err != nil {
		sugar.Error(err)
		http.Error(w, "", http.StatusInternalServerError)
		return
	}

	err = json.NewEncoder(w).Encode(list)
	if err != nil {
		sugar.Error(err)
	}
}

func EditMessage(w http.ResponseWriter, r *http.Request) {
	type EditMessageRequest struct {
		MessageID int64  `json:"messageID,string"`
		Content   string `json:"content"`
	}

	var request EditMessageRequest
	err := json.NewDecoder(r.Body).Decode(&request)
	if err != nil {
		sugar.Debug(err)
		http.Error(w, "", http.StatusBadRequest)
		return
	}

	err = messages.Edit(r.Context(), request.MessageID, request.Content, actorFrom(r))
	if err != nil {
		httpError(w, err)
	}
}

func DeleteMessage(w http.ResponseWriter, r *http.Request) {
	messageID, err := strconv.ParseInt(r.URL.Query().Get("messageID"), 10, 64)
	if err != nil || messageID == 0 {
		http.Error(w, "Invalid message ID", http.StatusBadRequest)
		return
	}

	err = messages.Remove(r.Context(), messageID, actorFrom(r))
	if err != nil {
		httpError(w, err)
	}
}
