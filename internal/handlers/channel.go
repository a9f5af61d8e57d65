package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
)

func CreateChannel(w http.ResponseWriter, r *http.Request) {
	type CreateChannelRequest struct {
		ServerID int64  `json:"serverID,string"`
		Name     string `json:"name"`
	}

	var request CreateChannelRequest
	err := json.NewDecoder(r.Body).Decode(&request)
	if err != nil {
		sugar.Debug(err)
		http.Error(w, "", http.StatusBadRequest)
		return
	}
	if request.Name == "" {
		request.Name = "New Channel"
	}

	channel, err := servers.CreateChannel(r.Context(), request.ServerID, request.Name, actorFrom(r))
	if err != nil {
		httpError(w, err)
		return
	}

	err = json.NewEncoder(w).Encode(channel)
	if err != nil {
		sugar.Error(err)
	}
}

func GetChannelList(w http.ResponseWriter, r *http.Request) {
	serverID, err := strconv.ParseInt(r.URL.Query().Get("serverID"), 10, 64)
	if err != nil || serverID == 0 {
		http.Error(w, "Invalid server ID", http.StatusBadRequest)
		return
	}

	channels, err := servers.Channels(r.Context(), serverID, actorFrom(r))
	if err != nil {
		httpError(w, err)
		return
	}

	err = wsHub.Subscribe(serverID, "server", sessionFrom(r))
	if err != nil {
		sugar.Error(err)
		http.Error(w, "", http.StatusInternalServerError)
		return
	}

	err = json.NewEncoder(w).Encode(channels)
	if err != nil {
		sugar.Error(err)
	}
}
