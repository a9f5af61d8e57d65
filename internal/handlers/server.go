package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"harmony-backend/internal/service"
)

func CreateServer(w http.ResponseWriter, r *http.Request) {
	type CreateServerRequest struct {
		Name   string `json:"name"`
		IconID string `json:"iconID"`
	}

	var request CreateServerRequest
	err := json.NewDecoder(r.Body).Decode(&request)
	if err != nil {
		sugar.Debug(err)
		http.Error(w, "", http.StatusBadRequest)
		return
	}
	if request.Name == "" {
		request.Name = "My server"
	}

	server, err := servers.Create(r.Context(), request.Name, request.IconID, actorFrom(r))
	if err != nil {
		httpError(w, err)
		return
	}

	err = json.NewEncoder(w).Encode(server)
	if err != nil {
		sugar.Error(err)
	}
}

func GetServerList(w http.ResponseWriter, r *http.Request) {
	list, err := servers.List(r.Context(), actorFrom(r))
	if err != nil {
		httpError(w, err)
		return
	}

	for _, server := range list {
		err = wsHub.Subscribe(server.ID, "server_list", sessionFrom(r))
		if err != nil {
			sugar.Error(err)
			http.Error(w, "", http.StatusInternalServerError)
			return
		}
	}

	err = json.NewEncoder(w).Encode(list)
	if err != nil {
		sugar.Error(err)
	}
}

func GetServer(w http.ResponseWriter, r *http.Request) {
	serverID, err := strconv.ParseInt(r.URL.Query().Get("serverID"), 10, 64)
	if err != nil || serverID == 0 {
		http.Error(w, "Invalid server ID", http.StatusBadRequest)
		return
	}

	server, err := servers.Get(r.Context(), serverID, actorFrom(r))
	if err != nil {
		httpError(w, err)
		return
	}

	err = json.NewEncoder(w).Encode(server)
	if err != nil {
		sugar.Error(err)
	}
}

func EditServer(w http.ResponseWriter, r *http.Request) {
	type EditServerRequest struct {
		ServerID         int64   `json:"serverID,string"`
		Name             *string `json:"name"`
		OwnerID          *int64  `json:"ownerID,string"`
		IconID           *string `json:"iconID"`
		DefaultChannelID *int64  `json:"defaultChannelID,string"`
	}

	var request EditServerRequest
	err := json.NewDecoder(r.Body).Decode(&request)
	if err != nil {
		sugar.Debug(err)
		http.Error(w, "", http.StatusBadRequest)
		return
	}

	params := service.EditServerParams{
		Name:             request.Name,
		OwnerID:          request.OwnerID,
		IconID:           request.IconID,
		DefaultChannelID: request.DefaultChannelID,
	}

	err = servers.Edit(r.Context(), request.ServerID, params, actorFrom(r))
	if err != nil {
		httpError(w, err)
	}
}

func DeleteServer(w http.ResponseWriter, r *http.Request) {
	serverID, err := strconv.ParseInt(r.URL.Query().Get("serverID"), 10, 64)
	if err != nil || serverID == 0 {
		http.Error(w, "Invalid server ID", http.StatusBadRequest)
		return
	}

	err = servers.Remove(r.Context(), serverID, actorFrom(r))
	if err != nil {
		httpError(w, err)
	}
}

func GetMemberList(w http.ResponseWriter, r *http.Request) {
	serverID, err := strconv.ParseInt(r.URL.Query().Get("serverID"), 10, 64)
	if err != nil || serverID == 0 {
		http.Error(w, "Invalid server ID", http.StatusBadRequest)
		return
	}

	members, err := servers.Members(r.Context(), serverID, actorFrom(r))
	if err != nil {
		httpError(w, err)
		return
	}

	err = json.NewEncoder(w).Encode(members)
	if err != nil {
		sugar.Error(err)
	}
}
