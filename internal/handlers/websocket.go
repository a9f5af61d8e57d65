package handlers

import (
	"net/http"
)

func HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)

	wsHub.HandleClient(actor.ID, w, r)
}
