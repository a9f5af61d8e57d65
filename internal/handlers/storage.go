package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// maxBlobSize caps a single attachment upload at 25 MB.
const maxBlobSize = 25 << 20

func BeginUpload(w http.ResponseWriter, r *http.Request) {
	handle, err := blobs.BeginUpload()
	if err != nil {
		sugar.Error(err)
		http.Error(w, "", http.StatusInternalServerError)
		return
	}

	response := struct {
		Handle    string `json:"handle"`
		UploadURL string `json:"uploadUrl"`
	}{handle, "/api/storage/upload/" + handle}

	err = json.NewEncoder(w).Encode(response)
	if err != nil {
		sugar.Error(err)
	}
}

func UploadBlob(w http.ResponseWriter, r *http.Request) {
	handle := chi.URLParam(r, "handle")

	err := blobs.Put(handle, http.MaxBytesReader(w, r.Body, maxBlobSize))
	if err != nil {
		sugar.Debug(err)
		http.Error(w, "", http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusCreated)
}

func DeleteBlob(w http.ResponseWriter, r *http.Request) {
	handle := r.URL.Query().Get("handle")
	if handle == "" {
		http.Error(w, "No blob handle was specified", http.StatusBadRequest)
		return
	}

	err := blobs.Delete(handle)
	if err != nil {
		sugar.Debug(err)
		http.Error(w, "", http.StatusBadRequest)
	}
}
