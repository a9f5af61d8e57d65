package handlers

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"harmony-backend/internal/blob"
	"harmony-backend/internal/hub"
	"harmony-backend/internal/models"
	"harmony-backend/internal/service"
)

var sugar *zap.SugaredLogger
var db *sql.DB
var validate = validator.New()

var blobs *blob.Store
var wsHub *hub.Hub

var messages *service.MessageService
var servers *service.ServerService
var typing *service.TypingService
var directs *service.DirectService

type Services struct {
	Blobs    *blob.Store
	Hub      *hub.Hub
	Messages *service.MessageService
	Servers  *service.ServerService
	Typing   *service.TypingService
	Directs  *service.DirectService
}

func Setup(isHttps bool, cfg *models.ConfigFile, _sugar *zap.SugaredLogger, _db *sql.DB, svc Services) error {
	sugar = _sugar
	db = _db
	blobs = svc.Blobs
	wsHub = svc.Hub
	messages = svc.Messages
	servers = svc.Servers
	typing = svc.Typing
	directs = svc.Directs

	r := chi.NewRouter()

	if cfg.PrintHttpRequests {
		r.Use(middleware.Logger)
	}

	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Route("/api", func(api chi.Router) {
		api.Route("/auth", func(r chi.Router) {
			r.Post("/login", Login)
			r.Post("/register", Register)
			r.With(UserVerifier).Get("/newSession", NewSession)
			r.With(UserVerifier).Get("/isLoggedIn", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
		})

		api.Route("/user", func(r chi.Router) {
			r.Use(UserVerifier)
			r.Get("/fetch", GetUserInfo)
			r.Post("/update", UpdateUserInfo)
		})

		api.Route("/server", func(r chi.Router) {
			r.Use(UserVerifier)
			r.Post("/create", CreateServer)
			r.With(SessionVerifier).Get("/fetch", GetServerList)
			r.Get("/get", GetServer)
			r.Post("/edit", EditServer)
			r.Post("/delete", DeleteServer)
		})

		api.Route("/channel", func(r chi.Router) {
			r.Use(UserVerifier)
			r.Post("/create", CreateChannel)
			r.With(SessionVerifier).Get("/fetch", GetChannelList)
		})

		api.Route("/dm", func(r chi.Router) {
			r.Use(UserVerifier)
			r.Post("/create", CreateDirectConversation)
			r.Get("/fetch", GetDirectConversationList)
		})

		api.Route("/message", func(r chi.Router) {
			r.Use(UserVerifier)
			r.Post("/create", CreateMessage)
			r.With(SessionVerifier).Get("/fetch", GetMessageList)
			r.Post("/edit", EditMessage)
			r.Post("/delete", DeleteMessage)
		})

		api.Route("/typing", func(r chi.Router) {
			r.Use(UserVerifier)
			r.Post("/start", StartTyping)
			r.Post("/stop", StopTyping)
			r.Get("/fetch", GetTypingList)
		})

		api.Route("/storage", func(r chi.Router) {
			r.Use(UserVerifier)
			r.Post("/begin", BeginUpload)
			r.Put("/upload/{handle}", UploadBlob)
			r.Post("/delete", DeleteBlob)
		})

		api.Route("/members", func(r chi.Router) {
			r.Use(UserVerifier)
			r.Get("/fetch", GetMemberList)
		})
	})

	var websocketPath string

	if cfg.BehindNginx {
		websocketPath = "/ws/"
	} else {
		websocketPath = "/ws"
		r.Handle("/cdn/*", http.StripPrefix("/cdn/", http.FileServer(http.Dir("./public"))))
		r.Handle("/*", http.FileServer(http.Dir("./public/static")))
	}

	r.With(UserVerifier).Get(websocketPath, HandleWebSocket)

	address := fmt.Sprintf("%s:%s", cfg.Address, cfg.Port)

	if isHttps {
		return http.ListenAndServeTLS(address, cfg.TlsCert, cfg.TlsKey, r)
	}
	return http.ListenAndServe(address, r)
}
