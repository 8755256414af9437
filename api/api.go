package api

import (
	"net/http"

	"github.com/chatwire/chatwire/auth"
	"github.com/chatwire/chatwire/models"
	"github.com/chatwire/chatwire/store"
	"github.com/go-chi/cors"
)

type ApiConfig struct {
	TokenOptions   auth.TokenOptions
	AllowedOrigins []string
}

// PresenceSource is a read-only view over the relay's identity registry.
type PresenceSource interface {
	Online() []models.Presence
}

type Api struct {
	mux      *ApiMux
	config   ApiConfig
	messages store.MessageStore
	presence PresenceSource
}

func NewApi(config ApiConfig, messages store.MessageStore, presence PresenceSource) *Api {
	api := &Api{
		mux:      NewApiMux(),
		config:   config,
		messages: messages,
		presence: presence,
	}
	api.mountHandlers()
	return api
}

func (a *Api) Mux() http.Handler {
	return a.mux
}

func (a *Api) mountHandlers() {
	origins := a.config.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	a.mux.Router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
	}))

	tokenHandler := NewTokenHandler(a.config.TokenOptions)
	roomHandler := NewRoomHandler(a.messages)
	presenceHandler := NewPresenceHandler(a.presence)

	a.mux.Post("/tokens", tokenHandler.IssueTokenHandler)
	a.mux.Route("/rooms", func(r *ApiMux) {
		r.Post("/", roomHandler.CreateRoomHandler)
		r.Get("/{roomID}/messages", roomHandler.RoomMessagesHandler)
	})
	a.mux.Get("/presence", presenceHandler.OnlineUsersHandler)
}
