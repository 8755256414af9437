package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/chatwire/chatwire/auth"
	"github.com/chatwire/chatwire/chat"
	"github.com/chatwire/chatwire/models"
	"github.com/chatwire/chatwire/store"
	"github.com/go-chi/chi/v5"
)

type TokenHandler struct {
	options auth.TokenOptions
}

func NewTokenHandler(options auth.TokenOptions) *TokenHandler {
	return &TokenHandler{options: options}
}

type IssueTokenPayload struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

type IssueTokenResponse struct {
	Token string    `json:"token"`
	Exp   time.Time `json:"exp"`
}

// IssueTokenHandler exchanges a user identity for a signed token the
// websocket handshake accepts. It stands in for an external identity
// service; a deployment with real authentication mounts its own issuer.
func (h *TokenHandler) IssueTokenHandler(w http.ResponseWriter, r *http.Request) error {
	var payload IssueTokenPayload
	if err := DecodeJson(r.Body, &payload); err != nil {
		return NewApiError("invalid payload", http.StatusBadRequest)
	}
	r.Body.Close()

	if payload.UserID == "" || payload.Username == "" {
		return NewApiError("user_id and username are required", http.StatusBadRequest)
	}

	signed, exp, err := auth.CreateToken(auth.Identity{
		UserID:   payload.UserID,
		Username: payload.Username,
		Avatar:   payload.Avatar,
	}, h.options)
	if err != nil {
		return err
	}

	return WriteJsonResponseWithStatusCode(w, IssueTokenResponse{Token: signed, Exp: exp}, http.StatusCreated)
}

type RoomHandler struct {
	messages store.MessageStore
}

func NewRoomHandler(messages store.MessageStore) *RoomHandler {
	return &RoomHandler{messages: messages}
}

type CreateRoomPayload struct {
	// Type is "group" or "private".
	Type string `json:"type"`
	// Peers are the two participant user ids of a private room.
	Peers []string `json:"peers,omitempty"`
}

type CreateRoomResponse struct {
	ID string `json:"id"`
}

// CreateRoomHandler derives a room id. Rooms have no server-side existence
// of their own; the id is all a client needs to join and start relaying.
func (h *RoomHandler) CreateRoomHandler(w http.ResponseWriter, r *http.Request) error {
	var payload CreateRoomPayload
	if err := DecodeJson(r.Body, &payload); err != nil {
		return NewApiError("invalid payload", http.StatusBadRequest)
	}
	r.Body.Close()

	switch payload.Type {
	case "group":
		return WriteJsonResponseWithStatusCode(w,
			CreateRoomResponse{ID: chat.GroupRoomID()}, http.StatusCreated)
	case "private":
		if len(payload.Peers) != 2 || payload.Peers[0] == payload.Peers[1] {
			return NewApiError("private rooms need two distinct peers", http.StatusBadRequest)
		}
		return WriteJsonResponseWithStatusCode(w,
			CreateRoomResponse{ID: chat.PrivateRoomID(payload.Peers[0], payload.Peers[1])}, http.StatusCreated)
	default:
		return NewApiError("unknown room type", http.StatusBadRequest)
	}
}

// RoomMessagesHandler returns the persisted history of a room. This is the
// catch-up path: live delivery is at-most-once, a member that was not
// connected at broadcast time reloads history from here.
func (h *RoomHandler) RoomMessagesHandler(w http.ResponseWriter, r *http.Request) error {
	roomID := chi.URLParam(r, "roomID")

	// malformed or negative values fall back to the store defaults
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 0 {
		limit = 0
	}
	ordering := store.Ascending
	if r.URL.Query().Get("order") == "desc" {
		ordering = store.Descending
	}

	messages, err := h.messages.RoomMessages(r.Context(), roomID, ordering, offset, limit)
	if err != nil {
		return err
	}
	if messages == nil {
		messages = []models.Message{}
	}

	return WriteJsonResponse(w, messages)
}

type PresenceHandler struct {
	presence PresenceSource
}

func NewPresenceHandler(presence PresenceSource) *PresenceHandler {
	return &PresenceHandler{presence: presence}
}

// OnlineUsersHandler returns the users currently online. Clients track
// presence incrementally from user_status events; this endpoint covers
// late joiners that missed them.
func (h *PresenceHandler) OnlineUsersHandler(w http.ResponseWriter, r *http.Request) error {
	online := h.presence.Online()
	if online == nil {
		online = []models.Presence{}
	}
	return WriteJsonResponse(w, online)
}
