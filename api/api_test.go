package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/chatwire/chatwire/auth"
	"github.com/chatwire/chatwire/models"
	"github.com/chatwire/chatwire/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var tokenOptions = auth.TokenOptions{Secret: []byte("test-secret"), Exp: time.Hour}

type stubMessageStore struct {
	messages   map[string][]models.Message
	lastOffset int
	lastLimit  int
}

func (s *stubMessageStore) Insert(ctx context.Context, input store.MessageCreateInput) (*models.Message, error) {
	return nil, nil
}

func (s *stubMessageStore) RoomMessages(ctx context.Context, roomID string, ordering store.Ordering, offset, limit int) ([]models.Message, error) {
	s.lastOffset = offset
	s.lastLimit = limit
	return s.messages[roomID], nil
}

func (s *stubMessageStore) MarkRead(ctx context.Context, roomID string, messageIDs []string) ([]string, error) {
	return nil, nil
}

type stubPresence struct {
	online []models.Presence
}

func (s *stubPresence) Online() []models.Presence {
	return s.online
}

func newTestServer(t *testing.T, messages *stubMessageStore, presence *stubPresence) *httptest.Server {
	t.Helper()
	if messages == nil {
		messages = &stubMessageStore{}
	}
	if presence == nil {
		presence = &stubPresence{}
	}
	api := NewApi(ApiConfig{TokenOptions: tokenOptions}, messages, presence)
	s := httptest.NewServer(api.Mux())
	t.Cleanup(s.Close)
	return s
}

func postJson(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	require.Nil(t, err)
	res, err := http.Post(url, "application/json", bytes.NewReader(b))
	require.Nil(t, err)
	return res
}

func TestIssueToken(t *testing.T) {
	s := newTestServer(t, nil, nil)

	t.Run("issues a verifiable token", func(t *testing.T) {
		res := postJson(t, s.URL+"/tokens",
			IssueTokenPayload{UserID: "u1", Username: "User One", Avatar: "a1"})
		defer res.Body.Close()
		require.Equal(t, http.StatusCreated, res.StatusCode)

		var body IssueTokenResponse
		require.Nil(t, json.NewDecoder(res.Body).Decode(&body))
		require.NotEmpty(t, body.Token)

		claims, err := auth.VerifyToken(body.Token, tokenOptions)
		require.Nil(t, err)
		assert.Equal(t, "u1", claims.Subject)
		assert.Equal(t, "User One", claims.Username)
	})

	t.Run("rejects a payload without identity", func(t *testing.T) {
		res := postJson(t, s.URL+"/tokens", IssueTokenPayload{Avatar: "a1"})
		defer res.Body.Close()
		assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	})
}

func TestCreateRoom(t *testing.T) {
	s := newTestServer(t, nil, nil)

	t.Run("creates a group room id", func(t *testing.T) {
		res := postJson(t, s.URL+"/rooms", CreateRoomPayload{Type: "group"})
		defer res.Body.Close()
		require.Equal(t, http.StatusCreated, res.StatusCode)

		var body CreateRoomResponse
		require.Nil(t, json.NewDecoder(res.Body).Decode(&body))
		assert.Len(t, body.ID, 32)
	})

	t.Run("private room ids are deterministic", func(t *testing.T) {
		var ids [2]string
		for i, peers := range [][]string{{"u1", "u2"}, {"u2", "u1"}} {
			res := postJson(t, s.URL+"/rooms", CreateRoomPayload{Type: "private", Peers: peers})
			require.Equal(t, http.StatusCreated, res.StatusCode)
			var body CreateRoomResponse
			require.Nil(t, json.NewDecoder(res.Body).Decode(&body))
			res.Body.Close()
			ids[i] = body.ID
		}
		assert.Equal(t, ids[0], ids[1])
	})

	t.Run("rejects unknown room types", func(t *testing.T) {
		res := postJson(t, s.URL+"/rooms", CreateRoomPayload{Type: "broadcast"})
		defer res.Body.Close()
		assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	})
}

func TestRoomMessages(t *testing.T) {
	messages := &stubMessageStore{messages: map[string][]models.Message{
		"r1": {{ID: "m1", RoomID: "r1", Sender: "u1", Body: "hi", Type: models.TextMessage}},
	}}
	s := newTestServer(t, messages, nil)

	t.Run("returns room history", func(t *testing.T) {
		res, err := http.Get(s.URL + "/rooms/r1/messages")
		require.Nil(t, err)
		defer res.Body.Close()
		require.Equal(t, http.StatusOK, res.StatusCode)

		var body []models.Message
		require.Nil(t, json.NewDecoder(res.Body).Decode(&body))
		require.Len(t, body, 1)
		assert.Equal(t, "m1", body[0].ID)
	})

	t.Run("negative pagination params are clamped", func(t *testing.T) {
		res, err := http.Get(s.URL + "/rooms/r1/messages?offset=-3&limit=-5")
		require.Nil(t, err)
		defer res.Body.Close()
		require.Equal(t, http.StatusOK, res.StatusCode)

		assert.Equal(t, 0, messages.lastOffset)
		assert.Equal(t, 0, messages.lastLimit)
	})

	t.Run("unknown room returns an empty list", func(t *testing.T) {
		res, err := http.Get(s.URL + "/rooms/empty/messages")
		require.Nil(t, err)
		defer res.Body.Close()
		require.Equal(t, http.StatusOK, res.StatusCode)

		var body []models.Message
		require.Nil(t, json.NewDecoder(res.Body).Decode(&body))
		assert.Len(t, body, 0)
	})
}

func TestOnlineUsers(t *testing.T) {
	presence := &stubPresence{online: []models.Presence{
		{UserID: "u1", Username: "User One", Online: true},
	}}
	s := newTestServer(t, nil, presence)

	res, err := http.Get(s.URL + "/presence")
	require.Nil(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var body []models.Presence
	require.Nil(t, json.NewDecoder(res.Body).Decode(&body))
	require.Len(t, body, 1)
	assert.Equal(t, "u1", body[0].UserID)
}
