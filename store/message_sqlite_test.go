package store

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/chatwire/chatwire/models"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Fixture struct {
	store    MessageStore
	db       *sql.DB
	ctx      context.Context
	tearDown func()
	t        *testing.T
}

func NewFixture(t *testing.T) *Fixture {
	ctx, cancel := context.WithCancel(context.Background())

	db, err := sql.Open("sqlite3", "file::memory:?cache=shared")
	if err != nil {
		t.Fatal(err)
	}

	migrationfs := os.DirFS("../migrations")
	goose.SetBaseFS(migrationfs)

	if err := goose.SetDialect("sqlite3"); err != nil {
		t.Fatal(err)
	}

	if err := goose.Up(db, "."); err != nil {
		t.Fatal(err)
	}

	f := &Fixture{
		store: NewSQLiteMessageStore(db),
		ctx:   ctx,
		db:    db,
		tearDown: func() {
			goose.Down(db, ".")
			cancel()
			db.Close()
		},
		t: t,
	}

	return f
}

func seedMessages(f *Fixture, roomID string, n int) []models.Message {
	base := time.Now().UTC().Truncate(time.Second)
	messages := make([]models.Message, 0, n)
	for i := 0; i < n; i++ {
		created, err := f.store.Insert(f.ctx, MessageCreateInput{
			ID:     uuid.New().String(),
			RoomID: roomID,
			Sender: "u1",
			Body:   "hello",
			Type:   models.TextMessage,
			SentAt: base.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			f.t.Fatal(err)
		}
		messages = append(messages, *created)
	}
	return messages
}

func TestInsert(t *testing.T) {

	t.Run("insert message successfully", func(t *testing.T) {
		f := NewFixture(t)
		defer f.tearDown()

		input := MessageCreateInput{
			ID:           uuid.New().String(),
			RoomID:       "r1",
			Sender:       "u1",
			SenderName:   "User One",
			SenderAvatar: "avatar-1",
			Body:         "hi",
			Type:         models.TextMessage,
			SentAt:       time.Now().UTC(),
		}

		created, err := f.store.Insert(f.ctx, input)
		require.Nil(t, err)
		require.NotNil(t, created)
		assert.Equal(t, input.ID, created.ID)
		assert.False(t, created.Read)

		messages, err := f.store.RoomMessages(f.ctx, "r1", Ascending, 0, 0)
		require.Nil(t, err)
		require.Len(t, messages, 1)
		assert.Equal(t, input.Body, messages[0].Body)
		assert.Equal(t, input.Sender, messages[0].Sender)
		assert.False(t, messages[0].Read)
	})

	t.Run("insert message with unsupported type", func(t *testing.T) {
		f := NewFixture(t)
		defer f.tearDown()

		_, err := f.store.Insert(f.ctx, MessageCreateInput{
			ID:     uuid.New().String(),
			RoomID: "r1",
			Sender: "u1",
			Body:   "hi",
			Type:   "sticker",
			SentAt: time.Now().UTC(),
		})
		assert.ErrorIs(t, err, ErrInvalidMessageType)
	})

	t.Run("insert message with missing fields", func(t *testing.T) {
		f := NewFixture(t)
		defer f.tearDown()

		_, err := f.store.Insert(f.ctx, MessageCreateInput{
			ID:     uuid.New().String(),
			RoomID: "r1",
			Type:   models.TextMessage,
			SentAt: time.Now().UTC(),
		})
		assert.ErrorIs(t, err, ErrInvalidMessage)
	})
}

func TestRoomMessages(t *testing.T) {

	t.Run("messages are ordered by sent time", func(t *testing.T) {
		f := NewFixture(t)
		defer f.tearDown()
		seeded := seedMessages(f, "r1", 3)

		asc, err := f.store.RoomMessages(f.ctx, "r1", Ascending, 0, 0)
		require.Nil(t, err)
		require.Len(t, asc, 3)
		for i, m := range asc {
			assert.Equal(t, seeded[i].ID, m.ID)
		}

		desc, err := f.store.RoomMessages(f.ctx, "r1", Descending, 0, 0)
		require.Nil(t, err)
		require.Len(t, desc, 3)
		for i, m := range desc {
			assert.Equal(t, seeded[len(seeded)-1-i].ID, m.ID)
		}
	})

	t.Run("unknown room returns no messages and no error", func(t *testing.T) {
		f := NewFixture(t)
		defer f.tearDown()

		messages, err := f.store.RoomMessages(f.ctx, "nope", Ascending, 0, 0)
		require.Nil(t, err)
		assert.Nil(t, messages)
	})

	t.Run("negative offset and limit fall back to the defaults", func(t *testing.T) {
		f := NewFixture(t)
		defer f.tearDown()
		seedMessages(f, "r1", 3)

		messages, err := f.store.RoomMessages(f.ctx, "r1", Ascending, -1, -5)
		require.Nil(t, err)
		assert.Len(t, messages, 3)
	})

	t.Run("offset and limit paginate the results", func(t *testing.T) {
		f := NewFixture(t)
		defer f.tearDown()
		seeded := seedMessages(f, "r1", 5)

		page, err := f.store.RoomMessages(f.ctx, "r1", Ascending, 2, 2)
		require.Nil(t, err)
		require.Len(t, page, 2)
		assert.Equal(t, seeded[2].ID, page[0].ID)
		assert.Equal(t, seeded[3].ID, page[1].ID)
	})
}

func TestMarkRead(t *testing.T) {

	t.Run("marks messages read and reports changed ids", func(t *testing.T) {
		f := NewFixture(t)
		defer f.tearDown()
		seeded := seedMessages(f, "r1", 2)

		ids := []string{seeded[0].ID, seeded[1].ID}
		changed, err := f.store.MarkRead(f.ctx, "r1", ids)
		require.Nil(t, err)
		assert.ElementsMatch(t, ids, changed)

		messages, err := f.store.RoomMessages(f.ctx, "r1", Ascending, 0, 0)
		require.Nil(t, err)
		for _, m := range messages {
			assert.True(t, m.Read)
		}
	})

	t.Run("mark read is idempotent", func(t *testing.T) {
		f := NewFixture(t)
		defer f.tearDown()
		seeded := seedMessages(f, "r1", 1)

		ids := []string{seeded[0].ID}
		changed, err := f.store.MarkRead(f.ctx, "r1", ids)
		require.Nil(t, err)
		assert.Len(t, changed, 1)

		changed, err = f.store.MarkRead(f.ctx, "r1", ids)
		require.Nil(t, err)
		assert.Len(t, changed, 0)

		messages, err := f.store.RoomMessages(f.ctx, "r1", Ascending, 0, 0)
		require.Nil(t, err)
		require.Len(t, messages, 1)
		assert.True(t, messages[0].Read)
	})

	t.Run("unknown ids are skipped", func(t *testing.T) {
		f := NewFixture(t)
		defer f.tearDown()
		seeded := seedMessages(f, "r1", 1)

		changed, err := f.store.MarkRead(f.ctx, "r1", []string{seeded[0].ID, "missing"})
		require.Nil(t, err)
		assert.Equal(t, []string{seeded[0].ID}, changed)
	})

	t.Run("ids from another room are skipped", func(t *testing.T) {
		f := NewFixture(t)
		defer f.tearDown()
		seeded := seedMessages(f, "r1", 1)

		changed, err := f.store.MarkRead(f.ctx, "r2", []string{seeded[0].ID})
		require.Nil(t, err)
		assert.Len(t, changed, 0)
	})
}
