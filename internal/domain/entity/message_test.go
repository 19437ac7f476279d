package entity_test

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/escrow-backend/internal/domain/entity"
	"github.com/ignatzorin/escrow-backend/internal/domain/valueobject"
	"github.com/ignatzorin/escrow-backend/internal/pkg/apperror"
)

func TestParseMessageBody(t *testing.T) {
	body, err := entity.ParseMessageBody("", " привет ", "/ignored.png")
	require.NoError(t, err)
	assert.Equal(t, valueobject.MessageTypeText, body.Type)
	assert.Equal(t, "привет", body.Content)
	assert.Empty(t, body.ImageURL)

	_, err = entity.ParseMessageBody("TEXT", "   ", "")
	assert.True(t, apperror.IsValidation(err))

	body, err = entity.ParseMessageBody("IMAGE", "", "/media/chat/1.png")
	require.NoError(t, err)
	assert.Equal(t, valueobject.MessageTypeImage, body.Type)

	_, err = entity.ParseMessageBody("IMAGE", "подпись", "")
	assert.True(t, apperror.IsValidation(err))

	_, err = entity.ParseMessageBody("VIDEO", "x", "")
	assert.True(t, apperror.IsValidation(err))

	_, err = entity.TextBody(strings.Repeat("я", entity.MaxMessageLength+1))
	assert.True(t, apperror.IsValidation(err))
}

func TestMessage_SoftDelete(t *testing.T) {
	body, err := entity.ImageBody("/media/chat/1.png", "фото")
	require.NoError(t, err)
	m := entity.NewMessage(uuid.New(), uuid.New(), "Анна", body, time.Now())

	m.SoftDelete()
	assert.True(t, m.IsDeleted)
	assert.Nil(t, m.ImageURL)
	assert.Equal(t, entity.DeletedTombstone, *m.Content)
}

func TestNewMessage_TruncatesToMicroseconds(t *testing.T) {
	body, _ := entity.TextBody("x")
	ts := time.Date(2026, 1, 1, 0, 0, 0, 123456789, time.UTC)
	m := entity.NewMessage(uuid.New(), uuid.New(), "", body, ts)
	assert.Equal(t, 123456000, m.CreatedAt.Nanosecond())
}

func TestMessageCursor_RoundTripAndOrder(t *testing.T) {
	ts := time.Date(2026, 1, 1, 10, 0, 0, 5000, time.UTC)
	c := entity.MessageCursor{CreatedAt: ts, Seq: 42}

	parsed, err := entity.ParseMessageCursor(c.Encode())
	require.NoError(t, err)
	assert.True(t, parsed.CreatedAt.Equal(ts))
	assert.Equal(t, int64(42), parsed.Seq)

	assert.True(t, entity.MessageCursor{CreatedAt: ts, Seq: 41}.Before(c))
	assert.False(t, c.Before(c))
	assert.True(t, entity.MessageCursor{CreatedAt: ts.Add(-time.Microsecond), Seq: 99}.Before(c))

	for _, bad := range []string{"!!!", "bm9jb2xvbg", "MTIzOmFiYw"} {
		_, err = entity.ParseMessageCursor(bad)
		assert.True(t, apperror.IsValidation(err), bad)
	}
}
