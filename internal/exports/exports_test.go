package exports

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	key       string
	ctype     string
	body      []byte
	uploadErr error
}

func (f *fakeStore) Upload(_ context.Context, key, contentType string, body io.Reader, _ int64) error {
	if f.uploadErr != nil {
		return f.uploadErr
	}
	f.key, f.ctype = key, contentType
	var buf bytes.Buffer
	_, _ = io.Copy(&buf, body)
	f.body = buf.Bytes()
	return nil
}

func (f *fakeStore) PresignDownload(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://signed.example.com/" + key, nil
}

func (f *fakeStore) PresignExpire() time.Duration { return 15 * time.Minute }

type line struct {
	ID string `json:"id"`
}

func TestEncodeJSONL(t *testing.T) {
	out, err := EncodeJSONL([]line{{"a"}, {"b"}})
	require.NoError(t, err)
	assert.Equal(t, "{\"id\":\"a\"}\n{\"id\":\"b\"}\n", string(out))

	empty, err := EncodeJSONL([]line{})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestWrite_UploadsAndSigns(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store, nil)
	svc.now = func() time.Time { return time.Date(2026, 10, 1, 8, 30, 0, 0, time.UTC) }
	orgID := uuid.New()

	exp, err := Write(context.Background(), svc, orgID, "alerts", []line{{"a"}})

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(exp.Key, "exports/"+orgID.String()+"/alerts-20261001T083000Z-"))
	assert.Equal(t, "https://signed.example.com/"+exp.Key, exp.URL)
	assert.Equal(t, 1, exp.Rows)
	assert.Equal(t, svc.now().Add(15*time.Minute), exp.ExpiresAt)
	assert.Equal(t, "application/x-ndjson", store.ctype)
	assert.Equal(t, "{\"id\":\"a\"}\n", string(store.body))
}

func TestWrite_UploadFailure(t *testing.T) {
	store := &fakeStore{uploadErr: errors.New("access denied")}
	svc := NewService(store, nil)

	_, err := Write(context.Background(), svc, uuid.New(), "events", []line{{"a"}})

	assert.ErrorContains(t, err, "access denied")
}
