// Package exports writes filtered list views to object storage as JSON Lines files.
package exports

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/merchant-ops/backend/pkg/storage"
)

const contentType = "application/x-ndjson"

// ObjectStore is the subset of the S3 wrapper exports need.
type ObjectStore interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader, contentLength int64) error
	PresignDownload(ctx context.Context, key string, expires time.Duration) (string, error)
	PresignExpire() time.Duration
}

// Export describes an uploaded file.
type Export struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	Rows      int       `json:"rows"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Service uploads exports and hands back a signed link.
type Service struct {
	store  ObjectStore
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates an export service.
func NewService(store ObjectStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger, now: time.Now}
}

// EncodeJSONL renders one JSON document per line.
func EncodeJSONL[T any](rows []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i := range rows {
		if err := enc.Encode(rows[i]); err != nil {
			return nil, fmt.Errorf("encode row %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

// Write uploads rows for view under the organization's export prefix.
func Write[T any](ctx context.Context, s *Service, orgID uuid.UUID, view string, rows []T) (*Export, error) {
	body, err := EncodeJSONL(rows)
	if err != nil {
		return nil, err
	}
	now := s.now()
	name := fmt.Sprintf("%s-%s-%s.jsonl", view, now.UTC().Format("20060102T150405Z"), uuid.NewString()[:8])
	key := storage.ExportKey(orgID.String(), name)
	if err := s.store.Upload(ctx, key, contentType, bytes.NewReader(body), int64(len(body))); err != nil {
		return nil, fmt.Errorf("upload export: %w", err)
	}
	expires := s.store.PresignExpire()
	url, err := s.store.PresignDownload(ctx, key, expires)
	if err != nil {
		return nil, fmt.Errorf("sign export: %w", err)
	}
	s.logger.Info("list exported", zap.String("org_id", orgID.String()), zap.String("view", view), zap.Int("rows", len(rows)), zap.String("key", key))
	return &Export{Key: key, URL: url, Rows: len(rows), ExpiresAt: now.Add(expires)}, nil
}
