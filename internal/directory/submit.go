package directory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/d60-Lab/fhe-content-hub/internal/model"
	"github.com/d60-Lab/fhe-content-hub/internal/payload"
	"github.com/d60-Lab/fhe-content-hub/internal/store"
	"github.com/d60-Lab/fhe-content-hub/pkg/logger"
)

// SubmitInput is the publish form. An empty category or access policy takes
// the default.
type SubmitInput struct {
	Title        string             `json:"title" validate:"required"`
	Body         string             `json:"content" validate:"required"`
	Category     string             `json:"category"`
	AccessPolicy model.AccessPolicy `json:"accessCondition"`
}

// Submit publishes a record under the connected wallet's address and
// refreshes the list. When the store can publish atomically the record and
// its index entry land together; otherwise the record is written first and
// the index is re-read and rewritten, which can lose a concurrent append or
// leave an orphan record if the second write fails.
func (c *Client) Submit(ctx context.Context, in SubmitInput) (model.ContentRecord, error) {
	ctx, span := c.tracer.Start(ctx, "directory.Submit")
	defer span.End()

	if err := c.validate.Struct(in); err != nil {
		return model.ContentRecord{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if in.AccessPolicy != "" && !in.AccessPolicy.Valid() {
		return model.ContentRecord{}, fmt.Errorf("%w: unknown access condition %q", ErrInvalidInput, in.AccessPolicy)
	}

	c.mu.RLock()
	writer, owner := c.writer, c.owner
	c.mu.RUnlock()
	if writer == nil {
		return model.ContentRecord{}, ErrWalletNotConnected
	}

	c.status.set(StatePending, "Encrypting content with FHE...")

	rec, err := c.publish(ctx, writer, in, owner)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error("submit content failed", zap.String("owner", owner), zap.Error(err))
		c.status.set(StateError, submitMessage(err))
		return model.ContentRecord{}, err
	}
	span.SetAttributes(attribute.String("content.id", rec.ID))

	c.status.set(StateSuccess, "Encrypted content submitted securely!")
	c.Refresh(ctx)
	return rec, nil
}

func (c *Client) publish(ctx context.Context, writer store.Store, in SubmitInput, owner string) (model.ContentRecord, error) {
	data, err := payload.Encode(in.Title, in.Body)
	if err != nil {
		return model.ContentRecord{}, err
	}

	now := time.Now()
	rec := model.ContentRecord{
		ID:           newContentID(now),
		Payload:      data,
		PublishedAt:  now.Unix(),
		Owner:        owner,
		Category:     in.Category,
		AccessPolicy: in.AccessPolicy,
	}
	if rec.Category == "" {
		rec.Category = model.DefaultCategory
	}
	if rec.AccessPolicy == "" {
		rec.AccessPolicy = model.AccessPublic
	}

	raw, err := model.EncodeRecord(rec)
	if err != nil {
		return model.ContentRecord{}, err
	}
	recordKey := model.RecordKey(rec.ID)

	if pub, ok := writer.(store.Publisher); ok {
		tx, err := pub.Publish(ctx, recordKey, raw, model.IndexKey, rec.ID)
		if err != nil {
			return model.ContentRecord{}, fmt.Errorf("publish %s: %w", rec.ID, err)
		}
		if err := tx.Wait(ctx); err != nil {
			return model.ContentRecord{}, fmt.Errorf("publish %s: %w", rec.ID, err)
		}
		return rec, nil
	}

	if err := setAndWait(ctx, writer, recordKey, raw); err != nil {
		return model.ContentRecord{}, fmt.Errorf("write record %s: %w", rec.ID, err)
	}
	if err := appendIndex(ctx, writer, rec.ID); err != nil {
		c.orphaned(rec.ID)
		return model.ContentRecord{}, fmt.Errorf("update index for %s: %w", rec.ID, err)
	}
	return rec, nil
}

// appendIndex is the non-atomic read-modify-write of the index value.
func appendIndex(ctx context.Context, s store.Store, ids ...string) error {
	raw, err := s.GetData(ctx, model.IndexKey)
	if err != nil {
		return err
	}
	if _, err := model.DecodeIndex(raw); err != nil {
		logger.Warn("parse content index failed, rebuilding", zap.Error(err))
	}
	changed := false
	for _, id := range ids {
		var added bool
		raw, added, err = model.AppendIndex(raw, id)
		if err != nil {
			return err
		}
		changed = changed || added
	}
	if !changed {
		return nil
	}
	return setAndWait(ctx, s, model.IndexKey, raw)
}

func setAndWait(ctx context.Context, s store.Store, key string, value []byte) error {
	tx, err := s.SetData(ctx, key, value)
	if err != nil {
		return err
	}
	return tx.Wait(ctx)
}

// newContentID returns <unix millis>-<7 char random suffix>.
func newContentID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:7]
	return fmt.Sprintf("%d-%s", now.UnixMilli(), suffix)
}
