package directory

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/d60-Lab/fhe-content-hub/internal/payload"
	"github.com/d60-Lab/fhe-content-hub/pkg/logger"
)

// Decrypt reverses the placeholder transform of a listed record and caches
// the body. Only the first call for an id pays the simulated delay.
func (c *Client) Decrypt(ctx context.Context, id string) (string, error) {
	ctx, span := c.tracer.Start(ctx, "directory.Decrypt")
	defer span.End()
	span.SetAttributes(attribute.String("content.id", id))

	c.mu.RLock()
	connected := c.session != nil
	cached, hit := c.decrypted[id]
	c.mu.RUnlock()

	if !connected {
		return "", ErrWalletNotConnected
	}
	span.SetAttributes(attribute.Bool("cache.hit", hit))
	if hit {
		return cached, nil
	}

	c.status.set(StatePending, "Decrypting content with FHE...")

	body, err := c.decrypt(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Warn("decrypt content failed", zap.String("id", id), zap.Error(err))
		c.status.set(StateError, "Decryption failed: "+err.Error())
		return "", err
	}

	c.mu.Lock()
	if c.session != nil {
		c.decrypted[id] = body
	}
	c.mu.Unlock()

	c.status.set(StateSuccess, "Content decrypted successfully!")
	return body, nil
}

func (c *Client) decrypt(ctx context.Context, id string) (string, error) {
	if c.decryptDelay > 0 {
		t := time.NewTimer(c.decryptDelay)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	rec, ok := c.Lookup(id)
	if !ok {
		return "", ErrContentNotFound
	}
	content, err := payload.Decode(rec.Payload)
	if err != nil {
		return "", fmt.Errorf("content %s: %w", id, err)
	}
	return content.Content, nil
}
