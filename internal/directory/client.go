// Package directory is the content directory client: it mirrors the records
// published to the external store, publishes new ones and runs the simulated
// decrypt and access checks on top.
package directory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/d60-Lab/fhe-content-hub/config"
	"github.com/d60-Lab/fhe-content-hub/internal/model"
	"github.com/d60-Lab/fhe-content-hub/internal/store"
	"github.com/d60-Lab/fhe-content-hub/internal/wallet"
	"github.com/d60-Lab/fhe-content-hub/pkg/logger"
)

// AccessChecker decides whether the current wallet may decrypt a record.
type AccessChecker interface {
	CheckAccess(r model.ContentRecord) bool
}

// Client owns the local list, the decrypt cache and the status. Its lock is
// never held across store calls; of two concurrent refreshes the last to
// finish wins.
type Client struct {
	store        store.Store
	access       AccessChecker
	decryptDelay time.Duration
	validate     *validator.Validate
	tracer       trace.Tracer
	status       *notifier

	mu          sync.RWMutex
	records     []model.ContentRecord
	decrypted   map[string]string
	session     *wallet.Session
	writer      store.Store
	owner       string
	unsubscribe func()
	onOrphan    func(id string)
}

func NewClient(s store.Store, checker AccessChecker, cfg config.DirectoryConfig) *Client {
	return &Client{
		store:        s,
		access:       checker,
		decryptDelay: cfg.DecryptDelay,
		validate:     validator.New(),
		tracer:       otel.Tracer("github.com/d60-Lab/fhe-content-hub/internal/directory"),
		status:       newNotifier(cfg.SuccessStatusTTL, cfg.ErrorStatusTTL),
		decrypted:    make(map[string]string),
	}
}

// OnOrphan registers fn to run when a submission writes its record but
// fails to index it. fn runs on the submitting goroutine and must not block.
func (c *Client) OnOrphan(fn func(id string)) {
	c.mu.Lock()
	c.onOrphan = fn
	c.mu.Unlock()
}

func (c *Client) orphaned(id string) {
	c.mu.RLock()
	fn := c.onOrphan
	c.mu.RUnlock()
	logger.Warn("content record written without index entry", zap.String("id", id))
	if fn != nil {
		fn(id)
	}
}

// Connect binds a wallet session. Writes go through the session's signer and
// the owner of new records follows the session's account changes.
func (c *Client) Connect(s *wallet.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.unsubscribe != nil {
		c.unsubscribe()
	}
	c.session = s
	c.writer = store.Sign(c.store, s.Signer())
	c.owner = s.Address()
	c.unsubscribe = s.Subscribe(func(addr string) {
		c.mu.Lock()
		if c.session == s {
			c.owner = addr
		}
		c.mu.Unlock()
		logger.Info("wallet account changed", zap.String("session", s.ID()), zap.String("address", addr))
	})
	logger.Info("wallet connected", zap.String("session", s.ID()), zap.String("address", s.Checksum()))
}

// Disconnect drops the wallet binding and the decrypt cache.
func (c *Client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
	c.session = nil
	c.writer = nil
	c.owner = ""
	c.decrypted = make(map[string]string)
}

// Close disconnects and stops the pending status timer.
func (c *Client) Close() {
	c.Disconnect()
	c.status.stop()
}

// Session returns the connected wallet session, or nil.
func (c *Client) Session() *wallet.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// Owner returns the address new records are published under.
func (c *Client) Owner() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.owner
}

// Contents returns a copy of the local list, newest first.
func (c *Client) Contents() []model.ContentRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]model.ContentRecord(nil), c.records...)
}

// Search filters the local list by category, access policy or owner.
func (c *Client) Search(term string) []model.ContentRecord {
	term = strings.TrimSpace(term)
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.ContentRecord, 0, len(c.records))
	for _, r := range c.records {
		if r.Matches(term) {
			out = append(out, r)
		}
	}
	return out
}

func (c *Client) Stats() model.Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return model.CountStats(c.records)
}

// Lookup finds a record in the local list.
func (c *Client) Lookup(id string) (model.ContentRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, r := range c.records {
		if r.ID == id {
			return r, true
		}
	}
	return model.ContentRecord{}, false
}

// Decrypted returns a cached decrypt result.
func (c *Client) Decrypted(id string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.decrypted[id]
	return v, ok
}

// CheckAccess runs the simulated entitlement check. Results for holder
// policies are not stable across calls.
func (c *Client) CheckAccess(r model.ContentRecord) bool {
	return c.access.CheckAccess(r)
}

func (c *Client) Status() Status { return c.status.get() }

// Available reports whether the external store is reachable.
func (c *Client) Available(ctx context.Context) bool { return c.store.IsAvailable(ctx) }
