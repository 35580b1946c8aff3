package access

import (
	"math/rand"
	"sync"
	"time"

	"github.com/d60-Lab/fhe-content-hub/config"
	"github.com/d60-Lab/fhe-content-hub/internal/model"
)

// Checker simulates entitlement checks. Public is always granted; the two
// holder policies draw a fresh random number per call, so repeated calls on
// the same record may disagree.
type Checker struct {
	mu             sync.Mutex
	rnd            *rand.Rand
	nftThreshold   float64
	tokenThreshold float64
}

func NewChecker(cfg config.AccessConfig) *Checker {
	return NewCheckerWithSource(cfg, rand.NewSource(time.Now().UnixNano()))
}

// NewCheckerWithSource draws from src instead of a time-seeded source.
func NewCheckerWithSource(cfg config.AccessConfig, src rand.Source) *Checker {
	return &Checker{rnd: rand.New(src), nftThreshold: cfg.NFTThreshold, tokenThreshold: cfg.TokenThreshold}
}

// CheckAccess reports whether the current wallet is entitled to r.
func (c *Checker) CheckAccess(r model.ContentRecord) bool {
	switch r.AccessPolicy {
	case model.AccessPublic:
		return true
	case model.AccessNFTHolder:
		return c.draw() > c.nftThreshold
	case model.AccessTokenHolder:
		return c.draw() > c.tokenThreshold
	default:
		return false
	}
}

func (c *Checker) draw() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rnd.Float64()
}
