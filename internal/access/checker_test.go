package access

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/d60-Lab/fhe-content-hub/config"
	"github.com/d60-Lab/fhe-content-hub/internal/model"
)

var defaultThresholds = config.AccessConfig{NFTThreshold: 0.3, TokenThreshold: 0.5}

// fixedSource makes every Float64 draw return the same value.
type fixedSource struct{ v int64 }

func (s fixedSource) Int63() int64 { return s.v }
func (s fixedSource) Seed(int64)   {}

func drawing(f float64) rand.Source { return fixedSource{v: int64(f * (1 << 63))} }

func TestPublicAlwaysGranted(t *testing.T) {
	c := NewCheckerWithSource(defaultThresholds, drawing(0))
	rec := model.ContentRecord{ID: "1", AccessPolicy: model.AccessPublic}
	for i := 0; i < 100; i++ {
		assert.True(t, c.CheckAccess(rec))
	}
}

func TestUnknownPolicyDenied(t *testing.T) {
	c := NewChecker(defaultThresholds)
	for i := 0; i < 20; i++ {
		assert.False(t, c.CheckAccess(model.ContentRecord{AccessPolicy: "DAO Member"}))
		assert.False(t, c.CheckAccess(model.ContentRecord{}))
	}
}

func TestHolderPoliciesUseThresholds(t *testing.T) {
	nft := model.ContentRecord{AccessPolicy: model.AccessNFTHolder}
	token := model.ContentRecord{AccessPolicy: model.AccessTokenHolder}

	low := NewCheckerWithSource(defaultThresholds, drawing(0.2))
	assert.False(t, low.CheckAccess(nft))
	assert.False(t, low.CheckAccess(token))

	mid := NewCheckerWithSource(defaultThresholds, drawing(0.4))
	assert.True(t, mid.CheckAccess(nft))
	assert.False(t, mid.CheckAccess(token))

	high := NewCheckerWithSource(defaultThresholds, drawing(0.9))
	assert.True(t, high.CheckAccess(nft))
	assert.True(t, high.CheckAccess(token))
}

func TestHolderPolicyIsNotStable(t *testing.T) {
	c := NewCheckerWithSource(defaultThresholds, rand.NewSource(7))
	rec := model.ContentRecord{AccessPolicy: model.AccessTokenHolder}

	seen := map[bool]int{}
	for i := 0; i < 200; i++ {
		seen[c.CheckAccess(rec)]++
	}
	assert.NotZero(t, seen[true])
	assert.NotZero(t, seen[false])
}
