package store

import (
	"context"
	"fmt"

	"github.com/d60-Lab/fhe-content-hub/internal/wallet"
)

// Sign wraps s so that every write is approved by signer first. The result
// implements Publisher when s does.
func Sign(s Store, signer wallet.Signer) Store {
	ss := &signedStore{Store: s, signer: signer}
	if p, ok := s.(Publisher); ok {
		return &signedPublisher{signedStore: ss, pub: p}
	}
	return ss
}

type signedStore struct {
	Store
	signer wallet.Signer
}

func (s *signedStore) SetData(ctx context.Context, key string, value []byte) (Tx, error) {
	if err := s.signer.Approve(ctx, key, value); err != nil {
		return nil, fmt.Errorf("sign %s: %w", key, err)
	}
	return s.Store.SetData(ctx, key, value)
}

type signedPublisher struct {
	*signedStore
	pub Publisher
}

func (s *signedPublisher) Publish(ctx context.Context, recordKey string, value []byte, indexKey, id string) (Tx, error) {
	if err := s.signer.Approve(ctx, recordKey, value); err != nil {
		return nil, fmt.Errorf("sign %s: %w", recordKey, err)
	}
	return s.pub.Publish(ctx, recordKey, value, indexKey, id)
}
