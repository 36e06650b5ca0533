package service

import (
	"context"
	"fmt"

	"storefront-wallet/internal/core/ports"
)

// SealedStateStore encrypts documents before they reach the inner store.
// Unsealed JSON documents written before sealing was enabled are still read.
type SealedStateStore struct {
	inner ports.StateStore
	enc   ports.EncryptionService
}

// NewSealedStateStore wraps inner.
func NewSealedStateStore(inner ports.StateStore, enc ports.EncryptionService) *SealedStateStore {
	return &SealedStateStore{inner: inner, enc: enc}
}

func (s *SealedStateStore) Get(ctx context.Context, namespace, clientID string) ([]byte, error) {
	raw, err := s.inner.Get(ctx, namespace, clientID)
	if err != nil || len(raw) == 0 {
		return raw, err
	}
	if raw[0] == '{' {
		return raw, nil
	}
	plain, err := s.enc.Decrypt(string(raw))
	if err != nil {
		return nil, fmt.Errorf("unsealing %s/%s: %w", namespace, clientID, err)
	}
	return []byte(plain), nil
}

func (s *SealedStateStore) Put(ctx context.Context, namespace, clientID string, payload []byte) error {
	sealed, err := s.enc.Encrypt(string(payload))
	if err != nil {
		return fmt.Errorf("sealing %s/%s: %w", namespace, clientID, err)
	}
	return s.inner.Put(ctx, namespace, clientID, []byte(sealed))
}
