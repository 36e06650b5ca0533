package service

import (
	"context"
	"errors"
	"testing"

	"storefront-wallet/internal/adapter/storage/memory"
	"storefront-wallet/internal/core/domain"
	"storefront-wallet/internal/core/ports/mocks"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestSealedStateStore_RoundTrip(t *testing.T) {
	enc, err := NewAESEncryptionService(testAESKey)
	require.NoError(t, err)
	inner := memory.NewStateStore()
	store := NewSealedStateStore(inner, enc)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, domain.WalletNamespace, "c1", []byte(`{"balance":42}`)))

	raw, err := inner.Get(ctx, domain.WalletNamespace, "c1")
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "balance")

	got, err := store.Get(ctx, domain.WalletNamespace, "c1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"balance":42}`, string(got))

	missing, err := store.Get(ctx, domain.WalletNamespace, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSealedStateStore_ReadsLegacyPlaintext(t *testing.T) {
	enc, err := NewAESEncryptionService(testAESKey)
	require.NoError(t, err)
	inner := memory.NewStateStore()
	ctx := context.Background()
	require.NoError(t, inner.Put(ctx, domain.WalletNamespace, "c1", []byte(`{"balance":7}`)))

	wallet := NewWalletService(NewSealedStateStore(inner, enc), memory.NewIdempotencyStore(), nil, zerolog.Nop())
	st, err := wallet.State(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, int64(7), st.Balance)
}

func TestSealedStateStore_Errors(t *testing.T) {
	ctrl := gomock.NewController(t)
	enc := mocks.NewMockEncryptionService(ctrl)
	inner := memory.NewStateStore()
	store := NewSealedStateStore(inner, enc)
	ctx := context.Background()

	enc.EXPECT().Encrypt(gomock.Any()).Return("", errors.New("rng failure"))
	assert.ErrorContains(t, store.Put(ctx, "wallet", "c1", []byte(`{}`)), "sealing wallet/c1")

	require.NoError(t, inner.Put(ctx, "wallet", "c2", []byte("00ff")))
	enc.EXPECT().Decrypt("00ff").Return("", errors.New("message authentication failed"))
	_, err := store.Get(ctx, "wallet", "c2")
	assert.ErrorContains(t, err, "unsealing wallet/c2")
}
