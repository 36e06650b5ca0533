package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArgon2HashService_HashAndVerify(t *testing.T) {
	svc := NewArgon2HashService()

	hash, err := svc.Hash("admin-token-1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=65536,t=3,p=4$"))

	match, err := svc.Verify("admin-token-1", hash)
	require.NoError(t, err)
	assert.True(t, match)

	match, err = svc.Verify("admin-token-2", hash)
	require.NoError(t, err)
	assert.False(t, match)
}

func TestArgon2HashService_UniqueSalts(t *testing.T) {
	svc := NewArgon2HashService()

	hash1, err := svc.Hash("same")
	require.NoError(t, err)
	hash2, err := svc.Hash("same")
	require.NoError(t, err)

	assert.NotEqual(t, hash1, hash2)
}

func TestArgon2HashService_VerifiesStoredCost(t *testing.T) {
	cheap := &Argon2HashService{params: argon2Params{memory: 8 * 1024, time: 1, threads: 1, keyLen: 16}}
	hash, err := cheap.Hash("token")
	require.NoError(t, err)

	match, err := NewArgon2HashService().Verify("token", hash)
	require.NoError(t, err)
	assert.True(t, match)
}

func TestArgon2HashService_VerifyInvalidFormat(t *testing.T) {
	svc := NewArgon2HashService()

	for _, bad := range []string{
		"not-a-valid-hash",
		"$argon2i$v=19$m=65536,t=3,p=4$c2FsdA$a2V5",
		"$argon2id$v=16$m=65536,t=3,p=4$c2FsdA$a2V5",
		"$argon2id$v=19$m=x$c2FsdA$a2V5",
		"$argon2id$v=19$m=65536,t=3,p=4$c2FsdA$",
	} {
		_, err := svc.Verify("token", bad)
		assert.ErrorIs(t, err, errArgon2Format, bad)
	}
}
