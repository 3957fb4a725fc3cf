package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"gitlab.com/trektoo/api/trektoo-client-core/internal/adapters/logger"
	"gitlab.com/trektoo/api/trektoo-client-core/internal/adapters/memory"
	"gitlab.com/trektoo/api/trektoo-client-core/internal/application"
	"gitlab.com/trektoo/api/trektoo-client-core/pkg/crypto"
)

// useMemoryStorage points every command at a shared in-memory store.
func useMemoryStorage(t *testing.T) *memory.KVStore {
	t.Helper()
	store := memory.NewKVStore()
	cipher, err := crypto.NewXORCipher("cli-test-key")
	require.NoError(t, err)
	s := application.NewSecureStorage(store, cipher, logger.NewFromZap(zap.NewNop()))

	prev := openStorage
	openStorage = func(context.Context) (*application.SecureStorage, func(), error) {
		return s, func() {}, nil
	}
	t.Cleanup(func() { openStorage = prev })
	return store
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	setTTL = 0
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCLI_SetGetRemove(t *testing.T) {
	useMemoryStorage(t)

	_, err := run(t, "set", "booking", `{"hotel":"Ubud Villa","nights":3}`)
	require.NoError(t, err)

	out, err := run(t, "get", "booking")
	require.NoError(t, err)
	assert.JSONEq(t, `{"hotel":"Ubud Villa","nights":3}`, out)

	_, err = run(t, "set", "promo", "SUMMER")
	require.NoError(t, err)
	out, err = run(t, "get", "promo")
	require.NoError(t, err)
	assert.Equal(t, "\"SUMMER\"\n", out)

	_, err = run(t, "rm", "booking", "promo")
	require.NoError(t, err)
	_, err = run(t, "get", "booking")
	assert.ErrorIs(t, err, errNotFound)
}

func TestCLI_TTL(t *testing.T) {
	useMemoryStorage(t)

	_, err := run(t, "set", "cart", `["room-1"]`, "--ttl", "2h")
	require.NoError(t, err)
	out, err := run(t, "ttl", "cart")
	require.NoError(t, err)
	d, err := time.ParseDuration(out[:len(out)-1])
	require.NoError(t, err)
	assert.InDelta(t, float64(2*time.Hour), float64(d), float64(5*time.Second))

	_, err = run(t, "set", "currency", `"IDR"`)
	require.NoError(t, err)
	out, err = run(t, "ttl", "currency")
	require.NoError(t, err)
	assert.Equal(t, "no expiry\n", out)

	_, err = run(t, "ttl", "absent")
	assert.ErrorIs(t, err, errNotFound)
}

func TestCLI_ValidationError(t *testing.T) {
	useMemoryStorage(t)
	_, err := run(t, "set", "userEmail", `"not-an-email"`)
	assert.ErrorIs(t, err, application.ErrValidationFailed)
}

func TestCLI_StatsCleanupClear(t *testing.T) {
	store := useMemoryStorage(t)
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "foreign", "x"))
	require.NoError(t, store.Set(ctx, "trektoo_junk", "x"))

	_, err := run(t, "set", "currency", `"IDR"`)
	require.NoError(t, err)

	out, err := run(t, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "total:   2")
	assert.Contains(t, out, "valid:   1")

	out, err = run(t, "cleanup")
	require.NoError(t, err)
	assert.Equal(t, "removed 1 record(s)\n", out)

	_, err = run(t, "clear")
	require.NoError(t, err)
	keys, err := store.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"foreign"}, keys)
}
