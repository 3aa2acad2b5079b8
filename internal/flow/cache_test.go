package flow

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gonadlabs/gooch-island/internal/auth"
	"github.com/stretchr/testify/require"
)

func TestCache_AuthRoundTrip(t *testing.T) {
	t.Parallel()
	cache := NewCache(t.TempDir())

	token, err := auth.NewIssuer([]byte("secret"), auth.TokenTTL).Issue("0xabc")
	require.NoError(t, err)

	cache.SaveAuth(Session{Address: "0xabc", Token: token, User: User{Address: "0xabc"}})

	blob, ok := cache.LoadAuth()
	require.True(t, ok)
	require.Equal(t, token, blob.JWT)
	require.Equal(t, "0xabc", blob.User.Address)
}

func TestCache_DropsExpiredToken(t *testing.T) {
	t.Parallel()
	cache := NewCache(t.TempDir())

	past := time.Now().Add(-25 * time.Hour)
	stale := auth.NewIssuer([]byte("secret"), auth.TokenTTL).
		WithClock(func() time.Time { return past })
	token, err := stale.Issue("0xabc")
	require.NoError(t, err)

	cache.SaveAuth(Session{Address: "0xabc", Token: token, User: User{Address: "0xabc"}})

	_, ok := cache.LoadAuth()
	require.False(t, ok, "expired token is dropped at load time")
	_, err = os.Stat(filepath.Join(cache.dir, authCacheFile))
	require.True(t, os.IsNotExist(err), "the stale blob is removed")
}

func TestCache_CorruptBlobTreatedAsAbsent(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cache := NewCache(dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, authCacheFile), []byte("{not json"), 0o600))
	_, ok := cache.LoadAuth()
	require.False(t, ok)

	require.NoError(t, os.WriteFile(filepath.Join(dir, whitelistCacheFile), []byte("{not json"), 0o600))
	_, ok = cache.LoadWhitelist("0xabc")
	require.False(t, ok)
}

func TestCache_WhitelistAddressScoped(t *testing.T) {
	t.Parallel()
	cache := NewCache(t.TempDir())

	cache.SaveWhitelist("0xAbc", "standard")

	blob, ok := cache.LoadWhitelist("0xABC")
	require.True(t, ok, "address comparison is case-insensitive")
	require.True(t, blob.Authenticated)
	require.Equal(t, "standard", blob.Tier)

	_, ok = cache.LoadWhitelist("0xother")
	require.False(t, ok, "another wallet's mirror is not trusted")
}
