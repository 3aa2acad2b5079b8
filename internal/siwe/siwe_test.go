package siwe

import (
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

func signedMessage(t *testing.T, message string) (address, signature string) {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), key)
	require.NoError(t, err)
	sig[crypto.RecoveryIDOffset] += 27

	return crypto.PubkeyToAddress(key.PublicKey).Hex(), hexutil.Encode(sig)
}

func TestVerify_RoundTrip(t *testing.T) {
	t.Parallel()

	message := AuthMessage("0xabc", time.Now())
	address, signature := signedMessage(t, message)

	require.True(t, Verify(address, message, signature))
	require.True(t, Verify(strings.ToLower(address), message, signature), "verification must be case-insensitive on address")
	require.True(t, Verify(strings.ToUpper(address), message, signature))
}

func TestVerify_Mutations(t *testing.T) {
	t.Parallel()

	message := "Sign in to Gooch Island\n\nWallet: 0xabc\nTimestamp: 2026-01-01T00:00:00Z"
	address, signature := signedMessage(t, message)

	// Flip one bit in the middle of the signature.
	raw, err := hexutil.Decode(signature)
	require.NoError(t, err)
	raw[10] ^= 0x01
	require.False(t, Verify(address, message, hexutil.Encode(raw)))

	// Different address.
	other, _ := signedMessage(t, message)
	require.False(t, Verify(other, message, signature))

	// Mutated message.
	require.False(t, Verify(address, message+" ", signature))
}

func TestVerify_MalformedInput(t *testing.T) {
	t.Parallel()

	message := "hello"
	address, signature := signedMessage(t, message)

	require.False(t, Verify(address, message, "not hex"))
	require.False(t, Verify(address, message, "0xdead"))
	require.False(t, Verify(address, message, "0x"))
	require.False(t, Verify("", message, signature))
}

func TestAuthMessage_Shape(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	message := AuthMessage("0xAbC", at)

	require.Contains(t, message, AuthPreamble)
	require.Contains(t, message, "Wallet: 0xAbC")

	ts, ok := Timestamp(message)
	require.True(t, ok)
	require.True(t, ts.Equal(at))
}

func TestWhitelistMessage_Shape(t *testing.T) {
	t.Parallel()

	message := WhitelistMessage("0xAbC", time.Now())
	require.Contains(t, message, WhitelistPreamble)
	require.NotContains(t, message, AuthPreamble)
}

func TestFresh(t *testing.T) {
	t.Parallel()

	now := time.Now()

	require.True(t, Fresh(AuthMessage("0xabc", now.Add(-4*time.Minute)), now))
	require.False(t, Fresh(AuthMessage("0xabc", now.Add(-6*time.Minute)), now))
	require.False(t, Fresh(AuthMessage("0xabc", now.Add(6*time.Minute)), now), "future skew rejected too")

	// No parsable timestamp line: passes, matching legacy clients.
	require.True(t, Fresh("Sign in to Gooch Island\n\nWallet: 0xabc", now))
	require.True(t, Fresh("Sign in to Gooch Island\nTimestamp: not-a-date", now))
}
