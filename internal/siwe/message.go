// Package siwe builds and verifies the signed challenge messages wallets
// produce to prove address ownership.
package siwe

import (
	"fmt"
	"regexp"
	"time"
)

const (
	// AuthPreamble must appear in every sign-in challenge.
	AuthPreamble = "Sign in to Gooch Island"
	// WhitelistPreamble must appear in every legacy whitelist confirmation.
	WhitelistPreamble = "Gonad on Monad whitelist confirmation"

	// MaxMessageAge bounds the skew between a challenge's embedded timestamp
	// and server receipt, in either direction.
	MaxMessageAge = 5 * time.Minute
)

var timestampRe = regexp.MustCompile(`Timestamp: (.+)`)

// AuthMessage builds the sign-in challenge for an address at the given time.
func AuthMessage(address string, at time.Time) string {
	return fmt.Sprintf("%s\n\nWallet: %s\nTimestamp: %s\n\nThis signature is used for authentication and doesn't cost any gas.",
		AuthPreamble, address, at.UTC().Format(time.RFC3339))
}

// WhitelistMessage builds the legacy whitelist confirmation challenge.
func WhitelistMessage(address string, at time.Time) string {
	return fmt.Sprintf("%s\n\nWallet: %s\nTimestamp: %s\n\nThis signature proves you own this wallet and doesn't cost any gas.",
		WhitelistPreamble, address, at.UTC().Format(time.RFC3339))
}

// Timestamp extracts the embedded challenge timestamp. The second return is
// false when the message carries no parsable Timestamp line.
func Timestamp(message string) (time.Time, bool) {
	m := timestampRe.FindStringSubmatch(message)
	if m == nil {
		return time.Time{}, false
	}
	ts, err := time.Parse(time.RFC3339, m[1])
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// Fresh reports whether the message's embedded timestamp is within
// MaxMessageAge of now. Messages without a parsable timestamp pass: the line
// is advisory and older clients omitted it.
func Fresh(message string, now time.Time) bool {
	ts, ok := Timestamp(message)
	if !ok {
		return true
	}
	diff := now.Sub(ts)
	if diff < 0 {
		diff = -diff
	}
	return diff <= MaxMessageAge
}
