package flow

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	authCacheFile      = "gooch_auth.json"
	whitelistCacheFile = "gooch_whitelist.json"
)

// AuthBlob is the persisted auth mirror: the browser's gooch_auth key.
type AuthBlob struct {
	JWT       string `json:"jwt"`
	User      User   `json:"user"`
	Timestamp int64  `json:"timestamp"`
}

// WhitelistBlob is the persisted whitelist mirror: the gooch_whitelist key.
type WhitelistBlob struct {
	Address       string `json:"address"`
	Timestamp     int64  `json:"timestamp"`
	Authenticated bool   `json:"authenticated"`
	Tier          string `json:"tier,omitempty"`
}

// Cache is the best-effort local mirror of auth and whitelist state. It is
// never authoritative: a successful server response always overwrites it,
// and it is only consulted when the server call itself fails. Every error in
// here degrades to "treat as absent".
type Cache struct {
	dir string
}

func NewCache(dir string) *Cache {
	return &Cache{dir: dir}
}

// LoadAuth returns the cached session, dropping it when the stored token has
// already expired. The token's own expiry is the blob's only TTL.
func (c *Cache) LoadAuth() (*AuthBlob, bool) {
	var blob AuthBlob
	if !c.read(authCacheFile, &blob) {
		return nil, false
	}
	if blob.JWT == "" || blob.User.Address == "" || tokenExpired(blob.JWT) {
		c.ClearAuth()
		return nil, false
	}
	return &blob, true
}

func (c *Cache) SaveAuth(session Session) {
	c.write(authCacheFile, AuthBlob{
		JWT:       session.Token,
		User:      session.User,
		Timestamp: time.Now().UnixMilli(),
	})
}

func (c *Cache) ClearAuth() {
	_ = os.Remove(filepath.Join(c.dir, authCacheFile))
}

// LoadWhitelist returns the whitelist mirror when it belongs to the given
// address.
func (c *Cache) LoadWhitelist(address string) (*WhitelistBlob, bool) {
	var blob WhitelistBlob
	if !c.read(whitelistCacheFile, &blob) {
		return nil, false
	}
	if !strings.EqualFold(blob.Address, address) {
		return nil, false
	}
	return &blob, true
}

func (c *Cache) SaveWhitelist(address, tier string) {
	c.write(whitelistCacheFile, WhitelistBlob{
		Address:       address,
		Timestamp:     time.Now().UnixMilli(),
		Authenticated: true,
		Tier:          tier,
	})
}

func (c *Cache) ClearWhitelist() {
	_ = os.Remove(filepath.Join(c.dir, whitelistCacheFile))
}

func (c *Cache) read(name string, v any) bool {
	data, err := os.ReadFile(filepath.Join(c.dir, name))
	if err != nil {
		return false
	}
	return json.Unmarshal(data, v) == nil
}

func (c *Cache) write(name string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := os.MkdirAll(c.dir, 0o700); err != nil {
		return
	}
	_ = os.WriteFile(filepath.Join(c.dir, name), data, 0o600)
}

// tokenExpired decodes the token without verifying it; the client has no
// secret, it only wants the exp claim. Undecodable tokens count as expired.
func tokenExpired(token string) bool {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return true
	}
	if claims.ExpiresAt == nil {
		return true
	}
	return claims.ExpiresAt.Before(time.Now())
}
