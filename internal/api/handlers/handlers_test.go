package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gonadlabs/gooch-island/internal/auth"
	"github.com/gonadlabs/gooch-island/internal/config"
	"github.com/gonadlabs/gooch-island/internal/flow"
	"github.com/gonadlabs/gooch-island/internal/models"
	"github.com/gonadlabs/gooch-island/internal/repositories"
	"github.com/gonadlabs/gooch-island/internal/siwe"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	dsn := fmt.Sprintf("file:handlers_%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, repositories.Migrate(db))
	repositories.DB = db

	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth", Auth)
	mux.HandleFunc("/api/whitelist", Whitelist)
	mux.HandleFunc("/api/whitelist/stats", WhitelistStats)
	mux.HandleFunc("/api/game/stats", GameStats)
	mux.HandleFunc("/api/admin/entries", AdminEntries)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	buf := &bytes.Buffer{}
	if body != nil {
		require.NoError(t, json.NewEncoder(buf).Encode(body))
	}
	req, err := http.NewRequest(http.MethodPost, url, buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func getJSON(t *testing.T, url string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func signAuth(t *testing.T, w *flow.KeyWallet, at time.Time) (message, signature string) {
	t.Helper()
	message = siwe.AuthMessage(w.Address(), at)
	signature, err := w.SignMessage(t.Context(), message)
	require.NoError(t, err)
	return message, signature
}

func TestAuth_EndToEnd(t *testing.T) {
	srv := newTestServer(t)
	w, err := flow.GenerateKeyWallet()
	require.NoError(t, err)

	message, signature := signAuth(t, w, time.Now())
	resp, body := postJSON(t, srv.URL+"/api/auth", "", map[string]string{
		"address": w.Address(), "message": message, "signature": signature,
	})

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, body["success"])
	require.NotEmpty(t, body["jwt"])

	user := body["user"].(map[string]any)
	require.Equal(t, strings.ToLower(w.Address()), user["address"], "returned address is lowercased")

	// The audit trail is written alongside the login.
	var sigCount, sessCount int64
	require.NoError(t, repositories.DB.Model(&models.Signature{}).Count(&sigCount).Error)
	require.NoError(t, repositories.DB.Model(&models.Session{}).Count(&sessCount).Error)
	require.EqualValues(t, 1, sigCount)
	require.EqualValues(t, 1, sessCount)
}

func TestAuth_Validation(t *testing.T) {
	srv := newTestServer(t)
	w, err := flow.GenerateKeyWallet()
	require.NoError(t, err)

	// Missing fields.
	resp, body := postJSON(t, srv.URL+"/api/auth", "", map[string]string{"address": w.Address()})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "Missing required fields: address, message, signature", body["error"])

	// Signature over a different message.
	message, _ := signAuth(t, w, time.Now())
	_, otherSig := signAuth(t, w, time.Now().Add(time.Second))
	resp, body = postJSON(t, srv.URL+"/api/auth", "", map[string]string{
		"address": w.Address(), "message": message, "signature": otherSig,
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "Invalid signature", body["error"])

	// Correctly signed message without the auth preamble.
	wrong := siwe.WhitelistMessage(w.Address(), time.Now())
	wrongSig, err := w.SignMessage(t.Context(), wrong)
	require.NoError(t, err)
	resp, body = postJSON(t, srv.URL+"/api/auth", "", map[string]string{
		"address": w.Address(), "message": wrong, "signature": wrongSig,
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "Invalid message content", body["error"])
}

func TestAuth_TimestampFreshness(t *testing.T) {
	srv := newTestServer(t)
	w, err := flow.GenerateKeyWallet()
	require.NoError(t, err)

	// 6 minutes old: rejected.
	message, signature := signAuth(t, w, time.Now().Add(-6*time.Minute))
	resp, body := postJSON(t, srv.URL+"/api/auth", "", map[string]string{
		"address": w.Address(), "message": message, "signature": signature,
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "Message timestamp too old", body["error"])

	// 4 minutes old: accepted.
	message, signature = signAuth(t, w, time.Now().Add(-4*time.Minute))
	resp, _ = postJSON(t, srv.URL+"/api/auth", "", map[string]string{
		"address": w.Address(), "message": message, "signature": signature,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestWhitelist_BearerJoin(t *testing.T) {
	srv := newTestServer(t)
	w, err := flow.GenerateKeyWallet()
	require.NoError(t, err)

	message, signature := signAuth(t, w, time.Now())
	_, authBody := postJSON(t, srv.URL+"/api/auth", "", map[string]string{
		"address": w.Address(), "message": message, "signature": signature,
	})
	token := authBody["jwt"].(string)
	lower := strings.ToLower(w.Address())

	// Join relying on the bearer only, no body fields.
	resp, body := postJSON(t, srv.URL+"/api/whitelist", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := body["data"].(map[string]any)
	require.Equal(t, lower, data["address"])
	require.Equal(t, "jwt", data["authMethod"])
	require.Equal(t, "standard", data["tier"])

	// Membership is now visible.
	resp, body = getJSON(t, srv.URL+"/api/whitelist?address="+lower+"&collection=gonad")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, body["isWhitelisted"])
	require.NotNil(t, body["data"])
	require.Equal(t, "standard", body["data"].(map[string]any)["tier"])

	// Joining again neither errors nor duplicates.
	resp, _ = postJSON(t, srv.URL+"/api/whitelist", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var count int64
	require.NoError(t, repositories.DB.Model(&models.WhitelistEntry{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestWhitelist_AddressMismatch(t *testing.T) {
	srv := newTestServer(t)
	w, err := flow.GenerateKeyWallet()
	require.NoError(t, err)
	other, err := flow.GenerateKeyWallet()
	require.NoError(t, err)

	message, signature := signAuth(t, w, time.Now())
	_, authBody := postJSON(t, srv.URL+"/api/auth", "", map[string]string{
		"address": w.Address(), "message": message, "signature": signature,
	})
	token := authBody["jwt"].(string)

	resp, body := postJSON(t, srv.URL+"/api/whitelist", token, map[string]string{
		"address": other.Address(),
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "Address does not match authenticated session", body["error"])

	// Case differences alone are not a mismatch.
	resp, _ = postJSON(t, srv.URL+"/api/whitelist", token, map[string]string{
		"address": "0x" + strings.ToUpper(w.Address()[2:]),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestWhitelist_ExpiredToken(t *testing.T) {
	srv := newTestServer(t)

	past := time.Now().Add(-25 * time.Hour)
	stale := auth.NewIssuer([]byte(config.Envs.JWTSecret), auth.TokenTTL).
		WithClock(func() time.Time { return past })
	token, err := stale.Issue("0xabc")
	require.NoError(t, err)

	resp, body := postJSON(t, srv.URL+"/api/whitelist", token, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "Invalid or expired token", body["error"])
}

func TestWhitelist_LegacySignatureJoin(t *testing.T) {
	srv := newTestServer(t)
	w, err := flow.GenerateKeyWallet()
	require.NoError(t, err)

	// The legacy path has no freshness window: an hour-old message joins.
	message := siwe.WhitelistMessage(w.Address(), time.Now().Add(-time.Hour))
	signature, err := w.SignMessage(t.Context(), message)
	require.NoError(t, err)

	resp, body := postJSON(t, srv.URL+"/api/whitelist", "", map[string]string{
		"address": w.Address(), "message": message, "signature": signature,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := body["data"].(map[string]any)
	require.Equal(t, "signature", data["authMethod"])

	// The signed message is kept as provenance.
	var sigCount int64
	require.NoError(t, repositories.DB.Model(&models.Signature{}).Count(&sigCount).Error)
	require.EqualValues(t, 1, sigCount)

	// An auth-preamble message does not open the whitelist.
	wrong := siwe.AuthMessage(w.Address(), time.Now())
	wrongSig, err := w.SignMessage(t.Context(), wrong)
	require.NoError(t, err)
	resp, body = postJSON(t, srv.URL+"/api/whitelist", "", map[string]string{
		"address": w.Address(), "message": wrong, "signature": wrongSig,
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "Invalid message content", body["error"])
}

func TestWhitelist_NoProof(t *testing.T) {
	srv := newTestServer(t)

	resp, body := postJSON(t, srv.URL+"/api/whitelist", "", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "Missing required fields: address, message, signature", body["error"])
}

func TestWhitelist_CheckUnknown(t *testing.T) {
	srv := newTestServer(t)

	resp, body := getJSON(t, srv.URL+"/api/whitelist?address=0xnobody")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, false, body["isWhitelisted"])
	require.Nil(t, body["data"])

	resp, body = getJSON(t, srv.URL+"/api/whitelist")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "Address parameter required", body["error"])
}

func TestWhitelistStats(t *testing.T) {
	srv := newTestServer(t)

	resp, body := getJSON(t, srv.URL+"/api/whitelist/stats?collection=unknown")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "Collection not found", body["error"])

	for i := 0; i < 3; i++ {
		_, err := repositories.AddToWhitelist(fmt.Sprintf("0xaddr%d", i), "gonad", nil, "standard", "manual")
		require.NoError(t, err)
	}

	resp, body = getJSON(t, srv.URL+"/api/whitelist/stats?collection=gonad")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	stats := body["stats"].(map[string]any)
	require.EqualValues(t, 3, stats["total"])
	require.EqualValues(t, 3, stats["recentCount"])
	require.EqualValues(t, 3, stats["byTier"].(map[string]any)["standard"])
}

func TestGameStats_Disabled(t *testing.T) {
	srv := newTestServer(t)

	resp, body := getJSON(t, srv.URL+"/api/game/stats")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "total_destroyed", body["key"])
	require.EqualValues(t, 0, body["value"])
}

func TestAdminEntries(t *testing.T) {
	srv := newTestServer(t)

	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)
	prev := config.Envs.AdminKeyHash
	config.Envs.AdminKeyHash = string(hash)
	t.Cleanup(func() { config.Envs.AdminKeyHash = prev })

	_, err = repositories.AddToWhitelist("0xabc", "gonad", nil, "standard", "manual")
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/admin/entries", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode, "no key, no entry")

	req.Header.Set("X-Admin-Key", "hunter2")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.EqualValues(t, 1, body["total"])
}
