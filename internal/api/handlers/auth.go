package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gonadlabs/gooch-island/internal/api/middleware"
	"github.com/gonadlabs/gooch-island/internal/auth"
	"github.com/gonadlabs/gooch-island/internal/config"
	"github.com/gonadlabs/gooch-island/internal/repositories"
	"github.com/gonadlabs/gooch-island/internal/siwe"
	"github.com/gonadlabs/gooch-island/internal/utils"
)

// Sessions mints and checks the bearer tokens handed out by POST /api/auth.
var Sessions = auth.NewIssuer([]byte(config.Envs.JWTSecret), auth.TokenTTL)

type authRequest struct {
	Address   string `json:"address"`
	Message   string `json:"message"`
	Signature string `json:"signature"`
}

type authUser struct {
	Address string `json:"address"`
}

// Auth dispatches /api/auth: POST exchanges a signed challenge for a session
// token, GET introspects a bearer token.
func Auth(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		authenticate(w, r)
	case http.MethodGet:
		verifyToken(w, r)
	default:
		utils.Error(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// POST /api/auth
func authenticate(w http.ResponseWriter, r *http.Request) {
	var input authRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	if input.Address == "" || input.Message == "" || input.Signature == "" {
		utils.Error(w, http.StatusBadRequest, "Missing required fields: address, message, signature")
		return
	}

	if !siwe.Verify(input.Address, input.Message, input.Signature) {
		utils.Error(w, http.StatusBadRequest, "Invalid signature")
		return
	}

	if !strings.Contains(input.Message, siwe.AuthPreamble) {
		utils.Error(w, http.StatusBadRequest, "Invalid message content")
		return
	}

	// Replay mitigation: the embedded timestamp must be close to receipt
	// time. Messages without a parsable timestamp line pass, matching the
	// behavior clients already depend on.
	if !siwe.Fresh(input.Message, time.Now()) {
		utils.Error(w, http.StatusBadRequest, "Message timestamp too old")
		return
	}

	user, err := repositories.CreateOrUpdateUser(input.Address)
	if err != nil {
		log.Println("Auth: user upsert failed:", err)
		utils.Error(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	token, err := Sessions.Issue(user.Address)
	if err != nil {
		log.Println("Auth: token signing failed:", err)
		utils.Error(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	// Provenance and session rows are audit data; their failure should not
	// fail a login that already verified.
	if _, err := repositories.RecordSignature(user.ID, repositories.SignatureProvenance{
		Message:   input.Message,
		Signature: input.Signature,
		Purpose:   "auth",
		IPAddress: utils.ClientIP(r),
		UserAgent: r.UserAgent(),
	}); err != nil {
		log.Println("Auth: signature record failed:", err)
	}
	if expiresAt, err := Sessions.ExpiresAt(token); err == nil {
		if _, err := repositories.CreateSession(user.ID, token, expiresAt, utils.ClientIP(r), r.UserAgent()); err != nil {
			log.Println("Auth: session record failed:", err)
		}
	}

	utils.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Authentication successful",
		"jwt":     token,
		"user":    authUser{Address: user.Address},
	})
}

// GET /api/auth
func verifyToken(w http.ResponseWriter, r *http.Request) {
	token := middleware.BearerToken(r)
	if token == "" {
		utils.Error(w, http.StatusUnauthorized, "Missing or invalid authorization header")
		return
	}

	address, err := Sessions.Verify(token)
	if err != nil {
		utils.Error(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}

	expiresAt, _ := Sessions.ExpiresAt(token)
	utils.JSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"user":      authUser{Address: address},
		"expiresAt": expiresAt,
	})
}
