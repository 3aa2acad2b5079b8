package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/gonadlabs/gooch-island/internal/api/middleware"
	"github.com/gonadlabs/gooch-island/internal/api/services"
	"github.com/gonadlabs/gooch-island/internal/repositories"
	"github.com/gonadlabs/gooch-island/internal/utils"
)

// GET /api/social/discord/login
//
// Starts the Discord account-linking flow for an authenticated wallet
// (AuthMiddleware runs first). The wallet address rides along in the OAuth
// state so the callback knows which user to update.
func DiscordLogin(w http.ResponseWriter, r *http.Request) {
	address, ok := middleware.AddressFromContext(r.Context())
	if !ok {
		utils.Error(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	state, err := GenerateState(map[string]string{"address": address})
	if err != nil {
		utils.Error(w, http.StatusInternalServerError, "Failed to generate OAuth state")
		return
	}

	http.Redirect(w, r, services.DiscordOauthConfig.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

// GET /api/social/discord/callback
func DiscordCallback(w http.ResponseWriter, r *http.Request) {
	stateData, err := DecodeState(r.FormValue("state"))
	if err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid OAuth state")
		return
	}
	address := stateData["address"]
	if address == "" {
		utils.Error(w, http.StatusBadRequest, "Invalid OAuth state")
		return
	}

	token, err := services.DiscordOauthConfig.Exchange(context.Background(), r.FormValue("code"))
	if err != nil {
		log.Println("Discord: code exchange failed:", err)
		utils.Error(w, http.StatusInternalServerError, "Code exchange failed")
		return
	}

	client := services.DiscordOauthConfig.Client(context.Background(), token)
	resp, err := client.Get(services.DiscordUserURL)
	if err != nil {
		utils.Error(w, http.StatusInternalServerError, "Failed to get user info")
		return
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	var discordUser struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	}
	if err := json.Unmarshal(data, &discordUser); err != nil || discordUser.Username == "" {
		utils.Error(w, http.StatusInternalServerError, "Failed to parse user info")
		return
	}

	user, err := repositories.LinkDiscord(address, discordUser.Username)
	if err != nil {
		log.Println("Discord: link failed:", err)
		utils.Error(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	utils.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Discord account linked",
		"user": map[string]any{
			"address": user.Address,
			"discord": discordUser.Username,
		},
	})
}
