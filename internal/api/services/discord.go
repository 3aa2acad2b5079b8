package services

import (
	"github.com/gonadlabs/gooch-island/internal/config"
	"golang.org/x/oauth2"
)

// DiscordOauthConfig drives the optional account-linking flow that stores a
// Discord handle on a whitelisted user.
var DiscordOauthConfig = &oauth2.Config{
	ClientID:     config.Envs.Discord.ClientID,
	ClientSecret: config.Envs.Discord.ClientSecret,
	RedirectURL:  config.Envs.Discord.RedirectURL,
	Scopes:       []string{"identify"},
	Endpoint: oauth2.Endpoint{
		AuthURL:  "https://discord.com/oauth2/authorize",
		TokenURL: "https://discord.com/api/oauth2/token",
	},
}

const DiscordUserURL = "https://discord.com/api/users/@me"
