package api

import (
	"fmt"
	"net/http"

	_ "github.com/gonadlabs/gooch-island/docs"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/gonadlabs/gooch-island/internal/api/handlers"
	"github.com/gonadlabs/gooch-island/internal/api/middleware"
	"github.com/gonadlabs/gooch-island/internal/config"
	"github.com/rs/cors"
)

func SetupRouter() http.Handler {
	mainMux := http.NewServeMux()
	c := cors.New(config.Envs.CorsConfig)

	mainMux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "OK")
	})

	mainMux.HandleFunc("/docs/", httpSwagger.WrapHandler)

	apiMux := http.NewServeMux()
	apiMux.HandleFunc("/auth", handlers.Auth)
	apiMux.HandleFunc("/whitelist", handlers.Whitelist)
	apiMux.HandleFunc("/whitelist/stats", handlers.WhitelistStats)
	apiMux.HandleFunc("/game/stats", handlers.GameStats)
	apiMux.Handle("/social/discord/login",
		middleware.AuthMiddleware(handlers.Sessions, http.HandlerFunc(handlers.DiscordLogin)),
	)
	apiMux.HandleFunc("/social/discord/callback", handlers.DiscordCallback)
	apiMux.HandleFunc("/admin/entries", handlers.AdminEntries)

	mainMux.Handle("/api/",
		http.StripPrefix("/api", apiMux),
	)

	handler := c.Handler(mainMux)
	handler = middleware.Logger(handler)
	return handler
}
