// gonadctl drives the wallet-auth and whitelist flows against a running API
// server, standing in for the web dialog.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/gonadlabs/gooch-island/internal/flow"
	"github.com/spf13/cobra"
)

var (
	serverURL  string
	collection string
	cacheDir   string
)

var rootCmd = &cobra.Command{
	Use:   "gonadctl",
	Short: "Gooch Island whitelist client",
}

func main() {
	home, _ := os.UserHomeDir()
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "API server base URL")
	rootCmd.PersistentFlags().StringVar(&collection, "collection", "gonad", "whitelist collection")
	rootCmd.PersistentFlags().StringVar(&cacheDir, "cache", filepath.Join(home, ".gonadctl"), "local cache directory")

	rootCmd.AddCommand(authCmd)
	rootCmd.AddCommand(joinCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(logoutCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// wallet reads the private key from GONAD_PRIVATE_KEY.
func wallet() *flow.KeyWallet {
	hexKey := os.Getenv("GONAD_PRIVATE_KEY")
	if hexKey == "" {
		log.Fatal("GONAD_PRIVATE_KEY not set")
	}
	w, err := flow.NewKeyWallet(hexKey)
	if err != nil {
		log.Fatalf("Invalid private key: %v", err)
	}
	return w
}

func newFlows(w flow.Wallet) (*flow.AuthFlow, *flow.WhitelistFlow) {
	api := flow.NewClient(serverURL)
	cache := flow.NewCache(cacheDir)
	auth := flow.NewAuthFlow(w, api, cache)
	wl := flow.NewWhitelistFlow(auth, api, cache, collection)

	auth.Subscribe(func(s flow.Stage) { log.Printf("auth: %s", s) })
	wl.Subscribe(func(s flow.Stage) { log.Printf("whitelist: %s", s) })
	return auth, wl
}

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Sign in with the wallet and store a session",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		auth, _ := newFlows(wallet())

		if auth.Stage() == flow.StageAuthenticated {
			fmt.Printf("Already signed in as %s\n", auth.Session().Address)
			return
		}
		if err := auth.Connect(ctx); err != nil {
			log.Fatalf("Connect failed: %s", auth.Err())
		}
		if err := auth.Authenticate(ctx); err != nil {
			log.Fatalf("Authentication failed: %s", auth.Err())
		}
		fmt.Printf("Signed in as %s\n", auth.Session().Address)
	},
}

var joinCmd = &cobra.Command{
	Use:   "join",
	Short: "Join the whitelist",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		w := wallet()
		auth, wl := newFlows(w)

		// The dialog's entry point: re-derive where we are.
		stage := wl.Open(ctx)
		switch stage {
		case flow.StageSuccess:
			fmt.Println("Already whitelisted")
			return
		case flow.StageConnect, flow.StageConnected:
			if err := auth.Connect(ctx); err != nil {
				log.Fatalf("Connect failed: %s", auth.Err())
			}
			if err := auth.Authenticate(ctx); err != nil {
				log.Fatalf("Authentication failed: %s", auth.Err())
			}
			if wl.Open(ctx) == flow.StageSuccess {
				fmt.Println("Already whitelisted")
				return
			}
		}

		if err := wl.Join(ctx); err != nil {
			log.Fatalf("Join failed: %s", wl.Err())
		}
		fmt.Printf("Whitelisted, tier %q\n", wl.Tier())
	},
}

var statusCmd = &cobra.Command{
	Use:   "status [address]",
	Short: "Check whitelist membership",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		api := flow.NewClient(serverURL)

		var address string
		if len(args) > 0 {
			address = args[0]
		} else {
			address = wallet().Address()
		}

		status, err := api.Status(context.Background(), address, collection)
		if err != nil {
			log.Fatalf("Status check failed: %v", err)
		}
		if status.IsWhitelisted {
			fmt.Printf("%s is whitelisted (tier %q)\n", status.Address, status.Data.Tier)
		} else {
			fmt.Printf("%s is not whitelisted\n", status.Address)
		}
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show collection whitelist statistics",
	Run: func(cmd *cobra.Command, args []string) {
		api := flow.NewClient(serverURL)
		stats, err := api.Stats(context.Background(), collection)
		if err != nil {
			log.Fatalf("Stats failed: %v", err)
		}
		fmt.Printf("%s: %d entries, %d recent\n", stats.Collection, stats.Stats.Total, stats.Stats.RecentCount)
		for tier, count := range stats.Stats.ByTier {
			fmt.Printf("  %s: %d\n", tier, count)
		}
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Drop the stored session",
	Run: func(cmd *cobra.Command, args []string) {
		_, wl := newFlows(wallet())
		wl.Reset()
		fmt.Println("Signed out")
	},
}
