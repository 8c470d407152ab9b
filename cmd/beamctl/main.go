package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/beamdash/backend/internal/client"
	"github.com/beamdash/backend/pkg/session"
	"github.com/spf13/cobra"
)

var (
	configPath string
	apiURL     string

	appConfig *client.Config
	api       *client.APIClient
	sessions  *session.Manager
)

var rootCmd = &cobra.Command{
	Use:   "beamctl",
	Short: "beamctl - command line client for the beamdash admin API",
	Long: styleTitle.Render("beamctl") + " - beamdash admin client\n\n" +
		"Upload media, manage the media library and inspect todos and users\n" +
		"from the terminal.",
	SilenceUsage:      true,
	PersistentPreRunE: initializeApp,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/beamctl/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", "", "API base URL (overrides the config file)")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(mediaCmd)
	rootCmd.AddCommand(todosCmd)
	rootCmd.AddCommand(usersCmd)
}

func initializeApp(cmd *cobra.Command, args []string) error {
	if configPath == "" {
		p, err := client.DefaultPath()
		if err != nil {
			return err
		}
		configPath = p
	}

	cfg, err := client.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if apiURL != "" {
		cfg.APIURL = apiURL
	}
	appConfig = cfg

	api = client.NewAPIClient(cfg.APIURL, &http.Client{Timeout: 10 * time.Minute})
	sessions = session.NewManager(cfg.Session, api, session.WithOnChange(saveSession))
	api.SetTokens(sessions)
	return nil
}

// saveSession persists every refreshed session so the next run reuses it.
func saveSession(s session.Session) {
	appConfig.Session = s
	if err := appConfig.Save(configPath); err != nil {
		fmt.Fprintln(os.Stderr, formatWarning("could not save session: "+err.Error()))
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, formatError(err.Error()))
		os.Exit(1)
	}
}
