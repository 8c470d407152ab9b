package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/beamdash/backend/pkg/session"
	"github.com/spf13/cobra"
)

var (
	loginEmail    string
	loginPassword string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and store the session in the config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		reader := bufio.NewReader(os.Stdin)
		if loginEmail == "" {
			loginEmail = prompt(reader, "Email: ")
		}
		if loginPassword == "" {
			loginPassword = os.Getenv("BEAMCTL_PASSWORD")
		}
		if loginPassword == "" {
			loginPassword = prompt(reader, "Password: ")
		}

		s, err := api.Login(cmd.Context(), loginEmail, loginPassword)
		if err != nil {
			return fmt.Errorf("login failed: %w", err)
		}
		sessions.Set(s)

		fmt.Println(formatSuccess("Logged in as " + loginEmail))
		fmt.Println(formatMuted("Session saved to " + configPath))
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Revoke the session and forget it locally",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := api.Logout(cmd.Context()); err != nil {
			fmt.Println(formatWarning("server logout failed: " + err.Error()))
		}
		sessions.Set(session.Session{})
		fmt.Println(formatSuccess("Logged out"))
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVarP(&loginEmail, "email", "e", "", "account email")
	loginCmd.Flags().StringVarP(&loginPassword, "password", "p", "", "account password (or BEAMCTL_PASSWORD)")
}

func prompt(r *bufio.Reader, label string) string {
	fmt.Print(label)
	line, _ := r.ReadString('\n')
	return strings.TrimSpace(line)
}
