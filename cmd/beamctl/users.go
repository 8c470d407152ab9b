package main

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	"github.com/spf13/cobra"
)

var (
	usersType string
	usersPage int
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Inspect identities",
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List admins or customers, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		page, err := api.ListUsers(cmd.Context(), usersType, usersPage)
		if err != nil {
			return err
		}
		if len(page.Users) == 0 {
			fmt.Println(formatInfo("No users found"))
			return nil
		}

		rows := make([]table.Row, 0, len(page.Users))
		for _, u := range page.Users {
			role := ""
			if u.AdminData != nil {
				role = u.AdminData.Role
			}
			verified := ""
			if u.IsVerified {
				verified = "✔"
			}
			rows = append(rows, table.Row{
				u.ID,
				truncate(u.Email, 32),
				truncate(u.Name, 20),
				role,
				verified,
				u.CreatedAt.Format("2006-01-02"),
			})
		}
		fmt.Println(renderTable([]table.Column{
			{Title: "ID", Width: 36},
			{Title: "Email", Width: 32},
			{Title: "Name", Width: 20},
			{Title: "Role", Width: 11},
			{Title: "Verified", Width: 8},
			{Title: "Joined", Width: 10},
		}, rows))
		fmt.Println(formatMuted(fmt.Sprintf("page %d of %d, %d total", usersPage, page.LastPage, page.Total)))
		return nil
	},
}

func init() {
	usersListCmd.Flags().StringVar(&usersType, "type", "customer", "admin or customer")
	usersListCmd.Flags().IntVar(&usersPage, "page", 1, "page number")
	usersCmd.AddCommand(usersListCmd)
}
