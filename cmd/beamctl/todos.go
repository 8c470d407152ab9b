package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/spf13/cobra"
)

var todosScope string

var todosCmd = &cobra.Command{
	Use:   "todos",
	Short: "Inspect todo items",
}

var todosListCmd = &cobra.Command{
	Use:   "list",
	Short: "List todos in display order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		todos, err := api.ListTodos(cmd.Context(), todosScope)
		if err != nil {
			return err
		}
		if len(todos) == 0 {
			fmt.Println(formatInfo("Nothing to do"))
			return nil
		}

		rows := make([]table.Row, 0, len(todos))
		for _, t := range todos {
			status := " "
			if t.IsCompleted {
				status = "✔"
			}
			flag := ""
			if t.IsImportant {
				flag = "!"
			}
			due := ""
			if t.DueDate != nil {
				due = t.DueDate.Format("2006-01-02")
			}
			rows = append(rows, table.Row{
				fmt.Sprintf("%d", t.DisplayOrder),
				status,
				flag,
				truncate(t.Title, 40),
				due,
				truncate(strings.Join(t.Tags, ","), 20),
			})
		}
		fmt.Println(renderTable([]table.Column{
			{Title: "#", Width: 4},
			{Title: "Done", Width: 4},
			{Title: "!", Width: 1},
			{Title: "Title", Width: 40},
			{Title: "Due", Width: 10},
			{Title: "Tags", Width: 20},
		}, rows))
		return nil
	},
}

func init() {
	todosListCmd.Flags().StringVar(&todosScope, "scope", "mine", "mine, or all (admins only)")
	todosCmd.AddCommand(todosListCmd)
}
