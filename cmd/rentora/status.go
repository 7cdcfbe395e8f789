package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rentora/rentora/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show session, cache and connectivity status",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		userID, ok, err := st.UserID(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to read session: %w", err)
		}
		if ok {
			fmt.Printf("Session:   signed in (user %s)\n", userID)
		} else {
			fmt.Println("Session:   signed out")
		}

		client := newClient(st)
		if err := client.Health(cmd.Context()); err != nil {
			fmt.Printf("Remote:    unreachable (%v)\n", err)
		} else {
			fmt.Println("Remote:    online")
		}

		fmt.Println("\nLocal cache:")
		fmt.Printf("  %-10s %8s %8s %9s\n", "table", "active", "trashed", "unsynced")
		for _, table := range []store.Table{store.TableTenants, store.TableRooms, store.TablePayments, store.TableExpenses} {
			counts, err := st.TableCounts(cmd.Context(), table)
			if err != nil {
				return fmt.Errorf("failed to count %s: %w", table, err)
			}
			fmt.Printf("  %-10s %8d %8d %9d\n", table, counts.Active, counts.Trashed, counts.Unsynced)
		}
		return nil
	},
}
