package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var loginCmd = &cobra.Command{
	Use:   "login <email>",
	Short: "Sign in and store the session locally",
	Long: `Authenticate against the remote backend and persist the session in
the local database. Subsequent commands and the sync daemon use the
stored session until logout.

The password is read from the RENTORA_PASSWORD environment variable
when set, otherwise prompted on stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		email := args[0]
		password, err := readPassword()
		if err != nil {
			return err
		}

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		client := newClient(st)
		session, err := client.SignIn(cmd.Context(), email, password)
		if err != nil {
			return fmt.Errorf("sign in failed: %w", err)
		}

		if err := st.SaveSession(cmd.Context(), session.UserID, session.AccessToken); err != nil {
			return fmt.Errorf("failed to persist session: %w", err)
		}

		logger.Info("signed in", zap.String("email", email))
		fmt.Printf("Signed in as %s\n", email)
		return nil
	},
}

var registerCmd = &cobra.Command{
	Use:   "register <email>",
	Short: "Create an account and sign in",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		email := args[0]
		password, err := readPassword()
		if err != nil {
			return err
		}

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		client := newClient(st)
		session, err := client.SignUp(cmd.Context(), email, password)
		if err != nil {
			return fmt.Errorf("registration failed: %w", err)
		}

		if err := st.SaveSession(cmd.Context(), session.UserID, session.AccessToken); err != nil {
			return fmt.Errorf("failed to persist session: %w", err)
		}

		fmt.Printf("Registered and signed in as %s\n", email)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Clear the stored session and wipe the local cache",
	Long: `Remove the stored session and delete all locally cached rows.

Unsynced local changes are lost. Run "rentora sync" first if the
remote should receive them.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.ClearSession(cmd.Context()); err != nil {
			return fmt.Errorf("failed to clear session: %w", err)
		}
		if err := st.Wipe(cmd.Context()); err != nil {
			return fmt.Errorf("failed to wipe local cache: %w", err)
		}

		fmt.Println("Signed out; local cache cleared")
		return nil
	},
}

func readPassword() (string, error) {
	if pw := os.Getenv("RENTORA_PASSWORD"); pw != "" {
		return pw, nil
	}
	fmt.Fprint(os.Stderr, "Password: ")
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	pw := strings.TrimSpace(line)
	if pw == "" {
		return "", fmt.Errorf("password must not be empty")
	}
	return pw, nil
}
