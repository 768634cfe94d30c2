package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	connectEmail   string
	connectCompany string
	forgetAccount  bool
)

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Connect to Time Doctor",
	Long: `Logs in to Time Doctor and stores the access token.

With --email and --company the account is saved first and the password is
read from the terminal. Without them the saved account is used.`,
	RunE: runConnect,
}

var disconnectCmd = &cobra.Command{
	Use:   "disconnect",
	Short: "Remove the stored Time Doctor token",
	RunE:  runDisconnect,
}

// readPassword reads the account password. Replaced in tests.
var readPassword = func() string {
	// Try to read password without echo
	if term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return string(password)
		}
	}
	// Fallback to regular input
	reader := bufio.NewReader(os.Stdin)
	input, _ := reader.ReadString('\n') //nolint:errcheck // empty input is rejected below
	return strings.TrimSpace(input)
}

func init() {
	connectCmd.Flags().StringVar(&connectEmail, "email", "", "Time Doctor account email")
	connectCmd.Flags().StringVar(&connectCompany, "company", "", "Time Doctor company ID")
	disconnectCmd.Flags().BoolVar(&forgetAccount, "forget", false, "Also remove the saved password")

	rootCmd.AddCommand(connectCmd)
	rootCmd.AddCommand(disconnectCmd)
}

func runConnect(cmd *cobra.Command, _ []string) error {
	if connectionService == nil {
		return errors.New("connection service not configured")
	}

	if connectEmail != "" || connectCompany != "" {
		if settingsService == nil {
			return errors.New("settings service not configured")
		}
		cmd.Print("Password: ")
		password := readPassword()
		cmd.Println()
		if err := settingsService.SetProviderAccount(connectEmail, password, connectCompany); err != nil {
			return fmt.Errorf("failed to save account: %w", err)
		}
	}

	cmd.Println("Connecting to Time Doctor...")
	cred, err := connectionService.Connect(cmd.Context())
	if err != nil {
		return fmt.Errorf("connect failed: %w", err)
	}

	cmd.Println(successStyle.Render("Connected."))
	cmd.Printf("Token expires %s\n", cred.ExpiresAt.Local().Format(time.RFC1123))
	return nil
}

func runDisconnect(cmd *cobra.Command, _ []string) error {
	if connectionService == nil {
		return errors.New("connection service not configured")
	}

	if err := connectionService.Disconnect(cmd.Context()); err != nil {
		return fmt.Errorf("disconnect failed: %w", err)
	}

	if forgetAccount {
		if settingsService == nil {
			return errors.New("settings service not configured")
		}
		if err := settingsService.ClearProviderSecret(); err != nil {
			return fmt.Errorf("failed to clear password: %w", err)
		}
	}

	cmd.Println("Disconnected from Time Doctor.")
	return nil
}
