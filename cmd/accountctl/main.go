// Accountctl is the terminal client of the account service.
//
// It registers accounts, keeps a login session on disk and runs the account
// dashboard, where the username can be edited inline:
//
//	accountctl register alice01
//	accountctl login alice01
//	accountctl dashboard
//	accountctl logout
//
// Settings are read from the environment (DEMO_ACCOUNTCTL_*) and an optional
// .env file in the working directory.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

const (
	appName = "demo"
	svcName = "accountctl"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := rootCmd.ExecuteContext(ctx)

	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "accountctl",
	Short: "Account dashboard client",
	Long: `Terminal client for the account service.

Log in once, then open the dashboard to view and rename your account.
Renaming ends the session; log in again with the new username.`,
	Version:           versionString(),
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}
