package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mkrupp/accountdash/internal/infra/config"
	"github.com/mkrupp/accountdash/internal/infra/logging"
	"github.com/mkrupp/accountdash/internal/svc/accountsvc/accountclient"
	"github.com/mkrupp/accountdash/internal/ui/dashboard"
	"github.com/mkrupp/accountdash/internal/ui/editor"
)

// Config is read from DEMO_ACCOUNTCTL_* variables.
type Config struct {
	config.EnvConfig

	Log     logging.LoggerConfig             `envPrefix:"LOG_"`
	Server  accountclient.HTTPClientConfig   `envPrefix:"SERVER_"`
	Session accountclient.SessionStoreConfig `envPrefix:"CLIENT_"`
	Editor  editor.Config                    `envPrefix:"EDITOR_"`
}

// Command flags
//
//nolint:gochecknoglobals
var (
	serverURL string
	logFile   string

	cfg   Config
	store *accountclient.SessionStore
)

//nolint:gochecknoinits
func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "account service URL (overrides DEMO_ACCOUNTCTL_SERVER_BASE_URL)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "write logs to this file")

	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(dashboardCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(versionCmd)
}

func setup(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	if err := config.LoadDotEnv(".env"); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}

	configPrefix := strings.ToUpper(appName + "_" + svcName)
	if err := config.Parse(ctx, &cfg, configPrefix); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	if serverURL != "" {
		cfg.Server.BaseURL = serverURL
	}

	output, err := logOutput(cmd == dashboardCmd, cfg.Log.Output, logFile)
	if err != nil {
		return fmt.Errorf("log output: %w", err)
	}

	cfg.Log.Output = output

	logging.Configure(ctx, cfg.Log, strings.ToLower(appName+"."+svcName))

	store, err = accountclient.NewSessionStore(cfg.Session)
	if err != nil {
		return fmt.Errorf("session store: %w", err)
	}

	return nil
}

// logOutput picks the log destination. The dashboard owns the terminal, so
// terminal output is redirected to a file in the user cache directory.
func logOutput(dashboard bool, output, logFile string) (string, error) {
	if logFile != "" {
		return logFile, nil
	}

	if !dashboard || (output != "stderr" && output != "stdout") {
		return output, nil
	}

	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("cache dir: %w", err)
	}

	dir = filepath.Join(dir, "accountdash")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create log dir: %w", err)
	}

	return filepath.Join(dir, svcName+".log"), nil
}

// newClient returns a client for the configured server, restoring the stored
// session when it belongs to the same server.
func newClient() (*accountclient.HTTPClient, accountclient.Session, error) {
	session, err := store.Load()
	if err != nil && !errors.Is(err, accountclient.ErrNoSession) {
		return nil, accountclient.Session{}, fmt.Errorf("load session: %w", err)
	}

	clientCfg := cfg.Server
	if serverURL == "" && session.BaseURL != "" {
		clientCfg.BaseURL = session.BaseURL
	}

	client, err := accountclient.NewHTTPClient(clientCfg, nil)
	if err != nil {
		return nil, accountclient.Session{}, fmt.Errorf("new client: %w", err)
	}

	if session.Token != "" && session.BaseURL == client.BaseURL() {
		client.SetToken(session.Token)
	}

	return client, session, nil
}

var registerCmd = &cobra.Command{
	Use:   "register <username>",
	Short: "Create an account",
	Long: `Create an account on the account service.

Usernames are 4-16 letters or digits. Passwords need at least 6 characters
out of letters, digits and !@#$%^&*()\/;:.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, err := newClient()
		if err != nil {
			return err
		}

		password, err := readPassword(cmd, "Password: ")
		if err != nil {
			return err
		}

		if err := client.Register(cmd.Context(), args[0], password); err != nil {
			return fmt.Errorf("register: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Registered %s. Log in with: accountctl login %s\n", args[0], args[0])

		return nil
	},
}

var loginCmd = &cobra.Command{
	Use:   "login <username>",
	Short: "Log in and store the session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, err := newClient()
		if err != nil {
			return err
		}

		password, err := readPassword(cmd, "Password: ")
		if err != nil {
			return err
		}

		if err := client.Login(cmd.Context(), args[0], password); err != nil {
			return fmt.Errorf("login: %w", err)
		}

		err = store.Save(accountclient.Session{
			BaseURL:  client.BaseURL(),
			Username: args[0],
			Token:    client.Token(),
		})
		if err != nil {
			return fmt.Errorf("save session: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s.\n", args[0])

		return nil
	},
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Open the account dashboard",
	Long: `Open the account dashboard.

Press enter to edit the username and enter again to confirm. A successful
rename logs you out after a short delay. Press tab for the account menu.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		client, _, err := newClient()
		if err != nil {
			return err
		}

		if err := client.CheckSession(ctx); err != nil {
			if errors.Is(err, accountclient.ErrNotLoggedIn) {
				_ = store.Clear()

				return errors.New("not logged in, run: accountctl login <username>")
			}

			return fmt.Errorf("check session: %w", err)
		}

		username, err := client.Username()
		if err != nil {
			return fmt.Errorf("session username: %w", err)
		}

		model := dashboard.New(ctx, username, client, client, cfg.Editor)

		final, err := tea.NewProgram(model, tea.WithContext(ctx)).Run()
		if err != nil {
			return fmt.Errorf("dashboard: %w", err)
		}

		m, ok := final.(dashboard.Model)
		if !ok {
			return nil
		}

		return endDashboard(cmd.OutOrStdout(), store, m)
	},
}

// endDashboard drops the stored session once the dashboard ended it, either
// by logging out or by a rename that outdated the token.
func endDashboard(out io.Writer, sessions *accountclient.SessionStore, m dashboard.Model) error {
	if !m.LoggedOut() && !m.Renamed() {
		return nil
	}

	if err := sessions.Clear(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}

	if m.Renamed() {
		fmt.Fprintln(out, "Username changed. Log in again with the new username.")
	} else {
		fmt.Fprintln(out, "Logged out.")
	}

	return nil
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		client, session, err := newClient()
		if err != nil {
			return err
		}

		if session.Token != "" {
			if err := client.Navigate(cmd.Context(), "/logout"); err != nil {
				logging.GetLogger("cmd.accountctl").WarnContext(cmd.Context(), "server logout failed", "error", err)
			}
		}

		if err := store.Clear(); err != nil {
			return fmt.Errorf("clear session: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")

		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", svcName, versionString())
	},
}

// readPassword prompts without echo on a terminal and reads a line otherwise.
func readPassword(cmd *cobra.Command, prompt string) (string, error) {
	fd := int(os.Stdin.Fd())

	if term.IsTerminal(fd) {
		cmd.Print(prompt)

		password, err := term.ReadPassword(fd)

		cmd.Println()

		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}

		return string(password), nil
	}

	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read password: %w", err)
	}

	return strings.TrimRight(line, "\r\n"), nil
}
