package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/jg-fukuda/auto-genspark2/internal/auth"
	"github.com/jg-fukuda/auto-genspark2/internal/config"
	"github.com/jg-fukuda/auto-genspark2/internal/driver"
	"github.com/jg-fukuda/auto-genspark2/internal/human"
	"github.com/jg-fukuda/auto-genspark2/internal/logger"
	"github.com/spf13/cobra"
)

// NewLoginCommand creates the login command
func NewLoginCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to Genspark and keep the session in the browser profile",
		Long: `Open the browser with the configured profile and make sure the session
is logged in, using genspark.txt first and a manual login as fallback.

Later runs reuse the stored session, so this is a convenient way to deal
with captchas or two-factor prompts once, ahead of an unattended run.`,
		Args: cobra.NoArgs,
		RunE: loginCommand,
	}

	addConfigFlag(cmd)
	addInputFlags(cmd)
	cmd.Flags().Bool("headless", false, "Run the browser without a window")
	cmd.Flags().Bool("verbose", false, "Show detailed progress")

	return cmd
}

func loginCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	cred, err := config.LoadCredential(filepath.Join(cfg.InputDir, config.CredentialsFile))
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	console := logger.NewConsoleLogger(w, cfg.LogLevel)

	ctx, cancel := runContext(cmd, cfg)
	defer cancel()

	page, closeBrowser, err := driver.LaunchChrome(ctx, browserOptions(cfg))
	if err != nil {
		return err
	}
	defer closeBrowser()

	prompter := human.NewConsolePrompter(cmd.InOrStdin(), w)
	authenticator := auth.New(page, cred, authSettings(cfg), prompter, logger.Formatted(console))
	if _, err := authenticator.EnsureAuthenticated(ctx); err != nil {
		return err
	}

	if cfg.Browser.UserDataDir != "" {
		fmt.Fprintf(w, "Logged in as %s; the session is kept in %s\n", cred.Identity, cfg.Browser.UserDataDir)
	} else {
		fmt.Fprintf(w, "Logged in as %s\n", cred.Identity)
	}
	return nil
}
