package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jg-fukuda/auto-genspark2/internal/auth"
	"github.com/jg-fukuda/auto-genspark2/internal/completion"
	"github.com/jg-fukuda/auto-genspark2/internal/config"
	"github.com/jg-fukuda/auto-genspark2/internal/driver"
	"github.com/jg-fukuda/auto-genspark2/internal/executor"
	"github.com/jg-fukuda/auto-genspark2/internal/logger"
	"github.com/spf13/cobra"
)

// promptFillDelay separates focusing the prompt input from filling it.
const promptFillDelay = 300 * time.Millisecond

func addConfigFlag(cmd *cobra.Command) {
	cmd.Flags().String("config", "", "Path to config file (default: .gencompare/config.yaml)")
}

func addInputFlags(cmd *cobra.Command) {
	cmd.Flags().String("input-dir", "", "Directory holding genspark.txt, prompt.txt, models.txt and images/")
}

func changedString(cmd *cobra.Command, name string) *string {
	if f := cmd.Flags().Lookup(name); f == nil || !f.Changed {
		return nil
	}
	v, _ := cmd.Flags().GetString(name)
	return &v
}

func changedBool(cmd *cobra.Command, name string) *bool {
	if f := cmd.Flags().Lookup(name); f == nil || !f.Changed {
		return nil
	}
	v, _ := cmd.Flags().GetBool(name)
	return &v
}

// loadConfig reads --config (or the default config file), merges the flags
// the command defines and validates the result.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")
	if configPath == "" {
		var err error
		if configPath, err = config.DefaultConfigPath(); err != nil {
			return nil, fmt.Errorf("failed to locate config: %w", err)
		}
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
	}

	overrides := config.Overrides{
		LogDir:    changedString(cmd, "log-dir"),
		InputDir:  changedString(cmd, "input-dir"),
		OutputDir: changedString(cmd, "output-dir"),
		Headless:  changedBool(cmd, "headless"),
		NoHistory: changedBool(cmd, "no-history"),
	}
	if verbose := changedBool(cmd, "verbose"); verbose != nil && *verbose {
		level := "debug"
		overrides.LogLevel = &level
	}
	if timeoutStr := changedString(cmd, "timeout"); timeoutStr != nil {
		timeout, err := time.ParseDuration(*timeoutStr)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout format %q: %w", *timeoutStr, err)
		}
		overrides.Timeout = &timeout
	}
	cfg.MergeWithFlags(overrides)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// runContext returns the command context bounded by the configured timeout.
func runContext(cmd *cobra.Command, cfg *config.Config) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.Timeout > 0 {
		return context.WithTimeout(ctx, cfg.Timeout)
	}
	return context.WithCancel(ctx)
}

// openLoggers returns the console logger, plus the file logger when the
// log directory is usable. The close function is always non-nil.
func openLoggers(cfg *config.Config, w io.Writer) (logger.Multi, func()) {
	console := logger.NewConsoleLogger(w, cfg.LogLevel)

	file, err := logger.NewFileLoggerWithDirAndLevel(cfg.LogDir, cfg.LogLevel)
	if err != nil {
		console.LogWarn(fmt.Sprintf("File logging disabled: %v", err))
		return logger.NewMulti(console), func() {}
	}
	console.LogDebug(fmt.Sprintf("Writing the run log to %s", file.Path()))
	return logger.NewMulti(console, file), func() { _ = file.Close() }
}

func browserOptions(cfg *config.Config) driver.BrowserOptions {
	opts := driver.DefaultBrowserOptions()
	opts.Headless = cfg.Browser.Headless
	opts.UserDataDir = cfg.Browser.UserDataDir
	opts.ExecPath = cfg.Browser.ExecPath
	if cfg.Browser.WindowWidth > 0 && cfg.Browser.WindowHeight > 0 {
		opts.WindowWidth = cfg.Browser.WindowWidth
		opts.WindowHeight = cfg.Browser.WindowHeight
	}
	if cfg.Browser.ActionInterval > 0 {
		opts.ActionInterval = cfg.Browser.ActionInterval
	}
	if cfg.Browser.ActionTimeout > 0 {
		opts.ActionTimeout = cfg.Browser.ActionTimeout
	}
	return opts
}

func authSettings(cfg *config.Config) auth.Settings {
	return auth.Settings{
		LoginURL:            cfg.Site.LoginURL,
		ChatURL:             cfg.Site.ChatURL,
		LoginURLPatterns:    cfg.Site.LoginURLPatterns,
		LoginDonePatterns:   cfg.Site.LoginDonePatterns,
		UpgradeSelectors:    cfg.Selectors.UpgradePrompt,
		EmailLoginSelectors: cfg.Selectors.EmailLogin,
		EmailSelectors:      cfg.Selectors.EmailInput,
		PasswordSelectors:   cfg.Selectors.PasswordInput,
		SubmitSelectors:     cfg.Selectors.LoginSubmit,
		NavigationTimeout:   cfg.Timeouts.Navigation,
		LoginTimeout:        cfg.Timeouts.Login,
		PageSettle:          cfg.Timeouts.PageSettle,
		ActionDelay:         cfg.Timeouts.ActionDelay,
		EmailButtonTimeout:  cfg.Timeouts.EmailButton,
		FieldTimeout:        cfg.Timeouts.LoginField,
		SubmitTimeout:       cfg.Timeouts.SubmitButton,
		URLPollInterval:     cfg.Timeouts.URLPollInterval,
	}
}

func completionSettings(cfg *config.Config) completion.Settings {
	return completion.Settings{
		BusySelectors:      cfg.Selectors.BusyIndicator,
		AnswerSelector:     cfg.Selectors.Answer,
		BusyPollAttempts:   cfg.Completion.BusyPollAttempts,
		BusyPollInterval:   cfg.Completion.BusyPollInterval,
		ResponseTimeout:    cfg.Completion.ResponseTimeout,
		FallbackWarmup:     cfg.Completion.FallbackWarmup,
		StablePollInterval: cfg.Completion.StablePollInterval,
		StableSamples:      cfg.Completion.StableSamples,
		MaxStableSamples:   cfg.Completion.MaxStableSamples,
		SettleDelay:        cfg.Completion.SettleDelay,
	}
}

func executorSettings(cfg *config.Config) executor.Settings {
	return executor.Settings{
		ChatURL:                 cfg.Site.ChatURL,
		ModelButtonSelectors:    cfg.Selectors.ModelButton,
		ModelDropdownSelectors:  cfg.Selectors.ModelDropdown,
		AddEntrySelectors:       cfg.Selectors.AddEntryButton,
		AddEntryOptionSelectors: cfg.Selectors.AddEntryOption,
		PromptInputSelectors:    cfg.Selectors.PromptInput,
		UploadKeywords:          cfg.Selectors.UploadKeywords,
		NavigationTimeout:       cfg.Timeouts.Navigation,
		PageSettle:              cfg.Timeouts.PageSettle,
		ActionDelay:             cfg.Timeouts.ActionDelay,
		ModelItemTimeout:        cfg.Timeouts.ModelItem,
		DropdownClose:           cfg.Timeouts.DropdownClose,
		FileChooserTimeout:      cfg.Timeouts.FileChooser,
		PromptFillDelay:         promptFillDelay,
		AttachAttempts:          cfg.Retry.MaxAttempts,
		Completion:              completionSettings(cfg),
	}
}
