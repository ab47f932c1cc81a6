package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// SiteConfig holds the URLs of the remote chat application.
type SiteConfig struct {
	// LoginURL is the login surface
	LoginURL string `yaml:"login_url"`

	// ChatURL opens a fresh chat session
	ChatURL string `yaml:"chat_url"`

	// LoginURLPatterns mark the current URL as a login page during a probe
	LoginURLPatterns []string `yaml:"login_url_patterns"`

	// LoginDonePatterns must all be absent from the URL once login completed
	LoginDonePatterns []string `yaml:"login_done_patterns"`
}

// TimeoutConfig holds the bounded waits of a run.
type TimeoutConfig struct {
	Navigation      time.Duration `yaml:"navigation"`
	Login           time.Duration `yaml:"login"`
	ActionDelay     time.Duration `yaml:"action_delay"`
	PageSettle      time.Duration `yaml:"page_settle"`
	EmailButton     time.Duration `yaml:"email_button"`
	LoginField      time.Duration `yaml:"login_field"`
	SubmitButton    time.Duration `yaml:"submit_button"`
	ModelItem       time.Duration `yaml:"model_item"`
	DropdownClose   time.Duration `yaml:"dropdown_close"`
	FileChooser     time.Duration `yaml:"file_chooser"`
	URLPollInterval time.Duration `yaml:"url_poll_interval"`
}

// CompletionConfig tunes how the end of an answer is detected.
type CompletionConfig struct {
	BusyPollAttempts   int           `yaml:"busy_poll_attempts"`
	BusyPollInterval   time.Duration `yaml:"busy_poll_interval"`
	ResponseTimeout    time.Duration `yaml:"response_timeout"`
	FallbackWarmup     time.Duration `yaml:"fallback_warmup"`
	StablePollInterval time.Duration `yaml:"stable_poll_interval"`
	StableSamples      int           `yaml:"stable_samples"`
	MaxStableSamples   int           `yaml:"max_stable_samples"`
	SettleDelay        time.Duration `yaml:"settle_delay"`
}

// RetryConfig controls the attach step retries.
type RetryConfig struct {
	MaxAttempts int `yaml:"max_attempts"`
}

// BrowserConfig controls the Chrome instance.
type BrowserConfig struct {
	Headless       bool          `yaml:"headless"`
	UserDataDir    string        `yaml:"user_data_dir"`
	ExecPath       string        `yaml:"exec_path"`
	WindowWidth    int           `yaml:"window_width"`
	WindowHeight   int           `yaml:"window_height"`
	ActionInterval time.Duration `yaml:"action_interval"`
	ActionTimeout  time.Duration `yaml:"action_timeout"`
}

// HistoryConfig controls the sqlite run history.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	DBPath  string `yaml:"db_path"`
}

// SelectorConfig lists element selector candidates for every UI affordance.
// Each list is tried in order.
type SelectorConfig struct {
	UpgradePrompt  []string `yaml:"upgrade_prompt"`
	EmailLogin     []string `yaml:"email_login"`
	EmailInput     []string `yaml:"email_input"`
	PasswordInput  []string `yaml:"password_input"`
	LoginSubmit    []string `yaml:"login_submit"`
	ModelButton    []string `yaml:"model_button"`
	ModelDropdown  []string `yaml:"model_dropdown"`
	AddEntryButton []string `yaml:"add_entry_button"`
	AddEntryOption []string `yaml:"add_entry_option"`
	PromptInput    []string `yaml:"prompt_input"`
	BusyIndicator  []string `yaml:"busy_indicator"`
	Answer         string   `yaml:"answer"`
	UploadKeywords []string `yaml:"upload_keywords"`
}

// Config represents gencompare configuration options
type Config struct {
	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// LogDir is the directory where run logs are written
	LogDir string `yaml:"log_dir"`

	// InputDir holds genspark.txt, prompt.txt, models.txt and images/
	InputDir string `yaml:"input_dir"`

	// OutputDir receives one CSV per run
	OutputDir string `yaml:"output_dir"`

	// Timeout bounds the whole run (0 = no limit)
	Timeout time.Duration `yaml:"timeout"`

	Site       SiteConfig       `yaml:"site"`
	Timeouts   TimeoutConfig    `yaml:"timeouts"`
	Completion CompletionConfig `yaml:"completion"`
	Retry      RetryConfig      `yaml:"retry"`
	Browser    BrowserConfig    `yaml:"browser"`
	History    HistoryConfig    `yaml:"history"`
	Selectors  SelectorConfig   `yaml:"selectors"`
}

// DefaultConfig returns a Config with the values the tool was tuned with
func DefaultConfig() *Config {
	return &Config{
		LogLevel:  "info",
		LogDir:    filepath.Join(HomeDirName, "logs"),
		InputDir:  ".",
		OutputDir: "dest",
		Timeout:   0,
		Site: SiteConfig{
			LoginURL:          "https://www.genspark.ai/login",
			ChatURL:           "https://www.genspark.ai/agents?type=ai_chat",
			LoginURLPatterns:  []string{"/login", "/signin", "/auth"},
			LoginDonePatterns: []string{"/login", "/signin"},
		},
		Timeouts: TimeoutConfig{
			Navigation:      30 * time.Second,
			Login:           3 * time.Minute,
			ActionDelay:     1500 * time.Millisecond,
			PageSettle:      3 * time.Second,
			EmailButton:     10 * time.Second,
			LoginField:      10 * time.Second,
			SubmitButton:    5 * time.Second,
			ModelItem:       5 * time.Second,
			DropdownClose:   time.Second,
			FileChooser:     15 * time.Second,
			URLPollInterval: 500 * time.Millisecond,
		},
		Completion: CompletionConfig{
			BusyPollAttempts:   20,
			BusyPollInterval:   500 * time.Millisecond,
			ResponseTimeout:    3 * time.Minute,
			FallbackWarmup:     5 * time.Second,
			StablePollInterval: 3 * time.Second,
			StableSamples:      3,
			MaxStableSamples:   60,
			SettleDelay:        2 * time.Second,
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
		},
		Browser: BrowserConfig{
			Headless:       false,
			UserDataDir:    filepath.Join(HomeDirName, "chrome-profile"),
			WindowWidth:    1366,
			WindowHeight:   900,
			ActionInterval: 300 * time.Millisecond,
			ActionTimeout:  15 * time.Second,
		},
		History: HistoryConfig{
			Enabled: true,
			DBPath:  filepath.Join(HomeDirName, "history.db"),
		},
		Selectors: SelectorConfig{
			UpgradePrompt: []string{".upgrade-prompt"},
			EmailLogin: []string{
				`xpath=//button[contains(normalize-space(.), "Login with email")]`,
				`xpath=//button[contains(normalize-space(.), "login with email")]`,
				`xpath=//button[contains(normalize-space(.), "Email")]`,
			},
			EmailInput:    []string{"#email"},
			PasswordInput: []string{"#password"},
			LoginSubmit: []string{
				`button[type="submit"]`,
				`xpath=//button[contains(normalize-space(.), "Log in")]`,
				`xpath=//button[contains(normalize-space(.), "Login")]`,
				`xpath=//button[contains(normalize-space(.), "Sign in")]`,
			},
			ModelButton:    []string{".model-selection-button"},
			ModelDropdown:  []string{".model-dropdown"},
			AddEntryButton: []string{".add-entry-btn"},
			AddEntryOption: []string{".add-entry-option-item"},
			PromptInput: []string{
				"textarea",
				`[contenteditable="true"]`,
				`input[type="text"]`,
				`[role="textbox"]`,
			},
			BusyIndicator: []string{
				"button.stop-button",
				`button[aria-label="Stop"]`,
				`button[aria-label="stop"]`,
				`xpath=//button[contains(normalize-space(.), "Stop")]`,
				`xpath=//button[contains(normalize-space(.), "停止")]`,
				".stop-generating",
				`[class*="stop"]`,
			},
			Answer:         ".assistant.plain-text",
			UploadKeywords: []string{"ローカル", "ファイル", "local", "file", "upload"},
		},
	}
}

// LoadConfig loads configuration from the specified file path.
// If the file doesn't exist, returns default configuration without error.
// Keys absent from the file keep their defaults; durations are written as
// Go duration strings ("30s", "3m").
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return cfg, nil
}

// Overrides carries CLI flag values. Nil fields were not set on the
// command line.
type Overrides struct {
	LogLevel  *string
	LogDir    *string
	InputDir  *string
	OutputDir *string
	Timeout   *time.Duration
	Headless  *bool
	NoHistory *bool
}

// MergeWithFlags merges CLI flags into the configuration.
// Non-nil flag values override configuration values.
func (c *Config) MergeWithFlags(o Overrides) {
	if o.LogLevel != nil {
		c.LogLevel = *o.LogLevel
	}
	if o.LogDir != nil {
		c.LogDir = *o.LogDir
	}
	if o.InputDir != nil {
		c.InputDir = *o.InputDir
	}
	if o.OutputDir != nil {
		c.OutputDir = *o.OutputDir
	}
	if o.Timeout != nil {
		c.Timeout = *o.Timeout
	}
	if o.Headless != nil {
		c.Browser.Headless = *o.Headless
	}
	if o.NoHistory != nil && *o.NoHistory {
		c.History.Enabled = false
	}
}

// Validate validates the configuration values.
// Returns an error if any values are invalid.
func (c *Config) Validate() error {
	switch strings.ToLower(c.LogLevel) {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level %q, must be one of: trace, debug, info, warn, error", c.LogLevel)
	}

	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be >= 0, got %v", c.Timeout)
	}
	if c.OutputDir == "" {
		return errors.New("output_dir cannot be empty")
	}

	if c.Site.LoginURL == "" || c.Site.ChatURL == "" {
		return errors.New("site.login_url and site.chat_url are required")
	}

	durations := map[string]time.Duration{
		"timeouts.navigation":             c.Timeouts.Navigation,
		"timeouts.login":                  c.Timeouts.Login,
		"timeouts.model_item":             c.Timeouts.ModelItem,
		"timeouts.file_chooser":           c.Timeouts.FileChooser,
		"timeouts.url_poll_interval":      c.Timeouts.URLPollInterval,
		"completion.busy_poll_interval":   c.Completion.BusyPollInterval,
		"completion.response_timeout":     c.Completion.ResponseTimeout,
		"completion.stable_poll_interval": c.Completion.StablePollInterval,
	}
	for name, d := range durations {
		if d <= 0 {
			return fmt.Errorf("%s must be > 0, got %v", name, d)
		}
	}

	if c.Completion.BusyPollAttempts <= 0 {
		return fmt.Errorf("completion.busy_poll_attempts must be > 0, got %d", c.Completion.BusyPollAttempts)
	}
	if c.Completion.StableSamples <= 0 {
		return fmt.Errorf("completion.stable_samples must be > 0, got %d", c.Completion.StableSamples)
	}
	if c.Completion.MaxStableSamples < c.Completion.StableSamples {
		return fmt.Errorf("completion.max_stable_samples (%d) must be >= stable_samples (%d)",
			c.Completion.MaxStableSamples, c.Completion.StableSamples)
	}
	if c.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("retry.max_attempts must be > 0, got %d", c.Retry.MaxAttempts)
	}

	if c.History.Enabled && c.History.DBPath == "" {
		return errors.New("history.db_path cannot be empty when history is enabled")
	}

	required := map[string][]string{
		"selectors.model_button":     c.Selectors.ModelButton,
		"selectors.add_entry_button": c.Selectors.AddEntryButton,
		"selectors.add_entry_option": c.Selectors.AddEntryOption,
		"selectors.prompt_input":     c.Selectors.PromptInput,
		"selectors.email_input":      c.Selectors.EmailInput,
		"selectors.password_input":   c.Selectors.PasswordInput,
	}
	for name, list := range required {
		if len(list) == 0 {
			return fmt.Errorf("%s needs at least one selector", name)
		}
	}
	if c.Selectors.Answer == "" {
		return errors.New("selectors.answer cannot be empty")
	}

	return nil
}
