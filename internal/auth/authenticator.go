// Package auth ensures the browser holds an authenticated session before
// any task runs.
//
// The session state is never cached: it is derived from the page after
// every navigation. EnsureAuthenticated walks Probe, AutoLogin and a
// manual fallback in that order and fails only when all three did.
package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jg-fukuda/auto-genspark2/internal/driver"
	"github.com/jg-fukuda/auto-genspark2/internal/human"
	"github.com/jg-fukuda/auto-genspark2/internal/models"
)

// Settings locate the login surface and bound every wait.
type Settings struct {
	LoginURL          string
	ChatURL           string
	LoginURLPatterns  []string // Any match during a probe means unauthenticated
	LoginDonePatterns []string // All must be absent once login went through

	UpgradeSelectors    []string
	EmailLoginSelectors []string
	EmailSelectors      []string
	PasswordSelectors   []string
	SubmitSelectors     []string

	NavigationTimeout  time.Duration
	LoginTimeout       time.Duration
	PageSettle         time.Duration
	ActionDelay        time.Duration
	EmailButtonTimeout time.Duration
	FieldTimeout       time.Duration
	SubmitTimeout      time.Duration
	URLPollInterval    time.Duration
}

// Logger receives state transitions.
type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
}

// Authenticator drives the login state machine on one page.
type Authenticator struct {
	page     driver.Driver
	cred     models.Credential
	settings Settings
	prompter human.Prompter
	logger   Logger
}

// New creates an Authenticator.
func New(page driver.Driver, cred models.Credential, s Settings, prompter human.Prompter, logger Logger) *Authenticator {
	if s.URLPollInterval <= 0 {
		s.URLPollInterval = 500 * time.Millisecond
	}
	if logger == nil {
		logger = discard{}
	}
	return &Authenticator{page: page, cred: cred, settings: s, prompter: prompter, logger: logger}
}

// EnsureAuthenticated returns Authenticated or a *Error matching
// ErrNotAuthenticated. Context cancellation is returned as is.
func (a *Authenticator) EnsureAuthenticated(ctx context.Context) (models.SessionState, error) {
	state, err := a.Probe(ctx, a.settings.NavigationTimeout)
	if err != nil || state == models.Authenticated {
		return state, err
	}

	a.logger.Infof("Not logged in, trying automatic login")
	if err := a.AutoLogin(ctx); err != nil {
		if ctx.Err() != nil {
			return models.Unauthenticated, ctx.Err()
		}
		a.logger.Warnf("Automatic login failed: %v", err)
	}

	state, err = a.Probe(ctx, a.settings.LoginTimeout)
	if err != nil || state == models.Authenticated {
		if state == models.Authenticated {
			a.logger.Infof("Logged in automatically")
		}
		return state, err
	}

	a.logger.Warnf("Automatic login did not produce a session, waiting for a manual login")
	if err := a.prompter.Acknowledge(ctx, "Log in manually in the browser window, then press Enter..."); err != nil {
		if ctx.Err() != nil {
			return models.Unauthenticated, ctx.Err()
		}
		return models.Unauthenticated, &Error{Stage: "manual login", Err: err}
	}

	state, err = a.Probe(ctx, a.settings.LoginTimeout)
	if err != nil {
		return state, err
	}
	if state != models.Authenticated {
		url, _ := a.page.CurrentURL(ctx)
		a.logger.Warnf("Login could not be confirmed, giving up")
		return state, &Error{Stage: "manual login", URL: url}
	}
	a.logger.Infof("Logged in manually")
	return state, nil
}

// Probe navigates to the chat surface and classifies the session. A failed
// navigation is classified Unauthenticated; only context cancellation is
// returned as an error.
func (a *Authenticator) Probe(ctx context.Context, navTimeout time.Duration) (models.SessionState, error) {
	a.logger.Infof("Checking login state...")

	if err := a.page.Navigate(ctx, a.settings.ChatURL, navTimeout); err != nil {
		if ctx.Err() != nil {
			return models.Unauthenticated, ctx.Err()
		}
		a.logger.Warnf("Could not open %s: %v", a.settings.ChatURL, err)
		return models.Unauthenticated, nil
	}
	if err := driver.Sleep(ctx, a.settings.PageSettle); err != nil {
		return models.Unauthenticated, err
	}

	url, err := a.page.CurrentURL(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return models.Unauthenticated, ctx.Err()
		}
		a.logger.Warnf("Could not read the page location: %v", err)
		return models.Unauthenticated, nil
	}
	if pattern, ok := containsAny(url, a.settings.LoginURLPatterns); ok {
		a.logger.Infof("Redirected to a login page (%s)", pattern)
		return models.Unauthenticated, nil
	}

	upgrade, err := driver.FirstVisible(ctx, a.page, a.settings.UpgradeSelectors...)
	if err != nil {
		return models.Unauthenticated, err
	}
	if upgrade.Found() {
		a.logger.Infof("Upgrade prompt is visible (not logged in or free account)")
		return models.Unauthenticated, nil
	}

	a.logger.Infof("Session is %s", models.Authenticated)
	return models.Authenticated, nil
}

// AutoLogin fills the credential into the login form and waits for the
// page to leave the login surface. Missing redirect is a warning only; the
// caller re-probes to decide.
func (a *Authenticator) AutoLogin(ctx context.Context) error {
	s := a.settings
	a.logger.Infof("Starting automatic login as %s", a.cred.Identity)

	if err := a.page.Navigate(ctx, s.LoginURL, s.NavigationTimeout); err != nil {
		return fmt.Errorf("open login page: %w", err)
	}
	if err := driver.Sleep(ctx, s.PageSettle); err != nil {
		return err
	}

	emailButton, err := driver.WaitFirstVisible(ctx, a.page, s.EmailButtonTimeout, s.EmailLoginSelectors...)
	if err != nil {
		return err
	}
	if emailButton.Found() {
		if err := a.page.Click(ctx, emailButton.Element); err != nil {
			return fmt.Errorf("click email login: %w", err)
		}
		a.logger.Infof("Clicked the email login button")
		if err := driver.Sleep(ctx, s.ActionDelay); err != nil {
			return err
		}
	} else {
		a.logger.Warnf("Email login button not found, the form may already be open")
	}

	if err := a.fillField(ctx, "email", s.EmailSelectors, a.cred.Identity); err != nil {
		return err
	}
	if err := a.fillField(ctx, "password", s.PasswordSelectors, a.cred.Secret); err != nil {
		return err
	}

	submit, err := driver.WaitFirstVisible(ctx, a.page, s.SubmitTimeout, s.SubmitSelectors...)
	if err != nil {
		return err
	}
	if submit.Found() {
		if err := a.page.Click(ctx, submit.Element); err != nil {
			return fmt.Errorf("click login button: %w", err)
		}
		a.logger.Infof("Clicked the login button")
	} else {
		a.logger.Infof("Login button not found, submitting with Enter")
		if err := a.page.PressKey(ctx, driver.KeyEnter); err != nil {
			return fmt.Errorf("submit login form: %w", err)
		}
	}

	a.logger.Infof("Waiting for the login to complete...")
	left, err := a.waitLeaveLogin(ctx)
	if err != nil {
		return err
	}
	if left {
		a.logger.Infof("Left the login page")
	} else {
		a.logger.Warnf("No redirect away from the login page within %s", s.LoginTimeout)
	}

	return driver.Sleep(ctx, s.PageSettle)
}

func (a *Authenticator) fillField(ctx context.Context, name string, selectors []string, value string) error {
	field, err := driver.WaitFirstVisible(ctx, a.page, a.settings.FieldTimeout, selectors...)
	if err != nil {
		return err
	}
	if !field.Found() {
		return fmt.Errorf("%s field not found (%s)", name, strings.Join(selectors, ", "))
	}
	if err := a.page.Click(ctx, field.Element); err != nil {
		return fmt.Errorf("focus %s field: %w", name, err)
	}
	if err := a.page.Fill(ctx, field.Element, value); err != nil {
		return fmt.Errorf("fill %s field: %w", name, err)
	}
	a.logger.Infof("Entered the %s", name)
	return nil
}

// waitLeaveLogin polls the page location until none of the login-done
// patterns match. It reports false when LoginTimeout expired first.
func (a *Authenticator) waitLeaveLogin(ctx context.Context) (bool, error) {
	deadline := time.Now().Add(a.settings.LoginTimeout)
	for {
		url, err := a.page.CurrentURL(ctx)
		if err != nil && ctx.Err() != nil {
			return false, ctx.Err()
		}
		if err == nil {
			if _, still := containsAny(url, a.settings.LoginDonePatterns); !still {
				return true, nil
			}
		}
		if !time.Now().Before(deadline) {
			return false, nil
		}
		if err := driver.Sleep(ctx, a.settings.URLPollInterval); err != nil {
			return false, err
		}
	}
}

func containsAny(s string, patterns []string) (string, bool) {
	for _, p := range patterns {
		if p != "" && strings.Contains(s, p) {
			return p, true
		}
	}
	return "", false
}

type discard struct{}

func (discard) Infof(string, ...any) {}
func (discard) Warnf(string, ...any) {}
