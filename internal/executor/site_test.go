package executor

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/jg-fukuda/auto-genspark2/internal/completion"
	"github.com/jg-fukuda/auto-genspark2/internal/driver"
	"github.com/jg-fukuda/auto-genspark2/internal/driver/drivertest"
	"github.com/jg-fukuda/auto-genspark2/internal/models"
)

const (
	chatURL     = "https://chat.test/agents?type=ai_chat"
	modelBtnSel = ".model-selection-button"
	dropdownSel = ".model-dropdown"
	addSel      = ".add-entry-btn"
	optionSel   = ".add-entry-option-item"
	promptSel   = "textarea"
	answerSel   = ".answer"
)

// chatSite scripts a drivertest.Page that behaves like the chat surface:
// a model selector, an add-entry menu opening a file chooser and a prompt
// that produces an answer naming the selected model and attached file.
type chatSite struct {
	models          []string
	options         []string // Add-entry option labels
	stickyDropdown  bool     // Dropdown survives a model click
	noModelButton   bool
	chooserFailures int // File chooser refuses to open this many times

	selected string
	attached string
	prompt   string
	chooser  int
}

func newChatSite(models ...string) *chatSite {
	return &chatSite{
		models:  models,
		options: []string{"Google Drive", "Upload a local file"},
	}
}

func (s *chatSite) page() *drivertest.Page {
	page := drivertest.NewPage("about:blank")
	page.OnNavigate = func(p *drivertest.Page, url string) error {
		p.Reset()
		s.selected, s.attached, s.prompt = "", "", ""
		if url != chatURL {
			return nil
		}
		if !s.noModelButton {
			p.Set(modelBtnSel, &drivertest.Node{OnClick: s.openSelector})
		}
		p.Set(addSel, &drivertest.Node{OnClick: s.openMenu})
		p.Set(promptSel, &drivertest.Node{})
		return nil
	}
	page.OnPress = func(p *drivertest.Page, key string) {
		switch key {
		case driver.KeyEscape:
			s.closeSelector(p)
		case driver.KeyEnter:
			if s.prompt != "" {
				s.attachedFrom(p)
				p.Set(answerSel, &drivertest.Node{
					Text: fmt.Sprintf("answer from %s for %s", s.selected, s.attached),
				})
			}
		}
	}
	page.OnFill = func(p *drivertest.Page, selector, text string) {
		if selector == promptSel {
			s.prompt = text
		}
	}
	page.OnChooser = func(p *drivertest.Page) (driver.Status, error) {
		s.chooser++
		if s.chooserFailures > 0 {
			s.chooserFailures--
			return driver.TimedOut, nil
		}
		return driver.Found, nil
	}
	return page
}

func (s *chatSite) openSelector(p *drivertest.Page) {
	p.Set(dropdownSel, &drivertest.Node{})
	for _, m := range s.models {
		name := m
		p.Set(driver.TextSelector(name), &drivertest.Node{Text: name, OnClick: func(p *drivertest.Page) {
			s.selected = name
			if !s.stickyDropdown {
				s.closeSelector(p)
			}
		}})
	}
}

func (s *chatSite) closeSelector(p *drivertest.Page) {
	p.Remove(dropdownSel)
	for _, m := range s.models {
		p.Remove(driver.TextSelector(m))
	}
}

func (s *chatSite) openMenu(p *drivertest.Page) {
	nodes := make([]*drivertest.Node, 0, len(s.options))
	for _, label := range s.options {
		nodes = append(nodes, &drivertest.Node{Text: label})
	}
	p.Set(optionSel, nodes...)
}

// attachedFrom records which file the last chooser received.
func (s *chatSite) attachedFrom(p *drivertest.Page) {
	if len(p.Files) > 0 {
		s.attached = filepath.Base(p.Files[len(p.Files)-1])
	}
}

func testSettings() Settings {
	return Settings{
		ChatURL:                 chatURL,
		ModelButtonSelectors:    []string{modelBtnSel},
		ModelDropdownSelectors:  []string{dropdownSel},
		AddEntrySelectors:       []string{addSel},
		AddEntryOptionSelectors: []string{optionSel},
		PromptInputSelectors:    []string{promptSel, `[role="textbox"]`},
		UploadKeywords:          []string{"ローカル", "ファイル", "local", "file", "upload"},
		NavigationTimeout:       time.Second,
		ModelItemTimeout:        5 * time.Millisecond,
		FileChooserTimeout:      time.Second,
		AttachAttempts:          3,
		Completion: completion.Settings{
			BusySelectors:    []string{".stop"},
			AnswerSelector:   answerSel,
			BusyPollAttempts: 2,
			BusyPollInterval: time.Millisecond,
			ResponseTimeout:  time.Second,
			StableSamples:    2,
			MaxStableSamples: 10,
		},
	}
}

func testAssets(names ...string) []models.Asset {
	assets := make([]models.Asset, 0, len(names))
	for _, n := range names {
		assets = append(assets, models.Asset{Name: n, Path: filepath.Join("images", n)})
	}
	return assets
}

type fakeAuth struct {
	calls int
	err   error
}

func (f *fakeAuth) EnsureAuthenticated(ctx context.Context) (models.SessionState, error) {
	f.calls++
	if f.err != nil {
		return models.Unauthenticated, f.err
	}
	return models.Authenticated, nil
}
