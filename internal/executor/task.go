package executor

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/jg-fukuda/auto-genspark2/internal/driver"
	"github.com/jg-fukuda/auto-genspark2/internal/models"
	"github.com/jg-fukuda/auto-genspark2/internal/retry"
)

// Outcome text prefixes.
const (
	skippedPrefix = "[skipped] "
	errorPrefix   = "[error] "
)

// runTask executes the per-task protocol. Every error and panic is turned
// into an outcome; nothing escapes.
func (o *Orchestrator) runTask(ctx context.Context, rc *RunContext, task models.Task) (outcome models.TaskOutcome) {
	defer func() {
		if r := recover(); r != nil {
			err := &PanicError{Value: r, Stack: debug.Stack()}
			o.logger.LogError(fmt.Sprintf("Task %d panicked: %v\n%s", task.Number, r, err.Stack))
			outcome = failedOutcome(task, err)
		}
	}()

	if err := o.openChat(ctx); err != nil {
		return o.fail(task, NewTaskError(task, PhaseReset, "open a new chat", err))
	}

	if err := o.selectModel(ctx, task.ModelName); err != nil {
		if errors.Is(err, ErrModelNotFound) {
			o.logger.LogWarn(fmt.Sprintf("Model %q is not available, skipping: %v", task.ModelName, err))
			return skippedOutcome(task)
		}
		return o.fail(task, NewTaskError(task, PhaseModel, "select model", err))
	}

	err := o.retry.Do(ctx, retry.Step{
		Name:        "attach " + task.Asset.Name,
		MaxAttempts: o.settings.AttachAttempts,
		Run: func(ctx context.Context, attempt models.RetryAttempt) error {
			return o.attach(ctx, task.Asset)
		},
		Reset: func(ctx context.Context) error {
			if err := o.openChat(ctx); err != nil {
				return err
			}
			return o.selectModel(ctx, task.ModelName)
		},
	})
	if err != nil {
		return o.fail(task, NewTaskError(task, PhaseAttach, "attach image", err))
	}

	start, err := o.submitPrompt(ctx, rc.Plan.Prompt)
	if err != nil {
		return o.fail(task, NewTaskError(task, PhaseSubmit, "send prompt", err))
	}

	res, err := o.detector.Await(ctx)
	if err != nil {
		return o.fail(task, NewTaskError(task, PhaseCompletion, "wait for the answer", err))
	}
	elapsed := time.Since(start)
	o.logger.LogInfo(fmt.Sprintf("Response time: %.1fs", elapsed.Seconds()))

	signal := res.Signal
	if signal == "" {
		signal = models.SignalNone
	}
	return models.TaskOutcome{
		Task:       task,
		Status:     models.StatusSuccess,
		Elapsed:    elapsed,
		HasElapsed: true,
		Text:       res.Text,
		Signal:     signal,
		TimedOut:   res.TimedOut,
	}
}

func (o *Orchestrator) fail(task models.Task, err error) models.TaskOutcome {
	o.logger.LogError(fmt.Sprintf("[%d] %v", task.Number, err))
	return failedOutcome(task, err)
}

func failedOutcome(task models.Task, err error) models.TaskOutcome {
	return models.TaskOutcome{
		Task:   task,
		Status: models.StatusFailed,
		Text:   errorPrefix + err.Error(),
	}
}

func skippedOutcome(task models.Task) models.TaskOutcome {
	return models.TaskOutcome{
		Task:   task,
		Status: models.StatusSkipped,
		Text:   fmt.Sprintf("%smodel %q was not found", skippedPrefix, task.ModelName),
	}
}

// openChat navigates to a fresh chat surface and lets it settle.
func (o *Orchestrator) openChat(ctx context.Context) error {
	if err := o.page.Navigate(ctx, o.settings.ChatURL, o.settings.NavigationTimeout); err != nil {
		return err
	}
	return driver.Sleep(ctx, o.settings.PageSettle)
}

// selectModel opens the model selector and clicks the item whose visible
// text equals name. It returns an error matching ErrModelNotFound when the
// selector or the item is missing.
func (o *Orchestrator) selectModel(ctx context.Context, name string) error {
	s := o.settings
	o.logger.LogInfo(fmt.Sprintf("Selecting model: %s", name))

	button, err := driver.FirstFound(ctx, o.page, s.ModelButtonSelectors...)
	if err != nil {
		return err
	}
	if !button.Found() {
		return fmt.Errorf("model selector button is missing: %w", ErrModelNotFound)
	}
	if err := o.page.Click(ctx, button.Element); err != nil {
		return fmt.Errorf("open model selector: %w", err)
	}
	if err := driver.Sleep(ctx, s.ActionDelay); err != nil {
		return err
	}

	item, err := o.page.WaitForElementState(ctx, driver.TextSelector(name), driver.Visible, s.ModelItemTimeout)
	if err != nil {
		return err
	}
	if !item.Found() {
		if err := o.page.PressKey(ctx, driver.KeyEscape); err != nil {
			GracefulWarn(o.logger, "Could not close the model selector: %v", err)
		}
		if err := driver.Sleep(ctx, s.DropdownClose/2); err != nil {
			return err
		}
		return fmt.Errorf("%q is not in the model selector: %w", name, ErrModelNotFound)
	}

	if err := o.page.Click(ctx, item.Element); err != nil {
		return fmt.Errorf("click model %q: %w", name, err)
	}
	o.logger.LogInfo(fmt.Sprintf("Selected model %q", name))
	if err := driver.Sleep(ctx, s.ActionDelay); err != nil {
		return err
	}

	return o.closeDropdown(ctx)
}

// closeDropdown presses Escape while the model dropdown is still visible.
func (o *Orchestrator) closeDropdown(ctx context.Context) error {
	for attempt := 0; attempt < 2; attempt++ {
		dropdown, err := driver.FirstVisible(ctx, o.page, o.settings.ModelDropdownSelectors...)
		if err != nil {
			return err
		}
		if !dropdown.Found() {
			return nil
		}
		if attempt == 0 {
			o.logger.LogInfo("Model dropdown is still open, closing it")
		}
		if err := o.page.PressKey(ctx, driver.KeyEscape); err != nil {
			GracefulWarn(o.logger, "Could not close the model dropdown: %v", err)
			return nil
		}
		if err := driver.Sleep(ctx, o.settings.DropdownClose); err != nil {
			return err
		}
	}
	GracefulWarn(o.logger, "Model dropdown is still visible, continuing")
	return nil
}

// attach opens the add-entry menu, picks the upload option and sets the
// asset on the file chooser that option opens.
func (o *Orchestrator) attach(ctx context.Context, asset models.Asset) error {
	s := o.settings
	o.logger.LogInfo(fmt.Sprintf("Attaching image: %s", asset.Name))

	add, err := driver.FirstFound(ctx, o.page, s.AddEntrySelectors...)
	if err != nil {
		return err
	}
	if !add.Found() {
		return errors.New("add-entry button not found")
	}
	if err := o.page.Click(ctx, add.Element); err != nil {
		return fmt.Errorf("open add-entry menu: %w", err)
	}
	if err := driver.Sleep(ctx, s.ActionDelay); err != nil {
		return err
	}

	option, err := o.uploadOption(ctx)
	if err != nil {
		return err
	}

	chooser, status, err := o.page.InterceptFileSelection(ctx, func(ctx context.Context) error {
		return o.page.Click(ctx, option)
	}, s.FileChooserTimeout)
	if err != nil {
		return fmt.Errorf("open file chooser: %w", err)
	}
	if status != driver.Found {
		return fmt.Errorf("%w (%s)", ErrFileChooserNotOpened, status)
	}
	if err := chooser.SetFiles(ctx, asset.Path); err != nil {
		return fmt.Errorf("set file %s: %w", asset.Path, err)
	}
	o.logger.LogInfo("Image file selected")

	return driver.Sleep(ctx, s.ActionDelay)
}

// uploadOption returns the first add-entry option whose text mentions an
// upload keyword, or the first option when none does.
func (o *Orchestrator) uploadOption(ctx context.Context) (driver.Element, error) {
	var options []driver.Element
	for _, sel := range o.settings.AddEntryOptionSelectors {
		found, err := o.page.FindAllElements(ctx, sel)
		if err != nil {
			return driver.Element{}, err
		}
		if len(found) > 0 {
			options = found
			break
		}
	}
	if len(options) == 0 {
		return driver.Element{}, errors.New("add-entry options not found")
	}

	for _, el := range options {
		text, err := o.page.ReadText(ctx, el)
		if err != nil {
			if ctx.Err() != nil {
				return driver.Element{}, ctx.Err()
			}
			continue
		}
		if mentionsAny(text, o.settings.UploadKeywords) {
			return el, nil
		}
	}
	GracefulWarn(o.logger, "No option mentions a local file upload, using the first one")
	return options[0], nil
}

func mentionsAny(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, k := range keywords {
		if k != "" && strings.Contains(lower, strings.ToLower(k)) {
			return true
		}
	}
	return false
}

// submitPrompt fills the prompt input and presses Enter. It returns the
// submission time.
func (o *Orchestrator) submitPrompt(ctx context.Context, prompt string) (time.Time, error) {
	o.logger.LogInfo("Sending the prompt...")

	input, err := driver.FirstFound(ctx, o.page, o.settings.PromptInputSelectors...)
	if err != nil {
		return time.Time{}, err
	}
	if !input.Found() {
		return time.Time{}, ErrPromptInputNotFound
	}
	if err := o.page.Click(ctx, input.Element); err != nil {
		return time.Time{}, fmt.Errorf("focus prompt input: %w", err)
	}
	if err := driver.Sleep(ctx, o.settings.PromptFillDelay); err != nil {
		return time.Time{}, err
	}
	if err := o.page.Fill(ctx, input.Element, prompt); err != nil {
		return time.Time{}, fmt.Errorf("fill prompt: %w", err)
	}

	start := time.Now()
	if err := o.page.PressKey(ctx, driver.KeyEnter); err != nil {
		return time.Time{}, fmt.Errorf("submit prompt: %w", err)
	}
	o.logger.LogInfo("Prompt sent")
	return start, nil
}
