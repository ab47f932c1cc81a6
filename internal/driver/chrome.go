package driver

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/page"
	cdpruntime "github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"golang.org/x/time/rate"
)

// BrowserOptions configures the Chrome process and driver pacing.
type BrowserOptions struct {
	Headless       bool
	UserDataDir    string        // Persistent profile directory (optional)
	ExecPath       string        // Chrome binary (optional)
	WindowWidth    int
	WindowHeight   int
	ActionInterval time.Duration // Minimum spacing between mutating actions
	ActionTimeout  time.Duration // Bound for a single click/fill/read
	PollInterval   time.Duration // Interval for WaitForElementState polling
}

// DefaultBrowserOptions returns a headed browser with conservative pacing.
func DefaultBrowserOptions() BrowserOptions {
	return BrowserOptions{
		Headless:       false,
		WindowWidth:    1366,
		WindowHeight:   900,
		ActionInterval: 300 * time.Millisecond,
		ActionTimeout:  15 * time.Second,
		PollInterval:   100 * time.Millisecond,
	}
}

// ChromeDriver implements Driver on top of a chromedp tab.
type ChromeDriver struct {
	tab           context.Context
	limiter       *rate.Limiter
	actionTimeout time.Duration
	pollInterval  time.Duration
}

var _ Driver = (*ChromeDriver)(nil)

// LaunchChrome starts a browser process and opens one tab. The returned
// close function shuts the browser down.
func LaunchChrome(parent context.Context, opts BrowserOptions) (*ChromeDriver, func(), error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)
	if opts.UserDataDir != "" {
		allocOpts = append(allocOpts, chromedp.UserDataDir(opts.UserDataDir))
	}
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}
	if opts.WindowWidth > 0 && opts.WindowHeight > 0 {
		allocOpts = append(allocOpts, chromedp.WindowSize(opts.WindowWidth, opts.WindowHeight))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(parent, allocOpts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	// An empty Run starts the browser and attaches the tab.
	if err := chromedp.Run(tabCtx); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, nil, fmt.Errorf("launch browser: %w", err)
	}

	closeFn := func() {
		_ = chromedp.Cancel(tabCtx)
		cancelTab()
		cancelAlloc()
	}
	return NewChromeDriver(tabCtx, opts), closeFn, nil
}

// NewChromeDriver wraps an existing chromedp tab context.
func NewChromeDriver(tab context.Context, opts BrowserOptions) *ChromeDriver {
	defaults := DefaultBrowserOptions()
	if opts.ActionTimeout <= 0 {
		opts.ActionTimeout = defaults.ActionTimeout
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaults.PollInterval
	}

	var limiter *rate.Limiter
	if opts.ActionInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(opts.ActionInterval), 1)
	}

	return &ChromeDriver{
		tab:           tab,
		limiter:       limiter,
		actionTimeout: opts.ActionTimeout,
		pollInterval:  opts.PollInterval,
	}
}

// run executes actions on the tab. The tab context carries the chromedp
// target, so the caller's ctx is bridged in through AfterFunc.
func (d *ChromeDriver) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d.tab.Err() != nil {
		return ErrBrowserClosed
	}

	var (
		runCtx context.Context
		cancel context.CancelFunc
	)
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(d.tab, timeout)
	} else {
		runCtx, cancel = context.WithCancel(d.tab)
	}
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// pace blocks until the limiter admits another mutating action.
func (d *ChromeDriver) pace(ctx context.Context) error {
	if d.limiter == nil {
		return nil
	}
	return d.limiter.Wait(ctx)
}

// Navigate implements Driver.
func (d *ChromeDriver) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	return actionError("navigate", url, d.run(ctx, timeout, chromedp.Navigate(url)))
}

// CurrentURL implements Driver.
func (d *ChromeDriver) CurrentURL(ctx context.Context) (string, error) {
	var location string
	if err := d.run(ctx, d.actionTimeout, chromedp.Location(&location)); err != nil {
		return "", actionError("location", "", err)
	}
	return location, nil
}

func (d *ChromeDriver) queryNodes(ctx context.Context, selector string) ([]*cdp.Node, error) {
	q, err := ParseSelector(selector)
	if err != nil {
		return nil, err
	}

	by := chromedp.ByQueryAll
	if q.Kind == QueryXPath {
		by = chromedp.BySearch
	}

	var nodes []*cdp.Node
	if err := d.run(ctx, d.actionTimeout, chromedp.Nodes(q.Expr, &nodes, by, chromedp.AtLeast(0))); err != nil {
		return nil, actionError("query", selector, err)
	}
	return nodes, nil
}

// FindElement implements Driver.
func (d *ChromeDriver) FindElement(ctx context.Context, selector string) (Lookup, error) {
	nodes, err := d.queryNodes(ctx, selector)
	if err != nil {
		return Lookup{}, err
	}
	if len(nodes) == 0 {
		return Lookup{Status: NotFound}, nil
	}
	return Lookup{Status: Found, Element: Element{Selector: selector, Handle: nodes[0]}}, nil
}

// FindAllElements implements Driver.
func (d *ChromeDriver) FindAllElements(ctx context.Context, selector string) ([]Element, error) {
	nodes, err := d.queryNodes(ctx, selector)
	if err != nil {
		return nil, err
	}
	elements := make([]Element, 0, len(nodes))
	for i, n := range nodes {
		elements = append(elements, Element{Selector: selector, Index: i, Handle: n})
	}
	return elements, nil
}

func nodeOf(el Element) (*cdp.Node, error) {
	n, ok := el.Handle.(*cdp.Node)
	if !ok || n == nil {
		return nil, ErrStaleElement
	}
	return n, nil
}

// IsVisible implements Driver. A node counts as rendered when it has a
// non-empty box model.
func (d *ChromeDriver) IsVisible(ctx context.Context, el Element) (bool, error) {
	n, err := nodeOf(el)
	if err != nil {
		return false, err
	}

	visible := false
	err = d.run(ctx, d.actionTimeout, chromedp.ActionFunc(func(ctx context.Context) error {
		box, err := dom.GetBoxModel().WithNodeID(n.NodeID).Do(ctx)
		if err != nil {
			// No box model: detached, display:none or not laid out.
			return nil
		}
		visible = box.Width > 0 && box.Height > 0
		return nil
	}))
	if err != nil {
		return false, actionError("visibility", el.Selector, err)
	}
	return visible, nil
}

// Click implements Driver.
func (d *ChromeDriver) Click(ctx context.Context, el Element) error {
	n, err := nodeOf(el)
	if err != nil {
		return actionError("click", el.Selector, err)
	}
	if err := d.pace(ctx); err != nil {
		return err
	}
	ids := []cdp.NodeID{n.NodeID}
	return actionError("click", el.Selector, d.run(ctx, d.actionTimeout, chromedp.Click(ids, chromedp.ByNodeID)))
}

// clearFieldJS empties a form control or a contenteditable host and
// notifies the page's input listeners.
const clearFieldJS = `function() {
	if (this.isContentEditable) {
		this.textContent = "";
	} else if ("value" in this) {
		this.value = "";
	}
	this.dispatchEvent(new Event("input", { bubbles: true }));
}`

// Fill implements Driver. The field is emptied in the page, then text is
// inserted with InsertText so embedded newlines never submit the form.
func (d *ChromeDriver) Fill(ctx context.Context, el Element, text string) error {
	n, err := nodeOf(el)
	if err != nil {
		return actionError("fill", el.Selector, err)
	}
	if err := d.pace(ctx); err != nil {
		return err
	}
	ids := []cdp.NodeID{n.NodeID}
	return actionError("fill", el.Selector, d.run(ctx, d.actionTimeout,
		chromedp.ActionFunc(func(ctx context.Context) error {
			obj, err := dom.ResolveNode().WithNodeID(n.NodeID).Do(ctx)
			if err != nil {
				return err
			}
			_, exc, err := cdpruntime.CallFunctionOn(clearFieldJS).WithObjectID(obj.ObjectID).Do(ctx)
			if err != nil {
				return err
			}
			if exc != nil {
				return exc
			}
			return nil
		}),
		chromedp.Focus(ids, chromedp.ByNodeID),
		input.InsertText(text),
	))
}

// PressKey implements Driver.
func (d *ChromeDriver) PressKey(ctx context.Context, key string) error {
	var seq string
	switch key {
	case KeyEnter:
		seq = kb.Enter
	case KeyEscape:
		seq = kb.Escape
	case KeyTab:
		seq = kb.Tab
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedKey, key)
	}
	if err := d.pace(ctx); err != nil {
		return err
	}
	return actionError("press", key, d.run(ctx, d.actionTimeout, chromedp.KeyEvent(seq)))
}

// WaitForElementState implements Driver.
func (d *ChromeDriver) WaitForElementState(ctx context.Context, selector string, state ElementState, timeout time.Duration) (Lookup, error) {
	return PollElementState(ctx, d, selector, state, timeout, d.pollInterval)
}

// InterceptFileSelection implements Driver. Chrome's native dialog is
// suppressed and the backing <input type=file> is captured instead.
func (d *ChromeDriver) InterceptFileSelection(ctx context.Context, trigger func(ctx context.Context) error, timeout time.Duration) (FileChooser, Status, error) {
	opened := make(chan *page.EventFileChooserOpened, 1)
	listenCtx, stopListening := context.WithCancel(d.tab)
	defer stopListening()
	chromedp.ListenTarget(listenCtx, func(ev interface{}) {
		if e, ok := ev.(*page.EventFileChooserOpened); ok {
			select {
			case opened <- e:
			default:
			}
		}
	})

	if err := d.run(ctx, d.actionTimeout, page.SetInterceptFileChooserDialog(true)); err != nil {
		return nil, NotFound, actionError("intercept file chooser", "", err)
	}
	disarm := func() {
		_ = d.run(context.Background(), d.actionTimeout, page.SetInterceptFileChooserDialog(false))
	}

	if err := trigger(ctx); err != nil {
		disarm()
		return nil, NotFound, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case ev := <-opened:
		return &chromeFileChooser{driver: d, backendNodeID: ev.BackendNodeID}, Found, nil
	case <-timer.C:
		disarm()
		return nil, TimedOut, nil
	case <-ctx.Done():
		disarm()
		return nil, TimedOut, ctx.Err()
	}
}

type chromeFileChooser struct {
	driver        *ChromeDriver
	backendNodeID cdp.BackendNodeID
}

// SetFiles assigns paths to the captured file input and disarms
// interception so later native dialogs behave normally.
func (c *chromeFileChooser) SetFiles(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return errors.New("set files: no paths given")
	}
	abs := make([]string, 0, len(paths))
	for _, p := range paths {
		a, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", p, err)
		}
		abs = append(abs, a)
	}
	return actionError("set files", strings.Join(abs, ","), c.driver.run(ctx, c.driver.actionTimeout,
		dom.SetFileInputFiles(abs).WithBackendNodeID(c.backendNodeID),
		page.SetInterceptFileChooserDialog(false),
	))
}

// ReadText implements Driver. The node's outer HTML is parsed with goquery
// so the result matches textContent without script and style bodies.
func (d *ChromeDriver) ReadText(ctx context.Context, el Element) (string, error) {
	n, err := nodeOf(el)
	if err != nil {
		return "", actionError("read text", el.Selector, err)
	}

	var html string
	ids := []cdp.NodeID{n.NodeID}
	if err := d.run(ctx, d.actionTimeout, chromedp.OuterHTML(ids, &html, chromedp.ByNodeID)); err != nil {
		return "", actionError("read text", el.Selector, err)
	}
	return TextFromHTML(html)
}

// TextFromHTML returns the concatenated text nodes of an HTML fragment,
// ignoring script and style content.
func TextFromHTML(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	doc.Find("script, style, noscript").Remove()
	return doc.Text(), nil
}
