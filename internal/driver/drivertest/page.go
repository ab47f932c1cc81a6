// Package drivertest provides an in-memory driver.Driver for tests.
//
// A Page holds a set of nodes keyed by the exact selector string the code
// under test will query. Tests script behavior through the hook fields:
// OnFind runs before every lookup and may mutate the page, which is how
// time-dependent UI (a busy indicator that appears then disappears) is
// simulated without real clocks.
package drivertest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jg-fukuda/auto-genspark2/internal/driver"
)

// Node is a fake element.
type Node struct {
	Text    string   // Returned by ReadText when Texts is empty
	Texts   []string // Successive ReadText results; the last one repeats
	Hidden  bool
	OnClick func(p *Page)

	reads int
}

// Reads returns how many times ReadText was called on the node.
func (n *Node) Reads() int {
	return n.reads
}

func (n *Node) nextText() string {
	n.reads++
	if len(n.Texts) == 0 {
		return n.Text
	}
	i := n.reads - 1
	if i >= len(n.Texts) {
		i = len(n.Texts) - 1
	}
	return n.Texts[i]
}

// Page is a scriptable driver.Driver.
type Page struct {
	URL string

	// Log records every mutating action as "verb target".
	Log []string
	// Files receives paths passed to a chooser's SetFiles.
	Files []string

	// OnNavigate runs after URL is updated; it may rebuild the page.
	OnNavigate func(p *Page, url string) error
	// OnFind runs before each FindElement/FindAllElements call.
	OnFind func(p *Page, selector string)
	// OnPress runs after a key press is logged.
	OnPress func(p *Page, key string)
	// OnChooser decides the outcome of InterceptFileSelection after the
	// trigger ran. Nil means Found.
	OnChooser func(p *Page) (driver.Status, error)
	// OnFill runs after a fill is logged.
	OnFill func(p *Page, selector, text string)

	// PollInterval is used by WaitForElementState. Zero means 1ms.
	PollInterval time.Duration

	nodes map[string][]*Node
	finds map[string]int
}

var _ driver.Driver = (*Page)(nil)

// NewPage returns an empty page at url.
func NewPage(url string) *Page {
	return &Page{
		URL:   url,
		nodes: make(map[string][]*Node),
		finds: make(map[string]int),
	}
}

// Set replaces the nodes matched by selector.
func (p *Page) Set(selector string, nodes ...*Node) {
	p.nodes[selector] = nodes
}

// Remove drops every node matched by selector.
func (p *Page) Remove(selector string) {
	delete(p.nodes, selector)
}

// Reset drops all nodes.
func (p *Page) Reset() {
	p.nodes = make(map[string][]*Node)
}

// Nodes returns the nodes currently matched by selector.
func (p *Page) Nodes(selector string) []*Node {
	return p.nodes[selector]
}

// Finds returns how many lookups were made for selector.
func (p *Page) Finds(selector string) int {
	return p.finds[selector]
}

// Count returns how many Log entries start with prefix.
func (p *Page) Count(prefix string) int {
	n := 0
	for _, entry := range p.Log {
		if strings.HasPrefix(entry, prefix) {
			n++
		}
	}
	return n
}

func (p *Page) record(format string, args ...any) {
	p.Log = append(p.Log, fmt.Sprintf(format, args...))
}

// Navigate implements driver.Driver.
func (p *Page) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.record("navigate %s", url)
	p.URL = url
	if p.OnNavigate != nil {
		return p.OnNavigate(p, url)
	}
	return nil
}

// CurrentURL implements driver.Driver.
func (p *Page) CurrentURL(ctx context.Context) (string, error) {
	return p.URL, ctx.Err()
}

// FindElement implements driver.Driver.
func (p *Page) FindElement(ctx context.Context, selector string) (driver.Lookup, error) {
	elements, err := p.FindAllElements(ctx, selector)
	if err != nil {
		return driver.Lookup{}, err
	}
	if len(elements) == 0 {
		return driver.Lookup{Status: driver.NotFound}, nil
	}
	return driver.Lookup{Status: driver.Found, Element: elements[0]}, nil
}

// FindAllElements implements driver.Driver.
func (p *Page) FindAllElements(ctx context.Context, selector string) ([]driver.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.finds[selector]++
	if p.OnFind != nil {
		p.OnFind(p, selector)
	}
	nodes := p.nodes[selector]
	elements := make([]driver.Element, 0, len(nodes))
	for i, n := range nodes {
		elements = append(elements, driver.Element{Selector: selector, Index: i, Handle: n})
	}
	return elements, nil
}

func nodeOf(el driver.Element) (*Node, error) {
	n, ok := el.Handle.(*Node)
	if !ok || n == nil {
		return nil, driver.ErrStaleElement
	}
	return n, nil
}

// IsVisible implements driver.Driver.
func (p *Page) IsVisible(ctx context.Context, el driver.Element) (bool, error) {
	n, err := nodeOf(el)
	if err != nil {
		return false, err
	}
	return !n.Hidden, ctx.Err()
}

// Click implements driver.Driver.
func (p *Page) Click(ctx context.Context, el driver.Element) error {
	n, err := nodeOf(el)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	p.record("click %s", el.Selector)
	if n.OnClick != nil {
		n.OnClick(p)
	}
	return nil
}

// Fill implements driver.Driver.
func (p *Page) Fill(ctx context.Context, el driver.Element, text string) error {
	n, err := nodeOf(el)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	n.Text = text
	p.record("fill %s=%s", el.Selector, text)
	if p.OnFill != nil {
		p.OnFill(p, el.Selector, text)
	}
	return nil
}

// PressKey implements driver.Driver.
func (p *Page) PressKey(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.record("press %s", key)
	if p.OnPress != nil {
		p.OnPress(p, key)
	}
	return nil
}

// WaitForElementState implements driver.Driver by polling the page.
func (p *Page) WaitForElementState(ctx context.Context, selector string, state driver.ElementState, timeout time.Duration) (driver.Lookup, error) {
	interval := p.PollInterval
	if interval <= 0 {
		interval = time.Millisecond
	}
	return driver.PollElementState(ctx, p, selector, state, timeout, interval)
}

// InterceptFileSelection implements driver.Driver.
func (p *Page) InterceptFileSelection(ctx context.Context, trigger func(ctx context.Context) error, timeout time.Duration) (driver.FileChooser, driver.Status, error) {
	if err := trigger(ctx); err != nil {
		return nil, driver.NotFound, err
	}
	status := driver.Found
	if p.OnChooser != nil {
		var err error
		status, err = p.OnChooser(p)
		if err != nil {
			return nil, status, err
		}
	}
	if status != driver.Found {
		return nil, status, nil
	}
	return &chooser{page: p}, driver.Found, nil
}

type chooser struct {
	page *Page
}

func (c *chooser) SetFiles(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return errors.New("no paths")
	}
	c.page.Files = append(c.page.Files, paths...)
	c.page.record("files %s", strings.Join(paths, ","))
	return ctx.Err()
}

// ReadText implements driver.Driver.
func (p *Page) ReadText(ctx context.Context, el driver.Element) (string, error) {
	n, err := nodeOf(el)
	if err != nil {
		return "", err
	}
	return n.nextText(), ctx.Err()
}
