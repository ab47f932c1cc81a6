package driver_test

import (
	"context"
	"testing"
	"time"

	"github.com/jg-fukuda/auto-genspark2/internal/driver"
	"github.com/jg-fukuda/auto-genspark2/internal/driver/drivertest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFirstFound(t *testing.T) {
	ctx := context.Background()
	page := drivertest.NewPage("https://example.test")
	page.Set("#second", &drivertest.Node{Text: "two"})

	lookup, err := driver.FirstFound(ctx, page, "#first", "#second")
	require.NoError(t, err)
	assert.Equal(t, driver.Found, lookup.Status)
	assert.Equal(t, "#second", lookup.Element.Selector)

	lookup, err = driver.FirstFound(ctx, page, "#missing")
	require.NoError(t, err)
	assert.Equal(t, driver.NotFound, lookup.Status)
}

func TestFirstVisibleSkipsHidden(t *testing.T) {
	ctx := context.Background()
	page := drivertest.NewPage("")
	page.Set(".a", &drivertest.Node{Hidden: true})
	page.Set(".b", &drivertest.Node{})

	lookup, err := driver.FirstVisible(ctx, page, ".a", ".b")
	require.NoError(t, err)
	assert.True(t, lookup.Found())
	assert.Equal(t, ".b", lookup.Element.Selector)
}

func TestPollElementState(t *testing.T) {
	ctx := context.Background()

	t.Run("visible appears after a few polls", func(t *testing.T) {
		page := drivertest.NewPage("")
		page.OnFind = func(p *drivertest.Page, selector string) {
			if p.Finds(selector) == 3 {
				p.Set(selector, &drivertest.Node{})
			}
		}
		lookup, err := page.WaitForElementState(ctx, ".x", driver.Visible, time.Second)
		require.NoError(t, err)
		assert.Equal(t, driver.Found, lookup.Status)
		assert.Equal(t, 3, page.Finds(".x"))
	})

	t.Run("hidden when nothing is rendered", func(t *testing.T) {
		page := drivertest.NewPage("")
		page.Set(".x", &drivertest.Node{Hidden: true})
		lookup, err := page.WaitForElementState(ctx, ".x", driver.Hidden, time.Second)
		require.NoError(t, err)
		assert.Equal(t, driver.Found, lookup.Status)
	})

	t.Run("times out", func(t *testing.T) {
		page := drivertest.NewPage("")
		page.Set(".x", &drivertest.Node{})
		lookup, err := page.WaitForElementState(ctx, ".x", driver.Detached, 5*time.Millisecond)
		require.NoError(t, err)
		assert.Equal(t, driver.TimedOut, lookup.Status)
	})

	t.Run("context cancel", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		page := drivertest.NewPage("")
		_, err := page.WaitForElementState(cctx, ".x", driver.Visible, time.Second)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestWaitFirstVisibleTimesOut(t *testing.T) {
	page := drivertest.NewPage("")
	lookup, err := driver.WaitFirstVisible(context.Background(), page, 4*time.Millisecond, ".a", ".b")
	require.NoError(t, err)
	assert.Equal(t, driver.TimedOut, lookup.Status)
}

func TestWaitFirstVisibleSharesOneDeadline(t *testing.T) {
	page := drivertest.NewPage("")
	start := time.Now()
	page.OnFind = func(p *drivertest.Page, selector string) {
		// Visible only once a third of the budget has passed.
		if selector == ".a" && time.Since(start) >= 400*time.Millisecond && len(p.Nodes(".a")) == 0 {
			p.Set(".a", &drivertest.Node{})
		}
	}

	lookup, err := driver.WaitFirstVisible(context.Background(), page, 900*time.Millisecond, ".a", ".b", ".c")
	require.NoError(t, err)
	assert.Equal(t, driver.Found, lookup.Status)
	assert.Equal(t, ".a", lookup.Element.Selector)
	assert.Less(t, time.Since(start), 900*time.Millisecond)
	assert.Greater(t, page.Finds(".c"), 1, "every candidate is checked each round")
}

func TestWaitFirstVisiblePrefersEarlierCandidate(t *testing.T) {
	page := drivertest.NewPage("")
	page.Set(".b", &drivertest.Node{})
	page.Set(".a", &drivertest.Node{})

	lookup, err := driver.WaitFirstVisible(context.Background(), page, time.Second, ".a", ".b")
	require.NoError(t, err)
	assert.Equal(t, ".a", lookup.Element.Selector)
}

func TestTextFromHTML(t *testing.T) {
	html := `<div class="assistant plain-text"><p>Hello <b>world</b></p><script>var x = 1;</script><style>p{}</style></div>`
	text, err := driver.TextFromHTML(html)
	require.NoError(t, err)
	assert.Equal(t, "Hello world", text)
}

func TestSleepHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, driver.Sleep(ctx, time.Hour), context.Canceled)
	assert.NoError(t, driver.Sleep(context.Background(), 0))
}
