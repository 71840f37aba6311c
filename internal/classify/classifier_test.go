package classify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQuerier struct {
	mu      sync.Mutex
	window  Window
	err     error
	queries int
}

func (f *fakeQuerier) ActiveWindow(context.Context) (Window, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries++
	return f.window, f.err
}

func (f *fakeQuerier) set(w Window) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.window = w
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCategorize(t *testing.T) {
	cases := []struct {
		name    string
		class   string
		process string
		want    Category
	}{
		{"firefox class", "firefox", "firefox", CategoryBrowser},
		{"chromium variant", "Brave-browser", "brave", CategoryBrowser},
		{"vscode", "Code", "code", CategoryIDE},
		{"jetbrains", "jetbrains-goland", "goland", CategoryIDE},
		{"libreoffice writer", "libreoffice-writer", "soffice.bin", CategoryOffice},
		{"plain editor", "org.gnome.gedit", "gedit", CategoryTextEditor},
		{"chat", "Slack", "slack", CategoryCommunication},
		{"terminal", "kitty", "kitty", CategoryTerminal},
		{"unknown", "some-app", "some-app", CategoryOther},
		{"empty", "", "", CategoryOther},
		{"process only", "", "alacritty", CategoryTerminal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Categorize(tc.class, tc.process))
		})
	}
}

func TestRuleOrderBrowserBeatsTerminal(t *testing.T) {
	// A class matching two families resolves to the earlier rule.
	assert.Equal(t, CategoryBrowser, Categorize("firefox-on-kitty", ""))
}

func TestAssessCapabilitiesTable(t *testing.T) {
	office := AssessCapabilities(CategoryOffice)
	assert.Equal(t, MethodClipboard, office.PreferredMethod)
	assert.True(t, office.SpecialHandling)

	terminal := AssessCapabilities(CategoryTerminal)
	assert.Equal(t, MethodKeystroke, terminal.PreferredMethod)
	assert.False(t, terminal.SupportsUnicode)
	assert.True(t, terminal.SpecialHandling)

	browser := AssessCapabilities(CategoryBrowser)
	assert.Equal(t, MethodKeystroke, browser.PreferredMethod)
	assert.True(t, browser.SupportsUnicode)

	other := AssessCapabilities(CategoryOther)
	assert.Equal(t, MethodKeystroke, other.PreferredMethod)
	assert.Positive(t, other.MaxTextLength)
}

func TestCurrentIdempotentForUnchangedWindow(t *testing.T) {
	q := &fakeQuerier{window: Window{ProcessName: "kitty", Title: "~", Class: "kitty"}}
	c := New(q, testLogger())

	first, err := c.Current(context.Background())
	require.NoError(t, err)
	second, err := c.Current(context.Background())
	require.NoError(t, err)

	assert.True(t, first.Equal(second))
	assert.Equal(t, CategoryTerminal, first.Category)
}

func TestCurrentCachesCapabilitiesByProcessAndCategory(t *testing.T) {
	q := &fakeQuerier{window: Window{ProcessName: "soffice.bin", Class: "libreoffice-writer"}}
	c := New(q, testLogger())

	first, err := c.Current(context.Background())
	require.NoError(t, err)

	// Title change within the same app reuses the cached assessment.
	q.set(Window{ProcessName: "soffice.bin", Title: "report.odt", Class: "libreoffice-writer"})
	second, err := c.Current(context.Background())
	require.NoError(t, err)

	assert.True(t, first.SameApplication(second))
	assert.Equal(t, first.Capabilities, second.Capabilities)
	assert.Equal(t, "report.odt", second.WindowTitle)
}

func TestCurrentQueryError(t *testing.T) {
	q := &fakeQuerier{err: errors.New("compositor gone")}
	c := New(q, testLogger())

	_, err := c.Current(context.Background())
	assert.Error(t, err)
}

func TestWatchEmitsOnIdentityChangeOnly(t *testing.T) {
	q := &fakeQuerier{window: Window{ProcessName: "kitty", Class: "kitty"}}
	c := New(q, testLogger())

	var mu sync.Mutex
	var changes []Profile
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Watch(ctx, 5*time.Millisecond, func(p Profile) {
			mu.Lock()
			changes = append(changes, p)
			mu.Unlock()
		})
	}()

	time.Sleep(30 * time.Millisecond)
	q.set(Window{ProcessName: "firefox", Class: "firefox"})
	time.Sleep(30 * time.Millisecond)
	cancel()
	<-done

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, changes, 2)
	assert.Equal(t, CategoryTerminal, changes[0].Category)
	assert.Equal(t, CategoryBrowser, changes[1].Category)
}

func TestMethodOpposite(t *testing.T) {
	assert.Equal(t, MethodClipboard, MethodKeystroke.Opposite())
	assert.Equal(t, MethodKeystroke, MethodClipboard.Opposite())
}
