package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/meigma/ferry"
)

// progressMode returns the configured progress mode: "auto", "tty", or "plain".
func progressMode() string {
	mode := viper.GetString("progress")
	switch mode {
	case "auto", "tty", "plain":
		return mode
	default:
		return "auto"
	}
}

// shouldRewrite returns true if status edits should redraw in place.
func shouldRewrite() bool {
	switch progressMode() {
	case "plain":
		return false
	case "tty":
		return true
	default:
		return term.IsTerminal(int(os.Stdout.Fd()))
	}
}

var percentLine = regexp.MustCompile(`Progress: ([0-9.]+)%`)

// consoleMessenger prints status messages to a terminal or log.
//
// In rewrite mode an edit to the most recent message redraws it in place
// with a progress bar. Otherwise every edit prints its last line.
type consoleMessenger struct {
	mu      sync.Mutex
	out     io.Writer
	rewrite bool
	bar     progress.Model

	nextID    int64
	lastID    int64
	lastLines int
	texts     map[int64]string
}

func newConsoleMessenger(out io.Writer, rewrite bool) *consoleMessenger {
	return &consoleMessenger{
		out:     out,
		rewrite: rewrite,
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		texts:   make(map[int64]string),
	}
}

func (c *consoleMessenger) Send(_ context.Context, chat ferry.ChatRef, text string) (ferry.MessageHandle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	id := c.nextID
	c.texts[id] = text
	c.print(id, text)
	return ferry.MessageHandle{ChatID: chat.ChatID, MessageID: id}, nil
}

func (c *consoleMessenger) Edit(_ context.Context, handle ferry.MessageHandle, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.texts[handle.MessageID]; !ok {
		return fmt.Errorf("unknown message %d", handle.MessageID)
	}
	c.texts[handle.MessageID] = text

	if !c.rewrite {
		lines := strings.Split(text, "\n")
		_, err := fmt.Fprintf(c.out, "  %s\n", lines[len(lines)-1])
		return err
	}

	if handle.MessageID == c.lastID && c.lastLines > 0 {
		// Move up over the previous rendering and clear to the end of screen.
		fmt.Fprintf(c.out, "\x1b[%dA\x1b[J", c.lastLines)
	}
	c.print(handle.MessageID, c.decorate(text))
	return nil
}

func (c *consoleMessenger) print(id int64, text string) {
	fmt.Fprintln(c.out, text)
	c.lastID = id
	c.lastLines = strings.Count(text, "\n") + 1
}

// decorate appends a progress bar when text carries a percentage.
func (c *consoleMessenger) decorate(text string) string {
	m := percentLine.FindStringSubmatch(text)
	if m == nil {
		return text
	}
	pct, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return text
	}
	return text + "\n" + c.bar.ViewAs(pct/100)
}
