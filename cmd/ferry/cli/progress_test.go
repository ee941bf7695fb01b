package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/ferry"
)

func TestConsoleMessenger_Plain(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	m := newConsoleMessenger(&out, false)
	ctx := context.Background()

	h, err := m.Send(ctx, ferry.ChatRef{ChatID: 7}, "⬇️ Downloading a.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(7), h.ChatID)

	require.NoError(t, m.Edit(ctx, h, "⬇️ Downloading a.txt\nProgress: 50.0% (5 B / 10 B)"))

	assert.Equal(t, "⬇️ Downloading a.txt\n  Progress: 50.0% (5 B / 10 B)\n", out.String())
	assert.NotContains(t, out.String(), "\x1b[")
}

func TestConsoleMessenger_RewriteRedrawsLastMessage(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	m := newConsoleMessenger(&out, true)
	ctx := context.Background()

	h, err := m.Send(ctx, ferry.ChatRef{}, "label")
	require.NoError(t, err)
	require.NoError(t, m.Edit(ctx, h, "label\nProgress: 25.0% (1 B / 4 B)"))

	// One line to erase after the Send.
	assert.Contains(t, out.String(), "\x1b[1A\x1b[J")

	out.Reset()
	require.NoError(t, m.Edit(ctx, h, "label\nProgress: 75.0% (3 B / 4 B)"))

	// Label, progress line and bar.
	assert.True(t, strings.HasPrefix(out.String(), "\x1b[3A\x1b[J"), "got %q", out.String())
	assert.Contains(t, out.String(), "Progress: 75.0%")
	assert.Equal(t, 3, strings.Count(out.String(), "\n"))
}

func TestConsoleMessenger_RewriteOlderMessageAppends(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	m := newConsoleMessenger(&out, true)
	ctx := context.Background()

	first, err := m.Send(ctx, ferry.ChatRef{}, "first")
	require.NoError(t, err)
	_, err = m.Send(ctx, ferry.ChatRef{}, "second")
	require.NoError(t, err)

	out.Reset()
	require.NoError(t, m.Edit(ctx, first, "first edited"))
	assert.Equal(t, "first edited\n", out.String())
}

func TestConsoleMessenger_EditUnknown(t *testing.T) {
	t.Parallel()

	m := newConsoleMessenger(&bytes.Buffer{}, false)
	err := m.Edit(context.Background(), ferry.MessageHandle{MessageID: 42}, "x")
	require.Error(t, err)
}

func TestFormatError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"jobs failed", &jobsFailedError{failed: 2, total: 3}, "Error: 2 of 3 uploads failed"},
		{"canceled", fmt.Errorf("run: %w", context.Canceled), "Error: operation canceled"},
		{"server", fmt.Errorf("%w: boom", ferry.ErrServerUnavailable), "Error: " + ferry.MsgServerFailed},
		{"other", errors.New("stat x: no such file"), "Error: stat x: no such file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, formatError(tt.err))
		})
	}
}
