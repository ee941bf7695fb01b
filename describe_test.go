package ferry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDescribeMode(t *testing.T) {
	t.Parallel()

	dialErr := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}

	tests := []struct {
		name string
		mode Mode
		err  error
		want string
	}{
		{"nil", ModeSingle, nil, ""},
		{"missing name", ModeSingle, ErrMissingName, MsgMissingName},
		{"not a reply", ModeArchive, errNoReply, MsgNoReply},
		{"no source single", ModeSingle, fmt.Errorf("%w: x", ErrNoSourceFound), MsgUnsupportedFile},
		{"no source archive", ModeArchive, fmt.Errorf("%w: x", ErrNoSourceFound), MsgNoFiles},
		{"size limit", ModeSingle, fmt.Errorf("%w: 21 GiB", ErrSizeLimitExceeded), MsgSizeLimit},
		{"server", ModeArchive, fmt.Errorf("%w: %w", ErrServerUnavailable, dialErr), MsgServerFailed},
		{"upload single", ModeSingle, fmt.Errorf("%w: status 500", ErrUploadFailed), MsgUploadFailed},
		{"upload archive", ModeArchive, fmt.Errorf("%w: status 500", ErrUploadFailed), MsgArchiveFailed},
		{"upload connection error", ModeSingle, fmt.Errorf("%w: %w", ErrUploadFailed, dialErr), MsgUploadFailed},
		{"upload timeout", ModeSingle, fmt.Errorf("%w: %w", ErrUploadFailed, context.DeadlineExceeded), MsgTimeout},
		{"download timeout", ModeSingle, fmt.Errorf("%w: %w", ErrTransientIO, context.DeadlineExceeded), MsgTimeout},
		{"download connection", ModeSingle, fmt.Errorf("%w: %w", ErrTransientIO, dialErr), MsgConnection},
		{"anything else", ModeSingle, errors.New("disk full"), "❌ An error occurred: disk full"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, DescribeMode(tt.mode, tt.err))
		})
	}
}

func TestDescribe_IsSingleMode(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("%w: nope", ErrUploadFailed)
	assert.Equal(t, DescribeMode(ModeSingle, err), Describe(err))
}

func TestStateString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "server_selection", StateServerSelection.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "state(42)", State(42).String())
	assert.True(t, StateDone.Terminal())
	assert.False(t, StateCleanup.Terminal())
}
