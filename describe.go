package ferry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
)

// errNoReply marks a command that needed a reply but was not one.
var errNoReply = fmt.Errorf("%w: command is not a reply", ErrNoSourceFound)

// Describe converts an error from Run or the dispatch helpers into the
// message shown to the user for a single-file job.
func Describe(err error) string {
	return DescribeMode(ModeSingle, err)
}

// DescribeMode is Describe with mode-specific wording for archive jobs.
// It returns "" for a nil error.
func DescribeMode(mode Mode, err error) string {
	if err == nil {
		return ""
	}

	archive := mode == ModeArchive
	switch {
	case errors.Is(err, ErrMissingName):
		return MsgMissingName
	case errors.Is(err, errNoReply):
		return MsgNoReply
	case errors.Is(err, ErrNoSourceFound):
		if archive {
			return MsgNoFiles
		}
		return MsgUnsupportedFile
	case errors.Is(err, ErrSizeLimitExceeded):
		return MsgSizeLimit
	case errors.Is(err, ErrServerUnavailable):
		return MsgServerFailed
	case errors.Is(err, ErrUploadFailed):
		if isTimeout(err) {
			return MsgTimeout
		}
		if archive {
			return MsgArchiveFailed
		}
		return MsgUploadFailed
	case isTimeout(err):
		return MsgTimeout
	case isConnection(err):
		return MsgConnection
	default:
		return fmt.Sprintf("❌ An error occurred: %v", err)
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isConnection(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr)
}
