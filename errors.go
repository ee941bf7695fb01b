package ferry

import "github.com/meigma/ferry/core"

// Sentinel errors for common failure conditions.
// Re-exported from core package.
var (
	// ErrNoSourceFound indicates the command had no attachment to work on.
	ErrNoSourceFound = core.ErrNoSourceFound

	// ErrSizeLimitExceeded indicates a file or archive is over the hosting limit.
	ErrSizeLimitExceeded = core.ErrSizeLimitExceeded

	// ErrServerUnavailable indicates no upload server could be selected.
	ErrServerUnavailable = core.ErrServerUnavailable

	// ErrUploadFailed indicates the hosting service rejected or broke the upload.
	ErrUploadFailed = core.ErrUploadFailed

	// ErrTransientIO indicates a local or network read/write failed.
	ErrTransientIO = core.ErrTransientIO

	// ErrUnexpected indicates a failure outside the other categories.
	ErrUnexpected = core.ErrUnexpected

	// ErrInvalidJob indicates a job that violates its mode's item rules.
	ErrInvalidJob = core.ErrInvalidJob

	// ErrMissingName indicates a custom-name command without a name.
	ErrMissingName = core.ErrMissingName
)
