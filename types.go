package ferry

import (
	"log/slog"

	"github.com/meigma/ferry/core"
	"github.com/meigma/ferry/internal/staging"
)

// Size constants.
// Re-exported from core package.
const (
	// SizeUnknown marks an item whose length the platform did not declare.
	SizeUnknown = core.SizeUnknown

	// MaxUploadSize is the largest payload the hosting service accepts.
	MaxUploadSize = core.MaxUploadSize

	// DefaultMimeType is used when no content type is declared or detected.
	DefaultMimeType = core.DefaultMimeType
)

// Job types.
// Re-exported from core package.
type (
	// SourceItem identifies one unit of content to transfer.
	SourceItem = core.SourceItem

	// Job is one invocation of the pipeline.
	Job = core.Job

	// Mode selects single-file or archive upload.
	Mode = core.Mode

	// ChatRef addresses the conversation a job reports to.
	ChatRef = core.ChatRef

	// MessageHandle identifies a sent message.
	MessageHandle = core.MessageHandle

	// UploadRequest describes one upload.
	UploadRequest = core.UploadRequest

	// UploadResult is the outcome of a successful upload.
	UploadResult = core.UploadResult
)

// Job modes.
const (
	ModeSingle  = core.ModeSingle
	ModeArchive = core.ModeArchive
)

// Message types.
// Re-exported from core package.
type (
	Message        = core.Message
	Attachment     = core.Attachment
	AttachmentKind = core.AttachmentKind
)

// Attachment kinds.
const (
	KindDocument  = core.KindDocument
	KindVideo     = core.KindVideo
	KindAudio     = core.KindAudio
	KindPhoto     = core.KindPhoto
	KindVoice     = core.KindVoice
	KindVideoNote = core.KindVideoNote
	KindSticker   = core.KindSticker
)

// Collaborator interfaces.
// Re-exported from core package.
type (
	// Source streams attachment bytes from the messaging platform.
	Source = core.Source

	// Messenger sends and edits status messages.
	Messenger = core.Messenger

	// ProgressSink receives cumulative byte counts for one phase.
	ProgressSink = core.ProgressSink

	// Uploader selects a server and uploads to the hosting service.
	Uploader = core.Uploader
)

// Registry tracks every staged file in the process so it can be deleted on
// exit. Share one Registry between pipelines with WithRegistry.
type Registry = staging.Registry

// NewRegistry creates an empty Registry. A nil logger discards output.
func NewRegistry(logger *slog.Logger) *Registry {
	return staging.NewRegistry(logger)
}
