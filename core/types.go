// Package core provides the shared types and interfaces for ferry.
//
// This package exists to break import cycles between the root ferry package
// and internal implementation packages. The ferry package re-exports all
// public types from this package, so external users should import ferry
// directly, not ferry/core.
package core

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// Sentinel errors for the transfer failure taxonomy.
var (
	// ErrNoSourceFound indicates no eligible attachment was found for a request.
	ErrNoSourceFound = errors.New("ferry: no source found")

	// ErrSizeLimitExceeded indicates a declared or staged size is above MaxUploadSize.
	ErrSizeLimitExceeded = errors.New("ferry: size limit exceeded")

	// ErrServerUnavailable indicates the hosting service returned no usable upload server.
	ErrServerUnavailable = errors.New("ferry: server unavailable")

	// ErrUploadFailed indicates the upload request failed or returned a malformed response.
	ErrUploadFailed = errors.New("ferry: upload failed")

	// ErrTransientIO indicates a download or local write error.
	ErrTransientIO = errors.New("ferry: transient I/O error")

	// ErrUnexpected indicates any other failure, including recovered panics.
	ErrUnexpected = errors.New("ferry: unexpected error")

	// ErrInvalidJob indicates a job violates its mode's item count rules.
	ErrInvalidJob = errors.New("ferry: invalid job")

	// ErrMissingName indicates a custom-name upload was requested without a name.
	ErrMissingName = errors.New("ferry: missing custom filename")
)

// SizeUnknown marks a SourceItem whose length is not declared by the platform.
const SizeUnknown int64 = -1

// MaxUploadSize is the largest payload accepted for upload (20 GiB).
const MaxUploadSize int64 = 20 << 30

// DefaultMimeType is used when neither the platform nor detection yields a type.
const DefaultMimeType = "application/octet-stream"

// SourceItem identifies one unit of content to transfer.
type SourceItem struct {
	// Ref is the opaque platform reference passed to Source.Fetch.
	Ref string
	// Size is the declared byte length, or SizeUnknown.
	Size int64
	// Name is the display name, used as the upload filename or archive entry name.
	Name string
	// MimeType is the declared content type. Empty means detect after staging.
	MimeType string
}

// Mode selects how a job's items are uploaded.
type Mode int

const (
	// ModeSingle uploads exactly one item as-is.
	ModeSingle Mode = iota
	// ModeArchive folds one or more items into a zip container.
	ModeArchive
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeSingle:
		return "single"
	case ModeArchive:
		return "archive"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ChatRef addresses the conversation a job reports back to.
type ChatRef struct {
	ChatID int64
	// ReplyTo is the message the status messages reply to (0 = none).
	ReplyTo int64
}

// MessageHandle identifies a sent message so it can be edited later.
type MessageHandle struct {
	ChatID    int64
	MessageID int64
}

// Job is one invocation of the transfer pipeline.
type Job struct {
	// ID names the job in logs and in the default archive name.
	// A random ID is assigned when empty.
	ID string
	// Chat is where progress and the final report are sent.
	Chat ChatRef
	// Items are transferred in order.
	Items []SourceItem
	// Name overrides the upload filename (single) or container name (archive).
	Name string
	Mode Mode
}

// Validate checks the item count rules for the job's mode.
func (j *Job) Validate() error {
	switch j.Mode {
	case ModeSingle:
		if len(j.Items) != 1 {
			return fmt.Errorf("%w: single mode requires exactly 1 item, got %d", ErrInvalidJob, len(j.Items))
		}
	case ModeArchive:
		if len(j.Items) == 0 {
			return fmt.Errorf("%w: archive mode requires at least 1 item", ErrInvalidJob)
		}
	default:
		return fmt.Errorf("%w: unknown mode %s", ErrInvalidJob, j.Mode)
	}
	return nil
}

// UploadRequest describes one upload to the hosting service.
type UploadRequest struct {
	// FileName is sent percent-encoded as the multipart filename.
	FileName string
	// Server is the identifier returned by Uploader.SelectServer.
	Server string
	// Size is the exact payload length in bytes, or SizeUnknown.
	Size     int64
	MimeType string
	// Progress receives bytes-sent updates. May be nil.
	Progress ProgressSink
}

// UploadResult is the outcome of a successful upload.
type UploadResult struct {
	// DownloadPage is the hosting service's landing page for the file.
	DownloadPage string
	// DirectLink is a direct download URL, when the service provides one.
	DirectLink string
	// FileName is the name the file was uploaded under.
	FileName string
	// Size is the number of payload bytes uploaded.
	Size int64
	// Files is the number of source items contained in the upload.
	Files int
}

// AttachmentKind is the platform media category of an attachment.
type AttachmentKind string

// Attachment kinds understood by the dispatch helpers.
const (
	KindDocument  AttachmentKind = "document"
	KindVideo     AttachmentKind = "video"
	KindAudio     AttachmentKind = "audio"
	KindPhoto     AttachmentKind = "photo"
	KindVoice     AttachmentKind = "voice"
	KindVideoNote AttachmentKind = "video_note"
	KindSticker   AttachmentKind = "sticker"
)

// Attachment is the declared metadata of a message's media.
type Attachment struct {
	Kind     AttachmentKind
	Ref      string
	Size     int64
	FileName string
	MimeType string
}

// Message is the platform-neutral view of a chat message.
type Message struct {
	ID         int64
	ChatID     int64
	Text       string
	Attachment *Attachment
	// ReplyTo is the message this one replies to, forming a chain.
	ReplyTo *Message
}

// Source streams attachment bytes from the messaging platform.
type Source interface {
	// Fetch opens the content behind ref. The returned length is
	// SizeUnknown when the platform does not report it.
	Fetch(ctx context.Context, ref string) (io.ReadCloser, int64, error)
}

// Messenger sends and edits text messages on the messaging platform.
type Messenger interface {
	Send(ctx context.Context, chat ChatRef, text string) (MessageHandle, error)
	Edit(ctx context.Context, handle MessageHandle, text string) error
}

// ProgressSink receives cumulative byte counts for one transfer phase.
type ProgressSink interface {
	Report(ctx context.Context, current, total int64)
}

// Uploader negotiates a server with the hosting service and uploads to it.
// This interface is implemented by internal/gofile.
type Uploader interface {
	// SelectServer returns an upload server identifier.
	// Failures wrap ErrServerUnavailable.
	SelectServer(ctx context.Context) (string, error)

	// Upload streams body to the hosting service.
	// Failures wrap ErrSizeLimitExceeded or ErrUploadFailed.
	Upload(ctx context.Context, body io.Reader, req UploadRequest) (*UploadResult, error)
}
