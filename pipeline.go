package ferry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/meigma/ferry/internal/archive"
	"github.com/meigma/ferry/internal/contracts"
	"github.com/meigma/ferry/internal/gofile"
	"github.com/meigma/ferry/internal/progress"
	"github.com/meigma/ferry/internal/safepath"
	"github.com/meigma/ferry/internal/staging"
)

// ArchiveMimeType is the content type of archive uploads.
const ArchiveMimeType = "application/zip"

// Pipeline moves the items of a Job from a Source to the hosting service,
// reporting progress through a Messenger.
//
// A Pipeline is safe for concurrent use; each Run call is an independent job.
type Pipeline struct {
	source    Source
	messenger Messenger
	uploader  Uploader
	assembler contracts.Assembler
	registry  *Registry
	logger    *slog.Logger

	stagingDir string

	// hosting configuration, used when no custom uploader is set
	apiURL        string
	uploadURL     string
	uploadTimeout time.Duration
	httpClient    *http.Client
	userAgent     string

	progressInterval time.Duration
	compressionLevel *int
	stateHook        StateHook
}

// NewPipeline creates a pipeline that reads from source and reports
// through messenger.
//
// By default, uploads go to GoFile and staged files live under
// os.TempDir()/ferry with a private Registry. Use WithRegistry to share one
// registry across pipelines so a process-exit sweep can reach every job.
func NewPipeline(source Source, messenger Messenger, opts ...Option) (*Pipeline, error) {
	if source == nil {
		return nil, errors.New("source is nil")
	}
	if messenger == nil {
		return nil, errors.New("messenger is nil")
	}

	p := &Pipeline{
		source:     source,
		messenger:  messenger,
		logger:     slog.New(slog.DiscardHandler),
		stagingDir: filepath.Join(os.TempDir(), "ferry"),
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}

	if p.registry == nil {
		p.registry = staging.NewRegistry(p.logger)
	}

	// Wire up default implementations
	if p.uploader == nil {
		gopts := []gofile.Option{
			gofile.WithAPIURL(p.apiURL),
			gofile.WithUploadURL(p.uploadURL),
			gofile.WithLogger(p.logger),
		}
		if p.uploadTimeout > 0 {
			gopts = append(gopts, gofile.WithTimeout(p.uploadTimeout))
		}
		if p.httpClient != nil {
			gopts = append(gopts, gofile.WithHTTPClient(p.httpClient))
		}
		if p.userAgent != "" {
			gopts = append(gopts, gofile.WithUserAgent(p.userAgent))
		}
		p.uploader = gofile.New(gopts...)
	}

	var aopts []archive.Option
	if p.compressionLevel != nil {
		aopts = append(aopts, archive.WithCompressionLevel(*p.compressionLevel))
	}
	p.assembler = archive.NewAssembler(p.logger, aopts...)

	return p, nil
}

// Run executes job and posts the final report to job.Chat.
//
// The returned error wraps one of the package's sentinel errors; the same
// failure has already been reported to the user via DescribeMode. Every file
// staged for the job is deleted before Run returns, including after a panic
// in a collaborator.
func (p *Pipeline) Run(ctx context.Context, job Job) (result *UploadResult, err error) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}

	r := &run{
		p:      p,
		job:    job,
		logger: p.logger.With("job", job.ID, "mode", job.Mode.String()),
		scope:  p.registry.Scope(),
	}

	defer func() {
		r.transition(StateCleanup)
		r.scope.ReleaseAll()
		if err != nil {
			r.transition(StateFailed)
			return
		}
		r.transition(StateDone)
	}()

	result, err = r.execute(ctx)

	r.transition(StateReporting)
	r.report(ctx, result, err)

	return result, err
}

// Reject reports a dispatch failure, such as a command without a source, to
// chat without running a job.
func (p *Pipeline) Reject(ctx context.Context, chat ChatRef, mode Mode, err error) {
	if err == nil {
		return
	}
	p.logger.Info("request rejected", "chat", chat.ChatID, "error", err)
	if _, sendErr := p.messenger.Send(ctx, chat, DescribeMode(mode, err)); sendErr != nil {
		p.logger.Warn("failed to send rejection", "chat", chat.ChatID, "error", sendErr)
	}
}

// run is the state of one job.
type run struct {
	p      *Pipeline
	job    Job
	logger *slog.Logger
	scope  *staging.Scope
	state  State
}

func (r *run) transition(s State) {
	r.logger.Debug("job state changed", "from", r.state.String(), "state", s.String())
	r.state = s
	if r.p.stateHook != nil {
		r.p.stateHook(r.job.ID, s)
	}
}

// execute runs every phase up to the report. Panics are converted into
// ErrUnexpected so the caller can still report and clean up.
func (r *run) execute(ctx context.Context) (result *UploadResult, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("job panicked", "panic", rec, "stack", string(debug.Stack()))
			result = nil
			err = fmt.Errorf("%w: panic: %v", ErrUnexpected, rec)
		}
	}()

	if err := r.job.Validate(); err != nil {
		return nil, err
	}

	// Declared sizes are checked before anything is fetched or staged.
	for _, item := range r.job.Items {
		if item.Size > MaxUploadSize {
			return nil, fmt.Errorf("%w: %s is %s", ErrSizeLimitExceeded, item.Name, formatSize(item.Size))
		}
	}

	if r.job.Mode == ModeArchive {
		return r.runArchive(ctx)
	}
	return r.runSingle(ctx)
}

func (r *run) runSingle(ctx context.Context) (*UploadResult, error) {
	item := r.job.Items[0]
	name := r.job.Name
	if name == "" {
		name = item.Name
	}
	name = safepath.Sanitize(name)

	r.transition(StateStaging)
	staged, err := r.stage(ctx, 0, item, r.reporter(downloadLabel(name)))
	if err != nil {
		return nil, err
	}
	defer staged.Release()

	mimeType := item.MimeType
	if mimeType == "" {
		mimeType = detectMimeType(staged.Path())
	}

	return r.upload(ctx, staged.Path(), name, mimeType, 1, uploadLabel(name))
}

func (r *run) runArchive(ctx context.Context) (*UploadResult, error) {
	name := archiveName(r.job)

	r.transition(StateStaging)
	container, err := r.scope.Create(r.p.stagingDir, stagedName(r.job.ID, len(r.job.Items), name))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransientIO, err)
	}
	defer container.Release()

	// Archiving starts once the first entry is staged and ready to be written.
	archiving := false
	stage := func(ctx context.Context, index int, item SourceItem) (contracts.StagedFile, error) {
		f, err := r.stage(ctx, index, item, nil)
		if err != nil {
			return nil, err
		}
		if !archiving {
			archiving = true
			r.transition(StateArchiving)
		}
		return f, nil
	}
	assembled, err := r.p.assembler.Assemble(ctx, container, r.job.Items, stage, r.reporter(archiveLabel))
	if err != nil {
		return nil, err
	}
	if err := container.Close(); err != nil {
		return nil, fmt.Errorf("%w: close archive: %w", ErrTransientIO, err)
	}

	r.logger.Info("archive assembled",
		"entries", len(assembled.Entries),
		"input", formatSize(assembled.InputBytes),
		"size", formatSize(assembled.Size))

	return r.upload(ctx, container.Path(), name, ArchiveMimeType, len(assembled.Entries), archiveUploadLabel)
}

// stage downloads item into a new registered file. The path is registered
// before any byte is fetched; on failure the file is released here.
func (r *run) stage(ctx context.Context, index int, item SourceItem, sink ProgressSink) (*staging.File, error) {
	file, err := r.scope.Create(r.p.stagingDir, stagedName(r.job.ID, index, item.Name))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransientIO, err)
	}

	if err := r.download(ctx, file, item, sink); err != nil {
		file.Release()
		return nil, err
	}
	return file, nil
}

func (r *run) download(ctx context.Context, file *staging.File, item SourceItem, sink ProgressSink) error {
	body, length, err := r.p.source.Fetch(ctx, item.Ref)
	if err != nil {
		return fmt.Errorf("%w: fetch %s: %w", ErrTransientIO, item.Name, err)
	}
	defer body.Close()

	total := item.Size
	if total < 0 {
		total = length
	}
	if total > MaxUploadSize {
		return fmt.Errorf("%w: %s is %s", ErrSizeLimitExceeded, item.Name, formatSize(total))
	}

	src := progress.SinkReader(ctx, body, total, sink)
	n, err := io.Copy(file, src)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%w: download %s: %w", ErrTransientIO, item.Name, ctxErr)
		}
		return fmt.Errorf("%w: download %s: %w", ErrTransientIO, item.Name, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrTransientIO, item.Name, err)
	}

	r.logger.Debug("staged item", "item", item.Name, "path", file.Path(), "size", n)
	return nil
}

// upload selects a server and streams the file at path to it.
func (r *run) upload(ctx context.Context, path, name, mimeType string, files int, label string) (*UploadResult, error) {
	f, err := os.Open(path) //nolint:gosec // G304: path is a staged file created by this job
	if err != nil {
		return nil, fmt.Errorf("%w: open staged file: %w", ErrTransientIO, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w: stat staged file: %w", ErrTransientIO, err)
	}
	size := info.Size()
	if size > MaxUploadSize {
		return nil, fmt.Errorf("%w: %s is %s", ErrSizeLimitExceeded, name, formatSize(size))
	}

	r.transition(StateServerSelection)
	server, err := r.p.uploader.SelectServer(ctx)
	if err != nil {
		if !errors.Is(err, ErrServerUnavailable) {
			err = fmt.Errorf("%w: %w", ErrServerUnavailable, err)
		}
		return nil, err
	}
	r.logger.Debug("server selected", "server", server)

	r.transition(StateUploading)
	result, err := r.p.uploader.Upload(ctx, f, UploadRequest{
		FileName: name,
		Server:   server,
		Size:     size,
		MimeType: mimeType,
		Progress: r.reporter(label),
	})
	if err != nil {
		if !errors.Is(err, ErrUploadFailed) && !errors.Is(err, ErrSizeLimitExceeded) {
			err = fmt.Errorf("%w: %w", ErrUploadFailed, err)
		}
		return nil, err
	}

	result.Files = files
	if result.FileName == "" {
		result.FileName = name
	}
	return result, nil
}

// report posts the terminal message. Messaging failures are logged only.
func (r *run) report(ctx context.Context, result *UploadResult, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("report panicked", "panic", rec)
		}
	}()

	var text string
	if err != nil {
		r.logger.Error("job failed", "error", err)
		text = DescribeMode(r.job.Mode, err)
	} else {
		r.logger.Info("job complete",
			"file", result.FileName,
			"size", result.Size,
			"url", result.DownloadPage)
		text = successMessage(r.job.Mode, result)
	}

	// The job context may already be canceled or expired; the report still goes out.
	if _, sendErr := r.p.messenger.Send(context.WithoutCancel(ctx), r.job.Chat, text); sendErr != nil {
		r.logger.Warn("failed to send report", "error", sendErr)
	}
}

func (r *run) reporter(label string) *progress.Reporter {
	return progress.NewReporter(r.p.messenger, r.job.Chat, label,
		progress.WithLogger(r.logger),
		progress.WithMinInterval(r.p.progressInterval))
}

// stagedName is the on-disk name for a job's item. Staging files are prefixed
// by the registry, so the name only has to be unique within the job.
func stagedName(jobID string, index int, name string) string {
	return fmt.Sprintf("%s-%d-%s", safepath.Sanitize(jobID), index, safepath.Sanitize(name))
}

// archiveName returns the upload filename for an archive job.
func archiveName(job Job) string {
	if job.Name == "" {
		id := job.ID
		if len(id) > 8 {
			id = id[:8]
		}
		return "archive_" + safepath.Sanitize(id) + ".zip"
	}
	name := safepath.Sanitize(job.Name)
	if !strings.EqualFold(filepath.Ext(name), ".zip") {
		name += ".zip"
	}
	return name
}

// detectMimeType sniffs a staged file's content type.
func detectMimeType(path string) string {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return DefaultMimeType
	}
	return mt.String()
}

func formatSize(n int64) string {
	if n < 0 {
		return "unknown size"
	}
	return humanize.IBytes(uint64(n))
}
