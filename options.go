package ferry

import (
	"errors"
	"log/slog"
	"net/http"
	"time"
)

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithLogger sets a logger for the pipeline. By default, logging is disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			return errors.New("logger is nil")
		}
		p.logger = logger
		return nil
	}
}

// WithRegistry shares a staging registry between pipelines, typically one
// per process so an exit-time ReleaseAll reaches every job.
func WithRegistry(r *Registry) Option {
	return func(p *Pipeline) error {
		if r == nil {
			return errors.New("registry is nil")
		}
		p.registry = r
		return nil
	}
}

// WithStagingDir sets the directory for staged downloads and archives.
// Defaults to a "ferry" directory under os.TempDir().
func WithStagingDir(dir string) Option {
	return func(p *Pipeline) error {
		if dir == "" {
			return errors.New("staging directory is empty")
		}
		p.stagingDir = dir
		return nil
	}
}

// WithUploader replaces the GoFile client. Hosting options are ignored
// when a custom uploader is set.
func WithUploader(u Uploader) Option {
	return func(p *Pipeline) error {
		if u == nil {
			return errors.New("uploader is nil")
		}
		p.uploader = u
		return nil
	}
}

// WithHostingURLs overrides the server-selection base URL and the upload
// URL template. Empty values keep the defaults.
func WithHostingURLs(apiURL, uploadURL string) Option {
	return func(p *Pipeline) error {
		p.apiURL = apiURL
		p.uploadURL = uploadURL
		return nil
	}
}

// WithUploadTimeout bounds a single upload request.
func WithUploadTimeout(d time.Duration) Option {
	return func(p *Pipeline) error {
		if d <= 0 {
			return errors.New("upload timeout must be positive")
		}
		p.uploadTimeout = d
		return nil
	}
}

// WithHTTPClient sets the HTTP client used by the GoFile client.
func WithHTTPClient(hc *http.Client) Option {
	return func(p *Pipeline) error {
		p.httpClient = hc
		return nil
	}
}

// WithUserAgent sets a custom User-Agent header for hosting requests.
func WithUserAgent(ua string) Option {
	return func(p *Pipeline) error {
		p.userAgent = ua
		return nil
	}
}

// WithProgressInterval spaces non-final progress edits at least d apart,
// on top of the one-percent threshold. Zero disables the time limit.
func WithProgressInterval(d time.Duration) Option {
	return func(p *Pipeline) error {
		if d < 0 {
			return errors.New("progress interval is negative")
		}
		p.progressInterval = d
		return nil
	}
}

// WithCompressionLevel sets the deflate level for archive entries (-2..9).
func WithCompressionLevel(level int) Option {
	return func(p *Pipeline) error {
		if level < -2 || level > 9 {
			return errors.New("compression level must be between -2 and 9")
		}
		p.compressionLevel = &level
		return nil
	}
}

// WithStateHook registers a callback for every state transition.
func WithStateHook(hook StateHook) Option {
	return func(p *Pipeline) error {
		p.stateHook = hook
		return nil
	}
}
