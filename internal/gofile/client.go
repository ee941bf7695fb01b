// Package gofile implements server selection and streaming uploads against
// the GoFile HTTP API.
package gofile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/meigma/ferry/core"
	"github.com/meigma/ferry/internal/contracts"
	"github.com/meigma/ferry/internal/progress"
)

const (
	// DefaultAPIURL is the base URL for server selection.
	DefaultAPIURL = "https://api.gofile.io"

	// DefaultUploadURL is the upload endpoint template.
	// ServerPlaceholder is replaced with the selected server.
	DefaultUploadURL = "https://" + ServerPlaceholder + ".gofile.io/uploadFile"

	// ServerPlaceholder marks where the server id goes in an upload URL template.
	ServerPlaceholder = "{server}"

	// DefaultTimeout bounds a whole upload request.
	DefaultTimeout = time.Hour

	// selectTimeout bounds the server-selection request.
	selectTimeout = 30 * time.Second

	// maxResponseBytes caps how much of a JSON response is read.
	maxResponseBytes = 1 << 20

	statusOK = "ok"
)

// Compile-time interface implementation checks.
var (
	_ core.Uploader      = (*Client)(nil)
	_ contracts.Uploader = (*Client)(nil)
)

// Option configures a Client.
type Option func(*Client)

// Client talks to the GoFile API.
type Client struct {
	httpClient *http.Client
	apiURL     string
	uploadURL  string
	timeout    time.Duration
	userAgent  string
	logger     *slog.Logger
}

// New creates a GoFile client.
func New(opts ...Option) *Client {
	c := &Client{
		apiURL:    DefaultAPIURL,
		uploadURL: DefaultUploadURL,
		timeout:   DefaultTimeout,
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.timeout}
	}
	return c
}

// WithAPIURL overrides the server-selection base URL.
func WithAPIURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.apiURL = strings.TrimSuffix(u, "/")
		}
	}
}

// WithUploadURL overrides the upload endpoint template.
// The template should contain ServerPlaceholder.
func WithUploadURL(template string) Option {
	return func(c *Client) {
		if template != "" {
			c.uploadURL = template
		}
	}
}

// WithTimeout sets the upload timeout. Ignored when WithHTTPClient is used.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHTTPClient sets the HTTP client used for all requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithUserAgent sets a custom User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithLogger sets a logger for the client.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// serverResponse is the getServer payload. Older API revisions put the
// server at the top level.
type serverResponse struct {
	Status string `json:"status"`
	Server string `json:"server"`
	Data   struct {
		Server string `json:"server"`
	} `json:"data"`
}

// uploadResponse is the uploadFile payload.
type uploadResponse struct {
	Status string `json:"status"`
	Data   struct {
		DownloadPage string `json:"downloadPage"`
		DirectLink   string `json:"directLink"`
		FileName     string `json:"fileName"`
	} `json:"data"`
}

// SelectServer asks the API for an upload server.
// Every failure is returned wrapped in core.ErrServerUnavailable.
func (c *Client) SelectServer(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, selectTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"/getServer", nil)
	if err != nil {
		return "", fmt.Errorf("%w: build request: %w", core.ErrServerUnavailable, err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", core.ErrServerUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: unexpected status %d", core.ErrServerUnavailable, resp.StatusCode)
	}

	var payload serverResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&payload); err != nil {
		return "", fmt.Errorf("%w: decode response: %w", core.ErrServerUnavailable, err)
	}
	if payload.Status != statusOK {
		return "", fmt.Errorf("%w: status %q", core.ErrServerUnavailable, payload.Status)
	}

	server := payload.Data.Server
	if server == "" {
		server = payload.Server
	}
	if server == "" {
		return "", fmt.Errorf("%w: response has no server", core.ErrServerUnavailable)
	}

	c.logger.Debug("selected upload server", "server", server)
	return server, nil
}

// Upload streams body as the "file" field of a multipart form.
// Sizes above core.MaxUploadSize are rejected before any request is made.
// Transport failures, non-200 responses and malformed bodies are returned
// wrapped in core.ErrUploadFailed.
func (c *Client) Upload(ctx context.Context, body io.Reader, req core.UploadRequest) (*core.UploadResult, error) {
	if req.Size > core.MaxUploadSize {
		return nil, fmt.Errorf("%w: %s is over the %s limit",
			core.ErrSizeLimitExceeded, formatSize(req.Size), formatSize(core.MaxUploadSize))
	}
	if req.Server == "" {
		return nil, fmt.Errorf("%w: no server selected", core.ErrUploadFailed)
	}

	mimeType := req.MimeType
	if mimeType == "" {
		mimeType = core.DefaultMimeType
	}

	// Multipart framing is built around the payload so the body streams
	// straight from disk with a known Content-Length.
	var head bytes.Buffer
	mw := multipart.NewWriter(&head)
	partHeader := make(textproto.MIMEHeader)
	partHeader.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeFilename(req.FileName)))
	partHeader.Set("Content-Type", mimeType)
	if _, err := mw.CreatePart(partHeader); err != nil {
		return nil, fmt.Errorf("%w: build multipart header: %w", core.ErrUploadFailed, err)
	}
	tail := "\r\n--" + mw.Boundary() + "--\r\n"

	payload := progress.SinkReader(ctx, body, req.Size, req.Progress)
	stream := io.MultiReader(&head, payload, strings.NewReader(tail))

	endpoint := strings.ReplaceAll(c.uploadURL, ServerPlaceholder, req.Server)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, stream)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", core.ErrUploadFailed, err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())
	if req.Size >= 0 {
		httpReq.ContentLength = int64(head.Len()) + req.Size + int64(len(tail))
	}
	c.setHeaders(httpReq)

	c.logger.Debug("uploading", "server", req.Server, "file", req.FileName, "size", req.Size)
	start := time.Now()

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrUploadFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d", core.ErrUploadFailed, resp.StatusCode)
	}

	var parsed uploadResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", core.ErrUploadFailed, err)
	}
	if parsed.Status != statusOK {
		return nil, fmt.Errorf("%w: status %q", core.ErrUploadFailed, parsed.Status)
	}
	if parsed.Data.DownloadPage == "" {
		return nil, fmt.Errorf("%w: response has no download page", core.ErrUploadFailed)
	}

	c.logger.Debug("upload complete",
		"file", req.FileName,
		"bytes", payload.Transferred(),
		"elapsed", time.Since(start).Round(time.Millisecond))

	return &core.UploadResult{
		DownloadPage: parsed.Data.DownloadPage,
		DirectLink:   parsed.Data.DirectLink,
		FileName:     req.FileName,
		Size:         payload.Transferred(),
		Files:        1,
	}, nil
}

// escapeFilename percent-encodes everything except unreserved characters,
// so reserved ones such as '+' and '&' survive form decoding on the server.
func escapeFilename(name string) string {
	return strings.ReplaceAll(url.QueryEscape(name), "+", "%20")
}

func (c *Client) setHeaders(req *http.Request) {
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
}

// formatSize renders a non-negative byte count in IEC units.
func formatSize(n int64) string {
	return humanize.IBytes(uint64(n)) //nolint:gosec // G115: callers pass non-negative sizes
}
