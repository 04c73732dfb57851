// Package client pushes files to, and fetches files from, a remote
// filedrop receiver.
package client

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/zots0127/filedrop/internal/domain/repository"
)

// DefaultTimeout bounds a whole request when no timeout is configured
const DefaultTimeout = 30 * time.Second

// Client talks to remote receivers over HTTP
type Client struct {
	httpClient *http.Client
	logger     *zap.Logger
}

// UploadResult describes a completed upload
type UploadResult struct {
	BytesSent  int64
	StatusCode int
	// Location of the stored file on the receiver, if it reported one
	Location string
}

// New creates a client whose requests never outlive timeout
func New(timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Timeout returns the per-request timeout
func (c *Client) Timeout() time.Duration {
	return c.httpClient.Timeout
}

// Endpoint joins a receiver base URL with a path
func Endpoint(baseURL, path string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return "", fmt.Errorf("%w: invalid receiver URL %q: %w", repository.ErrNetwork, baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: receiver URL %q must use http or https", repository.ErrNetwork, baseURL)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: receiver URL %q has no host", repository.ErrNetwork, baseURL)
	}
	return strings.TrimRight(u.String(), "/") + path, nil
}

// Upload streams body to {baseURL}/upload as the multipart field "file".
// Any status other than 200 is an error wrapping ErrNetwork.
func (c *Client) Upload(ctx context.Context, baseURL, filename string, body io.Reader) (*UploadResult, error) {
	endpoint, err := Endpoint(baseURL, "/upload")
	if err != nil {
		return nil, err
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	written := make(chan int64, 1)

	go func() {
		var n int64
		defer func() { written <- n }()

		part, err := mw.CreateFormFile("file", filename)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		n, err = io.Copy(part, body)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, pr)
	if err != nil {
		pr.Close()
		<-written
		return nil, fmt.Errorf("%w: build request: %w", repository.ErrNetwork, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	// unblock the writer if the transport stopped reading early
	pr.Close()
	sent := <-written
	if err != nil {
		return nil, fmt.Errorf("%w: upload to %s: %w", repository.ErrNetwork, endpoint, err)
	}
	defer resp.Body.Close()

	message, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: receiver responded %d: %s",
			repository.ErrNetwork, resp.StatusCode, strings.TrimSpace(string(message)))
	}

	c.logger.Debug("upload complete",
		zap.String("endpoint", endpoint),
		zap.String("filename", filename),
		zap.Int64("bytes", sent))

	return &UploadResult{
		BytesSent:  sent,
		StatusCode: resp.StatusCode,
		Location:   resp.Header.Get("Location"),
	}, nil
}

// Send uploads body and returns the number of payload bytes sent
func (c *Client) Send(ctx context.Context, baseURL, filename string, body io.Reader) (int64, error) {
	result, err := c.Upload(ctx, baseURL, filename, body)
	if err != nil {
		return 0, err
	}
	return result.BytesSent, nil
}

// Download copies {baseURL}/downloads/{name} into w. A 404 from the receiver
// wraps ErrNotFound.
func (c *Client) Download(ctx context.Context, baseURL, name string, w io.Writer) (int64, error) {
	endpoint, err := Endpoint(baseURL, "/downloads/"+url.PathEscape(name))
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: build request: %w", repository.ErrNetwork, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: download from %s: %w", repository.ErrNetwork, endpoint, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return 0, fmt.Errorf("%w: %s", repository.ErrNotFound, name)
	default:
		return 0, fmt.Errorf("%w: receiver responded %d", repository.ErrNetwork, resp.StatusCode)
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("%w: read %s: %w", repository.ErrNetwork, name, err)
	}
	return n, nil
}
