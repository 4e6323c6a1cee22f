// Package fetch retrieves manifests, files and release metadata over HTTP,
// applying the configured download authentication.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/imroc/req/v3"

	"github.com/flier268/Minecraft-updater/internal/hashing"
	"github.com/flier268/Minecraft-updater/internal/utils"
	"github.com/flier268/Minecraft-updater/internal/version"
)

const (
	HeaderUpdaterVersion = "X-Updater-Version"
	HeaderDeviceID       = "X-Updater-Device-Id"

	DefaultTimeout = 10 * time.Minute

	progressInterval = time.Second
)

var UserAgent = fmt.Sprintf("%s/%s (%s; %s; %s)", version.AppName, version.Version, version.Revision, runtime.GOOS, runtime.GOARCH)

func newHTTPClient() *req.Client {
	return req.C().
		SetTimeout(DefaultTimeout).
		SetUserAgent(UserAgent).
		SetCommonHeader(HeaderUpdaterVersion, version.Version).
		SetCommonHeader(HeaderDeviceID, utils.HWID).
		SetJsonMarshal(jsonMarshal).
		SetJsonUnmarshal(jsonUnmarshal)
}

// Client is safe for concurrent use.
type Client struct {
	http   *req.Client
	auth   AuthOptions
	algo   hashing.Algorithm
	logger *slog.Logger
}

type Option func(*Client)

func WithAuth(auth AuthOptions) Option {
	return func(c *Client) {
		c.auth = auth.Normalize()
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.SetTimeout(d)
		}
	}
}

// WithRetry enables n automatic retries per request. Requests are not retried
// by default.
func WithRetry(n int) Option {
	return func(c *Client) {
		c.http.SetCommonRetryCount(n).SetCommonRetryFixedInterval(time.Second)
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithAlgorithm sets the digest used to verify downloads whose expected hash
// length does not identify an algorithm.
func WithAlgorithm(algo hashing.Algorithm) Option {
	return func(c *Client) {
		c.algo = algo
	}
}

// WithHTTPClient replaces the underlying req client.
func WithHTTPClient(hc *req.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

func New(opts ...Option) *Client {
	c := &Client{
		http:   newHTTPClient(),
		algo:   hashing.Default,
		logger: utils.DiscardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.auth.IsConfigured() {
		c.logger.Debug("download auth", "auth", c.auth)
	}
	return c
}

func (c *Client) Auth() AuthOptions {
	return c.auth
}

// Redact returns rawURL in a form safe to log.
func (c *Client) Redact(rawURL string) string {
	return RedactURL(rawURL, c.auth)
}

func (c *Client) request(ctx context.Context) *req.Request {
	return c.auth.applyRequest(c.http.R().SetContext(ctx))
}

// redactErr scrubs the request URL that net/http embeds in transport errors.
func (c *Client) redactErr(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		uerr.URL = c.Redact(uerr.URL)
	}
	return err
}

// FetchBytes issues an authenticated GET and returns the response body.
func (c *Client) FetchBytes(ctx context.Context, rawURL string) ([]byte, error) {
	safeURL := c.Redact(c.auth.ApplyURL(rawURL))
	c.logger.Debug("fetch", "url", safeURL)

	resp, err := c.request(ctx).Get(c.auth.ApplyURL(rawURL))
	if err != nil {
		return nil, fmt.Errorf("fetch: %s: %w", safeURL, c.redactErr(err))
	}
	if !resp.IsSuccessState() {
		return nil, &HTTPError{URL: safeURL, StatusCode: resp.GetStatusCode()}
	}

	body, err := resp.ToBytes()
	if err != nil {
		return nil, fmt.Errorf("fetch: %s: read body: %w", safeURL, err)
	}
	return body, nil
}

func (c *Client) FetchText(ctx context.Context, rawURL string) (string, error) {
	body, err := c.FetchBytes(ctx, rawURL)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// FetchJSON decodes a JSON response into v.
func (c *Client) FetchJSON(ctx context.Context, rawURL string, v any) error {
	safeURL := c.Redact(c.auth.ApplyURL(rawURL))
	c.logger.Debug("fetch json", "url", safeURL)

	resp, err := c.request(ctx).
		SetHeader("Accept", "application/json").
		SetSuccessResult(v).
		Get(c.auth.ApplyURL(rawURL))
	if err != nil {
		return fmt.Errorf("fetch: %s: %w", safeURL, c.redactErr(err))
	}
	if !resp.IsSuccessState() {
		return &HTTPError{URL: safeURL, StatusCode: resp.GetStatusCode()}
	}
	return nil
}

type downloadOptions struct {
	onStatus   func(string)
	onProgress func(downloaded, total int64)
}

type DownloadOption func(*downloadOptions)

// WithStatus receives human readable status lines while downloading.
func WithStatus(fn func(string)) DownloadOption {
	return func(o *downloadOptions) {
		o.onStatus = fn
	}
}

// WithProgress receives byte counts while downloading. total is -1 when the
// server did not announce a length.
func WithProgress(fn func(downloaded, total int64)) DownloadOption {
	return func(o *downloadOptions) {
		o.onProgress = fn
	}
}

func (o *downloadOptions) status(format string, args ...any) {
	if o.onStatus != nil {
		o.onStatus(fmt.Sprintf(format, args...))
	}
}

// DownloadVerified downloads rawURL into a temporary file beside dest and
// moves it over dest only when expectedHash is empty or matches the
// downloaded content. On any failure dest is left as it was and a
// *DownloadError is returned.
func (c *Client) DownloadVerified(ctx context.Context, rawURL, dest, expectedHash string, opts ...DownloadOption) (err error) {
	o := &downloadOptions{}
	for _, opt := range opts {
		opt(o)
	}

	fullURL := c.auth.ApplyURL(rawURL)
	safeURL := c.Redact(fullURL)
	fail := func(err error) error {
		return &DownloadError{URL: safeURL, Path: dest, Err: err}
	}

	dir := filepath.Dir(dest)
	if err := utils.EnsureDir(dir); err != nil {
		return fail(err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(dest)+".tmp.*")
	if err != nil {
		return fail(err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer func() {
		if err != nil {
			os.Remove(tmpPath)
		}
	}()

	o.status("downloading %s", filepath.Base(dest))
	c.logger.Debug("download", "url", safeURL, "dest", dest)

	resp, err := c.request(ctx).
		DisableAutoReadResponse().
		SetOutputFile(tmpPath).
		SetDownloadCallbackWithInterval(func(info req.DownloadInfo) {
			if info.Response == nil || info.Response.Response == nil {
				return
			}
			total := info.Response.ContentLength
			if o.onProgress != nil {
				o.onProgress(info.DownloadedSize, total)
			}
			if total > 0 {
				o.status("%s: %s / %s", filepath.Base(dest), humanize.Bytes(uint64(info.DownloadedSize)), humanize.Bytes(uint64(total)))
			}
		}, progressInterval).
		Get(fullURL)
	if err != nil {
		return fail(c.redactErr(err))
	}
	if !resp.IsSuccessState() {
		return fail(&HTTPError{URL: safeURL, StatusCode: resp.GetStatusCode()})
	}

	if expectedHash != "" {
		algo, ok := hashing.ForDigest(expectedHash)
		if !ok {
			algo = c.algo
		}
		actual, err := hashing.HashFile(tmpPath, algo)
		if err != nil {
			return fail(err)
		}
		if !hashing.Equal(actual, expectedHash) {
			o.status("%s: hash mismatch", filepath.Base(dest))
			return fail(&HashMismatchError{Path: dest, Expected: expectedHash, Actual: actual})
		}
	}

	if err := replaceFile(tmpPath, dest); err != nil {
		return fail(err)
	}

	if info, statErr := os.Stat(dest); statErr == nil {
		c.logger.Debug("downloaded", "dest", dest, "size", humanize.Bytes(uint64(info.Size())))
	}
	o.status("%s: done", filepath.Base(dest))
	return nil
}
