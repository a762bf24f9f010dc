// Package webdavclient implements the narrow WebDAV dialect this uploader
// needs: PROPFIND with Depth 0, MKCOL, and streaming PUT, each wrapped in a
// bounded retry policy. A Client owns exactly one *http.Client and is meant
// to be used by a single goroutine for its entire lifetime.
package webdavclient

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/paulschiretz/webdav-uploader/pkg/decision"
	"github.com/paulschiretz/webdav-uploader/pkg/pathutil"
	"github.com/paulschiretz/webdav-uploader/pkg/pool"
)

// BaseUrlParts is the parsed form of the configured base URL.
type BaseUrlParts struct {
	Scheme   string
	Host     string
	Port     string
	BasePath string
}

// ParseBaseUrl validates and decomposes a base URL into its parts.
func ParseBaseUrl(raw string) (BaseUrlParts, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return BaseUrlParts{}, fmt.Errorf("invalid base url %q: %w", raw, err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return BaseUrlParts{}, fmt.Errorf("invalid base url %q: scheme must be http or https", raw)
	}
	host := u.Hostname()
	if host == "" {
		return BaseUrlParts{}, fmt.Errorf("invalid base url %q: missing host", raw)
	}
	port := u.Port()
	if port == "" {
		if scheme == "https" {
			port = "443"
		} else {
			port = "80"
		}
	}
	basePath := u.Path
	if basePath == "" {
		basePath = "/"
	}
	return BaseUrlParts{Scheme: scheme, Host: host, Port: port, BasePath: basePath}, nil
}

const (
	maxAttempts      = 3
	retryBackoffUnit = 300 * time.Millisecond
	putBufferSize    = 64 * 1024
	userAgent        = "WebDAVUploader/1.0"

	dialTimeout     = 10 * time.Second
	attemptDeadline = 30 * time.Second
)

var bufPool = pool.NewFixedBuffer(putBufferSize)

// Client is a single-connection WebDAV session. Not safe for concurrent use.
type Client struct {
	http     *http.Client
	base     BaseUrlParts
	email    string
	password string
}

// New builds a Client tuned to keep exactly one idle connection alive,
// mirroring the single dedicated/per-worker connection the sync engine hands
// to it.
func New(base BaseUrlParts, email, password string) *Client {
	transport := &http.Transport{
		MaxIdleConnsPerHost: 1,
		DisableKeepAlives:   false,
		DialContext: (&net.Dialer{
			Timeout: dialTimeout,
		}).DialContext,
	}
	return &Client{
		http: &http.Client{
			Transport: transport,
		},
		base:     base,
		email:    email,
		password: password,
	}
}

func (c *Client) requestURL(remotePath string) string {
	encoded := pathutil.UrlEncodePath(remotePath)
	joined := joinPaths(c.base.BasePath, encoded)
	return fmt.Sprintf("%s://%s:%s%s", c.base.Scheme, c.base.Host, c.base.Port, joined)
}

func joinPaths(base, rel string) string {
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base + strings.TrimPrefix(rel, "/")
}

func (c *Client) authHeader() (string, bool) {
	if c.email == "" && c.password == "" {
		return "", false
	}
	token := base64.StdEncoding.EncodeToString([]byte(c.email + ":" + c.password))
	return "Basic " + token, true
}

func isRetryableStatus(status int) bool {
	if status == 408 || status == 429 {
		return true
	}
	return status >= 500 && status < 600
}

// attemptResult bundles a single request's outcome for the retry loop.
type attemptResult struct {
	status int
	body   []byte
	err    error
}

func (c *Client) do(ctx context.Context, method, remotePath string, body io.Reader, extraHeaders map[string]string) (attemptResult, error) {
	var last attemptResult
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return attemptResult{}, ctx.Err()
			case <-time.After(retryBackoffUnit * time.Duration(attempt-1)):
			}
		}

		var reqBody io.Reader
		if body != nil {
			if seeker, ok := body.(io.Seeker); ok {
				_, _ = seeker.Seek(0, io.SeekStart)
			}
			reqBody = body
		}

		attemptCtx, cancel := context.WithTimeout(ctx, attemptDeadline)
		req, err := http.NewRequestWithContext(attemptCtx, method, c.requestURL(remotePath), reqBody)
		if err != nil {
			cancel()
			return attemptResult{}, fmt.Errorf("building %s request: %w", method, err)
		}
		req.Header.Set("User-Agent", userAgent)
		if auth, ok := c.authHeader(); ok {
			req.Header.Set("Authorization", auth)
		}
		for k, v := range extraHeaders {
			req.Header.Set(k, v)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			cancel()
			last = attemptResult{err: err}
			continue
		}
		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		cancel()
		if readErr != nil {
			last = attemptResult{err: readErr}
			continue
		}

		last = attemptResult{status: resp.StatusCode, body: respBody}
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return last, nil
		}
		if resp.StatusCode == 201 || resp.StatusCode == 405 {
			return last, nil
		}
		if !isRetryableStatus(resp.StatusCode) {
			return last, nil
		}
	}
	if last.err != nil {
		return attemptResult{}, fmt.Errorf("%s %s failed after %d attempts: %w", method, remotePath, maxAttempts, last.err)
	}
	return last, nil
}

const propfindBody = `<?xml version="1.0" encoding="utf-8"?>
<D:propfind xmlns:D="DAV:">
  <D:prop>
    <D:getlastmodified/>
    <D:getcontentlength/>
    <D:getetag/>
    <D:resourcetype/>
  </D:prop>
</D:propfind>`

// PropFind issues a Depth:0 PROPFIND and returns the raw status and body.
func (c *Client) PropFind(ctx context.Context, remotePath string) (int, []byte, error) {
	res, err := c.do(ctx, "PROPFIND", remotePath, strings.NewReader(propfindBody), map[string]string{
		"Depth":        "0",
		"Content-Type": "text/xml",
	})
	if err != nil {
		return 0, nil, err
	}
	return res.status, res.body, nil
}

// MkCol creates a remote collection. ok reports whether the remote
// directory now exists (either just created or already present); created
// distinguishes the two.
func (c *Client) MkCol(ctx context.Context, remotePath string) (ok bool, created bool, err error) {
	res, err := c.do(ctx, "MKCOL", remotePath, nil, nil)
	if err != nil {
		return false, false, err
	}
	switch res.status {
	case 201:
		return true, true, nil
	case 405:
		return true, false, nil
	default:
		return false, false, fmt.Errorf("MKCOL %s: unexpected status %d", remotePath, res.status)
	}
}

// PutFile streams localPath's contents to remotePath.
func (c *Client) PutFile(ctx context.Context, remotePath, localPath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("opening %s for upload: %w", localPath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", localPath, err)
	}

	buf := bufPool.Get()
	defer bufPool.Put(buf)

	var last attemptResult
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryBackoffUnit * time.Duration(attempt-1)):
			}
		}
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return fmt.Errorf("rewinding %s: %w", localPath, err)
		}

		attemptCtx, cancel := context.WithTimeout(ctx, attemptDeadline)
		req, err := http.NewRequestWithContext(attemptCtx, http.MethodPut, c.requestURL(remotePath), io.NopCloser(&chunkedReader{r: f, buf: *buf}))
		if err != nil {
			cancel()
			return fmt.Errorf("building PUT request: %w", err)
		}
		req.ContentLength = info.Size()
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("Content-Type", "application/octet-stream")
		if auth, ok := c.authHeader(); ok {
			req.Header.Set("Authorization", auth)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			cancel()
			lastErr = err
			continue
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		cancel()
		last = attemptResult{status: resp.StatusCode}
		lastErr = nil

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}
		if !isRetryableStatus(resp.StatusCode) {
			return fmt.Errorf("PUT %s: unexpected status %d", remotePath, resp.StatusCode)
		}
	}
	if lastErr != nil {
		return fmt.Errorf("PUT %s failed after %d attempts: %w", remotePath, maxAttempts, lastErr)
	}
	return fmt.Errorf("PUT %s failed after %d attempts: last status %d", remotePath, maxAttempts, last.status)
}

// chunkedReader wraps an io.Reader so PutFile always streams through a
// pooled 64 KiB buffer rather than letting net/http pick its own.
type chunkedReader struct {
	r   io.Reader
	buf []byte
}

func (c *chunkedReader) Read(p []byte) (int, error) {
	n := len(c.buf)
	if n > len(p) {
		n = len(p)
	}
	read, err := c.r.Read(c.buf[:n])
	if read > 0 {
		copy(p, c.buf[:read])
	}
	return read, err
}

var (
	reCollection  = regexp.MustCompile(`(?i)<[^>]*collection[^>]*/>`)
	reContentLen  = regexp.MustCompile(`(?i)<[^>]*getcontentlength[^>]*>\s*(\d+)\s*</[^>]*getcontentlength[^>]*>`)
	reLastModified = regexp.MustCompile(`(?i)<[^>]*getlastmodified[^>]*>\s*([^<]+?)\s*</[^>]*getlastmodified[^>]*>`)
	reEtag        = regexp.MustCompile(`(?i)<[^>]*getetag[^>]*>\s*([^<]+?)\s*</[^>]*getetag[^>]*>`)
	reNotFound    = regexp.MustCompile(`HTTP/1\.[01]\s+404`)
)

// GetInfo fetches and parses remote item facts via PropFind.
func (c *Client) GetInfo(ctx context.Context, remotePath string) (decision.RemoteItemInfo, error) {
	status, body, err := c.PropFind(ctx, remotePath)
	if err != nil {
		return decision.RemoteItemInfo{}, err
	}

	if status == 404 || reNotFound.Match(body) {
		return decision.RemoteItemInfo{Exists: false}, nil
	}
	if status >= 400 && status != 207 {
		return decision.RemoteItemInfo{}, fmt.Errorf("PROPFIND %s: unexpected status %d", remotePath, status)
	}

	info := decision.RemoteItemInfo{Exists: true}
	if reCollection.Match(body) {
		info.IsDir = true
	}
	if m := reContentLen.FindSubmatch(body); m != nil {
		if size, err := strconv.ParseUint(string(m[1]), 10, 64); err == nil {
			info.Size = &size
		}
	}
	if m := reLastModified.FindSubmatch(body); m != nil {
		if t, err := parseHTTPDate(string(m[1])); err == nil {
			info.LastModified = &t
		}
	}
	if m := reEtag.FindSubmatch(body); m != nil {
		info.ETag = string(bytes.TrimSpace(m[1]))
	}
	return info, nil
}

// parseHTTPDate parses the RFC 7231 IMF-fixdate format WebDAV servers use
// for getlastmodified, returning a UTC time.
func parseHTTPDate(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC1123, strings.TrimSpace(s))
	return t.UTC(), err
}
