// Package yemot provides a file store adapter for the Yemot HaMashiach
// (call2all) IVR REST API.
package yemot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"ivr-voice-bridge-service/internal/service/filestore"
)

// DefaultBaseURL is the public call2all API endpoint.
const DefaultBaseURL = "https://www.call2all.co.il/ym/api"

// Config holds client settings.
type Config struct {
	BaseURL  string
	Token    string
	Timeout  time.Duration
	// MaxBytes caps a single download. 0 disables the cap.
	MaxBytes int64
}

// Client implements filestore.Adapter over the DownloadFile and UploadFile
// API methods.
type Client struct {
	baseURL  string
	token    string
	maxBytes int64
	http     *http.Client
}

// New creates a client. A nil httpClient gets a client with cfg.Timeout.
func New(cfg Config, httpClient *http.Client) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:    cfg.Token,
		maxBytes: cfg.MaxBytes,
		http:     httpClient,
	}
}

// Fetch downloads the file at p. HTTP 404 maps to filestore.ErrNotFound;
// any other non-2xx status is a hard failure. A body larger than MaxBytes
// fails with filestore.ErrTooLarge without being buffered in full.
func (c *Client) Fetch(ctx context.Context, p string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("DownloadFile", p), nil)
	if err != nil {
		return nil, fmt.Errorf("yemot: build download request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yemot: download %s: %w", p, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("yemot: download %s: %w", p, filestore.ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("yemot: download %s: status %d: %s", p, resp.StatusCode, truncate(string(msg), 200))
	}
	if c.maxBytes > 0 && resp.ContentLength > c.maxBytes {
		return nil, fmt.Errorf("yemot: download %s: %w: %d > %d bytes", p, filestore.ErrTooLarge, resp.ContentLength, c.maxBytes)
	}

	var r io.Reader = resp.Body
	if c.maxBytes > 0 {
		r = io.LimitReader(resp.Body, c.maxBytes+1)
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("yemot: read %s: %w", p, err)
	}
	if c.maxBytes > 0 && int64(len(body)) > c.maxBytes {
		return nil, fmt.Errorf("yemot: download %s: %w: more than %d bytes", p, filestore.ErrTooLarge, c.maxBytes)
	}
	return body, nil
}

// Store uploads data to p as a multipart "file" field.
func (c *Client) Store(ctx context.Context, p string, data []byte) error {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	fw, err := w.CreateFormFile("file", path.Base(p))
	if err != nil {
		return fmt.Errorf("yemot: build upload form: %w", err)
	}
	if _, err := fw.Write(data); err != nil {
		return fmt.Errorf("yemot: build upload form: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("yemot: build upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("UploadFile", p), &body)
	if err != nil {
		return fmt.Errorf("yemot: build upload request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("yemot: upload %s: %w", p, err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("yemot: upload %s: status %d: %s", p, resp.StatusCode, truncate(string(respBody), 200))
	}
	return checkResponseStatus(p, respBody)
}

// apiResponse is the JSON envelope returned by API methods.
type apiResponse struct {
	ResponseStatus string `json:"responseStatus"`
	Message        string `json:"message"`
}

// checkResponseStatus fails on a JSON body whose responseStatus is not OK.
// Non-JSON bodies are accepted.
func checkResponseStatus(p string, body []byte) error {
	var r apiResponse
	if err := json.Unmarshal(body, &r); err != nil || r.ResponseStatus == "" {
		return nil
	}
	if r.ResponseStatus != "OK" {
		return fmt.Errorf("yemot: upload %s: %s: %s", p, r.ResponseStatus, r.Message)
	}
	return nil
}

func (c *Client) endpoint(method, p string) string {
	q := url.Values{}
	q.Set("token", c.token)
	q.Set("path", p)
	return c.baseURL + "/" + method + "?" + q.Encode()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
