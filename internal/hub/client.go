package hub

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	defaultBaseURL        = "https://huggingface.co"
	defaultRepoType       = "space"
	defaultRevision       = "main"
	defaultRequestTimeout = 15 * time.Second
)

var (
	errMissingRepoID = errors.New("repository id is required")
	// ErrInvalidClientConfig indicates the hub client configuration is unusable.
	ErrInvalidClientConfig = errors.New("hub: invalid client config")
)

// ClientConfig bundles configuration required to instantiate a Client.
type ClientConfig struct {
	BaseURL    string
	RepoID     string
	RepoType   string
	Revision   string
	Token      string
	HTTPClient *http.Client
	Timeout    time.Duration
	Logger     *zap.Logger
}

// Client talks to a hosted file repository over its HTTP API. Reads resolve
// raw file content; writes go through the repository commit endpoint, which
// replaces the whole file in a single revision.
type Client struct {
	baseURL    string
	repoID     string
	repoType   string
	revision   string
	token      string
	httpClient *http.Client
	timeout    time.Duration
	logger     *zap.Logger
}

// NewClient constructs a hub client with validated configuration.
func NewClient(cfg ClientConfig) (*Client, error) {
	repoID := strings.TrimSpace(cfg.RepoID)
	if repoID == "" {
		return nil, fmt.Errorf("%w: %v", ErrInvalidClientConfig, errMissingRepoID)
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	repoType := strings.TrimSpace(cfg.RepoType)
	if repoType == "" {
		repoType = defaultRepoType
	}

	revision := strings.TrimSpace(cfg.Revision)
	if revision == "" {
		revision = defaultRevision
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL:    baseURL,
		repoID:     repoID,
		repoType:   repoType,
		revision:   revision,
		token:      strings.TrimSpace(cfg.Token),
		httpClient: httpClient,
		timeout:    timeout,
		logger:     logger,
	}, nil
}

// CanWrite reports whether the client holds a write credential.
func (c *Client) CanWrite() bool {
	return c.token != ""
}

// Fetch downloads the raw content stored at key. Returns ErrNotFound when
// the repository has no such file.
func (c *Client) Fetch(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := c.boundContext(ctx)
	defer cancel()

	url := fmt.Sprintf("%s/%s/resolve/%s/%s", c.baseURL, c.repoPath(), c.revision, key)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	c.authorize(req)

	response, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	if response.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("hub: fetch %s returned status %d", key, response.StatusCode)
	}

	return io.ReadAll(response.Body)
}

// Commit replaces the content stored at key in a single repository revision.
func (c *Client) Commit(ctx context.Context, key string, content []byte, message string) error {
	if !c.CanWrite() {
		return ErrNoToken
	}

	ctx, cancel := c.boundContext(ctx)
	defer cancel()

	payload, err := commitPayload(key, content, message)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/api/%s/commit/%s", c.baseURL, c.repoPath(), c.revision)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-ndjson")
	c.authorize(req)

	response, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(response.Body, 512))
		return fmt.Errorf("hub: commit %s returned status %d: %s", key, response.StatusCode, strings.TrimSpace(string(body)))
	}

	c.logger.Info("document committed",
		zap.String("repo_id", c.repoID),
		zap.String("key", key))
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func (c *Client) boundContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

// repoPath yields the URL segment for the repository. Model repositories
// live at the API root; spaces and datasets are namespaced by type.
func (c *Client) repoPath() string {
	if c.repoType == "model" {
		return c.repoID
	}
	return c.repoType + "s/" + c.repoID
}

type commitOperation struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

type commitHeader struct {
	Summary string `json:"summary"`
}

type commitFile struct {
	Content  string `json:"content"`
	Path     string `json:"path"`
	Encoding string `json:"encoding"`
}

// commitPayload builds the NDJSON body the commit endpoint expects: a header
// line with the commit summary followed by one line per file operation.
func commitPayload(key string, content []byte, message string) ([]byte, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	if err := encoder.Encode(commitOperation{Key: "header", Value: commitHeader{Summary: message}}); err != nil {
		return nil, err
	}
	if err := encoder.Encode(commitOperation{Key: "file", Value: commitFile{
		Content:  base64.StdEncoding.EncodeToString(content),
		Path:     key,
		Encoding: "base64",
	}}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
