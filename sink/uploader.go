package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/poiesic/chunkline/core"
)

const (
	// DefaultEndpoint is the ingestion endpoint of a local backend.
	DefaultEndpoint = "http://localhost:3001/upload-jsonl"

	// DefaultTimeout bounds a whole upload.
	DefaultTimeout = 60 * time.Second

	maxResponseBody = 1 << 20
)

// Uploader submits line-delimited payloads to the ingestion endpoint.
type Uploader struct {
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

// UploaderOption configures an Uploader.
type UploaderOption func(*Uploader) error

// WithHTTPClient replaces the default client. Its Timeout is left as is.
func WithHTTPClient(client *http.Client) UploaderOption {
	return func(u *Uploader) error {
		if client == nil {
			return fmt.Errorf("http client required")
		}
		u.client = client
		return nil
	}
}

// WithTimeout sets the request timeout. Default is DefaultTimeout.
func WithTimeout(timeout time.Duration) UploaderOption {
	return func(u *Uploader) error {
		if timeout <= 0 {
			return fmt.Errorf("timeout must be positive: %s", timeout)
		}
		u.client.Timeout = timeout
		return nil
	}
}

// WithUploadLogger sets a custom logger.
func WithUploadLogger(logger *slog.Logger) UploaderOption {
	return func(u *Uploader) error {
		if logger == nil {
			logger = slog.Default()
		}
		u.logger = logger
		return nil
	}
}

// NewUploader creates an Uploader posting to endpoint.
func NewUploader(endpoint string, opts ...UploaderOption) (*Uploader, error) {
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidEndpoint, err)
	}
	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidEndpoint, endpoint)
	}

	u := &Uploader{
		endpoint: endpoint,
		client:   &http.Client{Timeout: DefaultTimeout},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(u); err != nil {
			return nil, err
		}
	}
	u.logger = u.logger.With("component", "uploader", "endpoint", endpoint)
	return u, nil
}

// Endpoint returns the URL uploads are posted to.
func (u *Uploader) Endpoint() string {
	return u.endpoint
}

type uploadRequest struct {
	Content string `json:"content"`
}

// Upload posts payload as the content of a single ingestion request.
// Any failure is returned as an *IngestionError.
func (u *Uploader) Upload(ctx context.Context, payload []byte) (*core.UploadReceipt, error) {
	body, err := json.Marshal(uploadRequest{Content: string(payload)})
	if err != nil {
		return nil, &IngestionError{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &IngestionError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	u.logger.Info("uploading batch", "bytes", len(payload))
	resp, err := u.client.Do(req)
	if err != nil {
		return nil, &IngestionError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, &IngestionError{StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		u.logger.Error("upload rejected", "status", resp.StatusCode)
		return nil, &IngestionError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var receipt core.UploadReceipt
	if err := json.Unmarshal(respBody, &receipt); err != nil {
		return nil, &IngestionError{
			StatusCode: resp.StatusCode,
			Body:       string(respBody),
			Err:        fmt.Errorf("decoding response: %w", err),
		}
	}

	u.logger.Info("upload accepted",
		"source_id", receipt.SourceID,
		"chunks_created", receipt.ChunksCreated,
		"qdrant_uploaded", receipt.QdrantUploaded)
	return &receipt, nil
}
