// Package alice is a client for the Alice skills dialogs API, which stores
// the images and sounds a skill references by ID.
package alice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/imroc/req/v3"
	"github.com/tidwall/gjson"

	errs "github.com/alexjbarnes/asset-sync/internal/errors"
	"github.com/alexjbarnes/asset-sync/internal/models"
)

const (
	// DefaultBaseURL is the production dialogs API.
	DefaultBaseURL = "https://dialogs.yandex.net/api/v1"

	// DefaultTimeout bounds every request when Options.Timeout is zero.
	DefaultTimeout = 5 * time.Second

	// readRetries is how many times idempotent GET requests are retried on
	// network errors or transient statuses. Uploads are never retried
	// because each attempt may create a new remote item.
	readRetries = 2

	userAgent = "asset-sync"
)

// Kind selects one of the skill's asset collections.
type Kind string

const (
	KindImages Kind = "images"
	KindSounds Kind = "sounds"
)

// ParseKind validates a collection name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindImages, KindSounds:
		return k, nil
	}

	return "", fmt.Errorf("%w: unknown asset kind %q (want images or sounds)", errs.ErrConfig, s)
}

// item is the response key for a single element of the collection.
func (k Kind) item() string {
	return strings.TrimSuffix(string(k), "s")
}

// Options configures a Client.
type Options struct {
	Token   string
	SkillID string
	// BaseURL defaults to DefaultBaseURL.
	BaseURL string
	// Timeout defaults to DefaultTimeout.
	Timeout time.Duration
}

// Client talks to the dialogs REST API on behalf of one skill.
type Client struct {
	http    *req.Client
	baseURL string
	skillID string
}

// NewClient returns a Client. Token and SkillID are required.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.Token) == "" {
		return nil, fmt.Errorf("%w: OAuth token is required", errs.ErrConfig)
	}

	if strings.TrimSpace(opts.SkillID) == "" {
		return nil, fmt.Errorf("%w: skill ID is required", errs.ErrConfig)
	}

	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}

	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")

	httpClient := req.C().
		SetBaseURL(baseURL).
		SetTimeout(opts.Timeout).
		SetUserAgent(userAgent).
		SetCommonHeader("Authorization", "OAuth "+opts.Token)

	return &Client{
		http:    httpClient,
		baseURL: baseURL,
		skillID: opts.SkillID,
	}, nil
}

// SkillID returns the skill the client acts for.
func (c *Client) SkillID() string {
	return c.skillID
}

func (c *Client) collectionPath(kind Kind) string {
	return "/skills/" + c.skillID + "/" + string(kind)
}

// Status is the storage usage reported by GET /status.
type Status struct {
	Images models.Quota
	Sounds models.Quota
}

// Quota returns storage usage for both collections.
func (c *Client) Quota(ctx context.Context) (*Status, error) {
	body, err := c.send(c.read(ctx), http.MethodGet, "/status")
	if err != nil {
		return nil, fmt.Errorf("getting quota: %w", err)
	}

	var st Status
	if err := decodeKey(body, "images.quota", &st.Images); err != nil {
		return nil, fmt.Errorf("getting quota: %w", err)
	}

	if err := decodeKey(body, "sounds.quota", &st.Sounds); err != nil {
		return nil, fmt.Errorf("getting quota: %w", err)
	}

	return &st, nil
}

// List returns every item in the collection.
func (c *Client) List(ctx context.Context, kind Kind) ([]models.RemoteItem, error) {
	body, err := c.send(c.read(ctx), http.MethodGet, c.collectionPath(kind))
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", kind, err)
	}

	items := make([]models.RemoteItem, 0)
	if err := decodeKey(body, string(kind), &items); err != nil {
		return nil, fmt.Errorf("listing %s: %w", kind, err)
	}

	return items, nil
}

// Get returns a single item. The images collection has no item endpoint,
// so images are looked up in the full listing. A missing image yields nil.
func (c *Client) Get(ctx context.Context, kind Kind, id string) (*models.RemoteItem, error) {
	if err := requireID(id); err != nil {
		return nil, err
	}

	if kind == KindImages {
		items, err := c.List(ctx, kind)
		if err != nil {
			return nil, err
		}

		for i := range items {
			if items[i].ID == id {
				return &items[i], nil
			}
		}

		return nil, nil
	}

	body, err := c.send(c.read(ctx), http.MethodGet, c.collectionPath(kind)+"/"+id)
	if err != nil {
		return nil, fmt.Errorf("getting %s %s: %w", kind.item(), id, err)
	}

	var item models.RemoteItem
	if err := decodeKey(body, kind.item(), &item); err != nil {
		return nil, fmt.Errorf("getting %s %s: %w", kind.item(), id, err)
	}

	return &item, nil
}

// Upload sends data as a multipart file and returns the created item.
func (c *Client) Upload(ctx context.Context, kind Kind, data []byte, filename string) (*models.RemoteItem, error) {
	r := c.http.R().
		SetContext(ctx).
		SetFileBytes("file", filename, data)

	body, err := c.send(r, http.MethodPost, c.collectionPath(kind))
	if err != nil {
		return nil, fmt.Errorf("uploading %s: %w", filename, err)
	}

	var item models.RemoteItem
	if err := decodeKey(body, kind.item(), &item); err != nil {
		return nil, fmt.Errorf("uploading %s: %w", filename, err)
	}

	if item.ID == "" {
		return nil, fmt.Errorf("uploading %s: response has no %s.id", filename, kind.item())
	}

	return &item, nil
}

// Delete removes an item. The API must answer {"result":"ok"}.
func (c *Client) Delete(ctx context.Context, kind Kind, id string) error {
	if err := requireID(id); err != nil {
		return err
	}

	path := c.collectionPath(kind) + "/" + id

	body, err := c.send(c.http.R().SetContext(ctx), http.MethodDelete, path)
	if err != nil {
		return fmt.Errorf("deleting %s %s: %w", kind.item(), id, err)
	}

	if result := gjson.GetBytes(body, "result").String(); result != "ok" {
		return fmt.Errorf("deleting %s %s: unexpected result %q: %s", kind.item(), id, result, sanitizeResponseBody(body))
	}

	return nil
}

// read returns a request for an idempotent call, with retries on network
// failures and transient statuses.
func (c *Client) read(ctx context.Context) *req.Request {
	return c.http.R().
		SetContext(ctx).
		SetRetryCount(readRetries).
		SetRetryBackoffInterval(200*time.Millisecond, 2*time.Second).
		SetRetryCondition(func(resp *req.Response, err error) bool {
			if err != nil {
				return ctx.Err() == nil
			}

			return isTransientStatus(resp.StatusCode)
		})
}

// send performs the request and returns the body of a 2xx response.
func (c *Client) send(r *req.Request, method, path string) ([]byte, error) {
	resp, err := r.Send(method, path)
	if err != nil {
		return nil, &TransientError{Err: fmt.Errorf("sending %s %s: %w", method, path, err)}
	}

	body := resp.Bytes()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{
			Method:  method,
			Path:    path,
			Status:  resp.StatusCode,
			Message: gjson.GetBytes(body, "message").String(),
		}

		if apiErr.Message == "" {
			apiErr.Message = sanitizeResponseBody(body)
		}

		if isTransientStatus(resp.StatusCode) {
			return nil, &TransientError{Err: apiErr}
		}

		return nil, apiErr
	}

	return body, nil
}

// decodeKey unmarshals the value at a gjson path of body into v.
func decodeKey(body []byte, path string, v any) error {
	res := gjson.GetBytes(body, path)
	if !res.Exists() {
		return fmt.Errorf("response has no %q field: %s", path, sanitizeResponseBody(body))
	}

	if err := json.Unmarshal([]byte(res.Raw), v); err != nil {
		return fmt.Errorf("decoding %q: %w", path, err)
	}

	return nil
}

func requireID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: empty item id", errs.ErrValidation)
	}

	return nil
}

// IsNotFound reports whether err is an API 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}
