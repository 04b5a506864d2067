package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"notepipe/internal/auth"
	"notepipe/internal/config"
	"notepipe/internal/domain"
)

const defaultBaseURL = "https://graph.microsoft.com/v1.0"

// Client implements port.FileStore on a OneDrive drive through Microsoft Graph.
// Folders are paths relative to the drive root.
type Client struct {
	http    *http.Client
	baseURL string
	logger  *zap.Logger

	mu      sync.Mutex
	folders map[string]bool
}

// NewClient creates a Graph client authorised with the configured refresh token.
func NewClient(ctx context.Context, cfg config.GraphConfig, logger *zap.Logger) (*Client, error) {
	httpClient, err := auth.GraphHTTPClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewClientWithHTTP(httpClient, cfg.BaseURL, logger), nil
}

// NewClientWithHTTP creates a client on a preconfigured HTTP client (for testing).
func NewClientWithHTTP(httpClient *http.Client, baseURL string, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		http:    httpClient,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
		folders: map[string]bool{},
	}
}

// driveItem models the subset of the Graph driveItem resource the pipeline reads.
type driveItem struct {
	ID                   string    `json:"id"`
	Name                 string    `json:"name"`
	Size                 int64     `json:"size"`
	CreatedDateTime      time.Time `json:"createdDateTime"`
	LastModifiedDateTime time.Time `json:"lastModifiedDateTime"`
	File                 *struct {
		MimeType string `json:"mimeType"`
	} `json:"file"`
	Folder *struct {
		ChildCount int `json:"childCount"`
	} `json:"folder"`
	Photo *struct {
		TakenDateTime *time.Time `json:"takenDateTime"`
	} `json:"photo"`
	FileSystemInfo *struct {
		CreatedDateTime time.Time `json:"createdDateTime"`
	} `json:"fileSystemInfo"`
}

type childrenPage struct {
	Value    []driveItem `json:"value"`
	NextLink string      `json:"@odata.nextLink"`
}

// List returns the direct children of folder, following @odata.nextLink pages.
func (c *Client) List(ctx context.Context, folder string) ([]domain.SourceFile, error) {
	next := c.baseURL + itemPath(folder) + "/children"
	var files []domain.SourceFile
	for next != "" {
		var page childrenPage
		if err := c.doJSON(ctx, http.MethodGet, next, nil, &page); err != nil {
			return nil, fmt.Errorf("listing %s: %w", folder, err)
		}
		for _, item := range page.Value {
			files = append(files, toSourceFile(item))
		}
		next = page.NextLink
	}
	return files, nil
}

// Download returns the content of the item with the given id.
func (c *Client) Download(ctx context.Context, id string) ([]byte, error) {
	resp, err := c.do(ctx, http.MethodGet, c.baseURL+"/me/drive/items/"+url.PathEscape(id)+"/content", "", nil)
	if err != nil {
		return nil, fmt.Errorf("downloading %s: %w", id, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading content of %s: %w", id, err)
	}
	return data, nil
}

// Read downloads folder/name by path.
func (c *Client) Read(ctx context.Context, folder, name string) ([]byte, error) {
	endpoint := c.baseURL + "/me/drive/root:" + escapePath(path.Join(folder, name)) + ":/content"
	resp, err := c.do(ctx, http.MethodGet, endpoint, "", nil)
	if err != nil {
		return nil, fmt.Errorf("reading %s/%s: %w", folder, name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading content of %s/%s: %w", folder, name, err)
	}
	return data, nil
}

// Upload writes data to folder/name, replacing an existing file of that name.
func (c *Client) Upload(ctx context.Context, folder, name, contentType string, data []byte) error {
	if err := c.ensureFolder(ctx, folder); err != nil {
		return err
	}
	endpoint := c.baseURL + "/me/drive/root:" + escapePath(path.Join(folder, name)) + ":/content"
	resp, err := c.do(ctx, http.MethodPut, endpoint, contentType, data)
	if err != nil {
		return fmt.Errorf("uploading %s/%s: %w", folder, name, err)
	}
	_ = resp.Body.Close()
	c.logger.Debug("uploaded", zap.String("folder", folder), zap.String("name", name), zap.Int("bytes", len(data)))
	return nil
}

// Move reparents the item with the given id into folder, keeping its name and
// replacing a same-named file there.
func (c *Client) Move(ctx context.Context, id, folder string) error {
	if err := c.ensureFolder(ctx, folder); err != nil {
		return err
	}
	body := map[string]interface{}{
		"parentReference": map[string]string{
			"path": "/drive/root:" + "/" + strings.Trim(folder, "/"),
		},
	}
	endpoint := c.baseURL + "/me/drive/items/" + url.PathEscape(id) + "?@microsoft.graph.conflictBehavior=replace"
	if err := c.doJSON(ctx, http.MethodPatch, endpoint, body, nil); err != nil {
		return fmt.Errorf("moving %s to %s: %w", id, folder, err)
	}
	return nil
}

// Exists reports whether folder/name exists.
func (c *Client) Exists(ctx context.Context, folder, name string) (bool, error) {
	err := c.doJSON(ctx, http.MethodGet, c.baseURL+itemPath(path.Join(folder, name)), nil, nil)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, domain.ErrNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("checking %s/%s: %w", folder, name, err)
	}
}

// ensureFolder creates folder and its missing ancestors. Created folders are
// remembered for the lifetime of the client.
func (c *Client) ensureFolder(ctx context.Context, folder string) error {
	folder = strings.Trim(folder, "/")
	if folder == "" {
		return nil
	}

	c.mu.Lock()
	known := c.folders[folder]
	c.mu.Unlock()
	if known {
		return nil
	}

	parent := ""
	for _, part := range strings.Split(folder, "/") {
		current := path.Join(parent, part)
		err := c.doJSON(ctx, http.MethodGet, c.baseURL+itemPath(current), nil, nil)
		if errors.Is(err, domain.ErrNotFound) {
			err = c.createFolder(ctx, parent, part)
		}
		if err != nil {
			return fmt.Errorf("ensuring folder %s: %w", current, err)
		}
		parent = current
	}

	c.mu.Lock()
	c.folders[folder] = true
	c.mu.Unlock()
	return nil
}

func (c *Client) createFolder(ctx context.Context, parent, name string) error {
	body := map[string]interface{}{
		"name":                              name,
		"folder":                            map[string]interface{}{},
		"@microsoft.graph.conflictBehavior": "fail",
	}
	err := c.doJSON(ctx, http.MethodPost, c.baseURL+itemPath(parent)+"/children", body, nil)
	var se *statusError
	if errors.As(err, &se) && se.code == http.StatusConflict {
		return nil
	}
	if err == nil {
		c.logger.Info("created folder", zap.String("folder", path.Join(parent, name)))
	}
	return err
}

func (c *Client) doJSON(ctx context.Context, method, endpoint string, in, out interface{}) error {
	var body []byte
	contentType := ""
	if in != nil {
		var err error
		if body, err = json.Marshal(in); err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		contentType = "application/json"
	}

	resp, err := c.do(ctx, method, endpoint, contentType, body)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// do sends one request and maps failures onto domain errors. On success the
// caller owns the response body.
func (c *Client) do(ctx context.Context, method, endpoint, contentType string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if auth.IsTokenError(err) {
			return nil, fmt.Errorf("refreshing graph token: %w: %w", domain.ErrAuth, err)
		}
		return nil, fmt.Errorf("calling graph API: %w", err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	defer func() { _ = resp.Body.Close() }()
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	return nil, &statusError{code: resp.StatusCode, body: string(msg)}
}

// statusError is a non-success Graph answer.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("graph API error (status %d): %s", e.code, e.body)
}

func (e *statusError) Is(target error) bool {
	switch target {
	case domain.ErrAuth:
		return e.code == http.StatusUnauthorized || e.code == http.StatusForbidden
	case domain.ErrNotFound:
		return e.code == http.StatusNotFound
	}
	return false
}

// itemPath addresses a folder or file by path relative to the drive root.
func itemPath(p string) string {
	p = strings.Trim(p, "/")
	if p == "" {
		return "/me/drive/root"
	}
	return "/me/drive/root:" + escapePath(p) + ":"
}

func escapePath(p string) string {
	parts := strings.Split(strings.Trim(p, "/"), "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return "/" + strings.Join(parts, "/")
}

func toSourceFile(item driveItem) domain.SourceFile {
	created := item.CreatedDateTime
	if item.FileSystemInfo != nil && !item.FileSystemInfo.CreatedDateTime.IsZero() {
		created = item.FileSystemInfo.CreatedDateTime
	}
	if item.Photo != nil && item.Photo.TakenDateTime != nil {
		created = *item.Photo.TakenDateTime
	}

	f := domain.SourceFile{
		ID:        item.ID,
		Name:      item.Name,
		Extension: strings.ToLower(strings.TrimPrefix(path.Ext(item.Name), ".")),
		Size:      item.Size,
		CreatedAt: created,
		IsFolder:  item.Folder != nil,
	}
	if item.File != nil {
		f.MimeType = item.File.MimeType
	}
	return f
}
