package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/beamdash/backend/pkg/session"
)

const apiPrefix = "/api/v1"

// TokenSource hands out a valid access token; session.Manager is one.
type TokenSource interface {
	Token(ctx context.Context, now time.Time) (string, error)
}

// APIError is a non-success envelope.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// UploadOptions mirror the upload form fields.
type UploadOptions struct {
	ConvertImagesToWebp     bool
	LimitMaxWidthHeight     int
	ThumbnailMaxWidthHeight int
	UsedElsewhere           string
}

type UploadRequest struct {
	FileName    string
	ContentType string
	Data        []byte
	Options     UploadOptions
}

type UploadResult struct {
	Message          string `json:"message"`
	FilePath         string `json:"filePath"`
	OriginalFilename string `json:"original_filename"`
	URL              string `json:"url"`
	ThumbnailURL     string `json:"thumbnail_url"`
	MediaID          string `json:"media_id"`
}

type Media struct {
	MediaID          string    `json:"media_id"`
	OriginalFileName string    `json:"original_file_name"`
	FileType         string    `json:"file_type"`
	FileSize         int64     `json:"file_size"`
	Description      string    `json:"description"`
	UsedElsewhere    *string   `json:"used_elsewhere"`
	URL              string    `json:"url"`
	ThumbnailURL     string    `json:"thumbnail_url"`
	CreatedAt        time.Time `json:"created_at"`
}

type MediaPage struct {
	Media    []Media `json:"media"`
	Total    int64   `json:"total"`
	Page     int     `json:"page"`
	PageSize int     `json:"pageSize"`
}

type Todo struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	IsCompleted  bool       `json:"is_completed"`
	IsImportant  bool       `json:"is_important"`
	DueDate      *time.Time `json:"due_date"`
	Tags         []string   `json:"tags"`
	DisplayOrder int        `json:"display_order"`
}

type User struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	IsAdmin    bool      `json:"is_admin"`
	IsVerified bool      `json:"is_verified"`
	CreatedAt  time.Time `json:"created_at"`
	AdminData  *struct {
		Role string `json:"admin_role"`
	} `json:"admin_data,omitempty"`
}

type UserPage struct {
	Users    []User `json:"users"`
	Total    int64  `json:"total"`
	LastPage int    `json:"lastPage"`
}

type tokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         *User     `json:"user,omitempty"`
}

func (p tokenPair) session() session.Session {
	s := session.Session{AccessToken: p.AccessToken, RefreshToken: p.RefreshToken, ExpiresAt: p.ExpiresAt}
	if p.User != nil {
		s.UserID = p.User.ID
	}
	return s
}

// APIClient speaks the {success,data,error} envelope of the beamdash API.
type APIClient struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	now        func() time.Time
}

func NewAPIClient(baseURL string, httpClient *http.Client) *APIClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Minute}
	}
	return &APIClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		now:        time.Now,
	}
}

// SetTokens installs the source used for authenticated calls.
func (c *APIClient) SetTokens(ts TokenSource) {
	c.tokens = ts
}

// Login exchanges credentials for a session.
func (c *APIClient) Login(ctx context.Context, email, password string) (session.Session, error) {
	var pair tokenPair
	err := c.doJSON(ctx, http.MethodPost, "/auth/login", false, map[string]string{
		"email":    email,
		"password": password,
	}, &pair)
	if err != nil {
		return session.Session{}, err
	}
	return pair.session(), nil
}

// Refresh implements session.Refresher.
func (c *APIClient) Refresh(ctx context.Context, refreshToken string) (session.Session, error) {
	var pair tokenPair
	if err := c.doJSON(ctx, http.MethodPost, "/auth/refresh", false, map[string]string{
		"refresh_token": refreshToken,
	}, &pair); err != nil {
		return session.Session{}, err
	}
	return pair.session(), nil
}

func (c *APIClient) Logout(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, "/auth/logout", true, nil, nil)
}

// UploadMedia posts one file as multipart form data. onProgress sees the
// bytes of the request body as the transport consumes them.
func (c *APIClient) UploadMedia(ctx context.Context, req UploadRequest, onProgress func(sent, total int64)) (*UploadResult, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fields := map[string]string{
		"convertImagesToWebp": strconv.FormatBool(req.Options.ConvertImagesToWebp),
	}
	if req.Options.LimitMaxWidthHeight > 0 {
		fields["limitMaxWidthHeight"] = strconv.Itoa(req.Options.LimitMaxWidthHeight)
	}
	if req.Options.ThumbnailMaxWidthHeight > 0 {
		fields["limitThumbnailMaxWidthHeight"] = strconv.Itoa(req.Options.ThumbnailMaxWidthHeight)
	}
	if req.Options.UsedElsewhere != "" {
		fields["used_elsewhere"] = req.Options.UsedElsewhere
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, err
		}
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, req.FileName))
	contentType := req.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(req.Data); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	total := int64(body.Len())
	httpReq, err := c.newRequest(ctx, http.MethodPost, "/media-uploads/upload-media", true, newProgressReader(&body, total, onProgress))
	if err != nil {
		return nil, err
	}
	httpReq.ContentLength = total
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	var result UploadResult
	if err := c.send(httpReq, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *APIClient) ListMedia(ctx context.Context, page, pageSize int, filterBy string) (*MediaPage, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("pageSize", strconv.Itoa(pageSize))
	if filterBy != "" {
		q.Set("filterBy", filterBy)
	}
	var out MediaPage
	if err := c.doJSON(ctx, http.MethodGet, "/media-uploads/list-media?"+q.Encode(), true, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) DescribeMedia(ctx context.Context, mediaID, description string) (*Media, error) {
	var out struct {
		UpdatedMedia Media `json:"updatedMedia"`
	}
	if err := c.doJSON(ctx, http.MethodPut, "/media-uploads/update-media", true, map[string]string{
		"media_id":    mediaID,
		"description": description,
	}, &out); err != nil {
		return nil, err
	}
	return &out.UpdatedMedia, nil
}

func (c *APIClient) DeleteMedia(ctx context.Context, mediaID string) error {
	return c.doJSON(ctx, http.MethodDelete, "/media-uploads/delete-media", true, map[string]string{
		"mediaId": mediaID,
	}, nil)
}

func (c *APIClient) ListTodos(ctx context.Context, scope string) ([]Todo, error) {
	path := "/todos"
	if scope != "" {
		path += "?scope=" + url.QueryEscape(scope)
	}
	var out struct {
		Todos []Todo `json:"todos"`
	}
	if err := c.doJSON(ctx, http.MethodGet, path, true, nil, &out); err != nil {
		return nil, err
	}
	return out.Todos, nil
}

func (c *APIClient) ListUsers(ctx context.Context, userType string, page int) (*UserPage, error) {
	q := url.Values{}
	q.Set("userType", userType)
	q.Set("page", strconv.Itoa(page))
	var out UserPage
	if err := c.doJSON(ctx, http.MethodGet, "/admin-users/list-users?"+q.Encode(), true, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) doJSON(ctx context.Context, method, path string, authed bool, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := c.newRequest(ctx, method, path, authed, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, out)
}

func (c *APIClient) newRequest(ctx context.Context, method, path string, authed bool, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+apiPrefix+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if authed {
		if c.tokens == nil {
			return nil, session.ErrNoSession
		}
		token, err := c.tokens.Token(ctx, c.now())
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

func (c *APIClient) send(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
	}
	if !env.Success || resp.StatusCode >= http.StatusBadRequest {
		msg := env.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
