package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"pricemonitor/models"
)

// Client is a typed wrapper over the REST API for frontends and bots written
// in Go. It is safe for concurrent use once the token is set.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// SetToken installs a JWT obtained outside Login (e.g. restored from disk).
func (c *Client) SetToken(token string) {
	c.token = token
}

// APIError carries the server's error payload.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api: %d %s (%s)", e.Status, e.Message, e.Code)
	}
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

type authResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func (c *Client) Register(ctx context.Context, email, password string) (*models.User, error) {
	var resp authResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/register",
		map[string]string{"email": email, "password": password}, &resp)
	if err != nil {
		return nil, err
	}
	c.token = resp.Token
	return resp.User, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*models.User, error) {
	var resp authResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/login",
		map[string]string{"email": email, "password": password}, &resp)
	if err != nil {
		return nil, err
	}
	c.token = resp.Token
	return resp.User, nil
}

func (c *Client) Products(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := c.do(ctx, http.MethodGet, "/api/products", nil, &products)
	return products, err
}

func (c *Client) AddProduct(ctx context.Context, url string) (*models.Product, error) {
	var p models.Product
	err := c.do(ctx, http.MethodPost, "/api/products", map[string]string{"url": url}, &p)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/api/products/"+id.String(), nil, nil)
}

func (c *Client) RefreshProduct(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodPost, "/api/products/"+id.String()+"/refresh", nil, nil)
}

func (c *Client) RefreshAll(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/products/refresh", nil, nil)
}

func (c *Client) History(ctx context.Context, id uuid.UUID, days int) ([]models.PriceSnapshot, error) {
	path := "/api/products/" + id.String() + "/history"
	if days > 0 {
		path += fmt.Sprintf("?days=%d", days)
	}
	var history []models.PriceSnapshot
	err := c.do(ctx, http.MethodGet, path, nil, &history)
	return history, err
}

func (c *Client) Notifications(ctx context.Context) ([]models.Notification, error) {
	var list []models.Notification
	err := c.do(ctx, http.MethodGet, "/api/notifications", nil, &list)
	return list, err
}

func (c *Client) UnreadCount(ctx context.Context) (int, error) {
	var resp struct {
		Count int `json:"count"`
	}
	err := c.do(ctx, http.MethodGet, "/api/notifications/unread-count", nil, &resp)
	return resp.Count, err
}

func (c *Client) MarkAllRead(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/notifications/read-all", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode}
		var payload struct {
			Error string `json:"error"`
			Code  string `json:"code"`
		}
		if json.NewDecoder(resp.Body).Decode(&payload) == nil {
			apiErr.Message = payload.Error
			apiErr.Code = payload.Code
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
