package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"chatwindow/internal/domain"
	chatwindow_errors "chatwindow/pkg/errors"
)

// APIClient talks to the backend's paginated-read and send endpoints.
type APIClient struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewAPIClient(baseURL, token string, timeout time.Duration) *APIClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &APIClient{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

// FetchPage reads up to count messages after the given cursor. An empty
// cursor fetches from the start of the window.
func (c *APIClient) FetchPage(ctx context.Context, count int, after string) (domain.MessagePage, error) {
	q := url.Values{}
	q.Set("first", strconv.Itoa(count))
	if after != "" {
		q.Set("after", after)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/messages?"+q.Encode(), nil)
	if err != nil {
		return domain.MessagePage{}, err
	}
	c.setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return domain.MessagePage{}, fmt.Errorf("%w: %v", chatwindow_errors.ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return domain.MessagePage{}, fmt.Errorf("%w: %s body=%s", chatwindow_errors.ErrFetchFailed, resp.Status, body)
	}

	var page domain.MessagePage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return domain.MessagePage{}, fmt.Errorf("%w: decode: %v", chatwindow_errors.ErrFetchFailed, err)
	}
	return page, nil
}

// Send submits text and returns the server-confirmed message.
func (c *APIClient) Send(ctx context.Context, text string) (domain.Message, error) {
	b, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return domain.Message{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(b))
	if err != nil {
		return domain.Message{}, err
	}
	c.setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", chatwindow_errors.ErrSendFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return domain.Message{}, fmt.Errorf("%w: %s body=%s", chatwindow_errors.ErrSendFailed, resp.Status, body)
	}

	var msg domain.Message
	if err := json.NewDecoder(resp.Body).Decode(&msg); err != nil {
		return domain.Message{}, fmt.Errorf("%w: decode: %v", chatwindow_errors.ErrSendFailed, err)
	}
	return msg, nil
}

func (c *APIClient) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
