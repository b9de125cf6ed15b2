// Package client is the polling side of the chat: an HTTP client for the
// message log, a nickname session, change detection and a render loop.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"poll-chat/api"
	"poll-chat/domain"
	apperrors "poll-chat/errors"

	"github.com/samber/lo"
)

const defaultTimeout = 5 * time.Second

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Kind    apperrors.Kind
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server answered %d (%s): %s", e.Status, e.Kind, e.Message)
}

// Client talks to the chat HTTP surface.
type Client struct {
	baseURL string
	http    *http.Client
	log     *slog.Logger
}

// NewClient builds a client for baseURL. A nil httpClient gets a default one
// with a short timeout, so a hung server costs one poll at most.
func NewClient(baseURL string, httpClient *http.Client, log *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		log:     log,
	}
}

// List returns the whole log in insertion order.
func (c *Client) List(ctx context.Context) ([]domain.Message, error) {
	var views []api.MessageView
	if err := c.do(ctx, http.MethodGet, "/messages.json", nil, &views); err != nil {
		return nil, err
	}
	return fromViews(views), nil
}

// Post appends a message and returns the log as the server saw it right after.
func (c *Client) Post(ctx context.Context, cmd domain.PostMessageCommand) ([]domain.Message, error) {
	var views []api.MessageView
	body := api.MessageView{NickName: cmd.NickName, Message: cmd.Text}
	if err := c.do(ctx, http.MethodPost, "/messages", body, &views); err != nil {
		return nil, err
	}
	return fromViews(views), nil
}

// Since returns the messages appended after cursor.
func (c *Client) Since(ctx context.Context, cursor domain.Cursor) (domain.Page, error) {
	var resp api.SinceResponse
	if err := c.do(ctx, http.MethodGet, "/messages/since?cursor="+cursor.String(), nil, &resp); err != nil {
		return domain.Page{}, err
	}
	return domain.Page{
		Cursor: resp.Cursor,
		Messages: lo.Map(resp.Messages, func(m api.CursorMessageView, _ int) domain.Message {
			return domain.Message{ID: m.ID, Seq: m.Seq, NickName: m.NickName, Text: m.Message, At: m.At}
		}),
	}, nil
}

func (c *Client) Head(ctx context.Context) (domain.Head, error) {
	var resp api.HeadResponse
	if err := c.do(ctx, http.MethodGet, "/messages/head", nil, &resp); err != nil {
		return domain.Head{}, err
	}
	return domain.Head{Cursor: resp.Cursor, Count: resp.Count}, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	c.log.Debug("Chat API call", "method", method, "path", path, "status", resp.StatusCode, "latency", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode, Kind: apperrors.KindInternal, Message: http.StatusText(resp.StatusCode)}
	var envelope api.ErrorBody
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil && envelope.Error.Kind != "" {
		apiErr.Kind = envelope.Error.Kind
		apiErr.Message = envelope.Error.Message
	}
	return apiErr
}

func fromViews(views []api.MessageView) []domain.Message {
	return lo.Map(views, func(v api.MessageView, _ int) domain.Message {
		return domain.Message{NickName: v.NickName, Text: v.Message}
	})
}
