// Package client talks to a numerus server over HTTP and serves as the online
// backend for game sessions.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/mcoot/numerus/internal/api/apierr"
	"github.com/mcoot/numerus/internal/api/request"
	"github.com/mcoot/numerus/internal/api/response"
	"github.com/mcoot/numerus/internal/model"
	"github.com/mcoot/numerus/internal/realtime"
)

// Config configures a Client
type Config struct {
	BaseURL string
	APIKey  string
	// Timeout bounds plain requests. Feeds are bounded only by their context.
	Timeout time.Duration
}

// Client is an HTTP client for the room API
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	streams    *http.Client
	logger     *slog.Logger
}

var _ realtime.Backend = (*Client)(nil)

// New creates a new API client
func New(cfg Config, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		streams:    &http.Client{},
		logger:     logger.With(slog.String("component", "client")),
	}
}

// Error is an error response from the API
type Error struct {
	Status  int
	Code    string
	Message string
	cause   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (%s)", e.Message, e.Code)
}

// Unwrap exposes the model error the code stands for
func (e *Error) Unwrap() error {
	return e.cause
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	return req, nil
}

// do performs a JSON request. Transport failures and server errors are reported
// as model.ErrTransientWrite.
func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %s %s: %v", model.ErrTransientWrite, method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %v", model.ErrTransientWrite, err)
	}
	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}

func decodeError(resp *http.Response) error {
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var errResp apierr.ErrorResponse
	if err := json.Unmarshal(respBody, &errResp); err != nil || errResp.Error.Code == "" {
		errResp.Error = apierr.APIError{Code: apierr.CodeInternalError, Message: strings.TrimSpace(string(respBody))}
	}

	e := &Error{Status: resp.StatusCode, Code: errResp.Error.Code, Message: errResp.Error.Message}
	e.cause = apierr.Sentinel(e.Code)
	if e.cause == nil && resp.StatusCode >= 500 {
		e.cause = model.ErrTransientWrite
	}
	return e
}

// Health checks that the server is up
func (c *Client) Health(ctx context.Context) (string, error) {
	var result response.Health
	if err := c.do(ctx, http.MethodGet, "/api/v1/health", nil, &result); err != nil {
		return "", err
	}
	return result.Status, nil
}

// Room operations

func (c *Client) CreateRoom(ctx context.Context, room *model.Room) (*model.Room, error) {
	body := request.CreateRoomRequest{
		Code:       string(room.Code),
		Difficulty: string(room.Difficulty),
		ShowHints:  &room.ShowHints,
	}
	var out model.Room
	if err := c.do(ctx, http.MethodPost, "/api/v1/rooms", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetRoom(ctx context.Context, id model.RoomID) (*model.Room, error) {
	var out model.Room
	if err := c.do(ctx, http.MethodGet, "/api/v1/rooms/"+url.PathEscape(string(id)), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetRoomByCode(ctx context.Context, code model.RoomCode) (*model.Room, error) {
	var out model.Room
	if err := c.do(ctx, http.MethodGet, "/api/v1/rooms/by-code/"+url.PathEscape(string(code)), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateRoom(ctx context.Context, id model.RoomID, update model.RoomUpdate) (*model.Room, error) {
	var out model.Room
	if err := c.do(ctx, http.MethodPatch, "/api/v1/rooms/"+url.PathEscape(string(id)), update, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Player operations

func (c *Client) AddPlayer(ctx context.Context, player *model.Player) (*model.Player, error) {
	body := request.AddPlayerRequest{
		Name:      player.Name,
		IsBot:     player.IsBot,
		IsOwner:   player.IsOwner,
		TurnOrder: player.TurnOrder,
	}
	var out model.Player
	if err := c.do(ctx, http.MethodPost, roomPath(player.RoomID, "players"), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListPlayers(ctx context.Context, roomID model.RoomID) ([]model.Player, error) {
	var out response.Players
	if err := c.do(ctx, http.MethodGet, roomPath(roomID, "players"), nil, &out); err != nil {
		return nil, err
	}
	return out.Players, nil
}

func (c *Client) UpdatePlayerScore(ctx context.Context, id model.PlayerID, score int) (*model.Player, error) {
	var out model.Player
	body := request.UpdateScoreRequest{Points: &score}
	if err := c.do(ctx, http.MethodPatch, "/api/v1/players/"+url.PathEscape(string(id)), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RemovePlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	var out model.Player
	if err := c.do(ctx, http.MethodDelete, "/api/v1/players/"+url.PathEscape(string(id)), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Message operations

func (c *Client) AddMessage(ctx context.Context, msg *model.Message) (*model.Message, error) {
	body := request.AddMessageRequest{
		Type:           string(msg.Kind),
		Text:           msg.Text,
		PlayerID:       string(msg.PlayerID),
		PlayerName:     msg.PlayerName,
		Number:         msg.Number,
		CorrectNumeral: msg.CorrectNumeral,
	}
	if !msg.Timestamp.IsZero() {
		body.CreatedAt = msg.Timestamp.UTC().Format(time.RFC3339Nano)
	}
	var out model.Message
	if err := c.do(ctx, http.MethodPost, roomPath(msg.RoomID, "messages"), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListMessages(ctx context.Context, roomID model.RoomID) ([]model.Message, error) {
	var out response.Messages
	if err := c.do(ctx, http.MethodGet, roomPath(roomID, "messages"), nil, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

func (c *Client) ClearMessages(ctx context.Context, roomID model.RoomID) ([]model.Message, error) {
	var out response.Messages
	if err := c.do(ctx, http.MethodDelete, roomPath(roomID, "messages"), nil, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

func roomPath(roomID model.RoomID, sub string) string {
	return "/api/v1/rooms/" + url.PathEscape(string(roomID)) + "/" + sub
}

// Feeds

// Subscribe streams row changes for a room until ctx is cancelled or the
// connection drops. It returns once the server has registered the stream.
func (c *Client) Subscribe(ctx context.Context, roomID model.RoomID) (<-chan model.Change, error) {
	out := make(chan model.Change, 64)
	err := c.stream(ctx, roomPath(roomID, "changes"), func() { close(out) }, func(name, data string) error {
		if name != realtime.EventChange {
			return nil
		}
		var change model.Change
		if err := json.Unmarshal([]byte(data), &change); err != nil {
			c.logger.Warn("dropping malformed change", slog.Any("error", err))
			return nil
		}
		select {
		case out <- change:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// JoinPresence keeps self live in the room for as long as the stream is open
func (c *Client) JoinPresence(ctx context.Context, roomID model.RoomID, self model.PresenceMember) (<-chan model.PresenceEvent, error) {
	q := url.Values{}
	q.Set("player_id", string(self.PlayerID))
	q.Set("name", self.Name)

	out := make(chan model.PresenceEvent, 16)
	err := c.stream(ctx, roomPath(roomID, "presence")+"?"+q.Encode(), func() { close(out) }, func(name, data string) error {
		if name != realtime.EventPresence {
			return nil
		}
		var evt model.PresenceEvent
		if err := json.Unmarshal([]byte(data), &evt); err != nil {
			c.logger.Warn("dropping malformed presence event", slog.Any("error", err))
			return nil
		}
		select {
		case out <- evt:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// stream opens an SSE connection and hands its events to handle on a reader
// goroutine. done runs when the reader exits.
func (c *Client) stream(ctx context.Context, path string, done func(), handle func(name, data string) error) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.streams.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: open feed: %v", model.ErrTransientWrite, err)
	}
	if resp.StatusCode >= 400 {
		defer func() { _ = resp.Body.Close() }()
		return decodeError(resp)
	}

	connected := make(chan error, 1)
	var once sync.Once
	signal := func(err error) { once.Do(func() { connected <- err }) }

	go func() {
		defer done()
		defer func() { _ = resp.Body.Close() }()

		err := realtime.ReadSSE(resp.Body, func(name, data string) error {
			if name == "connected" {
				signal(nil)
				return nil
			}
			return handle(name, data)
		})
		signal(errors.New("feed closed before it was established"))
		if err != nil && ctx.Err() == nil {
			c.logger.Warn("feed ended", slog.String("path", path), slog.Any("error", err))
		}
	}()

	select {
	case err := <-connected:
		if err != nil {
			return fmt.Errorf("%w: %v", model.ErrTransientWrite, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
