package syncclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"worldroom/models"
)

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Kind    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Kind, e.Message)
}

// Transient reports whether retrying the same request later may succeed.
func (e *APIError) Transient() bool {
	return e.Status == http.StatusServiceUnavailable || e.Status == http.StatusTooManyRequests || e.Status >= 500
}

// HTTPLoader loads room state from GET /api/rooms/:code/state.
type HTTPLoader struct {
	BaseURL  string
	RoomCode string
	Token    string
	Client   *http.Client
}

func NewHTTPLoader(baseURL, roomCode, token string) *HTTPLoader {
	return &HTTPLoader{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		RoomCode: roomCode,
		Token:    token,
		Client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (l *HTTPLoader) Load(ctx context.Context) (*models.RoomState, error) {
	endpoint := l.BaseURL + "/api/rooms/" + url.PathEscape(l.RoomCode) + "/state"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if l.Token != "" {
		req.Header.Set("Authorization", "Bearer "+l.Token)
	}

	resp, err := l.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("load room state: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{Status: resp.StatusCode}
		var body struct {
			Error string `json:"error"`
			Kind  string `json:"kind"`
		}
		if json.NewDecoder(resp.Body).Decode(&body) == nil {
			apiErr.Kind, apiErr.Message = body.Kind, body.Error
		}
		return nil, apiErr
	}

	var state models.RoomState
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		return nil, fmt.Errorf("decode room state: %w", err)
	}
	return &state, nil
}
