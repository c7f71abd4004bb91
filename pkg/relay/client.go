package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"relaymesh/pkg/model"
)

// ErrTransportUnavailable reports that the relay-management endpoint
// could not be reached or refused the request. No relay record exists on
// the target when this is returned.
var ErrTransportUnavailable = errors.New("relay transport unavailable")

// Client talks to a node's relay-management endpoint.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{BaseURL: baseURL, Token: token, HTTP: &http.Client{Timeout: 15 * time.Second}}
}

// Create posts the relay request and returns the hosting node's answer.
func (c *Client) Create(ctx context.Context, req model.RelayRequest) (model.RelayInfo, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return model.RelayInfo{}, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/v1/relays", bytes.NewReader(body))
	if err != nil {
		return model.RelayInfo{}, fmt.Errorf("%w: %v", ErrTransportUnavailable, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return model.RelayInfo{}, fmt.Errorf("%w: %v", ErrTransportUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return model.RelayInfo{}, fmt.Errorf("%w: node returned %s: %s", ErrTransportUnavailable, resp.Status, bytes.TrimSpace(msg))
	}
	var info model.RelayInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return model.RelayInfo{}, fmt.Errorf("%w: %v", ErrTransportUnavailable, err)
	}
	return info, nil
}

// ServiceAddress renders the single-line output for a created relay.
func ServiceAddress(info model.RelayInfo) string {
	return "/service/" + info.RemoteAddress
}
