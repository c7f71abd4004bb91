package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relaymesh/pkg/addr"
	"relaymesh/pkg/model"
)

func TestClientCreate(t *testing.T) {
	var got model.RelayRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/v1/relays", r.URL.Path)
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(model.RelayInfo{RemoteAddress: got.Alias})
	}))
	defer srv.Close()

	req := model.RelayRequest{
		Route:          addr.MustParse("/tcp/5000"),
		Alias:          "forward_to_abc",
		AtLocalNode:    true,
		Identities:     map[string]string{"/tcp/5000": "id-p"},
		CredentialMode: model.CredentialOneway,
	}
	info, err := NewClient(srv.URL, "tok").Create(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "forward_to_abc", info.RemoteAddress)
	assert.Equal(t, "/tcp/5000", got.Route.String())
	assert.Equal(t, req.Identities, got.Identities)
	assert.Equal(t, "/service/forward_to_abc", ServiceAddress(info))
}

func TestClientCreateRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "relay not created: duplicate", http.StatusConflict)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "").Create(context.Background(), model.RelayRequest{Alias: "x"})
	assert.ErrorIs(t, err, ErrTransportUnavailable)
}

func TestClientCreateUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))
	srv.Close() // shut down before the call

	_, err := NewClient(srv.URL, "").Create(context.Background(), model.RelayRequest{Alias: "x"})
	assert.ErrorIs(t, err, ErrTransportUnavailable)
}
