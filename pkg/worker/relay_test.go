package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relaymesh/pkg/addr"
	"relaymesh/pkg/auth"
	"relaymesh/pkg/model"
)

// fakeForwarder records outbound sends in place of the websocket hub.
type fakeForwarder struct {
	mu     sync.Mutex
	routes []addr.Address
	msgs   []*model.LocalMessage
}

func (f *fakeForwarder) Send(_ context.Context, route addr.Address, msg *model.LocalMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes = append(f.routes, route)
	f.msgs = append(f.msgs, msg)
	return nil
}

func (f *fakeForwarder) wait(t *testing.T, n int) []addr.Address {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		f.mu.Lock()
		if len(f.routes) >= n {
			out := append([]addr.Address(nil), f.routes...)
			f.mu.Unlock()
			return out
		}
		f.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d sends", n)
	return nil
}

func TestCreateRelayForwardsWithPrependedRoute(t *testing.T) {
	r := NewRegistry()
	fwd := &fakeForwarder{}

	info, err := r.CreateRelay(model.RelayRequest{
		Route:          addr.MustParse("/ip4/10.0.0.1/tcp/4000"),
		Alias:          "forward_to_abc",
		AtLocalNode:    true,
		CredentialMode: model.CredentialOneway,
	}, fwd)
	require.NoError(t, err)
	assert.Equal(t, "forward_to_abc", info.RemoteAddress)

	ok, err := r.Deliver(context.Background(), &model.LocalMessage{
		OnwardRoute: addr.MustParse("/service/forward_to_abc/service/echo"),
		Payload:     []byte("x"),
	})
	require.NoError(t, err)
	require.True(t, ok)

	routes := fwd.wait(t, 1)
	assert.Equal(t, "/ip4/10.0.0.1/tcp/4000/service/echo", routes[0].String())
}

func TestCreateRelayDuplicateAliasLeavesNoPartialRecord(t *testing.T) {
	r := NewRegistry()
	fwd := &fakeForwarder{}
	req := model.RelayRequest{Route: addr.MustParse("/tcp/1"), Alias: "dup"}

	_, err := r.CreateRelay(req, fwd)
	require.NoError(t, err)
	_, err = r.CreateRelay(req, fwd)
	assert.Error(t, err)
	assert.Len(t, r.Addresses(), 1)
}

func TestCreateRelayRequiresTransport(t *testing.T) {
	r := NewRegistry()
	_, err := r.CreateRelay(model.RelayRequest{Alias: "x"}, nil)
	assert.Error(t, err)
	assert.Empty(t, r.Addresses())
}

func TestRelayIdentityRequirementGatesMessages(t *testing.T) {
	r := NewRegistry()
	fwd := &fakeForwarder{}
	_, err := r.CreateRelay(model.RelayRequest{
		Route:      addr.MustParse("/tcp/5000"),
		Alias:      "guarded",
		Identities: map[string]string{"/tcp/5000": "id-p"},
	}, fwd)
	require.NoError(t, err)

	// no credential: dropped
	ok, err := r.Deliver(context.Background(), &model.LocalMessage{
		OnwardRoute: addr.MustParse("/service/guarded"),
	})
	require.NoError(t, err)
	assert.False(t, ok)

	// matching credential: forwarded
	cred, err := auth.Generate("id-p", "sender", time.Minute)
	require.NoError(t, err)
	ok, err = r.Deliver(context.Background(), &model.LocalMessage{
		OnwardRoute: addr.MustParse("/service/guarded"),
		Identity:    cred,
	})
	require.NoError(t, err)
	assert.True(t, ok)
	fwd.wait(t, 1)
}
