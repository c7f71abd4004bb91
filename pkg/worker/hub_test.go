package worker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relaymesh/pkg/access"
	"relaymesh/pkg/addr"
	"relaymesh/pkg/model"
	"relaymesh/pkg/relay"
)

func TestSplitTransport(t *testing.T) {
	endpoint, rest, err := splitTransport(addr.MustParse("/ip4/10.0.0.1/tcp/4000/service/echo"))
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1:4000", endpoint)
	assert.Equal(t, "/service/echo", rest.String())

	endpoint, rest, err = splitTransport(addr.MustParse("/dnsaddr/example.com/tcp/4000"))
	require.NoError(t, err)
	assert.Equal(t, "example.com:4000", endpoint)
	assert.True(t, rest.Empty())

	endpoint, _, err = splitTransport(addr.MustParse("/ip6/::1/tcp/4000"))
	require.NoError(t, err)
	assert.Equal(t, "[::1]:4000", endpoint)

	_, _, err = splitTransport(addr.MustParse("/service/echo"))
	assert.Error(t, err)
	_, _, err = splitTransport(addr.MustParse("/ip4/10.0.0.1/service/echo"))
	assert.Error(t, err)
	_, _, err = splitTransport(addr.MustParse("/ip4/not-an-ip/tcp/4000"))
	assert.ErrorIs(t, err, addr.ErrInvalidSegment)
}

func TestHubSendDeliversToRemoteRegistry(t *testing.T) {
	remote := NewRegistry()
	remoteHub := NewHub(remote)
	sink := &collect{}
	_, err := remote.Register("echo", access.AllowAll{}, sink)
	require.NoError(t, err)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws/transport", remoteHub.HandleTransport)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	host, port, _ := strings.Cut(u.Host, ":")

	local := NewHub(NewRegistry())
	route := addr.MustParse("/ip4/" + host + "/tcp/" + port + "/service/echo")
	err = local.Send(context.Background(), route, &model.LocalMessage{Payload: []byte("over the wire")})
	require.NoError(t, err)

	got := sink.wait(t, 1)[0]
	assert.Equal(t, []byte("over the wire"), got.Payload)
	assert.True(t, got.OnwardRoute.Empty())
	assert.Equal(t, "/service/echo", got.ReturnRoute.String())
}

// Writes to one peer are serialized on that connection alone; parallel
// senders must all get through without corrupting the stream.
func TestHubConcurrentSendsSamePeer(t *testing.T) {
	remote := NewRegistry()
	remoteHub := NewHub(remote)
	sink := &collect{}
	_, err := remote.Register("echo", access.AllowAll{}, sink)
	require.NoError(t, err)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws/transport", remoteHub.HandleTransport)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	host, port, _ := strings.Cut(u.Host, ":")
	route := addr.MustParse("/ip4/" + host + "/tcp/" + port + "/service/echo")

	local := NewHub(NewRegistry())
	// Dial once up front so every sender shares the cached connection.
	require.NoError(t, local.Send(context.Background(), route,
		&model.LocalMessage{Payload: []byte{0xff}}))

	const senders = 16
	errs := make(chan error, senders)
	var wg sync.WaitGroup
	for i := 0; i < senders; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			errs <- local.Send(context.Background(), route,
				&model.LocalMessage{Payload: []byte{byte(n)}})
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got := sink.wait(t, senders+1)
	seen := map[byte]bool{}
	for _, m := range got {
		require.Len(t, m.Payload, 1)
		seen[m.Payload[0]] = true
	}
	assert.Len(t, seen, senders+1, "every payload arrives intact exactly once")
}

func TestHubSendUnreachablePeer(t *testing.T) {
	local := NewHub(NewRegistry())
	err := local.Send(context.Background(), addr.MustParse("/ip4/127.0.0.1/tcp/1/service/echo"),
		&model.LocalMessage{})
	assert.ErrorIs(t, err, relay.ErrTransportUnavailable)
}
