package directory

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relaymesh/pkg/addr"
	"relaymesh/pkg/model"
)

func TestStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "directory.db")
	ctx := context.Background()

	s, err := OpenStore(path)
	require.NoError(t, err)
	require.NoError(t, s.SaveNode(ctx, model.NodeRecord{Alias: "gw", Kind: model.EndpointV4, Host: "10.0.0.1", Port: 4000}))
	require.NoError(t, s.SaveProjects(ctx, []model.ProjectRecord{
		{Name: "p", Route: addr.MustParse("/tcp/5000"), IdentityID: "id-p"},
	}))
	require.NoError(t, s.Close())

	s, err = OpenStore(path)
	require.NoError(t, err)
	defer s.Close()

	cache := NewCache()
	require.NoError(t, s.Load(ctx, cache))

	n, ok := cache.GetNode("gw")
	require.True(t, ok)
	assert.Equal(t, model.EndpointV4, n.Kind)
	assert.Equal(t, uint16(4000), n.Port)

	p, ok := cache.GetProject("p")
	require.True(t, ok)
	assert.Equal(t, "/tcp/5000", p.Route.String())
	assert.Equal(t, "id-p", p.IdentityID)
}

func TestStoreSaveProjectsReplaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "directory.db")
	ctx := context.Background()

	s, err := OpenStore(path)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.SaveProjects(ctx, []model.ProjectRecord{
		{Name: "old", Route: addr.MustParse("/tcp/1"), IdentityID: "o"},
	}))
	require.NoError(t, s.SaveProjects(ctx, []model.ProjectRecord{
		{Name: "new", Route: addr.MustParse("/tcp/2"), IdentityID: "n"},
	}))

	cache := NewCache()
	require.NoError(t, s.Load(ctx, cache))
	_, ok := cache.GetProject("old")
	assert.False(t, ok)
	_, ok = cache.GetProject("new")
	assert.True(t, ok)
}

func TestStoreSaveNodeUpserts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "directory.db")
	ctx := context.Background()

	s, err := OpenStore(path)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.SaveNode(ctx, model.NodeRecord{Alias: "gw", Kind: model.EndpointDNS, Host: "old.example.com", Port: 1}))
	require.NoError(t, s.SaveNode(ctx, model.NodeRecord{Alias: "gw", Kind: model.EndpointDNS, Host: "new.example.com", Port: 2}))

	cache := NewCache()
	require.NoError(t, s.Load(ctx, cache))
	n, ok := cache.GetNode("gw")
	require.True(t, ok)
	assert.Equal(t, "new.example.com", n.Host)
	assert.Equal(t, uint16(2), n.Port)
}
