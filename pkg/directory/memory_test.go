package directory

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relaymesh/pkg/addr"
	"relaymesh/pkg/model"
)

func TestCacheNodeLookup(t *testing.T) {
	c := NewCache()
	_, ok := c.GetNode("gw")
	assert.False(t, ok)

	c.PutNode(model.NodeRecord{Alias: "gw", Kind: model.EndpointV4, Host: "10.0.0.1", Port: 4000})
	n, ok := c.GetNode("gw")
	require.True(t, ok)
	assert.Equal(t, "10.0.0.1", n.Host)
}

func TestCacheSnapshotSwap(t *testing.T) {
	c := NewCache()
	c.ReplaceProjects([]model.ProjectRecord{
		{Name: "p", Route: addr.MustParse("/tcp/5000"), IdentityID: "id-p"},
		{Name: "q", Route: addr.MustParse("/tcp/6000"), IdentityID: "id-q"},
	})
	_, ok := c.GetProject("p")
	assert.True(t, ok)

	// A later snapshot fully replaces the earlier one.
	c.ReplaceProjects([]model.ProjectRecord{
		{Name: "q", Route: addr.MustParse("/tcp/7000"), IdentityID: "id-q2"},
	})
	_, ok = c.GetProject("p")
	assert.False(t, ok, "records absent from the new snapshot disappear")
	q, ok := c.GetProject("q")
	require.True(t, ok)
	assert.Equal(t, "id-q2", q.IdentityID)
	assert.Equal(t, "/tcp/7000", q.Route.String())
}

// Concurrent refreshes are allowed and not deduplicated: readers must see
// a whole snapshot from one writer or the other, never a mix.
func TestCacheConcurrentRefreshNoTornReads(t *testing.T) {
	c := NewCache()
	snapA := []model.ProjectRecord{
		{Name: "p", Route: addr.MustParse("/tcp/5000"), IdentityID: "A"},
		{Name: "marker", Route: addr.MustParse("/tcp/1"), IdentityID: "A"},
	}
	snapB := []model.ProjectRecord{
		{Name: "p", Route: addr.MustParse("/tcp/6000"), IdentityID: "B"},
		{Name: "marker", Route: addr.MustParse("/tcp/1"), IdentityID: "B"},
	}

	var writers sync.WaitGroup
	for _, snap := range [][]model.ProjectRecord{snapA, snapB} {
		writers.Add(1)
		go func(records []model.ProjectRecord) {
			defer writers.Done()
			for i := 0; i < 500; i++ {
				c.ReplaceProjects(records)
			}
		}(snap)
	}

	// Each Projects() call copies the map under one read lock, so all
	// records it returns must come from the same writer.
	stop := make(chan struct{})
	readerDone := make(chan struct{})
	var torn bool
	go func() {
		defer close(readerDone)
		for {
			select {
			case <-stop:
				return
			default:
			}
			records := c.Projects()
			if len(records) == 0 {
				continue
			}
			tag := records[0].IdentityID
			for _, r := range records[1:] {
				if r.IdentityID != tag {
					torn = true
					return
				}
			}
		}
	}()

	writers.Wait()
	close(stop)
	<-readerDone
	assert.False(t, torn, "observed a torn snapshot")
}
