package directory

import (
	"sync"

	"relaymesh/pkg/model"
)

// Cache is the in-memory directory: node aliases and project records,
// read on every resolution. Refreshes swap the whole project map under a
// single write lock, so concurrent refreshes are last-writer-wins and a
// reader sees either the old snapshot or the new one, never a mix.
type Cache struct {
	mu       sync.RWMutex
	nodes    map[string]model.NodeRecord
	projects map[string]model.ProjectRecord
}

func NewCache() *Cache {
	return &Cache{
		nodes:    map[string]model.NodeRecord{},
		projects: map[string]model.ProjectRecord{},
	}
}

func (c *Cache) GetNode(alias string) (model.NodeRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n, ok := c.nodes[alias]
	return n, ok
}

func (c *Cache) GetProject(name string) (model.ProjectRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.projects[name]
	return p, ok
}

// PutNode registers or replaces a node alias.
func (c *Cache) PutNode(n model.NodeRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nodes[n.Alias] = n
}

// ReplaceProjects installs a full refreshed snapshot.
func (c *Cache) ReplaceProjects(records []model.ProjectRecord) {
	next := make(map[string]model.ProjectRecord, len(records))
	for _, r := range records {
		next[r.Name] = r
	}
	c.mu.Lock()
	c.projects = next
	c.mu.Unlock()
}

// Nodes returns a copy of all node records.
func (c *Cache) Nodes() []model.NodeRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.NodeRecord, 0, len(c.nodes))
	for _, n := range c.nodes {
		out = append(out, n)
	}
	return out
}

// Projects returns a copy of all project records.
func (c *Cache) Projects() []model.ProjectRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.ProjectRecord, 0, len(c.projects))
	for _, p := range c.projects {
		out = append(out, p)
	}
	return out
}
