package directory

import (
	"context"
	"errors"

	"relaymesh/pkg/addr"
	"relaymesh/pkg/model"
)

// ErrRemoteRefreshFailed reports that the authority could not be reached
// or returned an unusable project list. The cache is left as it was.
var ErrRemoteRefreshFailed = errors.New("remote project refresh failed")

// Lookup resolves directory aliases. Implementations must be safe for
// concurrent readers; a miss is (zero, false), never an error.
type Lookup interface {
	GetNode(alias string) (model.NodeRecord, bool)
	GetProject(name string) (model.ProjectRecord, bool)
}

// Refresher repopulates the project cache from the remote authority as a
// side effect. Refreshing the same alias concurrently is permitted and
// not deduplicated; implementations must apply results atomically so
// readers never observe a torn record.
type Refresher interface {
	RefreshProjects(ctx context.Context, actingNode string, authorityRoute addr.Address) error
}

// Replacer is implemented by caches that can swap in a refreshed project
// snapshot.
type Replacer interface {
	ReplaceProjects(records []model.ProjectRecord)
}

// Directory is a full read/write directory backend.
type Directory interface {
	Lookup
	Replacer
	PutNode(n model.NodeRecord)
	Nodes() []model.NodeRecord
	Projects() []model.ProjectRecord
}
