package route

import "errors"

// Resolution failures are terminal for the resolve call that hit them;
// the only retry in this package is the single refresh-then-relookup for
// a missing project.
var (
	ErrUnknownNode    = errors.New("unknown node")
	ErrUnknownProject = errors.New("unknown project")
)
