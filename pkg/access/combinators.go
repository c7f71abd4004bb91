package access

import (
	"context"

	"relaymesh/pkg/model"
)

// All is the conjunction of its children. Children are evaluated strictly
// left to right so policy authors can put cheap local checks first; the
// first false short-circuits to false, the first error short-circuits and
// propagates unchanged. An empty All is vacuously true.
type All []AccessControl

func (a All) IsAuthorized(ctx context.Context, msg *model.LocalMessage) (bool, error) {
	for _, child := range a {
		ok, err := child.IsAuthorized(ctx, msg)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// Any is the disjunction of its children, evaluated left to right: the
// first true short-circuits to true, the first error short-circuits and
// propagates unchanged. An empty Any is vacuously false.
type Any []AccessControl

func (a Any) IsAuthorized(ctx context.Context, msg *model.LocalMessage) (bool, error) {
	for _, child := range a {
		ok, err := child.IsAuthorized(ctx, msg)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
