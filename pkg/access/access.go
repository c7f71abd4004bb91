package access

import (
	"context"

	"relaymesh/pkg/model"
)

// AccessControl decides, per message, whether delivery may proceed. A
// check may suspend (consult remote identity state); it must never mutate
// the message or the policy value it hangs off, so one policy instance is
// safe to share across concurrent deliveries.
type AccessControl interface {
	IsAuthorized(ctx context.Context, msg *model.LocalMessage) (bool, error)
}

// AllowAll permits every message without inspecting it.
type AllowAll struct{}

func (AllowAll) IsAuthorized(ctx context.Context, _ *model.LocalMessage) (bool, error) {
	return true, nil
}

// DenyAll rejects every message without inspecting it.
type DenyAll struct{}

func (DenyAll) IsAuthorized(ctx context.Context, _ *model.LocalMessage) (bool, error) {
	return false, nil
}

// Func adapts a predicate into an AccessControl, the seam for
// caller-defined checks.
type Func func(ctx context.Context, msg *model.LocalMessage) (bool, error)

func (f Func) IsAuthorized(ctx context.Context, msg *model.LocalMessage) (bool, error) {
	return f(ctx, msg)
}
