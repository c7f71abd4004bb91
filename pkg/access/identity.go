package access

import (
	"context"

	"relaymesh/pkg/auth"
	"relaymesh/pkg/model"
)

// IdentityIs permits a message only when it carries a valid credential
// attesting to the given identity. A missing or unverifiable credential
// is a deny, not an engine error.
type IdentityIs struct {
	IdentityID string
}

func (c IdentityIs) IsAuthorized(ctx context.Context, msg *model.LocalMessage) (bool, error) {
	if msg.Identity == "" {
		return false, nil
	}
	claims, err := auth.Parse(msg.Identity)
	if err != nil {
		return false, nil
	}
	return claims.IdentityID == c.IdentityID, nil
}
