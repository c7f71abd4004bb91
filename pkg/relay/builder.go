package relay

import (
	"crypto/rand"
	"encoding/hex"

	"relaymesh/pkg/model"
	"relaymesh/pkg/route"
)

// LocalAliasPrefix is the naming convention for relays whose target is a
// locally hosted node. The hosting node reserves unprefixed names for
// inbound relays, so a local target must not collide with them. This is a
// protocol-level contract, not cosmetic.
const LocalAliasPrefix = "forward_to_"

// RandomName returns the default relay base name: 4 random bytes, hex.
func RandomName() string {
	var b [4]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

// BuildRequest assembles a relay-creation request from a resolution.
// atLocalNode is decided by the caller from the original unresolved
// address; it selects the alias convention and travels with the request.
// The credential mode passes through untouched. No I/O happens here.
func BuildRequest(res route.Resolution, name string, atLocalNode bool, mode model.CredentialMode) model.RelayRequest {
	if name == "" {
		name = RandomName()
	}
	alias := name
	if atLocalNode {
		alias = LocalAliasPrefix + name
	}
	return model.RelayRequest{
		Route:          res.Route,
		Alias:          alias,
		AtLocalNode:    atLocalNode,
		Identities:     res.Identities,
		CredentialMode: mode,
	}
}
