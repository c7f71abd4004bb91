package model

import "relaymesh/pkg/addr"

// CredentialMode selects how identity credentials are exchanged when the
// relay's secure channel is established. The relay core treats it as an
// opaque pass-through.
type CredentialMode string

const (
	CredentialNone   CredentialMode = "none"
	CredentialOneway CredentialMode = "oneway"
	CredentialMutual CredentialMode = "mutual"
)

// RelayRequest is the body posted to a node's relay-management endpoint.
// Identities maps a textual route prefix to the identity required on that
// sub-route.
type RelayRequest struct {
	Route          addr.Address      `json:"route"`
	Alias          string            `json:"alias,omitempty"`
	AtLocalNode    bool              `json:"atLocalNode"`
	Identities     map[string]string `json:"identities,omitempty"`
	CredentialMode CredentialMode    `json:"credentialMode"`
}

// RelayInfo is the relay-management response: the service address the
// relay was registered under on the hosting node.
type RelayInfo struct {
	RemoteAddress  string         `json:"remoteAddress"`
	Route          addr.Address   `json:"route"`
	AtLocalNode    bool           `json:"atLocalNode"`
	CredentialMode CredentialMode `json:"credentialMode"`
}
