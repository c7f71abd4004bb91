package model

import "relaymesh/pkg/addr"

// LocalMessage is the unit delivered to a worker mailbox: the path the
// message has already traversed, the path it still intends to take, an
// optional identity credential, and an opaque payload. Access-control
// checks read it and never write it.
type LocalMessage struct {
	OnwardRoute addr.Address `json:"onwardRoute"`
	ReturnRoute addr.Address `json:"returnRoute"`
	Identity    string       `json:"identity,omitempty"` // credential presented by the sender
	Payload     []byte       `json:"payload,omitempty"`
}
