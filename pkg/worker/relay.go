package worker

import (
	"context"
	"fmt"

	"relaymesh/pkg/access"
	"relaymesh/pkg/addr"
	"relaymesh/pkg/model"
)

// Forwarder sends a message along a concrete route toward another node.
type Forwarder interface {
	Send(ctx context.Context, route addr.Address, msg *model.LocalMessage) error
}

// relayHandler is the body of a relay worker: prepend the relay's stored
// route to whatever onward path the message still carries and push it
// into the transport.
type relayHandler struct {
	route   addr.Address
	forward Forwarder
}

func (h relayHandler) Handle(ctx context.Context, msg *model.LocalMessage) error {
	onward := h.route.Concat(msg.OnwardRoute)
	return h.forward.Send(ctx, onward, msg)
}

// CreateRelay registers a relay worker from a relay-creation request.
// The worker's policy is derived from the request's identity mapping:
// with requirements present, a message must attest to one of them; with
// none, the relay is open. Registration is atomic — a duplicate alias
// fails and leaves no partial relay record.
func (r *Registry) CreateRelay(req model.RelayRequest, forward Forwarder) (model.RelayInfo, error) {
	if forward == nil {
		return model.RelayInfo{}, fmt.Errorf("relay %q needs a transport", req.Alias)
	}
	policy := relayPolicy(req.Identities)
	_, err := r.Register(req.Alias, policy, relayHandler{route: req.Route, forward: forward})
	if err != nil {
		return model.RelayInfo{}, err
	}
	return model.RelayInfo{
		RemoteAddress:  req.Alias,
		Route:          req.Route,
		AtLocalNode:    req.AtLocalNode,
		CredentialMode: req.CredentialMode,
	}, nil
}

func relayPolicy(identities map[string]string) access.AccessControl {
	if len(identities) == 0 {
		return access.AllowAll{}
	}
	var anyOf access.Any
	for _, id := range identities {
		anyOf = append(anyOf, access.IdentityIs{IdentityID: id})
	}
	return anyOf
}
