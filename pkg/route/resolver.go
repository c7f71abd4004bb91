package route

import (
	"context"
	"fmt"
	"strconv"

	"relaymesh/pkg/addr"
	"relaymesh/pkg/directory"
	"relaymesh/pkg/model"
)

// Resolution is a concrete route: no node or project aliases remain, and
// Identities maps each spliced project sub-route (textual form) to the
// identity required on it.
type Resolution struct {
	Route      addr.Address
	Identities map[string]string
}

// Resolver translates a multi-protocol address into a Resolution using
// the directory. A project miss triggers one refresh from the authority
// and one relookup, never more; a second miss is ErrUnknownProject.
type Resolver struct {
	Lookup     directory.Lookup
	Refresher  directory.Refresher // nil disables refresh-on-miss
	ActingNode string
	Authority  addr.Address
}

// Resolve walks the address segments in order. Node aliases expand to
// their endpoint as host-then-port, with the host segment kind taken from
// the record's tag. Project aliases splice the project's whole stored
// route and record an identity entry, once per occurrence. Everything
// else passes through verbatim. The empty address resolves to the empty
// route ("self").
func (r Resolver) Resolve(ctx context.Context, address addr.Address) (Resolution, error) {
	out := addr.New()
	identities := map[string]string{}

	for _, seg := range address.Segments() {
		switch seg.Kind {
		case addr.KindNode:
			expanded, err := r.resolveNode(seg)
			if err != nil {
				return Resolution{}, err
			}
			out = out.Append(expanded...)
		case addr.KindProject:
			rec, err := r.resolveProject(ctx, seg)
			if err != nil {
				return Resolution{}, err
			}
			out = out.Concat(rec.Route)
			identities[rec.Route.String()] = rec.IdentityID
		default:
			out = out.Append(seg)
		}
	}
	return Resolution{Route: out, Identities: identities}, nil
}

func (r Resolver) resolveNode(seg addr.Segment) ([]addr.Segment, error) {
	if seg.Value == "" {
		return nil, fmt.Errorf("%w: empty node alias", addr.ErrInvalidSegment)
	}
	rec, ok := r.Lookup.GetNode(seg.Value)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNode, seg.Value)
	}
	var host addr.Segment
	switch rec.Kind {
	case model.EndpointDNS:
		host = addr.Segment{Kind: addr.KindDNS, Value: rec.Host}
	case model.EndpointV4:
		host = addr.Segment{Kind: addr.KindIP4, Value: rec.Host}
	case model.EndpointV6:
		host = addr.Segment{Kind: addr.KindIP6, Value: rec.Host}
	default:
		return nil, fmt.Errorf("%w: node %q has endpoint kind %q", addr.ErrInvalidSegment, seg.Value, rec.Kind)
	}
	port := addr.Segment{Kind: addr.KindTCP, Value: strconv.Itoa(int(rec.Port))}
	return []addr.Segment{host, port}, nil
}

func (r Resolver) resolveProject(ctx context.Context, seg addr.Segment) (model.ProjectRecord, error) {
	if seg.Value == "" {
		return model.ProjectRecord{}, fmt.Errorf("%w: empty project alias", addr.ErrInvalidSegment)
	}
	if rec, ok := r.Lookup.GetProject(seg.Value); ok {
		return rec, nil
	}
	if r.Refresher != nil {
		// One remote refresh, then one relookup. No lock is held here;
		// concurrent resolves may refresh the same alias and that is fine.
		if err := r.Refresher.RefreshProjects(ctx, r.ActingNode, r.Authority); err != nil {
			return model.ProjectRecord{}, err
		}
		if rec, ok := r.Lookup.GetProject(seg.Value); ok {
			return rec, nil
		}
	}
	return model.ProjectRecord{}, fmt.Errorf("%w: %q", ErrUnknownProject, seg.Value)
}
