package model

// EndpointKind tags which transport encoding a node endpoint carries.
// The tag, not the host string, decides how the endpoint expands into
// route segments.
type EndpointKind string

const (
	EndpointDNS EndpointKind = "dnsaddr"
	EndpointV4  EndpointKind = "ip4"
	EndpointV6  EndpointKind = "ip6"
)

// NodeRecord is the directory entry for a locally known node alias.
type NodeRecord struct {
	Alias string       `json:"alias"`
	Kind  EndpointKind `json:"kind"`
	Host  string       `json:"host"`
	Port  uint16       `json:"port"`
}
