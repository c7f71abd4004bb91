//go:build !consul

package directory

import "log"

// NewConsulDirectory falls back to the in-memory cache when the consul
// build tag is not enabled.
func NewConsulDirectory(addr string) Directory {
	log.Printf("consul directory requested (addr=%s) but consul build tag not enabled; using memory cache", addr)
	return NewCache()
}
