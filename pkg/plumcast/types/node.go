package types

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
)

// Address is an opaque host+port tuple. Nothing above this layer assumes
// IPv4/IPv6 or a connected transport.
type Address string

// NodeId identifies a node inside a process and across the cluster.
// Two nodes sharing the same Address but different LocalID coexist and
// route correctly: LocalID disambiguates them.
type NodeId struct {
	Address Address
	LocalID uint64
}

// String renders the id for logging; it is not a wire format.
func (id NodeId) String() string {
	return fmt.Sprintf("%s/%d", id.Address, id.LocalID)
}

// IsZero reports whether id is the zero value, used to detect
// uninitialized ids in tests and defensive checks.
func (id NodeId) IsZero() bool {
	return id.Address == "" && id.LocalID == 0
}

// ParseNodeId parses the "address/localID" form String renders, the
// configuration-file encoding for a known contact node (spec.md §6.2:
// joining requires the contact's full NodeId, not just its address).
func ParseNodeId(s string) (NodeId, error) {
	idx := strings.LastIndex(s, "/")
	if idx < 0 {
		return NodeId{}, fmt.Errorf("types: %q is not an address/local-id pair", s)
	}
	localID, err := strconv.ParseUint(s[idx+1:], 10, 64)
	if err != nil {
		return NodeId{}, fmt.Errorf("types: %q has an invalid local-id: %w", s, err)
	}
	return NodeId{Address: Address(s[:idx]), LocalID: localID}, nil
}

// LocalIDGenerator draws process-local unique ids for a given address.
// The zero value is ready to use; NewLocalIDGenerator returns a pointer
// to one.
type LocalIDGenerator struct {
	counter uint64
}

// NewLocalIDGenerator returns a generator whose first allocation is 1,
// reserving 0 to mean "unassigned".
func NewLocalIDGenerator() *LocalIDGenerator {
	return &LocalIDGenerator{}
}

// Next returns the next monotonically increasing local id.
func (g *LocalIDGenerator) Next() uint64 {
	return atomic.AddUint64(&g.counter, 1)
}
