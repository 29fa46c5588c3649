// Package access defines the role check the ledgers authorize callers with.
//
// Role storage is a collaborator: production deployments plug in their own
// Checker. Static is an in-memory implementation for tests, tooling and
// single-process deployments.
package access

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sasha-s/go-deadlock"
)

// Role names a capability.
type Role string

const (
	RoleVestingAdmin   Role = "vesting:admin"
	RoleVestingManager Role = "vesting:manager"
	RolePresaleAdmin   Role = "presale:admin"
)

// Checker reports whether addr holds role.
type Checker interface {
	HasRole(ctx context.Context, role Role, addr common.Address) (bool, error)
}

// Granter is implemented by checkers that accept role grants.
type Granter interface {
	Grant(ctx context.Context, role Role, addr common.Address) error
}

var (
	_ Checker = (*Static)(nil)
	_ Granter = (*Static)(nil)
)

// Static is an in-memory role table.
type Static struct {
	mu    deadlock.RWMutex
	roles map[Role]map[common.Address]struct{}
}

// NewStatic creates a Static checker with the given bootstrap grants.
func NewStatic(grants map[Role][]common.Address) *Static {
	s := &Static{roles: make(map[Role]map[common.Address]struct{})}
	for role, addrs := range grants {
		for _, a := range addrs {
			s.grant(role, a)
		}
	}
	return s
}

func (s *Static) HasRole(_ context.Context, role Role, addr common.Address) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.roles[role][addr]
	return ok, nil
}

func (s *Static) Grant(_ context.Context, role Role, addr common.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grant(role, addr)
	return nil
}

// Revoke removes role from addr.
func (s *Static) Revoke(_ context.Context, role Role, addr common.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.roles[role], addr)
	return nil
}

// Members lists the holders of role, in no particular order.
func (s *Static) Members(role Role) []common.Address {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]common.Address, 0, len(s.roles[role]))
	for a := range s.roles[role] {
		out = append(out, a)
	}
	return out
}

func (s *Static) grant(role Role, addr common.Address) {
	m, ok := s.roles[role]
	if !ok {
		m = make(map[common.Address]struct{})
		s.roles[role] = m
	}
	m[addr] = struct{}{}
}

// HasAny reports whether addr holds at least one of roles.
func HasAny(ctx context.Context, c Checker, addr common.Address, roles ...Role) (bool, error) {
	for _, r := range roles {
		ok, err := c.HasRole(ctx, r, addr)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
