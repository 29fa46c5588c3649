package access

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

var (
	admin   = common.HexToAddress("0x0000000000000000000000000000000000000001")
	manager = common.HexToAddress("0x0000000000000000000000000000000000000002")
	nobody  = common.HexToAddress("0x0000000000000000000000000000000000000003")
)

func TestStatic(t *testing.T) {
	ctx := context.Background()
	s := NewStatic(map[Role][]common.Address{
		RoleVestingAdmin: {admin},
	})

	tests := []struct {
		role Role
		addr common.Address
		want bool
	}{
		{RoleVestingAdmin, admin, true},
		{RoleVestingManager, admin, false},
		{RoleVestingAdmin, nobody, false},
	}
	for _, tt := range tests {
		got, err := s.HasRole(ctx, tt.role, tt.addr)
		if err != nil {
			t.Fatal(err)
		}
		if got != tt.want {
			t.Errorf("HasRole(%s, %s) = %v, want %v", tt.role, tt.addr.Hex(), got, tt.want)
		}
	}

	if err := s.Grant(ctx, RoleVestingManager, manager); err != nil {
		t.Fatal(err)
	}
	if ok, _ := s.HasRole(ctx, RoleVestingManager, manager); !ok {
		t.Error("grant not visible")
	}
	if got := s.Members(RoleVestingManager); len(got) != 1 || got[0] != manager {
		t.Errorf("Members = %v", got)
	}

	if err := s.Revoke(ctx, RoleVestingManager, manager); err != nil {
		t.Fatal(err)
	}
	if ok, _ := s.HasRole(ctx, RoleVestingManager, manager); ok {
		t.Error("revoke not visible")
	}
}

type failing struct{}

func (failing) HasRole(context.Context, Role, common.Address) (bool, error) {
	return false, errors.New("role backend down")
}

func TestHasAny(t *testing.T) {
	ctx := context.Background()
	s := NewStatic(map[Role][]common.Address{RoleVestingManager: {manager}})

	ok, err := HasAny(ctx, s, manager, RoleVestingAdmin, RoleVestingManager)
	if err != nil || !ok {
		t.Errorf("HasAny(manager) = %v, %v", ok, err)
	}
	ok, err = HasAny(ctx, s, nobody, RoleVestingAdmin, RoleVestingManager)
	if err != nil || ok {
		t.Errorf("HasAny(nobody) = %v, %v", ok, err)
	}
	if _, err := HasAny(ctx, failing{}, admin, RoleVestingAdmin); err == nil {
		t.Error("expected checker error to propagate")
	}
}
