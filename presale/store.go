package presale

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

type Store interface {
	GetPresaleState(ctx context.Context) (*State, error)
	SavePresaleState(ctx context.Context, st *State) error

	GetPresale(ctx context.Context, presaleID uint64) (*Presale, error)
	SavePresale(ctx context.Context, p *Presale) error
	// DeletePresale removes the presale with its whitelist and purchases.
	DeletePresale(ctx context.Context, presaleID uint64) error
	ListPresales(ctx context.Context, opts ListOpts) ([]*Presale, error)

	IsWhitelisted(ctx context.Context, presaleID uint64, addr common.Address) (bool, error)
	SetWhitelisted(ctx context.Context, presaleID uint64, addr common.Address, allowed bool) error

	GetPurchase(ctx context.Context, presaleID uint64, buyer common.Address) (*Purchase, error)
	SavePurchase(ctx context.Context, p *Purchase) error
	ListPurchasesByBuyer(ctx context.Context, buyer common.Address) ([]*Purchase, error)
	// ListParticipants returns buyers in first-purchase order.
	ListParticipants(ctx context.Context, presaleID uint64, offset, limit int) ([]common.Address, error)
	CountParticipants(ctx context.Context, presaleID uint64) (int, error)
}

// ListOpts pages through presales ordered by id.
type ListOpts struct {
	Limit  int
	Offset int
}
