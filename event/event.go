// Package event defines the records every ledger mutation emits. Records are
// appended to a durable journal inside the mutation's transaction and handed
// to plugins once it commits.
package event

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/launchpad/id"
)

// Kind names the operation that produced a record.
type Kind string

const (
	KindScheduleCreated      Kind = "vesting.schedule_created"
	KindVestingAmountUpdated Kind = "vesting.amount_updated"
	KindVestingAmountAdded   Kind = "vesting.amount_added"
	KindVestingDatesUpdated  Kind = "vesting.dates_updated"
	KindVestingGroupUpdated  Kind = "vesting.group_updated"
	KindBeneficiaryDeleted   Kind = "vesting.beneficiary_deleted"
	KindVestingStarted       Kind = "vesting.started"
	KindTGEClaimed           Kind = "vesting.tge_claimed"
	KindReleased             Kind = "vesting.released"
	KindVestingPaused        Kind = "vesting.paused"
	KindVestingUnpaused      Kind = "vesting.unpaused"
	KindEmergencyWithdrawn   Kind = "vesting.emergency_withdrawn"

	KindPresaleCreated         Kind = "presale.created"
	KindPresaleCancelled       Kind = "presale.cancelled"
	KindSaleTimesChanged       Kind = "presale.times_changed"
	KindSaleTokenChanged       Kind = "presale.sale_token_changed"
	KindPaymentTokenChanged    Kind = "presale.payment_token_changed"
	KindPriceChanged           Kind = "presale.price_changed"
	KindWhitelistStatusChanged Kind = "presale.whitelist_status_changed"
	KindWhitelistUpdated       Kind = "presale.whitelist_updated"
	KindPresalePaused          Kind = "presale.paused"
	KindPresaleUnpaused        Kind = "presale.unpaused"
	KindSalesPaused            Kind = "presale.sales_paused"
	KindSalesUnpaused          Kind = "presale.sales_unpaused"
	KindPurchased              Kind = "presale.purchased"
)

// Ledger names the ledger a record belongs to.
type Ledger string

const (
	LedgerVesting Ledger = "vesting"
	LedgerPresale Ledger = "presale"
)

// Record is one journal entry. Fields carries before/after values rendered
// as strings (amounts in decimal, times in RFC 3339).
type Record struct {
	ID         id.EventID        `json:"id"`
	Kind       Kind              `json:"kind"`
	Ledger     Ledger            `json:"ledger"`
	Actor      common.Address    `json:"actor"`
	Subject    common.Address    `json:"subject,omitempty"`
	PresaleID  uint64            `json:"presale_id,omitempty"`
	Fields     map[string]string `json:"fields,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// New starts a record with a fresh ID.
func New(kind Kind, ledger Ledger, actor common.Address, at time.Time) *Record {
	return &Record{
		ID:         id.NewEventID(),
		Kind:       kind,
		Ledger:     ledger,
		Actor:      actor,
		Fields:     make(map[string]string),
		OccurredAt: at,
	}
}

// About sets the subject address.
func (r *Record) About(subject common.Address) *Record {
	r.Subject = subject
	return r
}

// ForPresale sets the presale id.
func (r *Record) ForPresale(presaleID uint64) *Record {
	r.PresaleID = presaleID
	return r
}

// With sets a field.
func (r *Record) With(key, value string) *Record {
	if r.Fields == nil {
		r.Fields = make(map[string]string)
	}
	r.Fields[key] = value
	return r
}

type Store interface {
	AppendEvent(ctx context.Context, r *Record) error
	ListEvents(ctx context.Context, opts ListOpts) ([]*Record, error)
}

// ListOpts filters the journal. Zero values match everything. Results are in
// append order.
type ListOpts struct {
	Ledger    Ledger
	Kind      Kind
	Subject   common.Address
	PresaleID uint64
	Since     time.Time
	Limit     int
	Offset    int
}

// Match reports whether r passes the filters in opts.
func (o ListOpts) Match(r *Record) bool {
	if o.Ledger != "" && r.Ledger != o.Ledger {
		return false
	}
	if o.Kind != "" && r.Kind != o.Kind {
		return false
	}
	if o.Subject != (common.Address{}) && r.Subject != o.Subject {
		return false
	}
	if o.PresaleID != 0 && r.PresaleID != o.PresaleID {
		return false
	}
	if !o.Since.IsZero() && r.OccurredAt.Before(o.Since) {
		return false
	}
	return true
}
