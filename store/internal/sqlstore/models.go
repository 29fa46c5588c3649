// Package sqlstore holds the grove models shared by the sqlite and postgres
// stores. Amounts are decimal strings, addresses lowercase hex and times Unix
// nanoseconds, so both dialects store the same values.
package sqlstore

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	jsoniter "github.com/json-iterator/go"
	"github.com/xraph/grove"

	"github.com/xraph/launchpad/event"
	"github.com/xraph/launchpad/id"
	"github.com/xraph/launchpad/presale"
	"github.com/xraph/launchpad/types"
	"github.com/xraph/launchpad/vesting"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// SingletonID keys the single row of the state tables.
const SingletonID = 1

// ==================== Vesting models ====================

type VestingStateModel struct {
	grove.BaseModel `grove:"table:launchpad_vesting_state"`

	ID              int64  `grove:"id,pk"`
	GlobalAllocated string `grove:"global_allocated"`
	GlobalClaimed   string `grove:"global_claimed"`
	TGEUnlocked     bool   `grove:"tge_unlocked"`
	StartTime       int64  `grove:"start_time"`
	Paused          bool   `grove:"paused"`
	UpdatedAt       int64  `grove:"updated_at"`
}

func ToVestingStateModel(st *vesting.State) *VestingStateModel {
	return &VestingStateModel{
		ID:              SingletonID,
		GlobalAllocated: Amount(st.GlobalAllocated),
		GlobalClaimed:   Amount(st.GlobalClaimed),
		TGEUnlocked:     st.TGEUnlocked,
		StartTime:       Nanos(st.StartTime),
		Paused:          st.Paused,
		UpdatedAt:       Nanos(st.UpdatedAt),
	}
}

func (m *VestingStateModel) State() (*vesting.State, error) {
	var d decoder
	st := &vesting.State{
		GlobalAllocated: d.amount(m.GlobalAllocated),
		GlobalClaimed:   d.amount(m.GlobalClaimed),
		TGEUnlocked:     m.TGEUnlocked,
		StartTime:       FromNanos(m.StartTime),
		Paused:          m.Paused,
		UpdatedAt:       FromNanos(m.UpdatedAt),
	}
	return st, d.err
}

type ScheduleModel struct {
	grove.BaseModel `grove:"table:launchpad_vesting_schedules"`

	Beneficiary      string `grove:"beneficiary,pk"`
	TotalAllocation  string `grove:"total_allocation"`
	VestingPrincipal string `grove:"vesting_principal"`
	Cliff            int64  `grove:"cliff"`
	Duration         int64  `grove:"duration"`
	Released         string `grove:"released"`
	ClaimedTotal     string `grove:"claimed_total"`
	TGEClaimed       bool   `grove:"tge_claimed"`
	TGEBps           int64  `grove:"tge_bps"`
	GroupName        string `grove:"group_name"`
	CreatedAt        int64  `grove:"created_at"`
	UpdatedAt        int64  `grove:"updated_at"`
}

func ToScheduleModel(s *vesting.Schedule) *ScheduleModel {
	return &ScheduleModel{
		Beneficiary:      Addr(s.Beneficiary),
		TotalAllocation:  Amount(s.TotalAllocation),
		VestingPrincipal: Amount(s.VestingPrincipal),
		Cliff:            int64(s.Cliff),
		Duration:         int64(s.Duration),
		Released:         Amount(s.Released),
		ClaimedTotal:     Amount(s.ClaimedTotal),
		TGEClaimed:       s.TGEClaimed,
		TGEBps:           int64(s.TGEBps),
		GroupName:        s.Group,
		CreatedAt:        Nanos(s.CreatedAt),
		UpdatedAt:        Nanos(s.UpdatedAt),
	}
}

func (m *ScheduleModel) Schedule() (*vesting.Schedule, error) {
	var d decoder
	s := &vesting.Schedule{
		Entity:           types.Entity{CreatedAt: FromNanos(m.CreatedAt), UpdatedAt: FromNanos(m.UpdatedAt)},
		Beneficiary:      d.address(m.Beneficiary),
		TotalAllocation:  d.amount(m.TotalAllocation),
		VestingPrincipal: d.amount(m.VestingPrincipal),
		Cliff:            time.Duration(m.Cliff),
		Duration:         time.Duration(m.Duration),
		Released:         d.amount(m.Released),
		ClaimedTotal:     d.amount(m.ClaimedTotal),
		TGEClaimed:       m.TGEClaimed,
		TGEBps:           uint16(m.TGEBps),
		Group:            m.GroupName,
	}
	if d.err != nil {
		return nil, d.err
	}
	return s, nil
}

// Schedules converts scanned rows, stopping at the first undecodable one.
func Schedules(ms []ScheduleModel) ([]*vesting.Schedule, error) {
	out := make([]*vesting.Schedule, 0, len(ms))
	for i := range ms {
		s, err := ms[i].Schedule()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// ==================== Presale models ====================

type PresaleStateModel struct {
	grove.BaseModel `grove:"table:launchpad_presale_state"`

	ID        int64 `grove:"id,pk"`
	LastID    int64 `grove:"last_id"`
	Paused    bool  `grove:"paused"`
	UpdatedAt int64 `grove:"updated_at"`
}

func ToPresaleStateModel(st *presale.State) *PresaleStateModel {
	return &PresaleStateModel{
		ID:        SingletonID,
		LastID:    int64(st.LastID),
		Paused:    st.Paused,
		UpdatedAt: Nanos(st.UpdatedAt),
	}
}

func (m *PresaleStateModel) State() *presale.State {
	return &presale.State{LastID: uint64(m.LastID), Paused: m.Paused, UpdatedAt: FromNanos(m.UpdatedAt)}
}

type PresaleModel struct {
	grove.BaseModel `grove:"table:launchpad_presales"`

	ID               int64  `grove:"id,pk"`
	SaleToken        string `grove:"sale_token"`
	PaymentToken     string `grove:"payment_token"`
	TokensToSell     string `grove:"tokens_to_sell"`
	TokensRemaining  string `grove:"tokens_remaining"`
	StartTime        int64  `grove:"start_time"`
	EndTime          int64  `grove:"end_time"`
	Price            string `grove:"price"`
	SaleDecimals     int64  `grove:"sale_decimals"`
	Destination      string `grove:"destination"`
	WhitelistEnabled bool   `grove:"whitelist_enabled"`
	DeferToVesting   bool   `grove:"defer_to_vesting"`
	VestingCliff     int64  `grove:"vesting_cliff"`
	VestingDuration  int64  `grove:"vesting_duration"`
	VestingTGEBps    int64  `grove:"vesting_tge_bps"`
	VestingGroup     string `grove:"vesting_group"`
	Paused           bool   `grove:"paused"`
	CreatedAt        int64  `grove:"created_at"`
	UpdatedAt        int64  `grove:"updated_at"`
}

func ToPresaleModel(p *presale.Presale) *PresaleModel {
	return &PresaleModel{
		ID:               int64(p.ID),
		SaleToken:        Addr(p.SaleToken),
		PaymentToken:     Addr(p.PaymentToken),
		TokensToSell:     Amount(p.TokensToSell),
		TokensRemaining:  Amount(p.TokensRemaining),
		StartTime:        Nanos(p.StartTime),
		EndTime:          Nanos(p.EndTime),
		Price:            Amount(p.Price),
		SaleDecimals:     int64(p.SaleDecimals),
		Destination:      Addr(p.Destination),
		WhitelistEnabled: p.WhitelistEnabled,
		DeferToVesting:   p.DeferToVesting,
		VestingCliff:     int64(p.Vesting.Cliff),
		VestingDuration:  int64(p.Vesting.Duration),
		VestingTGEBps:    int64(p.Vesting.TGEBps),
		VestingGroup:     p.Vesting.Group,
		Paused:           p.Paused,
		CreatedAt:        Nanos(p.CreatedAt),
		UpdatedAt:        Nanos(p.UpdatedAt),
	}
}

func (m *PresaleModel) Presale() (*presale.Presale, error) {
	var d decoder
	p := &presale.Presale{
		Entity:           types.Entity{CreatedAt: FromNanos(m.CreatedAt), UpdatedAt: FromNanos(m.UpdatedAt)},
		ID:               uint64(m.ID),
		SaleToken:        d.address(m.SaleToken),
		PaymentToken:     d.address(m.PaymentToken),
		TokensToSell:     d.amount(m.TokensToSell),
		TokensRemaining:  d.amount(m.TokensRemaining),
		StartTime:        FromNanos(m.StartTime),
		EndTime:          FromNanos(m.EndTime),
		Price:            d.amount(m.Price),
		SaleDecimals:     uint8(m.SaleDecimals),
		Destination:      d.address(m.Destination),
		WhitelistEnabled: m.WhitelistEnabled,
		DeferToVesting:   m.DeferToVesting,
		Vesting: vesting.Template{
			Cliff:    time.Duration(m.VestingCliff),
			Duration: time.Duration(m.VestingDuration),
			TGEBps:   uint16(m.VestingTGEBps),
			Group:    m.VestingGroup,
		},
		Paused: m.Paused,
	}
	if d.err != nil {
		return nil, d.err
	}
	return p, nil
}

func Presales(ms []PresaleModel) ([]*presale.Presale, error) {
	out := make([]*presale.Presale, 0, len(ms))
	for i := range ms {
		p, err := ms[i].Presale()
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

type WhitelistModel struct {
	grove.BaseModel `grove:"table:launchpad_whitelist"`

	PresaleID int64  `grove:"presale_id,pk"`
	Address   string `grove:"address,pk"`
}

type PurchaseModel struct {
	grove.BaseModel `grove:"table:launchpad_purchases"`

	PresaleID      int64  `grove:"presale_id,pk"`
	Buyer          string `grove:"buyer,pk"`
	Amount         string `grove:"amount"`
	LastPurchaseAt int64  `grove:"last_purchase_at"`
	Seq            int64  `grove:"seq"`
	CreatedAt      int64  `grove:"created_at"`
	UpdatedAt      int64  `grove:"updated_at"`
}

func ToPurchaseModel(p *presale.Purchase) *PurchaseModel {
	return &PurchaseModel{
		PresaleID:      int64(p.PresaleID),
		Buyer:          Addr(p.Buyer),
		Amount:         Amount(p.Amount),
		LastPurchaseAt: Nanos(p.LastPurchaseAt),
		Seq:            int64(p.Seq),
		CreatedAt:      Nanos(p.CreatedAt),
		UpdatedAt:      Nanos(p.UpdatedAt),
	}
}

func (m *PurchaseModel) Purchase() (*presale.Purchase, error) {
	var d decoder
	p := &presale.Purchase{
		Entity:         types.Entity{CreatedAt: FromNanos(m.CreatedAt), UpdatedAt: FromNanos(m.UpdatedAt)},
		PresaleID:      uint64(m.PresaleID),
		Buyer:          d.address(m.Buyer),
		Amount:         d.amount(m.Amount),
		LastPurchaseAt: FromNanos(m.LastPurchaseAt),
		Seq:            int(m.Seq),
	}
	if d.err != nil {
		return nil, d.err
	}
	return p, nil
}

func Purchases(ms []PurchaseModel) ([]*presale.Purchase, error) {
	out := make([]*presale.Purchase, 0, len(ms))
	for i := range ms {
		p, err := ms[i].Purchase()
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// Buyers decodes the buyer column of scanned purchase rows.
func Buyers(ms []PurchaseModel) ([]common.Address, error) {
	var d decoder
	out := make([]common.Address, 0, len(ms))
	for i := range ms {
		out = append(out, d.address(ms[i].Buyer))
	}
	if d.err != nil {
		return nil, d.err
	}
	return out, nil
}

// ==================== Token models ====================

type BalanceModel struct {
	grove.BaseModel `grove:"table:launchpad_token_balances"`

	Token  string `grove:"token,pk"`
	Holder string `grove:"holder,pk"`
	Amount string `grove:"amount"`
}

type AllowanceModel struct {
	grove.BaseModel `grove:"table:launchpad_token_allowances"`

	Token   string `grove:"token,pk"`
	Owner   string `grove:"owner,pk"`
	Spender string `grove:"spender,pk"`
	Amount  string `grove:"amount"`
}

// ==================== Event models ====================

// EventModel rows are ordered by Seq, which the database assigns.
type EventModel struct {
	grove.BaseModel `grove:"table:launchpad_events"`

	Seq        int64  `grove:"seq,pk,autoincrement"`
	ID         string `grove:"id"`
	Kind       string `grove:"kind"`
	Ledger     string `grove:"ledger"`
	Actor      string `grove:"actor"`
	Subject    string `grove:"subject"`
	PresaleID  int64  `grove:"presale_id"`
	Fields     string `grove:"fields"`
	OccurredAt int64  `grove:"occurred_at"`
}

func ToEventModel(r *event.Record) (*EventModel, error) {
	fields, err := json.Marshal(r.Fields)
	if err != nil {
		return nil, err
	}
	return &EventModel{
		ID:         r.ID.String(),
		Kind:       string(r.Kind),
		Ledger:     string(r.Ledger),
		Actor:      Addr(r.Actor),
		Subject:    Addr(r.Subject),
		PresaleID:  int64(r.PresaleID),
		Fields:     string(fields),
		OccurredAt: Nanos(r.OccurredAt),
	}, nil
}

func (m *EventModel) Record() (*event.Record, error) {
	eid, err := id.ParseEventID(m.ID)
	if err != nil {
		return nil, err
	}
	var d decoder
	r := &event.Record{
		ID:         eid,
		Kind:       event.Kind(m.Kind),
		Ledger:     event.Ledger(m.Ledger),
		Actor:      d.address(m.Actor),
		Subject:    d.address(m.Subject),
		PresaleID:  uint64(m.PresaleID),
		OccurredAt: FromNanos(m.OccurredAt),
	}
	if d.err != nil {
		return nil, d.err
	}
	if err := json.Unmarshal([]byte(m.Fields), &r.Fields); err != nil {
		return nil, err
	}
	return r, nil
}

func Records(ms []EventModel) ([]*event.Record, error) {
	out := make([]*event.Record, 0, len(ms))
	for i := range ms {
		r, err := ms[i].Record()
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}
