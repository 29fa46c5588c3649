package mongo

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/xraph/grove"

	"github.com/xraph/launchpad/event"
	"github.com/xraph/launchpad/id"
	"github.com/xraph/launchpad/presale"
	"github.com/xraph/launchpad/types"
	"github.com/xraph/launchpad/vesting"
)

// Amounts are stored as decimal strings and addresses as lowercase hex, so
// string order on addresses matches byte order.

func hexAddr(a common.Address) string { return strings.ToLower(a.Hex()) }

func parseAddr(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("launchpad/mongo: invalid stored address %q", s)
	}
	return common.HexToAddress(s), nil
}

func parseAmounts(dst []**uint256.Int, src ...string) error {
	for i, s := range src {
		v, err := types.ParseAmount(s)
		if err != nil {
			return err
		}
		*dst[i] = v
	}
	return nil
}

// ==================== Vesting models ====================

const singletonID = "singleton"

type vestingStateModel struct {
	grove.BaseModel `grove:"table:launchpad_vesting_state"`

	ID              string    `grove:"id,pk"            bson:"_id"`
	GlobalAllocated string    `grove:"global_allocated" bson:"global_allocated"`
	GlobalClaimed   string    `grove:"global_claimed"   bson:"global_claimed"`
	TGEUnlocked     bool      `grove:"tge_unlocked"     bson:"tge_unlocked"`
	StartTime       time.Time `grove:"start_time"       bson:"start_time"`
	Paused          bool      `grove:"paused"           bson:"paused"`
	UpdatedAt       time.Time `grove:"updated_at"       bson:"updated_at"`
}

func toVestingStateModel(st *vesting.State) *vestingStateModel {
	return &vestingStateModel{
		ID:              singletonID,
		GlobalAllocated: types.FormatAmount(st.GlobalAllocated),
		GlobalClaimed:   types.FormatAmount(st.GlobalClaimed),
		TGEUnlocked:     st.TGEUnlocked,
		StartTime:       st.StartTime,
		Paused:          st.Paused,
		UpdatedAt:       st.UpdatedAt,
	}
}

func fromVestingStateModel(m *vestingStateModel) (*vesting.State, error) {
	st := &vesting.State{
		TGEUnlocked: m.TGEUnlocked,
		StartTime:   m.StartTime.UTC(),
		Paused:      m.Paused,
		UpdatedAt:   m.UpdatedAt.UTC(),
	}
	if err := parseAmounts([]**uint256.Int{&st.GlobalAllocated, &st.GlobalClaimed},
		m.GlobalAllocated, m.GlobalClaimed); err != nil {
		return nil, err
	}
	return st, nil
}

type scheduleModel struct {
	grove.BaseModel `grove:"table:launchpad_vesting_schedules"`

	Beneficiary      string        `grove:"beneficiary,pk"    bson:"_id"`
	TotalAllocation  string        `grove:"total_allocation"  bson:"total_allocation"`
	VestingPrincipal string        `grove:"vesting_principal" bson:"vesting_principal"`
	Cliff            time.Duration `grove:"cliff"             bson:"cliff"`
	Duration         time.Duration `grove:"duration"          bson:"duration"`
	Released         string        `grove:"released"          bson:"released"`
	ClaimedTotal     string        `grove:"claimed_total"     bson:"claimed_total"`
	TGEClaimed       bool          `grove:"tge_claimed"       bson:"tge_claimed"`
	TGEBps           int           `grove:"tge_bps"           bson:"tge_bps"`
	Group            string        `grove:"group_name"        bson:"group_name"`
	CreatedAt        time.Time     `grove:"created_at"        bson:"created_at"`
	UpdatedAt        time.Time     `grove:"updated_at"        bson:"updated_at"`
}

func toScheduleModel(s *vesting.Schedule) *scheduleModel {
	return &scheduleModel{
		Beneficiary:      hexAddr(s.Beneficiary),
		TotalAllocation:  types.FormatAmount(s.TotalAllocation),
		VestingPrincipal: types.FormatAmount(s.VestingPrincipal),
		Cliff:            s.Cliff,
		Duration:         s.Duration,
		Released:         types.FormatAmount(s.Released),
		ClaimedTotal:     types.FormatAmount(s.ClaimedTotal),
		TGEClaimed:       s.TGEClaimed,
		TGEBps:           int(s.TGEBps),
		Group:            s.Group,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
	}
}

func fromScheduleModel(m *scheduleModel) (*vesting.Schedule, error) {
	beneficiary, err := parseAddr(m.Beneficiary)
	if err != nil {
		return nil, err
	}
	s := &vesting.Schedule{
		Entity:      types.Entity{CreatedAt: m.CreatedAt.UTC(), UpdatedAt: m.UpdatedAt.UTC()},
		Beneficiary: beneficiary,
		Cliff:       m.Cliff,
		Duration:    m.Duration,
		TGEClaimed:  m.TGEClaimed,
		TGEBps:      uint16(m.TGEBps),
		Group:       m.Group,
	}
	err = parseAmounts(
		[]**uint256.Int{&s.TotalAllocation, &s.VestingPrincipal, &s.Released, &s.ClaimedTotal},
		m.TotalAllocation, m.VestingPrincipal, m.Released, m.ClaimedTotal)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ==================== Presale models ====================

type presaleStateModel struct {
	grove.BaseModel `grove:"table:launchpad_presale_state"`

	ID        string    `grove:"id,pk"      bson:"_id"`
	LastID    int64     `grove:"last_id"    bson:"last_id"`
	Paused    bool      `grove:"paused"     bson:"paused"`
	UpdatedAt time.Time `grove:"updated_at" bson:"updated_at"`
}

type presaleModel struct {
	grove.BaseModel `grove:"table:launchpad_presales"`

	ID               int64         `grove:"id,pk"             bson:"_id"`
	SaleToken        string        `grove:"sale_token"        bson:"sale_token"`
	PaymentToken     string        `grove:"payment_token"     bson:"payment_token"`
	TokensToSell     string        `grove:"tokens_to_sell"    bson:"tokens_to_sell"`
	TokensRemaining  string        `grove:"tokens_remaining"  bson:"tokens_remaining"`
	StartTime        time.Time     `grove:"start_time"        bson:"start_time"`
	EndTime          time.Time     `grove:"end_time"          bson:"end_time"`
	Price            string        `grove:"price"             bson:"price"`
	SaleDecimals     int           `grove:"sale_decimals"     bson:"sale_decimals"`
	Destination      string        `grove:"destination"       bson:"destination"`
	WhitelistEnabled bool          `grove:"whitelist_enabled" bson:"whitelist_enabled"`
	DeferToVesting   bool          `grove:"defer_to_vesting"  bson:"defer_to_vesting"`
	VestingCliff     time.Duration `grove:"vesting_cliff"     bson:"vesting_cliff"`
	VestingDuration  time.Duration `grove:"vesting_duration"  bson:"vesting_duration"`
	VestingTGEBps    int           `grove:"vesting_tge_bps"   bson:"vesting_tge_bps"`
	VestingGroup     string        `grove:"vesting_group"     bson:"vesting_group"`
	Paused           bool          `grove:"paused"            bson:"paused"`
	CreatedAt        time.Time     `grove:"created_at"        bson:"created_at"`
	UpdatedAt        time.Time     `grove:"updated_at"        bson:"updated_at"`
}

func toPresaleModel(p *presale.Presale) *presaleModel {
	return &presaleModel{
		ID:               int64(p.ID),
		SaleToken:        hexAddr(p.SaleToken),
		PaymentToken:     hexAddr(p.PaymentToken),
		TokensToSell:     types.FormatAmount(p.TokensToSell),
		TokensRemaining:  types.FormatAmount(p.TokensRemaining),
		StartTime:        p.StartTime,
		EndTime:          p.EndTime,
		Price:            types.FormatAmount(p.Price),
		SaleDecimals:     int(p.SaleDecimals),
		Destination:      hexAddr(p.Destination),
		WhitelistEnabled: p.WhitelistEnabled,
		DeferToVesting:   p.DeferToVesting,
		VestingCliff:     p.Vesting.Cliff,
		VestingDuration:  p.Vesting.Duration,
		VestingTGEBps:    int(p.Vesting.TGEBps),
		VestingGroup:     p.Vesting.Group,
		Paused:           p.Paused,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

func fromPresaleModel(m *presaleModel) (*presale.Presale, error) {
	p := &presale.Presale{
		Entity:           types.Entity{CreatedAt: m.CreatedAt.UTC(), UpdatedAt: m.UpdatedAt.UTC()},
		ID:               uint64(m.ID),
		StartTime:        m.StartTime.UTC(),
		EndTime:          m.EndTime.UTC(),
		SaleDecimals:     uint8(m.SaleDecimals),
		WhitelistEnabled: m.WhitelistEnabled,
		DeferToVesting:   m.DeferToVesting,
		Vesting: vesting.Template{
			Cliff:    m.VestingCliff,
			Duration: m.VestingDuration,
			TGEBps:   uint16(m.VestingTGEBps),
			Group:    m.VestingGroup,
		},
		Paused: m.Paused,
	}
	var err error
	if p.SaleToken, err = parseAddr(m.SaleToken); err != nil {
		return nil, err
	}
	if p.PaymentToken, err = parseAddr(m.PaymentToken); err != nil {
		return nil, err
	}
	if p.Destination, err = parseAddr(m.Destination); err != nil {
		return nil, err
	}
	err = parseAmounts([]**uint256.Int{&p.TokensToSell, &p.TokensRemaining, &p.Price},
		m.TokensToSell, m.TokensRemaining, m.Price)
	if err != nil {
		return nil, err
	}
	return p, nil
}

type whitelistModel struct {
	grove.BaseModel `grove:"table:launchpad_whitelist"`

	ID        string `grove:"id,pk"      bson:"_id"`
	PresaleID int64  `grove:"presale_id" bson:"presale_id"`
	Address   string `grove:"address"    bson:"address"`
}

func whitelistKey(presaleID uint64, a common.Address) string {
	return fmt.Sprintf("%d:%s", presaleID, hexAddr(a))
}

type purchaseModel struct {
	grove.BaseModel `grove:"table:launchpad_purchases"`

	ID             string    `grove:"id,pk"            bson:"_id"`
	PresaleID      int64     `grove:"presale_id"       bson:"presale_id"`
	Buyer          string    `grove:"buyer"            bson:"buyer"`
	Amount         string    `grove:"amount"           bson:"amount"`
	LastPurchaseAt time.Time `grove:"last_purchase_at" bson:"last_purchase_at"`
	Seq            int       `grove:"seq"              bson:"seq"`
	CreatedAt      time.Time `grove:"created_at"       bson:"created_at"`
	UpdatedAt      time.Time `grove:"updated_at"       bson:"updated_at"`
}

func purchaseKey(presaleID uint64, buyer common.Address) string {
	return fmt.Sprintf("%d:%s", presaleID, hexAddr(buyer))
}

func toPurchaseModel(p *presale.Purchase) *purchaseModel {
	return &purchaseModel{
		ID:             purchaseKey(p.PresaleID, p.Buyer),
		PresaleID:      int64(p.PresaleID),
		Buyer:          hexAddr(p.Buyer),
		Amount:         types.FormatAmount(p.Amount),
		LastPurchaseAt: p.LastPurchaseAt,
		Seq:            p.Seq,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

func fromPurchaseModel(m *purchaseModel) (*presale.Purchase, error) {
	buyer, err := parseAddr(m.Buyer)
	if err != nil {
		return nil, err
	}
	amount, err := types.ParseAmount(m.Amount)
	if err != nil {
		return nil, err
	}
	return &presale.Purchase{
		Entity:         types.Entity{CreatedAt: m.CreatedAt.UTC(), UpdatedAt: m.UpdatedAt.UTC()},
		PresaleID:      uint64(m.PresaleID),
		Buyer:          buyer,
		Amount:         amount,
		LastPurchaseAt: m.LastPurchaseAt.UTC(),
		Seq:            m.Seq,
	}, nil
}

// ==================== Token models ====================

type balanceModel struct {
	grove.BaseModel `grove:"table:launchpad_token_balances"`

	ID     string `grove:"id,pk"  bson:"_id"`
	Token  string `grove:"token"  bson:"token"`
	Holder string `grove:"holder" bson:"holder"`
	Amount string `grove:"amount" bson:"amount"`
}

func balanceKey(token, holder common.Address) string {
	return hexAddr(token) + ":" + hexAddr(holder)
}

type allowanceModel struct {
	grove.BaseModel `grove:"table:launchpad_token_allowances"`

	ID      string `grove:"id,pk"   bson:"_id"`
	Token   string `grove:"token"   bson:"token"`
	Owner   string `grove:"owner"   bson:"owner"`
	Spender string `grove:"spender" bson:"spender"`
	Amount  string `grove:"amount"  bson:"amount"`
}

func allowanceKey(token, owner, spender common.Address) string {
	return hexAddr(token) + ":" + hexAddr(owner) + ":" + hexAddr(spender)
}

// ==================== Event models ====================

type eventModel struct {
	grove.BaseModel `grove:"table:launchpad_events"`

	ID         string            `grove:"id,pk"       bson:"_id"`
	Seq        int64             `grove:"seq"         bson:"seq"`
	Kind       string            `grove:"kind"        bson:"kind"`
	Ledger     string            `grove:"ledger"      bson:"ledger"`
	Actor      string            `grove:"actor"       bson:"actor"`
	Subject    string            `grove:"subject"     bson:"subject"`
	PresaleID  int64             `grove:"presale_id"  bson:"presale_id"`
	Fields     map[string]string `grove:"fields"      bson:"fields,omitempty"`
	OccurredAt time.Time         `grove:"occurred_at" bson:"occurred_at"`
}

func toEventModel(r *event.Record, seq int64) *eventModel {
	return &eventModel{
		ID:         r.ID.String(),
		Seq:        seq,
		Kind:       string(r.Kind),
		Ledger:     string(r.Ledger),
		Actor:      hexAddr(r.Actor),
		Subject:    hexAddr(r.Subject),
		PresaleID:  int64(r.PresaleID),
		Fields:     r.Fields,
		OccurredAt: r.OccurredAt,
	}
}

func fromEventModel(m *eventModel) (*event.Record, error) {
	eid, err := id.ParseEventID(m.ID)
	if err != nil {
		return nil, err
	}
	actor, err := parseAddr(m.Actor)
	if err != nil {
		return nil, err
	}
	subject, err := parseAddr(m.Subject)
	if err != nil {
		return nil, err
	}
	return &event.Record{
		ID:         eid,
		Kind:       event.Kind(m.Kind),
		Ledger:     event.Ledger(m.Ledger),
		Actor:      actor,
		Subject:    subject,
		PresaleID:  uint64(m.PresaleID),
		Fields:     m.Fields,
		OccurredAt: m.OccurredAt.UTC(),
	}, nil
}
