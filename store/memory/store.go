// Package memory is an in-process store. Transactions serialize on one lock
// and roll back by restoring a snapshot taken at begin.
package memory

import (
	"bytes"
	"context"
	"maps"
	"slices"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/sasha-s/go-deadlock"

	"github.com/xraph/launchpad"
	"github.com/xraph/launchpad/event"
	"github.com/xraph/launchpad/presale"
	"github.com/xraph/launchpad/store"
	"github.com/xraph/launchpad/types"
	"github.com/xraph/launchpad/vesting"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

type balanceKey struct {
	token, holder common.Address
}

type allowanceKey struct {
	token, owner, spender common.Address
}

// data is everything a transaction can roll back.
type data struct {
	vestingState *vesting.State
	schedules    map[common.Address]*vesting.Schedule

	presaleState *presale.State
	presales     map[uint64]*presale.Presale
	whitelist    map[uint64]map[common.Address]bool
	purchases    map[uint64]map[common.Address]*presale.Purchase

	balances   map[balanceKey]*uint256.Int
	allowances map[allowanceKey]*uint256.Int

	events []*event.Record
}

func (d *data) clone() *data {
	c := &data{
		vestingState: d.vestingState.Clone(),
		schedules:    maps.Clone(d.schedules),
		presaleState: nil,
		presales:     maps.Clone(d.presales),
		whitelist:    make(map[uint64]map[common.Address]bool, len(d.whitelist)),
		purchases:    make(map[uint64]map[common.Address]*presale.Purchase, len(d.purchases)),
		balances:     maps.Clone(d.balances),
		allowances:   maps.Clone(d.allowances),
		events:       slices.Clip(d.events),
	}
	if d.presaleState != nil {
		ps := *d.presaleState
		c.presaleState = &ps
	}
	for id, m := range d.whitelist {
		c.whitelist[id] = maps.Clone(m)
	}
	for id, m := range d.purchases {
		c.purchases[id] = maps.Clone(m)
	}
	return c
}

// Store keeps values as private copies: every write stores a clone and every
// read returns one, so snapshots can share pointers safely.
type Store struct {
	mu     deadlock.Mutex
	d      *data
	closed bool
}

func New() *Store {
	return &Store{
		d: &data{
			schedules:  make(map[common.Address]*vesting.Schedule),
			presales:   make(map[uint64]*presale.Presale),
			whitelist:  make(map[uint64]map[common.Address]bool),
			purchases:  make(map[uint64]map[common.Address]*presale.Purchase),
			balances:   make(map[balanceKey]*uint256.Int),
			allowances: make(map[allowanceKey]*uint256.Int),
		},
	}
}

type txKey struct{ s *Store }

type txState struct{ done bool }

func (s *Store) inTx(ctx context.Context) bool {
	tx, ok := ctx.Value(txKey{s}).(*txState)
	return ok && !tx.done
}

// lock takes the store lock unless ctx is inside one of its transactions.
func (s *Store) lock(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return launchpad.ErrStoreClosed
	}

	snapshot := s.d.clone()
	tx := &txState{}
	err := fn(context.WithValue(ctx, txKey{s}, tx))
	tx.done = true
	if err != nil {
		s.d = snapshot
	}
	return err
}

// ──────────────────────────────────────────────────
// Vesting
// ──────────────────────────────────────────────────

func (s *Store) GetVestingState(ctx context.Context) (*vesting.State, error) {
	defer s.lock(ctx)()
	if s.d.vestingState == nil {
		return vesting.NewState(), nil
	}
	return s.d.vestingState.Clone(), nil
}

func (s *Store) SaveVestingState(ctx context.Context, st *vesting.State) error {
	defer s.lock(ctx)()
	s.d.vestingState = st.Clone()
	return nil
}

func (s *Store) GetSchedule(ctx context.Context, beneficiary common.Address) (*vesting.Schedule, error) {
	defer s.lock(ctx)()
	if v, ok := s.d.schedules[beneficiary]; ok {
		return v.Clone(), nil
	}
	return nil, launchpad.ErrScheduleNotFound
}

func (s *Store) SaveSchedule(ctx context.Context, sch *vesting.Schedule) error {
	defer s.lock(ctx)()
	s.d.schedules[sch.Beneficiary] = sch.Clone()
	return nil
}

func (s *Store) DeleteSchedule(ctx context.Context, beneficiary common.Address) error {
	defer s.lock(ctx)()
	if _, ok := s.d.schedules[beneficiary]; !ok {
		return launchpad.ErrScheduleNotFound
	}
	delete(s.d.schedules, beneficiary)
	return nil
}

func (s *Store) ListSchedules(ctx context.Context, opts vesting.ListOpts) ([]*vesting.Schedule, error) {
	defer s.lock(ctx)()

	result := make([]*vesting.Schedule, 0, len(s.d.schedules))
	for _, v := range s.d.schedules {
		if opts.Group == "" || v.Group == opts.Group {
			result = append(result, v.Clone())
		}
	}
	slices.SortFunc(result, func(a, b *vesting.Schedule) int {
		return bytes.Compare(a.Beneficiary.Bytes(), b.Beneficiary.Bytes())
	})
	return page(result, opts.Offset, opts.Limit), nil
}

// ──────────────────────────────────────────────────
// Presale
// ──────────────────────────────────────────────────

func (s *Store) GetPresaleState(ctx context.Context) (*presale.State, error) {
	defer s.lock(ctx)()
	if s.d.presaleState == nil {
		return &presale.State{}, nil
	}
	st := *s.d.presaleState
	return &st, nil
}

func (s *Store) SavePresaleState(ctx context.Context, st *presale.State) error {
	defer s.lock(ctx)()
	c := *st
	s.d.presaleState = &c
	return nil
}

func (s *Store) GetPresale(ctx context.Context, presaleID uint64) (*presale.Presale, error) {
	defer s.lock(ctx)()
	if p, ok := s.d.presales[presaleID]; ok {
		return p.Clone(), nil
	}
	return nil, launchpad.ErrPresaleNotFound
}

func (s *Store) SavePresale(ctx context.Context, p *presale.Presale) error {
	defer s.lock(ctx)()
	s.d.presales[p.ID] = p.Clone()
	return nil
}

func (s *Store) DeletePresale(ctx context.Context, presaleID uint64) error {
	defer s.lock(ctx)()
	if _, ok := s.d.presales[presaleID]; !ok {
		return launchpad.ErrPresaleNotFound
	}
	delete(s.d.presales, presaleID)
	delete(s.d.whitelist, presaleID)
	delete(s.d.purchases, presaleID)
	return nil
}

func (s *Store) ListPresales(ctx context.Context, opts presale.ListOpts) ([]*presale.Presale, error) {
	defer s.lock(ctx)()

	result := make([]*presale.Presale, 0, len(s.d.presales))
	for _, p := range s.d.presales {
		result = append(result, p.Clone())
	}
	slices.SortFunc(result, func(a, b *presale.Presale) int {
		return cmpUint(a.ID, b.ID)
	})
	return page(result, opts.Offset, opts.Limit), nil
}

func (s *Store) IsWhitelisted(ctx context.Context, presaleID uint64, addr common.Address) (bool, error) {
	defer s.lock(ctx)()
	return s.d.whitelist[presaleID][addr], nil
}

func (s *Store) SetWhitelisted(ctx context.Context, presaleID uint64, addr common.Address, allowed bool) error {
	defer s.lock(ctx)()
	m, ok := s.d.whitelist[presaleID]
	if !ok {
		m = make(map[common.Address]bool)
		s.d.whitelist[presaleID] = m
	}
	if allowed {
		m[addr] = true
	} else {
		delete(m, addr)
	}
	return nil
}

func (s *Store) GetPurchase(ctx context.Context, presaleID uint64, buyer common.Address) (*presale.Purchase, error) {
	defer s.lock(ctx)()
	if p, ok := s.d.purchases[presaleID][buyer]; ok {
		return p.Clone(), nil
	}
	return nil, launchpad.ErrPurchaseNotFound
}

func (s *Store) SavePurchase(ctx context.Context, p *presale.Purchase) error {
	defer s.lock(ctx)()
	m, ok := s.d.purchases[p.PresaleID]
	if !ok {
		m = make(map[common.Address]*presale.Purchase)
		s.d.purchases[p.PresaleID] = m
	}
	m[p.Buyer] = p.Clone()
	return nil
}

func (s *Store) ListPurchasesByBuyer(ctx context.Context, buyer common.Address) ([]*presale.Purchase, error) {
	defer s.lock(ctx)()

	result := make([]*presale.Purchase, 0)
	for _, m := range s.d.purchases {
		if p, ok := m[buyer]; ok {
			result = append(result, p.Clone())
		}
	}
	slices.SortFunc(result, func(a, b *presale.Purchase) int {
		return cmpUint(a.PresaleID, b.PresaleID)
	})
	return result, nil
}

func (s *Store) ListParticipants(ctx context.Context, presaleID uint64, offset, limit int) ([]common.Address, error) {
	defer s.lock(ctx)()

	buyers := make([]*presale.Purchase, 0, len(s.d.purchases[presaleID]))
	for _, p := range s.d.purchases[presaleID] {
		buyers = append(buyers, p)
	}
	slices.SortFunc(buyers, func(a, b *presale.Purchase) int {
		return a.Seq - b.Seq
	})

	result := make([]common.Address, 0, len(buyers))
	for _, p := range page(buyers, offset, limit) {
		result = append(result, p.Buyer)
	}
	return result, nil
}

func (s *Store) CountParticipants(ctx context.Context, presaleID uint64) (int, error) {
	defer s.lock(ctx)()
	return len(s.d.purchases[presaleID]), nil
}

// ──────────────────────────────────────────────────
// Token balances
// ──────────────────────────────────────────────────

func (s *Store) GetBalance(ctx context.Context, token, holder common.Address) (*uint256.Int, error) {
	defer s.lock(ctx)()
	return types.OrZero(s.d.balances[balanceKey{token, holder}]), nil
}

func (s *Store) SetBalance(ctx context.Context, token, holder common.Address, amount *uint256.Int) error {
	defer s.lock(ctx)()
	s.d.balances[balanceKey{token, holder}] = types.OrZero(amount)
	return nil
}

func (s *Store) GetAllowance(ctx context.Context, token, owner, spender common.Address) (*uint256.Int, error) {
	defer s.lock(ctx)()
	return types.OrZero(s.d.allowances[allowanceKey{token, owner, spender}]), nil
}

func (s *Store) SetAllowance(ctx context.Context, token, owner, spender common.Address, amount *uint256.Int) error {
	defer s.lock(ctx)()
	s.d.allowances[allowanceKey{token, owner, spender}] = types.OrZero(amount)
	return nil
}

// ──────────────────────────────────────────────────
// Events
// ──────────────────────────────────────────────────

func (s *Store) AppendEvent(ctx context.Context, r *event.Record) error {
	defer s.lock(ctx)()
	c := *r
	c.Fields = maps.Clone(r.Fields)
	s.d.events = append(s.d.events, &c)
	return nil
}

func (s *Store) ListEvents(ctx context.Context, opts event.ListOpts) ([]*event.Record, error) {
	defer s.lock(ctx)()

	result := make([]*event.Record, 0)
	for _, r := range s.d.events {
		if opts.Match(r) {
			c := *r
			c.Fields = maps.Clone(r.Fields)
			result = append(result, &c)
		}
	}
	return page(result, opts.Offset, opts.Limit), nil
}

// ──────────────────────────────────────────────────
// Core
// ──────────────────────────────────────────────────

func (s *Store) Migrate(_ context.Context) error { return nil }

func (s *Store) Ping(ctx context.Context) error {
	defer s.lock(ctx)()
	if s.closed {
		return launchpad.ErrStoreClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// page applies offset and limit; a zero limit means no limit.
func page[T any](items []T, offset, limit int) []T {
	start := offset
	if start < 0 {
		start = 0
	}
	if start > len(items) {
		start = len(items)
	}
	end := start + limit
	if limit <= 0 || end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func cmpUint(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
