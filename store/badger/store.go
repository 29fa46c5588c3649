// Package badger is an embedded launchpad store on BadgerDB. Records are
// JSON values under binary-ordered keys; a transaction is one badger
// read-write txn carried in the context.
package badger

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	jsoniter "github.com/json-iterator/go"

	"github.com/xraph/launchpad"
	"github.com/xraph/launchpad/event"
	"github.com/xraph/launchpad/presale"
	"github.com/xraph/launchpad/store"
	"github.com/xraph/launchpad/types"
	"github.com/xraph/launchpad/vesting"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Store struct {
	db     *badgerdb.DB
	closed atomic.Bool
}

// Open opens (or creates) a database in dir.
func Open(dir string) (*Store, error) {
	return OpenWithOptions(badgerdb.DefaultOptions(dir).WithLoggingLevel(badgerdb.WARNING))
}

// OpenWithOptions opens a database with caller-tuned options, e.g.
// badgerdb.DefaultOptions("").WithInMemory(true) for tests.
func OpenWithOptions(opts badgerdb.Options) (*Store, error) {
	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("launchpad/badger: open: %w", err)
	}
	return New(db), nil
}

// New wraps an open database.
func New(db *badgerdb.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying badger database.
func (s *Store) DB() *badgerdb.DB { return s.db }

type txKey struct{ s *Store }

func (s *Store) txn(ctx context.Context) *badgerdb.Txn {
	txn, _ := ctx.Value(txKey{s}).(*badgerdb.Txn)
	return txn
}

func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.txn(ctx) != nil {
		return fn(ctx)
	}
	if s.closed.Load() {
		return launchpad.ErrStoreClosed
	}
	return s.db.Update(func(txn *badgerdb.Txn) error {
		return fn(context.WithValue(ctx, txKey{s}, txn))
	})
}

// view runs fn on the context's txn, or on a fresh read-only one.
func (s *Store) view(ctx context.Context, fn func(txn *badgerdb.Txn) error) error {
	if txn := s.txn(ctx); txn != nil {
		return fn(txn)
	}
	if s.closed.Load() {
		return launchpad.ErrStoreClosed
	}
	return s.db.View(fn)
}

// update runs fn on the context's txn, or in a fresh read-write one.
func (s *Store) update(ctx context.Context, fn func(txn *badgerdb.Txn) error) error {
	if txn := s.txn(ctx); txn != nil {
		return fn(txn)
	}
	if s.closed.Load() {
		return launchpad.ErrStoreClosed
	}
	return s.db.Update(fn)
}

// Migrate is a no-op: badger has no schema.
func (s *Store) Migrate(_ context.Context) error { return nil }

func (s *Store) Ping(_ context.Context) error {
	if s.closed.Load() || s.db.IsClosed() {
		return launchpad.ErrStoreClosed
	}
	return nil
}

func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}

// ──────────────────────────────────────────────────
// Encoding helpers
// ──────────────────────────────────────────────────

// getJSON decodes the value at k into v and reports whether k existed.
func getJSON(txn *badgerdb.Txn, k []byte, v any) (bool, error) {
	item, err := txn.Get(k)
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

func setJSON(txn *badgerdb.Txn, k []byte, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return txn.Set(k, b)
}

func getAmount(txn *badgerdb.Txn, k []byte) (*uint256.Int, error) {
	item, err := txn.Get(k)
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return types.Zero(), nil
	}
	if err != nil {
		return nil, err
	}
	b, err := item.ValueCopy(nil)
	if err != nil {
		return nil, err
	}
	return types.ParseAmount(string(b))
}

// keysWithPrefix collects keys first so the iterator is closed before the
// caller reads or writes in the same txn.
func keysWithPrefix(txn *badgerdb.Txn, prefix []byte) [][]byte {
	opts := badgerdb.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	var keys [][]byte
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	return keys
}

// page applies offset and limit; a limit <= 0 means no limit.
func page[T any](items []T, offset, limit int) []T {
	start := min(max(offset, 0), len(items))
	end := len(items)
	if limit > 0 && start+limit < end {
		end = start + limit
	}
	return items[start:end]
}

// ──────────────────────────────────────────────────
// Vesting
// ──────────────────────────────────────────────────

func (s *Store) GetVestingState(ctx context.Context) (*vesting.State, error) {
	st := vesting.NewState()
	err := s.view(ctx, func(txn *badgerdb.Txn) error {
		_, err := getJSON(txn, keyVestingState, st)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("launchpad/badger: get vesting state: %w", err)
	}
	return st.Clone(), nil
}

func (s *Store) SaveVestingState(ctx context.Context, st *vesting.State) error {
	return s.update(ctx, func(txn *badgerdb.Txn) error {
		return setJSON(txn, keyVestingState, st)
	})
}

func (s *Store) GetSchedule(ctx context.Context, beneficiary common.Address) (*vesting.Schedule, error) {
	var sch vesting.Schedule
	var found bool
	err := s.view(ctx, func(txn *badgerdb.Txn) (err error) {
		found, err = getJSON(txn, scheduleKey(beneficiary), &sch)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("launchpad/badger: get schedule: %w", err)
	}
	if !found {
		return nil, launchpad.ErrScheduleNotFound
	}
	return sch.Clone(), nil
}

func (s *Store) SaveSchedule(ctx context.Context, sch *vesting.Schedule) error {
	return s.update(ctx, func(txn *badgerdb.Txn) error {
		return setJSON(txn, scheduleKey(sch.Beneficiary), sch)
	})
}

func (s *Store) DeleteSchedule(ctx context.Context, beneficiary common.Address) error {
	return s.update(ctx, func(txn *badgerdb.Txn) error {
		k := scheduleKey(beneficiary)
		if _, err := txn.Get(k); errors.Is(err, badgerdb.ErrKeyNotFound) {
			return launchpad.ErrScheduleNotFound
		} else if err != nil {
			return err
		}
		return txn.Delete(k)
	})
}

func (s *Store) ListSchedules(ctx context.Context, opts vesting.ListOpts) ([]*vesting.Schedule, error) {
	result := make([]*vesting.Schedule, 0)
	err := s.view(ctx, func(txn *badgerdb.Txn) error {
		for _, k := range keysWithPrefix(txn, prefixSchedule) {
			var sch vesting.Schedule
			if _, err := getJSON(txn, k, &sch); err != nil {
				return err
			}
			if opts.Group == "" || sch.Group == opts.Group {
				result = append(result, sch.Clone())
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("launchpad/badger: list schedules: %w", err)
	}
	return page(result, opts.Offset, opts.Limit), nil
}

// ──────────────────────────────────────────────────
// Presale
// ──────────────────────────────────────────────────

func (s *Store) GetPresaleState(ctx context.Context) (*presale.State, error) {
	var st presale.State
	err := s.view(ctx, func(txn *badgerdb.Txn) error {
		_, err := getJSON(txn, keyPresaleState, &st)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("launchpad/badger: get presale state: %w", err)
	}
	return &st, nil
}

func (s *Store) SavePresaleState(ctx context.Context, st *presale.State) error {
	return s.update(ctx, func(txn *badgerdb.Txn) error {
		return setJSON(txn, keyPresaleState, st)
	})
}

func (s *Store) GetPresale(ctx context.Context, presaleID uint64) (*presale.Presale, error) {
	var p presale.Presale
	var found bool
	err := s.view(ctx, func(txn *badgerdb.Txn) (err error) {
		found, err = getJSON(txn, presaleKey(presaleID), &p)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("launchpad/badger: get presale: %w", err)
	}
	if !found {
		return nil, launchpad.ErrPresaleNotFound
	}
	return p.Clone(), nil
}

func (s *Store) SavePresale(ctx context.Context, p *presale.Presale) error {
	return s.update(ctx, func(txn *badgerdb.Txn) error {
		return setJSON(txn, presaleKey(p.ID), p)
	})
}

func (s *Store) DeletePresale(ctx context.Context, presaleID uint64) error {
	return s.update(ctx, func(txn *badgerdb.Txn) error {
		k := presaleKey(presaleID)
		if _, err := txn.Get(k); errors.Is(err, badgerdb.ErrKeyNotFound) {
			return launchpad.ErrPresaleNotFound
		} else if err != nil {
			return err
		}

		doomed := [][]byte{k}
		doomed = append(doomed, keysWithPrefix(txn, key(prefixWhitelist, u64(presaleID)))...)
		doomed = append(doomed, keysWithPrefix(txn, key(prefixSeq, u64(presaleID)))...)
		for _, pk := range keysWithPrefix(txn, key(prefixPurchase, u64(presaleID))) {
			buyer := common.BytesToAddress(pk[len(prefixPurchase)+8:])
			doomed = append(doomed, pk, buyerKey(buyer, presaleID))
		}
		for _, dk := range doomed {
			if err := txn.Delete(dk); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) ListPresales(ctx context.Context, opts presale.ListOpts) ([]*presale.Presale, error) {
	result := make([]*presale.Presale, 0)
	err := s.view(ctx, func(txn *badgerdb.Txn) error {
		for _, k := range page(keysWithPrefix(txn, prefixPresale), opts.Offset, opts.Limit) {
			var p presale.Presale
			if _, err := getJSON(txn, k, &p); err != nil {
				return err
			}
			result = append(result, p.Clone())
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("launchpad/badger: list presales: %w", err)
	}
	return result, nil
}

func (s *Store) IsWhitelisted(ctx context.Context, presaleID uint64, addr common.Address) (bool, error) {
	var ok bool
	err := s.view(ctx, func(txn *badgerdb.Txn) error {
		_, err := txn.Get(whitelistKey(presaleID, addr))
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return nil
		}
		ok = err == nil
		return err
	})
	if err != nil {
		return false, fmt.Errorf("launchpad/badger: read whitelist: %w", err)
	}
	return ok, nil
}

func (s *Store) SetWhitelisted(ctx context.Context, presaleID uint64, addr common.Address, allowed bool) error {
	return s.update(ctx, func(txn *badgerdb.Txn) error {
		k := whitelistKey(presaleID, addr)
		if allowed {
			return txn.Set(k, []byte{1})
		}
		return txn.Delete(k)
	})
}

func (s *Store) GetPurchase(ctx context.Context, presaleID uint64, buyer common.Address) (*presale.Purchase, error) {
	var p presale.Purchase
	var found bool
	err := s.view(ctx, func(txn *badgerdb.Txn) (err error) {
		found, err = getJSON(txn, purchaseKey(presaleID, buyer), &p)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("launchpad/badger: get purchase: %w", err)
	}
	if !found {
		return nil, launchpad.ErrPurchaseNotFound
	}
	return p.Clone(), nil
}

// SavePurchase writes the purchase together with its participant and buyer
// index entries.
func (s *Store) SavePurchase(ctx context.Context, p *presale.Purchase) error {
	return s.update(ctx, func(txn *badgerdb.Txn) error {
		if err := setJSON(txn, purchaseKey(p.PresaleID, p.Buyer), p); err != nil {
			return err
		}
		if err := txn.Set(seqKey(p.PresaleID, p.Seq), p.Buyer.Bytes()); err != nil {
			return err
		}
		return txn.Set(buyerKey(p.Buyer, p.PresaleID), []byte{1})
	})
}

func (s *Store) ListPurchasesByBuyer(ctx context.Context, buyer common.Address) ([]*presale.Purchase, error) {
	result := make([]*presale.Purchase, 0)
	err := s.view(ctx, func(txn *badgerdb.Txn) error {
		prefix := key(prefixBuyer, buyer.Bytes())
		for _, k := range keysWithPrefix(txn, prefix) {
			var p presale.Purchase
			id := decodeU64(k[len(prefix):])
			if _, err := getJSON(txn, purchaseKey(id, buyer), &p); err != nil {
				return err
			}
			result = append(result, p.Clone())
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("launchpad/badger: list purchases: %w", err)
	}
	return result, nil
}

func (s *Store) ListParticipants(ctx context.Context, presaleID uint64, offset, limit int) ([]common.Address, error) {
	result := make([]common.Address, 0)
	err := s.view(ctx, func(txn *badgerdb.Txn) error {
		for _, k := range page(keysWithPrefix(txn, key(prefixSeq, u64(presaleID))), offset, limit) {
			item, err := txn.Get(k)
			if err != nil {
				return err
			}
			v, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			result = append(result, common.BytesToAddress(v))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("launchpad/badger: list participants: %w", err)
	}
	return result, nil
}

func (s *Store) CountParticipants(ctx context.Context, presaleID uint64) (int, error) {
	var n int
	err := s.view(ctx, func(txn *badgerdb.Txn) error {
		n = len(keysWithPrefix(txn, key(prefixSeq, u64(presaleID))))
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("launchpad/badger: count participants: %w", err)
	}
	return n, nil
}

// ──────────────────────────────────────────────────
// Token balances
// ──────────────────────────────────────────────────

func (s *Store) GetBalance(ctx context.Context, token, holder common.Address) (*uint256.Int, error) {
	var v *uint256.Int
	err := s.view(ctx, func(txn *badgerdb.Txn) (err error) {
		v, err = getAmount(txn, balanceKey(token, holder))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("launchpad/badger: get balance: %w", err)
	}
	return v, nil
}

func (s *Store) SetBalance(ctx context.Context, token, holder common.Address, amount *uint256.Int) error {
	return s.update(ctx, func(txn *badgerdb.Txn) error {
		return txn.Set(balanceKey(token, holder), []byte(types.FormatAmount(amount)))
	})
}

func (s *Store) GetAllowance(ctx context.Context, token, owner, spender common.Address) (*uint256.Int, error) {
	var v *uint256.Int
	err := s.view(ctx, func(txn *badgerdb.Txn) (err error) {
		v, err = getAmount(txn, allowanceKey(token, owner, spender))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("launchpad/badger: get allowance: %w", err)
	}
	return v, nil
}

func (s *Store) SetAllowance(ctx context.Context, token, owner, spender common.Address, amount *uint256.Int) error {
	return s.update(ctx, func(txn *badgerdb.Txn) error {
		return txn.Set(allowanceKey(token, owner, spender), []byte(types.FormatAmount(amount)))
	})
}

// ──────────────────────────────────────────────────
// Events
// ──────────────────────────────────────────────────

// AppendEvent numbers records with a counter kept in the same txn, so a
// rolled-back append leaves no gap.
func (s *Store) AppendEvent(ctx context.Context, r *event.Record) error {
	return s.update(ctx, func(txn *badgerdb.Txn) error {
		var seq uint64
		item, err := txn.Get(keyEventSequence)
		switch {
		case errors.Is(err, badgerdb.ErrKeyNotFound):
		case err != nil:
			return err
		default:
			v, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			seq = decodeU64(v)
		}
		seq++
		if err := txn.Set(keyEventSequence, u64(seq)); err != nil {
			return err
		}
		return setJSON(txn, eventKey(seq), r)
	})
}

func (s *Store) ListEvents(ctx context.Context, opts event.ListOpts) ([]*event.Record, error) {
	result := make([]*event.Record, 0)
	err := s.view(ctx, func(txn *badgerdb.Txn) error {
		for _, k := range keysWithPrefix(txn, prefixEvent) {
			var r event.Record
			if _, err := getJSON(txn, k, &r); err != nil {
				return err
			}
			if opts.Match(&r) {
				result = append(result, &r)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("launchpad/badger: list events: %w", err)
	}
	return page(result, opts.Offset, opts.Limit), nil
}
