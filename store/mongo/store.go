// Package mongo is the MongoDB launchpad store, built on grove's mongo
// driver. Transactions need a replica set or sharded cluster.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/launchpad"
	"github.com/xraph/launchpad/event"
	"github.com/xraph/launchpad/presale"
	"github.com/xraph/launchpad/store"
	"github.com/xraph/launchpad/types"
	"github.com/xraph/launchpad/vesting"
)

// Collection name constants.
const (
	colVestingState = "launchpad_vesting_state"
	colSchedules    = "launchpad_vesting_schedules"
	colPresaleState = "launchpad_presale_state"
	colPresales     = "launchpad_presales"
	colWhitelist    = "launchpad_whitelist"
	colPurchases    = "launchpad_purchases"
	colBalances     = "launchpad_token_balances"
	colAllowances   = "launchpad_token_allowances"
	colEvents       = "launchpad_events"
	colCounters     = "launchpad_counters"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db     *grove.DB
	mdb    *mongodriver.MongoDB
	closed atomic.Bool
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all launchpad collections.
func (s *Store) Migrate(ctx context.Context) error {
	for col, models := range migrationIndexes() {
		if _, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("launchpad/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if s.closed.Load() {
		return launchpad.ErrStoreClosed
	}
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}

type txKey struct{ s *Store }

// RunInTx runs fn in a session transaction. Calls whose context already
// carries one of this store's sessions join it. fn runs once: transient
// commit errors are returned, not retried.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{s}) != nil {
		return fn(ctx)
	}
	if s.closed.Load() {
		return launchpad.ErrStoreClosed
	}

	sess, err := s.mdb.Collection(colCounters).Database().Client().StartSession()
	if err != nil {
		return fmt.Errorf("launchpad/mongo: start session: %w", err)
	}
	defer sess.EndSession(ctx)

	if err := sess.StartTransaction(); err != nil {
		return fmt.Errorf("launchpad/mongo: start transaction: %w", err)
	}
	txCtx := context.WithValue(mongo.NewSessionContext(ctx, sess), txKey{s}, struct{}{})
	if err := fn(txCtx); err != nil {
		if abortErr := sess.AbortTransaction(context.WithoutCancel(ctx)); abortErr != nil {
			return errors.Join(err, fmt.Errorf("launchpad/mongo: abort: %w", abortErr))
		}
		return err
	}
	if err := sess.CommitTransaction(txCtx); err != nil {
		return fmt.Errorf("launchpad/mongo: commit: %w", err)
	}
	return nil
}

// replace writes m under filter, inserting it when absent. grove's insert
// and delete run inside the caller's session, so the pair is atomic within
// a transaction.
func (s *Store) replace(ctx context.Context, filter bson.M, model, zero any) error {
	return s.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.mdb.NewDelete(zero).Filter(filter).Exec(ctx); err != nil {
			return err
		}
		_, err := s.mdb.NewInsert(model).Exec(ctx)
		return err
	})
}

// ==================== Vesting Store ====================

func (s *Store) GetVestingState(ctx context.Context) (*vesting.State, error) {
	var m vestingStateModel
	err := s.mdb.NewFind(&m).Filter(bson.M{"_id": singletonID}).Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return vesting.NewState(), nil
		}
		return nil, fmt.Errorf("launchpad/mongo: get vesting state: %w", err)
	}
	return fromVestingStateModel(&m)
}

func (s *Store) SaveVestingState(ctx context.Context, st *vesting.State) error {
	if err := s.replace(ctx, bson.M{"_id": singletonID}, toVestingStateModel(st), (*vestingStateModel)(nil)); err != nil {
		return fmt.Errorf("launchpad/mongo: save vesting state: %w", err)
	}
	return nil
}

func (s *Store) GetSchedule(ctx context.Context, beneficiary common.Address) (*vesting.Schedule, error) {
	var m scheduleModel
	err := s.mdb.NewFind(&m).Filter(bson.M{"_id": hexAddr(beneficiary)}).Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, launchpad.ErrScheduleNotFound
		}
		return nil, fmt.Errorf("launchpad/mongo: get schedule: %w", err)
	}
	return fromScheduleModel(&m)
}

func (s *Store) SaveSchedule(ctx context.Context, sch *vesting.Schedule) error {
	m := toScheduleModel(sch)
	if err := s.replace(ctx, bson.M{"_id": m.Beneficiary}, m, (*scheduleModel)(nil)); err != nil {
		return fmt.Errorf("launchpad/mongo: save schedule: %w", err)
	}
	return nil
}

func (s *Store) DeleteSchedule(ctx context.Context, beneficiary common.Address) error {
	res, err := s.mdb.NewDelete((*scheduleModel)(nil)).
		Filter(bson.M{"_id": hexAddr(beneficiary)}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("launchpad/mongo: delete schedule: %w", err)
	}
	if res.DeletedCount() == 0 {
		return launchpad.ErrScheduleNotFound
	}
	return nil
}

func (s *Store) ListSchedules(ctx context.Context, opts vesting.ListOpts) ([]*vesting.Schedule, error) {
	var models []scheduleModel

	filter := bson.M{}
	if opts.Group != "" {
		filter["group_name"] = opts.Group
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "_id", Value: 1}})
	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("launchpad/mongo: list schedules: %w", err)
	}

	result := make([]*vesting.Schedule, len(models))
	for i := range models {
		sch, err := fromScheduleModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = sch
	}
	return result, nil
}

// ==================== Presale Store ====================

func (s *Store) GetPresaleState(ctx context.Context) (*presale.State, error) {
	var m presaleStateModel
	err := s.mdb.NewFind(&m).Filter(bson.M{"_id": singletonID}).Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return &presale.State{}, nil
		}
		return nil, fmt.Errorf("launchpad/mongo: get presale state: %w", err)
	}
	return &presale.State{LastID: uint64(m.LastID), Paused: m.Paused, UpdatedAt: m.UpdatedAt.UTC()}, nil
}

func (s *Store) SavePresaleState(ctx context.Context, st *presale.State) error {
	m := &presaleStateModel{ID: singletonID, LastID: int64(st.LastID), Paused: st.Paused, UpdatedAt: st.UpdatedAt}
	if err := s.replace(ctx, bson.M{"_id": singletonID}, m, (*presaleStateModel)(nil)); err != nil {
		return fmt.Errorf("launchpad/mongo: save presale state: %w", err)
	}
	return nil
}

func (s *Store) GetPresale(ctx context.Context, presaleID uint64) (*presale.Presale, error) {
	var m presaleModel
	err := s.mdb.NewFind(&m).Filter(bson.M{"_id": int64(presaleID)}).Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, launchpad.ErrPresaleNotFound
		}
		return nil, fmt.Errorf("launchpad/mongo: get presale: %w", err)
	}
	return fromPresaleModel(&m)
}

func (s *Store) SavePresale(ctx context.Context, p *presale.Presale) error {
	m := toPresaleModel(p)
	if err := s.replace(ctx, bson.M{"_id": m.ID}, m, (*presaleModel)(nil)); err != nil {
		return fmt.Errorf("launchpad/mongo: save presale: %w", err)
	}
	return nil
}

func (s *Store) DeletePresale(ctx context.Context, presaleID uint64) error {
	return s.RunInTx(ctx, func(ctx context.Context) error {
		res, err := s.mdb.NewDelete((*presaleModel)(nil)).
			Filter(bson.M{"_id": int64(presaleID)}).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("launchpad/mongo: delete presale: %w", err)
		}
		if res.DeletedCount() == 0 {
			return launchpad.ErrPresaleNotFound
		}
		byPresale := bson.M{"presale_id": int64(presaleID)}
		if _, err := s.mdb.NewDelete((*whitelistModel)(nil)).Filter(byPresale).Exec(ctx); err != nil {
			return fmt.Errorf("launchpad/mongo: delete whitelist: %w", err)
		}
		if _, err := s.mdb.NewDelete((*purchaseModel)(nil)).Filter(byPresale).Exec(ctx); err != nil {
			return fmt.Errorf("launchpad/mongo: delete purchases: %w", err)
		}
		return nil
	})
}

func (s *Store) ListPresales(ctx context.Context, opts presale.ListOpts) ([]*presale.Presale, error) {
	var models []presaleModel

	q := s.mdb.NewFind(&models).
		Filter(bson.M{}).
		Sort(bson.D{{Key: "_id", Value: 1}})
	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("launchpad/mongo: list presales: %w", err)
	}

	result := make([]*presale.Presale, len(models))
	for i := range models {
		p, err := fromPresaleModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = p
	}
	return result, nil
}

func (s *Store) IsWhitelisted(ctx context.Context, presaleID uint64, addr common.Address) (bool, error) {
	n, err := s.mdb.Collection(colWhitelist).CountDocuments(ctx, bson.M{"_id": whitelistKey(presaleID, addr)})
	if err != nil {
		return false, fmt.Errorf("launchpad/mongo: read whitelist: %w", err)
	}
	return n > 0, nil
}

func (s *Store) SetWhitelisted(ctx context.Context, presaleID uint64, addr common.Address, allowed bool) error {
	key := whitelistKey(presaleID, addr)
	var err error
	if allowed {
		m := &whitelistModel{ID: key, PresaleID: int64(presaleID), Address: hexAddr(addr)}
		err = s.replace(ctx, bson.M{"_id": key}, m, (*whitelistModel)(nil))
	} else {
		_, err = s.mdb.NewDelete((*whitelistModel)(nil)).Filter(bson.M{"_id": key}).Exec(ctx)
	}
	if err != nil {
		return fmt.Errorf("launchpad/mongo: write whitelist: %w", err)
	}
	return nil
}

func (s *Store) GetPurchase(ctx context.Context, presaleID uint64, buyer common.Address) (*presale.Purchase, error) {
	var m purchaseModel
	err := s.mdb.NewFind(&m).Filter(bson.M{"_id": purchaseKey(presaleID, buyer)}).Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, launchpad.ErrPurchaseNotFound
		}
		return nil, fmt.Errorf("launchpad/mongo: get purchase: %w", err)
	}
	return fromPurchaseModel(&m)
}

func (s *Store) SavePurchase(ctx context.Context, p *presale.Purchase) error {
	m := toPurchaseModel(p)
	if err := s.replace(ctx, bson.M{"_id": m.ID}, m, (*purchaseModel)(nil)); err != nil {
		return fmt.Errorf("launchpad/mongo: save purchase: %w", err)
	}
	return nil
}

func (s *Store) ListPurchasesByBuyer(ctx context.Context, buyer common.Address) ([]*presale.Purchase, error) {
	var models []purchaseModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{"buyer": hexAddr(buyer)}).
		Sort(bson.D{{Key: "presale_id", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("launchpad/mongo: list purchases: %w", err)
	}
	return fromPurchaseModels(models)
}

func (s *Store) ListParticipants(ctx context.Context, presaleID uint64, offset, limit int) ([]common.Address, error) {
	var models []purchaseModel

	q := s.mdb.NewFind(&models).
		Filter(bson.M{"presale_id": int64(presaleID)}).
		Sort(bson.D{{Key: "seq", Value: 1}})
	if limit > 0 {
		q = q.Limit(int64(limit))
	}
	if offset > 0 {
		q = q.Skip(int64(offset))
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("launchpad/mongo: list participants: %w", err)
	}

	result := make([]common.Address, len(models))
	for i := range models {
		a, err := parseAddr(models[i].Buyer)
		if err != nil {
			return nil, err
		}
		result[i] = a
	}
	return result, nil
}

func (s *Store) CountParticipants(ctx context.Context, presaleID uint64) (int, error) {
	n, err := s.mdb.Collection(colPurchases).CountDocuments(ctx, bson.M{"presale_id": int64(presaleID)})
	if err != nil {
		return 0, fmt.Errorf("launchpad/mongo: count participants: %w", err)
	}
	return int(n), nil
}

func fromPurchaseModels(models []purchaseModel) ([]*presale.Purchase, error) {
	result := make([]*presale.Purchase, len(models))
	for i := range models {
		p, err := fromPurchaseModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = p
	}
	return result, nil
}

// ==================== Token Store ====================

func (s *Store) GetBalance(ctx context.Context, token, holder common.Address) (*uint256.Int, error) {
	var m balanceModel
	err := s.mdb.NewFind(&m).Filter(bson.M{"_id": balanceKey(token, holder)}).Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return types.Zero(), nil
		}
		return nil, fmt.Errorf("launchpad/mongo: get balance: %w", err)
	}
	return types.ParseAmount(m.Amount)
}

func (s *Store) SetBalance(ctx context.Context, token, holder common.Address, amount *uint256.Int) error {
	m := &balanceModel{
		ID:     balanceKey(token, holder),
		Token:  hexAddr(token),
		Holder: hexAddr(holder),
		Amount: types.FormatAmount(amount),
	}
	if err := s.replace(ctx, bson.M{"_id": m.ID}, m, (*balanceModel)(nil)); err != nil {
		return fmt.Errorf("launchpad/mongo: set balance: %w", err)
	}
	return nil
}

func (s *Store) GetAllowance(ctx context.Context, token, owner, spender common.Address) (*uint256.Int, error) {
	var m allowanceModel
	err := s.mdb.NewFind(&m).Filter(bson.M{"_id": allowanceKey(token, owner, spender)}).Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return types.Zero(), nil
		}
		return nil, fmt.Errorf("launchpad/mongo: get allowance: %w", err)
	}
	return types.ParseAmount(m.Amount)
}

func (s *Store) SetAllowance(ctx context.Context, token, owner, spender common.Address, amount *uint256.Int) error {
	m := &allowanceModel{
		ID:      allowanceKey(token, owner, spender),
		Token:   hexAddr(token),
		Owner:   hexAddr(owner),
		Spender: hexAddr(spender),
		Amount:  types.FormatAmount(amount),
	}
	if err := s.replace(ctx, bson.M{"_id": m.ID}, m, (*allowanceModel)(nil)); err != nil {
		return fmt.Errorf("launchpad/mongo: set allowance: %w", err)
	}
	return nil
}

// ==================== Event Store ====================

// nextSeq bumps the journal counter. Inside a transaction the bump commits
// or aborts with the event it numbers.
func (s *Store) nextSeq(ctx context.Context) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := s.mdb.Collection(colCounters).FindOneAndUpdate(ctx,
		bson.M{"_id": colEvents},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	return counter.Seq, err
}

func (s *Store) AppendEvent(ctx context.Context, r *event.Record) error {
	return s.RunInTx(ctx, func(ctx context.Context) error {
		seq, err := s.nextSeq(ctx)
		if err != nil {
			return fmt.Errorf("launchpad/mongo: next event seq: %w", err)
		}
		if _, err := s.mdb.NewInsert(toEventModel(r, seq)).Exec(ctx); err != nil {
			return fmt.Errorf("launchpad/mongo: append event: %w", err)
		}
		return nil
	})
}

func (s *Store) ListEvents(ctx context.Context, opts event.ListOpts) ([]*event.Record, error) {
	var models []eventModel

	filter := bson.M{}
	if opts.Ledger != "" {
		filter["ledger"] = string(opts.Ledger)
	}
	if opts.Kind != "" {
		filter["kind"] = string(opts.Kind)
	}
	if opts.Subject != (common.Address{}) {
		filter["subject"] = hexAddr(opts.Subject)
	}
	if opts.PresaleID != 0 {
		filter["presale_id"] = int64(opts.PresaleID)
	}
	if !opts.Since.IsZero() {
		filter["occurred_at"] = bson.M{"$gte": opts.Since}
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "seq", Value: 1}})
	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("launchpad/mongo: list events: %w", err)
	}

	result := make([]*event.Record, len(models))
	for i := range models {
		r, err := fromEventModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = r
	}
	return result, nil
}

// ==================== Helpers ====================

func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all launchpad collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colSchedules: {
			{Keys: bson.D{{Key: "group_name", Value: 1}, {Key: "_id", Value: 1}}},
		},
		colWhitelist: {
			{Keys: bson.D{{Key: "presale_id", Value: 1}}},
		},
		colPurchases: {
			{
				Keys:    bson.D{{Key: "presale_id", Value: 1}, {Key: "seq", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "buyer", Value: 1}, {Key: "presale_id", Value: 1}}},
		},
		colEvents: {
			{
				Keys:    bson.D{{Key: "seq", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "ledger", Value: 1}, {Key: "kind", Value: 1}}},
			{Keys: bson.D{{Key: "subject", Value: 1}}},
			{Keys: bson.D{{Key: "presale_id", Value: 1}}},
		},
	}
}
