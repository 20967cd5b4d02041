package exchange

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/cockroachdb/pebble"
	"github.com/ethereum/go-ethereum/common"
)

// Store provides pebble-based persistence for the exchange ledger.
// The in-memory ledger is the source of truth at runtime; the store
// exists for durability and restart recovery. All writes for one ledger
// operation go through a single Batch so they land atomically.
type Store struct {
	db *pebble.DB
}

// NewStore opens a pebble database at the given path.
func NewStore(dbPath string) (*Store, error) {
	opts := &pebble.Options{
		Cache:                 pebble.NewCache(64 << 20),
		MemTableSize:          32 << 20,
		L0CompactionThreshold: 2,
		L0StopWritesThreshold: 12,
		MaxOpenFiles:          1000,
		BytesPerSync:          512 << 10,
	}

	db, err := pebble.Open(dbPath, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble db at %s: %w", dbPath, err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// ledgerState is the snapshot recovered from pebble at startup.
type ledgerState struct {
	balances  map[common.Address]map[common.Address]*big.Int // token -> user -> amount
	orders    []*Order                                       // index i holds order id i+1
	cancelled map[uint64]bool
	filled    map[uint64]bool
	events    []Event
}

func newLedgerState() *ledgerState {
	return &ledgerState{
		balances:  make(map[common.Address]map[common.Address]*big.Int),
		cancelled: make(map[uint64]bool),
		filled:    make(map[uint64]bool),
	}
}

// Load reads the full ledger state back from pebble.
func (s *Store) Load() (*ledgerState, error) {
	st := newLedgerState()

	if err := s.loadBalances(st); err != nil {
		return nil, err
	}
	if err := s.loadOrders(st); err != nil {
		return nil, err
	}
	if err := s.loadStatuses(st); err != nil {
		return nil, err
	}
	if err := s.loadEvents(st); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *Store) loadBalances(st *ledgerState) error {
	iter, err := s.prefixIter(prefixBalance)
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		// Key format: "bal:{token}:{user}"
		parts := strings.Split(string(iter.Key()), ":")
		if len(parts) != 3 || !common.IsHexAddress(parts[1]) || !common.IsHexAddress(parts[2]) {
			return fmt.Errorf("malformed balance key: %q", iter.Key())
		}
		tok := common.HexToAddress(parts[1])
		user := common.HexToAddress(parts[2])

		amount := new(big.Int)
		if err := json.Unmarshal(iter.Value(), amount); err != nil {
			return fmt.Errorf("failed to unmarshal balance %q: %w", iter.Key(), err)
		}

		byUser, ok := st.balances[tok]
		if !ok {
			byUser = make(map[common.Address]*big.Int)
			st.balances[tok] = byUser
		}
		byUser[user] = amount
	}
	return nil
}

func (s *Store) loadOrders(st *ledgerState) error {
	iter, err := s.prefixIter(prefixOrder)
	if err != nil {
		return err
	}
	defer iter.Close()

	// Keys are zero-padded ids, so iteration yields ids 1..n in order.
	for iter.First(); iter.Valid(); iter.Next() {
		var o Order
		if err := json.Unmarshal(iter.Value(), &o); err != nil {
			return fmt.Errorf("failed to unmarshal order %q: %w", iter.Key(), err)
		}
		if o.ID != uint64(len(st.orders))+1 {
			return fmt.Errorf("order id gap: got %d, want %d", o.ID, len(st.orders)+1)
		}
		st.orders = append(st.orders, &o)
	}
	return nil
}

func (s *Store) loadStatuses(st *ledgerState) error {
	iter, err := s.prefixIter(prefixStatus)
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		idStr := strings.TrimPrefix(string(iter.Key()), prefixStatus)
		id, err := strconv.ParseUint(idStr, 10, 64)
		if err != nil {
			return fmt.Errorf("malformed status key %q: %w", iter.Key(), err)
		}
		switch string(iter.Value()) {
		case StatusCancelled.String():
			st.cancelled[id] = true
		case StatusFilled.String():
			st.filled[id] = true
		default:
			return fmt.Errorf("unknown status %q for order %d", iter.Value(), id)
		}
	}
	return nil
}

func (s *Store) loadEvents(st *ledgerState) error {
	iter, err := s.prefixIter(prefixEvent)
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		ev, err := decodeEvent(iter.Value())
		if err != nil {
			return fmt.Errorf("failed to decode event %q: %w", iter.Key(), err)
		}
		st.events = append(st.events, ev)
	}
	return nil
}

func (s *Store) prefixIter(prefix string) (*pebble.Iterator, error) {
	return s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(prefix),
		UpperBound: keyUpperBound([]byte(prefix)),
	})
}

// eventEnvelope wraps an event with its kind tag for storage.
type eventEnvelope struct {
	Kind  string          `json:"kind"`
	Event json.RawMessage `json:"event"`
}

func encodeEvent(ev Event) ([]byte, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	return json.Marshal(eventEnvelope{Kind: ev.Kind(), Event: payload})
}

func decodeEvent(data []byte) (Event, error) {
	var env eventEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}

	// Decode into the concrete struct so recovered events have the same
	// dynamic type as live ones.
	switch env.Kind {
	case KindDeposit:
		var ev DepositEvent
		err := json.Unmarshal(env.Event, &ev)
		return ev, err
	case KindWithdraw:
		var ev WithdrawEvent
		err := json.Unmarshal(env.Event, &ev)
		return ev, err
	case KindOrder:
		var ev OrderEvent
		err := json.Unmarshal(env.Event, &ev)
		return ev, err
	case KindCancel:
		var ev CancelEvent
		err := json.Unmarshal(env.Event, &ev)
		return ev, err
	case KindTrade:
		var ev TradeEvent
		err := json.Unmarshal(env.Event, &ev)
		return ev, err
	default:
		return nil, fmt.Errorf("unknown event kind %q", env.Kind)
	}
}

// Batch stages the writes of a single ledger operation and commits them
// atomically. A fill's five balance mutations, status flag, and event
// all go through one batch.
type Batch struct {
	batch *pebble.Batch
}

// NewBatch creates a new batch writer.
func (s *Store) NewBatch() *Batch {
	return &Batch{batch: s.db.NewBatch()}
}

// SetBalance stages a (token, user) balance write.
func (b *Batch) SetBalance(tok, user common.Address, amount *big.Int) error {
	data, err := json.Marshal(amount)
	if err != nil {
		return err
	}
	return b.batch.Set(balanceKey(tok, user), data, nil)
}

// PutOrder stages an order record write.
func (b *Batch) PutOrder(o *Order) error {
	data, err := json.Marshal(o)
	if err != nil {
		return err
	}
	return b.batch.Set(orderKey(o.ID), data, nil)
}

// SetStatus stages an order's terminal status flag.
func (b *Batch) SetStatus(id uint64, status OrderStatus) error {
	return b.batch.Set(statusKey(id), []byte(status.String()), nil)
}

// AppendEvent stages an event log entry at the given sequence number.
func (b *Batch) AppendEvent(seq uint64, ev Event) error {
	data, err := encodeEvent(ev)
	if err != nil {
		return err
	}
	return b.batch.Set(eventKey(seq), data, nil)
}

// Commit writes the batch to pebble atomically.
func (b *Batch) Commit() error {
	return b.batch.Commit(pebble.Sync)
}

// Close discards the batch without committing.
func (b *Batch) Close() error {
	return b.batch.Close()
}
