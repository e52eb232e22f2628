// Package cart holds the client-side view of a shopper's cart and keeps it
// in step with the remote cart service.
//
// Adds are applied locally before the service answers (PhasePending) and
// every successful service response replaces the lines wholesale
// (PhaseConfirmed). Which responses may replace the lines, and what happens
// to a guess whose call failed, are chosen with ReconcilePolicy and
// FailurePolicy.
package cart

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/ikkim/storefront/pkg/cartapi"
	"github.com/ikkim/storefront/pkg/logger"
	"github.com/shopspring/decimal"
)

// CartAPI is the remote cart service as the store uses it
type CartAPI interface {
	FetchCart(ctx context.Context) (*cartapi.CartResponse, error)
	AddItem(ctx context.Context, req cartapi.AddItemRequest) (*cartapi.CartResponse, error)
	RemoveItem(ctx context.Context, req cartapi.RemoveItemRequest) (*cartapi.CartResponse, error)
}

type Store struct {
	api  CartAPI
	opts options
	log  *logger.Logger

	mu            sync.Mutex
	lines         []Line
	phase         Phase
	loading       bool
	closed        bool
	version       uint64
	issued        uint64
	lastApplied   uint64
	confirmations uint64
	inflight      map[string]*Operation
	listeners     map[int]func(Snapshot)
	nextListener  int

	hydration *Operation

	// saveMu orders snapshot writes; savedVersion is the newest one written
	saveMu       sync.Mutex
	savedVersion uint64
}

// New creates an empty store and starts hydrating it from the service.
// Hydration runs exactly once per store.
func New(api CartAPI, opts ...Option) *Store {
	o := options{requestTimeout: DefaultRequestTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.Get()
	}

	s := &Store{
		api:       api,
		opts:      o,
		log:       o.log.WithContext(logger.Fields{"component": "cart_store"}),
		lines:     []Line{},
		phase:     PhasePending,
		loading:   true,
		inflight:  make(map[string]*Operation),
		listeners: make(map[int]func(Snapshot)),
	}
	s.hydration = s.hydrate()
	return s
}

// Hydration returns the initial fetch operation
func (s *Store) Hydration() *Operation {
	return s.hydration
}

func (s *Store) hydrate() *Operation {
	op := newOperation(uuid.NewString(), KindHydrate, "")

	s.mu.Lock()
	s.issueLocked(op)
	s.mu.Unlock()

	s.log.Debug("Hydrating cart", logger.Fields{"op_id": op.ID})
	s.run(op, func(ctx context.Context) (*cartapi.CartResponse, error) {
		return s.api.FetchCart(ctx)
	})
	return op
}

// AddItem increments the product's line, or appends it with quantity 1,
// before the service is asked to do the same.
func (s *Store) AddItem(p Product) *Operation {
	op := newOperation(uuid.NewString(), KindAdd, p.ID)
	if p.ID == "" || p.Price.IsNegative() {
		s.log.Warn("Rejected add of invalid product", logger.Fields{
			"product_id": p.ID,
			"price":      p.Price.String(),
		})
		op.finish(fmt.Errorf("%w: id=%q price=%s", ErrInvalidProduct, p.ID, p.Price), false)
		return op
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		op.finish(ErrStoreClosed, false)
		return op
	}
	s.lines = applyDelta(s.lines, p.ID, 1, &p)
	s.phase = PhasePending
	op.delta = 1
	s.issueLocked(op)
	snap := s.changedLocked()
	s.mu.Unlock()

	s.notify(snap)
	s.log.Debug("Optimistically added item", logger.Fields{
		"op_id":      op.ID,
		"product_id": p.ID,
		"seq":        op.seq,
	})

	s.run(op, func(ctx context.Context) (*cartapi.CartResponse, error) {
		return s.api.AddItem(ctx, cartapi.AddItemRequest{ProductID: p.ID, Quantity: 1})
	})
	return op
}

// DecrementItem lowers a line's quantity by one. Lines at quantity 1 are
// left alone; removing them is RemoveItem's job.
func (s *Store) DecrementItem(productID string) *Operation {
	op := newOperation(uuid.NewString(), KindDecrement, productID)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		op.finish(ErrStoreClosed, false)
		return op
	}
	i := indexOf(s.lines, productID)
	if i < 0 || s.lines[i].Quantity <= 1 {
		s.mu.Unlock()
		op.finish(fmt.Errorf("%w: %s", ErrNotDecrementable, productID), false)
		return op
	}
	s.lines = applyDelta(s.lines, productID, -1, nil)
	s.phase = PhasePending
	op.delta = -1
	s.issueLocked(op)
	snap := s.changedLocked()
	s.mu.Unlock()

	s.notify(snap)
	s.run(op, func(ctx context.Context) (*cartapi.CartResponse, error) {
		return s.api.AddItem(ctx, cartapi.AddItemRequest{ProductID: productID, Quantity: -1})
	})
	return op
}

// RemoveItem asks the service to drop the product's line. Local lines are
// only replaced once the service answers.
func (s *Store) RemoveItem(productID string) *Operation {
	op := newOperation(uuid.NewString(), KindRemove, productID)
	if productID == "" {
		op.finish(fmt.Errorf("%w: empty id", ErrInvalidProduct), false)
		return op
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		op.finish(ErrStoreClosed, false)
		return op
	}
	s.issueLocked(op)
	s.mu.Unlock()

	s.run(op, func(ctx context.Context) (*cartapi.CartResponse, error) {
		return s.api.RemoveItem(ctx, cartapi.RemoveItemRequest{ProductID: productID})
	})
	return op
}

// TotalPrice is the sum of price * quantity over the current lines
func (s *Store) TotalPrice() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return TotalOf(s.lines)
}

// Lines returns a copy of the current lines in display order
func (s *Store) Lines() []Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneLines(s.lines)
}

func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

func (s *Store) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe registers fn to receive a snapshot after every state change.
// fn runs on the goroutine that made the change; compare Version to drop
// snapshots that arrive late.
func (s *Store) Subscribe(fn func(Snapshot)) (cancel func()) {
	s.mu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Close tears the store down. Responses still in flight are discarded and
// later calls complete with ErrStoreClosed. Requests are not aborted.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.log.Debug("Cart store closed", logger.Fields{"inflight": len(s.inflight)})
}

// Drain waits for every operation in flight at the time of the call
func (s *Store) Drain(ctx context.Context) error {
	s.mu.Lock()
	pending := make([]*Operation, 0, len(s.inflight))
	for _, op := range s.inflight {
		pending = append(pending, op)
	}
	s.mu.Unlock()

	for _, op := range pending {
		select {
		case <-op.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (s *Store) issueLocked(op *Operation) {
	s.issued++
	op.seq = s.issued
	op.confirmations = s.confirmations
	s.inflight[op.ID] = op
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		Lines:   cloneLines(s.lines),
		Loading: s.loading,
		Phase:   s.phase,
		Total:   TotalOf(s.lines),
		Version: s.version,
	}
}

func (s *Store) changedLocked() Snapshot {
	s.version++
	return s.snapshotLocked()
}

func (s *Store) notify(snap Snapshot) {
	s.mu.Lock()
	fns := make([]func(Snapshot), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

func (s *Store) run(op *Operation, call func(ctx context.Context) (*cartapi.CartResponse, error)) {
	go func() {
		var (
			resp *cartapi.CartResponse
			err  error
		)
		func() {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("cart service call panicked: %v", r)
				}
			}()
			ctx, cancel := context.WithTimeout(cartapi.WithRequestID(context.Background(), op.ID), s.opts.requestTimeout)
			defer cancel()
			resp, err = call(ctx)
		}()

		var fallback []Line
		if err != nil && op.Kind == KindHydrate && s.opts.snapshotFallback && s.opts.cache != nil {
			fallback = s.loadSnapshot()
		}
		s.complete(op, resp, err, fallback)
	}()
}

func (s *Store) complete(op *Operation, resp *cartapi.CartResponse, err error, fallback []Line) {
	fields := logger.Fields{
		"op_id":      op.ID,
		"kind":       string(op.Kind),
		"product_id": op.ProductID,
		"seq":        op.seq,
	}

	s.mu.Lock()
	delete(s.inflight, op.ID)

	changed := false
	if op.Kind == KindHydrate && s.loading {
		s.loading = false
		changed = true
	}

	if s.closed {
		s.mu.Unlock()
		s.log.Debug("Discarding response for closed store", fields)
		op.finish(err, false)
		return
	}

	if err == nil && resp == nil {
		err = fmt.Errorf("%w: empty response", cartapi.ErrMalformedResponse)
	}

	if err != nil {
		if op.delta != 0 && s.opts.failure == RollbackOptimistic && s.confirmations == op.confirmations {
			s.lines = applyDelta(s.lines, op.ProductID, -op.delta, nil)
			changed = true
			fields["rolled_back"] = true
		}
		// version 0 means no local change yet, so the fallback hides no guess
		if fallback != nil && s.confirmations == 0 && s.version == 0 {
			s.lines = fallback
			s.phase = PhasePending
			changed = true
			fields["snapshot_fallback"] = len(fallback)
		} else if fallback != nil {
			fields["snapshot_fallback_skipped"] = true
		}
		var snap Snapshot
		if changed {
			snap = s.changedLocked()
		}
		s.mu.Unlock()

		s.log.Error("Cart operation failed", err, fields)
		if changed {
			s.notify(snap)
		}
		op.finish(err, false)
		return
	}

	if s.opts.reconcile == ReconcileLatestIssued && op.seq < s.lastApplied {
		fields["last_applied"] = s.lastApplied
		var snap Snapshot
		if changed {
			snap = s.changedLocked()
		}
		s.mu.Unlock()

		s.log.Debug("Discarding stale cart response", fields)
		if changed {
			s.notify(snap)
		}
		op.finish(nil, false)
		return
	}

	s.lines = linesFromItems(resp.Items)
	s.phase = PhaseConfirmed
	s.lastApplied = op.seq
	s.confirmations++
	snap := s.changedLocked()
	s.mu.Unlock()

	fields["count"] = len(snap.Lines)
	s.log.Debug("Cart reconciled with service response", fields)
	s.notify(snap)
	s.saveSnapshot(snap)
	op.finish(nil, true)
}
