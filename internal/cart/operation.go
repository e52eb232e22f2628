package cart

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrStoreClosed completes operations issued after Close
	ErrStoreClosed = errors.New("cart store closed")

	// ErrInvalidProduct completes AddItem calls with an empty id or negative price
	ErrInvalidProduct = errors.New("invalid product")

	// ErrNotDecrementable completes DecrementItem when the line is absent or at quantity 1
	ErrNotDecrementable = errors.New("line cannot be decremented")
)

// Kind names the remote call behind an Operation
type Kind string

const (
	KindHydrate   Kind = "hydrate"
	KindAdd       Kind = "add"
	KindDecrement Kind = "decrement"
	KindRemove    Kind = "remove"
)

// Operation is the handle for one asynchronous cart call. Failures are
// reported here and in the log; they never panic or block the caller.
type Operation struct {
	ID        string
	Kind      Kind
	ProductID string

	seq           uint64
	confirmations uint64
	delta         int

	done    chan struct{}
	once    sync.Once
	err     error
	applied bool
}

func newOperation(id string, kind Kind, productID string) *Operation {
	return &Operation{
		ID:        id,
		Kind:      kind,
		ProductID: productID,
		done:      make(chan struct{}),
	}
}

func (o *Operation) finish(err error, applied bool) {
	o.once.Do(func() {
		o.err = err
		o.applied = applied
		close(o.done)
	})
}

// Done is closed when the operation has completed
func (o *Operation) Done() <-chan struct{} {
	return o.done
}

// Wait blocks until the operation completes or ctx ends
func (o *Operation) Wait(ctx context.Context) error {
	select {
	case <-o.done:
		return o.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err is the remote failure, nil on success or while still in flight
func (o *Operation) Err() error {
	select {
	case <-o.done:
		return o.err
	default:
		return nil
	}
}

// Applied reports whether the server response replaced the store lines.
// A successful response can still be discarded: the store was closed, or
// a newer operation's response was already applied under ReconcileLatestIssued.
func (o *Operation) Applied() bool {
	select {
	case <-o.done:
		return o.applied
	default:
		return false
	}
}
