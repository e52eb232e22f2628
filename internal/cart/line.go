package cart

import (
	"fmt"

	"github.com/ikkim/storefront/pkg/cartapi"
	"github.com/shopspring/decimal"
)

// Line is one product-quantity pairing in the cart
type Line struct {
	ProductID string          `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Image     string          `json:"image"`
	Quantity  int             `json:"quantity"`
}

// Subtotal is Price * Quantity
func (l Line) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Product is what the presentation layer hands to AddItem
type Product struct {
	ID    string
	Name  string
	Price decimal.Decimal
	Image string
}

// Phase tells whether the visible lines equal the last applied service
// response (PhaseConfirmed). PhasePending covers every other state: before
// the first successful response, after a snapshot fallback, and while an
// optimistic change is unconfirmed.
type Phase string

const (
	PhaseConfirmed Phase = "confirmed"
	PhasePending   Phase = "pending"
)

// Snapshot is an immutable copy of the store state
type Snapshot struct {
	Lines   []Line
	Loading bool
	Phase   Phase
	Total   decimal.Decimal
	Version uint64
}

// TotalOf sums price * quantity over lines. Empty input yields zero.
func TotalOf(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

func cloneLines(lines []Line) []Line {
	out := make([]Line, len(lines))
	copy(out, lines)
	return out
}

func indexOf(lines []Line, productID string) int {
	for i := range lines {
		if lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// applyDelta returns a copy of lines with delta added to productID's quantity.
// A missing line is appended from seed when delta is positive; a line whose
// quantity drops below 1 is removed.
func applyDelta(lines []Line, productID string, delta int, seed *Product) []Line {
	out := cloneLines(lines)
	i := indexOf(out, productID)
	if i < 0 {
		if delta <= 0 || seed == nil {
			return out
		}
		return append(out, Line{
			ProductID: seed.ID,
			Name:      seed.Name,
			Price:     seed.Price,
			Image:     seed.Image,
			Quantity:  delta,
		})
	}

	out[i].Quantity += delta
	if out[i].Quantity < 1 {
		out = append(out[:i], out[i+1:]...)
	}
	return out
}

func linesFromItems(items []cartapi.Item) []Line {
	lines := make([]Line, 0, len(items))
	for _, item := range items {
		lines = append(lines, Line{
			ProductID: string(item.ID),
			Name:      item.Name,
			Price:     item.Price,
			Image:     item.Image,
			Quantity:  item.Quantity,
		})
	}
	return lines
}

// validateLines checks the invariants every line set must hold: ids
// non-empty and unique, quantity >= 1, price >= 0.
func validateLines(lines []Line) error {
	seen := make(map[string]struct{}, len(lines))
	for i, l := range lines {
		if l.ProductID == "" {
			return fmt.Errorf("%w: line %d has no id", ErrCorruptSnapshot, i)
		}
		if _, dup := seen[l.ProductID]; dup {
			return fmt.Errorf("%w: duplicate line %s", ErrCorruptSnapshot, l.ProductID)
		}
		seen[l.ProductID] = struct{}{}
		if l.Quantity < 1 {
			return fmt.Errorf("%w: line %s has quantity %d", ErrCorruptSnapshot, l.ProductID, l.Quantity)
		}
		if l.Price.IsNegative() {
			return fmt.Errorf("%w: line %s has negative price", ErrCorruptSnapshot, l.ProductID)
		}
	}
	return nil
}
