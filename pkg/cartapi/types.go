package cartapi

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// ProductID is an opaque catalog identifier. The wire form may be a JSON
// string or a JSON number; both decode to the same textual id.
type ProductID string

func (id *ProductID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ProductID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("product id must be a string or number: %w", err)
	}
	*id = ProductID(n.String())
	return nil
}

// Item is one cart line as the service returns it
type Item struct {
	ID       ProductID       `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
	Image    string          `json:"image"`
}

// CartResponse is the body of every cart endpoint
type CartResponse struct {
	Items []Item `json:"items"`
}

// AddItemRequest adds Quantity (a delta, may be negative) of a product
type AddItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// RemoveItemRequest removes a product line entirely
type RemoveItemRequest struct {
	ProductID string `json:"productId"`
}

// Product is a catalog entry
type Product struct {
	ID          ProductID       `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image"`
}

type productListResponse struct {
	Products []Product `json:"products"`
}

// LoginRequest represents the request body of the login endpoint
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// User is the profile returned alongside a login token
type User struct {
	ID    uint   `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// LoginResponse represents the response from the login endpoint
type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// errorResponse is the service's standard error body
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// decodeCart parses a cart body and checks the invariants a client relies
// on: items present, ids non-empty and unique, quantity >= 1, price >= 0.
func decodeCart(body []byte) (*CartResponse, error) {
	var raw struct {
		Items *[]Item `json:"items"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if raw.Items == nil {
		return nil, fmt.Errorf("%w: missing items", ErrMalformedResponse)
	}

	seen := make(map[ProductID]struct{}, len(*raw.Items))
	for i, item := range *raw.Items {
		if item.ID == "" {
			return nil, fmt.Errorf("%w: item %d has no id", ErrMalformedResponse, i)
		}
		if _, dup := seen[item.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate item %s", ErrMalformedResponse, item.ID)
		}
		seen[item.ID] = struct{}{}
		if item.Quantity < 1 {
			return nil, fmt.Errorf("%w: item %s has quantity %d", ErrMalformedResponse, item.ID, item.Quantity)
		}
		if item.Price.IsNegative() {
			return nil, fmt.Errorf("%w: item %s has negative price", ErrMalformedResponse, item.ID)
		}
	}

	return &CartResponse{Items: *raw.Items}, nil
}
