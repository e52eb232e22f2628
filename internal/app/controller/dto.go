package controller

import (
	"github.com/ikkim/storefront/internal/app/model"
)

// ProductResponse is the public catalog entry. Prices go out as JSON numbers.
type ProductResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Price       float64 `json:"price"`
	Image       string  `json:"image"`
}

// CartItemResponse is one cart line keyed by product id
type CartItemResponse struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
	Image    string  `json:"image"`
}

// CartResponse is the body of every cart endpoint
type CartResponse struct {
	Items []CartItemResponse `json:"items"`
}

func newProductResponse(p model.Product) ProductResponse {
	return ProductResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Category:    string(p.Category),
		Price:       p.Price.InexactFloat64(),
		Image:       p.Image,
	}
}

func newCartResponse(items []model.CartItem) CartResponse {
	out := CartResponse{Items: make([]CartItemResponse, 0, len(items))}
	for _, item := range items {
		out.Items = append(out.Items, CartItemResponse{
			ID:       item.ProductID,
			Name:     item.Product.Name,
			Price:    item.Product.Price.InexactFloat64(),
			Quantity: item.Quantity,
			Image:    item.Product.Image,
		})
	}
	return out
}
