package service

import (
	"errors"
	"time"

	"github.com/ikkim/storefront/internal/app/model"
	"github.com/ikkim/storefront/internal/app/repository"
	"github.com/ikkim/storefront/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be a non-zero delta")
)

// CartService answers every mutation with the user's full cart
type CartService interface {
	GetUserCart(userID uint) ([]model.CartItem, error)
	AddToCart(userID uint, productID string, delta int) ([]model.CartItem, error)
	RemoveFromCart(userID uint, productID string) ([]model.CartItem, error)
	PurgeStaleCarts(retention time.Duration) (int64, error)
}

type cartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	now         func() time.Time
}

func NewCartService(cartRepo repository.CartRepository, productRepo repository.ProductRepository) CartService {
	return &cartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
		now:         time.Now,
	}
}

// GetUserCart returns the user's lines in insertion order. Lines whose
// product has left the catalog are skipped.
func (s *cartService) GetUserCart(userID uint) ([]model.CartItem, error) {
	cartItems, err := s.cartRepo.FindByUserID(userID)
	if err != nil {
		logger.Error("Failed to fetch user cart", err, logger.Fields{
			"user_id": userID,
		})
		return nil, err
	}

	visible := cartItems[:0]
	for _, item := range cartItems {
		if item.Product.ID == "" {
			continue
		}
		visible = append(visible, item)
	}

	logger.Debug("User cart fetched", logger.Fields{
		"user_id": userID,
		"count":   len(visible),
	})
	return visible, nil
}

// AddToCart adds delta to the product's line. A resulting quantity of zero
// or less removes the line.
func (s *cartService) AddToCart(userID uint, productID string, delta int) ([]model.CartItem, error) {
	fields := logger.Fields{
		"user_id":    userID,
		"product_id": productID,
		"delta":      delta,
	}
	logger.Info("Adding item to cart", fields)

	if delta == 0 {
		return nil, ErrInvalidQuantity
	}

	if _, err := s.productRepo.FindByID(productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Cannot add to cart: product not found", fields)
			return nil, ErrProductNotFound
		}
		logger.Error("Failed to fetch product", err, fields)
		return nil, err
	}

	err := s.cartRepo.AddQuantity(userID, productID, delta)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// a concurrent add created the line first
		err = s.cartRepo.AddQuantity(userID, productID, delta)
	}
	if err != nil {
		logger.Error("Failed to update cart", err, fields)
		return nil, err
	}

	return s.GetUserCart(userID)
}

// RemoveFromCart drops the product's line. Removing an absent line is not an
// error.
func (s *cartService) RemoveFromCart(userID uint, productID string) ([]model.CartItem, error) {
	fields := logger.Fields{
		"user_id":    userID,
		"product_id": productID,
	}

	deleted, err := s.cartRepo.DeleteByUserAndProduct(userID, productID)
	if err != nil {
		logger.Error("Failed to remove cart item", err, fields)
		return nil, err
	}
	fields["deleted"] = deleted
	logger.Info("Cart item removed", fields)

	return s.GetUserCart(userID)
}

// PurgeStaleCarts deletes lines untouched for longer than retention
func (s *cartService) PurgeStaleCarts(retention time.Duration) (int64, error) {
	cutoff := s.now().Add(-retention)
	deleted, err := s.cartRepo.DeleteStaleBefore(cutoff)
	if err != nil {
		return 0, err
	}

	logger.Info("Stale cart lines purged", logger.Fields{
		"cutoff":  cutoff,
		"deleted": deleted,
	})
	return deleted, nil
}
