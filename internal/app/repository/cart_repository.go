package repository

import (
	"time"

	"github.com/ikkim/storefront/internal/app/model"
	"github.com/ikkim/storefront/pkg/logger"
	"gorm.io/gorm"
)

type CartRepository interface {
	FindByUserID(userID uint) ([]model.CartItem, error)
	FindByUserAndProduct(userID uint, productID string) (*model.CartItem, error)
	AddQuantity(userID uint, productID string, delta int) error
	DeleteByUserAndProduct(userID uint, productID string) (bool, error)
	DeleteStaleBefore(cutoff time.Time) (int64, error)
}

type cartRepository struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) CartRepository {
	return &cartRepository{db: db}
}

// FindByUserID returns the user's lines in insertion order
func (r *cartRepository) FindByUserID(userID uint) ([]model.CartItem, error) {
	logger.Debug("Finding cart items by user ID in database", logger.Fields{
		"user_id": userID,
	})

	var cartItems []model.CartItem
	err := r.db.Where("user_id = ?", userID).
		Preload("Product").
		Order("id ASC").
		Find(&cartItems).Error
	if err != nil {
		logger.Error("Failed to find cart items by user ID in database", err, logger.Fields{
			"user_id": userID,
		})
		return nil, err
	}

	logger.Debug("Cart items found by user ID in database", logger.Fields{
		"user_id": userID,
		"count":   len(cartItems),
	})
	return cartItems, nil
}

func (r *cartRepository) FindByUserAndProduct(userID uint, productID string) (*model.CartItem, error) {
	var cartItem model.CartItem
	err := r.db.Where("user_id = ? AND product_id = ?", userID, productID).
		First(&cartItem).Error
	if err != nil {
		return nil, err
	}
	return &cartItem, nil
}

// AddQuantity applies delta to the (user, product) line in one transaction.
// A missing line is created when delta is positive; a line whose quantity
// drops to zero or below is deleted.
func (r *cartRepository) AddQuantity(userID uint, productID string, delta int) error {
	fields := logger.Fields{
		"user_id":    userID,
		"product_id": productID,
		"delta":      delta,
	}
	logger.Debug("Applying cart quantity delta in database", fields)

	err := r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.CartItem{}).
			Where("user_id = ? AND product_id = ?", userID, productID).
			Updates(map[string]interface{}{
				"quantity":   gorm.Expr("quantity + ?", delta),
				"updated_at": time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected == 0 {
			if delta <= 0 {
				return nil
			}
			return tx.Create(&model.CartItem{
				UserID:    userID,
				ProductID: productID,
				Quantity:  delta,
			}).Error
		}

		return tx.Where("user_id = ? AND product_id = ? AND quantity <= 0", userID, productID).
			Delete(&model.CartItem{}).Error
	})
	if err != nil {
		logger.Error("Failed to apply cart quantity delta in database", err, fields)
		return err
	}
	return nil
}

// DeleteByUserAndProduct reports whether a line existed
func (r *cartRepository) DeleteByUserAndProduct(userID uint, productID string) (bool, error) {
	res := r.db.Where("user_id = ? AND product_id = ?", userID, productID).Delete(&model.CartItem{})
	if res.Error != nil {
		logger.Error("Failed to delete cart item from database", res.Error, logger.Fields{
			"user_id":    userID,
			"product_id": productID,
		})
		return false, res.Error
	}

	logger.Debug("Cart item deleted from database", logger.Fields{
		"user_id":    userID,
		"product_id": productID,
		"deleted":    res.RowsAffected,
	})
	return res.RowsAffected > 0, nil
}

// DeleteStaleBefore removes every line not touched since cutoff
func (r *cartRepository) DeleteStaleBefore(cutoff time.Time) (int64, error) {
	res := r.db.Where("updated_at < ?", cutoff).Delete(&model.CartItem{})
	if res.Error != nil {
		logger.Error("Failed to delete stale cart items from database", res.Error, logger.Fields{
			"cutoff": cutoff,
		})
		return 0, res.Error
	}

	logger.Debug("Stale cart items deleted from database", logger.Fields{
		"cutoff":  cutoff,
		"deleted": res.RowsAffected,
	})
	return res.RowsAffected, nil
}
