package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront/internal/app/model"
	"github.com/ikkim/storefront/internal/app/service"
	apperrors "github.com/ikkim/storefront/internal/errors"
	"github.com/ikkim/storefront/internal/middleware"
	"github.com/ikkim/storefront/pkg/cartapi"
)

type CartController struct {
	cartService service.CartService
}

func NewCartController(cartService service.CartService) *CartController {
	return &CartController{
		cartService: cartService,
	}
}

// AddToCartRequest accepts productId as a JSON string or number. Quantity
// is a non-zero delta.
type AddToCartRequest struct {
	ProductID cartapi.ProductID `json:"productId" binding:"required"`
	Quantity  int               `json:"quantity" binding:"required"`
}

type RemoveFromCartRequest struct {
	ProductID cartapi.ProductID `json:"productId" binding:"required"`
}

// GetCart returns the user's cart
// GET /api/cart
func (ctrl *CartController) GetCart(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apperrors.Unauthorized(c, "")
		return
	}

	items, err := ctrl.cartService.GetUserCart(userID)
	if err != nil {
		log.Error("Failed to fetch cart", err, map[string]interface{}{
			"user_id": userID,
		})
		apperrors.InternalError(c, "Failed to fetch cart")
		return
	}

	respondWithCart(c, items)
}

// AddToCart applies a quantity delta and returns the full cart
// POST /api/cart/add
func (ctrl *CartController) AddToCart(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apperrors.Unauthorized(c, "")
		return
	}

	var req AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid add to cart request", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		apperrors.RespondWithValidationError(c, map[string]string{
			"productId": "required",
			"quantity":  "non-zero integer",
		})
		return
	}

	items, err := ctrl.cartService.AddToCart(userID, string(req.ProductID), req.Quantity)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrProductNotFound):
			apperrors.NotFound(c, apperrors.CartProductNotFound, "Product not found")
		case errors.Is(err, service.ErrInvalidQuantity):
			apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Quantity must be a non-zero integer")
		default:
			log.Error("Failed to add item to cart", err, map[string]interface{}{
				"user_id":    userID,
				"product_id": req.ProductID,
			})
			apperrors.InternalError(c, "Failed to add item to cart")
		}
		return
	}

	respondWithCart(c, items)
}

// RemoveFromCart drops a product line and returns the full cart
// DELETE /api/cart/remove
func (ctrl *CartController) RemoveFromCart(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apperrors.Unauthorized(c, "")
		return
	}

	var req RemoveFromCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.RespondWithValidationError(c, map[string]string{
			"productId": "required",
		})
		return
	}

	items, err := ctrl.cartService.RemoveFromCart(userID, string(req.ProductID))
	if err != nil {
		log.Error("Failed to remove item from cart", err, map[string]interface{}{
			"user_id":    userID,
			"product_id": req.ProductID,
		})
		apperrors.InternalError(c, "Failed to remove item from cart")
		return
	}

	respondWithCart(c, items)
}

func respondWithCart(c *gin.Context, items []model.CartItem) {
	c.JSON(http.StatusOK, newCartResponse(items))
}
