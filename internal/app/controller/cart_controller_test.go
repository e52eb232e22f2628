package controller

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront/internal/app/model"
	"github.com/ikkim/storefront/internal/app/repository"
	"github.com/ikkim/storefront/internal/app/service"
	"github.com/ikkim/storefront/internal/db"
	apperrors "github.com/ikkim/storefront/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCartControllerTest(t *testing.T) (*gin.Engine, *model.User) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })
	require.NoError(t, db.Seed(testDB))

	user := &model.User{
		Email:        "test@example.com",
		PasswordHash: "hash",
		Name:         "Test User",
		Role:         model.RoleUser,
	}
	require.NoError(t, testDB.Create(user).Error)

	cartService := service.NewCartService(repository.NewCartRepository(testDB), repository.NewProductRepository(testDB))
	ctrl := NewCartController(cartService)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	authed := router.Group("/cart", func(c *gin.Context) {
		setUserIDInContext(c, user.ID)
	})
	authed.GET("", ctrl.GetCart)
	authed.POST("/add", ctrl.AddToCart)
	authed.DELETE("/remove", ctrl.RemoveFromCart)

	anonymous := router.Group("/anon")
	anonymous.GET("/cart", ctrl.GetCart)
	anonymous.POST("/cart/add", ctrl.AddToCart)

	return router, user
}

func setUserIDInContext(c *gin.Context, userID uint) {
	c.Set("user_id", userID)
}

func sendJSON(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeCart(t *testing.T, w *httptest.ResponseRecorder) CartResponse {
	var resp CartResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestCartController_GetCart_Empty(t *testing.T) {
	router, _ := setupCartControllerTest(t)

	w := sendJSON(router, http.MethodGet, "/cart", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"items":[]}`, w.Body.String())
}

func TestCartController_AddToCart_ReturnsFullCart(t *testing.T) {
	router, _ := setupCartControllerTest(t)

	w := sendJSON(router, http.MethodPost, "/cart/add", `{"productId":"1","quantity":1}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = sendJSON(router, http.MethodPost, "/cart/add", `{"productId":7,"quantity":2}`)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeCart(t, w)
	require.Len(t, resp.Items, 2)
	assert.Equal(t, CartItemResponse{
		ID:       "1",
		Name:     "Modern Dining Set",
		Price:    899,
		Quantity: 1,
		Image:    "/images/dining-set.jpg",
	}, resp.Items[0])
	assert.Equal(t, "7", resp.Items[1].ID)
	assert.Equal(t, 2, resp.Items[1].Quantity)
}

func TestCartController_AddToCart_PriceIsNumber(t *testing.T) {
	router, _ := setupCartControllerTest(t)

	w := sendJSON(router, http.MethodPost, "/cart/add", `{"productId":"9","quantity":1}`)
	require.Equal(t, http.StatusOK, w.Code)

	var raw map[string][]map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	assert.Equal(t, float64(39), raw["items"][0]["price"])
}

func TestCartController_AddToCart_NegativeDelta(t *testing.T) {
	router, _ := setupCartControllerTest(t)

	sendJSON(router, http.MethodPost, "/cart/add", `{"productId":"1","quantity":2}`)
	w := sendJSON(router, http.MethodPost, "/cart/add", `{"productId":"1","quantity":-2}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decodeCart(t, w).Items)
}

func TestCartController_AddToCart_Errors(t *testing.T) {
	router, _ := setupCartControllerTest(t)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{name: "Unknown product", body: `{"productId":"999","quantity":1}`, wantStatus: http.StatusNotFound, wantCode: apperrors.CartProductNotFound},
		{name: "Zero quantity", body: `{"productId":"1","quantity":0}`, wantStatus: http.StatusBadRequest, wantCode: apperrors.ValidationInvalidInput},
		{name: "Missing product", body: `{"quantity":1}`, wantStatus: http.StatusBadRequest, wantCode: apperrors.ValidationInvalidInput},
		{name: "Not JSON", body: `nope`, wantStatus: http.StatusBadRequest, wantCode: apperrors.ValidationInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := sendJSON(router, http.MethodPost, "/cart/add", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)

			var body apperrors.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body.Error)
		})
	}
}

func TestCartController_RemoveFromCart(t *testing.T) {
	router, _ := setupCartControllerTest(t)

	sendJSON(router, http.MethodPost, "/cart/add", `{"productId":"1","quantity":1}`)
	sendJSON(router, http.MethodPost, "/cart/add", `{"productId":"2","quantity":1}`)

	w := sendJSON(router, http.MethodDelete, "/cart/remove", `{"productId":"1"}`)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeCart(t, w)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "2", resp.Items[0].ID)
}

func TestCartController_RemoveFromCart_AbsentIsNoop(t *testing.T) {
	router, _ := setupCartControllerTest(t)

	sendJSON(router, http.MethodPost, "/cart/add", `{"productId":"2","quantity":1}`)

	w := sendJSON(router, http.MethodDelete, "/cart/remove", `{"productId":"5"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeCart(t, w).Items, 1)
}

func TestCartController_Unauthorized(t *testing.T) {
	router, _ := setupCartControllerTest(t)

	w := sendJSON(router, http.MethodGet, "/anon/cart", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = sendJSON(router, http.MethodPost, "/anon/cart/add", `{"productId":"1","quantity":1}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
