package cartapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ikkim/storefront/pkg/credential"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupClientTest(t *testing.T, handler http.HandlerFunc, creds credential.Provider) *Client {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	if creds == nil {
		creds = credential.StaticProvider("test-token")
	}
	client, err := NewClient(Config{BaseURL: server.URL, Timeout: time.Second}, creds)
	require.NoError(t, err)
	return client
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestNewClient_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "empty base url", cfg: Config{}},
		{name: "relative base url", cfg: Config{BaseURL: "/api"}},
		{name: "negative timeout", cfg: Config{BaseURL: "http://localhost:5000", Timeout: -time.Second}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(tt.cfg, credential.StaticProvider("x"))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}

	_, err := NewClient(Config{BaseURL: "http://localhost:5000"}, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestClient_FetchCart_Success(t *testing.T) {
	client := setupClientTest(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/cart", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get(RequestIDHeader))
		writeJSON(w, http.StatusOK, `{"items":[{"id":"sku-1","name":"Desk","price":299,"quantity":2,"image":"desk.png"},{"id":7,"name":"Organizer","price":"49.50","quantity":1}]}`)
	}, nil)

	cart, err := client.FetchCart(context.Background())
	require.NoError(t, err)
	require.Len(t, cart.Items, 2)
	assert.Equal(t, ProductID("sku-1"), cart.Items[0].ID)
	assert.True(t, decimal.NewFromInt(299).Equal(cart.Items[0].Price))
	assert.Equal(t, 2, cart.Items[0].Quantity)
	assert.Equal(t, ProductID("7"), cart.Items[1].ID)
	assert.True(t, decimal.RequireFromString("49.5").Equal(cart.Items[1].Price))
}

func TestClient_AddItem_SendsBody(t *testing.T) {
	client := setupClientTest(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/cart/add", r.URL.Path)

		var req AddItemRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "sku-1", req.ProductID)
		assert.Equal(t, 1, req.Quantity)

		writeJSON(w, http.StatusOK, `{"items":[{"id":"sku-1","name":"Desk","price":10,"quantity":1}]}`)
	}, nil)

	cart, err := client.AddItem(context.Background(), AddItemRequest{ProductID: "sku-1", Quantity: 1})
	require.NoError(t, err)
	assert.Len(t, cart.Items, 1)
}

func TestClient_RemoveItem_UsesDeleteWithBody(t *testing.T) {
	client := setupClientTest(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/cart/remove", r.URL.Path)

		var req RemoveItemRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "sku-9", req.ProductID)

		writeJSON(w, http.StatusOK, `{"items":[]}`)
	}, nil)

	cart, err := client.RemoveItem(context.Background(), RemoveItemRequest{ProductID: "sku-9"})
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}

func TestClient_TokenReadPerCall(t *testing.T) {
	var seen []string
	store := credential.NewStore("first")
	client := setupClientTest(t, func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, `{"items":[]}`)
	}, store)

	_, err := client.FetchCart(context.Background())
	require.NoError(t, err)
	store.Set("refreshed")
	_, err = client.FetchCart(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"Bearer first", "Bearer refreshed"}, seen)
}

func TestClient_MissingCredential(t *testing.T) {
	called := false
	client := setupClientTest(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	}, credential.NewStore(""))

	_, err := client.FetchCart(context.Background())
	assert.ErrorIs(t, err, ErrCredentialUnavailable)
	assert.False(t, called)
}

func TestClient_StatusMapping(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantErr  error
		wantCode string
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{"error":"AUTH_TOKEN_EXPIRED","message":"expired"}`, wantErr: ErrUnauthorized, wantCode: "AUTH_TOKEN_EXPIRED"},
		{name: "forbidden", status: http.StatusForbidden, body: `{}`, wantErr: ErrUnauthorized},
		{name: "not found", status: http.StatusNotFound, body: `{"error":"CART_PRODUCT_NOT_FOUND","message":"no such product"}`, wantErr: ErrNotFound, wantCode: "CART_PRODUCT_NOT_FOUND"},
		{name: "server error with html", status: http.StatusBadGateway, body: `<html>bad gateway</html>`, wantErr: ErrRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := setupClientTest(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, tt.body)
			}, nil)

			_, err := client.AddItem(context.Background(), AddItemRequest{ProductID: "sku-1", Quantity: 1})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.wantCode, apiErr.Code)
		})
	}
}

func TestClient_MalformedResponses(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: `ok`},
		{name: "missing items", body: `{"cart":[]}`},
		{name: "null items", body: `{"items":null}`},
		{name: "empty id", body: `{"items":[{"id":"","price":1,"quantity":1}]}`},
		{name: "zero quantity", body: `{"items":[{"id":"a","price":1,"quantity":0}]}`},
		{name: "negative price", body: `{"items":[{"id":"a","price":-1,"quantity":1}]}`},
		{name: "duplicate ids", body: `{"items":[{"id":"a","price":1,"quantity":1},{"id":"a","price":1,"quantity":2}]}`},
		{name: "object id", body: `{"items":[{"id":{"x":1},"price":1,"quantity":1}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := setupClientTest(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, tt.body)
			}, nil)

			_, err := client.FetchCart(context.Background())
			assert.ErrorIs(t, err, ErrMalformedResponse)
		})
	}
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	client := setupClientTest(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, nil)
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.FetchCart(ctx)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestClient_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client, err := NewClient(Config{BaseURL: url}, credential.StaticProvider("t"))
	require.NoError(t, err)

	_, err = client.FetchCart(context.Background())
	assert.ErrorIs(t, err, ErrNetworkError)
}

func TestClient_RequestIDFromContext(t *testing.T) {
	client := setupClientTest(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "op-123", r.Header.Get(RequestIDHeader))
		writeJSON(w, http.StatusOK, `{"items":[]}`)
	}, nil)

	_, err := client.FetchCart(WithRequestID(context.Background(), "op-123"))
	require.NoError(t, err)
}

func TestClient_LoginAndProducts(t *testing.T) {
	client := setupClientTest(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/api/auth/login":
			writeJSON(w, http.StatusOK, `{"token":"jwt-token","user":{"id":3,"email":"a@b.c","name":"A"}}`)
		case "/api/products":
			writeJSON(w, http.StatusOK, `{"products":[{"id":"sku-1","name":"Bookshelf","price":129,"category":"Storage"}]}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}, credential.NewStore(""))

	resp, err := client.Login(context.Background(), LoginRequest{Email: "a@b.c", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "jwt-token", resp.Token)
	assert.Equal(t, uint(3), resp.User.ID)

	products, err := client.ListProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Bookshelf", products[0].Name)
}

func TestClient_Logout(t *testing.T) {
	client := setupClientTest(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/auth/logout", r.URL.Path)
		if r.Header.Get("Authorization") != "Bearer test-token" {
			writeJSON(w, http.StatusUnauthorized, `{"error":"AUTH_TOKEN_REVOKED","message":"Session has been logged out"}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"message":"Logged out successfully"}`)
	}, nil)

	require.NoError(t, client.Logout(context.Background()))
}

func TestClient_Logout_NoCredential(t *testing.T) {
	client := setupClientTest(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("request must not be sent without a token")
	}, credential.NewStore(""))

	err := client.Logout(context.Background())
	assert.ErrorIs(t, err, ErrCredentialUnavailable)
}
