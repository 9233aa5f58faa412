package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/gig-marketplace/internal/domain/repository"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "sk_test", 0, time.Second)
}

func TestClient_InitializeCharge(t *testing.T) {
	customer := uuid.New()
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/charges/initialize", r.URL.Path)
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gw:1", body["reference"])
		assert.Equal(t, float64(1500), body["amount"])
		assert.Equal(t, customer.String(), body["customer_id"])

		_, _ = w.Write([]byte(`{"status":true,"message":"ok","data":{"authorization_url":"https://pay.example/abc","reference":"gw:1"}}`))
	})

	charge, err := c.InitializeCharge(context.Background(), repository.ChargeRequest{
		Reference:   "gw:1",
		Amount:      1500,
		CustomerID:  customer,
		CallbackURL: "https://api.example/callback",
	})
	require.NoError(t, err)
	assert.Equal(t, "gw:1", charge.Reference)
	assert.Equal(t, "https://pay.example/abc", charge.AuthorizationURL)
}

func TestClient_VerifyCharge(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/charges/verify/gw:2", r.URL.Path)
		_, _ = w.Write([]byte(`{"status":true,"data":{"reference":"gw:2","status":"success","amount":700}}`))
	})

	status, err := c.VerifyCharge(context.Background(), "gw:2")
	require.NoError(t, err)
	assert.Equal(t, repository.ChargeSuccess, status.Status)
	assert.Equal(t, int64(700), status.Amount)
}

func TestClient_Errors(t *testing.T) {
	t.Run("http status", func(t *testing.T) {
		c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`{"status":false,"message":"upstream down"}`))
		})
		err := c.Refund(context.Background(), "gw:3", 100)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "upstream down")
	})

	t.Run("status false", func(t *testing.T) {
		c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"status":false,"message":"duplicate reference"}`))
		})
		_, err := c.InitializeCharge(context.Background(), repository.ChargeRequest{Reference: "gw:4", Amount: 1})
		assert.Error(t, err)
	})

	t.Run("unknown reference", func(t *testing.T) {
		c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})
		_, err := c.VerifyCharge(context.Background(), "gw:7")
		assert.ErrorIs(t, err, repository.ErrChargeNotFound)
	})

	t.Run("broken body", func(t *testing.T) {
		c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<html>`))
		})
		_, err := c.VerifyCharge(context.Background(), "gw:5")
		assert.Error(t, err)
	})

	t.Run("context cancelled", func(t *testing.T) {
		c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"status":true}`))
		})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.Error(t, c.Refund(ctx, "gw:6", 1))
	})
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"reference":"gw:1","status":"success","amount":1000}`)
	sig := Sign("sk_test", body)

	c := NewClient("http://unused", "sk_test", 5, time.Second)
	assert.True(t, c.VerifySignature(body, sig))
	assert.False(t, c.VerifySignature(body, Sign("other", body)))
	assert.False(t, c.VerifySignature([]byte(`{"amount":1}`), sig))
	assert.False(t, c.VerifySignature(body, "not-hex"))
	assert.False(t, c.VerifySignature(body, ""))
	assert.False(t, VerifySignature("", body, sig))
}
