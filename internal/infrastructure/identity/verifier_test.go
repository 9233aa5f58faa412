package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/gig-marketplace/internal/pkg/apperror"
)

func TestHTTPVerifier(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		switch body["id_token"] {
		case "good":
			_, _ = w.Write([]byte(`{"valid":true,"phone_number":"+77001234567"}`))
		case "revoked":
			w.WriteHeader(http.StatusUnauthorized)
		case "invalid":
			_, _ = w.Write([]byte(`{"valid":false,"error":"expired"}`))
		default:
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer srv.Close()

	v := NewHTTPVerifier(srv.URL, "key", time.Second)
	ctx := context.Background()

	phone, err := v.VerifyPhoneToken(ctx, "good")
	require.NoError(t, err)
	assert.Equal(t, "+77001234567", phone)

	_, err = v.VerifyPhoneToken(ctx, "revoked")
	assert.Equal(t, apperror.ErrCodeUnauthorized, apperror.CodeOf(err))

	_, err = v.VerifyPhoneToken(ctx, "invalid")
	assert.Equal(t, apperror.ErrCodeUnauthorized, apperror.CodeOf(err))

	_, err = v.VerifyPhoneToken(ctx, "boom")
	require.Error(t, err)
	assert.NotEqual(t, apperror.ErrCodeUnauthorized, apperror.CodeOf(err))
}

func TestDevVerifier(t *testing.T) {
	phone, err := DevVerifier{}.VerifyPhoneToken(context.Background(), "dev:+77005554433")
	require.NoError(t, err)
	assert.Equal(t, "+77005554433", phone)

	_, err = DevVerifier{}.VerifyPhoneToken(context.Background(), "+77005554433")
	assert.Equal(t, apperror.ErrCodeUnauthorized, apperror.CodeOf(err))
}
