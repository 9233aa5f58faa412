package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ignatzorin/gig-marketplace/internal/pkg/apperror"
)

// HTTPVerifier проверяет id_token у внешнего провайдера и получает телефон.
type HTTPVerifier struct {
	url        string
	apiKey     string
	httpClient *http.Client
}

func NewHTTPVerifier(url, apiKey string, timeout time.Duration) *HTTPVerifier {
	return &HTTPVerifier{
		url:        url,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type verifyResponse struct {
	Valid       bool   `json:"valid"`
	PhoneNumber string `json:"phone_number"`
	Error       string `json:"error"`
}

func (v *HTTPVerifier) VerifyPhoneToken(ctx context.Context, idToken string) (string, error) {
	raw, err := json.Marshal(map[string]string{"id_token": idToken})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.url, bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("identity: не удалось создать запрос: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if v.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+v.apiKey)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("identity: запрос к провайдеру: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", apperror.New(apperror.ErrCodeUnauthorized, "токен подтверждения телефона недействителен")
	case resp.StatusCode >= http.StatusInternalServerError:
		return "", fmt.Errorf("identity: провайдер ответил HTTP %d", resp.StatusCode)
	}

	var body verifyResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body); err != nil {
		return "", fmt.Errorf("identity: не удалось разобрать ответ: %w", err)
	}
	if !body.Valid || body.PhoneNumber == "" {
		return "", apperror.New(apperror.ErrCodeUnauthorized, "токен подтверждения телефона недействителен")
	}
	return body.PhoneNumber, nil
}

// DevVerifier принимает токены вида "dev:+77001234567". Только для development.
type DevVerifier struct{}

const devPrefix = "dev:"

func (DevVerifier) VerifyPhoneToken(ctx context.Context, idToken string) (string, error) {
	phone, ok := strings.CutPrefix(idToken, devPrefix)
	if !ok || phone == "" {
		return "", apperror.New(apperror.ErrCodeUnauthorized, "токен подтверждения телефона недействителен")
	}
	return phone, nil
}
