package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/ignatzorin/gig-marketplace/internal/domain/repository"
)

// SignatureHeader: заголовок с HMAC-SHA512 подписью тела callback запроса.
const SignatureHeader = "X-Gateway-Signature"

// Client работает с HTTP API платёжного шлюза.
type Client struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
	limiter    *rate.Limiter
}

type apiResponse struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type initializeData struct {
	AuthorizationURL string `json:"authorization_url"`
	Reference        string `json:"reference"`
}

type verifyData struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
	Amount    int64  `json:"amount"`
}

// NewClient создаёт клиент. rps ограничивает исходящие запросы, 0: без ограничения.
func NewClient(baseURL, secretKey string, rps float64, timeout time.Duration) *Client {
	limit := rate.Inf
	burst := 1
	if rps > 0 {
		limit = rate.Limit(rps)
		burst = int(rps)
		if burst < 1 {
			burst = 1
		}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		secretKey:  secretKey,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(limit, burst),
	}
}

func (c *Client) InitializeCharge(ctx context.Context, req repository.ChargeRequest) (*repository.Charge, error) {
	payload := map[string]any{
		"reference":    req.Reference,
		"amount":       req.Amount,
		"customer_id":  req.CustomerID.String(),
		"callback_url": req.CallbackURL,
	}
	var data initializeData
	if err := c.do(ctx, http.MethodPost, "/charges/initialize", payload, &data); err != nil {
		return nil, err
	}
	if data.AuthorizationURL == "" {
		return nil, fmt.Errorf("gateway: пустой authorization_url для %s", req.Reference)
	}
	reference := data.Reference
	if reference == "" {
		reference = req.Reference
	}
	return &repository.Charge{Reference: reference, AuthorizationURL: data.AuthorizationURL}, nil
}

func (c *Client) VerifyCharge(ctx context.Context, reference string) (*repository.ChargeStatus, error) {
	var data verifyData
	if err := c.do(ctx, http.MethodGet, "/charges/verify/"+url.PathEscape(reference), nil, &data); err != nil {
		return nil, err
	}
	if data.Reference == "" {
		data.Reference = reference
	}
	return &repository.ChargeStatus{Reference: data.Reference, Status: data.Status, Amount: data.Amount}, nil
}

func (c *Client) Refund(ctx context.Context, reference string, amount int64) error {
	payload := map[string]any{
		"reference": reference,
		"amount":    amount,
	}
	return c.do(ctx, http.MethodPost, "/refunds", payload, nil)
}

// VerifySignature сверяет подпись callback запроса с секретным ключом.
func (c *Client) VerifySignature(body []byte, signature string) bool {
	return VerifySignature(c.secretKey, body, signature)
}

func VerifySignature(secret string, body []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	expected, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return false
	}
	return hmac.Equal(expected, sign(secret, body))
}

// Sign возвращает hex-подпись тела, как её считает шлюз.
func Sign(secret string, body []byte) string {
	return hex.EncodeToString(sign(secret, body))
}

func sign(secret string, body []byte) []byte {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return mac.Sum(nil)
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload any, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("gateway: ожидание лимита: %w", err)
	}

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("gateway: не удалось сериализовать запрос: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return fmt.Errorf("gateway: не удалось создать запрос: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gateway: %s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("gateway: %s %s: %w", method, endpoint, repository.ErrChargeNotFound)
	}

	var result apiResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&result); err != nil {
		return fmt.Errorf("gateway: не удалось разобрать ответ (HTTP %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode >= http.StatusBadRequest || !result.Status {
		return fmt.Errorf("gateway: HTTP %d: %s", resp.StatusCode, result.Message)
	}
	if out != nil && len(result.Data) > 0 {
		if err := json.Unmarshal(result.Data, out); err != nil {
			return fmt.Errorf("gateway: не удалось разобрать data: %w", err)
		}
	}
	return nil
}
