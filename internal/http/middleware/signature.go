package middleware

import (
	"bytes"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/gig-marketplace/internal/interface/http/response"
	"github.com/ignatzorin/gig-marketplace/internal/logger"
)

const maxCallbackBody = 1 << 20

// SignatureVerifier проверяет подпись тела запроса от внешнего сервиса.
type SignatureVerifier interface {
	VerifySignature(body []byte, signature string) bool
}

// GatewaySignature отклоняет callback без корректной подписи в заголовке header.
// Тело возвращается в запрос для дальнейшего разбора.
func GatewaySignature(verifier SignatureVerifier, header string) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxCallbackBody))
		if err != nil {
			response.BadRequest(c, "не удалось прочитать тело запроса")
			return
		}
		if !verifier.VerifySignature(body, c.GetHeader(header)) {
			logger.Log.WithField("client_ip", c.ClientIP()).Warn("callback с неверной подписью")
			response.Unauthorized(c, "неверная подпись")
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		c.Next()
	}
}
