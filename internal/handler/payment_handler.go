package handler

import (
	"crypto/subtle"
	"net/http"

	"storefront/internal/config"
	"storefront/internal/middleware"
	"storefront/internal/repository"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

const webhookSecretHeader = "X-Webhook-Secret"

type PaymentHandler struct {
	uc            *usecase.PaymentUsecase
	webhookSecret string
}

func NewPaymentHandler(uc *usecase.PaymentUsecase, webhookSecret string) *PaymentHandler {
	return &PaymentHandler{uc: uc, webhookSecret: webhookSecret}
}

type PaymentIntentRequest struct {
	OrderID int64 `json:"order_id"`
}

type ConfirmPaymentRequest struct {
	PaymentRef string `json:"payment_ref"`
}

// intents はログイン必須、confirm は決済側からのコールバック
func (h *PaymentHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	g := e.Group("/payments")
	g.POST("/intents", h.createIntent, middleware.AuthJWT(cfg), middleware.TokenVersionGuard(userRepo))
	g.POST("/confirm", h.confirm)
}

func (h *PaymentHandler) createIntent(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	var req PaymentIntentRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	out, err := h.uc.CreatePaymentIntent(c.Request().Context(), userID, req.OrderID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *PaymentHandler) confirm(c echo.Context) error {
	if h.webhookSecret != "" {
		got := c.Request().Header.Get(webhookSecretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.webhookSecret)) != 1 {
			return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		}
	}

	var req ConfirmPaymentRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	//再送でも200（already_confirmed=true）
	out, err := h.uc.ConfirmPayment(c.Request().Context(), req.PaymentRef)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
