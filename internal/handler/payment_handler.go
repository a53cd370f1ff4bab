package handler

import (
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jimmygitz3/final-project/internal/middleware"
	"github.com/jimmygitz3/final-project/internal/model"
	"github.com/jimmygitz3/final-project/internal/mpesa"
	"github.com/jimmygitz3/final-project/internal/service"
)

// maxCallbackBody bounds what is read from a gateway callback.
const maxCallbackBody = 1 << 20

type PaymentHandler struct {
	Svc *service.PaymentService
}

func (h *PaymentHandler) RegisterRoutes(r Routes) {
	r.Public.POST("/payments/mpesa/callback", h.Callback)
	r.Public.GET("/payments/pricing", h.Pricing)
	r.Public.GET("/payments/mpesa/test", h.GatewayStatus)

	r.Protected.POST("/payments/mpesa/initiate", h.Initiate)
	r.Protected.POST("/payments/mpesa/demo-callback", h.CompleteDemo)
	r.Protected.POST("/payments/demo/complete", h.CompleteDemo)
	r.Protected.POST("/payments/mpesa/query", h.QueryBody)
	r.Protected.GET("/payments/mpesa/query/:checkoutRequestId", h.QueryParam)
	r.Protected.GET("/payments/history", h.History)
	r.Protected.GET("/payments/listing/:listingId/status", h.ListingStatus)
	r.Protected.GET("/payments/status/:transactionId", h.StatusByTransaction)
}

// POST /api/payments/mpesa/initiate
func (h *PaymentHandler) Initiate(c *gin.Context) {
	var req service.InitiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}
	res, err := h.Svc.Initiate(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":           true,
		"message":           "Payment initiated",
		"paymentId":         res.Payment.ID,
		"transactionId":     res.TransactionID,
		"checkoutRequestId": res.CheckoutRequestID,
		"merchantRequestId": res.MerchantRequestID,
		"customerMessage":   res.CustomerMessage,
		"demo":              res.Demo,
	})
}

// Callback receives the gateway's result notification. The gateway is
// always acknowledged; failures are only logged.
func (h *PaymentHandler) Callback(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxCallbackBody))
	if err != nil {
		log.Printf("[PaymentHandler] reading callback body: %v", err)
	}
	if err := h.Svc.HandleCallback(c.Request.Context(), raw); err != nil {
		log.Printf("[PaymentHandler] callback not applied: %v", err)
	}
	c.JSON(http.StatusOK, mpesa.Ack())
}

type demoCompleteRequest struct {
	TransactionID string              `json:"transactionId" binding:"required"`
	Status        model.PaymentStatus `json:"status"`
}

// CompleteDemo serves both /payments/demo/complete and /payments/mpesa/demo-callback.
func (h *PaymentHandler) CompleteDemo(c *gin.Context) {
	var req demoCompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}
	res, err := h.Svc.CompleteDemo(c.Request.Context(), middleware.UserID(c), req.TransactionID, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	p := res.Payment
	body := gin.H{
		"success": true,
		"message": "Demo payment " + string(p.Status),
		"payment": gin.H{
			"id":            p.ID,
			"status":        p.Status,
			"receiptNumber": p.ReceiptNumber,
			"amount":        p.Amount,
		},
	}
	if !res.Transitioned {
		body["message"] = "Payment already " + string(p.Status)
	}
	if res.EffectErr != nil {
		body["effectError"] = res.EffectErr.Error()
	}
	c.JSON(http.StatusOK, body)
}

type queryRequest struct {
	CheckoutRequestID string `json:"checkoutRequestId" binding:"required"`
}

func (h *PaymentHandler) QueryBody(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}
	h.query(c, req.CheckoutRequestID)
}

func (h *PaymentHandler) QueryParam(c *gin.Context) {
	h.query(c, c.Param("checkoutRequestId"))
}

func (h *PaymentHandler) query(c *gin.Context, checkoutRequestID string) {
	p, err := h.Svc.Query(c.Request.Context(), middleware.UserID(c), checkoutRequestID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, paymentStatusBody(p))
}

func (h *PaymentHandler) StatusByTransaction(c *gin.Context) {
	p, err := h.Svc.StatusByTransaction(c.Request.Context(), middleware.UserID(c), c.Param("transactionId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, paymentStatusBody(p))
}

func paymentStatusBody(p *model.Payment) gin.H {
	return gin.H{
		"success":            true,
		"status":             p.Status,
		"mpesaReceiptNumber": p.ReceiptNumber,
		"transactionDate":    p.TransactionDate,
		"amount":             p.Amount,
		"resultDesc":         p.ResultDesc,
	}
}

func (h *PaymentHandler) History(c *gin.Context) {
	records, err := h.Svc.History(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

func (h *PaymentHandler) ListingStatus(c *gin.Context) {
	listingID, ok := pathID(c, "listingId")
	if !ok {
		return
	}
	status, err := h.Svc.ListingPaymentStatus(c.Request.Context(), listingID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *PaymentHandler) Pricing(c *gin.Context) {
	c.JSON(http.StatusOK, h.Svc.Pricing())
}

// GET /api/payments/mpesa/test
func (h *PaymentHandler) GatewayStatus(c *gin.Context) {
	gs := h.Svc.GatewayStatus()
	body := gin.H{
		"status":     "configured",
		"message":    "M-Pesa Daraja API is configured",
		"configured": gs.Configured,
		"mode":       gs.Mode,
	}
	if gs.Demo {
		body["status"] = "demo_mode"
		body["message"] = "M-Pesa credentials not configured, payments run in demo mode"
	}
	c.JSON(http.StatusOK, body)
}
