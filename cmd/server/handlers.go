package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/yourorg/payment-gateways/internal/invoice"
	"github.com/yourorg/payment-gateways/internal/monitor"
	"github.com/yourorg/payment-gateways/internal/payment"
	"github.com/yourorg/payment-gateways/internal/plugin"
	"github.com/yourorg/payment-gateways/internal/settings"
	"github.com/yourorg/payment-gateways/pkg/logger"
)

type paymentRequest struct {
	Token      string `json:"token"`
	Amount     string `json:"amount"`
	Currency   string `json:"currency"`
	CustomerID string `json:"customer_id"`
}

type invoiceRequest struct {
	invoice.Invoice
	StaffUserID string `json:"staff_user_id"`
}

type paymentHook func(ctx context.Context, gateway string, data payment.Data) (payment.GatewayResponse, error)

func (a *App) paymentHooks() map[string]paymentHook {
	return map[string]paymentHook{
		"authorize": a.manager.AuthorizePayment,
		"capture":   a.manager.CapturePayment,
		"confirm":   a.manager.ConfirmPayment,
		"refund":    a.manager.RefundPayment,
		"void":      a.manager.VoidPayment,
		"process":   a.manager.ProcessPayment,
	}
}

func setupRouter(a *App) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), otelgin.Middleware("payment-gateways"), logger.GinLogger())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "environment": a.cfg.Environment})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/gateways", a.listGateways)
	gateways := router.Group("/gateways/:gateway")
	{
		gateways.GET("/fields", a.gatewayFields)
		gateways.GET("/config", a.gatewayConfig)
		gateways.GET("/currencies", a.gatewayCurrencies)
		gateways.GET("/client-token", a.clientToken)
		gateways.GET("/breaker", a.breakerState)
		gateways.POST("/payments/:hook", a.runPaymentHook)
	}

	router.GET("/customers/:customer/sources", a.customerSources)
	router.POST("/invoices/send", a.sendInvoice)
	router.GET("/reports/retrospective", a.retrospective)
	return router
}

// readContract reads the request body and checks it against cm, answering
// 400 itself when the body does not conform.
func readContract(c *gin.Context, cm *monitor.ContractMonitor) ([]byte, bool) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return nil, false
	}
	valid, violations, err := cm.Validate(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return nil, false
	}
	if !valid {
		c.JSON(http.StatusBadRequest, gin.H{"error": monitor.FormatErrors(violations)})
		return nil, false
	}
	return body, true
}

func (a *App) runPaymentHook(c *gin.Context) {
	hook, ok := a.paymentHooks()[c.Param("hook")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown payment operation " + c.Param("hook")})
		return
	}

	body, ok := readContract(c, a.paymentContract)
	if !ok {
		return
	}
	var req paymentRequest
	if err := bindJSON(body, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	data := payment.Data{
		Token:      req.Token,
		Currency:   strings.ToUpper(req.Currency),
		CustomerID: req.CustomerID,
	}
	if req.Amount != "" {
		amount, err := payment.ParseAmount(req.Amount, data.Currency)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed: " + err.Error()})
			return
		}
		data.Amount = amount
	}

	resp, err := hook(c.Request.Context(), c.Param("gateway"), data)
	if err != nil {
		writeHookError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func writeHookError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, plugin.ErrGatewayUnavailable):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, payment.ErrConfiguration):
		logger.Error(err, "gateway misconfigured", map[string]interface{}{"gateway": c.Param("gateway")})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "gateway is misconfigured"})
	default:
		logger.Error(err, "hook failed", map[string]interface{}{"path": c.FullPath()})
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (a *App) listGateways(c *gin.Context) {
	gateways, err := a.manager.ListPaymentGateways(c.Request.Context(), strings.ToUpper(c.Query("currency")))
	if err != nil {
		writeHookError(c, err)
		return
	}
	if gateways == nil {
		gateways = []plugin.PaymentGateway{}
	}
	c.JSON(http.StatusOK, gin.H{"gateways": gateways})
}

func (a *App) gatewayFields(c *gin.Context) {
	for _, p := range a.manager.Plugins() {
		described, ok := p.(interface{ ConfigurationFields() []settings.Field })
		if ok && p.ID() == c.Param("gateway") {
			c.JSON(http.StatusOK, gin.H{"id": p.ID(), "active": p.Active(), "fields": described.ConfigurationFields()})
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": plugin.ErrGatewayUnavailable.Error()})
}

func (a *App) gatewayConfig(c *gin.Context) {
	items, err := a.manager.GetPaymentConfig(c.Request.Context(), c.Param("gateway"))
	if err != nil {
		writeHookError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"config": items})
}

func (a *App) gatewayCurrencies(c *gin.Context) {
	currencies, err := a.manager.GetSupportedCurrencies(c.Request.Context(), c.Param("gateway"))
	if err != nil {
		writeHookError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"currencies": currencies})
}

func (a *App) clientToken(c *gin.Context) {
	token, err := a.manager.GetClientToken(c.Request.Context(), c.Param("gateway"))
	if err != nil {
		writeHookError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"client_token": token})
}

func (a *App) breakerState(c *gin.Context) {
	for _, p := range a.manager.Plugins() {
		hooks, ok := p.(plugin.PaymentHooks)
		if ok && p.ID() == c.Param("gateway") {
			c.JSON(http.StatusOK, gin.H{"gateway": hooks.Name(), "state": a.breakers.State(hooks.Name()).String()})
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": plugin.ErrGatewayUnavailable.Error()})
}

func (a *App) customerSources(c *gin.Context) {
	sources, err := a.manager.ListPaymentSources(c.Request.Context(), c.Query("gateway"), c.Param("customer"))
	if err != nil {
		writeHookError(c, err)
		return
	}
	if sources == nil {
		sources = []payment.CustomerSource{}
	}
	c.JSON(http.StatusOK, gin.H{"sources": sources})
}

func (a *App) sendInvoice(c *gin.Context) {
	body, ok := readContract(c, a.invoiceContract)
	if !ok {
		return
	}
	var req invoiceRequest
	if err := bindJSON(body, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	if err := a.sender.Send(c.Request.Context(), req.Invoice, req.StaffUserID); err != nil {
		if errors.Is(err, invoice.ErrNoRecipient) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		logger.Error(err, "invoice send failed", map[string]interface{}{"invoice": req.ID})
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"invoice": req.ID, "recipient_email": req.CustomerEmail})
}

func (a *App) retrospective(c *gin.Context) {
	var from, to time.Time
	for key, target := range map[string]*time.Time{"from": &from, "to": &to} {
		raw := c.Query(key)
		if raw == "" {
			continue
		}
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed: " + key + " must be RFC 3339"})
			return
		}
		*target = parsed
	}

	report, err := a.reporter.Build(c.Request.Context(), from, to)
	if err != nil {
		logger.Error(err, "retrospective failed", nil)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}
