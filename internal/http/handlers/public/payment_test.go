package public

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/upi-next/internal/config"
	"github.com/upi-next/internal/constants"
	"github.com/upi-next/internal/http/response"
	"github.com/upi-next/internal/models"
	"github.com/upi-next/internal/provider"
	"github.com/upi-next/internal/queue"
	"github.com/upi-next/internal/repository"
	"github.com/upi-next/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupPublicPaymentHandlerTest(t *testing.T) (*Handler, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:public_payment_handler_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.PaymentIntent{}, &models.Refund{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	paymentRepo := repository.NewPaymentRepository(db)
	refundRepo := repository.NewRefundRepository(db)
	queueClient, _ := queue.NewClient(&config.QueueConfig{Enabled: false})
	gatewayCfg := config.GatewayConfig{
		MaxAmount:   "200000",
		MinDelayMS:  600000,
		MaxDelayMS:  600000,
		SuccessRate: 1.0,
		OutcomeSeed: 42,
	}
	gateway := service.NewGatewayService(paymentRepo, refundRepo, queueClient, nil, gatewayCfg)

	h := &Handler{Container: &provider.Container{
		PaymentRepo:      paymentRepo,
		RefundRepo:       refundRepo,
		GatewayService:   gateway,
		RefundService:    service.NewRefundService(paymentRepo, refundRepo, gateway),
		ReconcileService: service.NewReconcileService(paymentRepo, config.ReconcileConfig{IntervalMS: 10, MaxAttempts: 5}),
	}}
	return h, db
}

func newPaymentTestRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.POST("/api/v1/payments", h.CreatePayment)
	r.GET("/api/v1/payments/:payment_no", h.GetPayment)
	r.GET("/api/v1/payments/:payment_no/await", h.AwaitPayment)
	r.POST("/api/v1/payments/:payment_no/refunds", h.CreateRefund)
	r.GET("/api/v1/providers", h.ListProviders)
	r.GET("/api/v1/payment-methods", h.ListPaymentMethods)
	r.GET("/api/v1/demo-accounts", h.ListDemoAccounts)
	return r
}

func mustMoney(t *testing.T, value string) models.Money {
	t.Helper()
	m, err := models.NewMoneyFromString(value)
	if err != nil {
		t.Fatalf("parse money %q failed: %v", value, err)
	}
	return m
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	t.Helper()
	var resp response.Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response failed: %v (body=%s)", err, w.Body.String())
	}
	return resp
}

func TestCreatePaymentHandler(t *testing.T) {
	h, _ := setupPublicPaymentHandlerTest(t)
	r := newPaymentTestRouter(h)

	body := `{"amount":"150.00","vpa":"merchant@upi","provider":"paytm","description":"Order #1"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	resp := decodeResponse(t, w)
	if resp.StatusCode != response.CodeOK {
		t.Fatalf("expected ok, got code %d msg %s", resp.StatusCode, resp.Msg)
	}
	data, ok := resp.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("unexpected data shape: %T", resp.Data)
	}
	paymentNo, _ := data["id"].(string)
	if !strings.HasPrefix(paymentNo, "pay_") {
		t.Fatalf("expected pay_ prefixed number, got %q", paymentNo)
	}
	if data["status"] != constants.PaymentStatusCreated {
		t.Fatalf("expected created status, got %v", data["status"])
	}
	if data["amount"] != "150.00" {
		t.Fatalf("expected amount 150.00, got %v", data["amount"])
	}

	// 创建后可以立即查询
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/payments/"+paymentNo, nil)
	r.ServeHTTP(w, req)
	resp = decodeResponse(t, w)
	if resp.StatusCode != response.CodeOK {
		t.Fatalf("get payment failed: code %d", resp.StatusCode)
	}
}

func TestCreatePaymentHandlerValidation(t *testing.T) {
	h, _ := setupPublicPaymentHandlerTest(t)
	r := newPaymentTestRouter(h)

	cases := []struct {
		name string
		body string
	}{
		{"bad vpa", `{"amount":"10","vpa":"oops","description":"x"}`},
		{"zero amount", `{"amount":"0","vpa":"merchant@upi","description":"x"}`},
		{"missing description", `{"amount":"10","vpa":"merchant@upi"}`},
		{"unknown provider", `{"amount":"10","vpa":"merchant@upi","description":"x","provider":"venmo"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")
			r.ServeHTTP(w, req)

			resp := decodeResponse(t, w)
			if resp.StatusCode != response.CodeBadRequest {
				t.Fatalf("expected bad request, got code %d msg %s", resp.StatusCode, resp.Msg)
			}
		})
	}
}

func TestGetPaymentHandlerNotFound(t *testing.T) {
	h, _ := setupPublicPaymentHandlerTest(t)
	r := newPaymentTestRouter(h)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/pay_missing", nil)
	r.ServeHTTP(w, req)

	resp := decodeResponse(t, w)
	if resp.StatusCode != response.CodeNotFound {
		t.Fatalf("expected not found, got code %d", resp.StatusCode)
	}
}

func TestAwaitPaymentHandlerTimedOut(t *testing.T) {
	h, db := setupPublicPaymentHandlerTest(t)
	r := newPaymentTestRouter(h)

	payment := &models.PaymentIntent{
		PaymentNo:    "pay_await_001",
		Amount:       mustMoney(t, "120.00"),
		Currency:     constants.CurrencyINR,
		PayeeAddress: "merchant@upi",
		Provider:     constants.ProviderPaytm,
		Description:  "await test",
		Status:       constants.PaymentStatusPending,
	}
	if err := db.Create(payment).Error; err != nil {
		t.Fatalf("create payment failed: %v", err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/pay_await_001/await?max_attempts=2&interval_ms=5", nil)
	r.ServeHTTP(w, req)

	resp := decodeResponse(t, w)
	if resp.StatusCode != response.CodeOK {
		t.Fatalf("await should succeed with timed_out flag, got code %d", resp.StatusCode)
	}
	data, ok := resp.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("unexpected data shape: %T", resp.Data)
	}
	if data["timed_out"] != true {
		t.Fatalf("expected timed_out true, got %v", data["timed_out"])
	}
}

func TestCreateRefundHandlerConflict(t *testing.T) {
	h, db := setupPublicPaymentHandlerTest(t)
	r := newPaymentTestRouter(h)

	payment := &models.PaymentIntent{
		PaymentNo:    "pay_refund_h_001",
		Amount:       mustMoney(t, "80.00"),
		Currency:     constants.CurrencyINR,
		PayeeAddress: "merchant@upi",
		Provider:     constants.ProviderPaytm,
		Description:  "refund handler test",
		Status:       constants.PaymentStatusPending,
	}
	if err := db.Create(payment).Error; err != nil {
		t.Fatalf("create payment failed: %v", err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/pay_refund_h_001/refunds", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	resp := decodeResponse(t, w)
	if resp.StatusCode != response.CodeConflict {
		t.Fatalf("expected conflict for non-captured payment, got code %d msg %s", resp.StatusCode, resp.Msg)
	}
}

func TestListProvidersHandler(t *testing.T) {
	h, _ := setupPublicPaymentHandlerTest(t)
	r := newPaymentTestRouter(h)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/providers", nil)
	r.ServeHTTP(w, req)

	resp := decodeResponse(t, w)
	if resp.StatusCode != response.CodeOK {
		t.Fatalf("list providers failed: code %d", resp.StatusCode)
	}
	providers, ok := resp.Data.([]interface{})
	if !ok || len(providers) != 6 {
		t.Fatalf("expected 6 providers, got %v", resp.Data)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/demo-accounts", nil)
	r.ServeHTTP(w, req)
	resp = decodeResponse(t, w)
	accounts, ok := resp.Data.([]interface{})
	if !ok || len(accounts) != 3 {
		t.Fatalf("expected 3 demo accounts, got %v", resp.Data)
	}
}

func TestListPaymentMethodsHandler(t *testing.T) {
	h, _ := setupPublicPaymentHandlerTest(t)
	r := newPaymentTestRouter(h)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/payment-methods?amount=500.00", nil)
	r.ServeHTTP(w, req)

	resp := decodeResponse(t, w)
	if resp.StatusCode != response.CodeOK {
		t.Fatalf("list payment methods failed: code %d msg %s", resp.StatusCode, resp.Msg)
	}
	data, ok := resp.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("unexpected payload: %v", resp.Data)
	}
	if data["amount"] != "500.00" {
		t.Fatalf("expected amount 500.00, got %v", data["amount"])
	}
	methods, ok := data["methods"].([]interface{})
	if !ok || len(methods) != 6 {
		t.Fatalf("expected 6 methods, got %v", data["methods"])
	}
	// 500 的 2% 为 10.00，税 18% 为 1.80
	first, ok := methods[0].(map[string]interface{})
	if !ok {
		t.Fatalf("unexpected method entry: %v", methods[0])
	}
	if first["fee"] != "10.00" || first["tax"] != "1.80" || first["total"] != "511.80" {
		t.Fatalf("unexpected fee breakdown: fee=%v tax=%v total=%v", first["fee"], first["tax"], first["total"])
	}

	// 小额触发最低手续费
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/payment-methods?amount=10.00", nil)
	r.ServeHTTP(w, req)
	resp = decodeResponse(t, w)
	data = resp.Data.(map[string]interface{})
	small := data["methods"].([]interface{})[0].(map[string]interface{})
	if small["fee"] != "2.00" || small["tax"] != "0.36" {
		t.Fatalf("expected minimum fee breakdown, got fee=%v tax=%v", small["fee"], small["tax"])
	}

	for _, query := range []string{"", "amount=", "amount=abc", "amount=-5", "amount=0"} {
		w = httptest.NewRecorder()
		req = httptest.NewRequest(http.MethodGet, "/api/v1/payment-methods?"+query, nil)
		r.ServeHTTP(w, req)
		resp = decodeResponse(t, w)
		if resp.StatusCode != response.CodeBadRequest {
			t.Fatalf("query %q: expected bad request, got code %d", query, resp.StatusCode)
		}
	}
}
