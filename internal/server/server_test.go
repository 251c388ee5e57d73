package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/gescom/internal/apperror"
	auditrepo "github.com/smallbiznis/gescom/internal/audit/repository"
	auditservice "github.com/smallbiznis/gescom/internal/audit/service"
	"github.com/smallbiznis/gescom/internal/lock"
	"github.com/smallbiznis/gescom/internal/testkit"
	"github.com/smallbiznis/gescom/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T) (*testkit.Kit, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	kit := testkit.New(t)
	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	audits := auditservice.NewService(auditservice.Params{
		DB:    kit.DB,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: kit.Clock,
		Repo:  auditrepo.Provide(),
	})

	NewServer(ServerParams{
		Gin:          engine,
		Log:          zap.NewNop(),
		Clock:        kit.Clock,
		ArticleSvc:   kit.Articles,
		ClientSvc:    kit.Clients,
		StockSvc:     kit.Stock,
		OrderSvc:     kit.Orders,
		InvoiceSvc:   kit.Invoices,
		DeliverySvc:  kit.Deliveries,
		PaymentSvc:   kit.Payments,
		ReportingSvc: kit.Reporting,
		AuditSvc:     audits,
	})
	return kit, engine
}

func doJSON(t *testing.T, engine *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body.Data
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var body errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body.Error
}

func TestArticleEndpoints(t *testing.T) {
	_, engine := newTestServer(t)

	w := doJSON(t, engine, http.MethodPost, "/api/articles", map[string]any{
		"reference":     "VIS-01",
		"designation":   "Vis inox 4x40",
		"family":        "Quincaillerie",
		"sell_price_ht": "0.35",
		"stock_minimum": 50,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	article := decodeData(t, w)
	id := article["id"].(string)
	assert.Equal(t, "0.35", article["sell_price_ht"])

	w = doJSON(t, engine, http.MethodPost, "/api/articles/"+id+"/adjustments", map[string]any{"delta": 20, "note": "réception"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, engine, http.MethodGet, "/api/articles?low_stock=true", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	list := decodeData(t, w)
	assert.Len(t, list["articles"], 1)

	w = doJSON(t, engine, http.MethodPost, "/api/articles/"+id+"/inventory", map[string]any{"counted": 18})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	count := decodeData(t, w)
	assert.EqualValues(t, 18, count["on_hand"])

	w = doJSON(t, engine, http.MethodGet, "/api/articles/"+id+"/movements", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, decodeData(t, w)["movements"], 2)

	w = doJSON(t, engine, http.MethodPost, "/api/articles", map[string]any{
		"reference":     "VIS-01",
		"designation":   "Doublon",
		"sell_price_ht": "1",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	payload := decodeError(t, w)
	assert.Equal(t, "invalid_input", payload.Type)
	assert.Equal(t, "duplicate_reference", payload.Code)

	w = doJSON(t, engine, http.MethodPost, "/api/articles/"+id+"/inventory", map[string]any{})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "counted", decodeError(t, w).Errors[0].Field)
}

func TestOrderToPaymentFlow(t *testing.T) {
	kit, engine := newTestServer(t)
	article := kit.Article(t, "CLE-10", "100.00", 5)
	client := kit.Client(t, "DUPONT")

	w := doJSON(t, engine, http.MethodPost, "/api/orders", map[string]any{
		"client_id": client.ID.String(),
		"lines": []map[string]any{
			{"article_id": article.ID.String(), "quantity": 1, "discount_pct": "0"},
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	orderID := decodeData(t, w)["id"].(string)

	w = doJSON(t, engine, http.MethodPost, "/api/orders/"+orderID+"/transitions", map[string]any{"target": "facturee"})
	require.Equal(t, http.StatusConflict, w.Code, w.Body.String())
	assert.Equal(t, "invalid_transition", decodeError(t, w).Type)

	w = doJSON(t, engine, http.MethodPost, "/api/orders/"+orderID+"/validate", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "validee", decodeData(t, w)["status"])
	assert.EqualValues(t, 4, kit.OnHand(t, article))

	w = doJSON(t, engine, http.MethodPost, "/api/orders/"+orderID+"/invoice", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	invoice := decodeData(t, w)
	invoiceID := invoice["id"].(string)
	assert.Equal(t, "FAC-000001", invoice["numero"])
	assert.Equal(t, "brouillon", invoice["status"])

	w = doJSON(t, engine, http.MethodPost, "/api/invoices/"+invoiceID+"/payments", map[string]any{"amount": "10", "method": "cheque"})
	require.Equal(t, http.StatusConflict, w.Code, w.Body.String())

	w = doJSON(t, engine, http.MethodPost, "/api/invoices/"+invoiceID+"/issue", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "emise", decodeData(t, w)["status"])

	w = doJSON(t, engine, http.MethodPost, "/api/invoices/"+invoiceID+"/payments", map[string]any{"amount": "50.00", "method": "virement", "paid_at": "2026-03-05"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	paid := decodeData(t, w)
	assert.Equal(t, "payee_partiellement", paid["invoice"].(map[string]any)["status"])
	reference := paid["payment"].(map[string]any)["reference"].(string)

	w = doJSON(t, engine, http.MethodPost, "/api/invoices/"+invoiceID+"/payments", map[string]any{"amount": "100.00", "method": "virement"})
	require.Equal(t, http.StatusConflict, w.Code, w.Body.String())
	payload := decodeError(t, w)
	assert.Equal(t, "over_payment", payload.Type)
	assert.Equal(t, "over_payment", payload.Code)

	w = doJSON(t, engine, http.MethodPost, "/api/invoices/"+invoiceID+"/payments", map[string]any{"amount": "70.00", "method": "virement"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "payee", decodeData(t, w)["invoice"].(map[string]any)["status"])

	w = doJSON(t, engine, http.MethodGet, "/api/invoices/"+invoiceID+"/payments", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var payments struct {
		Data []map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payments))
	assert.Len(t, payments.Data, 2)

	w = doJSON(t, engine, http.MethodGet, "/api/invoices/"+invoiceID+"/pdf", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, contentTypePDF, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "FAC-000001.pdf")
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))

	w = doJSON(t, engine, http.MethodGet, "/api/payments/"+reference+"/receipt", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, contentTypePDF, w.Header().Get("Content-Type"))

	w = doJSON(t, engine, http.MethodGet, "/api/orders/"+orderID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "facturee", decodeData(t, w)["status"])
	kit.RequireLedgerConsistent(t, article)

	w = doJSON(t, engine, http.MethodGet, "/api/audit-logs?target_type=invoice&target_id="+invoiceID, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	logs := decodeData(t, w)["audit_logs"].([]any)
	actions := make([]string, 0, len(logs))
	for _, entry := range logs {
		actions = append(actions, entry.(map[string]any)["action"].(string))
	}
	assert.Equal(t, []string{"payment.record", "payment.record", "invoice.issue", "invoice.generate"}, actions)
}

func TestRecomputeOverdueEndpoint(t *testing.T) {
	kit, engine := newTestServer(t)
	article := kit.Article(t, "MAR-01", "25.00", 10)
	client := kit.Client(t, "MARTIN")
	kit.IssuedInvoice(t, kit.ValidatedOrder(t, client, testkit.Line(article, 2)))

	kit.Clock.Advance(31 * 24 * time.Hour)

	w := doJSON(t, engine, http.MethodPost, "/api/invoices/overdue/recompute", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, 1, decodeData(t, w)["updated"])

	w = doJSON(t, engine, http.MethodGet, "/api/invoices?status=en_retard", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, decodeData(t, w)["invoices"], 1)
}

func TestReportingEndpoints(t *testing.T) {
	_, engine := newTestServer(t)

	w := doJSON(t, engine, http.MethodGet, "/api/reporting/dashboard", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "2026-03", decodeData(t, w)["month"])

	w = doJSON(t, engine, http.MethodGet, "/api/reporting/revenue?months=3", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var series struct {
		Data []map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &series))
	require.Len(t, series.Data, 3)
	assert.Equal(t, "2026-03", series.Data[2]["period"])

	w = doJSON(t, engine, http.MethodGet, "/api/reporting/top-clients?limit=0", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "limit", decodeError(t, w).Errors[0].Field)

	for _, path := range []string{"/api/reporting/top-articles", "/api/reporting/revenue-by-family"} {
		w = doJSON(t, engine, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestShipAndDeliverEndpoints(t *testing.T) {
	kit, engine := newTestServer(t)
	article := kit.Article(t, "PER-06", "12.00", 10)
	client := kit.Client(t, "LEROY")

	validated := kit.ValidatedOrder(t, client, testkit.Line(article, 2))
	w := doJSON(t, engine, http.MethodPost, "/api/orders/"+validated.ID.String()+"/ship", nil)
	require.Equal(t, http.StatusConflict, w.Code, w.Body.String())
	assert.Equal(t, "invalid_transition", decodeError(t, w).Type)

	order := kit.PreparedOrder(t, client, testkit.Line(article, 3))
	w = doJSON(t, engine, http.MethodPost, "/api/orders/"+order.ID.String()+"/ship", map[string]any{"carrier": "Geodis", "packages": 2})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	note := decodeData(t, w)
	noteID := note["id"].(string)
	assert.Equal(t, "BL-000001", note["numero"])
	assert.EqualValues(t, 2, note["packages"])
	assert.Len(t, note["lines"], 1)

	w = doJSON(t, engine, http.MethodGet, "/api/orders/"+order.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "expediee", decodeData(t, w)["status"])

	w = doJSON(t, engine, http.MethodGet, "/api/delivery-notes?order_id="+order.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, decodeData(t, w)["delivery_notes"], 1)

	w = doJSON(t, engine, http.MethodGet, "/api/delivery-notes/"+noteID+"/pdf", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "BL-000001.pdf")
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))

	w = doJSON(t, engine, http.MethodPost, "/api/delivery-notes/"+noteID+"/deliver", map[string]any{"received_by": "M. Leroy"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "M. Leroy", decodeData(t, w)["received_by"])

	w = doJSON(t, engine, http.MethodPost, "/api/delivery-notes/"+noteID+"/deliver", nil)
	require.Equal(t, http.StatusConflict, w.Code, w.Body.String())
	assert.Equal(t, "delivery_note_delivered", decodeError(t, w).Code)

	w = doJSON(t, engine, http.MethodGet, "/api/audit-logs?target_type=delivery_note&target_id="+noteID, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, decodeData(t, w)["audit_logs"], 2)
	kit.RequireLedgerConsistent(t, article)
}

func TestReportingExports(t *testing.T) {
	kit, engine := newTestServer(t)
	article := kit.Article(t, "=SUM(A1)", "10.00", 10)
	client := kit.Client(t, "DUPONT")
	kit.IssuedInvoice(t, kit.ValidatedOrder(t, client, testkit.Line(article, 2)))

	w := doJSON(t, engine, http.MethodGet, "/api/reporting/export/top-clients", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, contentTypeCSV, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "top-clients-2026-03-02.csv")
	assert.Equal(t, "rank;code;legal_name;total_ht;invoices\n1;DUPONT;Client DUPONT;20.00;1\n", w.Body.String())

	w = doJSON(t, engine, http.MethodGet, "/api/reporting/export/top-articles?limit=5", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "1;'=SUM(A1);")

	w = doJSON(t, engine, http.MethodGet, "/api/reporting/export/top-articles?limit=500", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, engine, http.MethodGet, "/api/reporting/revenue-by-region", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var regions struct {
		Data []map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &regions))
	require.Len(t, regions.Data, 1)
	assert.Equal(t, "??", regions.Data[0]["department"])

	w = doJSON(t, engine, http.MethodGet, "/api/reporting/revenue-by-region?year=abc", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "year", decodeError(t, w).Errors[0].Field)
}

func TestCSVSafe(t *testing.T) {
	assert.Equal(t, "'=1+1", csvSafe("=1+1"))
	assert.Equal(t, "'-5", csvSafe("-5"))
	assert.Equal(t, "Vis inox", csvSafe("Vis inox"))
	assert.Equal(t, "", csvSafe(""))
}

func TestUnknownRoutesAndRecords(t *testing.T) {
	_, engine := newTestServer(t)

	w := doJSON(t, engine, http.MethodGet, "/api/unknown", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", decodeError(t, w).Type)

	w = doJSON(t, engine, http.MethodGet, "/api/clients/12345", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "client_not_found", decodeError(t, w).Code)

	w = doJSON(t, engine, http.MethodGet, "/api/clients?page_token=garbage", nil)
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
}

func TestMapErrorStatuses(t *testing.T) {
	cases := []struct {
		err    error
		status int
		kind   string
	}{
		{apperror.New(apperror.KindNotFound, "order_not_found"), http.StatusNotFound, "not_found"},
		{apperror.New(apperror.KindInvalidInput, "invalid_quantity"), http.StatusBadRequest, "invalid_input"},
		{apperror.New(apperror.KindInvalidTransition, "invalid_order_transition"), http.StatusConflict, "invalid_transition"},
		{apperror.New(apperror.KindAlreadyTerminal, "order_terminal"), http.StatusConflict, "already_terminal"},
		{apperror.New(apperror.KindInsufficientStock, "insufficient_stock").WithEntity("VIS-01"), http.StatusConflict, "insufficient_stock"},
		{apperror.New(apperror.KindOverPayment, "over_payment"), http.StatusConflict, "over_payment"},
		{lock.ErrLockTimeout, http.StatusConflict, "conflict"},
		{pagination.ErrInvalidToken, http.StatusBadRequest, "validation_error"},
		{errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		status, payload := mapError(tc.err)
		assert.Equal(t, tc.status, status, tc.err.Error())
		assert.Equal(t, tc.kind, payload.Type, tc.err.Error())
	}

	_, payload := mapError(apperror.New(apperror.KindInsufficientStock, "insufficient_stock").WithEntity("VIS-01"))
	assert.Equal(t, "VIS-01", payload.Entity)
}

func TestConflictSetsRetryAfter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())
	engine.GET("/busy", func(c *gin.Context) {
		AbortWithError(c, lock.ErrLockTimeout)
	})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/busy", nil))

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, retryAfterSeconds, w.Header().Get("Retry-After"))
}

func TestClassifyErrorForLog(t *testing.T) {
	errType, code := classifyErrorForLog(apperror.New(apperror.KindOverPayment, "over_payment"))
	assert.Equal(t, "over_payment", errType)
	assert.Equal(t, "over_payment", code)

	errType, code = classifyErrorForLog(invalidRequestError())
	assert.Equal(t, "validation_error", errType)
	assert.Equal(t, "invalid_request", code)
}
