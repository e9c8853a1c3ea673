package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearledger/revrec-engine/api"
	"github.com/clearledger/revrec-engine/revrec"
	"github.com/clearledger/revrec-engine/store/sqlite"
)

func newTestServer(t *testing.T) (*sqlite.Store, http.Handler) {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, api.NewRouter(api.NewHandler(store))
}

func doRequest(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
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
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeJSON[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

// saveJanuaryInvoice stores a $20 monthly invoice plus its item, optionally
// paid on the given date.
func saveJanuaryInvoice(t *testing.T, store *sqlite.Store, id string, paidOn string) {
	t.Helper()
	ctx := context.Background()

	inv := revrec.Invoice{
		ID:        id,
		AccountID: "acct-" + id,
		Date:      revrec.MustParseDate("2012-01-01"),
		Amount:    decimal.RequireFromString("20"),
	}
	require.NoError(t, store.SaveInvoice(ctx, inv))

	item := revrec.InvoiceItem{
		ID:            "item-" + id,
		InvoiceID:     id,
		AccountID:     inv.AccountID,
		ChargeName:    "Subscription Fee",
		Plan:          "Unlimited",
		Amount:        inv.Amount,
		ServiceStart:  revrec.MustParseDate("2012-01-01"),
		ServiceEnd:    revrec.MustParseDate("2012-01-31"),
		BillingPeriod: revrec.Monthly,
	}
	require.NoError(t, store.SaveInvoiceItem(ctx, item))

	if paidOn != "" {
		payment := revrec.Payment{
			ID:        "pay-" + id,
			InvoiceID: id,
			Date:      revrec.MustParseDate(paidOn),
			Amount:    inv.Amount,
		}
		require.NoError(t, store.SavePayment(ctx, payment))
	}
}

func TestListInvoices(t *testing.T) {
	store, router := newTestServer(t)
	saveJanuaryInvoice(t, store, "inv-1", "2012-01-01")

	rec := doRequest(t, router, http.MethodGet, "/api/invoices?as_of=2012-12-31", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	invoices := decodeJSON[[]api.InvoiceDTO](t, rec)
	require.Len(t, invoices, 1)
	assert.Equal(t, "inv-1", invoices[0].ID)
	assert.Equal(t, 20.0, invoices[0].Amount)
	assert.True(t, invoices[0].Paid)
}

func TestListInvoices_AsOfCutoff(t *testing.T) {
	store, router := newTestServer(t)
	saveJanuaryInvoice(t, store, "inv-1", "2012-01-01")

	rec := doRequest(t, router, http.MethodGet, "/api/invoices?as_of=2011-12-31", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	invoices := decodeJSON[[]api.InvoiceDTO](t, rec)
	assert.Empty(t, invoices)
}

func TestGetInvoice_Detail(t *testing.T) {
	store, router := newTestServer(t)
	saveJanuaryInvoice(t, store, "inv-1", "2012-01-10")

	rec := doRequest(t, router, http.MethodGet, "/api/invoices/inv-1?as_of=2012-12-31", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	detail := decodeJSON[api.InvoiceDetailDTO](t, rec)
	assert.Equal(t, "inv-1", detail.Invoice.ID)
	require.Len(t, detail.Items, 1)
	assert.Equal(t, "Monthly", detail.Items[0].BillingPeriod)
	require.NotNil(t, detail.Payment)
	assert.Equal(t, "2012-01-10", detail.Payment.Date)
}

func TestGetInvoice_NotFound(t *testing.T) {
	_, router := newTestServer(t)

	rec := doRequest(t, router, http.MethodGet, "/api/invoices/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetInvoice_BadAsOf(t *testing.T) {
	_, router := newTestServer(t)

	rec := doRequest(t, router, http.MethodGet, "/api/invoices?as_of=January", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecognizeInvoice(t *testing.T) {
	// GIVEN a paid invoice
	store, router := newTestServer(t)
	saveJanuaryInvoice(t, store, "inv-1", "2012-01-01")

	// WHEN recognizing it
	rec := doRequest(t, router, http.MethodPost, "/api/invoices/inv-1/recognize?as_of=2012-12-31", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// THEN the response carries January's rollup
	result := decodeJSON[api.RecognizeResultDTO](t, rec)
	assert.Equal(t, "inv-1", result.InvoiceID)
	require.Len(t, result.Items, 1)
	require.Len(t, result.Items[0].Months, 1)
	month := result.Items[0].Months[0]
	assert.Equal(t, "2012-01", month.Month)
	assert.InDelta(t, 20.0, month.CreditRevenue, 0.01)
	assert.InDelta(t, 0.0, month.EndingDeferredRevenue, 0.01)

	// AND the entries were persisted for reporting
	rec = doRequest(t, router, http.MethodGet, "/api/reports/monthly-totals", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	totals := decodeJSON[[]api.MonthlyTotalDTO](t, rec)
	require.Len(t, totals, 1)
	assert.InDelta(t, 20.0, totals[0].CreditRevenue, 0.01)
}

func TestRecognizeInvoice_LatePaymentReportsGraceNotes(t *testing.T) {
	store, router := newTestServer(t)
	saveJanuaryInvoice(t, store, "inv-1", "2012-01-10")

	rec := doRequest(t, router, http.MethodPost, "/api/invoices/inv-1/recognize?as_of=2012-12-31", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	result := decodeJSON[api.RecognizeResultDTO](t, rec)
	require.Len(t, result.Items, 1)
	assert.NotEmpty(t, result.Items[0].GraceNotes)
}

func TestRecognizeInvoice_Unpaid(t *testing.T) {
	store, router := newTestServer(t)
	saveJanuaryInvoice(t, store, "inv-1", "")

	rec := doRequest(t, router, http.MethodPost, "/api/invoices/inv-1/recognize", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestRecognizeAll_SkipsUnpaid(t *testing.T) {
	// GIVEN one paid and one unpaid invoice
	store, router := newTestServer(t)
	saveJanuaryInvoice(t, store, "inv-paid", "2012-01-01")
	saveJanuaryInvoice(t, store, "inv-unpaid", "")

	// WHEN running recognition over everything
	rec := doRequest(t, router, http.MethodPost, "/api/recognize",
		api.RecognizeAllRequest{AsOf: "2012-12-31"})
	require.Equal(t, http.StatusOK, rec.Code)

	// THEN the unpaid one is reported, not fatal
	result := decodeJSON[api.RecognizeAllResultDTO](t, rec)
	assert.Equal(t, 1, result.Recognized)
	require.Len(t, result.Skipped, 1)
	assert.Equal(t, "inv-unpaid", result.Skipped[0].InvoiceID)
}

func TestSeedEndpoint(t *testing.T) {
	_, router := newTestServer(t)

	rec := doRequest(t, router, http.MethodPost, "/api/seed",
		api.SeedRequest{Invoices: 12, Year: 2012, Seed: 5})
	require.Equal(t, http.StatusOK, rec.Code)

	var summary struct {
		Invoices int `json:"invoices"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&summary))
	assert.Equal(t, 12, summary.Invoices)

	rec = doRequest(t, router, http.MethodGet, "/api/invoices?as_of=2013-12-31", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	invoices := decodeJSON[[]api.InvoiceDTO](t, rec)
	assert.Len(t, invoices, 12)
}

func TestResetEndpoint(t *testing.T) {
	store, router := newTestServer(t)
	saveJanuaryInvoice(t, store, "inv-1", "2012-01-01")

	rec := doRequest(t, router, http.MethodPost, "/api/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/api/invoices?as_of=2012-12-31", nil)
	invoices := decodeJSON[[]api.InvoiceDTO](t, rec)
	assert.Empty(t, invoices)
}

func TestScheduler_RunNow(t *testing.T) {
	// GIVEN a paid invoice and a scheduler
	store, _ := newTestServer(t)
	saveJanuaryInvoice(t, store, "inv-1", "2012-01-01")

	h := api.NewHandler(store)
	scheduler := api.NewRecognitionScheduler(store, h)

	// WHEN a run fires
	scheduler.RunNow()

	// THEN monthly entries were persisted
	totals, err := store.MonthlyTotals(context.Background())
	require.NoError(t, err)
	require.Len(t, totals, 1)
	assert.True(t, totals[0].CreditRevenue.Equal(decimal.RequireFromString("20")),
		"got %s", totals[0].CreditRevenue)
}
