/*
handlers.go - HTTP API handlers for the revenue recognition service

PURPOSE:
  Exposes the recognition engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Invoices:
    GET    /api/invoices                   List invoices
    GET    /api/invoices/{id}              Invoice with related records
    POST   /api/invoices/{id}/recognize    Recognize one invoice

  Recognition:
    POST   /api/recognize                  Recognize every paid invoice

  Reports:
    GET    /api/reports/monthly-totals     Aggregate monthly entries

  Admin:
    POST   /api/seed                       Load demo data
    POST   /api/reset                      Database reset (dev only)

OBSERVATION DATE:
  Read and recognition endpoints accept an as_of date (query parameter or
  request body). Events after that date are invisible to the run, so the
  same database can be reported at any historical point.

REQUEST FLOW:
  1. Parse HTTP request
  2. Load records from store as of the observation date
  3. Call domain logic (revrec.Recognize)
  4. Persist monthly entries, serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Invoice not found
  - 422: Invoice not recognizable (unpaid, bad dates)
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - scheduler.go: Background recognition runs
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/clearledger/revrec-engine/revrec"
	"github.com/clearledger/revrec-engine/seed"
	"github.com/clearledger/revrec-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store *sqlite.Store
}

// NewHandler creates a new handler with the given store.
func NewHandler(store *sqlite.Store) *Handler {
	return &Handler{Store: store}
}

// asOfParam reads the as_of query parameter, defaulting to today.
func asOfParam(r *http.Request) (revrec.Date, error) {
	raw := r.URL.Query().Get("as_of")
	if raw == "" {
		return revrec.DateOf(time.Now().UTC()), nil
	}
	return revrec.ParseDate(raw)
}

// =============================================================================
// INVOICE HANDLERS
// =============================================================================

// ListInvoices returns invoices visible as of the observation date.
// GET /api/invoices?as_of=2012-12-31
func (h *Handler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	asOf, err := asOfParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid as_of date", err)
		return
	}

	invoices, err := h.Store.ListInvoices(r.Context(), asOf)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list invoices", err)
		return
	}

	dtos := make([]InvoiceDTO, len(invoices))
	for i, inv := range invoices {
		dtos[i] = toInvoiceDTO(inv)
		payment, err := h.Store.PaymentForInvoice(r.Context(), inv.ID, asOf)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to load payment", err)
			return
		}
		dtos[i].Paid = inv.Paid(payment)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetInvoice returns one invoice with its items, payment, refunds, and
// extensions as of the observation date.
// GET /api/invoices/{id}
func (h *Handler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx := r.Context()

	asOf, err := asOfParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid as_of date", err)
		return
	}

	inv, err := h.Store.GetInvoice(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get invoice", err)
		return
	}
	if inv == nil {
		writeError(w, http.StatusNotFound, "Invoice not found", nil)
		return
	}

	items, err := h.Store.ItemsForInvoice(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load items", err)
		return
	}
	payment, err := h.Store.PaymentForInvoice(ctx, id, asOf)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load payment", err)
		return
	}
	refunds, err := h.Store.RefundsForInvoice(ctx, id, asOf)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load refunds", err)
		return
	}
	exts, err := h.Store.ExtensionsForInvoice(ctx, id, asOf)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load extensions", err)
		return
	}

	detail := InvoiceDetailDTO{Invoice: toInvoiceDTO(*inv)}
	detail.Invoice.Paid = inv.Paid(payment)
	for _, item := range items {
		detail.Items = append(detail.Items, toInvoiceItemDTO(item))
	}
	if payment != nil {
		dto := toPaymentDTO(*payment)
		detail.Payment = &dto
	}
	for _, ref := range refunds {
		detail.Refunds = append(detail.Refunds, toRefundDTO(ref))
	}
	for _, ext := range exts {
		detail.Extensions = append(detail.Extensions, toTermExtensionDTO(ext))
	}

	writeJSON(w, http.StatusOK, detail)
}

// =============================================================================
// RECOGNITION HANDLERS
// =============================================================================

// RecognizeInvoice runs the engine for a single invoice and persists the
// resulting monthly entries.
// POST /api/invoices/{id}/recognize?as_of=2012-12-31
func (h *Handler) RecognizeInvoice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx := r.Context()

	asOf, err := asOfParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid as_of date", err)
		return
	}

	inv, err := h.Store.GetInvoice(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get invoice", err)
		return
	}
	if inv == nil {
		writeError(w, http.StatusNotFound, "Invoice not found", nil)
		return
	}

	results, err := h.recognizeOne(ctx, *inv, asOf)
	if err != nil {
		if errors.Is(err, revrec.ErrUnpaidInvoice) {
			writeError(w, http.StatusUnprocessableEntity, "Invoice is not fully paid", err)
			return
		}
		if revrec.IsInputError(err) {
			writeError(w, http.StatusUnprocessableEntity, "Invoice cannot be recognized", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Recognition failed", err)
		return
	}

	writeJSON(w, http.StatusOK, RecognizeResultDTO{
		InvoiceID: id,
		AsOf:      asOf.String(),
		Items:     results,
	})
}

// RecognizeAll reruns recognition for every invoice paid as of the
// observation date. Unrecognizable invoices are reported, not fatal.
// POST /api/recognize
func (h *Handler) RecognizeAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req RecognizeAllRequest
	if r.Body != nil {
		// Empty body means "as of today".
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	asOf := revrec.DateOf(time.Now().UTC())
	if req.AsOf != "" {
		var err error
		if asOf, err = revrec.ParseDate(req.AsOf); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid as_of date", err)
			return
		}
	}

	invoices, err := h.Store.ListInvoices(ctx, asOf)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list invoices", err)
		return
	}

	result := RecognizeAllResultDTO{AsOf: asOf.String()}
	for _, inv := range invoices {
		if _, err := h.recognizeOne(ctx, inv, asOf); err != nil {
			if errors.Is(err, revrec.ErrUnpaidInvoice) || revrec.IsInputError(err) {
				result.Skipped = append(result.Skipped, SkippedInvoiceDTO{
					InvoiceID: inv.ID,
					Reason:    err.Error(),
				})
				continue
			}
			writeError(w, http.StatusInternalServerError,
				fmt.Sprintf("Recognition failed for invoice %s", inv.ID), err)
			return
		}
		result.Recognized++
	}

	writeJSON(w, http.StatusOK, result)
}

// recognizeOne loads an invoice's records as of the observation date, runs
// the engine per item, and persists each item's monthly entries.
func (h *Handler) recognizeOne(ctx context.Context, inv revrec.Invoice, asOf revrec.Date) ([]ItemRecognitionDTO, error) {
	items, err := h.Store.ItemsForInvoice(ctx, inv.ID)
	if err != nil {
		return nil, err
	}
	payment, err := h.Store.PaymentForInvoice(ctx, inv.ID, asOf)
	if err != nil {
		return nil, err
	}
	refunds, err := h.Store.RefundsForInvoice(ctx, inv.ID, asOf)
	if err != nil {
		return nil, err
	}
	exts, err := h.Store.ExtensionsForInvoice(ctx, inv.ID, asOf)
	if err != nil {
		return nil, err
	}

	var results []ItemRecognitionDTO
	for _, item := range items {
		recognition, err := revrec.Recognize(revrec.RecognitionInput{
			Invoice:    inv,
			Item:       item,
			Payment:    payment,
			Refunds:    refunds,
			Extensions: exts,
		})
		if err != nil {
			return nil, err
		}

		if err := h.Store.ReplaceMonthlyEntries(ctx, item.AccountID, item.ID, recognition.Months); err != nil {
			return nil, err
		}

		results = append(results, ItemRecognitionDTO{
			ItemID:     item.ID,
			Months:     toMonthlyEntryDTOs(recognition.Months),
			GraceNotes: recognition.GraceNotes,
		})
	}
	return results, nil
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

// MonthlyTotals returns the persisted monthly entries aggregated across
// all invoice items.
// GET /api/reports/monthly-totals
func (h *Handler) MonthlyTotals(w http.ResponseWriter, r *http.Request) {
	totals, err := h.Store.MonthlyTotals(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to aggregate monthly entries", err)
		return
	}
	writeJSON(w, http.StatusOK, toMonthlyTotalDTOs(totals))
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// SeedDatabase resets the store and loads generated demo data.
// POST /api/seed
func (h *Handler) SeedDatabase(w http.ResponseWriter, r *http.Request) {
	var req SeedRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	cfg := seed.DefaultConfig()
	if req.Invoices > 0 {
		cfg.Invoices = req.Invoices
	}
	if req.Year > 0 {
		cfg.Year = req.Year
	}
	if req.Seed != 0 {
		cfg.Seed = req.Seed
	}

	summary, err := seed.Load(r.Context(), h.Store, cfg)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to seed database", err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// ResetDatabase clears all data.
// POST /api/reset
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
