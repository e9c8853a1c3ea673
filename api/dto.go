/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY:
  Internally every amount is a decimal. DTOs expose amounts as float64
  rounded to cents; the full-precision values never cross the API
  boundary.

TYPES:
  Invoices:
    InvoiceDTO, InvoiceDetailDTO, InvoiceItemDTO, PaymentDTO,
    RefundDTO, TermExtensionDTO

  Recognition:
    ItemRecognitionDTO, MonthlyEntryDTO, RecognizeAllResultDTO

  Reports:
    MonthlyTotalDTO

SEE ALSO:
  - handlers.go: Uses these types
  - revrec: the domain types these mirror
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/clearledger/revrec-engine/revrec"
	"github.com/clearledger/revrec-engine/store/sqlite"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// InvoiceDTO represents an invoice in list responses. Paid reflects the
// observation date the invoice was loaded under.
type InvoiceDTO struct {
	ID        string  `json:"id"`
	AccountID string  `json:"account_id"`
	Date      string  `json:"date"`
	Amount    float64 `json:"amount"`
	Paid      bool    `json:"paid"`
}

// InvoiceDetailDTO is a single invoice with its related records.
type InvoiceDetailDTO struct {
	Invoice    InvoiceDTO         `json:"invoice"`
	Items      []InvoiceItemDTO   `json:"items"`
	Payment    *PaymentDTO        `json:"payment,omitempty"`
	Refunds    []RefundDTO        `json:"refunds,omitempty"`
	Extensions []TermExtensionDTO `json:"extensions,omitempty"`
}

// InvoiceItemDTO represents a fee line.
type InvoiceItemDTO struct {
	ID            string  `json:"id"`
	InvoiceID     string  `json:"invoice_id"`
	ChargeName    string  `json:"charge_name,omitempty"`
	Plan          string  `json:"plan,omitempty"`
	Amount        float64 `json:"amount"`
	ServiceStart  string  `json:"service_start"`
	ServiceEnd    string  `json:"service_end"`
	BillingPeriod string  `json:"billing_period"`
}

// PaymentDTO represents a payment.
type PaymentDTO struct {
	ID     string  `json:"id"`
	Date   string  `json:"date"`
	Amount float64 `json:"amount"`
}

// RefundDTO represents a refund.
type RefundDTO struct {
	ID           string  `json:"id"`
	Date         string  `json:"date"`
	Amount       float64 `json:"amount"`
	Cancellation bool    `json:"cancellation"`
}

// TermExtensionDTO represents a term extension.
type TermExtensionDTO struct {
	ID         string `json:"id"`
	GrantDate  string `json:"grant_date"`
	ServiceEnd string `json:"service_end"`
}

// MonthlyEntryDTO is one month of recognition output.
type MonthlyEntryDTO struct {
	Month                   string  `json:"month"` // "2012-01"
	CreditRevenue           float64 `json:"cr_rev"`
	EndingDeferredRevenue   float64 `json:"ending_defrev"`
	CreditRefundPayable     float64 `json:"cr_ref_payable"`
	DebitReserveRefund      float64 `json:"dr_reserve_ref"`
	DebitContraRevenue      float64 `json:"dr_contra_rev"`
	DebitDeferredRevenue    float64 `json:"dr_defrev"`
	DebitReserveGracePeriod float64 `json:"dr_reserve_graceperiod"`
	CreditContraRevenue     float64 `json:"cr_contra_rev"`
}

// ItemRecognitionDTO is the recognition result for one invoice item.
type ItemRecognitionDTO struct {
	ItemID     string            `json:"item_id"`
	Months     []MonthlyEntryDTO `json:"months"`
	GraceNotes []string          `json:"grace_notes,omitempty"`
}

// RecognizeResultDTO is the response to recognizing a single invoice.
type RecognizeResultDTO struct {
	InvoiceID string               `json:"invoice_id"`
	AsOf      string               `json:"as_of"`
	Items     []ItemRecognitionDTO `json:"items"`
}

// RecognizeAllRequest is the request body for a full recognition run.
type RecognizeAllRequest struct {
	AsOf string `json:"as_of,omitempty"` // ISO date; defaults to today
}

// SkippedInvoiceDTO names an invoice a full run could not recognize.
type SkippedInvoiceDTO struct {
	InvoiceID string `json:"invoice_id"`
	Reason    string `json:"reason"`
}

// RecognizeAllResultDTO is the response to a full recognition run.
type RecognizeAllResultDTO struct {
	AsOf       string              `json:"as_of"`
	Recognized int                 `json:"recognized"`
	Skipped    []SkippedInvoiceDTO `json:"skipped,omitempty"`
}

// MonthlyTotalDTO is one month's aggregate across all items.
type MonthlyTotalDTO struct {
	Month                   string  `json:"month"` // "2012-01"
	CreditRevenue           float64 `json:"cr_rev"`
	EndingDeferredRevenue   float64 `json:"ending_defrev"`
	CreditRefundPayable     float64 `json:"cr_ref_payable"`
	DebitReserveRefund      float64 `json:"dr_reserve_ref"`
	DebitContraRevenue      float64 `json:"dr_contra_rev"`
	DebitDeferredRevenue    float64 `json:"dr_defrev"`
	DebitReserveGracePeriod float64 `json:"dr_reserve_graceperiod"`
	CreditContraRevenue     float64 `json:"cr_contra_rev"`
}

// SeedRequest is the request body for seeding demo data.
type SeedRequest struct {
	Invoices int   `json:"invoices,omitempty"`
	Year     int   `json:"year,omitempty"`
	Seed     int64 `json:"seed,omitempty"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func cents(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}

func toInvoiceDTO(inv revrec.Invoice) InvoiceDTO {
	return InvoiceDTO{
		ID:        inv.ID,
		AccountID: inv.AccountID,
		Date:      inv.Date.String(),
		Amount:    cents(inv.Amount),
	}
}

func toInvoiceItemDTO(item revrec.InvoiceItem) InvoiceItemDTO {
	return InvoiceItemDTO{
		ID:            item.ID,
		InvoiceID:     item.InvoiceID,
		ChargeName:    item.ChargeName,
		Plan:          item.Plan,
		Amount:        cents(item.Amount),
		ServiceStart:  item.ServiceStart.String(),
		ServiceEnd:    item.ServiceEnd.String(),
		BillingPeriod: string(item.BillingPeriod),
	}
}

func toPaymentDTO(p revrec.Payment) PaymentDTO {
	return PaymentDTO{ID: p.ID, Date: p.Date.String(), Amount: cents(p.Amount)}
}

func toRefundDTO(r revrec.Refund) RefundDTO {
	return RefundDTO{
		ID:           r.ID,
		Date:         r.Date.String(),
		Amount:       cents(r.Amount),
		Cancellation: r.Cancellation,
	}
}

func toTermExtensionDTO(ext revrec.TermExtension) TermExtensionDTO {
	return TermExtensionDTO{
		ID:         ext.ID,
		GrantDate:  ext.GrantDate.String(),
		ServiceEnd: ext.ServiceEnd.String(),
	}
}

func toMonthlyEntryDTOs(months revrec.MonthlyRollup) []MonthlyEntryDTO {
	dtos := make([]MonthlyEntryDTO, 0, len(months))
	for _, ym := range months.Months() {
		m := months[ym]
		dtos = append(dtos, MonthlyEntryDTO{
			Month:                   ym.String(),
			CreditRevenue:           cents(m.CreditRevenue),
			EndingDeferredRevenue:   cents(m.EndingDeferredRevenue),
			CreditRefundPayable:     cents(m.CreditRefundPayable),
			DebitReserveRefund:      cents(m.DebitReserveRefund),
			DebitContraRevenue:      cents(m.DebitContraRevenue),
			DebitDeferredRevenue:    cents(m.DebitDeferredRevenue),
			DebitReserveGracePeriod: cents(m.DebitReserveGracePeriod),
			CreditContraRevenue:     cents(m.CreditContraRevenue),
		})
	}
	return dtos
}

func toMonthlyTotalDTOs(totals []sqlite.MonthlyTotal) []MonthlyTotalDTO {
	dtos := make([]MonthlyTotalDTO, len(totals))
	for i, t := range totals {
		ym := revrec.YearMonth{Year: t.Year, Month: time.Month(t.Month)}
		dtos[i] = MonthlyTotalDTO{
			Month:                   ym.String(),
			CreditRevenue:           cents(t.CreditRevenue),
			EndingDeferredRevenue:   cents(t.EndingDeferredRevenue),
			CreditRefundPayable:     cents(t.CreditRefundPayable),
			DebitReserveRefund:      cents(t.DebitReserveRefund),
			DebitContraRevenue:      cents(t.DebitContraRevenue),
			DebitDeferredRevenue:    cents(t.DebitDeferredRevenue),
			DebitReserveGracePeriod: cents(t.DebitReserveGracePeriod),
			CreditContraRevenue:     cents(t.CreditContraRevenue),
		}
	}
	return dtos
}
