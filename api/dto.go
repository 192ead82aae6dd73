/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Bills, categories and
  owners already carry json tags and go out as-is; payment methods are
  flattened here so clients see available credit without computing it.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

AMOUNTS:
  decimal.Decimal marshals as a JSON string ("12.50") and accepts either a
  string or a number on input.

VALIDATION:
  Validation is done by the expense package, not in DTOs. DTOs are pure data
  carriers; handlers only convert them.

SEE ALSO:
  - handlers.go: Uses these types
  - expense/paymentmethod.go: Tagged PaymentMethod
*/
package api

import (
	"github.com/shopspring/decimal"

	"github.com/warp/household-ledger/expense"
)

// =============================================================================
// BILLS
// =============================================================================

type CreateBillRequest struct {
	Amount          decimal.Decimal `json:"amount"`
	PaymentMethodID string          `json:"payment_method_id"`
	CategoryIDs     []string        `json:"category_ids"`
	OwnerID         string          `json:"owner_id"`
	Note            string          `json:"note"`
}

func (r CreateBillRequest) toNewBill() expense.NewBill {
	cats := make([]expense.CategoryID, len(r.CategoryIDs))
	for i, id := range r.CategoryIDs {
		cats[i] = expense.CategoryID(id)
	}
	return expense.NewBill{
		Amount:          r.Amount,
		PaymentMethodID: expense.PaymentMethodID(r.PaymentMethodID),
		CategoryIDs:     cats,
		OwnerID:         expense.OwnerID(r.OwnerID),
		Note:            r.Note,
	}
}

// ReceiptResponse is returned by bill create and delete: the bill and the
// payment method as they stand after the operation.
type ReceiptResponse struct {
	Bill          expense.Bill     `json:"bill"`
	PaymentMethod PaymentMethodDTO `json:"payment_method"`
}

func toReceiptResponse(rc expense.Receipt) ReceiptResponse {
	return ReceiptResponse{Bill: rc.Bill, PaymentMethod: toPaymentMethodDTO(rc.PaymentMethod)}
}

// =============================================================================
// PAYMENT METHODS
// =============================================================================

// PaymentMethodDTO is the flat wire form. Credit fields are set only for
// credit methods, Balance only for savings methods.
type PaymentMethodDTO struct {
	ID                 string           `json:"id"`
	Name               string           `json:"name"`
	AccountType        string           `json:"account_type"`
	TransactionType    string           `json:"transaction_type"`
	CreditLimit        *decimal.Decimal `json:"credit_limit,omitempty"`
	OutstandingBalance *decimal.Decimal `json:"outstanding_balance,omitempty"`
	AvailableCredit    *decimal.Decimal `json:"available_credit,omitempty"`
	BillingDay         *int             `json:"billing_day,omitempty"`
	Balance            *decimal.Decimal `json:"balance,omitempty"`
}

func toPaymentMethodDTO(pm expense.PaymentMethod) PaymentMethodDTO {
	dto := PaymentMethodDTO{
		ID:              string(pm.ID),
		Name:            pm.Name,
		AccountType:     string(pm.Account),
		TransactionType: string(pm.TransactionType),
	}
	switch pm.Account {
	case expense.AccountCredit:
		available := expense.AvailableCredit(pm)
		day := pm.Credit.BillingDay
		dto.CreditLimit = &pm.Credit.Limit
		dto.OutstandingBalance = &pm.Credit.Outstanding
		dto.AvailableCredit = &available
		dto.BillingDay = &day
	case expense.AccountSavings:
		dto.Balance = &pm.Savings.Balance
	}
	return dto
}

func toPaymentMethodDTOs(pms []expense.PaymentMethod) []PaymentMethodDTO {
	out := make([]PaymentMethodDTO, len(pms))
	for i, pm := range pms {
		out[i] = toPaymentMethodDTO(pm)
	}
	return out
}

type CreateCreditRequest struct {
	Name               string          `json:"name"`
	TransactionType    string          `json:"transaction_type"`
	CreditLimit        decimal.Decimal `json:"credit_limit"`
	OutstandingBalance decimal.Decimal `json:"outstanding_balance"`
	BillingDay         int             `json:"billing_day"`
}

type CreateSavingsRequest struct {
	Name            string          `json:"name"`
	TransactionType string          `json:"transaction_type"`
	Balance         decimal.Decimal `json:"balance"`
}

// UpdateCreditRequest is a partial update; omitted fields are left unchanged.
type UpdateCreditRequest struct {
	Name            *string          `json:"name"`
	TransactionType *string          `json:"transaction_type"`
	CreditLimit     *decimal.Decimal `json:"credit_limit"`
	BillingDay      *int             `json:"billing_day"`
}

func (r UpdateCreditRequest) toPatch() expense.CreditPatch {
	return expense.CreditPatch{
		Name:            r.Name,
		TransactionType: txTypePtr(r.TransactionType),
		Limit:           r.CreditLimit,
		BillingDay:      r.BillingDay,
	}
}

type UpdateSavingsRequest struct {
	Name            *string `json:"name"`
	TransactionType *string `json:"transaction_type"`
}

func (r UpdateSavingsRequest) toPatch() expense.SavingsPatch {
	return expense.SavingsPatch{
		Name:            r.Name,
		TransactionType: txTypePtr(r.TransactionType),
	}
}

func txTypePtr(s *string) *expense.TransactionType {
	if s == nil {
		return nil
	}
	t := expense.TransactionType(*s)
	return &t
}

// =============================================================================
// CATEGORIES / OWNERS
// =============================================================================

// NameRequest is the body for creating or renaming a category or owner.
type NameRequest struct {
	Name string `json:"name"`
}

type NameCheckResponse struct {
	Name   string `json:"name"`
	Unique bool   `json:"unique"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}
