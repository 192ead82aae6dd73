package expense

import "github.com/shopspring/decimal"

// Recorder observes ledger outcomes. The metrics package provides the
// Prometheus implementation; NopRecorder is the default.
type Recorder interface {
	BillCreated(pm PaymentMethod, amount decimal.Decimal)
	BillDeleted(pm PaymentMethod, amount decimal.Decimal)
	Rejected(op string, err error)
	Compensated(op string, ok bool)
}

type NopRecorder struct{}

func (NopRecorder) BillCreated(PaymentMethod, decimal.Decimal) {}
func (NopRecorder) BillDeleted(PaymentMethod, decimal.Decimal) {}
func (NopRecorder) Rejected(string, error)                     {}
func (NopRecorder) Compensated(string, bool)                   {}
