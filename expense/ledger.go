/*
ledger.go - Bill creation and deletion with balance synchronization

PURPOSE:
  The Engine is the only writer of bills and of payment-method balances.
  Each bill it creates or deletes moves the referenced payment method by
  exactly the bill amount (see balance.go), so the balance always agrees
  with the set of bills that reference it.

WRITE ORDER:
  1. Validate inputs against entities fetched from the store
  2. Apply the balance rule to a copy of the payment method
  3. Persist the payment method
  4. Persist (or remove) the bill

COMPENSATION:
  The store has no multi-entity transaction in general, so a failure at
  step 4 is undone by persisting the payment method read at step 1 again. If that compensating write fails too the
  balance and the bill list disagree. That gap is logged at ERROR level and
  counted by the Recorder; the caller still receives the original error.

ATOMIC STORES:
  When the store implements TxStore, steps 3 and 4 run inside one WithTx
  call and there is nothing to compensate.

CONCURRENCY:
  No locking. Single writer is assumed; two engines sharing a store can lose
  updates because the balance read at step 1 is never re-validated.

SEE ALSO:
  - balance.go: ApplyBill
  - store.go: Store, TxStore
  - errors.go: PersistenceError, CreditLimitError
*/
package expense

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// =============================================================================
// ENGINE
// =============================================================================

// Receipt is the post-operation snapshot returned to the caller. Callers own
// their cached views and refresh them from receipts.
type Receipt struct {
	Bill          Bill
	PaymentMethod PaymentMethod
}

type Engine struct {
	Store    Store
	Logger   *slog.Logger
	Recorder Recorder
	Now      func() time.Time
}

func NewEngine(store Store) *Engine {
	return &Engine{
		Store:    store,
		Logger:   slog.Default(),
		Recorder: NopRecorder{},
		Now:      time.Now,
	}
}

// =============================================================================
// CREATE
// =============================================================================

// CreateBill records a new bill and moves its payment method's balance.
//
// Preconditions are checked in order and fail fast:
//
//	amount > 0                      ErrInvalidAmount
//	payment method exists           ErrMissingPaymentMethod
//	at least one category id        ErrMissingCategory (ids are not resolved)
//	owner exists                    ErrMissingOwner
//
// A CreditLimitError aborts before anything is written.
func (e *Engine) CreateBill(ctx context.Context, in NewBill) (Receipt, error) {
	const op = "create bill"

	if !in.Amount.IsPositive() {
		return Receipt{}, e.reject(op, fmt.Errorf("%w: got %s", ErrInvalidAmount, in.Amount))
	}

	pm, ok, err := e.Store.GetPaymentMethod(ctx, in.PaymentMethodID)
	if err != nil {
		return Receipt{}, persistenceErr("load payment method", err)
	}
	if !ok {
		return Receipt{}, e.reject(op, fmt.Errorf("%w: %q", ErrMissingPaymentMethod, in.PaymentMethodID))
	}

	if len(in.CategoryIDs) == 0 {
		return Receipt{}, e.reject(op, ErrMissingCategory)
	}

	_, ok, err = e.Store.GetOwner(ctx, in.OwnerID)
	if err != nil {
		return Receipt{}, persistenceErr("load owner", err)
	}
	if !ok {
		return Receipt{}, e.reject(op, fmt.Errorf("%w: %q", ErrMissingOwner, in.OwnerID))
	}

	moves := pm.TransactionType != TxExcluded
	updated := pm
	if moves {
		updated, err = ApplyBill(pm, in.Amount)
		if err != nil {
			return Receipt{}, e.reject(op, err)
		}
	}

	now := e.now()
	bill := Bill{
		ID:              NewBillID(),
		Amount:          in.Amount,
		PaymentMethodID: in.PaymentMethodID,
		CategoryIDs:     append([]CategoryID(nil), in.CategoryIDs...),
		OwnerID:         in.OwnerID,
		Note:            in.Note,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if txs, ok := e.Store.(TxStore); ok {
		err := txs.WithTx(ctx, func(s Store) error {
			if moves {
				if err := s.UpdatePaymentMethod(ctx, updated); err != nil {
					return err
				}
			}
			return s.SaveBill(ctx, bill)
		})
		if err != nil {
			return Receipt{}, persistenceErr(op, err)
		}
	} else {
		if moves {
			if err := e.Store.UpdatePaymentMethod(ctx, updated); err != nil {
				return Receipt{}, persistenceErr("update payment method", err)
			}
		}
		if err := e.Store.SaveBill(ctx, bill); err != nil {
			if moves {
				e.compensate(ctx, op, pm, updated)
			}
			return Receipt{}, persistenceErr("save bill", err)
		}
	}

	e.recorder().BillCreated(updated, bill.Amount)
	e.logger().DebugContext(ctx, "bill created",
		"bill_id", bill.ID,
		"payment_method_id", updated.ID,
		"amount", bill.Amount.String(),
		"position", updated.Position().String(),
	)
	return Receipt{Bill: bill, PaymentMethod: updated}, nil
}

// =============================================================================
// DELETE
// =============================================================================

// DeleteBillByID resolves the bill and deletes it. ErrDataNotFound if absent.
func (e *Engine) DeleteBillByID(ctx context.Context, id BillID) (Receipt, error) {
	bill, ok, err := e.Store.GetBill(ctx, id)
	if err != nil {
		return Receipt{}, persistenceErr("load bill", err)
	}
	if !ok {
		return Receipt{}, e.reject("delete bill", fmt.Errorf("%w: bill %q", ErrDataNotFound, id))
	}
	return e.DeleteBill(ctx, bill)
}

// DeleteBill removes a bill and reverses the effect it had on its payment
// method. If the payment method no longer exists the bill is kept and
// ErrMissingPaymentMethod is returned.
func (e *Engine) DeleteBill(ctx context.Context, bill Bill) (Receipt, error) {
	const op = "delete bill"

	pm, ok, err := e.Store.GetPaymentMethod(ctx, bill.PaymentMethodID)
	if err != nil {
		return Receipt{}, persistenceErr("load payment method", err)
	}
	if !ok {
		return Receipt{}, e.reject(op, fmt.Errorf("%w: %q", ErrMissingPaymentMethod, bill.PaymentMethodID))
	}

	moves := pm.TransactionType != TxExcluded
	updated := pm
	if moves {
		updated, err = ApplyBill(pm, bill.Amount.Neg())
		if err != nil {
			return Receipt{}, e.reject(op, err)
		}
	}

	if txs, ok := e.Store.(TxStore); ok {
		err := txs.WithTx(ctx, func(s Store) error {
			if moves {
				if err := s.UpdatePaymentMethod(ctx, updated); err != nil {
					return err
				}
			}
			return s.DeleteBill(ctx, bill.ID)
		})
		if err != nil {
			return Receipt{}, persistenceErr(op, err)
		}
	} else {
		if moves {
			if err := e.Store.UpdatePaymentMethod(ctx, updated); err != nil {
				return Receipt{}, persistenceErr("update payment method", err)
			}
		}
		if err := e.Store.DeleteBill(ctx, bill.ID); err != nil {
			if moves {
				e.compensate(ctx, op, pm, updated)
			}
			return Receipt{}, persistenceErr("delete bill", err)
		}
	}

	e.recorder().BillDeleted(updated, bill.Amount)
	e.logger().DebugContext(ctx, "bill deleted",
		"bill_id", bill.ID,
		"payment_method_id", updated.ID,
		"amount", bill.Amount.String(),
		"position", updated.Position().String(),
	)
	return Receipt{Bill: bill, PaymentMethod: updated}, nil
}

// =============================================================================
// COMPENSATION
// =============================================================================

// compensate writes back before, the payment method as it was loaded ahead
// of the failed operation. Reapplying the amount is not enough: a clamped
// mutation does not invert. Failures are logged and counted, never returned:
// the caller must see the error that triggered compensation.
func (e *Engine) compensate(ctx context.Context, op string, before, applied PaymentMethod) {
	if err := e.Store.UpdatePaymentMethod(ctx, before); err != nil {
		e.recorder().Compensated(op, false)
		e.logger().ErrorContext(ctx, "compensation failed, balance no longer matches bills",
			"op", op,
			"payment_method_id", before.ID,
			"position", applied.Position().String(),
			"want_position", before.Position().String(),
			"error", err,
		)
		return
	}
	e.recorder().Compensated(op, true)
	e.logger().WarnContext(ctx, "balance restored after failed write",
		"op", op,
		"payment_method_id", before.ID,
		"position", before.Position().String(),
	)
}

func (e *Engine) reject(op string, err error) error {
	e.recorder().Rejected(op, err)
	return err
}

func (e *Engine) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

func (e *Engine) recorder() Recorder {
	if e.Recorder == nil {
		return NopRecorder{}
	}
	return e.Recorder
}
