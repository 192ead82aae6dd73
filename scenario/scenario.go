/*
scenario.go - Seed scenarios for demos and manual testing

PURPOSE:
  A scenario is a YAML document that describes categories, owners, payment
  methods and bills by name. Applying it wipes the store (when the store
  supports Reset) and rebuilds everything through the same Directory,
  Methods and Engine calls a client would make, so seeded data obeys every
  ledger rule.

BUILT-IN SCENARIOS:
  household:           Shared checking, salary income, one credit card
  credit-near-limit:   Credit card 200 below its limit
  excluded-transfers:  Excluded account next to a regular wallet

FORMAT:
  Amounts are strings so they parse exactly into decimals:

    payment_methods:
      - name: Visa
        account: credit
        transaction_type: expense
        credit_limit: "5000.00"
        outstanding_balance: "0"
    bills:
      - amount: "42.75"
        method: Visa
        categories: [Food]
        owner: Sam

USAGE:
  POST /api/scenarios/load   {"scenario_id": "household"}
  expensectl seed household
  SEED_SCENARIO=household    (server start-up)

SEE ALSO:
  - builtin/*.yaml: The embedded scenarios
  - api/handlers.go: ListScenarios, LoadScenario
*/
package scenario

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/warp/household-ledger/expense"
)

//go:embed builtin/*.yaml
var builtinFS embed.FS

// ErrUnknownScenario is returned by Find and Load for an id that is not built in.
var ErrUnknownScenario = errors.New("unknown scenario")

// =============================================================================
// DOCUMENT
// =============================================================================

type Scenario struct {
	ID             string       `yaml:"id" json:"id"`
	Name           string       `yaml:"name" json:"name"`
	Description    string       `yaml:"description" json:"description"`
	Categories     []string     `yaml:"categories" json:"-"`
	Owners         []string     `yaml:"owners" json:"-"`
	PaymentMethods []MethodSpec `yaml:"payment_methods" json:"-"`
	Bills          []BillSpec   `yaml:"bills" json:"-"`
}

type MethodSpec struct {
	Name               string `yaml:"name"`
	Account            string `yaml:"account"`
	TransactionType    string `yaml:"transaction_type"`
	CreditLimit        string `yaml:"credit_limit"`
	OutstandingBalance string `yaml:"outstanding_balance"`
	BillingDay         int    `yaml:"billing_day"`
	Balance            string `yaml:"balance"`
}

// BillSpec references its payment method, categories and owner by name.
type BillSpec struct {
	Amount     string   `yaml:"amount"`
	Method     string   `yaml:"method"`
	Categories []string `yaml:"categories"`
	Owner      string   `yaml:"owner"`
	Note       string   `yaml:"note"`
}

// Summary counts what Apply created.
type Summary struct {
	Scenario       string `json:"scenario"`
	Categories     int    `json:"categories"`
	Owners         int    `json:"owners"`
	PaymentMethods int    `json:"payment_methods"`
	Bills          int    `json:"bills"`
}

// Parse decodes one scenario document. Unknown keys are rejected.
func Parse(data []byte) (Scenario, error) {
	var sc Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil {
		return Scenario{}, fmt.Errorf("decode scenario: %w", err)
	}
	if sc.ID == "" {
		return Scenario{}, errors.New("decode scenario: missing id")
	}
	return sc, nil
}

// =============================================================================
// BUILT-INS
// =============================================================================

// List returns the embedded scenarios sorted by id.
func List() ([]Scenario, error) {
	entries, err := fs.ReadDir(builtinFS, "builtin")
	if err != nil {
		return nil, err
	}

	out := make([]Scenario, 0, len(entries))
	for _, e := range entries {
		data, err := builtinFS.ReadFile(path.Join("builtin", e.Name()))
		if err != nil {
			return nil, err
		}
		sc, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.Name(), err)
		}
		out = append(out, sc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func Find(id string) (Scenario, error) {
	all, err := List()
	if err != nil {
		return Scenario{}, err
	}
	for _, sc := range all {
		if sc.ID == id {
			return sc, nil
		}
	}
	return Scenario{}, fmt.Errorf("%w: %q", ErrUnknownScenario, id)
}

// Load finds a built-in scenario by id and applies it.
func Load(ctx context.Context, engine *expense.Engine, id string) (Summary, error) {
	sc, err := Find(id)
	if err != nil {
		return Summary{}, err
	}
	return Apply(ctx, engine, sc)
}

// =============================================================================
// APPLY
// =============================================================================

// Apply resets the engine's store if it implements expense.Resetter, then
// creates the scenario's entities in dependency order. The first failing
// step aborts; entities created before it are left in place.
func Apply(ctx context.Context, engine *expense.Engine, sc Scenario) (Summary, error) {
	store := engine.Store
	if r, ok := store.(expense.Resetter); ok {
		if err := r.Reset(ctx); err != nil {
			return Summary{}, fmt.Errorf("reset store: %w", err)
		}
	}

	dir := expense.NewDirectory(store)
	methods := expense.NewMethods(store)
	sum := Summary{Scenario: sc.ID}

	categories := make(map[string]expense.CategoryID, len(sc.Categories))
	for _, name := range sc.Categories {
		c, err := dir.CreateCategory(ctx, name)
		if err != nil {
			return sum, err
		}
		categories[c.Name] = c.ID
		sum.Categories++
	}

	owners := make(map[string]expense.OwnerID, len(sc.Owners))
	for _, name := range sc.Owners {
		o, err := dir.CreateOwner(ctx, name)
		if err != nil {
			return sum, err
		}
		owners[o.Name] = o.ID
		sum.Owners++
	}

	pms := make(map[string]expense.PaymentMethodID, len(sc.PaymentMethods))
	for _, spec := range sc.PaymentMethods {
		pm, err := createMethod(ctx, methods, spec)
		if err != nil {
			return sum, err
		}
		pms[pm.Name] = pm.ID
		sum.PaymentMethods++
	}

	for i, spec := range sc.Bills {
		in, err := spec.resolve(categories, owners, pms)
		if err != nil {
			return sum, fmt.Errorf("bill %d: %w", i+1, err)
		}
		if _, err := engine.CreateBill(ctx, in); err != nil {
			return sum, fmt.Errorf("bill %d: %w", i+1, err)
		}
		sum.Bills++
	}
	return sum, nil
}

func createMethod(ctx context.Context, methods *expense.Methods, spec MethodSpec) (expense.PaymentMethod, error) {
	txType := expense.TransactionType(spec.TransactionType)

	switch expense.AccountType(spec.Account) {
	case expense.AccountCredit:
		limit, err := amount(spec.CreditLimit)
		if err != nil {
			return expense.PaymentMethod{}, fmt.Errorf("payment method %q credit_limit: %w", spec.Name, err)
		}
		outstanding, err := amount(spec.OutstandingBalance)
		if err != nil {
			return expense.PaymentMethod{}, fmt.Errorf("payment method %q outstanding_balance: %w", spec.Name, err)
		}
		return methods.CreateCredit(ctx, expense.CreditInput{
			Name:            spec.Name,
			TransactionType: txType,
			Limit:           limit,
			Outstanding:     outstanding,
			BillingDay:      spec.BillingDay,
		})
	case expense.AccountSavings:
		balance, err := amount(spec.Balance)
		if err != nil {
			return expense.PaymentMethod{}, fmt.Errorf("payment method %q balance: %w", spec.Name, err)
		}
		return methods.CreateSavings(ctx, expense.SavingsInput{
			Name:            spec.Name,
			TransactionType: txType,
			Balance:         balance,
		})
	default:
		return expense.PaymentMethod{}, fmt.Errorf("payment method %q: unknown account %q", spec.Name, spec.Account)
	}
}

func (b BillSpec) resolve(
	categories map[string]expense.CategoryID,
	owners map[string]expense.OwnerID,
	methods map[string]expense.PaymentMethodID,
) (expense.NewBill, error) {
	amt, err := amount(b.Amount)
	if err != nil {
		return expense.NewBill{}, err
	}

	pmID, ok := methods[b.Method]
	if !ok {
		return expense.NewBill{}, fmt.Errorf("%w: %q", expense.ErrMissingPaymentMethod, b.Method)
	}
	ownerID, ok := owners[b.Owner]
	if !ok {
		return expense.NewBill{}, fmt.Errorf("%w: %q", expense.ErrMissingOwner, b.Owner)
	}

	catIDs := make([]expense.CategoryID, 0, len(b.Categories))
	for _, name := range b.Categories {
		id, ok := categories[name]
		if !ok {
			return expense.NewBill{}, fmt.Errorf("%w: %q", expense.ErrMissingCategory, name)
		}
		catIDs = append(catIDs, id)
	}

	return expense.NewBill{
		Amount:          amt,
		PaymentMethodID: pmID,
		CategoryIDs:     catIDs,
		OwnerID:         ownerID,
		Note:            b.Note,
	}, nil
}

// amount parses a decimal string; empty means zero.
func amount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}
