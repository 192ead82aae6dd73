/*
scenarios.go - Demo scenario endpoints

PURPOSE:
  Lists the built-in seed scenarios and loads one into the store. Loading
  wipes the store first when the store supports it.

USAGE VIA API:

	GET  /api/scenarios
	POST /api/scenarios/load   {"scenario_id": "household"}
	GET  /api/scenarios/current
	POST /api/scenarios/reset

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - scenario/scenario.go: YAML format and Apply
*/
package api

import (
	"errors"
	"net/http"
	"sync"

	"github.com/warp/household-ledger/expense"
	"github.com/warp/household-ledger/scenario"
)

// currentScenario remembers the last scenario loaded through the API.
type currentScenario struct {
	mu sync.Mutex
	id string
}

func (c *currentScenario) set(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.id = id
}

func (c *currentScenario) get() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.id
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	all, err := scenario.List()
	if err != nil {
		h.fail(w, r, "Failed to list scenarios", err)
		return
	}

	out := make([]ScenarioDTO, len(all))
	for i, sc := range all {
		out[i] = ScenarioDTO{ID: sc.ID, Name: sc.Name, Description: sc.Description}
	}
	writeJSON(w, http.StatusOK, out)
}

// GetCurrentScenario returns the currently loaded scenario, or null.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	id := h.current.get()
	if id == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}

	sc, err := scenario.Find(id)
	if err != nil {
		writeJSON(w, http.StatusOK, ScenarioDTO{ID: id, Name: id})
		return
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: sc.ID, Name: sc.Name, Description: sc.Description})
}

// LoadScenario resets the store and applies a built-in scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !decode(w, r, &req) {
		return
	}

	h.current.set("")
	sum, err := scenario.Load(r.Context(), h.Engine, req.ScenarioID)
	if errors.Is(err, scenario.ErrUnknownScenario) {
		writeError(w, http.StatusNotFound, "Unknown scenario", err)
		return
	}
	if err != nil {
		h.fail(w, r, "Failed to load scenario", err)
		return
	}

	h.current.set(req.ScenarioID)
	h.Logger.InfoContext(r.Context(), "scenario loaded",
		"scenario", sum.Scenario, "bills", sum.Bills, "payment_methods", sum.PaymentMethods)
	writeJSON(w, http.StatusOK, sum)
}

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	resetter, ok := h.Engine.Store.(expense.Resetter)
	if !ok {
		writeError(w, http.StatusNotImplemented, "Store does not support reset", nil)
		return
	}
	if err := resetter.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}

	h.current.set("")
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
