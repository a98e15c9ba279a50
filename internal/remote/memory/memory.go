// Package memory is an in-memory remote gateway used by tests and
// offline development. It behaves like the real service: unknown ids
// produce 404s, and unavailability or credential rejection can be
// toggled to exercise the engine's failure classification.
package memory

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"kakebo/internal/remote"
)

// Call records one gateway invocation for assertions.
type Call struct {
	Op      string // create | update | delete | list | ping
	ID      string
	Payload remote.ExpensePayload
}

type Gateway struct {
	mu          sync.Mutex
	records     map[string]remote.Record
	order       []string
	calls       []Call
	unavailable bool
	rejectCreds bool
}

func New() *Gateway {
	return &Gateway{records: make(map[string]remote.Record)}
}

// SetUnavailable makes every call fail with remote.ErrUnavailable,
// simulating a network partition.
func (g *Gateway) SetUnavailable(unavailable bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.unavailable = unavailable
}

// SetRejectCredentials makes every call fail with a 401, simulating an
// expired bearer token.
func (g *Gateway) SetRejectCredentials(reject bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rejectCreds = reject
}

// Calls returns a copy of the recorded invocations.
func (g *Gateway) Calls() []Call {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Call(nil), g.calls...)
}

// CreateExpense implements remote.Gateway.
func (g *Gateway) CreateExpense(_ context.Context, p remote.ExpensePayload) (remote.Record, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.calls = append(g.calls, Call{Op: "create", ID: p.ID, Payload: p})
	if err := g.fault(); err != nil {
		return remote.Record{}, err
	}

	rec := recordFromPayload(p)
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if _, exists := g.records[rec.ID]; !exists {
		g.order = append(g.order, rec.ID)
	}
	g.records[rec.ID] = rec
	return rec, nil
}

// UpdateExpense implements remote.Gateway.
func (g *Gateway) UpdateExpense(_ context.Context, id string, p remote.ExpensePayload) (remote.Record, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.calls = append(g.calls, Call{Op: "update", ID: id, Payload: p})
	if err := g.fault(); err != nil {
		return remote.Record{}, err
	}

	if _, exists := g.records[id]; !exists {
		return remote.Record{}, &remote.APIError{
			StatusCode: http.StatusNotFound,
			Message:    fmt.Sprintf("expense %s not found", id),
		}
	}
	rec := recordFromPayload(p)
	rec.ID = id
	g.records[id] = rec
	return rec, nil
}

// DeleteExpense implements remote.Gateway.
func (g *Gateway) DeleteExpense(_ context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.calls = append(g.calls, Call{Op: "delete", ID: id})
	if err := g.fault(); err != nil {
		return err
	}

	if _, exists := g.records[id]; !exists {
		return &remote.APIError{
			StatusCode: http.StatusNotFound,
			Message:    fmt.Sprintf("expense %s not found", id),
		}
	}
	delete(g.records, id)
	for i, existing := range g.order {
		if existing == id {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
	return nil
}

// ListExpenses implements remote.Gateway.
func (g *Gateway) ListExpenses(_ context.Context) ([]remote.Record, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.calls = append(g.calls, Call{Op: "list"})
	if err := g.fault(); err != nil {
		return nil, err
	}

	out := make([]remote.Record, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.records[id])
	}
	return out, nil
}

// Ping implements remote.Gateway.
func (g *Gateway) Ping(_ context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.calls = append(g.calls, Call{Op: "ping"})
	return g.fault()
}

func (g *Gateway) fault() error {
	if g.unavailable {
		return remote.ErrUnavailable
	}
	if g.rejectCreds {
		return &remote.APIError{StatusCode: http.StatusUnauthorized, Message: "token expired"}
	}
	return nil
}

func recordFromPayload(p remote.ExpensePayload) remote.Record {
	return remote.Record{
		ID:          p.ID,
		Description: p.Description,
		Category:    p.Category,
		Subcategory: p.Subcategory,
		AmountCents: p.AmountCents,
		OccurredAt:  p.OccurredAt,
		Notes:       p.Notes,
		ReceiptRef:  p.ReceiptRef,
		UpdatedAt:   time.Now().UTC(),
	}
}
