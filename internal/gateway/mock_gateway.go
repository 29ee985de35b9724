package gateway

import (
	"context"
	"sync"

	"rentops-backend/internal/domain"
	"rentops-backend/internal/utils"

	"github.com/google/uuid"
)

// Plan and Charge are what the mock gateway recorded.
type Plan struct {
	Ref         string
	CustomerRef string
	AmountCents int64
	Request     PlanRequest
}

type Charge struct {
	Ref         string
	CustomerRef string
	SourceRef   string
	AmountCents int64
	Request     ChargeRequest
}

type source struct {
	ref      string
	kind     domain.FundingSourceKind
	attached bool
}

type customer struct {
	email         string
	sources       map[string]*source
	defaultSource string
}

// MockGateway implements PaymentGateway in memory for local runs and tests.
type MockGateway struct {
	mu        sync.Mutex
	customers map[string]*customer
	plans     []Plan
	charges   []Charge
	failures  map[Operation]string
	calls     map[Operation]int
	// BeforeCall, when set, runs before each operation outside the lock.
	BeforeCall func(op Operation)
}

func NewMockGateway() *MockGateway {
	return &MockGateway{
		customers: map[string]*customer{},
		failures:  map[Operation]string{},
		calls:     map[Operation]int{},
	}
}

// FailOn makes every later call to op fail with code until ClearFailures.
func (g *MockGateway) FailOn(op Operation, code string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failures[op] = code
}

func (g *MockGateway) ClearFailures() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failures = map[Operation]string{}
}

func (g *MockGateway) Plans() []Plan {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Plan(nil), g.plans...)
}

func (g *MockGateway) Charges() []Charge {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Charge(nil), g.charges...)
}

func (g *MockGateway) Calls(op Operation) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[op]
}

// begin records the call and returns the injected failure, if any. The caller
// holds g.mu after begin returns.
func (g *MockGateway) begin(op Operation) error {
	if g.BeforeCall != nil {
		g.BeforeCall(op)
	}
	g.mu.Lock()
	g.calls[op]++
	if code, ok := g.failures[op]; ok {
		return NewError(op, code, "injected failure")
	}
	return nil
}

func newRef(prefix string) string {
	return prefix + "_" + uuid.NewString()
}

func (g *MockGateway) CreateCustomer(ctx context.Context, email, name string, metadata map[string]string) (string, error) {
	err := g.begin(OpCreateCustomer)
	defer g.mu.Unlock()
	if err != nil {
		return "", err
	}
	if email == "" {
		return "", NewError(OpCreateCustomer, "invalid_request", "email is required")
	}

	ref := newRef("cus")
	g.customers[ref] = &customer{email: email, sources: map[string]*source{}}
	return ref, nil
}

func (g *MockGateway) CreateFundingSource(ctx context.Context, customerRef string, kind domain.FundingSourceKind, token string) (string, error) {
	err := g.begin(OpCreateFundingSource)
	defer g.mu.Unlock()
	if err != nil {
		return "", err
	}
	c, ok := g.customers[customerRef]
	if !ok {
		return "", NewError(OpCreateFundingSource, "resource_missing", "no such customer")
	}
	if token == "" {
		return "", NewError(OpCreateFundingSource, "invalid_request", "token is required")
	}

	prefix := "card"
	if kind == domain.FundingSourceBank {
		prefix = "ba"
	}
	ref := newRef(prefix)
	c.sources[ref] = &source{ref: ref, kind: kind}
	return ref, nil
}

func (g *MockGateway) AttachSource(ctx context.Context, customerRef, sourceRef string) error {
	err := g.begin(OpAttachSource)
	defer g.mu.Unlock()
	if err != nil {
		return err
	}
	s, err := g.sourceLocked(OpAttachSource, customerRef, sourceRef)
	if err != nil {
		return err
	}
	s.attached = true
	return nil
}

func (g *MockGateway) SetDefaultSource(ctx context.Context, customerRef, sourceRef string) error {
	err := g.begin(OpSetDefaultSource)
	defer g.mu.Unlock()
	if err != nil {
		return err
	}
	s, err := g.sourceLocked(OpSetDefaultSource, customerRef, sourceRef)
	if err != nil {
		return err
	}
	if !s.attached {
		return NewError(OpSetDefaultSource, "invalid_request", "source is not attached")
	}
	g.customers[customerRef].defaultSource = sourceRef
	return nil
}

func (g *MockGateway) sourceLocked(op Operation, customerRef, sourceRef string) (*source, error) {
	c, ok := g.customers[customerRef]
	if !ok {
		return nil, NewError(op, "resource_missing", "no such customer")
	}
	s, ok := c.sources[sourceRef]
	if !ok {
		return nil, NewError(op, "resource_missing", "no such source")
	}
	return s, nil
}

func (g *MockGateway) CreateRecurringPlan(ctx context.Context, req PlanRequest) (string, error) {
	err := g.begin(OpCreateRecurringPlan)
	defer g.mu.Unlock()
	if err != nil {
		return "", err
	}
	if _, ok := g.customers[req.CustomerRef]; !ok {
		return "", NewError(OpCreateRecurringPlan, "resource_missing", "no such customer")
	}
	if (req.Anchor == nil) == (req.TrialEnd == nil) {
		return "", NewError(OpCreateRecurringPlan, "invalid_request", "exactly one of anchor and trial end is required")
	}
	if !req.Amount.IsPositive() {
		return "", NewError(OpCreateRecurringPlan, "invalid_request", "amount must be positive")
	}

	ref := newRef("sub")
	g.plans = append(g.plans, Plan{Ref: ref, CustomerRef: req.CustomerRef, AmountCents: utils.ToCents(req.Amount), Request: req})
	return ref, nil
}

func (g *MockGateway) CreateCharge(ctx context.Context, req ChargeRequest) (string, error) {
	err := g.begin(OpCreateCharge)
	defer g.mu.Unlock()
	if err != nil {
		return "", err
	}
	c, ok := g.customers[req.CustomerRef]
	if !ok {
		return "", NewError(OpCreateCharge, "resource_missing", "no such customer")
	}
	if !req.Amount.IsPositive() {
		return "", NewError(OpCreateCharge, "invalid_request", "amount must be positive")
	}

	var src *source
	for _, s := range c.sources {
		if s.kind == req.SourceKind && s.attached {
			src = s
			break
		}
	}
	if src == nil {
		return "", NewError(OpCreateCharge, "card_declined", "no attached "+string(req.SourceKind)+" source")
	}

	ref := newRef("ch")
	g.charges = append(g.charges, Charge{Ref: ref, CustomerRef: req.CustomerRef, SourceRef: src.ref, AmountCents: utils.ToCents(req.Amount), Request: req})
	return ref, nil
}
