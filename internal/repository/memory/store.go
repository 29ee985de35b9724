// Package memory keeps every repository in process memory. It backs the dev
// server when no database is configured and the service scenario tests.
package memory

import (
	"context"
	"sync"

	"rentops-backend/internal/domain"
	"rentops-backend/internal/repository"
)

type data struct {
	requests       map[int32]domain.MaintenanceRequest
	messages       map[int32][]domain.ConversationMessage
	paymentReqs    map[int32]domain.PaymentRequest
	actions        map[int32][]domain.PaymentRequestAction
	applications   map[int32]applicationRow
	owners         map[int32]domain.Owner
	properties     map[int32]domain.Property
	nextRequest    int32
	nextMessage    int32
	nextPaymentReq int32
	nextAction     int32
	nextApp        int32
	nextOwner      int32
	nextProperty   int32
}

func newData() *data {
	return &data{
		requests:     map[int32]domain.MaintenanceRequest{},
		messages:     map[int32][]domain.ConversationMessage{},
		paymentReqs:  map[int32]domain.PaymentRequest{},
		actions:      map[int32][]domain.PaymentRequestAction{},
		applications: map[int32]applicationRow{},
		owners:       map[int32]domain.Owner{},
		properties:   map[int32]domain.Property{},
	}
}

// clone copies the maps deeply enough that a rollback can restore them.
func (d *data) clone() *data {
	c := *d
	c.requests = cloneMap(d.requests)
	c.paymentReqs = cloneMap(d.paymentReqs)
	c.applications = cloneMap(d.applications)
	c.owners = cloneMap(d.owners)
	c.properties = cloneMap(d.properties)
	c.messages = make(map[int32][]domain.ConversationMessage, len(d.messages))
	for k, v := range d.messages {
		c.messages[k] = append([]domain.ConversationMessage(nil), v...)
	}
	c.actions = make(map[int32][]domain.PaymentRequestAction, len(d.actions))
	for k, v := range d.actions {
		c.actions[k] = append([]domain.PaymentRequestAction(nil), v...)
	}
	return &c
}

func cloneMap[V any](m map[int32]V) map[int32]V {
	c := make(map[int32]V, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

// Store mirrors postgres.Store. Individual calls are atomic under mu.
// WithinTx holds txMu for the whole transaction and restores a snapshot when
// fn fails; calls made outside a transaction also take txMu, so nothing can
// commit in the window a rollback would overwrite.
type Store struct {
	mu   sync.Mutex
	txMu sync.Mutex
	d    *data

	repository.MaintenanceRequestRepository
	repository.PaymentRequestRepository
	repository.ApplicationRepository
	repository.OwnerRepository
}

func NewStore() *Store {
	s := &Store{d: newData()}
	s.MaintenanceRequestRepository = &maintenanceRequestRepository{s: s}
	s.PaymentRequestRepository = &paymentRequestRepository{s: s}
	s.ApplicationRepository = &applicationRepository{s: s}
	s.OwnerRepository = &ownerRepository{s: s}
	return s
}

type txKey struct{}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.d.clone()
	s.mu.Unlock()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.mu.Lock()
		s.d = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) error {
	return nil
}

// lock guards one repository call. Inside WithinTx the caller already owns
// txMu.
func (s *Store) lock(ctx context.Context) func() {
	if ctx.Value(txKey{}) != nil {
		s.mu.Lock()
		return s.mu.Unlock
	}
	s.txMu.Lock()
	s.mu.Lock()
	return func() {
		s.mu.Unlock()
		s.txMu.Unlock()
	}
}

func pageBounds(total int, page, pageSize int32) (int, int) {
	if pageSize <= 0 {
		pageSize = 20
	}
	if page <= 0 {
		page = 1
	}
	start := int((page - 1) * pageSize)
	if start > total {
		start = total
	}
	end := start + int(pageSize)
	if end > total {
		end = total
	}
	return start, end
}
