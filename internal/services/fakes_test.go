package services

import (
	"context"
	"sync"
	"time"

	"ticketd/internal/apperrors"
	"ticketd/internal/gateway"
	"ticketd/internal/models"
	"ticketd/internal/store"
)

// fakeStore is an in-memory Store with copy-on-commit transactions. The
// store mutex is held for the whole transaction, which mirrors how the
// row locks serialize writers in Postgres.
type fakeStore struct {
	mu        sync.Mutex
	tickets   map[string]*models.Ticket
	purchases map[string]*models.Purchase
	listings  map[string]*models.ResaleListing
	payments  map[string]*models.Payment
	history   []*models.ResaleHistory
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tickets:   map[string]*models.Ticket{},
		purchases: map[string]*models.Purchase{},
		listings:  map[string]*models.ResaleListing{},
		payments:  map[string]*models.Payment{},
	}
}

func (s *fakeStore) Transactional(ctx context.Context, fn func(tx store.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx := &fakeTx{
		s:         s,
		tickets:   map[string]*models.Ticket{},
		purchases: map[string]*models.Purchase{},
		listings:  map[string]*models.ResaleListing{},
		payments:  map[string]*models.Payment{},
	}
	if err := fn(tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

func (s *fakeStore) PurchaseByID(ctx context.Context, id string) (*models.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.purchases[id]
	if !ok {
		return nil, apperrors.Newf(apperrors.KindNotFound, "purchase %s not found", id)
	}
	cp := *p
	return &cp, nil
}

func (s *fakeStore) PaymentByReference(ctx context.Context, reference string) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[reference]
	if !ok {
		return nil, apperrors.Newf(apperrors.KindNotFound, "payment %s not found", reference)
	}
	cp := *p
	return &cp, nil
}

func (s *fakeStore) Ping(ctx context.Context) error { return nil }

// test helpers reading committed state outside a transaction

func (s *fakeStore) ticket(id string) *models.Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneTicket(s.tickets[id])
}

func (s *fakeStore) payment(reference string) *models.Payment {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[reference]
	if !ok {
		return nil
	}
	cp := *p
	return &cp
}

func (s *fakeStore) purchaseByReference(reference string) *models.Purchase {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.purchases {
		if p.PaymentReference == reference {
			cp := *p
			return &cp
		}
	}
	return nil
}

func (s *fakeStore) listing(id string) *models.ResaleListing {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.listings[id]
	if !ok {
		return nil
	}
	cp := *l
	return &cp
}

func (s *fakeStore) counts() (purchases, payments, historyRows int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.purchases), len(s.payments), len(s.history)
}

type fakeTx struct {
	s         *fakeStore
	tickets   map[string]*models.Ticket
	purchases map[string]*models.Purchase
	listings  map[string]*models.ResaleListing
	payments  map[string]*models.Payment
	history   []*models.ResaleHistory
}

func (tx *fakeTx) commit() {
	for id, t := range tx.tickets {
		tx.s.tickets[id] = t
	}
	for id, p := range tx.purchases {
		tx.s.purchases[id] = p
	}
	for id, l := range tx.listings {
		tx.s.listings[id] = l
	}
	for ref, p := range tx.payments {
		tx.s.payments[ref] = p
	}
	tx.s.history = append(tx.s.history, tx.history...)
}

func cloneTicket(t *models.Ticket) *models.Ticket {
	if t == nil {
		return nil
	}
	cp := *t
	if t.RemainingQuantity != nil {
		v := *t.RemainingQuantity
		cp.RemainingQuantity = &v
	}
	if t.PurchaseLimit != nil {
		v := *t.PurchaseLimit
		cp.PurchaseLimit = &v
	}
	if t.BasePrice != nil {
		v := *t.BasePrice
		cp.BasePrice = &v
	}
	if t.MaxResalePrice != nil {
		v := *t.MaxResalePrice
		cp.MaxResalePrice = &v
	}
	return &cp
}

func (tx *fakeTx) TicketByID(ctx context.Context, id string) (*models.Ticket, error) {
	if t, ok := tx.tickets[id]; ok {
		return t, nil
	}
	base, ok := tx.s.tickets[id]
	if !ok {
		return nil, apperrors.Newf(apperrors.KindNotFound, "ticket %s not found", id)
	}
	t := cloneTicket(base)
	tx.tickets[id] = t
	return t, nil
}

func (tx *fakeTx) TicketForUpdate(ctx context.Context, id string) (*models.Ticket, error) {
	return tx.TicketByID(ctx, id)
}

func (tx *fakeTx) UpdateTicket(ctx context.Context, t *models.Ticket) error {
	tx.tickets[t.ID] = t
	return nil
}

func (tx *fakeTx) CreatePurchase(ctx context.Context, p *models.Purchase) error {
	tx.purchases[p.ID] = p
	return nil
}

func (tx *fakeTx) UpdatePurchase(ctx context.Context, p *models.Purchase) error {
	tx.purchases[p.ID] = p
	return nil
}

func (tx *fakeTx) PurchaseByPaymentReference(ctx context.Context, reference string) (*models.Purchase, error) {
	for _, p := range tx.purchases {
		if p.PaymentReference == reference {
			return p, nil
		}
	}
	for _, base := range tx.s.purchases {
		if base.PaymentReference == reference {
			cp := *base
			tx.purchases[cp.ID] = &cp
			return &cp, nil
		}
	}
	return nil, apperrors.Newf(apperrors.KindNotFound, "purchase for payment %s not found", reference)
}

func (tx *fakeTx) CreateListing(ctx context.Context, l *models.ResaleListing) error {
	tx.listings[l.ID] = l
	return nil
}

func (tx *fakeTx) ListingForUpdate(ctx context.Context, id string) (*models.ResaleListing, error) {
	if l, ok := tx.listings[id]; ok {
		return l, nil
	}
	base, ok := tx.s.listings[id]
	if !ok {
		return nil, apperrors.Newf(apperrors.KindNotFound, "listing %s not found", id)
	}
	cp := *base
	tx.listings[id] = &cp
	return &cp, nil
}

func (tx *fakeTx) UpdateListing(ctx context.Context, l *models.ResaleListing) error {
	tx.listings[l.ID] = l
	return nil
}

func (tx *fakeTx) CreateResaleHistory(ctx context.Context, h *models.ResaleHistory) error {
	tx.history = append(tx.history, h)
	return nil
}

func (tx *fakeTx) CreatePayment(ctx context.Context, p *models.Payment) error {
	tx.payments[p.Reference] = p
	return nil
}

func (tx *fakeTx) PaymentForUpdate(ctx context.Context, reference string) (*models.Payment, error) {
	if p, ok := tx.payments[reference]; ok {
		return p, nil
	}
	base, ok := tx.s.payments[reference]
	if !ok {
		return nil, apperrors.Newf(apperrors.KindNotFound, "payment %s not found", reference)
	}
	cp := *base
	tx.payments[reference] = &cp
	return &cp, nil
}

func (tx *fakeTx) UpdatePayment(ctx context.Context, p *models.Payment) error {
	tx.payments[p.Reference] = p
	return nil
}

// fakeLocker hands out at most one token per key, in process.
type fakeLocker struct {
	mu         sync.Mutex
	held       map[string]bool
	acquireErr error
	acquires   int
	releases   int
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: map[string]bool{}}
}

func (l *fakeLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.acquireErr != nil {
		return false, l.acquireErr
	}
	if l.held[key] {
		return false, nil
	}
	l.held[key] = true
	l.acquires++
	return true, nil
}

func (l *fakeLocker) Release(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, key)
	l.releases++
	return nil
}

func (l *fakeLocker) releaseCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.releases
}

// fakeGateway records calls and returns canned answers.
type fakeGateway struct {
	mu           sync.Mutex
	name         string
	initErr      error
	verifyResult *gateway.VerifyResult
	verifyErr    error
	signature    string
	initCalls    []gateway.InitializeRequest
	verifyCalls  []string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{name: "paystack", signature: "valid-signature"}
}

func (g *fakeGateway) Name() string { return g.name }

func (g *fakeGateway) Initialize(ctx context.Context, req *gateway.InitializeRequest) (*gateway.InitializeResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.initCalls = append(g.initCalls, *req)
	if g.initErr != nil {
		return nil, g.initErr
	}
	return &gateway.InitializeResult{
		GatewayReference: "PSK-" + req.Reference,
		AuthorizationURL: "https://checkout.example.com/" + req.Reference,
		RawResponse:      []byte(`{"status":true}`),
	}, nil
}

func (g *fakeGateway) Verify(ctx context.Context, reference string) (*gateway.VerifyResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.verifyCalls = append(g.verifyCalls, reference)
	if g.verifyErr != nil {
		return nil, g.verifyErr
	}
	if g.verifyResult != nil {
		return g.verifyResult, nil
	}
	return &gateway.VerifyResult{Success: true, RawResponse: []byte(`{"data":{"status":"success"}}`)}, nil
}

func (g *fakeGateway) VerifySignature(body []byte, signature string) bool {
	return signature == g.signature
}

func (g *fakeGateway) initCallCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.initCalls)
}

func (g *fakeGateway) verifyCallCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.verifyCalls)
}

// fakePublisher collects published payment events.
type fakePublisher struct {
	mu     sync.Mutex
	events []PaymentEvent
	err    error
}

func (p *fakePublisher) PublishPaymentEvent(ctx context.Context, event PaymentEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *fakePublisher) published() []PaymentEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]PaymentEvent(nil), p.events...)
}

func intPtr(v int) *int { return &v }
