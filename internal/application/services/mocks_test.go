package services

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/nowaiting/clinic-console/internal/domain/entities"
	"github.com/nowaiting/clinic-console/internal/domain/providers"
)

// MockQueueRepository is a testify mock for the primary entry store.
type MockQueueRepository struct {
	mock.Mock
}

func (m *MockQueueRepository) Create(ctx context.Context, entry *entities.QueueEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockQueueRepository) GetByID(ctx context.Context, scope entities.Scope, id string) (*entities.QueueEntry, error) {
	args := m.Called(ctx, scope, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.QueueEntry), args.Error(1)
}

func (m *MockQueueRepository) ListByScope(ctx context.Context, scope entities.Scope) ([]*entities.QueueEntry, error) {
	args := m.Called(ctx, scope)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.QueueEntry), args.Error(1)
}

func (m *MockQueueRepository) NextPosition(ctx context.Context, scope entities.Scope) (int, error) {
	args := m.Called(ctx, scope)
	return args.Int(0), args.Error(1)
}

func (m *MockQueueRepository) UpdateStatus(ctx context.Context, scope entities.Scope, id string, status entities.VisitStatus) error {
	args := m.Called(ctx, scope, id, status)
	return args.Error(0)
}

func (m *MockQueueRepository) UpdateConsultationPayment(ctx context.Context, scope entities.Scope, id string, payment *entities.ConsultationPayment) error {
	args := m.Called(ctx, scope, id, payment)
	return args.Error(0)
}

func (m *MockQueueRepository) ReplaceBills(ctx context.Context, scope entities.Scope, id string, bills []entities.Bill) error {
	args := m.Called(ctx, scope, id, bills)
	return args.Error(0)
}

// fakePointerRepo is an in-memory pointer store keyed by scope.
type fakePointerRepo struct {
	mu     sync.Mutex
	values map[string]int
	sets   []int
}

func newFakePointerRepo() *fakePointerRepo {
	return &fakePointerRepo{values: make(map[string]int)}
}

func (r *fakePointerRepo) Get(ctx context.Context, scope entities.Scope) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.values[scope.Key()], nil
}

func (r *fakePointerRepo) Set(ctx context.Context, scope entities.Scope, value int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[scope.Key()] = value
	r.sets = append(r.sets, value)
	return nil
}

// countingLedger records ledger calls and can fail a configured number of
// times before succeeding.
type countingLedger struct {
	mu            sync.Mutex
	failuresLeft  int
	failWith      error
	finished      []*entities.FinishedVisitRecord
	consultations []*providers.ConsultationPaymentRecord
	settlements   []settledBill
	attempts      int
}

type settledBill struct {
	doctorID   string
	billingID  string
	settlement *providers.BillSettlement
}

func (l *countingLedger) fail() error {
	l.attempts++
	if l.failuresLeft > 0 {
		l.failuresLeft--
		return l.failWith
	}
	return nil
}

func (l *countingLedger) RecordFinishedVisit(ctx context.Context, record *entities.FinishedVisitRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.fail(); err != nil {
		return err
	}
	l.finished = append(l.finished, record)
	return nil
}

func (l *countingLedger) RecordConsultationPayment(ctx context.Context, record *providers.ConsultationPaymentRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.fail(); err != nil {
		return err
	}
	l.consultations = append(l.consultations, record)
	return nil
}

func (l *countingLedger) SettleBill(ctx context.Context, doctorID, billingID string, settlement *providers.BillSettlement) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.fail(); err != nil {
		return err
	}
	l.settlements = append(l.settlements, settledBill{doctorID, billingID, settlement})
	return nil
}

func (l *countingLedger) GetDoctorSettings(ctx context.Context, doctorID string) (*entities.DoctorSettings, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.attempts++
	return &entities.DoctorSettings{ConsultationFee: 300, FollowUpFee: 150, AdvisoryFee: 100, UrgentFee: 500}, nil
}

// fakeFailureLog records exhausted best-effort pushes.
type fakeFailureLog struct {
	mu      sync.Mutex
	entries []string
}

func (f *fakeFailureLog) RecordFailure(ctx context.Context, entryID, operation, detail string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entryID+"/"+operation)
	return nil
}

func (f *fakeFailureLog) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.entries))
	copy(out, f.entries)
	return out
}

// fakeChangeFeed drives a synchronizer session from a test: snapshots,
// pointer values and messages pushed here arrive on the subscription
// channels exactly like feed deliveries.
type fakeChangeFeed struct {
	queueCh   chan *entities.QueueSnapshot
	pointerCh chan *entities.OrderPointerSnapshot
	messageCh chan *entities.DoctorMessage
}

func newFakeChangeFeed() *fakeChangeFeed {
	return &fakeChangeFeed{
		queueCh:   make(chan *entities.QueueSnapshot, 8),
		pointerCh: make(chan *entities.OrderPointerSnapshot, 8),
		messageCh: make(chan *entities.DoctorMessage, 8),
	}
}

func (f *fakeChangeFeed) SubscribeQueue(ctx context.Context, scope entities.Scope) (<-chan *entities.QueueSnapshot, error) {
	return f.queueCh, nil
}

func (f *fakeChangeFeed) SubscribeOrderPointer(ctx context.Context, scope entities.Scope) (<-chan *entities.OrderPointerSnapshot, error) {
	return f.pointerCh, nil
}

func (f *fakeChangeFeed) SubscribeMessages(ctx context.Context, assistantID string) (<-chan *entities.DoctorMessage, error) {
	return f.messageCh, nil
}

func (f *fakeChangeFeed) PublishQueue(ctx context.Context, snapshot *entities.QueueSnapshot) error {
	f.queueCh <- snapshot
	return nil
}

func (f *fakeChangeFeed) PublishOrderPointer(ctx context.Context, scope entities.Scope, snapshot *entities.OrderPointerSnapshot) error {
	f.pointerCh <- snapshot
	return nil
}

func (f *fakeChangeFeed) PublishMessage(ctx context.Context, msg *entities.DoctorMessage) error {
	f.messageCh <- msg
	return nil
}

func (f *fakeChangeFeed) Close() error { return nil }
