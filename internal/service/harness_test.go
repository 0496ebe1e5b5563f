package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"pharmacy/internal/model"
	"pharmacy/internal/repository"
	"pharmacy/internal/testutil"
	"pharmacy/pkg/actor"
	"pharmacy/pkg/logger"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var pharmacist = actor.Actor{ID: "user-1", FirstName: "Jane", LastName: "Doe", Email: "jane@example.com", Role: model.RolePharmacist}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type publishedEvent struct {
	Type string
	Data interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(_ context.Context, eventType string, data interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Type: eventType, Data: data})
	return nil
}

func (p *recordingPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, 0, len(p.events))
	for _, e := range p.events {
		types = append(types, e.Type)
	}
	return types
}

type harness struct {
	db            *gorm.DB
	settings      Settings
	publisher     *recordingPublisher
	notifier      *Notifier
	txManager     repository.TransactionManager
	medicines     repository.MedicineRepository
	batches       repository.BatchRepository
	sequences     repository.SequenceRepository
	orders        repository.OrderRepository
	salesRepo     repository.SaleRepository
	prescriptions repository.PrescriptionRepository
	users         repository.UserRepository
	ledger        BatchLedger
	activity      ActivityService
	catalog       CatalogService
	orderSvc      OrderService
	sales         SaleService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := testutil.NewDB(t)

	h := &harness{
		db:            db,
		publisher:     &recordingPublisher{},
		txManager:     repository.NewTransactionManager(db),
		medicines:     repository.NewMedicineRepository(db),
		batches:       repository.NewBatchRepository(db),
		sequences:     repository.NewSequenceRepository(db),
		orders:        repository.NewOrderRepository(db),
		salesRepo:     repository.NewSaleRepository(db),
		prescriptions: repository.NewPrescriptionRepository(db),
		users:         repository.NewUserRepository(db),
	}
	h.settings = DefaultSettings()
	h.settings.Now = func() time.Time { return fixedNow }
	h.notifier = NewNotifier(logger.Nop(), nil, h.publisher)
	h.ledger = NewBatchLedger(h.batches, h.sequences)
	h.activity = NewActivityService(repository.NewActivityRepository(db))
	h.catalog = NewCatalogService(h.medicines, h.users, h.ledger, h.activity, h.txManager, h.notifier, h.settings, logger.Nop())
	h.orderSvc = h.orderService(h.sequences)
	h.sales = h.saleService(h.batches)
	return h
}

// saleService builds a sale service whose precondition reads go through batchRepo.
// Stock still moves through the shared ledger.
func (h *harness) saleService(batchRepo repository.BatchRepository) SaleService {
	return NewSaleService(h.medicines, batchRepo, h.salesRepo, h.prescriptions, h.users,
		h.ledger, h.activity, h.txManager, h.notifier, h.settings, logger.Nop())
}

func (h *harness) orderService(seqRepo repository.SequenceRepository) OrderService {
	return NewOrderService(h.medicines, h.orders, seqRepo, h.users,
		NewBatchLedger(h.batches, seqRepo), h.activity, h.txManager, h.notifier, h.settings, logger.Nop())
}

func (h *harness) count(t *testing.T, m interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, h.db.Model(m).Count(&n).Error)
	return n
}

func (h *harness) countActions(t *testing.T, pattern string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, h.db.Model(&model.ActivityLog{}).Where("action LIKE ?", pattern).Count(&n).Error)
	return n
}

// stock creates a medicine with one opening batch and returns it with that batch.
func (h *harness) stock(t *testing.T, name string, reorderLevel, quantity int, expiry string) (*model.Medicine, model.Batch) {
	t.Helper()
	detail, err := h.catalog.CreateMedicine(context.Background(), pharmacist, CreateMedicineRequest{
		Name:         name,
		Category:     "General",
		SellingPrice: dec("2.00"),
		ReorderLevel: intPtr(reorderLevel),
		InitialStock: &InitialStockRequest{
			Quantity:   intPtr(quantity),
			CostPrice:  dec("1.00"),
			ExpiryDate: date(t, expiry),
		},
	})
	require.NoError(t, err)
	require.Len(t, detail.Medicine.Batches, 1)
	return detail.Medicine, detail.Medicine.Batches[0]
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func intPtr(v int) *int {
	return &v
}

func date(t *testing.T, s string) *Date {
	t.Helper()
	parsed, err := ParseDate(s)
	require.NoError(t, err)
	return &Date{Time: parsed}
}
