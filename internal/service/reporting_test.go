package service

import (
	"context"
	"testing"
	"time"

	"pharmacy/internal/cache"
	"pharmacy/internal/repository"
	"pharmacy/pkg/apperror"
	"pharmacy/pkg/logger"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (h *harness) sell(t *testing.T, medicineID, batchID string, quantity int, patient string) *SaleResult {
	t.Helper()
	result, err := h.sales.Sell(context.Background(), pharmacist, medicineID, SellRequest{
		BatchID:     batchID,
		Quantity:    quantity,
		PatientName: patient,
	})
	require.NoError(t, err)
	return result
}

func TestTransactionService_List(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	svc := NewTransactionService(h.salesRepo, h.settings)

	para, paraBatch := h.stock(t, "Paracetamol", 0, 50, "2027-01-31")
	ibu, ibuBatch := h.stock(t, "Ibuprofen", 0, 50, "2027-01-31")

	first := h.sell(t, para.ID.String(), paraBatch.ID.String(), 1, "Ann")
	h.sell(t, ibu.ID.String(), ibuBatch.ID.String(), 2, "Bob")
	last := h.sell(t, para.ID.String(), paraBatch.ID.String(), 3, "Cid")

	all, total, err := svc.List(ctx, TransactionFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, all, 3)
	assert.Equal(t, last.Sale.ID, all[0].ID, "newest first")
	require.Len(t, all[0].Items, 1)
	require.NotNil(t, all[0].Items[0].Medicine)
	assert.Equal(t, "Paracetamol", all[0].Items[0].Medicine.Name)

	bySearch, total, err := svc.List(ctx, TransactionFilter{Search: "PARA"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, bySearch, 2)

	number := ibuBatch.BatchNumber
	byBatch, total, err := svc.List(ctx, TransactionFilter{BatchNumber: &number})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, byBatch, 1)
	assert.Equal(t, ibu.ID, byBatch[0].Items[0].MedicineID)

	_, total, err = svc.List(ctx, TransactionFilter{Search: "para", BatchNumber: &number})
	require.NoError(t, err)
	assert.Zero(t, total, "search and batch number must match the same item")

	paged, total, err := svc.List(ctx, TransactionFilter{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, paged, 1)
	assert.Equal(t, first.Sale.ID, paged[0].ID)

	now := time.Now()
	start, end := now.Add(-24*time.Hour), now.Add(24*time.Hour)
	inRange, _, err := svc.List(ctx, TransactionFilter{StartDate: &start, EndDate: &end})
	require.NoError(t, err)
	assert.Len(t, inRange, 3)

	past := now.Add(-48 * time.Hour)
	outOfRange, _, err := svc.List(ctx, TransactionFilter{EndDate: &past})
	require.NoError(t, err)
	assert.Empty(t, outOfRange)

	_, _, err = svc.List(ctx, TransactionFilter{StartDate: &end, EndDate: &start})
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestPrescriptionService_List(t *testing.T) {
	h := newHarness(t)
	svc := NewPrescriptionService(h.prescriptions, h.settings)
	medicine, batch := h.stock(t, "Paracetamol", 0, 50, "2027-01-31")

	h.sell(t, medicine.ID.String(), batch.ID.String(), 2, "Ann")
	h.sell(t, medicine.ID.String(), batch.ID.String(), 1, "Bob")

	list, total, err := svc.List(context.Background(), 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, list, 2)
	assert.Equal(t, "Bob", list[0].PatientName)
	require.Len(t, list[0].SaleItems, 1)
	assert.Equal(t, "Paracetamol", list[0].SaleItems[0].MedicineName)
}

func TestActivityService_List(t *testing.T) {
	h := newHarness(t)
	medicine, batch := h.stock(t, "Paracetamol", 10, 12, "2027-01-31")
	h.sell(t, medicine.ID.String(), batch.ID.String(), 5, "Ann")

	logs, total, err := h.activity.List(context.Background(), 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, logs, 2)
	for _, entry := range logs {
		assert.Equal(t, "Jane Doe", entry.UserName)
		assert.NotEmpty(t, entry.CreatedAt)
	}
}

func TestDashboardService_CachedUntilBump(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	c := cache.New(client, time.Minute)

	svc := NewDashboardService(repository.NewDashboardRepository(h.db), c, h.settings)

	para, paraBatch := h.stock(t, "Paracetamol", 0, 50, "2027-01-31")
	ibu, ibuBatch := h.stock(t, "Ibuprofen", 0, 50, "2027-01-31")
	_, err := h.catalog.CreateMedicine(ctx, pharmacist, CreateMedicineRequest{Name: "Insulin", Category: "Hormone", SellingPrice: dec("45.00")})
	require.NoError(t, err)

	h.sell(t, para.ID.String(), paraBatch.ID.String(), 8, "Ann")
	h.sell(t, ibu.ID.String(), ibuBatch.ID.String(), 3, "Bob")

	summary, err := svc.Summary(ctx)
	require.NoError(t, err)
	require.Len(t, summary.MostSold, 2)
	assert.Equal(t, "Paracetamol", summary.MostSold[0].MedicineName)
	assert.Equal(t, int64(8), summary.MostSold[0].TotalQuantity)
	require.Len(t, summary.LeastSold, 2)
	assert.Equal(t, "Ibuprofen", summary.LeastSold[0].MedicineName)
	require.Len(t, summary.MostExpensive, 3)
	assert.Equal(t, "Insulin", summary.MostExpensive[0].MedicineName)
	assert.True(t, summary.MostExpensive[0].SellingPrice.Equal(decimal.NewFromInt(45)))

	// This sale does not bump the cache, so the snapshot is served unchanged.
	h.sell(t, ibu.ID.String(), ibuBatch.ID.String(), 10, "Cid")
	cached, err := svc.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Paracetamol", cached.MostSold[0].MedicineName)

	require.NoError(t, c.Bump(ctx))
	fresh, err := svc.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Ibuprofen", fresh.MostSold[0].MedicineName)
	assert.Equal(t, int64(13), fresh.MostSold[0].TotalQuantity)
}

func TestDashboardService_WithoutCache(t *testing.T) {
	h := newHarness(t)
	svc := NewDashboardService(repository.NewDashboardRepository(h.db), nil, h.settings)

	summary, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Empty(t, summary.MostSold)
	assert.NotNil(t, summary.MostSold)
	assert.True(t, fixedNow.Equal(summary.GeneratedAt))
}

func TestNotifier_BumpsCacheAndPublishes(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	c := cache.New(client, time.Minute)
	ctx := context.Background()

	before, err := c.Key(ctx, "dashboard")
	require.NoError(t, err)

	pub := &recordingPublisher{}
	n := NewNotifier(logger.Nop(), c, pub, nil)
	n.Committed(ctx, Event{Type: "a"}, Event{Type: "b"})

	after, err := c.Key(ctx, "dashboard")
	require.NoError(t, err)
	assert.NotEqual(t, before, after)
	assert.Equal(t, []string{"a", "b"}, pub.Types())

	var nilNotifier *Notifier
	assert.NotPanics(t, func() { nilNotifier.Committed(ctx, Event{Type: "c"}) })
}
