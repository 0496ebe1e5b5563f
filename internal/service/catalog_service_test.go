package service

import (
	"context"
	"testing"
	"time"

	"pharmacy/internal/messaging"
	"pharmacy/internal/model"
	"pharmacy/pkg/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateMedicine_WithInitialStock(t *testing.T) {
	h := newHarness(t)

	detail, err := h.catalog.CreateMedicine(context.Background(), pharmacist, CreateMedicineRequest{
		Name:         " Paracetamol ",
		GenericName:  "Acetaminophen",
		Category:     "Analgesic",
		SellingPrice: dec("2.50"),
		ReorderLevel: intPtr(10),
		InitialStock: &InitialStockRequest{Quantity: intPtr(40), CostPrice: dec("1.10"), ExpiryDate: date(t, "2027-01-31")},
	})
	require.NoError(t, err)

	assert.Equal(t, "Paracetamol", detail.Medicine.Name)
	assert.Equal(t, int64(40), detail.RemainingStock)
	assert.False(t, detail.LowStock)
	require.Len(t, detail.Medicine.Batches, 1)
	assert.Equal(t, int64(1), detail.Medicine.Batches[0].BatchNumber)
	assert.Nil(t, detail.Medicine.Batches[0].OrderID)

	assert.Equal(t, int64(1), h.countActions(t, "Created medicine Paracetamol"))
	assert.Equal(t, []string{messaging.EventMedicineAdded}, h.publisher.Types())

	var user model.User
	require.NoError(t, h.db.First(&user, "id = ?", pharmacist.ID).Error)
	assert.Equal(t, "Jane Doe", user.DisplayName())
}

func TestCreateMedicine_WithoutStockIsLow(t *testing.T) {
	h := newHarness(t)

	detail, err := h.catalog.CreateMedicine(context.Background(), pharmacist, CreateMedicineRequest{
		Name:         "Ibuprofen",
		Category:     "Analgesic",
		SellingPrice: dec("3"),
	})
	require.NoError(t, err)
	assert.Empty(t, detail.Medicine.Batches)
	assert.Zero(t, detail.RemainingStock)
	assert.True(t, detail.LowStock)
	assert.Zero(t, h.count(t, &model.Batch{}))
}

func TestCreateMedicine_Validation(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		name  string
		req   CreateMedicineRequest
		field string
	}{
		{name: "blank name", req: CreateMedicineRequest{Name: "  ", Category: "A", SellingPrice: dec("1")}, field: "name"},
		{name: "missing category", req: CreateMedicineRequest{Name: "A", SellingPrice: dec("1")}, field: "category"},
		{name: "missing price", req: CreateMedicineRequest{Name: "A", Category: "B"}, field: "selling_price"},
		{name: "negative price", req: CreateMedicineRequest{Name: "A", Category: "B", SellingPrice: dec("-1")}, field: "selling_price"},
		{name: "negative reorder level", req: CreateMedicineRequest{Name: "A", Category: "B", SellingPrice: dec("1"), ReorderLevel: intPtr(-1)}, field: "reorder_level"},
		{
			name: "stock without expiry",
			req: CreateMedicineRequest{Name: "A", Category: "B", SellingPrice: dec("1"),
				InitialStock: &InitialStockRequest{Quantity: intPtr(1), CostPrice: dec("1")}},
			field: "initial_stock.expiry_date",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.catalog.CreateMedicine(context.Background(), pharmacist, tt.req)
			require.ErrorIs(t, err, apperror.ErrValidation)
			assert.Contains(t, apperror.From(err).Details, tt.field)
		})
	}
	assert.Zero(t, h.count(t, &model.Medicine{}))
	assert.Zero(t, h.count(t, &model.ActivityLog{}))
}

func TestGetMedicine(t *testing.T) {
	h := newHarness(t)
	medicine, _ := h.stock(t, "Paracetamol", 10, 12, "2027-01-31")

	// A second, earlier-expiring batch is listed first.
	_, err := h.ledger.CreateBatch(context.Background(), NewBatch{
		MedicineID: medicine.ID,
		Quantity:   3,
		CostPrice:  *dec("1"),
		ExpiryDate: time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC),
		UserID:     pharmacist.ID,
	})
	require.NoError(t, err)

	detail, err := h.catalog.GetMedicine(context.Background(), medicine.ID.String())
	require.NoError(t, err)
	require.Len(t, detail.Medicine.Batches, 2)
	assert.Equal(t, 3, detail.Medicine.Batches[0].Quantity)
	assert.Equal(t, int64(15), detail.RemainingStock)
	assert.False(t, detail.LowStock)

	_, err = h.catalog.GetMedicine(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = h.catalog.GetMedicine(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestListMedicines_Filters(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.stock(t, "Paracetamol", 10, 50, "2027-01-31")
	h.stock(t, "Paracetamol Kids", 10, 4, "2027-01-31")
	h.stock(t, "Amoxicillin", 5, 30, "2026-03-20")

	_, err := h.catalog.CreateMedicine(ctx, pharmacist, CreateMedicineRequest{
		Name: "Vitamin C", Category: "Supplement", SellingPrice: dec("1"), ExpiryDate: date(t, "2026-03-10"),
	})
	require.NoError(t, err)

	names := func(rows []MedicineSummary) []string {
		out := make([]string, 0, len(rows))
		for _, r := range rows {
			out = append(out, r.Name)
		}
		return out
	}

	all, err := h.catalog.ListMedicines(ctx, MedicineFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Amoxicillin", "Paracetamol", "Paracetamol Kids", "Vitamin C"}, names(all))

	byName, err := h.catalog.ListMedicines(ctx, MedicineFilter{Name: "paraCET"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Paracetamol", "Paracetamol Kids"}, names(byName))

	byCategory, err := h.catalog.ListMedicines(ctx, MedicineFilter{Category: "supp"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Vitamin C"}, names(byCategory))

	cutoff := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	byExpiry, err := h.catalog.ListMedicines(ctx, MedicineFilter{ExpiryBefore: &cutoff})
	require.NoError(t, err)
	assert.Equal(t, []string{"Amoxicillin", "Vitamin C"}, names(byExpiry))

	low, err := h.catalog.ListMedicines(ctx, MedicineFilter{StatusMode: StatusLowStock})
	require.NoError(t, err)
	assert.Equal(t, []string{"Paracetamol Kids", "Vitamin C"}, names(low))

	soon, err := h.catalog.ListMedicines(ctx, MedicineFilter{StatusMode: StatusExpiringSoon})
	require.NoError(t, err)
	assert.Equal(t, []string{"Amoxicillin", "Vitamin C"}, names(soon))

	_, err = h.catalog.ListMedicines(ctx, MedicineFilter{StatusMode: "expired"})
	require.ErrorIs(t, err, apperror.ErrValidation)
	assert.Contains(t, apperror.From(err).Details, "filterMode")
}

func TestSummarize(t *testing.T) {
	soon := fixedNow.AddDate(0, 0, 30)
	early := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	late := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)

	row := summarize(model.Medicine{
		ReorderLevel: 12,
		Batches: []model.Batch{
			{Quantity: 8, ExpiryDate: late},
			{Quantity: 4, ExpiryDate: early},
		},
	}, 10, soon)

	assert.Equal(t, int64(12), row.TotalQuantity)
	assert.False(t, row.IsLowStock, "threshold comparison is strict")
	assert.True(t, row.BelowReorderLevel)
	assert.True(t, row.IsExpiringSoon)
	require.NotNil(t, row.EarliestExpiry)
	assert.Equal(t, early, *row.EarliestExpiry)

	empty := summarize(model.Medicine{}, 10, soon)
	assert.True(t, empty.IsLowStock)
	assert.False(t, empty.IsExpiringSoon)
	assert.Nil(t, empty.EarliestExpiry)
}
