package service

import (
	"context"
	"testing"

	"pharmacy/internal/messaging"
	"pharmacy/internal/model"
	"pharmacy/internal/repository"
	"pharmacy/pkg/actor"
	"pharmacy/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// staleBatchRepo reports more stock than the row holds, as a read that raced
// with another sale would.
type staleBatchRepo struct {
	repository.BatchRepository
	extra int
}

func (r staleBatchRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Batch, error) {
	batch, err := r.BatchRepository.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	batch.Quantity += r.extra
	return batch, nil
}

func (h *harness) assertNoSaleRecords(t *testing.T) {
	t.Helper()
	assert.Zero(t, h.count(t, &model.Sale{}))
	assert.Zero(t, h.count(t, &model.SaleItem{}))
	assert.Zero(t, h.count(t, &model.Prescription{}))
}

func TestSell_RecordsSaleAndFlagsLowStock(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	medicine, batch := h.stock(t, "Paracetamol", 10, 12, "2027-01-31")

	result, err := h.sales.Sell(ctx, pharmacist, medicine.ID.String(), SellRequest{
		BatchID:       batch.ID.String(),
		Quantity:      5,
		PaymentMethod: "cash",
		PatientName:   "  John Smith ",
		Notes:         "after meals",
	})
	require.NoError(t, err)

	assert.Equal(t, 7, result.UpdatedBatch.Quantity)
	assert.Equal(t, int64(7), result.RemainingStock)
	assert.True(t, result.LowStock)
	assert.True(t, result.Sale.TotalAmount.Equal(decimal.NewFromInt(10)))
	assert.True(t, result.SaleItem.UnitPrice.Equal(decimal.NewFromInt(2)))
	assert.Equal(t, "Paracetamol", result.SaleItem.MedicineName)
	require.NotNil(t, result.SaleItem.PrescriptionID)

	assert.Equal(t, int64(1), h.count(t, &model.Sale{}))
	assert.Equal(t, int64(1), h.count(t, &model.SaleItem{}))
	assert.Equal(t, int64(1), h.count(t, &model.Prescription{}))
	assert.Equal(t, int64(1), h.countActions(t, "Low stock for Paracetamol%"))

	var prescription model.Prescription
	require.NoError(t, h.db.First(&prescription, "id = ?", *result.SaleItem.PrescriptionID).Error)
	assert.Equal(t, "John Smith", prescription.PatientName)
	assert.Equal(t, "Jane Doe", prescription.DoctorName)

	assert.Equal(t, []string{messaging.EventMedicineAdded, messaging.EventSaleRecorded, messaging.EventStockLow}, h.publisher.Types())

	sale, err := h.sales.GetSale(ctx, result.Sale.ID.String())
	require.NoError(t, err)
	require.Len(t, sale.Items, 1)
	assert.Equal(t, 5, sale.Items[0].Quantity)
	require.NotNil(t, sale.User)
	assert.Equal(t, "Jane Doe", sale.User.DisplayName())
}

func TestSell_AboveReorderLevelIsNotLow(t *testing.T) {
	h := newHarness(t)
	medicine, batch := h.stock(t, "Amoxicillin", 5, 50, "2027-01-31")

	result, err := h.sales.Sell(context.Background(), pharmacist, medicine.ID.String(), SellRequest{
		BatchID:     batch.ID.String(),
		Quantity:    10,
		PatientName: "Mary",
	})
	require.NoError(t, err)
	assert.False(t, result.LowStock)
	assert.Equal(t, int64(40), result.RemainingStock)
	assert.Zero(t, h.countActions(t, "Low stock%"))
}

func TestSell_SellingEverythingLeavesZero(t *testing.T) {
	h := newHarness(t)
	medicine, batch := h.stock(t, "Cetirizine", 0, 12, "2027-01-31")

	result, err := h.sales.Sell(context.Background(), pharmacist, medicine.ID.String(), SellRequest{
		BatchID:     batch.ID.String(),
		Quantity:    12,
		PatientName: "Mary",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, result.UpdatedBatch.Quantity)
	assert.Zero(t, result.RemainingStock)
	assert.True(t, result.LowStock)
	assert.Equal(t, int64(1), h.countActions(t, "Low stock for Cetirizine (0 left)"))
}

func TestSell_PriceOverrideAndDiscount(t *testing.T) {
	h := newHarness(t)
	medicine, batch := h.stock(t, "Ibuprofen", 0, 20, "2027-01-31")

	result, err := h.sales.Sell(context.Background(), pharmacist, medicine.ID.String(), SellRequest{
		BatchID:     batch.ID.String(),
		Quantity:    3,
		UnitPrice:   dec("4.50"),
		Discount:    dec("1.50"),
		PatientName: "Mary",
	})
	require.NoError(t, err)
	assert.True(t, result.SaleItem.TotalPrice.Equal(decimal.RequireFromString("13.50")))
	assert.True(t, result.Sale.Discount.Equal(decimal.RequireFromString("1.50")))
	assert.True(t, result.Sale.TotalAmount.Equal(decimal.NewFromInt(12)))
}

func TestSell_RejectsBeforeWriting(t *testing.T) {
	h := newHarness(t)
	medicine, batch := h.stock(t, "Paracetamol", 10, 12, "2027-01-31")
	_, otherBatch := h.stock(t, "Aspirin", 0, 30, "2027-01-31")

	tests := []struct {
		name       string
		medicineID string
		req        SellRequest
		anonymous  bool
		kind       apperror.Kind
		field      string
	}{
		{
			name:       "zero quantity",
			medicineID: medicine.ID.String(),
			req:        SellRequest{BatchID: batch.ID.String(), Quantity: 0, PatientName: "John"},
			kind:       apperror.KindValidation,
			field:      "quantity",
		},
		{
			name:       "negative quantity",
			medicineID: medicine.ID.String(),
			req:        SellRequest{BatchID: batch.ID.String(), Quantity: -2, PatientName: "John"},
			kind:       apperror.KindValidation,
			field:      "quantity",
		},
		{
			name:       "blank patient",
			medicineID: medicine.ID.String(),
			req:        SellRequest{BatchID: batch.ID.String(), Quantity: 1, PatientName: "   "},
			kind:       apperror.KindValidation,
			field:      "patient_name",
		},
		{
			name:       "malformed batch id",
			medicineID: medicine.ID.String(),
			req:        SellRequest{BatchID: "nope", Quantity: 1, PatientName: "John"},
			kind:       apperror.KindValidation,
			field:      "batch_id",
		},
		{
			name:       "unknown batch",
			medicineID: medicine.ID.String(),
			req:        SellRequest{BatchID: uuid.NewString(), Quantity: 1, PatientName: "John"},
			kind:       apperror.KindNotFound,
		},
		{
			name:       "batch of another medicine",
			medicineID: medicine.ID.String(),
			req:        SellRequest{BatchID: otherBatch.ID.String(), Quantity: 1, PatientName: "John"},
			kind:       apperror.KindConflict,
		},
		{
			name:       "more than the batch holds",
			medicineID: medicine.ID.String(),
			req:        SellRequest{BatchID: batch.ID.String(), Quantity: 13, PatientName: "John"},
			kind:       apperror.KindInsufficientStock,
		},
		{
			name:       "discount above total",
			medicineID: medicine.ID.String(),
			req:        SellRequest{BatchID: batch.ID.String(), Quantity: 1, Discount: dec("5"), PatientName: "John"},
			kind:       apperror.KindValidation,
			field:      "discount",
		},
		{
			name:       "negative unit price",
			medicineID: medicine.ID.String(),
			req:        SellRequest{BatchID: batch.ID.String(), Quantity: 1, UnitPrice: dec("-1"), PatientName: "John"},
			kind:       apperror.KindValidation,
			field:      "unit_price",
		},
		{
			name:       "no acting user",
			medicineID: medicine.ID.String(),
			req:        SellRequest{BatchID: batch.ID.String(), Quantity: 1, PatientName: "John"},
			anonymous:  true,
			kind:       apperror.KindValidation,
			field:      "actor",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := pharmacist
			if tt.anonymous {
				a = actor.Actor{}
			}
			_, err := h.sales.Sell(context.Background(), a, tt.medicineID, tt.req)
			require.Error(t, err)
			appErr := apperror.From(err)
			assert.Equal(t, tt.kind, appErr.Kind)
			if tt.field != "" {
				assert.Contains(t, appErr.Details, tt.field)
			}
			h.assertNoSaleRecords(t)
		})
	}

	// Nothing moved.
	for id, want := range map[uuid.UUID]int{batch.ID: 12, otherBatch.ID: 30} {
		reloaded, err := h.batches.FindByID(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, want, reloaded.Quantity)
	}
	assert.Zero(t, h.countActions(t, "Low stock%"))
}

func TestSell_InsufficientStockReportsAvailable(t *testing.T) {
	h := newHarness(t)
	medicine, batch := h.stock(t, "Paracetamol", 10, 12, "2027-01-31")

	_, err := h.sales.Sell(context.Background(), pharmacist, medicine.ID.String(), SellRequest{
		BatchID:     batch.ID.String(),
		Quantity:    20,
		PatientName: "John",
	})
	require.ErrorIs(t, err, apperror.ErrInsufficientStock)
	appErr := apperror.From(err)
	assert.Equal(t, 12, appErr.Available)
	assert.Equal(t, "12", appErr.Details["available"])
	assert.Equal(t, "20", appErr.Details["requested"])
}

func TestSell_StaleReadRollsBackEverything(t *testing.T) {
	h := newHarness(t)
	medicine, batch := h.stock(t, "Paracetamol", 10, 12, "2027-01-31")
	sales := h.saleService(staleBatchRepo{BatchRepository: h.batches, extra: 100})

	_, err := sales.Sell(context.Background(), pharmacist, medicine.ID.String(), SellRequest{
		BatchID:     batch.ID.String(),
		Quantity:    20,
		PatientName: "John",
	})
	require.ErrorIs(t, err, apperror.ErrInsufficientStock)
	assert.Equal(t, 12, apperror.From(err).Available)

	h.assertNoSaleRecords(t)
	reloaded, err := h.batches.FindByID(context.Background(), batch.ID)
	require.NoError(t, err)
	assert.Equal(t, 12, reloaded.Quantity)
	assert.NotContains(t, h.publisher.Types(), messaging.EventSaleRecorded)
}

func TestSell_UnknownMedicine(t *testing.T) {
	h := newHarness(t)
	_, batch := h.stock(t, "Paracetamol", 10, 12, "2027-01-31")

	_, err := h.sales.Sell(context.Background(), pharmacist, uuid.NewString(), SellRequest{
		BatchID:     batch.ID.String(),
		Quantity:    1,
		PatientName: "John",
	})
	// The batch exists but belongs to a different medicine id.
	assert.ErrorIs(t, err, apperror.ErrConflict)
	h.assertNoSaleRecords(t)
}

func TestGetSale_NotFound(t *testing.T) {
	h := newHarness(t)

	_, err := h.sales.GetSale(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = h.sales.GetSale(context.Background(), "bad")
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestPrice(t *testing.T) {
	unit, total, discount, err := price(decimal.RequireFromString("2.50"), SellRequest{Quantity: 4})
	require.NoError(t, err)
	assert.True(t, unit.Equal(decimal.RequireFromString("2.50")))
	assert.True(t, total.Equal(decimal.NewFromInt(10)))
	assert.True(t, discount.IsZero())

	_, _, _, err = price(decimal.NewFromInt(1), SellRequest{Quantity: 1, Discount: dec("-0.01")})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, _, _, err = price(decimal.NewFromInt(1), SellRequest{Quantity: 2, Discount: dec("2")})
	assert.NoError(t, err, "discount equal to the total is allowed")
}
