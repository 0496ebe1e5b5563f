package service

import (
	"context"
	"errors"
	"time"

	"pharmacy/internal/model"
	"pharmacy/internal/repository"
	"pharmacy/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// NewBatch describes a batch about to be received.
type NewBatch struct {
	MedicineID uuid.UUID
	Quantity   int
	CostPrice  decimal.Decimal
	ExpiryDate time.Time
	UserID     string
	OrderID    *uuid.UUID
}

// BatchLedger owns batch quantities. DecrementBatch is the only way stock leaves a batch.
// Callers wrap ledger calls in their own unit of work; the ledger never logs activity.
type BatchLedger interface {
	CreateBatch(ctx context.Context, nb NewBatch) (*model.Batch, error)
	DecrementBatch(ctx context.Context, batchID uuid.UUID, amount int) (*model.Batch, error)
	RemainingStock(ctx context.Context, medicineID uuid.UUID) (int64, error)
	IsLowStock(ctx context.Context, medicineID uuid.UUID, reorderLevel int) (bool, int64, error)
	ListBatches(ctx context.Context, medicineID uuid.UUID) ([]model.Batch, error)
	LinkOrder(ctx context.Context, orderID uuid.UUID, batchIDs []uuid.UUID) error
}

type batchLedger struct {
	batchRepo repository.BatchRepository
	seqRepo   repository.SequenceRepository
}

func NewBatchLedger(batchRepo repository.BatchRepository, seqRepo repository.SequenceRepository) BatchLedger {
	return &batchLedger{batchRepo: batchRepo, seqRepo: seqRepo}
}

func (l *batchLedger) CreateBatch(ctx context.Context, nb NewBatch) (*model.Batch, error) {
	if nb.MedicineID == uuid.Nil {
		return nil, apperror.ValidationField("medicine_id", "is required")
	}
	if nb.Quantity < 0 {
		return nil, apperror.ValidationField("quantity", "must not be negative")
	}
	if nb.CostPrice.IsNegative() {
		return nil, apperror.ValidationField("cost_price", "must not be negative")
	}
	if nb.ExpiryDate.IsZero() {
		return nil, apperror.ValidationField("expiry_date", "is required")
	}

	number, err := l.seqRepo.Next(ctx, model.SequenceBatchNumber)
	if err != nil {
		return nil, storeError("allocate batch number", err)
	}

	batch := &model.Batch{
		BatchNumber: number,
		MedicineID:  nb.MedicineID,
		OrderID:     nb.OrderID,
		UserID:      nb.UserID,
		Quantity:    nb.Quantity,
		CostPrice:   nb.CostPrice,
		ExpiryDate:  nb.ExpiryDate.UTC(),
	}
	if err := l.batchRepo.Create(ctx, batch); err != nil {
		return nil, storeError("create batch", err)
	}
	return batch, nil
}

// DecrementBatch removes amount units in one conditional update, so concurrent
// sales can never take a batch below zero.
func (l *batchLedger) DecrementBatch(ctx context.Context, batchID uuid.UUID, amount int) (*model.Batch, error) {
	if amount <= 0 {
		return nil, apperror.ValidationField("quantity", "must be greater than 0")
	}

	changed, err := l.batchRepo.Decrement(ctx, batchID, amount)
	if err != nil {
		return nil, storeError("decrement batch", err)
	}

	batch, err := l.batchRepo.FindByID(ctx, batchID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("batch")
		}
		return nil, storeError("reload batch", err)
	}
	if !changed {
		return nil, apperror.InsufficientStock(batch.Quantity, amount)
	}
	return batch, nil
}

func (l *batchLedger) RemainingStock(ctx context.Context, medicineID uuid.UUID) (int64, error) {
	total, err := l.batchRepo.SumQuantity(ctx, medicineID)
	if err != nil {
		return 0, storeError("sum batch quantities", err)
	}
	return total, nil
}

// IsLowStock compares remaining stock against reorderLevel, inclusive.
func (l *batchLedger) IsLowStock(ctx context.Context, medicineID uuid.UUID, reorderLevel int) (bool, int64, error) {
	remaining, err := l.RemainingStock(ctx, medicineID)
	if err != nil {
		return false, 0, err
	}
	return remaining <= int64(reorderLevel), remaining, nil
}

func (l *batchLedger) ListBatches(ctx context.Context, medicineID uuid.UUID) ([]model.Batch, error) {
	batches, err := l.batchRepo.ListByMedicine(ctx, medicineID)
	if err != nil {
		return nil, storeError("list batches", err)
	}
	return batches, nil
}

// LinkOrder attaches unlinked batches to an order. Every batch must still be unlinked.
func (l *batchLedger) LinkOrder(ctx context.Context, orderID uuid.UUID, batchIDs []uuid.UUID) error {
	linked, err := l.batchRepo.LinkOrder(ctx, orderID, batchIDs)
	if err != nil {
		return storeError("link batches to order", err)
	}
	if linked != int64(len(batchIDs)) {
		return apperror.Conflict("some batches are already linked to an order").
			WithDetails(map[string]string{"order_id": orderID.String()})
	}
	return nil
}
