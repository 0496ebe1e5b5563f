package service

import (
	"context"
	"fmt"
	"strings"

	"pharmacy/internal/messaging"
	"pharmacy/internal/model"
	"pharmacy/internal/repository"
	"pharmacy/pkg/actor"
	"pharmacy/pkg/apperror"
	"pharmacy/pkg/logger"

	"github.com/shopspring/decimal"
)

// DTOs
type SellRequest struct {
	BatchID       string           `json:"batch_id"`
	Quantity      int              `json:"quantity"`
	UnitPrice     *decimal.Decimal `json:"unit_price"`
	Discount      *decimal.Decimal `json:"discount"`
	PaymentMethod string           `json:"payment_method" binding:"max=50"`
	PatientName   string           `json:"patient_name"`
	Notes         string           `json:"notes"`
}

type SaleResult struct {
	Sale           *model.Sale     `json:"sale"`
	SaleItem       *model.SaleItem `json:"sale_item"`
	UpdatedBatch   *model.Batch    `json:"updated_batch"`
	RemainingStock int64           `json:"remaining_stock"`
	LowStock       bool            `json:"low_stock"`
}

type SaleService interface {
	Sell(ctx context.Context, a actor.Actor, medicineID string, req SellRequest) (*SaleResult, error)
	GetSale(ctx context.Context, id string) (*model.Sale, error)
}

type saleService struct {
	medicineRepo     repository.MedicineRepository
	batchRepo        repository.BatchRepository
	saleRepo         repository.SaleRepository
	prescriptionRepo repository.PrescriptionRepository
	userRepo         repository.UserRepository
	ledger           BatchLedger
	activity         ActivityService
	txManager        repository.TransactionManager
	notifier         *Notifier
	settings         Settings
	log              *logger.Logger
}

func NewSaleService(
	medicineRepo repository.MedicineRepository,
	batchRepo repository.BatchRepository,
	saleRepo repository.SaleRepository,
	prescriptionRepo repository.PrescriptionRepository,
	userRepo repository.UserRepository,
	ledger BatchLedger,
	activity ActivityService,
	txManager repository.TransactionManager,
	notifier *Notifier,
	settings Settings,
	log *logger.Logger,
) SaleService {
	return &saleService{
		medicineRepo:     medicineRepo,
		batchRepo:        batchRepo,
		saleRepo:         saleRepo,
		prescriptionRepo: prescriptionRepo,
		userRepo:         userRepo,
		ledger:           ledger,
		activity:         activity,
		txManager:        txManager,
		notifier:         notifier,
		settings:         settings,
		log:              log.WithComponent("sales"),
	}
}

// Sell dispenses quantity units of one batch to a patient. Preconditions are
// checked in a fixed order before anything is written; the records, the stock
// decrement and the low-stock entry then commit together.
func (s *saleService) Sell(ctx context.Context, a actor.Actor, medicineID string, req SellRequest) (*SaleResult, error) {
	if req.Quantity <= 0 {
		return nil, apperror.ValidationField("quantity", "must be greater than 0")
	}
	patient := strings.TrimSpace(req.PatientName)
	if patient == "" {
		return nil, apperror.ValidationField("patient_name", "is required")
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	medID, err := parseID("medicine_id", medicineID)
	if err != nil {
		return nil, err
	}
	batchID, err := parseID("batch_id", req.BatchID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.settings.bound(ctx)
	defer cancel()

	var (
		result   *SaleResult
		medicine *model.Medicine
	)
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		batch, err := s.batchRepo.FindByID(txCtx, batchID)
		if err != nil {
			return lookupError("batch", err)
		}
		if batch.MedicineID != medID {
			return apperror.Conflict("batch does not belong to this medicine").
				WithDetails(map[string]string{"batch_id": batch.ID.String()})
		}
		if batch.Quantity < req.Quantity {
			return apperror.InsufficientStock(batch.Quantity, req.Quantity)
		}

		medicine, err = s.medicineRepo.FindByID(txCtx, medID)
		if err != nil {
			return lookupError("medicine", err)
		}

		unitPrice, totalPrice, discount, err := price(medicine.SellingPrice, req)
		if err != nil {
			return err
		}
		totalAmount := totalPrice.Sub(discount)

		if err := syncActor(txCtx, s.userRepo, a); err != nil {
			return err
		}

		prescription := &model.Prescription{
			PatientName: patient,
			DoctorName:  a.DisplayName(),
			Notes:       strings.TrimSpace(req.Notes),
			UserID:      a.ID,
		}
		if err := s.prescriptionRepo.Create(txCtx, prescription); err != nil {
			return storeError("create prescription", err)
		}

		sale := &model.Sale{
			UserID:        a.ID,
			TotalAmount:   totalAmount,
			Discount:      discount,
			PaymentMethod: strings.TrimSpace(req.PaymentMethod),
		}
		if err := s.saleRepo.Create(txCtx, sale); err != nil {
			return storeError("create sale", err)
		}

		item := &model.SaleItem{
			SaleID:         sale.ID,
			BatchID:        batch.ID,
			MedicineID:     medicine.ID,
			MedicineName:   medicine.Name,
			Quantity:       req.Quantity,
			UnitPrice:      unitPrice,
			TotalPrice:     totalPrice,
			PrescriptionID: &prescription.ID,
		}
		if err := s.saleRepo.CreateItem(txCtx, item); err != nil {
			return storeError("create sale item", err)
		}

		// The check above read a snapshot; the conditional decrement is what
		// guarantees the batch cannot go negative under concurrent sales.
		updated, err := s.ledger.DecrementBatch(txCtx, batch.ID, req.Quantity)
		if err != nil {
			return err
		}

		low, remaining, err := s.ledger.IsLowStock(txCtx, medicine.ID, medicine.ReorderLevel)
		if err != nil {
			return err
		}
		if low {
			if err := s.activity.Record(txCtx, a.ID,
				fmt.Sprintf("Low stock for %s (%d left)", medicine.Name, remaining),
				model.TableMedicine, medicine.ID.String(),
				map[string]interface{}{"remaining_stock": remaining, "reorder_level": medicine.ReorderLevel, "sale_id": sale.ID},
			); err != nil {
				return err
			}
		}

		result = &SaleResult{
			Sale:           sale,
			SaleItem:       item,
			UpdatedBatch:   updated,
			RemainingStock: remaining,
			LowStock:       low,
		}
		return nil
	})
	if err != nil {
		if apperror.IsKind(err, apperror.KindInsufficientStock) {
			s.log.Info().Str("batch_id", batchID.String()).Int("requested", req.Quantity).Msg("sale rejected: insufficient stock")
		}
		return nil, storeError("record sale", err)
	}

	s.log.Info().
		Str("sale_id", result.Sale.ID.String()).
		Str("batch_id", batchID.String()).
		Int("quantity", req.Quantity).
		Int64("remaining_stock", result.RemainingStock).
		Str("user_id", a.ID).
		Msg("sale recorded")

	events := []Event{{Type: messaging.EventSaleRecorded, Data: messaging.SaleRecordedEvent{
		SaleID:         result.Sale.ID.String(),
		MedicineID:     medicine.ID.String(),
		BatchID:        batchID.String(),
		Quantity:       req.Quantity,
		TotalAmount:    result.Sale.TotalAmount.StringFixed(2),
		RemainingStock: result.RemainingStock,
		ActorID:        a.ID,
	}}}
	if result.LowStock {
		s.log.Warn().
			Str("medicine_id", medicine.ID.String()).
			Int64("remaining_stock", result.RemainingStock).
			Int("reorder_level", medicine.ReorderLevel).
			Msg("low stock")
		events = append(events, Event{Type: messaging.EventStockLow, Data: messaging.StockLowEvent{
			MedicineID:     medicine.ID.String(),
			MedicineName:   medicine.Name,
			RemainingStock: result.RemainingStock,
			ReorderLevel:   medicine.ReorderLevel,
		}})
	}
	s.notifier.Committed(ctx, events...)

	return result, nil
}

// price returns unit price, line total and discount. The discount may not be
// negative or exceed the line total.
func price(sellingPrice decimal.Decimal, req SellRequest) (unit, total, discount decimal.Decimal, err error) {
	if err = nonNegative("unit_price", req.UnitPrice); err != nil {
		return
	}
	if err = nonNegative("discount", req.Discount); err != nil {
		return
	}
	unit = decimalOr(req.UnitPrice, sellingPrice)
	total = unit.Mul(decimal.NewFromInt(int64(req.Quantity)))
	discount = decimalOr(req.Discount, decimal.Zero)
	if discount.GreaterThan(total) {
		err = apperror.ValidationField("discount", "must not exceed the total price")
	}
	return
}

func (s *saleService) GetSale(ctx context.Context, id string) (*model.Sale, error) {
	saleID, err := parseID("id", id)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.settings.bound(ctx)
	defer cancel()

	sale, err := s.saleRepo.FindByIDWithItems(ctx, saleID)
	if err != nil {
		return nil, lookupError("sale", err)
	}
	return sale, nil
}
