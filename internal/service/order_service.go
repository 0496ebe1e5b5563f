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

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DTOs
type OrderMedicineRequest struct {
	Name         string           `json:"name" binding:"required,max=255"`
	GenericName  string           `json:"generic_name" binding:"max=255"`
	Category     string           `json:"category" binding:"max=100"`
	Description  string           `json:"description"`
	SellingPrice *decimal.Decimal `json:"selling_price"`
	ExpiryDate   *Date            `json:"expiry_date" binding:"required"`
	ReorderLevel *int             `json:"reorder_level" binding:"omitempty,gte=0"`
	CostPrice    *decimal.Decimal `json:"cost_price" binding:"required"`
	Quantity     *int             `json:"quantity" binding:"required,gte=0"`
}

type PlaceOrderRequest struct {
	Supplier  string                 `json:"supplier" binding:"max=255"`
	TotalCost *decimal.Decimal       `json:"total_cost"`
	Medicines []OrderMedicineRequest `json:"medicines" binding:"required,min=1,dive"`
}

type OrderResult struct {
	Order   *model.Order  `json:"order"`
	Batches []model.Batch `json:"batches"`
}

type OrderService interface {
	PlaceOrder(ctx context.Context, a actor.Actor, req PlaceOrderRequest) (*OrderResult, error)
	GetOrder(ctx context.Context, id string) (*OrderResult, error)
	ListOrders(ctx context.Context, page, limit int) ([]OrderResult, int64, error)
}

type orderService struct {
	medicineRepo repository.MedicineRepository
	orderRepo    repository.OrderRepository
	seqRepo      repository.SequenceRepository
	userRepo     repository.UserRepository
	ledger       BatchLedger
	activity     ActivityService
	txManager    repository.TransactionManager
	notifier     *Notifier
	settings     Settings
	log          *logger.Logger
}

func NewOrderService(
	medicineRepo repository.MedicineRepository,
	orderRepo repository.OrderRepository,
	seqRepo repository.SequenceRepository,
	userRepo repository.UserRepository,
	ledger BatchLedger,
	activity ActivityService,
	txManager repository.TransactionManager,
	notifier *Notifier,
	settings Settings,
	log *logger.Logger,
) OrderService {
	return &orderService{
		medicineRepo: medicineRepo,
		orderRepo:    orderRepo,
		seqRepo:      seqRepo,
		userRepo:     userRepo,
		ledger:       ledger,
		activity:     activity,
		txManager:    txManager,
		notifier:     notifier,
		settings:     settings,
		log:          log.WithComponent("orders"),
	}
}

func validateOrder(req PlaceOrderRequest) error {
	if err := validateStruct(req); err != nil {
		return err
	}
	if err := nonNegative("total_cost", req.TotalCost); err != nil {
		return err
	}
	for i, item := range req.Medicines {
		if strings.TrimSpace(item.Name) == "" {
			return validationAt(i, "name", "is required")
		}
		if item.ExpiryDate.IsZero() {
			return validationAt(i, "expiry_date", "is required")
		}
		if item.CostPrice.IsNegative() {
			return validationAt(i, "cost_price", "must not be negative")
		}
		if item.SellingPrice != nil && item.SellingPrice.IsNegative() {
			return validationAt(i, "selling_price", "must not be negative")
		}
	}
	return nil
}

// PlaceOrder receives a supplier shipment: one medicine and one batch per entry,
// then the order, then the link from each batch to the order, then one activity
// entry. All of it commits or none of it does.
func (s *orderService) PlaceOrder(ctx context.Context, a actor.Actor, req PlaceOrderRequest) (*OrderResult, error) {
	if err := validateOrder(req); err != nil {
		return nil, err
	}

	ctx, cancel := s.settings.bound(ctx)
	defer cancel()

	var result *OrderResult
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := syncActor(txCtx, s.userRepo, a); err != nil {
			return err
		}

		batchIDs := make([]uuid.UUID, 0, len(req.Medicines))
		for _, item := range req.Medicines {
			medicine := &model.Medicine{
				Name:         strings.TrimSpace(item.Name),
				GenericName:  strings.TrimSpace(item.GenericName),
				Category:     strings.TrimSpace(item.Category),
				Description:  item.Description,
				SellingPrice: decimalOr(item.SellingPrice, decimal.Zero),
				ExpiryDate:   item.ExpiryDate.Ptr(),
			}
			if item.ReorderLevel != nil {
				medicine.ReorderLevel = *item.ReorderLevel
			}
			if err := s.medicineRepo.Create(txCtx, medicine); err != nil {
				return storeError("create medicine", err)
			}

			batch, err := s.ledger.CreateBatch(txCtx, NewBatch{
				MedicineID: medicine.ID,
				Quantity:   *item.Quantity,
				CostPrice:  *item.CostPrice,
				ExpiryDate: item.ExpiryDate.Time,
				UserID:     a.ID,
			})
			if err != nil {
				return err
			}
			batchIDs = append(batchIDs, batch.ID)
		}

		number, err := s.seqRepo.Next(txCtx, model.SequenceOrderNumber)
		if err != nil {
			return storeError("allocate order number", err)
		}
		order := &model.Order{
			OrderNumber: number,
			Supplier:    strings.TrimSpace(req.Supplier),
			UserID:      a.ID,
		}
		if req.TotalCost != nil {
			order.TotalCost = decimal.NewNullDecimal(*req.TotalCost)
		}
		if err := s.orderRepo.Create(txCtx, order); err != nil {
			return storeError("create order", err)
		}

		if err := s.ledger.LinkOrder(txCtx, order.ID, batchIDs); err != nil {
			return err
		}

		if err := s.activity.Record(txCtx, a.ID,
			fmt.Sprintf("Created order %d with %d batches", order.OrderNumber, len(batchIDs)),
			model.TableOrder, order.ID.String(),
			map[string]interface{}{"order_number": order.OrderNumber, "batch_ids": batchIDs, "supplier": order.Supplier},
		); err != nil {
			return err
		}

		saved, err := s.orderRepo.FindByIDWithBatches(txCtx, order.ID)
		if err != nil {
			return storeError("reload order", err)
		}
		result = toOrderResult(saved)
		return nil
	})
	if err != nil {
		return nil, storeError("place order", err)
	}

	s.log.Info().
		Str("order_id", result.Order.ID.String()).
		Int64("order_number", result.Order.OrderNumber).
		Int("batches", len(result.Batches)).
		Str("user_id", a.ID).
		Msg("order placed")

	s.notifier.Committed(ctx, Event{Type: messaging.EventOrderReceived, Data: messaging.OrderReceivedEvent{
		OrderID:     result.Order.ID.String(),
		OrderNumber: result.Order.OrderNumber,
		Supplier:    result.Order.Supplier,
		BatchCount:  len(result.Batches),
		ActorID:     a.ID,
	}})
	return result, nil
}

func (s *orderService) GetOrder(ctx context.Context, id string) (*OrderResult, error) {
	orderID, err := parseID("id", id)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.settings.bound(ctx)
	defer cancel()

	order, err := s.orderRepo.FindByIDWithBatches(ctx, orderID)
	if err != nil {
		return nil, lookupError("order", err)
	}
	return toOrderResult(order), nil
}

func (s *orderService) ListOrders(ctx context.Context, page, limit int) ([]OrderResult, int64, error) {
	page, limit = normalizePage(page, limit)

	ctx, cancel := s.settings.bound(ctx)
	defer cancel()

	orders, total, err := s.orderRepo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, storeError("list orders", err)
	}

	res := make([]OrderResult, 0, len(orders))
	for i := range orders {
		res = append(res, *toOrderResult(&orders[i]))
	}
	return res, total, nil
}

func toOrderResult(order *model.Order) *OrderResult {
	batches := order.Batches
	if batches == nil {
		batches = []model.Batch{}
	}
	order.Batches = nil
	return &OrderResult{Order: order, Batches: batches}
}

func validationAt(index int, field, message string) error {
	return apperror.ValidationField(fmt.Sprintf("medicines[%d].%s", index, field), message)
}
