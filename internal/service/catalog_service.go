package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pharmacy/internal/messaging"
	"pharmacy/internal/model"
	"pharmacy/internal/repository"
	"pharmacy/pkg/actor"
	"pharmacy/pkg/apperror"
	"pharmacy/pkg/logger"

	"github.com/shopspring/decimal"
)

// Listing status modes.
const (
	StatusAll          = "all"
	StatusLowStock     = "lowStock"
	StatusExpiringSoon = "expiringSoon"
)

// DTOs
type InitialStockRequest struct {
	Quantity   *int             `json:"quantity" binding:"required,gte=0"`
	CostPrice  *decimal.Decimal `json:"cost_price" binding:"required"`
	ExpiryDate *Date            `json:"expiry_date" binding:"required"`
}

type CreateMedicineRequest struct {
	Name         string               `json:"name" binding:"required,max=255"`
	GenericName  string               `json:"generic_name" binding:"max=255"`
	Category     string               `json:"category" binding:"required,max=100"`
	Description  string               `json:"description"`
	SellingPrice *decimal.Decimal     `json:"selling_price" binding:"required"`
	ExpiryDate   *Date                `json:"expiry_date"`
	ReorderLevel *int                 `json:"reorder_level" binding:"omitempty,gte=0"`
	InitialStock *InitialStockRequest `json:"initial_stock"`
}

type MedicineFilter struct {
	Name         string
	Category     string
	ExpiryBefore *time.Time
	StatusMode   string
}

// MedicineDetail is a medicine with its batches in expiry order and the derived stock figures.
type MedicineDetail struct {
	Medicine       *model.Medicine `json:"medicine"`
	RemainingStock int64           `json:"remaining_stock"`
	LowStock       bool            `json:"low_stock"`
}

// MedicineSummary is one row of the catalog listing.
type MedicineSummary struct {
	model.Medicine
	TotalQuantity     int64      `json:"total_quantity"`
	IsLowStock        bool       `json:"is_low_stock"`
	BelowReorderLevel bool       `json:"below_reorder_level"`
	IsExpiringSoon    bool       `json:"is_expiring_soon"`
	EarliestExpiry    *time.Time `json:"earliest_expiry,omitempty"`
}

type CatalogService interface {
	CreateMedicine(ctx context.Context, a actor.Actor, req CreateMedicineRequest) (*MedicineDetail, error)
	GetMedicine(ctx context.Context, id string) (*MedicineDetail, error)
	ListMedicines(ctx context.Context, filter MedicineFilter) ([]MedicineSummary, error)
}

type catalogService struct {
	medicineRepo repository.MedicineRepository
	userRepo     repository.UserRepository
	ledger       BatchLedger
	activity     ActivityService
	txManager    repository.TransactionManager
	notifier     *Notifier
	settings     Settings
	log          *logger.Logger
}

func NewCatalogService(
	medicineRepo repository.MedicineRepository,
	userRepo repository.UserRepository,
	ledger BatchLedger,
	activity ActivityService,
	txManager repository.TransactionManager,
	notifier *Notifier,
	settings Settings,
	log *logger.Logger,
) CatalogService {
	return &catalogService{
		medicineRepo: medicineRepo,
		userRepo:     userRepo,
		ledger:       ledger,
		activity:     activity,
		txManager:    txManager,
		notifier:     notifier,
		settings:     settings,
		log:          log.WithComponent("catalog"),
	}
}

func (s *catalogService) CreateMedicine(ctx context.Context, a actor.Actor, req CreateMedicineRequest) (*MedicineDetail, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.TrimSpace(req.Category)
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if req.Name == "" {
		return nil, apperror.ValidationField("name", "is required")
	}
	if req.Category == "" {
		return nil, apperror.ValidationField("category", "is required")
	}
	if err := nonNegative("selling_price", req.SellingPrice); err != nil {
		return nil, err
	}
	if req.InitialStock != nil {
		if err := nonNegative("initial_stock.cost_price", req.InitialStock.CostPrice); err != nil {
			return nil, err
		}
	}

	ctx, cancel := s.settings.bound(ctx)
	defer cancel()

	medicine := &model.Medicine{
		Name:         req.Name,
		GenericName:  strings.TrimSpace(req.GenericName),
		Category:     req.Category,
		Description:  req.Description,
		SellingPrice: *req.SellingPrice,
		ExpiryDate:   req.ExpiryDate.Ptr(),
	}
	if req.ReorderLevel != nil {
		medicine.ReorderLevel = *req.ReorderLevel
	}

	var detail *MedicineDetail
	initialStock := 0
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := syncActor(txCtx, s.userRepo, a); err != nil {
			return err
		}
		if err := s.medicineRepo.Create(txCtx, medicine); err != nil {
			return storeError("create medicine", err)
		}

		if st := req.InitialStock; st != nil {
			if _, err := s.ledger.CreateBatch(txCtx, NewBatch{
				MedicineID: medicine.ID,
				Quantity:   *st.Quantity,
				CostPrice:  *st.CostPrice,
				ExpiryDate: st.ExpiryDate.Time,
				UserID:     a.ID,
			}); err != nil {
				return err
			}
			initialStock = *st.Quantity
		}

		if err := s.activity.Record(txCtx, a.ID,
			fmt.Sprintf("Created medicine %s", medicine.Name),
			model.TableMedicine, medicine.ID.String(), req,
		); err != nil {
			return err
		}

		var err error
		detail, err = s.loadDetail(txCtx, medicine.ID.String())
		return err
	})
	if err != nil {
		return nil, storeError("create medicine", err)
	}

	s.log.Info().Str("medicine_id", medicine.ID.String()).Str("user_id", a.ID).Msg("medicine created")
	s.notifier.Committed(ctx, Event{Type: messaging.EventMedicineAdded, Data: messaging.MedicineCreatedEvent{
		MedicineID:   medicine.ID.String(),
		Name:         medicine.Name,
		InitialStock: initialStock,
	}})
	return detail, nil
}

func (s *catalogService) GetMedicine(ctx context.Context, id string) (*MedicineDetail, error) {
	ctx, cancel := s.settings.bound(ctx)
	defer cancel()
	return s.loadDetail(ctx, id)
}

func (s *catalogService) loadDetail(ctx context.Context, id string) (*MedicineDetail, error) {
	medicineID, err := parseID("id", id)
	if err != nil {
		return nil, err
	}

	medicine, err := s.medicineRepo.FindByIDWithBatches(ctx, medicineID)
	if err != nil {
		return nil, lookupError("medicine", err)
	}

	low, remaining, err := s.ledger.IsLowStock(ctx, medicine.ID, medicine.ReorderLevel)
	if err != nil {
		return nil, err
	}
	return &MedicineDetail{Medicine: medicine, RemainingStock: remaining, LowStock: low}, nil
}

func (s *catalogService) ListMedicines(ctx context.Context, filter MedicineFilter) ([]MedicineSummary, error) {
	mode := filter.StatusMode
	if mode == "" {
		mode = StatusAll
	}
	if mode != StatusAll && mode != StatusLowStock && mode != StatusExpiringSoon {
		return nil, apperror.ValidationField("filterMode", "must be one of: all lowStock expiringSoon")
	}

	ctx, cancel := s.settings.bound(ctx)
	defer cancel()

	medicines, err := s.medicineRepo.List(ctx, repository.MedicineQuery{
		Name:         strings.TrimSpace(filter.Name),
		Category:     strings.TrimSpace(filter.Category),
		ExpiryBefore: filter.ExpiryBefore,
	})
	if err != nil {
		return nil, storeError("list medicines", err)
	}

	soon := s.settings.now().AddDate(0, 0, s.settings.ExpiringSoonDays)
	res := make([]MedicineSummary, 0, len(medicines))
	for _, m := range medicines {
		row := summarize(m, s.settings.LowStockThreshold, soon)
		switch mode {
		case StatusLowStock:
			if !row.IsLowStock {
				continue
			}
		case StatusExpiringSoon:
			if !row.IsExpiringSoon {
				continue
			}
		}
		res = append(res, row)
	}
	return res, nil
}

// summarize derives the listing flags. The fixed threshold and the per-medicine
// reorder level are reported separately.
func summarize(m model.Medicine, threshold int, soon time.Time) MedicineSummary {
	row := MedicineSummary{Medicine: m}
	for _, b := range m.Batches {
		row.TotalQuantity += int64(b.Quantity)
		if row.EarliestExpiry == nil || b.ExpiryDate.Before(*row.EarliestExpiry) {
			expiry := b.ExpiryDate
			row.EarliestExpiry = &expiry
		}
	}
	if row.EarliestExpiry == nil && m.ExpiryDate != nil {
		expiry := *m.ExpiryDate
		row.EarliestExpiry = &expiry
	}

	row.IsLowStock = row.TotalQuantity < int64(threshold)
	row.BelowReorderLevel = row.TotalQuantity <= int64(m.ReorderLevel)
	row.IsExpiringSoon = row.EarliestExpiry != nil && !row.EarliestExpiry.After(soon)
	return row
}
