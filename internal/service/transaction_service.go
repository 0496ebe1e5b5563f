package service

import (
	"context"
	"strings"
	"time"

	"pharmacy/internal/model"
	"pharmacy/internal/repository"
	"pharmacy/pkg/apperror"
)

type TransactionFilter struct {
	Search      string
	BatchNumber *int64
	StartDate   *time.Time
	EndDate     *time.Time
	Page        int
	Limit       int
}

// TransactionService lists sales for the transaction history screen.
type TransactionService interface {
	List(ctx context.Context, filter TransactionFilter) ([]model.Sale, int64, error)
}

type transactionService struct {
	saleRepo repository.SaleRepository
	settings Settings
}

func NewTransactionService(saleRepo repository.SaleRepository, settings Settings) TransactionService {
	return &transactionService{saleRepo: saleRepo, settings: settings}
}

func (s *transactionService) List(ctx context.Context, filter TransactionFilter) ([]model.Sale, int64, error) {
	if filter.StartDate != nil && filter.EndDate != nil && filter.EndDate.Before(*filter.StartDate) {
		return nil, 0, apperror.ValidationField("endDate", "must not be before startDate")
	}
	page, limit := normalizePage(filter.Page, filter.Limit)

	ctx, cancel := s.settings.bound(ctx)
	defer cancel()

	sales, total, err := s.saleRepo.List(ctx, repository.SaleQuery{
		Search:      strings.TrimSpace(filter.Search),
		BatchNumber: filter.BatchNumber,
		StartDate:   filter.StartDate,
		EndDate:     filter.EndDate,
	}, page, limit)
	if err != nil {
		return nil, 0, storeError("list transactions", err)
	}
	return sales, total, nil
}
