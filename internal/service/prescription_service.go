package service

import (
	"context"

	"pharmacy/internal/model"
	"pharmacy/internal/repository"
)

type PrescriptionService interface {
	List(ctx context.Context, page, limit int) ([]model.Prescription, int64, error)
}

type prescriptionService struct {
	prescriptionRepo repository.PrescriptionRepository
	settings         Settings
}

func NewPrescriptionService(prescriptionRepo repository.PrescriptionRepository, settings Settings) PrescriptionService {
	return &prescriptionService{prescriptionRepo: prescriptionRepo, settings: settings}
}

// List returns prescriptions newest first with their sale items, medicines and sales.
func (s *prescriptionService) List(ctx context.Context, page, limit int) ([]model.Prescription, int64, error) {
	page, limit = normalizePage(page, limit)

	ctx, cancel := s.settings.bound(ctx)
	defer cancel()

	prescriptions, total, err := s.prescriptionRepo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, storeError("list prescriptions", err)
	}
	return prescriptions, total, nil
}
