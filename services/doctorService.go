package services

import (
	"context"

	"mediconnect/models"
	"mediconnect/repositories"
)

// DoctorService exposes the doctor directory.
type DoctorService struct {
	repository repositories.DoctorRepository
}

func NewDoctorService(repository repositories.DoctorRepository) *DoctorService {
	return &DoctorService{repository: repository}
}

func (s *DoctorService) GetAll(ctx context.Context) ([]models.User, error) {
	doctors, err := s.repository.List(ctx)
	if err != nil {
		return nil, err
	}
	if doctors == nil {
		doctors = []models.User{}
	}
	return doctors, nil
}

func (s *DoctorService) GetByID(ctx context.Context, id int64) (*models.User, error) {
	doctor, err := s.repository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doctor == nil {
		return nil, models.NotFound("doctor")
	}
	return doctor, nil
}
