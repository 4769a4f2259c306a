package services

import (
	"context"
	"errors"
	"strings"

	"warkop_pos/internal/apperrors"
	"warkop_pos/internal/models"
	"warkop_pos/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid username or PIN")

type CashierService interface {
	CreateCashier(ctx context.Context, cashier *models.Cashier, pin string) error
	Authenticate(ctx context.Context, username, pin string) (*models.Cashier, error)
	GetCashier(ctx context.Context, id string) (*models.Cashier, error)
	ListCashiers(ctx context.Context) ([]models.Cashier, error)
}

type cashierService struct {
	repo repository.CashierRepository
}

func NewCashierService(repo repository.CashierRepository) CashierService {
	return &cashierService{repo: repo}
}

func (s *cashierService) CreateCashier(ctx context.Context, cashier *models.Cashier, pin string) error {
	if strings.TrimSpace(cashier.Name) == "" {
		return apperrors.Validation("name", "cashier name is required")
	}
	if strings.TrimSpace(cashier.Username) == "" {
		return apperrors.Validation("username", "username is required")
	}
	if len(pin) < 4 {
		return apperrors.Validation("pin", "PIN must be at least 4 digits")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	cashier.PinHash = string(hashed)
	if cashier.ID == "" {
		cashier.ID = models.NewID(models.PrefixCashier)
	}
	cashier.IsActive = true
	if cashier.Role == "" {
		cashier.Role = string(models.RoleCashier)
	}
	return s.repo.Create(ctx, cashier)
}

func (s *cashierService) Authenticate(ctx context.Context, username, pin string) (*models.Cashier, error) {
	cashier, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !cashier.IsActive {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cashier.PinHash), []byte(pin)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return cashier, nil
}

func (s *cashierService) GetCashier(ctx context.Context, id string) (*models.Cashier, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *cashierService) ListCashiers(ctx context.Context) ([]models.Cashier, error) {
	return s.repo.List(ctx)
}
