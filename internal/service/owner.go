package service

import (
	"context"
	"fmt"
	"strings"

	"rentops-backend/internal/domain"
	"rentops-backend/internal/logger"
	"rentops-backend/internal/repository"
)

type ownerService struct {
	ownerRepo repository.OwnerRepository
	opts      Options
}

func NewOwnerService(ownerRepo repository.OwnerRepository, opts Options) OwnerService {
	return &ownerService{ownerRepo: ownerRepo, opts: opts.withDefaults()}
}

func (s *ownerService) CreateOwner(ctx context.Context, actor domain.Actor, name, email, phone string) (*domain.Owner, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	name, email = strings.TrimSpace(name), strings.TrimSpace(email)
	if name == "" {
		return nil, domain.NewValidationError("name", "is required")
	}
	if email == "" || !strings.Contains(email, "@") {
		return nil, domain.NewValidationError("email", "must be a valid address")
	}

	owner := &domain.Owner{Name: name, Email: email, Phone: phone, CreatedAt: s.opts.Now()}
	if err := s.ownerRepo.Create(ctx, owner); err != nil {
		return nil, err
	}
	logger.Info("Owner created", "ownerID", owner.ID)
	return owner, nil
}

func (s *ownerService) GetOwner(ctx context.Context, actor domain.Actor, id int32) (*domain.Owner, error) {
	owner, err := s.ownerRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !sameEmail(actor.Email, owner.Email) {
		return nil, fmt.Errorf("%w: owner %d", domain.ErrForbidden, id)
	}
	return owner, nil
}

func (s *ownerService) AddProperty(ctx context.Context, actor domain.Actor, ownerID int32, name, address string) (*domain.Property, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	name, address = strings.TrimSpace(name), strings.TrimSpace(address)
	if name == "" {
		return nil, domain.NewValidationError("name", "is required")
	}
	if address == "" {
		return nil, domain.NewValidationError("address", "is required")
	}

	prop := &domain.Property{OwnerID: ownerID, Name: name, Address: address, CreatedAt: s.opts.Now()}
	if err := s.ownerRepo.AddProperty(ctx, prop); err != nil {
		return nil, err
	}
	return prop, nil
}

// DeleteOwner removes the owner and, with it, every property it owns.
func (s *ownerService) DeleteOwner(ctx context.Context, actor domain.Actor, id int32) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if err := s.ownerRepo.Delete(ctx, id); err != nil {
		return err
	}
	logger.Warn("Owner deleted with its properties", "ownerID", id, "by", actor.Email)
	return nil
}
