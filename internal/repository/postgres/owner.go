package postgres

import (
	"context"
	"database/sql"

	"rentops-backend/internal/domain"
	"rentops-backend/internal/logger"
	"rentops-backend/internal/repository"
)

type ownerRepository struct {
	db *sql.DB
}

func NewOwnerRepository(db *sql.DB) repository.OwnerRepository {
	return &ownerRepository{db: db}
}

func (r *ownerRepository) Create(ctx context.Context, owner *domain.Owner) error {
	logger.EnterMethod("ownerRepository.Create", "email", owner.Email)

	query := `INSERT INTO owners (name, email, phone, created_at) VALUES ($1, $2, $3, $4) RETURNING id`
	err := conn(ctx, r.db).QueryRowContext(ctx, query, owner.Name, owner.Email, owner.Phone, owner.CreatedAt).Scan(&owner.ID)
	if err != nil {
		logger.ExitMethodWithError("ownerRepository.Create", err)
		return err
	}

	logger.ExitMethod("ownerRepository.Create", "ownerID", owner.ID)
	return nil
}

func (r *ownerRepository) GetByID(ctx context.Context, id int32) (*domain.Owner, error) {
	logger.EnterMethod("ownerRepository.GetByID", "ownerID", id)

	owner := &domain.Owner{}
	query := `SELECT id, name, email, phone, created_at FROM owners WHERE id = $1`
	err := conn(ctx, r.db).QueryRowContext(ctx, query, id).Scan(&owner.ID, &owner.Name, &owner.Email, &owner.Phone, &owner.CreatedAt)
	if err != nil {
		logger.ExitMethodWithError("ownerRepository.GetByID", err, "ownerID", id)
		return nil, notFound(err, "owner", id)
	}

	rows, err := conn(ctx, r.db).QueryContext(ctx,
		`SELECT id, owner_id, name, address, created_at FROM properties WHERE owner_id = $1 ORDER BY id`, id)
	if err != nil {
		logger.ExitMethodWithError("ownerRepository.GetByID", err, "ownerID", id)
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var p domain.Property
		if err := rows.Scan(&p.ID, &p.OwnerID, &p.Name, &p.Address, &p.CreatedAt); err != nil {
			return nil, err
		}
		owner.Properties = append(owner.Properties, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	logger.ExitMethod("ownerRepository.GetByID", "ownerID", id, "properties", len(owner.Properties))
	return owner, nil
}

// Delete removes the owner; its properties go with it (ON DELETE CASCADE).
func (r *ownerRepository) Delete(ctx context.Context, id int32) error {
	logger.EnterMethod("ownerRepository.Delete", "ownerID", id)

	res, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM owners WHERE id = $1`, id)
	if err != nil {
		logger.ExitMethodWithError("ownerRepository.Delete", err, "ownerID", id)
		return err
	}
	if ok, err := affected(res); err != nil {
		return err
	} else if !ok {
		return domain.NotFound("owner", id)
	}

	logger.ExitMethod("ownerRepository.Delete", "ownerID", id)
	return nil
}

func (r *ownerRepository) AddProperty(ctx context.Context, prop *domain.Property) error {
	logger.EnterMethod("ownerRepository.AddProperty", "ownerID", prop.OwnerID)

	query := `INSERT INTO properties (owner_id, name, address, created_at) VALUES ($1, $2, $3, $4) RETURNING id`
	err := conn(ctx, r.db).QueryRowContext(ctx, query, prop.OwnerID, prop.Name, prop.Address, prop.CreatedAt).Scan(&prop.ID)
	if err != nil {
		logger.ExitMethodWithError("ownerRepository.AddProperty", err, "ownerID", prop.OwnerID)
		return err
	}

	logger.ExitMethod("ownerRepository.AddProperty", "propertyID", prop.ID)
	return nil
}

func (r *ownerRepository) GetProperty(ctx context.Context, id int32) (*domain.Property, error) {
	logger.EnterMethod("ownerRepository.GetProperty", "propertyID", id)

	p := &domain.Property{}
	query := `SELECT id, owner_id, name, address, created_at FROM properties WHERE id = $1`
	err := conn(ctx, r.db).QueryRowContext(ctx, query, id).Scan(&p.ID, &p.OwnerID, &p.Name, &p.Address, &p.CreatedAt)
	if err != nil {
		logger.ExitMethodWithError("ownerRepository.GetProperty", err, "propertyID", id)
		return nil, notFound(err, "property", id)
	}

	logger.ExitMethod("ownerRepository.GetProperty", "propertyID", id)
	return p, nil
}
