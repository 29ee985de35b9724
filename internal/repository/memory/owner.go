package memory

import (
	"context"
	"sort"

	"rentops-backend/internal/domain"
)

type ownerRepository struct {
	s *Store
}

func (r *ownerRepository) Create(ctx context.Context, owner *domain.Owner) error {
	defer r.s.lock(ctx)()

	r.s.d.nextOwner++
	owner.ID = r.s.d.nextOwner
	stored := *owner
	stored.Properties = nil
	r.s.d.owners[owner.ID] = stored
	return nil
}

func (r *ownerRepository) GetByID(ctx context.Context, id int32) (*domain.Owner, error) {
	defer r.s.lock(ctx)()

	owner, ok := r.s.d.owners[id]
	if !ok {
		return nil, domain.NotFound("owner", id)
	}
	for _, p := range r.s.d.properties {
		if p.OwnerID == id {
			owner.Properties = append(owner.Properties, p)
		}
	}
	sort.Slice(owner.Properties, func(i, j int) bool { return owner.Properties[i].ID < owner.Properties[j].ID })
	return &owner, nil
}

// Delete removes the owner together with every property it owns.
func (r *ownerRepository) Delete(ctx context.Context, id int32) error {
	defer r.s.lock(ctx)()

	if _, ok := r.s.d.owners[id]; !ok {
		return domain.NotFound("owner", id)
	}
	delete(r.s.d.owners, id)
	for pid, p := range r.s.d.properties {
		if p.OwnerID == id {
			delete(r.s.d.properties, pid)
		}
	}
	return nil
}

func (r *ownerRepository) AddProperty(ctx context.Context, prop *domain.Property) error {
	defer r.s.lock(ctx)()

	if _, ok := r.s.d.owners[prop.OwnerID]; !ok {
		return domain.NotFound("owner", prop.OwnerID)
	}
	r.s.d.nextProperty++
	prop.ID = r.s.d.nextProperty
	r.s.d.properties[prop.ID] = *prop
	return nil
}

func (r *ownerRepository) GetProperty(ctx context.Context, id int32) (*domain.Property, error) {
	defer r.s.lock(ctx)()

	p, ok := r.s.d.properties[id]
	if !ok {
		return nil, domain.NotFound("property", id)
	}
	return &p, nil
}
