package patients

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines the registry's storage operations.
type Repository interface {
	List(ctx context.Context, search string) ([]Patient, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetByPhone(ctx context.Context, phone string) (*Patient, error)
	Upsert(ctx context.Context, req *UpsertRequest) (*Patient, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
	CountActive(ctx context.Context) (int64, error)
}

// InMemoryRepository backs tests and the webhook handler tests without a
// database.
type InMemoryRepository struct {
	mu       sync.RWMutex
	patients map[uuid.UUID]*Patient
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{patients: make(map[uuid.UUID]*Patient)}
}

func (r *InMemoryRepository) List(ctx context.Context, search string) ([]Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	needle := strings.ToLower(search)

	var out []Patient
	for _, p := range r.patients {
		if !p.Active {
			continue
		}
		if needle != "" && !matches(p, needle) {
			continue
		}
		out = append(out, *p)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func matches(p *Patient, needle string) bool {
	if strings.Contains(strings.ToLower(p.Name), needle) {
		return true
	}
	if p.CPF != nil && strings.Contains(*p.CPF, needle) {
		return true
	}
	if p.Phone != nil && strings.Contains(*p.Phone, needle) {
		return true
	}
	return false
}

func (r *InMemoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *InMemoryRepository) GetByPhone(ctx context.Context, phone string) (*Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.patients {
		if p.Phone != nil && *p.Phone == phone {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrPatientNotFound
}

func (r *InMemoryRepository) Upsert(ctx context.Context, req *UpsertRequest) (*Patient, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()

	if req.ID != nil {
		existing, ok := r.patients[*req.ID]
		if !ok {
			return nil, ErrPatientNotFound
		}
		existing.Name = req.Name
		existing.CPF = req.CPF
		existing.Phone = req.Phone
		existing.Email = req.Email
		existing.Address = req.Address
		existing.BirthDate = req.BirthDate
		existing.DentalHistory = req.DentalHistory
		existing.Notes = req.Notes
		existing.UpdatedAt = now
		cp := *existing
		return &cp, nil
	}

	p := &Patient{
		ID:            uuid.New(),
		Name:          req.Name,
		CPF:           req.CPF,
		Phone:         req.Phone,
		Email:         req.Email,
		Address:       req.Address,
		BirthDate:     req.BirthDate,
		DentalHistory: req.DentalHistory,
		Notes:         req.Notes,
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	r.patients[p.ID] = p

	cp := *p
	return &cp, nil
}

func (r *InMemoryRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.patients[id]
	if !ok {
		return ErrPatientNotFound
	}
	p.Active = false
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *InMemoryRepository) CountActive(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var n int64
	for _, p := range r.patients {
		if p.Active {
			n++
		}
	}
	return n, nil
}
