package customers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/carecrm/carecrm/internal/shared"
)

// Invalidator is told when customer data that feeds cached stats changes.
type Invalidator interface {
	Bump(ctx context.Context) error
}

type Service struct {
	repo  Repository
	audit shared.AuditRecorder
	cache Invalidator
}

func NewService(repo Repository, audit shared.AuditRecorder, cache Invalidator) *Service {
	if audit == nil {
		audit = shared.NopAudit{}
	}
	return &Service{repo: repo, audit: audit, cache: cache}
}

// LookupByPhone returns the customer with exactly this phone, or nil.
func (s *Service) LookupByPhone(ctx context.Context, phone string) (*Customer, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, shared.Validation("phone", "phone is required")
	}
	c, err := s.repo.GetByPhone(ctx, phone)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup customer: %w", err)
	}
	return c, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Customer, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, search string, page shared.PageRequest) (shared.Page[Customer], error) {
	rows, total, err := s.repo.List(ctx, ListCustomersRequest{
		Search: search,
		Limit:  page.Limit,
		Offset: page.Offset(),
	})
	if err != nil {
		return shared.Page[Customer]{}, fmt.Errorf("list customers: %w", err)
	}
	return shared.NewPage(rows, page, total), nil
}

func (s *Service) ListAll(ctx context.Context) ([]Customer, error) {
	return s.repo.ListAll(ctx)
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

func (s *Service) Update(ctx context.Context, id int64, req UpdateCustomerRequest) (*Customer, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, shared.Validation("name", "name is required")
		}
		updates["name"] = name
	}
	if req.Phone != nil {
		phone := strings.TrimSpace(*req.Phone)
		if phone == "" {
			return nil, shared.Validation("phone", "phone is required")
		}
		updates["phone"] = phone
	}
	optionalText(updates, "address", req.Address)
	optionalText(updates, "symptoms", req.Symptoms)
	optionalText(updates, "social_name", req.SocialName)
	optionalText(updates, "contact_method", req.ContactMethod)

	if len(updates) == 0 {
		return existing, nil
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		return repo.Update(ctx, id, updates)
	})
	if err != nil {
		return nil, err
	}

	_ = s.audit.Record(ctx, shared.AuditLog{
		Action:   "customer.update",
		Entity:   "customer",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     updates,
	})
	return s.repo.Get(ctx, id)
}

// Import upserts one spreadsheet row and reports whether it created the customer.
func (s *Service) Import(ctx context.Context, in UpsertInput) (bool, error) {
	if strings.TrimSpace(in.Name) == "" {
		return false, shared.Validation("name", "name is required")
	}
	if strings.TrimSpace(in.Phone) == "" {
		return false, shared.Validation("phone", "phone is required")
	}
	_, created, err := s.repo.Upsert(ctx, in)
	if err != nil {
		return false, err
	}
	if created && s.cache != nil {
		_ = s.cache.Bump(ctx)
	}
	return created, nil
}

func optionalText(updates map[string]interface{}, column string, value *string) {
	if value == nil {
		return
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		updates[column] = nil
		return
	}
	updates[column] = trimmed
}
