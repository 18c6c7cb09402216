package settings

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/carecrm/carecrm/internal/shared"
)

// Service manages channels and contact methods.
type Service struct {
	repo     Repository
	audit    shared.AuditRecorder
	validate *validator.Validate
}

// NewService builds Service.
func NewService(repo Repository, audit shared.AuditRecorder) *Service {
	if audit == nil {
		audit = shared.NopAudit{}
	}
	return &Service{repo: repo, audit: audit, validate: shared.NewValidator()}
}

func (s *Service) List(ctx context.Context, kind Kind) ([]Entry, error) {
	list, err := s.repo.List(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("settings: list %s: %w", kind, err)
	}
	if list == nil {
		list = []Entry{}
	}
	return list, nil
}

// Create adds a name; a repeat is a DuplicateKeyError.
func (s *Service) Create(ctx context.Context, kind Kind, req CreateRequest) (Entry, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := shared.ValidateStruct(s.validate, req); err != nil {
		return Entry{}, err
	}
	entry, err := s.repo.Create(ctx, kind, req.Name)
	if err != nil {
		return Entry{}, err
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		Action:   "settings.create",
		Entity:   string(kind),
		EntityID: strconv.FormatInt(entry.ID, 10),
		Meta:     map[string]any{"name": entry.Name},
	})
	return entry, nil
}

func (s *Service) Delete(ctx context.Context, kind Kind, id int64) error {
	if err := s.repo.Delete(ctx, kind, id); err != nil {
		return err
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		Action:   "settings.delete",
		Entity:   string(kind),
		EntityID: strconv.FormatInt(id, 10),
	})
	return nil
}

// Ensure makes sure every non-blank name exists. Used by imports.
func (s *Service) Ensure(ctx context.Context, kind Kind, names ...string) (int, error) {
	seen := make(map[string]struct{}, len(names))
	clean := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		clean = append(clean, n)
	}
	if len(clean) == 0 {
		return 0, nil
	}
	added, err := s.repo.Ensure(ctx, kind, clean)
	if err != nil {
		return 0, fmt.Errorf("settings: ensure %s: %w", kind, err)
	}
	return added, nil
}
