package motorcycles

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/Tishkos/arbatis-pos/internal/activity"
)

// ActivityPort abstracts activity logging.
type ActivityPort interface {
	Record(ctx context.Context, e activity.Entry) error
}

// Service coordinates motorcycle operations.
type Service struct {
	repo     Repository
	activity ActivityPort
}

// NewService builds Service.
func NewService(repo Repository, act ActivityPort) *Service {
	return &Service{repo: repo, activity: act}
}

func (s *Service) Get(ctx context.Context, id int64) (*Motorcycle, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filters ListFilters) ([]Motorcycle, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Create(ctx context.Context, form MotorcycleForm, actor string) (*Motorcycle, error) {
	form.Name = strings.TrimSpace(form.Name)
	id, err := s.repo.Create(ctx, form)
	if err != nil {
		return nil, fmt.Errorf("create motorcycle: %w", err)
	}
	s.record(ctx, actor, "create", id, map[string]any{"name": form.Name})
	return s.repo.Get(ctx, id)
}

func (s *Service) Update(ctx context.Context, id int64, form MotorcycleForm, actor string) (*Motorcycle, error) {
	form.Name = strings.TrimSpace(form.Name)
	if err := s.repo.Update(ctx, id, form); err != nil {
		return nil, fmt.Errorf("update motorcycle: %w", err)
	}
	s.record(ctx, actor, "update", id, map[string]any{"name": form.Name})
	return s.repo.Get(ctx, id)
}

func (s *Service) Deactivate(ctx context.Context, id int64, actor string) error {
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return fmt.Errorf("deactivate motorcycle: %w", err)
	}
	s.record(ctx, actor, "deactivate", id, nil)
	return nil
}

// FindByName resolves a free-text item name, exact match first with a
// substring fallback.
func (s *Service) FindByName(ctx context.Context, name string) (*Motorcycle, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNotFound
	}
	return s.repo.FindByName(ctx, name)
}

func (s *Service) record(ctx context.Context, actor, action string, id int64, meta map[string]any) {
	if s.activity == nil {
		return
	}
	_ = s.activity.Record(ctx, activity.Entry{
		Actor:    actor,
		Action:   action,
		Entity:   "motorcycle",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	})
}
