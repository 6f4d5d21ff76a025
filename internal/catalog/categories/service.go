package categories

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Tishkos/arbatis-pos/internal/activity"
)

// ActivityPort abstracts activity logging.
type ActivityPort interface {
	Record(ctx context.Context, e activity.Entry) error
}

// Service coordinates category operations.
type Service struct {
	repo     Repository
	activity ActivityPort
}

// NewService builds Service.
func NewService(repo Repository, act ActivityPort) *Service {
	return &Service{repo: repo, activity: act}
}

func (s *Service) Get(ctx context.Context, id int64) (*Category, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]Category, error) {
	return s.repo.List(ctx)
}

func (s *Service) Create(ctx context.Context, form CategoryForm, actor string) (*Category, error) {
	id, err := s.repo.Create(ctx, form.Name)
	if err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	s.record(ctx, actor, "create", id)
	return s.repo.Get(ctx, id)
}

func (s *Service) Update(ctx context.Context, id int64, form CategoryForm, actor string) (*Category, error) {
	if err := s.repo.Update(ctx, id, form.Name); err != nil {
		return nil, fmt.Errorf("update category: %w", err)
	}
	s.record(ctx, actor, "update", id)
	return s.repo.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id int64, actor string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	s.record(ctx, actor, "delete", id)
	return nil
}

func (s *Service) record(ctx context.Context, actor, action string, id int64) {
	if s.activity == nil {
		return
	}
	_ = s.activity.Record(ctx, activity.Entry{
		Actor:    actor,
		Action:   action,
		Entity:   "category",
		EntityID: strconv.FormatInt(id, 10),
	})
}
