package inventory

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/Tishkos/arbatis-pos/internal/activity"
	"github.com/Tishkos/arbatis-pos/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	List(ctx context.Context, filters ListFilters) ([]Movement, int, error)
	StockLevel(ctx context.Context, kind ItemKind, itemID int64) (float64, error)
}

// ActivityPort abstracts activity logging.
type ActivityPort interface {
	Record(ctx context.Context, e activity.Entry) error
}

// Service coordinates stock movement posting.
type Service struct {
	repo        RepositoryPort
	activity    ActivityPort
	idempotency *shared.IdempotencyStore
}

// NewService builds Service.
func NewService(repo RepositoryPort, act ActivityPort, idem *shared.IdempotencyStore) *Service {
	return &Service{repo: repo, activity: act, idempotency: idem}
}

// PostAdjustment posts a manual adjustment which may be positive or negative.
// Sales never go through here; invoice finalize writes its OUT movements in
// the same transaction as the invoice rows.
func (s *Service) PostAdjustment(ctx context.Context, input AdjustmentInput) (Movement, error) {
	if !input.ItemKind.Valid() || input.ItemID == 0 {
		return Movement{}, errors.New("inventory: item kind and id required")
	}
	if math.Abs(input.Qty) < 1e-9 {
		return Movement{}, ErrInvalidQuantity
	}

	refID := input.RefID
	if refID == "" {
		refID = uuid.NewString()
	} else if _, err := uuid.Parse(refID); err != nil {
		return Movement{}, fmt.Errorf("inventory: invalid ref id: %w", err)
	}

	key := fmt.Sprintf("ADJUST:%s:%s:%d", refID, input.ItemKind, input.ItemID)
	insertedKey := false
	if s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, key, "inventory"); err != nil {
			return Movement{}, err
		}
		insertedKey = true
	}

	movement := Movement{
		Type:      MovementTypeAdjust,
		ItemKind:  input.ItemKind,
		ItemID:    input.ItemID,
		Qty:       input.Qty,
		RefModule: "inventory",
		RefID:     refID,
		Note:      input.Note,
		Actor:     input.Actor,
		PostedAt:  time.Now().UTC(),
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		stock, err := tx.GetStockForUpdate(ctx, input.ItemKind, input.ItemID)
		if err != nil {
			return err
		}
		newQty := stock + input.Qty
		if newQty < -1e-4 {
			return ErrNegativeStock
		}
		if math.Abs(newQty) < 1e-4 {
			newQty = 0
		}
		if err := tx.SetStock(ctx, input.ItemKind, input.ItemID, newQty); err != nil {
			return err
		}
		id, err := tx.InsertMovement(ctx, movement)
		if err != nil {
			return err
		}
		movement.ID = id
		return nil
	})
	if err != nil {
		if insertedKey {
			_ = s.idempotency.Delete(ctx, key)
		}
		return Movement{}, err
	}

	if s.activity != nil {
		_ = s.activity.Record(ctx, activity.Entry{
			Actor:    input.Actor,
			Action:   "adjust-stock",
			Entity:   string(input.ItemKind),
			EntityID: strconv.FormatInt(input.ItemID, 10),
			Meta:     map[string]any{"qty": input.Qty, "ref_id": refID},
		})
	}
	return movement, nil
}

// ListMovements lists ledger entries.
func (s *Service) ListMovements(ctx context.Context, filters ListFilters) ([]Movement, int, error) {
	return s.repo.List(ctx, filters)
}

// StockLevel returns current stock for an item.
func (s *Service) StockLevel(ctx context.Context, kind ItemKind, itemID int64) (float64, error) {
	if !kind.Valid() || itemID == 0 {
		return 0, errors.New("inventory: item kind and id required")
	}
	return s.repo.StockLevel(ctx, kind, itemID)
}
