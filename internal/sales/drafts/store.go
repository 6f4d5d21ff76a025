package drafts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	formKeyPrefix = "sales-invoice-form-"
	tabsKeyPrefix = "sales-invoice-tabs-"

	// saveRetries bounds optimistic retries when two writers race on the
	// same tab key.
	saveRetries = 3
)

// Store persists draft snapshots in Redis. One key per tab holds the full
// draft JSON; a set per sale type tracks the open tabs so the UI can list
// and restore them after a reload.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore builds a Store. ttl bounds how long an abandoned draft
// survives; zero means no expiry.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

func formKey(tabID string) string {
	return formKeyPrefix + tabID
}

func tabsKey(saleType SaleType) string {
	return tabsKeyPrefix + string(saleType)
}

// Load reads the snapshot for the tab.
func (s *Store) Load(ctx context.Context, tabID string) (*Draft, error) {
	raw, err := s.client.Get(ctx, formKey(tabID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load draft %s: %w", tabID, err)
	}
	var d Draft
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("decode draft %s: %w", tabID, err)
	}
	return &d, nil
}

// Save writes the snapshot, guarded by the draft version: the write only
// lands when the stored version is still below the draft's. A concurrent
// writer that already advanced the key surfaces as ErrStaleSnapshot.
func (s *Store) Save(ctx context.Context, d *Draft) error {
	d.UpdatedAt = time.Now().UTC()
	raw, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode draft %s: %w", d.TabID, err)
	}

	key := formKey(d.TabID)
	txf := func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, key).Bytes()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if err == nil {
			var stored Draft
			if jsonErr := json.Unmarshal(current, &stored); jsonErr == nil && stored.Version >= d.Version {
				return ErrStaleSnapshot
			}
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, raw, s.ttl)
			return nil
		})
		return err
	}

	for i := 0; i < saveRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return ErrStaleSnapshot
}

// Delete removes the snapshot and its tab registration.
func (s *Store) Delete(ctx context.Context, tabID string, saleType SaleType) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, formKey(tabID))
	pipe.SRem(ctx, tabsKey(saleType), tabID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete draft %s: %w", tabID, err)
	}
	return nil
}

// AddTab registers the tab in the sale type's open set.
func (s *Store) AddTab(ctx context.Context, saleType SaleType, tabID string) error {
	pipe := s.client.TxPipeline()
	pipe.SAdd(ctx, tabsKey(saleType), tabID)
	if s.ttl > 0 {
		pipe.Expire(ctx, tabsKey(saleType), s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("register tab %s: %w", tabID, err)
	}
	return nil
}

// RemoveTab unregisters the tab without touching the snapshot.
func (s *Store) RemoveTab(ctx context.Context, saleType SaleType, tabID string) error {
	if err := s.client.SRem(ctx, tabsKey(saleType), tabID).Err(); err != nil {
		return fmt.Errorf("unregister tab %s: %w", tabID, err)
	}
	return nil
}

// ListTabs returns the open tab ids for the sale type, dropping entries
// whose snapshot has already expired.
func (s *Store) ListTabs(ctx context.Context, saleType SaleType) ([]string, error) {
	ids, err := s.client.SMembers(ctx, tabsKey(saleType)).Result()
	if err != nil {
		return nil, fmt.Errorf("list tabs: %w", err)
	}
	live := make([]string, 0, len(ids))
	for _, id := range ids {
		n, err := s.client.Exists(ctx, formKey(id)).Result()
		if err != nil {
			return nil, fmt.Errorf("list tabs: %w", err)
		}
		if n == 0 {
			s.client.SRem(ctx, tabsKey(saleType), id)
			continue
		}
		live = append(live, id)
	}
	return live, nil
}

// SweepExpired walks both tab sets and prunes registrations whose
// snapshots Redis already evicted. The worker runs it on a schedule.
func (s *Store) SweepExpired(ctx context.Context) (int, error) {
	pruned := 0
	for _, saleType := range []SaleType{SaleTypeRetail, SaleTypeWholesale} {
		ids, err := s.client.SMembers(ctx, tabsKey(saleType)).Result()
		if err != nil {
			return pruned, fmt.Errorf("sweep tabs: %w", err)
		}
		for _, id := range ids {
			n, err := s.client.Exists(ctx, formKey(id)).Result()
			if err != nil {
				return pruned, fmt.Errorf("sweep tabs: %w", err)
			}
			if n == 0 {
				if err := s.client.SRem(ctx, tabsKey(saleType), id).Err(); err != nil {
					return pruned, fmt.Errorf("sweep tabs: %w", err)
				}
				pruned++
			}
		}
	}
	return pruned, nil
}
