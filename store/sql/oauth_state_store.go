package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-broadcast/core"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

const defaultStateTTL = 10 * time.Minute

// OAuthStateStore persists pending authorization states. Consume deletes the
// row inside the read transaction, so a state can never be redeemed twice
// even across processes.
type OAuthStateStore struct {
	db   *bun.DB
	repo repository.Repository[*oauthStateRecord]
	ttl  time.Duration
}

func (s *OAuthStateStore) Save(ctx context.Context, record core.OAuthStateRecord) error {
	if s == nil || s.repo == nil {
		return fmt.Errorf("sqlstore: oauth state store is not configured")
	}
	if strings.TrimSpace(record.State) == "" {
		return fmt.Errorf("sqlstore: oauth state is required")
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	if record.ExpiresAt.IsZero() {
		ttl := s.ttl
		if ttl <= 0 {
			ttl = defaultStateTTL
		}
		record.ExpiresAt = record.CreatedAt.Add(ttl)
	}
	_, err := s.repo.Create(ctx, newOAuthStateRecord(record))
	return err
}

func (s *OAuthStateStore) Consume(ctx context.Context, state string) (core.OAuthStateRecord, error) {
	if s == nil || s.db == nil {
		return core.OAuthStateRecord{}, fmt.Errorf("sqlstore: oauth state store is not configured")
	}
	state = strings.TrimSpace(state)
	if state == "" {
		return core.OAuthStateRecord{}, fmt.Errorf("sqlstore: oauth state is required")
	}

	var consumed core.OAuthStateRecord
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record := oauthStateRecord{}
		if err := tx.NewSelect().
			Model(&record).
			Where("?TableAlias.state = ?", state).
			Limit(1).
			Scan(ctx); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("sqlstore: oauth state not found")
			}
			return err
		}

		if _, err := tx.NewDelete().
			Model((*oauthStateRecord)(nil)).
			Where("state = ?", state).
			Exec(ctx); err != nil {
			return err
		}

		if time.Now().UTC().After(record.ExpiresAt) {
			return fmt.Errorf("sqlstore: oauth state expired")
		}
		consumed = record.toDomain()
		return nil
	})
	if err != nil {
		return core.OAuthStateRecord{}, err
	}
	return consumed, nil
}

// PurgeExpired removes states past their deadline; intended for a periodic
// maintenance job.
func (s *OAuthStateStore) PurgeExpired(ctx context.Context) (int64, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlstore: oauth state store is not configured")
	}
	result, err := s.db.NewDelete().
		Model((*oauthStateRecord)(nil)).
		Where("expires_at < ?", time.Now().UTC()).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return affected, nil
}
