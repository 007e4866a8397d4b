package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-broadcast/core"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// TokenStore persists versioned credential rows. Exactly one row per
// platform/account is active; saving a new version rotates the prior active
// row in the same transaction.
type TokenStore struct {
	db   *bun.DB
	repo repository.Repository[*tokenRecord]
}

func (s *TokenStore) SaveNewVersion(ctx context.Context, in core.SaveTokenInput) (core.TenantToken, error) {
	if s == nil || s.repo == nil || s.db == nil {
		return core.TenantToken{}, fmt.Errorf("sqlstore: token store is not configured")
	}
	platform := strings.TrimSpace(in.Platform)
	accountID := strings.TrimSpace(in.AccountID)
	if platform == "" || accountID == "" {
		return core.TenantToken{}, fmt.Errorf("sqlstore: platform and account id are required")
	}
	if strings.TrimSpace(in.TenantID) == "" {
		return core.TenantToken{}, fmt.Errorf("sqlstore: tenant id is required")
	}
	if len(in.EncryptedPayload) == 0 {
		return core.TenantToken{}, fmt.Errorf("sqlstore: encrypted payload is required")
	}
	now := time.Now().UTC()

	var created core.TenantToken
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		nextVersion, versionErr := s.nextVersion(ctx, tx, platform, accountID)
		if versionErr != nil {
			return versionErr
		}

		_, rotateErr := tx.NewUpdate().
			Model((*tokenRecord)(nil)).
			Set("status = ?", string(core.TokenStatusRotated)).
			Set("status_reason = ?", "rotated").
			Set("updated_at = ?", now).
			Where("platform = ?", platform).
			Where("account_id = ?", accountID).
			Where("status = ?", string(core.TokenStatusActive)).
			Exec(ctx)
		if rotateErr != nil {
			return rotateErr
		}

		record := newTokenRecord(in, nextVersion, now)
		inserted, createErr := s.repo.CreateTx(ctx, tx, record)
		if createErr != nil {
			return createErr
		}
		created = inserted.toDomain()
		return nil
	})
	if err != nil {
		return core.TenantToken{}, err
	}
	return created, nil
}

func (s *TokenStore) GetActiveByAccount(ctx context.Context, platform string, accountID string) (core.TenantToken, error) {
	if s == nil || s.repo == nil {
		return core.TenantToken{}, fmt.Errorf("sqlstore: token store is not configured")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("platform", "=", strings.TrimSpace(platform)),
		repository.SelectBy("account_id", "=", strings.TrimSpace(accountID)),
		repository.SelectBy("status", "=", string(core.TokenStatusActive)),
		repository.OrderBy("version DESC"),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return core.TenantToken{}, err
	}
	if len(records) == 0 {
		return core.TenantToken{}, core.ErrTokenNotFound
	}
	return records[0].toDomain(), nil
}

func (s *TokenStore) GetActiveByTenantPlatform(ctx context.Context, tenantID string, platform string) (core.TenantToken, error) {
	if s == nil || s.repo == nil {
		return core.TenantToken{}, fmt.Errorf("sqlstore: token store is not configured")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("tenant_id", "=", strings.TrimSpace(tenantID)),
		repository.SelectBy("platform", "=", strings.TrimSpace(platform)),
		repository.SelectBy("status", "=", string(core.TokenStatusActive)),
		repository.OrderBy("updated_at DESC"),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return core.TenantToken{}, err
	}
	if len(records) == 0 {
		return core.TenantToken{}, core.ErrTokenNotFound
	}
	return records[0].toDomain(), nil
}

func (s *TokenStore) ListByTenant(ctx context.Context, tenantID string) ([]core.TenantToken, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: token store is not configured")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("tenant_id", "=", strings.TrimSpace(tenantID)),
		repository.SelectBy("status", "=", string(core.TokenStatusActive)),
		repository.OrderBy("platform ASC"),
		repository.OrderBy("account_id ASC"),
	)
	if err != nil {
		return nil, err
	}
	out := make([]core.TenantToken, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, nil
}

func (s *TokenStore) MarkInactive(ctx context.Context, platform string, accountID string, status core.TokenStatus, reason string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: token store is not configured")
	}
	if status == core.TokenStatusActive {
		return fmt.Errorf("sqlstore: cannot mark a token active through MarkInactive")
	}
	if strings.TrimSpace(string(status)) == "" {
		status = core.TokenStatusInactive
	}
	reason = strings.TrimSpace(reason)

	result, err := s.db.NewUpdate().
		Model((*tokenRecord)(nil)).
		Set("status = ?", string(status)).
		Set("status_reason = ?", reason).
		Set("updated_at = ?", time.Now().UTC()).
		Where("platform = ?", strings.TrimSpace(platform)).
		Where("account_id = ?", strings.TrimSpace(accountID)).
		Where("status = ?", string(core.TokenStatusActive)).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil
	}
	if affected == 0 {
		return core.ErrTokenNotFound
	}
	return nil
}

func (s *TokenStore) nextVersion(ctx context.Context, tx bun.Tx, platform string, accountID string) (int, error) {
	var maxVersion int
	if err := tx.NewSelect().
		Model((*tokenRecord)(nil)).
		ColumnExpr("COALESCE(MAX(version), 0)").
		Where("?TableAlias.platform = ?", platform).
		Where("?TableAlias.account_id = ?", accountID).
		Scan(ctx, &maxVersion); err != nil {
		return 0, err
	}
	return maxVersion + 1, nil
}
