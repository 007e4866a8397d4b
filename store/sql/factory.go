package sqlstore

import (
	"fmt"
	"time"

	"github.com/goliatone/go-broadcast/core"
	persistence "github.com/goliatone/go-persistence-bun"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type FactoryOption func(*RepositoryFactory)

// WithOAuthStateTTL overrides the default lifetime applied when a saved
// state carries no explicit deadline.
func WithOAuthStateTTL(ttl time.Duration) FactoryOption {
	return func(f *RepositoryFactory) {
		if ttl > 0 {
			f.stateTTL = ttl
		}
	}
}

// RepositoryFactory builds the SQL-backed stores off a single bun handle and
// serves them through the core store provider surface.
type RepositoryFactory struct {
	db       *bun.DB
	stateTTL time.Duration

	tokenStore      *TokenStore
	oauthStateStore *OAuthStateStore
	campaignStore   *CampaignStore
	eventStore      *CoordinationEventStore
}

func NewRepositoryFactory(opts ...FactoryOption) *RepositoryFactory {
	factory := &RepositoryFactory{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(factory)
	}
	return factory
}

func NewRepositoryFactoryFromPersistence(client *persistence.Client, opts ...FactoryOption) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory(opts...)
	if _, err := factory.BuildStores(client); err != nil {
		return nil, err
	}
	return factory, nil
}

func NewRepositoryFactoryFromDB(db *bun.DB, opts ...FactoryOption) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory(opts...)
	if _, err := factory.BuildStores(db); err != nil {
		return nil, err
	}
	return factory, nil
}

func (f *RepositoryFactory) BuildStores(persistenceClient any) (core.StoreProvider, error) {
	if f == nil {
		return nil, fmt.Errorf("sqlstore: repository factory is nil")
	}
	if f.db == nil {
		db, err := resolveBunDB(persistenceClient)
		if err != nil {
			return nil, err
		}
		f.db = db
	}
	if f.tokenStore != nil && f.campaignStore != nil {
		return f, nil
	}
	if err := f.initStores(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *RepositoryFactory) TokenStore() core.TokenStore {
	if f == nil {
		return nil
	}
	return f.tokenStore
}

func (f *RepositoryFactory) OAuthStateStore() core.OAuthStateStore {
	if f == nil {
		return nil
	}
	return f.oauthStateStore
}

func (f *RepositoryFactory) CampaignStore() core.CampaignStore {
	if f == nil {
		return nil
	}
	return f.campaignStore
}

func (f *RepositoryFactory) CoordinationEventSink() core.CoordinationEventSink {
	if f == nil {
		return nil
	}
	return f.eventStore
}

func (f *RepositoryFactory) DB() *bun.DB {
	if f == nil {
		return nil
	}
	return f.db
}

func (f *RepositoryFactory) initStores() error {
	tokenRepo := repository.NewRepository[*tokenRecord](f.db, tokenHandlers())
	if validator, ok := tokenRepo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("sqlstore: invalid token repository wiring: %w", err)
		}
	}
	stateRepo := repository.NewRepository[*oauthStateRecord](f.db, oauthStateHandlers())
	if validator, ok := stateRepo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("sqlstore: invalid oauth state repository wiring: %w", err)
		}
	}
	campaignRepo := repository.NewRepository[*campaignRecord](f.db, campaignHandlers())
	if validator, ok := campaignRepo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("sqlstore: invalid campaign repository wiring: %w", err)
		}
	}

	f.tokenStore = &TokenStore{db: f.db, repo: tokenRepo}
	f.oauthStateStore = &OAuthStateStore{db: f.db, repo: stateRepo, ttl: f.stateTTL}
	f.campaignStore = &CampaignStore{db: f.db, repo: campaignRepo}

	eventStore, err := NewCoordinationEventStore(f.db)
	if err != nil {
		return err
	}
	f.eventStore = eventStore
	return nil
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	case *bun.DB:
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence client type %T", candidate)
	}
}
