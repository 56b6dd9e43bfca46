package account

import (
	"context"
	"strings"

	"github.com/kbukum/scribe/database"
	apperrors "github.com/kbukum/scribe/errors"
	"github.com/kbukum/scribe/logger"
)

// Service registers accounts and authenticates tokens.
type Service struct {
	db           *database.DB
	cache        TokenCache
	defaultLimit int64
	log          *logger.Logger
}

// NewService creates an account service. cache may be nil.
func NewService(db *database.DB, cache TokenCache, defaultLimit int64, log *logger.Logger) *Service {
	return &Service{db: db, cache: cache, defaultLimit: defaultLimit, log: log.WithComponent("account")}
}

// Register creates an account with a fresh token and the default time budget.
func (s *Service) Register(ctx context.Context, username string) (*Account, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, apperrors.MissingField("username")
	}

	acct := &Account{
		Username:  username,
		Token:     NewToken(),
		TimeLimit: s.defaultLimit,
	}
	if err := s.db.WithContext(ctx).Create(acct).Error; err != nil {
		if database.IsDuplicateError(err) {
			return nil, apperrors.AlreadyExists("user with this name")
		}
		return nil, database.FromDatabase(err, "account")
	}

	s.log.Info("Account registered", logger.Fields(logger.FieldUsername, username, logger.FieldAccountID, acct.ID))
	return acct, nil
}

// Authenticate resolves a bearer token. Unknown tokens are Forbidden.
func (s *Service) Authenticate(ctx context.Context, token string) (Principal, error) {
	if token == "" {
		return Principal{}, apperrors.Unauthorized("")
	}
	if s.cache != nil {
		if p, ok := s.cache.Get(ctx, token); ok {
			return p, nil
		}
	}

	var acct Account
	err := s.db.WithContext(ctx).Where("token = ?", token).Take(&acct).Error
	if database.IsNotFoundError(err) {
		return Principal{}, apperrors.Forbidden("")
	}
	if err != nil {
		return Principal{}, database.FromDatabase(err, "account")
	}

	p := acct.Principal()
	if s.cache != nil {
		s.cache.Put(ctx, token, p)
	}
	return p, nil
}
