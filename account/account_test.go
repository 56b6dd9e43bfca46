package account

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/kbukum/scribe/database/databasetest"
	apperrors "github.com/kbukum/scribe/errors"
	"github.com/kbukum/scribe/logger"
	"github.com/kbukum/scribe/redis"
)

func newService(t *testing.T, cache TokenCache) *Service {
	t.Helper()
	db := databasetest.New(t, &Account{})
	return NewService(db, cache, 3600, logger.NewNop())
}

func TestRegister(t *testing.T) {
	svc := newService(t, nil)
	ctx := context.Background()

	acct, err := svc.Register(ctx, "  alice ")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if acct.Username != "alice" {
		t.Errorf("username = %q", acct.Username)
	}
	if len(acct.Token) != 64 {
		t.Errorf("token should be 64 hex chars, got %d", len(acct.Token))
	}
	if acct.TimeLimit != 3600 {
		t.Errorf("time_limit = %d", acct.TimeLimit)
	}

	_, err = svc.Register(ctx, "alice")
	if !apperrors.IsCode(err, apperrors.ErrCodeAlreadyExists) {
		t.Errorf("duplicate username: expected ALREADY_EXISTS, got %v", err)
	}

	_, err = svc.Register(ctx, "   ")
	if !apperrors.IsCode(err, apperrors.ErrCodeMissingField) {
		t.Errorf("blank username: expected MISSING_FIELD, got %v", err)
	}
}

func TestAuthenticate(t *testing.T) {
	svc := newService(t, nil)
	ctx := context.Background()
	acct, _ := svc.Register(ctx, "bob")

	tests := []struct {
		name  string
		token string
		code  apperrors.ErrorCode
	}{
		{"valid", acct.Token, ""},
		{"missing", "", apperrors.ErrCodeUnauthorized},
		{"unknown", NewToken(), apperrors.ErrCodeForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := svc.Authenticate(ctx, tt.token)
			if tt.code == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if p.ID != acct.ID || p.Username != "bob" {
					t.Errorf("principal = %+v", p)
				}
				return
			}
			if !apperrors.IsCode(err, tt.code) {
				t.Errorf("expected %s, got %v", tt.code, err)
			}
		})
	}
}

func TestAuthenticate_UsesRedisCache(t *testing.T) {
	mini := miniredis.RunT(t)
	client, err := redis.New(redis.Config{Enabled: true, Addr: mini.Addr()}, logger.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = client.Close() })

	cache := NewRedisTokenCache(client, time.Minute, logger.NewNop())
	svc := newService(t, cache)
	ctx := context.Background()
	acct, _ := svc.Register(ctx, "carol")

	if _, err := svc.Authenticate(ctx, acct.Token); err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if !mini.Exists(tokenKeyPrefix + hashHex(acct.Token)) {
		t.Fatal("expected token lookup to be cached under its hash")
	}
	if mini.Exists(tokenKeyPrefix + acct.Token) {
		t.Error("raw token must not be used as cache key")
	}

	// Served from cache even after the row disappears.
	svc.db.WithContext(ctx).Delete(&Account{}, acct.ID)
	p, err := svc.Authenticate(ctx, acct.Token)
	if err != nil || p.Username != "carol" {
		t.Errorf("cached Authenticate() = %+v, %v", p, err)
	}
}
