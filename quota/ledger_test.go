package quota

import (
	"context"
	"sync"
	"testing"

	"gorm.io/gorm"

	"github.com/kbukum/scribe/account"
	"github.com/kbukum/scribe/database"
	"github.com/kbukum/scribe/database/databasetest"
	apperrors "github.com/kbukum/scribe/errors"
)

func seed(t *testing.T, limit int64) (*database.DB, *account.Account) {
	t.Helper()
	db := databasetest.New(t, &account.Account{})
	acct := &account.Account{Username: "u", Token: account.NewToken(), TimeLimit: limit}
	if err := db.GormDB.Create(acct).Error; err != nil {
		t.Fatal(err)
	}
	return db, acct
}

func TestRequired(t *testing.T) {
	tests := []struct {
		in   float64
		want int64
	}{
		{0, 0},
		{-3, 0},
		{1, 1},
		{1.01, 2},
		{44.2, 45},
	}
	for _, tt := range tests {
		if got := Required(tt.in); got != tt.want {
			t.Errorf("Required(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestCheck_DoesNotMutate(t *testing.T) {
	db, acct := seed(t, 30)
	l := NewLedger(db)
	ctx := context.Background()

	c, err := l.Check(ctx, acct.ID, 44.5)
	if err != nil {
		t.Fatal(err)
	}
	if c.OK || c.Remaining != 30 || c.Required != 45 {
		t.Errorf("Check = %+v", c)
	}
	if !apperrors.IsCode(c.Err(), apperrors.ErrCodeQuotaExceeded) {
		t.Errorf("Err() = %v", c.Err())
	}

	c, _ = l.Check(ctx, acct.ID, 30)
	if !c.OK || c.Err() != nil {
		t.Errorf("exact fit should pass, got %+v", c)
	}

	if left, _ := l.Remaining(ctx, acct.ID); left != 30 {
		t.Errorf("Check must not debit, remaining = %d", left)
	}
}

func debit(ctx context.Context, db *database.DB, accountID uint, seconds float64) (int64, error) {
	var left int64
	err := db.WithTransaction(ctx, func(tx *gorm.DB) error {
		var err error
		left, err = DebitTx(tx, accountID, seconds)
		return err
	})
	return left, err
}

func TestDebitTx_ClampsAtZero(t *testing.T) {
	db, acct := seed(t, 100)
	ctx := context.Background()

	steps := []struct {
		seconds float64
		want    int64
	}{
		{10.2, 89},
		{80, 9},
		{50, 0},
		{5, 0},
	}
	for _, s := range steps {
		got, err := debit(ctx, db, acct.ID, s.seconds)
		if err != nil {
			t.Fatalf("DebitTx(%v) error = %v", s.seconds, err)
		}
		if got != s.want {
			t.Errorf("DebitTx(%v) = %d, want %d", s.seconds, got, s.want)
		}
	}
}

func TestDebitTx_UnknownAccount(t *testing.T) {
	db, _ := seed(t, 10)
	_, err := debit(context.Background(), db, 9999, 1)
	if !apperrors.IsCode(err, apperrors.ErrCodeNotFound) {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
}

func TestDebitTx_ConcurrentNeverNegative(t *testing.T) {
	db, acct := seed(t, 50)
	l := NewLedger(db)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = debit(ctx, db, acct.ID, 7)
		}()
	}
	wg.Wait()

	left, err := l.Remaining(ctx, acct.ID)
	if err != nil {
		t.Fatal(err)
	}
	if left != 0 {
		t.Errorf("remaining = %d, want 0", left)
	}
}
