// Package quota tracks each account's remaining processing-time budget.
//
// The ledger is the only writer of accounts.time_limit. Admission reads it
// through Check; workers debit it through Debit or DebitTx once a task
// completes.
package quota

import (
	"context"
	"math"

	"gorm.io/gorm"

	"github.com/kbukum/scribe/account"
	"github.com/kbukum/scribe/database"
	apperrors "github.com/kbukum/scribe/errors"
)

// Check is the outcome of a read-only budget check.
type Check struct {
	OK        bool
	Remaining int64
	Required  int64
}

// Err returns QuotaExceeded when the check failed.
func (c Check) Err() error {
	if c.OK {
		return nil
	}
	return apperrors.QuotaExceeded(c.Remaining, c.Required)
}

// Ledger reads and debits account budgets.
type Ledger struct {
	db *database.DB
}

// NewLedger creates a ledger over db.
func NewLedger(db *database.DB) *Ledger {
	return &Ledger{db: db}
}

// Required rounds a duration in seconds up to whole billable seconds.
func Required(seconds float64) int64 {
	if seconds <= 0 {
		return 0
	}
	return int64(math.Ceil(seconds))
}

// Remaining returns the account's current budget.
func (l *Ledger) Remaining(ctx context.Context, accountID uint) (int64, error) {
	return remaining(l.db.WithContext(ctx), accountID)
}

// Check reports whether neededSeconds fit in the remaining budget. It does
// not reserve anything.
func (l *Ledger) Check(ctx context.Context, accountID uint, neededSeconds float64) (Check, error) {
	left, err := l.Remaining(ctx, accountID)
	if err != nil {
		return Check{}, err
	}
	required := Required(neededSeconds)
	return Check{OK: required <= left, Remaining: left, Required: required}, nil
}

// DebitTx subtracts ceil(seconds) from the budget, clamped at zero, inside
// the caller's transaction and returns the new remaining budget. The clamp is
// evaluated by the database in a single UPDATE so concurrent debits cannot
// interleave between read and write.
func DebitTx(tx *gorm.DB, accountID uint, seconds float64) (int64, error) {
	amount := Required(seconds)
	res := tx.Model(&account.Account{}).
		Where("id = ?", accountID).
		Update("time_limit", gorm.Expr("CASE WHEN time_limit > ? THEN time_limit - ? ELSE 0 END", amount, amount))
	if res.Error != nil {
		return 0, database.FromDatabase(res.Error, "account")
	}
	if res.RowsAffected == 0 {
		return 0, apperrors.NotFound("account", "")
	}
	return remaining(tx, accountID)
}

func remaining(db *gorm.DB, accountID uint) (int64, error) {
	var acct account.Account
	if err := db.Select("time_limit").Take(&acct, accountID).Error; err != nil {
		return 0, database.FromDatabase(err, "account")
	}
	return acct.TimeLimit, nil
}
