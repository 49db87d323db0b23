package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var errNoTransaction = errors.New("no transaction in progress")

type txKey struct{}

// Tx is the transaction carried by a context. Stores pick it up through
// FromContext so a service can group several writes.
type Tx struct {
	id      string
	db      *gorm.DB
	started time.Time
}

func txFrom(ctx context.Context) (*Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(*Tx)
	return tx, ok && tx != nil
}

// Commit commits the transaction held by ctx and returns a context without it.
// A context without a transaction is returned as is.
func Commit(ctx context.Context) (context.Context, error) {
	return endTransaction(ctx, "commit", func(db *gorm.DB) error { return db.Commit().Error })
}

// Rollback aborts the transaction held by ctx and returns a context without it.
func Rollback(ctx context.Context) (context.Context, error) {
	return endTransaction(ctx, "rollback", func(db *gorm.DB) error { return db.Rollback().Error })
}

func endTransaction(ctx context.Context, op string, end func(db *gorm.DB) error) (context.Context, error) {
	tx, ok := txFrom(ctx)
	if !ok {
		return ctx, nil
	}
	ctx = context.WithValue(ctx, txKey{}, (*Tx)(nil))

	if tx.db == nil {
		return ctx, errNoTransaction
	}
	db := tx.db
	tx.db = nil

	logger := zap.S().Named("store").With("tx", tx.id, "op", op, "duration", time.Since(tx.started))
	if err := end(db); err != nil {
		logger.Errorw("failed to end transaction", "error", err)
		return ctx, err
	}
	logger.Debug("transaction ended")
	return ctx, nil
}

// FromContext returns the open transaction of ctx, or nil.
func FromContext(ctx context.Context) *gorm.DB {
	if tx, ok := txFrom(ctx); ok {
		return tx.db
	}
	return nil
}

// newTransactionContext begins a transaction unless ctx already carries one,
// in which case writes join the outer transaction.
func newTransactionContext(ctx context.Context, db *gorm.DB) (context.Context, error) {
	if _, ok := txFrom(ctx); ok {
		return ctx, nil
	}

	begun := db.Session(&gorm.Session{Context: ctx}).Begin()
	if begun.Error != nil {
		return ctx, begun.Error
	}

	tx := &Tx{id: uuid.NewString()[:8], db: begun, started: time.Now()}
	zap.S().Named("store").Debugw("transaction started", "tx", tx.id)

	return context.WithValue(ctx, txKey{}, tx), nil
}
