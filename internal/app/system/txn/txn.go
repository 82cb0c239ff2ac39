// Package txn runs a group of Mongo writes in a transaction when the
// deployment supports it, and falls back to running them directly when it
// does not (standalone servers, some DocumentDB versions).
package txn

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Run executes fn inside a multi-document transaction on db's client.
//
// If the server rejects transactions, fn is run again without one and a
// warning is logged. fn must therefore be safe to retry from the start.
func Run(ctx context.Context, db *mongo.Database, log *zap.Logger, fn func(ctx context.Context) error) error {
	sess, err := db.Client().StartSession()
	if err != nil {
		if IsNotSupported(err) {
			warnFallback(log, err)
			return fn(ctx)
		}
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		return nil, fn(sc)
	})
	if err != nil && IsNotSupported(err) {
		warnFallback(log, err)
		return fn(ctx)
	}
	return err
}

// Runner binds Run to a database so callers outside the store layer can use
// it without a Mongo dependency.
func Runner(db *mongo.Database, log *zap.Logger) func(ctx context.Context, fn func(ctx context.Context) error) error {
	return func(ctx context.Context, fn func(ctx context.Context) error) error {
		return Run(ctx, db, log, fn)
	}
}

func warnFallback(log *zap.Logger, err error) {
	if log == nil {
		return
	}
	log.Warn("transactions not supported; running without transaction", zap.Error(err))
}

// IsNotSupported reports whether err means the server cannot run
// transactions or sessions.
//
// Known codes: 20 (IllegalOperation), 51, 263 (OperationNotSupportedInTransaction).
// Message matching covers drivers and vendors that wrap the code away.
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) {
		switch ce.Code {
		case 20, 51, 263:
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	has := func(s string) bool { return strings.Contains(msg, s) }
	switch {
	case has("transaction") && has("replica set"):
		return true
	case has("session") && has("not supported"):
		return true
	case has("transaction") && has("session"):
		return true
	case has("illegal operation"):
		return true
	}
	return false
}
