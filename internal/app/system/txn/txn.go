// Package txn wraps multi-document Mongo transactions with a fallback
// for deployments that do not support them (standalone servers, some
// DocumentDB tiers). The waypoint reorder/compaction protocol and the
// folder cascade delete run through WithTransaction so concurrent
// readers never observe an intermediate state.
package txn

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// WithTransaction runs fn inside a Mongo multi-document transaction,
// passing fn a session-bound context. If the server reports that
// transactions are not supported, fn is re-run once without a
// transaction and a warning is logged — the unique indexes ensured at
// startup remain the last line of defense in that mode.
func WithTransaction(ctx context.Context, client *mongo.Client, log *zap.Logger, fn func(ctx context.Context) error) error {
	sess, err := client.StartSession()
	if err != nil {
		if IsNotSupported(err) {
			warnNoTxn(log, err)
			return fn(ctx)
		}
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	if err != nil && IsNotSupported(err) {
		warnNoTxn(log, err)
		return fn(ctx)
	}
	return err
}

func warnNoTxn(log *zap.Logger, err error) {
	if log == nil {
		log = zap.L()
	}
	log.Warn("transactions not supported; running without transaction",
		zap.Error(err))
}

// IsNotSupported reports whether err indicates the server cannot run
// multi-document transactions. Recognizes the Mongo error codes for
// IllegalOperation / transaction-number restrictions and, as a
// cross-vendor fallback, keyword pairs in the error text.
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

	s := strings.ToLower(err.Error())
	hasTxn := strings.Contains(s, "transaction")
	hasSession := strings.Contains(s, "session")
	if !hasTxn && !hasSession {
		return false
	}
	if hasTxn && hasSession {
		return true
	}
	return strings.Contains(s, "replica set") ||
		strings.Contains(s, "not supported") ||
		strings.Contains(s, "illegal operation")
}
