// internal/database/lock.go
package database

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// EmailPollLockKey identifies the advisory lock held by the instance that
// polls the shared inbox.
const EmailPollLockKey int64 = 0x52465031 // "RFP1"

// AdvisoryLocker serializes work across processes with a postgres
// session-level advisory lock held on a dedicated connection.
type AdvisoryLocker struct {
	db  *gorm.DB
	key int64
}

func NewAdvisoryLocker(db *gorm.DB, key int64) *AdvisoryLocker {
	return &AdvisoryLocker{db: db, key: key}
}

// TryLock returns ok=false without blocking when another session holds the
// lock. The returned release func must be called once the work is done.
func (l *AdvisoryLocker) TryLock(ctx context.Context) (func(), bool, error) {
	sqlDB, err := l.db.DB()
	if err != nil {
		return nil, false, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to reserve lock connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", l.key).Scan(&acquired); err != nil {
		conn.Close()
		return nil, false, fmt.Errorf("failed to acquire advisory lock: %w", err)
	}
	if !acquired {
		conn.Close()
		return nil, false, nil
	}

	release := func() {
		if _, err := conn.ExecContext(context.Background(), "SELECT pg_advisory_unlock($1)", l.key); err != nil {
			logrus.WithError(err).Warn("Failed to release advisory lock")
		}
		conn.Close()
	}
	return release, true, nil
}
