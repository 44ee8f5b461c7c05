package building

import (
	"fmt"
	"log/slog"

	"github.com/Knuttatutta/mind-to-model/logging"
)

func logger() *slog.Logger { return logging.Logger() }

// InTransaction runs fn inside a named transaction. The transaction is
// committed when fn returns nil and rolled back on error or panic; a panic
// is re-raised after the rollback.
func InTransaction(doc Document, name string, fn func() error) (err error) {
	if doc == nil {
		return ErrNoDocument
	}
	tx, err := doc.Begin(name)
	if err != nil {
		return err
	}
	logger().Info("transaction started", "name", name)

	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil {
			logger().Error("rollback failed", "name", name, "error", rbErr)
		}
		logger().Info("transaction rolled back", "name", name)
	}()

	if err := fn(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	logger().Info("transaction committed", "name", name)
	return nil
}
