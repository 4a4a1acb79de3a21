// Package backend assembles the storage, messaging and report export
// collaborators shared by the famledger binaries.
package backend

import (
	"context"
	"errors"

	"famledger/internal/amqp"
	"famledger/internal/config"
	"famledger/internal/services"
	"famledger/internal/sheets"
	"famledger/internal/storage"
)

// ReportTarget names where cycle reports are exported.
type ReportTarget string

const (
	MemoryReports ReportTarget = "memory"
	SheetsReports ReportTarget = "sheets"
)

// String implements fmt.Stringer
func (t ReportTarget) String() string {
	return string(t)
}

// CleanupFunc releases a resource opened by the factory.
type CleanupFunc func() error

// Backend holds the opened collaborators. AMQP is nil when no broker is
// configured or the broker was unreachable; Events then discards events.
type Backend struct {
	Repo         *storage.SQLiteRepository
	AMQP         *amqp.Client
	Events       services.EventPublisher
	Reports      sheets.ReportWriter
	ReportTarget ReportTarget

	cleanups []CleanupFunc
}

// Close releases resources in reverse opening order.
func (b *Backend) Close() error {
	var errs []error
	for i := len(b.cleanups) - 1; i >= 0; i-- {
		if err := b.cleanups[i](); err != nil {
			errs = append(errs, err)
		}
	}
	b.cleanups = nil
	return errors.Join(errs...)
}

// Factory opens a Backend from the application configuration.
type Factory interface {
	Open(ctx context.Context, cfg *config.Config) (*Backend, error)
}
