package database

import (
	"context"
	"errors"
)

// Backend is a connection the readiness probe checks.
type Backend interface {
	Name() string
	Ping(ctx context.Context) error
	Close() error
}

// CheckAll pings every backend and returns "ok" or the error text per name.
// The error joins every failure.
func CheckAll(ctx context.Context, backends ...Backend) (map[string]string, error) {
	status := make(map[string]string, len(backends))
	var errs []error
	for _, b := range backends {
		if err := b.Ping(ctx); err != nil {
			status[b.Name()] = err.Error()
			errs = append(errs, err)
			continue
		}
		status[b.Name()] = "ok"
	}
	return status, errors.Join(errs...)
}

// CloseAll closes backends in reverse order.
func CloseAll(backends ...Backend) error {
	var errs []error
	for i := len(backends) - 1; i >= 0; i-- {
		if err := backends[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
