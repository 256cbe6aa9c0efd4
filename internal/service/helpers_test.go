package service

import (
	"context"
	"errors"
	"os"
	"sync/atomic"

	"github.com/spec-kit/ticket-bot/internal/store"
	"github.com/spec-kit/ticket-bot/pkg/util/errorutil"
)

func errorCode(err error) string {
	if de := errorutil.ToDomainError(err); de != nil {
		return de.Code
	}
	return ""
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

var errDiskFull = errors.New("disk full")

// flakyBackend fails every write while failing is set.
type flakyBackend struct {
	store.Backend
	failing atomic.Bool
}

func (b *flakyBackend) Write(ctx context.Context, name string, data []byte) error {
	if b.failing.Load() {
		return errDiskFull
	}
	return b.Backend.Write(ctx, name, data)
}
