// Package students implements the student directory.
package students

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/unkn0wn-root/resultdesk/internal/storage"
)

// ErrInvalidStudent reports a payload missing a required field.
var ErrInvalidStudent = errors.New("students: id and name are required")

type Directory struct {
	store storage.StudentStore
	log   *zap.Logger
}

func New(store storage.StudentStore, log *zap.Logger) *Directory {
	return &Directory{store: store, log: log}
}

// ListAll returns every student. Unbounded scan; no pagination.
func (d *Directory) ListAll(ctx context.Context) ([]storage.Student, error) {
	return d.store.ListStudents(ctx)
}

// Add inserts a new student and returns the store-assigned internal id.
// Duplicate ids are permitted; no de-duplication check is made.
func (d *Directory) Add(ctx context.Context, s storage.Student) (string, error) {
	if s.ID == "" || s.Name == "" {
		return "", ErrInvalidStudent
	}
	storeID, err := d.store.AddStudent(ctx, s)
	if err != nil {
		return "", fmt.Errorf("store student %q: %w", s.ID, err)
	}
	d.log.Debug("student added", zap.String("id", s.ID))
	return storeID, nil
}
