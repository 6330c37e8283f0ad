// Package storage holds the domain documents and the MongoDB-backed stores
// for students and exam results.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound reports that no document matched the requested id.
var ErrNotFound = errors.New("storage: document not found")

// Student is a directory entry. The id is assigned by the producer of the
// data, not generated here; duplicate ids are permitted.
type Student struct {
	ID   string `bson:"id" json:"id"`
	Name string `bson:"name" json:"name"`
}

// Result is a schemaless exam-result document. Producers control its shape;
// the service only requires the "id" and "subjects" fields to be present and
// otherwise passes the document through untouched.
type Result map[string]any

// ID returns the producer-assigned id, or "" when absent or not a string.
func (r Result) ID() string {
	id, _ := r["id"].(string)
	return id
}

// Subjects returns the opaque subjects payload, or nil when absent.
func (r Result) Subjects() any {
	return r["subjects"]
}

// StudentStore persists directory entries.
type StudentStore interface {
	// ListStudents returns every student document. No pagination.
	ListStudents(ctx context.Context) ([]Student, error)

	// AddStudent inserts s and returns the store-assigned internal id.
	AddStudent(ctx context.Context, s Student) (string, error)
}

// ResultStore persists exam results.
type ResultStore interface {
	// FindResult returns the result whose id field equals id, or ErrNotFound.
	FindResult(ctx context.Context, id string) (Result, error)

	// AddResult inserts r and returns the store-assigned internal id.
	AddResult(ctx context.Context, r Result) (string, error)
}
