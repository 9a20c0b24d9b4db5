package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/contact-book/internal/apperror"
	"github.com/sakif/contact-book/internal/model"
)

// newTestDB returns a fresh in-memory database that is closed when the test
// finishes.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestUser(t *testing.T, s *UserStore, email string) *model.User {
	t.Helper()
	u := &model.User{Name: "Test User", Email: email, PasswordHash: "$2a$04$hash"}
	require.NoError(t, s.Create(context.Background(), u))
	return u
}

// =========================================================================
// CREATE
// =========================================================================

func TestUserCreate(t *testing.T) {
	s := newTestDB(t).Users()

	u := &model.User{Name: "Ada", Email: "ada@example.com", PasswordHash: "h"}
	require.NoError(t, s.Create(context.Background(), u))

	assert.NotEmpty(t, u.ID)
	assert.False(t, u.CreatedAt.IsZero())
	assert.Equal(t, u.CreatedAt, u.UpdatedAt)
}

func TestUserCreate_DuplicateEmail(t *testing.T) {
	s := newTestDB(t).Users()
	createTestUser(t, s, "dup@example.com")

	err := s.Create(context.Background(), &model.User{Name: "Other", Email: "dup@example.com", PasswordHash: "h"})
	assert.ErrorIs(t, err, apperror.ErrConflict)
}

// =========================================================================
// GET
// =========================================================================

func TestUserGetByID(t *testing.T) {
	s := newTestDB(t).Users()
	created := createTestUser(t, s, "get@example.com")

	got, err := s.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Email, got.Email)
	assert.Equal(t, created.PasswordHash, got.PasswordHash)
}

func TestUserGetByID_NotFound(t *testing.T) {
	s := newTestDB(t).Users()

	_, err := s.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestUserGetByEmail(t *testing.T) {
	s := newTestDB(t).Users()
	created := createTestUser(t, s, "byemail@example.com")

	got, err := s.GetByEmail(context.Background(), "byemail@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	_, err = s.GetByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

// =========================================================================
// UPDATE / DELETE
// =========================================================================

func TestUserUpdate(t *testing.T) {
	s := newTestDB(t).Users()
	u := createTestUser(t, s, "upd@example.com")

	u.Name = "Renamed"
	require.NoError(t, s.Update(context.Background(), u))

	got, err := s.GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
}

func TestUserUpdate_NotFound(t *testing.T) {
	s := newTestDB(t).Users()

	err := s.Update(context.Background(), &model.User{ID: "missing", Name: "x", Email: "x@example.com"})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestUserDelete_CascadesContacts(t *testing.T) {
	db := newTestDB(t)
	users, contacts := db.Users(), db.Contacts()
	owner := createTestUser(t, users, "owner@example.com")
	other := createTestUser(t, users, "other@example.com")
	createTestContact(t, contacts, owner.ID, "Alice", "alice@example.com")
	kept := createTestContact(t, contacts, other.ID, "Bob", "bob@example.com")

	require.NoError(t, users.Delete(context.Background(), owner.ID))

	_, err := users.GetByID(context.Background(), owner.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	var remaining int
	require.NoError(t, db.conn.QueryRow(`SELECT COUNT(*) FROM contacts WHERE owner_id = ?`, owner.ID).Scan(&remaining))
	assert.Zero(t, remaining)

	_, err = contacts.GetByID(context.Background(), other.ID, kept.ID)
	assert.NoError(t, err)
}

func TestUserDelete_NotFound(t *testing.T) {
	s := newTestDB(t).Users()

	err := s.Delete(context.Background(), "missing")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}
