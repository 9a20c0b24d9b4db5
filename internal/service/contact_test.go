package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/contact-book/internal/apperror"
	"github.com/sakif/contact-book/internal/model"
	"github.com/sakif/contact-book/internal/pagination"
)

func newTestContactService() (*ContactService, *fakeContactRepo) {
	repo := newFakeContactRepo()
	return NewContactService(repo, testLogger()), repo
}

func mustCreateContact(t *testing.T, svc *ContactService, ownerID, name, email string) *model.Contact {
	t.Helper()
	c, err := svc.Create(context.Background(), ownerID, ContactInput{Name: name, Email: email, Phone: "555-123-4567"})
	require.NoError(t, err)
	return c
}

// =========================================================================
// Create
// =========================================================================

func TestContactCreate_SetsOwner(t *testing.T) {
	svc, _ := newTestContactService()

	c := mustCreateContact(t, svc, "owner-a", "Alice", "alice@example.com")
	assert.Equal(t, "owner-a", c.OwnerID)
}

func TestContactCreate_Validation(t *testing.T) {
	tests := []struct {
		name  string
		in    ContactInput
		field string
	}{
		{"short name", ContactInput{Name: "Al", Email: "al@example.com", Phone: "5551234567"}, "name"},
		{"bad email", ContactInput{Name: "Alice", Email: "alice", Phone: "5551234567"}, "email"},
		{"short phone", ContactInput{Name: "Alice", Email: "alice@example.com", Phone: "555"}, "phone"},
		{"missing phone", ContactInput{Name: "Alice", Email: "alice@example.com"}, "phone"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestContactService()
			_, err := svc.Create(context.Background(), "owner-a", tt.in)

			var appErr *apperror.AppError
			require.ErrorAs(t, err, &appErr)
			assert.ErrorIs(t, err, apperror.ErrValidation)
			assert.Equal(t, tt.field, appErr.Field)
		})
	}
}

func TestContactCreate_DuplicatePerOwner(t *testing.T) {
	svc, _ := newTestContactService()
	mustCreateContact(t, svc, "owner-a", "Alice", "alice@example.com")

	_, err := svc.Create(context.Background(), "owner-a", ContactInput{Name: "Alice 2", Email: "alice@example.com", Phone: "5551234567"})
	assert.ErrorIs(t, err, apperror.ErrConflict)

	_, err = svc.Create(context.Background(), "owner-b", ContactInput{Name: "Alice", Email: "alice@example.com", Phone: "5551234567"})
	assert.NoError(t, err)
}

// =========================================================================
// Owner partition
// =========================================================================

func TestContact_CrossOwnerLooksMissing(t *testing.T) {
	svc, repo := newTestContactService()
	c := mustCreateContact(t, svc, "owner-a", "Alice", "alice@example.com")

	_, errGet := svc.Get(context.Background(), "owner-b", c.ID)
	_, errMissing := svc.Get(context.Background(), "owner-b", "contact-999")
	_, errUpdate := svc.Update(context.Background(), "owner-b", c.ID, ContactPatch{Name: strPtr("Hijack")})
	_, errDelete := svc.Delete(context.Background(), "owner-b", c.ID)

	for _, err := range []error{errGet, errUpdate, errDelete} {
		assert.ErrorIs(t, err, apperror.ErrNotFound)
	}
	assert.ErrorIs(t, errMissing, apperror.ErrNotFound)
	assert.Equal(t, "Alice", repo.contacts[c.ID].Name)
}

func TestContactUpdate_Partial(t *testing.T) {
	svc, _ := newTestContactService()
	c := mustCreateContact(t, svc, "owner-a", "Alice", "alice@example.com")

	updated, err := svc.Update(context.Background(), "owner-a", c.ID, ContactPatch{Phone: strPtr("555-000-1111")})
	require.NoError(t, err)
	assert.Equal(t, "Alice", updated.Name)
	assert.Equal(t, "555-000-1111", updated.Phone)
}

func TestContactUpdate_InvalidPatch(t *testing.T) {
	svc, _ := newTestContactService()
	c := mustCreateContact(t, svc, "owner-a", "Alice", "alice@example.com")

	_, err := svc.Update(context.Background(), "owner-a", c.ID, ContactPatch{Email: strPtr("nope")})
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestContactDelete_ReturnsRemoved(t *testing.T) {
	svc, repo := newTestContactService()
	c := mustCreateContact(t, svc, "owner-a", "Alice", "alice@example.com")

	removed, err := svc.Delete(context.Background(), "owner-a", c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, removed.ID)
	assert.Equal(t, "Alice", removed.Name)
	assert.NotContains(t, repo.contacts, c.ID)
}

// =========================================================================
// List
// =========================================================================

func TestContactList_Meta(t *testing.T) {
	svc, _ := newTestContactService()
	for i := 0; i < 25; i++ {
		mustCreateContact(t, svc, "owner-a", fmt.Sprintf("Person %02d", i), fmt.Sprintf("p%02d@example.com", i))
	}
	mustCreateContact(t, svc, "owner-b", "Stranger", "stranger@example.com")

	res, err := svc.List(context.Background(), "owner-a", pagination.Query{Page: 2, Limit: 10})
	require.NoError(t, err)

	assert.Len(t, res.Data, 10)
	assert.Equal(t, pagination.Meta{
		Page: 2, Limit: 10, TotalItems: 25, TotalPages: 3,
		HasNextPage: true, HasPreviousPage: true,
	}, res.Meta)
	for _, c := range res.Data {
		assert.Equal(t, "owner-a", c.OwnerID)
	}
}

func TestContactList_NormalizesQuery(t *testing.T) {
	svc, repo := newTestContactService()

	_, err := svc.List(context.Background(), "owner-a", pagination.Query{Page: -1, Limit: 0, SortBy: "password", SortOrder: "up"})
	require.NoError(t, err)

	assert.Equal(t, pagination.Query{Page: 1, Limit: 10, SortBy: "createdAt", SortOrder: "DESC"}, repo.lastList)
}

func TestContactList_Search(t *testing.T) {
	svc, _ := newTestContactService()
	mustCreateContact(t, svc, "owner-a", "John Smith", "john@example.com")
	mustCreateContact(t, svc, "owner-a", "Jane Doe", "jane@example.com")

	res, err := svc.List(context.Background(), "owner-a", pagination.Query{Search: "smith"})
	require.NoError(t, err)
	require.Len(t, res.Data, 1)
	assert.Equal(t, "John Smith", res.Data[0].Name)
	assert.Equal(t, 1, res.Meta.TotalItems)
}
