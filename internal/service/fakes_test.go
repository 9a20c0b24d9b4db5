package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sakif/contact-book/internal/apperror"
	"github.com/sakif/contact-book/internal/model"
	"github.com/sakif/contact-book/internal/pagination"
)

// =========================================================================
// FAKES
// =========================================================================

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fakeUserRepo is an in-memory repository.UserRepository.
type fakeUserRepo struct {
	mu     sync.Mutex
	users  map[string]*model.User
	nextID int
	err    error // returned by every call when set
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User)}
}

func (f *fakeUserRepo) Create(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return apperror.Conflict("user", "email "+u.Email)
		}
	}
	f.nextID++
	u.ID = fmt.Sprintf("user-%d", f.nextID)
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	stored := *u
	f.users[u.ID] = &stored
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	out := *u
	return &out, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.users {
		if u.Email == email {
			out := *u
			return &out, nil
		}
	}
	return nil, apperror.NotFoundMessage("user not found")
}

func (f *fakeUserRepo) Update(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if _, ok := f.users[u.ID]; !ok {
		return apperror.NotFound("user", u.ID)
	}
	for id, existing := range f.users {
		if id != u.ID && existing.Email == u.Email {
			return apperror.Conflict("user", "email "+u.Email)
		}
	}
	u.UpdatedAt = time.Now()
	stored := *u
	f.users[u.ID] = &stored
	return nil
}

func (f *fakeUserRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if _, ok := f.users[id]; !ok {
		return apperror.NotFound("user", id)
	}
	delete(f.users, id)
	return nil
}

// fakeContactRepo is an in-memory repository.ContactRepository that
// honours owner scoping and per-owner email uniqueness.
type fakeContactRepo struct {
	mu       sync.Mutex
	contacts map[string]*model.Contact
	nextID   int
	err      error
	lastList pagination.Query
}

func newFakeContactRepo() *fakeContactRepo {
	return &fakeContactRepo{contacts: make(map[string]*model.Contact)}
}

func (f *fakeContactRepo) emailTaken(ownerID, email, exceptID string) bool {
	for id, c := range f.contacts {
		if id != exceptID && c.OwnerID == ownerID && c.Email == email {
			return true
		}
	}
	return false
}

func (f *fakeContactRepo) Create(_ context.Context, c *model.Contact) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.emailTaken(c.OwnerID, c.Email, "") {
		return apperror.Conflict("contact", "email "+c.Email)
	}
	f.nextID++
	c.ID = fmt.Sprintf("contact-%03d", f.nextID)
	c.CreatedAt = time.Now().Add(time.Duration(f.nextID) * time.Millisecond)
	c.UpdatedAt = c.CreatedAt
	stored := *c
	f.contacts[c.ID] = &stored
	return nil
}

func (f *fakeContactRepo) GetByID(_ context.Context, ownerID, id string) (*model.Contact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	c, ok := f.contacts[id]
	if !ok || c.OwnerID != ownerID {
		return nil, apperror.NotFound("contact", id)
	}
	out := *c
	return &out, nil
}

func (f *fakeContactRepo) GetByEmail(_ context.Context, ownerID, email string) (*model.Contact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, c := range f.contacts {
		if c.OwnerID == ownerID && c.Email == email {
			out := *c
			return &out, nil
		}
	}
	return nil, apperror.NotFoundMessage("contact not found")
}

func (f *fakeContactRepo) Update(_ context.Context, c *model.Contact) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	existing, ok := f.contacts[c.ID]
	if !ok || existing.OwnerID != c.OwnerID {
		return apperror.NotFound("contact", c.ID)
	}
	if f.emailTaken(c.OwnerID, c.Email, c.ID) {
		return apperror.Conflict("contact", "email "+c.Email)
	}
	stored := *c
	f.contacts[c.ID] = &stored
	return nil
}

func (f *fakeContactRepo) Delete(_ context.Context, ownerID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	c, ok := f.contacts[id]
	if !ok || c.OwnerID != ownerID {
		return apperror.NotFound("contact", id)
	}
	delete(f.contacts, id)
	return nil
}

func (f *fakeContactRepo) List(_ context.Context, ownerID string, q pagination.Query) ([]model.Contact, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastList = q
	if f.err != nil {
		return nil, 0, f.err
	}

	var matched []model.Contact
	for _, c := range f.contacts {
		if c.OwnerID != ownerID {
			continue
		}
		if q.Search != "" && !strings.Contains(strings.ToLower(c.Name), strings.ToLower(q.Search)) {
			continue
		}
		matched = append(matched, *c)
	}
	sort.Slice(matched, func(i, j int) bool {
		less := matched[i].CreatedAt.Before(matched[j].CreatedAt)
		if q.SortBy == "name" {
			less = matched[i].Name < matched[j].Name
		}
		if q.SortOrder == pagination.SortDesc {
			return !less
		}
		return less
	})

	total := len(matched)
	start := min(q.Offset(), total)
	end := min(start+q.Limit, total)
	return matched[start:end], total, nil
}
