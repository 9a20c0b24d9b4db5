package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/contact-book/internal/apperror"
	"github.com/sakif/contact-book/internal/model"
	"github.com/sakif/contact-book/internal/pagination"
	"github.com/sakif/contact-book/internal/repository"
)

var _ repository.ContactRepository = (*ContactStore)(nil)

// ContactStore scopes every statement by owner_id. A row that exists under
// another owner is reported exactly like a missing row.
type ContactStore struct {
	conn *sql.DB
}

const contactColumns = `id, name, email, phone, owner_id, created_at, updated_at`

func (s *ContactStore) Create(ctx context.Context, c *model.Contact) error {
	now := time.Now().UTC()
	c.ID = xid.New().String()
	c.CreatedAt = now
	c.UpdatedAt = now

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO contacts (`+contactColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Email, c.Phone, c.OwnerID, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("contact", "email "+c.Email)
		}
		return fmt.Errorf("sqlite: inserting contact: %w", err)
	}
	return nil
}

func (s *ContactStore) GetByID(ctx context.Context, ownerID, id string) (*model.Contact, error) {
	c, err := scanContact(s.conn.QueryRowContext(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE id = ? AND owner_id = ?`, id, ownerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("contact", id)
		}
		return nil, fmt.Errorf("sqlite: getting contact %s: %w", id, err)
	}
	return c, nil
}

func (s *ContactStore) GetByEmail(ctx context.Context, ownerID, email string) (*model.Contact, error) {
	c, err := scanContact(s.conn.QueryRowContext(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE email = ? AND owner_id = ?`, email, ownerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFoundMessage("contact not found")
		}
		return nil, fmt.Errorf("sqlite: getting contact by email: %w", err)
	}
	return c, nil
}

func (s *ContactStore) Update(ctx context.Context, c *model.Contact) error {
	c.UpdatedAt = time.Now().UTC()

	result, err := s.conn.ExecContext(ctx,
		`UPDATE contacts SET name = ?, email = ?, phone = ?, updated_at = ?
		 WHERE id = ? AND owner_id = ?`,
		c.Name, c.Email, c.Phone, c.UpdatedAt, c.ID, c.OwnerID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("contact", "email "+c.Email)
		}
		return fmt.Errorf("sqlite: updating contact %s: %w", c.ID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound("contact", c.ID)
	}
	return nil
}

func (s *ContactStore) Delete(ctx context.Context, ownerID, id string) error {
	result, err := s.conn.ExecContext(ctx,
		`DELETE FROM contacts WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("sqlite: deleting contact %s: %w", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound("contact", id)
	}
	return nil
}

// List counts and pages the owner's contacts inside one transaction so the
// total and the page come from the same snapshot.
func (s *ContactStore) List(ctx context.Context, ownerID string, q pagination.Query) ([]model.Contact, int, error) {
	where := `owner_id = ?`
	args := []any{ownerID}
	if q.Search != "" {
		where += ` AND unicode_lower(name) LIKE ? ESCAPE '\'`
		args = append(args, "%"+pagination.EscapeLike(strings.ToLower(q.Search))+"%")
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var total int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM contacts WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("sqlite: counting contacts: %w", err)
	}

	// SortColumn and Direction only return allow-listed identifiers.
	query := fmt.Sprintf(`SELECT %s FROM contacts WHERE %s ORDER BY %s %s, id %s LIMIT ? OFFSET ?`,
		contactColumns, where, q.SortColumn(), q.Direction(), q.Direction())

	rows, err := tx.QueryContext(ctx, query, append(args, q.Limit, q.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: listing contacts: %w", err)
	}
	defer rows.Close()

	contacts := make([]model.Contact, 0, q.Limit)
	for rows.Next() {
		var c model.Contact
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.OwnerID, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("sqlite: scanning contact: %w", err)
		}
		contacts = append(contacts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("sqlite: iterating contacts: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, 0, fmt.Errorf("sqlite: committing list: %w", err)
	}
	return contacts, total, nil
}

func scanContact(row *sql.Row) (*model.Contact, error) {
	var c model.Contact
	if err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.OwnerID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}
