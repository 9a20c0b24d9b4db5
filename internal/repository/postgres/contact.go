package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/xid"

	"github.com/sakif/contact-book/internal/apperror"
	"github.com/sakif/contact-book/internal/model"
	"github.com/sakif/contact-book/internal/pagination"
	"github.com/sakif/contact-book/internal/repository"
)

var _ repository.ContactRepository = (*ContactStore)(nil)

type ContactStore struct {
	db DBTX
}

func NewContactStore(db DBTX) *ContactStore {
	return &ContactStore{db: db}
}

const contactColumns = `id, name, email, phone, owner_id, created_at, updated_at`

func (s *ContactStore) Create(ctx context.Context, c *model.Contact) error {
	now := time.Now().UTC()
	c.ID = xid.New().String()
	c.CreatedAt = now
	c.UpdatedAt = now

	_, err := s.db.Exec(ctx,
		`INSERT INTO contacts (`+contactColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.Name, c.Email, c.Phone, c.OwnerID, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("contact", "email "+c.Email)
		}
		return fmt.Errorf("postgres: inserting contact: %w", err)
	}
	return nil
}

func (s *ContactStore) GetByID(ctx context.Context, ownerID, id string) (*model.Contact, error) {
	c, err := scanContact(s.db.QueryRow(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE id = $1 AND owner_id = $2`, id, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NotFound("contact", id)
		}
		return nil, fmt.Errorf("postgres: getting contact %s: %w", id, err)
	}
	return c, nil
}

func (s *ContactStore) GetByEmail(ctx context.Context, ownerID, email string) (*model.Contact, error) {
	c, err := scanContact(s.db.QueryRow(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE email = $1 AND owner_id = $2`, email, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NotFoundMessage("contact not found")
		}
		return nil, fmt.Errorf("postgres: getting contact by email: %w", err)
	}
	return c, nil
}

func (s *ContactStore) Update(ctx context.Context, c *model.Contact) error {
	c.UpdatedAt = time.Now().UTC()

	tag, err := s.db.Exec(ctx,
		`UPDATE contacts SET name = $1, email = $2, phone = $3, updated_at = $4
		 WHERE id = $5 AND owner_id = $6`,
		c.Name, c.Email, c.Phone, c.UpdatedAt, c.ID, c.OwnerID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("contact", "email "+c.Email)
		}
		return fmt.Errorf("postgres: updating contact %s: %w", c.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("contact", c.ID)
	}
	return nil
}

func (s *ContactStore) Delete(ctx context.Context, ownerID, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM contacts WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("postgres: deleting contact %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("contact", id)
	}
	return nil
}

// listTxOptions gives the count and the page query one shared snapshot.
var listTxOptions = pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}

// List counts and pages the owner's contacts from one snapshot.
func (s *ContactStore) List(ctx context.Context, ownerID string, q pagination.Query) ([]model.Contact, int, error) {
	where := `owner_id = $1`
	args := []any{ownerID}
	if q.Search != "" {
		where += ` AND name ILIKE $2 ESCAPE '\'`
		args = append(args, "%"+pagination.EscapeLike(q.Search)+"%")
	}

	tx, err := s.db.BeginTx(ctx, listTxOptions)
	if err != nil {
		return nil, 0, fmt.Errorf("postgres: beginning transaction: %w", err)
	}

	var total int
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM contacts WHERE `+where, args...).Scan(&total); err != nil {
		rollback(ctx, tx)
		return nil, 0, fmt.Errorf("postgres: counting contacts: %w", err)
	}

	n := len(args)
	query := fmt.Sprintf(`SELECT %s FROM contacts WHERE %s ORDER BY %s %s, id %s LIMIT $%d OFFSET $%d`,
		contactColumns, where, q.SortColumn(), q.Direction(), q.Direction(), n+1, n+2)

	rows, err := tx.Query(ctx, query, append(args, q.Limit, q.Offset())...)
	if err != nil {
		rollback(ctx, tx)
		return nil, 0, fmt.Errorf("postgres: listing contacts: %w", err)
	}

	contacts := make([]model.Contact, 0, q.Limit)
	for rows.Next() {
		var c model.Contact
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.OwnerID, &c.CreatedAt, &c.UpdatedAt); err != nil {
			rows.Close()
			rollback(ctx, tx)
			return nil, 0, fmt.Errorf("postgres: scanning contact: %w", err)
		}
		contacts = append(contacts, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		rollback(ctx, tx)
		return nil, 0, fmt.Errorf("postgres: iterating contacts: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, 0, fmt.Errorf("postgres: committing list: %w", err)
	}
	return contacts, total, nil
}

func scanContact(row pgx.Row) (*model.Contact, error) {
	var c model.Contact
	if err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.OwnerID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}
