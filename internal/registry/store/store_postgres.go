package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"credreg/internal/platform/database"
	"credreg/internal/registry/models"
	"credreg/pkg/domain"
	"credreg/pkg/platform/sentinel"
)

const pgUniqueViolation = "23505"

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresStore persists registry state in PostgreSQL. Transactions lock the
// registry_state row so concurrent mutations run one at a time.
type PostgresStore struct {
	db   *sql.DB
	q    queryer
	inTx bool
}

// NewPostgres constructs a PostgreSQL-backed registry store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, q: db}
}

func (s *PostgresStore) CredentialCount(ctx context.Context) (uint64, error) {
	var n int64
	err := s.q.QueryRowContext(ctx, `SELECT credential_count FROM registry_state WHERE id = 1`).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read credential count: %w", err)
	}
	return uint64(n), nil
}

func (s *PostgresStore) SetCredentialCount(ctx context.Context, n uint64) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO registry_state (id, credential_count, updated_at) VALUES (1, $1, NOW())
		ON CONFLICT (id) DO UPDATE SET credential_count = EXCLUDED.credential_count, updated_at = NOW()
	`, int64(n))
	if err != nil {
		return fmt.Errorf("write credential count: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindCredential(ctx context.Context, id domain.CredentialID) (*models.Credential, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT id, issuer, recipient, title, description, course_id, completion_date, document_reference, is_revoked
		FROM credentials
		WHERE id = $1
	`, int64(id))
	c, err := scanCredential(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find credential by id: %w", err)
	}
	return c, nil
}

func scanCredential(row interface{ Scan(dest ...any) error }) (*models.Credential, error) {
	var (
		c                 models.Credential
		id                int64
		issuer, recipient string
	)
	err := row.Scan(&id, &issuer, &recipient, &c.Title, &c.Description, &c.CourseID,
		&c.CompletionDate, &c.DocumentReference, &c.IsRevoked)
	if err != nil {
		return nil, err
	}
	c.ID = domain.CredentialID(id)
	c.Issuer = domain.Identity(issuer)
	c.Recipient = domain.Identity(recipient)
	c.CompletionDate = c.CompletionDate.UTC()
	return &c, nil
}

func (s *PostgresStore) SaveCredential(ctx context.Context, c *models.Credential) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO credentials (id, issuer, recipient, title, description, course_id, completion_date, document_reference, is_revoked)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			issuer = EXCLUDED.issuer,
			recipient = EXCLUDED.recipient,
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			course_id = EXCLUDED.course_id,
			completion_date = EXCLUDED.completion_date,
			document_reference = EXCLUDED.document_reference,
			is_revoked = EXCLUDED.is_revoked
	`,
		int64(c.ID),
		c.Issuer.String(),
		c.Recipient.String(),
		c.Title,
		c.Description,
		c.CourseID,
		c.CompletionDate,
		c.DocumentReference,
		c.IsRevoked,
	)
	if err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	return nil
}

func (s *PostgresStore) CredentialExists(ctx context.Context, id domain.CredentialID) (bool, error) {
	var exists bool
	err := s.q.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM credentials WHERE id = $1)`, int64(id)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check credential exists: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) RecipientCredentials(ctx context.Context, recipient domain.Identity) ([]domain.CredentialID, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT credential_id FROM recipient_credentials
		WHERE recipient = $1
		ORDER BY position
	`, recipient.String())
	if err != nil {
		return nil, fmt.Errorf("list recipient credentials: %w", err)
	}
	defer rows.Close()

	ids := []domain.CredentialID{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan recipient credential: %w", err)
		}
		ids = append(ids, domain.CredentialID(id))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recipient credentials: %w", err)
	}
	return ids, nil
}

func (s *PostgresStore) AppendRecipientCredential(ctx context.Context, recipient domain.Identity, id domain.CredentialID) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO recipient_credentials (recipient, position, credential_id)
		SELECT $1, COALESCE(MAX(position), 0) + 1, $2
		FROM recipient_credentials
		WHERE recipient = $1
	`, recipient.String(), int64(id))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("append recipient credential: %w", err)
	}
	return nil
}

func (s *PostgresStore) Admin(ctx context.Context) (domain.Identity, error) {
	var admin sql.NullString
	err := s.q.QueryRowContext(ctx, `SELECT admin FROM registry_state WHERE id = 1`).Scan(&admin)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !admin.Valid) {
		return "", sentinel.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("read admin: %w", err)
	}
	return domain.Identity(admin.String), nil
}

func (s *PostgresStore) SetAdmin(ctx context.Context, admin domain.Identity) error {
	res, err := s.q.ExecContext(ctx, `
		INSERT INTO registry_state (id, admin, updated_at) VALUES (1, $1, NOW())
		ON CONFLICT (id) DO UPDATE SET admin = EXCLUDED.admin, updated_at = NOW()
		WHERE registry_state.admin IS NULL
	`, admin.String())
	if err != nil {
		return fmt.Errorf("write admin: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("write admin: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrAlreadySet
	}
	return nil
}

// RunInTx begins a transaction and takes a row lock on registry_state before
// calling fn.
func (s *PostgresStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	if s.inTx {
		return fn(ctx, s)
	}
	return database.WithTx(ctx, s.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO registry_state (id) VALUES (1) ON CONFLICT (id) DO NOTHING`); err != nil {
			return fmt.Errorf("ensure registry state: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `SELECT 1 FROM registry_state WHERE id = 1 FOR UPDATE`); err != nil {
			return fmt.Errorf("lock registry state: %w", err)
		}
		return fn(ctx, &PostgresStore{db: s.db, q: tx, inTx: true})
	})
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
