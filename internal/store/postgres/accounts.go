package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"MicroblogServer/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AccountsStore struct {
	pool *pgxpool.Pool
}

func NewAccountsStore(pool *pgxpool.Pool) *AccountsStore {
	return &AccountsStore{pool: pool}
}

const accountColumns = `
	id, name, email, password_hash, admin, activated, activated_at,
	activation_digest, remember_digest, reset_digest, reset_sent_at,
	created_at, updated_at
`

func scanAccount(row pgx.Row) (domain.Account, error) {
	var (
		a                domain.Account
		idUUID           pgtype.UUID
		activatedAt      pgtype.Timestamptz
		activationDigest pgtype.Text
		rememberDigest   pgtype.Text
		resetDigest      pgtype.Text
		resetSentAt      pgtype.Timestamptz
	)
	err := row.Scan(
		&idUUID,
		&a.Name,
		&a.Email,
		&a.PasswordHash,
		&a.Admin,
		&a.Activated,
		&activatedAt,
		&activationDigest,
		&rememberDigest,
		&resetDigest,
		&resetSentAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return domain.Account{}, err
	}
	a.ID = uuidOrEmpty(idUUID)
	a.ActivatedAt = timestamptzPtr(activatedAt)
	a.ActivationDigest = textOrEmpty(activationDigest)
	a.RememberDigest = textOrEmpty(rememberDigest)
	a.ResetDigest = textOrEmpty(resetDigest)
	a.ResetSentAt = timestamptzPtr(resetSentAt)
	return a, nil
}

func (s *AccountsStore) CreateAccount(ctx context.Context, na domain.NewAccount) (domain.Account, error) {
	const q = `
		INSERT INTO accounts (name, email, password_hash, activation_digest, activated, activated_at, admin)
		VALUES ($1, $2, $3, $4, $5, CASE WHEN $5 THEN now() END, $6)
		RETURNING ` + accountColumns

	a, err := scanAccount(s.pool.QueryRow(ctx, q,
		na.Name,
		na.Email,
		na.PasswordHash,
		nullIfEmpty(na.ActivationDigest),
		na.Activated,
		na.Admin,
	))
	if err != nil {
		return domain.Account{}, mapAccountWriteError("create account", err)
	}
	return a, nil
}

func (s *AccountsStore) GetAccountByID(ctx context.Context, id string) (domain.Account, error) {
	if !validID(id) {
		return domain.Account{}, domain.ErrNotFound
	}
	q := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	a, err := scanAccount(s.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Account{}, domain.ErrNotFound
		}
		return domain.Account{}, fmt.Errorf("get account by id: %w", err)
	}
	return a, nil
}

func (s *AccountsStore) GetAccountByEmail(ctx context.Context, email string) (domain.Account, error) {
	q := `SELECT ` + accountColumns + ` FROM accounts WHERE email = lower($1)`

	a, err := scanAccount(s.pool.QueryRow(ctx, q, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Account{}, domain.ErrNotFound
		}
		return domain.Account{}, fmt.Errorf("get account by email: %w", err)
	}
	return a, nil
}

func (s *AccountsStore) ListActivatedAccounts(ctx context.Context, limit, offset int) ([]domain.Account, error) {
	q := `SELECT ` + accountColumns + `
		FROM accounts
		WHERE activated
		ORDER BY created_at ASC, id ASC
		LIMIT $1 OFFSET $2`

	rows, err := s.pool.Query(ctx, q, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	out := []domain.Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list accounts rows: %w", err)
	}
	return out, nil
}

func (s *AccountsStore) UpdateAccount(ctx context.Context, id string, upd domain.AccountUpdate) (domain.Account, error) {
	if !validID(id) {
		return domain.Account{}, domain.ErrNotFound
	}
	q := `
		UPDATE accounts
		SET name = $2,
		    email = $3,
		    password_hash = COALESCE($4, password_hash),
		    updated_at = now()
		WHERE id = $1
		RETURNING ` + accountColumns

	a, err := scanAccount(s.pool.QueryRow(ctx, q, id, upd.Name, upd.Email, nullIfEmpty(upd.PasswordHash)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Account{}, domain.ErrNotFound
		}
		return domain.Account{}, mapAccountWriteError("update account", err)
	}
	return a, nil
}

func (s *AccountsStore) SetPasswordHash(ctx context.Context, accountID, passwordHash string) error {
	const q = `
		UPDATE accounts
		SET password_hash = $2, updated_at = now()
		WHERE id = $1
	`
	return s.execOne(ctx, "set password hash", q, accountID, passwordHash)
}

func (s *AccountsStore) MarkActivated(ctx context.Context, id string, when time.Time) error {
	const q = `
		UPDATE accounts
		SET activated = true, activated_at = $2, activation_digest = NULL, updated_at = now()
		WHERE id = $1
	`
	return s.execOne(ctx, "mark activated", q, id, when)
}

func (s *AccountsStore) SetTokenDigest(ctx context.Context, accountID string, kind domain.TokenKind, digest string, issuedAt time.Time) error {
	switch kind {
	case domain.TokenRemember:
		return s.execOne(ctx, "set remember digest",
			`UPDATE accounts SET remember_digest = $2, updated_at = now() WHERE id = $1`, accountID, digest)
	case domain.TokenActivation:
		return s.execOne(ctx, "set activation digest",
			`UPDATE accounts SET activation_digest = $2, updated_at = now() WHERE id = $1`, accountID, digest)
	case domain.TokenReset:
		return s.execOne(ctx, "set reset digest",
			`UPDATE accounts SET reset_digest = $2, reset_sent_at = $3, updated_at = now() WHERE id = $1`, accountID, digest, issuedAt)
	default:
		return fmt.Errorf("unknown token kind %q", kind)
	}
}

func (s *AccountsStore) ClearTokenDigest(ctx context.Context, accountID string, kind domain.TokenKind) error {
	switch kind {
	case domain.TokenRemember:
		return s.execOne(ctx, "clear remember digest",
			`UPDATE accounts SET remember_digest = NULL, updated_at = now() WHERE id = $1`, accountID)
	case domain.TokenActivation:
		return s.execOne(ctx, "clear activation digest",
			`UPDATE accounts SET activation_digest = NULL, updated_at = now() WHERE id = $1`, accountID)
	case domain.TokenReset:
		return errors.New("reset digest is cleared with ForceClearResetDigest")
	default:
		return fmt.Errorf("unknown token kind %q", kind)
	}
}

// ForceClearResetDigest writes the single column directly, skipping the
// validation every other account write goes through.
func (s *AccountsStore) ForceClearResetDigest(ctx context.Context, accountID string) error {
	const q = `UPDATE accounts SET reset_digest = NULL WHERE id = $1`
	return s.execOne(ctx, "clear reset digest", q, accountID)
}

// DeleteAccount relies on ON DELETE CASCADE for posts, relationships and
// sessions.
func (s *AccountsStore) DeleteAccount(ctx context.Context, id string) error {
	return s.execOne(ctx, "delete account", `DELETE FROM accounts WHERE id = $1`, id)
}

func (s *AccountsStore) execOne(ctx context.Context, op, q string, id string, args ...any) error {
	if !validID(id) {
		return domain.ErrNotFound
	}
	ct, err := s.pool.Exec(ctx, q, append([]any{id}, args...)...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func mapAccountWriteError(op string, err error) error {
	var pgerr *pgconn.PgError
	if errors.As(err, &pgerr) && pgerr.Code == "23505" {
		switch pgerr.ConstraintName {
		case "accounts_email_uq":
			return domain.ErrEmailTaken
		default:
			return fmt.Errorf("unique violation (%s): %w", pgerr.ConstraintName, err)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
