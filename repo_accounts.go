package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Accounts is the account store
type Accounts interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)
	GetByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Account, error)
	GetByUsername(ctx context.Context, username string) (*Account, error)
	GetByUsernameTx(ctx context.Context, tx bun.IDB, username string) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Account, error)
	// GetByIdentifier resolves an email address or a username.
	GetByIdentifier(ctx context.Context, identifier string) (*Account, error)
	GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string) (*Account, error)
	List(ctx context.Context) ([]*Account, error)
	ListPendingCreatorApplications(ctx context.Context) ([]*Account, error)

	Create(ctx context.Context, record *Account) (*Account, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Account) (*Account, error)
	// Update writes the full record. Guards restrict the update to rows whose
	// guarded columns still hold the expected values; when no row matches
	// ErrStaleState is returned.
	Update(ctx context.Context, record *Account, guards ...UpdateGuard) (*Account, error)
	UpdateTx(ctx context.Context, tx bun.IDB, record *Account, guards ...UpdateGuard) (*Account, error)
	// UpdateColumns writes only columns (plus updated_at) so concurrent
	// changes to other columns are preserved.
	UpdateColumns(ctx context.Context, record *Account, columns []string, guards ...UpdateGuard) (*Account, error)
	UpdateColumnsTx(ctx context.Context, tx bun.IDB, record *Account, columns []string, guards ...UpdateGuard) (*Account, error)
	TrackSuccessfulLogin(ctx context.Context, record *Account) error
	TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, record *Account) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error
}

// UpdateGuard is a compare-and-swap condition on a single column.
type UpdateGuard struct {
	Column string
	Value  any
}

// GuardColumn expects column to still hold value when the update runs.
func GuardColumn(column string, value any) UpdateGuard {
	return UpdateGuard{Column: column, Value: value}
}

var guardableColumns = map[string]struct{}{
	ColumnOTPCode:                  {},
	ColumnResetOTP:                 {},
	ColumnPasswordHash:             {},
	ColumnRole:                     {},
	ColumnStatus:                   {},
	ColumnCreatorApplicationStatus: {},
	ColumnEmailVerified:            {},
}

type accounts struct {
	db  *bun.DB
	now func() time.Time
}

var _ Accounts = (*accounts)(nil)

// AccountsOption customizes the bun backed store.
type AccountsOption func(*accounts)

// WithAccountsClock overrides the clock used for created_at, updated_at and last_login.
func WithAccountsClock(now func() time.Time) AccountsOption {
	return func(a *accounts) {
		if now != nil {
			a.now = now
		}
	}
}

// NewAccountsRepository returns the bun backed account store.
func NewAccountsRepository(db *bun.DB, opts ...AccountsOption) Accounts {
	repo := &accounts{
		db:  db,
		now: time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(repo)
		}
	}
	return repo
}

func (a *accounts) GetByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	return a.GetByIDTx(ctx, a.db, id)
}

func (a *accounts) GetByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Account, error) {
	return a.getBy(ctx, tx, "id", id)
}

func (a *accounts) GetByUsername(ctx context.Context, username string) (*Account, error) {
	return a.GetByUsernameTx(ctx, a.db, username)
}

func (a *accounts) GetByUsernameTx(ctx context.Context, tx bun.IDB, username string) (*Account, error) {
	return a.getBy(ctx, tx, "username", strings.TrimSpace(username))
}

func (a *accounts) GetByEmail(ctx context.Context, email string) (*Account, error) {
	return a.GetByEmailTx(ctx, a.db, email)
}

func (a *accounts) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Account, error) {
	return a.getBy(ctx, tx, "email", normalizeEmail(email))
}

func (a *accounts) GetByIdentifier(ctx context.Context, identifier string) (*Account, error) {
	return a.GetByIdentifierTx(ctx, a.db, identifier)
}

func (a *accounts) GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string) (*Account, error) {
	trimmed := strings.TrimSpace(identifier)
	if trimmed == "" {
		return nil, ErrAccountNotFound
	}

	if isEmail(trimmed) {
		record, err := a.GetByEmailTx(ctx, tx, trimmed)
		if err == nil || !errors.Is(err, ErrAccountNotFound) {
			return record, err
		}
	}

	return a.GetByUsernameTx(ctx, tx, trimmed)
}

func (a *accounts) List(ctx context.Context) ([]*Account, error) {
	records := []*Account{}
	err := a.db.NewSelect().
		Model(&records).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, internalError(err, "failed to list accounts")
	}
	return records, nil
}

func (a *accounts) ListPendingCreatorApplications(ctx context.Context) ([]*Account, error) {
	records := []*Account{}
	err := a.db.NewSelect().
		Model(&records).
		Where("?TableAlias.creator_application_status = ?", ApplicationPending).
		Order("updated_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, internalError(err, "failed to list creator applications")
	}
	return records, nil
}

func (a *accounts) Create(ctx context.Context, record *Account) (*Account, error) {
	return a.CreateTx(ctx, a.db, record)
}

func (a *accounts) CreateTx(ctx context.Context, tx bun.IDB, record *Account) (*Account, error) {
	prepareAccountDefaults(record, a.now())

	if _, err := tx.NewInsert().Model(record).Exec(ctx); err != nil {
		if conflict := uniqueViolation(err); conflict != nil {
			return nil, conflict
		}
		return nil, internalError(err, "failed to create account")
	}

	return record, nil
}

func (a *accounts) Delete(ctx context.Context, id uuid.UUID) error {
	return a.DeleteTx(ctx, a.db, id)
}

func (a *accounts) DeleteTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	res, err := tx.NewDelete().
		Model((*Account)(nil)).
		Where("?TableAlias.id = ?", id).
		Exec(ctx)
	if err != nil {
		return internalError(err, "failed to delete account")
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return internalError(err, "failed to read affected rows")
	}
	if affected == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (a *accounts) Update(ctx context.Context, record *Account, guards ...UpdateGuard) (*Account, error) {
	return a.UpdateTx(ctx, a.db, record, guards...)
}

func (a *accounts) UpdateTx(ctx context.Context, tx bun.IDB, record *Account, guards ...UpdateGuard) (*Account, error) {
	return a.UpdateColumnsTx(ctx, tx, record, nil, guards...)
}

func (a *accounts) UpdateColumns(ctx context.Context, record *Account, columns []string, guards ...UpdateGuard) (*Account, error) {
	return a.UpdateColumnsTx(ctx, a.db, record, columns, guards...)
}

func (a *accounts) UpdateColumnsTx(ctx context.Context, tx bun.IDB, record *Account, columns []string, guards ...UpdateGuard) (*Account, error) {
	if record == nil || record.ID == uuid.Nil {
		return nil, ErrAccountNotFound
	}

	record.UpdatedAt = a.now()

	q := tx.NewUpdate().
		Model(record).
		WherePK()

	if len(columns) > 0 {
		q = q.Column(append(append([]string(nil), columns...), "updated_at")...)
	} else {
		q = q.ExcludeColumn("id", "created_at")
	}

	for _, g := range guards {
		if _, ok := guardableColumns[g.Column]; !ok {
			return nil, fmt.Errorf("accounts: column %q can not be guarded", g.Column)
		}
		q = q.Where("?TableAlias.? = ?", bun.Ident(g.Column), g.Value)
	}

	res, err := q.Exec(ctx)
	if err != nil {
		if conflict := uniqueViolation(err); conflict != nil {
			return nil, conflict
		}
		return nil, internalError(err, "failed to update account")
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, internalError(err, "failed to read affected rows")
	}

	if affected == 0 {
		if len(guards) > 0 {
			return nil, ErrStaleState
		}
		return nil, ErrAccountNotFound
	}

	return record, nil
}

func (a *accounts) TrackSuccessfulLogin(ctx context.Context, record *Account) error {
	return a.TrackSuccessfulLoginTx(ctx, a.db, record)
}

func (a *accounts) TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, record *Account) error {
	loggedInAt := a.now()
	_, err := tx.NewRaw(`
		UPDATE "accounts"
		SET "last_login" = ?
		WHERE "id" = ?;
	`, loggedInAt, record.ID).Exec(ctx)
	if err != nil {
		return internalError(err, "failed to track login")
	}

	record.LastLogin = &loggedInAt
	return nil
}

func (a *accounts) getBy(ctx context.Context, tx bun.IDB, column string, value any) (*Account, error) {
	record := &Account{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.? = ?", bun.Ident(column), value).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, internalError(err, "failed to load account")
	}
	return record, nil
}

func prepareAccountDefaults(record *Account, now time.Time) {
	if record == nil {
		return
	}

	record.EnsureDefaults()
	record.Email = normalizeEmail(record.Email)

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
}

// uniqueViolation maps driver specific unique constraint errors.
func uniqueViolation(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "unique constraint failed"),
		strings.Contains(msg, "duplicate key value"),
		strings.Contains(msg, "sqlstate=23505"):
	default:
		return nil
	}

	if strings.Contains(msg, "email") {
		return withCause(ErrEmailTaken, err, nil)
	}
	return withCause(ErrUsernameTaken, err, nil)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isEmail(email string) bool {
	_, err := mail.ParseAddress(email)
	return err == nil
}
