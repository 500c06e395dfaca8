package tokens

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ResetUserPasswordSQL swaps the password hash and retires the reset
// token pair in one statement. The pair must never be cleared in a
// separate write from the hash update.
var ResetUserPasswordSQL = `UPDATE "users" AS "usr"
SET
	"password_hash" = ?,
	"reset_token" = NULL,
	"reset_sent_at" = NULL
WHERE
	"usr"."deleted_at" IS NULL
AND (
	"usr"."id" = ?
) RETURNING *;`

// SaveResetTokenSQL stores a reset token together with its sent
// timestamp, both fields always travel in the same statement.
var SaveResetTokenSQL = `UPDATE "users" AS "usr"
SET
	"reset_token" = ?,
	"reset_sent_at" = ?
WHERE
	"usr"."deleted_at" IS NULL
AND (
	"usr"."id" = ?
) RETURNING *;`

// SaveConfirmationTokenSQL stores a confirmation token together with
// its sent timestamp.
var SaveConfirmationTokenSQL = `UPDATE "users" AS "usr"
SET
	"confirmation_token" = ?,
	"confirmation_sent_at" = ?
WHERE
	"usr"."deleted_at" IS NULL
AND (
	"usr"."id" = ?
) RETURNING *;`

// ConfirmUserSQL marks the account confirmed and retires the
// confirmation token pair. COALESCE keeps the first confirmation
// timestamp, so re-running the statement is harmless.
var ConfirmUserSQL = `UPDATE "users" AS "usr"
SET
	"confirmed_at" = COALESCE("usr"."confirmed_at", ?),
	"confirmation_token" = NULL,
	"confirmation_sent_at" = NULL
WHERE
	"usr"."deleted_at" IS NULL
AND (
	"usr"."id" = ?
) RETURNING *;`

type Users interface {
	repository.Repository[*User]

	Register(ctx context.Context, user *User) (*User, error)
	RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)
	Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error)

	GetByConfirmationToken(ctx context.Context, token string) (*User, error)
	GetByConfirmationTokenTx(ctx context.Context, tx bun.IDB, token string) (*User, error)
	GetByResetToken(ctx context.Context, token string) (*User, error)
	GetByResetTokenTx(ctx context.Context, tx bun.IDB, token string) (*User, error)

	SaveConfirmationToken(ctx context.Context, id uuid.UUID, token string, sentAt time.Time) (*User, error)
	SaveConfirmationTokenTx(ctx context.Context, tx bun.IDB, id uuid.UUID, token string, sentAt time.Time) (*User, error)
	SaveResetToken(ctx context.Context, id uuid.UUID, token string, sentAt time.Time) (*User, error)
	SaveResetTokenTx(ctx context.Context, tx bun.IDB, id uuid.UUID, token string, sentAt time.Time) (*User, error)

	Confirm(ctx context.Context, id uuid.UUID, confirmedAt time.Time) (*User, error)
	ConfirmTx(ctx context.Context, tx bun.IDB, id uuid.UUID, confirmedAt time.Time) (*User, error)

	ResetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	ResetPasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error
}

type users struct {
	repository.Repository[*User]
	db *bun.DB
}

var (
	_ Users                        = (*users)(nil)
	_ repository.Repository[*User] = (*users)(nil)
)

func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
	})

	return &users{
		Repository: repo,
		db:         db,
	}
}

func (a *users) Register(ctx context.Context, user *User) (*User, error) {
	return a.RegisterTx(ctx, a.db, user)
}

func (a *users) RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	return a.CreateTx(ctx, tx, user)
}

func (a *users) GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (*User, error) {
	return a.GetByIdentifierTx(ctx, a.db, identifier, criteria...)
}

func (a *users) GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string, criteria ...repository.SelectCriteria) (*User, error) {
	options := resolveUserIdentifier(identifier)
	if len(options) == 0 {
		options = []identifierOption{
			{
				column: "id",
				value:  strings.TrimSpace(identifier),
			},
		}
	}

	for _, opt := range options {
		record := &User{}
		q := tx.NewSelect().Model(record)

		for _, c := range criteria {
			q.Apply(c)
		}

		err := q.
			Where(fmt.Sprintf("?TableAlias.%s = ?", opt.column), opt.value).
			Limit(1).
			Scan(ctx)

		if err != nil {
			if repository.IsRecordNotFound(err) {
				continue
			}
			return nil, err
		}

		return record, nil
	}

	return nil, repository.NewRecordNotFound().
		WithMetadata(map[string]any{
			"identifier": identifier,
		})
}

func (a *users) Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

func (a *users) CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	prepareUserDefaults(record)
	return a.Repository.CreateTx(ctx, tx, record, criteria...)
}

func (a *users) GetByConfirmationToken(ctx context.Context, token string) (*User, error) {
	return a.GetByConfirmationTokenTx(ctx, a.db, token)
}

func (a *users) GetByConfirmationTokenTx(ctx context.Context, tx bun.IDB, token string) (*User, error) {
	return a.getByTokenTx(ctx, tx, "confirmation_token", token)
}

func (a *users) GetByResetToken(ctx context.Context, token string) (*User, error) {
	return a.GetByResetTokenTx(ctx, a.db, token)
}

func (a *users) GetByResetTokenTx(ctx context.Context, tx bun.IDB, token string) (*User, error) {
	return a.getByTokenTx(ctx, tx, "reset_token", token)
}

func (a *users) getByTokenTx(ctx context.Context, tx bun.IDB, column, token string) (*User, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"lookup": column,
			})
	}

	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Where(fmt.Sprintf("?TableAlias.%s = ?", column), trimmed).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"lookup": column,
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *users) SaveConfirmationToken(ctx context.Context, id uuid.UUID, token string, sentAt time.Time) (*User, error) {
	return a.SaveConfirmationTokenTx(ctx, a.db, id, token, sentAt)
}

func (a *users) SaveConfirmationTokenTx(ctx context.Context, tx bun.IDB, id uuid.UUID, token string, sentAt time.Time) (*User, error) {
	return a.rawUpdateTx(ctx, tx, SaveConfirmationTokenSQL, id, token, sentAt)
}

func (a *users) SaveResetToken(ctx context.Context, id uuid.UUID, token string, sentAt time.Time) (*User, error) {
	return a.SaveResetTokenTx(ctx, a.db, id, token, sentAt)
}

func (a *users) SaveResetTokenTx(ctx context.Context, tx bun.IDB, id uuid.UUID, token string, sentAt time.Time) (*User, error) {
	return a.rawUpdateTx(ctx, tx, SaveResetTokenSQL, id, token, sentAt)
}

func (a *users) Confirm(ctx context.Context, id uuid.UUID, confirmedAt time.Time) (*User, error) {
	return a.ConfirmTx(ctx, a.db, id, confirmedAt)
}

func (a *users) ConfirmTx(ctx context.Context, tx bun.IDB, id uuid.UUID, confirmedAt time.Time) (*User, error) {
	return a.rawUpdateTx(ctx, tx, ConfirmUserSQL, id, confirmedAt)
}

func (a *users) ResetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return a.ResetPasswordTx(ctx, a.db, id, passwordHash)
}

func (a *users) ResetPasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error {
	_, err := a.rawUpdateTx(ctx, tx, ResetUserPasswordSQL, id, passwordHash)
	return err
}

// rawUpdateTx runs one of the token statements above. The statements
// bind the user id last, after their SET parameters.
func (a *users) rawUpdateTx(ctx context.Context, tx bun.IDB, sql string, id uuid.UUID, args ...any) (*User, error) {
	args = append(args, id.String())

	res, err := a.Repository.RawTx(ctx, tx, sql, args...)
	if err != nil {
		return nil, err
	}

	if res == nil || len(res) == 0 {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}

	return res[0], nil
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}

	if record.Role == "" {
		record.Role = RoleGuest
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}

type identifierOption struct {
	column string
	value  string
}

func resolveUserIdentifier(identifier string) []identifierOption {
	trimmed := strings.TrimSpace(identifier)
	if trimmed == "" {
		return nil
	}

	options := make([]identifierOption, 0, 3)

	if isUUID(trimmed) {
		options = append(options, identifierOption{
			column: "id",
			value:  trimmed,
		})
	}

	if isEmail(trimmed) {
		options = append(options, identifierOption{
			column: "email",
			value:  trimmed,
		})
	}

	options = append(options, identifierOption{
		column: "username",
		value:  trimmed,
	})

	return options
}

func isEmail(email string) bool {
	_, err := mail.ParseAddress(email)
	return err == nil
}

func isUUID(identifier string) bool {
	_, err := uuid.Parse(identifier)
	return err == nil
}
