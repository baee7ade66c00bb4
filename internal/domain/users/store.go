package users

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"camrent/internal/database"
	"camrent/internal/domain/accesscontrol"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store interface {
	GetByID(context.Context, int64) (*User, error)
	GetByEmail(context.Context, string) (*User, error)
	CreateAndInvite(ctx context.Context, user *User, token string, exp time.Duration) error
	CreateActive(ctx context.Context, user *User, role accesscontrol.RoleName) error
	Activate(context.Context, string) error
	Delete(context.Context, int64) error
	SaveRefreshToken(ctx context.Context, userID int64, refreshToken string) error
	DeleteRefreshToken(ctx context.Context, userID int64) error
	GetRefreshToken(ctx context.Context, userID int64) (string, error)
	SetProfilePicture(ctx context.Context, url string, userID int64) error
}

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Store {
	return &Repository{db: db}
}

func (r *Repository) create(ctx context.Context, tx pgx.Tx, user *User) error {
	query := `
	  INSERT INTO users (full_name, password, email, phone)
	  VALUES ($1, $2, $3, $4)
	  RETURNING id, created_at, updated_at
	`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	err := tx.QueryRow(
		ctx, query, user.FullName, user.Password.hash, user.Email, user.Phone,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			switch pgErr.ConstraintName {
			case "users_email_key":
				return ErrDuplicateEmail
			case "users_phone_key":
				return ErrDuplicatePhoneNumber
			}
		}
		return err
	}
	return nil
}

// CreateAndInvite provisions an account in one transaction: the user row, the
// default customer role, and the activation invitation.
func (r *Repository) CreateAndInvite(ctx context.Context, user *User, token string, invitationExp time.Duration) error {
	return database.WithTx(r.db, ctx, func(tx pgx.Tx) error {
		if err := r.create(ctx, tx, user); err != nil {
			return err
		}

		if err := accesscontrol.NewRepository(tx).AssignRole(ctx, user.ID, accesscontrol.RoleCustomer); err != nil {
			return err
		}

		return r.createUserInvitation(ctx, tx, token, invitationExp, user.ID)
	})
}

// CreateActive provisions a back-office account in one transaction: no
// invitation mail, active immediately, with the given role attached.
func (r *Repository) CreateActive(ctx context.Context, user *User, role accesscontrol.RoleName) error {
	return database.WithTx(r.db, ctx, func(tx pgx.Tx) error {
		if err := r.create(ctx, tx, user); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `UPDATE users SET is_active = TRUE WHERE id = $1`, user.ID); err != nil {
			return err
		}
		user.IsActive = true

		return accesscontrol.NewRepository(tx).AssignRole(ctx, user.ID, role)
	})
}

func (r *Repository) createUserInvitation(ctx context.Context, tx pgx.Tx, token string, exp time.Duration, userID int64) error {
	query := `INSERT INTO user_invitations (token, user_id, expiry) VALUES ($1, $2, $3)`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	_, err := tx.Exec(ctx, query, token, userID, time.Now().Add(exp))
	return err
}

func (r *Repository) Activate(ctx context.Context, token string) error {
	return database.WithTx(r.db, ctx, func(tx pgx.Tx) error {
		user, err := r.getUserFromInvitation(ctx, tx, token)
		if err != nil {
			return err
		}

		// idempotent: already active => success
		if user.IsActive {
			return nil
		}

		_, err = tx.Exec(ctx, `UPDATE users SET is_active = TRUE, updated_at = NOW() WHERE id = $1`, user.ID)
		return err
	})
}

func (r *Repository) getUserFromInvitation(ctx context.Context, tx pgx.Tx, token string) (*User, error) {
	query := `
		SELECT u.id, u.full_name, u.email, u.created_at, u.is_active
		FROM users u
		JOIN user_invitations ui ON u.id = ui.user_id
		WHERE ui.token = $1 AND ui.expiry > $2
	`

	hash := sha256.Sum256([]byte(token))
	hashToken := hex.EncodeToString(hash[:])

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	user := &User{}
	err := tx.QueryRow(ctx, query, hashToken, time.Now()).Scan(
		&user.ID,
		&user.FullName,
		&user.Email,
		&user.CreatedAt,
		&user.IsActive,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return user, nil
}

func (r *Repository) GetByID(ctx context.Context, userID int64) (*User, error) {
	query := `
		SELECT id, full_name, email, phone, password, profile_picture_url,
		       is_active, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	user := &User{}
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&user.ID,
		&user.FullName,
		&user.Email,
		&user.Phone,
		&user.Password.hash,
		&user.ProfilePictureURL,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return user, nil
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	query := `
		SELECT id, full_name, email, phone, password, created_at
		FROM users
		WHERE email = $1 AND is_active = true
	`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	user := &User{}
	err := r.db.QueryRow(ctx, query, email).Scan(
		&user.ID,
		&user.FullName,
		&user.Email,
		&user.Phone,
		&user.Password.hash,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return user, nil
}

func (r *Repository) Delete(ctx context.Context, userID int64) error {
	return database.WithTx(r.db, ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM user_invitations WHERE user_id = $1`, userID); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, userID)
		return err
	})
}

func (r *Repository) SaveRefreshToken(ctx context.Context, userID int64, refreshToken string) error {
	_, err := r.db.Exec(ctx, `UPDATE users SET refresh_token = $1, updated_at = NOW() WHERE id = $2`, refreshToken, userID)
	return err
}

func (r *Repository) DeleteRefreshToken(ctx context.Context, userID int64) error {
	_, err := r.db.Exec(ctx, `UPDATE users SET refresh_token = '', updated_at = NOW() WHERE id = $1`, userID)
	return err
}

func (r *Repository) GetRefreshToken(ctx context.Context, userID int64) (string, error) {
	var token string
	err := r.db.QueryRow(ctx, `SELECT refresh_token FROM users WHERE id = $1`, userID).Scan(&token)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return token, nil
}

func (r *Repository) SetProfilePicture(ctx context.Context, url string, userID int64) error {
	_, err := r.db.Exec(ctx, `UPDATE users SET profile_picture_url = $1, updated_at = NOW() WHERE id = $2`, url, userID)
	return err
}
