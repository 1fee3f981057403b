package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/mlomp/mairie-backend/pkg/auth"
	"github.com/mlomp/mairie-backend/pkg/observability"
)

// accountColumns is the canonical column list for scanning an account row
const accountColumns = `id, email, username, password_hash, role, google_id, photo_url,
	phone, country, city, department, commune, needs_completion,
	reset_token, reset_token_expires_at, created_at, updated_at`

// Service implements the account lifecycle: registration, login, profile
// management, password reset, and the admin-only user management operations.
// All read-count-then-mutate sequences run inside a single transaction so the
// last-administrator invariant holds under concurrent requests.
type Service struct {
	db     *sql.DB
	tokens *auth.TokenService
	mailer Mailer
	logger *observability.Logger
}

// NewService creates an account service
func NewService(db *sql.DB, tokens *auth.TokenService, mailer Mailer, logger *observability.Logger) *Service {
	if mailer == nil {
		mailer = &LogMailer{Logger: logger}
	}
	return &Service{db: db, tokens: tokens, mailer: mailer, logger: logger}
}

// RegisterRequest carries the registration input
type RegisterRequest struct {
	Email    string    `json:"email"`
	Password string    `json:"password"`
	Username string    `json:"username"`
	Role     auth.Role `json:"role"`
}

// Register creates an account and returns it with a fresh session token.
// The very first account in the store is always an administrator, regardless
// of the requested role.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*auth.Account, string, error) {
	username := req.Username
	if username == "" {
		// Derive from the email local-part
		username = strings.SplitN(req.Email, "@", 2)[0]
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, "", err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var emailTaken bool
	if err := tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM accounts WHERE email = $1)`, req.Email,
	).Scan(&emailTaken); err != nil {
		return nil, "", fmt.Errorf("failed to check email: %w", err)
	}
	if emailTaken {
		return nil, "", auth.ErrEmailTaken
	}

	if req.Username != "" {
		var usernameTaken bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM accounts WHERE username = $1)`, req.Username,
		).Scan(&usernameTaken); err != nil {
			return nil, "", fmt.Errorf("failed to check username: %w", err)
		}
		if usernameTaken {
			return nil, "", auth.ErrUsernameTaken
		}
	}

	// Count within the same transaction as the insert so the bootstrap
	// cannot race with a concurrent first registration.
	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&count); err != nil {
		return nil, "", fmt.Errorf("failed to count accounts: %w", err)
	}

	role := req.Role
	if role == "" {
		role = auth.RoleEditor
	}
	if count == 0 {
		role = auth.RoleAdmin
	}
	if !auth.ValidRole(role) {
		return nil, "", auth.ErrInvalidRole
	}

	account := &auth.Account{
		Email:    req.Email,
		Username: username,
		Role:     role,
	}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO accounts (email, username, password_hash, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`, req.Email, username, hash, string(role)).Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		return nil, "", mapConflict(err)
	}

	if err := tx.Commit(); err != nil {
		return nil, "", fmt.Errorf("failed to commit transaction: %w", err)
	}

	token, err := s.tokens.IssueSession(account)
	if err != nil {
		return nil, "", err
	}
	return account, token, nil
}

// Login authenticates by email and password and issues a session token.
// Unknown email and wrong password produce the same error so the response
// does not leak which field was wrong.
func (s *Service) Login(ctx context.Context, email, password string) (*auth.Account, string, error) {
	account, err := s.getBy(ctx, "email", email)
	if err != nil {
		if errors.Is(err, auth.ErrAccountNotFound) {
			return nil, "", auth.ErrInvalidCredentials
		}
		return nil, "", err
	}

	if !auth.CheckPassword(account.PasswordHash, password) {
		return nil, "", auth.ErrInvalidCredentials
	}

	token, err := s.tokens.IssueSession(account)
	if err != nil {
		return nil, "", err
	}
	return account, token, nil
}

// GetAccountByID loads an account by id
func (s *Service) GetAccountByID(ctx context.Context, id int64) (*auth.Account, error) {
	return s.getBy(ctx, "id", id)
}

// GetAccountByEmail loads an account by email
func (s *Service) GetAccountByEmail(ctx context.Context, email string) (*auth.Account, error) {
	return s.getBy(ctx, "email", email)
}

// UpdateProfile applies the provided profile fields after checking them for
// uniqueness against all other accounts
func (s *Service) UpdateProfile(ctx context.Context, id int64, username, email *string) (*auth.Account, error) {
	if username != nil {
		var taken bool
		if err := s.db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM accounts WHERE username = $1 AND id <> $2)`,
			*username, id,
		).Scan(&taken); err != nil {
			return nil, fmt.Errorf("failed to check username: %w", err)
		}
		if taken {
			return nil, auth.ErrUsernameTaken
		}
	}
	if email != nil {
		var taken bool
		if err := s.db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM accounts WHERE email = $1 AND id <> $2)`,
			*email, id,
		).Scan(&taken); err != nil {
			return nil, fmt.Errorf("failed to check email: %w", err)
		}
		if taken {
			return nil, auth.ErrEmailTaken
		}
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE accounts SET
			username = COALESCE($1, username),
			email = COALESCE($2, email),
			updated_at = NOW()
		WHERE id = $3
	`, username, email, id)
	if err != nil {
		return nil, mapConflict(err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil, auth.ErrAccountNotFound
	}

	return s.GetAccountByID(ctx, id)
}

// ChangePassword verifies the current password and stores a new hash
func (s *Service) ChangePassword(ctx context.Context, id int64, currentPassword, newPassword string) error {
	account, err := s.GetAccountByID(ctx, id)
	if err != nil {
		return err
	}

	if !auth.CheckPassword(account.PasswordHash, currentPassword) {
		return auth.ErrWrongPassword
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE accounts SET password_hash = $1, updated_at = NOW() WHERE id = $2`,
		hash, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

// ForgotPassword issues a 1-hour reset token, persists it on the account,
// and hands it to the mailer. The token is never returned to the caller;
// delivery is strictly out-of-band.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	account, err := s.getBy(ctx, "email", email)
	if err != nil {
		return err
	}

	token, err := s.tokens.IssueReset(account.ID, account.Email)
	if err != nil {
		return err
	}

	expiry := time.Now().Add(auth.ResetTTL)
	_, err = s.db.ExecContext(ctx, `
		UPDATE accounts SET reset_token = $1, reset_token_expires_at = $2, updated_at = NOW()
		WHERE id = $3
	`, token, expiry, account.ID)
	if err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	if err := s.mailer.SendPasswordReset(ctx, account.Email, token); err != nil {
		return fmt.Errorf("failed to send reset mail: %w", err)
	}
	return nil
}

// ResetPassword redeems a reset token. The token must carry a valid
// signature AND match the stored, unexpired token for its account; the
// single conditional UPDATE consumes it, so a second redemption fails even
// before the token's natural expiry.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	claims, err := s.tokens.VerifyReset(token)
	if err != nil {
		return auth.ErrInvalidResetToken
	}
	accountID, err := claims.AccountID()
	if err != nil {
		return auth.ErrInvalidResetToken
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE accounts SET
			password_hash = $1,
			reset_token = NULL,
			reset_token_expires_at = NULL,
			updated_at = NOW()
		WHERE id = $2 AND reset_token = $3 AND reset_token_expires_at > NOW()
	`, hash, accountID, token)
	if err != nil {
		return fmt.Errorf("failed to reset password: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return auth.ErrInvalidResetToken
	}
	return nil
}

// ListAccounts returns all accounts, newest first
func (s *Service) ListAccounts(ctx context.Context) ([]*auth.Account, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*auth.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

// DeleteAccount removes an account. Deleting the last administrator fails
// with ErrLastAdmin; the admin count is evaluated by the DELETE itself so
// the guard cannot race with a concurrent delete.
func (s *Service) DeleteAccount(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var role string
	err = tx.QueryRowContext(ctx,
		`SELECT role FROM accounts WHERE id = $1 FOR UPDATE`, id,
	).Scan(&role)
	if err == sql.ErrNoRows {
		return auth.ErrAccountNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load account: %w", err)
	}

	var res sql.Result
	if auth.Role(role) == auth.RoleAdmin {
		res, err = tx.ExecContext(ctx, `
			DELETE FROM accounts
			WHERE id = $1
			  AND (SELECT COUNT(*) FROM accounts WHERE role = $2) > 1
		`, id, string(auth.RoleAdmin))
	} else {
		res, err = tx.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	}
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return auth.ErrLastAdmin
	}

	return tx.Commit()
}

// UpdateRole changes an account's role. Demoting the last administrator
// fails with ErrLastAdmin under the same transactional guard as deletion.
func (s *Service) UpdateRole(ctx context.Context, id int64, role auth.Role) (*auth.Account, error) {
	if !auth.ValidRole(role) {
		return nil, auth.ErrInvalidRole
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var current string
	err = tx.QueryRowContext(ctx,
		`SELECT role FROM accounts WHERE id = $1 FOR UPDATE`, id,
	).Scan(&current)
	if err == sql.ErrNoRows {
		return nil, auth.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	var res sql.Result
	if auth.Role(current) == auth.RoleAdmin && role != auth.RoleAdmin {
		res, err = tx.ExecContext(ctx, `
			UPDATE accounts SET role = $1, updated_at = NOW()
			WHERE id = $2
			  AND (SELECT COUNT(*) FROM accounts WHERE role = $3) > 1
		`, string(role), id, string(auth.RoleAdmin))
	} else {
		res, err = tx.ExecContext(ctx,
			`UPDATE accounts SET role = $1, updated_at = NOW() WHERE id = $2`,
			string(role), id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update role: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil, auth.ErrLastAdmin
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return s.GetAccountByID(ctx, id)
}

// CompleteProfileRequest carries the mandatory profile fields for federated
// accounts
type CompleteProfileRequest struct {
	Phone      string `json:"phone"`
	Password   string `json:"password"`
	Country    string `json:"country"`
	City       string `json:"city"`
	Department string `json:"department"`
	Commune    string `json:"commune"`
}

// CompleteProfile fills in the mandatory fields of a federated account and,
// once all of them are populated, clears needs_completion. The transition is
// one-way: an already complete account never becomes incomplete again.
func (s *Service) CompleteProfile(ctx context.Context, id int64, req CompleteProfileRequest) (*auth.Account, error) {
	account, err := s.GetAccountByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Phone != "" {
		account.Phone = req.Phone
	}
	if req.Password != "" {
		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			return nil, err
		}
		account.PasswordHash = hash
	}
	if req.Country != "" {
		account.Country = req.Country
	}
	if req.City != "" {
		account.City = req.City
	}
	if req.Department != "" {
		account.Department = req.Department
	}
	if req.Commune != "" {
		account.Commune = req.Commune
	}

	if account.NeedsCompletion && account.ProfileComplete() {
		account.NeedsCompletion = false
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE accounts SET
			phone = $1, password_hash = $2, country = $3, city = $4,
			department = $5, commune = $6, needs_completion = $7,
			updated_at = NOW()
		WHERE id = $8
	`, account.Phone, account.PasswordHash, account.Country, account.City,
		account.Department, account.Commune, account.NeedsCompletion, id)
	if err != nil {
		return nil, fmt.Errorf("failed to complete profile: %w", err)
	}

	return s.GetAccountByID(ctx, id)
}

// CleanupExpiredResetTokens clears reset tokens past their expiry and
// returns the number of rows touched
func (s *Service) CleanupExpiredResetTokens(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE accounts SET reset_token = NULL, reset_token_expires_at = NULL
		WHERE reset_token IS NOT NULL AND reset_token_expires_at <= NOW()
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear expired reset tokens: %w", err)
	}
	return res.RowsAffected()
}

func (s *Service) getBy(ctx context.Context, column string, value interface{}) (*auth.Account, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE `+column+` = $1`, value)
	account, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return nil, auth.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	return account, nil
}

// rowScanner covers *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAccount(row rowScanner) (*auth.Account, error) {
	var (
		account    auth.Account
		username   sql.NullString
		googleID   sql.NullString
		photoURL   sql.NullString
		phone      sql.NullString
		country    sql.NullString
		city       sql.NullString
		department sql.NullString
		commune    sql.NullString
		resetToken sql.NullString
		resetExp   sql.NullTime
		role       string
	)

	err := row.Scan(
		&account.ID, &account.Email, &username, &account.PasswordHash, &role,
		&googleID, &photoURL, &phone, &country, &city, &department, &commune,
		&account.NeedsCompletion, &resetToken, &resetExp,
		&account.CreatedAt, &account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	account.Role = auth.Role(role)
	account.Username = username.String
	account.GoogleID = googleID.String
	account.PhotoURL = photoURL.String
	account.Phone = phone.String
	account.Country = country.String
	account.City = city.String
	account.Department = department.String
	account.Commune = commune.String
	account.ResetToken = resetToken.String
	if resetExp.Valid {
		account.ResetTokenExpiresAt = &resetExp.Time
	}
	return &account, nil
}

// mapConflict converts postgres unique-violation errors into the domain
// Conflict errors so a lost race still produces the right response
func mapConflict(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		if strings.Contains(pqErr.Constraint, "email") {
			return auth.ErrEmailTaken
		}
		if strings.Contains(pqErr.Constraint, "username") {
			return auth.ErrUsernameTaken
		}
	}
	return err
}
