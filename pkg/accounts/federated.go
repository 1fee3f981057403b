package accounts

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/mlomp/mairie-backend/pkg/auth"
)

// FederatedIdentity carries the verified claims of an external identity
// provider login.
type FederatedIdentity struct {
	GoogleID string
	Email    string
	Name     string
	PhotoURL string
}

// ProvisionFederated resolves a verified external identity to a local
// account and issues a session token. Resolution is three-step: an account
// already linked to the provider id wins, then an account with the same
// email is linked in place, and only then is a fresh account created. Fresh
// federated accounts start as viewers with needs_completion set, except the
// very first account in the store which is always an administrator.
func (s *Service) ProvisionFederated(ctx context.Context, identity FederatedIdentity) (*auth.Account, string, error) {
	if identity.GoogleID == "" || identity.Email == "" {
		return nil, "", auth.ErrInvalidCredentials
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	account, err := scanAccount(tx.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE google_id = $1`, identity.GoogleID))
	switch {
	case err == nil:
		if identity.PhotoURL != "" && identity.PhotoURL != account.PhotoURL {
			if _, err := tx.ExecContext(ctx,
				`UPDATE accounts SET photo_url = $1, updated_at = NOW() WHERE id = $2`,
				identity.PhotoURL, account.ID); err != nil {
				return nil, "", fmt.Errorf("failed to refresh photo: %w", err)
			}
			account.PhotoURL = identity.PhotoURL
		}
	case err == sql.ErrNoRows:
		account, err = s.linkOrCreate(ctx, tx, identity)
		if err != nil {
			return nil, "", err
		}
	default:
		return nil, "", fmt.Errorf("failed to load account: %w", err)
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

func (s *Service) linkOrCreate(ctx context.Context, tx *sql.Tx, identity FederatedIdentity) (*auth.Account, error) {
	account, err := scanAccount(tx.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE email = $1`, identity.Email))
	if err == nil {
		// Existing local account with the same email gets linked in place
		if _, err := tx.ExecContext(ctx, `
			UPDATE accounts SET google_id = $1,
				photo_url = COALESCE(NULLIF($2, ''), photo_url),
				updated_at = NOW()
			WHERE id = $3
		`, identity.GoogleID, identity.PhotoURL, account.ID); err != nil {
			return nil, fmt.Errorf("failed to link account: %w", err)
		}
		account.GoogleID = identity.GoogleID
		if identity.PhotoURL != "" {
			account.PhotoURL = identity.PhotoURL
		}
		return account, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&count); err != nil {
		return nil, fmt.Errorf("failed to count accounts: %w", err)
	}

	role := auth.RoleViewer
	if count == 0 {
		role = auth.RoleAdmin
	}

	username := strings.SplitN(identity.Email, "@", 2)[0]
	var usernameTaken bool
	if err := tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM accounts WHERE username = $1)`, username,
	).Scan(&usernameTaken); err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if usernameTaken {
		suffix := identity.GoogleID
		if len(suffix) > 6 {
			suffix = suffix[len(suffix)-6:]
		}
		username = username + "-" + suffix
	}

	account = &auth.Account{
		Email:           identity.Email,
		Username:        username,
		Role:            role,
		GoogleID:        identity.GoogleID,
		PhotoURL:        identity.PhotoURL,
		NeedsCompletion: true,
	}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO accounts (email, username, password_hash, role, google_id,
			photo_url, needs_completion, created_at, updated_at)
		VALUES ($1, $2, '', $3, $4, NULLIF($5, ''), TRUE, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`, identity.Email, username, string(role), identity.GoogleID, identity.PhotoURL,
	).Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		return nil, mapConflict(err)
	}
	return account, nil
}
