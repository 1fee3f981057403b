package content

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mlomp/mairie-backend/pkg/observability"
)

// Migration is a single versioned schema change
type Migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "create news table",
		SQL: `
			CREATE TABLE IF NOT EXISTS news (
				id BIGSERIAL PRIMARY KEY,
				title TEXT NOT NULL,
				content TEXT NOT NULL,
				category TEXT NOT NULL DEFAULT '',
				image_url TEXT,
				author_id BIGINT REFERENCES accounts(id) ON DELETE SET NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_news_category ON news(category);
			CREATE INDEX IF NOT EXISTS idx_news_created_at ON news(created_at DESC);
		`,
	},
	{
		Version:     2,
		Description: "create services table",
		SQL: `
			CREATE TABLE IF NOT EXISTS services (
				id BIGSERIAL PRIMARY KEY,
				category TEXT NOT NULL,
				title TEXT NOT NULL,
				icon TEXT NOT NULL DEFAULT 'default-icon',
				description TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_services_category ON services(category);
		`,
	},
	{
		Version:     3,
		Description: "create projects table",
		SQL: `
			CREATE TABLE IF NOT EXISTS projects (
				id BIGSERIAL PRIMARY KEY,
				title TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				status TEXT NOT NULL DEFAULT 'PLANNED',
				start_date DATE,
				end_date DATE,
				budget NUMERIC(14,2),
				image_url TEXT,
				manager_id BIGINT REFERENCES accounts(id) ON DELETE SET NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);
		`,
	},
	{
		Version:     4,
		Description: "create investments table",
		SQL: `
			CREATE TABLE IF NOT EXISTS investments (
				id BIGSERIAL PRIMARY KEY,
				title TEXT NOT NULL,
				category TEXT NOT NULL DEFAULT '',
				description TEXT NOT NULL DEFAULT '',
				short_description TEXT NOT NULL DEFAULT '',
				amount NUMERIC(14,2),
				start_year INT,
				end_year INT,
				status TEXT NOT NULL DEFAULT 'PLANNED',
				image_url TEXT,
				manager_id BIGINT REFERENCES accounts(id) ON DELETE SET NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_investments_category ON investments(category);
		`,
	},
	{
		Version:     5,
		Description: "create procedures table",
		SQL: `
			CREATE TABLE IF NOT EXISTS procedures (
				id BIGSERIAL PRIMARY KEY,
				title TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				icon TEXT NOT NULL DEFAULT 'default-icon',
				required_docs TEXT[] NOT NULL DEFAULT '{}',
				processing_time TEXT NOT NULL DEFAULT '',
				category TEXT NOT NULL DEFAULT '',
				online_url TEXT,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_procedures_category ON procedures(category);
		`,
	},
	{
		Version:     6,
		Description: "create gallery table",
		SQL: `
			CREATE TABLE IF NOT EXISTS gallery (
				id BIGSERIAL PRIMARY KEY,
				title TEXT NOT NULL DEFAULT '',
				media_url TEXT NOT NULL,
				media_key TEXT NOT NULL DEFAULT '',
				media_type TEXT NOT NULL CHECK (media_type IN ('IMAGE', 'VIDEO')),
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);
		`,
	},
	{
		Version:     7,
		Description: "create contact_messages table",
		SQL: `
			CREATE TABLE IF NOT EXISTS contact_messages (
				id BIGSERIAL PRIMARY KEY,
				name TEXT NOT NULL,
				email TEXT NOT NULL,
				subject TEXT NOT NULL DEFAULT '',
				message TEXT NOT NULL,
				status TEXT NOT NULL DEFAULT 'PENDING',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_contact_messages_status ON contact_messages(status);
		`,
	},
}

// RunMigrations applies pending content schema migrations in order
func RunMigrations(ctx context.Context, db *sql.DB, logger *observability.Logger) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS content_migrations (
			version INT PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	for _, m := range migrations {
		var applied bool
		if err := db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM content_migrations WHERE version = $1)`, m.Version,
		).Scan(&applied); err != nil {
			return fmt.Errorf("failed to check migration %d: %w", m.Version, err)
		}
		if applied {
			continue
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration %d: %w", m.Version, err)
		}
		if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s) failed: %w", m.Version, m.Description, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO content_migrations (version, description) VALUES ($1, $2)`,
			m.Version, m.Description); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", m.Version, err)
		}

		logger.Info("applied content migration", "version", m.Version, "description", m.Description)
	}

	return nil
}
