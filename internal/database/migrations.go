package database

import "database/sql"

// Migration represents a database migration
type Migration struct {
	Name string
	Up   string
}

// Migrate runs all database migrations
func Migrate(db *sql.DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS _migrations (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			run_at TIMESTAMPTZ DEFAULT NOW()
		);
	`); err != nil {
		return err
	}

	migrations := []Migration{
		{
			Name: "initial_schema",
			Up: `
				CREATE TABLE IF NOT EXISTS users (
					id BIGSERIAL PRIMARY KEY,
					username TEXT NOT NULL,
					email TEXT NOT NULL,
					phone TEXT NOT NULL,
					password_hash TEXT NOT NULL,
					role TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('user', 'admin')),
					is_blocked BOOLEAN NOT NULL DEFAULT FALSE,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username ON users (LOWER(username));
				CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users (LOWER(email));

				CREATE TABLE IF NOT EXISTS event_series (
					id BIGSERIAL PRIMARY KEY,
					name TEXT NOT NULL,
					creator_id BIGINT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
					series_type TEXT NOT NULL CHECK (series_type IN ('recurring', 'manual')),
					is_indefinite BOOLEAN NOT NULL DEFAULT FALSE,
					starting_event JSONB NOT NULL,
					ending_event JSONB,
					recur_frequency TEXT,
					recur_end_date TIMESTAMPTZ,
					event_ids BIGINT[] NOT NULL DEFAULT '{}',
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE INDEX IF NOT EXISTS idx_event_series_creator ON event_series (creator_id);

				CREATE TABLE IF NOT EXISTS events (
					id BIGSERIAL PRIMARY KEY,
					title TEXT NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					type TEXT NOT NULL CHECK (type IN ('public', 'private')),
					start_date_time TIMESTAMPTZ NOT NULL,
					end_date_time TIMESTAMPTZ NOT NULL,
					owner_id BIGINT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
					location_address TEXT,
					location_city TEXT,
					location_country TEXT,
					is_recurring BOOLEAN NOT NULL DEFAULT FALSE,
					recur_frequency TEXT,
					recur_interval INT,
					recur_end_date TIMESTAMPTZ,
					series_id BIGINT REFERENCES event_series (id) ON DELETE SET NULL,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					CHECK (start_date_time < end_date_time)
				);

				CREATE INDEX IF NOT EXISTS idx_events_owner ON events (owner_id);
				CREATE INDEX IF NOT EXISTS idx_events_type ON events (type);
				CREATE INDEX IF NOT EXISTS idx_events_series ON events (series_id);

				CREATE TABLE IF NOT EXISTS event_participants (
					event_id BIGINT NOT NULL REFERENCES events (id) ON DELETE CASCADE,
					user_id BIGINT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
					PRIMARY KEY (event_id, user_id)
				);

				CREATE INDEX IF NOT EXISTS idx_event_participants_user ON event_participants (user_id);

				CREATE TABLE IF NOT EXISTS event_invitations (
					event_id BIGINT NOT NULL REFERENCES events (id) ON DELETE CASCADE,
					user_id BIGINT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
					PRIMARY KEY (event_id, user_id)
				);

				CREATE INDEX IF NOT EXISTS idx_event_invitations_user ON event_invitations (user_id);

				CREATE TABLE IF NOT EXISTS delete_requests (
					id BIGSERIAL PRIMARY KEY,
					user_id BIGINT NOT NULL,
					username TEXT NOT NULL,
					requested_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'processed', 'rejected')),
					reason TEXT NOT NULL DEFAULT ''
				);

				-- One pending request per user; reviewed rows don't block new ones
				CREATE UNIQUE INDEX IF NOT EXISTS idx_delete_requests_pending
					ON delete_requests (user_id) WHERE status = 'pending';
			`,
		},
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	for _, migration := range migrations {
		var count int
		err := tx.QueryRow(
			"SELECT COUNT(*) FROM _migrations WHERE name = $1",
			migration.Name,
		).Scan(&count)

		if err != nil {
			tx.Rollback()
			return err
		}

		if count > 0 {
			continue
		}

		if _, err := tx.Exec(migration.Up); err != nil {
			tx.Rollback()
			return err
		}

		if _, err := tx.Exec(
			"INSERT INTO _migrations (name) VALUES ($1)",
			migration.Name,
		); err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}
