package db

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Connect initializes the database connection and runs migrations.
func Connect(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}

func runMigrations(db *sqlx.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
            id SERIAL PRIMARY KEY,
            name TEXT NOT NULL,
            email TEXT NOT NULL UNIQUE,
            role TEXT NOT NULL CHECK (role IN ('tutor', 'parent')),
            created_at TIMESTAMPTZ DEFAULT NOW()
        );`,
		`CREATE TABLE IF NOT EXISTS groups (
            id SERIAL PRIMARY KEY,
            name TEXT NOT NULL,
            tutor_id INT NOT NULL REFERENCES users(id),
            created_at TIMESTAMPTZ DEFAULT NOW()
        );`,
		`CREATE TABLE IF NOT EXISTS group_members (
            group_id INT NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
            parent_id INT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            PRIMARY KEY (group_id, parent_id)
        );`,
		`CREATE TABLE IF NOT EXISTS threads (
            id SERIAL PRIMARY KEY,
            subject TEXT NOT NULL,
            recipient_type TEXT NOT NULL CHECK (recipient_type IN ('all', 'group', 'specific')),
            group_id INT REFERENCES groups(id),
            created_by INT NOT NULL REFERENCES users(id),
            archived BOOLEAN NOT NULL DEFAULT FALSE,
            created_at TIMESTAMPTZ DEFAULT NOW(),
            CHECK (recipient_type <> 'group' OR group_id IS NOT NULL)
        );`,
		`CREATE TABLE IF NOT EXISTS thread_participants (
            thread_id INT NOT NULL REFERENCES threads(id) ON DELETE CASCADE,
            user_id INT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            last_read_at TIMESTAMPTZ,
            PRIMARY KEY (thread_id, user_id)
        );`,
		`CREATE TABLE IF NOT EXISTS messages (
            id SERIAL PRIMARY KEY,
            thread_id INT NOT NULL REFERENCES threads(id) ON DELETE CASCADE,
            sender_id INT NOT NULL REFERENCES users(id),
            content TEXT NOT NULL DEFAULT '',
            image_urls TEXT[] NOT NULL DEFAULT '{}',
            created_at TIMESTAMPTZ DEFAULT NOW()
        );`,
		`CREATE INDEX IF NOT EXISTS idx_messages_thread_created ON messages (thread_id, created_at, id);`,
		`CREATE TABLE IF NOT EXISTS reactions (
            id SERIAL PRIMARY KEY,
            message_id INT NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
            user_id INT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            emoji TEXT NOT NULL,
            created_at TIMESTAMPTZ DEFAULT NOW(),
            UNIQUE (message_id, user_id, emoji)
        );`,
		`CREATE TABLE IF NOT EXISTS lessons (
            id SERIAL PRIMARY KEY,
            tutor_id INT NOT NULL REFERENCES users(id),
            parent_id INT NOT NULL REFERENCES users(id),
            student_name TEXT NOT NULL,
            subject TEXT NOT NULL,
            scheduled_at TIMESTAMPTZ NOT NULL,
            duration_minutes INT NOT NULL,
            status TEXT NOT NULL CHECK (status IN ('scheduled', 'completed', 'cancelled')),
            payment_status TEXT NOT NULL DEFAULT 'none' CHECK (payment_status IN ('none', 'invoiced', 'paid')),
            amount_cents BIGINT NOT NULL DEFAULT 0,
            rate_display TEXT NOT NULL DEFAULT ''
        );`,
		`CREATE INDEX IF NOT EXISTS idx_lessons_tutor_scheduled ON lessons (tutor_id, scheduled_at);`,
		`CREATE TABLE IF NOT EXISTS prepaid_packages (
            id SERIAL PRIMARY KEY,
            parent_id INT NOT NULL REFERENCES users(id),
            student_names TEXT[] NOT NULL DEFAULT '{}',
            total_sessions INT NOT NULL,
            used_sessions INT NOT NULL DEFAULT 0,
            amount_cents BIGINT NOT NULL,
            paid_at TIMESTAMPTZ
        );`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return err
		}
	}
	return nil
}
