package sqlite

import "database/sql"

// schema contains the SQL statements to set up the database schema.
// These run on startup to ensure tables exist.
//
// The UNIQUE indexes on contributions and payouts are load-bearing: they
// are the idempotency guards the services rely on, not mere lookup
// accelerators.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    display_name TEXT NOT NULL,
    phone TEXT,
    password_hash TEXT NOT NULL,
    identity_verified INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS groups (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    owner_id TEXT NOT NULL,
    contribution_amount REAL NOT NULL,
    frequency TEXT NOT NULL,
    period_days INTEGER NOT NULL DEFAULT 0,
    max_members INTEGER NOT NULL,
    min_reliability_score REAL NOT NULL,
    current_round INTEGER NOT NULL DEFAULT 0,
    current_beneficiary_id TEXT,
    status TEXT NOT NULL,
    version INTEGER NOT NULL DEFAULT 1,
    start_date INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL,
    FOREIGN KEY (owner_id) REFERENCES users(id)
);

CREATE TABLE IF NOT EXISTS group_members (
    group_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    turn_order INTEGER NOT NULL,
    has_taken_turn INTEGER NOT NULL DEFAULT 0,
    joined_at INTEGER NOT NULL,
    turn_taken_at INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (group_id, user_id),
    FOREIGN KEY (group_id) REFERENCES groups(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS contributions (
    id TEXT PRIMARY KEY,
    group_id TEXT NOT NULL,
    round INTEGER NOT NULL,
    contributor_id TEXT NOT NULL,
    beneficiary_id TEXT NOT NULL,
    amount REAL NOT NULL,
    due_date INTEGER NOT NULL,
    paid_date INTEGER NOT NULL DEFAULT 0,
    status TEXT NOT NULL,
    payment_proof TEXT,
    notes TEXT,
    delay_days INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL,
    UNIQUE (group_id, contributor_id, round),
    FOREIGN KEY (group_id) REFERENCES groups(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS payouts (
    id TEXT PRIMARY KEY,
    group_id TEXT NOT NULL,
    round INTEGER NOT NULL,
    recipient_id TEXT NOT NULL,
    amount REAL NOT NULL,
    distributed_at INTEGER NOT NULL,
    UNIQUE (group_id, round),
    FOREIGN KEY (group_id) REFERENCES groups(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS reliability_scores (
    user_id TEXT PRIMARY KEY,
    score REAL NOT NULL,
    total_contributions INTEGER NOT NULL DEFAULT 0,
    on_time_payments INTEGER NOT NULL DEFAULT 0,
    late_payments INTEGER NOT NULL DEFAULT 0,
    missed_payments INTEGER NOT NULL DEFAULT 0,
    average_delay_days REAL NOT NULL DEFAULT 0,
    last_updated INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_group_members_user ON group_members(user_id);
CREATE INDEX IF NOT EXISTS idx_contributions_group_round ON contributions(group_id, round);
CREATE INDEX IF NOT EXISTS idx_contributions_contributor ON contributions(contributor_id);
CREATE INDEX IF NOT EXISTS idx_contributions_status_due ON contributions(status, due_date);
CREATE INDEX IF NOT EXISTS idx_payouts_group ON payouts(group_id);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
