package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    username      TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('admin', 'manager', 'user')),
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_active
    ON users(username) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS parties (
    id         INTEGER PRIMARY KEY,
    name       TEXT NOT NULL,
    kind       TEXT NOT NULL CHECK (kind IN ('warehouse', 'equipment')),
    site       TEXT,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at DATETIME
);

CREATE TABLE IF NOT EXISTS items (
    id          INTEGER PRIMARY KEY,
    name        TEXT NOT NULL,
    description TEXT,
    unit        TEXT,
    image       BLOB,
    image_mime  TEXT,
    status      TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'damaged', 'lost')),
    created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at  DATETIME
);

CREATE TABLE IF NOT EXISTS transfers (
    id            INTEGER PRIMARY KEY,
    batch_number  TEXT NOT NULL,
    sender_kind   TEXT NOT NULL CHECK (sender_kind IN ('warehouse', 'equipment')),
    sender_id     INTEGER NOT NULL REFERENCES parties(id),
    receiver_kind TEXT NOT NULL CHECK (receiver_kind IN ('warehouse', 'equipment')),
    receiver_id   INTEGER NOT NULL REFERENCES parties(id),
    initiator_id  INTEGER NOT NULL,
    purpose       TEXT,
    status        TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'accepted', 'rejected')),
    notes         TEXT,
    created_by    INTEGER REFERENCES users(id),
    approved_by   INTEGER REFERENCES users(id),
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    completed_at  DATETIME
);

CREATE INDEX IF NOT EXISTS idx_transfers_batch
    ON transfers(batch_number, sender_id, receiver_id) WHERE status = 'pending';

CREATE TABLE IF NOT EXISTS transfer_lines (
    id            INTEGER PRIMARY KEY,
    transfer_id   INTEGER NOT NULL REFERENCES transfers(id) ON DELETE CASCADE,
    item_id       INTEGER NOT NULL REFERENCES items(id),
    claimed_qty   INTEGER NOT NULL CHECK (claimed_qty > 0),
    reported_qty  INTEGER,
    status        TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'accepted', 'rejected')),
    reject_reason TEXT
);

CREATE TABLE IF NOT EXISTS stock_lots (
    id           INTEGER PRIMARY KEY,
    warehouse_id INTEGER NOT NULL REFERENCES parties(id),
    item_id      INTEGER NOT NULL REFERENCES items(id),
    quantity     INTEGER NOT NULL CHECK (quantity > 0),
    status       TEXT NOT NULL DEFAULT 'held' CHECK (status IN ('held', 'missing', 'over_received', 'consumed')),
    line_id      INTEGER REFERENCES transfer_lines(id) ON DELETE SET NULL,
    resolved     INTEGER NOT NULL DEFAULT 0,
    created_at   DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_stock_lots_key
    ON stock_lots(warehouse_id, item_id, status);

CREATE TABLE IF NOT EXISTS consumable_entries (
    id           INTEGER PRIMARY KEY,
    equipment_id INTEGER NOT NULL REFERENCES parties(id),
    item_id      INTEGER NOT NULL REFERENCES items(id),
    quantity     INTEGER NOT NULL CHECK (quantity > 0),
    status       TEXT NOT NULL DEFAULT 'held' CHECK (status IN ('held', 'missing', 'over_received', 'consumed')),
    line_id      INTEGER REFERENCES transfer_lines(id) ON DELETE SET NULL,
    resolved     INTEGER NOT NULL DEFAULT 0,
    created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_consumable_entries_key
    ON consumable_entries(equipment_id, item_id, status);
`

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
