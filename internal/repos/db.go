package repos

import (
	"log"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"
)

func OpenDB(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err = db.Ping(); err != nil {
		return nil, err
	}

	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	// Ensure users exist (idempotent; safe to run every start)
	if err := seedUsers(db); err != nil {
		return nil, err
	}

	return db, nil
}

func ensureSchema(db *sqlx.DB) error {
	schema := `
PRAGMA foreign_keys = ON;

-- Users & Sessions
CREATE TABLE IF NOT EXISTS users(
  id TEXT PRIMARY KEY,
  username TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL CHECK (role IN ('REQUESTER','PICKER','ADMIN')),
  created_at TEXT DEFAULT CURRENT_TIMESTAMP
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username ON users(LOWER(username));

CREATE TABLE IF NOT EXISTS sessions(
  id TEXT PRIMARY KEY,               -- opaque token handed to the client
  user_id TEXT NULL REFERENCES users(id) ON DELETE SET NULL,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  last_seen  TEXT
);
CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id);

-- Pick requests
CREATE TABLE IF NOT EXISTS pick_requests(
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL UNIQUE,
  status TEXT NOT NULL DEFAULT 'pending'
    CHECK (status IN ('pending','in_progress','paused','partially_completed','completed','cancelled')),
  priority TEXT NOT NULL DEFAULT 'normal'
    CHECK (priority IN ('low','normal','high','urgent')),
  created_by TEXT NOT NULL REFERENCES users(id),
  picked_by TEXT NOT NULL DEFAULT '',
  notes TEXT NOT NULL DEFAULT '',
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  submitted_at TEXT NOT NULL DEFAULT '',
  last_activity_at TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_pick_requests_status ON pick_requests(status);
CREATE INDEX IF NOT EXISTS idx_pick_requests_created_at ON pick_requests(created_at);

CREATE TABLE IF NOT EXISTS pick_items(
  request_id TEXT NOT NULL REFERENCES pick_requests(id) ON DELETE CASCADE,
  upc TEXT NOT NULL,
  product_name TEXT NOT NULL,
  requested_qty INTEGER NOT NULL CHECK (requested_qty >= 1),
  picked_qty INTEGER NOT NULL DEFAULT 0 CHECK (picked_qty >= 0),
  position INTEGER NOT NULL DEFAULT 0,
  PRIMARY KEY (request_id, upc)
);
CREATE INDEX IF NOT EXISTS idx_pick_items_request ON pick_items(request_id);
`
	_, err := db.Exec(schema)
	return err
}

// seedUsers ensures one user per role exists (idempotent).
func seedUsers(db *sqlx.DB) error {
	type u struct {
		ID, Username, Name, Role, Hash string
	}
	mk := func(id, username, name, role, raw string) u {
		h, _ := bcrypt.GenerateFromPassword([]byte(raw), 12)
		return u{ID: id, Username: username, Name: name, Role: role, Hash: string(h)}
	}

	users := []u{
		mk("u-admin", "admin", "Admin", "ADMIN", "Passw0rd!"),
		mk("u-rita", "rita", "Rita", "REQUESTER", "Passw0rd!"),
		mk("u-pablo", "pablo", "Pablo", "PICKER", "Passw0rd!"),
	}

	tx := db.MustBegin()
	defer func() { _ = tx.Rollback() }()

	for _, x := range users {
		if _, err := tx.Exec(`
			INSERT INTO users(id,username,name,password_hash,role)
			VALUES(?,?,?,?,?)
			ON CONFLICT(username) DO NOTHING
		`, x.ID, x.Username, x.Name, x.Hash, x.Role); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	log.Println("[seed] baseline users ensured")
	return nil
}
