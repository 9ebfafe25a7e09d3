// Package sqlite implements the repository interfaces on SQLite.
//
// modernc.org/sqlite is a pure-Go translation of the SQLite sources, so
// the binary builds without CGo and cross-compiles cleanly. The driver
// registers itself as "sqlite" via the blank import.
//
// Uniqueness (usernames, emails, like and follow pairs, one-shot tokens)
// is enforced here with UNIQUE constraints; violations surface to the
// services as apperror.ErrConflict, never as raw driver errors.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// DB wraps the connection pool. The per-entity repositories (Users,
// Follows, Posts, Likes, Comments) share it; construct with New, close on
// shutdown, the server owns the lifecycle.
type DB struct {
	conn *sql.DB
}

// The sub-repository types keep the five Create/Get/Delete method sets
// from colliding on a single receiver while still sharing one pool.
type (
	UserDB    struct{ conn *sql.DB }
	FollowDB  struct{ conn *sql.DB }
	PostDB    struct{ conn *sql.DB }
	LikeDB    struct{ conn *sql.DB }
	CommentDB struct{ conn *sql.DB }
)

// Users returns the user repository backed by this connection.
func (db *DB) Users() *UserDB { return &UserDB{conn: db.conn} }

// Follows returns the follow-edge repository.
func (db *DB) Follows() *FollowDB { return &FollowDB{conn: db.conn} }

// Posts returns the post repository.
func (db *DB) Posts() *PostDB { return &PostDB{conn: db.conn} }

// Likes returns the like repository.
func (db *DB) Likes() *LikeDB { return &LikeDB{conn: db.conn} }

// Comments returns the comment repository.
func (db *DB) Comments() *CommentDB { return &CommentDB{conn: db.conn} }

// New opens the database at path (":memory:" in tests), switches on WAL
// and foreign keys, and runs migrations.
func New(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Every pool connection to ":memory:" would get its own empty
	// database, so pin the pool to a single connection there.
	if path == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL allows concurrent reads during a write; the default journal mode
	// locks the whole file.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Off by default in SQLite; the follow/like/comment tables rely on
	// referential integrity and ON DELETE CASCADE.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the connection pool, flushing the WAL.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id              TEXT PRIMARY KEY,
			username        TEXT NOT NULL UNIQUE,
			email           TEXT NOT NULL UNIQUE,
			password_hash   TEXT NOT NULL,
			profile_picture TEXT NOT NULL DEFAULT '',
			is_verified     INTEGER NOT NULL DEFAULT 0,
			verify_token    TEXT UNIQUE,
			verify_expiry   DATETIME,
			reset_token     TEXT UNIQUE,
			reset_expiry    DATETIME,
			created_at      DATETIME NOT NULL,
			updated_at      DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS follows (
			id          TEXT PRIMARY KEY,
			followed_by TEXT NOT NULL REFERENCES users(username) ON UPDATE CASCADE,
			following   TEXT NOT NULL REFERENCES users(username) ON UPDATE CASCADE,
			created_at  DATETIME NOT NULL,
			UNIQUE (followed_by, following)
		);
		CREATE INDEX IF NOT EXISTS idx_follows_followed_by ON follows(followed_by);

		CREATE TABLE IF NOT EXISTS posts (
			id          TEXT PRIMARY KEY,
			author_name TEXT NOT NULL REFERENCES users(username) ON UPDATE CASCADE,
			image       TEXT NOT NULL,
			description TEXT,
			created_at  DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_posts_feed ON posts(created_at DESC, id DESC);
		CREATE INDEX IF NOT EXISTS idx_posts_author ON posts(author_name);

		CREATE TABLE IF NOT EXISTS likes (
			liked_by   TEXT NOT NULL REFERENCES users(username) ON UPDATE CASCADE,
			post_id    TEXT NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
			created_at DATETIME NOT NULL,
			UNIQUE (liked_by, post_id)
		);
		CREATE INDEX IF NOT EXISTS idx_likes_post ON likes(post_id);

		CREATE TABLE IF NOT EXISTS comments (
			id           TEXT PRIMARY KEY,
			post_id      TEXT NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
			commented_by TEXT NOT NULL REFERENCES users(username) ON UPDATE CASCADE,
			description  TEXT NOT NULL,
			created_at   DATETIME NOT NULL,
			updated_at   DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_comments_post ON comments(post_id);
	`)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a UNIQUE or PRIMARY KEY
// constraint failure from the driver.
func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return false
}
