// Package store persists sites, devices, consents and events in an
// embedded SQLite database. Upsert-by-unique-key is the load-bearing
// contract: consent and device writes replace in place.
package store

import (
	"cgd/internal/structures"
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // CGO-free SQLite
)

type Store struct {
	db *sql.DB
}

func NewStore(conf *structures.Config) (*Store, error) {
	// WAL + busy timeout to avoid "database is locked"
	db, err := sql.Open("sqlite", conf.Storage.Path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS sites(
	  id               INTEGER PRIMARY KEY,
	  site_key         TEXT    NOT NULL UNIQUE,
	  site_salt        TEXT    NOT NULL,
	  policy_version   TEXT    NOT NULL,
	  origin_whitelist TEXT    NOT NULL DEFAULT '[]' CHECK (json_valid(origin_whitelist)),
	  captcha_provider TEXT,
	  captcha_site_key TEXT,
	  captcha_secret   TEXT,
	  created_at       TEXT    NOT NULL
	);
	CREATE TABLE IF NOT EXISTS devices(
	  site_id       INTEGER NOT NULL REFERENCES sites(id),
	  device_id     TEXT    NOT NULL,
	  first_seen_at TEXT    NOT NULL,
	  last_seen_at  TEXT    NOT NULL,
	  PRIMARY KEY (site_id, device_id)
	);
	CREATE TABLE IF NOT EXISTS consents(
	  id             INTEGER PRIMARY KEY,
	  site_id        INTEGER NOT NULL REFERENCES sites(id),
	  device_id      TEXT    NOT NULL,
	  policy_version TEXT    NOT NULL,
	  choices        TEXT    NOT NULL CHECK (json_valid(choices)),
	  user_agent     TEXT,
	  ip_truncated   TEXT,
	  created_at     TEXT    NOT NULL,
	  UNIQUE (site_id, device_id, policy_version)
	);
	CREATE TABLE IF NOT EXISTS events(
	  id           INTEGER PRIMARY KEY,
	  site_id      INTEGER NOT NULL REFERENCES sites(id),
	  device_id    TEXT    NOT NULL,
	  type         TEXT    NOT NULL,
	  purpose      TEXT,
	  url          TEXT,
	  referrer     TEXT,
	  ua           TEXT,
	  ip_truncated TEXT,
	  ts           TEXT    NOT NULL,
	  payload      TEXT,
	  created_at   TEXT    NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_consents_site_device ON consents(site_id, device_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_events_created ON events(created_at);
	CREATE INDEX IF NOT EXISTS idx_events_site_device ON events(site_id, device_id);
	`)
	if err != nil {
		return fmt.Errorf("failed to create database tables: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}
