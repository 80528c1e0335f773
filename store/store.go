/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package store keeps a scoreboard of finished games in SQLite.
package store

import (
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

var ErrInvalidLimit = errors.New("limit must be positive")

type Score struct {
	ID         string    `db:"id" json:"id"`
	GameID     string    `db:"game_id" json:"game_id"`
	Team       string    `db:"team" json:"team"`
	Points     int       `db:"points" json:"points"`
	Placed     int       `db:"placed" json:"placed"`
	Rounds     int       `db:"rounds" json:"rounds"`
	Outcome    string    `db:"outcome" json:"outcome"`
	FinishedAt time.Time `db:"finished_at" json:"finished_at"`
}

type SqliteStore struct {
	DB *sqlx.DB
}

// Open connects to the database at dsn and applies pending migrations.
func Open(dsn string) (*SqliteStore, error) {
	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("could not open scoreboard: %w", err)
	}

	// A single connection keeps ":memory:" databases from splitting per connection.
	db.SetMaxOpenConns(1)

	s := &SqliteStore{DB: db}

	if err := s.applyMigrations(); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("could not migrate scoreboard: %w", err)
	}

	return s, nil
}

func (s *SqliteStore) applyMigrations() error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect(string(goose.DialectSQLite3)); err != nil {
		return err
	}

	return goose.Up(s.DB.DB, "migrations")
}

// Record stores a finished game, filling in the ID and timestamp if unset.
func (s *SqliteStore) Record(score Score) (Score, error) {
	if score.ID == "" {
		score.ID = uuid.NewString()
	}
	if score.FinishedAt.IsZero() {
		score.FinishedAt = time.Now().UTC()
	}

	_, err := s.DB.NamedExec(`
	  INSERT INTO scores
	  (id, game_id, team, points, placed, rounds, outcome, finished_at)
	  VALUES (:id, :game_id, :team, :points, :placed, :rounds, :outcome, :finished_at)`,
		score)
	if err != nil {
		return Score{}, err
	}

	return score, nil
}

// Top returns the best limit scores, earliest first on ties.
func (s *SqliteStore) Top(limit int) ([]Score, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}

	scores := []Score{}
	err := s.DB.Select(&scores, `
	  SELECT id, game_id, team, points, placed, rounds, outcome, finished_at
	  FROM scores
	  ORDER BY points DESC, finished_at ASC
	  LIMIT ?`,
		limit)
	if err != nil {
		return nil, err
	}

	return scores, nil
}

func (s *SqliteStore) Close() error {
	return s.DB.Close()
}
