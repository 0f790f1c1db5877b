// Copyright 2025 The MapOfSecrets Authors
// SPDX-License-Identifier: Apache-2.0

// Package store persists a session's notes and aggregate counts in a local
// DuckDB database so restarts do not start cold.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Femosky/MapOfSecrets/notes"
	"github.com/Femosky/MapOfSecrets/spatial"
)

// NotesStore is a DuckDB-backed local cache of notes and place counts.
type NotesStore struct {
	db *sql.DB
}

// Open connects to the DuckDB database at path (":memory:" or "" for an
// in-memory database) and creates the schema.
func Open(path string) (*NotesStore, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("opening duckdb at %q: %w", path, err)
	}

	s := &NotesStore{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()

		return nil, err
	}

	return s, nil
}

// New wraps an existing connection and creates the schema.
func New(db *sql.DB) (*NotesStore, error) {
	s := &NotesStore{db: db}
	if err := s.createSchema(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *NotesStore) createSchema() error {
	// DuckDB needs to load the spatial extension
	if _, err := s.db.Exec(`INSTALL spatial; LOAD spatial;`); err != nil {
		return err
	}

	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS notes (
			id VARCHAR PRIMARY KEY,
			ts BIGINT NOT NULL,
			text TEXT NOT NULL,
			point POINT_2D NOT NULL,
			location VARCHAR NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS place_counts (
			level VARCHAR NOT NULL,
			latitude DOUBLE NOT NULL,
			longitude DOUBLE NOT NULL,
			count INTEGER NOT NULL,
			refreshed_at TIMESTAMP NOT NULL
		);
	`)

	return err
}

// SaveNote inserts or replaces one note.
func (s *NotesStore) SaveNote(ctx context.Context, n notes.Note) error {
	location, err := json.Marshal(n.Location)
	if err != nil {
		return fmt.Errorf("encoding location of note %s: %w", n.ID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO notes(id, ts, text, point, location)
		VALUES (?, ?, ?, ST_Point(?, ?), ?)
	`,
		n.ID,
		n.Timestamp.UnixMilli(),
		n.Text,
		n.Location.Coordinates.Longitude,
		n.Location.Coordinates.Latitude,
		string(location),
	)

	return err
}

// LoadNotes returns every stored note, oldest first.
func (s *NotesStore) LoadNotes(ctx context.Context) ([]notes.Note, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, ts, text, location
		FROM notes
		ORDER BY ts
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanNotes(rows)
}

// CountNotes returns the number of stored notes.
func (s *NotesStore) CountNotes(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notes`).Scan(&count)

	return count, err
}

// NotesNear returns the stored notes within radius meters of center.
func (s *NotesStore) NotesNear(ctx context.Context, center spatial.Coordinates, radius float64) ([]notes.Note, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, ts, text, location
		FROM notes
		WHERE ST_Distance_Sphere(point, ST_Point(?, ?)) <= ?
		ORDER BY ts
	`, center.Longitude, center.Latitude, radius)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanNotes(rows)
}

func scanNotes(rows *sql.Rows) ([]notes.Note, error) {
	var result []notes.Note

	for rows.Next() {
		var (
			n        notes.Note
			ts       int64
			location string
		)

		if err := rows.Scan(&n.ID, &ts, &n.Text, &location); err != nil {
			return nil, err
		}

		n.Timestamp = time.UnixMilli(ts)

		if err := json.Unmarshal([]byte(location), &n.Location); err != nil {
			return nil, fmt.Errorf("decoding location of note %s: %w", n.ID, err)
		}

		result = append(result, n)
	}

	return result, rows.Err()
}

// ReplaceCounts atomically replaces the stored counts for one place level.
func (s *NotesStore) ReplaceCounts(ctx context.Context, level notes.PlaceLevel, data []notes.PlaceData) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM place_counts WHERE level = ?`, string(level)); err != nil {
		tx.Rollback()

		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO place_counts(level, latitude, longitude, count, refreshed_at)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()

		return err
	}
	defer stmt.Close()

	now := time.Now()

	for _, pd := range data {
		if _, err := stmt.ExecContext(ctx,
			string(level),
			pd.Coordinates.Latitude,
			pd.Coordinates.Longitude,
			pd.Count,
			now,
		); err != nil {
			tx.Rollback()

			return err
		}
	}

	return tx.Commit()
}

// LoadCounts returns the stored counts for one place level, largest first.
func (s *NotesStore) LoadCounts(ctx context.Context, level notes.PlaceLevel) ([]notes.PlaceData, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT latitude, longitude, count
		FROM place_counts
		WHERE level = ?
		ORDER BY count DESC
	`, string(level))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []notes.PlaceData

	for rows.Next() {
		var pd notes.PlaceData
		if err := rows.Scan(&pd.Coordinates.Latitude, &pd.Coordinates.Longitude, &pd.Count); err != nil {
			return nil, err
		}

		result = append(result, pd)
	}

	return result, rows.Err()
}

// DB exposes the underlying connection.
func (s *NotesStore) DB() *sql.DB {
	return s.db
}

// Close closes the database.
func (s *NotesStore) Close() error {
	return s.db.Close()
}
