package repository

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mr1hm/go-weather-alerts/internal/models"
	_ "modernc.org/sqlite"
)

type SQLiteDB struct {
	db *sql.DB
}

func NewSQLiteDB(path string) (*SQLiteDB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("error creating data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	// A single connection keeps :memory: databases coherent and writes serial.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error while pinging database: %w", err)
	}

	s := &SQLiteDB{
		db: db,
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error while migrating to database: %w", err)
	}

	return s, nil
}

func (s *SQLiteDB) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS seen_alerts (
			position INTEGER PRIMARY KEY,
			id TEXT NOT NULL UNIQUE
		);

		CREATE TABLE IF NOT EXISTS destinations (
			tenant_id TEXT PRIMARY KEY,
			channel_id INTEGER
		);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteDB) LoadSeen(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM seen_alerts ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("error querying seen alerts: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("error scanning seen alert: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLiteDB) SaveSeen(ctx context.Context, ids []string) error {
	return s.replace(ctx, "seen_alerts", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO seen_alerts (position, id) VALUES (?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for i, id := range ids {
			if _, err := stmt.ExecContext(ctx, i, id); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQLiteDB) LoadDestinations(ctx context.Context) (map[string]models.Destination, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT tenant_id, channel_id FROM destinations`)
	if err != nil {
		return nil, fmt.Errorf("error querying destinations: %w", err)
	}
	defer rows.Close()

	out := make(map[string]models.Destination)
	for rows.Next() {
		var (
			tenant  string
			channel sql.NullInt64
		)
		if err := rows.Scan(&tenant, &channel); err != nil {
			return nil, fmt.Errorf("error scanning destination: %w", err)
		}
		out[tenant] = models.Destination{TenantID: tenant, ChannelID: channel.Int64}
	}
	return out, rows.Err()
}

func (s *SQLiteDB) SaveDestinations(ctx context.Context, dests map[string]models.Destination) error {
	return s.replace(ctx, "destinations", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO destinations (tenant_id, channel_id) VALUES (?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for tenant, d := range dests {
			if _, err := stmt.ExecContext(ctx, tenant, d.ChannelID); err != nil {
				return err
			}
		}
		return nil
	})
}

// replace swaps the contents of table inside one transaction.
func (s *SQLiteDB) replace(ctx context.Context, table string, fill func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
		return fmt.Errorf("error clearing %s: %w", table, err)
	}
	if err := fill(tx); err != nil {
		return fmt.Errorf("error writing %s: %w", table, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing %s: %w", table, err)
	}
	return nil
}

func (s *SQLiteDB) Close() error {
	return s.db.Close()
}
