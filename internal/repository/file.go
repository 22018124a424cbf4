package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/mr1hm/go-weather-alerts/internal/models"
)

// FileBackend keeps each store in its own JSON file:
//   - seen: ["id1", "id2", ...] in delivery order
//   - destinations: {"<tenant>": {"channel_id": 123}}
type FileBackend struct {
	seenPath         string
	destinationsPath string
}

type destinationRecord struct {
	ChannelID *int64 `json:"channel_id,omitempty"`
	// Older server_config.json files used this key.
	LegacyChannelID *int64 `json:"alert_channel_id,omitempty"`
}

func NewFileBackend(seenPath, destinationsPath string) (*FileBackend, error) {
	if seenPath == "" || destinationsPath == "" {
		return nil, errors.New("file backend requires both store paths")
	}
	for _, p := range []string{seenPath, destinationsPath} {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return nil, fmt.Errorf("error creating data directory: %w", err)
		}
	}
	return &FileBackend{
		seenPath:         seenPath,
		destinationsPath: destinationsPath,
	}, nil
}

func (f *FileBackend) LoadSeen(ctx context.Context) ([]string, error) {
	var ids []string
	found, err := readJSON(f.seenPath, &ids)
	if err != nil || !found {
		return nil, err
	}
	return ids, nil
}

func (f *FileBackend) SaveSeen(ctx context.Context, ids []string) error {
	if ids == nil {
		ids = []string{}
	}
	return writeJSON(f.seenPath, ids)
}

func (f *FileBackend) LoadDestinations(ctx context.Context) (map[string]models.Destination, error) {
	var raw map[string]destinationRecord
	found, err := readJSON(f.destinationsPath, &raw)
	if err != nil || !found {
		return nil, err
	}

	out := make(map[string]models.Destination, len(raw))
	for tenant, rec := range raw {
		d := models.Destination{TenantID: tenant}
		switch {
		case rec.ChannelID != nil:
			d.ChannelID = *rec.ChannelID
		case rec.LegacyChannelID != nil:
			d.ChannelID = *rec.LegacyChannelID
		}
		out[tenant] = d
	}
	return out, nil
}

func (f *FileBackend) SaveDestinations(ctx context.Context, dests map[string]models.Destination) error {
	raw := make(map[string]destinationRecord, len(dests))
	for tenant, d := range dests {
		id := d.ChannelID
		raw[tenant] = destinationRecord{ChannelID: &id}
	}
	return writeJSON(f.destinationsPath, raw)
}

func (f *FileBackend) Close() error {
	return nil
}

// readJSON reports found=false without error when the file does not exist.
func readJSON(path string, v any) (bool, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("error reading %s: %w", path, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return false, fmt.Errorf("error decoding %s: %w", path, err)
	}
	return true, nil
}

func writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("error encoding %s: %w", path, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("error writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("error replacing %s: %w", path, err)
	}
	return nil
}
