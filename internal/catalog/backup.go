package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"mycinema/internal/services"
)

const backupVersion = 1

// Backup is the JSON export of the whole catalog.
type Backup struct {
	Version    int              `json:"version"`
	ExportedAt time.Time        `json:"exported_at"`
	Items      []*Item          `json:"items"`
	Blacklist  []BlacklistEntry `json:"blacklist"`
}

// Export snapshots every item and blacklist entry.
func (s *Store) Export(ctx context.Context) (*Backup, error) {
	items, err := s.Items(ctx, "")
	if err != nil {
		return nil, err
	}
	blacklist, err := s.Blacklist(ctx, "")
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*Item{}
	}
	if blacklist == nil {
		blacklist = []BlacklistEntry{}
	}
	return &Backup{
		Version:    backupVersion,
		ExportedAt: time.Now().UTC(),
		Items:      items,
		Blacklist:  blacklist,
	}, nil
}

// WriteBackup encodes b as indented JSON.
func WriteBackup(w io.Writer, b *Backup) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(b)
}

// ReadBackup decodes a backup and checks its version.
func ReadBackup(r io.Reader) (*Backup, error) {
	var b Backup
	if err := json.NewDecoder(r).Decode(&b); err != nil {
		return nil, services.Wrap(services.ErrValidation, "catalog", "read backup", "decode json", err)
	}
	if b.Version != backupVersion {
		return nil, services.Wrap(services.ErrValidation, "catalog", "read backup", fmt.Sprintf("unsupported backup version %d", b.Version), nil)
	}
	return &b, nil
}

// Import replaces the whole catalog with the backup contents in one
// transaction. Watch history is dropped with the items it referenced.
func (s *Store) Import(ctx context.Context, b *Backup) error {
	if b == nil {
		return services.Wrap(services.ErrValidation, "catalog", "import", "backup is empty", nil)
	}
	for _, item := range b.Items {
		if item == nil || item.Title == "" {
			return services.Wrap(services.ErrValidation, "catalog", "import", "item without title", nil)
		}
		if item.Kind != KindMovie && item.Kind != KindShow {
			return services.Wrap(services.ErrValidation, "catalog", "import", fmt.Sprintf("item %q has kind %q", item.Title, item.Kind), nil)
		}
	}
	ctx = ensureContext(ctx)
	now := time.Now().UTC()
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, table := range []string{"watch_history", "links", "episodes", "seasons", "items", "blacklist"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		for _, item := range b.Items {
			if err := insertItem(ctx, tx, item, now); err != nil {
				return err
			}
		}
		for _, entry := range b.Blacklist {
			if err := insertBlacklist(ctx, tx, entry, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return storeErr("import", err)
	}
	return nil
}
