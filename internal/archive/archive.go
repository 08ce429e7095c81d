// Package archive periodically dumps the full purchase store to disk and
// publishes a manifest pointing at the latest dump, so a cold consumer can
// bootstrap from the archive and tail the feed from the recorded offset.
package archive

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"checkoutfeed/internal/purchase"
	"checkoutfeed/internal/store"
)

type Archiver interface {
	WriteArchive(archiveID string, st store.Store) error
}

type FilesystemArchiver struct {
	baseDir string
}

func NewFilesystemArchiver(baseDir string) *FilesystemArchiver {
	return &FilesystemArchiver{baseDir: baseDir}
}

func (f *FilesystemArchiver) WriteArchive(archiveID string, st store.Store) error {
	if err := os.MkdirAll(filepath.Join(f.baseDir, archiveID), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	file := filepath.Join(f.baseDir, archiveID, "purchases.json")
	out, err := os.Create(file)
	if err != nil {
		return fmt.Errorf("create: %w", err)
	}
	defer out.Close()

	dump := make(map[string]purchase.Record)
	if err := st.Range(func(id string, rec purchase.Record) error {
		dump[id] = rec
		return nil
	}); err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(dump); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}
