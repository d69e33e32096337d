package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"loanScope/internal/model"
)

// DirSink writes each event to its own JSON file inside a directory.
type DirSink struct {
	dir string
}

func NewDirSink(dir string) *DirSink {
	return &DirSink{dir: dir}
}

func (s *DirSink) Name() string { return "files" }

// FileName returns the deterministic file name for an event. The same
// identity always maps to the same name.
func FileName(ev model.Event) string {
	return fmt.Sprintf("%s_%d_%s_%d.json", sanitize(ev.Name), ev.BlockNumber, strings.ToLower(ev.TxHash), ev.LogIndex)
}

// Persist writes the event to a temp file and renames it into place, so a
// reader never observes a partially written record.
func (s *DirSink) Persist(ctx context.Context, ev model.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	data, err := json.MarshalIndent(ev, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	path := filepath.Join(s.dir, FileName(ev))
	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write event: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename event file: %w", err)
	}
	return nil
}

func sanitize(name string) string {
	if name == "" {
		return model.UnknownEventName
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, name)
}
