package jsonfile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"spines/internal/logging"
	"spines/internal/services"
)

// Result reports how a Load resolved.
type Result struct {
	Missing    bool
	Recovered  bool
	Reset      bool
	BackupPath string
}

// Save marshals v with indentation and replaces path atomically.
func Save(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	data = append(data, '\n')
	return WriteAtomic(path, data)
}

// WriteAtomic writes data to a sibling temp file and renames it over path.
func WriteAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// Load decodes path into v. A missing or empty file leaves v untouched and is
// not an error. Corrupt content is salvaged where possible.
func Load(path string, v any, logger *slog.Logger) (Result, error) {
	logger = logging.NewComponentLogger(logger, "jsonfile")
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Result{Missing: true}, nil
		}
		return Result{}, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return Result{Missing: true}, nil
	}
	if json.Valid(data) {
		if err := json.Unmarshal(data, v); err == nil {
			return Result{}, nil
		}
	}

	backup, err := backupCorrupt(path, data)
	if err != nil {
		return Result{}, err
	}
	if span, ok := salvage(data); ok {
		if err := json.Unmarshal(span, v); err == nil {
			if err := WriteAtomic(path, span); err != nil {
				return Result{}, fmt.Errorf("rewrite recovered %s: %w", filepath.Base(path), err)
			}
			logging.WarnWithContext(logger, "recovered corrupt json file", "json_recovered",
				logging.String("path", path),
				logging.String("backup", backup),
				logging.Int("kept_bytes", len(span)),
				logging.Int("original_bytes", len(data)),
				logging.String(logging.FieldImpact, "trailing or leading garbage was discarded"),
			)
			return Result{Recovered: true, BackupPath: backup}, nil
		}
	}

	err = services.Wrap(services.ErrCorrupt, "load", filepath.Base(path), "no recoverable json", nil)
	// An empty file loads as missing, so readers start clean until the next save.
	if werr := WriteAtomic(path, nil); werr != nil {
		return Result{}, fmt.Errorf("truncate unrecoverable %s: %w", filepath.Base(path), werr)
	}
	logging.WarnWithContext(logger, "reset unrecoverable json file", "json_reset",
		logging.String("path", path),
		logging.String("backup", backup),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "inspect the backup and restore entries by hand"),
		logging.String(logging.FieldImpact, "file was emptied; entries live only in the backup"),
	)
	return Result{Reset: true, BackupPath: backup}, nil
}

// salvage returns the span from the first opening bracket to the last
// matching closing bracket when it is valid JSON.
func salvage(data []byte) ([]byte, bool) {
	start := bytes.IndexAny(data, "[{")
	if start < 0 {
		return nil, false
	}
	closer := byte(']')
	if data[start] == '{' {
		closer = '}'
	}
	end := bytes.LastIndexByte(data, closer)
	if end <= start {
		return nil, false
	}
	span := data[start : end+1]
	if !json.Valid(span) {
		return nil, false
	}
	return span, true
}

func backupCorrupt(path string, data []byte) (string, error) {
	ext := filepath.Ext(path)
	backup := strings.TrimSuffix(path, ext) + ".corrupted.json"
	if err := os.WriteFile(backup, data, 0o644); err != nil {
		return "", fmt.Errorf("backup corrupt %s: %w", filepath.Base(path), err)
	}
	return backup, nil
}
