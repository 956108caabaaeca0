package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	. "github.com/roelfdiedericks/parrot/internal/logging"
)

// DefaultBackupCount is how many previous versions of a data file are kept.
const DefaultBackupCount = 5

// AtomicWrite replaces path with data. The bytes go to a temp file in the
// same directory, are synced, then renamed over the target, so readers
// see either the old or the new content.
func AtomicWrite(path string, data []byte, perm os.FileMode) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".parrot-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err := tmp.Chmod(perm); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", filepath.Base(path), err)
	}
	return nil
}

// BackupAndWriteJSON writes v as indented JSON to path. The current file,
// if any, becomes path.bak and older copies shift to path.bak.1 and up,
// keeping at most keep versions.
func BackupAndWriteJSON(path string, v any, keep int) error {
	if keep <= 0 {
		keep = DefaultBackupCount
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		RotateBackups(path, keep)
		if err := copyFile(path, path+".bak"); err != nil {
			L_warn("config: backup failed, writing anyway", "path", path, "error", err)
		}
	}

	if err := AtomicWrite(path, data, 0600); err != nil {
		return err
	}
	L_trace("config: saved", "path", path, "bytes", len(data))
	return nil
}

// backupName returns the name of the i-th backup; 0 is path.bak.
func backupName(path string, i int) string {
	if i == 0 {
		return path + ".bak"
	}
	return fmt.Sprintf("%s.bak.%d", path, i)
}

// RotateBackups shifts path.bak.{i} to path.bak.{i+1}, dropping the
// oldest so that keep versions remain once a new .bak is written.
func RotateBackups(path string, keep int) {
	if keep <= 1 {
		return
	}
	for i := keep - 1; i >= 0; i-- {
		src := backupName(path, i)
		if i == keep-1 {
			if err := os.Remove(src); err != nil && !errors.Is(err, fs.ErrNotExist) {
				L_trace("config: failed to drop oldest backup", "path", src, "error", err)
			}
			continue
		}
		dst := backupName(path, i+1)
		if err := os.Rename(src, dst); err != nil && !errors.Is(err, fs.ErrNotExist) {
			L_trace("config: failed to rotate backup", "src", src, "dst", dst, "error", err)
		}
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
