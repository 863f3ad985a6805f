package util

import (
	"io"
	"os"
	"path/filepath"
)

// BackupFile copies the file at path to path + ".bak",
// replacing any previous backup, and returns the backup path.
func BackupFile(path string) (string, error) {
	bak := path + ".bak"
	fin, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer fin.Close()

	tmp, err := os.CreateTemp(filepath.Dir(path), ".backup-*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, fin); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	return bak, os.Rename(tmp.Name(), bak)
}
