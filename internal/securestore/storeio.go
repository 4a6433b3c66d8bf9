package securestore

import (
	"errors"
	"os"
	"path/filepath"
)

// ReadFile returns the plaintext content at path. Unencrypted files are
// returned as-is when passphrase is empty; a sealed file always needs it.
func ReadFile(path, passphrase, purpose string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if passphrase == "" {
		if IsSealed(raw) {
			return nil, ErrAuthFailed
		}
		return raw, nil
	}
	return Open(passphrase, purpose, raw)
}

// WriteFile seals data when passphrase is set and replaces path via a
// temp file and rename, so readers never see a half-written state.
func WriteFile(path, passphrase, purpose string, data []byte) error {
	if passphrase != "" {
		sealed, err := Seal(passphrase, purpose, data)
		if err != nil {
			return err
		}
		data = sealed
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}

// RemoveFile deletes path; a missing file is not an error.
func RemoveFile(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
