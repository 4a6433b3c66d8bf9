package credentials

import (
	"encoding/json"
	"errors"
	"os"
	"sync"

	"cardgame/go-client/internal/rpckit"
	"cardgame/go-client/internal/securestore"
	"cardgame/go-client/pkg/models"
)

const filePurpose = "cardgame/session"

// FileStore persists the Session as one JSON object, so both keys are always
// written and removed together.
type FileStore struct {
	mu     sync.Mutex
	path   string
	secret string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func NewEncryptedFileStore(path, passphrase string) *FileStore {
	return &FileStore{path: path, secret: passphrase}
}

func (s *FileStore) Get() (models.Session, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	values, err := s.loadLocked()
	if err != nil {
		return models.Session{}, false, err
	}
	session, ok := fromKeys(values)
	return session, ok, nil
}

func (s *FileStore) Set(session models.Session) error {
	if err := validateForSet(session); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := json.Marshal(map[string]string{
		KeyAccountName:   session.AccountName,
		KeyAccountSecret: session.Secret,
	})
	if err != nil {
		return rpckit.Store(err)
	}
	if err := securestore.WriteFile(s.path, s.secret, filePurpose, data); err != nil {
		return rpckit.Store(err)
	}
	return nil
}

func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := securestore.RemoveFile(s.path); err != nil {
		return rpckit.Store(err)
	}
	return nil
}

func (s *FileStore) loadLocked() (map[string]string, error) {
	values := make(map[string]string)
	data, err := securestore.ReadFile(s.path, s.secret, filePurpose)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return values, nil
		}
		return nil, rpckit.Store(err)
	}
	if len(data) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, rpckit.Store(err)
	}
	return values, nil
}
