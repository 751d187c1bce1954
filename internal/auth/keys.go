package auth

import (
	"bufio"
	"bytes"
	"errors"
	"os"
	"strings"
	"sync"
	"syscall"
	"time"

	"golang.org/x/crypto/ssh"

	"pkt.systems/pslog"
)

// KeyStore holds the keys from an OpenSSH authorized_keys file and reloads
// them when the file changes on disk.
type KeyStore struct {
	path      string
	mu        sync.RWMutex
	keys      []ssh.PublicKey
	fileState fileState
	log       pslog.Logger
}

// NewKeyStore loads the authorized_keys file at path.
func NewKeyStore(path string, logger pslog.Logger) (*KeyStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("authorized keys path is required")
	}
	if logger != nil {
		logger = logger.With("authorized_keys", path)
	}
	store := &KeyStore{path: path, log: logger}
	if err := store.loadFromDisk(); err != nil {
		return nil, err
	}
	return store, nil
}

// Has reports whether key is listed in the file.
func (s *KeyStore) Has(key ssh.PublicKey) (bool, error) {
	if key == nil {
		return false, nil
	}
	if err := s.refreshIfNeeded(); err != nil {
		return false, err
	}
	want := key.Marshal()
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, candidate := range s.keys {
		if bytes.Equal(candidate.Marshal(), want) {
			return true, nil
		}
	}
	return false, nil
}

// Len returns the number of loaded keys.
func (s *KeyStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys)
}

type fileState struct {
	modTime time.Time
	size    int64
	inode   uint64
	dev     uint64
}

func fileStateFromInfo(info os.FileInfo) fileState {
	state := fileState{
		modTime: info.ModTime(),
		size:    info.Size(),
	}
	if stat, ok := info.Sys().(*syscall.Stat_t); ok {
		state.inode = stat.Ino
		state.dev = uint64(stat.Dev)
	}
	return state
}

func (s fileState) equal(other fileState) bool {
	return s.size == other.size &&
		s.modTime.Equal(other.modTime) &&
		s.inode == other.inode &&
		s.dev == other.dev
}

func (s *KeyStore) refreshIfNeeded() error {
	info, err := os.Stat(s.path)
	if err != nil {
		if s.log != nil {
			s.log.Warn("auth keys stat failed", "err", err)
		}
		return err
	}
	latest := fileStateFromInfo(info)
	s.mu.RLock()
	current := s.fileState
	s.mu.RUnlock()
	if current.equal(latest) {
		return nil
	}
	return s.loadFromDisk()
}

func (s *KeyStore) loadFromDisk() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if s.log != nil {
			s.log.Warn("auth keys load failed", "err", err)
		}
		return err
	}
	info, err := os.Stat(s.path)
	if err != nil {
		return err
	}
	keys, skipped := ParseAuthorizedKeys(data)
	s.mu.Lock()
	s.keys = keys
	s.fileState = fileStateFromInfo(info)
	s.mu.Unlock()
	if s.log != nil {
		s.log.Debug("auth keys load ok", "keys", len(keys), "skipped", skipped)
	}
	return nil
}

// ParseAuthorizedKeys parses authorized_keys content. Blank lines and
// comments are ignored; unparsable lines are counted in skipped.
func ParseAuthorizedKeys(data []byte) (keys []ssh.PublicKey, skipped int) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 16*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, _, _, _, err := ssh.ParseAuthorizedKey([]byte(line))
		if err != nil {
			skipped++
			continue
		}
		keys = append(keys, key)
	}
	return keys, skipped
}
