// Package keyring stores WiFi keys.
// It uses the system keyring when available, falling back to
// encrypted local file storage when not.
package keyring

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/zalando/go-keyring"

	"github.com/yllada/nwam-agent/common"
)

// accountPrefix namespaces WiFi keys within the service.
const accountPrefix = "wlan:"

// Store implements common.CredentialStore.
type Store struct {
	service string

	mu      sync.RWMutex
	local   bool
	file    string
	key     []byte
	entries map[string]string
}

// New returns a store under service. If the system keyring is not usable,
// keys are kept in an encrypted file inside dir.
func New(service, dir string) *Store {
	s := &Store{service: service, file: filepath.Join(dir, common.CredentialsFileName)}

	probe := accountPrefix + "probe"
	if err := keyring.Set(service, probe, "probe"); err != nil {
		common.LogWarn("system keyring unavailable, using %s: %v", s.file, err)
		s.useLocal()
		return s
	}
	_ = keyring.Delete(service, probe)
	return s
}

// NewFile returns a store that only uses the encrypted file at path.
func NewFile(path string) *Store {
	s := &Store{service: common.AppID, file: path}
	s.useLocal()
	return s
}

// Local reports whether the file fallback is in use.
func (s *Store) Local() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.local
}

func (s *Store) useLocal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.local {
		return
	}
	s.local = true
	s.key = machineKey(s.service)
	s.entries = make(map[string]string)
	if !common.FileExists(s.file) {
		return
	}
	if err := s.loadLocked(); err != nil {
		common.LogWarn("reading %s: %v", s.file, err)
	}
}

// machineKey derives the file encryption key from machine-specific data.
func machineKey(service string) []byte {
	hostname, _ := os.Hostname()
	keyData := fmt.Sprintf("%s-%s-%s-%d", service, hostname, machineID(), os.Getuid())
	hash := sha256.Sum256([]byte(keyData))
	return hash[:]
}

func machineID() string {
	data, err := os.ReadFile("/etc/machine-id")
	if err == nil {
		return strings.TrimSpace(string(data))
	}
	return "default-machine-id"
}

func (s *Store) loadLocked() error {
	data, err := os.ReadFile(s.file)
	if err != nil {
		return err
	}
	plain, err := decrypt(s.key, data)
	if err != nil {
		return err
	}
	return json.Unmarshal(plain, &s.entries)
}

func (s *Store) saveLocked() error {
	data, err := json.Marshal(s.entries)
	if err != nil {
		return err
	}
	sealed, err := encrypt(s.key, data)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.file), 0700); err != nil {
		return err
	}
	return os.WriteFile(s.file, sealed, 0600)
}

func encrypt(key, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	ciphertext := gcm.Seal(nonce, nonce, plaintext, nil)
	return []byte(base64.StdEncoding.EncodeToString(ciphertext)), nil
}

func decrypt(key, data []byte) ([]byte, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(string(data))
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce, ciphertext := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	return gcm.Open(nil, nonce, ciphertext, nil)
}

// Store saves the key for essid.
func (s *Store) Store(essid, key string) error {
	if essid == "" {
		return fmt.Errorf("%w: empty ESSID", common.ErrCredentialStorage)
	}
	if key == "" {
		return fmt.Errorf("%w: empty key", common.ErrCredentialStorage)
	}

	if !s.Local() {
		err := keyring.Set(s.service, accountPrefix+essid, key)
		if err == nil {
			return nil
		}
		common.LogWarn("system keyring refused key for %q, falling back to file: %v", essid, err)
		s.useLocal()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[essid] = key
	if err := s.saveLocked(); err != nil {
		return fmt.Errorf("%w: %v", common.ErrCredentialStorage, err)
	}
	return nil
}

// Get returns the key for essid, or common.ErrCredentialsNotFound.
func (s *Store) Get(essid string) (string, error) {
	if essid == "" {
		return "", common.ErrCredentialsNotFound
	}

	if !s.Local() {
		key, err := keyring.Get(s.service, accountPrefix+essid)
		if err == nil {
			return key, nil
		}
		if !errors.Is(err, keyring.ErrNotFound) {
			common.LogDebug("keyring lookup for %q: %v", essid, err)
		}
		return "", common.ErrCredentialsNotFound
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	key, ok := s.entries[essid]
	if !ok {
		return "", common.ErrCredentialsNotFound
	}
	return key, nil
}

// Delete forgets the key for essid. Deleting an unknown key is not an
// error.
func (s *Store) Delete(essid string) error {
	if essid == "" {
		return nil
	}

	if !s.Local() {
		err := keyring.Delete(s.service, accountPrefix+essid)
		if err != nil && !errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("%w: %v", common.ErrCredentialStorage, err)
		}
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[essid]; !ok {
		return nil
	}
	delete(s.entries, essid)
	if err := s.saveLocked(); err != nil {
		return fmt.Errorf("%w: %v", common.ErrCredentialStorage, err)
	}
	return nil
}

// Exists reports whether a key is stored for essid.
func (s *Store) Exists(essid string) bool {
	_, err := s.Get(essid)
	return err == nil
}
