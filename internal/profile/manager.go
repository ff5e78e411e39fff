// Package profile manages named, persisted browser identities. Each profile
// owns a directory with the browser's user-data dir plus a profile.json
// manifest; crawls bind a browser instance to one profile's storage.
package profile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"

	"github.com/geraldpeng6/crawler-for-attack/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	// ErrDuplicateProfile is returned by Create when the name already exists.
	ErrDuplicateProfile = errors.New("profile already exists")
	// ErrProfileNotFound is returned by Load and Delete for unknown names.
	ErrProfileNotFound = errors.New("profile not found")
)

const (
	manifestName = "profile.json"
	userDataName = "user_data"
	cookiesName  = "cookies.json"
)

// DefaultRoot resolves the default profile storage root under the user's
// home directory.
func DefaultRoot() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".crawler-for-attack", "profiles"), nil
}

// Manager stores profiles as one directory per name under a common root.
// Save assumes a single writer per profile; concurrent mutation of the same
// profile is not supported.
type Manager struct {
	root   string
	logger *zap.Logger
}

// NewManager builds a manager over root, creating it if needed. An empty
// root selects the default location under the user's home directory.
func NewManager(root string, logger *zap.Logger) (*Manager, error) {
	if root == "" {
		var err error
		if root, err = DefaultRoot(); err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(root, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create profile root %s: %w", root, err)
	}
	return &Manager{root: root, logger: logger.Named("profile")}, nil
}

// Create makes a new empty profile. The name must be unused.
func (m *Manager) Create(name string) (*schemas.BrowserProfile, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	dir := filepath.Join(m.root, name)
	if _, err := os.Stat(dir); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateProfile, name)
	}

	p := &schemas.BrowserProfile{
		Name:        name,
		StorageDir:  dir,
		UserDataDir: filepath.Join(dir, userDataName),
		CreatedAt:   time.Now().UTC(),
	}
	if err := os.MkdirAll(p.UserDataDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create profile storage: %w", err)
	}
	if err := m.writeManifest(p); err != nil {
		return nil, err
	}
	m.logger.Info("Profile created", zap.String("name", name), zap.String("dir", dir))
	return p, nil
}

// Load reads an existing profile's manifest.
func (m *Manager) Load(name string) (*schemas.BrowserProfile, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	dir := filepath.Join(m.root, name)
	data, err := os.ReadFile(filepath.Join(dir, manifestName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, name)
		}
		return nil, fmt.Errorf("failed to read profile manifest: %w", err)
	}

	var p schemas.BrowserProfile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("corrupt profile manifest for %s: %w", name, err)
	}
	p.StorageDir = dir
	p.UserDataDir = filepath.Join(dir, userDataName)
	return &p, nil
}

// Save persists exported cookies into the profile and marks it as carrying
// authentication state.
func (m *Manager) Save(p *schemas.BrowserProfile, cookies []schemas.Cookie) error {
	data, err := json.MarshalIndent(cookies, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode cookies: %w", err)
	}
	if err := os.WriteFile(filepath.Join(p.StorageDir, cookiesName), data, 0o600); err != nil {
		return fmt.Errorf("failed to write cookies: %w", err)
	}

	p.CookiesPresent = len(cookies) > 0
	if err := m.writeManifest(p); err != nil {
		return err
	}
	m.logger.Info("Profile state saved",
		zap.String("name", p.Name), zap.Int("cookies", len(cookies)))
	return nil
}

// List returns all stored profiles sorted by name. Directories without a
// readable manifest are skipped.
func (m *Manager) List() ([]*schemas.BrowserProfile, error) {
	entries, err := os.ReadDir(m.root)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile root: %w", err)
	}

	var profiles []*schemas.BrowserProfile
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		p, err := m.Load(e.Name())
		if err != nil {
			m.logger.Warn("Skipping unreadable profile",
				zap.String("name", e.Name()), zap.Error(err))
			continue
		}
		profiles = append(profiles, p)
	}
	sort.Slice(profiles, func(i, j int) bool { return profiles[i].Name < profiles[j].Name })
	return profiles, nil
}

// Delete removes a profile and all of its stored state.
func (m *Manager) Delete(name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	dir := filepath.Join(m.root, name)
	if _, err := os.Stat(filepath.Join(dir, manifestName)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrProfileNotFound, name)
		}
		return err
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to delete profile %s: %w", name, err)
	}
	m.logger.Info("Profile deleted", zap.String("name", name))
	return nil
}

func (m *Manager) writeManifest(p *schemas.BrowserProfile) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode profile manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(p.StorageDir, manifestName), data, 0o600); err != nil {
		return fmt.Errorf("failed to write profile manifest: %w", err)
	}
	return nil
}

// validateName rejects names that would escape the profile root.
func validateName(name string) error {
	if name == "" {
		return errors.New("profile name must not be empty")
	}
	if name != filepath.Base(name) || name == "." || name == ".." {
		return fmt.Errorf("invalid profile name %q", name)
	}
	return nil
}
