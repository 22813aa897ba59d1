package credstore

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"classdrop/internal/auth"
	"classdrop/internal/models"
)

// Store is the read-only credential lookup consulted by the authenticator.
type Store interface {
	Lookup(username string) (models.User, bool)
	Users() []models.User
}

// Static holds an in-memory roster keyed by normalized username.
type Static struct {
	byName map[string]models.User
	order  []string
}

// NewStatic builds a Static store from a user list. Usernames are normalized
// and must be unique; roles must be valid.
func NewStatic(users []models.User) (*Static, error) {
	s := &Static{byName: make(map[string]models.User, len(users))}
	for _, user := range users {
		username, err := auth.NormalizeUsername(user.Username)
		if err != nil {
			return nil, fmt.Errorf("user %q: %w", user.Username, err)
		}
		if _, ok := s.byName[username]; ok {
			return nil, fmt.Errorf("duplicate username %q", username)
		}
		if !models.IsValidRole(user.Role) {
			return nil, fmt.Errorf("user %q: invalid role %q", username, user.Role)
		}
		user.Username = username
		s.byName[username] = user
		s.order = append(s.order, username)
	}
	return s, nil
}

// Lookup returns the user for a normalized username.
func (s *Static) Lookup(username string) (models.User, bool) {
	if s == nil {
		return models.User{}, false
	}
	normalized, err := auth.NormalizeUsername(username)
	if err != nil {
		return models.User{}, false
	}
	user, ok := s.byName[normalized]
	return user, ok
}

// Users returns all users in roster order.
func (s *Static) Users() []models.User {
	if s == nil {
		return nil
	}
	out := make([]models.User, 0, len(s.order))
	for _, username := range s.order {
		out = append(out, s.byName[username])
	}
	return out
}

type rosterFile struct {
	Users []models.User `yaml:"users"`
}

// LoadFile reads a YAML roster from disk. The roster is loaded once at
// startup; rotating credentials means editing the file and restarting.
func LoadFile(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read credential roster: %w", err)
	}
	var roster rosterFile
	if err := yaml.Unmarshal(data, &roster); err != nil {
		return nil, fmt.Errorf("parse credential roster %s: %w", path, err)
	}
	if len(roster.Users) == 0 {
		return nil, fmt.Errorf("credential roster %s has no users", path)
	}
	store, err := NewStatic(roster.Users)
	if err != nil {
		return nil, fmt.Errorf("credential roster %s: %w", path, err)
	}
	return store, nil
}

var _ Store = (*Static)(nil)
