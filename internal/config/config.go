// Package config loads and validates the server's JSON configuration file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Permission is the access level granted to a configured user.
type Permission string

const (
	PermissionRead  Permission = "Read"
	PermissionWrite Permission = "Write"
	PermissionAll   Permission = "All"
)

// CanRead reports whether the permission allows RETR.
func (p Permission) CanRead() bool {
	return p == PermissionRead || p == PermissionAll
}

// CanWrite reports whether the permission allows STOR.
func (p Permission) CanWrite() bool {
	return p == PermissionWrite || p == PermissionAll
}

func (p Permission) valid() bool {
	switch p {
	case PermissionRead, PermissionWrite, PermissionAll:
		return true
	default:
		return false
	}
}

// User is one entry of the configured user table. Passwords are compared
// as plaintext; this server has no virtual-user plug-in system.
type User struct {
	Name        string     `json:"name"`
	Password    string     `json:"password"`
	Permissions Permission `json:"permissions"`
}

// Config is the immutable, validated configuration shared read-only by
// every session.
type Config struct {
	Address string `json:"address"`
	Root    string `json:"root"`
	Users   []User `json:"users"`

	byName map[string]User
}

// Load reads and validates the JSON configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %q: %w", path, err)
	}

	var c Config
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing config %q: %w", path, err)
	}

	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("invalid config %q: %w", path, err)
	}

	c.index()
	return &c, nil
}

func (c *Config) validate() error {
	if c.Address == "" {
		return fmt.Errorf("address is required")
	}
	if c.Root == "" {
		return fmt.Errorf("root is required")
	}
	if len(c.Users) == 0 {
		return fmt.Errorf("at least one user is required")
	}
	seen := make(map[string]struct{}, len(c.Users))
	for i, u := range c.Users {
		if u.Name == "" {
			return fmt.Errorf("users[%d]: name is required", i)
		}
		if u.Password == "" {
			return fmt.Errorf("users[%d]: password is required", i)
		}
		if !u.Permissions.valid() {
			return fmt.Errorf("users[%d]: permissions %q must be one of Read, Write, All", i, u.Permissions)
		}
		if _, dup := seen[u.Name]; dup {
			return fmt.Errorf("users[%d]: duplicate username %q", i, u.Name)
		}
		seen[u.Name] = struct{}{}
	}
	return nil
}

func (c *Config) index() {
	c.byName = make(map[string]User, len(c.Users))
	for _, u := range c.Users {
		c.byName[u.Name] = u
	}
}

// Lookup returns the user with the given name, if configured.
func (c *Config) Lookup(name string) (User, bool) {
	u, ok := c.byName[name]
	return u, ok
}

// Authenticate checks a username/password pair against the user table.
func (c *Config) Authenticate(name, password string) (User, bool) {
	u, ok := c.byName[name]
	if !ok || u.Password != password {
		return User{}, false
	}
	return u, true
}
