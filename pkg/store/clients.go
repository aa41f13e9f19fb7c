package store

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"imgcap/models"
)

var (
	// ErrClientExists is returned when a client name is already registered.
	ErrClientExists = errors.New("client already exists")
	// ErrInvalidCredentials hides whether the name or the secret was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

const minSecretLen = 8

// CreateClient registers an API client with a bcrypt-hashed secret.
func (s *Store) CreateClient(name, secret string) (*models.Client, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("client name required")
	}
	if len(secret) < minSecretLen {
		return nil, fmt.Errorf("secret too short (min %d)", minSecretLen)
	}
	var existing models.Client
	if err := s.db.Where("name = ?", name).First(&existing).Error; err == nil {
		return nil, ErrClientExists
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	c := models.Client{Name: name, HashedSecret: hashed}
	if err := s.db.Create(&c).Error; err != nil {
		if isUniqueConstraintError(err) { // lost a race with a concurrent create
			return nil, ErrClientExists
		}
		return nil, err
	}
	return &c, nil
}

// AuthenticateClient checks name and secret.
func (s *Store) AuthenticateClient(name, secret string) (*models.Client, error) {
	var c models.Client
	if err := s.db.Where("name = ?", strings.TrimSpace(name)).First(&c).Error; err != nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(c.HashedSecret, []byte(secret)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &c, nil
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "duplicate key") || strings.Contains(s, "unique constraint") || strings.Contains(s, "already exists")
}
