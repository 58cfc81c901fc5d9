package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/juanlo017/cerves-app/internal/model"
	"github.com/juanlo017/cerves-app/internal/store"
	"golang.org/x/crypto/bcrypt"
)

const (
	minSecretLength = 16
	maxSecretLength = 72
	maxNameLength   = 40
)

var (
	ErrInvalidCredentials = errors.New("invalid device credentials")
	ErrWeakSecret         = errors.New("device secret must be between 16 and 72 characters")
	ErrDeviceRegistered   = errors.New("device already onboarded")
	ErrInvalidName        = errors.New("display name must be between 1 and 40 characters")
)

// PlayerStorage is the player persistence the device authenticator needs.
type PlayerStorage interface {
	GetByUserID(userID string) (*model.Player, error)
	SecretHash(userID string) (string, error)
	Create(userID, displayName, avatarKey, secretHash string) (*model.Player, error)
	SetSecretHash(id, hash string) error
}

// DeviceAuthenticator binds an installation (device id plus a secret the
// device generated) to a player.
type DeviceAuthenticator struct {
	players PlayerStorage
	cost    int
}

func NewDeviceAuthenticator(players PlayerStorage) *DeviceAuthenticator {
	return &DeviceAuthenticator{players: players, cost: bcrypt.DefaultCost}
}

// SetCost overrides the bcrypt cost.
func (a *DeviceAuthenticator) SetCost(cost int) {
	a.cost = cost
}

func validateSecret(secret string) error {
	if len(secret) < minSecretLength || len(secret) > maxSecretLength {
		return ErrWeakSecret
	}
	return nil
}

// SignIn returns the player onboarded on this device, or nil when the device
// has not completed onboarding yet. Hashes made with a lower cost than the
// current one are replaced.
func (a *DeviceAuthenticator) SignIn(deviceID, secret string) (*model.Player, error) {
	if deviceID == "" {
		return nil, ErrInvalidCredentials
	}
	hash, err := a.players.SecretHash(deviceID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)); err != nil {
		return nil, ErrInvalidCredentials
	}
	p, err := a.players.GetByUserID(deviceID)
	if err != nil || p == nil {
		return p, err
	}

	if cost, err := bcrypt.Cost([]byte(hash)); err == nil && cost < a.cost {
		rehashed, err := bcrypt.GenerateFromPassword([]byte(secret), a.cost)
		if err != nil {
			return nil, fmt.Errorf("rehash device secret: %w", err)
		}
		if err := a.players.SetSecretHash(p.ID, string(rehashed)); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Onboard creates the player for a device that has none yet.
func (a *DeviceAuthenticator) Onboard(deviceID, secret, displayName, avatarKey string) (*model.Player, error) {
	if deviceID == "" {
		return nil, ErrInvalidCredentials
	}
	if err := validateSecret(secret); err != nil {
		return nil, err
	}
	if !ValidName(displayName) {
		return nil, ErrInvalidName
	}
	displayName = strings.TrimSpace(displayName)

	existing, err := a.players.GetByUserID(deviceID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrDeviceRegistered
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), a.cost)
	if err != nil {
		return nil, fmt.Errorf("hash device secret: %w", err)
	}
	p, err := a.players.Create(deviceID, displayName, avatarKey, string(hash))
	if errors.Is(err, store.ErrDuplicate) {
		return nil, ErrDeviceRegistered
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ValidName reports whether a display name is acceptable.
func ValidName(name string) bool {
	name = strings.TrimSpace(name)
	return name != "" && len([]rune(name)) <= maxNameLength
}
