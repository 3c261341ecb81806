package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/ttglive/ttg-backend/internal/apperror"
	"github.com/ttglive/ttg-backend/internal/entity"
	"github.com/ttglive/ttg-backend/internal/pkg"
	"github.com/ttglive/ttg-backend/internal/repository"
)

const (
	minNicknameLen = 2
	maxNicknameLen = 24

	tokenTTL = 24 * time.Hour

	// guest records expire so abandoned nicknames don't pile up
	guestTTL = 48 * time.Hour
)

// AuthService resolves a queue-join request into a durable identity: either
// a registered account behind a bearer token, or a freshly minted guest.
type AuthService interface {
	Authenticate(ctx context.Context, token string) (*entity.Player, error)
	RegisterGuest(ctx context.Context, nickname string) (*entity.Player, string, error)
	GenerateToken(playerID string) (string, error)
}

type authService struct {
	secretKey    string
	guestBalance int
	accounts     repository.AccountRepository
}

func NewAuthService(secretKey string, guestBalance int, accounts repository.AccountRepository) AuthService {
	return &authService{
		secretKey:    secretKey,
		guestBalance: guestBalance,
		accounts:     accounts,
	}
}

// Authenticate validates a bearer token and returns the identity's current
// snapshot from the record store.
func (that *authService) Authenticate(ctx context.Context, token string) (*entity.Player, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("%w: unexpected signing method %v", apperror.ErrInvalidToken, t.Header["alg"])
		}
		return []byte(that.secretKey), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperror.ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, apperror.ErrInvalidToken
	}

	playerID, _ := claims["sub"].(string)
	if playerID == "" {
		return nil, fmt.Errorf("%w: missing subject", apperror.ErrInvalidToken)
	}

	player, err := that.accounts.GetProfile(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load account for token: %w", err)
	}

	return player, nil
}

// RegisterGuest mints an ephemeral guest identity seeded with the starting
// balance, and a token so the guest can reconnect to a running match.
func (that *authService) RegisterGuest(ctx context.Context, nickname string) (*entity.Player, string, error) {
	nickname = strings.TrimSpace(nickname)
	if len(nickname) < minNicknameLen || len(nickname) > maxNicknameLen {
		return nil, "", apperror.ErrBadNickname
	}

	player := &entity.Player{
		ID:     "guest:" + pkg.GenerateNewSessionID(),
		Name:   nickname,
		Points: that.guestBalance,
		Guest:  true,
	}

	if err := that.accounts.SaveProfile(ctx, player, guestTTL); err != nil {
		return nil, "", fmt.Errorf("failed to save guest profile: %w", err)
	}

	if err := that.accounts.SetBalance(ctx, player.ID, that.guestBalance, guestTTL); err != nil {
		return nil, "", fmt.Errorf("failed to seed guest balance: %w", err)
	}

	token, err := that.GenerateToken(player.ID)
	if err != nil {
		return nil, "", err
	}

	return player, token, nil
}

func (that *authService) GenerateToken(playerID string) (string, error) {
	claims := jwt.MapClaims{
		"sub": playerID,
		"exp": time.Now().Add(tokenTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString([]byte(that.secretKey))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}
