package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ttglive/ttg-backend/internal/apperror"
	"github.com/ttglive/ttg-backend/internal/repository"
	"github.com/ttglive/ttg-backend/testing/suite"
)

const testSecretKey = "test-secret"

func TestAuthService_RegisterGuest(t *testing.T) {
	t.Run("RegisterGuest_Success", func(t *testing.T) {
		ctx, st := suite.New(t)

		accountRepo := repository.NewAccountRepository(st.Storage)
		authService := NewAuthService(testSecretKey, 500, accountRepo)

		// When: a guest registers with a valid nickname
		player, token, err := authService.RegisterGuest(ctx, "  alice  ")

		// Then: the identity carries the trimmed nickname and seed balance
		require.NoError(t, err)
		require.NotEmpty(t, token)
		assert.Equal(t, "alice", player.Name)
		assert.Equal(t, 500, player.Points)
		assert.True(t, player.Guest)

		// And: the token resolves back to the same identity
		resolved, err := authService.Authenticate(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, player.ID, resolved.ID)
		assert.Equal(t, 500, resolved.Points)
	})

	t.Run("RegisterGuest_BadNickname", func(t *testing.T) {
		ctx, st := suite.New(t)

		accountRepo := repository.NewAccountRepository(st.Storage)
		authService := NewAuthService(testSecretKey, 500, accountRepo)

		for _, nickname := range []string{"", " ", "x", "this-nickname-is-way-too-long-to-accept"} {
			// When: a guest registers with an invalid nickname
			player, token, err := authService.RegisterGuest(ctx, nickname)

			// Then: an ErrBadNickname error should be returned
			require.ErrorIs(t, err, apperror.ErrBadNickname)
			assert.Nil(t, player)
			assert.Empty(t, token)
		}
	})
}

func TestAuthService_Authenticate(t *testing.T) {
	t.Run("Authenticate_InvalidToken", func(t *testing.T) {
		ctx, st := suite.New(t)

		accountRepo := repository.NewAccountRepository(st.Storage)
		authService := NewAuthService(testSecretKey, 500, accountRepo)

		// When: Authenticate is called with garbage
		player, err := authService.Authenticate(ctx, "not-a-token")

		// Then: an ErrInvalidToken error should be returned
		require.ErrorIs(t, err, apperror.ErrInvalidToken)
		assert.Nil(t, player)
	})

	t.Run("Authenticate_WrongKey", func(t *testing.T) {
		ctx, st := suite.New(t)

		accountRepo := repository.NewAccountRepository(st.Storage)
		authService := NewAuthService(testSecretKey, 500, accountRepo)
		otherService := NewAuthService("other-secret", 500, accountRepo)

		_, token, err := otherService.RegisterGuest(ctx, "alice")
		require.NoError(t, err)

		// When: a token signed with another key is presented
		player, err := authService.Authenticate(ctx, token)

		// Then: an ErrInvalidToken error should be returned
		require.ErrorIs(t, err, apperror.ErrInvalidToken)
		assert.Nil(t, player)
	})
}
