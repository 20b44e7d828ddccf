package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"arcade/internal/models"
	"arcade/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newAuthService(repo *userRepoStub) (*AuthService, *tokenIssuerStub) {
	tokens := &tokenIssuerStub{}
	return NewAuthService(repo, tokens, bcrypt.MinCost), tokens
}

func TestAuthService_Register(t *testing.T) {
	t.Parallel()
	repo := newUserRepoStub()
	svc, tokens := newAuthService(repo)
	ctx := context.Background()

	token, err := svc.Register(ctx, RegisterInput{Username: " alice ", Email: "Alice@Example.com", Password: "secret1"})
	require.NoError(t, err)
	require.Len(t, tokens.issued, 1)
	assert.Equal(t, "token-"+tokens.issued[0].String(), token)

	user, err := repo.GetByID(ctx, tokens.issued[0])
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, models.DefaultBio, user.Bio)
	assert.Equal(t, models.DefaultAvatarColor, user.AvatarColor)
	assert.NotEqual(t, "secret1", user.Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("secret1")))
}

func TestAuthService_Register_Validation(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   RegisterInput
		msg  string
	}{
		{"missing username", RegisterInput{Email: "a@example.com", Password: "secret1"}, MsgMissingFields},
		{"missing email", RegisterInput{Username: "a", Password: "secret1"}, MsgMissingFields},
		{"missing password", RegisterInput{Username: "a", Email: "a@example.com"}, MsgMissingFields},
		{"short password", RegisterInput{Username: "a", Email: "a@example.com", Password: "12345"}, "Password must be at least 6 characters"},
		{"bad email", RegisterInput{Username: "a", Email: "nope", Password: "secret1"}, "Please enter a valid email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc, tokens := newAuthService(newUserRepoStub())
			_, err := svc.Register(context.Background(), tt.in)
			require.Error(t, err)
			assertCode(t, err, models.CodeValidation)
			assert.Equal(t, tt.msg, err.Error())
			assert.Empty(t, tokens.issued)
		})
	}
}

func TestAuthService_Register_Duplicates(t *testing.T) {
	t.Parallel()
	repo := newUserRepoStub()
	repo.add(&models.User{Username: "alice", Email: "alice@example.com"})
	svc, _ := newAuthService(repo)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Username: "alice", Email: "ALICE@example.com", Password: "secret1"})
	assertCode(t, err, models.CodeConflict)
	assert.Equal(t, repository.MsgUserExists, err.Error())

	_, err = svc.Register(ctx, RegisterInput{Username: "alice", Email: "fresh@example.com", Password: "secret1"})
	assertCode(t, err, models.CodeConflict)
	assert.Equal(t, repository.MsgUsernameTaken, err.Error())

	assert.Len(t, repo.users, 1)
}

func TestAuthService_Register_InsertRace(t *testing.T) {
	t.Parallel()
	repo := newUserRepoStub()
	repo.createFn = func(_ context.Context, _ *models.User) error {
		return models.NewConflictError(repository.MsgUserExists)
	}
	svc, tokens := newAuthService(repo)

	_, err := svc.Register(context.Background(), RegisterInput{Username: "bob", Email: "bob@example.com", Password: "secret1"})
	assertCode(t, err, models.CodeConflict)
	assert.Empty(t, tokens.issued)
}

func TestAuthService_Login(t *testing.T) {
	t.Parallel()
	repo := newUserRepoStub()
	svc, tokens := newAuthService(repo)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Username: "alice", Email: "alice@example.com", Password: "secret1"})
	require.NoError(t, err)
	registeredID := tokens.issued[0]

	token, err := svc.Login(ctx, LoginInput{Email: " ALICE@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "token-"+registeredID.String(), token)

	_, err = svc.Login(ctx, LoginInput{Email: "alice@example.com", Password: "wrong-password"})
	assertCode(t, err, models.CodeInvalidCredentials)
	assert.Equal(t, MsgInvalidCredentials, err.Error())

	_, unknownErr := svc.Login(ctx, LoginInput{Email: "ghost@example.com", Password: "secret1"})
	assertCode(t, unknownErr, models.CodeInvalidCredentials)
	assert.Equal(t, err.Error(), unknownErr.Error())

	_, err = svc.Login(ctx, LoginInput{Email: "", Password: "secret1"})
	assertCode(t, err, models.CodeValidation)
}

func TestAuthService_StoreErrorsPropagate(t *testing.T) {
	t.Parallel()
	repo := newUserRepoStub()
	var calls atomic.Int32
	repo.getByEmailFn = func(context.Context, string) (*models.User, error) {
		calls.Add(1)
		return nil, models.NewInternalError(errors.New("db down"))
	}
	svc, _ := newAuthService(repo)

	_, err := svc.Login(context.Background(), LoginInput{Email: "a@example.com", Password: "secret1"})
	assertCode(t, err, models.CodeInternal)
	assert.Equal(t, int32(1), calls.Load())
}

func TestAuthService_TokenFailureIsInternal(t *testing.T) {
	t.Parallel()
	repo := newUserRepoStub()
	tokens := &tokenIssuerStub{err: errors.New("signing failed")}
	svc := NewAuthService(repo, tokens, bcrypt.MinCost)

	_, err := svc.Register(context.Background(), RegisterInput{Username: "a", Email: "a@example.com", Password: "secret1"})
	assertCode(t, err, models.CodeInternal)
}
