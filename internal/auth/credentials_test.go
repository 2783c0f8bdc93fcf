package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"enclave-chat/internal/mocks"
	"enclave-chat/internal/models"
	"enclave-chat/internal/repositories"
)

func hashOf(t *testing.T, raw string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestVerifySecretSuccess(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	creds := NewCredentials(users, new(mocks.TokenRepositoryMock))

	stored := models.User{ID: "u1", Username: "alice", AccessKeyHash: hashOf(t, "hunter2"), Status: models.StatusActive}
	users.On("GetByUsername", mock.Anything, "alice").Return(stored, nil).Once()

	user, err := creds.VerifySecret(context.Background(), "alice", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	users.AssertExpectations(t)
}

func TestVerifySecretDeniesUniformly(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	creds := NewCredentials(users, new(mocks.TokenRepositoryMock))

	active := models.User{ID: "u1", Username: "alice", AccessKeyHash: hashOf(t, "hunter2"), Status: models.StatusActive}
	disabled := models.User{ID: "u2", Username: "bob", AccessKeyHash: hashOf(t, "hunter2"), Status: "disabled"}

	users.On("GetByUsername", mock.Anything, "ghost").Return(nil, repositories.ErrUserNotFound).Once()
	users.On("GetByUsername", mock.Anything, "alice").Return(active, nil).Once()
	users.On("GetByUsername", mock.Anything, "bob").Return(disabled, nil).Once()

	_, err := creds.VerifySecret(context.Background(), "ghost", "hunter2")
	assert.ErrorIs(t, err, ErrDenied)

	_, err = creds.VerifySecret(context.Background(), "alice", "wrong")
	assert.ErrorIs(t, err, ErrDenied)

	_, err = creds.VerifySecret(context.Background(), "bob", "hunter2")
	assert.ErrorIs(t, err, ErrDenied)

	users.AssertExpectations(t)
}

func TestIssueInviteStoresOnlyHash(t *testing.T) {
	tokens := new(mocks.TokenRepositoryMock)
	creds := NewCredentials(new(mocks.UserRepositoryMock), tokens)

	var storedHash string
	tokens.On("CreateToken", mock.Anything, mock.AnythingOfType("string"), "adm", (*time.Time)(nil)).
		Run(func(args mock.Arguments) { storedHash = args.String(1) }).
		Return(models.SignupToken{ID: "t1", CreatedBy: "adm"}, nil).Once()

	raw, token, err := creds.IssueInvite(context.Background(), "adm", 0)
	require.NoError(t, err)
	assert.Equal(t, "t1", token.ID)
	assert.Len(t, raw, 64)
	assert.NotEqual(t, raw, storedHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(raw)))
	tokens.AssertExpectations(t)
}

func TestIssueInviteWithExpiry(t *testing.T) {
	tokens := new(mocks.TokenRepositoryMock)
	creds := NewCredentials(new(mocks.UserRepositoryMock), tokens)

	tokens.On("CreateToken", mock.Anything, mock.AnythingOfType("string"), "adm", mock.MatchedBy(func(at *time.Time) bool {
		if at == nil {
			return false
		}
		deadline := time.Now().Add(48 * time.Hour)
		return at.After(deadline.Add(-time.Minute)) && at.Before(deadline.Add(time.Minute))
	})).Return(models.SignupToken{ID: "t1"}, nil).Once()

	_, _, err := creds.IssueInvite(context.Background(), "adm", 48)
	require.NoError(t, err)
	tokens.AssertExpectations(t)
}

func TestRedeemInviteMatchesUnconsumed(t *testing.T) {
	tokens := new(mocks.TokenRepositoryMock)
	creds := NewCredentials(new(mocks.UserRepositoryMock), tokens)

	past := time.Now().Add(-time.Hour)
	candidates := []models.SignupToken{
		{ID: "expired", TokenHash: hashOf(t, "raw-token"), ExpiresAt: &past},
		{ID: "other", TokenHash: hashOf(t, "something-else")},
		{ID: "match", TokenHash: hashOf(t, "raw-token")},
	}
	tokens.On("ListUnconsumed", mock.Anything).Return(candidates, nil).Once()

	token, err := creds.RedeemInvite(context.Background(), "raw-token")
	require.NoError(t, err)
	assert.Equal(t, "match", token.ID)
	tokens.AssertExpectations(t)
}

func TestRedeemInviteUnknown(t *testing.T) {
	tokens := new(mocks.TokenRepositoryMock)
	creds := NewCredentials(new(mocks.UserRepositoryMock), tokens)

	tokens.On("ListUnconsumed", mock.Anything).Return([]models.SignupToken{
		{ID: "other", TokenHash: hashOf(t, "something-else")},
	}, nil).Once()

	_, err := creds.RedeemInvite(context.Background(), "raw-token")
	assert.ErrorIs(t, err, ErrInvalidInvite)
	tokens.AssertExpectations(t)
}

func TestSignupConsumesToken(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	tokens := new(mocks.TokenRepositoryMock)
	creds := NewCredentials(users, tokens)

	tokens.On("ListUnconsumed", mock.Anything).Return([]models.SignupToken{
		{ID: "t1", TokenHash: hashOf(t, "raw-token")},
	}, nil).Once()
	users.On("CreateUser", mock.Anything, "alice", mock.AnythingOfType("string"), models.RoleUser).
		Return(models.User{ID: "u1", Username: "alice", Role: models.RoleUser}, nil).Once()
	newID := "u1"
	tokens.On("ConsumeToken", mock.Anything, "t1", &newID).Return(nil).Once()

	user, err := creds.Signup(context.Background(), "raw-token", "alice", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	users.AssertExpectations(t)
	tokens.AssertExpectations(t)
}

func TestSignupLosesConsumeRace(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	tokens := new(mocks.TokenRepositoryMock)
	creds := NewCredentials(users, tokens)

	tokens.On("ListUnconsumed", mock.Anything).Return([]models.SignupToken{
		{ID: "t1", TokenHash: hashOf(t, "raw-token")},
	}, nil).Once()
	users.On("CreateUser", mock.Anything, "alice", mock.AnythingOfType("string"), models.RoleUser).
		Return(models.User{ID: "u1"}, nil).Once()
	newID := "u1"
	tokens.On("ConsumeToken", mock.Anything, "t1", &newID).Return(repositories.ErrTokenConsumed).Once()
	users.On("DeleteUser", mock.Anything, "u1").Return(nil).Once()

	_, err := creds.Signup(context.Background(), "raw-token", "alice", "hunter2")
	assert.ErrorIs(t, err, ErrInvalidInvite)
	users.AssertExpectations(t)
	tokens.AssertExpectations(t)
}

func TestRevokeInviteConsumesWithoutConsumer(t *testing.T) {
	tokens := new(mocks.TokenRepositoryMock)
	creds := NewCredentials(new(mocks.UserRepositoryMock), tokens)

	tokens.On("ConsumeToken", mock.Anything, "t1", (*string)(nil)).Return(nil).Once()

	require.NoError(t, creds.RevokeInvite(context.Background(), "t1"))
	tokens.AssertExpectations(t)
}
