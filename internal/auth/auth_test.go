package auth

import (
	"fmt"
	"strings"
	"testing"

	"budget-tracker/internal/models"
	"budget-tracker/internal/storage"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("secret")
	require.NoError(t, err)
	assert.NotEqual(t, []byte("secret"), hash)

	cost, err := bcrypt.Cost(hash)
	require.NoError(t, err)
	assert.Equal(t, DefaultCost, cost)

	assert.True(t, CheckPassword("secret", hash))
	assert.False(t, CheckPassword("Secret", hash))
}

// AuthenticatorTestSuite provides a test suite for registration and login
type AuthenticatorTestSuite struct {
	suite.Suite
	db   *storage.DB
	auth *Authenticator
	hook *test.Hook
}

// SetupTest runs before each test
func (suite *AuthenticatorTestSuite) SetupTest() {
	db, err := storage.Open(":memory:")
	require.NoError(suite.T(), err, "failed to create test database")
	suite.db = db

	logger, hook := test.NewNullLogger()
	suite.hook = hook
	suite.auth = New(db, WithCost(bcrypt.MinCost), WithLogger(logger))
}

// TearDownTest runs after each test
func (suite *AuthenticatorTestSuite) TearDownTest() {
	if suite.db != nil {
		suite.db.Close()
	}
}

func (suite *AuthenticatorTestSuite) TestRegisterThenLogin() {
	account, err := suite.auth.Register("alice", "correct horse")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "alice", account.Username)

	ok, err := suite.auth.Login("alice", "correct horse")
	require.NoError(suite.T(), err)
	assert.True(suite.T(), ok)

	ok, err = suite.auth.Login("alice", "wrong horse")
	require.NoError(suite.T(), err)
	assert.False(suite.T(), ok)
}

func (suite *AuthenticatorTestSuite) TestStoresOnlyHash() {
	_, err := suite.auth.Register("alice", "correct horse")
	require.NoError(suite.T(), err)

	stored, err := suite.db.GetAccountByUsername("alice")
	require.NoError(suite.T(), err)
	assert.NotContains(suite.T(), string(stored.PasswordHash), "correct horse")
	assert.NoError(suite.T(), bcrypt.CompareHashAndPassword(stored.PasswordHash, []byte("correct horse")))

	for _, entry := range suite.hook.AllEntries() {
		assert.NotContains(suite.T(), entry.Message, "correct horse")
		for _, v := range entry.Data {
			assert.NotContains(suite.T(), fmt.Sprint(v), "correct horse")
		}
	}
}

func (suite *AuthenticatorTestSuite) TestRegisterDuplicate() {
	_, err := suite.auth.Register("alice", "first")
	require.NoError(suite.T(), err)
	before, err := suite.db.GetAccountByUsername("alice")
	require.NoError(suite.T(), err)

	_, err = suite.auth.Register("alice", "second")
	assert.ErrorIs(suite.T(), err, models.ErrDuplicateAccount)

	after, err := suite.db.GetAccountByUsername("alice")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), before.PasswordHash, after.PasswordHash)

	ok, err := suite.auth.Login("alice", "first")
	require.NoError(suite.T(), err)
	assert.True(suite.T(), ok)
}

func (suite *AuthenticatorTestSuite) TestLoginUnknownUser() {
	ok, err := suite.auth.Login("nobody", "whatever")
	assert.NoError(suite.T(), err)
	assert.False(suite.T(), ok)
}

func (suite *AuthenticatorTestSuite) TestRegisterValidation() {
	_, err := suite.auth.Register("  ", "secret")
	assert.ErrorIs(suite.T(), err, models.ErrValidation)

	_, err = suite.auth.Register("alice", "")
	assert.ErrorIs(suite.T(), err, models.ErrValidation)

	_, err = suite.auth.Register("alice", strings.Repeat("x", 73))
	assert.ErrorIs(suite.T(), err, models.ErrValidation)

	for _, name := range []string{"alice!", "../alice", "eve smith", ".."} {
		_, err = suite.auth.Register(name, "secret")
		assert.ErrorIs(suite.T(), err, models.ErrValidation, name)
	}

	_, err = suite.db.GetAccountByUsername("alice")
	assert.ErrorIs(suite.T(), err, models.ErrNotFound)
}

func (suite *AuthenticatorTestSuite) TestRegisterLogsAccount() {
	_, err := suite.auth.Register("alice", "secret")
	require.NoError(suite.T(), err)

	entry := suite.hook.LastEntry()
	require.NotNil(suite.T(), entry)
	assert.Equal(suite.T(), logrus.InfoLevel, entry.Level)
	assert.Equal(suite.T(), "alice", entry.Data["username"])
}

func TestAuthenticatorSuite(t *testing.T) {
	suite.Run(t, new(AuthenticatorTestSuite))
}
