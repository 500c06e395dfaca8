package tokens_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/goliatone/go-tokens"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type testLogger struct{}

func (testLogger) Debug(string, ...any) {}
func (testLogger) Info(string, ...any)  {}
func (testLogger) Warn(string, ...any)  {}
func (testLogger) Error(string, ...any) {}

// testConfig satisfies tokens.Config with values every test can rely on.
type testConfig struct {
	secret     string
	salt       string
	iterations int
	keyLength  int
	digest     string
	signingKey string
	expiration int
	issuer     string
	audience   []string
}

func newTestConfig() testConfig {
	return testConfig{
		secret:     "a-secret-key-base-of-enough-length",
		salt:       "signed token",
		signingKey: "test-signing-key",
		expiration: 24,
		issuer:     "test-issuer",
		audience:   []string{"test:audience"},
	}
}

func (c testConfig) GetSecretKeyBase() string { return c.secret }
func (c testConfig) GetTokenSalt() string     { return c.salt }
func (c testConfig) GetKeyIterations() int    { return c.iterations }
func (c testConfig) GetKeyLength() int        { return c.keyLength }
func (c testConfig) GetKeyDigest() string     { return c.digest }
func (c testConfig) GetSigningKey() string    { return c.signingKey }
func (c testConfig) GetTokenExpiration() int  { return c.expiration }
func (c testConfig) GetIssuer() string        { return c.issuer }
func (c testConfig) GetAudience() []string    { return c.audience }

type MockIdentity struct {
	mock.Mock
}

func (m *MockIdentity) ID() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockIdentity) Username() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockIdentity) Email() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockIdentity) Role() string {
	args := m.Called()
	return args.String(0)
}

type MockIdentityProvider struct {
	mock.Mock
}

func (m *MockIdentityProvider) VerifyIdentity(ctx context.Context, identifier, password string) (tokens.Identity, error) {
	args := m.Called(ctx, identifier, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(tokens.Identity), args.Error(1)
}

func (m *MockIdentityProvider) FindIdentityByIdentifier(ctx context.Context, identifier string) (tokens.Identity, error) {
	args := m.Called(ctx, identifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(tokens.Identity), args.Error(1)
}

type MockActivitySink struct {
	mock.Mock
}

func (m *MockActivitySink) Record(ctx context.Context, event tokens.ActivityEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) GetByIdentifier(ctx context.Context, identifier string) (*tokens.User, error) {
	args := m.Called(ctx, identifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tokens.User), args.Error(1)
}

type MockRepositoryManager struct {
	mock.Mock
}

func (m *MockRepositoryManager) Validate() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockRepositoryManager) MustValidate() {
	m.Called()
}

func (m *MockRepositoryManager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	args := m.Called(ctx, opts, f)
	return args.Error(0)
}

func (m *MockRepositoryManager) Users() tokens.Users {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(tokens.Users)
}

// testUsersSchema mirrors the migration in data/sql/migrations, minus the
// postgres specific column types.
const testUsersSchema = `CREATE TABLE IF NOT EXISTS users (
	id VARCHAR(36) NOT NULL PRIMARY KEY,
	user_role VARCHAR(32) NOT NULL DEFAULT 'guest',
	first_name VARCHAR(255),
	last_name VARCHAR(255),
	username VARCHAR(255) NOT NULL UNIQUE,
	email VARCHAR(255) NOT NULL UNIQUE,
	password_hash VARCHAR(255),
	confirmation_token VARCHAR(64),
	confirmation_sent_at TIMESTAMP,
	confirmed_at TIMESTAMP,
	reset_token VARCHAR(64),
	reset_sent_at TIMESTAMP,
	metadata JSON,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	deleted_at TIMESTAMP
)`

// newTestDB opens a private in-memory sqlite database. The single
// connection keeps the database alive for the duration of the test.
func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	_, err = db.Exec(testUsersSchema)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func newTestRepoManager(t *testing.T) tokens.RepositoryManager {
	t.Helper()
	repo := tokens.NewRepositoryManager(newTestDB(t))
	require.NoError(t, repo.Validate())
	return repo
}

// seedUser registers a user directly through the repository with the
// given password already hashed.
func seedUser(t *testing.T, repo tokens.RepositoryManager, email, username, password string) *tokens.User {
	t.Helper()

	hash, err := tokens.HashPassword(password)
	require.NoError(t, err)

	user, err := repo.Users().Register(context.Background(), &tokens.User{
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		Role:         tokens.RoleMember,
	})
	require.NoError(t, err)
	require.NotNil(t, user)

	return user
}

// userStoreAdapter narrows the repository surface down to what the
// user provider needs.
type userStoreAdapter struct {
	users tokens.Users
}

func (a userStoreAdapter) GetByIdentifier(ctx context.Context, identifier string) (*tokens.User, error) {
	return a.users.GetByIdentifier(ctx, identifier)
}
