package tokens_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-tokens"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// TestIdentity is a simple value implementation of tokens.Identity
type TestIdentity struct {
	id       string
	username string
	email    string
	role     string
}

func (m TestIdentity) ID() string       { return m.id }
func (m TestIdentity) Username() string { return m.username }
func (m TestIdentity) Email() string    { return m.email }
func (m TestIdentity) Role() string     { return m.role }

func TestLogin(t *testing.T) {
	ctx := context.Background()

	identity := TestIdentity{
		id:       "8D8B1D74-F9C6-4B63-B9F3-4C2C6A2F1D34",
		username: "testuser",
		email:    "test@example.com",
		role:     "member",
	}

	t.Run("successful login returns a signed session token", func(t *testing.T) {
		provider := new(MockIdentityProvider)
		provider.On("VerifyIdentity", ctx, "test@example.com", "password123").
			Return(identity, nil).Once()

		authenticator := tokens.NewAuthenticator(provider, newTestConfig()).
			WithLogger(testLogger{})

		token, err := authenticator.Login(ctx, "test@example.com", "password123")
		require.NoError(t, err)
		require.NotEmpty(t, token)

		claims := &tokens.SessionClaims{}
		parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
			return []byte("test-signing-key"), nil
		})
		require.NoError(t, err)
		require.True(t, parsed.Valid)

		assert.Equal(t, identity.id, claims.RegisteredClaims.Subject)
		assert.Equal(t, identity.id, claims.UID)
		assert.Equal(t, "member", claims.UserRole)
		assert.Equal(t, "test-issuer", claims.RegisteredClaims.Issuer)
		assert.NotEmpty(t, claims.RegisteredClaims.ID)

		provider.AssertExpectations(t)
	})

	t.Run("verification failure propagates the provider error", func(t *testing.T) {
		provider := new(MockIdentityProvider)
		provider.On("VerifyIdentity", ctx, "test@example.com", "wrong").
			Return(nil, tokens.ErrMismatchedHashAndPassword).Once()

		authenticator := tokens.NewAuthenticator(provider, newTestConfig()).
			WithLogger(testLogger{})

		token, err := authenticator.Login(ctx, "test@example.com", "wrong")
		assert.Empty(t, token)
		assert.ErrorIs(t, err, tokens.ErrMismatchedHashAndPassword)

		provider.AssertExpectations(t)
	})

	t.Run("nil identity yields identity not found", func(t *testing.T) {
		provider := new(MockIdentityProvider)
		provider.On("VerifyIdentity", ctx, "ghost@example.com", "password123").
			Return(nil, nil).Once()

		authenticator := tokens.NewAuthenticator(provider, newTestConfig()).
			WithLogger(testLogger{})

		token, err := authenticator.Login(ctx, "ghost@example.com", "password123")
		assert.Empty(t, token)
		assert.ErrorIs(t, err, tokens.ErrIdentityNotFound)

		provider.AssertExpectations(t)
	})

	t.Run("zero value identity yields identity not found", func(t *testing.T) {
		provider := new(MockIdentityProvider)
		provider.On("VerifyIdentity", ctx, "ghost@example.com", "password123").
			Return(TestIdentity{}, nil).Once()

		authenticator := tokens.NewAuthenticator(provider, newTestConfig()).
			WithLogger(testLogger{})

		token, err := authenticator.Login(ctx, "ghost@example.com", "password123")
		assert.Empty(t, token)
		assert.ErrorIs(t, err, tokens.ErrIdentityNotFound)

		provider.AssertExpectations(t)
	})
}

func TestImpersonate(t *testing.T) {
	ctx := context.Background()

	identity := TestIdentity{
		id:       "8D8B1D74-F9C6-4B63-B9F3-4C2C6A2F1D34",
		username: "testuser",
		email:    "test@example.com",
		role:     "admin",
	}

	t.Run("impersonation skips password verification", func(t *testing.T) {
		provider := new(MockIdentityProvider)
		provider.On("FindIdentityByIdentifier", ctx, "test@example.com").
			Return(identity, nil).Once()

		authenticator := tokens.NewAuthenticator(provider, newTestConfig()).
			WithLogger(testLogger{})

		token, err := authenticator.Impersonate(ctx, "test@example.com")
		require.NoError(t, err)
		require.NotEmpty(t, token)

		claims, err := authenticator.SessionTokens().Validate(token)
		require.NoError(t, err)
		assert.Equal(t, identity.id, claims.UserID())
		assert.Equal(t, "admin", claims.Role())

		provider.AssertExpectations(t)
	})

	t.Run("lookup failure propagates", func(t *testing.T) {
		provider := new(MockIdentityProvider)
		provider.On("FindIdentityByIdentifier", ctx, "ghost@example.com").
			Return(nil, tokens.ErrIdentityNotFound).Once()

		authenticator := tokens.NewAuthenticator(provider, newTestConfig()).
			WithLogger(testLogger{})

		token, err := authenticator.Impersonate(ctx, "ghost@example.com")
		assert.Empty(t, token)
		assert.ErrorIs(t, err, tokens.ErrIdentityNotFound)

		provider.AssertExpectations(t)
	})
}

func TestClaimsFromToken(t *testing.T) {
	ctx := context.Background()

	identity := TestIdentity{id: "user-123", role: "member"}

	newLoggedIn := func(t *testing.T, cfg testConfig) (*tokens.Authenticator, string) {
		t.Helper()

		provider := new(MockIdentityProvider)
		provider.On("VerifyIdentity", mock.Anything, mock.Anything, mock.Anything).
			Return(identity, nil)

		authenticator := tokens.NewAuthenticator(provider, cfg).
			WithLogger(testLogger{})

		token, err := authenticator.Login(ctx, "test@example.com", "password123")
		require.NoError(t, err)

		return authenticator, token
	}

	t.Run("valid token round trips", func(t *testing.T) {
		authenticator, token := newLoggedIn(t, newTestConfig())

		claims, err := authenticator.ClaimsFromToken(token)
		require.NoError(t, err)
		assert.Equal(t, "user-123", claims.UserID())
		assert.Equal(t, "member", claims.Role())
		assert.True(t, claims.HasRole("member"))
	})

	t.Run("tampered token is rejected", func(t *testing.T) {
		authenticator, token := newLoggedIn(t, newTestConfig())

		claims, err := authenticator.ClaimsFromToken(token + "tampered")
		assert.Nil(t, claims)
		assert.True(t, tokens.IsInvalidTokenError(err))
	})

	t.Run("expired token is rejected", func(t *testing.T) {
		cfg := newTestConfig()
		cfg.expiration = -1

		authenticator, token := newLoggedIn(t, cfg)

		claims, err := authenticator.ClaimsFromToken(token)
		assert.Nil(t, claims)
		assert.ErrorIs(t, err, tokens.ErrTokenExpired)
	})
}

func TestIdentityFromClaims(t *testing.T) {
	ctx := context.Background()

	identity := TestIdentity{id: "user-123", role: "member"}

	claims := &tokens.SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-123"},
		UID:              "user-123",
		UserRole:         "member",
	}

	t.Run("resolves identity by user id", func(t *testing.T) {
		provider := new(MockIdentityProvider)
		provider.On("FindIdentityByIdentifier", ctx, "user-123").
			Return(identity, nil).Once()

		authenticator := tokens.NewAuthenticator(provider, newTestConfig()).
			WithLogger(testLogger{})

		got, err := authenticator.IdentityFromClaims(ctx, claims)
		require.NoError(t, err)
		assert.Equal(t, "user-123", got.ID())

		provider.AssertExpectations(t)
	})

	t.Run("lookup errors propagate", func(t *testing.T) {
		provider := new(MockIdentityProvider)
		provider.On("FindIdentityByIdentifier", ctx, "user-123").
			Return(nil, tokens.ErrIdentityNotFound).Once()

		authenticator := tokens.NewAuthenticator(provider, newTestConfig()).
			WithLogger(testLogger{})

		got, err := authenticator.IdentityFromClaims(ctx, claims)
		assert.Nil(t, got)
		assert.ErrorIs(t, err, tokens.ErrIdentityNotFound)

		provider.AssertExpectations(t)
	})
}

func TestAuthenticatorActivityEvents(t *testing.T) {
	ctx := context.Background()

	identity := TestIdentity{id: "user-123", role: "member"}

	t.Run("login success emits an event with the actor", func(t *testing.T) {
		provider := new(MockIdentityProvider)
		provider.On("VerifyIdentity", ctx, "test@example.com", "password123").
			Return(identity, nil).Once()

		sink := new(MockActivitySink)
		sink.On("Record", mock.Anything, mock.MatchedBy(func(evt tokens.ActivityEvent) bool {
			return evt.EventType == tokens.ActivityEventLoginSuccess &&
				evt.UserID == "user-123" &&
				evt.Actor.ID == "user-123" &&
				evt.Actor.Type == "user" &&
				!evt.OccurredAt.IsZero()
		})).Return(nil).Once()

		authenticator := tokens.NewAuthenticator(provider, newTestConfig()).
			WithLogger(testLogger{}).
			WithActivitySink(sink)

		_, err := authenticator.Login(ctx, "test@example.com", "password123")
		require.NoError(t, err)

		sink.AssertExpectations(t)
	})

	t.Run("login failure emits an event with the reason", func(t *testing.T) {
		provider := new(MockIdentityProvider)
		provider.On("VerifyIdentity", ctx, "test@example.com", "wrong").
			Return(nil, tokens.ErrMismatchedHashAndPassword).Once()

		sink := new(MockActivitySink)
		sink.On("Record", mock.Anything, mock.MatchedBy(func(evt tokens.ActivityEvent) bool {
			return evt.EventType == tokens.ActivityEventLoginFailure &&
				evt.Metadata["identifier"] == "test@example.com" &&
				evt.Metadata["error"] != ""
		})).Return(nil).Once()

		authenticator := tokens.NewAuthenticator(provider, newTestConfig()).
			WithLogger(testLogger{}).
			WithActivitySink(sink)

		_, err := authenticator.Login(ctx, "test@example.com", "wrong")
		assert.Error(t, err)

		sink.AssertExpectations(t)
	})

	t.Run("impersonation emits a system actor event", func(t *testing.T) {
		provider := new(MockIdentityProvider)
		provider.On("FindIdentityByIdentifier", ctx, "test@example.com").
			Return(identity, nil).Once()

		sink := new(MockActivitySink)
		sink.On("Record", mock.Anything, mock.MatchedBy(func(evt tokens.ActivityEvent) bool {
			return evt.EventType == tokens.ActivityEventImpersonationSuccess &&
				evt.UserID == "user-123" &&
				evt.Actor.Type == "system"
		})).Return(nil).Once()

		authenticator := tokens.NewAuthenticator(provider, newTestConfig()).
			WithLogger(testLogger{}).
			WithActivitySink(sink)

		_, err := authenticator.Impersonate(ctx, "test@example.com")
		require.NoError(t, err)

		sink.AssertExpectations(t)
	})

	t.Run("sink errors do not fail the login", func(t *testing.T) {
		provider := new(MockIdentityProvider)
		provider.On("VerifyIdentity", ctx, "test@example.com", "password123").
			Return(identity, nil).Once()

		sink := new(MockActivitySink)
		sink.On("Record", mock.Anything, mock.Anything).
			Return(errors.New("sink unavailable")).Once()

		authenticator := tokens.NewAuthenticator(provider, newTestConfig()).
			WithLogger(testLogger{}).
			WithActivitySink(sink)

		token, err := authenticator.Login(ctx, "test@example.com", "password123")
		require.NoError(t, err)
		assert.NotEmpty(t, token)

		sink.AssertExpectations(t)
	})
}

func TestAuthenticatorClaimsDecorator(t *testing.T) {
	ctx := context.Background()

	identity := TestIdentity{id: "user-123", role: "member"}

	newAuthenticator := func(decorator tokens.ClaimsDecorator) *tokens.Authenticator {
		provider := new(MockIdentityProvider)
		provider.On("VerifyIdentity", mock.Anything, mock.Anything, mock.Anything).
			Return(identity, nil)

		return tokens.NewAuthenticator(provider, newTestConfig()).
			WithLogger(testLogger{}).
			WithClaimsDecorator(decorator)
	}

	t.Run("decorator enriches extension claims", func(t *testing.T) {
		decorator := tokens.ClaimsDecoratorFunc(func(ctx context.Context, identity tokens.Identity, claims *tokens.SessionClaims) error {
			claims.Scopes = append(claims.Scopes, "reports:read")
			if claims.Metadata == nil {
				claims.Metadata = map[string]any{}
			}
			claims.Metadata["tenant"] = "acme"
			return nil
		})

		authenticator := newAuthenticator(decorator)

		token, err := authenticator.Login(ctx, "test@example.com", "password123")
		require.NoError(t, err)

		claims, err := authenticator.SessionTokens().Validate(token)
		require.NoError(t, err)

		session, ok := claims.(*tokens.SessionClaims)
		require.True(t, ok)
		assert.True(t, session.HasScope("reports:read"))
		assert.Equal(t, "acme", session.Metadata["tenant"])
	})

	t.Run("decorator errors abort the login", func(t *testing.T) {
		boom := errors.New("directory lookup failed")
		decorator := tokens.ClaimsDecoratorFunc(func(ctx context.Context, identity tokens.Identity, claims *tokens.SessionClaims) error {
			return boom
		})

		authenticator := newAuthenticator(decorator)

		token, err := authenticator.Login(ctx, "test@example.com", "password123")
		assert.Empty(t, token)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("decorator cannot rewrite protected claims", func(t *testing.T) {
		decorator := tokens.ClaimsDecoratorFunc(func(ctx context.Context, identity tokens.Identity, claims *tokens.SessionClaims) error {
			claims.RegisteredClaims.Subject = "someone-else"
			return nil
		})

		authenticator := newAuthenticator(decorator)

		token, err := authenticator.Login(ctx, "test@example.com", "password123")
		assert.Empty(t, token)
		assert.ErrorIs(t, err, tokens.ErrImmutableClaimMutation)
	})

	t.Run("decorator cannot rewrite the uid", func(t *testing.T) {
		decorator := tokens.ClaimsDecoratorFunc(func(ctx context.Context, identity tokens.Identity, claims *tokens.SessionClaims) error {
			claims.UID = "someone-else"
			return nil
		})

		authenticator := newAuthenticator(decorator)

		token, err := authenticator.Login(ctx, "test@example.com", "password123")
		assert.Empty(t, token)
		assert.ErrorIs(t, err, tokens.ErrImmutableClaimMutation)
	})

	t.Run("decorator cannot rewrite the expiry", func(t *testing.T) {
		decorator := tokens.ClaimsDecoratorFunc(func(ctx context.Context, identity tokens.Identity, claims *tokens.SessionClaims) error {
			claims.RegisteredClaims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(720 * time.Hour))
			return nil
		})

		authenticator := newAuthenticator(decorator)

		token, err := authenticator.Login(ctx, "test@example.com", "password123")
		assert.Empty(t, token)
		assert.ErrorIs(t, err, tokens.ErrImmutableClaimMutation)
	})
}

func TestAuthenticatorWithTokenValidator(t *testing.T) {
	identity := TestIdentity{id: "user-123", role: "member"}

	t.Run("custom validator overrides session validation", func(t *testing.T) {
		expected := &tokens.SessionClaims{UID: "external-user"}

		validator := tokens.TokenValidatorFunc(func(raw string) (tokens.Claims, error) {
			if raw == "external-token" {
				return expected, nil
			}
			return nil, tokens.ErrTokenInvalid
		})

		provider := new(MockIdentityProvider)
		authenticator := tokens.NewAuthenticator(provider, newTestConfig()).
			WithLogger(testLogger{}).
			WithTokenValidator(validator)

		claims, err := authenticator.ClaimsFromToken("external-token")
		require.NoError(t, err)
		assert.Equal(t, "external-user", claims.UserID())

		_, err = authenticator.ClaimsFromToken("anything-else")
		assert.ErrorIs(t, err, tokens.ErrTokenInvalid)
	})

	t.Run("fallback chain accepts tokens from a previous key", func(t *testing.T) {
		ctx := context.Background()

		oldCfg := newTestConfig()
		oldCfg.signingKey = "previous-signing-key"

		oldProvider := new(MockIdentityProvider)
		oldProvider.On("VerifyIdentity", mock.Anything, mock.Anything, mock.Anything).
			Return(identity, nil)

		oldAuthenticator := tokens.NewAuthenticator(oldProvider, oldCfg).
			WithLogger(testLogger{})

		oldToken, err := oldAuthenticator.Login(ctx, "test@example.com", "password123")
		require.NoError(t, err)

		provider := new(MockIdentityProvider)
		authenticator := tokens.NewAuthenticator(provider, newTestConfig()).
			WithLogger(testLogger{})

		authenticator.WithTokenValidator(tokens.NewMultiTokenValidator(
			authenticator.SessionTokens(),
			oldAuthenticator.SessionTokens(),
		))

		claims, err := authenticator.ClaimsFromToken(oldToken)
		require.NoError(t, err)
		assert.Equal(t, "user-123", claims.UserID())
	})
}
