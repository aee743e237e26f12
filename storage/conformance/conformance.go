// Package conformance provides a shared test suite that every
// storage.Storage implementation must pass.
package conformance

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oauthcore-oss/oauthcore/storage"
)

// RunTests exercises newStorage() (which must return a fresh, empty
// store each call) against every behavior storage.Storage promises.
func RunTests(t *testing.T, newStorage func() storage.Storage) {
	t.Run("ClientCRUD", func(t *testing.T) { testClientCRUD(t, newStorage()) })
	t.Run("UserCRUD", func(t *testing.T) { testUserCRUD(t, newStorage()) })
	t.Run("AuthCodeSingleUse", func(t *testing.T) { testAuthCodeSingleUse(t, newStorage()) })
	t.Run("AuthCodeConcurrentConsume", func(t *testing.T) { testAuthCodeConcurrentConsume(t, newStorage()) })
	t.Run("TokenCRUDAndRevoke", func(t *testing.T) { testTokenCRUDAndRevoke(t, newStorage()) })
	t.Run("CascadeRevoke", func(t *testing.T) { testCascadeRevoke(t, newStorage()) })
	t.Run("RotateRefreshToken", func(t *testing.T) { testRotateRefreshToken(t, newStorage()) })
	t.Run("GarbageCollect", func(t *testing.T) { testGarbageCollect(t, newStorage()) })
}

func testClientCRUD(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	c := storage.Client{ID: "client-1", Type: storage.ClientConfidential, CreatedAt: time.Now()}
	require.NoError(t, s.CreateClient(ctx, c))
	require.ErrorIs(t, s.CreateClient(ctx, c), storage.ErrAlreadyExists)

	got, err := s.GetClient(ctx, "client-1")
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)

	_, err = s.GetClient(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testUserCRUD(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	u := storage.User{ID: "user-1", Username: "alice", PasswordHash: "hash", CreatedAt: time.Now()}
	require.NoError(t, s.CreateUser(ctx, u))

	byID, err := s.GetUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "alice", byID.Username)

	byName, err := s.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "user-1", byName.ID)

	_, err = s.GetUserByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testAuthCodeSingleUse(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	code := storage.AuthCode{
		Code: "code-1", ClientID: "client-1", RedirectURI: "https://cb",
		IssuedAt: time.Now(), ExpiresAt: time.Now().Add(10 * time.Minute),
	}
	require.NoError(t, s.CreateAuthCode(ctx, code))

	consumed, err := s.ConsumeAuthCode(ctx, "code-1")
	require.NoError(t, err)
	assert.Equal(t, "client-1", consumed.ClientID)

	_, err = s.ConsumeAuthCode(ctx, "code-1")
	assert.ErrorIs(t, err, storage.ErrAlreadyConsumed)

	// Diagnostic lookup still sees the record, marked consumed.
	diag, err := s.GetAuthCode(ctx, "code-1")
	require.NoError(t, err)
	assert.True(t, diag.Consumed)

	_, err = s.ConsumeAuthCode(ctx, "never-issued")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

// testAuthCodeConcurrentConsume is the executable form of testable
// property #1: at most one of N concurrent ConsumeAuthCode callers for
// the same code succeeds.
func testAuthCodeConcurrentConsume(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	code := storage.AuthCode{
		Code: "race-code", ClientID: "client-1",
		IssuedAt: time.Now(), ExpiresAt: time.Now().Add(10 * time.Minute),
	}
	require.NoError(t, s.CreateAuthCode(ctx, code))

	const n = 50
	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0

	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			if _, err := s.ConsumeAuthCode(ctx, "race-code"); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
}

func testTokenCRUDAndRevoke(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	tok := storage.Token{
		ID: "tok-1", Kind: storage.TokenKindAccess, ClientID: "client-1",
		IssuedAt: time.Now(), ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, s.CreateToken(ctx, tok))

	got, err := s.GetToken(ctx, "tok-1")
	require.NoError(t, err)
	assert.False(t, got.Revoked)

	require.NoError(t, s.RevokeToken(ctx, "tok-1"))
	got, err = s.GetToken(ctx, "tok-1")
	require.NoError(t, err)
	assert.True(t, got.Revoked)

	// Idempotent, and a no-op on unknown tokens.
	require.NoError(t, s.RevokeToken(ctx, "tok-1"))
	require.NoError(t, s.RevokeToken(ctx, "never-existed"))
}

func testCascadeRevoke(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	refresh := storage.Token{ID: "refresh-1", Kind: storage.TokenKindRefresh, ClientID: "client-1",
		IssuedAt: time.Now(), ExpiresAt: time.Now().Add(time.Hour)}
	access := storage.Token{ID: "access-1", Kind: storage.TokenKindAccess, ClientID: "client-1",
		ParentRefreshToken: "refresh-1", IssuedAt: time.Now(), ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, s.CreateToken(ctx, refresh))
	require.NoError(t, s.CreateToken(ctx, access))

	require.NoError(t, s.RevokeToken(ctx, "refresh-1"))
	require.NoError(t, s.RevokeTokensByParentRefresh(ctx, "refresh-1"))

	got, err := s.GetToken(ctx, "access-1")
	require.NoError(t, err)
	assert.True(t, got.Revoked)

	code := storage.AuthCode{Code: "code-for-cascade", ClientID: "client-1",
		IssuedAt: time.Now(), ExpiresAt: time.Now().Add(10 * time.Minute)}
	require.NoError(t, s.CreateAuthCode(ctx, code))
	fromCode := storage.Token{ID: "access-from-code", Kind: storage.TokenKindAccess, ClientID: "client-1",
		ParentAuthCode: "code-for-cascade", IssuedAt: time.Now(), ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, s.CreateToken(ctx, fromCode))

	require.NoError(t, s.RevokeTokensByParentAuthCode(ctx, "code-for-cascade"))
	got, err = s.GetToken(ctx, "access-from-code")
	require.NoError(t, err)
	assert.True(t, got.Revoked)
}

func testRotateRefreshToken(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	old := storage.Token{ID: "refresh-old", Kind: storage.TokenKindRefresh, ClientID: "client-1",
		IssuedAt: time.Now(), ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, s.CreateToken(ctx, old))

	next := storage.Token{ID: "refresh-new", Kind: storage.TokenKindRefresh, ClientID: "client-1",
		IssuedAt: time.Now(), ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, s.RotateRefreshToken(ctx, "refresh-old", next))

	gotOld, err := s.GetToken(ctx, "refresh-old")
	require.NoError(t, err)
	assert.True(t, gotOld.Revoked)

	gotNew, err := s.GetToken(ctx, "refresh-new")
	require.NoError(t, err)
	assert.False(t, gotNew.Revoked)
}

func testGarbageCollect(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	now := time.Now()

	expiredCode := storage.AuthCode{Code: "expired-code", ClientID: "c", IssuedAt: now.Add(-time.Hour), ExpiresAt: now.Add(-time.Minute)}
	liveCode := storage.AuthCode{Code: "live-code", ClientID: "c", IssuedAt: now, ExpiresAt: now.Add(time.Hour)}
	require.NoError(t, s.CreateAuthCode(ctx, expiredCode))
	require.NoError(t, s.CreateAuthCode(ctx, liveCode))

	expiredTok := storage.Token{ID: "expired-tok", Kind: storage.TokenKindAccess, ClientID: "c", IssuedAt: now.Add(-time.Hour), ExpiresAt: now.Add(-time.Minute)}
	liveTok := storage.Token{ID: "live-tok", Kind: storage.TokenKindAccess, ClientID: "c", IssuedAt: now, ExpiresAt: now.Add(time.Hour)}
	require.NoError(t, s.CreateToken(ctx, expiredTok))
	require.NoError(t, s.CreateToken(ctx, liveTok))

	result, err := s.GarbageCollect(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.AuthCodes)
	assert.Equal(t, int64(1), result.Tokens)

	_, err = s.GetAuthCode(ctx, "live-code")
	assert.NoError(t, err)
	_, err = s.GetToken(ctx, "live-tok")
	assert.NoError(t, err)
}
