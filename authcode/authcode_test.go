package authcode

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/oauthcore-oss/oauthcore/cryptoutil"
	"github.com/oauthcore-oss/oauthcore/oautherr"
	"github.com/oauthcore-oss/oauthcore/storage"
	"github.com/oauthcore-oss/oauthcore/storage/memory"
)

func TestIssueAndExchange(t *testing.T) {
	ctx := context.Background()
	store := memory.New(nil)
	iss := New(store, Config{})

	code, err := iss.Issue(ctx, IssueInput{
		ClientID: "client-1", UserID: "user-1", RedirectURI: "https://app/cb", Scopes: []string{"read"},
	})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	record, err := iss.Exchange(ctx, ExchangeInput{Code: code, ClientID: "client-1", RedirectURI: "https://app/cb"})
	if err != nil {
		t.Fatalf("Exchange: %v", err)
	}
	if record.UserID != "user-1" {
		t.Errorf("unexpected user id %q", record.UserID)
	}
}

func TestExchangeRejectsReplayAndCascadeRevokes(t *testing.T) {
	ctx := context.Background()
	store := memory.New(nil)
	iss := New(store, Config{})

	code, err := iss.Issue(ctx, IssueInput{ClientID: "client-1", RedirectURI: "https://app/cb"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if err := store.CreateToken(ctx, storage.Token{
		ID: "access-from-code", Kind: storage.TokenKindAccess, ClientID: "client-1", ParentAuthCode: code,
	}); err != nil {
		t.Fatalf("CreateToken: %v", err)
	}

	if _, err := iss.Exchange(ctx, ExchangeInput{Code: code, ClientID: "client-1", RedirectURI: "https://app/cb"}); err != nil {
		t.Fatalf("first Exchange: %v", err)
	}

	_, err = iss.Exchange(ctx, ExchangeInput{Code: code, ClientID: "client-1", RedirectURI: "https://app/cb"})
	var oe *oautherr.Error
	if !errors.As(err, &oe) || oe.Kind != oautherr.InvalidGrant {
		t.Fatalf("expected invalid_grant on replay, got %v", err)
	}

	tok, err := store.GetToken(ctx, "access-from-code")
	if err != nil {
		t.Fatalf("GetToken: %v", err)
	}
	if !tok.Revoked {
		t.Errorf("expected token minted from replayed code to be revoked")
	}
}

func TestExchangeRejectsWrongClient(t *testing.T) {
	ctx := context.Background()
	store := memory.New(nil)
	iss := New(store, Config{})

	code, err := iss.Issue(ctx, IssueInput{ClientID: "client-1", RedirectURI: "https://app/cb"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	_, err = iss.Exchange(ctx, ExchangeInput{Code: code, ClientID: "client-2", RedirectURI: "https://app/cb"})
	var oe *oautherr.Error
	if !errors.As(err, &oe) || oe.Kind != oautherr.InvalidGrant {
		t.Fatalf("expected invalid_grant for mismatched client, got %v", err)
	}
}

func TestExchangeRedirectURIMismatch(t *testing.T) {
	ctx := context.Background()
	store := memory.New(nil)
	iss := New(store, Config{})

	code, err := iss.Issue(ctx, IssueInput{ClientID: "client-1", RedirectURI: "https://app/cb"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	_, err = iss.Exchange(ctx, ExchangeInput{Code: code, ClientID: "client-1", RedirectURI: ""})
	var oe *oautherr.Error
	if !errors.As(err, &oe) || oe.Kind != oautherr.InvalidRequest {
		t.Fatalf("expected invalid_request for missing redirect_uri, got %v", err)
	}

	code2, err := iss.Issue(ctx, IssueInput{ClientID: "client-1", RedirectURI: "https://app/cb"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	_, err = iss.Exchange(ctx, ExchangeInput{Code: code2, ClientID: "client-1", RedirectURI: "https://different/cb"})
	if !errors.As(err, &oe) || oe.Kind != oautherr.InvalidGrant {
		t.Fatalf("expected invalid_grant for mismatched redirect_uri, got %v", err)
	}
}

func TestExchangeVerifiesPKCE(t *testing.T) {
	ctx := context.Background()
	store := memory.New(nil)
	iss := New(store, Config{})

	verifier := "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	challenge, err := cryptoutil.DeriveChallenge(verifier, cryptoutil.MethodS256)
	if err != nil {
		t.Fatalf("DeriveChallenge: %v", err)
	}

	code, err := iss.Issue(ctx, IssueInput{
		ClientID: "client-1", RedirectURI: "https://app/cb",
		PKCEChallenge: challenge, PKCEMethod: cryptoutil.MethodS256,
	})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	_, err = iss.Exchange(ctx, ExchangeInput{Code: code, ClientID: "client-1", RedirectURI: "https://app/cb", CodeVerifier: "wrong-verifier-wrong-verifier-wrong-verifier"})
	var oe *oautherr.Error
	if !errors.As(err, &oe) || oe.Kind != oautherr.InvalidGrant {
		t.Fatalf("expected invalid_grant for wrong code_verifier, got %v", err)
	}
}

// TestExchangeConcurrentSingleUse is the executable form of the
// single-use replay-safety property at the authcode package boundary,
// on top of storage/conformance's lower-level version.
func TestExchangeConcurrentSingleUse(t *testing.T) {
	ctx := context.Background()
	store := memory.New(nil)
	iss := New(store, Config{})

	code, err := iss.Issue(ctx, IssueInput{ClientID: "client-1", RedirectURI: "https://app/cb"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	const n = 25
	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			if _, err := iss.Exchange(ctx, ExchangeInput{Code: code, ClientID: "client-1", RedirectURI: "https://app/cb"}); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Fatalf("expected exactly 1 successful exchange, got %d", successes)
	}
}
