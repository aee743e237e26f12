package cryptoutil

import (
	"encoding/json"
	"fmt"
	"time"

	jose "github.com/go-jose/go-jose/v4"
)

// Claims is the JWT representation minted for access tokens when the
// deployment opts into self-contained (as opposed to opaque) tokens.
type Claims struct {
	Issuer    string   `json:"iss"`
	Subject   string   `json:"sub,omitempty"`
	Audience  string   `json:"aud,omitempty"`
	ClientID  string   `json:"client_id"`
	Scope     string   `json:"scope,omitempty"`
	JTI       string   `json:"jti"`
	IssuedAt  int64    `json:"iat"`
	ExpiresAt int64    `json:"exp"`
	Scopes    []string `json:"-"`
}

// allowedAlgorithms is the verification allow-list. HS256 is the only
// algorithm this package signs with; parsing rejects everything else,
// including "none", which go-jose will not parse as a valid signature
// algorithm in the first place but which some client libraries attempt
// to smuggle in regardless.
var allowedAlgorithms = []jose.SignatureAlgorithm{jose.HS256}

// SignAccessToken signs claims with an HS256 signer keyed by secret.
func SignAccessToken(claims Claims, secret []byte) (string, error) {
	signingKey := jose.SigningKey{Algorithm: jose.HS256, Key: secret}
	signer, err := jose.NewSigner(signingKey, &jose.SignerOptions{})
	if err != nil {
		return "", fmt.Errorf("cryptoutil: build signer: %w", err)
	}

	payload, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("cryptoutil: marshal claims: %w", err)
	}

	jws, err := signer.Sign(payload)
	if err != nil {
		return "", fmt.Errorf("cryptoutil: sign claims: %w", err)
	}
	return jws.CompactSerialize()
}

// VerifyAccessToken parses and validates a JWT minted by SignAccessToken,
// enforcing the HS256 allow-list and the exp/iat/iss claims.
func VerifyAccessToken(token string, secret []byte, issuer string, now time.Time) (Claims, error) {
	jws, err := jose.ParseSigned(token, allowedAlgorithms)
	if err != nil {
		return Claims{}, fmt.Errorf("cryptoutil: parse token: %w", err)
	}

	payload, err := jws.Verify(secret)
	if err != nil {
		return Claims{}, fmt.Errorf("cryptoutil: verify signature: %w", err)
	}

	var claims Claims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return Claims{}, fmt.Errorf("cryptoutil: unmarshal claims: %w", err)
	}

	if claims.Issuer != issuer {
		return Claims{}, fmt.Errorf("cryptoutil: unexpected issuer %q", claims.Issuer)
	}
	if now.Unix() > claims.ExpiresAt {
		return Claims{}, fmt.Errorf("cryptoutil: token expired at %d", claims.ExpiresAt)
	}
	if claims.IssuedAt > now.Unix() {
		return Claims{}, fmt.Errorf("cryptoutil: token issued in the future")
	}

	return claims, nil
}
