package server

import (
	"net/http"

	"github.com/gorilla/securecookie"
)

// UserAuthenticator resolves the end-user behind an /authorize request.
// The login UI itself is an external collaborator; this interface is
// the seam the core depends on instead of a concrete login flow.
type UserAuthenticator interface {
	// Authenticate returns the authenticated user's ID, or ok=false if
	// the request carries no valid session and must be redirected to a
	// login page.
	Authenticate(r *http.Request) (userID string, ok bool)
}

const sessionCookieName = "oauthcore_session"

// CookieAuthenticator is a minimal UserAuthenticator backed by a
// gorilla/securecookie signed-and-encrypted cookie.
type CookieAuthenticator struct {
	codec securecookie.Codec
}

// NewCookieAuthenticator builds a CookieAuthenticator. If hashKey or
// blockKey is empty, a random key is generated via
// securecookie.GenerateRandomKey for the lifetime of the process.
func NewCookieAuthenticator(hashKey, blockKey []byte) *CookieAuthenticator {
	if len(hashKey) == 0 {
		hashKey = securecookie.GenerateRandomKey(64)
	}
	if len(blockKey) == 0 {
		blockKey = securecookie.GenerateRandomKey(32)
	}
	return &CookieAuthenticator{codec: securecookie.New(hashKey, blockKey)}
}

type sessionPayload struct {
	UserID string `json:"user_id"`
}

// Authenticate implements UserAuthenticator.
func (c *CookieAuthenticator) Authenticate(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return "", false
	}
	var payload sessionPayload
	if err := c.codec.Decode(sessionCookieName, cookie.Value, &payload); err != nil {
		return "", false
	}
	if payload.UserID == "" {
		return "", false
	}
	return payload.UserID, true
}

// SetSession writes a signed cookie identifying userID, for a login
// handler (external collaborator) to call once it has authenticated the
// end user.
func (c *CookieAuthenticator) SetSession(w http.ResponseWriter, userID string) error {
	encoded, err := c.codec.Encode(sessionCookieName, sessionPayload{UserID: userID})
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    encoded,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// ClearSession removes the session cookie, for a logout handler.
func (c *CookieAuthenticator) ClearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{Name: sessionCookieName, Path: "/", MaxAge: -1})
}
