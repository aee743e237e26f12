package server

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/oauthcore-oss/oauthcore/authcode"
	"github.com/oauthcore-oss/oauthcore/client"
	"github.com/oauthcore-oss/oauthcore/cryptoutil"
	"github.com/oauthcore-oss/oauthcore/event"
	"github.com/oauthcore-oss/oauthcore/oautherr"
	"github.com/oauthcore-oss/oauthcore/storage"
)

// handleAuthorize implements the RFC 6749 §4.1.1 authorization endpoint
// for response_type=code. A failure that occurs before redirect_uri has
// been validated is reported directly to the user agent as a 400; once
// redirect_uri is known-good, every subsequent failure is reported via a
// 302 redirect carrying error/error_description/state, per §4.1.2.1.
func (s *Server) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	clientID := q.Get("client_id")
	state := q.Get("state")

	c, err := s.store.GetClient(r.Context(), clientID)
	if err != nil {
		http.Error(w, "invalid_request: unknown client_id", http.StatusBadRequest)
		return
	}

	redirectURI, err := client.AssertRedirectURI(c, q.Get("redirect_uri"))
	if err != nil {
		http.Error(w, "invalid_request: "+err.Error(), http.StatusBadRequest)
		return
	}

	redirectError := func(kind oautherr.Kind, description string) {
		dest, parseErr := url.Parse(redirectURI)
		if parseErr != nil {
			http.Error(w, "invalid_request: malformed redirect_uri", http.StatusBadRequest)
			return
		}
		v := dest.Query()
		v.Set("error", string(kind))
		if description != "" {
			v.Set("error_description", description)
		}
		if state != "" {
			v.Set("state", state)
		}
		dest.RawQuery = v.Encode()
		http.Redirect(w, r, dest.String(), http.StatusFound)
	}

	if q.Get("response_type") != "code" {
		redirectError(oautherr.UnsupportedResponseType, "only response_type=code is supported")
		return
	}

	if err := client.AssertGrantAllowed(c, "authorization_code"); err != nil {
		redirectError(oautherr.UnauthorizedClient, err.Error())
		return
	}

	scopes, err := client.ReduceScope(c, strings.Fields(q.Get("scope")))
	if err != nil {
		redirectError(oautherr.InvalidScope, err.Error())
		return
	}

	userID, ok := s.authUserID(r)
	if !ok {
		redirectError(oautherr.AccessDenied, "no authenticated user; an external login flow must run first")
		return
	}

	challenge := q.Get("code_challenge")
	method := q.Get("code_challenge_method")
	if challenge == "" && s.cfg.PKCERequiredForPublicClients && c.Type == storage.ClientPublic {
		redirectError(oautherr.InvalidRequest, "code_challenge is required for public clients")
		return
	}
	if challenge != "" {
		if method == "" {
			method = cryptoutil.MethodS256
		}
		if method == cryptoutil.MethodPlain && !s.cfg.AllowPlainPKCE {
			redirectError(oautherr.InvalidRequest, "code_challenge_method=plain is not permitted by this deployment")
			return
		}
		if method != cryptoutil.MethodS256 && method != cryptoutil.MethodPlain {
			redirectError(oautherr.InvalidRequest, fmt.Sprintf("unsupported code_challenge_method %q", method))
			return
		}
	}

	code, err := s.codes.Issue(r.Context(), authcode.IssueInput{
		ClientID: c.ID, UserID: userID, RedirectURI: redirectURI, Scopes: scopes,
		PKCEChallenge: challenge, PKCEMethod: method,
	})
	if err != nil {
		redirectError(oautherr.ServerError, "failed to issue authorization code")
		return
	}
	s.emitter.Publish(r.Context(), event.TypeCodeIssued, userID, c.ID, nil)

	dest, err := url.Parse(redirectURI)
	if err != nil {
		http.Error(w, "invalid_request: malformed redirect_uri", http.StatusBadRequest)
		return
	}
	v := dest.Query()
	v.Set("code", code)
	if state != "" {
		v.Set("state", state)
	}
	dest.RawQuery = v.Encode()
	http.Redirect(w, r, dest.String(), http.StatusFound)
}

func (s *Server) authUserID(r *http.Request) (string, bool) {
	if s.cfg.Auth == nil {
		return "", false
	}
	return s.cfg.Auth.Authenticate(r)
}
