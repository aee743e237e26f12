package server

import "github.com/oauthcore-oss/oauthcore/grant"

func enabledGrantNames(g grant.EnabledGrants) []string {
	var names []string
	if g.AuthorizationCode {
		names = append(names, grant.GrantAuthorizationCode)
	}
	if g.ClientCredentials {
		names = append(names, grant.GrantClientCredentials)
	}
	if g.RefreshToken {
		names = append(names, grant.GrantRefreshToken)
	}
	if g.Password {
		names = append(names, grant.GrantPassword)
	}
	return names
}
