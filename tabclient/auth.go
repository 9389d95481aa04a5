package tabclient

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Credentials is a set of sign-in credentials. Implemented by
// [TableauAuth] and [PersonalAccessTokenAuth].
type Credentials interface {
	signInXML() *credentialsRequestXML
}

// TableauAuth signs in with a username and password. Site selects the site
// content URL (empty for the default site); UserIDToImpersonate, when set,
// signs in on behalf of another user.
type TableauAuth struct {
	Username            string
	Password            string
	Site                string
	UserIDToImpersonate string
}

func (a TableauAuth) signInXML() *credentialsRequestXML {
	creds := &credentialsRequestXML{
		Name:     a.Username,
		Password: a.Password,
		Site:     &siteRequestXML{ContentURL: a.Site},
	}
	if a.UserIDToImpersonate != "" {
		creds.User = &idRefXML{ID: a.UserIDToImpersonate}
	}
	return creds
}

// PersonalAccessTokenAuth signs in with a personal access token.
type PersonalAccessTokenAuth struct {
	TokenName string
	Token     string
	Site      string
}

func (a PersonalAccessTokenAuth) signInXML() *credentialsRequestXML {
	return &credentialsRequestXML{
		PersonalAccessTokenName:   a.TokenName,
		PersonalAccessTokenSecret: a.Token,
		Site:                      &siteRequestXML{ContentURL: a.Site},
	}
}

// AuthEndpoint signs sessions in and out and switches between sites.
type AuthEndpoint struct {
	endpoint
}

func (e *AuthEndpoint) baseURL() string {
	return e.client.apiBaseURL() + "/auth"
}

// SignIn authenticates with the server and stores the session token, site
// and user on the client. A rejected sign-in returns a [*SignInError]
// wrapping the server failure.
func (e *AuthEndpoint) SignIn(ctx context.Context, creds Credentials) error {
	body, err := signInRequest(creds.signInXML())
	if err != nil {
		return err
	}

	response, err := e.post(ctx, e.baseURL()+"/signin", body, contentTypeXML)
	if err != nil {
		var serverErr *ServerError
		if errors.As(err, &serverErr) {
			return &SignInError{Err: serverErr}
		}
		return err
	}

	session, err := parseCredentials(response)
	if err != nil {
		return err
	}
	if session.Token == "" {
		return &SignInError{Err: fmt.Errorf("response carried no session token")}
	}

	e.client.authToken = session.Token
	e.client.siteID = session.SiteID
	e.client.siteContentURL = session.SiteContentURL
	e.client.userID = session.UserID
	e.client.logger.Info("signed in",
		zap.String("site_id", session.SiteID),
		zap.String("user_id", session.UserID))
	return nil
}

// SignOut invalidates the current session. The client's session state is
// cleared even when the server call fails.
func (e *AuthEndpoint) SignOut(ctx context.Context) error {
	_, err := e.post(ctx, e.baseURL()+"/signout", emptyRequest(), contentTypeXML)

	e.client.authToken = ""
	e.client.siteID = ""
	e.client.siteContentURL = ""
	e.client.userID = ""
	if err != nil {
		return err
	}
	e.client.logger.Info("signed out")
	return nil
}

// SwitchSite moves the signed-in session to the site with the given content
// URL. Requires API version 2.6.
func (e *AuthEndpoint) SwitchSite(ctx context.Context, contentURL string) error {
	if !e.client.SupportsAPIVersion("2.6") {
		return fmt.Errorf("tabclient: switch site requires API version 2.6, client uses %s", e.client.apiVersion)
	}

	body, err := switchSiteRequest(contentURL)
	if err != nil {
		return err
	}
	response, err := e.post(ctx, e.baseURL()+"/switchSite", body, contentTypeXML)
	if err != nil {
		return err
	}

	session, err := parseCredentials(response)
	if err != nil {
		return err
	}
	e.client.authToken = session.Token
	e.client.siteID = session.SiteID
	e.client.siteContentURL = session.SiteContentURL
	e.client.userID = session.UserID
	e.client.logger.Info("switched site", zap.String("site_id", session.SiteID))
	return nil
}
