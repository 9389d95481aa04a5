package tabclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const credentialsResponseXML = `<tsResponse xmlns="http://tableau.com/api">
  <credentials token="eIX6mvFsq">
    <site id="6b7179ba-b82b-4f0f-91ed-812074ac5da6" contentUrl="Samples"/>
    <user id="1a96d216-e9b8-497b-a82a-0b899a965e01"/>
  </credentials>
</tsResponse>`

const signInErrorXML = `<tsResponse xmlns="http://tableau.com/api">
  <error code="401001">
    <summary>Signin Error</summary>
    <detail>Error signing in to Tableau Server</detail>
  </error>
</tsResponse>`

const serverInfoResponseXML = `<tsResponse xmlns="http://tableau.com/api">
  <serverInfo>
    <productVersion build="20225.18.1130.2325">2022.5</productVersion>
    <restApiVersion>3.18</restApiVersion>
  </serverInfo>
</tsResponse>`

// newTestClient builds a signed-in client with httpmock installed on its
// transport. Call counters are global, so callers sharing a test binary must
// not run in parallel.
func newTestClient(t *testing.T) *Client {
	t.Helper()
	client, err := New(ClientConfig{ServerURL: testServerURL, APIVersion: testAPIVersion})
	require.NoError(t, err)
	client.authToken = "token"
	client.siteID = testSiteID
	httpmock.ActivateNonDefault(client.HTTPClient())
	httpmock.ZeroCallCounters()
	t.Cleanup(httpmock.DeactivateAndReset)
	return client
}

func TestAuthEndpointTestSuite(t *testing.T) {
	suite.Run(t, new(AuthEndpointTestSuite))
}

type AuthEndpointTestSuite struct {
	suite.Suite
	client *Client
}

func (suite *AuthEndpointTestSuite) SetupSuite() {
	client, err := New(ClientConfig{ServerURL: testServerURL, APIVersion: "3.10"})
	suite.Require().NoError(err)
	suite.client = client
	httpmock.ActivateNonDefault(client.HTTPClient())
}

func (suite *AuthEndpointTestSuite) TearDownSuite() {
	httpmock.DeactivateAndReset()
}

func (suite *AuthEndpointTestSuite) SetupTest() {
	httpmock.Reset()
	httpmock.ZeroCallCounters()
	suite.client.SetAPIVersion("3.10")
	suite.client.authToken = ""
	suite.client.siteID = ""
	suite.client.siteContentURL = ""
	suite.client.userID = ""
}

func (suite *AuthEndpointTestSuite) authURL(action string) string {
	return testServerURL + "/api/" + suite.client.APIVersion() + "/auth/" + action
}

func (suite *AuthEndpointTestSuite) TestSignIn() {
	httpmock.RegisterResponder(http.MethodPost, suite.authURL("signin"),
		func(req *http.Request) (*http.Response, error) {
			body, _ := io.ReadAll(req.Body)
			suite.Contains(string(body), `name="testuser"`)
			suite.Contains(string(body), `password="s3cr3t"`)
			suite.Contains(string(body), `contentUrl="Samples"`)
			return httpmock.NewStringResponse(http.StatusOK, credentialsResponseXML), nil
		})

	err := suite.client.Auth().SignIn(context.Background(), TableauAuth{
		Username: "testuser",
		Password: "s3cr3t",
		Site:     "Samples",
	})
	suite.NoError(err)
	suite.Equal("eIX6mvFsq", suite.client.AuthToken())
	suite.Equal("6b7179ba-b82b-4f0f-91ed-812074ac5da6", suite.client.SiteID())
	suite.Equal("Samples", suite.client.SiteContentURL())
	suite.Equal("1a96d216-e9b8-497b-a82a-0b899a965e01", suite.client.UserID())
}

func (suite *AuthEndpointTestSuite) TestSignInImpersonation() {
	httpmock.RegisterResponder(http.MethodPost, suite.authURL("signin"),
		func(req *http.Request) (*http.Response, error) {
			body, _ := io.ReadAll(req.Body)
			suite.Contains(string(body), `<user id="u9">`)
			return httpmock.NewStringResponse(http.StatusOK, credentialsResponseXML), nil
		})

	err := suite.client.Auth().SignIn(context.Background(), TableauAuth{
		Username:            "testuser",
		Password:            "s3cr3t",
		UserIDToImpersonate: "u9",
	})
	suite.NoError(err)
}

func (suite *AuthEndpointTestSuite) TestSignInPersonalAccessToken() {
	httpmock.RegisterResponder(http.MethodPost, suite.authURL("signin"),
		func(req *http.Request) (*http.Response, error) {
			body, _ := io.ReadAll(req.Body)
			suite.Contains(string(body), `personalAccessTokenName="mytoken"`)
			suite.Contains(string(body), `personalAccessTokenSecret="secret-value"`)
			suite.NotContains(string(body), "password")
			return httpmock.NewStringResponse(http.StatusOK, credentialsResponseXML), nil
		})

	err := suite.client.Auth().SignIn(context.Background(), PersonalAccessTokenAuth{
		TokenName: "mytoken",
		Token:     "secret-value",
	})
	suite.NoError(err)
	suite.Equal("eIX6mvFsq", suite.client.AuthToken())
}

func (suite *AuthEndpointTestSuite) TestSignInRejected() {
	httpmock.RegisterResponder(http.MethodPost, suite.authURL("signin"),
		httpmock.NewStringResponder(http.StatusUnauthorized, signInErrorXML))

	err := suite.client.Auth().SignIn(context.Background(), TableauAuth{Username: "u", Password: "wrong"})

	var signInErr *SignInError
	suite.True(errors.As(err, &signInErr))
	var serverErr *ServerError
	suite.True(errors.As(err, &serverErr))
	suite.Equal("401001", serverErr.Code)
	suite.Empty(suite.client.AuthToken())
}

func (suite *AuthEndpointTestSuite) TestSignInEmptyToken() {
	httpmock.RegisterResponder(http.MethodPost, suite.authURL("signin"),
		httpmock.NewStringResponder(http.StatusOK, `<tsResponse><credentials token=""/></tsResponse>`))

	err := suite.client.Auth().SignIn(context.Background(), TableauAuth{Username: "u", Password: "p"})
	var signInErr *SignInError
	suite.True(errors.As(err, &signInErr))
}

func (suite *AuthEndpointTestSuite) TestSignOut() {
	suite.client.authToken = "token"
	suite.client.siteID = "site1"
	suite.client.userID = "u1"
	httpmock.RegisterResponder(http.MethodPost, suite.authURL("signout"),
		httpmock.NewStringResponder(http.StatusNoContent, ""))

	suite.NoError(suite.client.Auth().SignOut(context.Background()))
	suite.Empty(suite.client.AuthToken())
	suite.Empty(suite.client.SiteID())
	suite.Empty(suite.client.UserID())
}

func (suite *AuthEndpointTestSuite) TestSignOutClearsStateOnFailure() {
	suite.client.authToken = "token"
	httpmock.RegisterResponder(http.MethodPost, suite.authURL("signout"),
		httpmock.NewStringResponder(http.StatusInternalServerError, serverErrorXML))

	err := suite.client.Auth().SignOut(context.Background())
	suite.Error(err)
	suite.Empty(suite.client.AuthToken())
}

func (suite *AuthEndpointTestSuite) TestSwitchSite() {
	suite.client.authToken = "token"
	httpmock.RegisterResponder(http.MethodPost, suite.authURL("switchSite"),
		func(req *http.Request) (*http.Response, error) {
			body, _ := io.ReadAll(req.Body)
			suite.Contains(string(body), `contentUrl="Samples"`)
			return httpmock.NewStringResponse(http.StatusOK, credentialsResponseXML), nil
		})

	suite.NoError(suite.client.Auth().SwitchSite(context.Background(), "Samples"))
	suite.Equal("eIX6mvFsq", suite.client.AuthToken())
	suite.Equal("6b7179ba-b82b-4f0f-91ed-812074ac5da6", suite.client.SiteID())
}

func (suite *AuthEndpointTestSuite) TestSwitchSiteVersionGate() {
	suite.client.SetAPIVersion("2.3")

	err := suite.client.Auth().SwitchSite(context.Background(), "Samples")
	suite.Error(err)
	suite.Zero(httpmock.GetTotalCallCount())
}

func (suite *AuthEndpointTestSuite) TestServerInfo() {
	httpmock.RegisterResponder(http.MethodGet, testServerURL+"/api/3.10/serverinfo",
		httpmock.NewStringResponder(http.StatusOK, serverInfoResponseXML))

	info, err := suite.client.ServerInfo(context.Background())
	suite.NoError(err)
	suite.Equal("2022.5", info.ProductVersion)
	suite.Equal("20225.18.1130.2325", info.BuildNumber)
	suite.Equal("3.18", info.RESTAPIVersion)
}

func (suite *AuthEndpointTestSuite) TestUseServerVersion() {
	httpmock.RegisterResponder(http.MethodGet, testServerURL+"/api/3.10/serverinfo",
		httpmock.NewStringResponder(http.StatusOK, serverInfoResponseXML))

	suite.NoError(suite.client.UseServerVersion(context.Background()))
	suite.Equal("3.18", suite.client.APIVersion())
}

func TestNewRequiresServerURL(t *testing.T) {
	_, err := New(ClientConfig{})
	assert.Error(t, err)
}

func TestNewDefaults(t *testing.T) {
	client, err := New(ClientConfig{ServerURL: testServerURL})
	require.NoError(t, err)
	assert.Equal(t, defaultAPIVersion, client.APIVersion())
	assert.EqualValues(t, defaultFileSizeLimitMB, client.config.FileSizeLimitMB)
	assert.EqualValues(t, defaultChunkSizeMB, client.config.ChunkSizeMB)
}

func TestSupportsAPIVersion(t *testing.T) {
	client, err := New(ClientConfig{ServerURL: testServerURL, APIVersion: "3.15"})
	require.NoError(t, err)

	assert.True(t, client.SupportsAPIVersion("2.3"))
	assert.True(t, client.SupportsAPIVersion("3.15"))
	assert.False(t, client.SupportsAPIVersion("3.16"))

	client.SetAPIVersion("garbage")
	assert.False(t, client.SupportsAPIVersion("2.3"))
}

func TestConfigCredentials(t *testing.T) {
	creds, err := ClientConfig{TokenName: "tn", Token: "tv", Site: "s"}.Credentials()
	require.NoError(t, err)
	assert.IsType(t, PersonalAccessTokenAuth{}, creds)

	creds, err = ClientConfig{Username: "u", Password: "p"}.Credentials()
	require.NoError(t, err)
	assert.IsType(t, TableauAuth{}, creds)

	_, err = ClientConfig{}.Credentials()
	assert.Error(t, err)
}
