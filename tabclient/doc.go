// Package tabclient provides Go client bindings for the datasources
// resource of a Tableau-style business-intelligence server REST API.
//
// The package is organized around a [Client] handle and per-resource
// endpoints reached through it:
//
//   - [Client.Datasources] queries, publishes, updates, refreshes and
//     downloads datasources, and carries the permissions, tagging and
//     data-quality-warning sub-endpoints.
//
//   - [Client.FileUploads] manages chunked upload sessions used by large
//     publishes and hyper-data updates.
//
//   - [Client.Auth] signs in and out of the server and switches sites.
//
// # Quick Start
//
//	import "github.com/tabtools/tabclient-go/tabclient"
//
//	client, err := tabclient.New(tabclient.ClientConfig{
//	    ServerURL: "https://bi.example.com",
//	    Site:      "Samples",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	err = client.Auth().SignIn(ctx, tabclient.PersonalAccessTokenAuth{
//	    TokenName: "my-token",
//	    Token:     os.Getenv("TAB_TOKEN"),
//	})
//
//	// List datasources on the site
//	items, pagination, err := client.Datasources().List(ctx, nil)
//
//	// Publish a local workbook datasource
//	ds, err := client.Datasources().Publish(ctx,
//	    tabclient.DatasourceItem{ProjectID: projectID},
//	    tabclient.PublishPath("extract.hyper"),
//	    tabclient.Overwrite,
//	)
//
// # Versioned API
//
// Every request is issued against the versioned base path
// {server}/api/{version}/sites/{site}/datasources. The client starts from
// the configured API version and can adopt the server's negotiated version
// with [Client.UseServerVersion]. Features gated on a minimum API version
// are only exercised when [Client.SupportsAPIVersion] reports support.
//
// # Errors
//
// Argument validation always happens before any network call; sentinel
// errors such as [ErrMissingID] and [ErrInvalidPublishMode] identify the
// failure class and work with errors.Is. Server-reported failures decode
// into [*ServerError] with the HTTP status and the server's error code.
package tabclient
