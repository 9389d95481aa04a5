// Command tabctl is a small CLI over the tabclient package: it signs in to
// a business-intelligence server and lists, downloads, publishes, refreshes
// and deletes datasources on a site.
//
// Connection settings come from a YAML config file and/or TAB_* environment
// variables (see tabclient.ClientConfig); secrets are environment-only.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tabtools/tabclient-go/tabclient"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type app struct {
	configPath string
	verbose    bool

	client *tabclient.Client
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "tabctl",
		Short:         "Manage datasources on a business-intelligence server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.connect(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.client.Auth().SignOut(cmd.Context())
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to YAML config (env-only when empty)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newListCmd(a),
		newGetCmd(a),
		newDownloadCmd(a),
		newPublishCmd(a),
		newDeleteCmd(a),
		newRefreshCmd(a),
	)
	return root
}

// connect loads config, builds the client, negotiates the server's API
// version and signs in.
func (a *app) connect(ctx context.Context) error {
	cfg, err := tabclient.LoadConfig(a.configPath)
	if err != nil {
		return err
	}

	logConfig := zap.NewDevelopmentConfig()
	if !a.verbose {
		logConfig.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	if a.logger, err = logConfig.Build(); err != nil {
		return err
	}
	cfg.Logger = a.logger

	if a.client, err = tabclient.New(cfg); err != nil {
		return err
	}
	if err := a.client.UseServerVersion(ctx); err != nil {
		return err
	}

	creds, err := cfg.Credentials()
	if err != nil {
		return err
	}
	return a.client.Auth().SignIn(ctx, creds)
}

func newListCmd(a *app) *cobra.Command {
	var pageSize int
	var certifiedOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List datasources on the site",
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := &tabclient.RequestOptions{PageSize: pageSize}
			if certifiedOnly {
				opts.Filters = append(opts.Filters, tabclient.Filter{
					Field:    tabclient.FieldIsCertified,
					Operator: tabclient.OperatorEquals,
					Value:    "true",
				})
			}
			items, pagination, err := a.client.Datasources().List(cmd.Context(), opts)
			if err != nil {
				return err
			}
			for _, item := range items {
				fmt.Printf("%s\t%s\t%s\n", item.ID, item.Name, item.ProjectName)
			}
			fmt.Printf("page %d of %d total\n", pagination.PageNumber, pagination.TotalAvailable)
			return nil
		},
	}
	cmd.Flags().IntVar(&pageSize, "page-size", 0, "items per page (1-1000)")
	cmd.Flags().BoolVar(&certifiedOnly, "certified", false, "only certified datasources")
	return cmd
}

func newGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <datasource-id>",
		Short: "Show one datasource",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			item, err := a.client.Datasources().Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("id:\t%s\nname:\t%s\ntype:\t%s\nproject:\t%s\nowner:\t%s\ncertified:\t%t\ntags:\t%v\n",
				item.ID, item.Name, item.Type, item.ProjectName, item.OwnerID, item.IsCertified, item.Tags)
			return nil
		},
	}
}

func newDownloadCmd(a *app) *cobra.Command {
	var output string
	var noExtract bool
	var revision string

	cmd := &cobra.Command{
		Use:   "download <datasource-id>",
		Short: "Download a datasource's content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts []tabclient.DownloadOption
			if output != "" {
				opts = append(opts, tabclient.DownloadTo(output))
			}
			if noExtract {
				opts = append(opts, tabclient.WithoutExtract())
			}
			path, err := a.client.Datasources().DownloadRevision(cmd.Context(), args[0], revision, opts...)
			if err != nil {
				return err
			}
			fmt.Println(path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "destination file or directory")
	cmd.Flags().BoolVar(&noExtract, "no-extract", false, "leave the extract out of the download")
	cmd.Flags().StringVar(&revision, "revision", "", "revision number (current content when empty)")
	return cmd
}

func newPublishCmd(a *app) *cobra.Command {
	var name, projectID string
	var overwrite, asJob bool

	cmd := &cobra.Command{
		Use:   "publish <file>",
		Short: "Publish a datasource file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			item := tabclient.DatasourceItem{Name: name, ProjectID: projectID}
			mode := tabclient.CreateNew
			if overwrite {
				mode = tabclient.Overwrite
			}
			source := tabclient.PublishPath(args[0])

			if asJob {
				job, err := a.client.Datasources().PublishAsJob(cmd.Context(), item, source, mode)
				if err != nil {
					return err
				}
				fmt.Printf("job %s started\n", job.ID)
				return nil
			}
			published, err := a.client.Datasources().Publish(cmd.Context(), item, source, mode)
			if err != nil {
				return err
			}
			fmt.Printf("published %s (%s)\n", published.Name, published.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "datasource name (defaults to the filename)")
	cmd.Flags().StringVar(&projectID, "project", "", "target project id")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "overwrite an existing datasource")
	cmd.Flags().BoolVar(&asJob, "as-job", false, "publish asynchronously")
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <datasource-id>",
		Short: "Delete a datasource",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.client.Datasources().Delete(cmd.Context(), args[0])
		},
	}
}

func newRefreshCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh <datasource-id>",
		Short: "Start an extract refresh",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := a.client.Datasources().Refresh(cmd.Context(), tabclient.ID(args[0]))
			if err != nil {
				return err
			}
			fmt.Printf("job %s started\n", job.ID)
			return nil
		},
	}
}
