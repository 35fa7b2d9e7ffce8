package main

import (
	"context"

	"github.com/koustreak/dbinspect/internal/inspect"
	"github.com/koustreak/dbinspect/internal/schema"
	"github.com/koustreak/dbinspect/internal/server"
	"github.com/spf13/cobra"
)

func (a *app) newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve fresh schema snapshots over HTTP",
		Long: `serve answers GET /v1/schema with a snapshot taken at request time.
The schema can be overridden per request with ?schema=NAME and the
encoding chosen with ?format=text|yaml|json.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.Validate(); err != nil {
				return err
			}

			uri := a.cfg.Database.URI
			if _, err := inspect.ParseKind(uri); err != nil {
				return err
			}
			opts := a.inspectOptions()
			inspectFn := func(ctx context.Context, schemaName string) (*schema.Snapshot, error) {
				return inspect.InspectSchema(ctx, uri, schemaName, opts...)
			}

			srv := server.New(a.cfg.Server, a.cfg.Database.Schema, inspectFn, a.log)
			return srv.Run(cmd.Context())
		},
	}

	cmd.Flags().String("addr", ":8080", "listen address")
	_ = a.v.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	return cmd
}
