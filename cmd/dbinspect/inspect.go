package main

import (
	"fmt"
	"time"

	"github.com/koustreak/dbinspect/internal/errs"
	"github.com/koustreak/dbinspect/internal/filestore"
	"github.com/koustreak/dbinspect/internal/filestore/minio"
	"github.com/koustreak/dbinspect/internal/inspect"
	"github.com/koustreak/dbinspect/internal/schema"
	"github.com/spf13/cobra"
)

func (a *app) newInspectCmd() *cobra.Command {
	var (
		format    string
		uploadKey string
		presign   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print the schema of a database",
		Example: `  dbinspect inspect --uri postgres://app@localhost:5432/app --schema public
  dbinspect inspect --uri sqlite:./app.db --schema main --format yaml
  dbinspect inspect --uri mysql://root@localhost/shop --schema shop --upload shop/latest.json --format json
  dbinspect inspect --uri pg://app@localhost/app --schema public --upload app/public.txt --presign 24h`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, ok := schema.ParseFormat(format)
			if !ok {
				return errs.Newf(errs.ErrKindInvalidInput, "unknown format %q (want text, yaml or json)", format)
			}
			if presign != 0 && uploadKey == "" {
				return errs.New(errs.ErrKindInvalidInput, "--presign needs --upload")
			}
			if presign != 0 && (presign < time.Second || presign > filestore.MaxPresignTTL) {
				return errs.Newf(errs.ErrKindInvalidInput, "--presign must be between 1s and %s", filestore.MaxPresignTTL)
			}
			if err := a.cfg.Validate(); err != nil {
				return err
			}

			ctx := cmd.Context()
			snap, err := inspect.InspectSchema(ctx, a.cfg.Database.URI, a.cfg.Database.Schema, a.inspectOptions()...)
			if err != nil {
				return err
			}

			if err := schema.Encode(a.out, snap, f); err != nil {
				return fmt.Errorf("write snapshot: %w", err)
			}

			if uploadKey == "" {
				return nil
			}
			fc := a.cfg.StoreConfig()
			store, err := minio.New(ctx, fc)
			if err != nil {
				return fmt.Errorf("connect to object store: %w", err)
			}
			defer store.Close()

			info, err := filestore.UploadSnapshot(ctx, store, fc.Bucket, uploadKey, snap, f)
			if err != nil {
				return fmt.Errorf("upload snapshot: %w", err)
			}
			a.log.With().
				Str("bucket", fc.Bucket).
				Str("key", info.Key).
				Str("etag", info.ETag).
				Logger().
				Info("snapshot uploaded")

			if presign == 0 {
				return nil
			}
			stat, url, err := filestore.ShareObject(ctx, store, fc.Bucket, info.Key, presign)
			if err != nil {
				return fmt.Errorf("presign snapshot: %w", err)
			}
			a.log.With().
				Str("key", stat.Key).
				Int("bytes", int(stat.Size)).
				Str("expires_in", presign.String()).
				Logger().
				Info("snapshot shared")
			fmt.Fprintln(cmd.ErrOrStderr(), url)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text, yaml or json")
	cmd.Flags().StringVar(&uploadKey, "upload", "", "also upload the snapshot to the configured object store under this key")
	cmd.Flags().DurationVar(&presign, "presign", 0, "after --upload, print a download URL valid for this long to stderr (max 168h)")
	return cmd
}
