package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/five82/hostdiff/internal/api"
	"github.com/five82/hostdiff/internal/app"
	"github.com/five82/hostdiff/internal/compare"
	"github.com/five82/hostdiff/internal/diff"
	"github.com/five82/hostdiff/internal/logging"
)

// requestTimeout bounds each one-shot API call.
const requestTimeout = 30 * time.Second

type rootFlags struct {
	configPath string
	apiBind    string
	logLevel   string
	pollEvery  time.Duration
}

func (f *rootFlags) options() app.Options {
	return app.Options{
		ConfigPath: f.configPath,
		APIBind:    f.apiBind,
		LogLevel:   f.logLevel,
		PollEvery:  f.pollEvery,
	}
}

// client builds an API client for the configured api_bind, plus a logger
// writing to stderr at the configured level.
func (f *rootFlags) client(cmd *cobra.Command) (*api.Client, *zap.Logger, error) {
	cfg, err := app.LoadConfig(f.options())
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(logging.Options{Level: cfg.LogLevel, Console: zapcore.AddSync(cmd.ErrOrStderr())})
	if err != nil {
		return nil, nil, err
	}
	client, err := api.NewClient(cfg.APIBind)
	if err != nil {
		return nil, nil, err
	}
	return client, logger, nil
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           "hostdiff",
		Short:         "Compare host service snapshots",
		Long:          "hostdiff stores host scan snapshots and shows what changed between two of them.\nWithout a subcommand it opens the interactive client.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.RunTUI(cmd.Context(), flags.options())
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "config file (default ~/.config/hostdiff/config.toml)")
	pf.StringVar(&flags.apiBind, "api", "", "API address, overrides api_bind")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn, error")
	root.Flags().DurationVar(&flags.pollEvery, "poll", 0, "host list refresh interval (default 5s)")

	root.AddCommand(
		newServeCmd(flags),
		newUploadCmd(flags),
		newHostsCmd(flags),
		newSnapshotsCmd(flags),
		newDiffCmd(flags),
		newLocalDiffCmd(),
	)
	return root
}

func newServeCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the snapshot API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.RunServer(cmd.Context(), flags.options(), cmd.ErrOrStderr())
		},
	}
}

func newUploadCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "upload FILE...",
		Short: "Upload snapshot files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, logger, err := flags.client(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			var failed int
			for _, path := range args {
				resp, err := uploadFile(cmd.Context(), client, path)
				if err != nil {
					failed++
					logger.Error("upload failed", zap.String("path", path), zap.Error(err))
					continue
				}
				status := "stored"
				if !resp.Created {
					status = "already stored"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\n", filepath.Base(path), resp.IP, resp.Timestamp, status)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d uploads failed", failed, len(args))
			}
			return nil
		},
	}
}

func uploadFile(ctx context.Context, client *api.Client, path string) (api.UploadResponse, error) {
	file, err := os.Open(path)
	if err != nil {
		return api.UploadResponse{}, err
	}
	defer func() { _ = file.Close() }()

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	return client.Upload(ctx, filepath.Base(path), file)
}

func newHostsCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "hosts",
		Short: "List hosts with stored snapshots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, _, err := flags.client(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()

			hosts, err := client.ListHosts(ctx)
			if err != nil {
				return err
			}
			return printLines(cmd.OutOrStdout(), hosts)
		},
	}
}

func newSnapshotsCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "snapshots HOST",
		Short: "List snapshot timestamps for a host",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := flags.client(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()

			timestamps, err := client.ListSnapshots(ctx, args[0])
			if err != nil {
				return err
			}
			return printLines(cmd.OutOrStdout(), timestamps)
		},
	}
}

func newDiffCmd(flags *rootFlags) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "diff HOST A B",
		Short: "Show what changed between two stored snapshots",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, logger, err := flags.client(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()

			res, err := compare.New(client, logger).Run(ctx, args[0], args[1], args[2])
			if err != nil {
				return err
			}
			return writeResult(cmd.OutOrStdout(), res, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the diff as JSON")
	return cmd
}

func newLocalDiffCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "local-diff FILE_A FILE_B",
		Short: "Compare two snapshot files without a server",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := app.CompareFiles(args[0], args[1])
			if err != nil {
				return err
			}
			return writeResult(cmd.OutOrStdout(), res, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the diff as JSON")
	return cmd
}

func writeResult(w io.Writer, res diff.Result, asJSON bool) error {
	if !asJSON {
		return res.WriteText(w)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func printLines(w io.Writer, lines []string) error {
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
