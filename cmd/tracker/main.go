// Package main provides the tracker CLI: sync, inspect and snapshot the
// catalog state without running the API server.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/timmy/amtracker/internal/app"
	"github.com/timmy/amtracker/internal/config"
	"github.com/timmy/amtracker/internal/domain"
	"github.com/timmy/amtracker/internal/logger"
	"github.com/timmy/amtracker/internal/service"
)

var version = "0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	ephemeral  bool
	jsonOut    bool
}

// newRootCmd creates the root command for the tracker CLI.
func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:          "tracker",
		Short:        "Sync and inspect the anime/manga catalog",
		Long:         "tracker fetches AniList pages into the local catalog state, merges them with the bundled seed list and manages crawl mode, cursor and snapshots.",
		Version:      version,
		SilenceUsage: true,
	}
	rootCmd.SetVersionTemplate("tracker version {{.Version}}\n")

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", os.Getenv("CONFIG_PATH"), "path to config file")
	flags.BoolVar(&opts.ephemeral, "ephemeral", false, "keep catalog state in memory for this run only")
	flags.BoolVar(&opts.jsonOut, "json", false, "print JSON instead of text")

	rootCmd.AddCommand(
		newSyncCmd(opts),
		newStatusCmd(opts),
		newModeCmd(opts),
		newResetCmd(opts),
		newClearCmd(opts),
		newCatalogCmd(opts),
		newAiringCmd(opts),
		newRecentCmd(opts),
		newLookupCmd(opts),
		newSnapshotCmd(opts),
	)
	return rootCmd
}

// open loads the config and assembles the services. Logs go to stderr so
// stdout only carries command output.
func (o *rootOptions) open(cmd *cobra.Command) (*app.App, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	logCfg := cfg.LoggerConfig()
	logCfg.ServiceName = "amtracker-cli"
	if logCfg.File == "" {
		logCfg.Output = cmd.ErrOrStderr()
	}
	logger.SetDefaultLogger(logger.New(logCfg))

	return app.New(cmd.Context(), cfg, app.Options{Ephemeral: o.ephemeral})
}

// run opens the app, calls fn and closes the app again.
func (o *rootOptions) run(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	a, err := o.open(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(cmd.Context(), a)
}

func (o *rootOptions) print(w io.Writer, v interface{}, text func(io.Writer)) error {
	if o.jsonOut {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(w)
	return nil
}

func newSyncCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Fetch the next pages of both kinds and merge them into the remote list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, a *app.App) error {
				summary, err := a.Sync.SyncMore(ctx)
				if err != nil {
					return err
				}
				return opts.print(cmd.OutOrStdout(), summary, func(w io.Writer) {
					fmt.Fprintf(w, "Synced %d items (anime %d, manga %d) in %s mode\n",
						summary.Fetched, summary.Counts[domain.KindAnime], summary.Counts[domain.KindManga], summary.Mode)
					fmt.Fprintf(w, "Next pages: anime %d, manga %d\n",
						summary.NextCursor[domain.KindAnime], summary.NextCursor[domain.KindManga])
					fmt.Fprintf(w, "Remote catalog: %d items\n", summary.RemoteTotal)
				})
			})
		},
	}
}

func newStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show crawl mode, cursor and the latest sync run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, a *app.App) error {
				status, err := a.Sync.Status(ctx)
				if err != nil {
					return err
				}
				return opts.print(cmd.OutOrStdout(), status, func(w io.Writer) { printStatus(w, status) })
			})
		},
	}
}

func printStatus(w io.Writer, status *service.SyncStatus) {
	fmt.Fprintf(w, "Mode:    %s\n", status.Mode)
	fmt.Fprintf(w, "Cursor:  anime %d, manga %d\n", status.Cursor.Page(domain.KindAnime), status.Cursor.Page(domain.KindManga))
	fmt.Fprintf(w, "Remote:  %d items\n", status.RemoteTotal)
	if run := status.LastRun; run != nil {
		fmt.Fprintf(w, "Last run: %s %s at %s\n", run.ID, run.Status, run.StartedAt.Format(time.RFC3339))
		if run.ErrorLog != "" {
			fmt.Fprintf(w, "  error: %s\n", run.ErrorLog)
		}
	}
}

func newModeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "mode <POPULARITY_DESC|ID_DESC>",
		Short:     "Change the crawl mode; the cursor restarts at page 1",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(domain.SortPopularityDesc), string(domain.SortIDDesc)},
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.Sync.ChangeCrawlMode(ctx, domain.SortMode(args[0])); err != nil {
					return err
				}
				return statusAfter(ctx, cmd, opts, a)
			})
		},
	}
}

func newResetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Restart both kinds at page 1, keeping the remote list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.Sync.ResetCursor(ctx); err != nil {
					return err
				}
				return statusAfter(ctx, cmd, opts, a)
			})
		},
	}
}

func newClearCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Empty the remote list and reset the cursor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.Sync.ClearRemote(ctx); err != nil {
					return err
				}
				return statusAfter(ctx, cmd, opts, a)
			})
		},
	}
}

func statusAfter(ctx context.Context, cmd *cobra.Command, opts *rootOptions, a *app.App) error {
	status, err := a.Sync.Status(ctx)
	if err != nil {
		return err
	}
	return opts.print(cmd.OutOrStdout(), status, func(w io.Writer) { printStatus(w, status) })
}

func newCatalogCmd(opts *rootOptions) *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List the merged catalog (remote items first, then the seed list)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var k domain.Kind
			if kind != "" {
				parsed, err := domain.ParseKind(kind)
				if err != nil {
					return err
				}
				k = parsed
			}
			return opts.run(cmd, func(ctx context.Context, a *app.App) error {
				items, err := a.Catalog.Catalog(ctx, k)
				if err != nil {
					return err
				}
				return opts.print(cmd.OutOrStdout(), items, func(w io.Writer) { printItems(w, items) })
			})
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "restrict to anime or manga")
	return cmd
}

func newRecentCmd(opts *rootOptions) *cobra.Command {
	var kind string
	var page int

	cmd := &cobra.Command{
		Use:   "recent",
		Short: "Show one page of currently trending items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := domain.ParseKind(kind)
			if err != nil {
				return err
			}
			return opts.run(cmd, func(ctx context.Context, a *app.App) error {
				items, err := a.Catalog.Recent(ctx, k, page)
				if err != nil {
					return err
				}
				return opts.print(cmd.OutOrStdout(), items, func(w io.Writer) { printItems(w, items) })
			})
		},
	}
	cmd.Flags().StringVar(&kind, "kind", string(domain.KindAnime), "anime or manga")
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	return cmd
}

func printItems(w io.Writer, items []domain.CatalogItem) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tYEAR\tTITLE")
	for _, it := range items {
		year := "-"
		if it.Year != nil {
			year = strconv.Itoa(*it.Year)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", it.ID, it.Kind.Label(), year, it.Title)
	}
	tw.Flush()
	fmt.Fprintf(w, "%d items\n", len(items))
}

func newAiringCmd(opts *rootOptions) *cobra.Command {
	var lookup bool

	cmd := &cobra.Command{
		Use:   "airing",
		Short: "Show episodes airing soon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, a *app.App) error {
				entries, err := a.Catalog.AiringSoon(ctx, service.AiringOptions{Lookup: lookup})
				if err != nil {
					return err
				}
				return opts.print(cmd.OutOrStdout(), entries, func(w io.Writer) {
					tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
					fmt.Fprintln(tw, "AIRS\tEP\tTITLE\tFROM")
					for _, e := range entries {
						fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n",
							time.Unix(e.AiringAt, 0).Format("Mon 15:04"), e.Episode, e.Media.Title, e.Resolution)
					}
					tw.Flush()
				})
			})
		},
	}
	cmd.Flags().BoolVar(&lookup, "lookup", false, "look up media missing from the local catalog by id")
	return cmd
}

func newLookupCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <id>",
		Short: "Show one item by catalog id, anilist:<n> or a bare AniList id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			return opts.run(cmd, func(ctx context.Context, a *app.App) error {
				var item *domain.CatalogItem
				var err error
				if n, convErr := strconv.Atoi(id); convErr == nil {
					item, err = a.Catalog.Lookup(ctx, n)
				} else {
					item, err = a.Catalog.Item(ctx, id)
				}
				if err != nil {
					return err
				}
				return opts.print(cmd.OutOrStdout(), item, func(w io.Writer) {
					fmt.Fprintf(w, "%s  %s (%s)\n", item.ID, item.Title, item.Kind.Label())
					if item.Year != nil {
						fmt.Fprintf(w, "Year:   %d\n", *item.Year)
					}
					if len(item.Genres) > 0 {
						fmt.Fprintf(w, "Genres: %s\n", strings.Join(item.Genres, ", "))
					}
					if item.Synopsis != "" {
						fmt.Fprintf(w, "\n%s\n", item.Synopsis)
					}
				})
			})
		},
	}
}

func newSnapshotCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Export, import and list catalog state snapshots",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "export",
		Short: "Write the current state to object storage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.EnsureBucket(ctx); err != nil {
					return err
				}
				key, snap, err := a.Snapshots.Export(ctx)
				if err != nil {
					return err
				}
				out := map[string]interface{}{"key": key, "remote_total": len(snap.Remote)}
				return opts.print(cmd.OutOrStdout(), out, func(w io.Writer) {
					fmt.Fprintf(w, "Exported %d remote items to %s\n", len(snap.Remote), key)
				})
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "import <key>",
		Short: "Replace the current state with a stored snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, a *app.App) error {
				snap, err := a.Snapshots.Import(ctx, args[0])
				if err != nil {
					return err
				}
				return opts.print(cmd.OutOrStdout(), snap, func(w io.Writer) {
					fmt.Fprintf(w, "Imported %d remote items (mode %s, exported %s)\n",
						len(snap.Remote), snap.Mode, snap.ExportedAt.Format(time.RFC3339))
				})
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stored snapshots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, a *app.App) error {
				objects, err := a.Snapshots.List(ctx)
				if err != nil {
					return err
				}
				return opts.print(cmd.OutOrStdout(), objects, func(w io.Writer) {
					for _, o := range objects {
						fmt.Fprintf(w, "%s\t%d bytes\n", o.Key, o.Size)
					}
				})
			})
		},
	})

	return cmd
}
