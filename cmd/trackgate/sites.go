package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yanizio/trackgate/internal/config"
	"github.com/yanizio/trackgate/internal/disable"
)

const writeNote = `Writes go straight to the store.  A running serve instance with
cache.enabled keeps its cached decision for the site until it restarts.`

func newSitesCmd() *cobra.Command {
	sitesCmd := &cobra.Command{
		Use:   "sites",
		Short: "Inspect and change which sites are disabled",
	}

	sitesCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List every site with its tracking state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd.Context(), func(ctx context.Context, s *disable.Store) error {
				states, err := s.ListSitesWithState(ctx)
				if err != nil {
					return err
				}
				printSitesTable(cmd.OutOrStdout(), states)
				return nil
			})
		},
	})

	sitesCmd.AddCommand(&cobra.Command{
		Use:   "set [site-id...]",
		Short: "Make the disabled set exactly the given sites (none = enable all)",
		Long:  writeNote,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseSiteIDs(args)
			if err != nil {
				return err
			}
			return withStore(cmd.Context(), func(ctx context.Context, s *disable.Store) error {
				return s.SetDisabledSet(ctx, ids)
			}, cmd.ErrOrStderr())
		},
	})

	sitesCmd.AddCommand(&cobra.Command{
		Use:   "disable <site-id>",
		Short: "Switch tracking off for one site",
		Long:  writeNote,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseSiteIDs(args)
			if err != nil {
				return err
			}
			return withStore(cmd.Context(), func(ctx context.Context, s *disable.Store) error {
				return s.Disable(ctx, ids[0])
			}, cmd.ErrOrStderr())
		},
	})

	sitesCmd.AddCommand(&cobra.Command{
		Use:   "enable <site-id>",
		Short: "Switch tracking back on for one site",
		Long:  writeNote,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseSiteIDs(args)
			if err != nil {
				return err
			}
			return withStore(cmd.Context(), func(ctx context.Context, s *disable.Store) error {
				return s.Enable(ctx, ids[0])
			}, cmd.ErrOrStderr())
		},
	})

	sitesCmd.AddCommand(&cobra.Command{
		Use:   "history <site-id>",
		Short: "Show the disable intervals of one site",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseSiteIDs(args)
			if err != nil {
				return err
			}
			return withStore(cmd.Context(), func(ctx context.Context, s *disable.Store) error {
				recs, err := s.History(ctx, ids[0])
				if err != nil {
					return err
				}
				printHistory(cmd.OutOrStdout(), recs)
				return nil
			})
		},
	})

	sitesCmd.AddCommand(&cobra.Command{
		Use:   "encode <site-id>",
		Short: "Print the public token the gate accepts for a site",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseSiteIDs(args)
			if err != nil {
				return err
			}
			tok, err := encodeSiteID(config.Get().Gate, ids[0])
			if err != nil {
				return err
			}
			cmd.Println(tok)
			return nil
		},
	})

	return sitesCmd
}

// withStore opens the store for one command.  When warn is non-nil the
// command writes, and a stale-cache warning is printed to it on success.
func withStore(ctx context.Context, fn func(context.Context, *disable.Store) error, warn ...io.Writer) error {
	cfg := config.Get()
	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	store, _ := newStore(db, cfg)
	if err := fn(ctx, store); err != nil {
		return err
	}
	for _, w := range warn {
		warnCachedServers(w, cfg.Cache)
	}
	return nil
}

// warnCachedServers tells the operator that serving instances with a
// decision cache will not see the write until they restart.
func warnCachedServers(w io.Writer, c config.Cache) {
	if !c.Enabled {
		return
	}
	zap.S().Warnw("store written while cache.enabled is set; running servers keep cached decisions until restart")
	fmt.Fprintln(w, "warning: cache.enabled is set; running serve instances keep their cached decision until restart")
}

func encodeSiteID(cfg config.Gate, siteID int64) (string, error) {
	if cfg.Decoder != "sqids" {
		return strconv.FormatInt(siteID, 10), nil
	}
	dec, err := newDecoder(cfg)
	if err != nil {
		return "", err
	}
	enc, ok := dec.(interface{ Encode(int64) (string, error) })
	if !ok {
		return "", fmt.Errorf("decoder %q cannot encode", cfg.Decoder)
	}
	return enc.Encode(siteID)
}

func parseSiteIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, a := range args {
		id, err := strconv.ParseInt(a, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid site id %q", a)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func printSitesTable(w io.Writer, states []disable.SiteState) {
	headers := []string{"ID", "Label", "URL", "Tracking"}
	rows := make([][]string, 0, len(states))
	for _, st := range states {
		tracking := "on"
		if st.Disabled {
			tracking = "DISABLED"
		}
		rows = append(rows, []string{strconv.FormatInt(st.SiteID, 10), st.Label, st.URL, tracking})
	}
	printTable(w, headers, rows)
}

func printHistory(w io.Writer, recs []disable.Record) {
	headers := []string{"ID", "Disabled at", "Enabled at", "State"}
	rows := make([][]string, 0, len(recs))
	for _, r := range recs {
		enabled := "-"
		if r.DeletedAt != nil {
			enabled = r.DeletedAt.UTC().Format(time.RFC3339)
		}
		rows = append(rows, []string{
			strconv.FormatInt(r.ID, 10),
			r.CreatedAt.UTC().Format(time.RFC3339),
			enabled,
			r.State().String(),
		})
	}
	printTable(w, headers, rows)
}

func printTable(w io.Writer, headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if l := len(cell); l > widths[i] {
				widths[i] = l
			}
		}
	}

	rule := func(left, mid, right string) {
		fmt.Fprint(w, left)
		for i, wd := range widths {
			if i > 0 {
				fmt.Fprint(w, mid)
			}
			fmt.Fprint(w, strings.Repeat("─", wd+2))
		}
		fmt.Fprintln(w, right)
	}
	line := func(cells []string) {
		for i, c := range cells {
			fmt.Fprintf(w, "│ %-*s ", widths[i], c)
		}
		fmt.Fprintln(w, "│")
	}

	rule("┌", "┬", "┐")
	line(headers)
	rule("├", "┼", "┤")
	for _, row := range rows {
		line(row)
	}
	rule("└", "┴", "┘")
}
