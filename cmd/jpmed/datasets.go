package main

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/shiro46mt/jp-medicine-master/catalog"
	"github.com/shiro46mt/jp-medicine-master/csvexport"
	"github.com/shiro46mt/jp-medicine-master/loader"
	"github.com/shiro46mt/jp-medicine-master/validation"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func getReadCmd() *cobra.Command {
	var (
		sel      selectorFlags
		out      outputFlags
		fileInfo bool
	)

	cmd := &cobra.Command{
		Use:   "read <dataset>",
		Short: "Read one dataset snapshot",
		Long: `Read one dataset snapshot, with its numeric columns coerced.

Examples:
  jpmed read y
  jpmed read y --date 20161219
  jpmed read mhlw_price --year 2018 --format json
  jpmed read hot9 -o ./data`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := validator.ValidateKind(args[0])
			if err != nil {
				return err
			}
			s, err := sel.selector()
			if err != nil {
				return err
			}

			t, err := svc.ReadTable(kind, s, loader.Options{IncludeProvenance: fileInfo})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s rows from %s\n", kind, humanize.Comma(int64(t.Len())), t.Source)

			return out.emit(cmd, csvexport.TableFileName(t), func(w io.Writer) error {
				return csvexport.WriteTable(w, t)
			}, t)
		},
	}

	sel.register(cmd)
	out.register(cmd)
	cmd.Flags().BoolVar(&fileInfo, "file-info", false, "add a file column holding the source identifier")
	return cmd
}

func getYearsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "years <dataset>",
		Short: "List the fiscal and revision years of a dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := validator.ValidateKind(args[0])
			if err != nil {
				return err
			}
			years, err := svc.AvailableYears(kind)
			if err != nil {
				return err
			}
			revisions, err := svc.RevisionYears(kind)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "fiscal years:   %s\n", joinYears(years))
			fmt.Fprintf(cmd.OutOrStdout(), "revision years: %s\n", joinYears(revisions))
			return nil
		},
	}
}

func joinYears(years []int) string {
	if len(years) == 0 {
		return "-"
	}
	parts := make([]string, len(years))
	for i, y := range years {
		parts[i] = fmt.Sprint(y)
	}
	return strings.Join(parts, " ")
}

func getResolveCmd() *cobra.Command {
	var sel selectorFlags

	cmd := &cobra.Command{
		Use:   "resolve <dataset>",
		Short: "Print the file a snapshot selection designates, without downloading it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := validator.ValidateKind(args[0])
			if err != nil {
				return err
			}
			s, err := sel.selector()
			if err != nil {
				return err
			}

			entry, err := svc.Resolve(kind, s)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), entry.Path)
			return nil
		},
	}

	sel.register(cmd)
	return cmd
}

func getCheckCmd() *cobra.Command {
	var (
		sel    selectorFlags
		strict bool
	)

	cmd := &cobra.Command{
		Use:   "check <dataset>",
		Short: "Report duplicated or missing keys and empty columns of a dataset snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := validator.ValidateKind(args[0])
			if err != nil {
				return err
			}
			s, err := sel.selector()
			if err != nil {
				return err
			}

			t, err := svc.ReadTable(kind, s, loader.Options{})
			if err != nil {
				return err
			}
			report := validator.ReportTableQuality(t)
			validation.LogReport(report)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return err
			}

			if strict && !report.OK() {
				return fmt.Errorf("%s: quality problems found", t.Source)
			}
			return nil
		},
	}

	sel.register(cmd)
	cmd.Flags().BoolVar(&strict, "strict", false, "exit with an error when a problem is found")
	return cmd
}

func getExportCmd() *cobra.Command {
	var (
		sel      selectorFlags
		dir      string
		jobs     int
		fileInfo bool
	)

	cmd := &cobra.Command{
		Use:   "export <dataset>...",
		Short: "Save several dataset snapshots as CSV files",
		Long: `Save several dataset snapshots as UTF-8 CSV files named <dataset>_<date>.csv.
The same snapshot selection applies to every dataset.

Examples:
  jpmed export y mhlw_price mhlw_ge --year 2019 -o ./data`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var kinds []catalog.Kind
			for _, a := range args {
				kind, err := validator.ValidateKind(a)
				if err != nil {
					return err
				}
				if !slices.Contains(kinds, kind) {
					kinds = append(kinds, kind)
				}
			}
			s, err := sel.selector()
			if err != nil {
				return err
			}

			var mu sync.Mutex
			g, ctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(max(jobs, 1))

			for _, kind := range kinds {
				g.Go(func() error {
					if err := ctx.Err(); err != nil {
						return err
					}
					t, err := svc.ReadTable(kind, s, loader.Options{IncludeProvenance: fileInfo})
					if err != nil {
						return err
					}
					path, err := csvexport.SaveTable(dir, t)
					if err != nil {
						return err
					}

					mu.Lock()
					defer mu.Unlock()
					fmt.Fprintf(cmd.ErrOrStderr(), "Saved %s (%s rows)\n", path, humanize.Comma(int64(t.Len())))
					return nil
				})
			}

			return g.Wait()
		},
	}

	sel.register(cmd)
	cmd.Flags().StringVarP(&dir, "out", "o", ".", "directory to save into")
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 3, "datasets downloaded at the same time")
	cmd.Flags().BoolVar(&fileInfo, "file-info", false, "add a file column holding the source identifier")
	return cmd
}
