package main

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/shiro46mt/jp-medicine-master/csvexport"
	"github.com/spf13/cobra"
)

func getAGCmd() *cobra.Command {
	var out outputFlags

	cmd := &cobra.Command{
		Use:   "ag",
		Short: "Build the authorized-generic list against the latest drug master",
		Long: `Match the authorized-generic listing of the Nikkei Medical drug dictionary
against the latest drug master. Listing names that cannot be found are reported
on stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := svc.AuthorizedGenerics()
			if err != nil {
				return err
			}
			for _, w := range v.Warnings {
				fmt.Fprintf(cmd.ErrOrStderr(), "not found in drug master (%s): %s\n", w.Side, w.Name)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "AG list %s: %s rows\n", v.Updated, humanize.Comma(int64(len(v.Rows))))

			return out.emit(cmd, csvexport.AGFileName(v.Updated), func(w io.Writer) error {
				return csvexport.WriteAuthorizedGenerics(w, v.Rows)
			}, v)
		},
	}

	out.register(cmd)
	return cmd
}

func getBSCmd() *cobra.Command {
	var (
		sel       selectorFlags
		out       outputFlags
		listYears bool
	)

	cmd := &cobra.Command{
		Use:   "bs",
		Short: "Build the biosimilar list",
		Long: `List biosimilars and their reference products from the generic-drug
information and the drug master of the same snapshot.

Examples:
  jpmed bs
  jpmed bs --year 2021 -o ./data
  jpmed bs --years`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if listYears {
				years, err := svc.BiosimilarYears()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), joinYears(years))
				return nil
			}

			s, err := sel.selector()
			if err != nil {
				return err
			}
			v, err := svc.Biosimilars(s)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "BS list %s: %s rows\n", v.Updated, humanize.Comma(int64(len(v.Rows))))

			return out.emit(cmd, csvexport.BSFileName(v.Updated), func(w io.Writer) error {
				return csvexport.WriteBiosimilars(w, v.Rows)
			}, v)
		},
	}

	sel.register(cmd)
	out.register(cmd)
	cmd.Flags().BoolVar(&listYears, "years", false, "list the supported fiscal years instead")
	return cmd
}

func getFullYearCmd() *cobra.Command {
	var out outputFlags

	cmd := &cobra.Command{
		Use:   "y-all <year>",
		Short: "Drug master of a fiscal year including the rows deleted during it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			year, err := validator.ValidateYear(args[0])
			if err != nil {
				return err
			}
			t, err := svc.FullYearView(year)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "y %d: %s rows\n", year, humanize.Comma(int64(t.Len())))

			return out.emit(cmd, fmt.Sprintf("y_all_%d.csv", year), func(w io.Writer) error {
				return csvexport.WriteTable(w, t)
			}, t)
		},
	}

	out.register(cmd)
	return cmd
}

func getAugmentedCodeCmd() *cobra.Command {
	var (
		sel selectorFlags
		out outputFlags
	)

	cmd := &cobra.Command{
		Use:   "y-with-yj",
		Short: "Drug master with YJ codes attached from the HOT9 master",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := sel.selector()
			if err != nil {
				return err
			}
			t, err := svc.AugmentedCodeView(s)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s rows\n", t.Source, humanize.Comma(int64(t.Len())))

			return out.emit(cmd, csvexport.ViewFileName("y_with_yj", t), func(w io.Writer) error {
				return csvexport.WriteTable(w, t)
			}, t)
		},
	}

	sel.register(cmd)
	out.register(cmd)
	return cmd
}
