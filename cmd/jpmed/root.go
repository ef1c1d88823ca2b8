package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shiro46mt/jp-medicine-master/catalog"
	"github.com/shiro46mt/jp-medicine-master/config"
	"github.com/shiro46mt/jp-medicine-master/csvexport"
	"github.com/shiro46mt/jp-medicine-master/data"
	"github.com/shiro46mt/jp-medicine-master/fetcher"
	"github.com/shiro46mt/jp-medicine-master/logging"
	"github.com/shiro46mt/jp-medicine-master/master"
	"github.com/shiro46mt/jp-medicine-master/validation"
	"github.com/spf13/cobra"
)

var (
	svc       *master.Service
	validator = validation.NewDataValidator()

	// newService builds the service once configuration is loaded. Tests replace it.
	newService = func(cfg *config.Config) *master.Service {
		repo := fetcher.NewRepository(cfg.CatalogURL, cfg.DataBaseURL, cfg.HTTPTimeout, fetcher.NewCache(cfg.CacheDir))
		ag := fetcher.NewAGPage(cfg.AGListURL, cfg.HTTPTimeout)
		return master.New(data.NewCatalogStore(), repo, repo, ag)
	}
)

func getRootCmd() *cobra.Command {
	var verbose bool

	rootCmd := &cobra.Command{
		Use:   "jpmed",
		Short: "jpmed reads the Japanese drug-master datasets",
		Long: `jpmed downloads the published Japanese drug-master datasets and builds the
derived lists from them.

Datasets:
  y            レセプト電算処理システム 医薬品マスター
  mhlw_price   薬価基準収載品目リスト
  mhlw_ge      後発医薬品に関する情報
  hot13, hot9  HOTコードマスター

A snapshot is chosen with one of, in order of precedence:
  --date YYYYMMDD   the file valid on that day
  --year Y          the last file of fiscal year Y (April Y to March Y+1)
  --kaitei K        the last file of the price revision of year K
Without any of them the latest file is used.

Configuration is read from the environment (and a .env file): CATALOG_URL,
DATA_BASE_URL, AG_LIST_URL, CACHE_DIR, HTTP_TIMEOUT_SECONDS, LOG_DIR, LOG_LEVEL.`,
		Version:      Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			level := "warn"
			if verbose {
				level = cfg.LogLevel
			}
			// The CLI writes log files only when LOG_DIR is set explicitly
			_ = logging.InitLogger(logging.Options{
				Dir:            os.Getenv("LOG_DIR"),
				Env:            cfg.Env,
				Level:          level,
				Verbose:        verbose,
				RetentionWeeks: cfg.LogRetentionWeeks,
				MaxFileSize:    cfg.MaxLogFileSize,
				Console:        cmd.ErrOrStderr(),
			})

			svc = newService(cfg)
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return logging.Close()
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log progress to stderr")
	rootCmd.Flags().BoolP("version", "V", false, "version for jpmed")

	rootCmd.AddCommand(
		getReadCmd(),
		getYearsCmd(),
		getResolveCmd(),
		getCheckCmd(),
		getExportCmd(),
		getAGCmd(),
		getBSCmd(),
		getFullYearCmd(),
		getAugmentedCodeCmd(),
	)

	return rootCmd
}

// selectorFlags are the temporal flags shared by every dataset command.
type selectorFlags struct {
	date, year, kaitei string
}

func (f *selectorFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.date, "date", "", "snapshot valid on this date (YYYYMMDD)")
	cmd.Flags().StringVar(&f.year, "year", "", "last snapshot of this fiscal year")
	cmd.Flags().StringVar(&f.kaitei, "kaitei", "", "last snapshot of this price revision year")
}

func (f *selectorFlags) selector() (catalog.Selector, error) {
	return catalog.ParseSelector(f.date, f.year, f.kaitei)
}

// outputFlags choose the format and destination of a command's result.
type outputFlags struct {
	format string
	dir    string
}

func (f *outputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.format, "format", "csv", "output format (csv or json)")
	cmd.Flags().StringVarP(&f.dir, "out", "o", "", "save into this directory under the published file name instead of printing")
}

// emit writes a result as CSV through writeCSV or as JSON from value, to stdout or to a file
// named after name in the output directory.
func (f *outputFlags) emit(cmd *cobra.Command, name string, writeCSV func(io.Writer) error, value any) error {
	format, err := validator.ValidateFormat(f.format)
	if err != nil {
		return err
	}

	write := writeCSV
	if format == validation.FormatJSON {
		name = strings.TrimSuffix(name, ".csv") + ".json"
		write = func(w io.Writer) error {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(value)
		}
	}

	if f.dir == "" {
		return write(cmd.OutOrStdout())
	}

	path, err := csvexport.Save(f.dir, name, write)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Saved %s\n", path)
	return nil
}
