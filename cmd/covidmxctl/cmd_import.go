package main

import (
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"covidmx/internal/amqp"
	applog "covidmx/internal/log"
	"covidmx/internal/storage"
)

var (
	importYear int
	importFile string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Load an open-data CSV file into a year table",
	Long: `Replace the table of one year with the rows of a Secretaría de Salud
open-data CSV file. Use --file - to read from standard input.

The import runs in a single transaction. When AMQP_URL is set, a
dataset.imported message tells running servers to drop that year.`,
	Args: cobra.NoArgs,
	RunE: runImport,
}

func init() {
	importCmd.Flags().IntVar(&importYear, "year", 0, "year table to replace")
	importCmd.Flags().StringVar(&importFile, "file", "", "CSV file to import, - for stdin")
	_ = importCmd.MarkFlagRequired("year")
	_ = importCmd.MarkFlagRequired("file")
}

func runImport(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	if err := requireSQLite(cfg); err != nil {
		return err
	}
	years, err := cfg.Years()
	if err != nil {
		return err
	}
	if !slices.Contains(years, importYear) {
		return fmt.Errorf("year %d is not in COVID_YEARS %v", importYear, years)
	}

	var in io.Reader = cmd.InOrStdin()
	if importFile != "-" {
		f, err := os.Open(importFile)
		if err != nil {
			return fmt.Errorf("open csv: %w", err)
		}
		defer f.Close()
		in = f
	}

	ctx := cmd.Context()
	db, err := storage.OpenSQLite(ctx, cfg.DBDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	entities, err := storage.LoadEntities()
	if err != nil {
		return err
	}

	opts := []storage.ImporterOption{
		storage.WithBatchSize(cfg.ImportBatchSize),
		storage.WithLogger(logger),
	}
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, servers will not be notified", applog.FieldError, err.Error())
		} else {
			defer client.Close()
			opts = append(opts, storage.WithPublisher(client))
		}
	}

	res, err := storage.NewImporter(db, cfg.TablePrefix, entities, opts...).ImportCSV(ctx, in, importYear)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s rows imported, %s skipped in %s\n",
		res.Table, printer.Sprint(res.Rows), printer.Sprint(res.Skipped), res.Duration.Round(time.Millisecond))
	return nil
}

