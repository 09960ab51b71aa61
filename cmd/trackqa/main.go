// Command-line entry point for trackqa.
//
// Typical run
// -----------
//
//	trackqa ingest --dir parsed_xmls         # load GPX/XML files into the record store
//	trackqa documents --pretty               # show the chunked documents that get indexed
//	trackqa prompt "How hard was the hike?"  # compose the model prompt without calling it
//	trackqa ask "How hard was the hike?"     # ingest, index, retrieve and ask the model
//
// Settings come from defaults, an optional YAML file (--config), TRACKQA_*
// environment variables (TRACKQA_STORAGE_DRIVER, TRACKQA_LLM_MODEL, ...) and
// flags, in increasing priority.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"trackqa/internal/config"
	"trackqa/internal/logging"
)

var (
	configPath string
	verbose    bool

	v      = config.NewViper()
	cfg    config.Config
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "trackqa",
	Short: "Load GPX track extensions into a database and ask questions about the hike",
	Long: `trackqa extracts track statistics and per-point sensor readings (elevation,
temperature, heart rate, cadence) from namespaced GPX/XML files, stores them in a
relational database, turns them into text documents, indexes them by embedding and
asks a language model about the result.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(v, configPath)
		if err != nil {
			return err
		}
		logger, err = logging.New(cfg.Log, verbose)
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "YAML config file")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Debug logging")
	pf.String("dir", "", "Directory of .xml/.gpx track files (default parsed_xmls)")
	pf.String("driver", "", "Record store driver: sqlite, postgres or clickhouse")
	pf.String("db", "", "SQLite database path (default gpx_data.db)")
	pf.String("index", "", "Vector index kind: memory or sqlite-vec")
	pf.IntP("top-k", "k", 0, "Documents retrieved per question (default 100)")

	// Flags override config and environment only when set.
	for key, flag := range map[string]string{
		"data_dir":            "dir",
		"storage.driver":      "driver",
		"storage.sqlite.path": "db",
		"index.kind":          "index",
		"index.k":             "top-k",
	} {
		if err := v.BindPFlag(key, pf.Lookup(flag)); err != nil {
			panic(err)
		}
	}

	rootCmd.AddCommand(ingestCmd, documentsCmd, promptCmd, askCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
