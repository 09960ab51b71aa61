package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"trackqa/internal/document"
	"trackqa/internal/embedding"
	"trackqa/internal/llm"
	"trackqa/internal/loader"
	"trackqa/internal/notify"
	"trackqa/internal/qa"
	"trackqa/internal/query"
	"trackqa/internal/storage"
)

var (
	outPath    string
	pretty     bool
	skipIngest bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Replace the record store contents with the tracks in --dir",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		sum, err := ingest(ctx, store)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), sum)
	},
}

var documentsCmd = &cobra.Command{
	Use:   "documents",
	Short: "Print the chunked documents built from the record store as JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		svc := newService(store, nil, nil, nil)
		docs, _, err := svc.Documents(ctx)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), docs)
	},
}

var promptCmd = &cobra.Command{
	Use:   "prompt [question]",
	Short: "Compose the prompt for a question without calling the model",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runQuestion(cmd, args, false)
	},
}

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ingest, index and ask the language model a question about the hike",
	Long: `ask loads every track file in --dir (unless --skip-ingest), builds documents
and an embedding index from the record store, retrieves the closest documents and sends
the composed prompt to the configured model once. Without a question it asks for a
detailed summary of the hike.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runQuestion(cmd, args, true)
	},
}

func init() {
	documentsCmd.Flags().StringVarP(&outPath, "output", "o", "", "Output JSON file (default: stdout)")
	for _, c := range []*cobra.Command{ingestCmd, documentsCmd} {
		c.Flags().BoolVar(&pretty, "pretty", false, "Pretty-print JSON output")
	}
	for _, c := range []*cobra.Command{promptCmd, askCmd} {
		c.Flags().BoolVar(&skipIngest, "skip-ingest", false, "Use the record store as it is")
	}
}

func runQuestion(cmd *cobra.Command, args []string, callModel bool) error {
	ctx := cmd.Context()
	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		question = query.DefaultQuestion
	}

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	pub, err := notify.New(cfg.NATS, logger)
	if err != nil {
		return err
	}
	pub = notify.Logged(pub, logger)
	defer pub.Close()

	if !skipIngest {
		if _, err := ingestWith(ctx, store, pub); err != nil {
			return err
		}
	}

	engine, err := embedding.New(ctx, cfg.Embedding)
	if err != nil {
		return err
	}

	var model llm.Model
	if callModel {
		if model, err = llm.New(ctx, cfg.LLM); err != nil {
			return err
		}
	}

	svc := newService(store, engine, model, pub)
	if !callModel {
		res, err := svc.Prompt(ctx, question)
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), res.Prompt.Text)
		return err
	}

	res, err := svc.Ask(ctx, question)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Query Result:\n%s\n", res.Answer)
	return err
}

func newService(store storage.Store, engine embedding.Engine, model llm.Model, pub notify.Publisher) *qa.Service {
	return &qa.Service{
		Store:     store,
		Assembler: document.Assembler{BatchSize: cfg.Document.BatchSize},
		Chunking:  cfg.Chunker,
		Index:     cfg.Index,
		Engine:    engine,
		Model:     model,
		Composer:  query.Composer{SampleRunes: cfg.Query.SampleRunes},
		Publisher: pub,
		Logger:    logger,
	}
}

func openStore(ctx context.Context) (storage.Store, error) {
	store, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	logger.Debug("Opened record store", zap.String("driver", cfg.Storage.Driver))
	return store, nil
}

func ingest(ctx context.Context, store storage.Store) (loader.Summary, error) {
	pub, err := notify.New(cfg.NATS, logger)
	if err != nil {
		return loader.Summary{}, err
	}
	pub = notify.Logged(pub, logger)
	defer pub.Close()
	return ingestWith(ctx, store, pub)
}

func ingestWith(ctx context.Context, store storage.Store, pub notify.Publisher) (loader.Summary, error) {
	sum, err := loader.New(store, logger).Run(ctx, cfg.DataDir)
	if err != nil {
		return sum, err
	}
	_ = pub.Publish(ctx, notify.EventIngestCompleted, sum)
	return sum, nil
}

func writeJSON(stdout io.Writer, v any) error {
	enc, err := marshalJSON(v, pretty)
	if err != nil {
		return fmt.Errorf("JSON encode error: %w", err)
	}

	w := stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("failed to create output: %w", err)
		}
		defer f.Close()
		w = f
	}

	if _, err := w.Write(enc); err != nil {
		return err
	}
	if w == stdout {
		_, err = w.Write([]byte("\n"))
	}
	return err
}

func marshalJSON(v any, pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(v, "", "  ")
	}
	return json.Marshal(v)
}
