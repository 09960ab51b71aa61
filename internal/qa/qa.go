// Package qa wires the document pipeline, the vector index and the language
// model into question answering over the loaded track.
package qa

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"trackqa/internal/chunker"
	"trackqa/internal/document"
	"trackqa/internal/embedding"
	"trackqa/internal/index"
	"trackqa/internal/llm"
	"trackqa/internal/notify"
	"trackqa/internal/query"
)

// ErrNoDocuments is returned when the store holds nothing to index.
var ErrNoDocuments = errors.New("no documents loaded from the database")

// Service answers questions about the records in Store.
type Service struct {
	Store     document.Reader
	Assembler document.Assembler
	Chunking  chunker.Options
	Index     index.Config
	Engine    embedding.Engine
	Model     llm.Model
	Composer  query.Composer
	Publisher notify.Publisher
	Logger    *zap.Logger
}

// Result is the outcome of one question.
type Result struct {
	Question string
	Prompt   query.Prompt
	Hits     []index.Hit
	Chunks   int
	Answer   string
}

// AnswerEvent is published after a model answer.
type AnswerEvent struct {
	Question     string `json:"question"`
	Model        string `json:"model"`
	AnswerLength int    `json:"answer_length"`
	DurationMS   int64  `json:"duration_ms"`
}

func (s *Service) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

// Documents assembles and chunks the store's contents.
func (s *Service) Documents(ctx context.Context) ([]document.Document, *document.Assembly, error) {
	asm, err := s.Assembler.Assemble(ctx, s.Store)
	if err != nil {
		return nil, nil, err
	}
	s.logger().Info("Assembled documents",
		zap.Int("documents", len(asm.Documents)),
		zap.Int("point_rows", asm.PointRows),
		zap.Bool("stats", asm.Stats != nil))
	if len(asm.Documents) == 0 {
		return nil, &asm, ErrNoDocuments
	}

	chunks, err := chunker.Split(asm.Documents, s.Chunking)
	if err != nil {
		return nil, nil, err
	}
	s.logger().Info("Split documents", zap.Int("chunks", len(chunks)))
	return chunks, &asm, nil
}

// Prompt runs retrieval and composition without calling the model.
func (s *Service) Prompt(ctx context.Context, question string) (*Result, error) {
	chunks, asm, err := s.Documents(ctx)
	if err != nil {
		return nil, err
	}
	if s.Engine == nil {
		return nil, fmt.Errorf("no embedding engine configured")
	}

	idx, err := index.Build(ctx, s.Index, s.Engine, chunks)
	if err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}
	defer idx.Close()
	s.logger().Info("Built index", zap.String("kind", s.Index.Kind), zap.String("engine", s.Engine.Name()))

	if question == "" {
		question = query.DefaultQuestion
	}
	k := s.Index.K
	if k <= 0 {
		k = index.DefaultK
	}
	hits, err := idx.Search(ctx, question, k)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	statsDoc, _, err := index.FindSource(ctx, idx, document.SourceStats)
	if err != nil {
		return nil, fmt.Errorf("find statistics document: %w", err)
	}

	retrieved := make([]document.Document, len(hits))
	for i, h := range hits {
		retrieved[i] = h.Document
	}
	p := s.Composer.Compose(query.Input{
		Question:  question,
		Retrieved: retrieved,
		StatsText: statsDoc.Text,
		Stats:     asm.Stats,
	})

	return &Result{
		Question: question,
		Prompt:   p,
		Hits:     hits,
		Chunks:   len(chunks),
	}, nil
}

// Ask composes a prompt and sends it to the model once.
func (s *Service) Ask(ctx context.Context, question string) (*Result, error) {
	if s.Model == nil {
		return nil, fmt.Errorf("no language model configured")
	}
	res, err := s.Prompt(ctx, question)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	answer, err := s.Model.Generate(ctx, res.Prompt.Text)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.Model.Name(), err)
	}
	res.Answer = answer
	took := time.Since(start)
	s.logger().Info("Model answered",
		zap.String("model", s.Model.Name()),
		zap.Int("answer_length", len(answer)),
		zap.Duration("duration", took))

	if s.Publisher != nil {
		_ = s.Publisher.Publish(ctx, notify.EventAnswerCompleted, AnswerEvent{
			Question:     res.Question,
			Model:        s.Model.Name(),
			AnswerLength: len(answer),
			DurationMS:   took.Milliseconds(),
		})
	}
	return res, nil
}
