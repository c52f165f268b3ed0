package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/boq-cli/internal/aiparse"
	"github.com/sells-group/boq-cli/internal/extract"
	"github.com/sells-group/boq-cli/internal/model"
	"github.com/sells-group/boq-cli/internal/parser"
	"github.com/sells-group/boq-cli/internal/store"
	anthropicpkg "github.com/sells-group/boq-cli/pkg/anthropic"
)

func initStore(ctx context.Context) (store.Store, error) {
	return store.Open(ctx, cfg.Store)
}

// ingestor routes uploads to the tabular or AI-assisted parser. The AI path
// is optional: without an API key, free-text uploads produce an empty result
// with an explanatory error instead of failing the command.
type ingestor struct {
	ai        *aiparse.Parser
	extractor extract.Extractor
}

func newIngestor(limiter *rate.Limiter) (*ingestor, error) {
	extractor, err := extract.NewExtractor(cfg.PDF)
	if err != nil {
		return nil, err
	}

	ing := &ingestor{extractor: extractor}
	if cfg.Anthropic.Key != "" {
		opts := []aiparse.Option{aiparse.WithMaxChars(cfg.Parse.MaxAIChars)}
		if limiter != nil {
			opts = append(opts, aiparse.WithLimiter(limiter))
		}
		client := anthropicpkg.NewClient(cfg.Anthropic.Key)
		ing.ai = aiparse.New(client, cfg.Anthropic.Model, cfg.Anthropic.MaxTokens, opts...)
	}
	return ing, nil
}

// parseInput parses one upload. Structural failures surface inside the
// ParseResult, never as a Go error.
func (ing *ingestor) parseInput(ctx context.Context, in parser.Input) model.ParseResult {
	switch v := in.(type) {
	case parser.Tabular:
		return parser.ParseTabular(v.Data, parser.DetectFormat(v.Filename, v.Data))
	case parser.FreeText:
		if ing.ai == nil {
			return model.EmptyResult("AI-assisted parsing is not configured: set BOQ_ANTHROPIC_KEY")
		}
		return ing.ai.Parse(ctx, v.Text)
	default:
		return model.EmptyResult("unsupported input")
	}
}

// loadInput reads a file and classifies it. PDFs are converted to free text
// up front so the parse step only sees the two input variants.
func (ing *ingestor) loadInput(ctx context.Context, path string) (parser.Input, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read %s", path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		text, err := ing.extractor.ExtractText(ctx, data)
		if err != nil {
			return nil, eris.Wrapf(err, "extract text from %s", path)
		}
		return parser.FreeText{Text: text}, nil
	case ".txt":
		return parser.FreeText{Text: string(data)}, nil
	default:
		return parser.Tabular{Filename: filepath.Base(path), Data: data}, nil
	}
}

// parseFile is loadInput followed by parseInput.
func (ing *ingestor) parseFile(ctx context.Context, path string) (model.ParseResult, error) {
	in, err := ing.loadInput(ctx, path)
	if err != nil {
		return model.ParseResult{}, err
	}
	return ing.parseInput(ctx, in), nil
}
