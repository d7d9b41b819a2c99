package config

import (
	"fmt"

	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog"

	"github.com/cognicore/commentpulse/pkg/pulse/classifier"
	"github.com/cognicore/commentpulse/pkg/pulse/classifier/llm"
	"github.com/cognicore/commentpulse/pkg/pulse/lexicon"
	"github.com/cognicore/commentpulse/pkg/pulse/stoplist"
	"github.com/cognicore/commentpulse/pkg/pulse/textnorm"
)

// Loader loads all resource files and constructs components
type Loader struct {
	StoplistPath string
	LexiconPath  string
	Classifier   ClassifierConfig
	Logger       zerolog.Logger
}

// NewLoader returns a Loader for the resources named in cfg.
func NewLoader(cfg Config, logger zerolog.Logger) *Loader {
	return &Loader{
		StoplistPath: cfg.Resources.StoplistPath,
		LexiconPath:  cfg.Resources.LexiconPath,
		Classifier:   cfg.Classifier,
		Logger:       logger,
	}
}

// Components holds all loaded components. They are read-only and shared by
// every request.
type Components struct {
	Stoplist   *stoplist.Manager
	Lexicon    *lexicon.Lexicon
	Normalizer *textnorm.Normalizer
	Classifier classifier.Classifier
}

// Load reads all configuration files and returns initialized components
func (l *Loader) Load() (*Components, error) {
	comp := &Components{}

	if l.StoplistPath != "" {
		stops, err := stoplist.LoadYAML(l.StoplistPath)
		if err != nil {
			return nil, fmt.Errorf("load stoplist: %w", err)
		}
		comp.Stoplist = stops
	} else {
		comp.Stoplist = stoplist.English()
	}

	if l.LexiconPath != "" {
		lex, err := lexicon.LoadFromYAML(l.LexiconPath)
		if err != nil {
			return nil, fmt.Errorf("load lexicon: %w", err)
		}
		comp.Lexicon = lex
	} else {
		comp.Lexicon = lexicon.English()
	}

	lexStats := comp.Lexicon.Stats()
	l.Logger.Info().
		Int("stopwords", len(comp.Stoplist.All())).
		Strs("retained", comp.Stoplist.Retained()).
		Int("lemma_groups", lexStats.LemmaGroups).
		Int("lemma_variants", lexStats.TotalVariants).
		Msg("loaded text resources")

	comp.Normalizer = textnorm.New(comp.Stoplist, comp.Lexicon)

	clf, err := l.loadClassifier()
	if err != nil {
		return nil, err
	}
	comp.Classifier = clf

	return comp, nil
}

func (l *Loader) loadClassifier() (classifier.Classifier, error) {
	switch l.Classifier.Backend {
	case BackendLinear, "":
		vec, model, err := classifier.LoadModelFile(l.Classifier.ModelPath)
		if err != nil {
			return nil, fmt.Errorf("load model: %w", err)
		}
		l.Logger.Info().
			Str("path", l.Classifier.ModelPath).
			Int("features", vec.Features()).
			Strs("classes", model.Classes()).
			Msg("loaded linear model")
		return classifier.NewAdapter(vec, model, classifier.WithLogger(l.Logger)), nil

	case BackendLLM:
		cfg := l.Classifier.LLM
		var completer llm.Completer
		switch cfg.Provider {
		case ProviderChat:
			completer = &llm.ChatCompleter{BaseURL: cfg.BaseURL, APIKey: cfg.APIKey, Model: cfg.Model}
		case ProviderResponses, "":
			var opts []option.RequestOption
			if cfg.BaseURL != "" {
				opts = append(opts, option.WithBaseURL(cfg.BaseURL))
			}
			completer = llm.NewResponsesCompleter(cfg.APIKey, cfg.Model, opts...)
		default:
			return nil, invalid(fmt.Sprintf("unknown llm provider %q", cfg.Provider))
		}
		l.Logger.Info().Str("provider", cfg.Provider).Str("model", cfg.Model).Msg("using llm classifier")
		return llm.New(completer, llm.WithBatchSize(cfg.BatchSize), llm.WithLogger(l.Logger)), nil
	}
	return nil, invalid(fmt.Sprintf("unknown classifier backend %q", l.Classifier.Backend))
}
