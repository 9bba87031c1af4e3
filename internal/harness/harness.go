package harness

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/goccy/go-json"

	"github.com/roach88/retailkit/internal/config"
	"github.com/roach88/retailkit/internal/pipeline"
	"github.com/roach88/retailkit/internal/warehouse"
)

// Harness executes scenarios.
type Harness struct {
	logger *slog.Logger
}

// New creates a harness. A nil logger discards.
func New(logger *slog.Logger) *Harness {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Harness{logger: logger}
}

// Run executes a scenario with a discarding logger.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	return New(nil).Run(ctx, scenario)
}

// Run executes a scenario and evaluates its assertions.
//
// Execution flow:
// 1. Load the scenario's config (or the defaults) and apply the seed override
// 2. Run the pipeline with the selected recipes
// 3. Load the run into a fresh in-memory warehouse if final_state is asserted
// 4. Evaluate assertions against the summary and the warehouse
//
// The returned error covers setup and pipeline failures. Assertion failures
// are reported on the Result.
func (h *Harness) Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	cfg, err := h.loadConfig(scenario)
	if err != nil {
		return nil, err
	}

	res, err := pipeline.Run(ctx, cfg, pipeline.Options{
		Recipes: scenario.Recipes,
		Logger:  h.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("run pipeline: %w", err)
	}

	canonical, err := res.Summary.Canonical()
	if err != nil {
		return nil, fmt.Errorf("encode summary: %w", err)
	}
	digest, err := res.Summary.Digest()
	if err != nil {
		return nil, fmt.Errorf("digest summary: %w", err)
	}

	var doc any
	dec := json.NewDecoder(bytes.NewReader(canonical))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode summary: %w", err)
	}

	actx := &AssertionContext{Ctx: ctx, Summary: doc, Digest: digest}

	if scenario.needsWarehouse() {
		st, err := warehouse.Open(":memory:")
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory warehouse: %w", err)
		}
		defer st.Close()

		runID, err := st.WriteRun(ctx, res)
		if err != nil {
			return nil, fmt.Errorf("write run: %w", err)
		}
		actx.Store = st
		actx.RunID = runID
	}

	result := NewResult()
	result.Summary = canonical
	result.Digest = digest
	for _, msg := range EvaluateAssertions(scenario.Assertions, actx) {
		result.AddError(msg)
	}

	h.logger.Debug("scenario finished",
		"scenario", scenario.Name,
		"pass", result.Pass,
		"errors", len(result.Errors),
		"digest", digest)

	return result, nil
}

func (h *Harness) loadConfig(scenario *Scenario) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if scenario.Config != "" {
		cfg, err = config.Load(scenario.Config)
	} else {
		cfg, err = config.Default()
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if scenario.Seed != nil {
		cfg.Generator.Seed = *scenario.Seed
		if err := config.Validate(cfg); err != nil {
			return nil, fmt.Errorf("validate config: %w", err)
		}
	}
	return cfg, nil
}
