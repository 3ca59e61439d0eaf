package pipeline

import (
	"context"
	"log/slog"

	"github.com/nao1215/bookscrape/internal/model"
)

// Step is one stage of a category pipeline.
type Step interface {
	// Do executes the step. Problems with individual URLs are recorded in
	// result and do not produce an error; an error means the category
	// cannot be processed further.
	Do(ctx context.Context, result *model.CategoryResult) error

	// Name returns the step's name for logging.
	Name() string
}

// Pipeline executes steps in order.
type Pipeline struct {
	steps []Step

	logger *slog.Logger

	// continueOnError keeps later steps running after a failure.
	continueOnError bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError configures the pipeline to run the remaining steps
// after one fails. The failure is still recorded in the result.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates an empty Pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddStep appends a step to the pipeline.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs the steps in sequence. Cancellation is checked before each
// step; a running step is expected to watch ctx itself. The result's finish
// time is stamped on return.
//
// It returns the first step error unless WithContinueOnError is set, or
// ctx.Err() when cancelled between steps.
func (p *Pipeline) Execute(ctx context.Context, result *model.CategoryResult) error {
	defer result.Finish()

	slug := result.Category.Slug
	for _, step := range p.steps {
		select {
		case <-ctx.Done():
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"category", slug,
				"reason", ctx.Err(),
			)
			result.AddFailure(step.Name(), "", ctx.Err())
			return ctx.Err()
		default:
		}

		p.logger.Debug("executing step",
			"step", step.Name(),
			"category", slug,
		)

		if err := step.Do(ctx, result); err != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"category", slug,
				"error", err,
			)
			result.AddFailure(step.Name(), "", err)

			if !p.continueOnError {
				return err
			}
			continue
		}

		result.AddStep(step.Name())
	}

	return nil
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
