package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/riskwatch/riskwatch/internal/logger"
)

var log = logger.ForComponent("pipeline")

// Step is one stage of the daily run. Steps execute in order and the first
// failure aborts the run.
type Step struct {
	Name string
	Run  func(ctx context.Context) error
}

type StepResult struct {
	Name     string        `json:"name"`
	Duration time.Duration `json:"duration"`
}

type RunReport struct {
	RunID      string       `json:"run_id"`
	Steps      []StepResult `json:"steps"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
}

type Pipeline struct {
	steps []Step
}

func New(steps ...Step) *Pipeline {
	return &Pipeline{steps: steps}
}

func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, s := range p.steps {
		names[i] = s.Name
	}
	return names
}

// Run executes every step in order, fail-fast. Runs are idempotent at the
// store level, so a failed run can simply be retried whole.
func (p *Pipeline) Run(ctx context.Context) (*RunReport, error) {
	report := &RunReport{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}

	log.Info("pipeline run starting", "run_id", report.RunID, "steps", len(p.steps))

	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		start := time.Now()
		if err := step.Run(ctx); err != nil {
			log.Error("pipeline step failed", "run_id", report.RunID, "step", step.Name, "error", err)
			return report, fmt.Errorf("step %s: %w", step.Name, err)
		}

		result := StepResult{Name: step.Name, Duration: time.Since(start)}
		report.Steps = append(report.Steps, result)
		log.Info("pipeline step finished", "run_id", report.RunID, "step", step.Name, "duration", result.Duration)
	}

	report.FinishedAt = time.Now().UTC()
	log.Info("pipeline run complete", "run_id", report.RunID, "duration", report.FinishedAt.Sub(report.StartedAt))
	return report, nil
}
