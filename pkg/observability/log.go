package observability

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// LogPipelineHooks writes pipeline events to a logger at debug level.
// Failures are logged at error level.
type LogPipelineHooks struct {
	Logger *log.Logger
}

func (h LogPipelineHooks) OnBuildStart(_ context.Context, runID string) {
	h.Logger.Debug("build started", "run", runID)
}

func (h LogPipelineHooks) OnBuildComplete(_ context.Context, runID string, assets, constraints int, d time.Duration, err error) {
	if err != nil {
		h.Logger.Error("build failed", "run", runID, "err", err)
		return
	}
	h.Logger.Debug("build complete", "run", runID, "assets", assets, "constraints", constraints, "took", d)
}

func (h LogPipelineHooks) OnSolveStart(_ context.Context, runID string, assets, constraints int) {
	h.Logger.Debug("solve started", "run", runID, "assets", assets, "constraints", constraints)
}

func (h LogPipelineHooks) OnSolveComplete(_ context.Context, runID, status string, iterations int, d time.Duration, err error) {
	if err != nil {
		h.Logger.Error("solve failed", "run", runID, "err", err)
		return
	}
	h.Logger.Debug("solve complete", "run", runID, "status", status, "iterations", iterations, "took", d)
}

func (h LogPipelineHooks) OnRefineStart(_ context.Context, runID string, violating int) {
	h.Logger.Debug("refine started", "run", runID, "violating", violating)
}

func (h LogPipelineHooks) OnRefineComplete(_ context.Context, runID string, residual int, d time.Duration, err error) {
	if err != nil {
		h.Logger.Error("refine failed", "run", runID, "err", err)
		return
	}
	h.Logger.Debug("refine complete", "run", runID, "residual", residual, "took", d)
}

var _ PipelineHooks = LogPipelineHooks{}
