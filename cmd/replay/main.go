// Package main replays a recorded frame log through a controller and reports
// summary statistics, including how far the replayed commands drift from the
// recorded ones.
package main

import (
	"context"

	"github.com/edaniels/golog"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"github.com/mastline/loadclear/controller"
	"github.com/mastline/loadclear/framelog"
	"github.com/mastline/loadclear/geometry"
	"github.com/mastline/loadclear/sim"
)

var logger = golog.NewDevelopmentLogger("replay")

func main() {
	utils.ContextualMain(mainWithArgs, logger)
}

// Arguments for the command.
type Arguments struct {
	LogPath  string `flag:"0,required,usage=frame log to replay"`
	Strategy string `flag:"strategy,default=grid,usage=search strategy (grid or beam)"`
}

func mainWithArgs(ctx context.Context, args []string, logger golog.Logger) error {
	var argsParsed Arguments
	if err := utils.ParseFlags(args, &argsParsed); err != nil {
		return err
	}

	recs, err := framelog.Open(argsParsed.LogPath)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		return errors.Errorf("frame log %q has no records", argsParsed.LogPath)
	}

	// The rack and vehicle geometry is not part of the log contract; assume
	// the standard simulated load.
	simCfg := sim.DefaultConfig()
	rack := simCfg.Rack
	vehicle := geometry.VehicleParams{MastPivotHeight: simCfg.Vehicle.MastPivotHeight}

	kind := controller.KindFromString(argsParsed.Strategy)
	ctrl := controller.New(kind, sim.ControllerConfig(), logger)
	frames := framelog.Replay(ctrl, recs, rack, vehicle)

	minClear := make([]float64, len(recs))
	speeds := make([]float64, len(recs))
	liftDrift := make([]float64, len(frames))
	levels := map[controller.SafetyLevel]int{}
	for i, rec := range recs {
		minClear[i] = rec.ClearanceTop
		if rec.ClearanceBottom < minClear[i] {
			minClear[i] = rec.ClearanceBottom
		}
		speeds[i] = rec.SpeedLimit
		levels[rec.SafetyLevel]++
		liftDrift[i] = frames[i].Command.LiftTarget - rec.LiftCmd
	}

	if err := logSummary(logger, "recorded min clearance (m)", minClear); err != nil {
		return err
	}
	if err := logSummary(logger, "recorded speed limit (m/s)", speeds); err != nil {
		return err
	}
	if err := logSummary(logger, "replayed lift command drift (m)", liftDrift); err != nil {
		return err
	}

	logger.Infow("safety level counts",
		"ok", levels[controller.SafetyOK],
		"warn", levels[controller.SafetyWarn],
		"stop", levels[controller.SafetyStop],
		"degraded", levels[controller.SafetyDegraded])
	logger.Infow("replay complete",
		"strategy", kind.String(),
		"records", len(recs),
		"distance", recs[len(recs)-1].S-recs[0].S)
	return nil
}

func logSummary(logger golog.Logger, name string, data []float64) error {
	mean, err := stats.Mean(data)
	if err != nil {
		return errors.Wrapf(err, "failed to summarize %s", name)
	}
	min, err := stats.Min(data)
	if err != nil {
		return err
	}
	max, err := stats.Max(data)
	if err != nil {
		return err
	}
	p95, err := stats.Percentile(data, 95)
	if err != nil {
		return err
	}
	logger.Infow(name, "mean", mean, "min", min, "max", max, "p95", p95)
	return nil
}
