// Package main runs a simulated dock approach under the clearance controller
// and writes the resulting frame log.
package main

import (
	"context"

	"github.com/edaniels/golog"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"github.com/mastline/loadclear/controller"
	"github.com/mastline/loadclear/framelog"
	"github.com/mastline/loadclear/sim"
)

var logger = golog.NewDevelopmentLogger("simulate")

func main() {
	utils.ContextualMain(mainWithArgs, logger)
}

// Arguments for the command.
type Arguments struct {
	OutPath  string `flag:"out,default=/tmp/loadclear_log.csv,usage=frame log output path"`
	Strategy string `flag:"strategy,default=grid,usage=search strategy (grid or beam)"`
	Beam     bool   `flag:"beam,usage=shorthand for -strategy beam"`
}

func mainWithArgs(ctx context.Context, args []string, logger golog.Logger) (err error) {
	var argsParsed Arguments
	if err := utils.ParseFlags(args, &argsParsed); err != nil {
		return err
	}

	simCfg := sim.DefaultConfig()

	kind := controller.KindFromString(argsParsed.Strategy)
	if argsParsed.Beam {
		kind = controller.KindBeamSearch
	}
	ctrl := controller.New(kind, sim.ControllerConfig(), logger)

	w, err := framelog.Create(argsParsed.OutPath)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, w.Close())
	}()

	s := sim.New(simCfg, ctrl, logger)
	steps, err := s.Run(func(f *controller.Frame) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return w.WriteFrame(f)
	})
	if err != nil {
		return err
	}

	logger.Infow("simulation complete",
		"strategy", kind.String(),
		"cycles", steps,
		"log", argsParsed.OutPath)
	return nil
}
