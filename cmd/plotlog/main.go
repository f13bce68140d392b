// Package main renders a frame log as PNG time-series plots: clearances
// against the safety thresholds, carriage state against its commands, and
// the speed limit.
package main

import (
	"context"
	"image/color"
	"os"
	"path/filepath"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.viam.com/utils"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/mastline/loadclear/framelog"
)

var logger = golog.NewDevelopmentLogger("plotlog")

func main() {
	utils.ContextualMain(mainWithArgs, logger)
}

// Arguments for the command.
type Arguments struct {
	LogPath string `flag:"0,required,usage=frame log to plot"`
	OutDir  string `flag:"out,default=.,usage=directory for PNG output"`
}

var (
	colorTop    = color.RGBA{R: 0xd6, G: 0x28, B: 0x28, A: 0xff}
	colorBottom = color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}
	colorCmd    = color.RGBA{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff}
	colorState  = color.RGBA{R: 0x7f, G: 0x7f, B: 0x7f, A: 0xff}
)

type lineSpec struct {
	name  string
	color color.Color
	pts   plotter.XYs
}

type plotSpec struct {
	file  string
	title string
	yAxis string
	lines []lineSpec
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
	if err := os.MkdirAll(argsParsed.OutDir, 0o755); err != nil {
		return errors.Wrap(err, "failed to create output directory")
	}

	series := func(y func(*framelog.Record) float64) plotter.XYs {
		pts := make(plotter.XYs, len(recs))
		for i := range recs {
			pts[i] = plotter.XY{X: recs[i].Time, Y: y(&recs[i])}
		}
		return pts
	}

	specs := []plotSpec{
		{
			file:  "clearances.png",
			title: "Margin-adjusted clearances",
			yAxis: "Clearance (m)",
			lines: []lineSpec{
				{"top", colorTop, series(func(r *framelog.Record) float64 { return r.ClearanceTop })},
				{"bottom", colorBottom, series(func(r *framelog.Record) float64 { return r.ClearanceBottom })},
			},
		},
		{
			file:  "carriage.png",
			title: "Carriage state vs. command",
			yAxis: "Lift (m) / Tilt (rad)",
			lines: []lineSpec{
				{"lift", colorState, series(func(r *framelog.Record) float64 { return r.Lift })},
				{"lift cmd", colorCmd, series(func(r *framelog.Record) float64 { return r.LiftCmd })},
				{"tilt", colorBottom, series(func(r *framelog.Record) float64 { return r.Tilt })},
				{"tilt cmd", colorTop, series(func(r *framelog.Record) float64 { return r.TiltCmd })},
			},
		},
		{
			file:  "speed.png",
			title: "Commanded speed limit",
			yAxis: "Speed (m/s)",
			lines: []lineSpec{
				{"speed limit", colorCmd, series(func(r *framelog.Record) float64 { return r.SpeedLimit })},
			},
		},
	}

	for _, spec := range specs {
		p := plot.New()
		p.Title.Text = spec.title
		p.X.Label.Text = "Time (s)"
		p.Y.Label.Text = spec.yAxis
		p.Legend.Top = true

		for _, ln := range spec.lines {
			line, err := plotter.NewLine(ln.pts)
			if err != nil {
				return errors.Wrapf(err, "failed to build %q line", ln.name)
			}
			line.Color = ln.color
			line.Width = vg.Points(1)
			p.Add(line)
			p.Legend.Add(ln.name, line)
		}

		out := filepath.Join(argsParsed.OutDir, spec.file)
		if err := p.Save(10*vg.Inch, 4*vg.Inch, out); err != nil {
			return errors.Wrapf(err, "failed to save %q", out)
		}
		logger.Infow("wrote plot", "path", out)
	}

	return nil
}
