// Package main serves live charts of a running simulated dock approach. The
// simulation advances on a wall-clock ticker in the background; HTTP handlers
// render the accumulated frames with go-echarts.
package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"go.viam.com/utils"

	"github.com/mastline/loadclear/controller"
	"github.com/mastline/loadclear/sim"
)

var logger = golog.NewDevelopmentLogger("vizserver")

func main() {
	utils.ContextualMain(mainWithArgs, logger)
}

var defaultPort = 8080

// Arguments for the command.
type Arguments struct {
	Port     utils.NetPortFlag `flag:"0"`
	Strategy string            `flag:"strategy,default=grid,usage=search strategy (grid or beam)"`
	TickMS   int               `flag:"tick-ms,default=50,usage=wall-clock period per control cycle"`
}

// frameStore is a bounded window of the most recent frames.
type frameStore struct {
	mu     sync.Mutex
	frames []controller.Frame
	limit  int
}

func (s *frameStore) add(f *controller.Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, *f)
	if len(s.frames) > s.limit {
		s.frames = s.frames[len(s.frames)-s.limit:]
	}
}

func (s *frameStore) snapshot() []controller.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]controller.Frame, len(s.frames))
	copy(out, s.frames)
	return out
}

func mainWithArgs(ctx context.Context, args []string, logger golog.Logger) error {
	var argsParsed Arguments
	if err := utils.ParseFlags(args, &argsParsed); err != nil {
		return err
	}
	if argsParsed.Port == 0 {
		argsParsed.Port = utils.NetPortFlag(defaultPort)
	}
	if argsParsed.TickMS <= 0 {
		argsParsed.TickMS = 50
	}

	store := &frameStore{limit: 4000}
	kind := controller.KindFromString(argsParsed.Strategy)
	ctrl := controller.New(kind, sim.ControllerConfig(), logger)
	s := sim.New(sim.DefaultConfig(), ctrl, logger)

	simCtx, simCancel := context.WithCancel(ctx)
	defer simCancel()

	clk := clock.New()
	ticker := clk.Ticker(time.Duration(argsParsed.TickMS) * time.Millisecond)
	defer ticker.Stop()

	var activeBackgroundWorkers sync.WaitGroup
	activeBackgroundWorkers.Add(1)
	utils.ManagedGo(func() {
		steps, err := s.Run(func(f *controller.Frame) error {
			if !utils.SelectContextOrWaitChan(simCtx, ticker.C) {
				return simCtx.Err()
			}
			store.add(f)
			return nil
		})
		if simCtx.Err() != nil {
			return
		}
		if err != nil {
			logger.Errorw("simulation failed", "error", err)
			return
		}
		logger.Infow("simulation finished", "cycles", steps)
	}, activeBackgroundWorkers.Done)

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		renderChart(w, clearanceChart(store.snapshot()))
	})
	mux.HandleFunc("/carriage", func(w http.ResponseWriter, _ *http.Request) {
		renderChart(w, carriageChart(store.snapshot()))
	})

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", argsParsed.Port))
	if err != nil {
		return err
	}
	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	activeBackgroundWorkers.Add(1)
	utils.ManagedGo(func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Errorw("failed to shut down server", "error", err)
		}
	}, activeBackgroundWorkers.Done)

	logger.Infow("serving charts", "addr", listener.Addr().String(), "strategy", kind.String())
	err = server.Serve(listener)
	simCancel()
	activeBackgroundWorkers.Wait()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

type renderable interface {
	Render(w io.Writer) error
}

func renderChart(w http.ResponseWriter, chart renderable) {
	var buf bytes.Buffer
	if err := chart.Render(&buf); err != nil {
		http.Error(w, fmt.Sprintf("failed to render chart: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func timeAxis(frames []controller.Frame) []string {
	ts := make([]string, len(frames))
	for i := range frames {
		ts[i] = strconv.FormatFloat(frames[i].Time, 'f', 1, 64)
	}
	return ts
}

func lineSeries(frames []controller.Frame, y func(*controller.Frame) float64) []opts.LineData {
	data := make([]opts.LineData, len(frames))
	for i := range frames {
		data[i] = opts.LineData{Value: y(&frames[i])}
	}
	return data
}

func clearanceChart(frames []controller.Frame) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Clearances", Width: "1200px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Margin-adjusted clearances",
			Subtitle: fmt.Sprintf("frames=%d", len(frames)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	line.SetXAxis(timeAxis(frames)).
		AddSeries("top", lineSeries(frames, func(f *controller.Frame) float64 { return f.Safety.ClearanceTop })).
		AddSeries("bottom", lineSeries(frames, func(f *controller.Frame) float64 { return f.Safety.ClearanceBottom })).
		AddSeries("speed limit", lineSeries(frames, func(f *controller.Frame) float64 { return f.Command.SpeedLimit }))
	return line
}

func carriageChart(frames []controller.Frame) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Carriage", Width: "1200px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Carriage state vs. command",
			Subtitle: fmt.Sprintf("frames=%d", len(frames)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	line.SetXAxis(timeAxis(frames)).
		AddSeries("lift", lineSeries(frames, func(f *controller.Frame) float64 { return f.Input.LiftPos })).
		AddSeries("lift cmd", lineSeries(frames, func(f *controller.Frame) float64 { return f.Command.LiftTarget })).
		AddSeries("tilt", lineSeries(frames, func(f *controller.Frame) float64 { return f.Input.Tilt })).
		AddSeries("tilt cmd", lineSeries(frames, func(f *controller.Frame) float64 { return f.Command.TiltTarget }))
	return line
}
