// Package framelog reads and writes the per-cycle debug record as a flat CSV
// log. The column order, the fixed 6-decimal formatting and the integer
// encodings of safety level, terrain and worst corner are a frozen external
// contract: replay, plotting and visualization tooling depend on them.
package framelog

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/mastline/loadclear/controller"
)

// Columns is the header row, in contract order.
var Columns = []string{
	"time", "s", "pitch", "pitch_rate", "lift", "tilt", "ceiling_z", "floor_z",
	"rb_x", "rb_z", "rt_x", "rt_z", "fb_x", "fb_z", "ft_x", "ft_z",
	"clearance_top", "clearance_bottom",
	"lift_cmd", "tilt_cmd", "speed_limit",
	"safety_level", "terrain_state", "worst_point_id",
}

// Writer appends frames to a CSV log.
type Writer struct {
	csv         *csv.Writer
	closer      io.Closer
	wroteHeader bool
}

// NewWriter writes the log to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{csv: csv.NewWriter(w)}
}

// Create opens a log file at path, truncating any existing one.
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create frame log %q", path)
	}
	return &Writer{csv: csv.NewWriter(f), closer: f}, nil
}

// WriteFrame appends one record, writing the header first if it has not been
// written yet.
func (w *Writer) WriteFrame(f *controller.Frame) error {
	if !w.wroteHeader {
		if err := w.csv.Write(Columns); err != nil {
			return errors.Wrap(err, "failed to write frame log header")
		}
		w.wroteHeader = true
	}

	in := &f.Input
	ceiling := in.Env.CeilingAt(in.S)
	floor := in.Env.FloorAt(in.S)

	rec := make([]string, 0, len(Columns))
	for _, v := range []float64{
		f.Time, in.S, in.Pitch, in.PitchRate, in.LiftPos, in.Tilt, ceiling, floor,
		f.Corners[0].X, f.Corners[0].Y,
		f.Corners[1].X, f.Corners[1].Y,
		f.Corners[2].X, f.Corners[2].Y,
		f.Corners[3].X, f.Corners[3].Y,
		f.Safety.ClearanceTop, f.Safety.ClearanceBottom,
		f.Command.LiftTarget, f.Command.TiltTarget, f.Command.SpeedLimit,
	} {
		rec = append(rec, strconv.FormatFloat(v, 'f', 6, 64))
	}
	rec = append(rec,
		strconv.Itoa(int(f.Safety.Level)),
		strconv.Itoa(int(in.Terrain)),
		strconv.Itoa(int(f.Safety.WorstCorner)),
	)

	return errors.Wrap(w.csv.Write(rec), "failed to write frame record")
}

// Close flushes buffered records and closes the underlying file, if any.
func (w *Writer) Close() error {
	w.csv.Flush()
	err := errors.Wrap(w.csv.Error(), "failed to flush frame log")
	if w.closer != nil {
		err = multierr.Combine(err, w.closer.Close())
	}
	return err
}
