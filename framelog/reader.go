package framelog

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/pkg/errors"

	"github.com/mastline/loadclear/controller"
	"github.com/mastline/loadclear/geometry"
)

// Record is one parsed row of a frame log.
type Record struct {
	Time      float64
	S         float64
	Pitch     float64
	PitchRate float64
	Lift      float64
	Tilt      float64
	CeilingZ  float64
	FloorZ    float64

	Corners geometry.CornerPoints

	ClearanceTop    float64
	ClearanceBottom float64

	LiftCmd    float64
	TiltCmd    float64
	SpeedLimit float64

	SafetyLevel  controller.SafetyLevel
	TerrainState controller.TerrainState
	WorstCorner  geometry.CornerID
}

// ReadAll parses a complete frame log, validating the header against the
// column contract.
func ReadAll(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Columns)

	header, err := cr.Read()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read frame log header")
	}
	for i, name := range Columns {
		if header[i] != name {
			return nil, errors.Errorf("frame log column %d is %q; expected %q", i, header[i], name)
		}
	}

	var recs []Record
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return recs, nil
		}
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read frame log line %d", line)
		}
		rec, err := parseRecord(row)
		if err != nil {
			return nil, errors.Wrapf(err, "bad frame log line %d", line)
		}
		recs = append(recs, rec)
	}
}

// Open reads a complete frame log from a file.
func Open(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open frame log %q", path)
	}
	defer f.Close()
	return ReadAll(f)
}

func parseRecord(row []string) (Record, error) {
	var rec Record
	fields := []*float64{
		&rec.Time, &rec.S, &rec.Pitch, &rec.PitchRate, &rec.Lift, &rec.Tilt,
		&rec.CeilingZ, &rec.FloorZ,
		&rec.Corners[0].X, &rec.Corners[0].Y,
		&rec.Corners[1].X, &rec.Corners[1].Y,
		&rec.Corners[2].X, &rec.Corners[2].Y,
		&rec.Corners[3].X, &rec.Corners[3].Y,
		&rec.ClearanceTop, &rec.ClearanceBottom,
		&rec.LiftCmd, &rec.TiltCmd, &rec.SpeedLimit,
	}
	for i, dst := range fields {
		v, err := strconv.ParseFloat(row[i], 64)
		if err != nil {
			return rec, errors.Wrapf(err, "column %q", Columns[i])
		}
		*dst = v
	}

	ints := make([]int, 3)
	for i := range ints {
		col := len(fields) + i
		v, err := strconv.Atoi(row[col])
		if err != nil {
			return rec, errors.Wrapf(err, "column %q", Columns[col])
		}
		ints[i] = v
	}
	rec.SafetyLevel = controller.SafetyLevel(ints[0])
	rec.TerrainState = controller.TerrainState(ints[1])
	rec.WorstCorner = geometry.CornerID(ints[2])
	return rec, nil
}
