package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/san-kum/braketilt/internal/sim"
)

var traceHeader = []string{
	"time", "phase", "erpm", "braking", "accel_diff", "balance_offset",
	"pitch", "balance_pitch", "has_imu", "wheel_slip", "winddown", "reset", "suppressed",
	"factor", "target", "setpoint", "hold_active", "hold_value", "hold_counter",
	"pitch_timer", "pitch_at_trigger", "pitch_drop",
}

func f32(v float32) string { return strconv.FormatFloat(float64(v), 'g', -1, 32) }

// WriteTrace writes one CSV row per step. Floats use the shortest form that
// reads back to the same value.
func WriteTrace(w io.Writer, steps []sim.Step) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(traceHeader); err != nil {
		return err
	}

	for _, s := range steps {
		st := s.State
		row := []string{
			strconv.FormatFloat(s.Time, 'g', -1, 64),
			s.Phase,
			f32(s.ERPM),
			strconv.FormatBool(s.Braking),
			f32(s.AccelDiff),
			f32(s.BalanceOffset),
			f32(s.Pitch),
			f32(s.BalancePitch),
			strconv.FormatBool(s.HasIMU),
			strconv.FormatBool(s.WheelSlip),
			strconv.FormatBool(s.Winddown),
			strconv.FormatBool(s.Reset),
			strconv.FormatBool(s.Suppressed),
			f32(st.Factor),
			f32(st.Target),
			f32(st.Setpoint),
			strconv.FormatBool(st.HoldTiltActive),
			f32(st.HoldTiltValue),
			strconv.Itoa(st.HoldCounter),
			f32(st.PitchTimer),
			f32(st.PitchAtTrigger),
			strconv.FormatBool(st.PitchDropDetected),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

type rowParser struct {
	rec []string
	err error
}

func (p *rowParser) float(i int) float32 {
	if p.err != nil {
		return 0
	}
	v, err := strconv.ParseFloat(p.rec[i], 32)
	if err != nil {
		p.err = fmt.Errorf("column %s: %w", traceHeader[i], err)
	}
	return float32(v)
}

func (p *rowParser) flag(i int) bool {
	if p.err != nil {
		return false
	}
	v, err := strconv.ParseBool(p.rec[i])
	if err != nil {
		p.err = fmt.Errorf("column %s: %w", traceHeader[i], err)
	}
	return v
}

func (p *rowParser) count(i int) int {
	if p.err != nil {
		return 0
	}
	v, err := strconv.Atoi(p.rec[i])
	if err != nil {
		p.err = fmt.Errorf("column %s: %w", traceHeader[i], err)
	}
	return v
}

// ReadTrace parses a trace written by WriteTrace.
func ReadTrace(r io.Reader) ([]sim.Step, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(traceHeader)

	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []sim.Step{}, nil
	}

	steps := make([]sim.Step, 0, len(records)-1)
	for n, rec := range records[1:] {
		t, err := strconv.ParseFloat(rec[0], 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: time: %w", n+1, err)
		}

		p := &rowParser{rec: rec}
		s := sim.Step{
			Time:          t,
			Phase:         rec[1],
			ERPM:          p.float(2),
			Braking:       p.flag(3),
			AccelDiff:     p.float(4),
			BalanceOffset: p.float(5),
			Pitch:         p.float(6),
			BalancePitch:  p.float(7),
			HasIMU:        p.flag(8),
			WheelSlip:     p.flag(9),
			Winddown:      p.flag(10),
			Reset:         p.flag(11),
			Suppressed:    p.flag(12),
		}
		s.State.Factor = p.float(13)
		s.State.Target = p.float(14)
		s.State.Setpoint = p.float(15)
		s.State.HoldTiltActive = p.flag(16)
		s.State.HoldTiltValue = p.float(17)
		s.State.HoldCounter = p.count(18)
		s.State.PitchTimer = p.float(19)
		s.State.PitchAtTrigger = p.float(20)
		s.State.PitchDropDetected = p.flag(21)
		if p.err != nil {
			return nil, fmt.Errorf("row %d: %w", n+1, p.err)
		}
		steps = append(steps, s)
	}
	return steps, nil
}
