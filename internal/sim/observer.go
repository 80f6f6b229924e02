package sim

import "log"

// TransitionLogger logs hold-tilt and safety-override edges rather than every
// cycle.
type TransitionLogger struct {
	logger     *log.Logger
	holding    bool
	suppressed bool
	phase      string
}

func NewTransitionLogger(logger *log.Logger) *TransitionLogger {
	return &TransitionLogger{logger: logger}
}

func (l *TransitionLogger) OnStep(s Step) {
	if s.Phase != l.phase {
		l.logger.Printf("t=%.4f phase %s", s.Time, s.Phase)
		l.phase = s.Phase
	}
	if s.State.HoldTiltActive != l.holding {
		if s.State.HoldTiltActive {
			l.logger.Printf("t=%.4f hold-tilt on: value=%.2f counter=%d pitch=%.2f", s.Time, s.State.HoldTiltValue, s.State.HoldCounter, s.Pitch)
		} else {
			l.logger.Printf("t=%.4f hold-tilt off: setpoint=%.3f", s.Time, s.State.Setpoint)
		}
		l.holding = s.State.HoldTiltActive
	}
	if s.Suppressed != l.suppressed {
		if s.Suppressed {
			l.logger.Printf("t=%.4f brake-tilt suppressed: slip=%t accel_diff=%.2f", s.Time, s.WheelSlip, s.AccelDiff)
		} else {
			l.logger.Printf("t=%.4f brake-tilt resumed", s.Time)
		}
		l.suppressed = s.Suppressed
	}
}
