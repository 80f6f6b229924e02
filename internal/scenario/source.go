package scenario

import (
	"math/rand"

	"github.com/san-kum/braketilt/internal/braketilt"
)

// Sample is the controller input for one cycle.
type Sample struct {
	Time          float64
	Phase         string
	Motor         braketilt.MotorData
	Incline       braketilt.Incline
	IMU           *braketilt.IMU
	BalanceOffset float32
	WheelSlip     bool
	Reset         bool
	Winddown      bool
}

// Source plays a scenario back one cycle at a time. Noise is drawn from a
// generator seeded at construction, so a given seed always yields the same
// samples as long as At is called in time order.
type Source struct {
	sc        Scenario
	resp      Response
	noise     Noise
	rng       *rand.Rand
	lastPhase int
}

func NewSource(sc Scenario, resp Response, noise Noise, seed int64) *Source {
	return &Source{
		sc:        sc,
		resp:      resp,
		noise:     noise,
		rng:       rand.New(rand.NewSource(seed)),
		lastPhase: -1,
	}
}

// At returns the sample for time t, or false once the scenario has ended.
func (s *Source) At(t float64) (Sample, bool) {
	idx, frac, ok := s.sc.PhaseAt(t)
	if !ok {
		return Sample{}, false
	}
	p := s.sc.Phases[idx]
	entered := idx != s.lastPhase
	s.lastPhase = idx

	erpm := lerp(p.ERPMStart, p.ERPMEnd, frac)
	pitch := lerp(p.PitchStart, p.PitchEnd, frac)
	accel := p.AccelDiff

	if s.noise.Pitch > 0 {
		pitch += s.rng.NormFloat64() * s.noise.Pitch
	}
	if s.noise.AccelDiff > 0 {
		accel += s.rng.NormFloat64() * s.noise.AccelDiff
	}

	sample := Sample{
		Time:  t,
		Phase: p.Name,
		Motor: braketilt.NewMotorData(float32(erpm), p.Braking),
		Incline: braketilt.Incline{
			AccelDiff:   float32(accel),
			OnStepSize:  float32(s.resp.OnStepSize),
			OffStepSize: float32(s.resp.OffStepSize),
		},
		BalanceOffset: float32(p.BalanceOffset),
		WheelSlip:     p.WheelSlip,
		Reset:         p.Reset && entered,
		Winddown:      p.Winddown,
	}
	if !p.NoIMU {
		sample.IMU = &braketilt.IMU{
			Pitch:        float32(pitch),
			BalancePitch: float32(p.BalancePitch),
		}
	}
	return sample, true
}

func lerp(a, b, frac float64) float64 {
	return a + (b-a)*frac
}
