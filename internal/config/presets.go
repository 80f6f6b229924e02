package config

import (
	"sort"

	"github.com/san-kum/braketilt/internal/scenario"
)

func cruise(d float64) scenario.Phase {
	return scenario.Phase{Name: "cruise", Duration: d, ERPMStart: 6000, ERPMEnd: 6000, PitchStart: 1, PitchEnd: 1, BalancePitch: 1}
}

func brake(name string, d, erpmStart, erpmEnd float64) scenario.Phase {
	return scenario.Phase{
		Name: name, Duration: d, ERPMStart: erpmStart, ERPMEnd: erpmEnd,
		Braking: true, BalanceOffset: -4, PitchStart: 1.5, PitchEnd: 1.5, BalancePitch: 1.5,
	}
}

func coast(d, erpmStart float64) scenario.Phase {
	return scenario.Phase{Name: "coast", Duration: d, ERPMStart: erpmStart, ERPMEnd: 0, PitchStart: 1, PitchEnd: 0}
}

func flatStop() []scenario.Phase {
	return []scenario.Phase{
		cruise(1),
		brake("brake", 2, 6000, 1500),
		coast(1, 1500),
	}
}

func preset(name, description string, phases ...scenario.Phase) *Config {
	cfg := DefaultConfig()
	cfg.Name = name
	cfg.Description = description
	cfg.Phases = phases
	return cfg
}

var Presets = map[string]*Config{
	"flat-stop": preset("flat-stop", "level-ground stop from cruise", flatStop()...),
	"panic-stop": func() *Config {
		dive := brake("nose-dive", 0.1, 5000, 4800)
		dive.PitchStart, dive.PitchEnd, dive.BalancePitch = 1.5, -3, 0
		hold := brake("hold", 1, 4800, 2500)
		hold.PitchStart, hold.PitchEnd, hold.BalancePitch = -3, 0, 0
		return preset("panic-stop", "hard stop with a sudden nose dive",
			cruise(0.5), brake("brake", 0.3, 6000, 5000), dive, hold, coast(1, 2500))
	}(),
	"downhill-stop": func() *Config {
		mild := brake("mild-descent", 1, 6000, 4500)
		mild.AccelDiff = -1.5
		steep := brake("steep-descent", 1, 4500, 3000)
		steep.AccelDiff = -3
		return preset("downhill-stop", "braking down a mild then steep slope",
			cruise(0.5), mild, steep, coast(1, 3000))
	}(),
	"slip-stop": func() *Config {
		slip := brake("slip", 0.2, 4500, 4300)
		slip.WheelSlip = true
		return preset("slip-stop", "braking interrupted by wheel slip",
			cruise(0.5), brake("brake", 0.8, 6000, 4500), slip, brake("brake", 1, 4300, 1500), coast(1, 1500))
	}(),
	"incline-stop": func() *Config {
		climb := brake("climb", 1.5, 6000, 2500)
		climb.AccelDiff = 5
		return preset("incline-stop", "braking while climbing past the incline threshold",
			cruise(0.5), climb, coast(1, 2500))
	}(),
	"mode-exit": func() *Config {
		exit := brake("exit", 2, 4000, 4000)
		exit.Winddown = true
		reenter := cruise(0.5)
		reenter.Name, reenter.Reset = "re-enter", true
		return preset("mode-exit", "correction wound down on mode exit, then re-entered",
			cruise(0.5), brake("brake", 1, 6000, 4000), exit, reenter)
	}(),
	"legacy-stop": func() *Config {
		phases := flatStop()
		for i := range phases {
			phases[i].NoIMU = true
		}
		return preset("legacy-stop", "flat stop driven without IMU data", phases...)
	}(),
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
