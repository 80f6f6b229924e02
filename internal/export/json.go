package export

import (
	"encoding/json"
	"io"

	"github.com/san-kum/braketilt/internal/sim"
	"github.com/san-kum/braketilt/internal/storage"
)

type Sample struct {
	Time       float64 `json:"t"`
	Phase      string  `json:"phase"`
	ERPM       float32 `json:"erpm"`
	Pitch      float32 `json:"pitch"`
	Target     float32 `json:"target"`
	Setpoint   float32 `json:"setpoint"`
	Hold       bool    `json:"hold_tilt"`
	Suppressed bool    `json:"suppressed,omitempty"`
}

type ExportData struct {
	Run     storage.RunMetadata `json:"run"`
	Steps   int                 `json:"steps"`
	Samples []Sample            `json:"samples"`
}

func WriteJSON(w io.Writer, meta storage.RunMetadata, steps []sim.Step) error {
	data := ExportData{
		Run:     meta,
		Steps:   len(steps),
		Samples: make([]Sample, len(steps)),
	}
	for i, s := range steps {
		data.Samples[i] = Sample{
			Time:       s.Time,
			Phase:      s.Phase,
			ERPM:       s.ERPM,
			Pitch:      s.Pitch,
			Target:     s.State.Target,
			Setpoint:   s.State.Setpoint,
			Hold:       s.State.HoldTiltActive,
			Suppressed: s.Suppressed,
		}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
