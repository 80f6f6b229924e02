package braketilt

// MotorData is the filtered motor telemetry for one control cycle.
type MotorData struct {
	Braking bool
	ERPM    float32
	AbsERPM float32
}

func NewMotorData(erpm float32, braking bool) MotorData {
	return MotorData{
		Braking: braking,
		ERPM:    erpm,
		AbsERPM: abs(erpm),
	}
}

// Incline carries the acceleration-difference estimate used to tell level
// ground from slopes, along with the response step sizes the same estimator
// publishes.
type Incline struct {
	AccelDiff   float32
	OnStepSize  float32
	OffStepSize float32
}

// IMU holds the pitch readings in degrees.
type IMU struct {
	Pitch        float32
	BalancePitch float32
}

// Config is the read-only tuning snapshot consumed every cycle. Values are
// validated by the caller.
type Config struct {
	// Strength is in [0, 20]; 0 disables brake-tilt.
	Strength                    float32
	InclineThresholdDefault     float32
	HoldTiltMinTarget           float32
	HoldTiltTimeWindow          float32 // seconds
	HoldTiltPitchDeltaThreshold float32
	HoldTiltAngle               float32
	HoldTiltTimeout             int // cycles
	Lingering                   float32
}

// State is a copy of the controller's state record.
type State struct {
	Factor            float32
	Target            float32
	Setpoint          float32
	HoldTiltActive    bool
	HoldTiltValue     float32
	HoldCounter       int
	PitchTimer        float32
	PitchAtTrigger    float32
	PitchDropDetected bool
}
