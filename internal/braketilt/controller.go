package braketilt

const (
	// MaxStrength is the upper bound of Config.Strength.
	MaxStrength = 20

	BrakingERPM         = 2000
	DescentERPM         = 1000
	DescentAccelDiff    = 1
	SteepDescentDamper  = 2
	EngageStepScale     = 1.5
	SlowERPM            = 800
	CrawlERPM           = 500
	CrawlStepDivisor    = 2
	HoldBoostGain       = 0.5
	WinddownSetpoint    = 0.995
	WinddownTarget      = 0.99
	baseFactor          = 0.5
	strengthFactorScale = 5
)

type Controller struct {
	Factor   float32
	Target   float32
	Setpoint float32

	HoldTiltActive bool
	HoldTiltValue  float32
	HoldCounter    int

	// pitch-drop detection window
	PitchTimer        float32
	PitchAtTrigger    float32
	PitchDropDetected bool
}

func New() *Controller {
	c := &Controller{}
	c.Init()
	return c
}

// Init puts the controller in a disabled, zeroed state.
func (c *Controller) Init() {
	c.Factor = 0
	c.Reset()
}

// Reset clears all transient state. Factor is kept.
func (c *Controller) Reset() {
	c.Target = 0
	c.Setpoint = 0
	c.HoldTiltActive = false
	c.HoldTiltValue = 0
	c.HoldCounter = 0
	c.PitchTimer = 0
	c.PitchAtTrigger = 0
	c.PitchDropDetected = false
}

// Configure recomputes Factor from cfg.Strength. The factor carries the
// negative sign so Update does not have to apply it each cycle.
func (c *Controller) Configure(cfg *Config) {
	if cfg.Strength == 0 {
		c.Factor = 0
		return
	}
	c.Factor = -(baseFactor + (MaxStrength-cfg.Strength)/strengthFactorScale)
}

// Enabled reports whether brake-tilt is configured on.
func (c *Controller) Enabled() bool {
	return c.Factor < 0
}

// Update runs one control cycle. A nil imu disables pitch-drop detection.
// dt is the time since the previous cycle in seconds.
func (c *Controller) Update(motor *MotorData, incline *Incline, cfg *Config, balanceOffset float32, imu *IMU, dt float32, wheelSlip bool) {
	threshold := cfg.InclineThresholdDefault
	if wheelSlip || incline.AccelDiff > threshold || incline.AccelDiff < -threshold {
		c.Target = 0
		if c.HoldTiltActive {
			c.deactivateHold()
		}
		return
	}

	c.Target = c.brakingTarget(motor, incline, balanceOffset)

	c.detectPitchDrop(cfg, imu, dt, wheelSlip)

	if !c.HoldTiltActive && c.PitchDropDetected {
		c.HoldTiltActive = true
		c.HoldTiltValue = cfg.HoldTiltAngle
		c.HoldCounter = cfg.HoldTiltTimeout
		c.PitchTimer = 0
		c.PitchDropDetected = false
	}

	if c.HoldTiltActive {
		c.Setpoint = c.HoldTiltValue
		if imu != nil && imu.BalancePitch < c.HoldTiltValue {
			c.Setpoint += HoldBoostGain * (c.HoldTiltValue - imu.BalancePitch)
		}
		c.HoldCounter--
		if c.HoldCounter <= 0 {
			c.deactivateHold()
		}
		return
	}

	rateLimit(&c.Setpoint, c.Target, c.StepSize(motor, incline, cfg))
}

// UpdateLegacy is Update without IMU data, elapsed time or wheel slip.
func (c *Controller) UpdateLegacy(motor *MotorData, incline *Incline, cfg *Config, balanceOffset float32) {
	c.Update(motor, incline, cfg, balanceOffset, nil, 0, false)
}

// Winddown decays setpoint and target toward zero and drops hold-tilt. It is
// meant to be called at the loop rate until the values are negligible.
func (c *Controller) Winddown() {
	c.Setpoint *= WinddownSetpoint
	c.Target *= WinddownTarget
	if c.HoldTiltActive {
		c.deactivateHold()
	}
}

// StepSize returns the largest setpoint change allowed this cycle given the
// current target and setpoint.
func (c *Controller) StepSize(motor *MotorData, incline *Incline, cfg *Config) float32 {
	step := incline.OffStepSize / cfg.Lingering
	if abs(c.Target) > abs(c.Setpoint) {
		step = incline.OnStepSize * EngageStepScale
	} else if motor.AbsERPM < SlowERPM {
		step = incline.OnStepSize
	}
	if motor.AbsERPM < CrawlERPM {
		step /= CrawlStepDivisor
	}
	return step
}

func (c *Controller) Snapshot() State {
	return State{
		Factor:            c.Factor,
		Target:            c.Target,
		Setpoint:          c.Setpoint,
		HoldTiltActive:    c.HoldTiltActive,
		HoldTiltValue:     c.HoldTiltValue,
		HoldCounter:       c.HoldCounter,
		PitchTimer:        c.PitchTimer,
		PitchAtTrigger:    c.PitchAtTrigger,
		PitchDropDetected: c.PitchDropDetected,
	}
}

// brakingTarget is the level-ground target. Negative current alone is not
// braking: the balance offset has to oppose the direction of travel too.
func (c *Controller) brakingTarget(motor *MotorData, incline *Incline, balanceOffset float32) float32 {
	if !c.Enabled() || !motor.Braking || motor.AbsERPM <= BrakingERPM {
		return 0
	}
	if sign(balanceOffset) == sign(motor.ERPM) {
		return 0
	}

	damper := float32(1)
	if (motor.ERPM > DescentERPM && incline.AccelDiff < -DescentAccelDiff) ||
		(motor.ERPM < -DescentERPM && incline.AccelDiff > DescentAccelDiff) {
		damper += abs(incline.AccelDiff) / 2
	}
	// no brake-tilt at all on steep descents
	if damper > SteepDescentDamper {
		return 0
	}
	return balanceOffset / c.Factor / damper
}

func (c *Controller) detectPitchDrop(cfg *Config, imu *IMU, dt float32, wheelSlip bool) {
	if c.HoldTiltActive || imu == nil || wheelSlip || abs(c.Target) <= cfg.HoldTiltMinTarget {
		c.PitchTimer = 0
		c.PitchDropDetected = false
		return
	}

	if c.PitchTimer <= 0 {
		c.PitchAtTrigger = imu.Pitch
		c.PitchTimer = cfg.HoldTiltTimeWindow
		c.PitchDropDetected = false
		return
	}

	if c.PitchAtTrigger-imu.Pitch > cfg.HoldTiltPitchDeltaThreshold {
		c.PitchDropDetected = true
	}
	c.PitchTimer -= dt
}

func (c *Controller) deactivateHold() {
	c.HoldTiltActive = false
	c.HoldCounter = 0
}
