package braketilt_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/braketilt/internal/braketilt"
)

const dt = float32(0.01)

var _ = Describe("Controller", func() {
	var (
		bt      *braketilt.Controller
		cfg     braketilt.Config
		motor   braketilt.MotorData
		incline braketilt.Incline
		imu     braketilt.IMU
	)

	// braking in reverse with a positive balance offset gives target -2
	step := func(slip bool) {
		bt.Update(&motor, &incline, &cfg, 5, &imu, dt, slip)
	}

	BeforeEach(func() {
		cfg = braketilt.Config{
			Strength:                    10,
			InclineThresholdDefault:     4,
			HoldTiltMinTarget:           1,
			HoldTiltTimeWindow:          0.05,
			HoldTiltPitchDeltaThreshold: 2,
			HoldTiltAngle:               3,
			HoldTiltTimeout:             4,
			Lingering:                   2,
		}
		bt = braketilt.New()
		bt.Configure(&cfg)
		motor = braketilt.NewMotorData(-3000, true)
		incline = braketilt.Incline{OnStepSize: 0.1, OffStepSize: 0.05}
		imu = braketilt.IMU{Pitch: 10, BalancePitch: 5}
	})

	Describe("pitch-drop detection", func() {
		It("opens a window at the current pitch", func() {
			step(false)

			Expect(bt.Target).To(BeNumerically("~", -2, 1e-6))
			Expect(bt.PitchTimer).To(Equal(cfg.HoldTiltTimeWindow))
			Expect(bt.PitchAtTrigger).To(Equal(float32(10)))
			Expect(bt.PitchDropDetected).To(BeFalse())
		})

		It("counts the window down by dt", func() {
			step(false)
			step(false)

			Expect(bt.PitchTimer).To(BeNumerically("~", 0.04, 1e-6))
			Expect(bt.HoldTiltActive).To(BeFalse())
		})

		It("ignores drops at or below the threshold", func() {
			step(false)
			imu.Pitch = 8
			step(false)

			Expect(bt.PitchDropDetected).To(BeFalse())
			Expect(bt.HoldTiltActive).To(BeFalse())
		})

		It("reopens the window once it expires", func() {
			step(false)
			for bt.PitchTimer > 0 {
				step(false)
			}
			Expect(bt.PitchDropDetected).To(BeFalse())

			imu.Pitch = 9
			step(false)
			Expect(bt.PitchAtTrigger).To(Equal(float32(9)))
			Expect(bt.PitchTimer).To(Equal(cfg.HoldTiltTimeWindow))
		})

		It("closes the window when the target falls below the minimum", func() {
			step(false)
			motor.Braking = false
			step(false)

			Expect(bt.Target).To(BeZero())
			Expect(bt.PitchTimer).To(BeZero())
			Expect(bt.PitchDropDetected).To(BeFalse())
		})
	})

	Describe("hold-tilt", func() {
		trigger := func() {
			step(false)
			imu.Pitch = 7.5
			step(false)
		}

		It("activates on a pitch drop larger than the threshold", func() {
			trigger()

			Expect(bt.HoldTiltActive).To(BeTrue())
			Expect(bt.HoldTiltValue).To(Equal(cfg.HoldTiltAngle))
			Expect(bt.HoldCounter).To(Equal(cfg.HoldTiltTimeout - 1))
			Expect(bt.PitchTimer).To(BeZero())
			Expect(bt.PitchDropDetected).To(BeFalse())
		})

		It("holds the setpoint at the hold angle when balance pitch is above it", func() {
			trigger()

			Expect(bt.Setpoint).To(Equal(cfg.HoldTiltAngle))
		})

		It("boosts the setpoint by half the shortfall below the hold angle", func() {
			imu.BalancePitch = 1
			trigger()

			Expect(bt.Setpoint).To(BeNumerically("~", 4, 1e-6))
		})

		It("releases after exactly the timeout in cycles", func() {
			trigger()
			active := 1
			for bt.HoldTiltActive {
				step(false)
				active++
				Expect(active).To(BeNumerically("<=", cfg.HoldTiltTimeout))
			}

			Expect(active).To(Equal(cfg.HoldTiltTimeout))
			Expect(bt.HoldCounter).To(BeZero())
		})

		It("resumes rate-limited tracking after release", func() {
			trigger()
			for bt.HoldTiltActive {
				step(false)
			}
			held := bt.Setpoint

			step(false)
			// releasing at speed uses the lingering off step
			Expect(bt.Setpoint).To(BeNumerically("~", held-0.025, 1e-6))
		})

		It("drops immediately on wheel slip", func() {
			trigger()
			step(true)

			Expect(bt.HoldTiltActive).To(BeFalse())
			Expect(bt.HoldCounter).To(BeZero())
			Expect(bt.Target).To(BeZero())
		})

		It("drops immediately on an incline", func() {
			trigger()
			incline.AccelDiff = 5
			step(false)

			Expect(bt.HoldTiltActive).To(BeFalse())
		})

		It("drops on winddown and never comes back", func() {
			trigger()
			for i := 0; i < 100; i++ {
				bt.Winddown()
				Expect(bt.HoldTiltActive).To(BeFalse())
			}
			Expect(bt.Setpoint).To(BeNumerically("<", cfg.HoldTiltAngle))
		})

		It("does not run detection while active", func() {
			trigger()
			imu.Pitch = 0
			step(false)

			Expect(bt.PitchTimer).To(BeZero())
			Expect(bt.PitchDropDetected).To(BeFalse())
		})
	})

	Describe("determinism", func() {
		It("produces identical state from identical inputs", func() {
			other := braketilt.New()
			other.Configure(&cfg)
			for i := 0; i < 50; i++ {
				imu.Pitch = 10 - float32(i)*0.1
				bt.Update(&motor, &incline, &cfg, 5, &imu, dt, false)
				other.Update(&motor, &incline, &cfg, 5, &imu, dt, false)
				Expect(other.Snapshot()).To(Equal(bt.Snapshot()))
			}
		})
	})
})
