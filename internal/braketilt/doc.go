// Package braketilt computes the brake-tilt pitch-setpoint correction for a
// self-balancing single-wheel vehicle.
//
// While the motor brakes on level ground, the [Controller] drives its
// setpoint toward a nose-lift target derived from the caller's balance
// offset. If the pitch drops sharply during such braking, hold-tilt takes
// over and locks the setpoint at a configured angle for a fixed number of
// cycles.
//
// # Usage
//
//	bt := braketilt.New()
//	bt.Configure(&cfg)
//	for each control cycle {
//		bt.Update(&motor, &incline, &cfg, balanceOffset, &imu, dt, wheelSlip)
//		targetPitch += bt.Setpoint
//	}
//
// # Thread Safety
//
// A Controller is owned by exactly one control loop and is NOT safe for
// concurrent use.
package braketilt
