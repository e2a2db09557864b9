// Package arm binds the four-joint arm to the devices exposed by the
// simulation host and offers joint-level setpoint and sensor access.
package arm

import (
	"errors"
	"fmt"
)

// ErrMissingDevice is returned by Bind when the host does not expose a required device.
var ErrMissingDevice = errors.New("missing device")

// Motor is a position-controlled actuator owned by the simulation host.
type Motor interface {
	SetPosition(position float64)
	SetVelocity(velocity float64)
	MaxVelocity() float64
}

// PositionSensor reads back a joint angle. Value is only meaningful once enabled.
type PositionSensor interface {
	Enable(samplingPeriodMs int)
	Value() float64
}

// Robot is the simulation host as seen by the controller process.
// Step advances the simulation and returns -1 once the host ends the run.
type Robot interface {
	BasicTimeStep() int
	Step(durationMs int) int
	Motor(name string) Motor
	PositionSensor(name string) PositionSensor
}

// Joint identifies one actuated joint of the arm.
type Joint int

const (
	Motor1 Joint = iota
	Motor2
	Motor3
	Gripper
	NumJoints
)

var jointNames = [NumJoints]string{"motor1", "motor2", "motor3", "gripper"}

// Device names used by the simulated arm.
var (
	MotorDevices  = [NumJoints]string{"motor1", "motor2", "motor3", "gripper_motor"}
	SensorDevices = [NumJoints]string{"position_sensor1", "position_sensor2", "position_sensor3", "gripper_sensor"}
)

func (j Joint) String() string {
	if j < 0 || j >= NumJoints {
		return fmt.Sprintf("joint(%d)", int(j))
	}
	return jointNames[j]
}

// Joints returns all joints in wire order.
func Joints() []Joint {
	return []Joint{Motor1, Motor2, Motor3, Gripper}
}

// Setpoints holds an optional target per joint. Nil entries are left unchanged.
type Setpoints [NumJoints]*float64

// Any reports whether at least one joint has a target.
func (s Setpoints) Any() bool {
	for _, v := range s {
		if v != nil {
			return true
		}
	}
	return false
}

// Reading is one sample of all joint position sensors, in radians.
type Reading struct {
	Motor1  float64 `json:"motor1"`
	Motor2  float64 `json:"motor2"`
	Motor3  float64 `json:"motor3"`
	Gripper float64 `json:"gripper"`
}

func (r Reading) String() string {
	return fmt.Sprintf("motor1=%.2f, motor2=%.2f, motor3=%.2f, gripper=%.2f", r.Motor1, r.Motor2, r.Motor3, r.Gripper)
}

// Arm is the bound set of motors and sensors.
type Arm struct {
	motors   [NumJoints]Motor
	sensors  [NumJoints]PositionSensor
	timestep int
}

// Bind resolves every motor and sensor on the robot, enables the sensors at the
// basic timestep and commands all motors to the zero position.
func Bind(robot Robot) (*Arm, error) {
	a := &Arm{timestep: robot.BasicTimeStep()}

	for _, j := range Joints() {
		m := robot.Motor(MotorDevices[j])
		if m == nil {
			return nil, fmt.Errorf("%w: %s", ErrMissingDevice, MotorDevices[j])
		}
		s := robot.PositionSensor(SensorDevices[j])
		if s == nil {
			return nil, fmt.Errorf("%w: %s", ErrMissingDevice, SensorDevices[j])
		}
		a.motors[j] = m
		a.sensors[j] = s
	}

	for _, j := range Joints() {
		a.sensors[j].Enable(a.timestep)
		a.motors[j].SetPosition(0.0)
	}

	return a, nil
}

// TimeStep returns the basic timestep the arm was bound with, in milliseconds.
func (a *Arm) TimeStep() int {
	return a.timestep
}

// SetPosition commands the joint's target position in radians.
func (a *Arm) SetPosition(j Joint, position float64) {
	a.motors[j].SetPosition(position)
}

// SetVelocity sets the joint's velocity limit. Zero freezes it in place.
func (a *Arm) SetVelocity(j Joint, velocity float64) {
	a.motors[j].SetVelocity(velocity)
}

// RestoreVelocity sets the joint velocity back to the motor's maximum.
func (a *Arm) RestoreVelocity(j Joint) {
	a.motors[j].SetVelocity(a.motors[j].MaxVelocity())
}

// Read samples the four position sensors.
func (a *Arm) Read() Reading {
	return Reading{
		Motor1:  a.sensors[Motor1].Value(),
		Motor2:  a.sensors[Motor2].Value(),
		Motor3:  a.sensors[Motor3].Value(),
		Gripper: a.sensors[Gripper].Value(),
	}
}
