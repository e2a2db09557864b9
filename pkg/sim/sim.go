// Package sim is a kinematic stand-in for the physics host. Motors move
// toward their target position at their velocity limit on every step.
package sim

import (
	"math"
	"sync"
	"time"

	"github.com/voice-arm/controller/pkg/arm"
)

// Config describes the simulated arm.
type Config struct {
	BasicTimeStepMs int
	MaxVelocity     float64 // rad/s, applied to every motor
	RealTime        bool    // sleep for each step
	Motors          []string
	Sensors         map[string]string // sensor device -> motor device
}

// DefaultConfig returns the four-joint arm used by the controller.
func DefaultConfig() Config {
	sensors := make(map[string]string, arm.NumJoints)
	motors := make([]string, 0, arm.NumJoints)
	for _, j := range arm.Joints() {
		motors = append(motors, arm.MotorDevices[j])
		sensors[arm.SensorDevices[j]] = arm.MotorDevices[j]
	}
	return Config{
		BasicTimeStepMs: 32,
		MaxVelocity:     1.0,
		RealTime:        true,
		Motors:          motors,
		Sensors:         sensors,
	}
}

// Robot is the simulated host.
type Robot struct {
	mu      sync.Mutex
	cfg     Config
	motors  map[string]*Motor
	sensors map[string]*Sensor
	timeMs  int64

	closed    chan struct{}
	closeOnce sync.Once
}

var _ arm.Robot = (*Robot)(nil)

// NewRobot builds the devices listed in cfg.
func NewRobot(cfg Config) *Robot {
	if cfg.BasicTimeStepMs <= 0 {
		cfg.BasicTimeStepMs = 32
	}
	if cfg.MaxVelocity <= 0 {
		cfg.MaxVelocity = 1.0
	}

	r := &Robot{
		cfg:     cfg,
		motors:  make(map[string]*Motor, len(cfg.Motors)),
		sensors: make(map[string]*Sensor, len(cfg.Sensors)),
		closed:  make(chan struct{}),
	}
	for _, name := range cfg.Motors {
		r.motors[name] = &Motor{robot: r, maxVelocity: cfg.MaxVelocity, velocity: cfg.MaxVelocity}
	}
	for sensorName, motorName := range cfg.Sensors {
		m, ok := r.motors[motorName]
		if !ok {
			continue
		}
		r.sensors[sensorName] = &Sensor{robot: r, motor: m, value: math.NaN()}
	}
	return r
}

// BasicTimeStep returns the configured step length in milliseconds.
func (r *Robot) BasicTimeStep() int {
	return r.cfg.BasicTimeStepMs
}

// Motor returns the named motor, or nil when the device does not exist.
func (r *Robot) Motor(name string) arm.Motor {
	m, ok := r.motors[name]
	if !ok {
		return nil
	}
	return m
}

// PositionSensor returns the named sensor, or nil when the device does not exist.
func (r *Robot) PositionSensor(name string) arm.PositionSensor {
	s, ok := r.sensors[name]
	if !ok {
		return nil
	}
	return s
}

// Step advances the simulation by durationMs. It returns -1 once the robot is closed.
func (r *Robot) Step(durationMs int) int {
	if durationMs <= 0 {
		durationMs = r.cfg.BasicTimeStepMs
	}

	if r.cfg.RealTime {
		timer := time.NewTimer(time.Duration(durationMs) * time.Millisecond)
		select {
		case <-r.closed:
			timer.Stop()
			return -1
		case <-timer.C:
		}
	} else {
		select {
		case <-r.closed:
			return -1
		default:
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	dt := float64(durationMs) / 1000.0
	for _, m := range r.motors {
		m.advance(dt)
	}
	r.timeMs += int64(durationMs)
	for _, s := range r.sensors {
		s.sample(r.timeMs)
	}
	return 0
}

// Time returns the simulated time elapsed.
func (r *Robot) Time() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return time.Duration(r.timeMs) * time.Millisecond
}

// Close ends the run; pending and future Step calls return -1.
func (r *Robot) Close() {
	r.closeOnce.Do(func() { close(r.closed) })
}

// Motor is a simulated position-controlled motor.
type Motor struct {
	robot       *Robot
	position    float64
	target      float64
	velocity    float64
	maxVelocity float64
}

// SetPosition sets the target the motor moves toward on each step.
func (m *Motor) SetPosition(position float64) {
	m.robot.mu.Lock()
	defer m.robot.mu.Unlock()
	m.target = position
}

// SetVelocity sets the velocity limit, clamped to [0, MaxVelocity].
func (m *Motor) SetVelocity(velocity float64) {
	m.robot.mu.Lock()
	defer m.robot.mu.Unlock()
	m.velocity = math.Max(0, math.Min(velocity, m.maxVelocity))
}

// MaxVelocity returns the velocity limit the motor was created with.
func (m *Motor) MaxVelocity() float64 {
	return m.maxVelocity
}

// Target returns the commanded position.
func (m *Motor) Target() float64 {
	m.robot.mu.Lock()
	defer m.robot.mu.Unlock()
	return m.target
}

// Velocity returns the current velocity limit.
func (m *Motor) Velocity() float64 {
	m.robot.mu.Lock()
	defer m.robot.mu.Unlock()
	return m.velocity
}

// Position returns the true joint angle.
func (m *Motor) Position() float64 {
	m.robot.mu.Lock()
	defer m.robot.mu.Unlock()
	return m.position
}

// advance is called with robot.mu held.
func (m *Motor) advance(dt float64) {
	delta := m.target - m.position
	maxStep := m.velocity * dt
	if math.Abs(delta) <= maxStep {
		m.position = m.target
		return
	}
	m.position += math.Copysign(maxStep, delta)
}

// Sensor is a simulated position sensor attached to one motor.
type Sensor struct {
	robot      *Robot
	motor      *Motor
	periodMs   int
	lastSample int64
	value      float64
}

// Enable starts sampling every samplingPeriodMs. A period <= 0 disables the sensor.
func (s *Sensor) Enable(samplingPeriodMs int) {
	s.robot.mu.Lock()
	defer s.robot.mu.Unlock()
	s.periodMs = samplingPeriodMs
	s.lastSample = s.robot.timeMs - int64(samplingPeriodMs)
	if samplingPeriodMs <= 0 {
		s.value = math.NaN()
	}
}

// Value returns the last sample, or NaN when the sensor is disabled or has not sampled yet.
func (s *Sensor) Value() float64 {
	s.robot.mu.Lock()
	defer s.robot.mu.Unlock()
	return s.value
}

// sample is called with robot.mu held.
func (s *Sensor) sample(nowMs int64) {
	if s.periodMs <= 0 {
		return
	}
	if nowMs-s.lastSample >= int64(s.periodMs) {
		s.value = s.motor.position
		s.lastSample = nowMs
	}
}
