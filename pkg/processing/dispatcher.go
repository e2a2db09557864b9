package processing

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/voice-arm/controller/pkg/arm"
	"github.com/voice-arm/controller/pkg/command"
	customlog "github.com/voice-arm/controller/pkg/log"
)

// Result kinds
const (
	KindPreset   = "preset"
	KindCustom   = "custom"
	KindStop     = "stop"
	KindPosition = "position"
	KindNoop     = "noop"
)

// Actuator is the part of the arm the dispatcher drives
type Actuator interface {
	SetPosition(j arm.Joint, position float64)
	SetVelocity(j arm.Joint, velocity float64)
	RestoreVelocity(j arm.Joint)
	Read() arm.Reading
}

// Result describes one applied command
type Result struct {
	ID             string          `json:"id"`
	Action         string          `json:"action"`
	Kind           string          `json:"kind"`
	Command        command.Command `json:"command"`
	Reading        *arm.Reading    `json:"reading,omitempty"`
	AppliedAt      int64           `json:"applied_at"`
	DurationMicros int64           `json:"duration_us"`
}

// ResultHandler is a function that handles applied command results
type ResultHandler func(result *Result)

// TelemetrySink receives periodic sensor readings
type TelemetrySink func(reading arm.Reading, timestamp int64)

// Metrics tracks dispatcher activity
type Metrics struct {
	Ticks           int64 `json:"ticks"`
	Applied         int64 `json:"applied"`
	NoOps           int64 `json:"noops"`
	LastAppliedTime int64 `json:"last_applied_time"`
	ApplyTimeAvg    int64 `json:"apply_time_avg_us"`
	ApplyTimeMax    int64 `json:"apply_time_max_us"`
}

// Dispatcher applies at most one queued command per simulation tick
type Dispatcher struct {
	logger   customlog.Logger
	queue    *command.Queue
	actuator Actuator
	presets  *PresetTable
	registry *ActionRegistry

	mu             sync.Mutex
	resultHandler  ResultHandler
	telemetry      TelemetrySink
	telemetryEvery int
	stopped        [arm.NumJoints]bool
	lastReading    *arm.Reading
	metrics        Metrics
}

// NewDispatcher creates a dispatcher draining queue into actuator
func NewDispatcher(
	logger customlog.Logger,
	queue *command.Queue,
	actuator Actuator,
	presets *PresetTable,
	registry *ActionRegistry,
) *Dispatcher {
	return &Dispatcher{
		logger:   logger,
		queue:    queue,
		actuator: actuator,
		presets:  presets,
		registry: registry,
	}
}

// SetResultHandler sets the result handler function
func (d *Dispatcher) SetResultHandler(handler ResultHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resultHandler = handler
}

// SetTelemetry samples the sensors every n ticks and hands the reading to sink.
// n <= 0 disables telemetry.
func (d *Dispatcher) SetTelemetry(every int, sink TelemetrySink) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.telemetryEvery = every
	d.telemetry = sink
}

// Tick runs one simulation step worth of dispatching. It returns the applied
// result, or nil when the queue was empty.
func (d *Dispatcher) Tick() *Result {
	d.mu.Lock()
	d.metrics.Ticks++
	tick := d.metrics.Ticks
	telemetry := d.telemetry
	every := d.telemetryEvery
	d.mu.Unlock()

	var result *Result
	if cmd, ok := d.queue.Pop(); ok {
		result = d.apply(cmd)
	}

	if telemetry != nil && every > 0 && tick%int64(every) == 0 {
		reading := d.actuator.Read()
		d.setLastReading(reading)
		telemetry(reading, time.Now().UnixNano())
	}

	return result
}

func (d *Dispatcher) apply(cmd command.Command) *Result {
	start := time.Now()
	d.logger.Infof("Received command: %s", cmd)

	action := cmd.NormalizedAction()
	result := &Result{
		ID:      uuid.NewString(),
		Action:  action,
		Command: cmd,
	}

	if targets, ok := d.presets.Lookup(action); ok {
		d.applySetpoints(targets)
		result.Kind = KindPreset
		d.logger.Infof("Moving to position: %s", action)
	} else {
		switch action {
		case command.ActionCustom:
			targets := arm.Setpoints{cmd.Motor1, cmd.Motor2, cmd.Motor3, cmd.Gripper}
			if !targets.Any() {
				d.logger.Debugf("Custom command without setpoints, nothing to move")
			}
			d.applySetpoints(targets)
			result.Kind = KindCustom
		case command.ActionStop:
			for _, j := range arm.Joints() {
				d.actuator.SetVelocity(j, 0)
			}
			d.mu.Lock()
			for _, j := range arm.Joints() {
				d.stopped[j] = true
			}
			d.mu.Unlock()
			result.Kind = KindStop
			d.logger.Infof("Stopping all motors")
		case command.ActionPosition:
			reading := d.actuator.Read()
			d.setLastReading(reading)
			result.Reading = &reading
			result.Kind = KindPosition
			d.logger.Infof("Current position: %s", reading)
		default:
			result.Kind = KindNoop
			d.logger.Debugf("Ignoring command with unknown action '%s'", action)
		}
	}

	elapsed := time.Since(start).Microseconds()
	result.AppliedAt = time.Now().UnixNano()
	result.DurationMicros = elapsed

	d.mu.Lock()
	if result.Kind == KindNoop {
		d.metrics.NoOps++
	} else {
		d.metrics.Applied++
	}
	d.metrics.LastAppliedTime = result.AppliedAt
	if d.metrics.ApplyTimeAvg == 0 {
		d.metrics.ApplyTimeAvg = elapsed
	} else {
		// Simple moving average
		d.metrics.ApplyTimeAvg = (d.metrics.ApplyTimeAvg + elapsed) / 2
	}
	if elapsed > d.metrics.ApplyTimeMax {
		d.metrics.ApplyTimeMax = elapsed
	}
	handler := d.resultHandler
	d.mu.Unlock()

	if result.Kind != KindNoop {
		d.registry.Record(action, result.Kind, result.AppliedAt)
	}

	if handler != nil {
		handler(result)
	}
	return result
}

// applySetpoints sets every present target. A joint frozen by stop gets its
// velocity back only when it is targeted; absent joints stay as they are.
func (d *Dispatcher) applySetpoints(targets arm.Setpoints) {
	for j, target := range targets {
		if target == nil {
			continue
		}
		joint := arm.Joint(j)

		d.mu.Lock()
		frozen := d.stopped[joint]
		d.stopped[joint] = false
		d.mu.Unlock()

		if frozen {
			d.actuator.RestoreVelocity(joint)
		}
		d.actuator.SetPosition(joint, *target)
	}
}

func (d *Dispatcher) setLastReading(reading arm.Reading) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastReading = &reading
}

// LastReading returns the most recent sensor sample, if any was taken
func (d *Dispatcher) LastReading() (arm.Reading, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lastReading == nil {
		return arm.Reading{}, false
	}
	return *d.lastReading, true
}

// Stopped reports whether any joint is still frozen by a stop
func (d *Dispatcher) Stopped() bool {
	return len(d.StoppedJoints()) > 0
}

// StoppedJoints lists the joints frozen by stop and not targeted since
func (d *Dispatcher) StoppedJoints() []arm.Joint {
	d.mu.Lock()
	defer d.mu.Unlock()

	var joints []arm.Joint
	for _, j := range arm.Joints() {
		if d.stopped[j] {
			joints = append(joints, j)
		}
	}
	return joints
}

// QueueLength returns the number of pending commands
func (d *Dispatcher) QueueLength() int {
	return d.queue.Len()
}

// Presets returns the preset table in use
func (d *Dispatcher) Presets() *PresetTable {
	return d.presets
}

// Registry returns the action registry
func (d *Dispatcher) Registry() *ActionRegistry {
	return d.registry
}

// GetMetrics returns a copy of the current metrics
func (d *Dispatcher) GetMetrics() Metrics {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.metrics
}

// LogMetrics logs the current metrics
func (d *Dispatcher) LogMetrics() {
	m := d.GetMetrics()
	d.logger.Infof("Dispatcher metrics: ticks=%d, applied=%d, noops=%d, pending=%d, avg_time=%dµs, max_time=%dµs",
		m.Ticks, m.Applied, m.NoOps, d.queue.Len(), m.ApplyTimeAvg, m.ApplyTimeMax)
}

// Run drives the dispatcher from the simulation step loop until the host ends
// the run (step returns -1).
func (d *Dispatcher) Run(robot arm.Robot, timestep int) {
	d.logger.Infof("Robot controller started (timestep %dms)", timestep)
	for robot.Step(timestep) != -1 {
		d.Tick()
	}
	d.logger.Infof("Simulation ended, dispatcher stopped")
}
