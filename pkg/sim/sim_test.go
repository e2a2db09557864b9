package sim

import (
	"math"
	"testing"
	"time"

	"github.com/voice-arm/controller/pkg/arm"
	"github.com/voice-arm/controller/pkg/command"
	"github.com/voice-arm/controller/pkg/config"
	customlog "github.com/voice-arm/controller/pkg/log"
	"github.com/voice-arm/controller/pkg/processing"
)

const floatTolerance = 1e-9

func floatEquals(a, b float64) bool {
	return math.Abs(a-b) < floatTolerance
}

func offlineConfig() Config {
	cfg := DefaultConfig()
	cfg.RealTime = false
	cfg.BasicTimeStepMs = 100
	cfg.MaxVelocity = 1.0
	return cfg
}

func TestMotorMovesAtVelocityLimit(t *testing.T) {
	r := NewRobot(offlineConfig())
	m := r.Motor("motor1").(*Motor)

	m.SetPosition(0.35)
	if !floatEquals(m.Target(), 0.35) {
		t.Errorf("Target: got %v, want 0.35", m.Target())
	}
	r.Step(100)
	if !floatEquals(m.Position(), 0.1) {
		t.Errorf("After one 100ms step at 1 rad/s: got %v, want 0.1", m.Position())
	}

	for i := 0; i < 5; i++ {
		r.Step(100)
	}
	if !floatEquals(m.Position(), 0.35) {
		t.Errorf("Motor should settle on target: got %v, want 0.35", m.Position())
	}
	if r.Time() != 600*time.Millisecond {
		t.Errorf("Simulated time: got %s, want 600ms", r.Time())
	}
}

func TestZeroVelocityFreezesMotor(t *testing.T) {
	r := NewRobot(offlineConfig())
	m := r.Motor("motor2").(*Motor)

	m.SetPosition(-1.0)
	r.Step(100)
	m.SetVelocity(0)
	before := m.Position()
	r.Step(100)
	r.Step(100)
	if !floatEquals(m.Position(), before) {
		t.Errorf("Stopped motor moved: %v -> %v", before, m.Position())
	}

	m.SetVelocity(5) // clamped to max
	if !floatEquals(m.Velocity(), 1.0) {
		t.Errorf("Velocity should clamp to max: got %v", m.Velocity())
	}
}

func TestSensorReportsNaNUntilEnabled(t *testing.T) {
	r := NewRobot(offlineConfig())
	s := r.PositionSensor("position_sensor1")

	r.Step(100)
	if !math.IsNaN(s.Value()) {
		t.Errorf("Disabled sensor should read NaN, got %v", s.Value())
	}

	s.Enable(100)
	r.Motor("motor1").SetPosition(0.05)
	r.Step(100)
	if !floatEquals(s.Value(), 0.05) {
		t.Errorf("Enabled sensor: got %v, want 0.05", s.Value())
	}
}

func TestMissingDevicesReturnNil(t *testing.T) {
	r := NewRobot(offlineConfig())
	if r.Motor("motor9") != nil {
		t.Errorf("Expected nil for unknown motor")
	}
	if r.PositionSensor("sensor9") != nil {
		t.Errorf("Expected nil for unknown sensor")
	}
}

func TestCloseEndsStepping(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BasicTimeStepMs = 1000
	r := NewRobot(cfg)

	done := make(chan int, 1)
	go func() { done <- r.Step(0) }()

	r.Close()
	select {
	case got := <-done:
		if got != -1 {
			t.Errorf("Step after Close: got %d, want -1", got)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("Step did not return after Close")
	}
	if r.Step(10) != -1 {
		t.Errorf("Subsequent Step should keep returning -1")
	}
}

func TestBindOnSimulatedRobot(t *testing.T) {
	r := NewRobot(offlineConfig())
	a, err := arm.Bind(r)
	if err != nil {
		t.Fatalf("Bind failed: %v", err)
	}

	a.SetPosition(arm.Gripper, 0.05)
	r.Step(100)
	reading := a.Read()
	if !floatEquals(reading.Gripper, 0.05) {
		t.Errorf("Gripper reading: got %v, want 0.05", reading.Gripper)
	}
	if !floatEquals(reading.Motor1, 0) {
		t.Errorf("Motor1 reading: got %v, want 0", reading.Motor1)
	}
}

func TestGripperPresetAfterStopLeavesArmFrozen(t *testing.T) {
	r := NewRobot(offlineConfig())
	a, err := arm.Bind(r)
	if err != nil {
		t.Fatalf("Bind failed: %v", err)
	}

	logger := customlog.NewNopLogger()
	presets := processing.NewPresetTable(logger)
	presets.LoadFromConfig(config.DefaultPresetsConfig())
	queue := command.NewQueue()
	d := processing.NewDispatcher(logger, queue, a, presets, processing.NewActionRegistry(logger))

	step := func(n int) {
		for i := 0; i < n; i++ {
			r.Step(a.TimeStep())
			d.Tick()
		}
	}

	queue.Push(command.Action("up"))
	step(5)
	queue.Push(command.Action("stop"))
	step(1)
	frozenAt := r.Motor("motor2").(*Motor).Position()

	queue.Push(command.Action("open"))
	step(30)

	motor2 := r.Motor("motor2").(*Motor)
	if !floatEquals(motor2.Position(), frozenAt) {
		t.Errorf("motor2 moved after gripper-only preset: %v -> %v", frozenAt, motor2.Position())
	}
	if !floatEquals(motor2.Target(), -1.57) {
		t.Errorf("motor2 target should still be the up pose, got %v", motor2.Target())
	}
	if !floatEquals(a.Read().Gripper, 0.5) {
		t.Errorf("Gripper should have opened to 0.5, got %v", a.Read().Gripper)
	}
}
