package processing

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/voice-arm/controller/pkg/arm"
	"github.com/voice-arm/controller/pkg/command"
	"github.com/voice-arm/controller/pkg/config"
	customlog "github.com/voice-arm/controller/pkg/log"
)

type fakeActuator struct {
	positions  [arm.NumJoints]float64
	velocities [arm.NumJoints]float64
	setCalls   int
	reading    arm.Reading
}

func newFakeActuator() *fakeActuator {
	a := &fakeActuator{}
	for j := range a.velocities {
		a.velocities[j] = 1.0
	}
	return a
}

func (a *fakeActuator) SetPosition(j arm.Joint, p float64) {
	a.positions[j] = p
	a.setCalls++
}
func (a *fakeActuator) SetVelocity(j arm.Joint, v float64) { a.velocities[j] = v }
func (a *fakeActuator) RestoreVelocity(j arm.Joint)        { a.velocities[j] = 1.0 }
func (a *fakeActuator) Read() arm.Reading                  { return a.reading }

type fakePublisher struct {
	mu       sync.Mutex
	topics   []string
	payloads [][]byte
}

func (p *fakePublisher) PublishMessage(topic string, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.payloads = append(p.payloads, data)
	return nil
}

func newTestDispatcher(t *testing.T, buf *bytes.Buffer) (*Dispatcher, *command.Queue, *fakeActuator) {
	t.Helper()
	var logger customlog.Logger
	if buf != nil {
		logger = customlog.NewWriterLogger("debug", buf)
	} else {
		logger = customlog.NewNopLogger()
	}
	presets := NewPresetTable(logger)
	presets.LoadFromConfig(config.DefaultPresetsConfig())

	queue := command.NewQueue()
	actuator := newFakeActuator()
	d := NewDispatcher(logger, queue, actuator, presets, NewActionRegistry(logger))
	return d, queue, actuator
}

func TestTickEmptyQueue(t *testing.T) {
	d, _, actuator := newTestDispatcher(t, nil)

	if result := d.Tick(); result != nil {
		t.Fatalf("Expected nil result on empty queue, got %+v", result)
	}
	if actuator.setCalls != 0 {
		t.Errorf("Expected no actuator calls, got %d", actuator.setCalls)
	}
	if d.GetMetrics().Ticks != 1 {
		t.Errorf("Expected 1 tick, got %d", d.GetMetrics().Ticks)
	}
}

func TestTickAppliesPreset(t *testing.T) {
	var buf bytes.Buffer
	d, queue, actuator := newTestDispatcher(t, &buf)

	queue.Push(command.Action("LEFT"))
	result := d.Tick()
	if result == nil || result.Kind != KindPreset {
		t.Fatalf("Expected preset result, got %+v", result)
	}
	if result.Action != "left" {
		t.Errorf("Expected normalized action 'left', got '%s'", result.Action)
	}
	if actuator.positions[arm.Motor1] != 1.57 {
		t.Errorf("Expected motor1=1.57, got %v", actuator.positions[arm.Motor1])
	}
	if !strings.Contains(buf.String(), "Moving to position: left") {
		t.Errorf("Expected move log line, got:\n%s", buf.String())
	}
	if result.ID == "" {
		t.Error("Expected result ID to be set")
	}
}

func TestPresetIsIdempotent(t *testing.T) {
	d, queue, actuator := newTestDispatcher(t, nil)

	queue.Push(command.Action("up"))
	d.Tick()
	first := actuator.positions

	queue.Push(command.Action("up"))
	d.Tick()
	if actuator.positions != first {
		t.Errorf("Repeated preset changed targets: %v -> %v", first, actuator.positions)
	}
}

func TestPartialPresetLeavesOtherJoints(t *testing.T) {
	d, queue, actuator := newTestDispatcher(t, nil)
	actuator.positions[arm.Motor2] = 0.7

	queue.Push(command.Action("open"))
	d.Tick()

	if actuator.positions[arm.Gripper] != 0.5 {
		t.Errorf("Expected gripper=0.5, got %v", actuator.positions[arm.Gripper])
	}
	if actuator.positions[arm.Motor2] != 0.7 {
		t.Errorf("Expected motor2 untouched, got %v", actuator.positions[arm.Motor2])
	}
}

func TestCustomCommand(t *testing.T) {
	d, queue, actuator := newTestDispatcher(t, nil)
	actuator.positions[arm.Motor1] = 0.3

	queue.Push(command.Command{Action: "custom", Motor2: command.Float(0.25), Gripper: command.Float(0.1)})
	result := d.Tick()

	if result.Kind != KindCustom {
		t.Fatalf("Expected custom kind, got %s", result.Kind)
	}
	if actuator.positions[arm.Motor2] != 0.25 || actuator.positions[arm.Gripper] != 0.1 {
		t.Errorf("Unexpected targets: %v", actuator.positions)
	}
	if actuator.positions[arm.Motor1] != 0.3 {
		t.Errorf("Absent motor1 should stay 0.3, got %v", actuator.positions[arm.Motor1])
	}
}

func TestCustomWithoutSetpointsIsNoChange(t *testing.T) {
	d, queue, actuator := newTestDispatcher(t, nil)

	queue.Push(command.Action("custom"))
	d.Tick()

	if actuator.setCalls != 0 {
		t.Errorf("Expected no setpoint changes, got %d", actuator.setCalls)
	}
}

func TestStopThenPresetRestoresVelocity(t *testing.T) {
	d, queue, actuator := newTestDispatcher(t, nil)

	queue.Push(command.Action("stop"))
	d.Tick()
	for _, j := range arm.Joints() {
		if actuator.velocities[j] != 0 {
			t.Errorf("Expected %s velocity 0 after stop, got %v", j, actuator.velocities[j])
		}
	}
	if !d.Stopped() {
		t.Error("Expected dispatcher to report stopped")
	}

	queue.Push(command.Action("home"))
	d.Tick()
	for _, j := range arm.Joints() {
		if actuator.velocities[j] != 1.0 {
			t.Errorf("Expected %s velocity restored, got %v", j, actuator.velocities[j])
		}
	}
	if d.Stopped() {
		t.Error("Expected stop to be lifted")
	}
}

func TestStopThenPartialPresetKeepsOtherJointsFrozen(t *testing.T) {
	d, queue, actuator := newTestDispatcher(t, nil)

	queue.Push(command.Action("up"))
	d.Tick()
	queue.Push(command.Action("stop"))
	d.Tick()

	// open only targets the gripper
	queue.Push(command.Action("open"))
	d.Tick()

	if actuator.velocities[arm.Gripper] != 1.0 {
		t.Errorf("Expected gripper velocity restored, got %v", actuator.velocities[arm.Gripper])
	}
	for _, j := range []arm.Joint{arm.Motor1, arm.Motor2, arm.Motor3} {
		if actuator.velocities[j] != 0 {
			t.Errorf("Expected %s to stay frozen, got velocity %v", j, actuator.velocities[j])
		}
	}

	frozen := d.StoppedJoints()
	if len(frozen) != 3 || frozen[0] != arm.Motor1 || frozen[2] != arm.Motor3 {
		t.Errorf("Expected motor1..motor3 still frozen, got %v", frozen)
	}
	if !d.Stopped() {
		t.Error("Expected dispatcher to report stopped while joints are frozen")
	}

	queue.Push(command.Command{Action: "custom", Motor2: command.Float(0.2)})
	d.Tick()
	if actuator.velocities[arm.Motor2] != 1.0 || actuator.positions[arm.Motor2] != 0.2 {
		t.Errorf("Expected motor2 unfrozen at 0.2, got velocity %v position %v",
			actuator.velocities[arm.Motor2], actuator.positions[arm.Motor2])
	}
	if actuator.velocities[arm.Motor3] != 0 {
		t.Errorf("Expected motor3 to stay frozen, got %v", actuator.velocities[arm.Motor3])
	}
}

func TestPositionLogsReading(t *testing.T) {
	var buf bytes.Buffer
	d, queue, actuator := newTestDispatcher(t, &buf)
	actuator.reading = arm.Reading{Motor1: 0.5, Motor2: -0.25, Motor3: 1, Gripper: 0.123}

	queue.Push(command.Action("Position"))
	result := d.Tick()

	if result.Kind != KindPosition || result.Reading == nil {
		t.Fatalf("Expected position result with reading, got %+v", result)
	}
	want := "Current position: motor1=0.50, motor2=-0.25, motor3=1.00, gripper=0.12"
	if !strings.Contains(buf.String(), want) {
		t.Errorf("Expected %q in log, got:\n%s", want, buf.String())
	}
	if actuator.setCalls != 0 {
		t.Error("Position query must not move the arm")
	}
	if r, ok := d.LastReading(); !ok || r != actuator.reading {
		t.Errorf("Expected last reading %v, got %v (%v)", actuator.reading, r, ok)
	}
}

func TestUnknownActionIsNoop(t *testing.T) {
	d, queue, actuator := newTestDispatcher(t, nil)

	queue.Push(command.Action("dance"))
	result := d.Tick()

	if result.Kind != KindNoop {
		t.Errorf("Expected noop, got %s", result.Kind)
	}
	if actuator.setCalls != 0 {
		t.Error("Unknown action must not move the arm")
	}
	if m := d.GetMetrics(); m.NoOps != 1 || m.Applied != 0 {
		t.Errorf("Unexpected metrics %+v", m)
	}
	if _, ok := d.Registry().GetActionInfo("dance"); ok {
		t.Error("No-op actions should not be recorded")
	}
}

func TestOneCommandPerTick(t *testing.T) {
	d, queue, actuator := newTestDispatcher(t, nil)

	queue.Push(command.Action("left"))
	queue.Push(command.Action("right"))

	d.Tick()
	if actuator.positions[arm.Motor1] != 1.57 {
		t.Fatalf("Expected first command applied first, motor1=%v", actuator.positions[arm.Motor1])
	}
	if queue.Len() != 1 {
		t.Fatalf("Expected one pending command, got %d", queue.Len())
	}

	d.Tick()
	if actuator.positions[arm.Motor1] != -1.57 {
		t.Errorf("Expected second command on second tick, motor1=%v", actuator.positions[arm.Motor1])
	}
}

func TestTelemetryEveryN(t *testing.T) {
	d, _, actuator := newTestDispatcher(t, nil)
	actuator.reading = arm.Reading{Motor1: 1}

	var samples []arm.Reading
	d.SetTelemetry(3, func(r arm.Reading, ts int64) {
		if ts <= 0 {
			t.Errorf("Expected positive timestamp, got %d", ts)
		}
		samples = append(samples, r)
	})

	for i := 0; i < 7; i++ {
		d.Tick()
	}
	if len(samples) != 2 {
		t.Fatalf("Expected 2 telemetry samples in 7 ticks, got %d", len(samples))
	}
	if samples[0] != actuator.reading {
		t.Errorf("Unexpected sample %v", samples[0])
	}
}

func TestResultHandlerPublishes(t *testing.T) {
	d, queue, _ := newTestDispatcher(t, nil)
	pub := &fakePublisher{}
	d.SetResultHandler(NewLoggingResultHandler(customlog.NewNopLogger(), pub).CreateHandlerFunc())

	queue.Push(command.Action("close"))
	d.Tick()

	if len(pub.topics) != 1 || pub.topics[0] != ResultTopic {
		t.Fatalf("Expected one publish on %s, got %v", ResultTopic, pub.topics)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(pub.payloads[0], &decoded); err != nil {
		t.Fatalf("Published payload is not JSON: %v", err)
	}
	if decoded["action"] != "close" || decoded["kind"] != KindPreset {
		t.Errorf("Unexpected payload %v", decoded)
	}
}

func TestActionRegistryStats(t *testing.T) {
	d, queue, _ := newTestDispatcher(t, nil)

	queue.Push(command.Action("home"))
	queue.Push(command.Action("home"))
	queue.Push(command.Action("stop"))
	for i := 0; i < 3; i++ {
		d.Tick()
	}

	info, ok := d.Registry().GetActionInfo("home")
	if !ok || info.Count != 2 || info.Kind != KindPreset {
		t.Errorf("Unexpected home stats %+v", info)
	}
	stats := d.Registry().GetActionStats()
	if stats["stop"]["count"] != int64(1) {
		t.Errorf("Unexpected stop stats %v", stats["stop"])
	}
	if len(d.Registry().GetAllActions()) != 2 {
		t.Errorf("Expected 2 recorded actions, got %v", d.Registry().GetAllActions())
	}
}

func TestPresetTableReload(t *testing.T) {
	table := NewPresetTable(customlog.NewNopLogger())
	table.LoadFromConfig(config.DefaultPresetsConfig())

	names := table.Names()
	if len(names) != 7 || names[0] != "home" {
		t.Fatalf("Unexpected names %v", names)
	}

	table.LoadFromConfig(&config.PresetsConfig{
		ConfigID: "c", Version: "1", RobotID: "arm",
		Presets: []config.Preset{{Name: "wave", Motor1: command.Float(0.3)}},
	})
	if _, ok := table.Lookup("home"); ok {
		t.Error("Reload should replace old presets")
	}
	sp, ok := table.Lookup("wave")
	if !ok || sp[arm.Motor1] == nil || *sp[arm.Motor1] != 0.3 || sp[arm.Gripper] != nil {
		t.Errorf("Unexpected wave setpoints %v", sp)
	}
}
