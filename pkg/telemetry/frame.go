// Package telemetry encodes periodic joint-state samples as FlatBuffers frames.
package telemetry

import (
	"errors"

	flatbuffers "github.com/google/flatbuffers/go"

	"github.com/voice-arm/controller/pkg/arm"
)

// Topic is the publish topic for joint-state frames
const Topic = "arm.telemetry"

// ErrShortFrame is returned when a frame is too small to hold a root table
var ErrShortFrame = errors.New("telemetry frame too short")

// Frame is the decoded form of a JointState buffer
type Frame struct {
	TimestampNs int64
	RobotID     string
	Reading     arm.Reading
}

// Encoder builds JointState frames, reusing its builder between calls.
// It is not safe for concurrent use.
type Encoder struct {
	robotID string
	builder *flatbuffers.Builder
}

// NewEncoder creates an encoder stamping frames with robotID
func NewEncoder(robotID string) *Encoder {
	return &Encoder{
		robotID: robotID,
		builder: flatbuffers.NewBuilder(128),
	}
}

// Encode serializes one reading. The returned slice is a fresh copy.
func (e *Encoder) Encode(reading arm.Reading, timestampNs int64) []byte {
	b := e.builder
	b.Reset()

	robotID := b.CreateString(e.robotID)

	JointStateStart(b)
	JointStateAddTimestampNs(b, timestampNs)
	JointStateAddMotor1(b, reading.Motor1)
	JointStateAddMotor2(b, reading.Motor2)
	JointStateAddMotor3(b, reading.Motor3)
	JointStateAddGripper(b, reading.Gripper)
	JointStateAddRobotId(b, robotID)
	FinishJointStateBuffer(b, JointStateEnd(b))

	out := b.FinishedBytes()
	frame := make([]byte, len(out))
	copy(frame, out)
	return frame
}

// Decode reads a JointState frame
func Decode(data []byte) (Frame, error) {
	if len(data) < flatbuffers.SizeUOffsetT {
		return Frame{}, ErrShortFrame
	}

	js := GetRootAsJointState(data, 0)
	return Frame{
		TimestampNs: js.TimestampNs(),
		RobotID:     string(js.RobotId()),
		Reading: arm.Reading{
			Motor1:  js.Motor1(),
			Motor2:  js.Motor2(),
			Motor3:  js.Motor3(),
			Gripper: js.Gripper(),
		},
	}, nil
}
