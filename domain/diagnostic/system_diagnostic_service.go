package diagnostic

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/voice-arm/controller/pkg/arm"
	"github.com/voice-arm/controller/pkg/processing"
)

// Status represents the controller state
type Status struct {
	Timestamp     time.Time                         `json:"timestamp"`
	Status        string                            `json:"status"`
	RobotID       string                            `json:"robot_id"`
	QueueLength   int                               `json:"queue_length"`
	Stopped       bool                              `json:"stopped"`
	StoppedJoints []string                          `json:"stopped_joints,omitempty"`
	Presets       []string                          `json:"presets"`
	Metrics       processing.Metrics                `json:"metrics"`
	Actions       map[string]map[string]interface{} `json:"actions"`
	LastReading   *arm.Reading                      `json:"last_reading,omitempty"`
	CommandServer CommandServerStats                `json:"command_server"`
}

// CommandServerStats counts TCP commands accepted and rejected
type CommandServerStats struct {
	Received int64 `json:"received"`
	Rejected int64 `json:"rejected"`
}

// StatsFunc reports command server counters
type StatsFunc func() (received, rejected int64)

// DiagnosticService reports dispatcher and ingress state
type DiagnosticService struct {
	robotID    string
	dispatcher *processing.Dispatcher
	stats      StatsFunc
}

// NewDiagnosticService creates a new diagnostic service instance. stats may be nil.
func NewDiagnosticService(robotID string, dispatcher *processing.Dispatcher, stats StatsFunc) *DiagnosticService {
	return &DiagnosticService{
		robotID:    robotID,
		dispatcher: dispatcher,
		stats:      stats,
	}
}

// GetStatus collects the current controller state
func (s *DiagnosticService) GetStatus() Status {
	st := Status{
		Timestamp:   time.Now(),
		Status:      "running",
		RobotID:     s.robotID,
		QueueLength: s.dispatcher.QueueLength(),
		Stopped:     s.dispatcher.Stopped(),
		Presets:     s.dispatcher.Presets().Names(),
		Metrics:     s.dispatcher.GetMetrics(),
		Actions:     s.dispatcher.Registry().GetActionStats(),
	}
	for _, j := range s.dispatcher.StoppedJoints() {
		st.StoppedJoints = append(st.StoppedJoints, j.String())
	}
	if st.Stopped {
		st.Status = "stopped"
	}
	if reading, ok := s.dispatcher.LastReading(); ok {
		st.LastReading = &reading
	}
	if s.stats != nil {
		st.CommandServer.Received, st.CommandServer.Rejected = s.stats()
	}
	return st
}

// StatusHandler handles API requests for controller status
func (s *DiagnosticService) StatusHandler(c *fiber.Ctx) error {
	return c.JSON(s.GetStatus())
}
