package api

import (
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	gorilla "github.com/gorilla/websocket"

	"github.com/voice-arm/controller/domain/diagnostic"
	"github.com/voice-arm/controller/domain/teleop"
	"github.com/voice-arm/controller/pkg/arm"
	"github.com/voice-arm/controller/pkg/command"
	customlog "github.com/voice-arm/controller/pkg/log"
	"github.com/voice-arm/controller/pkg/processing"
	"github.com/voice-arm/controller/services"
)

type nullActuator struct{}

func (nullActuator) SetPosition(arm.Joint, float64) {}
func (nullActuator) SetVelocity(arm.Joint, float64) {}
func (nullActuator) RestoreVelocity(arm.Joint)      {}
func (nullActuator) Read() arm.Reading              { return arm.Reading{Gripper: 0.5} }

type testEnv struct {
	app        *fiber.App
	queue      *command.Queue
	dispatcher *processing.Dispatcher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := customlog.NewNopLogger()
	queue := command.NewQueue()

	cfgService, err := services.NewPresetsConfigService(filepath.Join(t.TempDir(), "presets.yaml"), logger)
	if err != nil {
		t.Fatalf("Config service failed: %v", err)
	}
	presets := processing.NewPresetTable(logger)
	cfgService.OnApply(presets.LoadFromConfig)

	dispatcher := processing.NewDispatcher(logger, queue, nullActuator{}, presets, processing.NewActionRegistry(logger))

	app := NewApp(Deps{
		Logger:        logger,
		Queue:         queue,
		ConfigService: cfgService,
		Teleop:        teleop.NewTeleopService(queue, logger),
		Diagnostic: diagnostic.NewDiagnosticService("arm", dispatcher, func() (int64, int64) {
			return 3, 1
		}),
	})
	return &testEnv{app: app, queue: queue, dispatcher: dispatcher}
}

func (e *testEnv) do(t *testing.T, method, path, contentType, body string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := e.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(data)
}

func TestHealthAndBanner(t *testing.T) {
	env := newTestEnv(t)

	if code, body := env.do(t, http.MethodGet, "/health", "", ""); code != 200 || !strings.Contains(body, "healthy") {
		t.Errorf("Unexpected /health: %d %s", code, body)
	}
	if code, body := env.do(t, http.MethodGet, "/", "", ""); code != 200 || !strings.Contains(body, "online") {
		t.Errorf("Unexpected /: %d %s", code, body)
	}
}

func TestPostCommand(t *testing.T) {
	env := newTestEnv(t)

	code, body := env.do(t, http.MethodPost, "/api/v1/command", "application/json", `{"action": "open"}`)
	if code != 200 {
		t.Fatalf("Expected 200, got %d: %s", code, body)
	}
	var resp CommandResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil || resp.Status != command.AckReceived {
		t.Errorf("Unexpected body %s", body)
	}
	if cmd, ok := env.queue.Pop(); !ok || cmd.Action != "open" {
		t.Errorf("Expected queued open command, got %+v", cmd)
	}
}

func TestPostCommandInvalid(t *testing.T) {
	env := newTestEnv(t)

	code, body := env.do(t, http.MethodPost, "/api/v1/command", "application/json", `{"action": 5}`)
	if code != 400 {
		t.Fatalf("Expected 400, got %d", code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil || resp.Error != command.AckInvalidJSON {
		t.Errorf("Unexpected body %s", body)
	}
	if env.queue.Len() != 0 {
		t.Error("Invalid command must not be queued")
	}
}

func TestStatus(t *testing.T) {
	env := newTestEnv(t)
	env.queue.Push(command.Action("position"))
	env.dispatcher.Tick()
	env.queue.Push(command.Action("home"))

	code, body := env.do(t, http.MethodGet, "/api/v1/status", "", "")
	if code != 200 {
		t.Fatalf("Expected 200, got %d", code)
	}
	var st diagnostic.Status
	if err := json.Unmarshal([]byte(body), &st); err != nil {
		t.Fatalf("Status not JSON: %v", err)
	}
	if st.QueueLength != 1 || st.Metrics.Ticks != 1 || len(st.Presets) != 7 {
		t.Errorf("Unexpected status %+v", st)
	}
	if st.LastReading == nil || st.LastReading.Gripper != 0.5 {
		t.Errorf("Expected last reading, got %v", st.LastReading)
	}
	if st.CommandServer.Received != 3 || st.CommandServer.Rejected != 1 {
		t.Errorf("Unexpected command server stats %+v", st.CommandServer)
	}
}

func TestPresetsConfigRoutes(t *testing.T) {
	env := newTestEnv(t)

	code, body := env.do(t, http.MethodGet, "/api/v1/config/presets", "", "")
	if code != 200 || !strings.Contains(body, "builtin-presets") {
		t.Fatalf("Unexpected GET: %d %s", code, body)
	}

	update := "version: '2'\nconfig_id: wave\nrobot_id: arm\npresets:\n  - name: wave\n    motor1: 0.4\n"
	code, body = env.do(t, http.MethodPut, "/api/v1/config/presets", "application/x-yaml", update)
	if code != 200 {
		t.Fatalf("Expected 200, got %d: %s", code, body)
	}
	if _, ok := env.dispatcher.Presets().Lookup("wave"); !ok {
		t.Error("Updated presets not applied to the dispatcher")
	}

	code, _ = env.do(t, http.MethodPut, "/api/v1/config/presets", "application/x-yaml", "config_id: x\n")
	if code != 400 {
		t.Errorf("Expected 400 for invalid presets, got %d", code)
	}
	code, _ = env.do(t, http.MethodPut, "/api/v1/config/presets", "application/x-yaml", "")
	if code != 400 {
		t.Errorf("Expected 400 for empty body, got %d", code)
	}
}

func TestWebSocketRequiresUpgrade(t *testing.T) {
	env := newTestEnv(t)

	code, body := env.do(t, http.MethodGet, "/ws/control", "", "")
	if code != fiber.StatusUpgradeRequired {
		t.Errorf("Expected 426, got %d: %s", code, body)
	}
}

func TestControlWebSocket(t *testing.T) {
	env := newTestEnv(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	go env.app.Listener(ln)
	t.Cleanup(func() { env.app.Shutdown() })

	conn, _, err := gorilla.DefaultDialer.Dial("ws://"+ln.Addr().String()+"/ws/control", nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	exchange := func(payload, want string) {
		t.Helper()
		if err := conn.WriteMessage(gorilla.TextMessage, []byte(payload)); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
		_, reply, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}
		if string(reply) != want {
			t.Errorf("Payload %q: expected %q, got %q", payload, want, reply)
		}
	}

	exchange(`{"action": "left"}`, command.AckReceived)
	exchange(`not json`, command.AckInvalidJSON)
	exchange(`{"action": "stop"}`, command.AckReceived)

	if env.queue.Len() != 2 {
		t.Errorf("Expected 2 queued commands, got %d", env.queue.Len())
	}
}
