package audio

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// procVersionPath is where the kernel identifies itself; WSL kernels mention Microsoft.
const procVersionPath = "/proc/version"

// IsWSL reports whether the process runs under Windows Subsystem for Linux.
func IsWSL() bool {
	return isWSLFrom(procVersionPath)
}

func isWSLFrom(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(string(data)), "microsoft")
}

// CommandRunner runs an external program and returns its standard output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

// WSLRecorder records through the Windows audio stack, since WSL has no
// direct microphone access. Each capture records a fixed window into a WAV
// file with the winmm MCI interface.
type WSLRecorder struct {
	run CommandRunner
}

// NewWSLRecorder creates a recorder that shells out to wslpath and powershell.exe.
func NewWSLRecorder() *WSLRecorder {
	return &WSLRecorder{run: execRunner}
}

// Capture records for the given window and returns 16 kHz mono samples.
// ErrNoSpeech is returned when the window holds only silence.
func (r *WSLRecorder) Capture(ctx context.Context, window time.Duration) ([]float32, error) {
	tmp, err := os.CreateTemp("", "voice-*.wav")
	if err != nil {
		return nil, fmt.Errorf("create temp wav: %w", err)
	}
	tmp.Close()
	defer os.Remove(tmp.Name())

	winPath, err := r.run(ctx, "wslpath", "-w", tmp.Name())
	if err != nil {
		return nil, fmt.Errorf("convert path: %w", err)
	}

	script := recordScript(strings.TrimSpace(string(winPath)), window)
	if _, err := r.run(ctx, "powershell.exe", "-NoProfile", "-Command", script); err != nil {
		return nil, fmt.Errorf("record audio: %w", err)
	}

	pcm, err := DecodeFile(tmp.Name())
	if err != nil {
		return nil, fmt.Errorf("read recording: %w", err)
	}
	if !HasSpeech(pcm) {
		return nil, ErrNoSpeech
	}
	return pcm, nil
}

// recordScript builds the PowerShell program recording window seconds to winPath.
func recordScript(winPath string, window time.Duration) string {
	seconds := int(window.Round(time.Second) / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	path := strings.ReplaceAll(winPath, "'", "''")

	return strings.Join([]string{
		`Add-Type -TypeDefinition 'using System; using System.Runtime.InteropServices; using System.Text; public static class Mci { [DllImport("winmm.dll")] public static extern int mciSendString(string cmd, StringBuilder ret, int len, IntPtr cb); }'`,
		`[Mci]::mciSendString('open new type waveaudio alias capture', $null, 0, [IntPtr]::Zero) | Out-Null`,
		fmt.Sprintf(`[Mci]::mciSendString('set capture bitspersample 16 samplespersec %d channels 1', $null, 0, [IntPtr]::Zero) | Out-Null`, SampleRate),
		`[Mci]::mciSendString('record capture', $null, 0, [IntPtr]::Zero) | Out-Null`,
		fmt.Sprintf(`Start-Sleep -Seconds %d`, seconds),
		fmt.Sprintf(`[Mci]::mciSendString('save capture "%s"', $null, 0, [IntPtr]::Zero) | Out-Null`, path),
		`[Mci]::mciSendString('close capture', $null, 0, [IntPtr]::Zero) | Out-Null`,
	}, "; ")
}
