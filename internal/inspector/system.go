package inspector

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v4/process"
)

// System is the real host inspector. Process enumeration uses gopsutil;
// window titles and screen locking shell out to platform tools.
type System struct{}

func NewSystem() *System {
	return &System{}
}

// Processes lists running processes. Processes whose name cannot be
// read (exited, permission denied) are skipped.
func (s *System) Processes(ctx context.Context) ([]Process, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("process.ProcessesWithContext() > %w", err)
	}

	result := make([]Process, 0, len(procs))
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		result = append(result, Process{PID: p.Pid, Name: name})
	}
	return result, nil
}

// WindowTitles lists the titles of visible windows. An unsupported or
// headless platform yields no titles rather than an error, so process
// rules still apply.
func (s *System) WindowTitles(ctx context.Context) ([]string, error) {
	switch runtime.GOOS {
	case "linux":
		return linuxWindowTitles(ctx)
	case "darwin":
		return darwinWindowTitles(ctx)
	case "windows":
		return windowsWindowTitles(ctx)
	default:
		return nil, nil
	}
}

func linuxWindowTitles(ctx context.Context) ([]string, error) {
	// wmctrl -l prints: <window id> <desktop> <host> <title...>
	output, err := exec.CommandContext(ctx, "wmctrl", "-l").Output()
	if err != nil {
		return nil, nil
	}

	var titles []string
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		fields := strings.SplitN(scanner.Text(), " ", 4)
		if len(fields) == 4 {
			titles = append(titles, strings.TrimSpace(fields[3]))
		}
	}
	return titles, nil
}

func darwinWindowTitles(ctx context.Context) ([]string, error) {
	script := `tell application "System Events" to get the title of every window of every process whose visible is true`
	output, err := exec.CommandContext(ctx, "osascript", "-e", script).Output()
	if err != nil {
		return nil, nil
	}

	var titles []string
	for _, title := range strings.Split(string(output), ",") {
		if title = strings.TrimSpace(title); title != "" {
			titles = append(titles, title)
		}
	}
	return titles, nil
}

func windowsWindowTitles(ctx context.Context) ([]string, error) {
	script := `Get-Process | Where-Object {$_.MainWindowTitle} | ForEach-Object {$_.MainWindowTitle}`
	output, err := exec.CommandContext(ctx, "powershell", "-NoProfile", "-Command", script).Output()
	if err != nil {
		return nil, nil
	}

	var titles []string
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		if title := strings.TrimSpace(scanner.Text()); title != "" {
			titles = append(titles, title)
		}
	}
	return titles, nil
}

// Terminate kills the process. A process that already exited is not an
// error.
func (s *System) Terminate(ctx context.Context, pid int32) error {
	p, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return nil
	}
	if err := p.KillWithContext(ctx); err != nil {
		return fmt.Errorf("process.KillWithContext(%d) > %w", pid, err)
	}
	return nil
}

// LockScreen locks the desktop session.
func (s *System) LockScreen(ctx context.Context) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "linux":
		cmd = exec.CommandContext(ctx, "loginctl", "lock-session")
	case "darwin":
		cmd = exec.CommandContext(ctx, "pmset", "displaysleepnow")
	case "windows":
		cmd = exec.CommandContext(ctx, "rundll32.exe", "user32.dll,LockWorkStation")
	default:
		return fmt.Errorf("screen locking is not supported on %s", runtime.GOOS)
	}

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("lock command %q > %w", cmd.Path, err)
	}
	return nil
}
