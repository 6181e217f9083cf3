package monitor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gametime/internal/inspector"
)

type fakeInspector struct {
	mu         sync.Mutex
	processes  []inspector.Process
	titles     []string
	terminated []int32
	locked     int
}

func (f *fakeInspector) Processes(ctx context.Context) ([]inspector.Process, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.processes, nil
}

func (f *fakeInspector) WindowTitles(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.titles, nil
}

func (f *fakeInspector) Terminate(ctx context.Context, pid int32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.terminated = append(f.terminated, pid)
	return nil
}

func (f *fakeInspector) LockScreen(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.locked++
	return nil
}

func (f *fakeInspector) terminatedPIDs() []int32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int32(nil), f.terminated...)
}

func (f *fakeInspector) lockCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.locked
}

type fakeSession struct {
	active bool
}

func (f *fakeSession) Active() bool {
	return f.active
}

func TestMonitor_Tick(t *testing.T) {
	tests := []struct {
		name           string
		processes      []inspector.Process
		titles         []string
		lockScreen     bool
		wantTerminated []int32
		wantLocks      int
	}{
		{
			name:      "nothing restricted running",
			processes: []inspector.Process{{PID: 1, Name: "systemd"}, {PID: 42, Name: "code"}},
			titles:    []string{"editor - main.go"},
		},
		{
			name: "process rule kills matching processes",
			processes: []inspector.Process{
				{PID: 100, Name: "javaw.exe"},
				{PID: 101, Name: "RobloxPlayer"},
				{PID: 102, Name: "bash"},
			},
			lockScreen:     true,
			wantTerminated: []int32{100, 101},
			wantLocks:      1,
		},
		{
			name:       "window rule locks without killing",
			processes:  []inspector.Process{{PID: 1, Name: "systemd"}},
			titles:     []string{"Steam - Library"},
			lockScreen: true,
			wantLocks:  1,
		},
		{
			name: "browser tab rule kills the browser",
			processes: []inspector.Process{
				{PID: 200, Name: "firefox"},
				{PID: 201, Name: "bash"},
			},
			titles:         []string{"Bloxd.io - Mozilla Firefox"},
			lockScreen:     true,
			wantTerminated: []int32{200},
			wantLocks:      1,
		},
		{
			name: "browser without the tab is left alone",
			processes: []inspector.Process{
				{PID: 200, Name: "firefox"},
			},
			titles:     []string{"news site - Mozilla Firefox"},
			lockScreen: true,
		},
		{
			name: "lock disabled still kills",
			processes: []inspector.Process{
				{PID: 300, Name: "robloxplayerbeta.exe"},
			},
			wantTerminated: []int32{300},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			insp := &fakeInspector{processes: tt.processes, titles: tt.titles}
			m := New(insp, &fakeSession{}, DefaultRules(), Config{
				Interval:   time.Second,
				LockScreen: tt.lockScreen,
			}, nil, nil)

			require.NoError(t, m.tick(context.Background()))
			assert.Equal(t, tt.wantTerminated, insp.terminatedPIDs())
			assert.Equal(t, tt.wantLocks, insp.lockCount())
		})
	}
}

func TestMonitor_SkipsWhileSessionActive(t *testing.T) {
	insp := &fakeInspector{
		processes: []inspector.Process{{PID: 100, Name: "javaw.exe"}},
	}
	session := &fakeSession{active: true}
	m := New(insp, session, DefaultRules(), Config{Interval: time.Second, LockScreen: true}, nil, nil)

	m.Start(context.Background())
	defer m.Stop()

	// Two poll intervals pass with a restricted process running; the
	// active session keeps the monitor quiet.
	time.Sleep(2200 * time.Millisecond)
	assert.Empty(t, insp.terminatedPIDs())
	assert.Zero(t, insp.lockCount())
}

func TestMonitor_StartStopIdempotent(t *testing.T) {
	insp := &fakeInspector{}
	m := New(insp, &fakeSession{}, DefaultRules(), Config{Interval: time.Second}, nil, nil)

	assert.False(t, m.Running())

	m.Start(context.Background())
	m.Start(context.Background())
	assert.True(t, m.Running())

	m.Stop()
	m.Stop()
	assert.False(t, m.Running())
}

func TestMonitor_SetIntervalClamps(t *testing.T) {
	m := New(&fakeInspector{}, &fakeSession{}, nil, Config{Interval: 15 * time.Second}, nil, nil)

	m.SetInterval(0)
	assert.Equal(t, time.Second, m.interval)

	m.SetInterval(5 * time.Minute)
	assert.Equal(t, 60*time.Second, m.interval)

	m.SetInterval(15 * time.Second)
	assert.Equal(t, 15*time.Second, m.interval)
}
