package instance

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	gethlog "github.com/ethereum/go-ethereum/log"

	"github.com/marscredit/monorepo/internal/genesisinit"
	"github.com/marscredit/monorepo/internal/paths"
	"github.com/marscredit/monorepo/internal/rpcclient"
)

// forcedKillGrace is how long stop waits after the graceful signal before
// forcing termination.
const forcedKillGrace = 5 * time.Second

// Instance owns a single supervised Geth child process tied to a fixed
// miner index: its ports, its log stream, its PID file, and its health
// probe. Safe for concurrent use.
type Instance struct {
	layout *paths.Layout
	rpc    *rpcclient.Client
	log    gethlog.Logger

	broadcaster *broadcaster

	mu            sync.Mutex
	cfg           Config
	state         State
	cmd           *exec.Cmd
	pid           int
	health        *healthChecker
	stopped       chan struct{} // closed when the current run's wait loop exits
	stopRequested bool          // Stop() arrived while starting, before cmd existed
}

// New creates a created-state instance for cfg. No files are touched until
// Start.
func New(layout *paths.Layout, rpc *rpcclient.Client, cfg Config) *Instance {
	cfg = cfg.WithDefaults()
	return &Instance{
		layout:      layout,
		rpc:         rpc,
		cfg:         cfg,
		state:       StateCreated,
		broadcaster: newBroadcaster(),
		log:         gethlog.New("component", "instance", "miner", cfg.MinerIndex),
	}
}

// Subscribe returns a channel of this instance's future events (log lines,
// state deltas, exit), replayed with recent log backlog, and an unsubscribe
// function.
func (in *Instance) Subscribe() (<-chan Event, func()) {
	return in.broadcaster.subscribe()
}

// Snapshot returns the instance's current externally-visible state.
func (in *Instance) Snapshot() Snapshot {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.snapshotLocked()
}

func (in *Instance) snapshotLocked() Snapshot {
	return Snapshot{
		MinerIndex: in.cfg.MinerIndex,
		Running:    in.state == StateRunning,
		Pid:        in.pid,
		RPCURL:     RPCURL(in.cfg.MinerIndex),
		Config:     in.cfg,
		State:      in.state,
	}
}

// UpdateConfig merges partial config fields into the cached config. It does
// not restart a running process; the new values apply on the next Start.
func (in *Instance) UpdateConfig(partial Config) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if partial.GethBinaryPath != "" {
		in.cfg.GethBinaryPath = partial.GethBinaryPath
	}
	if partial.MinerThreads != 0 {
		in.cfg.MinerThreads = partial.MinerThreads
	}
	if partial.CacheMB != 0 {
		in.cfg.CacheMB = partial.CacheMB
	}
	if partial.Etherbase != "" {
		in.cfg.Etherbase = partial.Etherbase
	}
}

func (in *Instance) emitState() {
	snap := in.snapshotLocked()
	in.broadcaster.publish(Event{Kind: EventState, State: &snap})
}

// Start spawns the child Geth process for this instance's config. It fails
// if a process is already owned; it is not otherwise idempotent.
func (in *Instance) Start() error {
	in.mu.Lock()
	if in.state == StateStarting || in.state == StateRunning || in.cmd != nil {
		in.mu.Unlock()
		return ErrAlreadyRunning
	}
	cfg := in.cfg
	in.state = StateStarting
	in.emitState()
	in.mu.Unlock()

	if err := genesisinit.InitMinerDataDir(in.layout, cfg.GethBinaryPath, cfg.MinerIndex, ""); err != nil {
		in.mu.Lock()
		in.state = StateExited
		in.emitState()
		in.mu.Unlock()
		return err
	}

	logsDir := in.layout.MinerLogsDir(cfg.MinerIndex)
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		in.mu.Lock()
		in.state = StateExited
		in.emitState()
		in.mu.Unlock()
		return fmt.Errorf("create logs dir: %w", err)
	}

	argv := buildArgv(in.layout, cfg)
	cmd := exec.Command(cfg.GethBinaryPath, argv...)
	cmd.Stdin = nil
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return in.failSpawn(err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return in.failSpawn(err)
	}
	setDetached(cmd)

	if err := cmd.Start(); err != nil {
		return in.failSpawn(err)
	}

	pid := cmd.Process.Pid
	if err := os.WriteFile(in.layout.MinerPidPath(cfg.MinerIndex), []byte(strconv.Itoa(pid)), 0o644); err != nil {
		in.log.Warn("failed to persist pid file", "err", err)
	}

	startedAt := time.Now()
	stopped := make(chan struct{})

	in.mu.Lock()
	in.cmd = cmd
	in.pid = pid
	in.state = StateRunning
	in.stopped = stopped
	in.health = newHealthChecker(in.rpc, RPCURL(cfg.MinerIndex), startedAt, in.selfStopUnhealthy)
	in.emitState()
	health := in.health
	in.mu.Unlock()

	go in.pumpLines(cfg.MinerIndex, StreamStdout, stdout)
	go in.pumpLines(cfg.MinerIndex, StreamStderr, stderr)
	go health.run()
	go in.wait(cmd, stopped)

	in.mu.Lock()
	stopReq := in.stopRequested
	in.stopRequested = false
	in.mu.Unlock()
	if stopReq {
		// A Stop arrived while this Start was still provisioning the data
		// directory, before a process existed to signal; honor it now.
		go in.Stop()
	}

	return nil
}

func (in *Instance) failSpawn(cause error) error {
	in.mu.Lock()
	in.state = StateExited
	in.emitState()
	in.mu.Unlock()
	return &SpawnFailedError{Cause: cause}
}

func (in *Instance) pumpLines(minerIndex int, stream Stream, r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		text := scanner.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}
		line := LogLine{MinerIndex: minerIndex, Stream: stream, Text: text, Timestamp: time.Now()}
		in.broadcaster.publish(Event{Kind: EventLog, Log: &line})
	}
}

// wait blocks on the child process and performs exit cleanup: clearing the
// owned process, deleting the pid file, stopping the health checker, and
// emitting an exit event. It always runs to completion regardless of
// whether the exit was natural or induced by Stop.
func (in *Instance) wait(cmd *exec.Cmd, stopped chan struct{}) {
	err := cmd.Wait()
	defer close(stopped)

	exitCode := -1
	signal := ""
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
			if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
				signal = status.Signal().String()
			}
		}
	} else {
		exitCode = 0
	}

	in.mu.Lock()
	minerIndex := in.cfg.MinerIndex
	if in.health != nil {
		in.health.Stop()
		in.health = nil
	}
	in.cmd = nil
	in.pid = 0
	in.state = StateExited
	os.Remove(in.layout.MinerPidPath(minerIndex))
	in.emitState()
	in.mu.Unlock()

	in.broadcaster.publish(Event{Kind: EventExit, Exit: &ExitInfo{MinerIndex: minerIndex, ExitCode: exitCode, Signal: signal}})
}

// selfStopUnhealthy is invoked by the health checker after the
// consecutive-failure threshold is crossed; it triggers the same stop
// sequence as an explicit Stop call.
func (in *Instance) selfStopUnhealthy() {
	in.log.Warn("health probe exceeded failure threshold, stopping", "miner", in.cfg.MinerIndex)
	_ = in.Stop()
}

// Stop is idempotent and cooperative: it clears the health checker and pid
// file immediately, sends a graceful termination signal, and escalates to a
// forced kill after a 5s grace period if the child has not exited.
func (in *Instance) Stop() error {
	in.mu.Lock()
	if in.state == StateCreated || in.state == StateExited {
		in.mu.Unlock()
		return nil
	}
	if in.state == StateStarting && in.cmd == nil {
		// Provisioning (genesis init, logs dir) is still in flight and has
		// not spawned a process yet; flag it so Start terminates the child
		// the moment it exists instead of leaving it running.
		in.stopRequested = true
		in.state = StateStopping
		in.emitState()
		in.mu.Unlock()
		return nil
	}
	cmd := in.cmd
	stopped := in.stopped
	minerIndex := in.cfg.MinerIndex
	if in.health != nil {
		in.health.Stop()
	}
	os.Remove(in.layout.MinerPidPath(minerIndex))
	in.state = StateStopping
	in.emitState()
	in.mu.Unlock()

	if cmd == nil || cmd.Process == nil {
		return nil
	}

	if err := terminateGracefully(cmd.Process); err != nil {
		in.log.Debug("graceful termination signal failed", "err", err)
	}

	select {
	case <-stopped:
		return nil
	case <-time.After(forcedKillGrace):
	}

	select {
	case <-stopped:
		return nil
	default:
		if err := cmd.Process.Kill(); err != nil {
			in.log.Debug("forced kill failed", "err", err)
		}
	}

	<-stopped
	return nil
}

