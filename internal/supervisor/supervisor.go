// Package supervisor implements the Miner Service: a registry of Miner
// Instances keyed by a 1-based tab index, mediating create/start/stop/
// remove and broadcasting per-instance log and state events. It is the
// top-level collaborator the power-event handler and the IPC surface talk
// to; it knows nothing about UI concerns or OS signals itself.
package supervisor

import (
	"fmt"
	"sort"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/sync/errgroup"

	"github.com/marscredit/monorepo/internal/instance"
	"github.com/marscredit/monorepo/internal/paths"
	"github.com/marscredit/monorepo/internal/rpcclient"
)

// cachedConfig is what the supervisor remembers for a tab across restarts
// within a session: the knobs startMiner needs again even after the
// instance has been stopped and its in-memory Config discarded.
type cachedConfig struct {
	MinerThreads int
	CacheMB      int
	Etherbase    string
}

// Service is the Miner Service: registry and broadcast hub over paths.Layout
// and one Instance per tab. Safe for concurrent use.
type Service struct {
	layout *paths.Layout
	rpc    *rpcclient.Client
	log    log.Logger

	mu          sync.Mutex
	gethPath    string
	nextIndex   int
	instances   map[int]*instance.Instance
	configCache map[int]cachedConfig
}

// New constructs an empty Miner Service.
func New(layout *paths.Layout, rpc *rpcclient.Client) *Service {
	return &Service{
		layout:      layout,
		rpc:         rpc,
		log:         log.New("component", "supervisor"),
		instances:   make(map[int]*instance.Instance),
		configCache: make(map[int]cachedConfig),
	}
}

// SetGethPath updates the default binary path. It applies to instances
// created afterwards and to an existing instance the next time StartMiner
// starts it; a process that is already running keeps its binary.
func (s *Service) SetGethPath(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gethPath = path
}

// AddTab allocates the next index — one more than the highest index ever
// allocated in this session, starting at 1 — and creates (but does not
// start) its instance. Indices are never recycled within a session, even
// after RemoveTab of the current maximum or of every tab.
func (s *Service) AddTab(cfg instance.Config) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextIndex++
	idx := s.nextIndex
	cfg.MinerIndex = idx
	if cfg.GethBinaryPath == "" {
		cfg.GethBinaryPath = s.gethPath
	}
	s.instances[idx] = instance.New(s.layout, s.rpc, cfg)
	s.configCache[idx] = cachedConfig{MinerThreads: cfg.MinerThreads, CacheMB: cfg.CacheMB, Etherbase: cfg.Etherbase}
	s.log.Debug("tab added", "index", idx)
	return idx
}

// RemoveTab stops the instance if running and forgets it. Removing an
// unknown index is a no-op.
func (s *Service) RemoveTab(i int) error {
	s.mu.Lock()
	inst, ok := s.instances[i]
	if !ok {
		s.mu.Unlock()
		return nil
	}
	delete(s.instances, i)
	delete(s.configCache, i)
	s.mu.Unlock()

	return inst.Stop()
}

// mergedConfig layers an explicit partial config over the per-index
// remembered cache (never over an instance's already-defaulted Config, or
// the cache's memory would be masked by defaults on the very next call), so
// a stopped tab remembers its threads/cache/etherbase across restarts
// within a session.
func (s *Service) mergedConfig(i int, partial instance.Config) instance.Config {
	merged := instance.Config{MinerIndex: i, GethBinaryPath: s.gethPath}
	if cached, ok := s.configCache[i]; ok {
		merged.MinerThreads = cached.MinerThreads
		merged.CacheMB = cached.CacheMB
		merged.Etherbase = cached.Etherbase
	}
	if partial.GethBinaryPath != "" {
		merged.GethBinaryPath = partial.GethBinaryPath
	}
	if partial.MinerThreads != 0 {
		merged.MinerThreads = partial.MinerThreads
	}
	if partial.CacheMB != 0 {
		merged.CacheMB = partial.CacheMB
	}
	if partial.Etherbase != "" {
		merged.Etherbase = partial.Etherbase
	}
	return merged.WithDefaults()
}

// StartMiner creates the instance if necessary, merges partial config over
// the cached values for this index, starts it, and emits the initial state
// event (emitted by the instance itself as part of Start).
func (s *Service) StartMiner(i int, partial instance.Config) error {
	s.mu.Lock()
	inst, ok := s.instances[i]
	merged := s.mergedConfig(i, partial)
	if !ok {
		inst = instance.New(s.layout, s.rpc, merged)
		s.instances[i] = inst
		if i > s.nextIndex {
			s.nextIndex = i
		}
	} else {
		inst.UpdateConfig(merged)
	}
	s.configCache[i] = cachedConfig{MinerThreads: merged.MinerThreads, CacheMB: merged.CacheMB, Etherbase: merged.Etherbase}
	s.mu.Unlock()

	return inst.Start()
}

// StopMiner is an idempotent stop of the instance at index i; stopping an
// unknown index is a no-op.
func (s *Service) StopMiner(i int) error {
	s.mu.Lock()
	inst, ok := s.instances[i]
	s.mu.Unlock()
	if !ok {
		return nil
	}
	return inst.Stop()
}

// GetMinerState returns the instance's snapshot, or nil for an unknown
// index.
func (s *Service) GetMinerState(i int) *instance.Snapshot {
	s.mu.Lock()
	inst, ok := s.instances[i]
	s.mu.Unlock()
	if !ok {
		return nil
	}
	snap := inst.Snapshot()
	return &snap
}

// GetTabIndices returns every known tab index, ascending.
func (s *Service) GetTabIndices() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int, 0, len(s.instances))
	for i := range s.instances {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// GetRpcUrl returns the instance's RPC URL, or "" for an unknown index.
func (s *Service) GetRpcUrl(i int) string {
	s.mu.Lock()
	inst, ok := s.instances[i]
	s.mu.Unlock()
	if !ok {
		return ""
	}
	return inst.Snapshot().RPCURL
}

// GetRunningMinerIndices returns the indices whose instance currently
// reports running, as an order-independent set realized into a sorted
// slice for callers.
func (s *Service) GetRunningMinerIndices() []int {
	running := mapset.NewThreadUnsafeSet[int]()
	s.mu.Lock()
	snapshot := make(map[int]*instance.Instance, len(s.instances))
	for i, inst := range s.instances {
		snapshot[i] = inst
	}
	s.mu.Unlock()

	for i, inst := range snapshot {
		if inst.Snapshot().Running {
			running.Add(i)
		}
	}
	out := running.ToSlice()
	sort.Ints(out)
	return out
}

// Subscribe returns a combined event channel merging every current
// instance's event stream plus a function that unsubscribes from all of
// them. Per-instance ordering is preserved; ordering across instances is
// not guaranteed, matching §5.
func (s *Service) Subscribe() (<-chan instance.Event, func()) {
	s.mu.Lock()
	insts := make([]*instance.Instance, 0, len(s.instances))
	for _, inst := range s.instances {
		insts = append(insts, inst)
	}
	s.mu.Unlock()

	out := make(chan instance.Event, 256)
	var wg sync.WaitGroup
	unsubs := make([]func(), 0, len(insts))
	stopFanIn := make(chan struct{})

	for _, inst := range insts {
		ch, unsub := inst.Subscribe()
		unsubs = append(unsubs, unsub)
		wg.Add(1)
		go func(ch <-chan instance.Event) {
			defer wg.Done()
			for {
				select {
				case ev, ok := <-ch:
					if !ok {
						return
					}
					select {
					case out <- ev:
					case <-stopFanIn:
						return
					}
				case <-stopFanIn:
					return
				}
			}
		}(ch)
	}

	closeOnce := sync.Once{}
	cancel := func() {
		closeOnce.Do(func() {
			close(stopFanIn)
			for _, unsub := range unsubs {
				unsub()
			}
			wg.Wait()
			close(out)
		})
	}
	return out, cancel
}

// StopAll stops every instance in parallel via errgroup, aggregating
// failures without letting one failing stop cancel the others (§7: failures
// during stopAll never cancel the remaining stops).
func (s *Service) StopAll() error {
	s.mu.Lock()
	insts := make([]*instance.Instance, 0, len(s.instances))
	for _, inst := range s.instances {
		insts = append(insts, inst)
	}
	s.mu.Unlock()

	var g errgroup.Group
	errs := make([]error, len(insts))
	for idx, inst := range insts {
		idx, inst := idx, inst
		g.Go(func() error {
			errs[idx] = inst.Stop()
			return nil // never short-circuits sibling stops
		})
	}
	_ = g.Wait()

	var failures []error
	for _, err := range errs {
		if err != nil {
			failures = append(failures, err)
		}
	}
	if len(failures) > 0 {
		return fmt.Errorf("stopAll: %d of %d instances failed to stop cleanly: %v", len(failures), len(insts), failures)
	}
	s.log.Info("stopAll complete", "instances", len(insts))
	return nil
}
