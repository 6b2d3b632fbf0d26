package recovery

import (
	"sort"
	"sync"
)

// failureWindow is the number of consecutive failing samples after which a
// probe counts as consistently failing.
const failureWindow = 3

// maxSamples bounds the retained history per probe.
const maxSamples = 32

// Probe reports whether one aspect of the system is currently healthy.
type Probe func() bool

// HealthMonitor runs named boolean probes and tracks their recent history.
type HealthMonitor struct {
	mu      sync.Mutex
	probes  map[string]Probe
	samples map[string][]bool
}

// NewHealthMonitor builds an empty monitor.
func NewHealthMonitor() *HealthMonitor {
	return &HealthMonitor{
		probes:  make(map[string]Probe),
		samples: make(map[string][]bool),
	}
}

// Register adds or replaces a probe. Replacing a probe clears its history.
func (h *HealthMonitor) Register(name string, probe Probe) {
	if name == "" || probe == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.probes[name] = probe
	delete(h.samples, name)
}

// RunProbes executes every probe once and records the results.
func (h *HealthMonitor) RunProbes() {
	h.mu.Lock()
	names := make([]string, 0, len(h.probes))
	for name := range h.probes {
		names = append(names, name)
	}
	probes := make([]Probe, len(names))
	for i, name := range names {
		probes[i] = h.probes[name]
	}
	h.mu.Unlock()

	results := make([]bool, len(names))
	for i, probe := range probes {
		results[i] = probe()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for i, name := range names {
		history := append(h.samples[name], results[i])
		if len(history) > maxSamples {
			history = history[len(history)-maxSamples:]
		}
		h.samples[name] = history
	}
}

// Score returns the fraction of probes whose latest sample passed, in
// [0, 1]. A monitor with no samples scores 1.
func (h *HealthMonitor) Score() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	total, passing := 0, 0
	for _, history := range h.samples {
		if len(history) == 0 {
			continue
		}
		total++
		if history[len(history)-1] {
			passing++
		}
	}
	if total == 0 {
		return 1
	}
	return float64(passing) / float64(total)
}

// ConsistentlyFailing lists probes whose last three samples all failed,
// sorted by name.
func (h *HealthMonitor) ConsistentlyFailing() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var failing []string
	for name, history := range h.samples {
		if len(history) < failureWindow {
			continue
		}
		allFailed := true
		for _, ok := range history[len(history)-failureWindow:] {
			if ok {
				allFailed = false
				break
			}
		}
		if allFailed {
			failing = append(failing, name)
		}
	}
	sort.Strings(failing)
	return failing
}
