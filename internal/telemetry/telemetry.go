// Package telemetry builds ClientStatistics snapshots and derives the
// client's health tag, ported from the original ClientStatistics.py
// threshold table.
package telemetry

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Health is a coarse self-reported load tag.
type Health int

const (
	HealthGood Health = iota
	HealthOkay
	HealthStressed
	HealthOverload
	HealthCritical
)

func (h Health) String() string {
	switch h {
	case HealthGood:
		return "GOOD"
	case HealthOkay:
		return "OKAY"
	case HealthStressed:
		return "STRESSED"
	case HealthOverload:
		return "OVERLOAD"
	default:
		return "CRITICAL"
	}
}

// computeHealth applies the first-match threshold table from §4.G.
func computeHealth(usedMaxRatio float64, cpuPercent float64) Health {
	switch {
	case usedMaxRatio <= 0.50 && cpuPercent < 50:
		return HealthGood
	case usedMaxRatio <= 0.60 && cpuPercent < 70:
		return HealthOkay
	case usedMaxRatio <= 0.70 && cpuPercent < 85:
		return HealthStressed
	case usedMaxRatio <= 0.85 && cpuPercent < 95:
		return HealthOverload
	default:
		return HealthCritical
	}
}

// ClientStatistics mirrors the original implementation's solicited
// telemetry record (§4.G, §3.1).
type ClientStatistics struct {
	NanoTime       int64
	MaxMemory      uint64
	UsedMemory     uint64
	FreeMemory     uint64
	CPUPercent     float64
	ProcessorCount int
	ThreadCount    int
	HostIP         string
	Hostname       string
	PID            int
	RuntimeName    string
	RuntimeVersion string
	ClientVersion  string
	Health         Health
	BufferSize     int
	BufferCapacity int
	UUID           uuid.UUID
}

// BufferStats is supplied by the caller (the Subscription Router owns
// the actual buffer) so this package has no dependency on it.
type BufferStats func() (occupancy, capacity int)

// Responder builds ClientStatistics snapshots for a single client
// instance. Not safe to share across clients (it caches the client's
// identity and a CPU sampler's prior reading).
type Responder struct {
	clientID      uuid.UUID
	clientVersion string
	bufferStats   BufferStats
	ghostMode     bool

	cpu *cpuSampler
}

// NewResponder constructs a Responder. Pass ghostMode=true to suppress
// solicitation replies entirely, per §4.G.
func NewResponder(clientID uuid.UUID, clientVersion string, bufferStats BufferStats, ghostMode bool) *Responder {
	return &Responder{
		clientID:      clientID,
		clientVersion: clientVersion,
		bufferStats:   bufferStats,
		ghostMode:     ghostMode,
		cpu:           newCPUSampler(),
	}
}

// GhostMode reports whether solicitation replies are suppressed.
func (r *Responder) GhostMode() bool {
	return r.ghostMode
}

// Snapshot builds a fresh ClientStatistics record. Returns false if the
// Responder is in ghost mode (caller must not send a reply).
func (r *Responder) Snapshot() (ClientStatistics, bool) {
	if r.ghostMode {
		return ClientStatistics{}, false
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	occ, capacity := 0, 0
	if r.bufferStats != nil {
		occ, capacity = r.bufferStats()
	}

	cpuPct := r.cpu.sample()
	usedMaxRatio := 0.0
	if mem.Sys > 0 {
		usedMaxRatio = float64(mem.HeapAlloc) / float64(mem.Sys)
	}

	hostname, _ := os.Hostname()
	hostIP := localIPv4()

	return ClientStatistics{
		NanoTime:       time.Now().UnixNano(),
		MaxMemory:      mem.Sys,
		UsedMemory:     mem.HeapAlloc,
		FreeMemory:     mem.Sys - mem.HeapAlloc,
		CPUPercent:     cpuPct,
		ProcessorCount: runtime.NumCPU(),
		ThreadCount:    runtime.NumGoroutine(),
		HostIP:         hostIP,
		Hostname:       hostname,
		PID:            os.Getpid(),
		RuntimeName:    "go",
		RuntimeVersion: runtime.Version(),
		ClientVersion:  r.clientVersion,
		Health:         computeHealth(usedMaxRatio, cpuPct),
		BufferSize:     occ,
		BufferCapacity: capacity,
		UUID:           r.clientID,
	}, true
}

func localIPv4() string {
	hostname, err := os.Hostname()
	if err != nil {
		return ""
	}
	addrs, err := netLookupHost(hostname)
	if err != nil || len(addrs) == 0 {
		return ""
	}
	return addrs[0]
}

// cpuSampler estimates this process's CPU usage percentage since the
// last sample, reading /proc/self/stat on Linux and degrading to a
// constant zero elsewhere (no cross-platform process CPU library
// appears in the example pack — see DESIGN.md).
type cpuSampler struct {
	mu       sync.Mutex
	lastJiff uint64
	lastWall time.Time
}

func newCPUSampler() *cpuSampler {
	return &cpuSampler{lastWall: time.Now()}
}

const clockTicksPerSecond = 100 // typical Linux USER_HZ; best-effort

func (c *cpuSampler) sample() float64 {
	jiffies, ok := readProcSelfStatJiffies()
	if !ok {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(c.lastWall).Seconds()
	var pct float64
	if c.lastJiff != 0 && elapsed > 0 {
		deltaJiff := float64(jiffies - c.lastJiff)
		pct = (deltaJiff / clockTicksPerSecond) / elapsed * 100
	}
	c.lastJiff = jiffies
	c.lastWall = now
	if pct < 0 {
		pct = 0
	}
	return pct
}

// readProcSelfStatJiffies reads utime+stime (fields 14, 15) from
// /proc/self/stat. Returns ok=false on any non-Linux or parse failure.
func readProcSelfStatJiffies() (uint64, bool) {
	f, err := os.Open("/proc/self/stat")
	if err != nil {
		return 0, false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 4096), 4096)
	if !scanner.Scan() {
		return 0, false
	}
	line := scanner.Text()

	// Field 2 (comm) may itself contain spaces/parens; skip past the
	// last ')' before splitting the remaining fields by space.
	idx := strings.LastIndex(line, ")")
	if idx < 0 || idx+2 >= len(line) {
		return 0, false
	}
	fields := strings.Fields(line[idx+2:])
	if len(fields) < 14 {
		return 0, false
	}
	// fields[0] is field 3 in /proc/self/stat (state); utime is field
	// 14, stime field 15 -> indices 11, 12 here.
	utime, err1 := strconv.ParseUint(fields[11], 10, 64)
	stime, err2 := strconv.ParseUint(fields[12], 10, 64)
	if err1 != nil || err2 != nil {
		return 0, false
	}
	return utime + stime, true
}

// netLookupHost is a tiny indirection so tests can stub out DNS
// resolution when deriving host IP for telemetry.
var netLookupHost = func(host string) ([]string, error) {
	return defaultLookupHost(host)
}

func defaultLookupHost(host string) ([]string, error) {
	addrs, err := net.LookupIP(host)
	if err != nil {
		return nil, fmt.Errorf("telemetry: lookup host %q: %w", host, err)
	}
	var out []string
	for _, a := range addrs {
		if v4 := a.To4(); v4 != nil {
			out = append(out, v4.String())
		}
	}
	return out, nil
}
