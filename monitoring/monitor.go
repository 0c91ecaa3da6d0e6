// Package monitoring serves the state of a running loop over HTTP and lets
// a browser pause, continue and step it.
package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sarchlab/mtloop/id"
	"github.com/sarchlab/mtloop/monitoring/web"
	"github.com/sarchlab/mtloop/sched"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"
)

// Target is a loop that the monitor can observe and control.
type Target interface {
	// Snapshot returns the state of the loop at the last poll.
	Snapshot() sched.LoopState

	// InspectSlot calls fn with the slot while the loop is not running. It
	// returns false if the slot does not exist.
	InspectSlot(chain, slot int, fn func(s *sched.TimeSlot)) bool

	Pause()
	Continue()

	// Step polls the loop once.
	Step() bool
}

// Monitor can turn a loop into a server and allows external monitoring and
// controlling of the loop.
type Monitor struct {
	target      Target
	portNumber  int
	gatherer    prometheus.Gatherer
	openBrowser bool

	server *http.Server

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{
		gatherer: prometheus.DefaultGatherer,
	}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithGatherer sets where /metrics reads Prometheus metrics from.
func (m *Monitor) WithGatherer(g prometheus.Gatherer) *Monitor {
	m.gatherer = g
	return m
}

// WithBrowser makes StartServer open the page in a web browser.
func (m *Monitor) WithBrowser(open bool) *Monitor {
	m.openBrowser = open
	return m
}

// RegisterTarget registers the loop to monitor.
func (m *Monitor) RegisterTarget(t Target) {
	m.target = t
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:        id.Generate(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar to be shown on the webpage.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

// Handler returns the router that serves the API and the web page.
func (m *Monitor) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/pause", m.pause).Methods(http.MethodPost)
	r.HandleFunc("/api/continue", m.continueLoop).Methods(http.MethodPost)
	r.HandleFunc("/api/step", m.step).Methods(http.MethodPost)
	r.HandleFunc("/api/{action:pause|continue|step}", postOnly)
	r.HandleFunc("/api/now", m.now)
	r.HandleFunc("/api/loop", m.loop)
	r.HandleFunc("/api/chain/{index:[0-9]+}", m.chain)
	r.HandleFunc("/api/slot/{chain:[0-9]+}/{slot:[0-9]+}", m.slotDetails)
	r.HandleFunc("/api/field/{chain:[0-9]+}/{slot:[0-9]+}", m.slotField)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.Handle("/metrics", promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{}))
	r.PathPrefix("/").Handler(http.FileServer(web.GetAssets()))

	return r
}

// StartServer starts the monitor as a web server and returns its URL.
func (m *Monitor) StartServer() (string, error) {
	if m.target == nil {
		return "", errors.New("monitor has no target")
	}

	listener, err := net.Listen("tcp", ":"+strconv.Itoa(m.portNumber))
	if err != nil {
		return "", fmt.Errorf("monitor listen: %w", err)
	}

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)

	fmt.Fprintf(os.Stderr, "Monitoring loop with %s\n", url)

	m.server = &http.Server{
		Handler:           m.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		err := m.server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Panic(err)
		}
	}()

	if m.openBrowser {
		err = browser.OpenURL(url)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Cannot open browser: %v\n", err)
		}
	}

	return url, nil
}

// StopServer shuts the server down.
func (m *Monitor) StopServer(ctx context.Context) error {
	if m.server == nil {
		return nil
	}

	return m.server.Shutdown(ctx)
}

func (m *Monitor) pause(w http.ResponseWriter, _ *http.Request) {
	m.target.Pause()
	w.WriteHeader(http.StatusOK)
}

func (m *Monitor) continueLoop(w http.ResponseWriter, _ *http.Request) {
	m.target.Continue()
	w.WriteHeader(http.StatusOK)
}

func (m *Monitor) step(w http.ResponseWriter, _ *http.Request) {
	ran := m.target.Step()
	writeJSON(w, map[string]any{
		"ran":  ran,
		"tick": m.target.Snapshot().Tick,
	})
}

func (m *Monitor) now(w http.ResponseWriter, _ *http.Request) {
	fmt.Fprintf(w, "{\"now\":%d}", m.target.Snapshot().Tick)
}

func (m *Monitor) loop(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, m.target.Snapshot())
}

func (m *Monitor) chain(w http.ResponseWriter, r *http.Request) {
	index, _ := strconv.Atoi(mux.Vars(r)["index"])

	st := m.target.Snapshot()
	if index >= len(st.Chains) {
		notFound(w, "Chain not found")
		return
	}

	writeJSON(w, st.Chains[index])
}

func (m *Monitor) slotDetails(w http.ResponseWriter, r *http.Request) {
	m.serializeSlot(w, r, nil)
}

func (m *Monitor) slotField(w http.ResponseWriter, r *http.Request) {
	fields := strings.Split(r.URL.Query().Get("path"), ".")
	m.serializeSlot(w, r, fields)
}

func (m *Monitor) serializeSlot(
	w http.ResponseWriter,
	r *http.Request,
	entryPoint []string,
) {
	chain, _ := strconv.Atoi(mux.Vars(r)["chain"])
	slot, _ := strconv.Atoi(mux.Vars(r)["slot"])

	buf := bytes.NewBuffer(nil)

	var err error

	found := m.target.InspectSlot(chain, slot, func(s *sched.TimeSlot) {
		serializer := goseth.NewSerializer()
		serializer.SetRoot(s)
		serializer.SetMaxDepth(1)

		if entryPoint != nil {
			err = serializer.SetEntryPoint(entryPoint)
			if err != nil {
				return
			}
		}

		err = serializer.Serialize(buf)
	})

	if !found {
		notFound(w, "Slot not found")
		return
	}

	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)

		return
	}

	_, err = w.Write(buf.Bytes())
	dieOnErr(err)
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	bars := make([]ProgressBar, 0, len(m.progressBars))

	for _, b := range m.progressBars {
		bars = append(bars, b.snapshot())
	}
	m.progressBarsLock.Unlock()

	writeJSON(w, bars)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	dieOnErr(err)

	cpuPercent, err := proc.CPUPercent()
	dieOnErr(err)

	memorySize, err := proc.MemoryInfo()
	dieOnErr(err)

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	if err != nil {
		w.WriteHeader(http.StatusConflict)
		fmt.Fprintf(w, "Error: %s", err)

		return
	}

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	writeJSON(w, prof)
}

func postOnly(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Allow", http.MethodPost)
	http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
}

func writeJSON(w http.ResponseWriter, v any) {
	bytes, err := json.Marshal(v)
	dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")
	_, err = w.Write(bytes)
	dieOnErr(err)
}

func notFound(w http.ResponseWriter, msg string) {
	w.WriteHeader(http.StatusNotFound)
	_, err := w.Write([]byte(msg))
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
