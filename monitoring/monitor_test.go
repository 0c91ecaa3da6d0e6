package monitoring

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sarchlab/mtloop/sched"
	"github.com/sarchlab/mtloop/timing"
)

type loopTarget struct {
	loop   *sched.Loop
	paused bool
}

func (t *loopTarget) Snapshot() sched.LoopState {
	return t.loop.Snapshot()
}

func (t *loopTarget) InspectSlot(
	chain, slot int,
	fn func(s *sched.TimeSlot),
) bool {
	if chain >= t.loop.Size() || slot >= t.loop.Chain(chain).Size() {
		return false
	}

	fn(t.loop.Chain(chain).Slot(slot))

	return true
}

func (t *loopTarget) Pause()    { t.paused = true }
func (t *loopTarget) Continue() { t.paused = false }
func (t *loopTarget) Step() bool {
	return t.loop.Run()
}

var _ = Describe("Monitor", func() {
	var (
		clock   *timing.CounterClock
		target  *loopTarget
		m       *Monitor
		handler http.Handler
	)

	do := func(method, path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(method, path, nil))

		return rec
	}

	BeforeEach(func() {
		clock = timing.NewCounterClock()
		loop := sched.NewLoop(2, clock, nil)
		loop.Attach(
			sched.NewTimeSlot(sched.ProcTask(func() {}, sched.WithName("a")), 10, 1),
			sched.NewTimeSlot(sched.ProcTask(func() {}, sched.WithName("b")), 10, 1),
		)

		target = &loopTarget{loop: loop}

		m = NewMonitor().WithGatherer(prometheus.NewRegistry())
		m.RegisterTarget(target)
		handler = m.Handler()
	})

	It("should report the tick of the last poll", func() {
		do(http.MethodPost, "/api/step")

		rec := do(http.MethodGet, "/api/now")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(Equal(`{"now":1}`))
	})

	It("should step the loop", func() {
		rec := do(http.MethodPost, "/api/step")

		var rsp struct {
			Ran  bool   `json:"ran"`
			Tick uint64 `json:"tick"`
		}
		Expect(json.Unmarshal(rec.Body.Bytes(), &rsp)).To(Succeed())
		Expect(rsp.Ran).To(BeTrue())
		Expect(rsp.Tick).To(Equal(uint64(1)))
	})

	It("should only accept POST for control endpoints", func() {
		rec := do(http.MethodGet, "/api/pause")

		Expect(rec.Code).To(Equal(http.StatusMethodNotAllowed))
		Expect(rec.Header().Get("Allow")).To(Equal(http.MethodPost))
		Expect(target.paused).To(BeFalse())

		for _, path := range []string{"/api/continue", "/api/step"} {
			Expect(do(http.MethodGet, path).Code).
				To(Equal(http.StatusMethodNotAllowed))
		}
	})

	It("should pause and continue", func() {
		Expect(do(http.MethodPost, "/api/pause").Code).To(Equal(http.StatusOK))
		Expect(target.paused).To(BeTrue())

		Expect(do(http.MethodPost, "/api/continue").Code).To(Equal(http.StatusOK))
		Expect(target.paused).To(BeFalse())
	})

	It("should list the loop", func() {
		do(http.MethodPost, "/api/step")

		rec := do(http.MethodGet, "/api/loop")

		var st sched.LoopState
		Expect(json.Unmarshal(rec.Body.Bytes(), &st)).To(Succeed())
		Expect(st.Capacity).To(Equal(2))
		Expect(st.Chains).To(HaveLen(1))
		Expect(st.Chains[0].Current).To(Equal(1))
		Expect(st.Chains[0].Slots[0].Task).To(Equal("a"))
		Expect(st.Chains[0].Slots[0].Ran).To(BeTrue())
	})

	It("should show a chain", func() {
		rec := do(http.MethodGet, "/api/chain/0")

		var st sched.ChainState
		Expect(json.Unmarshal(rec.Body.Bytes(), &st)).To(Succeed())
		Expect(st.Slots).To(HaveLen(2))
	})

	It("should return 404 for unknown chains", func() {
		Expect(do(http.MethodGet, "/api/chain/3").Code).
			To(Equal(http.StatusNotFound))
	})

	It("should serialize a slot", func() {
		rec := do(http.MethodGet, "/api/slot/0/1")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.Len()).To(BeNumerically(">", 0))
	})

	It("should return 404 for unknown slots", func() {
		Expect(do(http.MethodGet, "/api/slot/0/2").Code).
			To(Equal(http.StatusNotFound))
		Expect(do(http.MethodGet, "/api/slot/1/0").Code).
			To(Equal(http.StatusNotFound))
	})

	It("should list progress bars", func() {
		bar := m.CreateProgressBar("Polls", 10)
		bar.IncrementInProgress(3)
		bar.MoveInProgressToFinished(2)
		m.CreateProgressBar("Other", 5)

		rec := do(http.MethodGet, "/api/progress")

		var bars []ProgressBar
		Expect(json.Unmarshal(rec.Body.Bytes(), &bars)).To(Succeed())
		Expect(bars).To(HaveLen(2))
		Expect(bars[0].Name).To(Equal("Polls"))
		Expect(bars[0].Finished).To(Equal(uint64(2)))
		Expect(bars[0].InProgress).To(Equal(uint64(1)))

		m.CompleteProgressBar(bar)

		rec = do(http.MethodGet, "/api/progress")
		Expect(json.Unmarshal(rec.Body.Bytes(), &bars)).To(Succeed())
		Expect(bars).To(HaveLen(1))
	})

	It("should report resources", func() {
		rec := do(http.MethodGet, "/api/resource")

		var rsp resourceRsp
		Expect(json.Unmarshal(rec.Body.Bytes(), &rsp)).To(Succeed())
		Expect(rsp.MemorySize).To(BeNumerically(">", 0))
	})

	It("should serve metrics", func() {
		rec := do(http.MethodGet, "/metrics")

		Expect(rec.Code).To(Equal(http.StatusOK))
	})

	It("should serve the web page", func() {
		rec := do(http.MethodGet, "/")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(HavePrefix("<!DOCTYPE html>"))
	})

	It("should refuse to start without a target", func() {
		_, err := NewMonitor().StartServer()

		Expect(err).To(HaveOccurred())
	})

	It("should ignore privileged ports", func() {
		Expect(NewMonitor().WithPortNumber(80).portNumber).To(BeZero())
		Expect(NewMonitor().WithPortNumber(8080).portNumber).To(Equal(8080))
	})
})
