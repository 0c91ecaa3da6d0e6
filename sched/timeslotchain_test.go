package sched

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/mtloop/logging"
	"github.com/sarchlab/mtloop/timing"
)

var _ = Describe("TimeSlotChain", func() {
	var (
		clock *timing.ManualClock
		log   *logging.Recorder
		env   Env
		chain *TimeSlotChain
	)

	logTask := func(msg string) TaskAdapter {
		return FuncTask(func() bool {
			log.Log(msg)
			return true
		}, WithName(msg))
	}

	runAt := func(t timing.Tick) bool {
		clock.Set(t)
		return chain.Run(t, env)
	}

	BeforeEach(func() {
		clock = timing.NewManualClock(1)
		log = logging.NewRecorder()
		env = NewEnv(clock, log)

		chain = NewTimeSlotChain(
			NewTimeSlot(logTask("TASK1 IS RUN"), 100, 10),
			NewTimeSlot(logTask("TASK2 IS RUN"), 100, 20),
			NewTimeSlot(logTask("TASK3 IS RUN"), 50, 10),
		)
	})

	It("should panic without slots", func() {
		Expect(func() { NewTimeSlotChain() }).To(Panic())
	})

	It("should own copies of the blueprints", func() {
		blueprint := NewTimeSlot(logTask("T"), 10, 0)
		c := NewTimeSlotChain(blueprint)

		c.SetStartTime(7)

		Expect(blueprint.StartTime()).To(Equal(timing.Tick(1)))
		Expect(c.Slot(0).StartTime()).To(Equal(timing.Tick(7)))
	})

	It("should run one slot per window and cycle", func() {
		chain.SetStartTime(50)

		Expect(runAt(50)).To(BeTrue())
		Expect(chain.Current()).To(Equal(1))
		Expect(chain.Slot(1).StartTime()).To(Equal(timing.Tick(150)))

		Expect(runAt(150)).To(BeTrue())
		Expect(chain.Current()).To(Equal(2))
		Expect(chain.Slot(2).StartTime()).To(Equal(timing.Tick(250)))

		Expect(runAt(250)).To(BeTrue())
		Expect(chain.Current()).To(Equal(0))
		Expect(chain.Slot(0).StartTime()).To(Equal(timing.Tick(300)))

		Expect(runAt(350)).To(BeTrue())
		Expect(chain.Current()).To(Equal(1))

		Expect(log.Lines()).To(Equal([]string{
			"TASK1 IS RUN",
			"TASK2 IS RUN",
			"TASK3 IS RUN",
			"TASK1 IS RUN",
		}))
	})

	It("should wait until the window opens", func() {
		chain.SetStartTime(50)
		runAt(50)

		Expect(runAt(149)).To(BeFalse())
		Expect(chain.Current()).To(Equal(1))
		Expect(log.Lines()).To(HaveLen(1))
	})

	It("should not advance while the task declines", func() {
		accept := false
		c := NewTimeSlotChain(
			NewTimeSlot(FuncTask(func() bool { return accept }), 10, 0),
			NewTimeSlot(logTask("next"), 10, 0),
		)
		c.SetStartTime(5)

		clock.Set(5)
		Expect(c.Run(5, env)).To(BeFalse())
		Expect(c.Current()).To(Equal(0))

		accept = true
		clock.Set(6)
		Expect(c.Run(6, env)).To(BeTrue())
		Expect(c.Current()).To(Equal(1))
		Expect(c.Slot(1).StartTime()).To(Equal(timing.Tick(15)))
	})

	It("should push the next window back when a task overruns", func() {
		c := NewTimeSlotChain(
			NewTimeSlot(ProcTask(func() { clock.Advance(80) }), 50, 10),
			NewTimeSlot(logTask("next"), 50, 0),
		)
		c.SetStartTime(5)

		clock.Set(5)
		Expect(c.Run(5, env)).To(BeTrue())
		Expect(c.Slot(1).StartTime()).To(Equal(timing.Tick(96)))
	})

	It("should anchor the next window one tick after the right edge", func() {
		chain.SetStartTime(50)

		for i := 0; i < 9; i++ {
			from := chain.CurrentSlot()
			now := from.StartTime() + timing.Tick(i*7)
			clock.Set(now)

			Expect(chain.Run(now, env)).To(BeTrue())

			edge := from.RightEdge(now)
			Expect(chain.CurrentSlot().StartTime()).To(Equal(edge + 1))
		}
	})

	It("should re-anchor a single slot onto itself", func() {
		calls := 0
		c := NewTimeSlotChain(NewTimeSlot(ProcTask(func() { calls++ }), 10, 5))
		c.SetStartTime(1)

		clock.Set(1)
		Expect(c.Run(1, env)).To(BeTrue())
		Expect(c.Current()).To(Equal(0))
		Expect(c.Slot(0).StartTime()).To(Equal(timing.Tick(11)))

		clock.Set(10)
		Expect(c.Run(10, env)).To(BeFalse())

		clock.Set(11)
		Expect(c.Run(11, env)).To(BeTrue())
		Expect(calls).To(Equal(2))
	})

	It("should clone into a chain that behaves the same", func() {
		chain.SetStartTime(50)
		runAt(50)

		c := chain.Clone()
		Expect(c.Current()).To(Equal(chain.Current()))
		Expect(c.State(120)).To(Equal(chain.State(120)))

		clock.Set(150)
		Expect(c.Run(150, env)).To(BeTrue())
		Expect(chain.Current()).To(Equal(1))
		Expect(c.Current()).To(Equal(2))
	})
})
