package sched

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	gomock "go.uber.org/mock/gomock"

	"github.com/sarchlab/mtloop/hooking"
	"github.com/sarchlab/mtloop/id"
	"github.com/sarchlab/mtloop/logging"
	"github.com/sarchlab/mtloop/timing"
)

type closingRunnable struct {
	name   string
	runs   int
	closed int
	err    error
}

func (r *closingRunnable) Name() string {
	return r.name
}

func (r *closingRunnable) Run(logger logging.Logger) bool {
	r.runs++
	logger.Log(r.name + " IS RUN")

	return true
}

func (r *closingRunnable) Close() error {
	r.closed++
	return r.err
}

var _ = Describe("TaskAdapter", func() {
	var (
		mockCtrl *gomock.Controller
		clock    *timing.ManualClock
		log      *logging.Recorder
		env      Env
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		clock = timing.NewManualClock(5)
		log = logging.NewRecorder()
		env = NewEnv(clock, log)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should not have statistics before the first run", func() {
		t := ProcTask(func() {})

		Expect(t.LastStart()).To(Equal(timing.Tick(0)))
		Expect(t.LastStop()).To(Equal(timing.Tick(0)))
		Expect(t.Runs()).To(Equal(uint64(0)))
	})

	It("should record the ticks around the work", func() {
		t := ProcTask(func() { clock.Advance(50) })

		Expect(t.Execute(env)).To(BeTrue())
		Expect(t.LastStart()).To(Equal(timing.Tick(5)))
		Expect(t.LastStop()).To(Equal(timing.Tick(55)))
		Expect(t.Runs()).To(Equal(uint64(1)))
	})

	It("should read the clock once before and once after the work", func() {
		mockClock := NewMockClock(mockCtrl)
		gomock.InOrder(
			mockClock.EXPECT().Now().Return(timing.Tick(100)),
			mockClock.EXPECT().Now().Return(timing.Tick(130)),
		)

		t := ProcTask(func() {})

		Expect(t.Execute(NewEnv(mockClock, log))).To(BeTrue())
		Expect(t.LastStart()).To(Equal(timing.Tick(100)))
		Expect(t.LastStop()).To(Equal(timing.Tick(130)))
	})

	It("should report a captured panic to the logger", func() {
		logger := NewMockLogger(mockCtrl)
		logger.EXPECT().
			Log("task bad panicked at tick 5 (chain 0, slot 0): boom")

		t := ProcTask(func() { panic("boom") }, WithName("bad"))

		Expect(t.Execute(NewEnv(clock, logger))).To(BeFalse())
	})

	It("should return the result of a func task", func() {
		calls := 0
		t := FuncTask(func() bool {
			calls++
			return true
		})

		Expect(t.Execute(env)).To(BeTrue())
		Expect(calls).To(Equal(1))
		Expect(t.Kind()).To(Equal("func"))
		Expect(t.Name()).To(Equal("func-task"))
	})

	It("should keep the previous statistics when the task declines", func() {
		accept := true
		t := FuncTask(func() bool {
			clock.Advance(10)
			return accept
		})

		Expect(t.Execute(env)).To(BeTrue())
		Expect(t.LastStart()).To(Equal(timing.Tick(5)))
		Expect(t.LastStop()).To(Equal(timing.Tick(15)))

		accept = false
		Expect(t.Execute(env)).To(BeFalse())
		Expect(t.LastStart()).To(Equal(timing.Tick(5)))
		Expect(t.LastStop()).To(Equal(timing.Tick(15)))
		Expect(t.Declines()).To(Equal(uint64(1)))
		Expect(t.Runs()).To(Equal(uint64(1)))
	})

	It("should run a borrowed runnable with the logger", func() {
		r := NewMockRunnable(mockCtrl)
		r.EXPECT().Run(gomock.Any()).Return(true)

		t := RunnableTask(r, WithName("borrowed"))

		Expect(t.Execute(env)).To(BeTrue())
		Expect(t.Name()).To(Equal("borrowed"))
		Expect(t.Kind()).To(Equal("runnable"))
	})

	It("should pass the env logger to runnables", func() {
		r := &closingRunnable{name: "TMyTask"}
		t := RunnableTask(r)

		t.Execute(env)

		Expect(t.Name()).To(Equal("TMyTask"))
		Expect(log.Lines()).To(Equal([]string{"TMyTask IS RUN"}))
	})

	It("should not close a borrowed runnable", func() {
		r := &closingRunnable{name: "r"}
		t := RunnableTask(r)

		Expect(t.Close()).To(Succeed())
		Expect(r.closed).To(Equal(0))
	})

	It("should close an owned runnable with its last copy", func() {
		r := &closingRunnable{name: "r"}
		t := OwnedTask(r)
		c := t.Clone()

		Expect(t.Close()).To(Succeed())
		Expect(r.closed).To(Equal(0))

		Expect(c.Execute(env)).To(BeTrue())
		Expect(r.runs).To(Equal(1))

		Expect(c.Close()).To(Succeed())
		Expect(r.closed).To(Equal(1))
	})

	It("should report errors from closing an owned runnable", func() {
		r := &closingRunnable{name: "r", err: errors.New("busy")}
		t := OwnedTask(r)

		Expect(t.Close()).To(MatchError("busy"))
	})

	It("should panic when a closed owned task runs", func() {
		t := OwnedTask(&closingRunnable{name: "r"})
		Expect(t.Close()).To(Succeed())

		Expect(func() { t.Execute(env) }).To(PanicWith("task adapter is closed"))
	})

	It("should panic when the adapter is empty", func() {
		t := TaskAdapter{}

		Expect(func() { t.Execute(env) }).To(Panic())
	})

	It("should reject nil work", func() {
		Expect(func() { FuncTask(nil) }).To(Panic())
		Expect(func() { ProcTask(nil) }).To(Panic())
		Expect(func() { RunnableTask(nil) }).To(Panic())
		Expect(func() { OwnedTask(nil) }).To(Panic())
	})

	It("should capture panics and count the task as run", func() {
		t := ProcTask(func() {
			clock.Advance(3)
			panic("boom")
		}, WithName("bad"))

		Expect(t.Execute(env)).To(BeFalse())
		Expect(t.LastStart()).To(Equal(timing.Tick(5)))
		Expect(t.LastStop()).To(Equal(timing.Tick(8)))
		Expect(t.Panics()).To(Equal(uint64(1)))
		Expect(t.Runs()).To(Equal(uint64(0)))
		Expect(log.Lines()).To(HaveLen(1))
		Expect(log.Lines()[0]).To(ContainSubstring("task bad panicked at tick 5"))
		Expect(log.Lines()[0]).To(ContainSubstring("boom"))
	})

	It("should propagate panics when asked to", func() {
		env.Policy = PanicPropagate
		t := ProcTask(func() { panic("boom") })

		Expect(func() { t.Execute(env) }).To(PanicWith("boom"))
		Expect(t.LastStart()).To(Equal(timing.Tick(5)))
		Expect(t.Panics()).To(Equal(uint64(1)))
	})

	It("should clone without sharing statistics", func() {
		t := ProcTask(func() { clock.Advance(1) })
		t.Execute(env)

		c := t.Clone()
		Expect(c.LastStart()).To(Equal(t.LastStart()))
		Expect(c.LastStop()).To(Equal(t.LastStop()))

		c.Execute(env)
		Expect(c.LastStart()).To(Equal(timing.Tick(6)))
		Expect(t.LastStart()).To(Equal(timing.Tick(5)))
		Expect(t.Runs()).To(Equal(uint64(1)))
		Expect(c.Runs()).To(Equal(uint64(2)))
	})

	Context("with hooks", func() {
		var (
			hooks *hooking.HookableBase
			hook  *MockHook
		)

		BeforeEach(func() {
			hooks = &hooking.HookableBase{}
			hook = NewMockHook(mockCtrl)
			hooks.AcceptHook(hook)

			env.Hooks = hooks
			env.IDs = id.NewIDGenerator()
			env.Where = hooking.Location{Chain: 1, Slot: 2}
		})

		It("should report the start and the end of a task", func() {
			t := ProcTask(func() { clock.Advance(50) }, WithName("t"))

			gomock.InOrder(
				hook.EXPECT().Func(hooking.HookCtx{
					Domain: hooks,
					Pos:    hooking.HookPosTaskStart,
					Item: hooking.TaskStart{
						ID:    "1",
						Task:  "t",
						Where: hooking.Location{Chain: 1, Slot: 2},
						Tick:  5,
					},
				}),
				hook.EXPECT().Func(hooking.HookCtx{
					Domain: hooks,
					Pos:    hooking.HookPosTaskEnd,
					Item: hooking.TaskEnd{
						ID:      "1",
						Task:    "t",
						Where:   hooking.Location{Chain: 1, Slot: 2},
						Start:   5,
						Stop:    55,
						Success: true,
					},
				}),
			)

			t.Execute(env)
		})

		It("should report declines", func() {
			t := FuncTask(func() bool { return false }, WithName("t"))

			var positions []*hooking.HookPos
			hook.EXPECT().Func(gomock.Any()).
				Do(func(ctx hooking.HookCtx) {
					positions = append(positions, ctx.Pos)
				}).
				Times(3)

			t.Execute(env)

			Expect(positions).To(Equal([]*hooking.HookPos{
				hooking.HookPosTaskStart,
				hooking.HookPosTaskDeclined,
				hooking.HookPosTaskEnd,
			}))
		})

		It("should report panics", func() {
			t := ProcTask(func() { panic("boom") }, WithName("t"))

			var panicItem hooking.TaskPanic
			hook.EXPECT().Func(gomock.Any()).
				Do(func(ctx hooking.HookCtx) {
					if ctx.Pos == hooking.HookPosTaskPanic {
						panicItem = ctx.Item.(hooking.TaskPanic)
					}
				}).
				Times(3)

			t.Execute(env)

			Expect(panicItem.Task).To(Equal("t"))
			Expect(panicItem.Value).To(Equal("boom"))
			Expect(panicItem.Where).To(Equal(hooking.Location{Chain: 1, Slot: 2}))
		})
	})
})
