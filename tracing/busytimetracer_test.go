package tracing

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/mtloop/hooking"
)

var _ = Describe("BusyTimeTracer", func() {
	var t *BusyTimeTracer

	BeforeEach(func() {
		t = NewBusyTimeTracer(nil)
	})

	It("should track busy time, one task", func() {
		t.StartTask(started("1", "a", 1))
		t.EndTask(ended("1", "a", 1, 2))

		Expect(t.BusyTicks()).To(Equal(uint64(1)))
	})

	It("should track busy time, two tasks", func() {
		t.StartTask(started("1", "a", 1))
		t.EndTask(ended("1", "a", 1, 2))
		t.StartTask(started("2", "a", 3))
		t.EndTask(ended("2", "a", 3, 4))

		Expect(t.BusyTicks()).To(Equal(uint64(2)))
	})

	It("should track busy time, two tasks adjacent", func() {
		t.StartTask(started("1", "a", 1))
		t.EndTask(ended("1", "a", 1, 2))
		t.StartTask(started("2", "a", 2))
		t.EndTask(ended("2", "a", 2, 3))

		Expect(t.BusyTicks()).To(Equal(uint64(2)))
	})

	It("should track busy time, two tasks overlap", func() {
		t.StartTask(started("1", "a", 10))
		t.StartTask(started("2", "a", 15))
		t.EndTask(ended("1", "a", 10, 20))
		t.EndTask(ended("2", "a", 15, 25))

		Expect(t.BusyTicks()).To(Equal(uint64(15)))
	})

	It("should track busy time, one task contains another", func() {
		t.StartTask(started("1", "a", 10))
		t.StartTask(started("2", "a", 12))
		t.EndTask(ended("2", "a", 12, 14))
		t.EndTask(ended("1", "a", 10, 30))

		Expect(t.BusyTicks()).To(Equal(uint64(20)))
	})

	It("should ignore tasks that end without starting", func() {
		t.EndTask(ended("1", "a", 1, 100))

		Expect(t.BusyTicks()).To(BeZero())
	})

	It("should terminate inflight tasks", func() {
		t.StartTask(started("1", "a", 10))
		t.TerminateAllTasks(40)

		Expect(t.BusyTicks()).To(Equal(uint64(30)))
	})

	It("should apply the filter", func() {
		t = NewBusyTimeTracer(func(task hooking.TaskStart) bool {
			return task.Task == "a"
		})

		t.StartTask(started("1", "a", 1))
		t.EndTask(ended("1", "a", 1, 5))
		t.StartTask(started("2", "b", 10))
		t.EndTask(ended("2", "b", 10, 50))

		Expect(t.BusyTicks()).To(Equal(uint64(4)))
	})
})
