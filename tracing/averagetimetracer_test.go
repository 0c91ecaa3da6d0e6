package tracing

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/mtloop/hooking"
)

var _ = Describe("AverageTimeTracer", func() {
	var t *AverageTimeTracer

	BeforeEach(func() {
		t = NewAverageTimeTracer(nil)
	})

	It("should average the durations", func() {
		t.StartTask(started("1", "a", 1))
		t.EndTask(ended("1", "a", 1, 11))
		t.StartTask(started("2", "a", 20))
		t.EndTask(ended("2", "a", 20, 50))

		Expect(t.TotalCount()).To(Equal(uint64(2)))
		Expect(t.AverageTicks()).To(BeNumerically("~", 20.0))
	})

	It("should not count declined executions", func() {
		t.StartTask(started("1", "a", 1))
		t.EndTask(declined("1", "a", 1, 2))

		Expect(t.TotalCount()).To(BeZero())
		Expect(t.AverageTicks()).To(BeZero())
	})

	It("should count panicked executions", func() {
		t.StartTask(started("1", "a", 1))
		t.EndTask(panicked("1", "a", 1, 5))

		Expect(t.TotalCount()).To(Equal(uint64(1)))
		Expect(t.AverageTicks()).To(BeNumerically("~", 4.0))
	})

	It("should skip filtered tasks", func() {
		t = NewAverageTimeTracer(func(task hooking.TaskStart) bool {
			return task.Where.Chain == 1
		})

		t.StartTask(started("1", "a", 1))
		t.EndTask(ended("1", "a", 1, 5))

		Expect(t.TotalCount()).To(BeZero())
	})
})
