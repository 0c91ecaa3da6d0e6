package tracing

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/mtloop/hooking"
)

var _ = Describe("CountTracer", func() {
	var t *CountTracer

	BeforeEach(func() {
		t = NewCountTracer(nil)
	})

	It("should count outcomes per task", func() {
		t.StartTask(started("1", "flaky", 1))
		t.EndTask(declined("1", "flaky", 1, 2))
		t.StartTask(started("2", "flaky", 3))
		t.EndTask(ended("2", "flaky", 3, 4))
		t.StartTask(started("3", "boom", 5))
		t.EndTask(panicked("3", "boom", 5, 6))

		Expect(t.TaskNames()).To(Equal([]string{"flaky", "boom"}))
		Expect(t.Count("flaky")).To(Equal(Outcome{Runs: 1, Declines: 1}))
		Expect(t.Count("boom")).To(Equal(Outcome{Panics: 1}))
		Expect(t.Count("unknown")).To(Equal(Outcome{}))
	})

	It("should count advances per chain", func() {
		t.AdvanceSlot(hooking.SlotAdvance{Chain: 1})
		t.AdvanceSlot(hooking.SlotAdvance{Chain: 1})

		Expect(t.Advances(0)).To(BeZero())
		Expect(t.Advances(1)).To(Equal(uint64(2)))
	})
})
