package hooking

// A list of hook poses for the hooks to apply to
var (
	HookPosTaskStart    = &HookPos{Name: "HookPosTaskStart"}
	HookPosTaskEnd      = &HookPos{Name: "HookPosTaskEnd"}
	HookPosTaskDeclined = &HookPos{Name: "HookPosTaskDeclined"}
	HookPosTaskPanic    = &HookPos{Name: "HookPosTaskPanic"}
	HookPosSlotAdvance  = &HookPos{Name: "HookPosSlotAdvance"}
)

// Location tells which slot of which chain a hook was fired from.
type Location struct {
	Chain int `json:"chain"`
	Slot  int `json:"slot"`
}

// TaskStart is data that is passed to the hook when a task starts.
type TaskStart struct {
	ID    string   `json:"id"`
	Task  string   `json:"task"`
	Where Location `json:"where"`
	Tick  uint64   `json:"tick"`
}

// TaskEnd is data that is passed to the hook when a task returns. Declined
// and panicking runs also end with a TaskEnd.
type TaskEnd struct {
	ID       string   `json:"id"`
	Task     string   `json:"task"`
	Where    Location `json:"where"`
	Start    uint64   `json:"start"`
	Stop     uint64   `json:"stop"`
	Success  bool     `json:"success"`
	Declined bool     `json:"declined"`
	Panicked bool     `json:"panicked"`
}

// Duration returns the number of ticks the task took.
func (e TaskEnd) Duration() uint64 {
	return e.Stop - e.Start
}

// TaskPanic is passed to the hook when a task panics.
type TaskPanic struct {
	ID    string
	Task  string
	Where Location
	Value any
}

// SlotAdvance is passed to the hook when a chain moves from one slot to the
// next.
type SlotAdvance struct {
	Chain     int
	From      int
	To        int
	RightEdge uint64
	NewStart  uint64
}

// TaskFilter is a function that can filter interesting tasks. If this function
// returns true, the task is considered useful.
type TaskFilter func(t TaskStart) bool
