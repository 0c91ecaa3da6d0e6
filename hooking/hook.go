// Package hooking lets observers attach to the scheduler without the
// scheduler knowing what they do.
package hooking

// HookPos defines the enum of possible hooking positions.
type HookPos struct {
	Name string
}

// HookCtx is the context that holds all the information about the site that a
// hook is triggered.
type HookCtx struct {
	Domain Hookable
	Pos    *HookPos
	Item   any
	Detail any
}

// Hookable defines an object that accept Hooks.
type Hookable interface {
	// AcceptHook registers a hook.
	AcceptHook(hook Hook)

	// NumHooks returns the number of hooks registered.
	NumHooks() int

	// Hooks returns all the hooks registered.
	Hooks() []Hook
}

// An Invoker is a Hookable that can also fire its hooks.
type Invoker interface {
	Hookable
	InvokeHook(ctx HookCtx)
}

// Hook is a short piece of program that can be invoked by a hookable object.
type Hook interface {
	// Func determines what to do if hook is invoked.
	Func(ctx HookCtx)
}

// HookFunc turns a plain function into a Hook.
type HookFunc func(ctx HookCtx)

// Func calls f.
func (f HookFunc) Func(ctx HookCtx) {
	f(ctx)
}

// A HookableBase provides some utility function for other type that implement
// the Hookable interface.
type HookableBase struct {
	hookList []Hook
}

// NumHooks returns the number of hooks registered.
func (h *HookableBase) NumHooks() int {
	return len(h.hookList)
}

// Hooks returns all the hooks registered.
func (h *HookableBase) Hooks() []Hook {
	return h.hookList
}

// AcceptHook register a hook.
func (h *HookableBase) AcceptHook(hook Hook) {
	h.mustNotHaveDuplicatedHook(hook)
	h.hookList = append(h.hookList, hook)
}

func (h *HookableBase) mustNotHaveDuplicatedHook(hook Hook) {
	if _, isFunc := hook.(HookFunc); isFunc {
		return
	}

	for _, h := range h.hookList {
		if _, isFunc := h.(HookFunc); isFunc {
			continue
		}

		if h == hook {
			panic("duplicated hook")
		}
	}
}

// InvokeHook triggers the register Hooks.
func (h *HookableBase) InvokeHook(ctx HookCtx) {
	for _, hook := range h.hookList {
		hook.Func(ctx)
	}
}
