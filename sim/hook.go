package sim

// HookPos names a point where a Hookable invokes its hooks. Positions are
// compared by pointer.
type HookPos struct {
	Name string
}

// HookCtx describes one invocation. Item is what the position is about,
// such as the event about to run or the message a port received.
type HookCtx struct {
	Domain Hookable
	Pos    *HookPos
	Item   any
}

// Hook observes a Hookable. Hooks run on the goroutine of the engine and
// must not block it.
type Hook interface {
	Func(ctx HookCtx)
}

// Hookable accepts hooks.
type Hookable interface {
	AcceptHook(hook Hook)
	NumHooks() int
	Hooks() []Hook
}

// HookableBase implements Hookable. Embed it and call InvokeHook at every
// position the type exposes.
type HookableBase struct {
	hooks []Hook
}

func (h *HookableBase) AcceptHook(hook Hook) { h.hooks = append(h.hooks, hook) }

func (h *HookableBase) NumHooks() int { return len(h.hooks) }

func (h *HookableBase) Hooks() []Hook { return h.hooks }

// InvokeHook calls the hooks in the order they were accepted.
func (h *HookableBase) InvokeHook(ctx HookCtx) {
	for _, hook := range h.hooks {
		hook.Func(ctx)
	}
}
