package sim

// Middleware defines the actions of a component.
type Middleware interface {
	Tick() bool
}

// MiddlewareHolder can maintain a list of middlewares.
type MiddlewareHolder struct {
	middlewares []Middleware
}

// AddMiddleware adds a middleware to the holder.
func (h *MiddlewareHolder) AddMiddleware(m Middleware) {
	h.middlewares = append(h.middlewares, m)
}

// Middlewares returns the middlewares in the order they tick.
func (h *MiddlewareHolder) Middlewares() []Middleware {
	return h.middlewares
}

// Tick ticks all the middlewares in order.
func (h *MiddlewareHolder) Tick() bool {
	madeProgress := false
	for _, m := range h.middlewares {
		madeProgress = m.Tick() || madeProgress
	}

	return madeProgress
}
