package service

// Capabilities is the registry of ambient collaborators a Service exposes:
// the identity provider, the metadata repository and, when enabled, the
// audit log.
type Capabilities struct {
	items []any
}

// Register adds v. Later registrations win over earlier ones of the same
// type.
func (c *Capabilities) Register(v any) {
	c.items = append(c.items, v)
}

// Len returns the number of registered capabilities.
func (c *Capabilities) Len() int {
	return len(c.items)
}

// Capability returns the most recently registered capability assignable
// to T.
func Capability[T any](c *Capabilities) (T, bool) {
	for i := len(c.items) - 1; i >= 0; i-- {
		if v, ok := c.items[i].(T); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}
