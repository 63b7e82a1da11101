package sheet

// Resolver returns the effective value of a cell while tracking which merged ranges have
// already contributed to the item currently being built. A merged range yields its value
// once per item; Reset starts a new item.
type Resolver struct {
	ws       *Worksheet
	consumed map[string]struct{}
}

// NewResolver creates a resolver over ws with an empty consumed set.
func NewResolver(ws *Worksheet) *Resolver {
	return &Resolver{ws: ws, consumed: make(map[string]struct{})}
}

// Resolve returns the effective value at (row, col).
// Inside a range already consumed for the current item it returns Empty. Inside an
// unconsumed range it returns the range's top-left value and marks the range consumed.
// Outside any range it returns the raw grid value.
func (r *Resolver) Resolve(row, col int) Value {
	m, ok := r.ws.MergeAt(row, col)
	if !ok {
		return r.ws.Grid.At(row, col)
	}
	key := m.Key()
	if _, seen := r.consumed[key]; seen {
		return Empty()
	}
	r.consumed[key] = struct{}{}
	return r.ws.Grid.At(m.StartRow, m.StartCol)
}

// Reset clears the consumed set so every merged range can contribute again.
func (r *Resolver) Reset() {
	clear(r.consumed)
}
