package leodocs

import "strings"

// Names bound by loop iterations.
const (
	currentItem   = "."
	indexName     = "$index"
	positionName  = "$position"
	pathSeparator = "."
)

// Context is a stack of scopes. Lookups walk from the innermost scope outward,
// so inner bindings shadow outer ones.
type Context struct {
	scopes []Value
}

// NewContext returns a context whose outermost scope is root.
func NewContext(root Value) *Context {
	return &Context{scopes: []Value{root}}
}

// Push adds an innermost scope.
func (c *Context) Push(scope Value) {
	c.scopes = append(c.scopes, scope)
}

// Pop removes the innermost scope. The root scope is never removed.
func (c *Context) Pop() {
	if len(c.scopes) > 1 {
		c.scopes = c.scopes[:len(c.scopes)-1]
	}
}

// Depth returns the number of scopes.
func (c *Context) Depth() int {
	return len(c.scopes)
}

// Lookup resolves a name. A dotted name such as "club.name" resolves its
// first segment through the scope stack and the rest within that value.
// The name "." refers to the element of the innermost loop iteration.
func (c *Context) Lookup(name string) (Value, bool) {
	if name == currentItem {
		for i := len(c.scopes) - 1; i >= 0; i-- {
			if v, ok := c.scopes[i].Field(currentItem); ok {
				return v, true
			}
		}
		return Value{}, false
	}

	head, rest, dotted := strings.Cut(name, pathSeparator)
	for i := len(c.scopes) - 1; i >= 0; i-- {
		v, ok := c.scopes[i].Field(head)
		if !ok {
			continue
		}
		if !dotted {
			return v, true
		}
		return descend(v, rest)
	}
	return Value{}, false
}

func descend(v Value, path string) (Value, bool) {
	for _, seg := range strings.Split(path, pathSeparator) {
		next, ok := v.Field(seg)
		if !ok {
			return Value{}, false
		}
		v = next
	}
	return v, true
}

// iterationScope builds the scope pushed for one loop element: the element
// itself, its position, and, for mappings, its fields.
func iterationScope(item Value, index int) Value {
	fields := make(map[string]Value, item.Len()+3)
	if item.Kind() == KindMap {
		for k, v := range item.m {
			fields[k] = v
		}
	}
	fields[currentItem] = item
	fields[indexName] = Int(int64(index))
	fields[positionName] = Int(int64(index + 1))
	return Map(fields)
}
