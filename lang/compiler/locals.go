package compiler

import "github.com/mna/loxvm/lang/value"

// beginScope/endScope bracket a lexical block (spec.md §4.2 "Scope exit").
func (c *Compiler) beginScope() { c.cur.scopeDepth++ }

func (c *Compiler) endScope() {
	c.cur.scopeDepth--
	fr := c.cur
	for len(fr.locals) > 0 && fr.locals[len(fr.locals)-1].depth > fr.scopeDepth {
		last := fr.locals[len(fr.locals)-1]
		if last.captured {
			c.emitOp(value.OpCloseUpvalue)
		} else {
			c.emitOp(value.OpPop)
		}
		fr.locals = fr.locals[:len(fr.locals)-1]
	}
}

// addLocal declares a new local variable in the current scope (not yet
// initialized: its depth is -1 until markInitialized is called).
func (c *Compiler) addLocal(name string) {
	if len(c.cur.locals) >= MaxLocals {
		c.error("Too many local variables in function.")
		return
	}
	c.cur.locals = append(c.cur.locals, local{name: name, depth: -1})
}

// declareVariable declares the identifier in c.previous as a local if inside
// a block scope; globals are not tracked here (spec.md §4.2 "Local
// resolution").
func (c *Compiler) declareVariable(name string) {
	if c.cur.scopeDepth == 0 {
		return
	}
	for i := len(c.cur.locals) - 1; i >= 0; i-- {
		l := c.cur.locals[i]
		if l.depth != -1 && l.depth < c.cur.scopeDepth {
			break
		}
		if l.name == name {
			c.error("Already a variable with this name in this scope.")
		}
	}
	c.addLocal(name)
}

func (c *Compiler) markInitialized() {
	if c.cur.scopeDepth == 0 {
		return
	}
	c.cur.locals[len(c.cur.locals)-1].depth = c.cur.scopeDepth
}

// resolveLocal looks up name among fr's locals, top-down, per spec.md §4.2
// "Local resolution". It returns -1 if not found.
func resolveLocal(fr *frame, c *Compiler, name string) int {
	for i := len(fr.locals) - 1; i >= 0; i-- {
		if fr.locals[i].name == name {
			if fr.locals[i].depth == -1 {
				c.error("Can't read local variable in its own initializer.")
			}
			return i
		}
	}
	return -1
}

// addUpvalue records that fr's function captures the upvalue described by
// (index, isLocal), deduping on that pair (spec.md §4.2 "Local resolution").
func addUpvalue(fr *frame, c *Compiler, index byte, isLocal bool) int {
	for i, uv := range fr.upvalues {
		if uv.index == index && uv.isLocal == isLocal {
			return i
		}
	}
	if len(fr.upvalues) >= MaxUpvalues {
		c.error("Too many closure variables in function.")
		return 0
	}
	fr.upvalues = append(fr.upvalues, upvalueRef{index: index, isLocal: isLocal})
	return len(fr.upvalues) - 1
}

// resolveUpvalue implements spec.md §4.2 "Local resolution": if the
// enclosing frame has a matching local, mark it captured and record an
// upvalue here; else recurse into the enclosing frame and, if it resolves
// an upvalue there, record a non-local upvalue pointing at it.
func resolveUpvalue(fr *frame, c *Compiler, name string) int {
	if fr.enclosing == nil {
		return -1
	}
	if local := resolveLocal(fr.enclosing, c, name); local != -1 {
		fr.enclosing.locals[local].captured = true
		return addUpvalue(fr, c, byte(local), true)
	}
	if up := resolveUpvalue(fr.enclosing, c, name); up != -1 {
		return addUpvalue(fr, c, byte(up), false)
	}
	return -1
}
