package machine

import "github.com/mna/loxvm/lang/value"

// CallFrame records one active call to a closure: where execution resumes
// (ip) and where its locals begin in the VM's value stack (slots).
type CallFrame struct {
	closure *value.Closure
	ip      int
	slots   int
}

func (fr *CallFrame) chunk() *value.Chunk { return &fr.closure.Fn.Chunk }

func (fr *CallFrame) readByte() byte {
	b := fr.chunk().Code[fr.ip]
	fr.ip++
	return b
}

func (fr *CallFrame) readUint16() uint16 {
	hi := fr.chunk().Code[fr.ip]
	lo := fr.chunk().Code[fr.ip+1]
	fr.ip += 2
	return uint16(hi)<<8 | uint16(lo)
}

func (fr *CallFrame) readConstant(idx int) value.Value { return fr.chunk().Constants[idx] }

func (fr *CallFrame) line() int { return fr.chunk().Lines[fr.ip-1] }
