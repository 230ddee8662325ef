package machine

// frame records one active call: which function is executing, where its
// instruction pointer is within the shared code slice, and where its
// locals begin in the shared value stack.
type frame struct {
	funcName string
	pc       int
	codeEnd  int
	base     int // stack index of locals[0]
}
