package interp

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/tliron/commonlog"
)

// DefaultRecursionLimit bounds nested command invocation depth.
const DefaultRecursionLimit = 1000

// Interp is a single-threaded interpreter instance. All evaluation,
// including traces and compile callbacks, happens on the calling
// goroutine; run multiple interpreters for parallelism and share
// values across them only by deep copy.
type Interp struct {
	global *Namespace
	frames []*CallFrame

	result     *Obj
	returnOpts *ReturnOptions

	errorInfo      *Obj
	errorCode      *Obj
	errorLine      int
	errAlreadyLogged bool

	literals     map[string]*Obj
	cmdEpoch     uint64
	compileEpoch uint64

	recursionDepth int
	RecursionLimit int

	cancelRequested int32
	cancelMsg       string

	units *UnitStore

	// Out receives output from the puts command.
	Out io.Writer

	log commonlog.Logger
}

// New creates an interpreter with the core command set registered.
func New() *Interp {
	i := &Interp{
		global:         newNamespace("", nil),
		literals:       map[string]*Obj{},
		RecursionLimit: DefaultRecursionLimit,
		returnOpts:     newReturnOptions(),
		result:         NewObj().Retain(),
		Out:            os.Stdout,
		log:            commonlog.GetLogger("fen.interp"),
	}
	i.frames = []*CallFrame{newFrame(i.global, 0)}
	registerCoreCommands(i)
	registerMathFuncs(i)
	registerCompileFuncs(i)
	return i
}

// Close releases the interpreter's namespaces and values. The
// interpreter must not be used afterwards.
func (i *Interp) Close() {
	for _, child := range i.global.children {
		i.deleteNamespace(child)
	}
	for name := range i.global.commands {
		i.removeCommand(i.global, name)
	}
	for name, v := range i.global.vars {
		v.invalidate(i)
		delete(i.global.vars, name)
	}
	for key, lit := range i.literals {
		lit.Release()
		delete(i.literals, key)
	}
}

// SetUnitStore attaches a persistent compiled-unit cache consulted by
// Compile-through-Eval paths.
func (i *Interp) SetUnitStore(s *UnitStore) { i.units = s }

// Global returns the global namespace.
func (i *Interp) Global() *Namespace { return i.global }

func (i *Interp) currentFrame() *CallFrame {
	return i.frames[len(i.frames)-1]
}

// internLiteral returns the interpreter-wide shared value for a
// literal, creating it on first use. Shared literals are never written
// in place; writers duplicate first.
func (i *Interp) internLiteral(o *Obj) *Obj {
	key := o.String()
	if lit, ok := i.literals[key]; ok {
		return lit
	}
	i.literals[key] = o.Retain()
	return o
}

// ------------------------------------------------------------------ //
// Result and error state
// ------------------------------------------------------------------ //

// Result returns the current result value.
func (i *Interp) Result() *Obj { return i.result }

// SetResult replaces the current result value.
func (i *Interp) SetResult(o *Obj) {
	o.Retain()
	i.result.Release()
	i.result = o
}

// ResetResult clears the result and the return options.
func (i *Interp) ResetResult() {
	i.SetResult(NewObj())
	i.returnOpts = newReturnOptions()
}

// SetErrorf formats an error message as the result and returns the
// error completion code.
func (i *Interp) SetErrorf(format string, args ...any) Code {
	i.SetResult(NewString(fmt.Sprintf(format, args...)))
	i.returnOpts.Code = ResultError
	return ResultError
}

// SetError installs a Go error as the interpreter result.
func (i *Interp) SetError(err error) Code {
	return i.SetErrorf("%s", err.Error())
}

// ErrorInfo returns the accumulated traceback, or an empty value.
func (i *Interp) ErrorInfo() *Obj {
	if i.errorInfo == nil {
		return NewObj()
	}
	return i.errorInfo
}

// ErrorCode returns the machine-readable error-code list. The default
// is the single word NONE.
func (i *Interp) ErrorCode() *Obj {
	if i.errorCode == nil {
		return NewString("NONE")
	}
	return i.errorCode
}

// ErrorLine reports the source line of the innermost erroring frame.
func (i *Interp) ErrorLine() int { return i.errorLine }

// SetErrorCode sets the error-code list for the error in flight.
func (i *Interp) SetErrorCode(o *Obj) {
	o.Retain()
	if i.errorCode != nil {
		i.errorCode.Release()
	}
	i.errorCode = o
}

// ReturnOptions renders the in-flight return options dictionary.
func (i *Interp) ReturnOptions() *Obj { return i.returnOpts.ToDict() }

// logErrorInfo appends a traceback line for the error in flight. The
// first call seeds the traceback with the error message itself.
func (i *Interp) logErrorInfo(line string) {
	if i.errorInfo == nil {
		seed := i.result.String()
		if i.returnOpts.ErrorInfo != nil {
			seed = i.returnOpts.ErrorInfo.String()
		}
		i.errorInfo = NewString(seed).Retain()
	}
	info := NewString(i.errorInfo.String() + "\n" + line)
	i.errorInfo.Release()
	i.errorInfo = info.Retain()
}

func (i *Interp) resetErrorState() {
	if i.errorInfo != nil {
		i.errorInfo.Release()
		i.errorInfo = nil
	}
	if i.errorCode != nil {
		i.errorCode.Release()
		i.errorCode = nil
	}
	i.errorLine = 0
	i.errAlreadyLogged = false
}

// ------------------------------------------------------------------ //
// Evaluation
// ------------------------------------------------------------------ //

// unitType caches a compiled unit in a script value's intrep. A stale
// epoch forces recompilation.
type unitType struct {
	unit *Unit
}

func (*unitType) TypeName() string       { return "bytecode" }
func (t *unitType) UpdateString() string { return t.unit.Source }
func (t *unitType) Dup() ObjType         { return &unitType{unit: t.unit} }

// unitForScript returns a current compiled unit for a script value,
// reusing the cached one when its epoch is still valid.
func (i *Interp) unitForScript(o *Obj, proc *Proc) (*Unit, error) {
	if t, ok := o.intrep.(*unitType); ok && t.unit.Epoch == i.compileEpoch {
		return t.unit, nil
	}
	var u *Unit
	var err error
	if i.units != nil && proc == nil {
		u, err = i.units.Compile(i, o.String())
	} else if proc != nil {
		u, err = i.compileProcBody(o.String(), proc)
	} else {
		u, err = i.Compile(o.String())
	}
	if err != nil {
		return nil, err
	}
	o.SetIntRep(&unitType{unit: u})
	return u, nil
}

// Eval evaluates source at the top level. The result and error state
// are readable afterwards through the embedding API.
func (i *Interp) Eval(source string) Code {
	return i.EvalObj(NewString(source))
}

// EvalObj evaluates a value as a script, caching the compiled unit in
// the value.
func (i *Interp) EvalObj(script *Obj) Code {
	script.Retain()
	defer script.Release()
	fresh := i.recursionDepth == 0
	if fresh {
		i.resetErrorState()
		i.ResetResult()
	}
	u, err := i.unitForScript(script, nil)
	if err != nil {
		code := i.SetErrorf("%s", err.Error())
		if fresh {
			i.commitError(0)
		}
		return code
	}
	code := i.execUnit(u)
	if fresh && code == ResultReturn && i.returnOpts.Level == 0 {
		code = i.returnOpts.Code
	}
	if fresh && code == ResultError {
		i.commitError(i.errorLine)
	}
	return code
}

// Run evaluates source and returns the result string, mapping a non-ok
// completion to a Go error.
func (i *Interp) Run(source string) (string, error) {
	code := i.Eval(source)
	if code == ResultOK {
		return i.result.String(), nil
	}
	if code == ResultError {
		return "", fmt.Errorf("%s", i.result.String())
	}
	return "", fmt.Errorf("unexpected completion code %s", code)
}

// commitError finalizes errorInfo/errorCode once an error escapes to
// the top level.
func (i *Interp) commitError(line int) {
	if i.errorInfo == nil {
		seed := i.result.String()
		if i.returnOpts.ErrorInfo != nil {
			seed = i.returnOpts.ErrorInfo.String()
		}
		i.errorInfo = NewString(seed).Retain()
	}
	if i.errorCode == nil && i.returnOpts.ErrorCode != nil {
		i.errorCode = i.returnOpts.ErrorCode.Retain()
	}
	if line != 0 {
		i.errorLine = line
	}
	i.log.Errorf("script error at line %d: %s", i.errorLine, i.result.String())
}

// invoke runs one command with the given words. args[0] is the command
// name. The recursion limit and the cancellation flag are enforced
// here.
func (i *Interp) invoke(args []*Obj) Code {
	if atomic.LoadInt32(&i.cancelRequested) != 0 {
		return i.cancelError()
	}
	if i.recursionDepth >= i.RecursionLimit {
		return i.SetErrorf("too many nested evaluations (infinite loop?)")
	}
	cmd := i.lookupCommandObj(args[0])
	if cmd == nil {
		return i.SetErrorf("invalid command name %q", args[0].String())
	}
	i.recursionDepth++
	code := cmd.fn(i, cmd.clientData, args)
	i.recursionDepth--
	if code == ResultError && i.returnOpts.Code != ResultError {
		i.returnOpts.Code = ResultError
	}
	return code
}

// ------------------------------------------------------------------ //
// Cancellation
// ------------------------------------------------------------------ //

// Cancel requests asynchronous interruption. The executor notices at
// the next command invocation or backward branch and raises an error
// that propagates through catches like any other.
func (i *Interp) Cancel(msg string) {
	if msg == "" {
		msg = "eval canceled"
	}
	i.cancelMsg = msg
	atomic.StoreInt32(&i.cancelRequested, 1)
}

// Cancelled reports whether an interrupt is pending.
func (i *Interp) Cancelled() bool {
	return atomic.LoadInt32(&i.cancelRequested) != 0
}

// ClearCancel resets a pending interrupt, allowing further evaluation.
func (i *Interp) ClearCancel() {
	atomic.StoreInt32(&i.cancelRequested, 0)
}

func (i *Interp) cancelError() Code {
	code := i.SetErrorf("%s", i.cancelMsg)
	i.SetErrorCode(NewList([]*Obj{NewString("CANCEL"), NewString(i.cancelMsg)}))
	return code
}

// WatchContext cancels the interpreter when ctx is done. The returned
// stop function releases the watcher; callers must invoke it.
func (i *Interp) WatchContext(ctx context.Context) (stop func()) {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			i.Cancel(context.Cause(ctx).Error())
		case <-done:
		}
	}()
	var once atomic.Bool
	return func() {
		if once.CompareAndSwap(false, true) {
			close(done)
		}
	}
}

// bumpCompileEpoch invalidates every cached compiled unit, forcing lazy
// recompilation on next evaluation.
func (i *Interp) bumpCompileEpoch() {
	i.compileEpoch++
}
