package interp

import (
	"fmt"
	"strings"

	"github.com/das/fen/pkg/ast"
)

// CmdFunc is the implementation of a command. Arguments arrive with the
// command name at args[0]. The result value and error state are set on
// the interpreter; the return value is the completion code.
type CmdFunc func(i *Interp, cd any, args []*Obj) Code

// CompileFunc gives a command an inline bytecode form. It returns false
// to fall back to a generic invocation.
type CompileFunc func(c *compiler, cmd *ast.CommandNode) bool

// Command is a registered command.
type Command struct {
	name       string
	fullName   string
	ns         *Namespace
	fn         CmdFunc
	compile    CompileFunc
	clientData any
	deleteCb   func(i *Interp)
	epoch      uint64
	proc       *Proc
}

// Name returns the simple command name within its namespace.
func (c *Command) Name() string { return c.name }

// FullName returns the fully qualified command name.
func (c *Command) FullName() string { return c.fullName }

func qualify(ns *Namespace, name string) string {
	if ns.parent == nil {
		return "::" + name
	}
	return ns.fullName + "::" + name
}

// RegisterCommand creates or replaces a command. A possibly qualified
// name is resolved against the current namespace; missing namespaces
// are created.
func (i *Interp) RegisterCommand(name string, fn CmdFunc, clientData any) *Command {
	cmd, err := i.createCommand(name, fn, clientData)
	if err != nil {
		panic(err)
	}
	return cmd
}

func (i *Interp) createCommand(name string, fn CmdFunc, clientData any) (*Command, error) {
	path, simple, absolute := splitQualName(name)
	base := i.currentNamespace()
	if absolute {
		base = i.global
	}
	ns := base
	for _, part := range path {
		if part == "" {
			continue
		}
		child, ok := ns.children[part]
		if !ok {
			child = newNamespace(part, ns)
			ns.children[part] = child
		}
		ns = child
	}
	if old, ok := ns.commands[simple]; ok {
		i.removeCommandStruct(old)
	}
	cmd := &Command{
		name:       simple,
		fullName:   qualify(ns, simple),
		ns:         ns,
		fn:         fn,
		clientData: clientData,
		epoch:      i.cmdEpoch,
	}
	ns.commands[simple] = cmd
	i.bumpCmdEpoch()
	return cmd, nil
}

// SetCompileFunc attaches an inline bytecode compiler to a command.
func (c *Command) SetCompileFunc(fn CompileFunc) { c.compile = fn }

// OnDelete registers a callback invoked when the command is removed.
func (c *Command) OnDelete(fn func(i *Interp)) { c.deleteCb = fn }

// removeCommand deletes the named command from a namespace.
func (i *Interp) removeCommand(ns *Namespace, name string) bool {
	cmd, ok := ns.commands[name]
	if !ok {
		return false
	}
	i.removeCommandStruct(cmd)
	return true
}

func (i *Interp) removeCommandStruct(cmd *Command) {
	if cmd.deleteCb != nil {
		cb := cmd.deleteCb
		cmd.deleteCb = nil
		cb(i)
	}
	delete(cmd.ns.commands, cmd.name)
	cmd.ns = nil
	i.bumpCmdEpoch()
}

// DeleteCommand removes a command by possibly qualified name.
func (i *Interp) DeleteCommand(name string) error {
	cmd := i.resolveCommand(name)
	if cmd == nil {
		return fmt.Errorf("can't delete %q: command doesn't exist", name)
	}
	i.removeCommandStruct(cmd)
	return nil
}

// RenameCommand renames a command, or deletes it when newName is empty.
func (i *Interp) RenameCommand(oldName, newName string) error {
	cmd := i.resolveCommand(oldName)
	if cmd == nil {
		return fmt.Errorf("can't rename %q: command doesn't exist", oldName)
	}
	if newName == "" {
		i.removeCommandStruct(cmd)
		return nil
	}
	if existing := i.resolveCommand(newName); existing != nil {
		return fmt.Errorf("can't rename to %q: command already exists", newName)
	}
	path, simple, absolute := splitQualName(newName)
	base := i.currentNamespace()
	if absolute {
		base = i.global
	}
	ns := i.walkPath(base, path)
	if ns == nil {
		return fmt.Errorf("can't rename to %q: namespace doesn't exist", newName)
	}
	delete(cmd.ns.commands, cmd.name)
	cmd.name = simple
	cmd.ns = ns
	cmd.fullName = qualify(ns, simple)
	ns.commands[simple] = cmd
	i.bumpCmdEpoch()
	return nil
}

// bumpCmdEpoch invalidates every cached command-name resolution.
func (i *Interp) bumpCmdEpoch() {
	i.cmdEpoch++
}

// cmdNameType caches a resolved command in a value's intrep. The cache
// is valid only while the interpreter's command epoch and the resolving
// namespace are unchanged.
type cmdNameType struct {
	cmd      *Command
	epoch    uint64
	resolvNS *Namespace
}

func (*cmdNameType) TypeName() string { return "cmdName" }

func (t *cmdNameType) UpdateString() string {
	// The string rep is never discarded for command names, so this is
	// unreachable in practice.
	return t.cmd.fullName
}

func (t *cmdNameType) Dup() ObjType {
	return &cmdNameType{cmd: t.cmd, epoch: t.epoch, resolvNS: t.resolvNS}
}

// lookupCommandObj resolves a command name value, caching the result in
// the value's intrep.
func (i *Interp) lookupCommandObj(o *Obj) *Command {
	cur := i.currentNamespace()
	if t, ok := o.intrep.(*cmdNameType); ok {
		if t.epoch == i.cmdEpoch && (t.resolvNS == cur || strings.HasPrefix(o.String(), "::")) {
			return t.cmd
		}
	}
	cmd := i.resolveCommand(o.String())
	if cmd == nil {
		return nil
	}
	if !o.Shared() || o.intrep == nil {
		o.SetIntRep(&cmdNameType{cmd: cmd, epoch: i.cmdEpoch, resolvNS: cur})
	}
	return cmd
}
