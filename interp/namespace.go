package interp

import (
	"fmt"
	"strings"
)

// Namespace holds commands and variables under a "::"-separated path.
// The global namespace has the full name "::".
type Namespace struct {
	name     string
	fullName string
	parent   *Namespace
	children map[string]*Namespace
	commands map[string]*Command
	vars     map[string]*Var
	exports  []string
	deleted  bool
}

func newNamespace(name string, parent *Namespace) *Namespace {
	ns := &Namespace{
		name:     name,
		parent:   parent,
		children: map[string]*Namespace{},
		commands: map[string]*Command{},
		vars:     map[string]*Var{},
	}
	if parent == nil {
		ns.fullName = "::"
	} else if parent.parent == nil {
		ns.fullName = "::" + name
	} else {
		ns.fullName = parent.fullName + "::" + name
	}
	return ns
}

// FullName returns the fully qualified path of the namespace.
func (ns *Namespace) FullName() string { return ns.fullName }

// splitQualName splits a possibly qualified name into its namespace
// path segments and the final simple name. absolute is true when the
// name begins with "::".
func splitQualName(name string) (path []string, simple string, absolute bool) {
	if strings.HasPrefix(name, "::") {
		absolute = true
		name = name[2:]
	}
	parts := strings.Split(name, "::")
	return parts[:len(parts)-1], parts[len(parts)-1], absolute
}

// findNamespace resolves a namespace by name relative to cur. When
// create is set, missing intermediate namespaces are created.
func (i *Interp) findNamespace(name string, cur *Namespace, create bool) (*Namespace, error) {
	ns := cur
	if strings.HasPrefix(name, "::") {
		ns = i.global
		name = name[2:]
	}
	if name == "" {
		return ns, nil
	}
	for _, part := range strings.Split(name, "::") {
		if part == "" {
			continue
		}
		child, ok := ns.children[part]
		if !ok {
			if !create {
				return nil, fmt.Errorf("namespace %q not found in %q", name, cur.fullName)
			}
			child = newNamespace(part, ns)
			ns.children[part] = child
		}
		ns = child
	}
	return ns, nil
}

// resolveCommand looks up a command name. Absolute names resolve from
// the global namespace only; unqualified names search the current
// namespace and then the global one. Relative qualified names resolve
// against the current namespace first, then the global namespace.
func (i *Interp) resolveCommand(name string) *Command {
	path, simple, absolute := splitQualName(name)
	if absolute {
		ns := i.walkPath(i.global, path)
		if ns == nil {
			return nil
		}
		return ns.commands[simple]
	}
	cur := i.currentNamespace()
	if ns := i.walkPath(cur, path); ns != nil {
		if cmd, ok := ns.commands[simple]; ok {
			return cmd
		}
	}
	if cur != i.global {
		if ns := i.walkPath(i.global, path); ns != nil {
			return ns.commands[simple]
		}
	}
	return nil
}

func (i *Interp) walkPath(ns *Namespace, path []string) *Namespace {
	for _, part := range path {
		if part == "" {
			continue
		}
		child, ok := ns.children[part]
		if !ok {
			return nil
		}
		ns = child
	}
	return ns
}

// currentNamespace is the namespace of the active call frame.
func (i *Interp) currentNamespace() *Namespace {
	if len(i.frames) > 0 {
		if ns := i.frames[len(i.frames)-1].ns; ns != nil {
			return ns
		}
	}
	return i.global
}

// deleteNamespace removes the namespace, its commands, variables, and
// children. The global namespace cannot be deleted.
func (i *Interp) deleteNamespace(ns *Namespace) error {
	if ns == i.global {
		return fmt.Errorf("cannot delete the global namespace")
	}
	for _, child := range ns.children {
		i.deleteNamespace(child)
	}
	for name := range ns.commands {
		i.removeCommand(ns, name)
	}
	for name, v := range ns.vars {
		v.invalidate(i)
		delete(ns.vars, name)
	}
	ns.deleted = true
	delete(ns.parent.children, ns.name)
	i.bumpCmdEpoch()
	return nil
}
