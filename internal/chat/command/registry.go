package command

import (
	"cmp"
	"fmt"
	"slices"
)

// Registry resolves typed command words to Command definitions.
type Registry struct {
	byWord map[string]*Command // canonical names and aliases
	sorted []*Command
}

// NewRegistry indexes cmds by name and alias.
//
// Precondition: Every name and alias must be unique across cmds.
// Postcondition: Returns a Registry, or an error naming the first collision.
func NewRegistry(cmds []Command) (*Registry, error) {
	r := &Registry{byWord: make(map[string]*Command)}
	for i := range cmds {
		cmd := &cmds[i]
		for _, word := range append([]string{cmd.Name}, cmd.Aliases...) {
			if owner, taken := r.byWord[word]; taken {
				return nil, fmt.Errorf("command word %q of /%s already used by /%s", word, cmd.Name, owner.Name)
			}
			r.byWord[word] = cmd
		}
		r.sorted = append(r.sorted, cmd)
	}
	slices.SortFunc(r.sorted, func(a, b *Command) int { return cmp.Compare(a.Name, b.Name) })
	return r, nil
}

// DefaultRegistry returns a Registry of BuiltinCommands. It panics if the
// built-in table collides with itself.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(BuiltinCommands())
	if err != nil {
		panic(fmt.Sprintf("building default registry: %v", err))
	}
	return r
}

// Resolve looks up a command by name or alias.
//
// Postcondition: Returns (command, true) if found, or (nil, false).
func (r *Registry) Resolve(word string) (*Command, bool) {
	cmd, ok := r.byWord[word]
	return cmd, ok
}

// Commands returns every command sorted by name.
func (r *Registry) Commands() []*Command {
	return slices.Clone(r.sorted)
}

// CommandsByCategory groups Commands by category, preserving name order.
func (r *Registry) CommandsByCategory() map[string][]*Command {
	out := make(map[string][]*Command)
	for _, cmd := range r.sorted {
		out[cmd.Category] = append(out[cmd.Category], cmd)
	}
	return out
}
