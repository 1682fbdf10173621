package evaluator

import "github.com/thomasrohde/gemini/pkg/ast"

// Function is a declared Gemini function. Body points into Unit's AST and
// Closure names the persistent environment the function was declared in.
type Function struct {
	Name    string
	Params  []string
	Body    *ast.Block
	Unit    *ast.Program
	Closure EnvID
}

// Environment is one scope: variables and functions keyed by exact name,
// with a parent link for block scopes inside a single activation.
type Environment struct {
	vars   map[string]Value
	funcs  map[string]*Function
	parent *Environment
}

// NewEnvironment creates a scope with an optional parent.
func NewEnvironment(parent *Environment) *Environment {
	return &Environment{
		vars:   make(map[string]Value),
		funcs:  make(map[string]*Function),
		parent: parent,
	}
}

// Child creates a new block scope whose parent is this environment.
func (e *Environment) Child() *Environment {
	return NewEnvironment(e)
}

// Get looks up a variable in this scope only.
func (e *Environment) Get(name string) (Value, bool) {
	v, ok := e.vars[name]
	return v, ok
}

// Define binds a variable in this scope, replacing any existing binding.
func (e *Environment) Define(name string, val Value) {
	e.vars[name] = val
}

// Function looks up a function in this scope only.
func (e *Environment) Function(name string) (*Function, bool) {
	fn, ok := e.funcs[name]
	return fn, ok
}

// DeclareFunction registers fn. It reports false if the name is taken.
func (e *Environment) DeclareFunction(fn *Function) bool {
	if _, exists := e.funcs[fn.Name]; exists {
		return false
	}
	e.funcs[fn.Name] = fn
	return true
}

// root returns the outermost scope of this chain: the activation's own
// environment (call, module or global).
func (e *Environment) root() *Environment {
	for e.parent != nil {
		e = e.parent
	}
	return e
}

// EnvID addresses a persistent environment (global or module) in an arena.
type EnvID int

// arena owns every persistent environment of a run. Entries are never freed
// while the run is alive, so an EnvID held by a closure stays valid.
type arena struct {
	envs []*Environment
}

func (a *arena) alloc() EnvID {
	a.envs = append(a.envs, NewEnvironment(nil))
	return EnvID(len(a.envs) - 1)
}

func (a *arena) get(id EnvID) *Environment {
	return a.envs[id]
}
