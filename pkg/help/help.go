// Package help holds the reference text printed by "gemini help".
package help

import (
	"fmt"
	"sort"
	"strings"

	"github.com/thomasrohde/gemini/pkg/diagnostics"
)

// Version of the language described by this reference.
const Version = "v0.1"

// QUICKREF is printed by "gemini help" without a topic.
var QUICKREF = `Gemini ` + Version + ` quick reference

  var x = 1;                 declare (defaults to 0 without initializer)
  x = x + 1;                 assign to the nearest variable named x
  print "n=" + x;            print a value followed by a newline
  function add(a, b) {       declare a function (max 16 parameters)
    return a + b;
  }
  if (c) { } else { }        while (c) { }        for (var i = 0; i < n; i = i + 1) { }
  import util as u;          load util.gemini once, bind it to u
  u.helper(1); u.value;      call or read a module member
  s[0]; s[0] = "x";          read or replace one character of a string

Topics (gemini help <topic>):
  syntax       statements, expressions and precedence
  types        int, float, string, bool and module values
  scoping      environments, closures and call depth
  modules      import resolution, caching and cycles
  project      gemini.yml and GEMINI_PATH
  diagnostics  error codes and how errors are reported
  examples     complete programs
`

// TopicList fixes the display order of Topics.
var TopicList = []string{"syntax", "types", "scoping", "modules", "project", "diagnostics", "examples"}

// Topics maps topic names to their help text.
var Topics = map[string]string{
	"syntax": `SYNTAX

Statements end with ';'. Blocks are written with braces and open a new scope.
Comments start with // and run to the end of the line.

  var name = expr;           var name;
  print expr;                expr;
  if (cond) stmt else stmt   while (cond) stmt
  for (init; cond; incr) stmt
  function name(p1, p2) { ... }
  return expr;               return;
  import name;               import name as alias;

Precedence, loosest first:
  =          right associative, target is a name or name[index]
  == !=
  < <= > >=
  + -
  * / %
  unary - +
  call f(...), member m.x, index s[i]
`,

	"types": `TYPES

  int      64-bit signed integer: 42
  float    64-bit float, any literal with a '.': 1.5
  string   double quoted, no escapes: "hello"
  bool     true, false
  module   the value bound by import

Truthiness: false, 0, 0.0 and "" are false; everything else is true.

Arithmetic mixes int and float by widening to float. '+' concatenates when
either side is a string. A one-character string in arithmetic with a number
stands for its character code. Integer division truncates; division or modulo
by zero is an error. '<', '<=', '>' and '>=' accept numbers only, while '=='
between values of different types is simply false.
`,

	"scoping": `SCOPING

Every block, function call and module has its own environment. A name is
looked up in the enclosing blocks first, then in the environment the running
function was declared in, then in the globals.

'var' always creates the name in the innermost scope. Assignment updates the
nearest existing variable and fails when there is none.

Functions capture the environment they were declared in. Declaring the same
function name twice in one environment is an error.

Calls nest at most 256 deep by default (max_call_depth in gemini.yml);
deeper recursion stops with a stack overflow error.
`,

	"modules": `MODULES

  import util;          binds util.gemini to the name util
  import util as u;     binds it to u instead

A module runs once per program in its own environment. Later imports of the
same module reuse the cached result. Importing a module that is still loading
is reported as an import cycle, for example "a -> b -> a".

Modules are searched for in this order:
  1. each directory in GEMINI_PATH
  2. each directory listed under paths in gemini.yml
  3. the project root, recursively, depth first in lexical order,
     skipping .git, build, dist, node_modules and git-ignored directories
`,

	"project": `PROJECT

The project root is the nearest directory above the entry file that holds a
gemini.yml, else the top of the enclosing git worktree, else the directory of
the entry file.

gemini.yml:
  name: demo                # defaults to the directory name
  paths: [lib, ../shared]   # extra module directories, relative to the file
  exclude: [fixtures]       # directory names skipped by the project search
  max_call_depth: 512       # overrides the default of 256

GEMINI_PATH lists more module directories, separated like PATH. They are
searched before the manifest paths.
`,

	"diagnostics": `DIAGNOSTICS

The first lexical, syntax or runtime error stops the program. It is printed
to stderr as

  [line N] Error: message

'gemini check' also runs static checks and reports every problem it finds,
as JSON or, with --pretty, as readable text.

` + ErrorIndex(),

	"examples": `EXAMPLES

Closures over a counter:

  var count = 0;
  function bump() { count = count + 1; return count; }
  bump(); bump();
  print count;              // 2

Recursion:

  function fib(n) {
    if (n < 2) return n;
    return fib(n - 1) + fib(n - 2);
  }
  print fib(20);            // 6765

Modules (mathx.gemini next to main.gemini):

  // mathx.gemini
  function square(x) { return x * x; }
  var unit = 1;

  // main.gemini
  import mathx as m;
  print m.square(4) + m.unit;   // 17
`,
}

var errorCodes = []struct {
	code string
	desc string
}{
	{diagnostics.ELex, "unexpected character or unterminated string"},
	{diagnostics.ESyntax, "malformed statement or expression"},
	{diagnostics.EUndefinedVariable, "read or assignment of an unknown name"},
	{diagnostics.EUndefinedFunction, "call of an unknown function or module member"},
	{diagnostics.EType, "operand of the wrong type, bad literal"},
	{diagnostics.ETypeMismatch, "operator applied to incompatible types"},
	{diagnostics.EDivisionByZero, "division by zero"},
	{diagnostics.EModuloByZero, "modulo by zero"},
	{diagnostics.EArityMismatch, "wrong number of arguments"},
	{diagnostics.ETooManyArguments, "more than 16 arguments"},
	{diagnostics.EIndexOutOfRange, "string index outside the string"},
	{diagnostics.EProperty, "member access on a value without members"},
	{diagnostics.EStackOverflow, "call depth limit exceeded"},
	{diagnostics.EModuleResolution, "module not found, unreadable or cyclic"},
	{diagnostics.EDuplicateDefinition, "function declared twice in one scope"},
	{diagnostics.EReturnOutside, "return outside a function"},
	{diagnostics.ECanceled, "run interrupted"},
	{diagnostics.EIO, "file or output failure"},
	{diagnostics.EManifest, "invalid gemini.yml"},
}

// ErrorIndex lists every diagnostic code with a short description.
func ErrorIndex() string {
	var b strings.Builder
	b.WriteString("Error codes:\n")
	for _, e := range errorCodes {
		fmt.Fprintf(&b, "  %-26s %s\n", e.code, e.desc)
	}
	fmt.Fprintf(&b, "Total: %d codes\n", len(errorCodes))
	return b.String()
}

// MatchTopic looks a topic up by exact name or unique prefix.
func MatchTopic(query string) (string, string, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if content, ok := Topics[query]; ok {
		return query, content, nil
	}
	var matches []string
	if query != "" {
		for _, name := range TopicList {
			if strings.HasPrefix(name, query) {
				matches = append(matches, name)
			}
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], Topics[matches[0]], nil
	case 0:
		return "", "", fmt.Errorf("unknown help topic %q (available: %s)", query, strings.Join(TopicList, ", "))
	default:
		sort.Strings(matches)
		return "", "", fmt.Errorf("ambiguous help topic %q (matches: %s)", query, strings.Join(matches, ", "))
	}
}
