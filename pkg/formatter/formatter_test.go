package formatter_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/thomasrohde/gemini/pkg/formatter"
	"github.com/thomasrohde/gemini/pkg/parser"
)

func mustFormat(t *testing.T, source string) string {
	t.Helper()
	prog, err := parser.Parse(source, "test.gemini")
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	return formatter.Format(prog)
}

func TestFormat(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "declarations",
			src:  "var   x=1 ;var y;print x+y;",
			want: "var x = 1;\nvar y;\nprint x + y;\n",
		},
		{
			name: "precedence keeps needed parens",
			src:  "print (1+2)*3; print 1+(2*3); print 1-(2-3); print (1-2)-3;",
			want: "print (1 + 2) * 3;\nprint 1 + 2 * 3;\nprint 1 - (2 - 3);\nprint 1 - 2 - 3;\n",
		},
		{
			name: "unary",
			src:  "print -(1+2); print - -x; print -x;",
			want: "print -(1 + 2);\nprint -(-x);\nprint -x;\n",
		},
		{
			name: "assignment",
			src:  "a = b = 3; s[0] = \"x\"; print 1 + (a = 2);",
			want: "a = b = 3;\ns[0] = \"x\";\nprint 1 + (a = 2);\n",
		},
		{
			name: "postfix chain",
			src:  "print m.f(1, 2)[0]; print (a + b)[1]; print m.v;",
			want: "print m.f(1, 2)[0];\nprint (a + b)[1];\nprint m.v;\n",
		},
		{
			name: "imports",
			src:  "import util; import util as u;",
			want: "import util;\nimport util as u;\n",
		},
		{
			name: "function separated by blank lines",
			src:  "var a = 1; function f(x, y) { return x + y; } print f(a, 2);",
			want: "var a = 1;\n\nfunction f(x, y) {\n  return x + y;\n}\n\nprint f(a, 2);\n",
		},
		{
			name: "bare return and empty block",
			src:  "function f() { return; } function g() {}",
			want: "function f() {\n  return;\n}\n\nfunction g() {}\n",
		},
		{
			name: "if else chain",
			src:  "if (a) { print 1; } else if (b) { print 2; } else { print 3; }",
			want: "if (a) {\n  print 1;\n} else if (b) {\n  print 2;\n} else {\n  print 3;\n}\n",
		},
		{
			name: "single statement bodies",
			src:  "if (a) print 1; else print 2; while (x < 3) x = x + 1;",
			want: "if (a)\n  print 1;\nelse\n  print 2;\nwhile (x < 3)\n  x = x + 1;\n",
		},
		{
			name: "for clauses",
			src:  "for (var i = 0; i < 3; i = i + 1) { print i; } for (;;) {} for (i = 0; ; ) print i;",
			want: "for (var i = 0; i < 3; i = i + 1) {\n  print i;\n}\nfor (;;) {}\nfor (i = 0;;)\n  print i;\n",
		},
		{
			name: "nested blocks",
			src:  "{ var x = 1; { print x; } }",
			want: "{\n  var x = 1;\n  {\n    print x;\n  }\n}\n",
		},
		{
			name: "literals keep their spelling",
			src:  "print 1.50; print \"a b\"; print true;",
			want: "print 1.50;\nprint \"a b\";\nprint true;\n",
		},
		{
			name: "empty program",
			src:  "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mustFormat(t, tt.src)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Format() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFormatIdempotent(t *testing.T) {
	sources := []string{
		"var x = (1 + 2) * -(3 - 4) % 5;",
		"function fib(n) { if (n < 2) return n; return fib(n - 1) + fib(n - 2); } print fib(10);",
		"import m as mod; print mod.f(mod.v)[0] == \"c\";",
		"for (var i = 0; i < 10; i = i + 1) while (false) { print i; }",
		"if (a) if (b) print 1; else print 2;",
	}
	for _, src := range sources {
		once := mustFormat(t, src)
		twice := mustFormat(t, once)
		if diff := cmp.Diff(once, twice); diff != "" {
			t.Errorf("formatting %q is not idempotent (-first +second):\n%s", src, diff)
		}
	}
}

func TestHasComments(t *testing.T) {
	tests := []struct {
		src  string
		want bool
	}{
		{"print 1;", false},
		{"// header\nprint 1;", true},
		{"print 1; // trailing", true},
		{"print \"http://x\";", false},
		{"print 4 / 2;", false},
	}
	for _, tt := range tests {
		if got := formatter.HasComments(tt.src); got != tt.want {
			t.Errorf("HasComments(%q) = %v, want %v", tt.src, got, tt.want)
		}
	}
}
