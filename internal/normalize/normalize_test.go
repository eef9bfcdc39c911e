package normalize

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no markers", "const a = { b: 1 };", "const a = { b: 1 };"},
		{"plain", "`${ name }`", "`${name}`"},
		{"already tight", "`${name}`", "`${name}`"},
		{"empty", "${}", "${}"},
		{"blank", "${   }", "${}"},
		{"multiline", "`${\n  user.name\n}`", "`${user.name}`"},
		{"several", "`${ a }-${ b }`", "`${a}-${b}`"},
		{"nested braces", "`${ {a: 1}.a }`", "`${{a: 1}.a}`"},
		{"brace in double quotes", "`${ a + \"}\" + b }`", "`${a + \"}\" + b}`"},
		{"brace in single quotes", "`${ f('{') }`", "`${f('{')}`"},
		{"quote of the other kind", "`${ \"it's\" }`", "`${\"it's\"}`"},
		{"nested template", "`${ `x${y}` }`", "`${`x${y}`}`"},
		{"escaped quote", "`${ \"a\\\"}\" }`", "`${\"a\\\"}\"}`"},
		{"escaped backslash closes", "`${ \"a\\\\\" }`", "`${\"a\\\\\"}`"},
		{"lone dollar", "cost: $5 {x}", "cost: $5 {x}"},
		{"dollar at end", "a$", "a$"},
		{"unterminated", "x ${ a + {b ", "x ${ a + {b "},
		{"unterminated string", "x ${ \"abc } y", "x ${ \"abc } y"},
		{"well formed then truncated", "${ a } and ${ b", "${a} and ${ b"},
		{"multibyte", "`${ 名前 }` ok", "`${名前}` ok"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, Normalize(tt.in)); diff != "" {
				t.Errorf("Normalize(%q) mismatch (-want +got):\n%s", tt.in, diff)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"`${ a }`",
		"const s = `${ a + \"}\" + b } and ${ {x: 1}.x }`;",
		"`${\n\tfn(`inner ${ v }`)\n}`",
		"html`<div class=\"${ cls }\">${ items.map(i => `<li>${ i }</li>`).join('') }</div>`",
	}
	for _, in := range inputs {
		once := Normalize(in)
		if diff := cmp.Diff(once, Normalize(once)); diff != "" {
			t.Errorf("Normalize not idempotent for %q (-once +twice):\n%s", in, diff)
		}
	}
}

func TestIsEscaped(t *testing.T) {
	s := `a\"b\\"c\\\"`
	cases := map[int]bool{
		2:  true,  // \"
		6:  false, // \\"
		11: true,  // \\\"
	}
	for i, want := range cases {
		if got := isEscaped(s, i); got != want {
			t.Errorf("isEscaped(%q, %d) = %v, want %v", s, i, got, want)
		}
	}
}
