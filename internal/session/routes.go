package session

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var ErrUnbalancedPattern = errors.New("unbalanced group in route pattern")

// Pattern is a compiled route glob. Supported syntax:
//
//	(a|b)  alternation, branches may be empty: "/account(|/)"
//	{a,b}  brace alternation
//	*      any run of characters except "/"
//	**     any run of characters including "/"
//	?      exactly one character except "/"
//
// Everything else matches literally. A pattern matches the whole path, never a prefix.
type Pattern struct {
	Source string
	re     *regexp.Regexp
}

func (p Pattern) Match(path string) bool {
	return p.re != nil && p.re.MatchString(path)
}

func (p Pattern) String() string { return p.Source }

func CompilePattern(src string) (Pattern, error) {
	var b strings.Builder
	b.WriteString("^")

	// open groups, innermost last: '(' or '{'
	var stack []rune
	top := func() rune {
		if len(stack) == 0 {
			return 0
		}
		return stack[len(stack)-1]
	}

	rs := []rune(src)
	for i := 0; i < len(rs); i++ {
		c := rs[i]
		switch {
		case c == '(' || c == '{':
			stack = append(stack, c)
			b.WriteString("(?:")
		case c == ')' || c == '}':
			want := '('
			if c == '}' {
				want = '{'
			}
			if top() != want {
				return Pattern{}, fmt.Errorf("%w: %q", ErrUnbalancedPattern, src)
			}
			stack = stack[:len(stack)-1]
			b.WriteString(")")
		case c == '|' && top() == '(':
			b.WriteString("|")
		case c == ',' && top() == '{':
			b.WriteString("|")
		case c == '*':
			if i+1 < len(rs) && rs[i+1] == '*' {
				i++
				b.WriteString(".*")
			} else {
				b.WriteString("[^/]*")
			}
		case c == '?':
			b.WriteString("[^/]")
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	if len(stack) != 0 {
		return Pattern{}, fmt.Errorf("%w: %q", ErrUnbalancedPattern, src)
	}
	b.WriteString("$")

	re, err := regexp.Compile(b.String())
	if err != nil {
		return Pattern{}, fmt.Errorf("compile route pattern %q: %w", src, err)
	}
	return Pattern{Source: src, re: re}, nil
}

func MustCompilePattern(src string) Pattern {
	p, err := CompilePattern(src)
	if err != nil {
		panic(err)
	}
	return p
}

func CompilePatterns(srcs []string) ([]Pattern, error) {
	out := make([]Pattern, 0, len(srcs))
	for _, s := range srcs {
		p, err := CompilePattern(s)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// Routes holds the two pattern sets consulted on every request. It is read-only after load.
type Routes struct {
	Protected               []Pattern
	RedirectIfAuthenticated []Pattern
}

var (
	defaultProtected               = []string{"/account(|/)"}
	defaultRedirectIfAuthenticated = []string{"/signin(|/)", "/register(|/)"}
)

func DefaultRoutes() Routes {
	r, err := NewRoutes(defaultProtected, defaultRedirectIfAuthenticated)
	if err != nil {
		panic(err)
	}
	return r
}

func NewRoutes(protected, redirectIfAuthenticated []string) (Routes, error) {
	p, err := CompilePatterns(protected)
	if err != nil {
		return Routes{}, fmt.Errorf("protected: %w", err)
	}
	ra, err := CompilePatterns(redirectIfAuthenticated)
	if err != nil {
		return Routes{}, fmt.Errorf("redirect_if_authenticated: %w", err)
	}
	return Routes{Protected: p, RedirectIfAuthenticated: ra}, nil
}

func (r Routes) IsProtected(path string) bool {
	return matchAny(r.Protected, path)
}

func (r Routes) IsRedirectIfAuthenticated(path string) bool {
	return matchAny(r.RedirectIfAuthenticated, path)
}

func matchAny(ps []Pattern, path string) bool {
	for _, p := range ps {
		if p.Match(path) {
			return true
		}
	}
	return false
}

type routesFile struct {
	Protected               []string `yaml:"protected"`
	RedirectIfAuthenticated []string `yaml:"redirect_if_authenticated"`
}

// LoadRoutesFile reads pattern sets from YAML. A key that is absent keeps its default set.
//
//	protected:
//	  - "/account(|/)"
//	redirect_if_authenticated:
//	  - "/signin(|/)"
func LoadRoutesFile(path string) (Routes, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Routes{}, fmt.Errorf("read routes file: %w", err)
	}
	return ParseRoutes(b)
}

func ParseRoutes(b []byte) (Routes, error) {
	var f routesFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return Routes{}, fmt.Errorf("parse routes file: %w", err)
	}
	if f.Protected == nil {
		f.Protected = defaultProtected
	}
	if f.RedirectIfAuthenticated == nil {
		f.RedirectIfAuthenticated = defaultRedirectIfAuthenticated
	}
	return NewRoutes(f.Protected, f.RedirectIfAuthenticated)
}
