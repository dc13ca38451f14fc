package fixture

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/roach88/mirkit/internal/mir"
)

// scope resolves the names a body's text fields may refer to.
type scope struct {
	generics []string
	consts   map[string]mir.UnevaluatedConst
	locals   []mir.LocalDecl
	blocks   int
}

// tyParser reads the type syntax used in fixtures:
//
//	i32  ()  (i32, bool)  &T  &mut T  [u8; 4]  Option<T>  'a  !
type tyParser struct {
	src  string
	pos  int
	sc   *scope
	errs []string
}

func (sc *scope) parseTy(s string) (mir.Ty, error) {
	p := &tyParser{src: s, sc: sc}
	t := p.ty()
	p.skipSpace()
	if p.pos != len(p.src) {
		p.fail("unexpected %q", p.src[p.pos:])
	}
	if len(p.errs) > 0 {
		return nil, fmt.Errorf("type %q: %s", s, p.errs[0])
	}
	return t, nil
}

func (p *tyParser) fail(format string, args ...any) {
	p.errs = append(p.errs, fmt.Sprintf(format, args...))
}

func (p *tyParser) skipSpace() {
	for p.pos < len(p.src) && p.src[p.pos] == ' ' {
		p.pos++
	}
}

func (p *tyParser) peek() byte {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *tyParser) eat(c byte) bool {
	if p.peek() == c {
		p.pos++
		return true
	}
	return false
}

func (p *tyParser) ident() string {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) {
		r := rune(p.src[p.pos])
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != ':' {
			break
		}
		p.pos++
	}
	return p.src[start:p.pos]
}

func (p *tyParser) list(close byte) []mir.Ty {
	var out []mir.Ty
	for len(p.errs) == 0 && !p.eat(close) {
		out = append(out, p.ty())
		if !p.eat(',') {
			if !p.eat(close) {
				p.fail("expected %q", close)
			}
			break
		}
	}
	return out
}

func (p *tyParser) ty() mir.Ty {
	switch p.peek() {
	case 0:
		p.fail("missing type")
		return nil
	case '!':
		p.pos++
		return mir.NeverTy{}
	case '(':
		p.pos++
		return mir.TupleTy{Elems: p.list(')')}
	case '&':
		p.pos++
		mut := mir.Imm
		if strings.HasPrefix(p.src[p.pos:], "mut ") {
			p.pos += len("mut ")
			mut = mir.Mut
		}
		return mir.RefTy{Mut: mut, Elem: p.ty()}
	case '[':
		p.pos++
		elem := p.ty()
		if !p.eat(';') {
			p.fail("expected ';' in array type")
			return nil
		}
		n, err := strconv.ParseUint(p.ident(), 10, 64)
		if err != nil {
			p.fail("bad array length")
			return nil
		}
		if !p.eat(']') {
			p.fail("expected ']'")
		}
		return mir.ArrayTy{Elem: elem, Len: mir.Uint(mir.Usize, n)}
	case '\'':
		p.pos++
		return mir.RegionTy{Name: p.ident()}
	}

	name := p.ident()
	if name == "" {
		p.fail("unexpected %q", p.src[p.pos:])
		return nil
	}
	if k, ok := mir.ParsePrimKind(name); ok {
		return mir.PrimTy{Kind: k}
	}
	for i, g := range p.sc.generics {
		if g == name {
			return mir.ParamTy{Index: uint32(i), Name: name}
		}
	}
	var args []mir.Ty
	if p.eat('<') {
		args = p.list('>')
	}
	return mir.AdtTy{Name: name, Args: args}
}

// parsePlace reads "_N" followed by ".k" field and "[_M]" index
// projections. A leading '*' dereferences the local first.
func (sc *scope) parsePlace(s string) (mir.Place, error) {
	orig := s
	s = strings.TrimSpace(s)
	deref := strings.HasPrefix(s, "*")
	s = strings.TrimPrefix(s, "*")

	end := strings.IndexAny(s, ".[")
	if end < 0 {
		end = len(s)
	}
	local, err := parseLocal(s[:end])
	if err != nil {
		return mir.Place{}, fmt.Errorf("place %q: %w", orig, err)
	}
	if int(local) >= len(sc.locals) {
		return mir.Place{}, fmt.Errorf("place %q: %s is not declared", orig, local)
	}
	place := mir.PlaceFrom(local)
	ty := sc.locals[local].Ty

	if deref {
		r, ok := ty.(mir.RefTy)
		if !ok {
			return mir.Place{}, fmt.Errorf("place %q: cannot dereference %s", orig, ty)
		}
		place, ty = place.Project(mir.Deref{}), r.Elem
	}

	rest := s[end:]
	for rest != "" {
		switch rest[0] {
		case '.':
			rest = rest[1:]
			n := strings.IndexAny(rest, ".[")
			if n < 0 {
				n = len(rest)
			}
			idx, err := strconv.ParseUint(rest[:n], 10, 32)
			if err != nil {
				return mir.Place{}, fmt.Errorf("place %q: bad field %q", orig, rest[:n])
			}
			rest = rest[n:]
			tup, ok := ty.(mir.TupleTy)
			if !ok || int(idx) >= len(tup.Elems) {
				return mir.Place{}, fmt.Errorf("place %q: no field %d on %s", orig, idx, ty)
			}
			ty = tup.Elems[idx]
			place = place.Project(mir.Field{Index: mir.FieldIdx(idx), Ty: ty})
		case '[':
			n := strings.IndexByte(rest, ']')
			if n < 0 {
				return mir.Place{}, fmt.Errorf("place %q: unclosed index", orig)
			}
			idx, err := parseLocal(rest[1:n])
			if err != nil {
				return mir.Place{}, fmt.Errorf("place %q: %w", orig, err)
			}
			rest = rest[n+1:]
			arr, ok := ty.(mir.ArrayTy)
			if !ok {
				return mir.Place{}, fmt.Errorf("place %q: cannot index %s", orig, ty)
			}
			ty = arr.Elem
			place = place.Project(mir.Index{Local: idx})
		default:
			return mir.Place{}, fmt.Errorf("place %q: unexpected %q", orig, rest)
		}
	}
	return place, nil
}

func parseLocal(s string) (mir.Local, error) {
	if !strings.HasPrefix(s, "_") {
		return 0, fmt.Errorf("expected a local like _1, got %q", s)
	}
	n, err := strconv.ParseUint(s[1:], 10, 32)
	if err != nil {
		return 0, fmt.Errorf("expected a local like _1, got %q", s)
	}
	return mir.Local(n), nil
}

// parseOperand reads "copy P", "move P", a bare place (a copy) or
// "const C".
func (sc *scope) parseOperand(s string) (mir.Operand, error) {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, "const "):
		c, err := sc.parseConst(strings.TrimSpace(s[len("const "):]))
		if err != nil {
			return nil, err
		}
		return mir.ConstOperand{Constant: mir.Constant{Literal: c}}, nil
	case strings.HasPrefix(s, "move "):
		p, err := sc.parsePlace(s[len("move "):])
		if err != nil {
			return nil, err
		}
		return mir.Move{Place: p}, nil
	default:
		p, err := sc.parsePlace(strings.TrimPrefix(s, "copy "))
		if err != nil {
			return nil, err
		}
		return mir.Copy{Place: p}, nil
	}
}

// parseConst reads "true", "false", "()", "<int>_<prim>" or the name of
// a constant item declared in the same file.
func (sc *scope) parseConst(s string) (mir.ConstantKind, error) {
	switch s {
	case "true":
		return mir.BoolConst(true), nil
	case "false":
		return mir.BoolConst(false), nil
	case "()":
		return mir.UnitConst, nil
	}
	if c, ok := sc.consts[s]; ok {
		return c, nil
	}

	num, suffix, ok := strings.Cut(s, "_")
	if !ok {
		return nil, fmt.Errorf("constant %q: expected a typed literal like 1_i32", s)
	}
	k, ok := mir.ParsePrimKind(suffix)
	if !ok || !k.IsInteger() {
		return nil, fmt.Errorf("constant %q: unknown integer type %q", s, suffix)
	}
	if k.IsSigned() {
		v, err := strconv.ParseInt(num, 10, int(k.BitWidth()))
		if err != nil {
			return nil, fmt.Errorf("constant %q: %w", s, err)
		}
		return mir.Int(k, v), nil
	}
	v, err := strconv.ParseUint(num, 10, int(k.BitWidth()))
	if err != nil {
		return nil, fmt.Errorf("constant %q: %w", s, err)
	}
	return mir.Uint(k, v), nil
}
