package mir

import (
	"fmt"
	"sync"

	"golang.org/x/text/unicode/norm"
)

// Symbol is an interned identifier. Two symbols are equal exactly when
// their NFC-normalized spellings are equal.
type Symbol uint32

var interner = struct {
	sync.RWMutex
	ids   map[string]Symbol
	names []string
}{ids: make(map[string]Symbol)}

// Intern returns the symbol for s. Identifiers are normalized to NFC
// first so visually identical names intern to the same symbol.
func Intern(s string) Symbol {
	s = norm.NFC.String(s)

	interner.RLock()
	sym, ok := interner.ids[s]
	interner.RUnlock()
	if ok {
		return sym
	}

	interner.Lock()
	defer interner.Unlock()
	if sym, ok := interner.ids[s]; ok {
		return sym
	}
	sym = Symbol(len(interner.names))
	interner.names = append(interner.names, s)
	interner.ids[s] = sym
	return sym
}

func (s Symbol) String() string {
	interner.RLock()
	defer interner.RUnlock()
	if int(s) < len(interner.names) {
		return interner.names[s]
	}
	return fmt.Sprintf("<sym %d>", uint32(s))
}

// Span is a byte range in a source file.
type Span struct {
	Lo uint32
	Hi uint32
}

// DummySpan is used for compiler-generated code.
var DummySpan = Span{}

func (s Span) String() string { return fmt.Sprintf("%d..%d", s.Lo, s.Hi) }
