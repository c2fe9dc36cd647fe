// Package symtab is a stack of hash-bucketed scopes: a djb2-hashed symbol
// table with 64 buckets per scope by default, parent-chain lookup, and
// every Insert routed through a mem.Accountant so declaring too many
// symbols can trip the same memory-exhausted/warning path as an oversized
// source file.
package symtab

import (
	"fmt"
	"io"

	"github.com/vitortec/compilador/internal/mem"
	"github.com/vitortec/compilador/internal/types"
)

// defaultBuckets matches the original allocator's fixed bucket count; it is
// not configurable because nothing in the language's scoping model needs it
// to be.
const defaultBuckets = 64

// symbolSize is the logical size charged to the accountant per inserted
// symbol, mirroring the original's Symbol-struct-plus-name-copy allocation.
const symbolSize = 32

// Class distinguishes the three kinds of name a Symbol can record.
type Class int

const (
	Var Class = iota
	Param
	Func
)

func (c Class) String() string {
	switch c {
	case Param:
		return "param"
	case Func:
		return "func"
	default:
		return "var"
	}
}

// Symbol is one declared name: its class, resolved type, declaring scope,
// and source line.
type Symbol struct {
	Name     string
	Class    Class
	Type     types.Type
	ScopeID  int
	Line     int
	ParamCount int // Func only: arity, for call-site checking
}

// scope is one hash-bucketed level of the lexical stack. Buckets hold
// collision chains exactly as the djb2 table does, but as Go slices rather
// than manually malloc'd arrays — the one deliberate Go-native concession
// spec's symbol-table design calls for.
type scope struct {
	id      int
	parent  *scope
	buckets [][]*Symbol
}

func newScope(id int, parent *scope, bucketCount int) *scope {
	return &scope{id: id, parent: parent, buckets: make([][]*Symbol, bucketCount)}
}

// SymTab is the live stack of scopes plus the accountant every Insert
// reports through.
type SymTab struct {
	current *scope
	nextID  int
	buckets int
	acc     *mem.Accountant
}

// New returns a SymTab with one global scope (id 0) already open. acc may
// be nil in tests that don't exercise memory accounting.
func New(acc *mem.Accountant) *SymTab {
	return &SymTab{current: newScope(0, nil, defaultBuckets), nextID: 1, buckets: defaultBuckets, acc: acc}
}

// djb2 hashes s the same way the original allocator's sym_hash did: seed
// 5381, multiply-by-33-and-add per byte.
func djb2(s string) uint64 {
	var hash uint64 = 5381
	for i := 0; i < len(s); i++ {
		hash = ((hash << 5) + hash) + uint64(s[i])
	}
	return hash
}

// EnterScope pushes a new child scope onto the stack.
func (st *SymTab) EnterScope() {
	st.current = newScope(st.nextID, st.current, st.buckets)
	st.nextID++
}

// LeaveScope pops the current scope. It is a no-op if only the global scope
// remains.
func (st *SymTab) LeaveScope() {
	if st.current == nil || st.current.parent == nil {
		return
	}
	st.current = st.current.parent
}

// ScopeID returns the id of the currently open scope.
func (st *SymTab) ScopeID() int {
	if st.current == nil {
		return -1
	}
	return st.current.id
}

// Insert adds sym to the current scope. It fails (returns false) if a
// symbol with the same name already exists in the current scope — shadowing
// an outer scope is allowed, redeclaring within one is not. A non-nil error
// signals the accountant's memory-exhausted or 90% warning condition; the
// symbol is still inserted unless the error is the fatal kind.
func (st *SymTab) Insert(sym Symbol) (bool, error) {
	if st.current == nil {
		return false, nil
	}
	h := djb2(sym.Name) % uint64(len(st.current.buckets))
	for _, existing := range st.current.buckets[h] {
		if existing.Name == sym.Name {
			return false, nil
		}
	}

	if st.acc != nil {
		_, err := st.acc.Alloc(symbolSize + uint64(len(sym.Name)))
		if _, exhausted := err.(*mem.ErrMemoryExhausted); exhausted {
			return false, err
		}
		sym.ScopeID = st.current.id
		st.current.buckets[h] = append(st.current.buckets[h], &sym)
		return true, err // err is either nil or a *mem.Warning
	}

	sym.ScopeID = st.current.id
	st.current.buckets[h] = append(st.current.buckets[h], &sym)
	return true, nil
}

// Lookup searches the current scope, then each parent in turn, returning
// the first match.
func (st *SymTab) Lookup(name string) (*Symbol, bool) {
	for s := st.current; s != nil; s = s.parent {
		h := djb2(name) % uint64(len(s.buckets))
		for _, sym := range s.buckets[h] {
			if sym.Name == name {
				return sym, true
			}
		}
	}
	return nil, false
}

// LookupLocal searches only the current scope, ignoring parents.
func (st *SymTab) LookupLocal(name string) (*Symbol, bool) {
	if st.current == nil {
		return nil, false
	}
	h := djb2(name) % uint64(len(st.current.buckets))
	for _, sym := range st.current.buckets[h] {
		if sym.Name == name {
			return sym, true
		}
	}
	return nil, false
}

// Dump writes every open scope, outermost first, in the exact rendering
// format spec §4.6 specifies: "Escopo <id>:" followed by one indented line
// per symbol, "<name> (<class>, <type>, linha <line>)".
func Dump(w io.Writer, st *SymTab) {
	var chain []*scope
	for s := st.current; s != nil; s = s.parent {
		chain = append(chain, s)
	}
	for i := len(chain) - 1; i >= 0; i-- {
		s := chain[i]
		fmt.Fprintf(w, "Escopo %d:\n", s.id)
		for _, bucket := range s.buckets {
			for _, sym := range bucket {
				fmt.Fprintf(w, "  %s (%s, %s, linha %d)\n", sym.Name, sym.Class, sym.Type, sym.Line)
			}
		}
		fmt.Fprintln(w)
	}
}
