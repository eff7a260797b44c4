package til

import (
	"go.uber.org/zap"

	"github.com/jtimon/til/internal/source"
)

// Context is the per-compilation state threaded through every phase
// after Init, per spec §3. It owns the scope stack, the import cache,
// and the single-slot enum-constructor payload channel.
type Context struct {
	Path    string
	Scopes  *ScopeStack
	Mode    *ModeDef
	Heap    *Heap

	Resolver source.Resolver

	importedASTs     map[string]*Expr
	importsInitDone  map[string]bool
	importsTyperDone map[string]bool

	// TempEnumPayload is a single-slot channel from enum-constructor
	// evaluation to the next enum-binding insertion, per spec §3/§5.
	// It must be consumed exactly once per produce.
	TempEnumPayload *EnumVal

	Diags Diagnostics
	Log   *zap.Logger
}

func NewContext(path string, resolver source.Resolver, log *zap.Logger) *Context {
	if log == nil {
		log = zap.NewNop()
	}
	return &Context{
		Path:             path,
		Scopes:           NewScopeStack(),
		Heap:             NewHeap(),
		Resolver:         resolver,
		importedASTs:     make(map[string]*Expr),
		importsInitDone:  make(map[string]bool),
		importsTyperDone: make(map[string]bool),
		Log:              log,
	}
}

// CachedAST returns a previously parsed-and-cached file AST, if any.
func (c *Context) CachedAST(path string) (*Expr, bool) {
	e, ok := c.importedASTs[path]
	return e, ok
}

func (c *Context) CacheAST(path string, e *Expr) {
	c.importedASTs[path] = e
}

// BeginImportInit marks path as being processed by Init and reports
// whether it was already done/in-progress (cycle guard), per spec §4.5
// and §9 ("dual seen sets").
func (c *Context) BeginImportInit(path string) (alreadyDone bool) {
	if c.importsInitDone[path] {
		return true
	}
	c.importsInitDone[path] = true
	return false
}

func (c *Context) BeginImportTyper(path string) (alreadyDone bool) {
	if c.importsTyperDone[path] {
		return true
	}
	c.importsTyperDone[path] = true
	return false
}

// SetTempEnumPayload stores the payload produced by the last evaluated
// enum constructor. Panics if a previous payload was never consumed:
// that would indicate two enum constructions raced within a single
// evaluation step, which the single-threaded interpreter never does.
func (c *Context) SetTempEnumPayload(v EnumVal) {
	if c.TempEnumPayload != nil {
		panic("temp_enum_payload produced twice without being consumed")
	}
	cp := v
	c.TempEnumPayload = &cp
}

// TakeTempEnumPayload consumes and clears the slot.
func (c *Context) TakeTempEnumPayload() (EnumVal, bool) {
	if c.TempEnumPayload == nil {
		return EnumVal{}, false
	}
	v := *c.TempEnumPayload
	c.TempEnumPayload = nil
	return v, true
}
