package til

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"
)

const eof = -1

// Lexer turns source text into a token stream with position info, per
// spec §4.1. It runs to completion even on errors: callers drain
// Diagnostics() after Tokens() to report everything at once.
type Lexer struct {
	file  string
	input []byte
	runes []rune
	cur   int // index into runes

	li  *LineIndex
	log *zap.Logger

	diags Diagnostics
}

func NewLexer(file string, src []byte, log *zap.Logger) *Lexer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Lexer{
		file:  file,
		input: src,
		runes: []rune(string(src)),
		li:    NewLineIndex(file, src),
		log:   log.With(zap.String("phase", string(PhaseLexer))),
	}
}

func (l *Lexer) Diagnostics() Diagnostics { return l.diags }

func (l *Lexer) peek() rune {
	if l.cur >= len(l.runes) {
		return eof
	}
	return l.runes[l.cur]
}

func (l *Lexer) peekAt(off int) rune {
	i := l.cur + off
	if i >= len(l.runes) {
		return eof
	}
	return l.runes[i]
}

func (l *Lexer) advance() rune {
	r := l.peek()
	if r != eof {
		l.cur++
	}
	return r
}

// byteOffset converts the current rune cursor into a byte offset into
// l.input, used to build Range/Location values.
func (l *Lexer) byteOffset(runeCursor int) int {
	if runeCursor <= 0 {
		return 0
	}
	if runeCursor >= len(l.runes) {
		return len(l.input)
	}
	return len(string(l.runes[:runeCursor]))
}

func (l *Lexer) loc() Location {
	return l.li.LocationAt(l.byteOffset(l.cur))
}

// Tokens lexes the entire input and returns every token produced,
// including TokError tokens for reserved-word misuse; those are also
// recorded as Diagnostics. The lexer never returns early on error.
func (l *Lexer) Tokens() []Token {
	var toks []Token
	for {
		t := l.next()
		toks = append(toks, t)
		if t.Kind == TokEOF {
			break
		}
	}
	return toks
}

func (l *Lexer) next() Token {
	l.skipSpaceAndComments()

	startRune := l.cur
	start := l.byteOffset(startRune)
	loc := l.loc()

	r := l.peek()
	if r == eof {
		return Token{Kind: TokEOF, Rg: NewRange(start, start), Loc: loc}
	}
	if r == '\n' {
		l.advance()
		return l.emit(TokNewline, "\n", start, loc)
	}

	switch {
	case isIdentStart(r):
		return l.lexIdentOrKeyword(start, loc)
	case unicode.IsDigit(r):
		return l.lexNumber(start, loc)
	case r == '"':
		return l.lexString(start, loc)
	default:
		return l.lexOperator(start, loc)
	}
}

func (l *Lexer) emit(kind TokenKind, lexeme string, start int, loc Location) Token {
	end := l.byteOffset(l.cur)
	return Token{Kind: kind, Lexeme: lexeme, Rg: NewRange(start, end), Loc: loc}
}

func (l *Lexer) errorf(loc Location, lexeme, format string, args ...any) Token {
	d := NewDiagnostic(loc, PhaseLexer, SeverityError, format, args...)
	l.diags.Add(d)
	l.log.Debug("reserved word rejected", zap.String("lexeme", lexeme), zap.String("msg", d.Message))
	return Token{Kind: TokError, Lexeme: lexeme, Loc: loc}
}

// skipSpaceAndComments consumes everything between tokens except
// newlines: `\n` is itself significant (TokNewline, emitted by next())
// since spec §4.2 uses it as a statement separator alongside `;`.
func (l *Lexer) skipSpaceAndComments() {
	for {
		switch r := l.peek(); {
		case r == ' ' || r == '\t' || r == '\r':
			l.advance()
		case r == '/' && l.peekAt(1) == '/':
			for l.peek() != '\n' && l.peek() != eof {
				l.advance()
			}
		case r == '#':
			for l.peek() != '\n' && l.peek() != eof {
				l.advance()
			}
		case r == '/' && l.peekAt(1) == '*':
			l.skipBlockComment()
		default:
			return
		}
	}
}

// skipBlockComment consumes a (possibly nested) /* ... */ comment.
// Nesting must balance, per spec §4.1: "/* ... /* ... */ ... */ must
// match".
func (l *Lexer) skipBlockComment() {
	loc := l.loc()
	l.advance() // '/'
	l.advance() // '*'
	depth := 1
	for depth > 0 {
		r := l.peek()
		if r == eof {
			l.diags.Add(NewDiagnostic(loc, PhaseLexer, SeverityError, "unterminated block comment"))
			return
		}
		if r == '/' && l.peekAt(1) == '*' {
			l.advance()
			l.advance()
			depth++
			continue
		}
		if r == '*' && l.peekAt(1) == '/' {
			l.advance()
			l.advance()
			depth--
			continue
		}
		l.advance()
	}
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) && r < utf8.RuneSelf
}

func isIdentCont(r rune) bool {
	return isIdentStart(r) || unicode.IsDigit(r)
}

func (l *Lexer) lexIdentOrKeyword(start int, loc Location) Token {
	var sb strings.Builder
	for isIdentCont(l.peek()) {
		sb.WriteRune(l.advance())
	}
	lexeme := sb.String()

	if repl, bad := reservedReplacements[lexeme]; bad {
		return l.errorf(loc, lexeme, "`%s` is not a valid identifier: %s", lexeme, repl)
	}
	if kind, ok := keywords[lexeme]; ok {
		return l.emit(kind, lexeme, start, loc)
	}
	return l.emit(TokIdentifier, lexeme, start, loc)
}

func (l *Lexer) lexNumber(start int, loc Location) Token {
	var sb strings.Builder
	for unicode.IsDigit(l.peek()) {
		sb.WriteRune(l.advance())
	}
	kind := TokInt
	if l.peek() == '.' && unicode.IsDigit(l.peekAt(1)) {
		kind = TokFloat
		sb.WriteRune(l.advance())
		for unicode.IsDigit(l.peek()) {
			sb.WriteRune(l.advance())
		}
	}
	return l.emit(kind, sb.String(), start, loc)
}

func (l *Lexer) lexString(start int, loc Location) Token {
	l.advance() // opening quote
	var sb strings.Builder
	for {
		r := l.peek()
		if r == eof {
			return l.errorf(loc, sb.String(), "unterminated string literal")
		}
		if r == '"' {
			l.advance()
			break
		}
		if r == '\\' {
			l.advance()
			esc := l.advance()
			switch esc {
			case 'n':
				sb.WriteRune('\n')
			case 'r':
				sb.WriteRune('\r')
			case 't':
				sb.WriteRune('\t')
			case '0':
				sb.WriteRune(0)
			case '\\':
				sb.WriteRune('\\')
			case '"':
				sb.WriteRune('"')
			default:
				l.diags.Add(NewDiagnostic(loc, PhaseLexer, SeverityError, "unknown escape sequence \\%c", esc))
			}
			continue
		}
		sb.WriteRune(l.advance())
	}
	return l.emit(TokString, sb.String(), start, loc)
}

// twoCharOps lists operators that must be matched before their
// single-character prefix (e.g. `:=` before `:`).
var twoCharOps = map[string]TokenKind{
	":=": TokColonEq,
	"..": TokDotDot,
}

var singleCharOps = map[rune]TokenKind{
	'(': TokLParen,
	')': TokRParen,
	'{': TokLBrace,
	'}': TokRBrace,
	'[': TokLBracket,
	']': TokRBracket,
	',': TokComma,
	':': TokColon,
	'=': TokAssign,
	'.': TokDot,
	'?': TokQuestion,
	'!': TokBang,
	';': TokSemi,
}

func (l *Lexer) lexOperator(start int, loc Location) Token {
	two := string(l.peek()) + string(l.peekAt(1))
	if kind, ok := twoCharOps[two]; ok {
		l.advance()
		l.advance()
		return l.emit(kind, two, start, loc)
	}

	r := l.peek()
	one := string(r)
	if msg, bad := operatorReplacements[one]; bad {
		l.advance()
		return l.errorf(loc, one, "%s", msg)
	}
	// two-char comparison operators that are entirely banned
	if msg, bad := operatorReplacements[two]; bad {
		l.advance()
		l.advance()
		return l.errorf(loc, two, "%s", msg)
	}
	if kind, ok := singleCharOps[r]; ok {
		l.advance()
		return l.emit(kind, one, start, loc)
	}

	l.advance()
	return l.errorf(loc, one, "unexpected character %q", r)
}
