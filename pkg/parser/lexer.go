package parser

import (
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/sandrolain/gojaq/pkg/types"
)

const eof = -1

// Lexer converts a filter program into a sequence of tokens.
// The implementation is based on Rob Pike's "Lexical Scanning in Go" technique.
type Lexer struct {
	input   string // Input string being scanned
	length  int    // Length of input string
	start   int    // Start position of current token
	current int    // Current position in input
	width   int    // Width of last rune read
	err     error  // First error encountered

	// interp holds, for every open string interpolation, the number of
	// parentheses opened inside it. A `)` at depth zero resumes the string.
	interp []int
}

// NewLexer creates a new lexer from the provided input string.
// The input is tokenized by successive calls to the Next method.
func NewLexer(input string) *Lexer {
	return &Lexer{
		input:  input,
		length: len(input),
	}
}

// Next returns the next token from the input.
// When the end of the input is reached, Next returns TokenEOF for all subsequent calls.
func (l *Lexer) Next() Token {
	if l.err != nil {
		return Token{Type: TokenError, Position: l.current}
	}
	l.skipWhitespace()

	ch := l.nextRune()
	if ch == eof {
		return l.eof()
	}

	if n := len(l.interp); n > 0 {
		switch ch {
		case '(':
			l.interp[n-1]++
		case ')':
			if l.interp[n-1] == 0 {
				l.interp = l.interp[:n-1]
				l.ignore()
				return l.scanString(TokenStringMid, TokenStringEnd)
			}
			l.interp[n-1]--
		}
	}

	switch {
	case ch == '"':
		l.ignore()
		return l.scanString(TokenStringStart, TokenString)
	case ch == '.' && isDigit(l.peek()):
		l.backup()
		return l.scanNumber()
	case ch == '.' && isNameStart(l.peek()):
		l.ignore()
		l.acceptAll(isNameChar)
		return l.newToken(TokenField)
	case isDigit(ch):
		l.backup()
		return l.scanNumber()
	case ch == '$':
		l.ignore()
		if !l.scanIdent() {
			return l.error(types.ErrInvalidCharacter, "Expected variable name after $")
		}
		return l.newToken(TokenVariable)
	case ch == '@':
		l.ignore()
		if !l.acceptAll(isNameChar) {
			return l.error(types.ErrInvalidCharacter, "Expected format name after @")
		}
		return l.newToken(TokenFormat)
	case isNameStart(ch):
		l.backup()
		l.scanIdent()
		t := l.newToken(TokenIdent)
		if tt := lookupKeyword(t.Value); tt > 0 {
			t.Type = tt
		}
		return t
	case ch == '?':
		if strings.HasPrefix(l.input[l.current:], "//") {
			l.current += 2
			return l.newToken(TokenAltDestruct)
		}
		return l.newToken(TokenQuestion)
	}

	// Check for two-character symbols first (e.g., !=, <=, //)
	if rts := lookupSymbol2(ch); rts != nil {
		for _, rt := range rts {
			if l.acceptRune(rt.r) {
				if rt.tt == TokenAlt && l.acceptRune('=') {
					return l.newToken(TokenAltUpdate)
				}
				return l.newToken(rt.tt)
			}
		}
	}

	// Check for single-character symbols
	if tt := lookupSymbol1(ch); tt > 0 {
		return l.newToken(tt)
	}

	return l.error(types.ErrInvalidCharacter, "Unexpected character "+strconv.QuoteRune(ch))
}

// Error returns the first error encountered during lexing, if any.
func (l *Lexer) Error() error {
	return l.err
}

// scanString reads a string literal up to the closing quote or the next
// interpolation. The opening quote (or closing parenthesis of the previous
// interpolation) has already been consumed. The token value is the decoded
// text.
func (l *Lexer) scanString(open, closed TokenType) Token {
	var sb strings.Builder
	for {
		ch := l.nextRune()
		switch ch {
		case eof:
			return l.error(types.ErrStringNotClosed, "Unterminated string literal")
		case '"':
			t := l.newToken(closed)
			t.Value = sb.String()
			return t
		case '\\':
			esc := l.nextRune()
			switch esc {
			case '"', '\\', '/':
				sb.WriteRune(esc)
			case 'b':
				sb.WriteByte('\b')
			case 'f':
				sb.WriteByte('\f')
			case 'n':
				sb.WriteByte('\n')
			case 'r':
				sb.WriteByte('\r')
			case 't':
				sb.WriteByte('\t')
			case 'u':
				r, ok := l.scanUnicodeEscape()
				if !ok {
					return l.error(types.ErrUnsupportedEscape, "Invalid \\u escape")
				}
				sb.WriteRune(r)
			case '(':
				l.interp = append(l.interp, 0)
				t := l.newToken(open)
				t.Value = sb.String()
				return t
			case eof:
				return l.error(types.ErrStringNotClosed, "Unterminated string literal")
			default:
				return l.error(types.ErrUnsupportedEscape, "Invalid escape \\"+string(esc))
			}
		default:
			sb.WriteRune(ch)
		}
	}
}

// scanUnicodeEscape reads the four hex digits of a \u escape, combining
// surrogate pairs.
func (l *Lexer) scanUnicodeEscape() (rune, bool) {
	r1, ok := l.hex4()
	if !ok {
		return 0, false
	}
	if utf16.IsSurrogate(r1) && strings.HasPrefix(l.input[l.current:], `\u`) {
		save := l.current
		l.current += 2
		if r2, ok := l.hex4(); ok {
			if r := utf16.DecodeRune(r1, r2); r != utf8.RuneError {
				return r, true
			}
		}
		l.current = save
	}
	if utf16.IsSurrogate(r1) {
		return utf8.RuneError, true
	}
	return r1, true
}

func (l *Lexer) hex4() (rune, bool) {
	if l.current+4 > l.length {
		return 0, false
	}
	n, err := strconv.ParseUint(l.input[l.current:l.current+4], 16, 32)
	if err != nil {
		return 0, false
	}
	l.current += 4
	return rune(n), true
}

// scanNumber reads a number literal from the current position.
// Format: [0-9]*(\.[0-9]*)?([eE][+-]?[0-9]+)?
func (l *Lexer) scanNumber() Token {
	l.acceptAll(isDigit)

	// Decimal part
	if l.acceptRune('.') {
		l.acceptAll(isDigit)
	}

	// Exponent part
	if l.acceptRunes2('e', 'E') {
		l.acceptRunes2('+', '-')
		if !l.acceptAll(isDigit) {
			return l.error(types.ErrNumberOutOfRange, "Invalid number literal")
		}
	}

	return l.newToken(TokenNumber)
}

// scanIdent reads a name, including module-qualified names such as
// mod::name.
func (l *Lexer) scanIdent() bool {
	if !l.accept(isNameStart) {
		return false
	}
	l.acceptAll(isNameChar)
	for strings.HasPrefix(l.input[l.current:], "::") {
		save := l.current
		l.current += 2
		if !l.accept(isNameStart) {
			l.current = save
			break
		}
		l.acceptAll(isNameChar)
	}
	return true
}

// Helper methods

func (l *Lexer) eof() Token {
	if len(l.interp) > 0 {
		return l.error(types.ErrStringNotClosed, "Unterminated string interpolation")
	}
	return Token{
		Type:     TokenEOF,
		Position: l.current,
	}
}

func (l *Lexer) error(code types.ErrorCode, message string) Token {
	t := l.newToken(TokenError)
	l.err = &types.Error{
		Code:     code,
		Message:  message,
		Position: t.Position,
		Token:    t.Value,
	}
	return t
}

func (l *Lexer) newToken(tt TokenType) Token {
	t := Token{
		Type:     tt,
		Value:    l.input[l.start:l.current],
		Position: l.start,
	}
	l.width = 0
	l.start = l.current
	return t
}

func (l *Lexer) nextRune() rune {
	if l.current >= l.length {
		l.width = 0
		return eof
	}

	r, w := utf8.DecodeRuneInString(l.input[l.current:])
	l.width = w
	l.current += w
	return r
}

func (l *Lexer) peek() rune {
	r := l.nextRune()
	l.backup()
	return r
}

func (l *Lexer) backup() {
	l.current -= l.width
}

func (l *Lexer) ignore() {
	l.start = l.current
}

func (l *Lexer) acceptRune(r rune) bool {
	return l.accept(func(c rune) bool {
		return c == r
	})
}

func (l *Lexer) acceptRunes2(r1, r2 rune) bool {
	return l.accept(func(c rune) bool {
		return c == r1 || c == r2
	})
}

func (l *Lexer) accept(isValid func(rune) bool) bool {
	if isValid(l.nextRune()) {
		return true
	}
	l.backup()
	return false
}

func (l *Lexer) acceptAll(isValid func(rune) bool) bool {
	var matched bool
	for l.accept(isValid) {
		matched = true
	}
	return matched
}

// skipWhitespace skips blanks and `#` comments.
func (l *Lexer) skipWhitespace() {
	for {
		l.acceptAll(isWhitespace)
		if !l.acceptRune('#') {
			break
		}
		for {
			ch := l.nextRune()
			if ch == eof || ch == '\n' {
				break
			}
		}
	}
	l.ignore()
}

// Character classification functions

func isWhitespace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	default:
		return false
	}
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isNameStart(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isNameChar(r rune) bool {
	return isNameStart(r) || isDigit(r)
}
