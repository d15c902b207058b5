package parser

// TokenType represents the type of a lexical token.
type TokenType uint8

const (
	// Special tokens
	TokenEOF TokenType = iota
	TokenError

	// Literals
	TokenString      // "hello"
	TokenStringStart // "hello\(
	TokenStringMid   // )hello\(
	TokenStringEnd   // )hello"
	TokenNumber      // 123, 3.14, 1e-10
	TokenIdent       // name, mod::name
	TokenField       // .name
	TokenVariable    // $name
	TokenFormat      // @base64

	// Grouping symbols
	TokenBracketOpen  // [
	TokenBracketClose // ]
	TokenBraceOpen    // {
	TokenBraceClose   // }
	TokenParenOpen    // (
	TokenParenClose   // )

	// Basic symbols
	TokenDot       // .
	TokenRecurse   // ..
	TokenComma     // ,
	TokenColon     // :
	TokenSemicolon // ;
	TokenQuestion  // ?
	TokenPipe      // |

	// Arithmetic operators
	TokenPlus  // +
	TokenMinus // -
	TokenMult  // *
	TokenDiv   // /
	TokenMod   // %

	// Comparison operators
	TokenEqual        // ==
	TokenNotEqual     // !=
	TokenLess         // <
	TokenLessEqual    // <=
	TokenGreater      // >
	TokenGreaterEqual // >=

	// Alternative and assignment operators
	TokenAlt         // //
	TokenAssign      // =
	TokenUpdate      // |=
	TokenAddUpdate   // +=
	TokenSubUpdate   // -=
	TokenMulUpdate   // *=
	TokenDivUpdate   // /=
	TokenModUpdate   // %=
	TokenAltUpdate   // //=
	TokenAltDestruct // ?//

	// Keywords
	TokenAnd
	TokenOr
	TokenDef
	TokenAs
	TokenIf
	TokenThen
	TokenElif
	TokenElse
	TokenEnd
	TokenReduce
	TokenForeach
	TokenTry
	TokenCatch
	TokenLabel
	TokenImport
	TokenInclude
	TokenLoc // __loc__
)

// String returns a string representation of the token type.
func (tt TokenType) String() string {
	switch tt {
	case TokenEOF:
		return "(eof)"
	case TokenError:
		return "(error)"
	case TokenString, TokenStringStart, TokenStringMid, TokenStringEnd:
		return "(string)"
	case TokenNumber:
		return "(number)"
	case TokenIdent:
		return "(name)"
	case TokenField:
		return "(field)"
	case TokenVariable:
		return "(variable)"
	case TokenFormat:
		return "(format)"
	case TokenBracketOpen:
		return "["
	case TokenBracketClose:
		return "]"
	case TokenBraceOpen:
		return "{"
	case TokenBraceClose:
		return "}"
	case TokenParenOpen:
		return "("
	case TokenParenClose:
		return ")"
	case TokenDot:
		return "."
	case TokenRecurse:
		return ".."
	case TokenComma:
		return ","
	case TokenColon:
		return ":"
	case TokenSemicolon:
		return ";"
	case TokenQuestion:
		return "?"
	case TokenPipe:
		return "|"
	case TokenPlus:
		return "+"
	case TokenMinus:
		return "-"
	case TokenMult:
		return "*"
	case TokenDiv:
		return "/"
	case TokenMod:
		return "%"
	case TokenEqual:
		return "=="
	case TokenNotEqual:
		return "!="
	case TokenLess:
		return "<"
	case TokenLessEqual:
		return "<="
	case TokenGreater:
		return ">"
	case TokenGreaterEqual:
		return ">="
	case TokenAlt:
		return "//"
	case TokenAssign:
		return "="
	case TokenUpdate:
		return "|="
	case TokenAddUpdate:
		return "+="
	case TokenSubUpdate:
		return "-="
	case TokenMulUpdate:
		return "*="
	case TokenDivUpdate:
		return "/="
	case TokenModUpdate:
		return "%="
	case TokenAltUpdate:
		return "//="
	case TokenAltDestruct:
		return "?//"
	}
	for kw, t := range keywords {
		if t == tt {
			return kw
		}
	}
	return "(unknown)"
}

// Token represents a lexical token.
type Token struct {
	Type     TokenType // Type of the token
	Value    string    // Literal value; decoded text for string tokens
	Position int       // Starting position in the input string
}

// symbols1 maps single-character symbols to token types.
var symbols1 = [...]TokenType{
	'[': TokenBracketOpen,
	']': TokenBracketClose,
	'{': TokenBraceOpen,
	'}': TokenBraceClose,
	'(': TokenParenOpen,
	')': TokenParenClose,
	'.': TokenDot,
	',': TokenComma,
	';': TokenSemicolon,
	':': TokenColon,
	'?': TokenQuestion,
	'+': TokenPlus,
	'-': TokenMinus,
	'*': TokenMult,
	'/': TokenDiv,
	'%': TokenMod,
	'|': TokenPipe,
	'=': TokenAssign,
	'<': TokenLess,
	'>': TokenGreater,
}

// runeTokenType pairs a rune with its corresponding token type.
type runeTokenType struct {
	r  rune
	tt TokenType
}

// symbols2 maps two-character symbol sequences to token types.
// The key is the first character of the sequence.
var symbols2 = [...][]runeTokenType{
	'!': {{'=', TokenNotEqual}},
	'=': {{'=', TokenEqual}},
	'<': {{'=', TokenLessEqual}},
	'>': {{'=', TokenGreaterEqual}},
	'.': {{'.', TokenRecurse}},
	'|': {{'=', TokenUpdate}},
	'+': {{'=', TokenAddUpdate}},
	'-': {{'=', TokenSubUpdate}},
	'*': {{'=', TokenMulUpdate}},
	'%': {{'=', TokenModUpdate}},
	'/': {{'/', TokenAlt}, {'=', TokenDivUpdate}},
}

const (
	symbol1Count = rune(len(symbols1))
	symbol2Count = rune(len(symbols2))
)

// lookupSymbol1 returns the token type for a single-character symbol.
// Returns 0 if the rune is not a valid symbol.
func lookupSymbol1(r rune) TokenType {
	if r < 0 || r >= symbol1Count {
		return 0
	}
	return symbols1[r]
}

// lookupSymbol2 returns possible two-character symbol completions.
// Returns nil if the rune cannot start a two-character symbol.
func lookupSymbol2(r rune) []runeTokenType {
	if r < 0 || r >= symbol2Count {
		return nil
	}
	return symbols2[r]
}

var keywords = map[string]TokenType{
	"and":     TokenAnd,
	"or":      TokenOr,
	"def":     TokenDef,
	"as":      TokenAs,
	"if":      TokenIf,
	"then":    TokenThen,
	"elif":    TokenElif,
	"else":    TokenElse,
	"end":     TokenEnd,
	"reduce":  TokenReduce,
	"foreach": TokenForeach,
	"try":     TokenTry,
	"catch":   TokenCatch,
	"label":   TokenLabel,
	"import":  TokenImport,
	"include": TokenInclude,
	"__loc__": TokenLoc,
}

// lookupKeyword returns the token type for a keyword.
// Returns 0 if the string is not a recognized keyword.
func lookupKeyword(s string) TokenType {
	return keywords[s]
}

// IsKeyword reports whether s is a reserved word. Keywords may still be used
// as object keys and field names.
func IsKeyword(s string) bool {
	return lookupKeyword(s) > 0
}
