package parser

import (
	"fmt"
	"strings"

	"github.com/sandrolain/gojaq/pkg/types"
	"github.com/sandrolain/gojaq/pkg/value"
)

// Parser implements a recursive descent parser for filter programs.
// It uses Pratt's "Top Down Operator Precedence" algorithm to handle
// operator precedence correctly.
type Parser struct {
	lexer   *Lexer
	current Token
	prev    Token
	opts    CompileOptions
	depth   int
}

// NewParser creates a new parser for the given input string.
func NewParser(input string, opts ...CompileOption) *Parser {
	options := CompileOptions{
		MaxDepth: 512,
	}
	for _, opt := range opts {
		opt(&options)
	}

	p := &Parser{
		lexer: NewLexer(input),
		opts:  options,
	}

	// Read the first token
	p.advance()

	return p
}

// Parse parses the entire program: directives, then the body. An empty
// body is the identity filter.
func (p *Parser) Parse() (*types.Expression, error) {
	mod := &types.Module{}
	if err := p.parseDirectives(mod); err != nil {
		return nil, err
	}

	if p.current.Type == TokenEOF {
		mod.Body = types.NewASTNode(types.NodeIdentity, p.current.Position)
	} else {
		body, err := p.parseExpression(0)
		if err != nil {
			return nil, err
		}
		mod.Body = body
	}

	if p.current.Type != TokenEOF {
		return nil, p.error(types.ErrSyntaxError, fmt.Sprintf("Unexpected token: %s", p.current.Value))
	}

	return types.NewExpression(mod, p.lexer.input), nil
}

// ParseModule parses a library: directives followed by definitions only.
func (p *Parser) ParseModule() (*types.Module, error) {
	mod := &types.Module{}
	if err := p.parseDirectives(mod); err != nil {
		return nil, err
	}
	for p.current.Type == TokenDef {
		def, err := p.parseFuncDef()
		if err != nil {
			return nil, err
		}
		mod.Defs = append(mod.Defs, def)
	}
	if p.current.Type != TokenEOF {
		return nil, p.error(types.ErrSyntaxError, fmt.Sprintf("Unexpected token in module: %s", p.current.Value))
	}
	return mod, nil
}

// Operator precedence table (binding power)
// Higher values bind more tightly
var precedence = map[TokenType]int{
	TokenPipe:         10, // |
	TokenComma:        20, // ,
	TokenAlt:          30, // //
	TokenAssign:       40, // =
	TokenUpdate:       40, // |=
	TokenAddUpdate:    40, // +=
	TokenSubUpdate:    40, // -=
	TokenMulUpdate:    40, // *=
	TokenDivUpdate:    40, // /=
	TokenModUpdate:    40, // %=
	TokenAltUpdate:    40, // //=
	TokenOr:           50, // or
	TokenAnd:          60, // and
	TokenEqual:        70, // ==
	TokenNotEqual:     70, // !=
	TokenLess:         70, // <
	TokenLessEqual:    70, // <=
	TokenGreater:      70, // >
	TokenGreaterEqual: 70, // >=
	TokenPlus:         80, // +
	TokenMinus:        80, // -
	TokenMult:         90, // *
	TokenDiv:          90, // /
	TokenMod:          90, // %
}

// rightAssoc lists the right-associative operators.
var rightAssoc = map[TokenType]bool{
	TokenPipe: true,
	TokenAlt:  true,
}

var assignOps = map[TokenType]bool{
	TokenAssign:    true,
	TokenUpdate:    true,
	TokenAddUpdate: true,
	TokenSubUpdate: true,
	TokenMulUpdate: true,
	TokenDivUpdate: true,
	TokenModUpdate: true,
	TokenAltUpdate: true,
}

// getPrecedence returns the precedence of a token type.
func (p *Parser) getPrecedence(tt TokenType) int {
	if prec, ok := precedence[tt]; ok {
		return prec
	}
	return 0
}

// advance moves to the next token.
func (p *Parser) advance() {
	p.prev = p.current
	p.current = p.lexer.Next()
}

// expect checks if the current token matches the expected type and advances.
func (p *Parser) expect(tt TokenType) error {
	if p.current.Type != tt {
		return p.error(types.ErrExpectedToken, fmt.Sprintf("Expected %s but got %s", tt.String(), p.describeCurrent()))
	}
	p.advance()
	return nil
}

func (p *Parser) describeCurrent() string {
	if p.current.Value != "" {
		return fmt.Sprintf("%q", p.current.Value)
	}
	return p.current.Type.String()
}

// error creates a parser error. Lexical errors take precedence since they
// explain why the current token is unusable.
func (p *Parser) error(code types.ErrorCode, message string) error {
	if p.current.Type == TokenError && p.lexer.Error() != nil {
		return p.lexer.Error()
	}
	return &types.Error{
		Code:     code,
		Message:  message,
		Position: p.current.Position,
		Token:    p.current.Value,
	}
}

// parseDirectives reads leading import and include directives.
func (p *Parser) parseDirectives(mod *types.Module) error {
	for {
		switch p.current.Type {
		case TokenImport, TokenInclude:
			imp := types.Import{Position: p.current.Position, Include: p.current.Type == TokenInclude}
			p.advance()
			if p.current.Type != TokenString {
				return p.error(types.ErrInvalidDirective, "Expected module path string")
			}
			imp.Path = p.current.Value
			p.advance()
			if !imp.Include {
				if err := p.expect(TokenAs); err != nil {
					return err
				}
				switch p.current.Type {
				case TokenVariable:
					imp.Data = true
				case TokenIdent:
				default:
					return p.error(types.ErrInvalidDirective, "Expected module alias")
				}
				imp.Alias = p.current.Value
				p.advance()
			}
			// Metadata is accepted and ignored.
			if p.current.Type == TokenBraceOpen {
				if _, err := p.parseObject(); err != nil {
					return err
				}
			}
			if err := p.expect(TokenSemicolon); err != nil {
				return err
			}
			mod.Imports = append(mod.Imports, imp)
		default:
			return nil
		}
	}
}

// parseExpression parses an expression with operator precedence.
// rbp is the right binding power (minimum precedence).
func (p *Parser) parseExpression(rbp int) (*types.ASTNode, error) {
	p.depth++
	defer func() { p.depth-- }()
	if p.opts.MaxDepth > 0 && p.depth > p.opts.MaxDepth {
		return nil, p.error(types.ErrNestingTooDeep, "Expression nested too deeply")
	}

	// Parse prefix expression (nud - null denotation)
	left, err := p.parsePrefix()
	if err != nil {
		return nil, err
	}

	// Parse infix expressions while precedence allows (led - left denotation)
	for rbp < p.getPrecedence(p.current.Type) {
		op := p.current
		prec := p.getPrecedence(op.Type)
		p.advance()
		if rightAssoc[op.Type] {
			prec--
		}
		right, err := p.parseExpression(prec)
		if err != nil {
			return nil, err
		}
		left = binary(op, left, right)
	}

	return left, nil
}

func binary(op Token, left, right *types.ASTNode) *types.ASTNode {
	nodeType := types.NodeBinary
	if assignOps[op.Type] {
		nodeType = types.NodeAssign
	}
	n := types.NewASTNode(nodeType, op.Position)
	n.StrValue = op.Type.String()
	n.LHS = left
	n.RHS = right
	return n
}

// parsePrefix parses a prefix expression (nud - null denotation): the forms
// that extend to the end of the enclosing pipe (def, label, as) as well as
// unary minus and plain terms.
func (p *Parser) parsePrefix() (*types.ASTNode, error) {
	switch p.current.Type {
	case TokenDef:
		return p.parseDef()
	case TokenLabel:
		return p.parseLabel()
	case TokenMinus:
		pos := p.current.Position
		p.advance()
		operand, err := p.parseExpression(p.getPrecedence(TokenPlus))
		if err != nil {
			return nil, err
		}
		n := types.NewASTNode(types.NodeNeg, pos)
		n.LHS = operand
		return n, nil
	}

	term, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	if p.current.Type == TokenAs {
		return p.parseBind(term)
	}
	return term, nil
}

// parseBind parses `term as $pattern | body`.
func (p *Parser) parseBind(source *types.ASTNode) (*types.ASTNode, error) {
	n := types.NewASTNode(types.NodeBind, p.current.Position)
	p.advance()
	pat, err := p.parsePattern()
	if err != nil {
		return nil, err
	}
	if p.current.Type == TokenAltDestruct {
		return nil, p.error(types.ErrSyntaxError, "Destructuring alternatives (?//) are not supported")
	}
	if err := p.expect(TokenPipe); err != nil {
		return nil, err
	}
	body, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}
	n.LHS = source
	n.Patterns = []*types.Pattern{pat}
	n.RHS = body
	return n, nil
}

// parseDef parses `def f: body; rest`.
func (p *Parser) parseDef() (*types.ASTNode, error) {
	n := types.NewASTNode(types.NodeDef, p.current.Position)
	def, err := p.parseFuncDef()
	if err != nil {
		return nil, err
	}
	n.Func = def
	if p.current.Type == TokenEOF {
		n.RHS = types.NewASTNode(types.NodeIdentity, p.current.Position)
		return n, nil
	}
	rest, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}
	n.RHS = rest
	return n, nil
}

// parseFuncDef parses `def name(params): body;`.
func (p *Parser) parseFuncDef() (*types.FuncDef, error) {
	def := &types.FuncDef{Position: p.current.Position}
	if err := p.expect(TokenDef); err != nil {
		return nil, err
	}
	if p.current.Type != TokenIdent {
		return nil, p.error(types.ErrSyntaxError, "Expected function name after def")
	}
	def.Name = p.current.Value
	p.advance()

	if p.current.Type == TokenParenOpen {
		p.advance()
		for {
			switch p.current.Type {
			case TokenIdent:
				def.Params = append(def.Params, p.current.Value)
			case TokenVariable:
				def.Params = append(def.Params, "$"+p.current.Value)
			default:
				return nil, p.error(types.ErrSyntaxError, "Expected parameter name")
			}
			p.advance()
			if p.current.Type != TokenSemicolon {
				break
			}
			p.advance()
		}
		if err := p.expect(TokenParenClose); err != nil {
			return nil, err
		}
	}

	if err := p.expect(TokenColon); err != nil {
		return nil, err
	}
	body, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}
	def.Body = body
	if err := p.expect(TokenSemicolon); err != nil {
		return nil, err
	}
	return def, nil
}

// parseLabel parses `label $name | body`.
func (p *Parser) parseLabel() (*types.ASTNode, error) {
	n := types.NewASTNode(types.NodeLabel, p.current.Position)
	p.advance()
	if p.current.Type != TokenVariable {
		return nil, p.error(types.ErrSyntaxError, "Expected $name after label")
	}
	n.StrValue = p.current.Value
	p.advance()
	if err := p.expect(TokenPipe); err != nil {
		return nil, err
	}
	body, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}
	n.LHS = body
	return n, nil
}

// parseTerm parses an atom followed by any number of suffixes:
// .name, ."name", [e], [], [e:e] and ?.
func (p *Parser) parseTerm() (*types.ASTNode, error) {
	base, steps, err := p.parseAtom()
	if err != nil {
		return nil, err
	}

	for {
		switch p.current.Type {
		case TokenField:
			steps = append(steps, p.fieldStep(p.current.Value))
			p.advance()
			continue
		case TokenDot:
			p.advance()
			switch p.current.Type {
			case TokenString:
				steps = append(steps, p.fieldStep(p.current.Value))
				p.advance()
			case TokenStringStart:
				key, err := p.parseInterp("")
				if err != nil {
					return nil, err
				}
				step := types.NewASTNode(types.NodeIndex, key.Position)
				step.LHS = key
				steps = append(steps, step)
			case TokenBracketOpen:
			default:
				return nil, p.error(types.ErrSyntaxError, "Expected field name or [ after .")
			}
			continue
		case TokenBracketOpen:
			step, err := p.parseBracketSuffix()
			if err != nil {
				return nil, err
			}
			steps = append(steps, step)
			continue
		case TokenQuestion:
			pos := p.current.Position
			p.advance()
			if len(steps) > 0 {
				steps[len(steps)-1].Optional = true
			} else {
				try := types.NewASTNode(types.NodeTry, pos)
				try.LHS = base
				base = try
			}
			continue
		}
		break
	}

	if len(steps) == 0 {
		return base, nil
	}
	path := types.NewASTNode(types.NodePath, base.Position)
	path.LHS = base
	path.Steps = steps
	return path, nil
}

func (p *Parser) fieldStep(name string) *types.ASTNode {
	step := types.NewASTNode(types.NodeIndex, p.current.Position)
	key := types.NewASTNode(types.NodeLiteral, p.current.Position)
	key.Value = value.String(name)
	step.LHS = key
	return step
}

// parseBracketSuffix parses [], [e], [e:], [:e] and [e:e].
func (p *Parser) parseBracketSuffix() (*types.ASTNode, error) {
	pos := p.current.Position
	p.advance()

	if p.current.Type == TokenBracketClose {
		p.advance()
		return types.NewASTNode(types.NodeIterate, pos), nil
	}

	var from *types.ASTNode
	if p.current.Type != TokenColon {
		e, err := p.parseExpression(0)
		if err != nil {
			return nil, err
		}
		from = e
	}

	if p.current.Type != TokenColon {
		if err := p.expect(TokenBracketClose); err != nil {
			return nil, err
		}
		step := types.NewASTNode(types.NodeIndex, pos)
		step.LHS = from
		return step, nil
	}

	p.advance()
	var to *types.ASTNode
	if p.current.Type != TokenBracketClose {
		e, err := p.parseExpression(0)
		if err != nil {
			return nil, err
		}
		to = e
	}
	if err := p.expect(TokenBracketClose); err != nil {
		return nil, err
	}
	if from == nil && to == nil {
		return nil, &types.Error{Code: types.ErrSyntaxError, Message: "Slice needs at least one bound", Position: pos}
	}
	step := types.NewASTNode(types.NodeSlice, pos)
	step.Arguments = []*types.ASTNode{from, to}
	return step, nil
}

// parseAtom parses a term without suffixes. Field access atoms (.a, ."a")
// return their steps so that following suffixes extend the same path.
func (p *Parser) parseAtom() (*types.ASTNode, []*types.ASTNode, error) {
	tok := p.current

	switch tok.Type {
	case TokenNumber:
		num, err := value.ParseNumber(tok.Value)
		if err != nil {
			return nil, nil, p.error(types.ErrNumberOutOfRange, err.Error())
		}
		p.advance()
		n := types.NewASTNode(types.NodeLiteral, tok.Position)
		n.Value = num
		return n, nil, nil

	case TokenString:
		p.advance()
		n := types.NewASTNode(types.NodeLiteral, tok.Position)
		n.Value = value.String(tok.Value)
		return n, nil, nil

	case TokenStringStart:
		n, err := p.parseInterp("")
		return n, nil, err

	case TokenFormat:
		p.advance()
		switch p.current.Type {
		case TokenString:
			// Formats only apply to interpolated parts.
			n := types.NewASTNode(types.NodeLiteral, p.current.Position)
			n.Value = value.String(p.current.Value)
			p.advance()
			return n, nil, nil
		case TokenStringStart:
			n, err := p.parseInterp(tok.Value)
			return n, nil, err
		}
		n := types.NewASTNode(types.NodeFormat, tok.Position)
		n.StrValue = tok.Value
		return n, nil, nil

	case TokenDot:
		p.advance()
		id := types.NewASTNode(types.NodeIdentity, tok.Position)
		switch p.current.Type {
		case TokenString:
			step := p.fieldStep(p.current.Value)
			p.advance()
			return id, []*types.ASTNode{step}, nil
		case TokenStringStart:
			key, err := p.parseInterp("")
			if err != nil {
				return nil, nil, err
			}
			step := types.NewASTNode(types.NodeIndex, key.Position)
			step.LHS = key
			return id, []*types.ASTNode{step}, nil
		}
		return id, nil, nil

	case TokenField:
		step := p.fieldStep(tok.Value)
		p.advance()
		return types.NewASTNode(types.NodeIdentity, tok.Position), []*types.ASTNode{step}, nil

	case TokenRecurse:
		p.advance()
		return types.NewASTNode(types.NodeRecurse, tok.Position), nil, nil

	case TokenVariable:
		p.advance()
		if tok.Value == "__loc__" {
			n := types.NewASTNode(types.NodeLoc, tok.Position)
			n.Line = p.lineOf(tok.Position)
			return n, nil, nil
		}
		n := types.NewASTNode(types.NodeVariable, tok.Position)
		n.StrValue = tok.Value
		return n, nil, nil

	case TokenParenOpen:
		p.advance()
		e, err := p.parseExpression(0)
		if err != nil {
			return nil, nil, err
		}
		if err := p.expect(TokenParenClose); err != nil {
			return nil, nil, err
		}
		return e, nil, nil

	case TokenBracketOpen:
		p.advance()
		n := types.NewASTNode(types.NodeArray, tok.Position)
		if p.current.Type != TokenBracketClose {
			e, err := p.parseExpression(0)
			if err != nil {
				return nil, nil, err
			}
			n.LHS = e
		}
		if err := p.expect(TokenBracketClose); err != nil {
			return nil, nil, err
		}
		return n, nil, nil

	case TokenBraceOpen:
		n, err := p.parseObject()
		return n, nil, err

	case TokenIdent:
		n, err := p.parseCall()
		return n, nil, err

	case TokenReduce:
		n, err := p.parseReduce()
		return n, nil, err

	case TokenForeach:
		n, err := p.parseForeach()
		return n, nil, err

	case TokenIf:
		p.advance()
		n, err := p.parseIfRest(tok.Position)
		return n, nil, err

	case TokenTry:
		n, err := p.parseTry()
		return n, nil, err

	case TokenEOF:
		return nil, nil, p.error(types.ErrUnexpectedEnd, "Unexpected end of expression")

	default:
		return nil, nil, p.error(types.ErrSyntaxError, fmt.Sprintf("Unexpected token: %s", p.describeCurrent()))
	}
}

func (p *Parser) lineOf(pos int) int {
	return strings.Count(p.lexer.input[:pos], "\n") + 1
}

// parseCall parses a function call, the literals true/false/null and
// `break $label`.
func (p *Parser) parseCall() (*types.ASTNode, error) {
	tok := p.current
	p.advance()

	switch tok.Value {
	case "true", "false", "null":
		if p.current.Type != TokenParenOpen {
			n := types.NewASTNode(types.NodeLiteral, tok.Position)
			switch tok.Value {
			case "true":
				n.Value = value.True
			case "false":
				n.Value = value.False
			default:
				n.Value = value.NullValue
			}
			return n, nil
		}
	case "break":
		if p.current.Type == TokenVariable {
			n := types.NewASTNode(types.NodeBreak, tok.Position)
			n.StrValue = p.current.Value
			p.advance()
			return n, nil
		}
	}

	n := types.NewASTNode(types.NodeCall, tok.Position)
	n.StrValue = tok.Value
	if p.current.Type != TokenParenOpen {
		return n, nil
	}
	p.advance()
	for {
		arg, err := p.parseExpression(0)
		if err != nil {
			return nil, err
		}
		n.Arguments = append(n.Arguments, arg)
		if p.current.Type != TokenSemicolon {
			break
		}
		p.advance()
	}
	if err := p.expect(TokenParenClose); err != nil {
		return nil, err
	}
	return n, nil
}

// parseInterp parses an interpolated string starting at a TokenStringStart.
// Steps alternate literal parts (even positions) and interpolated
// expressions (odd positions).
func (p *Parser) parseInterp(format string) (*types.ASTNode, error) {
	n := types.NewASTNode(types.NodeInterp, p.current.Position)
	n.StrValue = format
	n.Steps = append(n.Steps, p.stringPart())
	p.advance()

	for {
		e, err := p.parseExpression(0)
		if err != nil {
			return nil, err
		}
		n.Steps = append(n.Steps, e)
		switch p.current.Type {
		case TokenStringMid:
			n.Steps = append(n.Steps, p.stringPart())
			p.advance()
		case TokenStringEnd:
			n.Steps = append(n.Steps, p.stringPart())
			p.advance()
			return n, nil
		default:
			return nil, p.error(types.ErrStringNotClosed, "Expected ) closing string interpolation")
		}
	}
}

func (p *Parser) stringPart() *types.ASTNode {
	lit := types.NewASTNode(types.NodeLiteral, p.current.Position)
	lit.Value = value.String(p.current.Value)
	return lit
}

// parseObject parses an object constructor.
func (p *Parser) parseObject() (*types.ASTNode, error) {
	n := types.NewASTNode(types.NodeObject, p.current.Position)
	p.advance()

	for p.current.Type != TokenBraceClose {
		entry, err := p.parseObjectEntry()
		if err != nil {
			return nil, err
		}
		n.Entries = append(n.Entries, entry)
		if p.current.Type != TokenComma {
			break
		}
		p.advance()
	}

	if err := p.expect(TokenBraceClose); err != nil {
		return nil, err
	}
	return n, nil
}

func (p *Parser) parseObjectEntry() (types.ObjectEntry, error) {
	tok := p.current
	var entry types.ObjectEntry

	switch {
	case tok.Type == TokenVariable:
		p.advance()
		key := types.NewASTNode(types.NodeLiteral, tok.Position)
		key.Value = value.String(tok.Value)
		entry.Key = key
		if tok.Value == "__loc__" {
			v := types.NewASTNode(types.NodeLoc, tok.Position)
			v.Line = p.lineOf(tok.Position)
			entry.Value = v
		} else {
			v := types.NewASTNode(types.NodeVariable, tok.Position)
			v.StrValue = tok.Value
			entry.Value = v
		}
		return entry, nil

	case tok.Type == TokenIdent || tok.Type == TokenString || tok.Type >= TokenAnd:
		p.advance()
		key := types.NewASTNode(types.NodeLiteral, tok.Position)
		key.Value = value.String(tok.Value)
		entry.Key = key

	case tok.Type == TokenStringStart:
		key, err := p.parseInterp("")
		if err != nil {
			return entry, err
		}
		entry.Key = key

	case tok.Type == TokenFormat:
		p.advance()
		if p.current.Type != TokenStringStart {
			return entry, p.error(types.ErrSyntaxError, "Expected string after format in object key")
		}
		key, err := p.parseInterp(tok.Value)
		if err != nil {
			return entry, err
		}
		entry.Key = key

	case tok.Type == TokenNumber:
		p.advance()
		num, _ := value.ParseNumber(tok.Value)
		key := types.NewASTNode(types.NodeLiteral, tok.Position)
		key.Value = num
		entry.Key = key

	case tok.Type == TokenParenOpen:
		p.advance()
		key, err := p.parseExpression(0)
		if err != nil {
			return entry, err
		}
		if err := p.expect(TokenParenClose); err != nil {
			return entry, err
		}
		entry.Key = key
		if p.current.Type != TokenColon {
			return entry, p.error(types.ErrExpectedToken, "Expected : after computed object key")
		}

	default:
		return entry, p.error(types.ErrSyntaxError, fmt.Sprintf("Unexpected token in object: %s", p.describeCurrent()))
	}

	if p.current.Type != TokenColon {
		// {a} is {a: .a}
		step := types.NewASTNode(types.NodeIndex, entry.Key.Position)
		step.LHS = entry.Key
		path := types.NewASTNode(types.NodePath, entry.Key.Position)
		path.LHS = types.NewASTNode(types.NodeIdentity, entry.Key.Position)
		path.Steps = []*types.ASTNode{step}
		entry.Value = path
		return entry, nil
	}
	p.advance()

	v, err := p.parseObjectValue()
	if err != nil {
		return entry, err
	}
	entry.Value = v
	return entry, nil
}

// parseObjectValue parses an object value: anything above the comma
// operator, optionally piped.
func (p *Parser) parseObjectValue() (*types.ASTNode, error) {
	commaPrec := p.getPrecedence(TokenComma)
	v, err := p.parseExpression(commaPrec)
	if err != nil {
		return nil, err
	}
	for p.current.Type == TokenPipe {
		op := p.current
		p.advance()
		r, err := p.parseExpression(commaPrec)
		if err != nil {
			return nil, err
		}
		v = binary(op, v, r)
	}
	return v, nil
}

// parsePattern parses a destructuring pattern.
func (p *Parser) parsePattern() (*types.Pattern, error) {
	switch p.current.Type {
	case TokenVariable:
		pat := &types.Pattern{Var: p.current.Value}
		p.advance()
		return pat, nil

	case TokenBracketOpen:
		p.advance()
		pat := &types.Pattern{Array: []*types.Pattern{}}
		for {
			elem, err := p.parsePattern()
			if err != nil {
				return nil, err
			}
			pat.Array = append(pat.Array, elem)
			if p.current.Type != TokenComma {
				break
			}
			p.advance()
		}
		if err := p.expect(TokenBracketClose); err != nil {
			return nil, err
		}
		return pat, nil

	case TokenBraceOpen:
		p.advance()
		pat := &types.Pattern{Object: []types.PatternEntry{}}
		for {
			entry, err := p.parsePatternEntry()
			if err != nil {
				return nil, err
			}
			pat.Object = append(pat.Object, entry)
			if p.current.Type != TokenComma {
				break
			}
			p.advance()
		}
		if err := p.expect(TokenBraceClose); err != nil {
			return nil, err
		}
		return pat, nil
	}
	return nil, p.error(types.ErrInvalidPattern, fmt.Sprintf("Invalid pattern: %s", p.describeCurrent()))
}

func (p *Parser) parsePatternEntry() (types.PatternEntry, error) {
	tok := p.current
	var entry types.PatternEntry

	switch {
	case tok.Type == TokenVariable:
		p.advance()
		entry.KeyVar = tok.Value
		if p.current.Type != TokenColon {
			return entry, nil
		}
	case tok.Type == TokenIdent || tok.Type == TokenString || tok.Type >= TokenAnd:
		p.advance()
		key := types.NewASTNode(types.NodeLiteral, tok.Position)
		key.Value = value.String(tok.Value)
		entry.Key = key
	case tok.Type == TokenStringStart:
		key, err := p.parseInterp("")
		if err != nil {
			return entry, err
		}
		entry.Key = key
	case tok.Type == TokenParenOpen:
		p.advance()
		key, err := p.parseExpression(0)
		if err != nil {
			return entry, err
		}
		if err := p.expect(TokenParenClose); err != nil {
			return entry, err
		}
		entry.Key = key
	default:
		return entry, p.error(types.ErrInvalidPattern, fmt.Sprintf("Invalid object pattern key: %s", p.describeCurrent()))
	}

	if err := p.expect(TokenColon); err != nil {
		return entry, err
	}
	val, err := p.parsePattern()
	if err != nil {
		return entry, err
	}
	entry.Value = val
	return entry, nil
}

// parseReduce parses `reduce term as $p (init; update)`.
func (p *Parser) parseReduce() (*types.ASTNode, error) {
	n := types.NewASTNode(types.NodeReduce, p.current.Position)
	p.advance()
	if err := p.parseFoldHead(n); err != nil {
		return nil, err
	}
	if err := p.expect(TokenParenClose); err != nil {
		return nil, err
	}
	return n, nil
}

// parseForeach parses `foreach term as $p (init; update; extract)`.
func (p *Parser) parseForeach() (*types.ASTNode, error) {
	n := types.NewASTNode(types.NodeForeach, p.current.Position)
	p.advance()
	if err := p.parseFoldHead(n); err != nil {
		return nil, err
	}
	if p.current.Type == TokenSemicolon {
		p.advance()
		extract, err := p.parseExpression(0)
		if err != nil {
			return nil, err
		}
		n.Else = extract
	}
	if err := p.expect(TokenParenClose); err != nil {
		return nil, err
	}
	return n, nil
}

// parseFoldHead parses `term as $p (init; update` shared by reduce and foreach.
func (p *Parser) parseFoldHead(n *types.ASTNode) error {
	src, err := p.parseTerm()
	if err != nil {
		return err
	}
	if err := p.expect(TokenAs); err != nil {
		return err
	}
	pat, err := p.parsePattern()
	if err != nil {
		return err
	}
	if err := p.expect(TokenParenOpen); err != nil {
		return err
	}
	init, err := p.parseExpression(0)
	if err != nil {
		return err
	}
	if err := p.expect(TokenSemicolon); err != nil {
		return err
	}
	update, err := p.parseExpression(0)
	if err != nil {
		return err
	}
	n.LHS = src
	n.Patterns = []*types.Pattern{pat}
	n.Init = init
	n.Update = update
	return nil
}

// parseIfRest parses the remainder of `if c then t (elif c then t)* (else e)? end`
// after the `if` or `elif` keyword.
func (p *Parser) parseIfRest(pos int) (*types.ASTNode, error) {
	n := types.NewASTNode(types.NodeIf, pos)
	cond, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}
	if err := p.expect(TokenThen); err != nil {
		return nil, err
	}
	then, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}
	n.LHS = cond
	n.RHS = then

	switch p.current.Type {
	case TokenElif:
		elifPos := p.current.Position
		p.advance()
		elif, err := p.parseIfRest(elifPos)
		if err != nil {
			return nil, err
		}
		n.Else = elif
		return n, nil
	case TokenElse:
		p.advance()
		els, err := p.parseExpression(0)
		if err != nil {
			return nil, err
		}
		n.Else = els
	}
	if err := p.expect(TokenEnd); err != nil {
		return nil, err
	}
	return n, nil
}

// parseTry parses `try body (catch handler)?`; both operands are terms.
func (p *Parser) parseTry() (*types.ASTNode, error) {
	n := types.NewASTNode(types.NodeTry, p.current.Position)
	p.advance()
	body, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	n.LHS = body
	if p.current.Type == TokenCatch {
		p.advance()
		handler, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		n.RHS = handler
	}
	return n, nil
}
