// Package parser implements the syntactic analyzer for the Fur programming language.
//
// The parser is a Pratt parser: expressions are parsed by binding power, with
// separate left and right binding powers per operator so associativity falls
// out of the table (assignment is right-associative, everything else is
// left-associative). Statements are expressions; a program or block body is a
// list of expressions terminated by an expected exit token (end, else, or EOF).
//
// The parser consumes tokens from the lexer with one token of lookahead and
// accumulates errors rather than stopping at the first; callers inspect them
// through the Errors method. Semicolons are statement separators and are
// skipped like whitespace.
package parser

import (
	"fmt"

	"github.com/kerkeslager/fur-infinity/ast"
	"github.com/kerkeslager/fur-infinity/lexer"
	"github.com/kerkeslager/fur-infinity/token"
)

// Binding powers, lowest first. Left before right means left < right, so a
// repeated operator binds to the left; the reverse makes it right-associative.
const (
	precNone = iota
	precAny

	precAssignRight
	precAssignLeft

	precOrLeft
	precOrRight

	precAndLeft
	precAndRight

	precNot

	precCmpLeft
	precCmpRight

	precAddLeft
	precAddRight

	precMulLeft
	precMulRight

	precNeg

	precDotLeft
	precDotRight
)

// precedenceRule holds the prefix binding power of a token and the left and
// right binding powers of its infix form.
type precedenceRule struct {
	prefix     int
	infixLeft  int
	infixRight int
}

var precedences = map[token.Type]precedenceRule{
	token.ASSIGN:   {precNone, precAssignLeft, precAssignRight},
	token.OR:       {precNone, precOrLeft, precOrRight},
	token.AND:      {precNone, precAndLeft, precAndRight},
	token.NOT:      {precNot, precNone, precNone},
	token.EQ:       {precNone, precCmpLeft, precCmpRight},
	token.NOT_EQ:   {precNone, precCmpLeft, precCmpRight},
	token.LT:       {precNone, precCmpLeft, precCmpRight},
	token.GT:       {precNone, precCmpLeft, precCmpRight},
	token.LEQ:      {precNone, precCmpLeft, precCmpRight},
	token.GEQ:      {precNone, precCmpLeft, precCmpRight},
	token.PLUS:     {precNone, precAddLeft, precAddRight},
	token.MINUS:    {precNeg, precAddLeft, precAddRight},
	token.ASTERISK: {precNone, precMulLeft, precMulRight},
	token.SLASH:    {precNone, precMulLeft, precMulRight},
	token.DOT:      {precNone, precDotLeft, precDotRight},
}

// Parser parses Fur source into an AST.
type Parser struct {
	l *lexer.Lexer

	lookahead    token.Token
	hasLookahead bool

	errors []string
}

// New creates a new Parser reading tokens from the given lexer.
func New(l *lexer.Lexer) *Parser {
	return &Parser{l: l}
}

// Errors returns the parse errors accumulated so far.
func (p *Parser) Errors() []string {
	return p.errors
}

// scan pulls the next significant token from the lexer. Semicolons separate
// statements and carry no structure of their own, so they are dropped here.
func (p *Parser) scan() token.Token {
	tok := p.l.NextToken()
	for tok.Type == token.SEMICOLON {
		tok = p.l.NextToken()
	}
	return tok
}

// next consumes and returns the next token.
func (p *Parser) next() token.Token {
	if p.hasLookahead {
		p.hasLookahead = false
		return p.lookahead
	}
	return p.scan()
}

// peek returns the next token without consuming it.
func (p *Parser) peek() token.Token {
	if !p.hasLookahead {
		p.lookahead = p.scan()
		p.hasLookahead = true
	}
	return p.lookahead
}

func (p *Parser) errorf(line int, format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf("line %d: %s", line, fmt.Sprintf(format, args...)))
}

// expect consumes the next token and reports an error if it is not of the
// wanted type.
func (p *Parser) expect(want token.Type) (token.Token, bool) {
	tok := p.next()
	if tok.Type != want {
		p.errorf(tok.Line, "expected %s, got %q", want, tok.Literal)
		return tok, false
	}
	return tok, true
}

// ParseProgram parses a whole source text: an expression list terminated by
// EOF. It returns nil for an empty program.
func (p *Parser) ParseProgram() ast.Node {
	program := p.parseExpressionList(token.EOF)
	if tok := p.peek(); tok.Type != token.EOF {
		p.errorf(tok.Line, "unexpected %q after program", tok.Literal)
	}
	return program
}

// parseStatement parses one statement-position expression.
func (p *Parser) parseStatement() ast.Node {
	return p.parseExpression(precAny)
}

// isExitToken reports whether t terminates an expression list.
func isExitToken(t token.Type) bool {
	return t == token.ELSE || t == token.END || t == token.EOF
}

// parseExpressionList parses consecutive statements until one of the expected
// exit tokens appears in lookahead. The exit token is left unconsumed.
// A single statement is returned bare, without an ExpressionList wrapper;
// an empty list is nil.
func (p *Parser) parseExpressionList(exits ...token.Type) ast.Node {
	isExpectedExit := func(t token.Type) bool {
		for _, exit := range exits {
			if t == exit {
				return true
			}
		}
		if isExitToken(t) {
			tok := p.peek()
			p.errorf(tok.Line, "unexpected %q", tok.Literal)
			return true
		}
		return false
	}

	if isExpectedExit(p.peek().Type) {
		return nil
	}

	first := p.parseStatement()
	if first == nil {
		return nil
	}

	if isExpectedExit(p.peek().Type) {
		return first
	}

	list := &ast.ExpressionList{
		LineNumber:  first.Line(),
		Expressions: []ast.Node{first},
	}

	for !isExpectedExit(p.peek().Type) {
		stmt := p.parseStatement()
		if stmt == nil {
			return list
		}
		list.Expressions = append(list.Expressions, stmt)
	}

	return list
}

// parseExpression is the core of the Pratt algorithm. It parses a prefix
// operand, then folds infix operators whose left binding power is at least
// minimumBindingPower.
func (p *Parser) parseExpression(minimumBindingPower int) ast.Node {
	tok := p.next()

	var left ast.Node

	switch tok.Type {
	case token.NIL:
		left = &ast.NilLiteral{LineNumber: tok.Line}
	case token.TRUE:
		left = &ast.BooleanLiteral{LineNumber: tok.Line, Value: true}
	case token.FALSE:
		left = &ast.BooleanLiteral{LineNumber: tok.Line, Value: false}
	case token.NUMBER:
		left = &ast.NumberLiteral{LineNumber: tok.Line, Text: tok.Literal}
	case token.SQSTR, token.DQSTR:
		left = &ast.StringLiteral{LineNumber: tok.Line, Text: tok.Literal}
	case token.IDENT:
		left = &ast.Identifier{LineNumber: tok.Line, Name: tok.Literal}

	case token.DEF:
		return p.parseFunctionDefinition(tok.Line)
	case token.IF:
		return p.parseIf(tok.Line)
	case token.WHILE:
		return p.parseWhile(tok.Line)

	case token.LPAREN:
		left = p.parseExpression(precAny)
		if left == nil {
			return nil
		}
		if _, ok := p.expect(token.RPAREN); !ok {
			return nil
		}

	case token.MINUS, token.NOT:
		operand := p.parseExpression(precedences[tok.Type].prefix)
		if operand == nil {
			return nil
		}
		operator := "-"
		if tok.Type == token.NOT {
			operator = "not"
		}
		left = &ast.PrefixExpression{LineNumber: tok.Line, Operator: operator, Operand: operand}

	case token.EOF:
		p.errorf(tok.Line, "unexpected end of input")
		return nil

	default:
		p.errorf(tok.Line, "unable to parse %q", tok.Literal)
		return nil
	}

	for {
		operator := p.peek()

		switch operator.Type {
		case token.LPAREN:
			arguments, ok := p.parseCallArguments()
			if !ok {
				return nil
			}
			left = &ast.CallExpression{
				LineNumber: left.Line(),
				Callee:     left,
				Arguments:  arguments,
			}
			continue
		case token.ELSE, token.END, token.EOF:
			return left
		}

		rule, ok := precedences[operator.Type]
		if !ok || rule.infixLeft < minimumBindingPower {
			return left
		}

		p.next()

		right := p.parseExpression(rule.infixRight)
		if right == nil {
			return nil
		}

		if operator.Type == token.ASSIGN {
			left = &ast.AssignExpression{
				LineNumber: operator.Line,
				Target:     left,
				Value:      right,
			}
		} else {
			left = &ast.InfixExpression{
				LineNumber: operator.Line,
				Operator:   operator.Literal,
				Left:       left,
				Right:      right,
			}
		}
	}
}

// parseCallArguments parses "(a, b, ...)" after a callee. The opening paren
// is in lookahead on entry.
func (p *Parser) parseCallArguments() ([]ast.Node, bool) {
	p.next()

	var arguments []ast.Node

	if p.peek().Type == token.RPAREN {
		p.next()
		return arguments, true
	}

	for {
		arg := p.parseExpression(precAny)
		if arg == nil {
			return nil, false
		}
		arguments = append(arguments, arg)

		tok := p.next()
		switch tok.Type {
		case token.RPAREN:
			return arguments, true
		case token.COMMA:
			continue
		default:
			p.errorf(tok.Line, "expected , or ) in argument list, got %q", tok.Literal)
			return nil, false
		}
	}
}

// parseFunctionDefinition parses "def name(params): body end" after the def
// keyword has been consumed.
func (p *Parser) parseFunctionDefinition(line int) ast.Node {
	name, ok := p.expect(token.IDENT)
	if !ok {
		return nil
	}

	if _, ok := p.expect(token.LPAREN); !ok {
		return nil
	}

	var parameters []*ast.Identifier

	if p.peek().Type == token.RPAREN {
		p.next()
	} else {
		for {
			param, ok := p.expect(token.IDENT)
			if !ok {
				return nil
			}
			parameters = append(parameters, &ast.Identifier{LineNumber: param.Line, Name: param.Literal})

			tok := p.next()
			if tok.Type == token.RPAREN {
				break
			}
			if tok.Type != token.COMMA {
				p.errorf(tok.Line, "expected , or ) in parameter list, got %q", tok.Literal)
				return nil
			}
		}
	}

	if _, ok := p.expect(token.COLON); !ok {
		return nil
	}

	body := p.parseExpressionList(token.END)

	if _, ok := p.expect(token.END); !ok {
		return nil
	}

	return &ast.FunctionDefinition{
		LineNumber: line,
		Name:       name.Literal,
		Parameters: parameters,
		Body:       body,
	}
}

// parseIf parses "if cond: consequence [else: alternative] end" after the if
// keyword has been consumed.
func (p *Parser) parseIf(line int) ast.Node {
	condition := p.parseExpression(precAny)
	if condition == nil {
		return nil
	}

	if _, ok := p.expect(token.COLON); !ok {
		return nil
	}

	consequence := p.parseExpressionList(token.ELSE, token.END)

	var alternative ast.Node

	tok := p.next()
	if tok.Type == token.ELSE {
		if p.peek().Type == token.COLON {
			p.next()
		}
		alternative = p.parseExpressionList(token.END)
		tok = p.next()
	}

	if tok.Type != token.END {
		p.errorf(tok.Line, "expected end, got %q", tok.Literal)
		return nil
	}

	return &ast.IfExpression{
		LineNumber:  line,
		Condition:   condition,
		Consequence: consequence,
		Alternative: alternative,
	}
}

// parseWhile parses "while cond: body end" after the while keyword has been
// consumed.
func (p *Parser) parseWhile(line int) ast.Node {
	condition := p.parseExpression(precAny)
	if condition == nil {
		return nil
	}

	if _, ok := p.expect(token.COLON); !ok {
		return nil
	}

	body := p.parseExpressionList(token.END)

	if _, ok := p.expect(token.END); !ok {
		return nil
	}

	return &ast.WhileExpression{
		LineNumber: line,
		Condition:  condition,
		Body:       body,
	}
}
