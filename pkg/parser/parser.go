package parser

import (
	"github.com/rkurbatov/myangular/pkg/errors"
	"github.com/rkurbatov/myangular/pkg/lexer"
	"github.com/rkurbatov/myangular/pkg/source"
	"github.com/rkurbatov/myangular/pkg/values"
)

// Parser turns a token stream into an AST with a fixed precedence
// ladder, low to high: filter, assignment, ternary, ||, &&, equality,
// relational, additive, multiplicative, unary, primary.
type Parser struct {
	src    *source.File
	tokens []lexer.Token
	index  int
}

// literal keywords resolved in primary position.
var literalKeywords = map[string]values.Value{
	"true":      values.True,
	"false":     values.False,
	"null":      values.Null,
	"undefined": values.Undefined,
}

// Parse lexes and parses one expression program.
func Parse(src *source.File) (*Program, error) {
	tokens, err := lexer.New(src).Lex()
	if err != nil {
		return nil, err
	}
	p := &Parser{src: src, tokens: tokens}
	return p.program()
}

// ParseString is the convenience form for ad-hoc expressions.
func ParseString(text string) (*Program, error) {
	return Parse(source.NewEval(text))
}

func (p *Parser) program() (*Program, error) {
	program := &Program{}
	for {
		if p.index < len(p.tokens) && p.peek("}", ")", ";", "]") == nil {
			stmt, err := p.filterChain()
			if err != nil {
				return nil, err
			}
			program.Body = append(program.Body, stmt)
		}
		if p.expect(";") == nil {
			if p.index < len(p.tokens) {
				return nil, p.unexpected(p.tokens[p.index])
			}
			return program, nil
		}
	}
}

func (p *Parser) filterChain() (Node, error) {
	left, err := p.expression()
	if err != nil {
		return nil, err
	}
	for p.expect("|") != nil {
		left, err = p.filter(left)
		if err != nil {
			return nil, err
		}
	}
	return left, nil
}

// filter parses `| name[:arg]*`, shaping it as a call with the piped
// value as first argument.
func (p *Parser) filter(base Node) (Node, error) {
	callee, err := p.identifier()
	if err != nil {
		return nil, err
	}
	call := &CallExpression{Callee: callee, Arguments: []Node{base}, Filter: true}
	for p.expect(":") != nil {
		arg, err := p.expression()
		if err != nil {
			return nil, err
		}
		call.Arguments = append(call.Arguments, arg)
	}
	return call, nil
}

func (p *Parser) expression() (Node, error) {
	return p.assignment()
}

func (p *Parser) assignment() (Node, error) {
	left, err := p.ternary()
	if err != nil {
		return nil, err
	}
	if p.expect("=") != nil {
		right, err := p.assignment()
		if err != nil {
			return nil, err
		}
		return &AssignmentExpression{Left: left, Right: right}, nil
	}
	return left, nil
}

func (p *Parser) ternary() (Node, error) {
	test, err := p.logicalOR()
	if err != nil {
		return nil, err
	}
	if p.expect("?") == nil {
		return test, nil
	}
	consequent, err := p.assignment()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(":"); err != nil {
		return nil, err
	}
	alternate, err := p.assignment()
	if err != nil {
		return nil, err
	}
	return &ConditionalExpression{Test: test, Consequent: consequent, Alternate: alternate}, nil
}

func (p *Parser) logicalOR() (Node, error) {
	left, err := p.logicalAND()
	if err != nil {
		return nil, err
	}
	for p.expect("||") != nil {
		right, err := p.logicalAND()
		if err != nil {
			return nil, err
		}
		left = &LogicalExpression{Operator: "||", Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) logicalAND() (Node, error) {
	left, err := p.equality()
	if err != nil {
		return nil, err
	}
	for p.expect("&&") != nil {
		right, err := p.equality()
		if err != nil {
			return nil, err
		}
		left = &LogicalExpression{Operator: "&&", Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) equality() (Node, error) {
	left, err := p.relational()
	if err != nil {
		return nil, err
	}
	for {
		token := p.expect("==", "!=", "===", "!==")
		if token == nil {
			return left, nil
		}
		right, err := p.relational()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpression{Operator: token.Text, Left: left, Right: right}
	}
}

func (p *Parser) relational() (Node, error) {
	left, err := p.additive()
	if err != nil {
		return nil, err
	}
	for {
		token := p.expect("<", ">", "<=", ">=")
		if token == nil {
			return left, nil
		}
		right, err := p.additive()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpression{Operator: token.Text, Left: left, Right: right}
	}
}

func (p *Parser) additive() (Node, error) {
	left, err := p.multiplicative()
	if err != nil {
		return nil, err
	}
	for {
		token := p.expect("+", "-")
		if token == nil {
			return left, nil
		}
		right, err := p.multiplicative()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpression{Operator: token.Text, Left: left, Right: right}
	}
}

func (p *Parser) multiplicative() (Node, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for {
		token := p.expect("*", "/", "%")
		if token == nil {
			return left, nil
		}
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpression{Operator: token.Text, Left: left, Right: right}
	}
}

func (p *Parser) unary() (Node, error) {
	if token := p.expect("+", "!", "-"); token != nil {
		argument, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &UnaryExpression{Operator: token.Text, Argument: argument}, nil
	}
	return p.primary()
}

func (p *Parser) primary() (Node, error) {
	var primary Node
	var err error
	switch {
	case p.expect("(") != nil:
		primary, err = p.filterChain()
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(")"); err != nil {
			return nil, err
		}
	case p.expect("[") != nil:
		primary, err = p.arrayDeclaration()
		if err != nil {
			return nil, err
		}
	case p.expect("{") != nil:
		primary, err = p.object()
		if err != nil {
			return nil, err
		}
	default:
		token, ok := p.peekToken()
		if !ok {
			return nil, p.endOfExpression()
		}
		switch {
		case token.Text == "this":
			primary = &ThisExpression{}
			p.index++
		case token.Text == "$locals":
			primary = &LocalsExpression{}
			p.index++
		case token.Identifier && hasLiteralKeyword(token.Text):
			primary = &Literal{Value: literalKeywords[token.Text]}
			p.index++
		case token.Identifier:
			primary, err = p.identifier()
			if err != nil {
				return nil, err
			}
		case token.HasValue:
			primary = &Literal{Value: token.Value}
			p.index++
		default:
			return nil, errors.NewSyntax(p.tokenPos(token), "'%s' is not a valid expression", token.Text)
		}
	}

	// Postfix operators, left-associated.
	for {
		next := p.expect(".", "[", "(")
		if next == nil {
			return primary, nil
		}
		switch next.Text {
		case ".":
			property, err := p.identifier()
			if err != nil {
				return nil, err
			}
			primary = &MemberExpression{Object: primary, Property: property, Computed: false}
		case "[":
			property, err := p.expression()
			if err != nil {
				return nil, err
			}
			if _, err := p.consume("]"); err != nil {
				return nil, err
			}
			primary = &MemberExpression{Object: primary, Property: property, Computed: true}
		case "(":
			arguments, err := p.parseArguments()
			if err != nil {
				return nil, err
			}
			if _, err := p.consume(")"); err != nil {
				return nil, err
			}
			primary = &CallExpression{Callee: primary, Arguments: arguments}
		}
	}
}

func (p *Parser) parseArguments() ([]Node, error) {
	var args []Node
	if p.peek(")") != nil {
		return args, nil
	}
	for {
		arg, err := p.expression()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.expect(",") == nil {
			return args, nil
		}
	}
}

func (p *Parser) arrayDeclaration() (Node, error) {
	array := &ArrayLiteral{}
	if p.peek("]") == nil {
		for {
			if p.peek("]") != nil {
				break // trailing comma
			}
			element, err := p.expression()
			if err != nil {
				return nil, err
			}
			array.Elements = append(array.Elements, element)
			if p.expect(",") == nil {
				break
			}
		}
	}
	if _, err := p.consume("]"); err != nil {
		return nil, err
	}
	return array, nil
}

func (p *Parser) object() (Node, error) {
	object := &ObjectLiteral{}
	if p.peek("}") == nil {
		for {
			if p.peek("}") != nil {
				break // trailing comma
			}
			token, ok := p.peekToken()
			if !ok {
				return nil, p.endOfExpression()
			}
			property := &Property{}
			switch {
			case token.HasValue:
				property.Key = &Literal{Value: token.Value}
				p.index++
			case token.Identifier:
				key, err := p.identifier()
				if err != nil {
					return nil, err
				}
				property.Key = key
			default:
				return nil, errors.NewSyntax(p.tokenPos(token), "invalid key '%s'", token.Text)
			}
			if _, err := p.consume(":"); err != nil {
				return nil, err
			}
			value, err := p.expression()
			if err != nil {
				return nil, err
			}
			property.Value = value
			object.Properties = append(object.Properties, property)
			if p.expect(",") == nil {
				break
			}
		}
	}
	if _, err := p.consume("}"); err != nil {
		return nil, err
	}
	return object, nil
}

func (p *Parser) identifier() (*Identifier, error) {
	token, ok := p.peekToken()
	if !ok {
		return nil, p.endOfExpression()
	}
	if !token.Identifier {
		return nil, errors.NewSyntax(p.tokenPos(token), "'%s' is not a valid identifier", token.Text)
	}
	p.index++
	return &Identifier{Name: token.Text}, nil
}

// --- Token stream helpers ---

func (p *Parser) peekToken() (lexer.Token, bool) {
	if p.index >= len(p.tokens) {
		return lexer.Token{}, false
	}
	return p.tokens[p.index], true
}

// peek returns the next token when its text matches one of texts
// (any token if texts is empty) without consuming it.
func (p *Parser) peek(texts ...string) *lexer.Token {
	if p.index >= len(p.tokens) {
		return nil
	}
	token := &p.tokens[p.index]
	if len(texts) == 0 {
		return token
	}
	for _, text := range texts {
		if token.Text == text && !token.Identifier && !token.HasValue {
			return token
		}
	}
	return nil
}

// expect is peek plus consume.
func (p *Parser) expect(texts ...string) *lexer.Token {
	token := p.peek(texts...)
	if token != nil {
		p.index++
	}
	return token
}

// consume requires the next token to be text.
func (p *Parser) consume(text string) (lexer.Token, error) {
	token := p.expect(text)
	if token == nil {
		pos := p.endPos()
		if t, ok := p.peekToken(); ok {
			pos = p.tokenPos(t)
		}
		return lexer.Token{}, errors.NewSyntax(pos, "Unexpected! Expecting: %s", text)
	}
	return *token, nil
}

func (p *Parser) unexpected(token lexer.Token) error {
	return errors.NewSyntax(p.tokenPos(token), "'%s' is an unexpected token", token.Text)
}

func (p *Parser) endOfExpression() error {
	return errors.NewSyntax(p.endPos(), "Unexpected end of expression")
}

func (p *Parser) tokenPos(token lexer.Token) errors.Position {
	return errors.Position{
		Line:     token.Line,
		Column:   token.Column,
		StartPos: token.Index,
		EndPos:   token.Index + len(token.Text),
		Source:   p.src,
	}
}

func (p *Parser) endPos() errors.Position {
	line := len(p.src.Lines())
	return errors.Position{
		Line:     line,
		Column:   len(p.src.Lines()[line-1]) + 1,
		StartPos: len(p.src.Content),
		EndPos:   len(p.src.Content),
		Source:   p.src,
	}
}

func hasLiteralKeyword(text string) bool {
	_, ok := literalKeywords[text]
	return ok
}
