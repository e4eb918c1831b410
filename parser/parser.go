package parser

import (
	"fmt"
	"strconv"

	"github.com/lattelang/latte/ast"
	"github.com/lattelang/latte/lexer"
	"github.com/lattelang/latte/token"
)

const (
	_ int = iota
	LOWEST
	OR          // ||
	AND         // &&
	EQUALS      // == !=
	LESSGREATER // < <= > >=
	SUM         // + -
	PRODUCT     // * / %
	PREFIX      // -X or !X
	CALL        // f(x), a[i], obj.field
)

var precedences = map[token.TokenType]int{
	token.LOR:    OR,
	token.LAND:   AND,
	token.EQL:    EQUALS,
	token.NEQ:    EQUALS,
	token.LSS:    LESSGREATER,
	token.LEQ:    LESSGREATER,
	token.GTR:    LESSGREATER,
	token.GEQ:    LESSGREATER,
	token.ADD:    SUM,
	token.SUB:    SUM,
	token.MUL:    PRODUCT,
	token.QUO:    PRODUCT,
	token.REM:    PRODUCT,
	token.LPAREN: CALL,
	token.LBRACK: CALL,
	token.PERIOD: CALL,
}

type (
	prefixParseFn func() ast.Expression
	infixParseFn  func(ast.Expression) ast.Expression
)

type Parser struct {
	l      *lexer.Lexer
	errors []*token.CompileError

	curToken   token.Token
	peekToken  token.Token
	peek2Token token.Token
	peek3Token token.Token

	prefixParseFns map[token.TokenType]prefixParseFn
	infixParseFns  map[token.TokenType]infixParseFn
}

func New(l *lexer.Lexer) *Parser {
	p := &Parser{
		l:      l,
		errors: []*token.CompileError{},
	}

	p.prefixParseFns = make(map[token.TokenType]prefixParseFn)
	p.registerPrefix(token.IDENT, p.parseIdentifier)
	p.registerPrefix(token.INT, p.parseIntegerLiteral)
	p.registerPrefix(token.STRING, p.parseStringLiteral)
	p.registerPrefix(token.TRUE, p.parseBooleanLiteral)
	p.registerPrefix(token.FALSE, p.parseBooleanLiteral)
	p.registerPrefix(token.NULL, p.parseNullLiteral)
	p.registerPrefix(token.SELF, p.parseSelfExpression)
	p.registerPrefix(token.NOT, p.parsePrefixExpression)
	p.registerPrefix(token.SUB, p.parsePrefixExpression)
	p.registerPrefix(token.LPAREN, p.parseGroupedOrCast)
	p.registerPrefix(token.NEW, p.parseNewExpression)

	p.infixParseFns = make(map[token.TokenType]infixParseFn)
	for _, t := range []token.TokenType{
		token.ADD, token.SUB, token.MUL, token.QUO, token.REM,
		token.EQL, token.NEQ, token.LSS, token.LEQ, token.GTR, token.GEQ,
		token.LAND, token.LOR,
	} {
		p.registerInfix(t, p.parseInfixExpression)
	}
	p.registerInfix(token.LPAREN, p.parseCallExpression)
	p.registerInfix(token.LBRACK, p.parseIndexExpression)
	p.registerInfix(token.PERIOD, p.parseDotExpression)

	// Fill the lookahead window so curToken through peek3Token are all set
	p.nextToken()
	p.nextToken()
	p.nextToken()
	p.nextToken()

	return p
}

func (p *Parser) registerPrefix(tokenType token.TokenType, fn prefixParseFn) {
	p.prefixParseFns[tokenType] = fn
}

func (p *Parser) registerInfix(tokenType token.TokenType, fn infixParseFn) {
	p.infixParseFns[tokenType] = fn
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.peek2Token
	p.peek2Token = p.peek3Token
	p.peek3Token = p.l.NextToken()
}

func (p *Parser) curTokenIs(t token.TokenType) bool  { return p.curToken.Type == t }
func (p *Parser) peekTokenIs(t token.TokenType) bool { return p.peekToken.Type == t }

func (p *Parser) expectPeek(t token.TokenType) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.peekError(t)
	return false
}

func (p *Parser) Errors() []*token.CompileError { return p.errors }

func (p *Parser) addError(kind token.ErrKind, tok token.Token, msg string) {
	p.errors = append(p.errors, &token.CompileError{Kind: kind, Token: tok, Msg: msg})
}

func (p *Parser) peekError(t token.TokenType) {
	msg := fmt.Sprintf("expected next token to be %s, got %s instead", t, p.peekToken)
	p.addError(token.SyntaxError, p.peekToken, msg)
}

func (p *Parser) noPrefixParseFnError(t token.Token) {
	p.addError(token.SyntaxError, t, fmt.Sprintf("unexpected token %s", t))
}

// Program parses the whole translation unit: a sequence of function and
// class definitions.
func (p *Parser) Program() *ast.Program {
	program := &ast.Program{Defs: []ast.Def{}}

	for !p.curTokenIs(token.EOF) {
		var def ast.Def
		if p.curTokenIs(token.CLASS) {
			def = p.parseClassDef()
		} else {
			def = p.parseFuncDef()
		}
		if def != nil {
			program.Defs = append(program.Defs, def)
		} else {
			p.synchronizeTopLevel()
		}
		p.nextToken()
	}

	return program
}

// synchronizeTopLevel skips ahead to a token that can plausibly begin the
// next definition, so one malformed definition yields one diagnostic.
func (p *Parser) synchronizeTopLevel() {
	for !p.curTokenIs(token.EOF) {
		if p.curTokenIs(token.RBRACE) {
			return
		}
		if p.peekTokenIs(token.CLASS) {
			return
		}
		p.nextToken()
	}
}

// parseTypeExpr parses a type: a primitive keyword or class name followed
// by zero or more [] pairs. curToken must be the base type token.
func (p *Parser) parseTypeExpr() *ast.TypeExpr {
	if !p.curToken.IsType() {
		p.addError(token.SyntaxError, p.curToken, fmt.Sprintf("expected type, got %s", p.curToken))
		return nil
	}
	te := &ast.TypeExpr{Token: p.curToken, Name: p.curToken.Literal}
	for p.peekTokenIs(token.LBRACK) && p.peek2Token.Type == token.RBRACK {
		p.nextToken()
		p.nextToken()
		te = &ast.TypeExpr{Token: te.Token, Elem: te}
	}
	return te
}

func (p *Parser) parseFuncDef() *ast.FuncDef {
	ret := p.parseTypeExpr()
	if ret == nil {
		return nil
	}
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	fd := &ast.FuncDef{Token: p.curToken, Name: p.curToken.Literal, Ret: ret}
	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	fd.Params = p.parseParams()
	if fd.Params == nil {
		return nil
	}
	if !p.expectPeek(token.LBRACE) {
		return nil
	}
	fd.Body = p.parseBlock()
	return fd
}

// parseParams parses `( T a, U b )`; curToken is the ( token on entry and
// the ) token on exit. A nil result signals a syntax error.
func (p *Parser) parseParams() []*ast.Param {
	params := []*ast.Param{}
	if p.peekTokenIs(token.RPAREN) {
		p.nextToken()
		return params
	}
	for {
		p.nextToken()
		typ := p.parseTypeExpr()
		if typ == nil {
			return nil
		}
		if !p.expectPeek(token.IDENT) {
			return nil
		}
		params = append(params, &ast.Param{Token: p.curToken, Name: p.curToken.Literal, Type: typ})
		if !p.peekTokenIs(token.COMMA) {
			break
		}
		p.nextToken()
	}
	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	return params
}

func (p *Parser) parseClassDef() *ast.ClassDef {
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	cd := &ast.ClassDef{Token: p.curToken, Name: p.curToken.Literal}
	if p.peekTokenIs(token.EXTENDS) {
		p.nextToken()
		if !p.expectPeek(token.IDENT) {
			return nil
		}
		cd.Parent = p.curToken.Literal
	}
	if !p.expectPeek(token.LBRACE) {
		return nil
	}

	for !p.peekTokenIs(token.RBRACE) && !p.peekTokenIs(token.EOF) {
		p.nextToken()
		if !p.parseMember(cd) {
			return nil
		}
	}
	if !p.expectPeek(token.RBRACE) {
		return nil
	}
	return cd
}

// parseMember parses one field or method; a member is a field when a
// semicolon or comma follows the name, a method when ( follows.
func (p *Parser) parseMember(cd *ast.ClassDef) bool {
	typ := p.parseTypeExpr()
	if typ == nil {
		return false
	}
	if !p.expectPeek(token.IDENT) {
		return false
	}
	name := p.curToken

	if p.peekTokenIs(token.LPAREN) {
		m := &ast.FuncDef{Token: name, Name: name.Literal, Ret: typ}
		p.nextToken()
		m.Params = p.parseParams()
		if m.Params == nil {
			return false
		}
		if !p.expectPeek(token.LBRACE) {
			return false
		}
		m.Body = p.parseBlock()
		cd.Methods = append(cd.Methods, m)
		return true
	}

	cd.Fields = append(cd.Fields, &ast.FieldDef{Token: name, Name: name.Literal, Type: typ})
	for p.peekTokenIs(token.COMMA) {
		p.nextToken()
		if !p.expectPeek(token.IDENT) {
			return false
		}
		cd.Fields = append(cd.Fields, &ast.FieldDef{Token: p.curToken, Name: p.curToken.Literal, Type: typ})
	}
	return p.expectPeek(token.SEMICOLON)
}

// parseBlock parses statements until the matching }. curToken is the {
// token on entry and the } token on exit.
func (p *Parser) parseBlock() *ast.Block {
	block := &ast.Block{Token: p.curToken, Statements: []ast.Statement{}}
	p.nextToken()
	for !p.curTokenIs(token.RBRACE) && !p.curTokenIs(token.EOF) {
		stmt := p.parseStatement()
		if stmt != nil {
			block.Statements = append(block.Statements, stmt)
			p.nextToken()
			continue
		}
		p.synchronizeStatement()
		if p.curTokenIs(token.SEMICOLON) {
			p.nextToken()
		}
	}
	return block
}

// synchronizeStatement skips to the next semicolon so one malformed
// statement yields one diagnostic. The closing brace is left for
// parseBlock to consume.
func (p *Parser) synchronizeStatement() {
	for !p.curTokenIs(token.EOF) && !p.curTokenIs(token.SEMICOLON) && !p.curTokenIs(token.RBRACE) {
		p.nextToken()
	}
}

func (p *Parser) parseStatement() ast.Statement {
	switch p.curToken.Type {
	case token.LBRACE:
		return p.parseBlock()
	case token.RETURN:
		return p.parseReturn()
	case token.IF:
		return p.parseIf()
	case token.WHILE:
		return p.parseWhile()
	case token.FOR:
		return p.parseForEach()
	case token.SEMICOLON:
		return &ast.Block{Token: p.curToken} // empty statement
	}
	if p.startsDecl() {
		return p.parseDecl()
	}
	return p.parseSimpleStatement()
}

// startsDecl reports whether the statement at curToken is a declaration.
// `int x`, `Animal a` and `Animal[] a` declare; `a[i] = ...` does not,
// because its second token is not followed by ].
func (p *Parser) startsDecl() bool {
	switch p.curToken.Type {
	case token.TYPE_INT, token.TYPE_BOOLEAN, token.TYPE_STRING, token.TYPE_VOID:
		return true
	case token.IDENT:
		if p.peekTokenIs(token.IDENT) {
			return true
		}
		if p.peekTokenIs(token.LBRACK) && p.peek2Token.Type == token.RBRACK {
			return true
		}
	}
	return false
}

func (p *Parser) parseDecl() ast.Statement {
	decl := &ast.Decl{Token: p.curToken}
	decl.Type = p.parseTypeExpr()
	if decl.Type == nil {
		return nil
	}
	for {
		if !p.expectPeek(token.IDENT) {
			return nil
		}
		item := &ast.DeclItem{Token: p.curToken, Name: p.curToken.Literal}
		if p.peekTokenIs(token.ASSIGN) {
			p.nextToken()
			p.nextToken()
			item.Value = p.parseExpression(LOWEST)
			if item.Value == nil {
				return nil
			}
		}
		decl.Items = append(decl.Items, item)
		if !p.peekTokenIs(token.COMMA) {
			break
		}
		p.nextToken()
	}
	if !p.expectPeek(token.SEMICOLON) {
		return nil
	}
	return decl
}

func (p *Parser) parseReturn() ast.Statement {
	ret := &ast.Return{Token: p.curToken}
	if p.peekTokenIs(token.SEMICOLON) {
		p.nextToken()
		return ret
	}
	p.nextToken()
	ret.Value = p.parseExpression(LOWEST)
	if ret.Value == nil {
		return nil
	}
	if !p.expectPeek(token.SEMICOLON) {
		return nil
	}
	return ret
}

func (p *Parser) parseIf() ast.Statement {
	stmt := &ast.If{Token: p.curToken}
	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	p.nextToken()
	stmt.Cond = p.parseExpression(LOWEST)
	if stmt.Cond == nil {
		return nil
	}
	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	p.nextToken()
	stmt.Then = p.parseStatement()
	if stmt.Then == nil {
		return nil
	}
	if p.peekTokenIs(token.ELSE) {
		p.nextToken()
		p.nextToken()
		stmt.Else = p.parseStatement()
		if stmt.Else == nil {
			return nil
		}
	}
	return stmt
}

func (p *Parser) parseWhile() ast.Statement {
	stmt := &ast.While{Token: p.curToken}
	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	p.nextToken()
	stmt.Cond = p.parseExpression(LOWEST)
	if stmt.Cond == nil {
		return nil
	}
	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	p.nextToken()
	stmt.Body = p.parseStatement()
	if stmt.Body == nil {
		return nil
	}
	return stmt
}

func (p *Parser) parseForEach() ast.Statement {
	stmt := &ast.ForEach{Token: p.curToken}
	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	p.nextToken()
	stmt.ElemType = p.parseTypeExpr()
	if stmt.ElemType == nil {
		return nil
	}
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	stmt.Var = p.curToken.Literal
	stmt.VarToken = p.curToken
	if !p.expectPeek(token.COLON) {
		return nil
	}
	p.nextToken()
	stmt.Iterable = p.parseExpression(LOWEST)
	if stmt.Iterable == nil {
		return nil
	}
	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	p.nextToken()
	stmt.Body = p.parseStatement()
	if stmt.Body == nil {
		return nil
	}
	return stmt
}

// parseSimpleStatement parses assignment, increment/decrement, or a bare
// expression statement, all terminated by a semicolon.
func (p *Parser) parseSimpleStatement() ast.Statement {
	tok := p.curToken
	expr := p.parseExpression(LOWEST)
	if expr == nil {
		return nil
	}

	var stmt ast.Statement
	switch {
	case p.peekTokenIs(token.ASSIGN):
		p.nextToken()
		assign := &ast.Assign{Token: p.curToken, Target: expr}
		p.nextToken()
		assign.Value = p.parseExpression(LOWEST)
		if assign.Value == nil {
			return nil
		}
		stmt = assign
	case p.peekTokenIs(token.INC) || p.peekTokenIs(token.DEC):
		p.nextToken()
		stmt = &ast.IncDec{Token: p.curToken, Target: expr}
	default:
		stmt = &ast.ExpressionStatement{Token: tok, Expression: expr}
	}

	if !p.expectPeek(token.SEMICOLON) {
		return nil
	}
	return stmt
}

func (p *Parser) parseExpression(precedence int) ast.Expression {
	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		p.noPrefixParseFnError(p.curToken)
		return nil
	}
	leftExp := prefix()

	for leftExp != nil && precedence < p.peekPrecedence() {
		infix := p.infixParseFns[p.peekToken.Type]
		if infix == nil {
			return leftExp
		}
		p.nextToken()
		leftExp = infix(leftExp)
	}

	return leftExp
}

func (p *Parser) peekPrecedence() int {
	if prec, ok := precedences[p.peekToken.Type]; ok {
		return prec
	}
	return LOWEST
}

func (p *Parser) curPrecedence() int {
	if prec, ok := precedences[p.curToken.Type]; ok {
		return prec
	}
	return LOWEST
}

func (p *Parser) parseIdentifier() ast.Expression {
	return &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}
}

func (p *Parser) parseIntegerLiteral() ast.Expression {
	value, err := strconv.ParseInt(p.curToken.Literal, 10, 32)
	if err != nil {
		p.addError(token.SyntaxError, p.curToken,
			fmt.Sprintf("could not parse %q as a 32-bit integer", p.curToken.Literal))
		return nil
	}
	return &ast.IntegerLiteral{Token: p.curToken, Value: int32(value)}
}

func (p *Parser) parseStringLiteral() ast.Expression {
	return &ast.StringLiteral{Token: p.curToken, Value: p.curToken.Literal}
}

func (p *Parser) parseBooleanLiteral() ast.Expression {
	return &ast.BooleanLiteral{Token: p.curToken, Value: p.curTokenIs(token.TRUE)}
}

func (p *Parser) parseNullLiteral() ast.Expression {
	return &ast.NullLiteral{Token: p.curToken}
}

func (p *Parser) parseSelfExpression() ast.Expression {
	return &ast.SelfExpression{Token: p.curToken}
}

func (p *Parser) parsePrefixExpression() ast.Expression {
	expr := &ast.Prefix{Token: p.curToken, Operator: p.curToken.Literal}
	p.nextToken()
	expr.Right = p.parseExpression(PREFIX)
	if expr.Right == nil {
		return nil
	}
	return p.fold(expr)
}

func (p *Parser) parseInfixExpression(left ast.Expression) ast.Expression {
	expr := &ast.Infix{Token: p.curToken, Left: left, Operator: p.curToken.Literal}
	precedence := p.curPrecedence()
	p.nextToken()
	expr.Right = p.parseExpression(precedence)
	if expr.Right == nil {
		return nil
	}
	return p.fold(expr)
}

// fold collapses a fully constant subtree into a literal. Division by a
// constant zero is reported here, at the earliest point it is knowable;
// the unfolded node is kept so parsing can continue.
func (p *Parser) fold(expr ast.Expression) ast.Expression {
	v, cerr, ok := ast.Fold(expr)
	if !ok {
		return expr
	}
	if cerr != nil {
		p.errors = append(p.errors, cerr)
		return expr
	}
	return v.Literal(expr.Tok())
}

// parseGroupedOrCast disambiguates `(expr)` from `(Type)expr`. A cast is
// recognized for primitive type keywords, `(Name)null`, and array types
// like `(Name[])x`; everything else is a grouped expression.
func (p *Parser) parseGroupedOrCast() ast.Expression {
	lparen := p.curToken
	isCast := false
	switch p.peekToken.Type {
	case token.TYPE_INT, token.TYPE_BOOLEAN, token.TYPE_STRING, token.TYPE_VOID:
		isCast = true
	case token.IDENT:
		if p.peek2Token.Type == token.RPAREN {
			// (Name)null is a cast; any other (Name)... is grouping
			isCast = p.peek3Token.Type == token.NULL
		} else if p.peek2Token.Type == token.LBRACK {
			isCast = true
		}
	}

	if isCast {
		p.nextToken()
		target := p.parseTypeExpr()
		if target == nil {
			return nil
		}
		if !p.expectPeek(token.RPAREN) {
			return nil
		}
		p.nextToken()
		value := p.parseExpression(PREFIX)
		if value == nil {
			return nil
		}
		return &ast.CastExpression{Token: lparen, Target: target, Value: value}
	}

	p.nextToken()
	exp := p.parseExpression(LOWEST)
	if exp == nil {
		return nil
	}
	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	return exp
}

func (p *Parser) parseNewExpression() ast.Expression {
	newTok := p.curToken
	p.nextToken()
	if !p.curToken.IsType() {
		p.addError(token.SyntaxError, p.curToken, fmt.Sprintf("expected type after new, got %s", p.curToken))
		return nil
	}
	base := &ast.TypeExpr{Token: p.curToken, Name: p.curToken.Literal}

	// nested [] pairs build higher-dimensional element types
	for p.peekTokenIs(token.LBRACK) && p.peek2Token.Type == token.RBRACK {
		p.nextToken()
		p.nextToken()
		base = &ast.TypeExpr{Token: base.Token, Elem: base}
	}

	if p.peekTokenIs(token.LBRACK) {
		p.nextToken()
		p.nextToken()
		length := p.parseExpression(LOWEST)
		if length == nil {
			return nil
		}
		if !p.expectPeek(token.RBRACK) {
			return nil
		}
		return &ast.NewArray{Token: newTok, Elem: base, Length: length}
	}

	if base.Elem != nil {
		p.addError(token.SyntaxError, newTok, "array allocation requires a length")
		return nil
	}
	return &ast.NewObject{Token: newTok, Class: base.Name}
}

func (p *Parser) parseCallExpression(left ast.Expression) ast.Expression {
	ident, ok := left.(*ast.Identifier)
	if !ok {
		p.addError(token.SyntaxError, p.curToken, "call target must be a name")
		return nil
	}
	call := &ast.Call{Token: ident.Token, Name: ident.Value}
	args := p.parseCallArgs()
	if args == nil {
		return nil
	}
	call.Args = args
	return call
}

// parseCallArgs parses `( a, b )`; curToken is the ( token on entry and
// the ) token on exit. Returns a non-nil empty slice for ().
func (p *Parser) parseCallArgs() []ast.Expression {
	args := []ast.Expression{}
	if p.peekTokenIs(token.RPAREN) {
		p.nextToken()
		return args
	}
	for {
		p.nextToken()
		arg := p.parseExpression(LOWEST)
		if arg == nil {
			return nil
		}
		args = append(args, arg)
		if !p.peekTokenIs(token.COMMA) {
			break
		}
		p.nextToken()
	}
	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	return args
}

func (p *Parser) parseIndexExpression(left ast.Expression) ast.Expression {
	expr := &ast.Index{Token: p.curToken, Left: left}
	p.nextToken()
	expr.Idx = p.parseExpression(LOWEST)
	if expr.Idx == nil {
		return nil
	}
	if !p.expectPeek(token.RBRACK) {
		return nil
	}
	return expr
}

func (p *Parser) parseDotExpression(left ast.Expression) ast.Expression {
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	name := p.curToken
	if p.peekTokenIs(token.LPAREN) {
		p.nextToken()
		args := p.parseCallArgs()
		if args == nil {
			return nil
		}
		return &ast.MethodCall{Token: name, Object: left, Name: name.Literal, Args: args}
	}
	return &ast.FieldExpression{Token: name, Object: left, Name: name.Literal}
}
