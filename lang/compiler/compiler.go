// Package compiler implements the single-pass AST-to-bytecode compiler
// described in spec.md §4.3: it walks a lang/ast tree and emits the byte
// stream spec.md §6 specifies, one chunk per named function (top-level or
// nested) plus a main chunk, preceded by the function signature table.
package compiler

import (
	"encoding/binary"
	"fmt"

	"github.com/dolthub/swiss"

	"github.com/anissen/delta/lang/ast"
	"github.com/anissen/delta/lang/token"
)

// CompileErrorKind classifies a CompileError (spec.md §7).
type CompileErrorKind uint8

const (
	UnresolvedIdent CompileErrorKind = iota
	ArityMismatch
	DuplicateBinding
	TypeMismatch
	MalformedChunk
	UnsupportedConstruct
)

func (k CompileErrorKind) String() string {
	switch k {
	case UnresolvedIdent:
		return "unresolved identifier"
	case ArityMismatch:
		return "arity mismatch"
	case DuplicateBinding:
		return "duplicate binding"
	case TypeMismatch:
		return "type mismatch"
	case MalformedChunk:
		return "malformed chunk"
	case UnsupportedConstruct:
		return "unsupported construct"
	default:
		return "compile error"
	}
}

// CompileError reports a failure to compile a resolved, parsed chunk.
type CompileError struct {
	Kind CompileErrorKind
	Pos  token.Pos
	Msg  string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Pos, e.Kind, e.Msg)
}

// valueType is the compiler's best-effort static type for an expression,
// used only to choose between the int and float variants of the
// arithmetic opcodes (spec.md §4.3's numeric type inference). Comparisons
// need no inference: the surface syntax already picks `<` vs `<.`.
type valueType uint8

const (
	tUnknown valueType = iota
	tInt
	tFloat
	tBool
	tString
	tTag
)

// compiler holds state shared across every function compiled from one
// chunk: the top-level function table and each function's inferred return
// type, used to resolve calls and pick arithmetic opcodes.
type compiler struct {
	funcIndex      *swiss.Map[string, int]
	funcParamCount []int
	funcReturnType map[string]valueType
}

// CompileChunk compiles a parsed chunk into a Program. chunk must have come
// from a successful parser.ParseChunk call; behavior on a chunk containing
// *ast.BadStmt/*ast.BadExpr nodes is undefined.
func CompileChunk(chunk *ast.Chunk) (*Program, error) {
	c := &compiler{
		funcIndex:      swiss.NewMap[string, int](8),
		funcReturnType: make(map[string]valueType),
	}

	// A let directly at chunk level whose value is a lambda names a
	// globally visible top-level function, exactly as before. Everything
	// else becomes main's body.
	var topLets []*ast.LetStmt
	var mainStmts []ast.Stmt
	for _, st := range chunk.Stmts {
		if ls, ok := st.(*ast.LetStmt); ok {
			if _, ok := ls.Value.(*ast.LambdaExpr); ok {
				topLets = append(topLets, ls)
				continue
			}
		}
		mainStmts = append(mainStmts, st)
	}

	var decls []*funcDecl
	topAliases, err := c.registerFuncLets(topLets, &decls)
	if err != nil {
		return nil, err
	}
	for name, idx := range topAliases {
		c.funcIndex.Put(name, idx)
	}

	// spec.md §4.2: "a lambda used elsewhere is an anonymous function
	// reachable only through the assignment that captures it" — a let
	// bound to a lambda anywhere inside main's body (directly, or nested
	// in an is-arm) is a function visible only within main, not globally.
	var mainLets []*ast.LetStmt
	collectFuncLets(mainStmts, &mainLets)
	mainAliases, err := c.registerFuncLets(mainLets, &decls)
	if err != nil {
		return nil, err
	}

	c.inferFunctionReturnTypes(decls)

	funcs := make([]*funcInfo, len(decls))
	for i, d := range decls {
		fi, err := c.compileFunction(d.name, d.lam.Params, d.lam.Body, d.aliases)
		if err != nil {
			return nil, err
		}
		funcs[i] = fi
	}

	endPos := chunk.EOF
	if len(mainStmts) > 0 {
		if end, ok := spanEnd(mainStmts[len(mainStmts)-1]); ok {
			endPos = end
		}
	}
	mainInfo, err := c.compileFunction("main", nil, &ast.BlockExpr{Stmts: mainStmts, End: endPos}, mainAliases)
	if err != nil {
		return nil, err
	}

	return c.link(mainInfo, funcs), nil
}

func spanEnd(n ast.Node) (token.Pos, bool) {
	_, end := n.Span()
	return end, true
}

// funcDecl is one named function awaiting compilation: either a top-level
// binding or one nested inside another function's (or main's) body.
type funcDecl struct {
	name    string
	lam     *ast.LambdaExpr
	aliases map[string]int // names of functions nested directly in lam's body
}

// registerFuncLets registers each let-bound lambda in lets as a function in
// decls, recursing into each one's own body to discover further nested
// definitions first so every nested function's index is known before its
// enclosing function references it. It returns the name -> global function
// index mapping visible to whatever scope contains lets.
func (c *compiler) registerFuncLets(lets []*ast.LetStmt, decls *[]*funcDecl) (map[string]int, error) {
	aliases := map[string]int{}
	for _, ls := range lets {
		if _, dup := aliases[ls.Name]; dup {
			return nil, &CompileError{Kind: DuplicateBinding, Pos: ls.NamePos, Msg: fmt.Sprintf("duplicate function binding %q", ls.Name)}
		}
		lam := ls.Value.(*ast.LambdaExpr)
		idx, err := c.registerFunc(ls.Name, lam, decls)
		if err != nil {
			return nil, err
		}
		aliases[ls.Name] = idx
	}
	return aliases, nil
}

// registerFunc registers lam under name, after first registering every
// function nested directly in lam's own body.
func (c *compiler) registerFunc(name string, lam *ast.LambdaExpr, decls *[]*funcDecl) (int, error) {
	var nested []*ast.LetStmt
	collectFuncLetsExpr(lam.Body, &nested)
	aliases, err := c.registerFuncLets(nested, decls)
	if err != nil {
		return 0, err
	}
	idx := len(*decls)
	c.funcParamCount = append(c.funcParamCount, len(lam.Params))
	*decls = append(*decls, &funcDecl{name: name, lam: lam, aliases: aliases})
	return idx, nil
}

// collectFuncLets finds every LetStmt bound to a LambdaExpr reachable from
// stmts without crossing into another lambda's own body (those are
// discovered separately, by registerFunc, once the outer one they belong to
// is itself registered).
func collectFuncLets(stmts []ast.Stmt, out *[]*ast.LetStmt) {
	for _, st := range stmts {
		switch s := st.(type) {
		case *ast.LetStmt:
			if _, ok := s.Value.(*ast.LambdaExpr); ok {
				*out = append(*out, s)
				continue
			}
			collectFuncLetsExpr(s.Value, out)
		case *ast.ExprStmt:
			collectFuncLetsExpr(s.X, out)
		}
	}
}

func collectFuncLetsExpr(e ast.Expr, out *[]*ast.LetStmt) {
	switch e := e.(type) {
	case *ast.BlockExpr:
		collectFuncLets(e.Stmts, out)
	case *ast.ParenExpr:
		collectFuncLetsExpr(e.X, out)
	case *ast.UnaryExpr:
		collectFuncLetsExpr(e.X, out)
	case *ast.BinaryExpr:
		collectFuncLetsExpr(e.Left, out)
		collectFuncLetsExpr(e.Right, out)
	case *ast.TagExpr:
		if e.Payload != nil {
			collectFuncLetsExpr(e.Payload, out)
		}
	case *ast.CallExpr:
		for _, a := range e.Args {
			collectFuncLetsExpr(a, out)
		}
	case *ast.StringLit:
		for _, p := range e.Parts {
			if p.Expr != nil {
				collectFuncLetsExpr(p.Expr, out)
			}
		}
	case *ast.IsExpr:
		collectFuncLetsExpr(e.Scrutinee, out)
		for _, arm := range e.Arms {
			if arm.Guard != nil {
				collectFuncLetsExpr(arm.Guard, out)
			}
			collectFuncLetsExpr(arm.Body, out)
		}
	}
}

func (c *compiler) inferFunctionReturnTypes(decls []*funcDecl) {
	for _, d := range decls {
		env := newTypeEnv()
		for _, p := range d.lam.Params {
			env.set(p.Name, tUnknown)
		}
		c.funcReturnType[d.name] = bodyType(d.lam.Body, env, c.funcReturnType)
	}
}

// funcInfo is one compiled function, before the final byte layout (and
// its chunk_offset) is known.
type funcInfo struct {
	name       string
	paramCount int
	localCount int
	code       []byte
}

// scope is one lexical block of local bindings within a function: lambda
// parameters, `let` bindings, and is-arm pattern bindings.
type scope struct {
	parent *scope
	locals map[string]int // name -> local slot
}

func (s *scope) lookup(name string) (int, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if slot, ok := sc.locals[name]; ok {
			return slot, true
		}
	}
	return 0, false
}

// fcomp compiles one function (a top-level named function, a function
// nested inside another one, or main) to its bytecode.
type fcomp struct {
	c        *compiler
	scope    *scope
	env      *typeEnv
	nextSlot int
	enc      byteEncoder

	// aliases maps the names of functions nested directly in this
	// function's own body to their global function index (spec.md §4.2: "a
	// lambda used elsewhere is an anonymous function reachable only
	// through the assignment that captures it" — the assignment's name is
	// visible only within the function that contains it).
	aliases map[string]int
}

func (c *compiler) compileFunction(name string, params []ast.Ident, body ast.Expr, aliases map[string]int) (*funcInfo, error) {
	fc := &fcomp{c: c, scope: &scope{locals: map[string]int{}}, env: newTypeEnv(), aliases: aliases}
	for _, p := range params {
		fc.allocLocal(p.Name, tUnknown)
	}
	if err := fc.compileBody(body); err != nil {
		return nil, err
	}
	fc.enc.op(Ret)
	return &funcInfo{name: name, paramCount: len(params), localCount: fc.nextSlot, code: fc.enc.buf}, nil
}

// resolveFunc looks up name as a callable function, checking this
// function's own nested definitions before the global top-level table.
func (fc *fcomp) resolveFunc(name string) (int, bool) {
	if idx, ok := fc.aliases[name]; ok {
		return idx, true
	}
	return fc.c.funcIndex.Get(name)
}

func (fc *fcomp) allocLocal(name string, typ valueType) int {
	slot := fc.nextSlot
	fc.nextSlot++
	if name != "" {
		fc.scope.locals[name] = slot
		fc.env.set(name, typ)
	}
	return slot
}

func (fc *fcomp) pushScope() {
	fc.scope = &scope{parent: fc.scope, locals: map[string]int{}}
	fc.env = fc.env.child()
}

func (fc *fcomp) popScope() {
	fc.scope = fc.scope.parent
	fc.env = fc.env.parent
}

func (fc *fcomp) typeOf(e ast.Expr) valueType {
	return exprType(e, fc.env, fc.c.funcReturnType)
}

// compileBody compiles a lambda/is-arm/main body. A *ast.BlockExpr is a
// sequence of `let` bindings ending in an expression statement whose value
// becomes the function's result (spec.md §4.2); any other Expr is the
// function's sole result expression.
func (fc *fcomp) compileBody(body ast.Expr) error {
	block, ok := body.(*ast.BlockExpr)
	if !ok {
		return fc.compileExpr(body)
	}

	fc.pushScope()
	defer fc.popScope()

	if len(block.Stmts) == 0 {
		return &CompileError{Kind: MalformedChunk, Pos: block.Start, Msg: "function body has no statements"}
	}
	for i, st := range block.Stmts {
		last := i == len(block.Stmts)-1
		switch s := st.(type) {
		case *ast.LetStmt:
			if last {
				return &CompileError{Kind: MalformedChunk, Pos: s.NamePos, Msg: "function body must end with an expression, not a let binding"}
			}
			if err := fc.compileLet(s); err != nil {
				return err
			}
		case *ast.ExprStmt:
			if err := fc.compileExpr(s.X); err != nil {
				return err
			}
			if !last {
				fc.enc.op(Pop)
			}
		default:
			return &CompileError{Kind: MalformedChunk, Msg: "malformed statement survived parsing"}
		}
	}
	return nil
}

func (fc *fcomp) compileLet(s *ast.LetStmt) error {
	if _, ok := s.Value.(*ast.LambdaExpr); ok {
		// Already compiled as its own function chunk and registered in
		// fc.aliases by CompileChunk; the name resolves via resolveFunc.
		return nil
	}
	if err := fc.compileExpr(s.Value); err != nil {
		return err
	}
	typ := fc.typeOf(s.Value)
	slot := fc.allocLocal(s.Name, typ)
	fc.enc.op(SetValue)
	fc.enc.u8(byte(slot))
	return nil
}

func (fc *fcomp) compileExpr(e ast.Expr) error {
	switch e := e.(type) {
	case *ast.IntLit:
		fc.enc.op(PushInteger)
		fc.enc.i32(int32(e.Val))
		return nil
	case *ast.FloatLit:
		fc.enc.op(PushFloat)
		fc.enc.f64(e.Val)
		return nil
	case *ast.BoolLit:
		fc.enc.op(PushBoolean)
		if e.Val {
			fc.enc.u8(1)
		} else {
			fc.enc.u8(0)
		}
		return nil
	case *ast.StringLit:
		return fc.compileStringLit(e)
	case *ast.Ident:
		slot, ok := fc.scope.lookup(e.Name)
		if ok {
			fc.enc.op(GetValue)
			fc.enc.u8(byte(slot))
			return nil
		}
		if idx, ok := fc.resolveFunc(e.Name); ok {
			fc.enc.op(Function)
			fc.enc.u16(uint16(idx))
			fc.enc.u8(byte(fc.c.funcParamCount[idx]))
			return nil
		}
		return &CompileError{Kind: UnresolvedIdent, Pos: e.NamePos, Msg: fmt.Sprintf("unresolved identifier %q", e.Name)}
	case *ast.TagExpr:
		return fc.compileTagExpr(e)
	case *ast.LambdaExpr:
		return &CompileError{Kind: UnsupportedConstruct, Pos: e.Backslash, Msg: "anonymous lambda expressions must be bound by a let to become a reachable function"}
	case *ast.CallExpr:
		return fc.compileCallExpr(e)
	case *ast.UnaryExpr:
		return fc.compileUnaryExpr(e)
	case *ast.BinaryExpr:
		return fc.compileBinaryExpr(e)
	case *ast.ParenExpr:
		return fc.compileExpr(e.X)
	case *ast.IsExpr:
		return fc.compileIsExpr(e)
	case *ast.BlockExpr:
		return fc.compileBody(e)
	case *ast.BadExpr:
		return &CompileError{Kind: MalformedChunk, Pos: e.Start, Msg: "malformed expression survived parsing"}
	default:
		return &CompileError{Kind: MalformedChunk, Msg: fmt.Sprintf("unhandled expression node %T", e)}
	}
}

func (fc *fcomp) compileTagExpr(e *ast.TagExpr) error {
	if e.Payload == nil {
		fc.enc.op(PushSimpleTag)
		fc.enc.str(e.Name)
		return nil
	}
	if err := fc.compileExpr(e.Payload); err != nil {
		return err
	}
	fc.enc.op(PushTag)
	fc.enc.str(e.Name)
	return nil
}

func (fc *fcomp) compileCallExpr(e *ast.CallExpr) error {
	idx, ok := fc.resolveFunc(e.Func.Name)
	if !ok {
		return &CompileError{Kind: UnresolvedIdent, Pos: e.Func.NamePos, Msg: fmt.Sprintf("call to unresolved function %q", e.Func.Name)}
	}
	want := fc.c.funcParamCount[idx]
	if len(e.Args) != want {
		return &CompileError{Kind: ArityMismatch, Pos: e.Func.NamePos, Msg: fmt.Sprintf("%q expects %d argument(s), got %d", e.Func.Name, want, len(e.Args))}
	}
	for _, a := range e.Args {
		if err := fc.compileExpr(a); err != nil {
			return err
		}
	}
	fc.enc.op(Call)
	fc.enc.u8(0) // is_global: reserved for a future module system, always 0 (spec.md §9)
	fc.enc.u8(byte(len(e.Args)))
	fc.enc.u16(uint16(idx))
	return nil
}

func (fc *fcomp) compileUnaryExpr(e *ast.UnaryExpr) error {
	if e.Op == token.NOT {
		if err := fc.compileExpr(e.X); err != nil {
			return err
		}
		fc.enc.op(Not)
		return nil
	}
	// Unary minus: no dedicated opcode exists, so it lowers to `0 - x`
	// using whichever arithmetic opcode the operand's type selects.
	typ := fc.typeOf(e.X)
	switch typ {
	case tFloat:
		fc.enc.op(PushFloat)
		fc.enc.f64(0)
	default:
		fc.enc.op(PushInteger)
		fc.enc.i32(0)
	}
	if err := fc.compileExpr(e.X); err != nil {
		return err
	}
	if typ == tFloat {
		fc.enc.op(SubFloat)
	} else {
		fc.enc.op(SubInt)
	}
	return nil
}

func (fc *fcomp) compileBinaryExpr(e *ast.BinaryExpr) error {
	switch e.Op {
	case token.AND, token.OR:
		if err := fc.compileExpr(e.Left); err != nil {
			return err
		}
		if err := fc.compileExpr(e.Right); err != nil {
			return err
		}
		if e.Op == token.AND {
			fc.enc.op(And)
		} else {
			fc.enc.op(Or)
		}
		return nil
	case token.EQEQ, token.NEQ:
		if err := fc.compileExpr(e.Left); err != nil {
			return err
		}
		if err := fc.compileExpr(e.Right); err != nil {
			return err
		}
		fc.enc.op(Eq)
		if e.Op == token.NEQ {
			fc.enc.op(Not)
		}
		return nil
	case token.LT, token.GT, token.LE, token.GE, token.FLT_LT, token.FLT_GT, token.FLT_LE, token.FLT_GE:
		if err := fc.compileExpr(e.Left); err != nil {
			return err
		}
		if err := fc.compileExpr(e.Right); err != nil {
			return err
		}
		fc.enc.op(orderingOpcode(e.Op))
		return nil
	default:
		return fc.compileArithmetic(e)
	}
}

func orderingOpcode(op token.Token) Opcode {
	switch op {
	case token.LT:
		return LtInt
	case token.GT:
		return GtInt
	case token.LE:
		return LeInt
	case token.GE:
		return GeInt
	case token.FLT_LT:
		return LtFloat
	case token.FLT_GT:
		return GtFloat
	case token.FLT_LE:
		return LeFloat
	case token.FLT_GE:
		return GeFloat
	default:
		panic("orderingOpcode: not an ordering token")
	}
}

// compileArithmetic picks the int or float variant of `+ - * /` by
// inferring both operands' static type (spec.md §4.3/§9): a concrete
// int/float mismatch is a CompileError, `%` is accepted for integers only,
// and the float opcode is used when either operand is known to be a float.
// When neither is (e.g. both are forward-referenced function calls), the
// integer opcode is used, matching every arithmetic use in the corpus.
func (fc *fcomp) compileArithmetic(e *ast.BinaryExpr) error {
	if err := fc.compileExpr(e.Left); err != nil {
		return err
	}
	if err := fc.compileExpr(e.Right); err != nil {
		return err
	}

	lt, rt := fc.typeOf(e.Left), fc.typeOf(e.Right)
	isFloat := lt == tFloat || rt == tFloat
	if lt != tUnknown && rt != tUnknown && lt != rt {
		return &CompileError{Kind: TypeMismatch, Pos: e.OpPos, Msg: fmt.Sprintf("mismatched operand types for %s", e.Op)}
	}

	if e.Op == token.PERCENT {
		if isFloat {
			return &CompileError{Kind: TypeMismatch, Pos: e.OpPos, Msg: "'%' is defined only for integers"}
		}
		fc.enc.op(ModInt)
		return nil
	}

	var op Opcode
	switch {
	case isFloat && e.Op == token.PLUS:
		op = AddFloat
	case isFloat && e.Op == token.MINUS:
		op = SubFloat
	case isFloat && e.Op == token.STAR:
		op = MulFloat
	case isFloat && e.Op == token.SLASH:
		op = DivFloat
	case e.Op == token.PLUS:
		op = AddInt
	case e.Op == token.MINUS:
		op = SubInt
	case e.Op == token.STAR:
		op = MulInt
	case e.Op == token.SLASH:
		op = DivInt
	default:
		return &CompileError{Kind: MalformedChunk, Pos: e.OpPos, Msg: fmt.Sprintf("unexpected arithmetic operator %s", e.Op)}
	}
	fc.enc.op(op)
	return nil
}

// compileStringLit lowers string interpolation to the push_string /
// evaluate / to_string / str_concat chain spec.md §4.3 describes, always
// starting with the (possibly empty) literal prefix and always ending
// with a str_concat of a trailing empty string so the concatenation
// count is uniform regardless of how many interpolations the literal has.
func (fc *fcomp) compileStringLit(e *ast.StringLit) error {
	prefix := ""
	rest := e.Parts
	if len(rest) > 0 && rest[0].Expr == nil {
		prefix = rest[0].Text
		rest = rest[1:]
	}
	fc.enc.op(PushString)
	fc.enc.str(prefix)

	for _, part := range rest {
		if part.Expr != nil {
			if err := fc.compileExpr(part.Expr); err != nil {
				return err
			}
			fc.enc.op(ToString)
		} else {
			fc.enc.op(PushString)
			fc.enc.str(part.Text)
		}
		fc.enc.op(StrConcat)
	}

	fc.enc.op(PushString)
	fc.enc.str("")
	fc.enc.op(StrConcat)
	return nil
}

// jumpPatch records the byte offset of a 2-byte jump operand that must be
// rewritten once its target address is known.
type jumpPatch int

func (fc *fcomp) emitJump(op Opcode) jumpPatch {
	fc.enc.op(op)
	p := jumpPatch(len(fc.enc.buf))
	fc.enc.i16(0)
	return p
}

// patchJumpTo rewrites the jump at p to target, relative to the byte
// immediately after the 2-byte offset field (spec.md §4.4's jump encoding).
func (fc *fcomp) patchJumpTo(p jumpPatch, target int) {
	from := int(p) + 2
	offset := target - from
	binary.BigEndian.PutUint16(fc.enc.buf[p:p+2], uint16(int16(offset)))
}

// compileIsExpr lowers a pattern match to the linear test-and-jump chain
// spec.md §4.3 specifies. The scrutinee is evaluated once into a local slot
// (reusing the slot directly when the scrutinee is already a bare local
// reference); every arm that binds a payload or identifier gets its own
// fresh local slot — spec.md §4.3 is explicit that "local indices are never
// reused across arms in this core".
func (fc *fcomp) compileIsExpr(e *ast.IsExpr) error {
	scrutSlot, _, err := fc.compileScrutinee(e.Scrutinee)
	if err != nil {
		return err
	}

	var matchEndJumps []jumpPatch
	var pendingArmEndPatches []jumpPatch

	for _, arm := range e.Arms {
		// Resolve the previous arm's ARM_END jumps to this arm's start.
		armStart := len(fc.enc.buf)
		for _, p := range pendingArmEndPatches {
			fc.patchJumpTo(p, armStart)
		}
		pendingArmEndPatches = nil

		binds, bindName := patternBinds(arm.Pattern)
		unconditional := isCatchAll(arm.Pattern)

		if !isWildcard(arm.Pattern) {
			fc.enc.op(GetValue)
			fc.enc.u8(byte(scrutSlot))
		}

		if !unconditional {
			if err := fc.compilePatternTest(arm.Pattern); err != nil {
				return err
			}
			pendingArmEndPatches = append(pendingArmEndPatches, fc.emitJump(JumpIfFalse))
		}

		var armSlot int
		if binds {
			armSlot = fc.allocLocal("", tUnknown)
			if err := fc.compilePatternBind(arm.Pattern, scrutSlot, armSlot); err != nil {
				return err
			}
		}

		fc.pushScope()
		if binds {
			fc.scope.locals[bindName] = armSlot
			fc.env.set(bindName, tUnknown)
		}
		if arm.Guard != nil {
			if err := fc.compileExpr(arm.Guard); err != nil {
				fc.popScope()
				return err
			}
			pendingArmEndPatches = append(pendingArmEndPatches, fc.emitJump(JumpIfFalse))
		}
		if err := fc.compileExpr(arm.Body); err != nil {
			fc.popScope()
			return err
		}
		fc.popScope()

		matchEndJumps = append(matchEndJumps, fc.emitJump(Jump))
	}

	// Fallthrough: no arm matched and none was a catch-all/wildcard.
	matchFailPos := len(fc.enc.buf)
	for _, p := range pendingArmEndPatches {
		fc.patchJumpTo(p, matchFailPos)
	}
	fc.enc.op(MatchFail)

	matchEnd := len(fc.enc.buf)
	for _, p := range matchEndJumps {
		fc.patchJumpTo(p, matchEnd)
	}
	return nil
}

// compileScrutinee evaluates the is-expression's scrutinee into a local
// slot, reusing an existing local's slot directly when the scrutinee is
// already a bare identifier (spec.md §9: "get_value (index 0) is reused
// for the scrutinee").
func (fc *fcomp) compileScrutinee(e ast.Expr) (slot int, isNew bool, err error) {
	if id, ok := e.(*ast.Ident); ok {
		if s, ok := fc.scope.lookup(id.Name); ok {
			return s, false, nil
		}
	}
	if err := fc.compileExpr(e); err != nil {
		return 0, false, err
	}
	slot = fc.allocLocal("", fc.typeOf(e))
	fc.enc.op(SetValue)
	fc.enc.u8(byte(slot))
	return slot, true, nil
}

func isWildcard(p ast.Pattern) bool {
	_, ok := p.(*ast.WildcardPattern)
	return ok
}

// isCatchAll reports whether p matches unconditionally: a wildcard or a
// bare identifier binding (spec.md §4.3).
func isCatchAll(p ast.Pattern) bool {
	switch p.(type) {
	case *ast.WildcardPattern, *ast.IdentPattern:
		return true
	default:
		return false
	}
}

// patternBinds reports whether p binds a name, and which one.
func patternBinds(p ast.Pattern) (bool, string) {
	switch p := p.(type) {
	case *ast.IdentPattern:
		return true, p.Name
	case *ast.TagPattern:
		if ip, ok := p.Payload.(*ast.IdentPattern); ok {
			return true, ip.Name
		}
		return false, ""
	default:
		return false, ""
	}
}

// compilePatternTest emits the discriminator test for a non-catch-all
// pattern, leaving a Boolean on top of the stack. The scrutinee value has
// already been pushed by the caller.
func (fc *fcomp) compilePatternTest(p ast.Pattern) error {
	switch p := p.(type) {
	case *ast.LiteralPattern:
		if err := fc.compileExpr(p.Lit); err != nil {
			return err
		}
		fc.enc.op(Eq)
		return nil
	case *ast.SimpleTagPattern:
		fc.enc.op(PushSimpleTag)
		fc.enc.str(p.Name)
		fc.enc.op(Eq)
		return nil
	case *ast.TagPattern:
		switch payload := p.Payload.(type) {
		case *ast.IdentPattern:
			fc.enc.op(GetTagName)
			fc.enc.op(PushString)
			fc.enc.str(p.Name)
			fc.enc.op(Eq)
			return nil
		default:
			if lit, ok := payload.(*ast.LiteralPattern); ok {
				if err := fc.compileExpr(lit.Lit); err != nil {
					return err
				}
			} else {
				return &CompileError{Kind: UnsupportedConstruct, Pos: p.Pos, Msg: "tag payload pattern must be a literal or identifier"}
			}
			fc.enc.op(PushTag)
			fc.enc.str(p.Name)
			fc.enc.op(Eq)
			return nil
		}
	default:
		return &CompileError{Kind: MalformedChunk, Msg: fmt.Sprintf("unexpected pattern kind %T in test position", p)}
	}
}

// compilePatternBind emits the binding sequence for a pattern that binds a
// name, once its test (if any) has already succeeded.
func (fc *fcomp) compilePatternBind(p ast.Pattern, scrutSlot, scratchSlot int) error {
	switch p.(type) {
	case *ast.TagPattern:
		fc.enc.op(GetValue)
		fc.enc.u8(byte(scrutSlot))
		fc.enc.op(GetTagPayload)
		fc.enc.op(SetValue)
		fc.enc.u8(byte(scratchSlot))
		return nil
	case *ast.IdentPattern:
		// The scrutinee is already on the stack from the caller's
		// unconditional get_value; consume it directly.
		fc.enc.op(SetValue)
		fc.enc.u8(byte(scratchSlot))
		return nil
	default:
		return &CompileError{Kind: MalformedChunk, Msg: fmt.Sprintf("unexpected pattern kind %T in bind position", p)}
	}
}

// link lays out the final program bytes: the signature table, then the
// main chunk, then every named function's chunk (spec.md §4.3's layout).
func (c *compiler) link(main *funcInfo, funcs []*funcInfo) *Program {
	sig := &byteEncoder{}
	offsetPatches := make([]int, len(funcs))
	for i, fi := range funcs {
		sig.op(FunctionSignature)
		sig.str(fi.name)
		sig.u8(byte(fi.localCount))
		offsetPatches[i] = len(sig.buf)
		sig.u16(0)
	}

	mainHeaderLen := uint32(1 + 1 + len("main") + 1)
	mainChunkStart := sig.len()
	cursor := mainChunkStart + mainHeaderLen + uint32(len(main.code))

	offsets := make([]uint32, len(funcs))
	for i, fi := range funcs {
		offsets[i] = cursor
		headerLen := uint32(1 + 1 + len(fi.name) + 1)
		cursor += headerLen + uint32(len(fi.code))
	}
	for i, patchPos := range offsetPatches {
		binary.BigEndian.PutUint16(sig.buf[patchPos:patchPos+2], uint16(offsets[i]))
	}

	out := make([]byte, 0, cursor)
	out = append(out, sig.buf...)
	out = append(out, byte(FunctionChunkHeader), byte(len("main")))
	out = append(out, "main"...)
	out = append(out, byte(main.localCount))
	out = append(out, main.code...)
	for _, fi := range funcs {
		out = append(out, byte(FunctionChunkHeader), byte(len(fi.name)))
		out = append(out, fi.name...)
		out = append(out, byte(fi.localCount))
		out = append(out, fi.code...)
	}

	entries := make([]FuncTableEntry, len(funcs))
	for i, fi := range funcs {
		entries[i] = FuncTableEntry{Name: fi.name, LocalCount: uint8(fi.localCount), ChunkOffset: offsets[i]}
	}

	return &Program{
		Code:           out,
		Functions:      entries,
		MainLocalCount: uint8(main.localCount),
		MainCodeStart:  mainChunkStart + mainHeaderLen,
	}
}
