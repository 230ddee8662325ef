package compiler

import (
	"github.com/anissen/delta/lang/ast"
	"github.com/anissen/delta/lang/token"
)

// typeEnv is a chain of lexical scopes mapping a local name to its
// inferred valueType, used only to pick between the int and float
// variants of the arithmetic opcodes (spec.md §4.3/§9). It is discarded
// once compileFunction for one function finishes; it never escapes to
// runtime.
type typeEnv struct {
	parent *typeEnv
	vars   map[string]valueType
}

func newTypeEnv() *typeEnv {
	return &typeEnv{vars: make(map[string]valueType)}
}

func (e *typeEnv) child() *typeEnv {
	return &typeEnv{parent: e, vars: make(map[string]valueType)}
}

func (e *typeEnv) set(name string, t valueType) {
	if name != "" {
		e.vars[name] = t
	}
}

func (e *typeEnv) get(name string) valueType {
	for s := e; s != nil; s = s.parent {
		if t, ok := s.vars[name]; ok {
			return t
		}
	}
	return tUnknown
}

// exprType infers e's static type on a best-effort basis. It never fails:
// an expression whose type cannot be determined (a forward call to a
// function whose return type hasn't been inferred yet, or a call to an
// unknown name) reports tUnknown, and compileArithmetic falls back to
// integer opcodes in that case.
func exprType(e ast.Expr, env *typeEnv, fnReturn map[string]valueType) valueType {
	switch e := e.(type) {
	case *ast.IntLit:
		return tInt
	case *ast.FloatLit:
		return tFloat
	case *ast.BoolLit:
		return tBool
	case *ast.StringLit:
		return tString
	case *ast.TagExpr:
		return tTag
	case *ast.Ident:
		return env.get(e.Name)
	case *ast.ParenExpr:
		return exprType(e.X, env, fnReturn)
	case *ast.UnaryExpr:
		if e.Op == token.NOT {
			return tBool
		}
		return exprType(e.X, env, fnReturn)
	case *ast.BinaryExpr:
		switch {
		case e.Op.IsComparison(), e.Op == token.AND, e.Op == token.OR:
			return tBool
		default:
			lt := exprType(e.Left, env, fnReturn)
			if lt != tUnknown {
				return lt
			}
			return exprType(e.Right, env, fnReturn)
		}
	case *ast.CallExpr:
		if t, ok := fnReturn[e.Func.Name]; ok {
			return t
		}
		return tUnknown
	case *ast.BlockExpr:
		return blockType(e, env, fnReturn)
	case *ast.IsExpr:
		var t valueType
		for i, arm := range e.Arms {
			armEnv := env.child()
			bindArmType(arm.Pattern, armEnv)
			at := exprType(arm.Body, armEnv, fnReturn)
			if i == 0 {
				t = at
			} else if t != at {
				return tUnknown
			}
		}
		return t
	default:
		return tUnknown
	}
}

func bindArmType(p ast.Pattern, env *typeEnv) {
	switch p := p.(type) {
	case *ast.IdentPattern:
		env.set(p.Name, tUnknown)
	case *ast.TagPattern:
		if ip, ok := p.Payload.(*ast.IdentPattern); ok {
			env.set(ip.Name, tUnknown)
		}
	}
}

// blockType infers the type of a BlockExpr's final expression statement.
func blockType(b *ast.BlockExpr, env *typeEnv, fnReturn map[string]valueType) valueType {
	child := env.child()
	var last ast.Expr
	for _, st := range b.Stmts {
		switch s := st.(type) {
		case *ast.LetStmt:
			child.set(s.Name, exprType(s.Value, child, fnReturn))
		case *ast.ExprStmt:
			last = s.X
		}
	}
	if last == nil {
		return tUnknown
	}
	return exprType(last, child, fnReturn)
}

// bodyType infers the type of a lambda/is-arm body, which is either a
// bare Expr or a BlockExpr.
func bodyType(body ast.Expr, env *typeEnv, fnReturn map[string]valueType) valueType {
	if b, ok := body.(*ast.BlockExpr); ok {
		return blockType(b, env, fnReturn)
	}
	return exprType(body, env, fnReturn)
}
