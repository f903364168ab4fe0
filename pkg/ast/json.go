package ast

import (
	"encoding/json"
	"fmt"
)

// DecodeProgram parses a JSON-encoded program into a *Program. The wire
// format mirrors the langlang LSP's tagged-envelope pattern (a "node"
// discriminator plus a json.RawMessage body decoded by a second pass)
// rather than anything Go's json package does natively, since Statement
// and Expression are interfaces and encoding/json cannot pick a concrete
// type for an interface field on its own.
//
// This exists because the lexer and parser that would normally produce a
// Program from Kronos source text are a separate front end; cmd/kronos
// reads this JSON form directly so the compiler and VM can be exercised
// without reimplementing that front end here.
func DecodeProgram(data []byte) (*Program, error) {
	var env struct {
		Statements []json.RawMessage `json:"statements"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("ast: decode program: %w", err)
	}
	stmts, err := decodeStatements(env.Statements)
	if err != nil {
		return nil, err
	}
	return &Program{Statements: stmts}, nil
}

type envelope struct {
	Node string          `json:"node"`
	Body json.RawMessage `json:"-"`
}

// DecodeStatement parses a single JSON-encoded statement node, for callers
// (the REPL) that accept one statement at a time rather than a whole
// Program envelope.
func DecodeStatement(data []byte) (Statement, error) {
	return decodeStatement(json.RawMessage(data))
}

// tagged peeks the "node" discriminator without consuming the body, so
// callers can re-unmarshal raw into a node-specific struct.
func tagged(raw json.RawMessage) (string, error) {
	var e struct {
		Node string `json:"node"`
	}
	if err := json.Unmarshal(raw, &e); err != nil {
		return "", fmt.Errorf("ast: decode node tag: %w", err)
	}
	if e.Node == "" {
		return "", fmt.Errorf("ast: node object missing \"node\" field")
	}
	return e.Node, nil
}

func decodeStatements(raws []json.RawMessage) ([]Statement, error) {
	out := make([]Statement, 0, len(raws))
	for _, raw := range raws {
		s, err := decodeStatement(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func decodeExpressions(raws []json.RawMessage) ([]Expression, error) {
	out := make([]Expression, 0, len(raws))
	for _, raw := range raws {
		e, err := decodeExpression(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func decodeExpression(raw json.RawMessage) (Expression, error) {
	kind, err := tagged(raw)
	if err != nil {
		return nil, err
	}
	switch kind {
	case "Number":
		var n struct {
			Value float64 `json:"value"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		return &Number{Value: n.Value}, nil

	case "String":
		var s struct {
			Value string `json:"value"`
		}
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		return &String{Value: s.Value}, nil

	case "FString":
		var f struct {
			Parts []json.RawMessage `json:"parts"`
		}
		if err := json.Unmarshal(raw, &f); err != nil {
			return nil, err
		}
		parts := make([]Node, 0, len(f.Parts))
		for _, p := range f.Parts {
			kind, err := tagged(p)
			if err != nil {
				return nil, err
			}
			if kind == "String" {
				var s struct {
					Value string `json:"value"`
				}
				if err := json.Unmarshal(p, &s); err != nil {
					return nil, err
				}
				parts = append(parts, &String{Value: s.Value})
				continue
			}
			e, err := decodeExpression(p)
			if err != nil {
				return nil, err
			}
			parts = append(parts, e)
		}
		return &FString{Parts: parts}, nil

	case "Bool":
		var b struct {
			Value bool `json:"value"`
		}
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, err
		}
		return &Bool{Value: b.Value}, nil

	case "Null":
		return &Null{}, nil

	case "Var":
		var v struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return &Var{Name: v.Name}, nil

	case "BinOp":
		var b struct {
			Op    string          `json:"op"`
			Left  json.RawMessage `json:"left"`
			Right json.RawMessage `json:"right"`
		}
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, err
		}
		op, err := binOpKindFromString(b.Op)
		if err != nil {
			return nil, err
		}
		left, err := decodeExpression(b.Left)
		if err != nil {
			return nil, err
		}
		var right Expression
		if len(b.Right) > 0 {
			right, err = decodeExpression(b.Right)
			if err != nil {
				return nil, err
			}
		}
		return &BinOp{Op: op, Left: left, Right: right}, nil

	case "List":
		var l struct {
			Elements []json.RawMessage `json:"elements"`
		}
		if err := json.Unmarshal(raw, &l); err != nil {
			return nil, err
		}
		elems, err := decodeExpressions(l.Elements)
		if err != nil {
			return nil, err
		}
		return &List{Elements: elems}, nil

	case "Map":
		var m struct {
			Keys   []json.RawMessage `json:"keys"`
			Values []json.RawMessage `json:"values"`
		}
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		keys, err := decodeExpressions(m.Keys)
		if err != nil {
			return nil, err
		}
		values, err := decodeExpressions(m.Values)
		if err != nil {
			return nil, err
		}
		return &Map{Keys: keys, Values: values}, nil

	case "Index":
		var i struct {
			List  json.RawMessage `json:"list"`
			Index json.RawMessage `json:"index"`
		}
		if err := json.Unmarshal(raw, &i); err != nil {
			return nil, err
		}
		listExpr, err := decodeExpression(i.List)
		if err != nil {
			return nil, err
		}
		idxExpr, err := decodeExpression(i.Index)
		if err != nil {
			return nil, err
		}
		return &Index{ListExpr: listExpr, IndexExp: idxExpr}, nil

	case "Slice":
		var s struct {
			List  json.RawMessage `json:"list"`
			Start json.RawMessage `json:"start"`
			End   json.RawMessage `json:"end"`
		}
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		listExpr, err := decodeExpression(s.List)
		if err != nil {
			return nil, err
		}
		startExpr, err := decodeExpression(s.Start)
		if err != nil {
			return nil, err
		}
		var endExpr Expression
		if len(s.End) > 0 {
			endExpr, err = decodeExpression(s.End)
			if err != nil {
				return nil, err
			}
		}
		return &Slice{ListExpr: listExpr, Start: startExpr, End: endExpr}, nil

	case "Call":
		var c struct {
			Name string            `json:"name"`
			Args []json.RawMessage `json:"args"`
		}
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, err
		}
		args, err := decodeExpressions(c.Args)
		if err != nil {
			return nil, err
		}
		return &Call{Name: c.Name, Args: args}, nil

	default:
		return nil, fmt.Errorf("ast: unknown expression node %q", kind)
	}
}

func decodeStatement(raw json.RawMessage) (Statement, error) {
	kind, err := tagged(raw)
	if err != nil {
		return nil, err
	}
	switch kind {
	case "ExpressionStatement":
		var e struct {
			Expression json.RawMessage `json:"expression"`
		}
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, err
		}
		expr, err := decodeExpression(e.Expression)
		if err != nil {
			return nil, err
		}
		return &ExpressionStatement{Expression: expr}, nil

	case "CallStatement":
		var c struct {
			Call json.RawMessage `json:"call"`
		}
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, err
		}
		expr, err := decodeExpression(c.Call)
		if err != nil {
			return nil, err
		}
		call, ok := expr.(*Call)
		if !ok {
			return nil, fmt.Errorf("ast: CallStatement.call must be a Call node")
		}
		return &CallStatement{Call: call}, nil

	case "Assign":
		var a struct {
			Name      string          `json:"name"`
			Value     json.RawMessage `json:"value"`
			IsMutable bool            `json:"mutable"`
			HasType   bool            `json:"hasType"`
			TypeName  string          `json:"typeName"`
		}
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, err
		}
		value, err := decodeExpression(a.Value)
		if err != nil {
			return nil, err
		}
		return &Assign{Name: a.Name, Value: value, IsMutable: a.IsMutable, HasType: a.HasType, TypeName: a.TypeName}, nil

	case "Print":
		var p struct {
			Value json.RawMessage `json:"value"`
		}
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		value, err := decodeExpression(p.Value)
		if err != nil {
			return nil, err
		}
		return &Print{Value: value}, nil

	case "If":
		var i struct {
			Condition        json.RawMessage   `json:"condition"`
			Block            []json.RawMessage `json:"block"`
			ElseIfConditions []json.RawMessage `json:"elseIfConditions"`
			ElseIfBlocks     [][]json.RawMessage `json:"elseIfBlocks"`
			ElseBlock        []json.RawMessage `json:"elseBlock"`
		}
		if err := json.Unmarshal(raw, &i); err != nil {
			return nil, err
		}
		cond, err := decodeExpression(i.Condition)
		if err != nil {
			return nil, err
		}
		block, err := decodeStatements(i.Block)
		if err != nil {
			return nil, err
		}
		elseIfConds, err := decodeExpressions(i.ElseIfConditions)
		if err != nil {
			return nil, err
		}
		elseIfBlocks := make([][]Statement, 0, len(i.ElseIfBlocks))
		for _, b := range i.ElseIfBlocks {
			decoded, err := decodeStatements(b)
			if err != nil {
				return nil, err
			}
			elseIfBlocks = append(elseIfBlocks, decoded)
		}
		var elseBlock []Statement
		if i.ElseBlock != nil {
			elseBlock, err = decodeStatements(i.ElseBlock)
			if err != nil {
				return nil, err
			}
		}
		return &If{
			Condition:        cond,
			Block:            block,
			ElseIfConditions: elseIfConds,
			ElseIfBlocks:     elseIfBlocks,
			ElseBlock:        elseBlock,
		}, nil

	case "For":
		var f struct {
			Var      string            `json:"var"`
			IsRange  bool              `json:"isRange"`
			Start    json.RawMessage   `json:"start"`
			End      json.RawMessage   `json:"end"`
			Iterable json.RawMessage   `json:"iterable"`
			Block    []json.RawMessage `json:"block"`
		}
		if err := json.Unmarshal(raw, &f); err != nil {
			return nil, err
		}
		block, err := decodeStatements(f.Block)
		if err != nil {
			return nil, err
		}
		node := &For{Var: f.Var, IsRange: f.IsRange, Block: block}
		if f.IsRange {
			node.Start, err = decodeExpression(f.Start)
			if err != nil {
				return nil, err
			}
			node.End, err = decodeExpression(f.End)
			if err != nil {
				return nil, err
			}
		} else {
			node.Iterable, err = decodeExpression(f.Iterable)
			if err != nil {
				return nil, err
			}
		}
		return node, nil

	case "While":
		var w struct {
			Condition json.RawMessage   `json:"condition"`
			Block     []json.RawMessage `json:"block"`
		}
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		cond, err := decodeExpression(w.Condition)
		if err != nil {
			return nil, err
		}
		block, err := decodeStatements(w.Block)
		if err != nil {
			return nil, err
		}
		return &While{Condition: cond, Block: block}, nil

	case "Function":
		var f struct {
			Name   string            `json:"name"`
			Params []string          `json:"params"`
			Block  []json.RawMessage `json:"block"`
		}
		if err := json.Unmarshal(raw, &f); err != nil {
			return nil, err
		}
		block, err := decodeStatements(f.Block)
		if err != nil {
			return nil, err
		}
		return &Function{Name: f.Name, Params: f.Params, ParamCount: len(f.Params), Block: block}, nil

	case "Return":
		var r struct {
			Value json.RawMessage `json:"value"`
		}
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil, err
		}
		var value Expression
		if len(r.Value) > 0 {
			value, err = decodeExpression(r.Value)
			if err != nil {
				return nil, err
			}
		}
		return &Return{Value: value}, nil

	case "Import":
		var i struct {
			ModuleName string `json:"moduleName"`
			FilePath   string `json:"filePath"`
		}
		if err := json.Unmarshal(raw, &i); err != nil {
			return nil, err
		}
		return &Import{ModuleName: i.ModuleName, FilePath: i.FilePath}, nil

	case "Try":
		var t struct {
			TryBlock    []json.RawMessage `json:"tryBlock"`
			CatchBlocks []struct {
				CatchVar   string            `json:"catchVar"`
				CatchBlock []json.RawMessage `json:"catchBlock"`
			} `json:"catchBlocks"`
			FinallyBlock []json.RawMessage `json:"finallyBlock"`
		}
		if err := json.Unmarshal(raw, &t); err != nil {
			return nil, err
		}
		tryBlock, err := decodeStatements(t.TryBlock)
		if err != nil {
			return nil, err
		}
		catches := make([]CatchBlock, 0, len(t.CatchBlocks))
		for _, c := range t.CatchBlocks {
			block, err := decodeStatements(c.CatchBlock)
			if err != nil {
				return nil, err
			}
			catches = append(catches, CatchBlock{CatchVar: c.CatchVar, CatchBlock: block})
		}
		var finally []Statement
		if t.FinallyBlock != nil {
			finally, err = decodeStatements(t.FinallyBlock)
			if err != nil {
				return nil, err
			}
		}
		return &Try{TryBlock: tryBlock, CatchBlocks: catches, FinallyBlock: finally}, nil

	case "Raise":
		var r struct {
			Message json.RawMessage `json:"message"`
		}
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil, err
		}
		message, err := decodeExpression(r.Message)
		if err != nil {
			return nil, err
		}
		return &Raise{Message: message}, nil

	default:
		return nil, fmt.Errorf("ast: unknown statement node %q", kind)
	}
}

func binOpKindFromString(s string) (BinOpKind, error) {
	switch s {
	case "add":
		return OpAdd, nil
	case "sub":
		return OpSub, nil
	case "mul":
		return OpMul, nil
	case "div":
		return OpDiv, nil
	case "mod":
		return OpMod, nil
	case "eq":
		return OpEq, nil
	case "neq":
		return OpNeq, nil
	case "gt":
		return OpGt, nil
	case "lt":
		return OpLt, nil
	case "gte":
		return OpGte, nil
	case "lte":
		return OpLte, nil
	case "and":
		return OpAnd, nil
	case "or":
		return OpOr, nil
	case "not":
		return OpNot, nil
	case "neg":
		return OpNeg, nil
	default:
		return 0, fmt.Errorf("ast: unknown binop %q", s)
	}
}
