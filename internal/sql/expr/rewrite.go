package expr

// Children returns the direct sub-expressions of e.
func Children(e Expression) []Expression {
	switch e := e.(type) {
	case *BinaryOp:
		return []Expression{e.Left, e.Right}
	case *UnaryOp:
		return []Expression{e.Expr}
	case *FunctionCall:
		return e.Args
	default:
		return nil
	}
}

// Walk visits e and its sub-expressions in pre-order. Returning false from
// fn skips the sub-expressions of the current node.
func Walk(e Expression, fn func(Expression) bool) {
	if !fn(e) {
		return
	}
	for _, child := range Children(e) {
		Walk(child, fn)
	}
}

// Rewrite rebuilds e bottom-up through fn. fn is offered every node before
// its children; when it returns a replacement and true, the replacement is
// used as is and the original children are not visited.
func Rewrite(e Expression, fn func(Expression) (Expression, bool)) Expression {
	if replaced, ok := fn(e); ok {
		return replaced
	}

	switch e := e.(type) {
	case *BinaryOp:
		left := Rewrite(e.Left, fn)
		right := Rewrite(e.Right, fn)
		if left == e.Left && right == e.Right {
			return e
		}
		return &BinaryOp{Left: left, Right: right, Operator: e.Operator}

	case *UnaryOp:
		operand := Rewrite(e.Expr, fn)
		if operand == e.Expr {
			return e
		}
		return &UnaryOp{Expr: operand, Operator: e.Operator}

	case *FunctionCall:
		changed := false
		args := make([]Expression, len(e.Args))
		for i, arg := range e.Args {
			args[i] = Rewrite(arg, fn)
			changed = changed || args[i] != arg
		}
		if !changed {
			return e
		}
		return &FunctionCall{Name: e.Name, Args: args}

	default:
		return e
	}
}

// ColumnReferences returns the column references in e in pre-order.
func ColumnReferences(e Expression) []*ColumnReference {
	var refs []*ColumnReference
	Walk(e, func(node Expression) bool {
		if ref, ok := node.(*ColumnReference); ok {
			refs = append(refs, ref)
		}
		return true
	})
	return refs
}

// FunctionCalls returns the calls in e accepted by match, outermost first.
// Arguments of a matched call are not searched.
func FunctionCalls(e Expression, match func(*FunctionCall) bool) []*FunctionCall {
	var calls []*FunctionCall
	Walk(e, func(node Expression) bool {
		if call, ok := node.(*FunctionCall); ok && match(call) {
			calls = append(calls, call)
			return false
		}
		return true
	})
	return calls
}
