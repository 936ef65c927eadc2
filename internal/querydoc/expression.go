package querydoc

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/roach88/querykit/internal/expr"
)

// operand decodes n where a bare string is a column path.
func operand(field string, n *yaml.Node) (expr.Expression, error) {
	if n.Kind == yaml.ScalarNode && n.Tag == "!!str" {
		if n.Value == "" {
			return nil, nodeError(field, n, "empty column path")
		}
		return expr.Path(n.Value), nil
	}
	return expression(field, n)
}

// argument decodes n where a bare scalar is a constant.
func argument(field string, n *yaml.Node) (expr.Expression, error) {
	if n.Kind == yaml.ScalarNode {
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, nodeError(field, n, err.Error())
		}
		return expr.Constant{Value: v}, nil
	}
	return expression(field, n)
}

func operands(field string, nodes []yaml.Node) ([]expr.Expression, error) {
	out := make([]expr.Expression, len(nodes))
	for i := range nodes {
		e, err := operand(field, &nodes[i])
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

// expression decodes the mapping forms: {col: path}, {value: x} and
// {<operator>: [operand, args...]}.
func expression(field string, n *yaml.Node) (expr.Expression, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, nodeError(field, n, err.Error())
		}
		return expr.Constant{Value: v}, nil
	case yaml.MappingNode:
	default:
		return nil, nodeError(field, n, "expected a column, a constant or a single-key operator map")
	}

	if len(n.Content) != 2 {
		return nil, nodeError(field, n, "expression maps must have exactly one key")
	}
	key, body := n.Content[0], n.Content[1]

	switch key.Value {
	case "col":
		if body.Kind != yaml.ScalarNode || body.Value == "" {
			return nil, nodeError(field, body, "col expects a column path")
		}
		return expr.Path(body.Value), nil
	case "value":
		var v any
		if err := body.Decode(&v); err != nil {
			return nil, nodeError(field, body, err.Error())
		}
		return expr.Constant{Value: v}, nil
	}

	op, err := expr.ParseOperator(key.Value)
	if err != nil {
		return nil, nodeError(field, key, err.Error())
	}

	items := []*yaml.Node{body}
	if body.Kind == yaml.SequenceNode {
		items = body.Content
	}
	if len(items) == 0 {
		return nil, nodeError(field, body, fmt.Sprintf("%s needs an operand", op.Name()))
	}

	left, err := operand(field, items[0])
	if err != nil {
		return nil, err
	}
	var args []expr.Expression
	for _, item := range items[1:] {
		arg, err := argument(field, item)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
	if err := checkArity(op, len(args)); err != nil {
		return nil, nodeError(field, key, err.Error())
	}
	return expr.Operate(left, op, args...), nil
}

// checkArity rejects argument counts no renderer could accept.
func checkArity(op expr.Operator, n int) error {
	switch op.Family() {
	case expr.FamilyUnary, expr.FamilyPostfix:
		if n != 0 {
			return fmt.Errorf("%s takes no arguments, got %d", op.Name(), n)
		}
	case expr.FamilyRange:
		if n != 2 {
			return fmt.Errorf("%s takes 2 arguments, got %d", op.Name(), n)
		}
	case expr.FamilyInfix:
		if n == 0 {
			return fmt.Errorf("%s needs at least one argument", op.Name())
		}
	}
	return nil
}
