package rules

import (
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/opensource-finance/kestrel/internal/domain"
)

// eligibilityProgram is a compiled per-rule CEL predicate over the order
// context, consulted as the final matcher gate.
type eligibilityProgram interface {
	eval(octx *domain.OrderContext) (bool, error)
}

// celEnv holds the shared CEL environment with the order context variables.
type celEnv struct {
	env *cel.Env
}

func newCELEnv() (*celEnv, error) {
	env, err := cel.NewEnv(
		cel.Variable("quantity", cel.IntType),
		cel.Variable("unit_price", cel.DoubleType),
		cel.Variable("subtotal", cel.DoubleType),
		cel.Variable("customer_id", cel.StringType),
		cel.Variable("product_id", cel.StringType),
		cel.Variable("order_date", cel.StringType),
		cel.Variable("attrs", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, err
	}
	return &celEnv{env: env}, nil
}

// compile validates that the expression returns a bool and builds a program.
func (e *celEnv) compile(expression string) (eligibilityProgram, error) {
	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile expression: %w", issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("expression must return bool, got %s", ast.OutputType())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program: %w", err)
	}

	return &celProgram{program: program}, nil
}

type celProgram struct {
	program cel.Program
}

func (p *celProgram) eval(octx *domain.OrderContext) (bool, error) {
	attrs := make(map[string]any, len(octx.Attributes))
	for field, value := range octx.Attributes {
		attrs[string(field)] = value
	}

	out, _, err := p.program.Eval(map[string]any{
		"quantity":    octx.Quantity,
		"unit_price":  octx.UnitPrice,
		"subtotal":    octx.Subtotal(),
		"customer_id": octx.CustomerID,
		"product_id":  octx.ProductID,
		"order_date":  octx.OrderDate.UTC().Format("2006-01-02T15:04:05Z07:00"),
		"attrs":       attrs,
	})
	if err != nil {
		return false, err
	}

	if b, ok := out.(types.Bool); ok {
		return bool(b), nil
	}
	return false, fmt.Errorf("expression returned non-bool value")
}
