// internal/service/order/infrastructure/adapter/cel_rules.go
package adapter

import (
	"context"
	"fmt"

	"github.com/google/cel-go/cel"

	"mercury/internal/service/order/domain"
)

// CelRuleEngine 用 CEL 表达式实现订单准入规则。
// 表达式来自配置中心，可以在不发版的情况下调整收单策略，
// 例如 "total_quantity <= 100 && line_count <= 20"。
type CelRuleEngine struct {
	expr    string
	program cel.Program
}

// NewCelRuleEngine 编译规则表达式。expr 为空表示不启用规则，放行一切订单。
func NewCelRuleEngine(expr string) (*CelRuleEngine, error) {
	engine := &CelRuleEngine{expr: expr}
	if expr == "" {
		return engine, nil
	}

	env, err := cel.NewEnv(
		cel.Variable("line_count", cel.IntType),
		cel.Variable("total_quantity", cel.IntType),
		cel.Variable("max_line_quantity", cel.IntType),
		cel.Variable("customer_ref", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rule environment: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("invalid rule expression %q: %w", expr, issues.Err())
	}
	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to build rule program: %w", err)
	}
	engine.program = program
	return engine, nil
}

func (e *CelRuleEngine) Evaluate(_ context.Context, order *domain.Order) (bool, string, error) {
	if e.program == nil {
		return true, "", nil
	}

	totalQuantity := 0
	maxLineQuantity := 0
	for _, line := range order.Lines {
		totalQuantity += line.Quantity
		if line.Quantity > maxLineQuantity {
			maxLineQuantity = line.Quantity
		}
	}

	out, _, err := e.program.Eval(map[string]interface{}{
		"line_count":        len(order.Lines),
		"total_quantity":    totalQuantity,
		"max_line_quantity": maxLineQuantity,
		"customer_ref":      order.CustomerRef,
	})
	if err != nil {
		return false, "", fmt.Errorf("rule evaluation error: %w", err)
	}

	accepted, ok := out.Value().(bool)
	if !ok {
		return false, "", fmt.Errorf("rule expression %q did not evaluate to bool", e.expr)
	}
	if !accepted {
		return false, fmt.Sprintf("rule %q evaluated to false", e.expr), nil
	}
	return true, "", nil
}
