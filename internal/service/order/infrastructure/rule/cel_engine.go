// internal/service/order/infrastructure/rule/cel_engine.go
package rule

import (
	"context"
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/shopspring/decimal"

	"ordermesh/internal/service/order/domain/port"
)

// maxDiscountRate 是折扣率上限，防止规则配置错误把订单打到免单。
var maxDiscountRate = decimal.NewFromFloat(0.90)

// CELDiscountEngine 是 port.DiscountEngine 的 CEL 实现。
// 每条规则是一个返回折扣率 (double) 的 CEL 表达式，例如：
//
//	subtotal > 500.0 ? 0.05 : 0.0
//	itemCount >= 10 ? 0.03 : 0.0
//
// 规则在构造时编译一次，多条规则命中时取最大折扣率。
type CELDiscountEngine struct {
	programs []compiledRule
}

type compiledRule struct {
	name    string
	program cel.Program
}

// Rule 是一条待编译的折扣规则。
type Rule struct {
	Name       string
	Expression string
}

func NewCELDiscountEngine(rules []Rule) (*CELDiscountEngine, error) {
	env, err := cel.NewEnv(
		cel.Variable("customerId", cel.StringType),
		cel.Variable("subtotal", cel.DoubleType),
		cel.Variable("itemCount", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("create cel environment: %w", err)
	}

	programs := make([]compiledRule, 0, len(rules))
	for _, r := range rules {
		ast, issues := env.Compile(r.Expression)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("compile discount rule %q: %w", r.Name, issues.Err())
		}
		prg, err := env.Program(ast)
		if err != nil {
			return nil, fmt.Errorf("program discount rule %q: %w", r.Name, err)
		}
		programs = append(programs, compiledRule{name: r.Name, program: prg})
	}
	return &CELDiscountEngine{programs: programs}, nil
}

// Rate 对所有规则求值并返回最大折扣率。
func (e *CELDiscountEngine) Rate(_ context.Context, fact port.DiscountFact) (decimal.Decimal, error) {
	vars := map[string]interface{}{
		"customerId": fact.CustomerID,
		"subtotal":   fact.Subtotal,
		"itemCount":  fact.ItemCount,
	}

	best := decimal.Zero
	for _, r := range e.programs {
		out, _, err := r.program.Eval(vars)
		if err != nil {
			return decimal.Zero, fmt.Errorf("evaluate discount rule %q: %w", r.name, err)
		}
		rate, ok := out.Value().(float64)
		if !ok {
			return decimal.Zero, fmt.Errorf("discount rule %q did not return a double, got %T", r.name, out.Value())
		}
		d := decimal.NewFromFloat(rate)
		if d.GreaterThan(best) {
			best = d
		}
	}

	if best.IsNegative() {
		return decimal.Zero, nil
	}
	if best.GreaterThan(maxDiscountRate) {
		return maxDiscountRate, nil
	}
	return best, nil
}
