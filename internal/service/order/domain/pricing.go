// internal/service/order/domain/pricing.go
package domain

import "github.com/shopspring/decimal"

// PricingPolicy 是金额计算的全部策略参数，从配置注入。
// 税率全系统只有这一处定义，创建和更新路径共用。
type PricingPolicy struct {
	TaxRate               decimal.Decimal // 如 0.15
	FreeShippingThreshold decimal.Decimal // 严格大于该值免运费
	FlatShippingFee       decimal.Decimal
}

// Totals 是一次金额计算的结果。
type Totals struct {
	SubTotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	TaxAmount      decimal.Decimal
	ShippingCost   decimal.Decimal
	TotalAmount    decimal.Decimal
}

// LineAmount 是金额计算的最小输入单元。
type LineAmount struct {
	Quantity  int
	UnitPrice decimal.Decimal
	Discount  decimal.Decimal
}

// money 把中间结果就地归一到两位小数。
// 统一使用四舍五入（round half away from zero），每一步都归一，避免分币漂移。
func money(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// LineTotal 计算单行金额：quantity × unitPrice − discount。
func LineTotal(line LineAmount) decimal.Decimal {
	gross := money(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	return money(gross.Sub(line.Discount))
}

// ComputeTotals 是纯函数：同样的输入永远得到同样的输出，无副作用。
//
//	subtotal = Σ (quantity × unitPrice − discount)
//	tax      = round(subtotal × taxRate, 2)
//	shipping = 0 当 subtotal > threshold，否则 flatFee
//	total    = subtotal + tax + shipping
func ComputeTotals(lines []LineAmount, policy PricingPolicy) Totals {
	subtotal := decimal.Zero
	discount := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(LineTotal(line))
		discount = discount.Add(line.Discount)
	}
	subtotal = money(subtotal)
	discount = money(discount)

	tax := money(subtotal.Mul(policy.TaxRate))

	shipping := policy.FlatShippingFee
	if subtotal.GreaterThan(policy.FreeShippingThreshold) {
		shipping = decimal.Zero
	}
	shipping = money(shipping)

	return Totals{
		SubTotal:       subtotal,
		DiscountAmount: discount,
		TaxAmount:      tax,
		ShippingCost:   shipping,
		TotalAmount:    money(subtotal.Add(tax).Add(shipping)),
	}
}
