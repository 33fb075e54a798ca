package payments

import (
	"fmt"

	pkgerrors "github.com/avillareal/marketpay-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

// SplitInstallments divides total into count parts that reconstruct the total
// exactly. Each part is the per-installment amount truncated to cents; the
// leftover cents are folded into the first installment.
func SplitInstallments(total decimal.Decimal, count int) ([]decimal.Decimal, error) {
	if count < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("installment count must be positive, got %d", count))
	}
	if total.LessThanOrEqual(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "total must be positive")
	}

	base := total.Div(decimal.NewFromInt(int64(count))).Truncate(2)
	parts := make([]decimal.Decimal, count)
	for i := range parts {
		parts[i] = base
	}
	parts[0] = total.Sub(base.Mul(decimal.NewFromInt(int64(count - 1))))
	return parts, nil
}
