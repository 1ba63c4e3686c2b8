package normalizer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidValor marks a Valor cell that is not a plain finite number.
var ErrInvalidValor = errors.New("valor inválido")

// ParseValor parses the Valor cell as a plain decimal number. Currency
// symbols and thousands separators are not tolerated; users get a precise
// error instead of a silently misread amount.
func ParseValor(cell string) (decimal.Decimal, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return decimal.Zero, fmt.Errorf("%w: celda vacía", ErrInvalidValor)
	}
	if strings.ContainsAny(cell, "$€£¢,' ") {
		return decimal.Zero, fmt.Errorf("%w: %q contiene símbolos o separadores", ErrInvalidValor, cell)
	}

	d, err := decimal.NewFromString(cell)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidValor, cell)
	}
	return d, nil
}
