package mapper

import (
	"strconv"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
)

func formatInt64(v int64) string {
	return strconv.FormatInt(v, 10)
}

// ParseDecimalSafe normalizes a backend string-encoded number into an exact
// decimal. Empty or malformed fields default to zero with a log line rather
// than failing the whole response; money-affecting zeros are caught later by
// the sizing minimums and the risk gate.
func ParseDecimalSafe(field, v string) decimal.Decimal {
	if v == "" {
		logger.WithField("field", field).Debug("Empty numeric field received, defaulting to 0")
		return decimal.Zero
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"field": field,
			"value": v,
		}).WithError(err).Error("Failed to parse decimal from backend field; defaulting to 0")
		return decimal.Zero
	}
	return d
}

// floatToDecimal is the single place a backend float is allowed to become a
// decimal. Everything downstream works on the exact value.
func floatToDecimal(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}
