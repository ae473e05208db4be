package connectors

import "fmt"

// TradovateFailureReasons maps Tradovate order failureReason values to
// human-readable messages for logs and exception rows.
var TradovateFailureReasons = map[string]string{
	"AccountClosed":                   "Account is closed",
	"AccountUnspecified":              "No account specified on the order",
	"AdvancedTrailingStopUnsupported": "Advanced trailing stop not supported",
	"AnotherCommandPending":           "Another command is pending on this order",
	"BackMonthProhibited":             "Back-month contract prohibited",
	"ExecutionProviderNotConfigured":  "Execution provider not configured",
	"ExecutionProviderUnavailable":    "Execution provider unavailable",
	"InvalidContract":                 "Unknown or expired contract",
	"InvalidPrice":                    "Invalid price on order",
	"LiquidationOnly":                 "Account is in liquidation-only mode",
	"LiquidationOnlyBeforeExpiration": "Liquidation-only before expiration",
	"MaxOrderQtyIsNotSpecified":       "Max order quantity not specified",
	"MaxOrderQtyLimitReached":         "Max order quantity limit reached",
	"MaxPosLimitReached":              "Max position limit reached",
	"MaxTotalPosLimitReached":         "Max total position limit reached",
	"MultipleAccounts":                "Order matches multiple accounts",
	"NoQuote":                         "No quote available for contract",
	"NotEnoughLiquidity":              "Not enough liquidity to fill",
	"OtherExecutionRelated":           "Execution-related rejection",
	"ParentRejected":                  "Parent order was rejected",
	"RiskCheckTimeout":                "Risk check timed out",
	"SessionClosed":                   "Trading session is closed",
	"Success":                         "No error",
	"TooLate":                         "Order arrived too late",
	"TradingLocked":                   "Trading is locked on this account",
	"TrailingStopNonOrderQtyModify":   "Trailing stop modify rejected",
	"Unauthorized":                    "Not authorized for this operation",
	"UnknownReason":                   "Unknown rejection reason",
	"Unsupported":                     "Unsupported order parameters",
}

// TradovateFailureMsg returns a readable message for a failureReason value.
func TradovateFailureMsg(reason string) string {
	if msg, ok := TradovateFailureReasons[reason]; ok {
		return msg
	}
	return fmt.Sprintf("UNKNOWN_TRADOVATE_FAILURE_%s", reason)
}
