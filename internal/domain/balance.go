package domain

import "math/big"

// BalanceReading is the outcome of one balance evaluation for a
// (token, wallet) pair. Amount is the raw smallest-unit integer;
// Available is false when the evaluation failed and no value is known.
// A reading is recreated on every refresh cycle and only replaces an
// older one.
type BalanceReading struct {
	Token       Address
	Wallet      Address
	Amount      *big.Int // nil when Available is false
	Available   bool
	EvaluatedAt int64 // Unix timestamp in milliseconds of the evaluation
}
