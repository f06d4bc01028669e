package risk

import (
	"errors"
	"fmt"
)

// Policy bounds what a session may put on.
type Policy struct {
	// Fraction of a symbol's budget risked on one entry.
	RiskFraction float64 `json:"risk_fraction" yaml:"risk_fraction"`

	// Fraction of cash shared out across symbols each cycle.
	AllocationFraction float64 `json:"allocation_fraction" yaml:"allocation_fraction"`

	// 0 means unlimited.
	MaxPositions int `json:"max_positions" yaml:"max_positions"`
}

func (p Policy) Validate() error {
	if p.RiskFraction <= 0 || p.RiskFraction > 1 {
		return errors.New("risk_fraction must be in (0,1]")
	}
	if p.AllocationFraction <= 0 || p.AllocationFraction > 1 {
		return errors.New("allocation_fraction must be in (0,1]")
	}
	if p.MaxPositions < 0 {
		return errors.New("max_positions must be >= 0")
	}
	return nil
}

// Intent is a proposed BUY.
type Intent struct {
	Symbol     string
	Quantity   int64
	Price      float64
	Confidence float64
}

// Account is the ledger state the intent is checked against.
type Account struct {
	Cash          float64
	Equity        float64
	OpenPositions int
	Holding       bool // already long Symbol
}

type Violation struct {
	Code string
	Msg  string
}

type Decision struct {
	Allowed    bool
	Violations []Violation

	Cost    float64
	CostPct float64
}

func (d *Decision) add(code, msg string) {
	d.Violations = append(d.Violations, Violation{Code: code, Msg: msg})
	d.Allowed = false
}

// Codes returns the violation codes in order.
func (d Decision) Codes() []string {
	out := make([]string, 0, len(d.Violations))
	for _, v := range d.Violations {
		out = append(out, v.Code)
	}
	return out
}

// Evaluate checks a BUY intent against p before it reaches the ledger.
func Evaluate(p Policy, in Intent, acct Account) Decision {
	d := Decision{Allowed: true}

	if !(in.Price > 0) {
		d.add("NO_PRICE", "price must be positive")
		return d
	}
	if in.Quantity <= 0 {
		d.add("NO_QUANTITY", "quantity must be positive")
		return d
	}

	d.Cost = float64(in.Quantity) * in.Price
	if acct.Equity > 0 {
		d.CostPct = d.Cost / acct.Equity
	}

	if d.Cost > acct.Cash {
		d.add("INSUFFICIENT_CASH",
			fmt.Sprintf("cost %.2f exceeds cash %.2f", d.Cost, acct.Cash))
	}
	if acct.Equity > 0 && d.CostPct > p.RiskFraction {
		d.add("RISK_TOO_HIGH",
			fmt.Sprintf("cost %.2f%% of equity exceeds max %.2f%%",
				100*d.CostPct, 100*p.RiskFraction))
	}
	if p.MaxPositions > 0 && !acct.Holding && acct.OpenPositions >= p.MaxPositions {
		d.add("TOO_MANY_POSITIONS",
			fmt.Sprintf("open positions %d >= max %d", acct.OpenPositions, p.MaxPositions))
	}
	return d
}
