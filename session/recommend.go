package session

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"

	"github.com/rustyeddy/quant/risk"
	"github.com/rustyeddy/quant/signal"
)

// Model signals reported by Recommend.
const (
	ModelBuy  = "BUY"
	ModelFlat = "FLAT"
	ModelNone = "NONE" // no predictor, or features not yet defined
)

// Recommendation is the advice for one symbol at its latest bar.
type Recommendation struct {
	Symbol       string        `json:"symbol"`
	Price        float64       `json:"price"`
	ProbUp       *float64      `json:"prob_up"`
	ModelSignal  string        `json:"model_signal"`
	Trend        signal.Action `json:"trend"`
	Action       signal.Action `json:"action"`
	SuggestedQty int64         `json:"suggested_qty"`
}

// Recommendations is a Recommend answer for a given capital.
type Recommendations struct {
	Capital float64          `json:"capital"`
	Signals []Recommendation `json:"signals"`
	Errors  map[string]error `json:"-"`
}

// Recommend evaluates every symbol without touching the ledger. A BUY is
// sized against capital × RecommendRisk × probability; other actions
// suggest no shares.
func (s *Session) Recommend(ctx context.Context, capital float64) (Recommendations, error) {
	evals, errs, err := s.evaluateAll(ctx)
	if err != nil {
		return Recommendations{}, err
	}

	out := Recommendations{Capital: capital, Errors: errs}
	for _, sym := range s.symbols {
		ev, ok := evals[sym]
		if !ok {
			continue
		}
		sig := ev.signal
		rec := Recommendation{
			Symbol:      sym,
			Price:       sig.Close,
			ModelSignal: ModelNone,
			Trend:       sig.Trend,
			Action:      sig.Action,
		}
		if sig.HasProb {
			p := sig.ProbUp
			rec.ProbUp = &p
			rec.ModelSignal = ModelFlat
			if p >= 0.5 {
				rec.ModelSignal = ModelBuy
			}
		}
		if sig.Action == signal.Buy {
			rec.SuggestedQty = risk.Size(signal.Buy, capital, sig.Close, s.confidence(sig), s.Config.RecommendRisk, 0)
		}
		out.Signals = append(out.Signals, rec)
	}
	return out, nil
}

// MarshalJSON writes per-symbol errors as their messages.
func (r Recommendations) MarshalJSON() ([]byte, error) {
	type plain Recommendations
	out := struct {
		plain
		Errors map[string]string `json:"errors,omitempty"`
	}{plain: plain(r)}
	if len(r.Errors) > 0 {
		out.Errors = make(map[string]string, len(r.Errors))
		for sym, err := range r.Errors {
			out.Errors[sym] = err.Error()
		}
	}
	return json.Marshal(out)
}

// Print writes one line per recommendation.
func (r Recommendations) Print(w io.Writer) {
	fmt.Fprintf(w, "Capital: %.2f\n", r.Capital)
	for _, rec := range r.Signals {
		prob := math.NaN()
		if rec.ProbUp != nil {
			prob = *rec.ProbUp
		}
		fmt.Fprintf(w, "%-8s %10.4f p_up %6.3f model %-4s trend %-9s -> %-4s qty %d\n",
			rec.Symbol, rec.Price, prob, rec.ModelSignal, rec.Trend, rec.Action, rec.SuggestedQty)
	}
	for sym, err := range r.Errors {
		fmt.Fprintf(w, "%-8s error: %v\n", sym, err)
	}
}
