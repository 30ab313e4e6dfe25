package cost

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"

	"github.com/pzhin/agentweave/types"
)

// Estimator mirrors workflow.CostFunc without importing it, so this
// package stays dependency-light. Any Estimator can be assigned to a
// RegistryEntry's EstimateCost field directly.
type Estimator func(inputs types.Values, output any) float64

// Fixed returns a flat per-call cost regardless of inputs or output.
func Fixed(amount float64) Estimator {
	return func(types.Values, any) float64 { return amount }
}

// PerInput charges a flat amount per supplied input value.
func PerInput(amountPerKey float64) Estimator {
	return func(inputs types.Values, _ any) float64 {
		return float64(len(inputs)) * amountPerKey
	}
}

// Sum combines estimators additively.
func Sum(estimators ...Estimator) Estimator {
	return func(inputs types.Values, output any) float64 {
		total := 0.0
		for _, e := range estimators {
			total += e(inputs, output)
		}
		return total
	}
}

// modelEncodings maps model families to tiktoken encoding names.
// Unlisted models fall back to cl100k_base.
var modelEncodings = map[string]string{
	"gpt-4o":      "o200k_base",
	"gpt-4o-mini": "o200k_base",
	"gpt-4":       "cl100k_base",
	"gpt-3.5":     "cl100k_base",
}

// TokenBased prices calls by token count: all string inputs before the
// call, plus the string output after it, at the given rate per
// thousand tokens. Tokenizer setup is deferred to the first call; if
// the encoding cannot be loaded the estimator degrades to a character
// heuristic rather than failing the run.
func TokenBased(model string, perThousand float64, logger *zap.Logger) Estimator {
	if logger == nil {
		logger = zap.NewNop()
	}
	tc := &tokenCounter{
		encoding: encodingFor(model),
		logger:   logger.With(zap.String("component", "cost_estimator"), zap.String("model", model)),
	}
	return func(inputs types.Values, output any) float64 {
		tokens := 0
		for _, v := range inputs {
			if s, ok := v.(string); ok {
				tokens += tc.count(s)
			}
		}
		if s, ok := output.(string); ok {
			tokens += tc.count(s)
		} else if vals, ok := output.(types.Values); ok {
			for _, v := range vals {
				if s, ok := v.(string); ok {
					tokens += tc.count(s)
				}
			}
		}
		return float64(tokens) / 1000.0 * perThousand
	}
}

func encodingFor(model string) string {
	if enc, ok := modelEncodings[model]; ok {
		return enc
	}
	return "cl100k_base"
}

// tokenCounter wraps a lazily initialized tiktoken encoding. Loading
// an encoding may fetch its BPE table, so it happens at most once and
// never during registry construction.
type tokenCounter struct {
	once     sync.Once
	encoding string
	tk       *tiktoken.Tiktoken
	logger   *zap.Logger
}

func (tc *tokenCounter) count(text string) int {
	tc.once.Do(func() {
		tk, err := tiktoken.GetEncoding(tc.encoding)
		if err != nil {
			tc.logger.Warn("tokenizer unavailable, using character estimate",
				zap.String("encoding", tc.encoding), zap.Error(err))
			return
		}
		tc.tk = tk
	})
	if tc.tk == nil {
		return estimateTokens(text)
	}
	return len(tc.tk.Encode(text, nil, nil))
}

// estimateTokens approximates token count when no tokenizer is
// available: CJK runs near 1.5 characters per token, most other text
// near 4.
func estimateTokens(text string) int {
	cjk, other := 0, 0
	for _, r := range text {
		if isCJK(r) {
			cjk++
		} else {
			other++
		}
	}
	est := float64(cjk)/1.5 + float64(other)/4.0
	if est < 1 && len(text) > 0 {
		return 1
	}
	return int(est)
}

func isCJK(r rune) bool {
	switch {
	case r >= 0x4E00 && r <= 0x9FFF: // CJK unified ideographs
		return true
	case r >= 0x3040 && r <= 0x30FF: // hiragana, katakana
		return true
	case r >= 0xAC00 && r <= 0xD7AF: // hangul syllables
		return true
	}
	return false
}

// Describe renders an estimator's admission estimate for a sample
// input set, for CLI inspection.
func Describe(e Estimator, inputs types.Values) string {
	return fmt.Sprintf("%.4f", e(inputs, nil))
}
