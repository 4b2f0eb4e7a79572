// Package hardware classifies the host into a coarse capability tier that
// drives the backdrop capture resolution.
package hardware

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/bryanchriswhite/frostglass/internal/logger"
)

// Tier is an ordered capability class. Higher is faster hardware.
type Tier int

const (
	Tier0 Tier = iota // A4 class
	Tier1             // A5
	Tier2             // A6
	Tier3             // A7-A8
	Tier4             // A9 and later
	Tier5             // A12 and later
)

// FallbackTier is what unrecognized devices resolve to
const FallbackTier = Tier3

// tierScales is the capture downsample factor per tier. Must stay monotonically
// non-decreasing.
var tierScales = [...]float64{
	Tier0: 0.10,
	Tier1: 0.15,
	Tier2: 0.20,
	Tier3: 0.30,
	Tier4: 0.40,
	Tier5: 1.00,
}

// Tiers lists all tiers in ascending order
func Tiers() []Tier {
	return []Tier{Tier0, Tier1, Tier2, Tier3, Tier4, Tier5}
}

// Scale returns the capture downsample factor for the tier, in (0, 1].
// Out-of-range tiers get the fallback tier's scale.
func (t Tier) Scale() float64 {
	if t < Tier0 || t > Tier5 {
		return tierScales[FallbackTier]
	}
	return tierScales[t]
}

func (t Tier) String() string {
	switch t {
	case Tier0:
		return "tier0 (A4)"
	case Tier1:
		return "tier1 (A5)"
	case Tier2:
		return "tier2 (A6)"
	case Tier3:
		return "tier3 (A7-A8)"
	case Tier4:
		return "tier4 (A9+)"
	case Tier5:
		return "tier5 (A12+)"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// Classifier reports the capability tier of the running device. Implementations
// never fail: unknown hardware resolves to a defined tier.
type Classifier interface {
	Classify() Tier
}

// ClassifierFunc adapts a function to Classifier
type ClassifierFunc func() Tier

// Classify calls f
func (f ClassifierFunc) Classify() Tier { return f() }

// Fixed always reports the same tier
type Fixed Tier

// Classify returns the fixed tier
func (f Fixed) Classify() Tier { return Tier(f) }

// Memo asks the wrapped classifier once and remembers the answer for the life
// of the process.
type Memo struct {
	inner Classifier
	once  sync.Once
	tier  Tier
}

// NewMemo wraps c
func NewMemo(c Classifier) *Memo {
	return &Memo{inner: c}
}

// Classify returns the memoized tier
func (m *Memo) Classify() Tier {
	m.once.Do(func() {
		m.tier = m.inner.Classify()
		logger.WithComponent("hardware").Info().
			Str("tier", m.tier.String()).
			Float64("capture_scale", m.tier.Scale()).
			Msg("Hardware tier classified")
	})
	return m.tier
}

// ModelClassifier classifies a device by its model identifier
type ModelClassifier struct {
	Model string
}

// Classify looks the model up in the device table
func (c ModelClassifier) Classify() Tier {
	return ClassifyModel(c.Model)
}

// ClassifyModel maps a model identifier such as "iPhone8,1" to a tier
func ClassifyModel(model string) Tier {
	model = strings.TrimSpace(model)
	if tier, ok := modelTiers[model]; ok {
		return tier
	}
	return FallbackTier
}

// dmiProductPath is where Linux exposes the board's product name
var dmiProductPath = "/sys/devices/virtual/dmi/id/product_name"

// DetectModel returns the configured model if set, otherwise the DMI product
// name of the host, otherwise an empty string.
func DetectModel(configured string) string {
	if configured != "" {
		return configured
	}
	data, err := os.ReadFile(dmiProductPath)
	if err != nil {
		logger.WithComponent("hardware").Debug().Err(err).Msg("No DMI product name available")
		return ""
	}
	return strings.TrimSpace(string(data))
}
