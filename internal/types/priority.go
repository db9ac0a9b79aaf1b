// internal/types/priority.go
package types

import (
	"fmt"
	"math/big"
	"strings"
)

// PriorityLevel scales the node's suggested fees so a transaction can jump
// the queue when the pool is moving.
type PriorityLevel string

const (
	PriorityLow     PriorityLevel = "low"
	PriorityMedium  PriorityLevel = "medium"
	PriorityHigh    PriorityLevel = "high"
	PriorityExtreme PriorityLevel = "extreme"
)

type PriorityConfig struct {
	TipPercent        int64 // percent of the suggested tip or legacy gas price
	BaseFeeMultiplier int64 // headroom over the current base fee in the fee cap
}

var priorityProfiles = map[PriorityLevel]PriorityConfig{
	PriorityLow:     {TipPercent: 100, BaseFeeMultiplier: 2},
	PriorityMedium:  {TipPercent: 125, BaseFeeMultiplier: 2},
	PriorityHigh:    {TipPercent: 150, BaseFeeMultiplier: 3},
	PriorityExtreme: {TipPercent: 200, BaseFeeMultiplier: 4},
}

// ParsePriorityLevel accepts a level name in any case; blank means low.
func ParsePriorityLevel(s string) (PriorityLevel, error) {
	level := PriorityLevel(strings.ToLower(strings.TrimSpace(s)))
	if level == "" {
		return PriorityLow, nil
	}
	if _, ok := priorityProfiles[level]; !ok {
		return "", fmt.Errorf("unknown priority level: %s", s)
	}
	return level, nil
}

// Config returns the fee profile; unknown levels get the low profile.
func (l PriorityLevel) Config() PriorityConfig {
	if c, ok := priorityProfiles[l]; ok {
		return c
	}
	return priorityProfiles[PriorityLow]
}

// Scale applies TipPercent to a suggested tip or gas price.
func (c PriorityConfig) Scale(suggested *big.Int) *big.Int {
	out := new(big.Int).Mul(suggested, big.NewInt(c.TipPercent))
	return out.Quo(out, big.NewInt(100))
}

// FeeCap is tip plus BaseFeeMultiplier times baseFee.
func (c PriorityConfig) FeeCap(tip, baseFee *big.Int) *big.Int {
	headroom := new(big.Int).Mul(baseFee, big.NewInt(c.BaseFeeMultiplier))
	return headroom.Add(headroom, tip)
}
