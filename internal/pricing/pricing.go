// Package pricing computes the platform's share of creator revenue.
package pricing

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed fee_tiers.yaml
var feeTiersYAML []byte

type Tier struct {
	BelowFollowers int64 `yaml:"below_followers"`
	Percent        int   `yaml:"percent"`
}

type scheduleFile struct {
	ChannelFeeTiers []Tier `yaml:"channel_fee_tiers"`
}

// Schedule is an ordered list of follower-count tiers.
type Schedule struct {
	tiers []Tier
}

// Split is the outcome of applying a schedule to one invoice.
type Split struct {
	GrossCents       int64
	FeePercent       int
	PlatformFeeCents int64
	CreatorNetCents  int64
}

// DefaultSchedule returns the built-in channel fee schedule.
func DefaultSchedule() (*Schedule, error) {
	return ParseSchedule(feeTiersYAML)
}

func ParseSchedule(content []byte) (*Schedule, error) {
	var file scheduleFile
	if err := yaml.Unmarshal(content, &file); err != nil {
		return nil, fmt.Errorf("failed to parse fee tiers: %w", err)
	}
	if err := validateTiers(file.ChannelFeeTiers); err != nil {
		return nil, fmt.Errorf("fee tier validation failed: %w", err)
	}
	return &Schedule{tiers: file.ChannelFeeTiers}, nil
}

func validateTiers(tiers []Tier) error {
	if len(tiers) == 0 {
		return fmt.Errorf("at least one tier is required")
	}

	var previous int64
	for i, tier := range tiers {
		if tier.Percent < 0 || tier.Percent > 100 {
			return fmt.Errorf("tier %d: percent must be between 0 and 100", i)
		}
		last := i == len(tiers)-1
		if last {
			if tier.BelowFollowers != 0 {
				return fmt.Errorf("tier %d: final tier must be open-ended", i)
			}
			continue
		}
		if tier.BelowFollowers <= previous {
			return fmt.Errorf("tier %d: below_followers must increase", i)
		}
		previous = tier.BelowFollowers
	}
	return nil
}

// FeePercent returns the percentage charged for a creator with the given
// follower count.
func (s *Schedule) FeePercent(followers int64) int {
	if followers < 0 {
		followers = 0
	}
	for _, tier := range s.tiers {
		if tier.BelowFollowers == 0 || followers < tier.BelowFollowers {
			return tier.Percent
		}
	}
	return s.tiers[len(s.tiers)-1].Percent
}

// Apply splits grossCents between the platform and the creator. The fee is
// rounded half up to the nearest minor unit.
func (s *Schedule) Apply(grossCents, followers int64) Split {
	percent := s.FeePercent(followers)
	if grossCents < 0 {
		grossCents = 0
	}
	fee := (grossCents*int64(percent) + 50) / 100
	return Split{
		GrossCents:       grossCents,
		FeePercent:       percent,
		PlatformFeeCents: fee,
		CreatorNetCents:  grossCents - fee,
	}
}
