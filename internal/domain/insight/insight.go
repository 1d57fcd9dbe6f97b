// Package insight contains the industry insight model refreshed by the
// weekly insight job.
package insight

import (
	"fmt"
	"time"

	"github.com/Strob0t/CareerForge/internal/domain"
)

// DemandLevel is the hiring demand reported for an industry.
type DemandLevel string

const (
	DemandHigh   DemandLevel = "High"
	DemandMedium DemandLevel = "Medium"
	DemandLow    DemandLevel = "Low"
)

// Outlook is the overall market outlook for an industry.
type Outlook string

const (
	OutlookPositive Outlook = "Positive"
	OutlookNeutral  Outlook = "Neutral"
	OutlookNegative Outlook = "Negative"
)

// SalaryRange describes compensation for one role.
type SalaryRange struct {
	Role     string  `json:"role"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Median   float64 `json:"median"`
	Location string  `json:"location"`
}

// Report is the generated payload for an industry.
type Report struct {
	SalaryRanges      []SalaryRange `json:"salaryRanges"`
	GrowthRate        float64       `json:"growthRate"`
	DemandLevel       DemandLevel   `json:"demandLevel"`
	TopSkills         []string      `json:"topSkills"`
	MarketOutlook     Outlook       `json:"marketOutlook"`
	KeyTrends         []string      `json:"keyTrends"`
	RecommendedSkills []string      `json:"recommendedSkills"`
}

// Insight is a stored Report for one industry.
type Insight struct {
	Industry    string    `json:"industry"`
	Report      Report    `json:"report"`
	LastUpdated time.Time `json:"last_updated"`
	NextUpdate  time.Time `json:"next_update"`
}

// Validate checks enumerated fields and salary ranges.
func (r *Report) Validate() error {
	switch r.DemandLevel {
	case DemandHigh, DemandMedium, DemandLow:
	default:
		return fmt.Errorf("%w: invalid demandLevel %q", domain.ErrValidation, r.DemandLevel)
	}
	switch r.MarketOutlook {
	case OutlookPositive, OutlookNeutral, OutlookNegative:
	default:
		return fmt.Errorf("%w: invalid marketOutlook %q", domain.ErrValidation, r.MarketOutlook)
	}
	for i, s := range r.SalaryRanges {
		if s.Role == "" {
			return fmt.Errorf("%w: salaryRanges[%d].role is required", domain.ErrValidation, i)
		}
		if s.Min > s.Max {
			return fmt.Errorf("%w: salaryRanges[%d] min exceeds max", domain.ErrValidation, i)
		}
	}
	return nil
}

// Due reports whether the insight should be regenerated at now.
func (i *Insight) Due(now time.Time) bool {
	return !now.Before(i.NextUpdate)
}
