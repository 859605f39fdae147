// Package render turns parsed results into display-ready view models shared
// by the HTML templates and the terminal client.
package render

import (
	"fmt"
	"slices"

	"github.com/samber/lo"
	"github.com/vbonduro/mediscan/internal/domain"
)

// Style is a colour band. The templates use it as a CSS class suffix.
type Style string

const (
	StyleRed     Style = "red"
	StyleOrange  Style = "orange"
	StyleYellow  Style = "yellow"
	StyleGreen   Style = "green"
	StyleNeutral Style = "neutral"
)

// SortDiagnoses returns a copy of ds ordered by descending probability.
// Equal probabilities keep their input order.
func SortDiagnoses(ds []domain.Diagnosis) []domain.Diagnosis {
	sorted := slices.Clone(ds)
	slices.SortStableFunc(sorted, func(a, b domain.Diagnosis) int {
		switch {
		case a.Probability > b.Probability:
			return -1
		case a.Probability < b.Probability:
			return 1
		default:
			return 0
		}
	})
	return sorted
}

// TopDiagnosis returns the most probable diagnosis.
func TopDiagnosis(ds []domain.Diagnosis) (domain.Diagnosis, bool) {
	if len(ds) == 0 {
		return domain.Diagnosis{}, false
	}
	return SortDiagnoses(ds)[0], true
}

type DiagnosisRow struct {
	domain.Diagnosis
	IsTop   bool
	Percent string
	Bar     Style
	// Width is the bar width in percent, clamped to 0..100.
	Width float64
}

type XRayView struct {
	KeyFindings string
	Top         *DiagnosisRow
	Rows        []DiagnosisRow
}

// XRay builds the view of an X-ray report. Every row whose condition matches
// the top condition is marked, so duplicates of the top entry highlight too.
func XRay(r *domain.XRayReport) XRayView {
	sorted := SortDiagnoses(r.Diagnoses)
	view := XRayView{KeyFindings: r.KeyFindings, Rows: make([]DiagnosisRow, 0, len(sorted))}
	for _, d := range sorted {
		view.Rows = append(view.Rows, DiagnosisRow{
			Diagnosis: d,
			IsTop:     d.Condition == sorted[0].Condition,
			Percent:   Percent(d.Probability),
			Bar:       BarStyle(d.Probability),
			Width:     min(max(d.Probability*100, 0), 100),
		})
	}
	if len(view.Rows) > 0 {
		top := view.Rows[0]
		view.Top = &top
	}
	return view
}

func Percent(p float64) string {
	return fmt.Sprintf("%.1f", p*100)
}

func BarStyle(p float64) Style {
	switch {
	case p > 0.75:
		return StyleRed
	case p > 0.5:
		return StyleOrange
	case p > 0.2:
		return StyleYellow
	default:
		return StyleGreen
	}
}

func SeverityStyle(s domain.Severity) Style {
	switch s {
	case domain.SeverityCritical:
		return StyleRed
	case domain.SeveritySevere:
		return StyleOrange
	case domain.SeverityModerate:
		return StyleYellow
	case domain.SeverityMild:
		return StyleGreen
	default:
		return StyleNeutral
	}
}

type ConditionRow struct {
	domain.Condition
	Style Style
}

type RecommendationGroup struct {
	Category string
	Advice   []string
}

type SymptomView struct {
	Conditions []ConditionRow
	Groups     []RecommendationGroup
	Disclaimer string
}

func Symptoms(r *domain.SymptomReport) SymptomView {
	return SymptomView{
		Conditions: lo.Map(r.PossibleConditions, func(c domain.Condition, _ int) ConditionRow {
			return ConditionRow{Condition: c, Style: SeverityStyle(c.Severity)}
		}),
		Groups:     GroupRecommendations(r.Recommendations),
		Disclaimer: r.Disclaimer,
	}
}

// GroupRecommendations groups advice by category. Groups are ordered by the
// category priority in domain.CategoryOrder; unknown categories follow in
// the order they first appear.
func GroupRecommendations(recs []domain.Recommendation) []RecommendationGroup {
	byCategory := lo.GroupBy(recs, func(r domain.Recommendation) string { return r.Category })
	categories := lo.Uniq(lo.Map(recs, func(r domain.Recommendation, _ int) string { return r.Category }))

	groups := lo.Map(categories, func(c string, _ int) RecommendationGroup {
		return RecommendationGroup{
			Category: c,
			Advice:   lo.Map(byCategory[c], func(r domain.Recommendation, _ int) string { return r.Advice }),
		}
	})
	slices.SortStableFunc(groups, func(a, b RecommendationGroup) int {
		return priority(a.Category) - priority(b.Category)
	})
	return groups
}

func priority(category string) int {
	if i := slices.Index(domain.CategoryOrder, category); i >= 0 {
		return i
	}
	return len(domain.CategoryOrder)
}
