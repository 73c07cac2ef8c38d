/*
Package journey drives one client meeting ("customer journey") end to end.

PURPOSE:
  An agent meets a client, picks products from several categories and one
  or more companies for each, and wants the combined commission plus a
  printable summary. This package composes the calculators; it adds no
  numeric logic beyond addition.

KEY CONCEPTS:
  - Summary:      totals and a deterministic breakdown of many results
  - SummaryText:  Hebrew meeting summary for the agent's notes
  - NextSteps:    Hebrew follow-up list per selected category
  - Orchestrator: load agreement, calculate, record sales, feed goals

BREAKDOWN ORDER:
  Categories appear in presentation order (pension, insurance,
  savings/study, policy); companies within a category are sorted by name.
  The same input always yields the same text.

SEE ALSO:
  - commission/calculator.go: Calculate
  - goals/aggregator.go:      ContributeToGoal
*/
package journey

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/agentdesk/commission-engine/commission"
	"github.com/shopspring/decimal"
)

// =============================================================================
// AGGREGATION
// =============================================================================

// Summary totals a set of commission results.
type Summary struct {
	Total     decimal.Decimal     `json:"total"`
	OneTime   decimal.Decimal     `json:"one_time"`
	Recurring decimal.Decimal     `json:"recurring"`
	Breakdown []CategoryBreakdown `json:"breakdown"`
}

type CategoryBreakdown struct {
	Category  commission.Category `json:"category"`
	Total     decimal.Decimal     `json:"total"`
	Companies []CompanyBreakdown  `json:"companies"`
}

type CompanyBreakdown struct {
	Company string          `json:"company"`
	Total   decimal.Decimal `json:"total"`
	Count   int             `json:"count"`
}

// Aggregate sums total_commission across results of any category.
//
// OneTime is the sum of scope commissions; Recurring is the sum of each
// result's annualized recurring part (see CommissionResult.Recurring).
func Aggregate(results []commission.CommissionResult) Summary {
	s := Summary{Total: decimal.Zero, OneTime: decimal.Zero, Recurring: decimal.Zero}

	byCategory := make(map[commission.Category]map[string]*CompanyBreakdown)
	for _, r := range results {
		s.Total = s.Total.Add(r.TotalCommission)
		s.OneTime = s.OneTime.Add(r.ScopeCommission)
		s.Recurring = s.Recurring.Add(r.Recurring())

		companies, ok := byCategory[r.Category]
		if !ok {
			companies = make(map[string]*CompanyBreakdown)
			byCategory[r.Category] = companies
		}
		cb, ok := companies[r.Company]
		if !ok {
			cb = &CompanyBreakdown{Company: r.Company, Total: decimal.Zero}
			companies[r.Company] = cb
		}
		cb.Total = cb.Total.Add(r.TotalCommission)
		cb.Count++
	}

	categories := make([]commission.Category, 0, len(byCategory))
	for c := range byCategory {
		categories = append(categories, c)
	}
	sort.Slice(categories, func(i, j int) bool {
		ri, rj := categories[i].Rank(), categories[j].Rank()
		if ri != rj {
			return ri < rj
		}
		return categories[i] < categories[j]
	})

	for _, c := range categories {
		cat := CategoryBreakdown{Category: c, Total: decimal.Zero}
		for _, cb := range byCategory[c] {
			cat.Companies = append(cat.Companies, *cb)
			cat.Total = cat.Total.Add(cb.Total)
		}
		sort.Slice(cat.Companies, func(i, j int) bool {
			return cat.Companies[i].Company < cat.Companies[j].Company
		})
		s.Breakdown = append(s.Breakdown, cat)
	}
	return s
}

// Categories lists the categories present in the breakdown, in order.
func (s Summary) Categories() []commission.Category {
	out := make([]commission.Category, 0, len(s.Breakdown))
	for _, b := range s.Breakdown {
		out = append(out, b.Category)
	}
	return out
}

// =============================================================================
// TEXT
// =============================================================================

// SummaryText renders the meeting summary:
//
//	סיכום פגישה עם <client>
//
//	מוצרים שנבחרו:
//	- פנסיה
//
//	חברות שנבחרו:
//	פנסיה: הראל, מגדל
//
//	סך עמלות כולל: ₪1830.00
func SummaryText(clientName string, s Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "סיכום פגישה עם %s\n\n", clientName)

	b.WriteString("מוצרים שנבחרו:\n")
	for _, c := range s.Breakdown {
		fmt.Fprintf(&b, "- %s\n", c.Category.HebrewName())
	}

	b.WriteString("\nחברות שנבחרו:\n")
	for _, c := range s.Breakdown {
		var names []string
		for _, cb := range c.Companies {
			if cb.Company != "" {
				names = append(names, cb.Company)
			}
		}
		if len(names) == 0 {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", c.Category.HebrewName(), strings.Join(names, ", "))
	}

	fmt.Fprintf(&b, "\nסך עמלות כולל: ₪%s", s.Total.StringFixed(2))
	return b.String()
}

var nextSteps = map[commission.Category]string{
	commission.CategoryPension:         "- השלמת מסמכי פנסיה",
	commission.CategoryInsurance:       "- הגשת בקשה לפוליסת ביטוח",
	commission.CategorySavingsAndStudy: "- פתיחת תיק השקעות",
	commission.CategoryPolicy:          "- חתימה על מסמכי פוליסה",
}

// NextSteps renders the follow-up list for the selected categories. The
// closing "schedule a follow-up meeting" line is always present.
func NextSteps(selected []commission.Category) string {
	var b strings.Builder
	b.WriteString("המשך טיפול:\n")
	for _, c := range commission.Categories {
		if slices.Contains(selected, c) {
			b.WriteString(nextSteps[c])
			b.WriteByte('\n')
		}
	}
	b.WriteString("- קביעת מועד המשך פגישה")
	return b.String()
}
