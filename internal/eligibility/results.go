package eligibility

import "strings"

type Results struct {
	Items []*Assessment
}

func (r *Results) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Items)
}

// Top returns at most n best assessments.
func (r *Results) Top(n int) []*Assessment {
	if r == nil || n <= 0 {
		return nil
	}
	if n > len(r.Items) {
		n = len(r.Items)
	}
	return r.Items[:n]
}

// Best returns the highest scored assessment, nil when there is none.
func (r *Results) Best() *Assessment {
	if r.Len() == 0 {
		return nil
	}
	return r.Items[0]
}

// Counts returns the number of assessments per label. Every label is present.
func (r *Results) Counts() map[Label]int {
	counts := make(map[Label]int, len(Labels))
	for _, l := range Labels {
		counts[l] = 0
	}
	if r == nil {
		return counts
	}

	for _, a := range r.Items {
		counts[a.Label]++
	}
	return counts
}

// ReasonsText joins the exclusion reasons for display.
func (a *Assessment) ReasonsText() string {
	return strings.Join(a.Reasons, ", ")
}
