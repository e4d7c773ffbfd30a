// Package season maps calendar months to agricultural seasons of the Indian subcontinent.
package season

import (
	"strings"
	"time"

	"github.com/kjstillabower/agri-advisor/internal/models"
)

type entry struct {
	label       string
	description string
}

var (
	winter      = entry{"Winter (Rabi Season)", "Cold and dry season, suitable for wheat, barley, peas, and mustard"}
	summer      = entry{"Summer (Pre-Monsoon)", "Hot and dry season, suitable for summer crops like fodder crops and vegetables"}
	monsoon     = entry{"Monsoon (Kharif Season)", "Rainy season, suitable for rice, sugarcane, cotton, and jowar"}
	postMonsoon = entry{"Post-Monsoon (Harvest/Transition)", "Harvest season transitioning to winter crops"}
)

// byMonth is indexed by time.Month (1-12); index 0 is unused.
var byMonth = [13]entry{
	{},
	winter, winter,
	summer, summer, summer,
	monsoon, monsoon, monsoon, monsoon,
	postMonsoon, postMonsoon,
	winter,
}

// For returns the season for t's month.
func For(t time.Time) models.SeasonInfo {
	m := t.Month()
	e := byMonth[m]
	return models.SeasonInfo{
		Current:     e.label,
		Name:        shortName(e.label),
		Description: e.description,
		Month:       int(m),
	}
}

// named maps words a farmer might use for a season to a representative month.
var named = []struct {
	words []string
	month time.Month
}{
	{[]string{"post-monsoon", "post monsoon", "harvest season"}, time.October},
	{[]string{"winter", "rabi"}, time.January},
	{[]string{"summer", "zaid", "pre-monsoon"}, time.April},
	{[]string{"monsoon", "kharif", "rainy season"}, time.July},
}

// Named returns the season a query explicitly refers to, if any. The earlier
// entries win, so "post-monsoon" is not read as "monsoon".
func Named(query string) (models.SeasonInfo, bool) {
	q := strings.ToLower(query)
	for _, n := range named {
		for _, w := range n.words {
			if strings.Contains(q, w) {
				return For(time.Date(2000, n.month, 1, 0, 0, 0, 0, time.UTC)), true
			}
		}
	}
	return models.SeasonInfo{}, false
}

// shortName strips the parenthesised qualifier: "Winter (Rabi Season)" -> "Winter".
func shortName(label string) string {
	if i := strings.Index(label, "("); i > 0 {
		return strings.TrimSpace(label[:i])
	}
	return label
}
