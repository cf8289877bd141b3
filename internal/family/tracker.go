// Package family correlates live positions and closed deals into sibling
// groups ("families") so the monitor can answer: has any sibling in this
// family already hit its target?
package family

import (
	"math"

	"mt5SignalBot/internal/domain"
)

// Group buckets open positions by family id. Positions whose comment does
// not carry the engine's family marker (manual trades, other EAs) are left
// out entirely.
func Group(positions []*domain.Position) map[string][]*domain.Position {
	families := make(map[string][]*domain.Position)
	for _, pos := range positions {
		if !domain.IsFamilyID(pos.FamilyID) {
			continue
		}
		families[pos.FamilyID] = append(families[pos.FamilyID], pos)
	}
	return families
}

// ClosedByTarget returns the set of family ids with at least one deal that
// exited a position through its take-profit.
func ClosedByTarget(deals []*domain.Deal) map[string]struct{} {
	hit := make(map[string]struct{})
	for _, deal := range deals {
		if !deal.IsExit() || deal.Reason != domain.CloseReasonTakeProfit {
			continue
		}
		if !domain.IsFamilyID(deal.FamilyID) {
			continue
		}
		hit[deal.FamilyID] = struct{}{}
	}
	return hit
}

// NeedsProtection reports whether any sibling's stop-loss still sits away
// from its own entry price (beyond epsilon). A family whose survivors are
// all at break-even already is left alone.
func NeedsProtection(siblings []*domain.Position, epsilon float64) bool {
	for _, pos := range siblings {
		if math.Abs(pos.StopLoss-pos.OpenPrice) > epsilon {
			return true
		}
	}
	return false
}

// Status derives the lifecycle state of one family from its live siblings
// and whether any sibling closed by target.
func Status(siblings []*domain.Position, targetHit bool, epsilon float64) domain.FamilyStatus {
	if len(siblings) == 0 {
		return domain.FamilyClosed
	}
	if !targetHit {
		return domain.FamilyOpen
	}
	if NeedsProtection(siblings, epsilon) {
		return domain.FamilyPartiallyClosed
	}
	return domain.FamilyProtected
}
