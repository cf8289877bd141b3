package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// familyPrefix marks order comments written by this engine. Positions whose
// comment lacks the prefix are ignored by the family tracker.
const familyPrefix = "signal_"

// NewFamilyID generates the identifier shared by all sibling orders spawned
// from one signal. Time-based for readability in the terminal, with a short
// random suffix so two signals in the same second stay distinct. The result
// must fit the platform's comment field (31 chars on MT5).
func NewFamilyID(now time.Time) string {
	return fmt.Sprintf("%s%d_%s", familyPrefix, now.Unix(), uuid.NewString()[:8])
}

// IsFamilyID reports whether a position/deal comment marks it as
// engine-originated.
func IsFamilyID(comment string) bool {
	return strings.HasPrefix(comment, familyPrefix)
}

// FamilyStatus is the derived lifecycle state of a sibling group. It is
// recomputed on every monitor tick from live positions and recent deals,
// never stored.
type FamilyStatus string

const (
	// FamilyOpen: all siblings live, no take-profit hit yet.
	FamilyOpen FamilyStatus = "OPEN"
	// FamilyPartiallyClosed: at least one sibling closed by take-profit,
	// survivors not yet protected.
	FamilyPartiallyClosed FamilyStatus = "PARTIALLY_CLOSED_BY_TARGET"
	// FamilyProtected: survivors' stop-loss already sits at their entry.
	FamilyProtected FamilyStatus = "PROTECTED"
	// FamilyClosed: no siblings remain open.
	FamilyClosed FamilyStatus = "CLOSED"
)
