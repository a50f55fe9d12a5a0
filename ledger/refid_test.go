package ledger_test

import (
	"testing"

	"github.com/warp/loan-ledger/ledger"
)

func TestReferenceID_SpaceForm(t *testing.T) {
	// "Juan Dela Cruz" -> JDC, "Maria Santos" -> MS
	got := ledger.ReferenceID("Juan Dela Cruz", "Maria Santos")
	if got != "JDCMS" {
		t.Errorf("reference id = %q, want JDCMS", got)
	}
}

func TestReferenceID_CommaForm_CapsAtThreeParts(t *testing.T) {
	// "Cruz, Juan, D, Extra" takes the first rune of at most 3 parts.
	got := ledger.ReferenceID("Cruz, Juan, D, Extra", "Santos, Maria")
	if got != "CJDSM" {
		t.Errorf("reference id = %q, want CJDSM", got)
	}
}

func TestReferenceID_EmptyName_Unknown(t *testing.T) {
	got := ledger.ReferenceID("", "Maria Santos")
	if got != "UNKMS" {
		t.Errorf("reference id = %q, want UNKMS", got)
	}
}

func TestGroupReferenceID_SanitizesAndTruncates(t *testing.T) {
	// "Road Trip 2025!" -> "ROADT" (A-Z0-9 only, first 5) + lender initials.
	got := ledger.GroupReferenceID("Road Trip 2025!", "Maria Santos")
	if got != "ROADTMS" {
		t.Errorf("group reference id = %q, want ROADTMS", got)
	}
}

func TestGroupReferenceID_ShortName(t *testing.T) {
	got := ledger.GroupReferenceID("Gym", "Juan Dela Cruz")
	if got != "GYMJDC" {
		t.Errorf("group reference id = %q, want GYMJDC", got)
	}
}

func TestReferenceID_Lowercase_Uppercased(t *testing.T) {
	got := ledger.ReferenceID("juan dela cruz", "maria santos")
	if got != "JDCMS" {
		t.Errorf("reference id = %q, want JDCMS", got)
	}
}
