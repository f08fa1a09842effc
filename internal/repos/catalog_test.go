package repos

import (
	"testing"

	"github.com/confabhq/confab-backend/internal/types"
)

func TestTableForPartitionsKinds(t *testing.T) {
	cases := []struct {
		kind     types.EntityKind
		table    string
		category bool
	}{
		{types.EntityKindSkill, "skills_interests", true},
		{types.EntityKindInterest, "skills_interests", true},
		{types.EntityKindCompany, "companies", false},
		{types.EntityKindJobRole, "job_roles", false},
		{types.EntityKindLocation, "locations", false},
	}
	for _, tc := range cases {
		got, err := tableFor(tc.kind)
		if err != nil {
			t.Fatalf("tableFor(%q): %v", tc.kind, err)
		}
		if got.name != tc.table {
			t.Fatalf("tableFor(%q): want=%q got=%q", tc.kind, tc.table, got.name)
		}
		hasCategory := got.categoryColumn != ""
		if hasCategory != tc.category {
			t.Fatalf("tableFor(%q) category column: want=%v got=%v", tc.kind, tc.category, hasCategory)
		}
	}
}

func TestTableForRejectsUnknownKind(t *testing.T) {
	if _, err := tableFor(types.EntityKind("university")); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}

func TestKindPredicateSeparatesSkillAndInterest(t *testing.T) {
	table, err := tableFor(types.EntityKindSkill)
	if err != nil {
		t.Fatalf("tableFor: %v", err)
	}

	pred, args := table.kindPredicate(types.EntityKindSkill)
	if pred == "" {
		t.Fatalf("expected a category predicate for skills")
	}
	if len(args) != 1 || args[0] != "skill" {
		t.Fatalf("predicate args: want=[skill] got=%v", args)
	}

	_, interestArgs := table.kindPredicate(types.EntityKindInterest)
	if len(interestArgs) != 1 || interestArgs[0] != "interest" {
		t.Fatalf("predicate args: want=[interest] got=%v", interestArgs)
	}
}
