package policy

import (
	"testing"
	"time"
)

func TestRegistry_SeedAndList(t *testing.T) {
	r := NewRegistry(nil)
	if n := r.Seed(Defaults()); n != 3 {
		t.Fatalf("Seed() = %d, want 3", n)
	}
	if n := r.Seed(Defaults()); n != 0 {
		t.Errorf("second Seed() = %d, want 0", n)
	}

	list := r.List()
	want := []string{"policy-data-protection", "policy-production-safety", "policy-resource-usage"}
	for i, id := range want {
		if list[i].ID != id {
			t.Errorf("List()[%d] = %s, want %s", i, list[i].ID, id)
		}
	}

	prod, _ := r.Get("policy-production-safety")
	if prod.Rules[0].Priority != 100 || prod.Rules[2].Priority != 10 {
		t.Errorf("rules not sorted by priority: %+v", prod.Rules)
	}
}

func TestRegistry_Update(t *testing.T) {
	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	now := start
	r := NewRegistry(nil).WithClock(func() time.Time { return now })
	r.Seed(Defaults())

	now = start.Add(time.Hour)
	name := "Data Protection v2"
	p, ok, err := r.Update("policy-data-protection", Patch{
		Name: &name,
		Rules: []Rule{
			{Condition: "a", Action: ActionLog, Priority: 1},
			{Condition: "b", Action: ActionDeny, Priority: 5},
		},
	})
	if err != nil || !ok {
		t.Fatalf("Update() = %v, %v", ok, err)
	}
	if p.Name != name || p.NameAr != "حماية البيانات" {
		t.Errorf("merge result = %+v", p)
	}
	if p.Rules[0].Condition != "b" {
		t.Errorf("rules not re-sorted: %+v", p.Rules)
	}
	if !p.UpdatedAt.Equal(now) {
		t.Errorf("UpdatedAt = %v, want %v", p.UpdatedAt, now)
	}

	if _, ok, _ := r.Update("missing", Patch{}); ok {
		t.Error("Update() of unknown id returned ok")
	}

	_, ok, err = r.Update("policy-data-protection", Patch{Rules: []Rule{{Condition: "x", Action: "maybe"}}})
	if err == nil || !ok {
		t.Errorf("Update() with unknown action = %v, %v", ok, err)
	}
	again, _ := r.Get("policy-data-protection")
	if len(again.Rules) != 2 {
		t.Error("invalid rules were partially applied")
	}
}

func TestRegistry_RestoreReplaces(t *testing.T) {
	r := NewRegistry(nil)
	r.Seed(Defaults())
	r.Restore([]*Policy{{ID: "only", Name: "Only"}})

	list := r.List()
	if len(list) != 1 || list[0].ID != "only" {
		t.Errorf("List() = %+v", list)
	}
}

func TestRegistry_ReturnsCopies(t *testing.T) {
	r := NewRegistry(nil)
	r.Seed(Defaults())

	p, _ := r.Get("policy-resource-usage")
	p.Rules[0].Action = ActionAllow

	again, _ := r.Get("policy-resource-usage")
	if again.Rules[0].Action == ActionAllow {
		t.Error("registry mutated through returned copy")
	}
}
