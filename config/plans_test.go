package config

import "testing"

func TestParsePlans(t *testing.T) {
	doc := []byte(`
plans:
  - id: PRO
    name: Pro
    kind: business
    price: 49.9
  - id: premium-user
    name: Premium
    kind: user
    price: 5
`)
	plans, err := ParsePlans(doc)
	if err != nil {
		t.Fatalf("ParsePlans: %v", err)
	}
	if len(plans) != 2 || plans[0].ID != "pro" {
		t.Fatalf("unexpected plans: %+v", plans)
	}
	p, ok := FindPlan(plans, "premium-user")
	if !ok || p.Price != 5 {
		t.Fatalf("FindPlan = %+v, %v", p, ok)
	}
}

func TestParsePlansRejectsInvalid(t *testing.T) {
	bad := []string{
		"plans: []",
		"plans:\n  - id: ''\n    kind: user",
		"plans:\n  - id: a\n    kind: user\n  - id: A\n    kind: user",
		"plans:\n  - id: a\n    kind: user\n    price: -1",
		"plans:\n  - id: a\n    kind: robot",
		"plans: [",
	}
	for _, doc := range bad {
		if _, err := ParsePlans([]byte(doc)); err == nil {
			t.Errorf("expected error for %q", doc)
		}
	}
}

func TestLoadPlansDefault(t *testing.T) {
	plans, err := LoadPlans("")
	if err != nil {
		t.Fatal(err)
	}
	if len(plans) != len(DefaultPlans) {
		t.Fatalf("got %d plans", len(plans))
	}
	plans[0].Price = 1234
	if DefaultPlans[0].Price == 1234 {
		t.Fatal("LoadPlans must not alias DefaultPlans")
	}
}
