package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"compareeconomize/backend/models"
)

// DefaultPlans is the catalog used when no PLANS_FILE is configured.
var DefaultPlans = []models.Plan{
	{ID: models.PlanFree, Name: "Free", Kind: models.KindUser, Price: 0},
	{ID: models.PlanPro, Name: "Pro", Kind: models.KindBusiness, Price: 59.90},
	{ID: models.PlanPremium, Name: "Premium", Kind: models.KindBusiness, Price: 99.90},
	{ID: "premium-user", Name: "Premium (Usuário)", Kind: models.KindUser, Price: 9.90},
}

type plansFile struct {
	Plans []models.Plan `yaml:"plans"`
}

// LoadPlans reads a YAML plan catalog; an empty path yields DefaultPlans.
func LoadPlans(path string) ([]models.Plan, error) {
	if strings.TrimSpace(path) == "" {
		return append([]models.Plan{}, DefaultPlans...), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plans file: %w", err)
	}
	return ParsePlans(data)
}

// ParsePlans decodes a catalog document of the form `plans: [{id, name, kind, price}]`.
func ParsePlans(data []byte) ([]models.Plan, error) {
	var f plansFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse plans file: %w", err)
	}
	if len(f.Plans) == 0 {
		return nil, fmt.Errorf("plans file defines no plans")
	}
	seen := make(map[string]bool, len(f.Plans))
	for i, p := range f.Plans {
		id := strings.ToLower(strings.TrimSpace(p.ID))
		if id == "" {
			return nil, fmt.Errorf("plan %d: id is required", i)
		}
		if seen[id] {
			return nil, fmt.Errorf("plan %q defined twice", id)
		}
		if p.Price < 0 {
			return nil, fmt.Errorf("plan %q: negative price", id)
		}
		if p.Kind != models.KindUser && p.Kind != models.KindBusiness {
			return nil, fmt.Errorf("plan %q: kind must be user or business", id)
		}
		seen[id] = true
		f.Plans[i].ID = id
	}
	return f.Plans, nil
}

// FindPlan returns the plan with the given id.
func FindPlan(plans []models.Plan, id string) (models.Plan, bool) {
	for _, p := range plans {
		if p.ID == id {
			return p, true
		}
	}
	return models.Plan{}, false
}
