// Copyright 2026 The CityScape Authors
// SPDX-License-Identifier: Apache-2.0

package dispatch

import (
	"strings"

	"github.com/MadBomber/smart-message-demos/lib/schema"
)

// Classifier maps an inbound service request to the department
// categories that must handle it.
type Classifier interface {
	Classify(req schema.ServiceRequest) []string
}

// Rule binds free-text keywords to one department category.
type Rule struct {
	Keywords []string
	Category string
}

// RuleClassifier classifies by scanning the request description for
// keywords, in rule order. A request can match several rules; each
// matched category appears once.
type RuleClassifier struct {
	rules []Rule
}

// NewRuleClassifier returns a classifier over the given rules.
func NewRuleClassifier(rules []Rule) *RuleClassifier {
	return &RuleClassifier{rules: rules}
}

// DefaultRules is the stock keyword table for city service requests.
func DefaultRules() []Rule {
	return []Rule{
		{Keywords: []string{"fire", "smoke", "burning"}, Category: "fire"},
		{Keywords: []string{"crime", "theft", "robbery", "assault"}, Category: "policing"},
		{Keywords: []string{"injury", "medical", "ambulance", "unconscious"}, Category: "medical"},
		{Keywords: []string{"water", "leak", "flood", "sewage"}, Category: "water"},
		{Keywords: []string{"power", "outage", "electric", "gas"}, Category: "utility"},
		{Keywords: []string{"pothole", "road", "debris", "streetlight"}, Category: "infrastructure"},
	}
}

// Classify returns the categories matched by the request description.
// When no rule matches, the request's own category is trusted; a
// request with neither goes to the emergency category so it is never
// dropped on the floor.
func (c *RuleClassifier) Classify(req schema.ServiceRequest) []string {
	description := strings.ToLower(req.Description)

	var categories []string
	seen := make(map[string]bool)
	for _, rule := range c.rules {
		if seen[rule.Category] {
			continue
		}
		for _, keyword := range rule.Keywords {
			if strings.Contains(description, keyword) {
				categories = append(categories, rule.Category)
				seen[rule.Category] = true
				break
			}
		}
	}
	if len(categories) > 0 {
		return categories
	}
	if req.Category != "" {
		return []string{req.Category}
	}
	return []string{"emergency"}
}
