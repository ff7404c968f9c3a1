// Copyright 2026 The CityScape Authors
// SPDX-License-Identifier: Apache-2.0

package council

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/MadBomber/smart-message-demos/lib/clock"
	"github.com/MadBomber/smart-message-demos/lib/config"
	"github.com/MadBomber/smart-message-demos/lib/schema"
)

// Rationale strings, keyed by outcome category only. Free-form
// proposal text never reaches the audit trail.
const (
	rationaleConsolidationApproved = "similarity and projected savings meet consolidation policy"
	rationaleConsolidationDeferred = "similarity is promising but below the approval bar; revisit next cycle"
	rationaleConsolidationRejected = "similarity or projected savings below consolidation policy"
	rationaleTerminationProtected  = "department is on the protected critical-services list"
	rationaleTerminationApproved   = "termination reason is an approved retirement category"
	rationaleTerminationDeferred   = "termination reason requires further review"
)

// Evaluator applies council policy to recommendations. Each
// recommendation ID is consumed exactly once: re-delivered
// recommendations (at-least-once transport) are ignored.
type Evaluator struct {
	policy config.CouncilConfig
	clock  clock.Clock

	mu       sync.Mutex
	consumed map[string]bool

	logger *slog.Logger
}

// NewEvaluator returns an Evaluator over the given policy.
func NewEvaluator(policy config.CouncilConfig, clk clock.Clock, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{
		policy:   policy,
		clock:    clk,
		consumed: make(map[string]bool),
		logger:   logger,
	}
}

// consume records a recommendation ID. Returns false when the ID was
// already decided.
func (e *Evaluator) consume(recommendationID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.consumed[recommendationID] {
		return false
	}
	e.consumed[recommendationID] = true
	return true
}

// decision assembles a CouncilDecision effective today.
func (e *Evaluator) decision(recommendationID, recommendationType, outcome, rationale string) schema.CouncilDecision {
	return schema.CouncilDecision{
		RecommendationID:   recommendationID,
		RecommendationType: recommendationType,
		Decision:           outcome,
		DecisionRationale:  rationale,
		EffectiveDate:      e.clock.Now().Format("2006-01-02"),
	}
}

// EvaluateConsolidation decides a consolidation recommendation.
// Returns false when the recommendation ID was already consumed.
//
// Policy: approved when the similarity score clears the approval
// threshold and projected savings clear the savings floor; deferred
// when similarity lands between the defer and approval thresholds;
// rejected otherwise.
func (e *Evaluator) EvaluateConsolidation(rec schema.ConsolidationRecommendation) (schema.CouncilDecision, bool) {
	if !e.consume(rec.RecommendationID) {
		return schema.CouncilDecision{}, false
	}

	var outcome, rationale string
	switch {
	case rec.SimilarityScore > e.policy.ApproveSimilarity && rec.EstimatedAnnualSavings > e.policy.MinAnnualSavings:
		outcome, rationale = schema.DecisionApproved, rationaleConsolidationApproved
	case rec.SimilarityScore > e.policy.DeferSimilarity && rec.SimilarityScore <= e.policy.ApproveSimilarity:
		outcome, rationale = schema.DecisionDeferred, rationaleConsolidationDeferred
	default:
		outcome, rationale = schema.DecisionRejected, rationaleConsolidationRejected
	}

	e.logger.Info("consolidation decided",
		"recommendation_id", rec.RecommendationID,
		"proposed", rec.ProposedName,
		"departments", rec.DepartmentsToMerge,
		"similarity", rec.SimilarityScore,
		"outcome", outcome,
	)
	return e.decision(rec.RecommendationID, schema.RecommendationTypeConsolidation, outcome, rationale), true
}

// EvaluateTermination decides a termination recommendation. Returns
// false when the recommendation ID was already consumed.
//
// Policy: protected departments are rejected unconditionally,
// whatever the reason; approved retirement reasons approve; anything
// else is deferred.
func (e *Evaluator) EvaluateTermination(rec schema.TerminationRecommendation) (schema.CouncilDecision, bool) {
	if !e.consume(rec.RecommendationID) {
		return schema.CouncilDecision{}, false
	}

	var outcome, rationale string
	switch {
	case e.protected(rec.DepartmentName):
		outcome, rationale = schema.DecisionRejected, rationaleTerminationProtected
	case e.approvedReason(rec.TerminationReason):
		outcome, rationale = schema.DecisionApproved, rationaleTerminationApproved
	default:
		outcome, rationale = schema.DecisionDeferred, rationaleTerminationDeferred
	}

	e.logger.Info("termination decided",
		"recommendation_id", rec.RecommendationID,
		"department", rec.DepartmentName,
		"reason", rec.TerminationReason,
		"outcome", outcome,
	)
	return e.decision(rec.RecommendationID, schema.RecommendationTypeTermination, outcome, rationale), true
}

// protected reports whether a department name matches the protected
// critical-services list. Matching is a case-insensitive substring
// test so "city-police" and "police-harbor" are both covered by a
// "police" entry.
func (e *Evaluator) protected(name string) bool {
	lowered := strings.ToLower(name)
	for _, entry := range e.policy.ProtectedDepartments {
		if strings.Contains(lowered, strings.ToLower(entry)) {
			return true
		}
	}
	return false
}

// approvedReason reports whether a termination reason code approves
// retirement outright.
func (e *Evaluator) approvedReason(reason string) bool {
	for _, approved := range e.policy.ApprovedTerminationReasons {
		if strings.EqualFold(reason, approved) {
			return true
		}
	}
	return false
}
