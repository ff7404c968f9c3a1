// Copyright 2026 The CityScape Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import "github.com/google/uuid"

// Message-type tags. Protocol constants: renaming one breaks every
// deployed department.
const (
	MessageTypeHealthCheck    = "city.health.check"
	MessageTypeHealthStatus   = "city.health.status"
	MessageTypeServiceRequest = "city.service.request"
	MessageTypeServiceNeeded  = "city.service.needed"
	MessageTypeConsolidation  = "city.council.consolidation"
	MessageTypeTermination    = "city.council.termination"
	MessageTypeDecision       = "city.council.decision"
	MessageTypeChange         = "city.department.change"
	MessageTypeAnnouncement   = "city.department.announcement"
)

// Well-known channel names.
const (
	// ChannelHealth carries health-status replies back to the
	// orchestrator.
	ChannelHealth = "city.health"

	// ChannelCouncil carries recommendations in and decisions out.
	ChannelCouncil = "city.council"

	// ChannelChanges carries DepartmentChangeNotification broadcasts
	// to every routing-aware consumer.
	ChannelChanges = "city.changes"

	// ChannelDispatch carries inbound service requests and
	// service-needed escalations.
	ChannelDispatch = "city.dispatch"
)

// DepartmentChannel returns the per-department inbox channel for a
// logical department name.
func DepartmentChannel(name string) string {
	return "department/" + name
}

// Health status values reported by departments.
const (
	HealthStatusHealthy  = "healthy"
	HealthStatusWarning  = "warning"
	HealthStatusCritical = "critical"
	HealthStatusFailed   = "failed"
)

// HealthCheckRequest asks one department to report its health. Sent
// on the department's inbox channel; the reply arrives asynchronously
// on ChannelHealth.
type HealthCheckRequest struct {
	CheckID string `json:"check_id"`
	From    string `json:"from"`
	To      string `json:"to"`
}

// HealthStatusReply is a department's answer to a HealthCheckRequest.
type HealthStatusReply struct {
	CheckID       string `json:"check_id"`
	ServiceName   string `json:"service_name"`
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	MessageCount  int64  `json:"message_count"`
}

// Healthy reports whether the reply indicates a healthy service. Any
// status other than "healthy" counts as a failed check.
func (r HealthStatusReply) Healthy() bool {
	return r.Status == HealthStatusHealthy
}

// ServiceRequest is one inbound unit of work for the dispatch center.
type ServiceRequest struct {
	RequestID         string `json:"request_id"`
	RequestingService string `json:"requesting_service"`
	Category          string `json:"category"`
	Description       string `json:"description"`
	Urgency           string `json:"urgency"`
}

// ServiceNeededRequest escalates a request the dispatch center could
// not resolve to any live department. The orchestrator answers by
// creating the department and broadcasting a "created" change.
type ServiceNeededRequest struct {
	RequestID         string `json:"request_id"`
	RequestingService string `json:"requesting_service"`
	DepartmentName    string `json:"department_name"`
	Category          string `json:"category"`
	Reason            string `json:"reason"`
}

// ConsolidationRecommendation proposes merging departments into one
// logical successor. Immutable once received; the council consumes
// each recommendation ID exactly once.
type ConsolidationRecommendation struct {
	RecommendationID       string   `json:"recommendation_id"`
	ProposedName           string   `json:"proposed_name"`
	DepartmentsToMerge     []string `json:"departments_to_merge"`
	SimilarityScore        float64  `json:"similarity_score"`
	EstimatedAnnualSavings float64  `json:"estimated_annual_savings"`
	Priority               string   `json:"priority"`
	Proposer               string   `json:"proposer"`
}

// TerminationRecommendation proposes permanently retiring a
// department.
type TerminationRecommendation struct {
	RecommendationID  string  `json:"recommendation_id"`
	DepartmentName    string  `json:"department_name"`
	TerminationReason string  `json:"termination_reason"`
	AnnualCost        float64 `json:"annual_cost"`
	Priority          string  `json:"priority"`
	Proposer          string  `json:"proposer"`
}

// Decision outcomes carried by CouncilDecision.
const (
	DecisionApproved = "approved"
	DecisionRejected = "rejected"
	DecisionDeferred = "deferred"
)

// Recommendation types carried by CouncilDecision.
const (
	RecommendationTypeConsolidation = "consolidation"
	RecommendationTypeTermination   = "termination"
)

// CouncilDecision records the council's ruling on a recommendation.
type CouncilDecision struct {
	RecommendationID   string `json:"recommendation_id"`
	RecommendationType string `json:"recommendation_type"`
	Decision           string `json:"decision"`
	DecisionRationale  string `json:"decision_rationale"`
	EffectiveDate      string `json:"effective_date"`
}

// Change types carried by DepartmentChangeNotification.
const (
	ChangeTypeConsolidated = "consolidated"
	ChangeTypeTerminated   = "terminated"
	ChangeTypeCreated      = "created"
	ChangeTypeRenamed      = "renamed"
)

// DepartmentChangeNotification broadcasts a binding routing change to
// every routing-aware consumer. Delivery is at-least-once: applying
// the same notification twice must leave routing state unchanged.
type DepartmentChangeNotification struct {
	ChangeType           string            `json:"change_type"`
	AffectedDepartments  []string          `json:"affected_departments"`
	NewDepartment        string            `json:"new_department,omitempty"`
	RoutingChanges       map[string]string `json:"routing_changes,omitempty"`
	CapabilityRemaps     map[string]string `json:"capability_remaps,omitempty"`
	FallbackDepartment   string            `json:"fallback_department,omitempty"`
	EffectiveImmediately bool              `json:"effective_immediately"`

	// RollbackAvailable marks changes that carry enough data to be
	// reversed. Rollback holds the routing entries the change
	// replaced.
	RollbackAvailable bool              `json:"rollback_available,omitempty"`
	Rollback          map[string]string `json:"rollback,omitempty"`
}

// DepartmentAnnouncement introduces a newly created department to the
// city: its category and the capabilities it serves.
type DepartmentAnnouncement struct {
	DepartmentName string   `json:"department_name"`
	Category       string   `json:"category"`
	Capabilities   []string `json:"capabilities,omitempty"`
}

// NewCheckID returns a fresh health-check correlation ID.
func NewCheckID() string { return uuid.NewString() }

// NewRequestID returns a fresh service-request ID.
func NewRequestID() string { return uuid.NewString() }

// NewRecommendationID returns a fresh recommendation ID.
func NewRecommendationID() string { return uuid.NewString() }
