// Copyright 2026 The CityScape Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"encoding/json"
	"fmt"

	"github.com/MadBomber/smart-message-demos/lib/bus"
)

// Envelope wraps a typed payload into a bus envelope, inferring the
// message-type tag from the payload's Go type. Returns an error for
// payload types not defined by this package.
func Envelope(sender string, payload any) (bus.Envelope, error) {
	tag, err := messageType(payload)
	if err != nil {
		return bus.Envelope{}, err
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return bus.Envelope{}, fmt.Errorf("encoding %s: %w", tag, err)
	}

	return bus.Envelope{Type: tag, Payload: data, Sender: sender}, nil
}

// messageType maps a payload value to its wire tag.
func messageType(payload any) (string, error) {
	switch payload.(type) {
	case HealthCheckRequest:
		return MessageTypeHealthCheck, nil
	case HealthStatusReply:
		return MessageTypeHealthStatus, nil
	case ServiceRequest:
		return MessageTypeServiceRequest, nil
	case ServiceNeededRequest:
		return MessageTypeServiceNeeded, nil
	case ConsolidationRecommendation:
		return MessageTypeConsolidation, nil
	case TerminationRecommendation:
		return MessageTypeTermination, nil
	case CouncilDecision:
		return MessageTypeDecision, nil
	case DepartmentChangeNotification:
		return MessageTypeChange, nil
	case DepartmentAnnouncement:
		return MessageTypeAnnouncement, nil
	}
	return "", fmt.Errorf("no message type for payload %T", payload)
}

// Decode unmarshals an envelope payload into the given message type.
// A decode failure means a malformed inbound message; callers drop it
// with a logged warning rather than crashing the loop.
func Decode[T any](envelope bus.Envelope) (T, error) {
	var payload T
	if err := json.Unmarshal(envelope.Payload, &payload); err != nil {
		return payload, fmt.Errorf("decoding %s from %s: %w", envelope.Type, envelope.Sender, err)
	}
	return payload, nil
}
