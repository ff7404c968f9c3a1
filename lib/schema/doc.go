// Copyright 2026 The CityScape Authors
// SPDX-License-Identifier: Apache-2.0

// Package schema defines the typed message payloads exchanged over the
// city bus and the message-type tags that identify them. Handlers are
// registered against these tags in a closed dispatch table built at
// startup; there is no dynamic type lookup.
package schema
