// Copyright ModelFleet Authors
// SPDX-License-Identifier: Apache-2.0

package catalog

import "strings"

// maxEndpointNameLen is the endpoint name length limit imposed by SageMaker.
const maxEndpointNameLen = 63

// DeriveName maps a model identifier to a valid endpoint name. The mapping
// is deterministic: the "sagemaker." scheme is dropped and every rune
// outside [A-Za-z0-9-] becomes '-', with runs collapsed and the result
// capped at the endpoint name length limit.
func DeriveName(modelID string) string {
	s := strings.TrimPrefix(modelID, "sagemaker.")

	var b strings.Builder
	b.Grow(len(s))
	prevDash := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash {
				b.WriteByte('-')
			}
			prevDash = true
		}
	}

	name := strings.Trim(b.String(), "-")
	if len(name) > maxEndpointNameLen {
		name = strings.TrimRight(name[:maxEndpointNameLen], "-")
	}
	return name
}
