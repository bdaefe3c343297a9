// Package telemetry gates inbound analytics events by the device's
// recorded consent.
package telemetry

import "cgd/internal/models"

// FilterByConsent is pure and never errors; zero surviving events is a
// valid outcome. With no recorded consent only necessary-only event types
// pass. With consent present, events without a purpose always pass and a
// purposed event needs its category explicitly set to true. Unknown
// purposes never pass.
func FilterByConsent(events []models.Event, consent models.Choices) []models.Event {
	filtered := make([]models.Event, 0, len(events))
	for _, event := range events {
		if consent == nil {
			if _, ok := models.NecessaryOnlyEvents[event.Type]; ok {
				filtered = append(filtered, event)
			}
			continue
		}
		if event.Purpose == "" {
			filtered = append(filtered, event)
			continue
		}
		if allowed, ok := consent[event.Purpose]; ok && allowed {
			filtered = append(filtered, event)
		}
	}
	return filtered
}
