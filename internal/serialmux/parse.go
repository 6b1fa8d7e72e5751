package serialmux

import "strings"

const (
	EventTypeConfig  = "config"
	EventTypeDiag    = "diag"
	EventTypeUnknown = "unknown"
)

// ClassifyPayload inspects a line received from the anchor's serial control
// channel and returns a simple event type token. The classification is
// intentionally conservative: a "FINFO:" prefix marks a per-reception
// diagnostics dump, a line starting with "{" marks a DW1000 attribute
// readback or config blob, everything else is unclassified.
func ClassifyPayload(payload string) string {
	if strings.HasPrefix(payload, "FINFO:") {
		return EventTypeDiag
	}
	if strings.HasPrefix(payload, "{") {
		return EventTypeConfig
	}
	return EventTypeUnknown
}
