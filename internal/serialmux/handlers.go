package serialmux

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/banshee-data/rtls/internal/rfmodel"
)

// CurrentState holds the latest DW1000 attribute values reported by the
// anchor over its serial control channel and is intentionally package-level
// so admin routes or tests can inspect it.
var CurrentState map[string]any

// LastDiag holds the most recently decoded FINFO diagnostics block.
var LastDiag rfmodel.TimestampInfo

// HandleDiagLine decodes a "FINFO:<hex>" diagnostics line into a
// TimestampInfo block and stashes it in LastDiag.
func HandleDiagLine(payload string) error {
	hexBlob := strings.TrimPrefix(payload, "FINFO:")
	raw, err := hex.DecodeString(strings.TrimSpace(hexBlob))
	if err != nil {
		return fmt.Errorf("failed to decode FINFO hex: %w", err)
	}
	ti, err := rfmodel.DecodeTimestampInfo(raw)
	if err != nil {
		return fmt.Errorf("failed to decode FINFO blob: %w", err)
	}
	LastDiag = ti
	log.Printf("anchor diagnostics: rawts=%d lqi=%d snr=%d rxpacc=%d temp=%d volt=%d",
		ti.RawTS, ti.LQI, ti.SNR, ti.RxPACC, ti.Temp, ti.Volt)
	return nil
}

// HandleConfigResponse merges a JSON attribute blob into CurrentState.
func HandleConfigResponse(payload string) error {
	var configValues map[string]any

	if err := json.Unmarshal([]byte(payload), &configValues); err != nil {
		return fmt.Errorf("failed to unmarshal config response: %v", err)
	}

	if CurrentState == nil {
		CurrentState = make(map[string]any)
	}
	for k, v := range configValues {
		CurrentState[k] = v
	}

	log.Printf("config line: %+v", payload)

	return nil
}

// HandleEvent classifies and dispatches a single line read from the anchor's
// serial control channel.
func HandleEvent(payload string) error {
	switch ClassifyPayload(payload) {
	case EventTypeDiag:
		if err := HandleDiagLine(payload); err != nil {
			return fmt.Errorf("failed to handle diagnostics line: %v", err)
		}
	case EventTypeConfig:
		if err := HandleConfigResponse(payload); err != nil {
			return fmt.Errorf("failed to handle config response: %v", err)
		}
	default:
		log.Printf("unknown anchor serial line: %s", payload)
	}
	return nil
}
