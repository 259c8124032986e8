package annotation

import (
	"fmt"
	"strings"

	"github.com/medicloud/portal/pkg/types"
)

// Section markers the structured prompt demands from the model
const (
	alertsMarker  = "ALERTS:"
	summaryMarker = "SUMMARY:"
)

const plainPromptTemplate = `You are a helpful medical assistant. Analyze the attached medical report ` +
	`and the doctor's notes. Create a simple, easy-to-understand summary for the patient.

Doctor's Notes: %s`

const structuredPromptTemplate = `You are a helpful medical assistant. Analyze the attached medical report ` +
	`and the doctor's notes. Respond with exactly two sections. First a section starting with the line ` +
	`"ALERTS:" listing clinician-facing risk flags, one per line, or nothing if there are none. Then a ` +
	`section starting with the line "SUMMARY:" containing a simple, easy-to-understand explanation for the patient.

Doctor's Notes: %s`

// buildPrompt embeds the doctor's notes into the fixed template
func buildPrompt(notes string, structured bool) string {
	if structured {
		return fmt.Sprintf(structuredPromptTemplate, notes)
	}
	return fmt.Sprintf(plainPromptTemplate, notes)
}

// parseStructuredOutput extracts the alerts and summary sections. A response
// missing either marker fails with MalformedModelOutput; the raw text is
// never silently treated as the summary.
func parseStructuredOutput(raw string) (summary string, alerts []string, err error) {
	alertsIdx := strings.Index(raw, alertsMarker)
	summaryIdx := strings.Index(raw, summaryMarker)

	if alertsIdx < 0 || summaryIdx < 0 || summaryIdx < alertsIdx {
		return "", nil, &types.PortalError{
			Type:    types.ErrorTypeModel,
			Code:    types.ErrCodeMalformedModelOutput,
			Message: "model response is missing the expected ALERTS/SUMMARY sections",
		}
	}

	alertsBlock := raw[alertsIdx+len(alertsMarker) : summaryIdx]
	for _, line := range strings.Split(alertsBlock, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			alerts = append(alerts, trimmed)
		}
	}

	summary = strings.TrimSpace(raw[summaryIdx+len(summaryMarker):])
	if summary == "" {
		return "", nil, &types.PortalError{
			Type:    types.ErrorTypeModel,
			Code:    types.ErrCodeMalformedModelOutput,
			Message: "model response has an empty SUMMARY section",
		}
	}

	return summary, alerts, nil
}
