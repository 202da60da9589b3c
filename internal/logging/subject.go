package logging

import "strings"

// FormatSubject builds the list/run prefix used in console output.
// Run identifiers are shortened to their first eight characters.
func FormatSubject(list, runID string) string {
	list = strings.TrimSpace(list)
	runID = strings.TrimSpace(runID)
	if len(runID) > 8 {
		runID = runID[:8]
	}
	switch {
	case list != "" && runID != "":
		return list + " · run " + runID
	case runID != "":
		return "run " + runID
	default:
		return list
	}
}
