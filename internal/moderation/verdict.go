package moderation

import (
	"regexp"
	"strings"
)

// DeletedBySender is the reserved reason code for messages the sender
// removed themselves. Never produced by the classifier.
const DeletedBySender = "D1"

// Reasons maps every deletion reason code to its description.
var Reasons = map[string]string{
	"S1":  "Enabling or encouraging unlawful violence toward people or animals",
	"S2":  "Enabling or encouraging non-violent crimes including personal, financial, property, drug, weapons, or cyber crimes",
	"S3":  "Enabling or encouraging sex-related crimes including trafficking, assault, harassment, and prostitution",
	"S4":  "Content involving sexual abuse of children",
	"S5":  "False statements that could damage a living person's reputation",
	"S6":  "Providing unauthorized specialized financial, medical, or legal advice",
	"S7":  "Sharing sensitive personal information that could compromise security",
	"S8":  "Content that may violate third-party intellectual property rights",
	"S9":  "Enabling or encouraging creation of chemical, biological, radiological, nuclear, or explosive weapons",
	"S10": "Demeaning or dehumanizing people based on personal characteristics",
	"S11": "Enabling or encouraging suicide, self-injury, or disordered eating",
	"S12": "Content containing erotica",
	"S13": "Sharing incorrect information about electoral systems and voting processes",
	"S14": "Attempting to abuse code interpreters through exploits or attacks",
	DeletedBySender: "Deleted By Sender",
}

var categoryCode = regexp.MustCompile(`^S\d{1,2}$`)

// ParseVerdict interprets a classifier response. A message is flagged only
// when the first line is exactly "unsafe" and the second line starts with a
// known-shaped category code; everything else (including a malformed unsafe
// verdict) reads as not flagged, so a garbled response never deletes a
// message.
func ParseVerdict(verdict string) (string, bool) {
	lines := strings.Split(strings.TrimSpace(verdict), "\n")
	if strings.TrimSpace(strings.ToLower(lines[0])) != "unsafe" {
		return "", false
	}
	if len(lines) < 2 {
		return "", false
	}

	// the category line may list several codes, comma separated
	code := strings.TrimSpace(strings.Split(lines[1], ",")[0])
	if !categoryCode.MatchString(code) {
		return "", false
	}
	if _, known := Reasons[code]; !known {
		return "", false
	}

	return code, true
}
