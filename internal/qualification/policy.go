package qualification

import "fmt"

// ParseFailurePolicy decides what an unparseable response contributes.
type ParseFailurePolicy string

const (
	// DropUnparseable adds no lead for an unparseable response.
	DropUnparseable ParseFailurePolicy = "drop"
	// SurfaceRaw adds a single diagnostic PARSE_ERROR lead carrying the raw text.
	SurfaceRaw ParseFailurePolicy = "surface-raw"
)

// RetentionPolicy decides which parsed verdicts become leads.
type RetentionPolicy string

const (
	// RetainFitOnly keeps verdicts with is_fit set.
	RetainFitOnly RetentionPolicy = "fit-only"
	// RetainAll keeps every verdict; the score is advisory.
	RetainAll RetentionPolicy = "all"
)

// Prompt modes selectable from configuration.
const (
	// ModeSingleSite assesses one company website per call.
	ModeSingleSite = "single-site"
	// ModeListing asks for several companies out of a directory or listing page.
	ModeListing = "listing"
)

// ParsePromptMode maps a mode name to its prompt key; "" is the default.
func ParsePromptMode(s string) (string, error) {
	switch s {
	case "", ModeSingleSite:
		return PromptSingleSite, nil
	case ModeListing:
		return PromptListing, nil
	}
	return "", fmt.Errorf("unknown prompt mode %q", s)
}

// ParseParseFailurePolicy parses a policy name; "" is the default.
func ParseParseFailurePolicy(s string) (ParseFailurePolicy, error) {
	switch ParseFailurePolicy(s) {
	case "", DropUnparseable:
		return DropUnparseable, nil
	case SurfaceRaw:
		return SurfaceRaw, nil
	}
	return "", fmt.Errorf("unknown parse failure policy %q", s)
}

// ParseRetentionPolicy parses a policy name; "" is the default.
func ParseRetentionPolicy(s string) (RetentionPolicy, error) {
	switch RetentionPolicy(s) {
	case "", RetainFitOnly:
		return RetainFitOnly, nil
	case RetainAll:
		return RetainAll, nil
	}
	return "", fmt.Errorf("unknown retention policy %q", s)
}
