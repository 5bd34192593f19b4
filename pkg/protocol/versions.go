package protocol

// Protocol versions this module understands, newest first. A client that
// requests an unrecognized version is answered with LatestVersion - the
// server never fails initialize over a version mismatch, it just states
// what it actually speaks.
const (
	Version20250618 = "2025-06-18"
	Version20250326 = "2025-03-26"
	Version20241105 = "2024-11-05"
)

// LatestVersion is offered whenever a client's requested version isn't one
// we recognize.
const LatestVersion = Version20250618

// SupportedVersions lists every version this module negotiates, newest
// first.
var SupportedVersions = []string{Version20250618, Version20250326, Version20241105}

// NegotiateVersion implements MCP version negotiation: echo the
// requested version back if it's one we support, otherwise fall back to
// the latest version this server speaks.
func NegotiateVersion(requested string) string {
	for _, v := range SupportedVersions {
		if v == requested {
			return requested
		}
	}
	return LatestVersion
}

// SupportsTitle reports whether a negotiated version carries the `title`
// field added in 2025-06-18.
func SupportsTitle(version string) bool {
	return version == Version20250618
}

// SupportsOutputSchema reports whether a negotiated version carries tool
// `outputSchema`/`structuredContent`, added in 2025-06-18.
func SupportsOutputSchema(version string) bool {
	return version == Version20250618
}

// SupportsAnnotations reports whether a negotiated version carries
// tool/resource `annotations`, added in 2025-03-26.
func SupportsAnnotations(version string) bool {
	return version == Version20250618 || version == Version20250326
}

// SupportsAudioContent reports whether a negotiated version allows audio
// content items, added in 2025-03-26.
func SupportsAudioContent(version string) bool {
	return version == Version20250618 || version == Version20250326
}

// StripVersionedFields zeroes the fields of t that the given negotiated
// version doesn't carry, so a tools/list response only ever contains
// fields the client understands.
func StripVersionedFields(t Tool, version string) Tool {
	if !SupportsTitle(version) {
		t.Title = ""
	}
	if !SupportsOutputSchema(version) {
		t.OutputSchema = nil
	}
	if !SupportsAnnotations(version) {
		t.Annotations = nil
	}
	return t
}

// StripPromptVersionedFields is the prompts/list analogue of
// StripVersionedFields.
func StripPromptVersionedFields(p Prompt, version string) Prompt {
	if !SupportsTitle(version) {
		p.Title = ""
	}
	return p
}

// StripResourceVersionedFields is the resources/list analogue of
// StripVersionedFields.
func StripResourceVersionedFields(r Resource, version string) Resource {
	if !SupportsAnnotations(version) {
		r.Annotations = nil
	}
	return r
}
