package utils

import (
	"regexp"
	"strings"
)

// --- Filename Sanitization ---
var invalidFilenameChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1F]`) // Characters invalid in Windows/Unix filenames
var consecutiveUnderscores = regexp.MustCompile(`_+`)                  // Pattern to replace multiple underscores with one
var leadingIndexPrefix = regexp.MustCompile(`^[0-9A-Z.]+_`)            // Leading "1.2_" / "A3_" style numbering on document names
var categoryTail = regexp.MustCompile(`--\s*(.+)`)                     // Category headings carry the real name after "--"

const maxFilenameLength = 100 // Max length for sanitized filenames

// SanitizeFilename cleans a string to be safe for use as a single path
// component. Path separators and traversal sequences are removed, so the
// result can never escape its parent directory.
func SanitizeFilename(name string) string {
	sanitized := strings.ReplaceAll(name, "..", "_")                    // Drop traversal sequences before anything else
	sanitized = invalidFilenameChars.ReplaceAllString(sanitized, "_")   // Replace invalid chars with underscore
	sanitized = strings.ReplaceAll(sanitized, " ", "_")                 // Spaces to underscores
	sanitized = consecutiveUnderscores.ReplaceAllString(sanitized, "_") // Collapse multiple underscores
	sanitized = strings.Trim(sanitized, "_ ")                           // Remove leading/trailing underscores or spaces

	// Limit filename length (simple byte truncation is sufficient here)
	if len(sanitized) > maxFilenameLength {
		sanitized = sanitized[:maxFilenameLength]
		sanitized = strings.Trim(sanitized, "_ ")
	}

	if sanitized == "" { // Handle cases where sanitization results in an empty string
		sanitized = "untitled"
	}
	return sanitized
}

// CleanDocumentName strips the leading serial-number prefix the site puts on
// document titles ("2A.3_Some Table" -> "Some Table") and sanitizes the rest.
// The extension is NOT appended here; callers add it after cleaning.
func CleanDocumentName(name string) string {
	cleaned := leadingIndexPrefix.ReplaceAllString(strings.TrimSpace(name), "")
	return SanitizeFilename(cleaned)
}

// FormatCategoryName turns a raw category heading into a directory name.
// Headings look like "Chapter 1 -- Accidental Deaths"; only the text after
// "--" matters. Falls back to the whole heading when no marker is present.
func FormatCategoryName(heading string) string {
	name := strings.TrimSpace(heading)
	if m := categoryTail.FindStringSubmatch(name); m != nil {
		name = strings.TrimSpace(m[1])
	}
	return SanitizeFilename(name)
}
