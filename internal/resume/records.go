package resume

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

const (
	redacted = "[redacted]"
	// Shorter values other than emails would blank out ordinary words.
	minContactLength = 4
)

// Names returns candidate names in input order.
func Names(records []Record) []string {
	names := make([]string, 0, len(records))
	for _, r := range records {
		names = append(names, r.Name)
	}
	return names
}

// Serialize renders records for a prompt as numbered, indented JSON blocks.
// Contact fields are left out.
func Serialize(records []Record) (string, error) {
	blocks := make([]string, 0, len(records))
	for i := range records {
		data, err := json.MarshalIndent(records[i].PromptView(), "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshal resume %q: %w", records[i].Name, err)
		}
		blocks = append(blocks, fmt.Sprintf("Resume %d:\n%s", i+1, data))
	}
	return strings.Join(blocks, "\n\n"), nil
}

// Redact replaces every contact value of the given records found in text.
// Matching ignores case; phone numbers also match with different separators.
func Redact(text string, records []Record) string {
	for i := range records {
		for _, value := range records[i].ContactValues() {
			if len(value) < minContactLength && !strings.Contains(value, "@") {
				continue
			}
			text = contactPattern(value).ReplaceAllString(text, redacted)
		}
	}
	return text
}

var phoneSeparators = `[\s\-\.\(\)/]*`

func contactPattern(value string) *regexp.Regexp {
	digits := make([]string, 0, len(value))
	for _, r := range value {
		if r >= '0' && r <= '9' {
			digits = append(digits, string(r))
		}
	}

	// Values that are mostly digits (phone numbers, dates) are matched digit by
	// digit so that "+1 (555) 010-2030" also catches "15550102030".
	if len(digits) >= 6 && len(digits)*2 >= len(value) {
		return regexp.MustCompile(strings.Join(digits, phoneSeparators))
	}

	return regexp.MustCompile(`(?i)` + regexp.QuoteMeta(value))
}
