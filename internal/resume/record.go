package resume

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Keys of the store document that identify or contact a candidate directly.
// They are never sent to the answer prompt.
var contactKeys = []string{"_id", "email", "phone", "dob", "date_of_birth"}

// Record is a single standardized resume as stored in the document store.
type Record struct {
	Name           string          `json:"name,omitempty" mapstructure:"name"`
	Email          string          `json:"email,omitempty" mapstructure:"email"`
	Phone          string          `json:"phone,omitempty" mapstructure:"phone"`
	DateOfBirth    string          `json:"date_of_birth,omitempty" mapstructure:"date_of_birth"`
	Location       string          `json:"location,omitempty" mapstructure:"location"`
	Summary        string          `json:"summary,omitempty" mapstructure:"summary"`
	Education      []Education     `json:"education,omitempty" mapstructure:"education"`
	Experience     []Experience    `json:"experience,omitempty" mapstructure:"experience"`
	Skills         []string        `json:"skills,omitempty" mapstructure:"skills"`
	Projects       []Project       `json:"projects,omitempty" mapstructure:"projects"`
	Certifications []Certification `json:"certifications,omitempty" mapstructure:"certifications"`
	Languages      []string        `json:"languages,omitempty" mapstructure:"languages"`
	SocialProfiles []SocialProfile `json:"social_profiles,omitempty" mapstructure:"social_profiles"`

	// Raw is the document as returned by the store, without the store identifier.
	Raw map[string]any `json:"-" mapstructure:"-"`
}

type Education struct {
	Degree      string `json:"degree,omitempty" mapstructure:"degree"`
	Institution string `json:"institution,omitempty" mapstructure:"institution"`
	Year        string `json:"year,omitempty" mapstructure:"year"`
}

type Experience struct {
	Title       string `json:"title,omitempty" mapstructure:"title"`
	Company     string `json:"company,omitempty" mapstructure:"company"`
	Duration    string `json:"duration,omitempty" mapstructure:"duration"`
	Location    string `json:"location,omitempty" mapstructure:"location"`
	Description string `json:"description,omitempty" mapstructure:"description"`
}

type Project struct {
	Title       string `json:"title,omitempty" mapstructure:"title"`
	Description string `json:"description,omitempty" mapstructure:"description"`
	Link        string `json:"link,omitempty" mapstructure:"link"`
}

type Certification struct {
	Title  string `json:"title,omitempty" mapstructure:"title"`
	Issuer string `json:"issuer,omitempty" mapstructure:"issuer"`
	Year   string `json:"year,omitempty" mapstructure:"year"`
	Link   string `json:"link,omitempty" mapstructure:"link"`
}

type SocialProfile struct {
	Platform string `json:"platform,omitempty" mapstructure:"platform"`
	Link     string `json:"link,omitempty" mapstructure:"link"`
}

// Decode builds a Record from a raw store document. Loosely typed values such
// as numeric years or a single skill string are converted where possible.
// When a section cannot be decoded the returned Record still carries the name,
// the contact fields and the raw document, so callers may keep it.
func Decode(doc map[string]any) (Record, error) {
	raw := make(map[string]any, len(doc))
	for k, v := range doc {
		if k == "_id" {
			continue
		}
		raw[k] = v
	}

	var rec Record
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &rec,
	})
	if err != nil {
		return Record{}, err
	}

	decodeErr := decoder.Decode(raw)
	if decodeErr != nil {
		rec = Record{
			Name:  valueAsString(raw["name"]),
			Email: valueAsString(raw["email"]),
			Phone: valueAsString(raw["phone"]),
		}
		decodeErr = fmt.Errorf("decode resume %q: %w", rec.Name, decodeErr)
	}

	if rec.DateOfBirth == "" {
		rec.DateOfBirth = valueAsString(raw["dob"])
	}

	rec.Name = strings.TrimSpace(rec.Name)
	rec.Raw = raw

	return rec, decodeErr
}

// ContactValues returns the non-empty contact values of the record.
func (r *Record) ContactValues() []string {
	values := make([]string, 0, 3)
	for _, v := range []string{r.Email, r.Phone, r.DateOfBirth} {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values
}

// PromptView returns the record content that may be shown to a language model:
// every section of the resume except the contact fields.
func (r *Record) PromptView() map[string]any {
	if r.Raw != nil {
		view := make(map[string]any, len(r.Raw))
		for k, v := range r.Raw {
			view[k] = v
		}
		for _, k := range contactKeys {
			delete(view, k)
		}
		return view
	}

	clean := *r
	clean.Email, clean.Phone, clean.DateOfBirth = "", "", ""

	view := map[string]any{}
	data, err := json.Marshal(clean)
	if err != nil {
		return map[string]any{"name": r.Name}
	}
	if err := json.Unmarshal(data, &view); err != nil {
		return map[string]any{"name": r.Name}
	}
	return view
}

func valueAsString(v any) string {
	if v == nil {
		return ""
	}

	switch typed := v.(type) {
	case string:
		return strings.TrimSpace(typed)
	case fmt.Stringer:
		return typed.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
