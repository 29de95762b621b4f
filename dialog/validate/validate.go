// Package validate turns raw transcribed input into canonical field values.
// Everything here is a pure function of its arguments: the same raw text for
// the same field always normalizes, or fails, identically.
package validate

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	statex "github.com/voxline/custodyline/dialog/state"
)

// DateLayout is the canonical representation every date of birth is reduced
// to before it reaches the lookup collaborator.
const DateLayout = "2006-01-02"

const defaultMaxAgeYears = 120

// Reason classifies why an input was rejected. It feeds the clarifying
// re-prompt, never the caller verbatim.
type Reason string

const (
	ReasonEmpty           Reason = "empty"
	ReasonNotAName        Reason = "not_a_name"
	ReasonTooShort        Reason = "too_short"
	ReasonUnparseableDate Reason = "unparseable_date"
	ReasonFutureDate      Reason = "future_date"
	ReasonTooOld          Reason = "too_old"
)

// ErrInvalidInput is the sentinel all rejections match via errors.Is.
var ErrInvalidInput = errors.New("input rejected")

// InvalidError carries the field and rejection reason.
type InvalidError struct {
	Field  statex.Field
	Reason Reason
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *InvalidError) Is(target error) bool {
	return target == ErrInvalidInput
}

type Config struct {
	MaxAgeYears int `split_words:"true" default:"120"`
}

// Validator normalizes caller input per field. Stateless and safe for
// concurrent use.
type Validator struct {
	maxAgeYears int
}

func New(cfg Config) *Validator {
	maxAge := cfg.MaxAgeYears
	if maxAge <= 0 {
		maxAge = defaultMaxAgeYears
	}
	return &Validator{maxAgeYears: maxAge}
}

// Validate returns the canonical value for raw, or an *InvalidError. now only
// bounds the date-of-birth plausibility window; name fields ignore it.
func (v *Validator) Validate(field statex.Field, raw string, now time.Time) (string, error) {
	switch field {
	case statex.FieldFirstName, statex.FieldLastName:
		return v.validateName(field, raw)
	case statex.FieldDateOfBirth:
		return v.validateDate(raw, now)
	default:
		return "", fmt.Errorf("%w: %q", statex.ErrUnknownField, field)
	}
}

func (v *Validator) validateName(field statex.Field, raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", &InvalidError{Field: field, Reason: ReasonEmpty}
	}
	if !strings.ContainsFunc(trimmed, unicode.IsLetter) {
		return "", &InvalidError{Field: field, Reason: ReasonNotAName}
	}

	normalized := titleCase(strings.Join(strings.Fields(trimmed), " "))
	if len([]rune(normalized)) < 2 {
		return "", &InvalidError{Field: field, Reason: ReasonTooShort}
	}
	return normalized, nil
}

var ordinalSuffix = regexp.MustCompile(`(\d)(?:st|nd|rd|th)\b`)

// dateLayouts covers the spoken and typed phrasings the script accepts.
// Ordinal suffixes are stripped and words title-cased before matching.
var dateLayouts = []string{
	"January 2, 2006",
	"January 2 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"2 January 2006",
	"2 January, 2006",
	"1/2/2006",
	"1-2-2006",
	"2006-01-02",
	"2006-1-2",
}

func (v *Validator) validateDate(raw string, now time.Time) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", &InvalidError{Field: statex.FieldDateOfBirth, Reason: ReasonEmpty}
	}

	cleaned := strings.Join(strings.Fields(trimmed), " ")
	cleaned = ordinalSuffix.ReplaceAllString(cleaned, "$1")
	cleaned = titleCase(cleaned)

	var parsed time.Time
	var ok bool
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, cleaned)
		if err == nil {
			parsed, ok = t, true
			break
		}
	}
	if !ok {
		return "", &InvalidError{Field: statex.FieldDateOfBirth, Reason: ReasonUnparseableDate}
	}

	today := now.UTC()
	if parsed.After(today) {
		return "", &InvalidError{Field: statex.FieldDateOfBirth, Reason: ReasonFutureDate}
	}
	if parsed.Before(today.AddDate(-v.maxAgeYears, 0, 0)) {
		return "", &InvalidError{Field: statex.FieldDateOfBirth, Reason: ReasonTooOld}
	}

	return parsed.Format(DateLayout), nil
}

// titleCase uppercases every letter that follows a non-letter and lowercases
// the rest, matching how the collection script capitalizes heard names
// ("mary ann" -> "Mary Ann", "o'brien" -> "O'Brien").
func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
			continue
		}
		prevLetter = false
		b.WriteRune(r)
	}
	return b.String()
}
