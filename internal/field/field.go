// Package field classifies a focused text input into a semantic category.
//
// Classification is a pure function over the field's descriptive attributes.
// The sensitivity check always runs first and short-circuits: a field that
// looks like a password or payment input is "sensitive" no matter what else
// matches, and its value must never leave the classifier.
package field

import (
	"regexp"
	"strings"
)

// Descriptor carries the descriptive attributes of the currently focused
// input, as reported by the extension content script. All fields are
// optional; classification works off whatever is present.
type Descriptor struct {
	Name         string `json:"name"`
	ID           string `json:"id"`
	Placeholder  string `json:"placeholder"`
	Autocomplete string `json:"autocomplete"`
	AriaLabel    string `json:"ariaLabel"`
	NearbyLabel  string `json:"nearbyLabel"`
	InputType    string `json:"inputType"`
}

// Category is the closed set of semantic field classifications.
type Category string

const (
	CategorySensitive Category = "sensitive"
	CategoryUnknown   Category = "unknown"
	CategoryFirstName Category = "first_name"
	CategoryLastName  Category = "last_name"
	CategoryFullName  Category = "full_name"
	CategoryEmail     Category = "email"
	CategoryJobTitle  Category = "job_title"
	CategoryCompany   Category = "company"
	CategoryWebsite   Category = "website"
	CategoryOS        Category = "os"
	CategoryBrowser   Category = "browser"
	CategoryVersion   Category = "software_version"
	CategoryIssue     Category = "issue_description"
	CategorySearch    Category = "search"
)

// Recognized reports whether c is a concrete category the candidate
// synthesizer or form-fill prompt can act on. Sensitive and unknown are not
// recognized.
func (c Category) Recognized() bool {
	return c != CategorySensitive && c != CategoryUnknown
}

// FormFill reports whether c is a short-answer form field rather than a
// free-text surface like search or issue description.
func (c Category) FormFill() bool {
	switch c {
	case CategorySearch, CategoryIssue, CategorySensitive, CategoryUnknown:
		return false
	}
	return true
}

// sensitiveInputTypes are HTML input types that always classify as sensitive.
var sensitiveInputTypes = map[string]bool{
	"password": true,
	"hidden":   true,
}

// sensitiveKeywords block classification outright. Matched as substrings of
// the normalized descriptor text.
var sensitiveKeywords = []string{
	"password", "passwd", "passphrase", "pwd",
	"secret", "token", "api_key", "apikey",
	"otp", "one_time", "2fa", "mfa", "verification_code", "security_code",
	"cvv", "cvc", "card_number", "credit_card", "expiry",
	"ssn", "social_security", "tax_id", "national_id",
	"iban", "routing_number", "account_number", "sort_code",
	"pin",
}

// rule maps keyword matchers to one category. Rules are evaluated in order
// and the first match wins; keyword sets are disjoint by construction so
// ordering only matters for specificity (first_name before full_name).
type rule struct {
	category Category
	keywords []string
}

// rules is the single authoritative classification table. Keyword lists are
// matched against the normalized concatenation of every descriptor string.
var rules = []rule{
	{CategoryFirstName, []string{"first_name", "firstname", "given_name", "fname"}},
	{CategoryLastName, []string{"last_name", "lastname", "family_name", "surname", "lname"}},
	{CategoryFullName, []string{"full_name", "fullname", "your_name", "display_name"}},
	{CategoryEmail, []string{"email", "e_mail"}},
	{CategoryJobTitle, []string{"job_title", "jobtitle", "role", "position", "occupation"}},
	{CategoryCompany, []string{"company", "organization", "organisation", "employer"}},
	{CategoryWebsite, []string{"website", "homepage", "portfolio", "profile_url", "linkedin", "github_url"}},
	{CategoryOS, []string{"operating_system", "os", "os_field", "os_version", "platform"}},
	{CategoryBrowser, []string{"browser", "user_agent"}},
	{CategoryVersion, []string{"app_version", "software_version", "build_number", "release_version"}},
	{CategoryIssue, []string{"issue", "bug_report", "describe", "description", "feedback", "steps_to_reproduce"}},
	{CategorySearch, []string{"search", "query", "q", "find"}},
}

// wordSep collapses runs of separators so "first-name", "first name" and
// "firstName" all normalize to "first_name".
var wordSep = regexp.MustCompile(`[\s\-./:]+`)

var camelBoundary = regexp.MustCompile(`([a-z0-9])([A-Z])`)

// Normalize lowercases and separator-collapses a descriptor string.
func Normalize(s string) string {
	s = camelBoundary.ReplaceAllString(s, "${1}_${2}")
	s = strings.ToLower(s)
	s = wordSep.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}

// normalizedText joins every descriptor attribute into one searchable string.
func normalizedText(d Descriptor) string {
	parts := []string{d.Name, d.ID, d.Placeholder, d.Autocomplete, d.AriaLabel, d.NearbyLabel}
	joined := make([]string, 0, len(parts))
	for _, p := range parts {
		if n := Normalize(p); n != "" {
			joined = append(joined, n)
		}
	}
	return strings.Join(joined, "_")
}

// matches reports whether kw occurs in the normalized text. Short keywords
// ("pin", "pwd", "q") must match a whole token so they cannot fire inside
// unrelated words like "shipping".
func matches(text string, tokens map[string]bool, kw string) bool {
	if len(kw) <= 3 && !strings.Contains(kw, "_") {
		return tokens[kw]
	}
	return strings.Contains(text, kw)
}

// Classify maps a descriptor to a category. Pure: identical descriptor in,
// identical category out. The sensitivity check runs first and
// short-circuits everything else.
func Classify(d Descriptor) Category {
	if sensitiveInputTypes[strings.ToLower(strings.TrimSpace(d.InputType))] {
		return CategorySensitive
	}
	text := normalizedText(d)
	tokens := make(map[string]bool)
	for _, tok := range strings.Split(text, "_") {
		tokens[tok] = true
	}
	for _, kw := range sensitiveKeywords {
		if matches(text, tokens, kw) {
			return CategorySensitive
		}
	}
	if text == "" {
		return CategoryUnknown
	}
	for _, r := range rules {
		for _, kw := range r.keywords {
			if matches(text, tokens, kw) {
				return r.category
			}
		}
	}
	return CategoryUnknown
}

// Label returns a human-readable label for a category, used in form-fill
// prompts.
func (c Category) Label() string {
	switch c {
	case CategoryFirstName:
		return "first name"
	case CategoryLastName:
		return "last name"
	case CategoryFullName:
		return "full name"
	case CategoryEmail:
		return "email address"
	case CategoryJobTitle:
		return "job title"
	case CategoryCompany:
		return "company"
	case CategoryWebsite:
		return "website URL"
	case CategoryOS:
		return "operating system"
	case CategoryBrowser:
		return "web browser"
	case CategoryVersion:
		return "software version"
	case CategoryIssue:
		return "issue description"
	case CategorySearch:
		return "search query"
	}
	return string(c)
}
