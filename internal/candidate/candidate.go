// Package candidate derives deterministic fill values that need no model
// call: device/environment facts parsed from the platform identity string,
// and professional facts extracted from already-open tab titles.
package candidate

import (
	"regexp"
	"strings"

	"github.com/fieldsense/fieldsense/internal/field"
)

// Candidate is a proposed fill value with provenance.
type Candidate struct {
	Value      string  `json:"value"`
	Source     string  `json:"source"`
	Confidence float64 `json:"confidence"`
}

// Tab is a sanitized open-tab reference. Callers must pass tabs that have
// already been through the ambient sensitive-domain filter.
type Tab struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Environment carries locally known platform identity facts.
type Environment struct {
	// Platform is a user-agent style identity string, e.g.
	// "Mozilla/5.0 (Windows NT 10.0; Win64; x64) ... Chrome/126.0".
	Platform string `json:"platform"`
	// AppVersion is the host application's own version, if known.
	AppVersion string `json:"appVersion"`
}

// Synthesize returns deterministic candidates for the classified field, or
// nil when nothing can be derived locally. A non-empty result means the
// pipeline is form-fill satisfied and skips inference entirely.
func Synthesize(cat field.Category, env Environment, tabs []Tab) []Candidate {
	switch cat {
	case field.CategoryOS:
		if v := parseOS(env.Platform); v != "" {
			return []Candidate{{Value: v, Source: "platform", Confidence: 1.0}}
		}
	case field.CategoryBrowser:
		if v := parseBrowser(env.Platform); v != "" {
			return []Candidate{{Value: v, Source: "platform", Confidence: 1.0}}
		}
	case field.CategoryVersion:
		if env.AppVersion != "" {
			return []Candidate{{Value: env.AppVersion, Source: "platform", Confidence: 1.0}}
		}
	case field.CategoryJobTitle, field.CategoryCompany, field.CategoryWebsite, field.CategoryFullName:
		return fromProfessionalTab(cat, tabs)
	}
	return nil
}

var (
	windowsNT  = regexp.MustCompile(`Windows NT (\d+)(?:\.(\d+))?`)
	macOSVer   = regexp.MustCompile(`Mac OS X (\d+)[_.](\d+)`)
	chromeVer  = regexp.MustCompile(`Chrome/(\d+)`)
	firefoxVer = regexp.MustCompile(`Firefox/(\d+)`)
	safariVer  = regexp.MustCompile(`Version/(\d+(?:\.\d+)?).*Safari`)
	edgeVer    = regexp.MustCompile(`Edg/(\d+)`)
)

// ntNames maps Windows NT kernel versions to marketing names.
var ntNames = map[string]string{
	"10":  "Windows 10",
	"6.3": "Windows 8.1",
	"6.2": "Windows 8",
	"6.1": "Windows 7",
}

// parseOS extracts a human operating-system name from a platform identity
// string. Unrecognized platforms yield "" rather than a guess.
func parseOS(platform string) string {
	if m := windowsNT.FindStringSubmatch(platform); m != nil {
		key := m[1]
		if m[2] != "" && m[2] != "0" {
			key = m[1] + "." + m[2]
		}
		if name, ok := ntNames[key]; ok {
			return name
		}
		return "Windows"
	}
	if m := macOSVer.FindStringSubmatch(platform); m != nil {
		return "macOS " + m[1] + "." + m[2]
	}
	switch {
	case strings.Contains(platform, "Mac OS X"), strings.Contains(platform, "Macintosh"):
		return "macOS"
	case strings.Contains(platform, "CrOS"):
		return "ChromeOS"
	case strings.Contains(platform, "Android"):
		return "Android"
	case strings.Contains(platform, "Linux"):
		return "Linux"
	}
	return ""
}

// parseBrowser extracts the browser name and major version. Order matters:
// Edge and Chrome both advertise "Chrome/", Safari advertises "Safari" from
// Chrome too.
func parseBrowser(platform string) string {
	if m := edgeVer.FindStringSubmatch(platform); m != nil {
		return "Microsoft Edge " + m[1]
	}
	if m := chromeVer.FindStringSubmatch(platform); m != nil {
		return "Chrome " + m[1]
	}
	if m := firefoxVer.FindStringSubmatch(platform); m != nil {
		return "Firefox " + m[1]
	}
	if m := safariVer.FindStringSubmatch(platform); m != nil {
		return "Safari " + m[1]
	}
	return ""
}

// professionalDomains are tab hosts worth scanning for identity facts.
var professionalDomains = []string{"linkedin.com", "xing.com", "angel.co"}

// profileTitle matches "Name — Role at Company" and "Name - Role - Company"
// title shapes used by professional-network profile pages. The trailing
// "| Site" segment is stripped first.
var (
	roleAtCompany = regexp.MustCompile(`^(.+?)\s+[—–-]\s+(.+?)\s+at\s+(.+)$`)
	dashSegments  = regexp.MustCompile(`\s+[—–|-]\s+`)
)

// fromProfessionalTab extracts a candidate for cat from the first
// professional-network tab whose title parses. Extraction failure yields no
// candidate rather than a guess.
func fromProfessionalTab(cat field.Category, tabs []Tab) []Candidate {
	for _, tab := range tabs {
		host := hostOf(tab.URL)
		if !isProfessionalHost(host) {
			continue
		}
		if cat == field.CategoryWebsite {
			return []Candidate{{Value: tab.URL, Source: host, Confidence: 0.9}}
		}
		name, role, company, ok := parseProfileTitle(tab.Title)
		if !ok {
			continue
		}
		switch cat {
		case field.CategoryFullName:
			return []Candidate{{Value: name, Source: host, Confidence: 0.8}}
		case field.CategoryJobTitle:
			return []Candidate{{Value: role, Source: host, Confidence: 0.8}}
		case field.CategoryCompany:
			if company != "" {
				return []Candidate{{Value: company, Source: host, Confidence: 0.8}}
			}
		}
	}
	return nil
}

func isProfessionalHost(host string) bool {
	for _, d := range professionalDomains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// hostOf extracts the host portion of a URL without parsing the full URL
// grammar; tab URLs arrive well-formed from the browser.
func hostOf(rawURL string) string {
	s := rawURL
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimPrefix(s, "www.")
	if i := strings.Index(s, ":"); i >= 0 {
		s = s[:i]
	}
	return strings.ToLower(s)
}

// parseProfileTitle splits a profile page title into name, role and company.
// Supports "Name — Role at Company | Site" and "Name - Role - Site".
func parseProfileTitle(title string) (name, role, company string, ok bool) {
	title = strings.TrimSpace(title)
	// Drop the trailing site segment ("... | LinkedIn").
	if i := strings.LastIndex(title, "|"); i >= 0 {
		title = strings.TrimSpace(title[:i])
	}
	if m := roleAtCompany.FindStringSubmatch(title); m != nil {
		return strings.TrimSpace(m[1]), strings.TrimSpace(m[2]), strings.TrimSpace(m[3]), true
	}
	segs := dashSegments.Split(title, -1)
	if len(segs) >= 2 && segs[0] != "" && segs[1] != "" {
		name = strings.TrimSpace(segs[0])
		role = strings.TrimSpace(segs[1])
		if len(segs) >= 3 {
			company = strings.TrimSpace(segs[2])
		}
		return name, role, company, true
	}
	return "", "", "", false
}
