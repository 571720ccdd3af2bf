// Package leak scans outgoing negotiation messages for attempts to move the
// conversation off the platform.
package leak

import (
	"regexp"
	"strings"
)

type Kind string

const (
	KindPhone    Kind = "phone"
	KindEmail    Kind = "email"
	KindURL      Kind = "url"
	KindHandle   Kind = "handle"
	KindPlatform Kind = "platform"
)

// Match is one suspicious fragment of a message.
type Match struct {
	Kind Kind
	Text string
}

// Result is the outcome of a scan.
type Result struct {
	Clean   bool
	Matches []Match
}

// Kinds returns the distinct match kinds in first-seen order.
func (r Result) Kinds() []string {
	var kinds []string
	seen := map[Kind]bool{}
	for _, m := range r.Matches {
		if !seen[m.Kind] {
			seen[m.Kind] = true
			kinds = append(kinds, string(m.Kind))
		}
	}
	return kinds
}

var (
	phonePattern = regexp.MustCompile(`\+?\d(?:[\s\-.()/]*\d){7,}`)
	datePattern  = regexp.MustCompile(`^\d{4}[\-./]\d{1,2}[\-./]\d{1,2}$|^\d{1,2}[\-./]\d{1,2}[\-./]\d{4}$`)

	emailPattern      = regexp.MustCompile(`[a-z0-9._%+\-]+@[a-z0-9\-]+(?:\.[a-z0-9\-]+)*\.[a-z]{2,}`)
	obfuscatedAt      = `(?:\s*[\[(]\s*at\s*[\])]\s*|\s+at\s+)`
	obfuscatedDot     = `(?:\s*[\[(]\s*dot\s*[\])]\s*|\s+dot\s+)`
	obfuscatedPattern = regexp.MustCompile(`[a-z0-9._%+\-]+` + obfuscatedAt + `[a-z0-9\-]+` + obfuscatedDot + `[a-z]{2,}`)

	urlPattern    = regexp.MustCompile(`(?:https?://|www\.)\S+`)
	domainPattern = regexp.MustCompile(`\b[a-z0-9\-]+(?:\.[a-z0-9\-]+)*\.(?:com|net|org|io|co|me|sa|ae|eg|info|biz|app|dev|ly|gg|link|site|online)\b(?:/\S*)?`)

	handlePattern = regexp.MustCompile(`(?:^|[^a-z0-9._%+\-])(@[a-z0-9_.]{3,})`)
)

var platformWords = []string{
	"whatsapp", "whats app", "telegram", "instagram", "snapchat", "facebook", "messenger",
	"viber", "wechat", "skype", "tiktok", "twitter", "linkedin", "discord",
}

var platformWordPattern = regexp.MustCompile(`\b(?:` + strings.Join(escapeAll(platformWords), "|") + `)\b`)

// Arabic script has no ASCII word boundaries, so these match as substrings.
var platformArabic = []string{
	"واتساب", "واتس اب", "وتساب", "واتس", "تيليجرام", "تلغرام", "تليجرام", "تلجرام",
	"انستقرام", "انستغرام", "انستجرام", "سناب", "فيسبوك", "فيس بوك", "تويتر", "تيك توك", "لينكد",
}

// Detector applies the contact-leak rules. The zero value is ready to use.
type Detector struct {
	extraPlatforms []string
}

// New returns a Detector that also flags the given platform names.
func New(extraPlatforms ...string) *Detector {
	d := &Detector{}
	for _, p := range extraPlatforms {
		if p = strings.TrimSpace(strings.ToLower(p)); p != "" {
			d.extraPlatforms = append(d.extraPlatforms, p)
		}
	}
	return d
}

// Scan reports every suspicious fragment in text. A message is clean only
// when no rule matches.
func (d *Detector) Scan(text string) Result {
	s := Normalize(text)
	var matches []Match
	add := func(k Kind, frag string) {
		matches = append(matches, Match{Kind: k, Text: strings.TrimSpace(frag)})
	}

	for _, m := range phonePattern.FindAllString(s, -1) {
		if !datePattern.MatchString(strings.TrimSpace(m)) {
			add(KindPhone, m)
		}
	}
	for _, m := range emailPattern.FindAllString(s, -1) {
		add(KindEmail, m)
	}
	for _, m := range obfuscatedPattern.FindAllString(s, -1) {
		add(KindEmail, m)
	}
	for _, m := range urlPattern.FindAllString(s, -1) {
		add(KindURL, m)
	}
	// Domains inside an email were already reported as the email.
	withoutEmails := emailPattern.ReplaceAllString(s, " ")
	for _, m := range domainPattern.FindAllString(withoutEmails, -1) {
		add(KindURL, m)
	}
	for _, m := range handlePattern.FindAllStringSubmatch(s, -1) {
		add(KindHandle, m[1])
	}
	for _, m := range platformWordPattern.FindAllString(s, -1) {
		add(KindPlatform, m)
	}
	for _, w := range platformArabic {
		if strings.Contains(s, w) {
			add(KindPlatform, w)
		}
	}
	for _, w := range d.extraPlatforms {
		if strings.Contains(s, w) {
			add(KindPlatform, w)
		}
	}

	return Result{Clean: len(matches) == 0, Matches: dedupe(matches)}
}

func dedupe(in []Match) []Match {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[Match]bool, len(in))
	out := in[:0]
	for _, m := range in {
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	return out
}

func escapeAll(words []string) []string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = regexp.QuoteMeta(w)
	}
	return out
}
