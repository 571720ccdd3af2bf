package leak

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScan_RequiredExamples(t *testing.T) {
	d := New()

	for _, text := range []string{
		"call me 0555123456",
		"email me at a@b.com",
		"add me on wa.me/123",
	} {
		assert.False(t, d.Scan(text).Clean, "%q should be flagged", text)
	}
	assert.True(t, d.Scan("I like this project").Clean)
}

func TestScan_Kinds(t *testing.T) {
	d := New()

	tests := []struct {
		name string
		text string
		want Kind
	}{
		{"plain phone", "call me 0555123456", KindPhone},
		{"international phone", "my number is +966 55 512 3456", KindPhone},
		{"dashed phone", "ring 055-512-3456 tonight", KindPhone},
		{"spaced digits", "0 5 5 5 1 2 3 4 5 6", KindPhone},
		{"arabic digits", "تواصل معي على ٠٥٥٥١٢٣٤٥٦", KindPhone},
		{"full width digits", "call ０５５５１２３４５６", KindPhone},
		{"zero width split", "call 0555\u200b123\u200b456", KindPhone},
		{"email", "email me at a@b.com", KindEmail},
		{"bracket obfuscated email", "reach me: founder [at] acme [dot] com", KindEmail},
		{"spelled obfuscated email", "founder at acme dot io", KindEmail},
		{"url", "see https://example.org/deck", KindURL},
		{"www", "visit www.acme-solar.sa", KindURL},
		{"short link", "add me on wa.me/123", KindURL},
		{"telegram link", "t.me/founder", KindURL},
		{"handle", "follow @acme_founder", KindHandle},
		{"platform", "let's move this to WhatsApp", KindPlatform},
		{"arabic platform", "كلمني على الواتساب", KindPlatform},
		{"arabic telegram", "راسلني تيليجرام", KindPlatform},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := d.Scan(tt.text)
			assert.False(t, res.Clean)
			assert.Contains(t, res.Kinds(), string(tt.want))
		})
	}
}

func TestScan_CleanBusinessTalk(t *testing.T) {
	d := New()

	for _, text := range []string{
		"I like this project",
		"We could commit 50000 for 10% equity",
		"The pilot ran from 2026-03-01 to 2026-06-30",
		"Revenue was 1,250,000 last year",
		"Let me look at the numbers and get back to you",
		"هل يمكن مشاركة خطة العمل؟",
		"My email is on file with the platform",
	} {
		res := d.Scan(text)
		assert.True(t, res.Clean, "%q flagged as %v", text, res.Matches)
	}
}

func TestScan_EmailNotDoubleReportedAsHandleOrDomain(t *testing.T) {
	res := New().Scan("a@b.com")
	assert.Equal(t, []string{"email"}, res.Kinds())
}

func TestScan_ExtraPlatforms(t *testing.T) {
	d := New("Signal", " ")
	assert.False(t, d.Scan("ping me on signal").Clean)
	assert.True(t, New().Scan("ping me on signal").Clean)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "0555123456", Normalize("٠٥٥٥١٢٣٤٥٦"))
	assert.Equal(t, "0555123456", Normalize("۰۵۵۵۱۲۳۴۵۶"))
	assert.Equal(t, "abc123", Normalize("ＡＢＣ１２３"))
	assert.Equal(t, "wa.me", Normalize("wa\u200d.\u00adme"))
}
