package enrich

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestParseResult(t *testing.T) {
	text := `TITLE_EN: Bitcoin Hits New High
SUMMARY: Bitcoin nåede et nyt toppunkt tirsdag.
SUMMARY_EN: Bitcoin reached a new peak on Tuesday.`

	res := parseResult(text)
	if res.TitleTranslated != "Bitcoin Hits New High" {
		t.Errorf("TitleTranslated = %q", res.TitleTranslated)
	}
	if res.Summary != "Bitcoin nåede et nyt toppunkt tirsdag." {
		t.Errorf("Summary = %q", res.Summary)
	}
	if res.SummaryTranslated != "Bitcoin reached a new peak on Tuesday." {
		t.Errorf("SummaryTranslated = %q", res.SummaryTranslated)
	}
}

func TestParseResult_MangledResponse(t *testing.T) {
	// Extra chatter and reordered lines still parse; SUMMARY_EN must not be
	// swallowed by the SUMMARY prefix.
	text := `Sure! Here is the breakdown:

SUMMARY_EN: English version.
TITLE_EN: The Title
SUMMARY: Original version.
Hope that helps.`

	res := parseResult(text)
	if res.Summary != "Original version." {
		t.Errorf("Summary = %q", res.Summary)
	}
	if res.SummaryTranslated != "English version." {
		t.Errorf("SummaryTranslated = %q", res.SummaryTranslated)
	}
	if res.TitleTranslated != "The Title" {
		t.Errorf("TitleTranslated = %q", res.TitleTranslated)
	}
}

func TestParseResult_MissingLines(t *testing.T) {
	res := parseResult("no structured lines here")
	if res.TitleTranslated != "" || res.Summary != "" || res.SummaryTranslated != "" {
		t.Errorf("expected empty result, got %+v", res)
	}
}

func TestTruncateContent(t *testing.T) {
	short := truncateContent("a  b\n c")
	if short != "a b c" {
		t.Errorf("whitespace collapse = %q", short)
	}

	sentence := "This is a sentence. "
	long := strings.Repeat(sentence, 500)
	got := truncateContent(long)
	if n := utf8.RuneCountInString(got); n > maxPromptRunes {
		t.Errorf("truncated to %d runes, cap is %d", n, maxPromptRunes)
	}
	if !strings.HasSuffix(got, ".") {
		t.Errorf("truncation did not end on a sentence: %q", got[len(got)-20:])
	}
}

func TestLimiter(t *testing.T) {
	l := NewLimiter(3)
	for i := 0; i < 3; i++ {
		if !l.Allow() {
			t.Fatalf("request %d denied within budget", i)
		}
	}
	if l.Allow() {
		t.Error("request beyond budget was allowed")
	}
	if l.Used() != 3 {
		t.Errorf("Used = %d, want 3", l.Used())
	}
}

func TestLimiter_ZeroMeansUnlimited(t *testing.T) {
	l := NewLimiter(0)
	for i := 0; i < 100; i++ {
		if !l.Allow() {
			t.Fatalf("unlimited limiter denied request %d", i)
		}
	}
}
