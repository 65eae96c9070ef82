package ingest

import "testing"

func TestPlainTextNoMarkup(t *testing.T) {
	in := "  Plain text a < b and 3 > 2\r\nsecond line  "
	want := "Plain text a < b and 3 > 2\nsecond line"
	if got := PlainText(in); got != want {
		t.Errorf("PlainText = %q, want %q", got, want)
	}
}

func TestPlainTextLineBreaks(t *testing.T) {
	in := "First line<br>Second &amp; third<br/><p>Para</p>"
	want := "First line\nSecond & third\nPara"
	if got := PlainText(in); got != want {
		t.Errorf("PlainText = %q, want %q", got, want)
	}
}

func TestPlainTextLists(t *testing.T) {
	in := "<ul><li>One</li><li>Two</li></ul>"
	want := "- One\n- Two"
	if got := PlainText(in); got != want {
		t.Errorf("PlainText = %q, want %q", got, want)
	}
}

func TestPlainTextDropsScripts(t *testing.T) {
	in := "Hello<script>alert(1)</script> world"
	if got := PlainText(in); got != "Hello world" {
		t.Errorf("PlainText = %q", got)
	}
}

func TestPlainTextEntitiesOnly(t *testing.T) {
	if got := PlainText("Tom &amp; Jerry&nbsp;forever"); got != "Tom & Jerry forever" {
		t.Errorf("PlainText = %q", got)
	}
}

func TestPlainTextCollapsesBlankRuns(t *testing.T) {
	in := "<p>a</p><p></p><p></p><p>b</p>"
	if got := PlainText(in); got != "a\n\nb" {
		t.Errorf("PlainText = %q", got)
	}
}
