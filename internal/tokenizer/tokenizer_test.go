package tokenizer

import "testing"

func upper(expr string) string {
	out := make([]byte, len(expr))
	for i := 0; i < len(expr); i++ {
		c := expr[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}

func TestParse_NoTokens(t *testing.T) {
	got := Parse("${", "}", upper, "select * from t")
	if got != "select * from t" {
		t.Fatalf("got %q", got)
	}
}

func TestParse_Empty(t *testing.T) {
	if got := Parse("${", "}", upper, ""); got != "" {
		t.Fatalf("got %q", got)
	}
}

func TestParse_SingleToken(t *testing.T) {
	got := Parse("${", "}", upper, "select ${col} from t")
	want := "select COL from t"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestParse_MultipleTokens(t *testing.T) {
	got := Parse("#{", "}", func(string) string { return "?" }, "where a = #{a} and b = #{b}")
	want := "where a = ? and b = ?"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestParse_EscapedOpenToken(t *testing.T) {
	got := Parse("${", "}", upper, `a \${x} b`)
	want := "a ${x} b"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestParse_EscapedCloseToken(t *testing.T) {
	got := Parse("${", "}", func(e string) string { return "[" + e + "]" }, `${a\}b}`)
	want := "[a}b]"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestParse_UnmatchedOpenToken(t *testing.T) {
	got := Parse("${", "}", upper, "select ${col from t")
	want := "select ${col from t"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestParse_AdjacentTokens(t *testing.T) {
	got := Parse("${", "}", upper, "${a}${b}")
	want := "AB"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestParse_TrailingTextAfterLastToken(t *testing.T) {
	got := Parse("${", "}", upper, "${a} trailing")
	want := "A trailing"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
