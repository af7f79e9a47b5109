package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantMsg string
		wantCat Category
	}{
		{
			name:    "usage error",
			code:    "E201",
			wantMsg: "Malformed virtual module id",
			wantCat: CategoryUsage,
		},
		{
			name:    "config error",
			code:    "E232",
			wantMsg: "Unknown environment affinity",
			wantCat: CategoryConfig,
		},
		{
			name:    "asset error",
			code:    "E260",
			wantMsg: "Failed to fetch static asset",
			wantCat: CategoryAsset,
		},
		{
			name:    "unknown error code",
			code:    "E999",
			wantMsg: "Unknown error",
			wantCat: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code)
			if err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMsg)
			}
			if err.Category != tt.wantCat {
				t.Errorf("Category = %q, want %q", err.Category, tt.wantCat)
			}
			if err.Code != tt.code {
				t.Errorf("Code = %q, want %q", err.Code, tt.code)
			}
		})
	}
}

func TestErrorIncludesDetailAndCause(t *testing.T) {
	cause := stderrors.New("boom")
	err := New("E201").WithDetail(`got "x"`).Wrap(cause)

	msg := err.Error()
	for _, want := range []string{"E201", "Malformed virtual module id", `got "x"`, "boom"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() = %q, missing %q", msg, want)
		}
	}
	if !stderrors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
}

func TestIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("resolving: %w", New("E202").WithDetail("page /x"))

	if !stderrors.Is(err, New("E202")) {
		t.Error("expected errors.Is to match by code")
	}
	if stderrors.Is(err, New("E201")) {
		t.Error("different codes must not match")
	}
	if !HasCode(err, "E202") {
		t.Error("HasCode(E202) = false")
	}
	if !IsUsage(err) {
		t.Error("IsUsage = false for E202")
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil, "E230") != nil {
		t.Error("FromError(nil) should be nil")
	}

	orig := New("E231")
	if got := FromError(orig, "E230"); got != orig {
		t.Error("FromError should return an existing SSRError unchanged")
	}

	wrapped := FromError(stderrors.New("disk"), "E230")
	if wrapped.Code != "E230" || wrapped.Wrapped == nil {
		t.Errorf("FromError = %+v", wrapped)
	}
}

func TestFormat(t *testing.T) {
	DisableColors()
	defer EnableColors()

	out := New("E220").
		WithDetail("https://example.com/").
		WithSuggestion("Only prefetch same-origin links").
		Format()

	for _, want := range []string{"ERROR E220", "https://example.com/", "Hint: Only prefetch", "Learn more:"} {
		if !strings.Contains(out, want) {
			t.Errorf("Format() missing %q:\n%s", want, out)
		}
	}
}

func TestFormatJSON(t *testing.T) {
	out := New("E240").WithDetail("/a/:").FormatJSON()
	if !strings.Contains(out, `"code":"E240"`) || !strings.Contains(out, `"detail":"/a/:"`) {
		t.Errorf("FormatJSON() = %s", out)
	}
}

func TestWrapText(t *testing.T) {
	lines := wrapText("one two three four five six", 9)
	for _, l := range lines {
		if len(l) > 9 {
			t.Errorf("line %q exceeds width", l)
		}
	}
	if strings.Join(lines, " ") != "one two three four five six" {
		t.Errorf("wrapText lost words: %v", lines)
	}
}
