package rules

import (
	"os"
	"path/filepath"
	"testing"
)

func writeCorrections(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "corrections.rules")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("failed to write corrections file: %v", err)
	}
	return path
}

func TestEngineLiteralAndRegexCorrections(t *testing.T) {
	t.Parallel()

	path := writeCorrections(t, `
# literal
jon at example => john@example.com
# regex, case-insensitive by default
s/\bvoice\s*desk\b/voicedesk/g
`)

	engine, err := NewEngine(path, 30)
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}

	output, err := engine.Apply("email Jon at example about Voice Desk")
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if output != "email john@example.com about voicedesk" {
		t.Fatalf("unexpected output: %q", output)
	}
}

func TestEngineIteratesUntilStable(t *testing.T) {
	t.Parallel()

	path := writeCorrections(t, "a => b\nb => c\n")

	engine, err := NewEngine(path, 5)
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}

	output, err := engine.Apply("a")
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if output != "c" {
		t.Fatalf("expected c, got %q", output)
	}
}

func TestEngineLiteralRuleStartingWithS(t *testing.T) {
	t.Parallel()

	path := writeCorrections(t, "send male => send mail\n")

	engine, err := NewEngine(path, 30)
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}

	output, err := engine.Apply("please send male now")
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if output != "please send mail now" {
		t.Fatalf("unexpected output: %q", output)
	}
}

func TestEngineMissingFileIsPassThrough(t *testing.T) {
	t.Parallel()

	engine, err := NewEngine(filepath.Join(t.TempDir(), "absent.rules"), 30)
	if err != nil {
		t.Fatalf("expected pass-through engine, got %v", err)
	}

	output, err := engine.Apply("unchanged")
	if err != nil || output != "unchanged" {
		t.Fatalf("unexpected result: %q %v", output, err)
	}
}

func TestRegexRuleWithoutGlobalReplacesFirstMatchOnly(t *testing.T) {
	t.Parallel()

	apply, err := compileLine(`s/foo/bar/`)
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}

	output, changed := apply("foo foo")
	if !changed {
		t.Fatalf("expected changed=true")
	}
	if output != "bar foo" {
		t.Fatalf("unexpected output: %q", output)
	}
}

func TestCompileLineRejectsUnsupportedFlag(t *testing.T) {
	t.Parallel()

	if _, err := compileLine(`s/foo/bar/x`); err == nil {
		t.Fatalf("expected unsupported flag error")
	}
}

func TestNewEngineRejectsMalformedLine(t *testing.T) {
	t.Parallel()

	path := writeCorrections(t, "not a correction\n")
	if _, err := NewEngine(path, 30); err == nil {
		t.Fatalf("expected unsupported format error")
	}
}

func TestNewEngineRejectsUnterminatedRegex(t *testing.T) {
	t.Parallel()

	path := writeCorrections(t, "s/foo/bar\n")
	if _, err := NewEngine(path, 30); err == nil {
		t.Fatalf("expected unterminated expression error")
	}
}
