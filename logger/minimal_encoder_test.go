package logger

import (
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// stripANSI removes ANSI color codes from a string for testing
func stripANSI(str string) string {
	ansiRegex := regexp.MustCompile(`\x1b\[[0-9;]*m`)
	return ansiRegex.ReplaceAllString(str, "")
}

func encode(t *testing.T, enc zapcore.Encoder, ent zapcore.Entry, fields ...zapcore.Field) string {
	t.Helper()
	buf, err := enc.EncodeEntry(ent, fields)
	if err != nil {
		t.Fatalf("EncodeEntry failed: %v", err)
	}
	defer buf.Free()
	return stripANSI(buf.String())
}

// The console encoder must never silently drop a field.
func TestMinimalEncoderNeverDiscardsFields(t *testing.T) {
	entry := zapcore.Entry{
		Level:      zapcore.InfoLevel,
		Time:       time.Now(),
		LoggerName: "test",
		Message:    "Testing field preservation",
	}

	testFields := []struct {
		field    zapcore.Field
		mustFind string
	}{
		{zap.String("core", "MidtownMadness2"), "core=MidtownMadness2"},
		{zap.String("label", "Main Street"), `label="Main Street"`},
		{zap.Bool("compressed", true), "compressed=true"},
		{zap.Float64("opacity", 0.8), "opacity=0.8"},
		{zap.Strings("migrations", []string{"4.js", "5.js"}), "migrations="},
		{zap.Int("version", 5), "version=5"},
		{zap.Int32("int32_field", 42), "int32_field=42"},
		{zap.Int64("int64_field", 9999999), "int64_field=9999999"},
		{zap.Float32("float32_field", 3.14), "float32_field=3.14"},
		{zap.String("field.with.dots", "x"), "field.with.dots=x"},
		{zap.Bool("success", false), "success=false"},
		{zap.Error(nil), ""},
		{zap.String("status", "applied"), "status=applied"},
	}

	var allFields []zapcore.Field
	for _, tf := range testFields {
		allFields = append(allFields, tf.field)
	}

	output := encode(t, newMinimalEncoder(), entry, allFields...)

	for _, tf := range testFields {
		if tf.mustFind == "" {
			continue
		}
		if !strings.Contains(output, tf.mustFind) {
			t.Errorf("field %q was dropped; output: %s", tf.field.Key, output)
		}
	}
	if !strings.Contains(output, "Testing field preservation") {
		t.Errorf("message missing from output: %s", output)
	}
	if !strings.HasSuffix(output, "\n") {
		t.Error("entry must end with a newline")
	}
}

func TestMinimalEncoderContextFields(t *testing.T) {
	enc := newMinimalEncoder()
	enc.AddString("run_id", "r-1")
	enc.AddInt("attempt", 2)

	clone := enc.Clone()
	clone.AddString("extra", "only-on-clone")

	ent := zapcore.Entry{Level: zapcore.InfoLevel, Time: time.Now(), Message: "hello"}

	out := encode(t, clone, ent, zap.String("path", "city.json"))
	// context fields sorted by key, then entry fields
	if !strings.Contains(out, "attempt=2 extra=only-on-clone run_id=r-1 path=city.json") {
		t.Errorf("unexpected field layout: %s", out)
	}

	out = encode(t, enc, ent)
	if strings.Contains(out, "only-on-clone") {
		t.Errorf("clone leaked fields into parent: %s", out)
	}
}

func TestMinimalEncoderErrorField(t *testing.T) {
	ent := zapcore.Entry{Level: zapcore.ErrorLevel, Time: time.Now(), Message: "failed"}
	out := encode(t, newMinimalEncoder(), ent, zap.Error(errors.New("boom")))

	if !strings.Contains(out, "error=boom") {
		t.Errorf("error field missing: %s", out)
	}
	if !strings.Contains(out, "ERROR") {
		t.Errorf("level missing: %s", out)
	}
}

func TestMinimalEncoderLevels(t *testing.T) {
	enc := newMinimalEncoder()
	info := encode(t, enc, zapcore.Entry{Level: zapcore.InfoLevel, Time: time.Now(), Message: "m"})
	if strings.Contains(info, "INFO") {
		t.Errorf("info level should not be printed: %s", info)
	}
	warn := encode(t, enc, zapcore.Entry{Level: zapcore.WarnLevel, Time: time.Now(), Message: "m"})
	if !strings.Contains(warn, "WARN") {
		t.Errorf("warn level missing: %s", warn)
	}
}

func TestAbbreviateName(t *testing.T) {
	tests := map[string]string{
		"migrate":        "migrate",
		"migrate.runner": "m.runner",
		"core.registry":  "c.registry",
		".odd":           ".odd",
	}
	for in, want := range tests {
		if got := abbreviateName(in); got != want {
			t.Errorf("abbreviateName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSetTheme(t *testing.T) {
	defer SetTheme("everforest")

	SetTheme("gruvbox")
	if colors().time != gruvbox.time {
		t.Error("gruvbox theme not applied")
	}
	SetTheme("solarized")
	if currentTheme != "gruvbox" {
		t.Error("unknown theme should be ignored")
	}
}
