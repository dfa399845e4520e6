package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNew_RejectsUnknownLevel(t *testing.T) {
	if _, err := New("chatty"); err == nil {
		t.Fatalf("expected error")
	}
	l, err := New("debug")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if l.GetLevel() != logrus.DebugLevel {
		t.Fatalf("level=%v", l.GetLevel())
	}
}

func TestComponentField(t *testing.T) {
	var buf bytes.Buffer
	l := NewTo(&buf, logrus.InfoLevel, false)
	Component(l, "rcon").Info("connected")
	Component(l, "rcon").Debug("hidden")

	out := buf.String()
	if !strings.Contains(out, "component=rcon") || !strings.Contains(out, "msg=connected") {
		t.Fatalf("out=%q", out)
	}
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug entry leaked at info level: %q", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("colour codes with colours disabled: %q", out)
	}
}
