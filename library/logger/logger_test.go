package logger

import (
	"testing"

	"github.com/sirupsen/logrus"
)

func TestSetLevel(t *testing.T) {
	t.Cleanup(func() { Log.SetLevel(logrus.WarnLevel) })

	if err := SetLevel("debug"); err != nil {
		t.Fatalf("SetLevel(debug): %v", err)
	}
	if Log.GetLevel() != logrus.DebugLevel {
		t.Fatalf("level = %s, want debug", Log.GetLevel())
	}
	if err := SetLevel("loud"); err == nil {
		t.Fatal("expected error for unknown level")
	}
	if Log.GetLevel() != logrus.DebugLevel {
		t.Fatalf("unknown level changed Log to %s", Log.GetLevel())
	}
}
