package console

import (
	"os"
	"testing"
	"time"
)

func TestNewSpinner(t *testing.T) {
	s := NewSpinner("Test message")
	if s == nil {
		t.Fatal("NewSpinner returned nil")
	}
	s.Start()
	time.Sleep(10 * time.Millisecond)
	s.Stop()
}

func TestSpinnerAccessibilityMode(t *testing.T) {
	origAccessible := os.Getenv("ACCESSIBLE")
	defer func() {
		if origAccessible != "" {
			os.Setenv("ACCESSIBLE", origAccessible)
		} else {
			os.Unsetenv("ACCESSIBLE")
		}
	}()

	os.Setenv("ACCESSIBLE", "1")
	s := NewSpinner("Test message")
	if s.IsEnabled() {
		t.Error("spinner should be disabled when ACCESSIBLE is set")
	}
	s.Start()
	s.Stop()

	os.Unsetenv("ACCESSIBLE")
	s2 := NewSpinner("Test message 2")
	s2.Start()
	time.Sleep(10 * time.Millisecond)
	s2.Stop()
}

func TestSpinnerUpdateMessage(t *testing.T) {
	s := NewSpinner("Initial message")
	s.UpdateMessage("Updated message")
	s.Start()
	s.UpdateMessage("Running message")
	s.Stop()
}

func TestSpinnerIsEnabled(t *testing.T) {
	s := NewSpinner("Test message")
	_ = s.IsEnabled()
}

func TestSpinnerStopWithMessage(t *testing.T) {
	s := NewSpinner("Processing...")
	s.Start()
	s.StopWithMessage("done successfully")

	s2 := NewSpinner("Another test")
	s2.StopWithMessage("completed")
}

func TestSpinnerMultipleStartStop(t *testing.T) {
	s := NewSpinner("Test message")
	for i := 0; i < 3; i++ {
		s.Start()
		time.Sleep(5 * time.Millisecond)
		s.Stop()
	}
}
