package procutil

import (
	"os"
	"testing"
)

func TestIsProcessAliveSelf(t *testing.T) {
	if !IsProcessAlive(os.Getpid()) {
		t.Fatal("IsProcessAlive should return true for own process")
	}
}

func TestIsProcessAliveInvalidPID(t *testing.T) {
	if IsProcessAlive(0) {
		t.Fatal("IsProcessAlive should return false for pid 0")
	}
	// Well beyond any realistic pid_max.
	if IsProcessAlive(1<<30 - 1) {
		t.Fatal("IsProcessAlive should return false for non-existent PID")
	}
}
