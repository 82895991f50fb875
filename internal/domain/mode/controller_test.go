package mode

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func TestController_StartsOnline(t *testing.T) {
	c := NewController("")
	if c.IsOffline() {
		t.Error("new controller should start online")
	}
}

func TestController_EnterOffline(t *testing.T) {
	c := NewController("")
	c.EnterOffline()
	if !c.IsOffline() {
		t.Error("IsOffline() = false after EnterOffline()")
	}

	// Entering again is a no-op
	c.EnterOffline()
	if !c.IsOffline() {
		t.Error("IsOffline() = false after repeated EnterOffline()")
	}
}

func TestController_ExitOffline(t *testing.T) {
	tests := []struct {
		name        string
		probe       Probe
		wantErr     bool
		wantOffline bool
	}{
		{
			name:        "probe succeeds",
			probe:       func(ctx context.Context) error { return nil },
			wantErr:     false,
			wantOffline: false,
		},
		{
			name:        "probe fails",
			probe:       func(ctx context.Context) error { return errors.New("connection refused") },
			wantErr:     true,
			wantOffline: true,
		},
		{
			name:        "nil probe",
			probe:       nil,
			wantErr:     true,
			wantOffline: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewController("")
			c.EnterOffline()

			err := c.ExitOffline(context.Background(), tt.probe)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ExitOffline() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrBlocked) {
				t.Errorf("ExitOffline() error = %v, want ErrBlocked", err)
			}
			if got := c.IsOffline(); got != tt.wantOffline {
				t.Errorf("IsOffline() = %v, want %v", got, tt.wantOffline)
			}
		})
	}
}

func TestController_ExitOfflineWhenOnline(t *testing.T) {
	c := NewController("")
	probeCalls := 0
	probe := func(ctx context.Context) error {
		probeCalls++
		return nil
	}

	if err := c.ExitOffline(context.Background(), probe); err != nil {
		t.Fatalf("ExitOffline() while online error = %v", err)
	}
	if probeCalls != 1 {
		t.Errorf("probe called %d times, want 1", probeCalls)
	}
}

func TestController_PersistsAcrossRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mode.json")

	c := NewController(path)
	c.EnterOffline()

	restored := NewController(path)
	if !restored.IsOffline() {
		t.Error("restored controller should be offline")
	}

	if err := restored.ExitOffline(context.Background(), func(ctx context.Context) error { return nil }); err != nil {
		t.Fatalf("ExitOffline() error = %v", err)
	}

	again := NewController(path)
	if again.IsOffline() {
		t.Error("controller restored after exit should be online")
	}
}
