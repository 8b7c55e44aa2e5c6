package main

import (
	"bytes"
	"io"
	"log/slog"
	"strings"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func run(args ...string) (stdout, stderr string, err error) {
	var out, errOut bytes.Buffer
	cmd := newRootCmd(testLogger())
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestRootConvert(t *testing.T) {
	stdout, _, err := run("2020", "3", "15", "12", "0", "0.0", "6378.137", "0", "0")
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d output lines, want 3: %q", len(lines), stdout)
	}
	if !strings.HasPrefix(lines[0], "6348.99167577") {
		t.Errorf("X line = %q, want 6348.99167577...", lines[0])
	}
	if !strings.HasPrefix(lines[1], "-609.04539377") {
		t.Errorf("Y line = %q, want -609.04539377...", lines[1])
	}
	if lines[2] != "0" {
		t.Errorf("Z line = %q, want 0", lines[2])
	}
}

func TestRootNegativeCoordinates(t *testing.T) {
	stdout, _, err := run("2020", "3", "15", "12", "0", "0", "-6378.137", "0", "-10")
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	if len(lines) != 3 || lines[2] != "-10" {
		t.Fatalf("output = %q", stdout)
	}
	if !strings.HasPrefix(lines[0], "-6348.99167577") {
		t.Errorf("X line = %q, want -6348.99167577...", lines[0])
	}
}

func TestRootUsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no arguments", nil},
		{"eight arguments", []string{"2020", "3", "15", "12", "0", "0", "6378.137", "0"}},
		{"ten arguments", []string{"2020", "3", "15", "12", "0", "0", "6378.137", "0", "0", "1"}},
		{"float month", []string{"2020", "3.5", "15", "12", "0", "0", "6378.137", "0", "0"}},
		{"word second", []string{"2020", "3", "15", "12", "0", "zero", "6378.137", "0", "0"}},
		{"word coordinate", []string{"2020", "3", "15", "12", "0", "0", "6378.137", "north", "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, stderr, err := run(tt.args...)
			if err == nil {
				t.Fatal("expected an error")
			}
			if stdout != "" {
				t.Errorf("stdout = %q, want nothing", stdout)
			}
			if !strings.Contains(stderr, "Usage: "+usageLine) {
				t.Errorf("stderr = %q, want usage line", stderr)
			}
		})
	}
}

func TestTrackCommand(t *testing.T) {
	stdout, _, err := run("track", "--start", "2020-03-15T12:00:00Z", "--step", "1h", "--count", "3", "--ecef", "6378.137,0,0")
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3: %q", len(lines), stdout)
	}
	fields := strings.Fields(lines[1])
	if len(fields) != 4 {
		t.Fatalf("line = %q, want 4 fields", lines[1])
	}
	if fields[0] != "2020-03-15T13:00:00Z" {
		t.Errorf("time = %q", fields[0])
	}
	if !strings.HasPrefix(fields[1], "6306.13795721") {
		t.Errorf("X = %q, want 6306.13795721...", fields[1])
	}
}

func TestTrackCommandRequiresPosition(t *testing.T) {
	if _, _, err := run("track", "--count", "1"); err == nil {
		t.Fatal("expected an error without --ecef or --geodetic")
	}
	if _, _, err := run("track", "--ecef", "1,2"); err == nil {
		t.Fatal("expected an error for a two-component vector")
	}
}
