package common

import "testing"

func TestParseOutputFmt(t *testing.T) {
	tests := []struct {
		input    string
		expected OutputFmt
		wantErr  bool
	}{
		{"png", OutputFmtPng, false},
		{"PNG", OutputFmtPng, false},
		{"jpeg", OutputFmtJpeg, false},
		{" jpg ", OutputFmtJpeg, false},
		{"gif", OutputFmtPng, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseOutputFmt(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseOutputFmt(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.expected {
				t.Errorf("ParseOutputFmt(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestTrackOther(t *testing.T) {
	if TrackMain.Other() != TrackAlt || TrackAlt.Other() != TrackMain {
		t.Fatal("Other() must flip between main and alt")
	}
	if TrackAlt.String() != "alt" {
		t.Errorf("TrackAlt.String() = %q", TrackAlt.String())
	}
}

func TestPageStateString(t *testing.T) {
	if PageStateLoading.String() != "loading" {
		t.Errorf("PageStateLoading.String() = %q", PageStateLoading.String())
	}
	if PageState(42).String() != "PageState(42)" {
		t.Errorf("unexpected fallback name %q", PageState(42).String())
	}
}
