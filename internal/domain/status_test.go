package domain

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestLoadStatus_JSONOmitsZeroLoadTime(t *testing.T) {
	data, err := json.Marshal(LoadStatus{Status: StatusNotLoaded, Warnings: []string{}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(data), "load_time") {
		t.Errorf("not loaded status should omit load_time, got %s", data)
	}

	loaded := LoadStatus{Status: StatusValid, LoadTime: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	data, err = json.Marshal(loaded)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"load_time":"2026-03-01T10:00:00Z"`) {
		t.Errorf("loaded status should carry load_time, got %s", data)
	}
}
