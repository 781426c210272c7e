package schema

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestParseModel_ValidJSON_LoadsCorrectly(t *testing.T) {
	data := []byte(`{
		"name": "call centre",
		"nodes": [
			{"id": "operator", "servers": 13, "service": {"dist": "exponential", "rate": 0.25}},
			{"id": "nurse", "servers": 9, "capacity": 20, "service": {"dist": "triangular", "min": 2, "mode": 4, "max": 7}}
		],
		"arrivals": [
			{"target": "operator", "distribution": {"dist": "exponential", "rate": 1.0}, "class": "caller"}
		],
		"routing": {
			"operator": [
				{"to": "nurse", "probability": 0.4},
				{"to": "exit", "probability": 0.6}
			]
		}
	}`)

	m, err := ParseModel(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Name != "call centre" {
		t.Errorf("name = %q, want %q", m.Name, "call centre")
	}
	if len(m.Nodes) != 2 || m.Nodes[1].Capacity != 20 {
		t.Errorf("nodes = %+v", m.Nodes)
	}
	if m.Arrivals[0].Class != "caller" {
		t.Errorf("class = %q, want caller", m.Arrivals[0].Class)
	}
	if len(m.RoutesFrom("operator")) != 2 {
		t.Errorf("routes from operator = %d, want 2", len(m.RoutesFrom("operator")))
	}
}

func TestParseModel_MalformedJSON_WrapsDecodeError(t *testing.T) {
	_, err := ParseModel([]byte("{ this is broken json"))
	if err == nil {
		t.Fatal("expected decode error")
	}
	var verrs ValidationErrors
	if errors.As(err, &verrs) {
		t.Fatalf("decode failure should not surface as validation errors: %v", err)
	}
}

func TestLoadModelFile_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.json")
	data := `{
		"nodes": [{"id": "desk", "service": {"dist": "deterministic", "value": 1.0}}],
		"arrivals": [{"target": "desk", "distribution": {"dist": "exponential", "rate": 2.0}}]
	}`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := LoadModelFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(m.Nodes) != 1 || m.Nodes[0].ID != "desk" {
		t.Errorf("nodes = %+v", m.Nodes)
	}
}

func TestLoadModelFile_MissingFile_ReturnsError(t *testing.T) {
	if _, err := LoadModelFile("no_such_model.json"); err == nil {
		t.Fatal("expected error for missing file")
	}
}
