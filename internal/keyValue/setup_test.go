package keyValue

import (
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	Setup(zap.NewNop().Sugar(), nil, true)
	m.Run()
}

func TestSetGetDelete(t *testing.T) {
	err := Set("k1", "v1", time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	value, err := Get("k1")
	if err != nil {
		t.Fatal(err)
	}
	if value != "v1" {
		t.Errorf("Expected v1, got %s", value)
	}

	err = Delete("k1")
	if err != nil {
		t.Fatal(err)
	}

	value, err = Get("k1")
	if err != nil {
		t.Fatal(err)
	}
	if value != "" {
		t.Errorf("Expected empty value after delete, got %s", value)
	}
}

func TestExpiredKeyIsInvisible(t *testing.T) {
	err := Set("k2", "v2", -time.Second)
	if err != nil {
		t.Fatal(err)
	}

	value, err := Get("k2")
	if err != nil {
		t.Fatal(err)
	}
	if value != "" {
		t.Errorf("Expected expired key to read as empty, got %s", value)
	}
}

func TestScanByPrefix(t *testing.T) {
	if err := Set("typing:1:10", "alice", time.Minute); err != nil {
		t.Fatal(err)
	}
	if err := Set("typing:1:11", "bob", time.Minute); err != nil {
		t.Fatal(err)
	}
	if err := Set("typing:2:10", "alice", time.Minute); err != nil {
		t.Fatal(err)
	}
	if err := Set("typing:1:12", "carol", -time.Second); err != nil {
		t.Fatal(err)
	}

	values, err := Scan("typing:1:")
	if err != nil {
		t.Fatal(err)
	}

	if len(values) != 2 {
		t.Fatalf("Expected 2 live keys, got %d", len(values))
	}
	if values["typing:1:10"] != "alice" || values["typing:1:11"] != "bob" {
		t.Errorf("Unexpected scan result: %v", values)
	}
}
