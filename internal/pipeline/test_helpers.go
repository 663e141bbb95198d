package pipeline

import (
	"os"
	"path/filepath"
	"testing"
)

func readFixture(t *testing.T, fixturePath string) []byte {
	t.Helper()

	absPath, err := filepath.Abs(filepath.Join("..", "..", "testdata", fixturePath))
	if err != nil {
		t.Fatalf("Failed to get absolute path to testdata/%s: %v", fixturePath, err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		t.Fatalf("Failed to read fixture file: %v", err)
	}

	return data
}

func fixtureInputs(t *testing.T) Inputs {
	t.Helper()
	return Inputs{
		Alerts:           readFixture(t, "alerts.json"),
		StopPredictions:  readFixture(t, "predictions_alewife.json"),
		RoutePredictions: readFixture(t, "predictions_red.json"),
		Vehicles:         readFixture(t, "vehicles.json"),
	}
}
