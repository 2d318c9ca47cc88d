package data

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempCSV(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "trades.csv")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write temp csv: %v", err)
	}
	return path
}

func TestLoadCSVSortsByTimestamp(t *testing.T) {
	path := writeTempCSV(t, "timestamp,symbol,price,volume\n2000,AAPL,101,10\n1000,AAPL,100,5\n")

	trades, err := LoadCSV(path)
	if err != nil {
		t.Fatalf("LoadCSV returned error: %v", err)
	}
	if len(trades) != 2 {
		t.Fatalf("expected 2 trades, got %d", len(trades))
	}
	if trades[0].TimestampMs != 1000 || trades[1].TimestampMs != 2000 {
		t.Fatalf("expected ascending timestamp order, got %v", trades)
	}
}

func TestLoadCSVSkipsCommentsAndBlankLines(t *testing.T) {
	path := writeTempCSV(t, "# comment\n\n1000,AAPL,100,5\n")

	trades, err := LoadCSV(path)
	if err != nil {
		t.Fatalf("LoadCSV returned error: %v", err)
	}
	if len(trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(trades))
	}
}

func TestLoadCSVRejectsMalformedRow(t *testing.T) {
	path := writeTempCSV(t, "1000,AAPL,100\n")

	if _, err := LoadCSV(path); err == nil {
		t.Fatalf("expected error for malformed row")
	}
}

func TestFilterBySymbolAndTimeRange(t *testing.T) {
	trades := []Trade{
		{TimestampMs: 1000, Symbol: "AAPL", Price: 100, Volume: 1},
		{TimestampMs: 2000, Symbol: "MSFT", Price: 200, Volume: 1},
		{TimestampMs: 3000, Symbol: "AAPL", Price: 110, Volume: 1},
	}

	onlyAAPL := FilterBySymbol(trades, "AAPL")
	if len(onlyAAPL) != 2 {
		t.Fatalf("expected 2 AAPL trades, got %d", len(onlyAAPL))
	}

	inRange := FilterByTimeRange(trades, 1500, 3000)
	if len(inRange) != 2 {
		t.Fatalf("expected 2 trades in range, got %d", len(inRange))
	}
}
