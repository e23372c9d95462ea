package utils

import (
	"testing"

	"github.com/RoacherM/a-share-mcp-server/internal/datasource"
)

func TestParseFloat(t *testing.T) {
	tests := []struct {
		in     string
		want   float64
		wantOK bool
	}{
		{"7.15", 7.15, true},
		{" 12.5 ", 12.5, true},
		{"-3.2", -3.2, true},
		{"0", 0, true},
		{"", 0, false},
		{"-", 0, false},
		{"None", 0, false},
		{"nan", 0, false},
		{"abc", 0, false},
	}

	for _, tt := range tests {
		got, ok := ParseFloat(tt.in)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("ParseFloat(%q) = (%v, %v), want (%v, %v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestFirstPresentOrder(t *testing.T) {
	rec := datasource.Record{
		"YOYProfit":   "8.4",
		"YOYEPSBasic": "7.9",
	}

	field, value, ok := FirstPresent(rec, []string{"YOYNI", "YOYProfit", "YOYEPSBasic"})
	if !ok {
		t.Fatal("FirstPresent() ok = false")
	}
	if field != "YOYProfit" || value != "8.4" {
		t.Errorf("FirstPresent() = (%s, %s), want (YOYProfit, 8.4)", field, value)
	}
}

func TestFirstPresentSkipsEmpty(t *testing.T) {
	rec := datasource.Record{
		"manageCashFlow":    "",
		"operatingCashFlow": "152000",
	}

	field, _, ok := FirstPresent(rec, []string{"manageCashFlow", "operatingCashFlow", "NCFFromOA"})
	if !ok || field != "operatingCashFlow" {
		t.Errorf("FirstPresent() = (%s, ok=%v), want operatingCashFlow", field, ok)
	}
}

func TestFirstNumeric(t *testing.T) {
	rec := datasource.Record{
		"manageCashFlow":    "None",
		"operatingCashFlow": "152000.5",
	}

	field, value, ok := FirstNumeric(rec, []string{"manageCashFlow", "operatingCashFlow"})
	if !ok || field != "operatingCashFlow" || value != 152000.5 {
		t.Errorf("FirstNumeric() = (%s, %v, %v)", field, value, ok)
	}

	if _, _, ok := FirstNumeric(rec, []string{"missing"}); ok {
		t.Error("FirstNumeric() on missing fields ok = true, want false")
	}
}

func TestFirstNonZeroNumeric(t *testing.T) {
	rec := datasource.Record{
		"YOYNI":     "0",
		"YOYProfit": "12.3",
	}

	field, value, ok := FirstNonZeroNumeric(rec, []string{"YOYNI", "YOYProfit"})
	if !ok || field != "YOYProfit" || value != 12.3 {
		t.Errorf("FirstNonZeroNumeric() = (%s, %v, %v), want (YOYProfit, 12.3, true)", field, value, ok)
	}
}
