package extract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractCurrency(t *testing.T) {
	e := New()

	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{"simple currency", "Check HKD hedge capacity", "HKD"},
		{"currency mid sentence", "hedge 2m EUR against the book", "EUR"},
		{"first valid currency wins", "convert USD to JPY", "USD"},
		{"non-ISO token skipped", "CAN we hedge more SGD", "SGD"},
		{"lowercase not matched", "check hkd capacity", ""},
		{"no currency", "show me the positions", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Extract(tt.text)
			assert.Equal(t, tt.expected, got.Currency)
		})
	}
}

func TestExtractAmount(t *testing.T) {
	e := New()

	tests := []struct {
		name     string
		text     string
		expected float64
	}{
		{"plain amount", "hedge 50000 HKD", 50000},
		{"thousands suffix", "book 250k EUR", 250000},
		{"millions suffix", "increase by 2m", 2000000},
		{"billions suffix", "cap at 1b", 1000000000},
		{"uppercase suffix", "roll 5M USD", 5000000},
		{"comma separated", "hedge 150,000 SGD", 150000},
		{"decimal", "utilise 1.5m", 1500000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Extract(tt.text)
			require.NotNil(t, got.Amount)
			assert.Equal(t, tt.expected, *got.Amount)
		})
	}
}

func TestExtractAmountAbsent(t *testing.T) {
	e := New()
	got := e.Extract("show current hedge positions")
	assert.Nil(t, got.Amount)
}

func TestExtractEntityIDs(t *testing.T) {
	e := New()

	t.Run("order preserved and duplicates removed", func(t *testing.T) {
		got := e.Extract("compare ENTITY001 against FUND2345 and ENTITY001 again")
		assert.Equal(t, []string{"ENTITY001", "FUND2345"}, got.EntityIDs)
	})

	t.Run("entity digits not read as amount", func(t *testing.T) {
		got := e.Extract("check utilization for ENTITY0015")
		assert.Equal(t, []string{"ENTITY0015"}, got.EntityIDs)
		assert.Nil(t, got.Amount)
	})

	t.Run("entity plus real amount", func(t *testing.T) {
		got := e.Extract("hedge 50000 for ENTITY001")
		require.NotNil(t, got.Amount)
		assert.Equal(t, 50000.0, *got.Amount)
		assert.Equal(t, []string{"ENTITY001"}, got.EntityIDs)
	})

	t.Run("no entities yields empty slice", func(t *testing.T) {
		got := e.Extract("show positions")
		assert.NotNil(t, got.EntityIDs)
		assert.Empty(t, got.EntityIDs)
	})
}

func TestExtractDate(t *testing.T) {
	e := New()

	t.Run("iso date", func(t *testing.T) {
		got := e.Extract("roll the hedge on 2026-09-15")
		require.NotNil(t, got.Date)
		assert.Equal(t, time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC), *got.Date)
	})

	t.Run("day month year", func(t *testing.T) {
		got := e.Extract("terminate on 15/9/2026")
		require.NotNil(t, got.Date)
		assert.Equal(t, time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC), *got.Date)
	})

	t.Run("date digits not read as amount", func(t *testing.T) {
		got := e.Extract("roll on 2026-09-15 please")
		require.NotNil(t, got.Date)
		assert.Nil(t, got.Amount)
	})

	t.Run("invalid month rejected", func(t *testing.T) {
		got := e.Extract("terminate on 15/13/2026")
		assert.Nil(t, got.Date)
	})
}

func TestConfidence(t *testing.T) {
	e := New()

	empty := e.Extract("show positions")
	full := e.Extract("hedge 50000 HKD for ENTITY001")

	assert.InDelta(t, 0.2, empty.Confidence, 0.001)
	assert.InDelta(t, 1.0, full.Confidence, 0.001)
	assert.Greater(t, full.Confidence, empty.Confidence)
}

func TestIsKnownCurrency(t *testing.T) {
	assert.True(t, IsKnownCurrency("HKD"))
	assert.True(t, IsKnownCurrency("USD"))
	assert.False(t, IsKnownCurrency("CAN"))
	assert.False(t, IsKnownCurrency("hkd"))
	assert.False(t, IsKnownCurrency(""))
}
