package recurrence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	serrors "github.com/overklassniy/stankin-schedule/internal/errors"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 9, 30, 0, 0, time.UTC)
}

func TestParser_ParseRule(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Rule
		wantErr bool
	}{
		{
			name:  "exact date",
			input: "01.09",
			want:  Rule{Kind: Exact, Start: DayMonth{1, time.September}},
		},
		{
			name:  "continuous range",
			input: "01.09-22.12 к.н.",
			want:  Rule{Kind: Continuous, Start: DayMonth{1, time.September}, End: DayMonth{22, time.December}},
		},
		{
			name:  "biweekly range",
			input: "08.09-15.12 ч.н.",
			want:  Rule{Kind: Biweekly, Start: DayMonth{8, time.September}, End: DayMonth{15, time.December}},
		},
		{
			name:  "surrounding spaces",
			input: "  05.10 ",
			want:  Rule{Kind: Exact, Start: DayMonth{5, time.October}},
		},
		{name: "range without suffix", input: "01.09-22.12", wantErr: true},
		{name: "month out of range", input: "01.13", wantErr: true},
		{name: "day out of range", input: "31.04", wantErr: true},
		{name: "not a date", input: "лекции", wantErr: true},
		{name: "three bounds", input: "01.09-02.09-03.09 к.н.", wantErr: true},
	}

	parser := NewParser()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parser.ParseRule(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, serrors.IsCode(err, serrors.ErrCodeRecurrenceParse))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParser_Parse(t *testing.T) {
	parser := NewParser()

	t.Run("brackets and multiple rules", func(t *testing.T) {
		tok, err := parser.Parse("[01.09-22.12 к.н., 29.12]")
		require.NoError(t, err)
		require.Len(t, tok.Rules, 2)
		assert.Equal(t, Continuous, tok.Rules[0].Kind)
		assert.Equal(t, Exact, tok.Rules[1].Kind)
		assert.Equal(t, "01.09-22.12 к.н., 29.12", tok.String())
	})

	t.Run("malformed rule is dropped but others survive", func(t *testing.T) {
		tok, err := parser.Parse("05.09, каждую среду, 12.09")
		require.Error(t, err)
		require.NotNil(t, tok)
		assert.Len(t, tok.Rules, 2)
		assert.True(t, tok.ActiveOn(date(2026, time.September, 12)))
	})

	t.Run("empty token", func(t *testing.T) {
		tok, err := parser.Parse("[]")
		require.Error(t, err)
		assert.False(t, tok.ActiveOn(date(2026, time.September, 1)))
	})
}

func TestExactDate(t *testing.T) {
	for _, year := range []int{2024, 2025, 2026, 2031} {
		assert.True(t, IsActive("01.09", date(year, time.September, 1)), "year %d", year)
		assert.False(t, IsActive("01.09", date(year, time.September, 2)), "year %d", year)
	}
}

func TestContinuousRange(t *testing.T) {
	token := "08.09-20.10 к.н."
	start := date(2026, time.September, 8)
	end := date(2026, time.October, 20)

	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		assert.True(t, IsActive(token, d), "expected active on %s", d.Format("02.01"))
	}
	assert.False(t, IsActive(token, start.AddDate(0, 0, -1)))
	assert.False(t, IsActive(token, end.AddDate(0, 0, 1)))
}

func TestContinuousRange_YearBoundary(t *testing.T) {
	token := "25.12-10.01 к.н."

	tests := []struct {
		day  time.Time
		want bool
	}{
		{date(2025, time.December, 24), false},
		{date(2025, time.December, 25), true},
		{date(2025, time.December, 30), true},
		{date(2026, time.January, 5), true},
		{date(2026, time.January, 10), true},
		{date(2026, time.January, 11), false},
		{date(2026, time.June, 15), false},
	}

	for _, tt := range tests {
		t.Run(tt.day.Format("2006-01-02"), func(t *testing.T) {
			assert.Equal(t, tt.want, IsActive(token, tt.day))
		})
	}
}

func TestBiweeklyRange(t *testing.T) {
	token := "[07.09-14.12 ч.н.]"
	start := date(2026, time.September, 7)

	assert.True(t, IsActive(token, start))
	assert.False(t, IsActive(token, start.AddDate(0, 0, 7)), "off week")
	assert.True(t, IsActive(token, start.AddDate(0, 0, 14)))
	assert.False(t, IsActive(token, start.AddDate(0, 0, 21)), "off week")
	assert.True(t, IsActive(token, start.AddDate(0, 0, 28)))
	assert.False(t, IsActive(token, start.AddDate(0, 0, 1)))
	assert.False(t, IsActive(token, start.AddDate(0, 0, -14)), "before range")
	assert.False(t, IsActive(token, date(2026, time.December, 21)), "after range")

	tok, err := NewParser().Parse(token)
	require.NoError(t, err)
	dates := tok.Between(start, date(2026, time.December, 31))
	require.Len(t, dates, 8)
	for i := 1; i < len(dates); i++ {
		assert.Equal(t, 14*24*time.Hour, dates[i].Sub(dates[i-1]))
	}
}

func TestBiweeklyRange_YearBoundary(t *testing.T) {
	token := "22.12-31.01 ч.н."

	assert.True(t, IsActive(token, date(2025, time.December, 22)))
	assert.True(t, IsActive(token, date(2026, time.January, 5)))
	assert.False(t, IsActive(token, date(2025, time.December, 29)))
	assert.True(t, IsActive(token, date(2026, time.January, 19)))
}

func TestToken_ActiveOn_IgnoresTimeOfDay(t *testing.T) {
	loc := time.FixedZone("MSK", 3*60*60)
	late := time.Date(2026, time.October, 20, 23, 59, 0, 0, loc)
	assert.True(t, IsActive("08.09-20.10 к.н.", late))
}

func TestToken_ActiveOn_Nil(t *testing.T) {
	var tok *Token
	assert.False(t, tok.ActiveOn(time.Now()))
}
