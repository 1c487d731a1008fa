package timetable

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cellCorpus holds cell texts in the shapes found in real timetable exports,
// with the variants each must produce.
var cellCorpus = []struct {
	name string
	cell string
	want []string
}{
	{
		name: "lecture",
		cell: "Математический анализ. лекции. 0201. [01.09-22.12 к.н.]",
		want: []string{"Математический анализ\nлекции\n0201\n[01.09-22.12 к.н.]"},
	},
	{
		name: "practice with instructor",
		cell: "Иностранный язык. Петрова А.В.. практические занятия. 0415. [03.09-17.12 к.н.]",
		want: []string{"Иностранный язык\nПетрова А.В.\nпрактические занятия\n0415\n[03.09-17.12 к.н.]"},
	},
	{
		name: "lecture with instructor",
		cell: "Физика. Иванов И.И.. лекции. 0312. [01.09-22.12 к.н.]",
		want: []string{"Физика\nИванов И.И.\nлекции\n0312\n[01.09-22.12 к.н.]"},
	},
	{
		name: "line broken by the extractor",
		cell: "Физическая\nкультура. семинар. Спортзал.\n[05.09, 12.09, 19.09]",
		want: []string{"Физическая культура\nсеминар\nСпортзал\n[05.09, 12.09, 19.09]"},
	},
	{
		name: "two stacked lab subgroups",
		cell: "Физика. лабораторные занятия. (А). 0312. [07.09-14.12 ч.н.]\nФизика. лабораторные занятия. (Б). 0312. [14.09-21.12 ч.н.]",
		want: []string{
			"Физика\nлабораторные занятия\n(А)\n0312\n[07.09-14.12 ч.н.]",
			"Физика\nлабораторные занятия\n(Б)\n0312\n[14.09-21.12 ч.н.]",
		},
	},
	{
		name: "three variants on one line",
		cell: "A. семинар. 1. [01.09] B. семинар. 2. [02.09] C. семинар. 3. [03.09]",
		want: []string{
			"A\nсеминар\n1\n[01.09]",
			"B\nсеминар\n2\n[02.09]",
			"C\nсеминар\n3\n[03.09]",
		},
	},
	{
		name: "stray closing bracket",
		cell: "A. семинар. 1. [01.09]]",
		want: []string{"A\nсеминар\n1\n[01.09]"},
	},
	{
		name: "note after the date token",
		cell: "Химия. семинар. 0101. [01.09-22.12 к.н.] по подгруппам",
		want: []string{"Химия\nсеминар\n0101\n[01.09-22.12 к.н.]\nпо подгруппам"},
	},
	{
		name: "note after stacked variants",
		cell: "A. семинар. 1. [01.09] B. семинар. 2. [02.09] перенос",
		want: []string{
			"A\nсеминар\n1\n[01.09]",
			"B\nсеминар\n2\n[02.09]\nперенос",
		},
	},
	{
		name: "no date token",
		cell: "Военная кафедра",
		want: []string{"Военная кафедра"},
	},
	{
		name: "empty cell",
		cell: "  \n ",
		want: nil,
	},
}

func TestTokenize_Corpus(t *testing.T) {
	for _, tt := range cellCorpus {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Tokenize(tt.cell))
		})
	}
}

func TestTokenize_TwoVariantsWithoutStrayBracket(t *testing.T) {
	cell := "Химия. семинар. 0101. [01.09-22.12 к.н.] Химия. семинар. 0102. [08.09-15.12 ч.н.]"

	got := Tokenize(cell)

	require.Len(t, got, 2)
	for _, v := range got {
		assert.True(t, strings.HasSuffix(v, "]"))
		assert.Equal(t, 1, strings.Count(v, "]"), "variant %q", v)
		assert.NotEqual(t, "]", strings.TrimSpace(v))
	}
}

func TestTokenize_NFC(t *testing.T) {
	// "й" written as "и" + combining breve.
	decomposed := "Строи\u0306ка. семинар. 1. [01.09]"

	got := Tokenize(decomposed)

	require.Len(t, got, 1)
	assert.Equal(t, "Стройка\nсеминар\n1\n[01.09]", got[0])
}

func TestTokenize_TrailingNoteParses(t *testing.T) {
	got := Tokenize("Химия. семинар. 0101. [01.09-22.12 к.н.] по подгруппам")
	require.Len(t, got, 1)

	v, err := ParseVariant(got[0])
	require.NoError(t, err)
	assert.Equal(t, Seminar{Base{Course: "Химия", Label: "семинар", Room: "0101"}}, v.Session)
	assert.Equal(t, "01.09-22.12 к.н.", v.Dates)
	assert.True(t, strings.HasSuffix(v.Text, "по подгруппам"))
}
