package clean

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pranayab18/Data-Extraction/internal/extract"
)

func TestContentCleaner_Clean(t *testing.T) {
	in := strings.Join([]string{
		"From: a@b.com",
		"To: c@d.com",
		"Subject: Diwali Scheme",
		"Date: Mon, 2 Oct 2023",
		"Subject: Re: Diwali Scheme",
		"",
		"Dear partner,",
		"[image: logo.png]",
		"1/2",
		"-----",
		"Begin forwarded message:",
		"Scheme applies on all SKUs.",
		"",
		"",
		"",
		"CAUTION: External email. Think before you click.",
		"This line is part of the notice",
		" ",
		"Regards",
	}, "\n")

	got := NewContentCleaner(nil).Clean(in)
	assert.Equal(t, "Subject: Diwali Scheme\n\nDear partner,\nScheme applies on all SKUs.\n\nRegards", got)
}

func TestContentCleaner_EmptyAndCRLF(t *testing.T) {
	c := NewContentCleaner(nil)
	assert.Equal(t, "", c.Clean("  \n\t"))
	assert.Equal(t, "Subject: X\nbody", c.Clean("Subject: X\r\nFrom: me\r\nbody\r\n"))
}

func TestLooksLikeDisclaimer(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"If you are not the intended recipient, please notify the sender immediately.", true},
		{"Disclaimer: views are personal", true},
		{"See disclaimer below", false},
		{strings.Repeat("x", 501) + " confidentiality notice", true},
		{"Scheme period 1 Oct to 31 Oct", false},
		{"", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, LooksLikeDisclaimer(tc.in), tc.in)
	}
}

func TestTableCleaner_Clean(t *testing.T) {
	c := NewTableCleaner(nil)
	tbl := extract.Table{Page: 2, Index: 1, Rows: [][]string{
		{"Model", " Discount ", ""},
		{"A", "5%", " "},
		{"This is confidential", "", ""},
		{"[image: x.png]", "", ""},
	}}

	got, ok := c.Clean(tbl)
	require.True(t, ok)
	assert.Equal(t, [][]string{{"Model", "Discount"}, {"A", "5%"}}, got.Rows)
	assert.Equal(t, 2, got.Page)
	assert.Equal(t, 1, got.Index)
	assert.Len(t, tbl.Rows[0], 3, "input is not modified")
}

func TestTableCleaner_EmptyAndRagged(t *testing.T) {
	c := NewTableCleaner(nil)

	_, ok := c.Clean(extract.Table{Rows: [][]string{{"Caution: external"}, {""}}})
	assert.False(t, ok)
	_, ok = c.Clean(extract.Table{})
	assert.False(t, ok)

	got, ok := c.Clean(extract.Table{Rows: [][]string{{"a"}, {"b", "c"}}})
	require.True(t, ok)
	assert.Equal(t, [][]string{{"a", ""}, {"b", "c"}}, got.Rows)

	all := c.CleanAll([]extract.Table{
		{Index: 1, Rows: [][]string{{"disclaimer"}}},
		{Index: 2, Rows: [][]string{{"x", "y"}}},
	})
	require.Len(t, all, 1)
	assert.Equal(t, 2, all[0].Index)
}
