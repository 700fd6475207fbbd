package extract

import "sort"

type fingerprint struct {
	rows, cols  int
	first, last string
}

func fingerprintOf(t Table) fingerprint {
	rows, cols := t.Shape()
	fp := fingerprint{rows: rows, cols: cols}
	if rows > 0 && len(t.Rows[0]) > 0 {
		fp.first = t.Rows[0][0]
	}
	if rows > 0 {
		if last := t.Rows[rows-1]; len(last) > 0 {
			fp.last = last[len(last)-1]
		}
	}
	return fp
}

// MergeTables concatenates the lists, dropping tables whose shape, first
// cell and last cell match a table already kept. Output is ordered by page
// and indices are renumbered within each page.
func MergeTables(lists ...[]Table) []Table {
	seen := map[fingerprint]bool{}
	var out []Table
	for _, l := range lists {
		for _, t := range l {
			fp := fingerprintOf(t)
			if seen[fp] {
				continue
			}
			seen[fp] = true
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Page < out[j].Page })
	idx := map[int]int{}
	for i := range out {
		out[i].Index = idx[out[i].Page]
		idx[out[i].Page]++
	}
	return out
}
