package result

// Counts tallies results per label.
type Counts map[Label]int

// Tally counts the labels of rows.
func Tally(rows []ValidationResult) Counts {
	c := make(Counts, len(Labels))
	for _, r := range rows {
		c[r.Result]++
	}
	return c
}

// Total returns the number of counted rows.
func (c Counts) Total() int {
	n := 0
	for _, v := range c {
		n += v
	}
	return n
}

// HasFailures reports whether any row was FAIL.
func (c Counts) HasFailures() bool {
	return c[Fail] > 0
}
