package match

// ratio returns a 0-100 similarity score between two strings, based on
// Levenshtein edit distance with substitution weighted 2 (an insert plus a
// delete), matching the classic fuzzy-matching ratio:
//
//	ratio = (len(a)+len(b) - dist) / (len(a)+len(b)) * 100
func ratio(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	lensum := len(ra) + len(rb)
	if lensum == 0 {
		return 100
	}
	dist := weightedDistance(ra, rb)
	return (lensum - dist) * 100 / lensum
}

// weightedDistance computes Levenshtein distance over runes with costs
// insert=1, delete=1, substitute=2, using two rolling rows.
func weightedDistance(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			sub := prev[j-1]
			if a[i-1] != b[j-1] {
				sub += 2
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, sub)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
