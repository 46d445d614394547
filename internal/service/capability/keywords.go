package capability

import (
	"regexp"
	"sort"
	"strings"
)

// DefaultMaxKeywords bounds ExtractKeywordList when no limit is given.
const DefaultMaxKeywords = 10

var wordPattern = regexp.MustCompile(`\b[a-zA-Z]{3,}\b`)

var stopWords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`the a an and or but in on at to for of with by is are was were be been have
		has had do does did will would could should this that these those i you he she it we they me him her us them
		not can what about from into than then there their its our your just also some any how why when who which`) {
		stopWords[w] = struct{}{}
	}
}

// ExtractKeywordList ranks words of three or more letters by frequency,
// skipping stop words. Ties keep first-appearance order.
func ExtractKeywordList(text string, limit int) []string {
	if limit <= 0 {
		limit = DefaultMaxKeywords
	}

	counts := make(map[string]int)
	var order []string
	for _, word := range wordPattern.FindAllString(strings.ToLower(text), -1) {
		if _, skip := stopWords[word]; skip {
			continue
		}
		if counts[word] == 0 {
			order = append(order, word)
		}
		counts[word]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	if len(order) > limit {
		order = order[:limit]
	}
	return order
}
