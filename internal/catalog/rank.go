package catalog

import (
	"sort"
	"strings"
)

var retrievalVerbs = []string{
	"get", "find", "show", "view", "display", "search", "lookup", "retrieve", "fetch",
}

var creationVerbs = []string{
	"create", "add", "make", "submit", "post", "rate", "give", "provide", "write",
}

// Rank scores every descriptor against the intent and returns matches with
// strictly positive scores, best first. The scorer is deterministic:
// keyword overlap carries fixed weights, retrieval verbs boost GET/search
// APIs and penalize creation APIs, creation verbs do the inverse, and a
// small set of disambiguation rules separates "rate a course" from "view
// ratings". Ties keep catalog ID order.
func (c *Catalog) Rank(intent string) []Match {
	intentLower := strings.ToLower(intent)
	intentWords := strings.Fields(intentLower)

	hasRetrieval := containsAnyVerb(intentLower, retrievalVerbs)
	hasCreation := containsAnyVerb(intentLower, creationVerbs)
	wantsRatings := containsAny(intentLower, []string{"ratings", "get ratings", "find ratings", "view ratings"})

	var matches []Match
	for _, id := range c.ids {
		d := c.apis[id]
		score := scoreDescriptor(d, intentWords, intentLower, hasRetrieval, hasCreation, wantsRatings)
		if score > 0 {
			matches = append(matches, Match{Descriptor: d, Score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	return matches
}

func scoreDescriptor(d *Descriptor, intentWords []string, intentLower string, hasRetrieval, hasCreation, wantsRatings bool) float64 {
	description := strings.ToLower(d.Description)
	path := strings.ToLower(d.Path)
	method := strings.ToLower(d.Method)

	keywords := make([]string, len(d.IntentKeywords))
	for i, kw := range d.IntentKeywords {
		keywords[i] = strings.ToLower(kw)
	}

	var score float64
	for _, word := range intentWords {
		for _, kw := range keywords {
			if strings.Contains(kw, word) {
				score++
				break
			}
		}
		if strings.Contains(description, word) {
			score += 0.5
		}
	}

	if hasRetrieval {
		if method == "get" {
			score++
		}
		if containsAny(path, []string{"search", "get", "find", "list"}) {
			score += 0.75
		}
		if method == "post" && containsAny(path, []string{"create", "add", "submit"}) {
			score -= 0.5
		}
	}

	if hasCreation {
		if method == "post" {
			score++
		}
		if containsAny(path, []string{"create", "add", "new", "rate"}) {
			score += 0.75
		}
		if method == "get" {
			score -= 0.5
		}
	}

	// "rate" as a verb means submitting a rating; "ratings" as a noun means
	// reading them. The two live on different endpoints.
	if strings.Contains(d.ID, "rate") {
		if strings.Contains(intentLower, "rate") && !wantsRatings {
			score++
		}
		if wantsRatings {
			if strings.Contains(d.ID, "search") {
				score++
			} else {
				score -= 0.5
			}
		}
	}

	if strings.Contains(d.ID, "search") &&
		containsAny(intentLower, []string{"course information", "course details", "course info"}) {
		score++
	}

	return score
}

func containsAnyVerb(s string, verbs []string) bool {
	for _, v := range verbs {
		if strings.Contains(s, v) {
			return true
		}
	}
	return false
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
