package interp

import (
	"sort"
	"strings"

	"github.com/agext/levenshtein"
)

const (
	maxSuggestions = 3
	maxSuggestDist = 3
)

func (in *Interpreter) undefinedName(name string) string {
	return "Undefined variable: " + name + in.didYouMean(name)
}

func (in *Interpreter) undefinedCallable(name string) string {
	return "Undefined function or class: " + name + in.didYouMean(name)
}

// didYouMean lists up to three visible names within edit distance 3,
// closest first. Builtins are not offered.
func (in *Interpreter) didYouMean(name string) string {
	seen := map[string]bool{name: true}
	type candidate struct {
		name string
		dist int
	}
	var found []candidate
	params := levenshtein.NewParams().MaxCost(maxSuggestDist)
	consider := func(c string) {
		if seen[c] {
			return
		}
		seen[c] = true
		if d := levenshtein.Distance(name, c, params); d <= maxSuggestDist {
			found = append(found, candidate{c, d})
		}
	}
	for _, env := range []map[string]Value{in.local, in.globals} {
		for k := range env {
			consider(k)
		}
	}
	for k := range in.functions {
		consider(k)
	}
	for _, k := range in.classes.Names() {
		consider(k)
	}
	if len(found) == 0 {
		return ""
	}
	sort.Slice(found, func(i, j int) bool {
		if found[i].dist != found[j].dist {
			return found[i].dist < found[j].dist
		}
		return found[i].name < found[j].name
	})
	names := make([]string, 0, maxSuggestions)
	for _, c := range found[:min(len(found), maxSuggestions)] {
		names = append(names, c.name)
	}
	return ". Did you mean: " + strings.Join(names, ", ") + "?"
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
