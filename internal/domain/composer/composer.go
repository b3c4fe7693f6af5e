// Package composer orders refactoring types into chains using a fixed
// pairwise compatibility table.
package composer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/reforge/reforge/internal/domain"
)

type pair struct{ first, second domain.RefactoringType }

// before lists the pairs whose first element must run before the second.
var before = map[pair]bool{
	{domain.SimplifyMethod, domain.ExtractMethod}:      true,
	{domain.ExtractMethod, domain.ExtractClass}:        true,
	{domain.ExtractMethod, domain.SplitGodClass}:       true,
	{domain.ExtractMethod, domain.ExtractInterface}:    true,
	{domain.SimplifyMethod, domain.SplitGodClass}:      true,
	{domain.SimplifyMethod, domain.ExtractClass}:       true,
	{domain.SimplifyMethod, domain.ReplaceConditional}: true,
	{domain.ReplaceConditional, domain.ExtractClass}:   true,
}

var incompatible = map[pair]bool{
	{domain.ExtractClass, domain.SplitGodClass}: true,
	{domain.SplitGodClass, domain.ExtractClass}: true,
}

// Compatibility returns the relation of first to second. Same-type pairs are
// always incompatible and unlisted pairs default to OrderEither.
func Compatibility(first, second domain.RefactoringType) domain.CompositionOrder {
	switch {
	case first == second:
		return domain.OrderIncompatible
	case incompatible[pair{first, second}]:
		return domain.OrderIncompatible
	case before[pair{first, second}]:
		return domain.OrderBefore
	case before[pair{second, first}]:
		return domain.OrderAfter
	default:
		return domain.OrderEither
	}
}

var priority = map[domain.RefactoringType]int{
	domain.SimplifyMethod:     1,
	domain.ReplaceConditional: 2,
	domain.ExtractMethod:      3,
	domain.ExtractClass:       4,
	domain.SplitGodClass:      4,
	domain.ExtractInterface:   5,
}

// Priority returns the fallback ordering rank of t; lower runs first.
func Priority(t domain.RefactoringType) int {
	if p, ok := priority[t]; ok {
		return p
	}
	return 10
}

// OrderStrategies sorts types so every "before" constraint among them holds.
// It runs Kahn's algorithm over the before edges, breaking ties by priority
// and then by input position. When the constraints contain a cycle the
// types are ordered by priority alone.
func OrderStrategies(types []domain.RefactoringType) []domain.RefactoringType {
	nodes := dedupe(types)
	pos := make(map[domain.RefactoringType]int, len(nodes))
	for i, t := range nodes {
		pos[t] = i
	}

	indegree := make(map[domain.RefactoringType]int, len(nodes))
	edges := make(map[domain.RefactoringType][]domain.RefactoringType)
	for _, a := range nodes {
		for _, b := range nodes {
			if a != b && Compatibility(a, b) == domain.OrderBefore {
				edges[a] = append(edges[a], b)
				indegree[b]++
			}
		}
	}

	less := func(a, b domain.RefactoringType) bool {
		if Priority(a) != Priority(b) {
			return Priority(a) < Priority(b)
		}
		return pos[a] < pos[b]
	}

	var ready, order []domain.RefactoringType
	for _, t := range nodes {
		if indegree[t] == 0 {
			ready = append(ready, t)
		}
	}
	for len(ready) > 0 {
		sort.SliceStable(ready, func(i, j int) bool { return less(ready[i], ready[j]) })
		cur := ready[0]
		ready = ready[1:]
		order = append(order, cur)
		for _, next := range edges[cur] {
			indegree[next]--
			if indegree[next] == 0 {
				ready = append(ready, next)
			}
		}
	}

	if len(order) < len(nodes) {
		order = append([]domain.RefactoringType(nil), nodes...)
		sort.SliceStable(order, func(i, j int) bool { return less(order[i], order[j]) })
	}
	return order
}

// ChainValidationError lists every rule a chain breaks.
type ChainValidationError struct {
	Violations []string
}

func (e *ChainValidationError) Error() string {
	return "invalid strategy chain: " + strings.Join(e.Violations, "; ")
}

// ValidateChain rejects duplicates, incompatible adjacent pairs and adjacent
// pairs that run in the wrong order. It returns nil or a
// *ChainValidationError.
func ValidateChain(types []domain.RefactoringType) error {
	var violations []string
	if len(types) == 0 {
		violations = append(violations, "chain is empty")
	}
	seen := map[domain.RefactoringType]bool{}
	for _, t := range types {
		if !t.Valid() {
			violations = append(violations, fmt.Sprintf("unknown strategy %s", t))
			continue
		}
		if seen[t] {
			violations = append(violations, fmt.Sprintf("%s appears more than once", t))
		}
		seen[t] = true
	}
	for i := 0; i+1 < len(types); i++ {
		a, b := types[i], types[i+1]
		if a == b {
			continue
		}
		switch Compatibility(a, b) {
		case domain.OrderIncompatible:
			violations = append(violations, fmt.Sprintf("%s and %s cannot be combined", a, b))
		case domain.OrderAfter:
			violations = append(violations, fmt.Sprintf("%s must run before %s", b, a))
		}
	}
	// Mutually exclusive types are rejected even when not adjacent.
	if seen[domain.ExtractClass] && seen[domain.SplitGodClass] && !adjacent(types, domain.ExtractClass, domain.SplitGodClass) {
		violations = append(violations, fmt.Sprintf("%s and %s cannot be combined", domain.ExtractClass, domain.SplitGodClass))
	}
	if len(violations) > 0 {
		return &ChainValidationError{Violations: violations}
	}
	return nil
}

func adjacent(types []domain.RefactoringType, a, b domain.RefactoringType) bool {
	for i := 0; i+1 < len(types); i++ {
		x, y := types[i], types[i+1]
		if (x == a && y == b) || (x == b && y == a) {
			return true
		}
	}
	return false
}

var bonuses = map[pair]int{
	{domain.SimplifyMethod, domain.ExtractMethod}:      10,
	{domain.ExtractMethod, domain.SplitGodClass}:       10,
	{domain.ExtractMethod, domain.ExtractClass}:        10,
	{domain.SplitGodClass, domain.ExtractInterface}:    5,
	{domain.SimplifyMethod, domain.ReplaceConditional}: 5,
}

// EstimateImpact scores a sequence 0-100: fifteen points per strategy plus
// bonuses for known-good adjacent pairs.
func EstimateImpact(types []domain.RefactoringType) int {
	impact := len(types) * 15
	for i := 0; i+1 < len(types); i++ {
		impact += bonuses[pair{types[i], types[i+1]}]
	}
	if impact > 100 {
		impact = 100
	}
	return impact
}

// NewChain builds a chain with a derived name, description and impact.
func NewChain(types []domain.RefactoringType) domain.StrategyChain {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.String()
	}
	return domain.StrategyChain{
		Name:            strings.Join(names, "+"),
		Strategies:      append([]domain.RefactoringType(nil), types...),
		Description:     strings.Join(names, " -> "),
		EstimatedImpact: EstimateImpact(types),
	}
}

func named(name, description string, types ...domain.RefactoringType) domain.StrategyChain {
	return domain.StrategyChain{
		Name:            name,
		Strategies:      types,
		Description:     description,
		EstimatedImpact: EstimateImpact(types),
	}
}

// PredefinedChains returns the named compositions for common smells.
func PredefinedChains() []domain.StrategyChain {
	return []domain.StrategyChain{
		named("god_class", "Break up a god class",
			domain.SimplifyMethod, domain.ExtractMethod, domain.SplitGodClass, domain.ExtractInterface),
		named("long_method", "Shorten a long method",
			domain.SimplifyMethod, domain.ExtractMethod),
		named("testability", "Introduce seams for testing",
			domain.ExtractInterface, domain.ExtractClass, domain.ReplaceConditional),
		named("complexity", "Reduce branching complexity",
			domain.SimplifyMethod, domain.ReplaceConditional, domain.ExtractMethod),
	}
}

// PredefinedChain looks up a predefined chain by name, accepting kebab or
// snake case.
func PredefinedChain(name string) (domain.StrategyChain, bool) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_")
	for _, c := range PredefinedChains() {
		if c.Name == key {
			return c, true
		}
	}
	return domain.StrategyChain{}, false
}

// Normalize reorders a chain whose sequence violates an ordering rule and
// recomputes its impact. Duplicates and incompatible pairs are left for
// ValidateChain to report.
func Normalize(chain domain.StrategyChain) domain.StrategyChain {
	if ValidateChain(chain.Strategies) == nil {
		return chain
	}
	out := chain
	out.Strategies = OrderStrategies(chain.Strategies)
	out.EstimatedImpact = EstimateImpact(out.Strategies)
	return out
}

// MaxChainLength bounds GetAllValidChains.
const MaxChainLength = 6

// GetAllValidChains enumerates every combination of refactoring types up to
// maxLen, orders and validates each and returns the valid ones by impact,
// highest first.
func GetAllValidChains(maxLen int) []domain.StrategyChain {
	if maxLen > MaxChainLength {
		maxLen = MaxChainLength
	}
	all := domain.AllRefactoringTypes
	var chains []domain.StrategyChain
	for mask := 1; mask < 1<<len(all); mask++ {
		var subset []domain.RefactoringType
		for i, t := range all {
			if mask&(1<<i) != 0 {
				subset = append(subset, t)
			}
		}
		if len(subset) > maxLen {
			continue
		}
		ordered := OrderStrategies(subset)
		if ValidateChain(ordered) != nil {
			continue
		}
		chains = append(chains, NewChain(ordered))
	}
	sort.SliceStable(chains, func(i, j int) bool {
		if chains[i].EstimatedImpact != chains[j].EstimatedImpact {
			return chains[i].EstimatedImpact > chains[j].EstimatedImpact
		}
		if len(chains[i].Strategies) != len(chains[j].Strategies) {
			return len(chains[i].Strategies) < len(chains[j].Strategies)
		}
		return chains[i].Name < chains[j].Name
	})
	return chains
}

func dedupe(types []domain.RefactoringType) []domain.RefactoringType {
	seen := map[domain.RefactoringType]bool{}
	out := make([]domain.RefactoringType, 0, len(types))
	for _, t := range types {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}
