// Package rounds assigns models to refinement rounds.
package rounds

// AutoModel is the "automatic selection" sentinel: the remote service picks
// the model itself.
const AutoModel = "openrouter/auto"

// SelectModel returns the model for a zero-based round index using
// round-robin over enabledModelIDs. An empty list yields AutoModel.
// Negative rounds are treated as round 0.
func SelectModel(enabledModelIDs []string, round int) string {
	if len(enabledModelIDs) == 0 {
		return AutoModel
	}
	if round < 0 {
		round = 0
	}
	return enabledModelIDs[round%len(enabledModelIDs)]
}

// Plan returns the model for each of rounds 0..n-1
func Plan(enabledModelIDs []string, n int) []string {
	if n <= 0 {
		return []string{}
	}
	plan := make([]string, n)
	for i := range plan {
		plan[i] = SelectModel(enabledModelIDs, i)
	}
	return plan
}
