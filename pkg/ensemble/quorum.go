package ensemble

import "github.com/arkado/chainwatch/pkg/detectors"

// QuorumCombiner declares an observation anomalous when at least Quorum
// detectors independently voted anomalous.
//
// The vote deliberately ignores score magnitude. It is the combination
// policy of choice when detector scales are too heterogeneous to average
// meaningfully, and the only one that accepts detectors producing a bare
// outlier flag with no continuous score (e.g. cluster membership).
type QuorumCombiner struct {
	// Quorum is the minimum anomalous-vote count, between 1 and the number
	// of participating detectors. Quorum 1 behaves as a logical OR across
	// detectors, quorum == n as a logical AND.
	Quorum int
}

// DefaultQuorum returns the default vote requirement for n detectors:
// strict majority for three or more, unanimity for one or two. Two-detector
// lightweight deployments therefore require both detectors to agree.
func DefaultQuorum(n int) int {
	if n <= 2 {
		return n
	}
	return (n+1)/2 + 1
}

// Combine counts anomalous votes per observation across the per-detector
// vote vectors. Detectors absent from votes (failed for this batch) simply
// contribute no vote; the quorum requirement is unchanged.
func (c *QuorumCombiner) Combine(votes map[string][]detectors.Label, n int) []detectors.Label {
	counts := c.counts(votes, n)

	labels := make([]detectors.Label, n)
	for i, count := range counts {
		if count >= c.Quorum {
			labels[i] = detectors.LabelAnomaly
		} else {
			labels[i] = detectors.LabelNormal
		}
	}
	return labels
}

// AgreementScores returns, per observation, the fraction of voting
// detectors that considered it normal. Used as the quorum policy's
// pseudo-probability and decision score.
func (c *QuorumCombiner) AgreementScores(votes map[string][]detectors.Label, n int) []float64 {
	counts := c.counts(votes, n)
	voters := len(votes)

	scores := make([]float64, n)
	for i, count := range counts {
		if voters == 0 {
			scores[i] = 0.5
			continue
		}
		scores[i] = 1 - float64(count)/float64(voters)
	}
	return scores
}

func (c *QuorumCombiner) counts(votes map[string][]detectors.Label, n int) []int {
	counts := make([]int, n)
	for _, vec := range votes {
		for i, label := range vec {
			if i >= n {
				break
			}
			if label == detectors.LabelAnomaly {
				counts[i]++
			}
		}
	}
	return counts
}
