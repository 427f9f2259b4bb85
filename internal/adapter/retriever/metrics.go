package retriever

import "math"

// Retrieval quality metrics over chunk IDs, used to compare search modes.

// PrecisionAtK is the fraction of retrieved IDs that are relevant.
func PrecisionAtK(retrieved, relevant []string) float64 {
	if len(retrieved) == 0 {
		return 0
	}
	relevantSet := make(map[string]bool)
	for _, r := range relevant {
		relevantSet[r] = true
	}
	hits := 0
	for _, r := range retrieved {
		if relevantSet[r] {
			hits++
		}
	}
	return float64(hits) / float64(len(retrieved))
}

// RecallAtK is the fraction of relevant IDs that were retrieved.
func RecallAtK(retrieved, relevant []string) float64 {
	if len(relevant) == 0 {
		return 0
	}
	relevantSet := make(map[string]bool)
	for _, r := range relevant {
		relevantSet[r] = true
	}
	hits := 0
	for _, r := range retrieved {
		if relevantSet[r] {
			hits++
		}
	}
	return float64(hits) / float64(len(relevant))
}

// ReciprocalRank is 1/rank of relevant in retrieved, or 0 if absent.
func ReciprocalRank(retrieved []string, relevant string) float64 {
	for i, r := range retrieved {
		if r == relevant {
			return 1.0 / float64(i+1)
		}
	}
	return 0
}

// NDCG normalizes the discounted cumulative gain of scores against ideal.
func NDCG(scores, ideal []float64) float64 {
	dcg := calculateDCG(scores)
	idcg := calculateDCG(ideal)
	if idcg == 0 {
		return 0
	}
	return dcg / idcg
}

func calculateDCG(scores []float64) float64 {
	dcg := 0.0
	for i, score := range scores {
		dcg += score / math.Log2(float64(i+2))
	}
	return dcg
}

// BinaryGains marks each retrieved ID with gain 1 if relevant, else 0, and
// returns the ideal ordering alongside.
func BinaryGains(retrieved, relevant []string) (gains, ideal []float64) {
	relevantSet := make(map[string]bool, len(relevant))
	for _, r := range relevant {
		relevantSet[r] = true
	}
	gains = make([]float64, len(retrieved))
	ideal = make([]float64, len(retrieved))
	for i, r := range retrieved {
		if relevantSet[r] {
			gains[i] = 1
		}
		if i < len(relevant) {
			ideal[i] = 1
		}
	}
	return gains, ideal
}
