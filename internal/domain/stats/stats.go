// Package stats computes the derived figures reported for competitions,
// supervisors, contestants and scores. Everything here is pure.
package stats

import "math"

type CompetitionStatistics struct {
	TotalContestants int     `json:"total_contestants"`
	PassedCount      int     `json:"passed_count"`
	FailedCount      int     `json:"failed_count"`
	AverageScore     float64 `json:"average_score"`
	SuccessRate      float64 `json:"success_rate"`
}

type SupervisorStatistics struct {
	ContestantsCount int     `json:"contestants_count"`
	ScoresCount      int     `json:"scores_count"`
	AverageScore     float64 `json:"average_score"`
	AvailableSlots   int     `json:"available_slots"`
}

// Round2 rounds half away from zero to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Mean is the two-decimal average of values, 0 when empty.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return Round2(sum / float64(len(values)))
}

func IsPassing(value, passingScore float64) bool {
	return value >= passingScore
}

// ForCompetition summarises the score values of one competition.
func ForCompetition(passingScore float64, values []float64) CompetitionStatistics {
	st := CompetitionStatistics{TotalContestants: len(values)}
	for _, v := range values {
		if IsPassing(v, passingScore) {
			st.PassedCount++
		}
	}
	st.FailedCount = st.TotalContestants - st.PassedCount
	st.AverageScore = Mean(values)
	if st.TotalContestants > 0 {
		st.SuccessRate = Round2(float64(st.PassedCount) / float64(st.TotalContestants) * 100)
	}
	return st
}

// ForSupervisor summarises a supervisor's load and the scores of their contestants.
func ForSupervisor(maxContestants, contestants int, values []float64) SupervisorStatistics {
	return SupervisorStatistics{
		ContestantsCount: contestants,
		ScoresCount:      len(values),
		AverageScore:     Mean(values),
		AvailableSlots:   maxContestants - contestants,
	}
}

// Rank is 1 plus the number of values strictly greater than value; ties share a rank.
func Rank(value float64, values []float64) int {
	rank := 1
	for _, v := range values {
		if v > value {
			rank++
		}
	}
	return rank
}
