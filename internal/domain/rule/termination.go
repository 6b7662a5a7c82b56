package rule

import "time"

// ShouldComplete decides whether a rule has reached its termination condition:
// the execution cap is exhausted, or the end date has passed as of the given
// date. Evaluated both before executing (to reject the attempt) and after a
// successful execution (to mark the rule COMPLETED).
func ShouldComplete(r *Rule, asOfExecutionCount int, asOfDate time.Time) bool {
	if r.MaxExecutions.Valid && asOfExecutionCount >= int(r.MaxExecutions.Int32) {
		return true
	}
	if r.EndDate.Valid && asOfDate.After(r.EndDate.Time) {
		return true
	}
	return false
}
