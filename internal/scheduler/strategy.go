package scheduler

// Policy selects how a batch is composed from the ready set.
type Policy string

const (
	// PolicyEager fills the batch purely by phase/id ordering, ignoring
	// critical-path membership. Best when work is abundant.
	PolicyEager Policy = "eager"

	// PolicyCriticalPathFirst forces ready critical-path tasks into the
	// batch before filling remaining slots in eager order. Best when the
	// longest chain is the binding constraint on completion time.
	PolicyCriticalPathFirst Policy = "critical_path_first"
)

// String returns the string representation of the policy.
func (p Policy) String() string {
	return string(p)
}

// SelectPolicy picks the prioritization policy for one batch request.
// With more than 2N ready tasks the scheduler maximizes throughput via
// Eager; otherwise latency wins and any ready critical-path task tips
// the choice to CriticalPathFirst.
func SelectPolicy(readyCount, maxParallel int, anyCriticalReady bool) Policy {
	if readyCount > 2*maxParallel {
		return PolicyEager
	}
	if anyCriticalReady {
		return PolicyCriticalPathFirst
	}
	return PolicyEager
}
