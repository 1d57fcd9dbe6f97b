package roadmap

// ComputeProgress returns the rounded completion percentage of tasks,
// or 0 for an empty list.
func ComputeProgress(tasks []Task) int {
	completed := 0
	for i := range tasks {
		if tasks[i].Completed {
			completed++
		}
	}
	return Percent(completed, len(tasks))
}

// Percent returns round(100*completed/total) in [0,100], or 0 when total is 0.
func Percent(completed, total int) int {
	if total <= 0 {
		return 0
	}
	if completed < 0 {
		completed = 0
	}
	if completed > total {
		completed = total
	}
	// floor(100c/t + 0.5) in integer arithmetic
	return (200*completed + total) / (2 * total)
}
