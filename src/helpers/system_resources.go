package helpers

// minMemoryLimitMB is the floor for the automatic limit on hosts with more RAM.
const minMemoryLimitMB = 512

// RecommendedMemoryLimitMB returns the emission buffer limit for a host with
// totalMB of RAM: three quarters of it, at least 512MB when the host has that
// much. Unknown totals (0) give 512MB.
func RecommendedMemoryLimitMB(totalMB int) int {
	if totalMB <= 0 {
		return minMemoryLimitMB
	}
	limit := totalMB * 3 / 4
	if limit >= minMemoryLimitMB {
		return limit
	}
	if totalMB < minMemoryLimitMB {
		return totalMB
	}
	return minMemoryLimitMB
}

// GetRecommendedMemoryLimit applies RecommendedMemoryLimitMB to this host.
func GetRecommendedMemoryLimit() int {
	return RecommendedMemoryLimitMB(GetTotalSystemMemoryMB())
}
