package utils

import (
	"runtime"
	"runtime/debug"
	"sync"

	"stream-operators/src/logger"
	"stream-operators/src/models"
)

// -----------------------------------------------------------------------------
// MemoryManager keeps the most recent emissions per symbol in ring buffers.
// -----------------------------------------------------------------------------

type MemoryManager struct {
	Streams       map[string]*RingBuffer[models.MEmission]
	MaxMemoryMB   int
	MaxDataPoints int
	Logger        *logger.Logger
	mu            sync.RWMutex
}

// -----------------------------------------------------------------------------

func NewMemoryManager(maxMemoryMB, maxDataPoints int) *MemoryManager {
	if maxDataPoints <= 0 {
		maxDataPoints = DefaultEmissionsPerSymbol
	}
	return &MemoryManager{
		Streams:       make(map[string]*RingBuffer[models.MEmission]),
		MaxMemoryMB:   maxMemoryMB,
		MaxDataPoints: maxDataPoints,
		Logger:        logger.NewLogger(nil, "MemoryManager"),
	}
}

// -----------------------------------------------------------------------------

// Add appends an emission to its symbol's buffer.
func (mm *MemoryManager) Add(emission models.MEmission) {
	mm.mu.Lock()
	buffer, ok := mm.Streams[emission.Symbol]
	if !ok {
		buffer = NewRingBuffer[models.MEmission](mm.MaxDataPoints)
		mm.Streams[emission.Symbol] = buffer
	}
	buffer.Append(emission)
	checkNow := buffer.Size()%100 == 0
	mm.mu.Unlock()

	// Periodic memory check
	if checkNow {
		mm.CheckMemoryLimits()
	}
}

// -----------------------------------------------------------------------------

// Latest returns up to n newest emissions for symbol, oldest first.
func (mm *MemoryManager) Latest(symbol string, n int) []models.MEmission {
	mm.mu.RLock()
	defer mm.mu.RUnlock()

	buffer, ok := mm.Streams[symbol]
	if !ok {
		return []models.MEmission{}
	}
	return buffer.GetLatest(n)
}

// -----------------------------------------------------------------------------

// Snapshot returns the newest emission of every symbol.
func (mm *MemoryManager) Snapshot() []models.MEmission {
	mm.mu.RLock()
	defer mm.mu.RUnlock()

	result := make([]models.MEmission, 0, len(mm.Streams))
	for _, buffer := range mm.Streams {
		if latest := buffer.GetLatest(1); len(latest) > 0 {
			result = append(result, latest[0])
		}
	}
	return result
}

// -----------------------------------------------------------------------------

// CheckMemoryLimits halves buffer capacities when the heap exceeds MaxMemoryMB.
func (mm *MemoryManager) CheckMemoryLimits() {
	if mm.MaxMemoryMB <= 0 {
		return
	}
	currentMemory := mm.GetProcessMemoryMB()
	if currentMemory <= float64(mm.MaxMemoryMB) {
		return
	}

	mm.Logger.Info("Memory usage %.1fMB exceeds limit %dMB. Cleaning up.", currentMemory, mm.MaxMemoryMB)

	mm.mu.Lock()
	for _, buffer := range mm.Streams {
		if buffer.Capacity() > MinEmissionsPerSymbol*2 {
			newCapacity := buffer.Capacity() / 2
			if newCapacity < MinEmissionsPerSymbol {
				newCapacity = MinEmissionsPerSymbol
			}
			buffer.Resize(newCapacity)
		}
	}
	mm.mu.Unlock()

	runtime.GC()
	debug.FreeOSMemory()
}

// -----------------------------------------------------------------------------

// GetProcessMemoryMB gets current heap usage in MB
func (mm *MemoryManager) GetProcessMemoryMB() float64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return float64(m.HeapAlloc) / 1024 / 1024
}

// -----------------------------------------------------------------------------

// Cleanup clears all data
func (mm *MemoryManager) Cleanup() {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	mm.Streams = make(map[string]*RingBuffer[models.MEmission])
}

// -----------------------------------------------------------------------------

// SymbolCount returns number of symbols with data
func (mm *MemoryManager) SymbolCount() int {
	mm.mu.RLock()
	defer mm.mu.RUnlock()
	return len(mm.Streams)
}
