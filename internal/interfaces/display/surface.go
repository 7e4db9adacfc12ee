package display

import (
	"slices"
	"sync"

	"go.uber.org/zap"
)

// Surface receives the rendered text of a display region
type Surface interface {
	Show(region, content string)
}

// MemorySurface keeps the latest content of every region
type MemorySurface struct {
	mu      sync.RWMutex
	regions map[string]string
	writes  map[string]int
}

// NewMemorySurface creates an empty memory surface
func NewMemorySurface() *MemorySurface {
	return &MemorySurface{
		regions: make(map[string]string),
		writes:  make(map[string]int),
	}
}

// Show stores content as the region's current view
func (s *MemorySurface) Show(region, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.regions[region] = content
	s.writes[region]++
}

// Region returns the current content of a region
func (s *MemorySurface) Region(region string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.regions[region]
}

// Writes returns how many times a region was shown
func (s *MemorySurface) Writes(region string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes[region]
}

// Regions returns the names of every region shown so far, sorted
func (s *MemorySurface) Regions() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.regions))
	for name := range s.regions {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// LogSurface writes region content to a logger, skipping regions whose
// content did not change since the last refresh
type LogSurface struct {
	logger *zap.Logger
	mu     sync.Mutex
	last   map[string]string
}

// NewLogSurface creates a surface that logs changed regions at info level
func NewLogSurface(logger *zap.Logger) *LogSurface {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSurface{
		logger: logger,
		last:   make(map[string]string),
	}
}

// Show logs content if it differs from what the region showed before
func (s *LogSurface) Show(region, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.last[region]; ok && prev == content {
		return
	}
	s.last[region] = content
	s.logger.Info("display updated",
		zap.String("region", region),
		zap.String("content", content),
	)
}
