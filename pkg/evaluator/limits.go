package evaluator

const (
	// DefaultMaxCallDepth bounds nested function calls when ExecOptions
	// leaves MaxCallDepth at zero.
	DefaultMaxCallDepth = 256
	// MaxArgs bounds the argument buffer of a single call.
	MaxArgs = 16
)

// Limits holds the resource bounds for a run.
type Limits struct {
	MaxCallDepth int
}

// Stats tracks what a run did. It is returned with every ExecResult.
type Stats struct {
	Calls         int64
	MaxDepth      int
	ModulesLoaded int
	CacheHits     int
}

func (s *Stats) enter(depth int) {
	s.Calls++
	if depth > s.MaxDepth {
		s.MaxDepth = depth
	}
}
