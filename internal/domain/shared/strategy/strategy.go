package strategy

// Strategy is implemented by every pluggable calculation so it can be named
// in logs and configuration
type Strategy interface {
	Name() string
	Description() string
}

// BaseStrategy carries the name and description of a strategy
type BaseStrategy struct {
	name        string
	description string
}

// NewBaseStrategy creates a new BaseStrategy
func NewBaseStrategy(name, description string) BaseStrategy {
	return BaseStrategy{name: name, description: description}
}

// Name returns the strategy name
func (s BaseStrategy) Name() string {
	return s.name
}

// Description returns the strategy description
func (s BaseStrategy) Description() string {
	return s.description
}
