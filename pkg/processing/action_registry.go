package processing

import (
	"sync"

	customlog "github.com/voice-arm/controller/pkg/log"
)

// ActionInfo holds usage statistics for one action
type ActionInfo struct {
	Action      string
	Kind        string
	Count       int64
	LastApplied int64
}

// ActionRegistry tracks how often each action has been applied
type ActionRegistry struct {
	logger  customlog.Logger
	actions map[string]*ActionInfo
	mu      sync.RWMutex
}

// NewActionRegistry creates a new action registry
func NewActionRegistry(logger customlog.Logger) *ActionRegistry {
	return &ActionRegistry{
		logger:  logger,
		actions: make(map[string]*ActionInfo),
	}
}

// Record updates statistics for an action
func (r *ActionRegistry) Record(action, kind string, timestamp int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	info, exists := r.actions[action]
	if !exists {
		info = &ActionInfo{Action: action}
		r.actions[action] = info
	}

	info.Kind = kind
	info.Count++
	info.LastApplied = timestamp
}

// GetActionInfo returns a copy of the statistics for an action
func (r *ActionRegistry) GetActionInfo(action string) (*ActionInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	info, exists := r.actions[action]
	if !exists {
		return nil, false
	}

	infoCopy := *info
	return &infoCopy, true
}

// GetAllActions returns a list of all recorded actions
func (r *ActionRegistry) GetAllActions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	actions := make([]string, 0, len(r.actions))
	for action := range r.actions {
		actions = append(actions, action)
	}

	return actions
}

// GetActionStats returns a map of action statistics
func (r *ActionRegistry) GetActionStats() map[string]map[string]interface{} {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := make(map[string]map[string]interface{}, len(r.actions))
	for action, info := range r.actions {
		stats[action] = map[string]interface{}{
			"count":        info.Count,
			"kind":         info.Kind,
			"last_applied": info.LastApplied,
		}
	}

	return stats
}
