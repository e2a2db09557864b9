package processing

import (
	"sync"

	"github.com/voice-arm/controller/pkg/arm"
	"github.com/voice-arm/controller/pkg/config"
	customlog "github.com/voice-arm/controller/pkg/log"
)

// PresetTable maps preset names to absolute joint targets
type PresetTable struct {
	logger  customlog.Logger
	presets map[string]arm.Setpoints
	order   []string
	mu      sync.RWMutex
}

// NewPresetTable creates an empty preset table
func NewPresetTable(logger customlog.Logger) *PresetTable {
	return &PresetTable{
		logger:  logger,
		presets: make(map[string]arm.Setpoints),
	}
}

// LoadFromConfig replaces the table with the presets in cfg
func (t *PresetTable) LoadFromConfig(cfg *config.PresetsConfig) {
	presets := make(map[string]arm.Setpoints, len(cfg.Presets))
	order := make([]string, 0, len(cfg.Presets))
	for _, p := range cfg.Presets {
		presets[p.Name] = arm.Setpoints{p.Motor1, p.Motor2, p.Motor3, p.Gripper}
		order = append(order, p.Name)
	}

	t.mu.Lock()
	t.presets = presets
	t.order = order
	t.mu.Unlock()

	t.logger.Infof("Loaded %d presets into table (config %s)", len(order), cfg.ConfigID)
}

// Lookup returns the targets for a preset
func (t *PresetTable) Lookup(name string) (arm.Setpoints, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	targets, exists := t.presets[name]
	return targets, exists
}

// Names returns all preset names in load order
func (t *PresetTable) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	names := make([]string, len(t.order))
	copy(names, t.order)
	return names
}
