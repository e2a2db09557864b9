package services

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/voice-arm/controller/pkg/config"
	customlog "github.com/voice-arm/controller/pkg/log"
)

// ConfigPublisher defines the interface for publishing configuration updates.
// It avoids a direct dependency on the ZeroMQ bridge.
type ConfigPublisher interface {
	PublishConfigUpdate(cfg *config.PresetsConfig) error
	PublishConfigUpdatedNotification(cfg *config.PresetsConfig) error
}

// ApplyFunc receives every configuration that becomes active
type ApplyFunc func(cfg *config.PresetsConfig)

// PresetsConfigService defines the interface for managing the operational presets configuration.
type PresetsConfigService interface {
	LoadConfig() error
	GetCurrentConfig() *config.PresetsConfig
	GetCurrentConfigYAML() ([]byte, error)
	UpdateConfig(newConfigYAML []byte) error
	SetPublisher(p ConfigPublisher)
	OnApply(fn ApplyFunc)
}

// presetsConfigService implements the PresetsConfigService interface.
type presetsConfigService struct {
	presetsPath     string
	logger          customlog.Logger
	configPublisher ConfigPublisher
	applyFuncs      []ApplyFunc
	currentConfig   *config.PresetsConfig
	mu              sync.RWMutex
}

// NewPresetsConfigService creates a new PresetsConfigService and performs the initial load.
// A missing presets file is not an error: the built-in presets are used until one is written.
func NewPresetsConfigService(presetsPath string, logger customlog.Logger) (PresetsConfigService, error) {
	if presetsPath == "" {
		return nil, fmt.Errorf("presets configuration path cannot be empty")
	}
	if logger == nil {
		logger = customlog.NewNopLogger()
	}

	service := &presetsConfigService{
		presetsPath: presetsPath,
		logger:      logger.WithField("component", "presets_config"),
	}

	if err := service.LoadConfig(); err != nil {
		return nil, err
	}

	return service, nil
}

// LoadConfig reads the presets file from disk and makes it the current configuration.
func (s *presetsConfigService) LoadConfig() error {
	s.logger.Infof("Loading presets configuration from: %s", s.presetsPath)

	cfg, err := config.LoadConfig(s.presetsPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Errorf("Error loading presets file '%s': %v", s.presetsPath, err)
			return fmt.Errorf("error loading presets file '%s': %w", s.presetsPath, err)
		}
		s.logger.Warnf("Presets file '%s' not found, using built-in presets", s.presetsPath)
		cfg = config.DefaultPresetsConfig()
	}

	s.mu.Lock()
	s.currentConfig = cfg
	applyFuncs := append([]ApplyFunc(nil), s.applyFuncs...)
	s.mu.Unlock()

	for _, fn := range applyFuncs {
		fn(cfg)
	}

	s.logger.Infof("Loaded presets configuration ID: %s, Version: %s (%d presets)", cfg.ConfigID, cfg.Version, len(cfg.Presets))
	return nil
}

// GetCurrentConfig returns the active configuration. Callers must treat it as read-only.
func (s *presetsConfigService) GetCurrentConfig() *config.PresetsConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentConfig
}

// GetCurrentConfigYAML renders the active configuration as YAML.
func (s *presetsConfigService) GetCurrentConfigYAML() ([]byte, error) {
	cfg := s.GetCurrentConfig()
	if cfg == nil {
		return nil, fmt.Errorf("no presets configuration loaded")
	}
	return cfg.ToYAML()
}

// UpdateConfig validates, persists and applies new presets, then publishes the
// full configuration followed by an update notification.
func (s *presetsConfigService) UpdateConfig(newConfigYAML []byte) error {
	s.logger.Infof("Attempting to update presets configuration from provided YAML")

	newCfg, err := config.ParseConfig(newConfigYAML)
	if err != nil {
		s.logger.Errorf("Rejected presets configuration: %v", err)
		return err
	}
	if newCfg.LastUpdated == "" {
		newCfg.LastUpdated = time.Now().UTC().Format(time.RFC3339)
	}

	data, err := newCfg.ToYAML()
	if err != nil {
		return fmt.Errorf("failed to render presets configuration: %w", err)
	}

	s.mu.Lock()
	// Persist before applying so a failed write leaves the old presets active
	if err := s.persistConfig(data); err != nil {
		s.mu.Unlock()
		return err
	}

	oldCfgID := "N/A"
	if s.currentConfig != nil {
		oldCfgID = s.currentConfig.ConfigID
	}
	s.currentConfig = newCfg
	publisher := s.configPublisher
	applyFuncs := append([]ApplyFunc(nil), s.applyFuncs...)
	s.mu.Unlock()

	for _, fn := range applyFuncs {
		fn(newCfg)
	}
	s.logger.Infof("Updated presets configuration. ID %s -> %s, Version: %s", oldCfgID, newCfg.ConfigID, newCfg.Version)

	if publisher == nil {
		s.logger.Debugf("ConfigPublisher not configured, skipping update notification")
		return nil
	}
	if err := publisher.PublishConfigUpdate(newCfg); err != nil {
		s.logger.Warnf("Failed to publish config update: %v", err)
	}
	if err := publisher.PublishConfigUpdatedNotification(newCfg); err != nil {
		s.logger.Warnf("Failed to publish config update notification: %v", err)
	}
	return nil
}

// persistConfig writes yamlData to the presets file. The caller holds the lock.
func (s *presetsConfigService) persistConfig(yamlData []byte) error {
	if err := os.MkdirAll(filepath.Dir(s.presetsPath), 0755); err != nil {
		return fmt.Errorf("error creating presets directory: %w", err)
	}

	// Write to a temp file and rename so readers never see a partial file
	tmp := s.presetsPath + ".tmp"
	if err := os.WriteFile(tmp, yamlData, 0644); err != nil {
		s.logger.Errorf("Error writing presets file '%s': %v", tmp, err)
		return fmt.Errorf("error writing presets file '%s': %w", s.presetsPath, err)
	}
	if err := os.Rename(tmp, s.presetsPath); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("error writing presets file '%s': %w", s.presetsPath, err)
	}

	s.logger.Infof("Persisted presets configuration to %s", s.presetsPath)
	return nil
}

// SetPublisher injects the ConfigPublisher after initialization.
func (s *presetsConfigService) SetPublisher(p ConfigPublisher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configPublisher = p
}

// OnApply registers fn and immediately calls it with the current configuration.
func (s *presetsConfigService) OnApply(fn ApplyFunc) {
	s.mu.Lock()
	s.applyFuncs = append(s.applyFuncs, fn)
	cfg := s.currentConfig
	s.mu.Unlock()

	if cfg != nil {
		fn(cfg)
	}
}
