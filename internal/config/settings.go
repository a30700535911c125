package config

import (
	_ "embed"
	"encoding/json"
	"os"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
)

type Config struct {
	Bot struct {
		ServiceURL string `json:"service_url"`
		TimeoutMS  uint32 `json:"timeout_ms"`
		CacheSize  int    `json:"cache_size"`
	} `json:"bot"`

	Reputation struct {
		IPAPIEndpoint   string `json:"ipapi_endpoint"`
		SpamEndpoint    string `json:"spam_endpoint"`
		GeoEndpoint     string `json:"geo_endpoint"`
		SourceTimeoutMS uint32 `json:"source_timeout_ms"`
		RefreshTimer    Timer  `json:"refresh_timer"`
	} `json:"reputation"`

	Runtime struct {
		SweepTimer     Timer `json:"sweep_timer"`
		SweepBatchSize int   `json:"sweep_batch_size"`
	} `json:"runtime"`

	Review struct {
		PageSize int `json:"page_size"`
	} `json:"review"`

	GeoLite struct {
		CityDBPath string `json:"city_db_path"`
	} `json:"geolite"`
}

const settingsFilePath = "data/settings.json"

var (
	//go:embed default_settings.json
	defaultConfig []byte

	configValue atomic.Value
	configMu    sync.Mutex

	InProductionMode bool
)

func init() {
	configValue.Store(Config{})
}

// ReadSettings loads data/settings.json, creating it from the embedded
// defaults when missing. Parse failures keep the previous configuration.
func ReadSettings() {
	data, err := os.ReadFile(settingsFilePath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Warn("Settings file not found, creating with default configuration")

			if err := os.MkdirAll("data", os.ModePerm); err != nil {
				log.Error("Error creating directory for settings file:", "error", err)
				return
			}

			if err := os.WriteFile(settingsFilePath, defaultConfig, os.ModePerm); err != nil {
				log.Error("Error writing default settings file:", "error", err)
				return
			}

			data = defaultConfig
		} else {
			log.Error("Error reading settings file:", "error", err)
			return
		}
	}

	var newConfig Config
	if err := json.Unmarshal(data, &newConfig); err != nil {
		log.Error("Error unmarshalling settings file:", "error", err)
		return
	}

	configValue.Store(newConfig)
	log.Debug("Settings file loaded successfully")
}

func GetConfig() Config {
	return configValue.Load().(Config)
}

// SetConfig applies a new configuration and persists it to the settings file.
func SetConfig(newConfig Config) {
	configMu.Lock()
	defer configMu.Unlock()

	configValue.Store(newConfig)

	data, err := json.MarshalIndent(newConfig, "", "  ")
	if err != nil {
		log.Error("Error marshalling configuration:", "error", err)
		return
	}

	if err := os.MkdirAll("data", os.ModePerm); err != nil {
		log.Error("Error creating directory for settings file:", "error", err)
		return
	}

	if err := os.WriteFile(settingsFilePath, data, os.ModePerm); err != nil {
		log.Error("Error writing settings file:", "error", err)
		return
	}

	log.Debug("Configuration updated and written to file successfully")
}

func SetProductionMode(enabled bool) {
	InProductionMode = enabled
}
