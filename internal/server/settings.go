package server

import (
	"context"
	"strconv"
	"strings"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/juev/ledger-beautifier/internal/config"
)

const settingsSection = "ledgerBeautifier"

// formattingSettings come from the client. Zero values leave the project
// configuration in charge.
type formattingSettings struct {
	Indent       int
	MinGap       int
	AlignAmounts string
	NoVerify     bool
}

type serverSettings struct {
	Formatting formattingSettings
	// ProjectConfig enables .ledger-beautifier.* discovery next to the
	// document.
	ProjectConfig bool
}

func defaultServerSettings() serverSettings {
	return serverSettings{ProjectConfig: true}
}

func normalizeServerSettings(settings serverSettings) serverSettings {
	if settings.Formatting.Indent < 0 {
		settings.Formatting.Indent = 0
	}
	if settings.Formatting.MinGap < 0 {
		settings.Formatting.MinGap = 0
	}
	settings.Formatting.AlignAmounts = strings.ToLower(strings.TrimSpace(settings.Formatting.AlignAmounts))
	return settings
}

// overlay applies the client settings on top of a project configuration.
func (f formattingSettings) overlay(cfg config.Config) config.Config {
	if f.Indent > 0 {
		cfg.Indent = f.Indent
	}
	if f.MinGap > 0 {
		cfg.MinGap = f.MinGap
	}
	if f.AlignAmounts != "" {
		cfg.AlignAmounts = f.AlignAmounts
	}
	if f.NoVerify {
		cfg.NoVerify = true
	}
	return config.Normalize(cfg)
}

func (s *Server) setSettings(settings serverSettings) {
	settings = normalizeServerSettings(settings)
	s.settingsMu.Lock()
	s.settings = settings
	s.settingsMu.Unlock()
	s.memo.Flush()
	s.configs.Flush()
}

func (s *Server) getSettings() serverSettings {
	s.settingsMu.RLock()
	defer s.settingsMu.RUnlock()
	return s.settings
}

func (s *Server) refreshConfiguration(ctx context.Context) {
	if s.client == nil || !s.supportsConfiguration {
		return
	}
	result, err := s.client.Configuration(ctx, &protocol.ConfigurationParams{
		Items: []protocol.ConfigurationItem{
			{Section: settingsSection},
		},
	})
	if err != nil {
		s.logger.Debug("configuration request failed", zap.Error(err))
		return
	}
	if len(result) == 0 {
		return
	}
	s.setSettings(parseSettingsFromRaw(s.getSettings(), result[0]))
}

func (s *Server) DidChangeConfiguration(_ context.Context, params *protocol.DidChangeConfigurationParams) error {
	if params != nil && params.Settings != nil {
		s.setSettings(parseSettingsFromRaw(s.getSettings(), params.Settings))
	}
	go s.refreshConfiguration(context.Background())
	return nil
}

func parseSettingsFromRaw(base serverSettings, raw interface{}) serverSettings {
	settings := base
	rawMap, ok := raw.(map[string]interface{})
	if !ok {
		return normalizeServerSettings(settings)
	}
	if nested, ok := rawMap[settingsSection]; ok {
		return parseSettingsFromRaw(settings, nested)
	}
	settings = applySettingsMap(settings, rawMap)
	return normalizeServerSettings(settings)
}

func applySettingsMap(settings serverSettings, raw map[string]interface{}) serverSettings {
	apply := func(get func(string) interface{}) {
		if value, ok := toInt(get("indent")); ok {
			settings.Formatting.Indent = value
		}
		if value, ok := toInt(get("minGap")); ok {
			settings.Formatting.MinGap = value
		}
		if value, ok := get("alignAmounts").(string); ok {
			settings.Formatting.AlignAmounts = value
		}
		if value, ok := toBool(get("noVerify")); ok {
			settings.Formatting.NoVerify = value
		}
	}

	if formattingRaw, ok := raw["formatting"].(map[string]interface{}); ok {
		apply(func(key string) interface{} { return formattingRaw[key] })
	}
	apply(func(key string) interface{} { return raw["formatting."+key] })

	if value, ok := toBool(raw["projectConfig"]); ok {
		settings.ProjectConfig = value
	}
	return settings
}

func toInt(value interface{}) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case float32:
		return int(v), true
	case string:
		v = strings.TrimSpace(v)
		if v == "" {
			return 0, false
		}
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return 0, false
		}
		return parsed, true
	}
	return 0, false
}

func toBool(value interface{}) (bool, bool) {
	switch v := value.(type) {
	case bool:
		return v, true
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return false, false
		}
		return parsed, true
	}
	return false, false
}
