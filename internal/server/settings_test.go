package server

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/protocol"

	"github.com/juev/ledger-beautifier/internal/config"
	"github.com/juev/ledger-beautifier/internal/layout"
)

func TestDefaultServerSettings(t *testing.T) {
	s := defaultServerSettings()
	assert.True(t, s.ProjectConfig)
	assert.Equal(t, formattingSettings{}, s.Formatting)
}

func TestParseSettingsFromRaw(t *testing.T) {
	tests := []struct {
		name string
		raw  interface{}
		want serverSettings
	}{
		{
			name: "not a map keeps base",
			raw:  "nonsense",
			want: defaultServerSettings(),
		},
		{
			name: "nested section",
			raw: map[string]interface{}{
				"ledgerBeautifier": map[string]interface{}{
					"formatting": map[string]interface{}{
						"indent":       float64(2),
						"minGap":       "3",
						"alignAmounts": " Right ",
						"noVerify":     true,
					},
					"projectConfig": false,
				},
			},
			want: serverSettings{
				Formatting: formattingSettings{Indent: 2, MinGap: 3, AlignAmounts: "right", NoVerify: true},
			},
		},
		{
			name: "dotted keys",
			raw: map[string]interface{}{
				"formatting.indent":   int64(8),
				"formatting.noVerify": "true",
			},
			want: serverSettings{
				Formatting:    formattingSettings{Indent: 8, NoVerify: true},
				ProjectConfig: true,
			},
		},
		{
			name: "bad values are ignored",
			raw: map[string]interface{}{
				"formatting": map[string]interface{}{
					"indent":   "wide",
					"minGap":   []int{1},
					"noVerify": "maybe",
				},
			},
			want: defaultServerSettings(),
		},
		{
			name: "negative numbers reset",
			raw:  map[string]interface{}{"formatting.indent": -4},
			want: defaultServerSettings(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseSettingsFromRaw(defaultServerSettings(), tt.raw))
		})
	}
}

func TestFormattingSettings_Overlay(t *testing.T) {
	project := config.Default()
	project.Indent = 2
	project.MinGap = 5

	cfg := formattingSettings{}.overlay(project)
	assert.Equal(t, 2, cfg.Indent)
	assert.Equal(t, 5, cfg.MinGap)

	cfg = formattingSettings{Indent: 6, AlignAmounts: "right", NoVerify: true}.overlay(project)
	assert.Equal(t, 6, cfg.Indent)
	assert.Equal(t, 5, cfg.MinGap)
	assert.True(t, cfg.NoVerify)

	lc, err := cfg.Layout()
	require.NoError(t, err)
	assert.Equal(t, layout.AlignRight, lc.AmountAlign)
}

func TestToInt(t *testing.T) {
	for _, v := range []interface{}{4, int32(4), int64(4), float64(4), float32(4), " 4 "} {
		got, ok := toInt(v)
		assert.True(t, ok, "%T", v)
		assert.Equal(t, 4, got)
	}
	for _, v := range []interface{}{nil, "", "x", true} {
		_, ok := toInt(v)
		assert.False(t, ok, "%v", v)
	}
}

func TestToBool(t *testing.T) {
	got, ok := toBool(true)
	assert.True(t, ok)
	assert.True(t, got)

	got, ok = toBool("false")
	assert.True(t, ok)
	assert.False(t, got)

	_, ok = toBool(1)
	assert.False(t, ok)
}

func TestRefreshConfiguration(t *testing.T) {
	ts := newTestServer()
	ts.client.configuration = []interface{}{
		map[string]interface{}{"formatting": map[string]interface{}{"minGap": 4}},
	}

	_, err := ts.Initialize(context.Background(), &protocol.InitializeParams{
		Capabilities: protocol.ClientCapabilities{
			Workspace: &protocol.WorkspaceClientCapabilities{Configuration: true},
		},
	})
	require.NoError(t, err)

	ts.refreshConfiguration(context.Background())
	assert.Equal(t, 4, ts.getSettings().Formatting.MinGap)
}

func TestRefreshConfiguration_Unsupported(t *testing.T) {
	ts := newTestServer()
	ts.client.configuration = []interface{}{
		map[string]interface{}{"formatting.minGap": 4},
	}

	ts.refreshConfiguration(context.Background())
	assert.Zero(t, ts.getSettings().Formatting.MinGap)

	select {
	case <-ts.client.configCalls:
		t.Fatal("configuration must not be requested")
	default:
	}
}
