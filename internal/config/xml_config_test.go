package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trendlog-viewer/backend/internal/models"
	"github.com/trendlog-viewer/backend/internal/parser"
)

func TestLoadConfig_CreatesDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.xml")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<TrendLogViewer>")
	assert.Contains(t, string(data), "<FractionResolution>hundredths</FractionResolution>")

	assert.Equal(t, 8089, cfg.Server.Port)
	assert.Equal(t, filepath.Join(dir, "data", "captures"), cfg.Storage.CapturesDirectory)
	assert.Equal(t, "json", cfg.Export.DefaultFormat)
}

func TestLoadConfig_ReadsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.xml")
	xmlDoc := `<?xml version="1.0" encoding="UTF-8"?>
<TrendLogViewer>
  <Server><Port>9000</Port><BindAddress>127.0.0.1</BindAddress></Server>
  <Storage><DataDirectory>/srv/trend</DataDirectory><CapturesDirectory>caps</CapturesDirectory></Storage>
  <Decoder>
    <FractionResolution>milliseconds</FractionResolution>
    <OrderPolicy>reject</OrderPolicy>
    <StrictDayOfWeek>true</StrictDayOfWeek>
    <Location>Europe/Berlin</Location>
  </Decoder>
  <Export><DefaultFormat>mebo</DefaultFormat><MeboMetricName>zone</MeboMetricName></Export>
</TrendLogViewer>`
	require.NoError(t, os.WriteFile(path, []byte(xmlDoc), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.GetServerAddr())
	assert.Equal(t, "/srv/trend", cfg.Storage.DataDirectory)
	assert.Equal(t, filepath.Join(dir, "caps"), cfg.Storage.CapturesDirectory)
	assert.Equal(t, "zone", cfg.Export.MeboMetricName)
	// Unset sections keep their defaults.
	assert.Equal(t, 4, cfg.Advanced.DuckDBThreads)

	opts, err := cfg.DecoderOptions()
	require.NoError(t, err)
	dc := parser.NewDecoder(opts...).Config()
	assert.Equal(t, parser.Milliseconds, dc.Resolution)
	assert.Equal(t, parser.OrderReject, dc.Order)
	assert.True(t, dc.StrictDayOfWeek)
	assert.Equal(t, "Europe/Berlin", dc.Location.String())
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	t.Setenv("PORT", "7070")
	t.Setenv("TRENDLOG_DB_PATH", "/var/lib/trendlog")
	t.Setenv("TRENDLOG_FRACTION_RESOLUTION", "ms")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "config.xml"))
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "/var/lib/trendlog", cfg.Storage.DatabaseDirectory)

	opts, err := cfg.DecoderOptions()
	require.NoError(t, err)
	assert.Equal(t, parser.Milliseconds, parser.NewDecoder(opts...).Config().Resolution)
}

func TestLoadConfig_Invalid(t *testing.T) {
	cases := map[string]string{
		"malformed xml": `<TrendLogViewer><Server>`,
		"bad port":      `<TrendLogViewer><Server><Port>70000</Port></Server></TrendLogViewer>`,
		"bad policy":    `<TrendLogViewer><Decoder><OrderPolicy>sort</OrderPolicy></Decoder></TrendLogViewer>`,
		"bad location":  `<TrendLogViewer><Decoder><Location>Mars/Olympus</Location></Decoder></TrendLogViewer>`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.xml")
			require.NoError(t, os.WriteFile(path, []byte(doc), 0644))
			_, err := LoadConfig(path)
			assert.Error(t, err)
		})
	}
}

func TestDecoderOptions_AppliedToDecoding(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Decoder.Location = "America/New_York"
	opts, err := cfg.DecoderOptions()
	require.NoError(t, err)

	rec := models.LogRecord{
		Timestamp: models.DateTime{
			Date: models.BACnetDate{Year: 124, Month: 1, Day: 10, DayOfWeek: models.Unspecified},
			Time: models.BACnetTime{Hour: 12},
		},
		Datum: models.RawDatumOf(models.RealDatum(1)),
	}
	series, err := parser.NewDecoder(opts...).Decode([]models.LogRecord{rec})
	require.NoError(t, err)
	assert.True(t, series.Index()[0].Equal(time.Date(2024, 1, 10, 17, 0, 0, 0, time.UTC)))
}

func TestEnsureDirectories(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "config.xml"))
	require.NoError(t, err)
	require.NoError(t, cfg.EnsureDirectories())

	for _, dir := range []string{cfg.Storage.DataDirectory, cfg.Storage.CapturesDirectory, cfg.Storage.DatabaseDirectory} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}

	d := cfg.DuckOptions()
	assert.Equal(t, 4, d.Threads)
	assert.Equal(t, "1GB", d.MemoryLimit)
}
