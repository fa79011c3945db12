package testdata

import (
	"embed"
	"testing"

	"github.com/stretchr/testify/require"
)

//go:embed *.json
var data embed.FS

func load(t *testing.T, path string) []byte {
	t.Helper()
	b, err := data.ReadFile(path)
	require.NoError(t, err)
	return b
}

// Station22 is JERUSALEM GIVAT RAM with 16 monitors
func Station22(t *testing.T) []byte {
	return load(t, "station_22.json")
}

func Stations(t *testing.T) []byte {
	return load(t, "stations.json")
}

func Region13(t *testing.T) []byte {
	return load(t, "region_13.json")
}

func Regions(t *testing.T) []byte {
	return load(t, "regions.json")
}

// Latest22 holds one reading with valid, null, empty and invalid channels
func Latest22(t *testing.T) []byte {
	return load(t, "latest_22.json")
}

// Range22 holds three readings delivered out of order
func Range22(t *testing.T) []byte {
	return load(t, "range_22.json")
}
