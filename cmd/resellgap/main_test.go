package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guarzo/resellgap/internal/catalog"
	"github.com/guarzo/resellgap/internal/model"
)

const sampleCatalog = "Export fournisseur;;;;\n" +
	"Date: 01/10/2024;;;;\n" +
	"EAN;Designation;Marque;Prix HT;Categorie\n" +
	"3700000000011;Casque Bluetooth;Sono;24,90;Electronics\n" +
	"3700000000028;Ballon de foot;Kicker;8,50;Sport\n" +
	";Ligne sans code;;3,00;\n"

func writeCatalog(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCatalog), 0o644))
	return path
}

func rateServer(t *testing.T) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"amount":1,"base":"EUR","rates":{"GBP":0.85}}`))
	}))
	t.Cleanup(srv.Close)
	t.Setenv("RESELLGAP_EXCHANGE_BASE_URL", srv.URL)
}

func TestRun_Usage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 2, run(context.Background(), nil, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "usage: resellgap")

	stderr.Reset()
	assert.Equal(t, 2, run(context.Background(), []string{"frobnicate"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), `unknown command "frobnicate"`)
}

func TestRun_MissingFile(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"preview"}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "-file is required")
}

func TestRun_Preview(t *testing.T) {
	path := writeCatalog(t)

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"preview", "-file", path}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	var p catalog.Preview
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &p))
	assert.Equal(t, 2, p.HeaderRow)
	assert.Equal(t, []string{"Identifier", "Price"}, p.RequiredFields)
	assert.Empty(t, p.MissingFields)
	assert.Equal(t, "EAN", p.Mapping["Identifier"])
	assert.Equal(t, "Prix HT", p.Mapping["Price"])
}

func TestRun_Compare(t *testing.T) {
	rateServer(t)
	path := writeCatalog(t)
	out := filepath.Join(t.TempDir(), "results.json")

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"compare", "-file", path, "-out", out, "-quiet", "-log-level", "warn"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	data, err := os.ReadFile(out)
	require.NoError(t, err)

	var s model.BatchSummary
	require.NoError(t, json.Unmarshal(data, &s))
	assert.Equal(t, 2, s.Total)
	assert.Equal(t, 2, s.Success)
	require.Len(t, s.Results, 2)

	for _, r := range s.Results {
		assert.True(t, r.IsMockData)
		assert.NotNil(t, r.ReferencePrice)
		require.NotNil(t, r.Arbitrage)
		assert.True(t, r.Arbitrage.Available)
		assert.Len(t, r.Arbitrage.Markets, 5)
	}
}

func TestRun_CompareToStdout(t *testing.T) {
	path := writeCatalog(t)

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"compare", "-file", path, "-no-arbitrage", "-quiet", "-log-format", "json"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	var s model.BatchSummary
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &s))
	assert.Equal(t, 2, s.Success)
	assert.Nil(t, s.Results[0].Arbitrage)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	_, err := newLogger(&buf, "xml", "info")
	assert.Error(t, err)
	_, err = newLogger(&buf, "text", "loud")
	assert.Error(t, err)

	l, err := newLogger(&buf, "json", "debug")
	require.NoError(t, err)
	l.Debug("hello", "k", "v")
	assert.Contains(t, buf.String(), `"msg":"hello"`)
}
