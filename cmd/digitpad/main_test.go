package main

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Brownie44l1/digit-pad/internal/config"
	"github.com/Brownie44l1/digit-pad/internal/digit"
	"github.com/Brownie44l1/digit-pad/internal/inference"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func writeCanvas(t *testing.T, dir string) string {
	img := image.NewNRGBA(image.Rect(0, 0, 280, 280))

	for y := 50; y < 230; y++ {
		for x := 130; x < 150; x++ {
			img.SetNRGBA(x, y, color.NRGBA{A: 0xff})
		}
	}

	path := filepath.Join(dir, "one.png")
	require.NoError(t, imaging.Save(img, path))

	return path
}

func TestRun(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"predicted_class":1,"confidence":0.88,"probabilities":[0,0.88,0.02,0.02,0.02,0.02,0.01,0.01,0.01,0.01]}`)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.SetAPIURL(server.URL)

	client, err := cfg.Client(logrus.NewEntry(logrus.New()))
	require.NoError(t, err)

	dir := t.TempDir()
	path := writeCanvas(t, dir)

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), &out, client, cfg, path, dir))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 11)
	require.Contains(t, lines[0], "predicted 1 (confidence 88.00%)")
	require.Contains(t, lines[2], "0.8800")

	preview, err := os.ReadFile(filepath.Join(dir, "one_28x28.png"))
	require.NoError(t, err)

	img, err := digit.Decode(preview)
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 28, 28), img.Bounds())
}

func TestRunMissingFile(t *testing.T) {
	err := run(context.Background(), io.Discard, nil, config.Default(), filepath.Join(t.TempDir(), "missing.png"), "")
	require.Error(t, err)
}

func TestBar(t *testing.T) {
	require.Equal(t, 0, bar(0, 40))
	require.Equal(t, 20, bar(0.5, 40))
	require.Equal(t, 40, bar(1, 40))
	require.Equal(t, 40, bar(1.5, 40))
	require.Equal(t, 0, bar(-0.1, 40))
}

func TestMessage(t *testing.T) {
	require.Equal(t, "Draw a digit first.", message(digit.ErrNoDrawing))
	require.Equal(t, "Cannot reach the inference service. Check that it is running.", message(&inference.Error{Kind: inference.Unreachable}))
	require.Equal(t, "plain", message(errors.New("plain")))
}

func TestOverride(t *testing.T) {
	cfg := config.Default()

	require.NoError(t, override(cfg, "http://mnist:8000/api/v1/predict", 0, "box"))
	require.Equal(t, "http://mnist:8000", cfg.APIURL)
	require.Equal(t, digit.Box, cfg.Filter)

	require.Error(t, override(cfg, "", 0, "nearest"))
}
