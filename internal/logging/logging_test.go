package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithOutput_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithOutput("debug", "json", &buf)

	logger.WithField("disease_id", "influenza").Debug("Inference completed")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "influenza", entry["disease_id"])
	assert.Equal(t, "debug", entry["level"])
}

func TestNewWithOutput_Text(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithOutput("info", "text", &buf)

	logger.Info("Knowledge base loaded")

	assert.Contains(t, buf.String(), "Knowledge base loaded")
	assert.IsType(t, &logrus.TextFormatter{}, logger.Formatter)
}

func TestNew_UnknownLevelFallsBackToInfo(t *testing.T) {
	assert.Equal(t, logrus.InfoLevel, New("verbose", "json").GetLevel())
	assert.Equal(t, logrus.WarnLevel, New("warn", "json").GetLevel())
}
