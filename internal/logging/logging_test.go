package logging

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetLevel(t *testing.T) {
	t.Cleanup(func() { _ = SetLevel("info") })

	require.NoError(t, SetLevel("debug"))
	assert.Equal(t, logrus.DebugLevel, New().GetLevel())

	assert.Error(t, SetLevel("loud"))
	assert.Equal(t, logrus.DebugLevel, New().GetLevel())
}
