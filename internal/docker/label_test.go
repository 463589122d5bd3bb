package docker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestBuildLabels verifies the label map attached to generator containers.
func TestBuildLabels(t *testing.T) {
	// A non-UTC time must be normalised.
	jst := time.FixedZone("JST", 9*60*60)
	labels := BuildLabels("/ws/out/app.jar", time.Date(2026, 3, 1, 19, 0, 0, 0, jst))

	assert.Equal(t, map[string]string{
		LabelManagedBy:   "export-jar",
		LabelDestination: "/ws/out/app.jar",
		LabelCreatedAt:   "2026-03-01T10:00:00Z",
	}, labels)
}

// TestParseLabels verifies that ParseLabels is the inverse of BuildLabels.
func TestParseLabels(t *testing.T) {
	created := time.Date(2026, 2, 28, 10, 0, 0, 0, time.UTC)

	run, err := ParseLabels(BuildLabels("/tmp/a.jar", created))
	require.NoError(t, err)
	assert.Equal(t, "/tmp/a.jar", run.Destination)
	assert.Equal(t, created, run.CreatedAt)
}

func TestParseLabels_MissingRequired(t *testing.T) {
	testCases := []struct {
		name       string
		missingKey string
	}{
		{"missing managed-by", LabelManagedBy},
		{"missing destination", LabelDestination},
		{"missing created-at", LabelCreatedAt},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			labels := BuildLabels("/tmp/a.jar", time.Now())
			delete(labels, tc.missingKey)

			_, err := ParseLabels(labels)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.missingKey,
				"error message should mention the missing label key")
		})
	}
}

func TestParseLabels_InvalidValues(t *testing.T) {
	t.Run("foreign managed-by", func(t *testing.T) {
		labels := BuildLabels("/tmp/a.jar", time.Now())
		labels[LabelManagedBy] = "some-other-tool"

		_, err := ParseLabels(labels)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unexpected value")
	})

	t.Run("bad timestamp", func(t *testing.T) {
		labels := BuildLabels("/tmp/a.jar", time.Now())
		labels[LabelCreatedAt] = "not-a-timestamp"

		_, err := ParseLabels(labels)
		require.Error(t, err)
		assert.Contains(t, err.Error(), LabelCreatedAt)
	})
}

func TestFilterLabels(t *testing.T) {
	assert.Equal(t, map[string]string{"export-jar.managed-by": "export-jar"}, FilterLabels())
}
