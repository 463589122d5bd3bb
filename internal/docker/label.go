package docker

import (
	"fmt"
	"strings"
	"time"
)

// Label keys attached to every generator container. They are the only
// record of which containers belong to this tool; `export-jar clean` finds
// leftovers through them.
//
// All keys share the "export-jar." prefix to avoid collisions with labels
// set by other tools.
const (
	// LabelPrefix is the common prefix for all export-jar labels.
	LabelPrefix = "export-jar."

	// LabelManagedBy identifies containers created by export-jar.
	// Key: "export-jar.managed-by", Value: always "export-jar".
	LabelManagedBy = LabelPrefix + "managed-by"

	// LabelDestination stores the archive path the container was writing.
	LabelDestination = LabelPrefix + "destination"

	// LabelCreatedAt stores the RFC3339 creation timestamp.
	LabelCreatedAt = LabelPrefix + "created-at"
)

// ManagedByValue is the constant value for the LabelManagedBy label.
const ManagedByValue = "export-jar"

// RunLabels is the metadata recorded on a generator container.
type RunLabels struct {
	Destination string
	CreatedAt   time.Time
}

// BuildLabels constructs the label map for a generator container.
// Timestamps are stored in UTC.
func BuildLabels(destination string, createdAt time.Time) map[string]string {
	return map[string]string{
		LabelManagedBy:   ManagedByValue,
		LabelDestination: destination,
		LabelCreatedAt:   createdAt.UTC().Format(time.RFC3339),
	}
}

// ParseLabels is the inverse of BuildLabels. Every key BuildLabels sets is
// required; all missing keys are reported together.
func ParseLabels(labels map[string]string) (*RunLabels, error) {
	requiredKeys := []string{
		LabelManagedBy,
		LabelDestination,
		LabelCreatedAt,
	}

	var missing []string
	for _, key := range requiredKeys {
		if _, ok := labels[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required Docker labels: %s", strings.Join(missing, ", "))
	}

	if labels[LabelManagedBy] != ManagedByValue {
		return nil, fmt.Errorf(
			"label %s has unexpected value %q (expected %q)",
			LabelManagedBy, labels[LabelManagedBy], ManagedByValue,
		)
	}

	createdAt, err := time.Parse(time.RFC3339, labels[LabelCreatedAt])
	if err != nil {
		return nil, fmt.Errorf("invalid label %s: %w", LabelCreatedAt, err)
	}

	return &RunLabels{
		Destination: labels[LabelDestination],
		CreatedAt:   createdAt,
	}, nil
}

// FilterLabels returns the label filter that selects containers managed
// by export-jar.
func FilterLabels() map[string]string {
	return map[string]string{
		LabelManagedBy: ManagedByValue,
	}
}
