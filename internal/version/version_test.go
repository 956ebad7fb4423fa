package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStringWithoutBuildMetadata(t *testing.T) {
	assert.Equal(t, Version, String())
}

func TestStringWithBuildMetadata(t *testing.T) {
	oldVersion, oldCommit, oldDate := Version, Commit, Date
	t.Cleanup(func() {
		Version, Commit, Date = oldVersion, oldCommit, oldDate
	})

	Version, Commit, Date = "v1.2.0", "abc123", "2026-10-19"
	assert.Equal(t, "v1.2.0 (commit abc123, built 2026-10-19)", String())
}
