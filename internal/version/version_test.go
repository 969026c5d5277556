package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfoString(t *testing.T) {
	assert.Equal(t, "1.2.0", Info{Version: "1.2.0"}.String())
	assert.Equal(t, "1.2.0 (a1b2c3d)", Info{Version: "1.2.0", Commit: "a1b2c3d"}.String())
}
