package build

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetBuildInfo(t *testing.T) {
	info := GetBuildInfo()
	assert.NotEmpty(t, info.Version)
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.Contains(t, info.String(), info.Version)
	assert.NotContains(t, info.String(), "()")
}

func TestInfo_StringWithCommit(t *testing.T) {
	info := Info{Version: "v1.0.0", Commit: "abc123", GoVersion: "go1.26", Platform: "linux/amd64"}
	assert.Equal(t, "firelive v1.0.0 (abc123) go1.26 linux/amd64", info.String())
}
