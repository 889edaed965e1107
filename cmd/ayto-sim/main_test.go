package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCacheFilePath(t *testing.T) {
	require.Equal(t, ".cache/season1.cache", cacheFilePath("seasons/season1.yaml"))
	require.Equal(t, ".cache/season1.cache", cacheFilePath("season1.yml"))
	require.Equal(t, ".cache/a.b.cache", cacheFilePath("dir/a.b.yaml"))
}
