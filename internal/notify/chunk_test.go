package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkSections_FitsInOnePage(t *testing.T) {
	secs := []section{{heading: "A", body: "x"}, {heading: "B", body: "y"}}
	pages := chunkSections(secs, 4096)
	require.Len(t, pages, 1)
	assert.Equal(t, "A\nx\n\nB\ny", pages[0])
}

func TestChunkSections_SplitsOnSectionBoundary(t *testing.T) {
	secs := []section{
		{heading: "A", body: "aaaaaaaaaa"},
		{heading: "B", body: "bbbbbbbbbb"},
	}
	pages := chunkSections(secs, 12)
	require.Len(t, pages, 2)
	assert.Equal(t, "A\naaaaaaaaaa", pages[0])
	assert.Equal(t, "B\nbbbbbbbbbb", pages[1])
}

func TestChunkSections_HardSplitsOversizedSection(t *testing.T) {
	secs := []section{{heading: "A", body: "0123456789abcdefghij"}}
	pages := chunkSections(secs, 10)
	require.True(t, len(pages) >= 2)
	joined := ""
	for _, p := range pages {
		joined += p
	}
	assert.Equal(t, "A\n0123456789abcdefghij", joined)
}

func TestChunkSections_DeterministicAcrossCalls(t *testing.T) {
	secs := []section{{heading: "A", body: "aaaaaaaaaaaaaaaaaaaa"}, {heading: "B", body: "bbbb"}}
	p1 := chunkSections(secs, 8)
	p2 := chunkSections(secs, 8)
	assert.Equal(t, p1, p2)
}

func TestPaginate_AddsMarkersOnlyWhenMultiPage(t *testing.T) {
	single := paginate([]string{"only"})
	assert.Equal(t, []string{"only"}, single)

	multi := paginate([]string{"first", "second"})
	require.Len(t, multi, 2)
	assert.Equal(t, "(1/2)\nfirst", multi[0])
	assert.Equal(t, "(2/2)\nsecond", multi[1])
}

func TestChunkSections_ZeroMaxBytesMeansUnboundedSinglePage(t *testing.T) {
	secs := []section{{heading: "A", body: "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"}}
	pages := chunkSections(secs, 0)
	assert.Len(t, pages, 1)
}
