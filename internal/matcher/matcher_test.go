package matcher

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlestackOverglow/koe-no-search/internal/logging"
	"github.com/AlestackOverglow/koe-no-search/internal/memindex"
	"github.com/AlestackOverglow/koe-no-search/internal/model"
)

func seedIndex(t *testing.T, names ...string) *memindex.Index {
	t.Helper()
	idx := memindex.New(uint64(len(names)), logging.NewDiscard())
	for _, name := range names {
		id := idx.NextID()
		normalized := model.NormalizeName(name)
		idx.Add(&model.FileRecord{
			ID:             id,
			FullPath:       "/data/" + name,
			FileName:       name,
			Extension:      "",
			NormalizedName: normalized,
			Tokens:         model.Tokenize(normalized, ""),
			Size:           1024,
			LastModified:   time.Now(),
			LastAccessed:   time.Now(),
			Kind:           model.KindFile,
		})
	}
	return idx
}

func TestExactModePrefixScoresHigherThanSubstring(t *testing.T) {
	idx := seedIndex(t, "report-final.docx", "old-report.docx", "notes.txt")
	m := New(logging.NewDiscard())

	q := model.SearchQuery{Text: "report", Mode: model.ModeExact}
	results, err := m.Search(context.Background(), idx, q)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "report-final.docx", results[0].Record.FileName)
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score, "prefix match should rank at or above a mid-string match")
}

func TestExactModeFindsMidWordSubstringNotJustPrefixOrWholeWord(t *testing.T) {
	idx := seedIndex(t, "xreportx.docx")
	m := New(logging.NewDiscard())

	q := model.SearchQuery{Text: "report", Mode: model.ModeExact}
	results, err := m.Search(context.Background(), idx, q)
	require.NoError(t, err)
	require.Len(t, results, 1, "a substring match that is neither a prefix nor a whole-word boundary must still be found")
}

// TestExactScorerThreeTiers exercises exactScorer directly rather than
// through the full relevance blend (which mixes in path/access/recentness/
// size), since those would obscure the three name-score tiers it computes.
func TestExactScorerThreeTiers(t *testing.T) {
	m := New(logging.NewDiscard())
	score := m.exactScorer(model.SearchQuery{Text: "report"})

	prefixMatch, _, ok := score(&model.FileRecord{NormalizedName: model.NormalizeName("report-final.docx")})
	require.True(t, ok)
	assert.Equal(t, 1.0, prefixMatch, "query at offset 0 is a prefix match")

	wholeWordMatch, _, ok := score(&model.FileRecord{NormalizedName: model.NormalizeName("old-report.docx")})
	require.True(t, ok)
	assert.Equal(t, 0.9, wholeWordMatch, "query on a word boundary mid-string is a whole-word match")

	midWordMatch, _, ok := score(&model.FileRecord{NormalizedName: model.NormalizeName("xreportx.docx")})
	require.True(t, ok)
	assert.Equal(t, 0.8, midWordMatch, "query embedded inside another word is neither prefix nor whole-word")

	_, _, ok = score(&model.FileRecord{NormalizedName: model.NormalizeName("notes.txt")})
	assert.False(t, ok, "no substring match means no result")
}

func TestWildcardModeMatchesGlobPattern(t *testing.T) {
	idx := seedIndex(t, "photo2023.jpg", "photo2024.jpg", "document.pdf")
	m := New(logging.NewDiscard())

	q := model.SearchQuery{Text: "photo*.jpg", Mode: model.ModeWildcard}
	results, err := m.Search(context.Background(), idx, q)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestRegexModeRejectsInvalidPattern(t *testing.T) {
	idx := seedIndex(t, "a.txt")
	m := New(logging.NewDiscard())

	q := model.SearchQuery{Text: "[invalid(", Mode: model.ModeRegex}
	_, err := m.Search(context.Background(), idx, q)
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.ErrInvalidQuery))
}

func TestRegexModeAnchoredPatternExcludesPartialMatch(t *testing.T) {
	idx := seedIndex(t, "invoice.pdf", "final_invoice_2024.pdf")
	m := New(logging.NewDiscard())

	q := model.SearchQuery{Text: `^invoice\.pdf$`, Mode: model.ModeRegex}
	results, err := m.Search(context.Background(), idx, q)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "invoice.pdf", results[0].Record.FileName)
}

func TestFuzzyModeFindsCloseNameAboveThreshold(t *testing.T) {
	idx := seedIndex(t, "resume.pdf", "budget.xlsx")
	m := New(logging.NewDiscard())

	q := model.SearchQuery{Text: "resume", Mode: model.ModeFuzzy, FuzzyThreshold: 0.6}
	results, err := m.Search(context.Background(), idx, q)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "resume.pdf", results[0].Record.FileName)
}

func TestSearchResultsAreCachedUntilIndexMutates(t *testing.T) {
	idx := seedIndex(t, "alpha.txt")
	m := New(logging.NewDiscard())
	q := model.SearchQuery{Text: "alpha", Mode: model.ModeExact}

	first, err := m.Search(context.Background(), idx, q)
	require.NoError(t, err)
	require.Len(t, first, 1)

	epochBefore := idx.Epoch()
	second, err := m.Search(context.Background(), idx, q)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	idx.Add(&model.FileRecord{
		ID:             idx.NextID(),
		FullPath:       "/data/alpha2.txt",
		FileName:       "alpha2.txt",
		NormalizedName: model.NormalizeName("alpha2.txt"),
		Tokens:         model.Tokenize(model.NormalizeName("alpha2.txt"), "txt"),
		Kind:           model.KindFile,
	})
	assert.NotEqual(t, epochBefore, idx.Epoch())

	third, err := m.Search(context.Background(), idx, q)
	require.NoError(t, err)
	assert.Len(t, third, 2, "cache must be invalidated by the epoch bump from the new insert")
}

func TestParallelAndSerialSearchProduceIdenticalRankedOutput(t *testing.T) {
	names := make([]string, 0, 5000)
	for i := 0; i < 5000; i++ {
		names = append(names, "file"+string(rune('a'+i%26))+".dat")
	}
	idx := seedIndex(t, names...)

	q := model.SearchQuery{Text: "file", Mode: model.ModeExact, MaxResults: 50}

	serial := New(logging.NewDiscard())
	serialResults, err := serial.Search(context.Background(), idx, q)
	require.NoError(t, err)

	parallel := New(logging.NewDiscard(), WithParallel(4))
	parallelResults, err := parallel.Search(context.Background(), idx, q)
	require.NoError(t, err)

	require.Equal(t, len(serialResults), len(parallelResults))
	for i := range serialResults {
		assert.Equal(t, serialResults[i].Record.ID, parallelResults[i].Record.ID)
	}
}
