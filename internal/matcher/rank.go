package matcher

import (
	"math"
	"strings"
	"time"

	"github.com/AlestackOverglow/koe-no-search/internal/model"
)

// RankWeights are the spec §4.7 default relevance weights; they are
// expected to normalize to 1.
var DefaultRankWeights = RankWeights{Name: 0.4, Path: 0.2, Access: 0.2, Recentness: 0.1, Size: 0.1}

// RankWeights controls the blend of component scores that make up a
// result's final relevance.
type RankWeights struct {
	Name       float64
	Path       float64
	Access     float64
	Recentness float64
	Size       float64
}

const recentnessHalfLifeSeconds = 30 * 86400

// relevance combines nameScore (the mode-specific matcher score) with the
// path/access/recentness/size components into the final weighted sum, per
// spec §4.7.
func relevance(w RankWeights, rec *model.FileRecord, query string, nameScore float64, maxAccessCount uint64, now time.Time) float64 {
	return w.Name*nameScore +
		w.Path*pathScore(query, rec.FullPath) +
		w.Access*accessScore(rec.AccessCount, maxAccessCount) +
		w.Recentness*recentnessScore(rec.LastModified, now) +
		w.Size*sizeScore(rec.Size)
}

// pathScore counts case-insensitive occurrences of query as a substring of
// path, normalized by path length and capped at 1.
func pathScore(query, path string) float64 {
	if query == "" {
		return 0
	}
	count := strings.Count(strings.ToLower(path), strings.ToLower(query))
	if count == 0 {
		return 0
	}
	score := float64(count) / float64(len(path))
	if score > 1 {
		score = 1
	}
	return score
}

// accessScore is a log-scaled ratio against the hottest record currently
// indexed, so a single outlier doesn't flatten everything else to near 0.
func accessScore(accessCount, maxAccessCount uint64) float64 {
	if maxAccessCount == 0 {
		return 0
	}
	return math.Log(1+float64(accessCount)) / math.Log(1+float64(maxAccessCount))
}

// recentnessScore decays linearly to 0 over a 30-day half-life window,
// clamped at 0 for anything older.
func recentnessScore(modified time.Time, now time.Time) float64 {
	age := now.Sub(modified).Seconds()
	if age <= 0 {
		return 1
	}
	score := 1 - age/recentnessHalfLifeSeconds
	if score < 0 {
		return 0
	}
	return score
}

// sizeScore boosts typical-size files (tens of KB to tens of MB) and
// flattens toward 0 for empty files and multi-gigabyte ones.
func sizeScore(size int64) float64 {
	if size <= 0 {
		return 0
	}
	const (
		sweetSpot = 1 << 20 // 1 MiB: the peak of the curve
		ceiling   = 1 << 30 // 1 GiB: scores trail toward 0 beyond this
	)
	logSize := math.Log2(float64(size))
	logSweet := math.Log2(float64(sweetSpot))
	logCeil := math.Log2(float64(ceiling))

	if logSize <= logSweet {
		return logSize / logSweet
	}
	if logSize >= logCeil {
		return 0
	}
	return 1 - (logSize-logSweet)/(logCeil-logSweet)
}
