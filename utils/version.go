package utils

import (
	"sort"
	"strings"

	"github.com/hashicorp/go-version"

	"xandpulse/models"
)

const (
	VersionCurrent  = "current"
	VersionOutdated = "outdated"
	VersionUnknown  = "unknown"
)

func parseVersion(raw string) (*version.Version, error) {
	// Clean version string (remove 'v' prefix if present)
	return version.NewVersion(strings.TrimPrefix(strings.TrimSpace(raw), "v"))
}

// LatestVersion returns the highest parseable version in versions, or "".
func LatestVersion(versions []string) string {
	var best *version.Version
	var bestRaw string
	for _, raw := range versions {
		v, err := parseVersion(raw)
		if err != nil {
			continue
		}
		if best == nil || v.GreaterThan(best) {
			best, bestRaw = v, raw
		}
	}
	return bestRaw
}

// CheckVersionStatus compares a node's version against the newest one seen on its network.
func CheckVersionStatus(nodeVersion, latest string) string {
	nodeVer, err := parseVersion(nodeVersion)
	if err != nil {
		return VersionUnknown
	}
	latestVer, err := parseVersion(latest)
	if err != nil {
		return VersionUnknown
	}
	if nodeVer.LessThan(latestVer) {
		return VersionOutdated
	}
	return VersionCurrent
}

// SortVersionDistribution orders a version histogram newest first. Strings that
// are not versions go last, alphabetically.
func SortVersionDistribution(dist map[string]int) []models.VersionCount {
	out := make([]models.VersionCount, 0, len(dist))
	parsed := make(map[string]*version.Version, len(dist))
	for raw, count := range dist {
		out = append(out, models.VersionCount{Version: raw, Count: count})
		if v, err := parseVersion(raw); err == nil {
			parsed[raw] = v
		}
	}

	sort.Slice(out, func(i, j int) bool {
		vi, iok := parsed[out[i].Version]
		vj, jok := parsed[out[j].Version]
		switch {
		case iok && jok:
			if vi.Equal(vj) {
				return out[i].Version < out[j].Version
			}
			return vi.GreaterThan(vj)
		case iok != jok:
			return iok
		default:
			return out[i].Version < out[j].Version
		}
	})
	return out
}
