package matcher

import (
	"nearnio/internal/models"
)

// Matches decides whether a USD-converted listing satisfies a user's filter.
// Pure and side-effect free; the first failing condition short-circuits.
//
// Project type comparison is strict. Preferences storing the "all" sentinel
// are resolved by the caller before this predicate runs.
func Matches(listing *models.Listing, pref *models.UserPreference) bool {
	if listing.USDAmount < pref.MinBounty {
		return false
	}

	if pref.MaxBounty != nil && listing.USDAmount > *pref.MaxBounty {
		return false
	}

	if listing.Type != pref.ProjectType {
		return false
	}

	if !categoryAllowed(listing.Category, pref.Categories) {
		return false
	}

	return true
}

// ResolveProjectType collapses the "all" sentinel to the listing's own type
// so the strict predicate can run unchanged.
func ResolveProjectType(listing *models.Listing, pref *models.UserPreference) *models.UserPreference {
	if pref.ProjectType != models.ProjectTypeAll {
		return pref
	}

	resolved := *pref
	resolved.ProjectType = listing.Type
	return &resolved
}

func categoryAllowed(category string, filters []string) bool {
	if len(filters) == 0 {
		return true
	}

	for _, f := range filters {
		if f == models.CategoryAll || f == category {
			return true
		}
	}
	return false
}
