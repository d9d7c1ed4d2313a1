package httpcache

import "time"

// Presets for the API's endpoint classes. These are configuration
// tables only; all behavior lives in ResponseCache.
var (
	// PresetDashboard covers the aggregate dashboard counters. The
	// numbers move slowly, so two minutes of staleness is acceptable.
	PresetDashboard = Config{
		TTL: 120 * time.Second,
	}

	// PresetResidents covers per-user resident listings. Varies on
	// Authorization so users never see each other's pages.
	PresetResidents = Config{
		TTL:         60 * time.Second,
		VaryHeaders: []string{"Authorization"},
	}

	// PresetReference covers static reference data (province, city and
	// barangay lookups). Effectively immutable between deployments.
	PresetReference = Config{
		TTL: 600 * time.Second,
	}

	// PresetSearch covers resident search results. Short-lived and
	// per-user.
	PresetSearch = Config{
		TTL:         30 * time.Second,
		VaryHeaders: []string{"Authorization"},
	}
)
