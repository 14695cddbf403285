// Package domain models building-level water-consumption telemetry for the
// Moscow communal-services (ZhKKh) monitoring stack.
//
// # Entities
//
// An MKD (multi-apartment building) is the analytics unit. Each building is
// fed through an ITP (heat-exchange point) and metered by an ODPU (communal
// building meter). One telemetry row describes one (building, date) pair:
// cold-water intake measured at the ITP and hot-water output measured at the
// ODPU.
//
// # Deviation and anomaly flagging
//
// The deviation ratio is the normalized absolute gap between intake and
// output:
//
//	deviation_ratio = |cold - hot| / cold   (0 when cold is 0)
//
// A row is anomalous when the ratio exceeds 10%. Datasets may carry an
// explicit "anomaly" column; its values are coerced through a truthy-string
// set ("true", "1", "yes", "y", case-insensitive) and OR-ed with the
// threshold rule, so an explicit flag can only add anomalies, never hide
// a deviation above threshold.
//
// # Anomaly identity
//
// Anomaly IDs are deterministic: the first 12 hex characters of
// SHA-1("<mkd_id>-<YYYYMMDD>-<odpu_id>"). Reprocessing the same dataset
// reproduces the same IDs, which is what lets dispatcher feedback survive
// restarts without a separate datastore. See [AnomalyID].
//
// # Risk index
//
// Per (building, year) group:
//
//	risk = anomaly_rate*65 + max_deviation*120 + (1 - supply_ratio)*40 + 45
//
// clipped to [60, 180]. The bounds are a presentation contract with the map
// frontend: 60 renders as the calmest tier, 180 as the hottest.
//
// # Seeded randomness
//
// Recommendations and the synthetic geo fallback draw from seeded generators
// so that identical inputs reproduce identical output. The seeds are derived
// from SHA-1 digests of the input key ([RecommendationSeed], [CellSeed]);
// the draw order of every consumer is fixed and must not be reordered.
package domain
