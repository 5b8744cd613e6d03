// Package domain models substation grid-capacity records and the rules that
// turn operator reports into one canonical table.
//
// # Source Data
//
// Distribution operators publish demand access capacity per substation
// connection point as PDF or spreadsheet reports. Each operator names its
// columns differently, formats numbers with a decimal comma and places
// footnote markers after headers:
//
//	"Capacidad firme disponible (MW) [2]"  →  cap_available
//	"Coordenadas X (m) (ETRS89)"           →  x
//	"509123,45"                            →  509123.45
//
// Header variants are resolved by a static table (see [Reconciler]); one
// operator's wording is one extra entry in its [Schema].
//
// # Coordinates
//
// Report coordinates are ETRS89 / UTM zone 30N (EPSG:25830) metres. They are
// projected to WGS84 longitude/latitude through a [CoordinateTransformer]
// and rounded to 6 decimals. Rows whose coordinates do not coerce or do not
// project are dropped and counted by [DropReason].
//
// # Derived Fields
//
//	cap_total         sum of the schema's TotalComponents, 2 decimals
//	availability_pct  100 * cap_available / cap_total, 0 when cap_total is 0, 1 decimal
//	color_bucket      ≤20 critical | ≤40 low | ≤60 moderate | ≤80 good | >80 excellent
//	radius            log1p scale of cap_total over the record set's range, 5 to 25
//
// Schemas differ in which components make up cap_total: demand-v1 excludes
// committed capacity, demand-v2 includes it. The percentage is not clamped;
// values above 100 signal a data-quality issue in the report.
//
// Radius depends on the whole record set, so [Merge] recomputes it after
// combining sources.
package domain
