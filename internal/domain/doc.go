// Package domain models county-level Air Quality Index (AQI) statistics and
// the risk classification built on top of them.
//
// # Data Source
//
// Observations originate from the EPA "Annual AQI by County" CSV files
// (annual_aqi_by_county_YYYY.csv), one row per county per year. A five-year
// window (e.g. 2021–2025) is loaded and folded into one summary per county.
//
// # EPA Column Conventions
//
// Identity:
//
//	"State", "County"  →  full names, e.g. "California", "Mono".
//	The District of Columbia appears as both "District of Columbia" and
//	"District Of Columbia" depending on the year.
//
// Metrics:
//
//	"Median AQI"  daily median AQI over the year (chronic exposure proxy)
//	"Max AQI"     worst single day of the year (acute exposure proxy)
//
// Anomaly days (optional, default 0):
//
//	"Unhealthy for Sensitive Groups Days", "Unhealthy Days",
//	"Very Unhealthy Days", "Hazardous Days"
//
// Rows with an empty state/county or a non-numeric median/max are dropped
// during aggregation. They are not errors.
//
// # Risk Classification
//
// Thresholds are the p-th percentile (default 0.90) of the five-year averages
// over the counties currently in scope:
//
//	chronic = MedianAQIAvg >= chronic threshold
//	acute   = MaxAQIAvg    >= acute threshold
//
//	  chronic && acute  → Double Jeopardy
//	  chronic           → High Chronic
//	  acute             → High Acute
//	  otherwise         → Low Risk
//
// A NaN threshold (empty scope) never compares true, so every county is
// Low Risk.
//
// # Double Jeopardy Score
//
//	score = (MedianAQIAvg - chronic threshold) + (MaxAQIAvg - acute threshold)
//
// Ranked descending; ties keep input order. See [TopDoubleJeopardy].
package domain
