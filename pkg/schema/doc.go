// Package schema declares column and table contracts for tabular batches
// and evaluates them lazily into a core.Report.
//
// A Schema maps column names to ColumnSpecs and carries an ordered list of
// table-level checks. Checks come from a closed set of kinds (range,
// set membership, null fraction, duplicate rows, empty rows and a
// cross-column comparator), all evaluated through the Check interface.
//
// Evaluation never stops at the first violation. Every column is coerced
// and checked independently, table checks run against the coerced batch,
// and the collected failures are merged in a deterministic order.
package schema
