package schema

import (
	"fmt"
	"sort"
	"sync"

	"github.com/leapstack-labs/tripguard/pkg/core"
)

// Built-in preset names.
const (
	PresetTaxi           = "taxi"
	PresetTaxiPostEDA    = "taxi_post_eda"
	PresetTaxiCategories = "taxi_categories"
	PresetTaxiPositive   = "taxi_positive"
	PresetTaxiFareNulls  = "taxi_fare_nulls"
)

var (
	presetsMu sync.RWMutex
	presets   = map[string]func() *Schema{
		PresetTaxi:           TaxiSchema,
		PresetTaxiPostEDA:    TaxiPostEDASchema,
		PresetTaxiCategories: TaxiCategoriesSchema,
		PresetTaxiPositive:   TaxiPositiveSchema,
		PresetTaxiFareNulls:  TaxiFareNullsSchema,
	}
)

// RegisterPreset adds a named schema factory. An existing name is replaced.
func RegisterPreset(name string, factory func() *Schema) {
	presetsMu.Lock()
	defer presetsMu.Unlock()
	presets[name] = factory
}

// Preset builds the schema registered under name.
func Preset(name string) (*Schema, error) {
	presetsMu.RLock()
	factory, ok := presets[name]
	presetsMu.RUnlock()
	if !ok {
		return nil, &UnknownPresetError{Name: name, Available: PresetNames()}
	}
	return factory(), nil
}

// PresetNames returns all registered preset names (sorted).
func PresetNames() []string {
	presetsMu.RLock()
	defer presetsMu.RUnlock()
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// UnknownPresetError is returned when an unknown preset is requested.
type UnknownPresetError struct {
	Name      string
	Available []string
}

func (e *UnknownPresetError) Error() string {
	return fmt.Sprintf("unknown schema preset %q\nAvailable presets: %v\nHint: Check schema in tripguard.yaml", e.Name, e.Available)
}

// TaxiColumns lists the columns of a yellow taxi trip record in file order.
var TaxiColumns = []string{
	"VendorID", "tpep_pickup_datetime", "tpep_dropoff_datetime",
	"passenger_count", "trip_distance", "RatecodeID",
	"store_and_fwd_flag", "PULocationID", "DOLocationID",
	"payment_type", "fare_amount", "extra", "mta_tax",
	"tip_amount", "tolls_amount", "improvement_surcharge",
	"total_amount", "congestion_surcharge", "Airport_fee",
}

func money(name, description string, nullable bool) ColumnSpec {
	return ColumnSpec{
		Name:        name,
		Type:        core.TypeFloat,
		Nullable:    nullable,
		Checks:      []Check{GE(0.0)},
		Description: description,
	}
}

func rowChecks() []Check {
	return []Check{NoDuplicateRows(), NoEmptyRows()}
}

// TaxiSchema is the full yellow taxi trip contract.
func TaxiSchema() *Schema {
	return MustNew([]ColumnSpec{
		{
			Name:        "VendorID",
			Type:        core.TypeInteger,
			Checks:      []Check{IsIn(int64(1), int64(2))},
			Description: "Provider associated with the trip.",
		},
		{
			Name:        "tpep_pickup_datetime",
			Type:        core.TypeTimestamp,
			Description: "Date and time when the meter was engaged.",
		},
		{
			Name:        "tpep_dropoff_datetime",
			Type:        core.TypeTimestamp,
			Description: "Date and time when the meter was disengaged.",
		},
		{
			Name:        "passenger_count",
			Type:        core.TypeFloat,
			Nullable:    true,
			Checks:      []Check{GE(0.0), LE(6.0)},
			Description: "Number of passengers in the vehicle.",
		},
		{
			Name:        "trip_distance",
			Type:        core.TypeFloat,
			Checks:      []Check{GE(0.0)},
			Description: "Elapsed trip distance in miles reported by the taximeter.",
		},
		{
			Name:        "RatecodeID",
			Type:        core.TypeFloat,
			Nullable:    true,
			Checks:      []Check{IsIn(1.0, 2.0, 3.0, 4.0, 5.0)},
			Description: "Rate code in effect at the time of the trip.",
		},
		{
			Name:        "store_and_fwd_flag",
			Type:        core.TypeString,
			Nullable:    true,
			Checks:      []Check{IsIn("Y", "N")},
			Description: "Whether the trip record was held in vehicle memory before sending to the vendor.",
		},
		{
			Name:        "PULocationID",
			Type:        core.TypeInteger,
			Checks:      []Check{GE(int64(1))},
			Description: "A unique identifier for the pickup location.",
		},
		{
			Name:        "DOLocationID",
			Type:        core.TypeInteger,
			Checks:      []Check{GE(int64(1))},
			Description: "A unique identifier for the drop-off location.",
		},
		{
			Name:        "payment_type",
			Type:        core.TypeInteger,
			Checks:      []Check{IsIn(int64(1), int64(2), int64(3), int64(4), int64(5), int64(6), int64(7))},
			Description: "Payment method: 1=Credit card, 2=Cash, etc.",
		},
		{
			Name: "fare_amount",
			Type: core.TypeFloat,
			Checks: []Check{
				GE(0.0),
				&NullFractionCheck{Max: 0.01, Message: "Too many null values (>1%) in fare_amount column."},
			},
			Description: "Fare amount in USD.",
		},
		money("extra", "Extra fees in USD.", false),
		money("mta_tax", "MTA tax in USD.", false),
		money("tip_amount", "Tip amount in USD.", false),
		money("tolls_amount", "Tolls amount in USD.", false),
		money("improvement_surcharge", "Improvement surcharge in USD.", false),
		money("total_amount", "Total amount charged to the passenger in USD.", false),
		money("congestion_surcharge", "Congestion surcharge in USD.", true),
		money("Airport_fee", "Airport fee in USD.", true),
	}, WithTableChecks(
		NoDuplicateRows(),
		NoEmptyRows(),
		&CompareCheck{
			Left:    "tpep_pickup_datetime",
			Op:      OpLE,
			Right:   "tpep_dropoff_datetime",
			Message: "Pickup datetime occurs after dropoff datetime.",
		},
	))
}

// TaxiPostEDASchema covers the two columns kept after exploratory analysis.
func TaxiPostEDASchema() *Schema {
	return MustNew([]ColumnSpec{
		money("trip_distance", "Elapsed trip distance in miles reported by the taximeter.", false),
		money("fare_amount", "Fare amount in USD.", false),
	}, WithTableChecks(rowChecks()...))
}

// TaxiPositiveSchema requires strictly positive distances and fares.
func TaxiPositiveSchema() *Schema {
	return MustNew([]ColumnSpec{
		{
			Name:   "trip_distance",
			Type:   core.TypeFloat,
			Checks: []Check{&RangeCheck{Op: OpGT, Bound: 0.0, Message: "Invalid value for 'trip_distance': must be greater than 0."}},
		},
		{
			Name:   "fare_amount",
			Type:   core.TypeFloat,
			Checks: []Check{&RangeCheck{Op: OpGT, Bound: 0.0, Message: "Invalid value for 'fare_amount': must be greater than 0."}},
		},
	}, WithTableChecks(rowChecks()...))
}

// TaxiFareNullsSchema bounds the share of missing fares.
func TaxiFareNullsSchema() *Schema {
	return MustNew([]ColumnSpec{
		{
			Name:     "fare_amount",
			Type:     core.TypeFloat,
			Nullable: true,
			Checks:   []Check{&NullFractionCheck{Max: 0.01, Message: "Too many null values in 'fare_amount' column."}},
		},
	}, WithTableChecks(rowChecks()...))
}

// TaxiCategoriesSchema is the category-level contract.
func TaxiCategoriesSchema() *Schema {
	return MustNew([]ColumnSpec{
		{
			Name:   "VendorID",
			Type:   core.TypeInteger,
			Checks: []Check{&IsInCheck{Allowed: []core.Value{int64(1), int64(2)}, Message: "Invalid value for 'VendorID': must be 1 or 2."}},
		},
		{
			Name: "RatecodeID",
			Type: core.TypeFloat,
			Checks: []Check{&IsInCheck{
				Allowed: []core.Value{1.0, 2.0, 3.0, 4.0, 5.0},
				Message: "Invalid value for 'RatecodeID': must be one of [1.0, 2.0, 3.0, 4.0, 5.0].",
			}},
		},
		{
			Name:     "store_and_fwd_flag",
			Type:     core.TypeString,
			Nullable: true,
			Checks:   []Check{&IsInCheck{Allowed: []core.Value{"N", "Y"}, Message: "Invalid value for 'store_and_fwd_flag': must be 'N' or 'Y'."}},
		},
		{
			Name: "payment_type",
			Type: core.TypeInteger,
			Checks: []Check{&IsInCheck{
				Allowed: []core.Value{int64(0), int64(1), int64(2), int64(3), int64(4)},
				Message: "Invalid value for 'payment_type': must be one of [0, 1, 2, 3, 4].",
			}},
		},
	}, WithTableChecks(rowChecks()...))
}
