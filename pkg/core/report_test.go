package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReport_SortsDeterministically(t *testing.T) {
	cases := []FailureCase{
		RowFailure(3, "fare_amount", "greater_than_or_equal_to(0)", ScopeElement, -1.0),
		TableFailure("", "Duplicate rows found.", ScopeTable, nil),
		RowFailure(1, "trip_distance", "not_nullable", ScopeElement, nil),
		RowFailure(1, "fare_amount", "not_nullable", ScopeElement, nil),
		TableFailure("fare_amount", "null_fraction", ScopeColumn, 0.5),
	}

	r := NewReport(cases)
	got := r.Failures()

	require.Len(t, got, 5)
	assert.Equal(t, "Duplicate rows found.", got[0].Check)
	assert.Equal(t, "fare_amount", got[1].Column)
	assert.False(t, got[1].HasRow())
	assert.Equal(t, 1, got[2].Row())
	assert.Equal(t, "fare_amount", got[2].Column)
	assert.Equal(t, "trip_distance", got[3].Column)
	assert.Equal(t, 3, got[4].Row())

	// The input slice is not reordered.
	assert.Equal(t, 3, cases[0].Row())
}

func TestReport_RowIndicesAndTableFailures(t *testing.T) {
	r := NewReport([]FailureCase{
		RowFailure(5, "a", "x", ScopeElement, nil),
		RowFailure(2, "a", "x", ScopeElement, nil),
		RowFailure(5, "b", "y", ScopeElement, nil),
		TableFailure("", "Empty rows found.", ScopeTable, nil),
	})

	assert.Equal(t, []int{2, 5}, r.RowIndices())
	require.Len(t, r.TableFailures(), 1)
	assert.Equal(t, "Empty rows found.", r.TableFailures()[0].Check)
	assert.Equal(t, map[string]int{"x": 2, "y": 1, "Empty rows found.": 1}, r.CountByCheck())
}

func TestReport_NilSafe(t *testing.T) {
	var r *Report
	assert.True(t, r.Empty())
	assert.Equal(t, 0, r.Len())
	assert.Nil(t, r.RowIndices())
	assert.Nil(t, r.Failures())
}

func TestReport_MarshalJSON(t *testing.T) {
	r := NewReport([]FailureCase{
		RowFailure(1, "trip_distance", "greater_than_or_equal_to(0)", ScopeElement, -1.0),
		TableFailure("", "Duplicate rows found.", ScopeTable, nil),
	})

	data, err := json.Marshal(r)
	require.NoError(t, err)

	var decoded struct {
		Failures []struct {
			RowIndex *int   `json:"row_index"`
			Column   string `json:"column"`
			Check    string `json:"check"`
			Scope    string `json:"scope"`
		} `json:"failures"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded.Failures, 2)
	assert.Nil(t, decoded.Failures[0].RowIndex)
	assert.Equal(t, "table", decoded.Failures[0].Scope)
	require.NotNil(t, decoded.Failures[1].RowIndex)
	assert.Equal(t, 1, *decoded.Failures[1].RowIndex)
	assert.Equal(t, "element", decoded.Failures[1].Scope)

	empty, err := json.Marshal(NewReport(nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"failures":[]}`, string(empty))
}
