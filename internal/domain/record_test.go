package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordPreservesColumnOrder(t *testing.T) {
	var r Record
	r.Set("numero_contrato", "C-001")
	r.Set("entidad", "Alcaldia")
	r.Set("valor", 1500000.0)
	r.Set("fecha_firma", "2025-01-10 00:00:00")

	assert.Equal(t, []string{"numero_contrato", "entidad", "valor", "fecha_firma"}, r.Columns())

	b, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Equal(t,
		`{"numero_contrato":"C-001","entidad":"Alcaldia","valor":1500000,"fecha_firma":"2025-01-10 00:00:00"}`,
		string(b))
}

func TestRecordJSONRoundTrip(t *testing.T) {
	var r Record
	r.Set("b_col", "x")
	r.Set("a_col", 42.0)
	r.Set("c_col", nil)

	b, err := json.Marshal(r)
	require.NoError(t, err)

	var back Record
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, r.Columns(), back.Columns())

	v, ok := back.Get("a_col")
	require.True(t, ok)
	assert.Equal(t, 42.0, v)
	v, ok = back.Get("c_col")
	require.True(t, ok)
	assert.Nil(t, v)
}

func TestRecordSetOverwriteKeepsPosition(t *testing.T) {
	var r Record
	r.Set("a", 1)
	r.Set("b", 2)
	r.Set("a", 3)

	assert.Equal(t, []string{"a", "b"}, r.Columns())
	v, _ := r.Get("a")
	assert.Equal(t, 3, v)
	assert.Equal(t, 2, r.Len())
}
