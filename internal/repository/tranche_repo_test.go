package repository

import (
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fundportal/internal/model"
)

// A pending tranche normally has NULL notes, and pgx refuses to scan NULL
// into a plain string, so the tranche queries must coalesce the column.
func TestTrancheNotesScanTargetRejectsNull(t *testing.T) {
	m := pgtype.NewMap()
	var tr model.Tranche

	err := m.Scan(pgtype.TextOID, pgx.TextFormatCode, nil, &tr.Notes)
	require.Error(t, err)

	require.NoError(t, m.Scan(pgtype.TextOID, pgx.TextFormatCode, []byte(""), &tr.Notes))
	assert.Equal(t, "", tr.Notes)
}

func TestTrancheQueriesCoalesceNotes(t *testing.T) {
	assert.Contains(t, trancheColumns, "COALESCE(notes, '')")
}
