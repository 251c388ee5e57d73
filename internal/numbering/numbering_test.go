package numbering

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/gescom/internal/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	at := time.Date(2026, 4, 9, 0, 0, 0, 0, time.UTC)

	got, err := Format(Orders.Template, at, 7)
	require.NoError(t, err)
	assert.Equal(t, "CMD-000007", got)

	got, err = Format("FAC-{YYYY}{MM}-{SEQ}", at, 12)
	require.NoError(t, err)
	assert.Equal(t, "FAC-202604-12", got)

	_, err = Format(Invoices.Template, at, 0)
	assert.Error(t, err)

	_, err = Format("X-{NOPE}", at, 1)
	assert.Error(t, err)
}

func TestNextStartsAtOne(t *testing.T) {
	db := testdb.Open(t)

	seq, numero, err := Movements.Next(context.Background(), db, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), seq)
	assert.Equal(t, "MVT-000001", numero)
	assert.Equal(t, "seq:stock_movements", Movements.LockKey())
}
