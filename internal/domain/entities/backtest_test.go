package entities

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTradeLogEntry_DepositSerialization(t *testing.T) {
	entry := TradeLogEntry{
		Date:   "2024-01-02",
		Action: TradeActionDeposit,
		Amount: decimal.RequireFromString("1000"),
	}

	data, err := json.Marshal(entry)
	require.NoError(t, err)

	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &fields))

	// instrumentId is omitted for deposits; the numeric fields always
	// serialize, zero-valued or not
	assert.NotContains(t, fields, "instrumentId")
	for _, key := range []string{"quantity", "price", "fee", "amount"} {
		assert.Contains(t, fields, key)
	}
	assert.Equal(t, `"1000"`, string(fields["amount"]))
	assert.Equal(t, `"0"`, string(fields["quantity"]))
}
