package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portfolio-service/portfolio_service/internal/domain/entities"
	"github.com/portfolio-service/portfolio_service/pkg/errors"
)

func TestValidateLegs_BalancedBuy(t *testing.T) {
	legs := []entities.TransactionLeg{
		assetLeg("AAPL", "10", "100", "1000"),
		cashLeg("-1000"),
	}
	assert.NoError(t, ValidateLegs(entities.TransactionTypeBuy, legs))
}

func TestValidateLegs_EmptyLegs(t *testing.T) {
	err := ValidateLegs(entities.TransactionTypeBuy, nil)
	require.Error(t, err)
	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeUnbalancedLegs, appErr.Code)
}

func TestValidateLegs_UnbalancedSum(t *testing.T) {
	legs := []entities.TransactionLeg{
		assetLeg("AAPL", "10", "100", "1000"),
		cashLeg("-990"),
	}
	err := ValidateLegs(entities.TransactionTypeBuy, legs)
	require.Error(t, err)
	appErr, _ := errors.As(err)
	assert.Equal(t, errors.ErrCodeUnbalancedLegs, appErr.Code)
}

func TestValidateLegs_WithinTolerance(t *testing.T) {
	legs := []entities.TransactionLeg{
		assetLeg("AAPL", "3", "33.3333", "100.00"),
		cashLeg("-99.99"),
	}
	assert.NoError(t, ValidateLegs(entities.TransactionTypeBuy, legs))
}

func TestValidateLegs_BalancedPerCurrency(t *testing.T) {
	krw := entities.TransactionLeg{LegType: entities.LegTypeCash, Currency: "KRW", Amount: dec("-135000")}
	krwIn := entities.TransactionLeg{LegType: entities.LegTypeFx, Currency: "KRW", Amount: dec("135000")}
	usd := entities.TransactionLeg{LegType: entities.LegTypeFx, Currency: "USD", Amount: dec("-100")}
	usdIn := entities.TransactionLeg{LegType: entities.LegTypeCash, Currency: "USD", Amount: dec("100")}

	assert.NoError(t, ValidateLegs(entities.TransactionTypeFxConvert,
		[]entities.TransactionLeg{krw, krwIn, usd, usdIn}))
}

func TestValidateLegs_BuyRequiresSingleAssetLeg(t *testing.T) {
	// zero asset legs
	err := ValidateLegs(entities.TransactionTypeBuy, []entities.TransactionLeg{
		cashLeg("-1000"), cashLeg("1000"),
	})
	require.Error(t, err)

	// two asset legs
	err = ValidateLegs(entities.TransactionTypeBuy, []entities.TransactionLeg{
		assetLeg("AAPL", "5", "100", "500"),
		assetLeg("MSFT", "1", "500", "500"),
		cashLeg("-1000"),
	})
	require.Error(t, err)
}

func TestValidateLegs_AssetLegRequiresInstrumentAndQuantity(t *testing.T) {
	leg := assetLeg("AAPL", "0", "100", "0")
	err := ValidateLegs(entities.TransactionTypeBuy, []entities.TransactionLeg{leg, cashLeg("0")})
	require.Error(t, err)

	noInstrument := assetLeg("", "10", "100", "1000")
	noInstrument.InstrumentID = nil
	err = ValidateLegs(entities.TransactionTypeBuy, []entities.TransactionLeg{noInstrument, cashLeg("-1000")})
	require.Error(t, err)
}

func TestValidateLegs_MissingCurrency(t *testing.T) {
	leg := cashLeg("100")
	leg.Currency = ""
	err := ValidateLegs(entities.TransactionTypeDeposit, []entities.TransactionLeg{leg})
	require.Error(t, err)
}

func TestValidateLegs_DepositDoesNotNeedAssetLeg(t *testing.T) {
	legs := []entities.TransactionLeg{
		cashLeg("5000"),
		externalCashLeg("-5000"),
	}
	assert.NoError(t, ValidateLegs(entities.TransactionTypeDeposit, legs))
}
