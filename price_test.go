package clmte

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/clmte/clmte/model"
	"github.com/jarcoal/httpmock"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		name      string
		amount    string
		decimals  int
		separator string
		want      *string
	}{
		{name: "two decimals", amount: "12.5", decimals: 2, separator: ".", want: strPtr("12.50")},
		{name: "comma separator", amount: "12.5", decimals: 2, separator: ",", want: strPtr("12,50")},
		{name: "rounds half up", amount: "3.455", decimals: 2, separator: ".", want: strPtr("3.46")},
		{name: "no decimals", amount: "13.456", decimals: 0, separator: ".", want: strPtr("13")},
		{name: "rounds to zero", amount: "0.004", decimals: 2, separator: ".", want: nil},
		{name: "zero", amount: "0", decimals: 2, separator: ".", want: nil},
		{name: "negative", amount: "-1", decimals: 2, separator: ".", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatPrice(decimal.RequireFromString(tt.amount), tt.decimals, tt.separator)
			assert.Equal(t, tt.want, got)
		})
	}
}

func strPtr(s string) *string { return &s }

func TestGetPrice_ReusesStoredPrice(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	c, ds := newTestClmte(t, nil)
	expectSettings(ds)
	httpmock.RegisterResponder("GET", sandboxCostURL, httpmock.NewStringResponder(200, `{"price":12.5}`))

	ds.On("GetOption", mock.Anything, model.OptionOffsetPrice).Return("", false, nil).Once()
	ds.On("GetOption", mock.Anything, model.OptionOffsetPrice).Return("12.50", true, nil)
	ds.On("SetOption", mock.Anything, model.OptionOffsetPrice, "12.50").Return(nil).Once()

	price := c.GetPrice(context.Background(), false)
	require.NotNil(t, price)
	assert.Equal(t, "12.50", *price)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())

	price = c.GetPrice(context.Background(), false)
	require.NotNil(t, price)
	assert.Equal(t, "12.50", *price)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
	ds.AssertExpectations(t)
}

func TestGetPrice_ServedFromCache(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	mr := miniredis.RunT(t)
	c, ds := newTestClmte(t, nil)
	c.WithRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	expectSettings(ds)
	httpmock.RegisterResponder("GET", sandboxCostURL, httpmock.NewStringResponder(200, `{"price":"7.1"}`))

	ds.On("GetOption", mock.Anything, model.OptionOffsetPrice).Return("", false, nil).Once()
	ds.On("SetOption", mock.Anything, model.OptionOffsetPrice, "7.10").Return(nil).Once()

	first := c.GetPrice(context.Background(), false)
	second := c.GetPrice(context.Background(), false)

	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.Equal(t, "7.10", *second)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
	ds.AssertNumberOfCalls(t, "GetOption", 1+4)
}

func TestGetPrice_ForceRefresh(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	c, ds := newTestClmte(t, nil)
	expectSettings(ds)
	httpmock.RegisterResponder("GET", sandboxCostURL, httpmock.NewStringResponder(200, `{"price":9}`))

	ds.On("SetOption", mock.Anything, model.OptionOffsetPrice, "9.00").Return(nil)

	price := c.GetPrice(context.Background(), true)
	require.NotNil(t, price)
	assert.Equal(t, "9.00", *price)
	ds.AssertNotCalled(t, "GetOption", mock.Anything, model.OptionOffsetPrice)
	ds.AssertCalled(t, "CreateLog", mock.Anything, model.LogTypeActivity, "Offset price updated to 9.00")
}

func TestGetPrice_ZeroPriceIsNull(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	c, ds := newTestClmte(t, nil)
	expectSettings(ds)
	httpmock.RegisterResponder("GET", sandboxCostURL, httpmock.NewStringResponder(200, `{"price":0}`))

	ds.On("DeleteOption", mock.Anything, model.OptionOffsetPrice).Return(nil).Once()

	assert.Nil(t, c.GetPrice(context.Background(), true))
	ds.AssertNotCalled(t, "SetOption", mock.Anything, model.OptionOffsetPrice, mock.Anything)
	ds.AssertExpectations(t)
}

func TestGetPrice_FetchFailure(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	c, ds := newTestClmte(t, nil)
	expectSettings(ds)
	httpmock.RegisterResponder("GET", sandboxCostURL, httpmock.NewStringResponder(401, `{"message":"bad key"}`))

	ds.On("GetOption", mock.Anything, model.OptionOffsetPrice).Return("", false, nil)
	ds.On("DeleteOption", mock.Anything, model.OptionOffsetPrice).Return(nil).Once()

	assert.Nil(t, c.GetPrice(context.Background(), false))
	ds.AssertCalled(t, "CreateLog", mock.Anything, model.LogTypeError, "Failed to fetch offset price: price request returned status 401")
}

func TestAlignPrecision(t *testing.T) {
	t.Run("matching precision keeps the price", func(t *testing.T) {
		httpmock.Activate()
		defer httpmock.DeactivateAndReset()

		c, ds := newTestClmte(t, nil)
		ds.On("GetOption", mock.Anything, model.OptionOffsetPrice).Return("12.50", true, nil)

		c.AlignPrecision(context.Background())
		assert.Equal(t, 0, httpmock.GetTotalCallCount())
	})

	t.Run("different precision refetches", func(t *testing.T) {
		httpmock.Activate()
		defer httpmock.DeactivateAndReset()

		c, ds := newTestClmte(t, nil)
		expectSettings(ds)
		httpmock.RegisterResponder("GET", sandboxCostURL, httpmock.NewStringResponder(200, `{"price":12.5}`))
		ds.On("GetOption", mock.Anything, model.OptionOffsetPrice).Return("12.5", true, nil)
		ds.On("SetOption", mock.Anything, model.OptionOffsetPrice, "12.50").Return(nil).Once()

		c.AlignPrecision(context.Background())
		assert.Equal(t, 1, httpmock.GetTotalCallCount())
		ds.AssertExpectations(t)
	})

	t.Run("no stored price", func(t *testing.T) {
		httpmock.Activate()
		defer httpmock.DeactivateAndReset()

		c, ds := newTestClmte(t, nil)
		ds.On("GetOption", mock.Anything, model.OptionOffsetPrice).Return("", false, nil)

		c.AlignPrecision(context.Background())
		assert.Equal(t, 0, httpmock.GetTotalCallCount())
	})
}

func TestCheckCredentials(t *testing.T) {
	t.Run("valid credentials", func(t *testing.T) {
		httpmock.Activate()
		defer httpmock.DeactivateAndReset()

		c, ds := newTestClmte(t, nil)
		expectSettings(ds)
		httpmock.RegisterResponder("GET", sandboxCostURL, httpmock.NewStringResponder(200, `{"price":4}`))
		ds.On("SetOption", mock.Anything, model.OptionOffsetPrice, "4.00").Return(nil)
		ds.On("SetOption", mock.Anything, model.OptionCorrectCredentials, "true").Return(nil).Once()

		valid, err := c.CheckCredentials(context.Background())
		assert.NoError(t, err)
		assert.True(t, valid)
		ds.AssertExpectations(t)
	})

	t.Run("missing api key", func(t *testing.T) {
		httpmock.Activate()
		defer httpmock.DeactivateAndReset()

		c, ds := newTestClmte(t, nil)
		ds.On("GetOption", mock.Anything, model.OptionAPIKey).Return("", false, nil)
		ds.On("GetOption", mock.Anything, model.OptionOrganisationID).Return("org-1", true, nil)
		ds.On("GetOption", mock.Anything, model.OptionOffsetProductID).Return("", false, nil)
		ds.On("GetOption", mock.Anything, model.OptionProductionMode).Return("", false, nil)
		ds.On("SetOption", mock.Anything, model.OptionCorrectCredentials, "false").Return(nil).Once()

		valid, err := c.CheckCredentials(context.Background())
		assert.NoError(t, err)
		assert.False(t, valid)
		assert.Equal(t, 0, httpmock.GetTotalCallCount())
		ds.AssertExpectations(t)
	})

	t.Run("rejected by the api", func(t *testing.T) {
		httpmock.Activate()
		defer httpmock.DeactivateAndReset()

		c, ds := newTestClmte(t, nil)
		expectSettings(ds)
		httpmock.RegisterResponder("GET", sandboxCostURL, httpmock.NewStringResponder(403, `{}`))
		ds.On("DeleteOption", mock.Anything, model.OptionOffsetPrice).Return(nil)
		ds.On("SetOption", mock.Anything, model.OptionCorrectCredentials, "false").Return(nil).Once()

		valid, err := c.CheckCredentials(context.Background())
		assert.NoError(t, err)
		assert.False(t, valid)
		ds.AssertExpectations(t)
	})
}

func TestSettings_OptionsOverrideConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Tundra.ApiKey = "config-key"
	cfg.Tundra.OrganisationID = "config-org"
	cfg.Tundra.ProductionMode = true
	c, ds := newTestClmte(t, cfg)

	ds.On("GetOption", mock.Anything, model.OptionAPIKey).Return("stored-key", true, nil)
	ds.On("GetOption", mock.Anything, model.OptionOrganisationID).Return("", false, nil)
	ds.On("GetOption", mock.Anything, model.OptionOffsetProductID).Return("7", true, nil)
	ds.On("GetOption", mock.Anything, model.OptionProductionMode).Return("no", true, nil)

	settings, err := c.Settings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.Settings{
		APIKey:          "stored-key",
		OrganisationID:  "config-org",
		ProductionMode:  false,
		OffsetProductID: "7",
	}, settings)
}
