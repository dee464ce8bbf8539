package clmte

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/clmte/clmte/config"
	"github.com/clmte/clmte/database/mocks"
	"github.com/clmte/clmte/model"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	sandboxCompensationURL = "https://api-sandbox.tundra.clmte.com/compensation"
	sandboxCostURL         = "https://api-sandbox.tundra.clmte.com/organisation/org-1/cost"
	offsetProductID        = "7"
)

func testConfig() *config.Configuration {
	decimals := 2
	return &config.Configuration{
		DataSource: config.DataSourceConfig{Dns: "postgres://localhost/clmte"},
		Shop:       config.ShopConfig{PriceDecimals: &decimals, DecimalSeparator: "."},
	}
}

func newTestClmte(t *testing.T, cfg *config.Configuration) (*Clmte, *mocks.MockDataSource) {
	t.Helper()
	if cfg == nil {
		cfg = testConfig()
	}
	config.MockConfig(cfg)

	ds := new(mocks.MockDataSource)
	c, err := NewClmte(ds)
	require.NoError(t, err)

	ds.On("CreateLog", mock.Anything, mock.Anything, mock.Anything).Return(&model.ActivityLog{}, nil).Maybe()
	return c, ds
}

func expectSettings(ds *mocks.MockDataSource) {
	ds.On("GetOption", mock.Anything, model.OptionAPIKey).Return("test-key", true, nil).Maybe()
	ds.On("GetOption", mock.Anything, model.OptionOrganisationID).Return("org-1", true, nil).Maybe()
	ds.On("GetOption", mock.Anything, model.OptionOffsetProductID).Return(offsetProductID, true, nil).Maybe()
	ds.On("GetOption", mock.Anything, model.OptionProductionMode).Return("no", true, nil).Maybe()
}

// purchaseResponder answers compensation requests through respond, keyed on
// the requested amount.
func purchaseResponder(t *testing.T, respond func(amount int) (int, string)) httpmock.Responder {
	return func(req *http.Request) (*http.Response, error) {
		if req.Header.Get("Authorization") != "APIKey test-key" {
			return httpmock.NewStringResponse(401, `{"message":"unauthorized"}`), nil
		}
		var body struct {
			Amount int `json:"amount"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			t.Errorf("invalid purchase body: %v", err)
		}
		status, payload := respond(body.Amount)
		return httpmock.NewStringResponse(status, payload), nil
	}
}

func alwaysSucceed(amount int) (int, string) {
	return 200, fmt.Sprintf(`{"id":"off-%d","carbonDioxide":%d}`, amount, amount*3)
}

func pendingRecord(n, amount int) model.PurchaseRecord {
	return model.PurchaseRecord{
		ID:         int64(n),
		PurchaseID: fmt.Sprintf("pur_%d", n),
		Amount:     amount,
		Status:     model.StatusPending,
	}
}
