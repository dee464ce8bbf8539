package model

// Option names kept in the key/value option store.
const (
	OptionAPIKey             = "clmte_api_key"
	OptionOrganisationID     = "clmte_organisation_id"
	OptionProductionMode     = "clmte_production_mode"
	OptionOffsetProductID    = "clmte_compensation_product_id"
	OptionOffsetPrice        = "clmte_offset_price"
	OptionCorrectCredentials = "clmte_has_correct_credentials"
	OptionLastPurchase       = "clmte-purchase"
)

// Settings are the admin-editable options.
type Settings struct {
	APIKey          string `json:"api_key"`
	OrganisationID  string `json:"organisation_id"`
	ProductionMode  bool   `json:"production_mode"`
	OffsetProductID string `json:"offset_product_id"`
}
