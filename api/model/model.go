/*
Copyright 2024 CLMTE Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package model

import (
	"github.com/clmte/clmte/model"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

type OrderItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// RecordOrder is the order snapshot pushed by the shop.
type RecordOrder struct {
	OrderID string      `json:"order_id"`
	Paid    bool        `json:"paid"`
	Items   []OrderItem `json:"items"`
}

type UpdateSettings struct {
	APIKey          string `json:"api_key"`
	OrganisationID  string `json:"organisation_id"`
	ProductionMode  bool   `json:"production_mode"`
	OffsetProductID string `json:"offset_product_id"`
}

func (i OrderItem) Validate() error {
	return validation.ValidateStruct(&i,
		validation.Field(&i.ProductID, validation.Required),
		validation.Field(&i.Quantity, validation.Min(0)),
	)
}

func (o *RecordOrder) ValidateRecordOrder() error {
	return validation.ValidateStruct(o,
		validation.Field(&o.OrderID, validation.Required),
		validation.Field(&o.Items),
	)
}

func (o *RecordOrder) ToOrder() model.Order {
	order := model.Order{OrderID: o.OrderID, Paid: o.Paid, Items: make([]model.OrderItem, 0, len(o.Items))}
	for i, item := range o.Items {
		order.Items = append(order.Items, model.OrderItem{
			Position:  i,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}
	return order
}

func (s *UpdateSettings) ValidateUpdateSettings() error {
	return validation.ValidateStruct(s,
		validation.Field(&s.APIKey, validation.Required),
		validation.Field(&s.OrganisationID, validation.Required),
		validation.Field(&s.OffsetProductID, validation.Required),
	)
}

func (s *UpdateSettings) ToSettings() model.Settings {
	return model.Settings{
		APIKey:          s.APIKey,
		OrganisationID:  s.OrganisationID,
		ProductionMode:  s.ProductionMode,
		OffsetProductID: s.OffsetProductID,
	}
}

// Pagination is bound from the limit and offset query parameters.
type Pagination struct {
	Limit  int `form:"limit"`
	Offset int `form:"offset"`
}

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

func (p *Pagination) ValidatePagination() error {
	if p.Limit == 0 {
		p.Limit = DefaultLimit
	}
	return validation.ValidateStruct(p,
		validation.Field(&p.Limit, validation.Min(1), validation.Max(MaxLimit)),
		validation.Field(&p.Offset, validation.Min(0)),
	)
}

// SyncRequest controls a manual backlog sync.
type SyncRequest struct {
	Limit int  `form:"limit"`
	Async bool `form:"async"`
}

func (s *SyncRequest) ValidateSyncRequest() error {
	return validation.ValidateStruct(s,
		validation.Field(&s.Limit, validation.Min(0).Error("limit cannot be negative")),
	)
}
