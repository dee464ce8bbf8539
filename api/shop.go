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
package api

import (
	"net/http"

	model2 "github.com/clmte/clmte/api/model"
	"github.com/gin-gonic/gin"
)

func (a Api) GetPrice(c *gin.Context) {
	price := a.clmte.GetOffsetPrice(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"price": price})
}

func (a Api) RefreshPrice(c *gin.Context) {
	price := a.clmte.GetPrice(c.Request.Context(), true)
	c.JSON(http.StatusOK, gin.H{"price": price})
}

func (a Api) GetReceipt(c *gin.Context) {
	receipt, ok, err := a.clmte.GetReceipt(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no offset purchase recorded"})
		return
	}

	c.JSON(http.StatusOK, receipt)
}

func (a Api) GetLogs(c *gin.Context) {
	var page model2.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}
	if err := page.ValidatePagination(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	resp, err := a.clmte.GetLogs(c.Request.Context(), page.Limit, page.Offset)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (a Api) UpdateSettings(c *gin.Context) {
	var settings model2.UpdateSettings
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}
	if err := settings.ValidateUpdateSettings(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	valid, err := a.clmte.UpdateSettings(c.Request.Context(), settings.ToSettings())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"correct_credentials": valid})
}

func (a Api) CheckCredentials(c *gin.Context) {
	valid, err := a.clmte.CheckCredentials(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"correct_credentials": valid})
}
