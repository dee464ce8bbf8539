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

package clmte

import (
	"context"
	"strconv"

	"github.com/clmte/clmte/config"
	"github.com/clmte/clmte/model"
	"github.com/sirupsen/logrus"
)

// Settings reads the admin settings from the option store, falling back to
// the configuration file for anything that was never saved.
func (c *Clmte) Settings(ctx context.Context) (model.Settings, error) {
	cfg, err := config.Fetch()
	if err != nil {
		return model.Settings{}, err
	}
	settings := model.Settings{
		APIKey:          cfg.Tundra.ApiKey,
		OrganisationID:  cfg.Tundra.OrganisationID,
		ProductionMode:  cfg.Tundra.ProductionMode,
		OffsetProductID: cfg.Tundra.OffsetProductID,
	}

	stringOptions := map[string]*string{
		model.OptionAPIKey:          &settings.APIKey,
		model.OptionOrganisationID:  &settings.OrganisationID,
		model.OptionOffsetProductID: &settings.OffsetProductID,
	}
	for name, target := range stringOptions {
		value, ok, err := c.datasource.GetOption(ctx, name)
		if err != nil {
			return model.Settings{}, err
		}
		if ok {
			*target = value
		}
	}

	mode, ok, err := c.datasource.GetOption(ctx, model.OptionProductionMode)
	if err != nil {
		return model.Settings{}, err
	}
	if ok {
		settings.ProductionMode = mode == "yes"
	}
	return settings, nil
}

// UpdateSettings stores new settings and re-runs the credential check.
func (c *Clmte) UpdateSettings(ctx context.Context, settings model.Settings) (bool, error) {
	mode := "no"
	if settings.ProductionMode {
		mode = "yes"
	}
	values := [][2]string{
		{model.OptionAPIKey, settings.APIKey},
		{model.OptionOrganisationID, settings.OrganisationID},
		{model.OptionProductionMode, mode},
		{model.OptionOffsetProductID, settings.OffsetProductID},
	}
	for _, kv := range values {
		if err := c.datasource.SetOption(ctx, kv[0], kv[1]); err != nil {
			return false, err
		}
	}
	return c.CheckCredentials(ctx)
}

// CheckCredentials verifies that the stored API key and organisation id can
// fetch a price. The outcome is persisted and returned; an invalid setup is
// a warning, never a hard error.
func (c *Clmte) CheckCredentials(ctx context.Context) (bool, error) {
	settings, err := c.Settings(ctx)
	if err != nil {
		return false, err
	}

	valid := true
	switch {
	case settings.APIKey == "" || settings.OrganisationID == "":
		valid = false
	case c.GetPrice(ctx, true) == nil:
		valid = false
	}

	if err := c.datasource.SetOption(ctx, model.OptionCorrectCredentials, strconv.FormatBool(valid)); err != nil {
		return valid, err
	}

	if valid {
		c.activity(ctx, "Credentials verified")
	} else {
		logrus.Warn("CLMTE credentials are missing or incorrect")
		c.logError(ctx, "Credential check failed: API key or organisation id is missing or incorrect")
	}
	return valid, nil
}

// HasCorrectCredentials returns the outcome of the last credential check.
func (c *Clmte) HasCorrectCredentials(ctx context.Context) (bool, error) {
	value, ok, err := c.datasource.GetOption(ctx, model.OptionCorrectCredentials)
	if err != nil || !ok {
		return false, err
	}
	valid, _ := strconv.ParseBool(value)
	return valid, nil
}

// activity and logError write to the durable activity log. A failed write
// is only reported; it never fails the surrounding operation.
func (c *Clmte) activity(ctx context.Context, description string) {
	c.writeLog(ctx, model.LogTypeActivity, description)
}

func (c *Clmte) logError(ctx context.Context, description string) {
	c.writeLog(ctx, model.LogTypeError, description)
}

func (c *Clmte) writeLog(ctx context.Context, logType model.LogType, description string) {
	if _, err := c.datasource.CreateLog(ctx, logType, description); err != nil {
		logrus.WithError(err).WithField("description", description).Warn("failed to write activity log")
	}
}

// GetLogs lists activity and error log entries, newest first.
func (c *Clmte) GetLogs(ctx context.Context, limit, offset int) ([]model.ActivityLog, error) {
	return c.datasource.GetLogs(ctx, limit, offset)
}
