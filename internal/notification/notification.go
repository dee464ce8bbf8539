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

package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/clmte/clmte/config"
	"github.com/clmte/clmte/internal/request"
	"github.com/sirupsen/logrus"
)

const slackTimeout = 5 * time.Second

// WebhookSender forwards an event to the outbound webhook queue. The root
// package registers it at startup so this package stays import-cycle free.
type WebhookSender func(event string, payload interface{}) error

var webhookSender WebhookSender

func RegisterWebhookSender(sender WebhookSender) {
	webhookSender = sender
}

func slackPayload(err error, at time.Time) json.RawMessage {
	text, _ := json.Marshal(fmt.Sprintf("*Error:*\n%v", err))
	when, _ := json.Marshal(fmt.Sprintf("*Time:*\n%v", at.Format(time.RFC822)))
	return json.RawMessage(fmt.Sprintf(`{
		"blocks": [
			{"type": "header", "text": {"type": "plain_text", "text": "Error From CLMTE Offsets", "emoji": true}},
			{"type": "section", "fields": [{"type": "mrkdwn", "text": %s}]},
			{"type": "section", "fields": [{"type": "mrkdwn", "text": %s}]}
		]
	}`, text, when))
}

// SlackNotification posts err to the configured Slack webhook.
func SlackNotification(webhookURL string, systemError error) error {
	ctx, cancel := context.WithTimeout(context.Background(), slackTimeout)
	defer cancel()

	req, err := request.NewJSONRequest(ctx, http.MethodPost, webhookURL, slackPayload(systemError, time.Now()))
	if err != nil {
		return err
	}
	resp, err := request.Call(request.NewClient(slackTimeout), req, nil)
	if err != nil {
		return err
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("slack webhook returned %d", resp.StatusCode)
	}
	return nil
}

// NotifyError reports a system error without blocking the caller: it is
// logged, posted to Slack when configured and emitted as a system.error
// webhook when a sender is registered.
func NotifyError(systemError error) {
	go func(systemError error) {
		logrus.Error(systemError)

		conf, err := config.Fetch()
		if err != nil {
			logrus.Warn(err)
			return
		}

		if conf.Notification.Slack.WebhookUrl != "" {
			if err := SlackNotification(conf.Notification.Slack.WebhookUrl, systemError); err != nil {
				logrus.WithError(err).Warn("failed to send slack notification")
			}
		}

		if webhookSender != nil {
			payload := map[string]string{"error": systemError.Error()}
			if err := webhookSender("system.error", payload); err != nil {
				logrus.WithError(err).Warn("failed to queue error webhook")
			}
		}
	}(systemError)
}
