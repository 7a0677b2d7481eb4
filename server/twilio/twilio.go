package twilio

import (
	"fmt"

	"github.com/IMINABO1/Vault/server/logger"
	"github.com/IMINABO1/Vault/shared"
	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

var logg = logger.NewLogger("twilio")

type ClientWrapper struct {
	client *twilio.RestClient
	config shared.TwilioConfig
}

func NewClient(config shared.TwilioConfig) *ClientWrapper {
	client := twilio.NewRestClientWithParams(twilio.RestClientParams{
		Username: config.AccountSid,
		Password: config.AuthToken,
	})

	return &ClientWrapper{client: client, config: config}
}

// SendMessage sends an SMS, from the messaging service when one is
// configured and from the plain sender number otherwise.
func (cw *ClientWrapper) SendMessage(to, msg string) error {
	params := messageParams(cw.config, to, msg)

	resp, err := cw.client.ApiV2010.CreateMessage(params)
	if err != nil {
		return err
	}

	if resp.ErrorMessage != nil && *resp.ErrorMessage != "" {
		return fmt.Errorf("twilio: %v", *resp.ErrorMessage)
	}

	if resp.Sid != nil {
		logg.Infof("SMS %v queued for %v", *resp.Sid, to)
	}

	return nil
}

func messageParams(config shared.TwilioConfig, to, msg string) *openapi.CreateMessageParams {
	params := &openapi.CreateMessageParams{}
	if config.MessagingServiceSid != "" {
		params.SetMessagingServiceSid(config.MessagingServiceSid)
	} else {
		params.SetFrom(config.From)
	}
	params.SetTo(to)
	params.SetBody(msg)

	return params
}
