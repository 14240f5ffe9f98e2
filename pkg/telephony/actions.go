package telephony

import (
	"context"
	"fmt"

	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
	"github.com/twilio/twilio-go/twiml"
)

// restAPI is the slice of the provider's REST surface the actions use.
// Satisfied by twilio's generated *openapi.ApiService.
type restAPI interface {
	UpdateCall(Sid string, params *openapi.UpdateCallParams) (*openapi.ApiV2010Call, error)
	CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error)
}

// Actions issues call-control operations against the telephony provider. One
// long-lived instance is constructed at process start and shared by every
// call's dispatcher.
type Actions struct {
	api restAPI
}

func NewActions(accountSID, authToken string) *Actions {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &Actions{api: client.Api}
}

// NewActionsWithAPI wires a custom REST surface. Used by tests.
func NewActionsWithAPI(api restAPI) *Actions {
	return &Actions{api: api}
}

// HangUp terminates the live call leg.
func (a *Actions) HangUp(ctx context.Context, callSID string) error {
	params := &openapi.UpdateCallParams{}
	params.SetStatus("completed")
	if _, err := a.api.UpdateCall(callSID, params); err != nil {
		return fmt.Errorf("hang up call %s: %w", callSID, err)
	}
	return nil
}

// Transfer redirects the live call to the target number.
func (a *Actions) Transfer(ctx context.Context, callSID, to string) error {
	doc, err := DialTwiML(to)
	if err != nil {
		return fmt.Errorf("build transfer instruction: %w", err)
	}
	params := &openapi.UpdateCallParams{}
	params.SetTwiml(doc)
	if _, err := a.api.UpdateCall(callSID, params); err != nil {
		return fmt.Errorf("transfer call %s: %w", callSID, err)
	}
	return nil
}

// SendSMS texts the scheduling link to the caller.
func (a *Actions) SendSMS(ctx context.Context, to, from, displayName, link string) error {
	body := fmt.Sprintf("Hello, you can schedule a call with %s using this link: %s", displayName, link)
	params := &openapi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(from)
	params.SetBody(body)
	if _, err := a.api.CreateMessage(params); err != nil {
		return fmt.Errorf("send sms to %s: %w", to, err)
	}
	return nil
}

// DialTwiML renders the call-control document that bridges the live call to a
// phone number.
func DialTwiML(number string) (string, error) {
	dial := &twiml.VoiceDial{Number: number}
	return twiml.Voice([]twiml.Element{dial})
}

// StreamTwiML renders the call-control document returned by the inbound-call
// webhook: open a bidirectional media stream to the relay endpoint, carrying
// the session identity as a custom parameter.
func StreamTwiML(streamURL, identity string) (string, error) {
	stream := &twiml.VoiceStream{Url: streamURL}
	stream.InnerElements = []twiml.Element{
		&twiml.VoiceParameter{Name: IdentityParameter, Value: identity},
	}
	connect := &twiml.VoiceConnect{}
	connect.InnerElements = []twiml.Element{stream}
	return twiml.Voice([]twiml.Element{connect})
}
