package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/yolodolo42/sitepilot/internal/llm"
)

// The marketing automations are placeholders: they validate nothing and reach
// no external service.

var setupWhatsAppTool = llm.NewTool("setup_whatsapp_automation",
	"Configure an automated WhatsApp reply for new leads.",
	llm.JSONSchema{
		Type: "object",
		Properties: map[string]llm.Property{
			"phoneNumber":     {Type: "string", Description: "Business phone number in international format"},
			"messageTemplate": {Type: "string", Description: "Message sent to new leads"},
		},
		Required: []string{"phoneNumber", "messageTemplate"},
	})

var emailSequenceTool = llm.NewTool("generate_email_marketing_sequence",
	"Create a drip email campaign from an ordered list of steps.",
	llm.JSONSchema{
		Type: "object",
		Properties: map[string]llm.Property{
			"campaignName": {Type: "string", Description: "Campaign name"},
			"steps":        {Type: "array", Description: "Email subjects or summaries, in send order", Items: &llm.Property{Type: "string"}},
		},
		Required: []string{"campaignName", "steps"},
	})

func setupWhatsAppAutomation(_ context.Context, input json.RawMessage) (string, error) {
	var params struct {
		PhoneNumber     string `json:"phoneNumber"`
		MessageTemplate string `json:"messageTemplate"`
	}
	_ = json.Unmarshal(input, &params)
	return fmt.Sprintf("WhatsApp automation configured for %s", params.PhoneNumber), nil
}

func generateEmailSequence(_ context.Context, input json.RawMessage) (string, error) {
	var params struct {
		CampaignName string   `json:"campaignName"`
		Steps        []string `json:"steps"`
	}
	_ = json.Unmarshal(input, &params)
	return fmt.Sprintf("Email sequence %q created with %d steps", params.CampaignName, len(params.Steps)), nil
}
