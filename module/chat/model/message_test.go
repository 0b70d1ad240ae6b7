package model

import (
	"errors"
	"testing"

	"BelongingsHub/tools/errs"
)

func TestNormalizeDefaults(t *testing.T) {
	p := SaveMessageParams{SenderID: " u1 ", ReceiverID: "u2", Message: "hi"}
	if err := p.Normalize(); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if p.SenderID != "u1" {
		t.Errorf("SenderID = %q", p.SenderID)
	}
	if p.SenderModel != KindUser || p.ReceiverModel != KindUser {
		t.Errorf("models = %q/%q, want User/User", p.SenderModel, p.ReceiverModel)
	}
}

func TestNormalizeRejects(t *testing.T) {
	bad := []SaveMessageParams{
		{ReceiverID: "u2", Message: "hi"},
		{SenderID: "u1", Message: "hi"},
		{SenderID: "u1", ReceiverID: "u2", Message: "   "},
		{SenderID: "u1", ReceiverID: "u2", Message: "hi", ReceiverModel: "Robot"},
	}
	for i, p := range bad {
		if err := p.Normalize(); !errors.Is(err, errs.ErrArgs) {
			t.Errorf("case %d: err = %v, want ErrArgs", i, err)
		}
	}
}
