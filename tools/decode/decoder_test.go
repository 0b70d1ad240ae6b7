package decode

import "testing"

type payload struct {
	Type  string `json:"type"`
	To    string `json:"to"`
	Count int64  `json:"count"`
}

func TestDecodeJSONWeak(t *testing.T) {
	p, err := DecodeJSON[payload]([]byte(`{"type":"x","to":9007199254740993,"count":"12"}`))
	if err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}
	if p.To != "9007199254740993" {
		t.Errorf("To = %q, want exact digits", p.To)
	}
	if p.Count != 12 {
		t.Errorf("Count = %d", p.Count)
	}
}

func TestDecodeStrict(t *testing.T) {
	if _, err := DecodeJSON[payload]([]byte(`{"count":"12"}`), Options{}); err == nil {
		t.Errorf("strict decode accepted string for int")
	}
	if _, err := DecodeJSON[payload]([]byte(`{"type":"x","extra":1}`), Options{ErrorUnused: true}); err == nil {
		t.Errorf("ErrorUnused ignored extra field")
	}
	if _, err := DecodeJSON[payload]([]byte(`[1]`)); err == nil {
		t.Errorf("array accepted")
	}
	if _, err := DecodeMap[payload](nil); err == nil {
		t.Errorf("nil map accepted")
	}
}

func TestReadString(t *testing.T) {
	m := map[string]any{"a": "x", "b": 1}
	if s, err := ReadString(m, "a"); err != nil || s != "x" {
		t.Errorf("ReadString a = %q,%v", s, err)
	}
	if _, err := ReadString(m, "b"); err == nil {
		t.Errorf("ReadString b: want type error")
	}
	if _, err := ReadString(m, "c"); err == nil {
		t.Errorf("ReadString c: want missing error")
	}
}
