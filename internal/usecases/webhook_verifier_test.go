package usecases

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWebhookVerifier(t *testing.T) {
	v := NewWebhookVerifier("s3cret")

	tests := []struct {
		name      string
		mode      string
		token     string
		challenge string
		want      string
		ok        bool
	}{
		{name: "match", mode: "subscribe", token: "s3cret", challenge: "1158201444", want: "1158201444", ok: true},
		{name: "wrong token", mode: "subscribe", token: "nope", challenge: "x"},
		{name: "wrong mode", mode: "unsubscribe", token: "s3cret", challenge: "x"},
		{name: "empty token", mode: "subscribe", token: "", challenge: "x"},
		{name: "empty mode", mode: "", token: "s3cret", challenge: "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := v.Verify(tt.mode, tt.token, tt.challenge)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWebhookVerifier_Unconfigured(t *testing.T) {
	_, ok := NewWebhookVerifier("").Verify("subscribe", "", "x")
	assert.False(t, ok)
}
