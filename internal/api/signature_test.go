package api

import (
	"net/http"
	"strconv"
	"testing"
	"time"
)

func TestVerifyWebhookSignatureAcceptsRotatedSecrets(t *testing.T) {
	body := []byte(`{"type": "subscription.created"}`)
	ts := strconv.FormatInt(time.Now().Unix(), 10)

	// During secret rotation the header carries one signature per secret,
	// space separated. Any one matching must be enough.
	oldSig := signWebhookPayload("whsec_b2xkLXNlY3JldA==", "msg_1", ts, body)
	newSig := signWebhookPayload(testWebhookSecret, "msg_1", ts, body)

	header := http.Header{}
	header.Set("webhook-id", "msg_1")
	header.Set("webhook-timestamp", ts)
	header.Set("webhook-signature", oldSig+" "+newSig)

	if err := verifyWebhookSignature(testWebhookSecret, header, body, time.Now()); err != nil {
		t.Fatalf("expected rotated signature set to verify, got %v", err)
	}
}

func TestVerifyWebhookSignatureIgnoresUnknownVersions(t *testing.T) {
	body := []byte(`{}`)
	ts := strconv.FormatInt(time.Now().Unix(), 10)

	header := http.Header{}
	header.Set("webhook-id", "msg_1")
	header.Set("webhook-timestamp", ts)
	header.Set("webhook-signature", "v2,Zm9v")

	if err := verifyWebhookSignature(testWebhookSecret, header, body, time.Now()); err == nil {
		t.Fatalf("expected unknown signature version to be rejected")
	}
}

func TestVerifyWebhookSignatureBodyTamperDetected(t *testing.T) {
	body := []byte(`{"type": "subscription.created"}`)
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	sig := signWebhookPayload(testWebhookSecret, "msg_1", ts, body)

	header := http.Header{}
	header.Set("webhook-id", "msg_1")
	header.Set("webhook-timestamp", ts)
	header.Set("webhook-signature", sig)

	tampered := []byte(`{"type": "subscription.updated"}`)
	if err := verifyWebhookSignature(testWebhookSecret, header, tampered, time.Now()); err == nil {
		t.Fatalf("expected tampered body to be rejected")
	}
}
