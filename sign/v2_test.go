package sign

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCreds = Credentials{
	AccessKeyID:     "access_key",
	SecretAccessKey: "secret_key",
}

func v2Request(params map[string]string) *Request {
	return &Request{
		Method:  "POST",
		Host:    "mockservice.cc-zone-1.example.com",
		Path:    "/",
		Params:  params,
		Headers: map[string]string{},
		Time:    time.Date(2012, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestV2Signer_Sign(t *testing.T) {
	signer := &V2Signer{}
	req := v2Request(map[string]string{"Action": "myCmd", "par1": "foo", "par2": "baz"})

	require.NoError(t, signer.Sign(context.Background(), req, testCreds))

	assert.Equal(t, "access_key", req.Params["AWSAccessKeyId"])
	assert.Equal(t, "HmacSHA256", req.Params["SignatureMethod"])
	assert.Equal(t, "2", req.Params["SignatureVersion"])
	assert.Equal(t, "2012-01-01T12:00:00Z", req.Params["Timestamp"])

	sig := req.Params["Signature"]
	require.NotEmpty(t, sig)
	_, err := base64.StdEncoding.DecodeString(sig)
	assert.NoError(t, err, "signature must be base64")

	// Caller params remain untouched.
	assert.Equal(t, "foo", req.Params["par1"])
	assert.Equal(t, "baz", req.Params["par2"])
}

func TestV2Signer_Deterministic(t *testing.T) {
	signer := &V2Signer{}

	first := v2Request(map[string]string{"Action": "myCmd", "par1": "foo"})
	second := v2Request(map[string]string{"par1": "foo", "Action": "myCmd"})

	require.NoError(t, signer.Sign(context.Background(), first, testCreds))
	require.NoError(t, signer.Sign(context.Background(), second, testCreds))

	// Identical inputs (including the pinned timestamp) produce an
	// identical signature regardless of insertion order.
	assert.Equal(t, first.Params["Signature"], second.Params["Signature"])
}

func TestV2Signer_SignatureVariesWithInput(t *testing.T) {
	signer := &V2Signer{}

	base := v2Request(map[string]string{"Action": "myCmd"})
	require.NoError(t, signer.Sign(context.Background(), base, testCreds))

	tests := []struct {
		name   string
		mutate func(*Request)
	}{
		{"different param", func(r *Request) { r.Params["extra"] = "x" }},
		{"different method", func(r *Request) { r.Method = "GET" }},
		{"different host", func(r *Request) { r.Host = "other.example.com" }},
		{"different path", func(r *Request) { r.Path = "/other" }},
		{"different time", func(r *Request) { r.Time = r.Time.Add(time.Hour) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := v2Request(map[string]string{"Action": "myCmd"})
			tt.mutate(req)
			require.NoError(t, signer.Sign(context.Background(), req, testCreds))
			assert.NotEqual(t, base.Params["Signature"], req.Params["Signature"])
		})
	}
}

func TestV2Signer_SecurityToken(t *testing.T) {
	signer := &V2Signer{}
	req := v2Request(map[string]string{"Action": "myCmd"})
	creds := testCreds
	creds.SecurityToken = "session-token"

	require.NoError(t, signer.Sign(context.Background(), req, creds))
	assert.Equal(t, "session-token", req.Params["SecurityToken"])
}

func TestV2Signer_MissingCredentials(t *testing.T) {
	signer := &V2Signer{}
	req := v2Request(map[string]string{})

	err := signer.Sign(context.Background(), req, Credentials{AccessKeyID: "only-key"})
	assert.Error(t, err)
}

func TestCanonicalQueryString(t *testing.T) {
	got := canonicalQueryString(map[string]string{
		"b":     "2",
		"a":     "1",
		"space": "a b",
		"tilde": "~x",
	})
	assert.Equal(t, "a=1&b=2&space=a%20b&tilde=~x", got)
}
