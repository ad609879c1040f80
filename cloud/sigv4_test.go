package cloud

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Reference vector from the AWS Signature Version 4 documentation
// (get-vanilla-query style request against IAM).
func TestSignerReferenceVector(t *testing.T) {
	req, err := http.NewRequest(http.MethodGet, "https://iam.amazonaws.com/?Action=ListUsers&Version=2010-05-08", nil)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=utf-8")

	signer := Signer{
		AccessKey: "AKIDEXAMPLE",
		SecretKey: "wJalrXUtnFEMI/K7MDENG+bPxRfiCYEXAMPLEKEY",
		Region:    "us-east-1",
		Service:   "iam",
	}
	signer.Sign(req, emptyPayloadHash, time.Date(2015, 8, 30, 12, 36, 0, 0, time.UTC))

	require.Equal(t, "20150830T123600Z", req.Header.Get("x-amz-date"))

	want := "AWS4-HMAC-SHA256 " +
		"Credential=AKIDEXAMPLE/20150830/us-east-1/iam/aws4_request, " +
		"SignedHeaders=content-type;host;x-amz-date, " +
		"Signature=5d672d79c15b13162d9279b0855cfba6789a8edb4c82c400e06b5924a6f2b5d7"
	require.Equal(t, want, req.Header.Get("Authorization"))
}

func TestSignerQueryOrdering(t *testing.T) {
	req, err := http.NewRequest(http.MethodGet, "https://example.com/bucket?prefix=tasket-backups%2F&list-type=2", nil)
	require.NoError(t, err)

	require.Equal(t, "list-type=2&prefix=tasket-backups%2F", canonicalQuery(req))
}

func TestSignerQueryOrdersByKeyThenValue(t *testing.T) {
	// "a" must sort before "a-b": '-' collates before '=', so sorting the
	// joined pairs would flip them.
	req, err := http.NewRequest(http.MethodGet, "https://example.com/bucket?a-b=y&a=x", nil)
	require.NoError(t, err)
	require.Equal(t, "a=x&a-b=y", canonicalQuery(req))

	// Repeated keys sort by value.
	req, err = http.NewRequest(http.MethodGet, "https://example.com/bucket?k=2&k=1", nil)
	require.NoError(t, err)
	require.Equal(t, "k=1&k=2", canonicalQuery(req))
}

func TestURIEncode(t *testing.T) {
	require.Equal(t, "/bucket/tasket-backups/file.json", uriEncode("/bucket/tasket-backups/file.json", false))
	require.Equal(t, "tasket-backups%2F", uriEncode("tasket-backups/", true))
	require.Equal(t, "a%20b%2Bc", uriEncode("a b+c", true))
}
