package cloud

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	icrypto "github.com/mtsgi/tasket/internal/crypto"
)

const (
	signingAlgorithm = "AWS4-HMAC-SHA256"
	amzDateFormat    = "20060102T150405Z"
	emptyPayloadHash = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
)

// Signer produces AWS Signature Version 4 authorization headers from raw
// credentials. It signs every header already present on the request plus
// Host, so callers control the signed header set.
type Signer struct {
	AccessKey string
	SecretKey string
	Region    string
	Service   string
}

// Sign computes the v4 signature over req at the given instant and sets
// the X-Amz-Date and Authorization headers. payloadHash is the lowercase
// hex SHA-256 of the request body (emptyPayloadHash for no body).
func (s Signer) Sign(req *http.Request, payloadHash string, now time.Time) {
	now = now.UTC()
	amzDate := now.Format(amzDateFormat)
	dateStamp := now.Format("20060102")

	req.Header.Set("x-amz-date", amzDate)

	host := req.Host
	if host == "" {
		host = req.URL.Host
	}

	headers := map[string]string{"host": host}
	for name, values := range req.Header {
		headers[strings.ToLower(name)] = strings.TrimSpace(strings.Join(values, ","))
	}

	names := make([]string, 0, len(headers))
	for name := range headers {
		names = append(names, name)
	}
	sort.Strings(names)

	var canonicalHeaders strings.Builder
	for _, name := range names {
		canonicalHeaders.WriteString(name)
		canonicalHeaders.WriteByte(':')
		canonicalHeaders.WriteString(headers[name])
		canonicalHeaders.WriteByte('\n')
	}
	signedHeaders := strings.Join(names, ";")

	canonicalURI := req.URL.Path
	if canonicalURI == "" {
		canonicalURI = "/"
	}
	canonicalURI = uriEncode(canonicalURI, false)

	canonicalRequest := strings.Join([]string{
		req.Method,
		canonicalURI,
		canonicalQuery(req),
		canonicalHeaders.String(),
		signedHeaders,
		payloadHash,
	}, "\n")

	scope := strings.Join([]string{dateStamp, s.Region, s.Service, "aws4_request"}, "/")
	stringToSign := strings.Join([]string{
		signingAlgorithm,
		amzDate,
		scope,
		icrypto.Sha256Hex([]byte(canonicalRequest)),
	}, "\n")

	signature := icrypto.HmacSHA256Hex(s.signingKey(dateStamp), []byte(stringToSign))

	req.Header.Set("Authorization", fmt.Sprintf("%s Credential=%s/%s, SignedHeaders=%s, Signature=%s",
		signingAlgorithm, s.AccessKey, scope, signedHeaders, signature))
}

func (s Signer) signingKey(dateStamp string) []byte {
	kDate := icrypto.HmacSHA256([]byte("AWS4"+s.SecretKey), []byte(dateStamp))
	kRegion := icrypto.HmacSHA256(kDate, []byte(s.Region))
	kService := icrypto.HmacSHA256(kRegion, []byte(s.Service))
	return icrypto.HmacSHA256(kService, []byte("aws4_request"))
}

func canonicalQuery(req *http.Request) string {
	query := req.URL.Query()
	type queryPair struct {
		key   string
		value string
	}
	pairs := make([]queryPair, 0, len(query))
	for key, values := range query {
		for _, value := range values {
			pairs = append(pairs, queryPair{key: uriEncode(key, true), value: uriEncode(value, true)})
		}
	}
	// Sorted by encoded key, then by encoded value. Sorting the joined
	// "key=value" strings instead would misorder keys that are prefixes of
	// each other, since '=' does not collate first.
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].key != pairs[j].key {
			return pairs[i].key < pairs[j].key
		}
		return pairs[i].value < pairs[j].value
	})

	encoded := make([]string, len(pairs))
	for i, pair := range pairs {
		encoded[i] = pair.key + "=" + pair.value
	}
	return strings.Join(encoded, "&")
}

// uriEncode percent-encodes per RFC 3986, leaving unreserved characters
// (and, for paths, the slash) intact.
func uriEncode(s string, encodeSlash bool) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c >= '0' && c <= '9':
			b.WriteByte(c)
		case c == '-' || c == '_' || c == '.' || c == '~':
			b.WriteByte(c)
		case c == '/' && !encodeSlash:
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}
