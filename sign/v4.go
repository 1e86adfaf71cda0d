package sign

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// formContentType is the wire content type for signed form bodies. The
// executor must send exactly this value: v4 signs the header.
const formContentType = "application/x-www-form-urlencoded; charset=utf-8"

// V4Signer implements header-based signing via the SDK SigV4 signer.
// When the supplied credentials are empty it falls back to the SDK
// default credential chain, resolved lazily on first use.
type V4Signer struct {
	service string
	region  string
	signer  *v4.Signer

	chainOnce sync.Once
	chain     aws.CredentialsProvider
	chainErr  error
}

// NewV4Signer creates a SigV4 signer scoped to a service and region.
func NewV4Signer(service, region string) (*V4Signer, error) {
	if service == "" {
		return nil, fmt.Errorf("v4 signing requires a service name")
	}
	if region == "" {
		return nil, fmt.Errorf("v4 signing requires a region")
	}
	return &V4Signer{
		service: service,
		region:  region,
		signer:  v4.NewSigner(),
	}, nil
}

// Name returns the signer identifier.
func (s *V4Signer) Name() string { return "v4" }

// Sign computes the payload hash over the exact wire body the executor
// will send, signs the request headers, and copies the resulting
// authentication headers back into req.Headers.
func (s *V4Signer) Sign(ctx context.Context, req *Request, creds Credentials) error {
	awsCreds, err := s.resolveCredentials(ctx, creds)
	if err != nil {
		return err
	}

	values := make(url.Values, len(req.Params))
	for k, v := range req.Params {
		values.Set(k, v)
	}
	encoded := values.Encode()

	target := "https://" + req.Host + req.Path
	var body []byte
	if req.ParamsInQuery {
		target += "?" + encoded
	} else {
		body = []byte(encoded)
		req.Headers["Content-Type"] = formContentType
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request to sign: %w", err)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	payloadHash := sha256.Sum256(body)
	hashHex := hex.EncodeToString(payloadHash[:])
	httpReq.Header.Set("X-Amz-Content-Sha256", hashHex)

	if err := s.signer.SignHTTP(ctx, awsCreds, httpReq, hashHex, s.service, s.region, req.Time); err != nil {
		return fmt.Errorf("signing request: %w", err)
	}

	for _, name := range []string{"Authorization", "X-Amz-Date", "X-Amz-Content-Sha256", "X-Amz-Security-Token"} {
		if v := httpReq.Header.Get(name); v != "" {
			req.Headers[name] = v
		}
	}
	return nil
}

func (s *V4Signer) resolveCredentials(ctx context.Context, creds Credentials) (aws.Credentials, error) {
	if creds.AccessKeyID != "" {
		return aws.Credentials{
			AccessKeyID:     creds.AccessKeyID,
			SecretAccessKey: creds.SecretAccessKey,
			SessionToken:    creds.SecurityToken,
		}, nil
	}

	s.chainOnce.Do(func() {
		cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(s.region))
		if err != nil {
			s.chainErr = fmt.Errorf("loading default credential chain: %w", err)
			return
		}
		s.chain = cfg.Credentials
	})
	if s.chainErr != nil {
		return aws.Credentials{}, s.chainErr
	}

	resolved, err := s.chain.Retrieve(ctx)
	if err != nil {
		return aws.Credentials{}, fmt.Errorf("resolving credentials: %w", err)
	}
	return resolved, nil
}

// ValidateCredentials checks the default credential chain end to end
// with an STS GetCallerIdentity call and returns the caller ARN.
func ValidateCredentials(ctx context.Context, region string) (string, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return "", fmt.Errorf("loading credential chain: %w", err)
	}

	validationCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	out, err := sts.NewFromConfig(cfg).GetCallerIdentity(validationCtx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", fmt.Errorf("credential validation failed: %w", err)
	}
	if out.Arn == nil {
		return "", nil
	}
	return *out.Arn, nil
}
