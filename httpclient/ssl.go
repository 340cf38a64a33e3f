package httpclient

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
)

// SSLConfig controls how TLS failures are classified and annotated on the
// error chain.
type SSLConfig struct {
	Enabled bool
	// IncludeTechnicalDetails attaches the underlying error string.
	IncludeTechnicalDetails bool
	// IncludeSuggestions attaches remediation hints per failure kind.
	IncludeSuggestions bool
	// Transform, when set, replaces the built-in classifier entirely.
	Transform func(err ClientError, cause error) ClientError
}

// Annotation keys attached by the SSL error interceptor.
const (
	AnnotationCategory    = "category"
	AnnotationSSLKind     = "ssl_kind"
	AnnotationDetails     = "technical_details"
	AnnotationSuggestions = "suggestions"
)

var sslSuggestions = map[string][]string{
	"unknown_authority": {
		"verify the server certificate is issued by a trusted CA",
		"install the missing root or intermediate certificate",
	},
	"certificate_invalid": {
		"check the certificate validity period",
		"renew the certificate if it has expired",
	},
	"hostname_mismatch": {
		"confirm the request host matches a name on the certificate",
		"check for a misconfigured proxy or load balancer",
	},
	"not_tls": {
		"the server answered with plain HTTP; check the URL scheme and port",
	},
	"verification_failed": {
		"inspect the full certificate chain presented by the server",
	},
}

// NewSSLErrorInterceptor returns an error interceptor that recognizes TLS
// certificate failures and annotates the error with a category and optional
// suggestions. Non-TLS errors pass through untouched.
func NewSSLErrorInterceptor(cfg SSLConfig) ErrorInterceptor {
	return func(_ context.Context, clientErr ClientError) ClientError {
		cause := errors.Unwrap(clientErr)
		if cause == nil {
			return clientErr
		}
		kind, ok := classifyTLSError(cause)
		if !ok {
			return clientErr
		}
		if cfg.Transform != nil {
			return cfg.Transform(clientErr, cause)
		}

		clientErr.Annotate(AnnotationCategory, "ssl")
		clientErr.Annotate(AnnotationSSLKind, kind)
		if cfg.IncludeTechnicalDetails {
			clientErr.Annotate(AnnotationDetails, cause.Error())
		}
		if cfg.IncludeSuggestions {
			if suggestions, found := sslSuggestions[kind]; found {
				clientErr.Annotate(AnnotationSuggestions, suggestions)
			}
		}
		return clientErr
	}
}

// classifyTLSError checks the specific x509 kinds before the generic
// *tls.CertificateVerificationError wrapper: the wrapper always carries the
// x509 error as its cause, and the specific kind is the one a caller can act
// on. verification_failed only surfaces for causes no specific kind matches.
func classifyTLSError(err error) (string, bool) {
	var unknownAuthority x509.UnknownAuthorityError
	if errors.As(err, &unknownAuthority) {
		return "unknown_authority", true
	}
	var invalid x509.CertificateInvalidError
	if errors.As(err, &invalid) {
		return "certificate_invalid", true
	}
	var hostname x509.HostnameError
	if errors.As(err, &hostname) {
		return "hostname_mismatch", true
	}
	var record tls.RecordHeaderError
	if errors.As(err, &record) {
		return "not_tls", true
	}
	var verification *tls.CertificateVerificationError
	if errors.As(err, &verification) {
		return "verification_failed", true
	}
	return "", false
}
