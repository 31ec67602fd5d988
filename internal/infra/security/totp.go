package security

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image/png"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	totpPeriod     = 30
	totpSecretSize = 20
	totpQRSize     = 256
)

// TOTPProvisioning carries everything the client needs to enroll an
// authenticator app: the shared secret, the otpauth URI, and a QR code
// rendering of that URI as a base64 PNG.
type TOTPProvisioning struct {
	Secret   string
	URL      string
	QRBase64 string
}

// TOTPEngine generates and validates RFC 6238 time-based codes.
type TOTPEngine struct {
	issuer string
	skew   uint
}

// NewTOTPEngine constructs an engine labelling provisioned secrets with the
// given issuer and accepting codes within skew periods of the current one.
func NewTOTPEngine(issuer string, skew uint) *TOTPEngine {
	return &TOTPEngine{issuer: issuer, skew: skew}
}

// Provision generates a fresh secret for the account identified by email.
func (e *TOTPEngine) Provision(email string) (*TOTPProvisioning, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      e.issuer,
		AccountName: email,
		Period:      totpPeriod,
		SecretSize:  totpSecretSize,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, fmt.Errorf("generate totp secret: %w", err)
	}

	img, err := key.Image(totpQRSize, totpQRSize)
	if err != nil {
		return nil, fmt.Errorf("render totp qr: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode totp qr: %w", err)
	}

	return &TOTPProvisioning{
		Secret:   key.Secret(),
		URL:      key.URL(),
		QRBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
	}, nil
}

// Validate checks the code against the secret at the given time. The skew
// window tolerates clock drift between server and authenticator.
func (e *TOTPEngine) Validate(code, secret string, at time.Time) (bool, error) {
	ok, err := totp.ValidateCustom(code, secret, at, totp.ValidateOpts{
		Period:    totpPeriod,
		Skew:      e.skew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		// A malformed code is a failed validation, not an engine fault.
		if errors.Is(err, otp.ErrValidateInputInvalidLength) {
			return false, nil
		}
		return false, fmt.Errorf("validate totp code: %w", err)
	}
	return ok, nil
}
