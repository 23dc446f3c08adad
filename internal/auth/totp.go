package auth

import (
	"bytes"
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base32"
	"encoding/base64"
	"fmt"
	"image/png"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lib/pq"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/orgdesk/orgdesk/internal/logging"
)

const totpTempIssuer = tokenIssuer + "-totp"

const backupCodeCount = 10

// TOTPSetupResult holds the data returned when initiating TOTP setup.
type TOTPSetupResult struct {
	Secret  string `json:"secret"`
	QRPNG   string `json:"qr_png"`  // base64 PNG
	OTPAuth string `json:"otpauth"` // otpauth:// URI
}

// totpRow is the per-user 2FA state read from the users table.
type totpRow struct {
	password    string
	secret      string
	backupCodes []string
}

func (a *Auth) totpRow(ctx context.Context, userID int) (*totpRow, error) {
	var row totpRow
	err := a.db.QueryRowContext(ctx,
		`SELECT password, COALESCE(totp_secret, ''), COALESCE(totp_backup_codes, '{}')
		 FROM users WHERE id = $1`, userID).
		Scan(&row.password, &row.secret, pq.Array(&row.backupCodes))
	if err != nil {
		return nil, fmt.Errorf("user not found")
	}
	return &row, nil
}

// GenerateTOTPSetup generates a new TOTP secret and QR code for the user.
// Nothing is persisted until EnableTOTP confirms the secret with a code.
func (a *Auth) GenerateTOTPSetup(ctx context.Context, userID int, username string) (*TOTPSetupResult, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      "OrgDesk",
		AccountName: username,
	})
	if err != nil {
		return nil, fmt.Errorf("generate TOTP key: %w", err)
	}

	qr, err := qrPNGBase64(key)
	if err != nil {
		return nil, err
	}

	return &TOTPSetupResult{
		Secret:  key.Secret(),
		QRPNG:   qr,
		OTPAuth: key.URL(),
	}, nil
}

func qrPNGBase64(key *otp.Key) (string, error) {
	img, err := key.Image(256, 256)
	if err != nil {
		return "", fmt.Errorf("generate QR image: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode QR PNG: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// EnableTOTP verifies the code against the secret, stores it, and generates
// backup codes. Returns the plaintext backup codes.
func (a *Auth) EnableTOTP(ctx context.Context, userID int, secret, code string) ([]string, error) {
	if !totp.Validate(code, secret) {
		return nil, fmt.Errorf("invalid TOTP code")
	}

	plain, hashed, err := newBackupCodes(backupCodeCount)
	if err != nil {
		return nil, fmt.Errorf("generate backup codes: %w", err)
	}

	if _, err := a.db.ExecContext(ctx,
		`UPDATE users SET totp_secret = $1, totp_enabled = TRUE, totp_backup_codes = $2 WHERE id = $3`,
		secret, pq.Array(hashed), userID); err != nil {
		return nil, fmt.Errorf("enable TOTP: %w", err)
	}

	logging.Info("TOTP enabled", zap.Int("user_id", userID))
	return plain, nil
}

// DisableTOTP disables TOTP for a user after verifying password and TOTP code.
func (a *Auth) DisableTOTP(ctx context.Context, userID int, password, code string) error {
	row, err := a.totpRow(ctx, userID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(row.password), []byte(password)) != nil {
		return fmt.Errorf("invalid password")
	}
	if !totp.Validate(code, row.secret) {
		return fmt.Errorf("invalid TOTP code")
	}

	if _, err := a.db.ExecContext(ctx,
		`UPDATE users SET totp_secret = NULL, totp_enabled = FALSE, totp_backup_codes = NULL WHERE id = $1`,
		userID); err != nil {
		return fmt.Errorf("disable TOTP: %w", err)
	}

	logging.Info("TOTP disabled", zap.Int("user_id", userID))
	return nil
}

// ValidateTOTP accepts either a current TOTP code or an unused backup code.
func (a *Auth) ValidateTOTP(ctx context.Context, userID int, code string) error {
	row, err := a.totpRow(ctx, userID)
	if err != nil {
		return err
	}

	if totp.Validate(code, row.secret) {
		return nil
	}
	if a.consumeBackupCode(ctx, userID, row.backupCodes, code) {
		return nil
	}
	return fmt.Errorf("invalid code")
}

// consumeBackupCode burns the matching backup code, if any. One shot.
func (a *Auth) consumeBackupCode(ctx context.Context, userID int, hashed []string, code string) bool {
	for i, h := range hashed {
		if bcrypt.CompareHashAndPassword([]byte(h), []byte(code)) != nil {
			continue
		}
		remaining := append(append([]string{}, hashed[:i]...), hashed[i+1:]...)
		a.db.ExecContext(ctx,
			`UPDATE users SET totp_backup_codes = $1 WHERE id = $2`,
			pq.Array(remaining), userID)
		logging.Info("backup code used",
			zap.Int("user_id", userID),
			zap.Int("remaining", len(remaining)))
		return true
	}
	return false
}

// IsTOTPEnabled checks whether the user has TOTP enabled.
func (a *Auth) IsTOTPEnabled(ctx context.Context, userID int) (bool, error) {
	var enabled bool
	err := a.db.QueryRowContext(ctx,
		`SELECT totp_enabled FROM users WHERE id = $1`, userID).Scan(&enabled)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return enabled, err
}

// GenerateTOTPTempToken generates a short-lived JWT for the 2FA verification step.
func (a *Auth) GenerateTOTPTempToken(userID int, username string, isAdmin bool) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:   userID,
		Username: username,
		IsAdmin:  isAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(5 * time.Minute)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    totpTempIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// ValidateTOTPTempToken validates a temp token issued for TOTP verification.
func (a *Auth) ValidateTOTPTempToken(tokenStr string) (*Claims, error) {
	claims, err := a.validateToken(tokenStr)
	if err != nil {
		return nil, err
	}
	if claims.Issuer != totpTempIssuer {
		return nil, fmt.Errorf("not a TOTP temp token")
	}
	return claims, nil
}

// newBackupCodes creates n random 8-char codes. Returns (plaintext, bcrypt-hashed).
func newBackupCodes(n int) ([]string, []string, error) {
	enc := base32.StdEncoding.WithPadding(base32.NoPadding)
	plain := make([]string, n)
	hashed := make([]string, n)

	for i := range plain {
		b := make([]byte, 5)
		if _, err := rand.Read(b); err != nil {
			return nil, nil, err
		}
		plain[i] = enc.EncodeToString(b)

		h, err := bcrypt.GenerateFromPassword([]byte(plain[i]), bcrypt.DefaultCost)
		if err != nil {
			return nil, nil, err
		}
		hashed[i] = string(h)
	}

	return plain, hashed, nil
}
